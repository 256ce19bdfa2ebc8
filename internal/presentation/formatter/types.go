// Package formatter prints run and inspection reports.
package formatter

import (
	"fmt"
	"io"
	"os"
)

// Report formats.
const (
	FormatTable   = "table"
	FormatJSON    = "json"
	FormatCSV     = "csv"
	FormatSummary = "summary"
)

// Subject statuses.
const (
	StatusIncluded = "included"
	StatusExcluded = "excluded"
)

// SubjectRow is one subject's coverage of the selected visits.
type SubjectRow struct {
	SubjectID string   `json:"subject_id"`
	Status    string   `json:"status"`
	Present   []string `json:"present"`
	Missing   []string `json:"missing,omitempty"`
}

// VisitCoverage counts the subjects with a record at a visit.
type VisitCoverage struct {
	Visit    string `json:"visit"`
	Subjects int    `json:"subjects"`
}

// TableInfo describes the parsed input.
type TableInfo struct {
	Source   string          `json:"source"`
	Headers  []string        `json:"headers"`
	Encoding string          `json:"encoding"`
	Rows     int             `json:"rows"`
	Dropped  int             `json:"dropped"`
	Subjects int             `json:"subjects"`
	Visits   []VisitCoverage `json:"visits"`
}

// RenderInfo describes a finished animation.
type RenderInfo struct {
	Output           string `json:"output"`
	Encoder          string `json:"encoder"`
	FramesPerSegment int    `json:"frames_per_segment"`
	Segments         int    `json:"segments"`
	TotalFrames      int    `json:"total_frames"`
	IntervalMS       int    `json:"interval_ms"`
	FPS              int    `json:"fps"`
	ElapsedMS        int64  `json:"elapsed_ms"`
}

// Report is what every formatter prints. Render is nil for inspection.
type Report struct {
	RunID    string          `json:"run_id,omitempty"`
	Input    TableInfo       `json:"input"`
	Visits   []string        `json:"selected_visits"`
	Coverage []VisitCoverage `json:"coverage"`
	Included int             `json:"included"`
	Excluded int             `json:"excluded"`
	Subjects []SubjectRow    `json:"subjects"`
	Render   *RenderInfo     `json:"render,omitempty"`
}

// Formatter writes a report.
type Formatter interface {
	Format(report *Report) error
}

// New returns the formatter for name writing to w. A nil w means stdout.
func New(name string, w io.Writer) (Formatter, error) {
	if w == nil {
		w = os.Stdout
	}
	switch name {
	case "", FormatTable:
		return NewTableFormatter(w), nil
	case FormatJSON:
		return NewJSONFormatter(w), nil
	case FormatCSV:
		return NewCSVFormatter(w), nil
	case FormatSummary:
		return NewSummaryFormatter(w), nil
	default:
		return nil, fmt.Errorf("unknown report format %q (want table, json, csv or summary)", name)
	}
}
