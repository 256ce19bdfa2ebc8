package formatter

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/penwyp/tracevis/internal/util"
)

// SummaryFormatter prints the key figures of a report without the per-subject
// table.
type SummaryFormatter struct {
	w io.Writer
}

// NewSummaryFormatter creates a summary formatter writing to w.
func NewSummaryFormatter(w io.Writer) *SummaryFormatter {
	return &SummaryFormatter{w: w}
}

// Format writes the overview block.
func (f *SummaryFormatter) Format(report *Report) error {
	return writeSummary(f.w, report)
}

func writeSummary(w io.Writer, report *Report) error {
	in := report.Input
	lines := []string{
		util.FormatHeaderTitle("PCoA Trajectory Report"),
		fmt.Sprintf("Input:     %s (%s)", in.Source, in.Encoding),
		fmt.Sprintf("Columns:   %s", strings.Join(in.Headers, ", ")),
		fmt.Sprintf("Rows:      %s read, %s dropped with missing values", util.FormatNumber(in.Rows), util.FormatNumber(in.Dropped)),
		fmt.Sprintf("Subjects:  %d in table", in.Subjects),
	}
	if len(in.Visits) > 0 {
		parts := make([]string, len(in.Visits))
		for i, v := range in.Visits {
			parts[i] = fmt.Sprintf("%s (%d)", v.Visit, v.Subjects)
		}
		lines = append(lines, fmt.Sprintf("Visits:    %s", strings.Join(parts, ", ")))
	}
	if len(report.Visits) > 0 {
		total := report.Included + report.Excluded
		lines = append(lines,
			fmt.Sprintf("Selected:  %s", strings.Join(report.Visits, " -> ")),
			fmt.Sprintf("Included:  %d of %d subjects (%s)", report.Included, total, util.FormatPercent(report.Included, total)),
		)
	}
	if r := report.Render; r != nil {
		lines = append(lines,
			fmt.Sprintf("Frames:    %d (%d per segment x %d segments)", r.TotalFrames, r.FramesPerSegment, r.Segments),
			fmt.Sprintf("Encoder:   %s at %d fps, interval %d ms", r.Encoder, r.FPS, r.IntervalMS),
			fmt.Sprintf("Output:    %s", r.Output),
			fmt.Sprintf("Elapsed:   %s", util.FormatElapsed(time.Duration(r.ElapsedMS)*time.Millisecond)),
		)
	}
	if report.RunID != "" {
		lines = append(lines, fmt.Sprintf("Run:       %s", report.RunID))
	}

	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
