package formatter

import (
	"encoding/csv"
	"io"
	"strings"
)

// CSVFormatter writes one row per subject.
type CSVFormatter struct {
	w io.Writer
}

func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{w: w}
}

func (f *CSVFormatter) Format(report *Report) error {
	w := csv.NewWriter(f.w)

	if err := w.Write([]string{"SubjectID", "Status", "Present", "Missing"}); err != nil {
		return err
	}
	for _, row := range report.Subjects {
		record := []string{
			row.SubjectID,
			row.Status,
			strings.Join(row.Present, ";"),
			strings.Join(row.Missing, ";"),
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}
