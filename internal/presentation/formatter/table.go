package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/penwyp/tracevis/internal/util"
)

// TableFormatter prints the summary block followed by a boxed subject table.
type TableFormatter struct {
	w        io.Writer
	headers  []string
	maxWidth func() int
}

func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{
		w:        w,
		headers:  []string{"Subject", "Status", "Present", "Missing"},
		maxWidth: terminalWidth,
	}
}

func (f *TableFormatter) Format(report *Report) error {
	if err := writeSummary(f.w, report); err != nil {
		return err
	}
	if len(report.Subjects) == 0 {
		return nil
	}
	fmt.Fprintln(f.w)

	rows := make([][]string, 0, len(report.Subjects)+1)
	for _, s := range report.Subjects {
		missing := strings.Join(s.Missing, ", ")
		if missing == "" {
			missing = "-"
		}
		rows = append(rows, []string{s.SubjectID, s.Status, strings.Join(s.Present, ", "), missing})
	}

	widths := f.calculateColumnWidths(rows)
	f.printBorder(widths, "top")
	f.printRow(f.headers, widths)
	f.printBorder(widths, "middle")
	for _, row := range rows {
		f.printRow(row, widths)
	}
	f.printBorder(widths, "middle")
	f.printRow([]string{"Total", fmt.Sprintf("%d/%d", report.Included, report.Included+report.Excluded), "", ""}, widths)
	f.printBorder(widths, "bottom")
	return nil
}

// calculateColumnWidths sizes each column to its widest cell, then shrinks the
// visit columns so the table fits the terminal.
func (f *TableFormatter) calculateColumnWidths(rows [][]string) []int {
	widths := make([]int, len(f.headers))
	for i, h := range f.headers {
		widths[i] = util.GetDisplayWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := util.GetDisplayWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	// each column adds two padding cells and one border
	budget := f.maxWidth() - 1 - 3*len(widths)
	for total(widths) > budget {
		widest := 2
		if widths[3] > widths[2] {
			widest = 3
		}
		if widths[widest] <= 8 {
			break
		}
		widths[widest]--
	}
	return widths
}

func total(widths []int) int {
	sum := 0
	for _, w := range widths {
		sum += w
	}
	return sum
}

func (f *TableFormatter) printBorder(widths []int, borderType string) {
	var left, middle, right string
	switch borderType {
	case "top":
		left, middle, right = "┌", "┬", "┐"
	case "middle":
		left, middle, right = "├", "┼", "┤"
	case "bottom":
		left, middle, right = "└", "┴", "┘"
	}

	var b strings.Builder
	b.WriteString(left)
	for i, width := range widths {
		b.WriteString(strings.Repeat("─", width+2))
		if i < len(widths)-1 {
			b.WriteString(middle)
		}
	}
	b.WriteString(right)
	fmt.Fprintln(f.w, b.String())
}

func (f *TableFormatter) printRow(values []string, widths []int) {
	var b strings.Builder
	b.WriteString("│")
	for i, value := range values {
		b.WriteString(" ")
		b.WriteString(util.PadRight(value, widths[i]))
		b.WriteString(" │")
	}
	fmt.Fprintln(f.w, b.String())
}
