package render

import (
	"sort"

	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/core/trajectory"
	"github.com/penwyp/tracevis/internal/data/parser"
	"github.com/penwyp/tracevis/internal/presentation/formatter"
)

// describeTable summarizes a parsed table with per-visit subject counts.
func describeTable(table *parser.Table) formatter.TableInfo {
	return formatter.TableInfo{
		Source:   table.Source,
		Headers:  table.Headers,
		Encoding: table.Encoding,
		Rows:     table.Rows,
		Dropped:  table.Dropped,
		Subjects: len(table.Subjects()),
		Visits:   coverage(table.Records, table.Visits()),
	}
}

// coverage counts, per visit, the distinct subjects with a record at it.
func coverage(records []model.Record, visits []string) []formatter.VisitCoverage {
	seen := make(map[string]map[string]struct{}, len(visits))
	for _, v := range visits {
		seen[v] = make(map[string]struct{})
	}
	for _, r := range records {
		if subjects, ok := seen[r.Visit]; ok {
			subjects[r.SubjectID] = struct{}{}
		}
	}
	out := make([]formatter.VisitCoverage, len(visits))
	for i, v := range visits {
		out[i] = formatter.VisitCoverage{Visit: v, Subjects: len(seen[v])}
	}
	return out
}

// buildReport assembles the coverage part of a report from an extraction.
func buildReport(table *parser.Table, records []model.Record, visits []string, ext *trajectory.Extraction) *formatter.Report {
	report := &formatter.Report{
		Input:    describeTable(table),
		Visits:   visits,
		Coverage: coverage(records, visits),
	}
	if ext == nil {
		return report
	}

	rows := make([]formatter.SubjectRow, 0, len(ext.Paths)+len(ext.Excluded))
	for _, p := range ext.Paths {
		rows = append(rows, formatter.SubjectRow{
			SubjectID: p.SubjectID,
			Status:    formatter.StatusIncluded,
			Present:   append([]string(nil), visits...),
		})
	}
	for _, ex := range ext.Excluded {
		missing := make(map[string]struct{}, len(ex.MissingVisits))
		for _, v := range ex.MissingVisits {
			missing[v] = struct{}{}
		}
		present := make([]string, 0, len(visits))
		for _, v := range visits {
			if _, ok := missing[v]; !ok {
				present = append(present, v)
			}
		}
		rows = append(rows, formatter.SubjectRow{
			SubjectID: ex.SubjectID,
			Status:    formatter.StatusExcluded,
			Present:   present,
			Missing:   append([]string(nil), ex.MissingVisits...),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].SubjectID < rows[j].SubjectID })

	report.Subjects = rows
	report.Included = len(ext.Paths)
	report.Excluded = len(ext.Excluded)
	return report
}
