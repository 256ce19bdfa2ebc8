// Package trajectory turns ordination records into per-subject paths and
// interpolates them into frame-resolution trajectories.
package trajectory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/util"
)

// Extraction is the result of selecting complete subject paths.
type Extraction struct {
	Paths    []model.SubjectPath
	Excluded []model.ExcludedSubject
	// Examined counts the distinct selected subjects present in the records.
	Examined int
}

// ValidateVisits checks that visits is an ordered selection of at least two
// distinct labels.
func ValidateVisits(visits []string) error {
	if len(visits) < 2 {
		return fmt.Errorf("%w: at least 2 visits must be selected, got %d", model.ErrInvalidConfig, len(visits))
	}
	seen := make(map[string]struct{}, len(visits))
	for _, v := range visits {
		if v == "" {
			return fmt.Errorf("%w: empty visit label in selection", model.ErrInvalidConfig)
		}
		if _, dup := seen[v]; dup {
			return fmt.Errorf("%w: visit %q selected more than once", model.ErrInvalidConfig, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// FilterSubjects keeps the records whose subject is in subjects. An empty
// subjects list keeps everything.
func FilterSubjects(records []model.Record, subjects []string) []model.Record {
	if len(subjects) == 0 {
		return records
	}
	keep := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		keep[s] = struct{}{}
	}
	filtered := make([]model.Record, 0, len(records))
	for _, r := range records {
		if _, ok := keep[r.SubjectID]; ok {
			filtered = append(filtered, r)
		}
	}
	return filtered
}

// ExtractPaths groups records by subject and returns, for every selected
// subject that has a record for each selected visit, its points in the order
// of visits. When a subject has several records for one visit the last one
// wins. Paths are sorted by subject ID.
//
// If no subject qualifies the returned error wraps model.ErrNoQualifyingSubjects.
func ExtractPaths(records []model.Record, visits []string, subjects []string) (*Extraction, error) {
	if err := ValidateVisits(visits); err != nil {
		return nil, err
	}

	groups := make(map[string]map[string]model.Point)
	for _, r := range FilterSubjects(records, subjects) {
		byVisit, ok := groups[r.SubjectID]
		if !ok {
			byVisit = make(map[string]model.Point)
			groups[r.SubjectID] = byVisit
		}
		byVisit[r.Visit] = model.Point{X: r.PC1, Y: r.PC2}
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	result := &Extraction{Examined: len(ids)}
	for _, id := range ids {
		byVisit := groups[id]
		points := make([]model.Point, 0, len(visits))
		var missing []string
		for _, v := range visits {
			p, ok := byVisit[v]
			if !ok {
				missing = append(missing, v)
				continue
			}
			points = append(points, p)
		}

		if len(missing) > 0 {
			result.Excluded = append(result.Excluded, model.ExcludedSubject{SubjectID: id, MissingVisits: missing})
			util.LogDebugf("Subject %s excluded, missing visits: %s", id, strings.Join(missing, ", "))
			continue
		}
		result.Paths = append(result.Paths, model.SubjectPath{SubjectID: id, Points: points})
	}

	if len(result.Paths) == 0 {
		return result, fmt.Errorf("%w: none of %d subjects has records for all of [%s]",
			model.ErrNoQualifyingSubjects, result.Examined, strings.Join(visits, ", "))
	}

	util.LogInfof("Qualifying subjects: %d of %d", len(result.Paths), result.Examined)
	return result, nil
}
