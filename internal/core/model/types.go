package model

import "image/color"

// Record is one row of the ordination table after column mapping.
type Record struct {
	SubjectID string
	Visit     string
	PC1       float64
	PC2       float64
}

// Point is a position in ordination space.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// SubjectPath holds a subject's points, one per selected visit, in selection order.
type SubjectPath struct {
	SubjectID string  `json:"subject_id"`
	Points    []Point `json:"points"`
}

// ExcludedSubject records why a subject has no path.
type ExcludedSubject struct {
	SubjectID     string   `json:"subject_id"`
	MissingVisits []string `json:"missing_visits"`
}

// Sample is one interpolated step of a trajectory.
type Sample struct {
	Position Point
	Color    color.NRGBA
}

// Trajectory is a subject's flattened interpolated path across all segments.
type Trajectory struct {
	SubjectID string
	Samples   []Sample
}

// Bounds are the fixed axis limits of an animation.
type Bounds struct {
	MinX float64 `json:"min_x"`
	MaxX float64 `json:"max_x"`
	MinY float64 `json:"min_y"`
	MaxY float64 `json:"max_y"`
}

// Width returns the horizontal extent.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// AxisPadding is added around the data extent on both axes.
const AxisPadding = 0.1

// ComputeBounds returns the padded extent of the records.
// The second return value is false when records is empty.
func ComputeBounds(records []Record) (Bounds, bool) {
	if len(records) == 0 {
		return Bounds{}, false
	}
	b := Bounds{
		MinX: records[0].PC1, MaxX: records[0].PC1,
		MinY: records[0].PC2, MaxY: records[0].PC2,
	}
	for _, r := range records[1:] {
		if r.PC1 < b.MinX {
			b.MinX = r.PC1
		}
		if r.PC1 > b.MaxX {
			b.MaxX = r.PC1
		}
		if r.PC2 < b.MinY {
			b.MinY = r.PC2
		}
		if r.PC2 > b.MaxY {
			b.MaxY = r.PC2
		}
	}
	b.MinX -= AxisPadding
	b.MaxX += AxisPadding
	b.MinY -= AxisPadding
	b.MaxY += AxisPadding
	return b, true
}

// FileEvent is emitted when a watched input file changes.
type FileEvent struct {
	Path      string
	Operation string
}
