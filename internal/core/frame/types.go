package frame

import (
	"image/color"

	"github.com/penwyp/tracevis/internal/core/model"
)

// Presentation constants shared with the canvas.
const (
	LabelAlpha  = 0.85
	ArrowAlpha  = 0.4
	TitlePrefix = "PCoA Transition Animation"
)

// Arrow is the step a subject took from the previous frame to this one.
type Arrow struct {
	From  model.Point
	To    model.Point
	Color color.NRGBA
	Alpha float64
}

// Label is the subject's text tag drawn at its marker.
type Label struct {
	Text     string
	Position model.Point
	Alpha    float64
}

// Marker is the render instruction for one subject in one frame.
type Marker struct {
	SubjectID string
	Visible   bool
	Position  model.Point
	Color     color.NRGBA
	Label     Label
	// Arrow is nil when there is no previous position to draw from.
	Arrow *Arrow
}

// Frame is the full set of render instructions for one animation step.
type Frame struct {
	// Index is the global frame index, or -1 for the initial blank frame.
	Index   int
	Segment int
	From    string
	To      string
	Title   string
	Markers []Marker
}

// Arrows counts markers carrying an arrow.
func (f Frame) Arrows() int {
	n := 0
	for _, m := range f.Markers {
		if m.Arrow != nil {
			n++
		}
	}
	return n
}

// VisibleMarkers counts markers drawn in this frame.
func (f Frame) VisibleMarkers() int {
	n := 0
	for _, m := range f.Markers {
		if m.Visible {
			n++
		}
	}
	return n
}
