// Package frame maps global frame indexes onto interpolated trajectories and
// produces per-frame render instructions.
package frame

import (
	"fmt"

	"github.com/penwyp/tracevis/internal/core/trajectory"
)

// SegmentIndex resolves a global frame index to its segment, clamped to
// [0, segments-1] so the last frame never overflows.
func SegmentIndex(index, framesPerSegment, segments int) int {
	if framesPerSegment < 1 || segments < 1 {
		return 0
	}
	k := index / framesPerSegment
	if k < 0 {
		return 0
	}
	if k > segments-1 {
		return segments - 1
	}
	return k
}

// Composer builds frames from a plan. It keeps no render history: the previous
// position of a subject is read from its trajectory, so any frame can be
// composed independently of the others.
type Composer struct {
	plan *trajectory.Plan
}

// NewComposer creates a composer for plan.
func NewComposer(plan *trajectory.Plan) *Composer {
	return &Composer{plan: plan}
}

// TotalFrames returns the number of frames in the animation.
func (c *Composer) TotalFrames() int { return c.plan.TotalFrames() }

// Init returns the blank frame shown before the first step: every marker
// hidden, no arrows, no labels.
func (c *Composer) Init() Frame {
	markers := make([]Marker, len(c.plan.Trajectories))
	for i, tr := range c.plan.Trajectories {
		markers[i] = Marker{SubjectID: tr.SubjectID}
	}
	return Frame{
		Index:   -1,
		From:    c.plan.Visits[0],
		To:      c.plan.Visits[1],
		Title:   title(c.plan.Visits[0], c.plan.Visits[1]),
		Markers: markers,
	}
}

// Compose returns the render instructions for global frame index.
func (c *Composer) Compose(index int) (Frame, error) {
	total := c.TotalFrames()
	if index < 0 || index >= total {
		return Frame{}, fmt.Errorf("frame index %d out of range [0, %d)", index, total)
	}

	segment := SegmentIndex(index, c.plan.FramesPerSegment, c.plan.Segments())
	from, to := c.plan.Visits[segment], c.plan.Visits[segment+1]

	f := Frame{
		Index:   index,
		Segment: segment,
		From:    from,
		To:      to,
		Title:   title(from, to),
		Markers: make([]Marker, 0, len(c.plan.Trajectories)),
	}

	for _, tr := range c.plan.Trajectories {
		if index >= len(tr.Samples) {
			continue
		}
		cur := tr.Samples[index]
		m := Marker{
			SubjectID: tr.SubjectID,
			Visible:   true,
			Position:  cur.Position,
			Color:     cur.Color,
			Label: Label{
				Text:     tr.SubjectID,
				Position: cur.Position,
				Alpha:    LabelAlpha,
			},
		}
		if index > 0 {
			prev := tr.Samples[index-1]
			m.Arrow = &Arrow{
				From:  prev.Position,
				To:    cur.Position,
				Color: cur.Color,
				Alpha: ArrowAlpha,
			}
		}
		f.Markers = append(f.Markers, m)
	}
	return f, nil
}

func title(from, to string) string {
	return fmt.Sprintf("%s (%s -> %s)", TitlePrefix, from, to)
}
