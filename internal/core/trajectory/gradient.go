package trajectory

import (
	"fmt"
	"image/color"

	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/core/palette"
)

// SegmentKey identifies the span between two consecutive selected visits.
type SegmentKey struct {
	From string
	To   string
}

// Gradients holds one color ramp per segment. Built once per run and shared
// read-only by every subject.
type Gradients struct {
	framesPerSegment int
	keys             []SegmentKey
	ramps            map[SegmentKey][]color.NRGBA
}

// BuildGradients samples framesPerSegment colors between the colors of each
// pair of consecutive visits, inclusive of both ends.
func BuildGradients(visits []string, colors map[string]color.NRGBA, framesPerSegment int) (*Gradients, error) {
	if err := ValidateVisits(visits); err != nil {
		return nil, err
	}
	if framesPerSegment < 1 {
		return nil, fmt.Errorf("%w: frames per segment must be >= 1, got %d", model.ErrInvalidConfig, framesPerSegment)
	}

	g := &Gradients{
		framesPerSegment: framesPerSegment,
		keys:             make([]SegmentKey, 0, len(visits)-1),
		ramps:            make(map[SegmentKey][]color.NRGBA, len(visits)-1),
	}
	for i := 0; i < len(visits)-1; i++ {
		from, ok := colors[visits[i]]
		if !ok {
			return nil, fmt.Errorf("%w: no color for visit %q", model.ErrInvalidConfig, visits[i])
		}
		to, ok := colors[visits[i+1]]
		if !ok {
			return nil, fmt.Errorf("%w: no color for visit %q", model.ErrInvalidConfig, visits[i+1])
		}

		key := SegmentKey{From: visits[i], To: visits[i+1]}
		g.keys = append(g.keys, key)
		g.ramps[key] = Ramp(from, to, framesPerSegment)
	}
	return g, nil
}

// Ramp returns n colors evenly spaced from "from" to "to" in RGB.
// With n == 1 the single entry is "from".
func Ramp(from, to color.NRGBA, n int) []color.NRGBA {
	ramp := make([]color.NRGBA, n)
	for j := range ramp {
		t := 0.0
		if n > 1 {
			t = float64(j) / float64(n-1)
		}
		ramp[j] = palette.Blend(from, to, t)
	}
	return ramp
}

// Segments returns the number of segments.
func (g *Gradients) Segments() int { return len(g.keys) }

// Key returns the visit pair of segment k.
func (g *Gradients) Key(k int) SegmentKey { return g.keys[k] }

// Segment returns the color ramp of segment k. Callers must not modify it.
func (g *Gradients) Segment(k int) []color.NRGBA { return g.ramps[g.keys[k]] }
