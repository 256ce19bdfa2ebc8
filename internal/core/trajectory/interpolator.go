package trajectory

import (
	"fmt"
	"image/color"

	"github.com/penwyp/tracevis/internal/core/model"
)

// Linspace returns n evenly spaced values from start to end, both inclusive.
// With n == 1 it returns [start].
func Linspace(start, end float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (end - start) / float64(n-1)
	for i := range out {
		out[i] = start + step*float64(i)
	}
	out[n-1] = end
	return out
}

// Interpolator expands subject paths into per-frame samples.
type Interpolator struct {
	visits           []string
	framesPerSegment int
	gradients        *Gradients
}

// NewInterpolator builds the shared segment gradients for visits.
func NewInterpolator(visits []string, colors map[string]color.NRGBA, framesPerSegment int) (*Interpolator, error) {
	gradients, err := BuildGradients(visits, colors, framesPerSegment)
	if err != nil {
		return nil, err
	}
	return &Interpolator{
		visits:           append([]string(nil), visits...),
		framesPerSegment: framesPerSegment,
		gradients:        gradients,
	}, nil
}

// Gradients returns the shared segment gradients.
func (ip *Interpolator) Gradients() *Gradients { return ip.gradients }

// Interpolate returns the flattened trajectory of one subject: for each
// segment, framesPerSegment linearly spaced positions from the segment start
// to its end, each paired with the segment's gradient color at that step.
func (ip *Interpolator) Interpolate(path model.SubjectPath) (model.Trajectory, error) {
	if len(path.Points) != len(ip.visits) {
		return model.Trajectory{}, fmt.Errorf("subject %s has %d points, expected %d",
			path.SubjectID, len(path.Points), len(ip.visits))
	}

	n := ip.framesPerSegment
	samples := make([]model.Sample, 0, n*ip.gradients.Segments())
	for k := 0; k < ip.gradients.Segments(); k++ {
		p0, p1 := path.Points[k], path.Points[k+1]
		xs := Linspace(p0.X, p1.X, n)
		ys := Linspace(p0.Y, p1.Y, n)
		ramp := ip.gradients.Segment(k)
		for j := 0; j < n; j++ {
			samples = append(samples, model.Sample{
				Position: model.Point{X: xs[j], Y: ys[j]},
				Color:    ramp[j],
			})
		}
	}
	return model.Trajectory{SubjectID: path.SubjectID, Samples: samples}, nil
}

// Plan interpolates every path and bundles the result with the fixed axis bounds.
func (ip *Interpolator) Plan(paths []model.SubjectPath, bounds model.Bounds) (*Plan, error) {
	trajectories := make([]model.Trajectory, 0, len(paths))
	for _, p := range paths {
		tr, err := ip.Interpolate(p)
		if err != nil {
			return nil, err
		}
		trajectories = append(trajectories, tr)
	}
	return &Plan{
		Visits:           append([]string(nil), ip.visits...),
		FramesPerSegment: ip.framesPerSegment,
		Gradients:        ip.gradients,
		Trajectories:     trajectories,
		Bounds:           bounds,
	}, nil
}

// Plan is everything the frame composer needs for one animation.
type Plan struct {
	Visits           []string
	FramesPerSegment int
	Gradients        *Gradients
	Trajectories     []model.Trajectory
	Bounds           model.Bounds
}

// Segments returns the number of visit-to-visit segments.
func (p *Plan) Segments() int { return len(p.Visits) - 1 }

// TotalFrames returns segments x frames per segment.
func (p *Plan) TotalFrames() int { return p.Segments() * p.FramesPerSegment }
