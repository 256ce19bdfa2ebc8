// Package animation drives the frame loop from composition to encoding.
package animation

import (
	"context"
	"fmt"
	"image"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/penwyp/tracevis/internal/core/frame"
	"github.com/penwyp/tracevis/internal/util"
)

// Composer produces render instructions for frame indexes.
type Composer interface {
	TotalFrames() int
	Init() frame.Frame
	Compose(index int) (frame.Frame, error)
}

// Rasterizer turns render instructions into an image. Implementations must be
// safe for concurrent use when Workers > 1.
type Rasterizer interface {
	Render(f frame.Frame) (*image.RGBA, error)
}

// Encoder consumes images in frame order.
type Encoder interface {
	Name() string
	Open(path string) error
	WriteFrame(img *image.RGBA) error
	Close() error
	Abort()
}

// State is the driver's lifecycle stage.
type State int

const (
	StateUninitialized State = iota
	StateRendering
	StateDone
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateRendering:
		return "rendering"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// Options tune the frame loop.
type Options struct {
	// Workers bounds parallel rasterization. Values < 2 render inline.
	Workers int
	// Progress, when set, is called after each frame is encoded.
	Progress func(done, total int)
}

// Result summarizes a finished run.
type Result struct {
	Frames   int
	Encoder  string
	Output   string
	Elapsed  time.Duration
	Subjects int
}

// Driver runs one animation: Init once, then Compose for every frame index in
// increasing order, rasterize, and hand each image to the encoder.
type Driver struct {
	composer Composer
	raster   Rasterizer
	opts     Options

	state State
	next  int
}

// NewDriver creates a driver. A driver runs once.
func NewDriver(composer Composer, raster Rasterizer, opts Options) *Driver {
	return &Driver{composer: composer, raster: raster, opts: opts}
}

// State returns the lifecycle stage.
func (d *Driver) State() State { return d.state }

// Run renders every frame into enc at output. Any error aborts the encoder so
// no partial artifact is left at output.
func (d *Driver) Run(ctx context.Context, enc Encoder, output string) (*Result, error) {
	if d.state != StateUninitialized {
		return nil, fmt.Errorf("animation driver already %s", d.state)
	}
	start := time.Now()
	total := d.composer.TotalFrames()
	if total <= 0 {
		return nil, fmt.Errorf("animation has no frames")
	}

	if err := enc.Open(output); err != nil {
		d.state = StateDone
		return nil, err
	}

	initial := d.composer.Init()
	d.state = StateRendering
	util.LogDebugf("Animation initialized: %d subjects, %d frames, encoder %s", len(initial.Markers), total, enc.Name())

	if err := d.loop(ctx, enc, total); err != nil {
		enc.Abort()
		d.state = StateDone
		return nil, err
	}

	d.state = StateDone
	if err := enc.Close(); err != nil {
		return nil, err
	}

	return &Result{
		Frames:   total,
		Encoder:  enc.Name(),
		Output:   output,
		Elapsed:  time.Since(start),
		Subjects: len(initial.Markers),
	}, nil
}

func (d *Driver) loop(ctx context.Context, enc Encoder, total int) error {
	window := 1
	if d.opts.Workers > 1 {
		window = d.opts.Workers * 2
	}

	frames := make([]frame.Frame, 0, window)
	images := make([]*image.RGBA, window)
	for d.next < total {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("rendering cancelled at frame %d: %w", d.next, err)
		}

		frames = frames[:0]
		for len(frames) < window && d.next < total {
			f, err := d.composer.Compose(d.next)
			if err != nil {
				return fmt.Errorf("compose frame %d: %w", d.next, err)
			}
			frames = append(frames, f)
			d.next++
		}

		if err := d.rasterize(ctx, frames, images); err != nil {
			return err
		}

		for i, f := range frames {
			if err := enc.WriteFrame(images[i]); err != nil {
				return fmt.Errorf("encode frame %d: %w", f.Index, err)
			}
			images[i] = nil
			if d.opts.Progress != nil {
				d.opts.Progress(f.Index+1, total)
			}
		}
	}
	return nil
}

func (d *Driver) rasterize(ctx context.Context, frames []frame.Frame, images []*image.RGBA) error {
	if len(frames) == 1 || d.opts.Workers < 2 {
		for i, f := range frames {
			img, err := d.raster.Render(f)
			if err != nil {
				return fmt.Errorf("render frame %d: %w", f.Index, err)
			}
			images[i] = img
		}
		return nil
	}

	g, _ := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.Workers)
	for i, f := range frames {
		i, f := i, f
		g.Go(func() error {
			img, err := d.raster.Render(f)
			if err != nil {
				return fmt.Errorf("render frame %d: %w", f.Index, err)
			}
			images[i] = img
			return nil
		})
	}
	return g.Wait()
}
