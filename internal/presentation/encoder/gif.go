package encoder

import (
	"fmt"
	"image"
	stdpalette "image/color/palette"
	"image/draw"
	"image/gif"

	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/util"
)

// MaxGIFPixels caps the pixels a GIF buffers before Close. Each paletted
// frame holds one byte per pixel, so an 800x600 frame costs about 480 KB and
// the cap allows roughly 1100 such frames.
const MaxGIFPixels = 512 << 20

// CheckGIFBudget fails when frames of width x height would not fit in
// MaxGIFPixels.
func CheckGIFBudget(frames, width, height int) error {
	pixels := int64(frames) * int64(width) * int64(height)
	if pixels > MaxGIFPixels {
		return fmt.Errorf("%w: gif output buffers every frame in memory; %d frames at %dx%d need %s, limit is %s (use fewer frames, a smaller canvas, or --format mp4/frames)",
			model.ErrInvalidConfig, frames, width, height, util.FormatBytes(pixels), util.FormatBytes(MaxGIFPixels))
	}
	return nil
}

// GIFEncoder buffers palette-quantized frames and writes a looping GIF on Close.
type GIFEncoder struct {
	fps    int
	staged *stagedFile
	anim   *gif.GIF
}

// NewGIFEncoder creates a GIF encoder playing at fps frames per second.
func NewGIFEncoder(fps int) *GIFEncoder {
	return &GIFEncoder{fps: fps}
}

func (e *GIFEncoder) Name() string { return FormatGIF }

// Delay returns the per-frame delay in hundredths of a second.
func (e *GIFEncoder) Delay() int {
	d := 100 / e.fps
	if d < 1 {
		d = 1
	}
	return d
}

func (e *GIFEncoder) Open(path string) error {
	staged, err := stageFile(path)
	if err != nil {
		return err
	}
	e.staged = staged
	e.anim = &gif.GIF{LoopCount: 0}
	util.LogDebugf("GIF encoder opened: %s (fps %d, delay %d)", path, e.fps, e.Delay())
	return nil
}

func (e *GIFEncoder) WriteFrame(img *image.RGBA) error {
	if e.anim == nil {
		return fmt.Errorf("%w: gif encoder not opened", model.ErrEncode)
	}
	paletted := image.NewPaletted(img.Bounds(), stdpalette.Plan9)
	draw.FloydSteinberg.Draw(paletted, img.Bounds(), img, image.Point{})
	e.anim.Image = append(e.anim.Image, paletted)
	e.anim.Delay = append(e.anim.Delay, e.Delay())
	return nil
}

func (e *GIFEncoder) Close() error {
	if e.anim == nil {
		return fmt.Errorf("%w: gif encoder not opened", model.ErrEncode)
	}
	if len(e.anim.Image) == 0 {
		e.Abort()
		return fmt.Errorf("%w: no frames to encode", model.ErrEncode)
	}
	if err := gif.EncodeAll(e.staged.file, e.anim); err != nil {
		e.Abort()
		return fmt.Errorf("%w: gif: %v", model.ErrEncode, err)
	}
	frames := len(e.anim.Image)
	e.anim = nil
	if err := e.staged.commit(); err != nil {
		return err
	}
	util.LogInfof("GIF written: %s (%d frames)", e.staged.final, frames)
	return nil
}

func (e *GIFEncoder) Abort() {
	if e.staged != nil {
		e.staged.discard()
	}
	e.anim = nil
}
