// Package canvas rasterizes composed frames into images.
package canvas

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/penwyp/tracevis/internal/core/frame"
	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/core/palette"
)

// Default geometry matches an 8x6 inch figure at 100 dpi.
const (
	DefaultWidth  = 800
	DefaultHeight = 600

	tickCount = 5
	// arrowHead is the head width and length in data units.
	arrowHead = 0.01
	// minHeadPixels keeps arrow heads visible on wide axes.
	minHeadPixels = 3.0
)

// Options control canvas geometry.
type Options struct {
	Width        int
	Height       int
	MarkerRadius float64
	ArrowWidth   float64
}

// DefaultOptions returns the standard 800x600 layout.
func DefaultOptions() Options {
	return Options{
		Width:        DefaultWidth,
		Height:       DefaultHeight,
		MarkerRadius: 4.4,
		ArrowWidth:   1.0,
	}
}

var (
	background = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	ink        = color.RGBA{R: 0, G: 0, B: 0, A: 255}
)

// Canvas draws frames onto fixed axes. It is read-only after construction and
// safe for concurrent Render calls.
type Canvas struct {
	opts   Options
	bounds model.Bounds
	plot   image.Rectangle
	face   font.Face
}

// New creates a canvas for bounds. Zero option fields take their defaults.
func New(bounds model.Bounds, opts Options) (*Canvas, error) {
	def := DefaultOptions()
	if opts.Width == 0 {
		opts.Width = def.Width
	}
	if opts.Height == 0 {
		opts.Height = def.Height
	}
	if opts.MarkerRadius == 0 {
		opts.MarkerRadius = def.MarkerRadius * float64(opts.Width) / DefaultWidth
	}
	if opts.ArrowWidth == 0 {
		opts.ArrowWidth = def.ArrowWidth
	}
	if opts.Width < 200 || opts.Height < 150 {
		return nil, fmt.Errorf("%w: canvas %dx%d is smaller than 200x150", model.ErrInvalidConfig, opts.Width, opts.Height)
	}
	if bounds.Width() <= 0 || bounds.Height() <= 0 {
		return nil, fmt.Errorf("%w: empty axis bounds %+v", model.ErrInvalidConfig, bounds)
	}

	plot := image.Rect(70, 40, opts.Width-25, opts.Height-50)
	return &Canvas{
		opts:   opts,
		bounds: bounds,
		plot:   plot,
		face:   basicfont.Face7x13,
	}, nil
}

// Size returns the image dimensions.
func (c *Canvas) Size() (int, int) { return c.opts.Width, c.opts.Height }

// Project maps a data point to pixel coordinates.
func (c *Canvas) Project(p model.Point) (float64, float64) {
	px := float64(c.plot.Min.X) + (p.X-c.bounds.MinX)/c.bounds.Width()*float64(c.plot.Dx())
	py := float64(c.plot.Max.Y) - (p.Y-c.bounds.MinY)/c.bounds.Height()*float64(c.plot.Dy())
	return px, py
}

// Render draws the axes and every instruction of f onto a new image.
func (c *Canvas) Render(f frame.Frame) (*image.RGBA, error) {
	img := image.NewRGBA(image.Rect(0, 0, c.opts.Width, c.opts.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	gc, err := drawing.NewRasterGraphicContext(img)
	if err != nil {
		return nil, fmt.Errorf("create graphic context: %w", err)
	}

	c.drawAxes(img, gc)
	c.drawTitle(img, f.Title)

	for _, m := range f.Markers {
		if m.Arrow != nil {
			c.drawArrow(gc, *m.Arrow)
		}
	}
	for _, m := range f.Markers {
		if !m.Visible {
			continue
		}
		c.drawMarker(gc, m)
	}
	for _, m := range f.Markers {
		if !m.Visible || m.Label.Text == "" || m.Label.Alpha <= 0 {
			continue
		}
		c.drawLabel(img, m.Label)
	}
	return img, nil
}

func (c *Canvas) drawAxes(img *image.RGBA, gc *drawing.RasterGraphicContext) {
	left, top := float64(c.plot.Min.X), float64(c.plot.Min.Y)
	right, bottom := float64(c.plot.Max.X), float64(c.plot.Max.Y)

	gc.SetStrokeColor(toDrawing(color.NRGBA{A: 255}))
	gc.SetLineWidth(1)
	gc.BeginPath()
	gc.MoveTo(left, top)
	gc.LineTo(right, top)
	gc.LineTo(right, bottom)
	gc.LineTo(left, bottom)
	gc.Close()
	gc.Stroke()

	for i := 0; i < tickCount; i++ {
		t := float64(i) / float64(tickCount-1)

		x := left + t*(right-left)
		gc.BeginPath()
		gc.MoveTo(x, bottom)
		gc.LineTo(x, bottom+4)
		gc.Stroke()
		xv := c.bounds.MinX + t*c.bounds.Width()
		c.drawText(img, formatTick(xv), int(x)-c.textWidth(formatTick(xv))/2, int(bottom)+17, ink)

		y := bottom - t*(bottom-top)
		gc.BeginPath()
		gc.MoveTo(left-4, y)
		gc.LineTo(left, y)
		gc.Stroke()
		yv := c.bounds.MinY + t*c.bounds.Height()
		c.drawText(img, formatTick(yv), int(left)-8-c.textWidth(formatTick(yv)), int(y)+4, ink)
	}

	c.drawText(img, "PC1", c.plot.Min.X+c.plot.Dx()/2-c.textWidth("PC1")/2, c.opts.Height-12, ink)
	c.drawText(img, "PC2", 8, c.plot.Min.Y+c.plot.Dy()/2, ink)
}

func (c *Canvas) drawTitle(img *image.RGBA, title string) {
	if title == "" {
		return
	}
	x := c.opts.Width/2 - c.textWidth(title)/2
	c.drawText(img, title, x, c.plot.Min.Y-14, ink)
}

func (c *Canvas) drawMarker(gc *drawing.RasterGraphicContext, m frame.Marker) {
	x, y := c.Project(m.Position)
	gc.SetFillColor(toDrawing(m.Color))
	gc.BeginPath()
	gc.ArcTo(x, y, c.opts.MarkerRadius, c.opts.MarkerRadius, 0, 2*math.Pi)
	gc.Close()
	gc.Fill()
}

func (c *Canvas) drawArrow(gc *drawing.RasterGraphicContext, a frame.Arrow) {
	x0, y0 := c.Project(a.From)
	x1, y1 := c.Project(a.To)
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}

	col := toDrawing(palette.WithAlpha(a.Color, a.Alpha))
	gc.SetStrokeColor(col)
	gc.SetFillColor(col)
	gc.SetLineWidth(c.opts.ArrowWidth)
	gc.BeginPath()
	gc.MoveTo(x0, y0)
	gc.LineTo(x1, y1)
	gc.Stroke()

	head := arrowHead / c.bounds.Width() * float64(c.plot.Dx())
	if head < minHeadPixels {
		head = minHeadPixels
	}
	ux, uy := dx/length, dy/length
	bx, by := x1-ux*head, y1-uy*head
	gc.BeginPath()
	gc.MoveTo(x1, y1)
	gc.LineTo(bx-uy*head/2, by+ux*head/2)
	gc.LineTo(bx+uy*head/2, by-ux*head/2)
	gc.Close()
	gc.Fill()
}

func (c *Canvas) drawLabel(img *image.RGBA, l frame.Label) {
	x, y := c.Project(l.Position)
	col := palette.WithAlpha(color.NRGBA{A: 255}, l.Alpha)
	c.drawText(img, l.Text, int(x)+int(c.opts.MarkerRadius)+1, int(y)-int(c.opts.MarkerRadius)-1, col)
}

func (c *Canvas) drawText(img *image.RGBA, text string, x, y int, col color.Color) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(col),
		Face: c.face,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	d.DrawString(text)
}

func (c *Canvas) textWidth(text string) int {
	return font.MeasureString(c.face, text).Ceil()
}

func formatTick(v float64) string {
	if math.Abs(v) < 1e-9 {
		v = 0
	}
	return fmt.Sprintf("%.2f", v)
}

func toDrawing(c color.NRGBA) drawing.Color {
	return drawing.Color{R: c.R, G: c.G, B: c.B, A: c.A}
}
