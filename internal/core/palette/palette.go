// Package palette resolves user color specifications and blends colors for
// segment gradients.
package palette

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"

	"github.com/penwyp/tracevis/internal/core/model"
)

// DefaultCycle is the color assigned to the i-th selected visit when the user
// does not choose one.
var DefaultCycle = []string{"blue", "green", "orange", "red", "purple"}

// Parse converts a CSS4 color name or a #rgb / #rrggbb hex string to a color.
func Parse(spec string) (color.NRGBA, error) {
	s := strings.ToLower(strings.TrimSpace(spec))
	if s == "" {
		return color.NRGBA{}, fmt.Errorf("%w: empty color", model.ErrInvalidConfig)
	}

	if strings.HasPrefix(s, "#") {
		c, err := colorful.Hex(s)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("%w: invalid hex color %q: %v", model.ErrInvalidConfig, spec, err)
		}
		return toNRGBA(c), nil
	}

	if named, ok := colornames.Map[s]; ok {
		return color.NRGBA{R: named.R, G: named.G, B: named.B, A: 255}, nil
	}
	return color.NRGBA{}, fmt.Errorf("%w: unknown color name %q", model.ErrInvalidConfig, spec)
}

// Assign maps every visit to a color. Visits missing from overrides get the
// default cycle entry for their position.
func Assign(visits []string, overrides map[string]string) (map[string]color.NRGBA, error) {
	colors := make(map[string]color.NRGBA, len(visits))
	for i, visit := range visits {
		spec, ok := overrides[visit]
		if !ok || spec == "" {
			spec = DefaultCycle[i%len(DefaultCycle)]
		}
		c, err := Parse(spec)
		if err != nil {
			return nil, fmt.Errorf("color for visit %q: %w", visit, err)
		}
		colors[visit] = c
	}

	for visit := range overrides {
		if _, ok := colors[visit]; !ok {
			return nil, fmt.Errorf("%w: color given for unselected visit %q", model.ErrInvalidConfig, visit)
		}
	}
	return colors, nil
}

// Blend interpolates linearly in RGB between from (t=0) and to (t=1).
func Blend(from, to color.NRGBA, t float64) color.NRGBA {
	if t <= 0 {
		return from
	}
	if t >= 1 {
		return to
	}
	c := fromNRGBA(from).BlendRgb(fromNRGBA(to), t)
	out := toNRGBA(c)
	out.A = uint8(float64(from.A) + (float64(to.A)-float64(from.A))*t + 0.5)
	return out
}

// Hex formats a color as #rrggbb.
func Hex(c color.NRGBA) string {
	return fromNRGBA(c).Hex()
}

// WithAlpha returns c with its alpha replaced by a in [0,1].
func WithAlpha(c color.NRGBA, a float64) color.NRGBA {
	if a < 0 {
		a = 0
	}
	if a > 1 {
		a = 1
	}
	c.A = uint8(a*255 + 0.5)
	return c
}

func fromNRGBA(c color.NRGBA) colorful.Color {
	return colorful.Color{
		R: float64(c.R) / 255,
		G: float64(c.G) / 255,
		B: float64(c.B) / 255,
	}
}

func toNRGBA(c colorful.Color) color.NRGBA {
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: 255}
}
