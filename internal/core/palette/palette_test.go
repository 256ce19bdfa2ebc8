package palette

import (
	"errors"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/tracevis/internal/core/model"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		want    color.NRGBA
		wantErr bool
	}{
		{name: "css name", spec: "blue", want: color.NRGBA{R: 0, G: 0, B: 255, A: 255}},
		{name: "css name mixed case", spec: " Orange ", want: color.NRGBA{R: 255, G: 165, B: 0, A: 255}},
		{name: "css green", spec: "green", want: color.NRGBA{R: 0, G: 128, B: 0, A: 255}},
		{name: "long hex", spec: "#ff0000", want: color.NRGBA{R: 255, G: 0, B: 0, A: 255}},
		{name: "short hex", spec: "#0f0", want: color.NRGBA{R: 0, G: 255, B: 0, A: 255}},
		{name: "unknown name", spec: "blurple", wantErr: true},
		{name: "bad hex", spec: "#zzzzzz", wantErr: true},
		{name: "empty", spec: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.spec)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, model.ErrInvalidConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAssignUsesDefaultCycle(t *testing.T) {
	visits := []string{"V1", "V2", "V3", "V4", "V5", "V6"}

	colors, err := Assign(visits, nil)

	require.NoError(t, err)
	require.Len(t, colors, 6)
	blue, _ := Parse("blue")
	purple, _ := Parse("purple")
	assert.Equal(t, blue, colors["V1"])
	assert.Equal(t, purple, colors["V5"])
	assert.Equal(t, blue, colors["V6"], "cycle wraps around")
}

func TestAssignOverrides(t *testing.T) {
	colors, err := Assign([]string{"Baseline", "Week4"}, map[string]string{"Week4": "#123456"})

	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{R: 0x12, G: 0x34, B: 0x56, A: 255}, colors["Week4"])
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, colors["Baseline"])
}

func TestAssignRejectsUnselectedVisit(t *testing.T) {
	_, err := Assign([]string{"V1", "V2"}, map[string]string{"V9": "red"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
}

func TestBlend(t *testing.T) {
	black := color.NRGBA{A: 255}
	white := color.NRGBA{R: 255, G: 255, B: 255, A: 255}

	assert.Equal(t, black, Blend(black, white, 0))
	assert.Equal(t, white, Blend(black, white, 1))
	assert.Equal(t, white, Blend(black, white, 1.5))

	mid := Blend(black, white, 0.5)
	assert.InDelta(t, 128, int(mid.R), 1)
	assert.Equal(t, mid.R, mid.G)
	assert.Equal(t, mid.G, mid.B)
	assert.Equal(t, uint8(255), mid.A)
}

func TestWithAlpha(t *testing.T) {
	c := WithAlpha(color.NRGBA{R: 10, A: 255}, 0.4)
	assert.Equal(t, uint8(102), c.A)
	assert.Equal(t, uint8(10), c.R)
	assert.Equal(t, uint8(0), WithAlpha(c, -1).A)
}

func TestHex(t *testing.T) {
	assert.Equal(t, "#ff8000", Hex(color.NRGBA{R: 255, G: 128, B: 0, A: 255}))
}
