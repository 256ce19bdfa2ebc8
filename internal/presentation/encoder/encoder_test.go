package encoder

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/penwyp/tracevis/internal/core/model"
)

func solidFrame(c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 32, 24))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func TestNew(t *testing.T) {
	tests := []struct {
		format   string
		wantName string
		wantErr  bool
	}{
		{format: "gif", wantName: FormatGIF},
		{format: "GIF", wantName: FormatGIF},
		{format: "mp4", wantName: FormatMP4},
		{format: "frames", wantName: FormatFrames},
		{format: "avi", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			enc, err := New(tt.format, Options{})
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, model.ErrInvalidConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, enc.Name())
		})
	}
}

func TestNewAppliesDefaultFPS(t *testing.T) {
	enc, err := New(FormatGIF, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultGIFFPS, enc.(*GIFEncoder).fps)

	enc, err = New(FormatMP4, Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultVideoFPS, enc.(*VideoEncoder).fps)

	enc, err = New(FormatGIF, Options{FPS: 25})
	require.NoError(t, err)
	assert.Equal(t, 25, enc.(*GIFEncoder).fps)
}

func TestDefaultOutput(t *testing.T) {
	assert.Equal(t, "pcoa_animation_custom.gif", DefaultOutput("gif"))
	assert.Equal(t, "pcoa_animation_custom.mp4", DefaultOutput("mp4"))
	assert.Equal(t, "pcoa_animation_frames", DefaultOutput("frames"))
}

func TestGIFEncoderRoundTrip(t *testing.T) {
	out := filepath.Join(t.TempDir(), "anim.gif")
	enc := NewGIFEncoder(DefaultGIFFPS)

	require.NoError(t, enc.Open(out))
	for i := 0; i < 10; i++ {
		require.NoError(t, enc.WriteFrame(solidFrame(color.RGBA{R: uint8(20 * i), A: 255})))
	}
	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "nothing at the output path before Close")

	require.NoError(t, enc.Close())

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	decoded, err := gif.DecodeAll(f)
	require.NoError(t, err)
	assert.Len(t, decoded.Image, 10)
	assert.Equal(t, 10, decoded.Delay[0], "10 fps is a 10/100 s delay")
	assert.Equal(t, 0, decoded.LoopCount)

	entries, err := os.ReadDir(filepath.Dir(out))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temporary files left behind")
}

func TestGIFEncoderAbortLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "anim.gif")
	enc := NewGIFEncoder(DefaultGIFFPS)

	require.NoError(t, enc.Open(out))
	require.NoError(t, enc.WriteFrame(solidFrame(color.White)))
	enc.Abort()

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGIFEncoderNoFrames(t *testing.T) {
	dir := t.TempDir()
	enc := NewGIFEncoder(DefaultGIFFPS)
	require.NoError(t, enc.Open(filepath.Join(dir, "anim.gif")))

	err := enc.Close()
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEncode))
}

func TestCheckGIFBudget(t *testing.T) {
	assert.NoError(t, CheckGIFBudget(300, 800, 600))
	assert.NoError(t, CheckGIFBudget(0, 800, 600))

	err := CheckGIFBudget(2000, 800, 600)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrInvalidConfig))
	assert.Contains(t, err.Error(), "2000 frames at 800x600")
}

func TestGIFDelay(t *testing.T) {
	assert.Equal(t, 10, NewGIFEncoder(10).Delay())
	assert.Equal(t, 6, NewGIFEncoder(15).Delay())
	assert.Equal(t, 1, NewGIFEncoder(500).Delay())
}

func TestWriteBeforeOpen(t *testing.T) {
	for _, enc := range []Encoder{NewGIFEncoder(10), NewVideoEncoder("", 15), NewFramesEncoder()} {
		err := enc.WriteFrame(solidFrame(color.White))
		require.Error(t, err, enc.Name())
		assert.True(t, errors.Is(err, model.ErrEncode), enc.Name())
	}
}

func TestResolveFFmpegMissing(t *testing.T) {
	t.Setenv(FFmpegEnv, "")
	t.Setenv("PATH", t.TempDir())

	_, err := ResolveFFmpeg("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEncoderUnavailable))
}

func TestResolveFFmpegNotExecutable(t *testing.T) {
	fake := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(fake, []byte("not a binary"), 0644))

	_, err := ResolveFFmpeg(fake)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEncoderUnavailable))
}

func TestResolveFFmpegFromEnv(t *testing.T) {
	fake := filepath.Join(t.TempDir(), "ffmpeg")
	require.NoError(t, os.WriteFile(fake, []byte("#!/bin/sh\nexit 0\n"), 0755))
	t.Setenv(FFmpegEnv, fake)

	got, err := ResolveFFmpeg("")
	require.NoError(t, err)
	assert.Equal(t, fake, got)
}

func TestVideoEncoderUnavailable(t *testing.T) {
	dir := t.TempDir()
	enc := NewVideoEncoder(filepath.Join(dir, "no-such-ffmpeg"), DefaultVideoFPS)

	err := enc.Open(filepath.Join(dir, "out.mp4"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEncoderUnavailable))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestVideoEncoderArgs(t *testing.T) {
	args := NewVideoEncoder("", 15).Args("out.mp4")
	assert.Contains(t, args, "image2pipe")
	assert.Contains(t, args, "15")
	assert.Contains(t, args, "libx264")
	assert.Equal(t, "out.mp4", args[len(args)-1])
}

func TestFramesEncoder(t *testing.T) {
	out := filepath.Join(t.TempDir(), "frames")
	enc := NewFramesEncoder()

	require.NoError(t, enc.Open(out))
	for i := 0; i < 4; i++ {
		require.NoError(t, enc.WriteFrame(solidFrame(color.Black)))
	}
	require.NoError(t, enc.Close())

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "frame_000000.png", entries[0].Name())
	assert.Equal(t, "frame_000003.png", entries[3].Name())

	// A second run replaces the previous frames.
	enc = NewFramesEncoder()
	require.NoError(t, enc.Open(out))
	require.NoError(t, enc.WriteFrame(solidFrame(color.Black)))
	require.NoError(t, enc.Close())
	entries, err = os.ReadDir(out)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFramesEncoderRefusesForeignDirectory(t *testing.T) {
	out := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(out, "notes.txt"), []byte("keep"), 0644))

	err := NewFramesEncoder().Open(out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrEncode))
	_, statErr := os.Stat(filepath.Join(out, "notes.txt"))
	assert.NoError(t, statErr)
}
