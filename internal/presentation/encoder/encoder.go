// Package encoder turns a stream of rendered frames into a media artifact.
package encoder

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/penwyp/tracevis/internal/core/model"
)

// Output formats.
const (
	FormatGIF    = "gif"
	FormatMP4    = "mp4"
	FormatFrames = "frames"
)

// Default playback rates.
const (
	DefaultGIFFPS   = 10
	DefaultVideoFPS = 15
)

// Encoder writes frames, in order, to an artifact at a path. Nothing is left at
// the path unless Close succeeds.
type Encoder interface {
	// Name identifies the backend in logs and reports.
	Name() string
	// Open prepares the artifact. It fails with model.ErrEncoderUnavailable when
	// the backend cannot run at all.
	Open(path string) error
	// WriteFrame appends one frame.
	WriteFrame(img *image.RGBA) error
	// Close finalizes the artifact and moves it into place.
	Close() error
	// Abort discards everything written so far.
	Abort()
}

// Options configure an encoder.
type Options struct {
	// FPS overrides the backend's default frame rate when > 0.
	FPS int
	// FFmpegPath is the ffmpeg binary for the mp4 backend; empty means
	// $FFMPEG_PATH, then $PATH.
	FFmpegPath string
}

// New returns the encoder for format.
func New(format string, opts Options) (Encoder, error) {
	switch strings.ToLower(format) {
	case FormatGIF:
		return NewGIFEncoder(fpsOr(opts.FPS, DefaultGIFFPS)), nil
	case FormatMP4:
		return NewVideoEncoder(opts.FFmpegPath, fpsOr(opts.FPS, DefaultVideoFPS)), nil
	case FormatFrames:
		return NewFramesEncoder(), nil
	default:
		return nil, fmt.Errorf("%w: unsupported output format %q (gif, mp4, frames)", model.ErrInvalidConfig, format)
	}
}

// DefaultOutput returns the artifact name used when no output path is given.
func DefaultOutput(format string) string {
	switch strings.ToLower(format) {
	case FormatMP4:
		return "pcoa_animation_custom.mp4"
	case FormatFrames:
		return "pcoa_animation_frames"
	default:
		return "pcoa_animation_custom.gif"
	}
}

// EffectiveFPS returns the playback rate the format's encoder uses for an
// override of fps. Frame sequences have no rate and report 0.
func EffectiveFPS(format string, fps int) int {
	switch strings.ToLower(format) {
	case FormatGIF:
		return fpsOr(fps, DefaultGIFFPS)
	case FormatMP4:
		return fpsOr(fps, DefaultVideoFPS)
	default:
		return 0
	}
}

func fpsOr(fps, def int) int {
	if fps > 0 {
		return fps
	}
	return def
}

// stagedFile is a temporary file next to the final path, renamed into place on
// commit.
type stagedFile struct {
	final string
	file  *os.File
}

func stageFile(final string) (*stagedFile, error) {
	dir := filepath.Dir(final)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: create output directory: %v", model.ErrEncode, err)
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(final)+".tmp-*")
	if err != nil {
		return nil, fmt.Errorf("%w: create temporary output: %v", model.ErrEncode, err)
	}
	return &stagedFile{final: final, file: f}, nil
}

func (s *stagedFile) commit() error {
	if err := s.file.Close(); err != nil {
		s.discard()
		return fmt.Errorf("%w: close output: %v", model.ErrEncode, err)
	}
	if err := os.Rename(s.file.Name(), s.final); err != nil {
		s.discard()
		return fmt.Errorf("%w: move output into place: %v", model.ErrEncode, err)
	}
	return nil
}

func (s *stagedFile) discard() {
	_ = s.file.Close()
	_ = os.Remove(s.file.Name())
}
