package encoder

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/util"
)

// FramesEncoder writes every frame as frame_NNNNNN.png into a directory.
type FramesEncoder struct {
	final  string
	tmpDir string
	frames int
}

// NewFramesEncoder creates a PNG sequence encoder.
func NewFramesEncoder() *FramesEncoder {
	return &FramesEncoder{}
}

func (e *FramesEncoder) Name() string { return FormatFrames }

// FrameName returns the file name of frame seq.
func FrameName(seq int) string {
	return fmt.Sprintf("frame_%06d.png", seq)
}

func (e *FramesEncoder) Open(path string) error {
	if err := checkReplaceableDir(path); err != nil {
		return err
	}
	parent := filepath.Dir(path)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return fmt.Errorf("%w: create output directory: %v", model.ErrEncode, err)
	}
	tmp, err := os.MkdirTemp(parent, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temporary directory: %v", model.ErrEncode, err)
	}
	e.final = path
	e.tmpDir = tmp
	e.frames = 0
	return nil
}

func (e *FramesEncoder) WriteFrame(img *image.RGBA) error {
	if e.tmpDir == "" {
		return fmt.Errorf("%w: frames encoder not opened", model.ErrEncode)
	}
	f, err := os.Create(filepath.Join(e.tmpDir, FrameName(e.frames)))
	if err != nil {
		return fmt.Errorf("%w: create frame %d: %v", model.ErrEncode, e.frames, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("%w: encode frame %d: %v", model.ErrEncode, e.frames, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("%w: write frame %d: %v", model.ErrEncode, e.frames, err)
	}
	e.frames++
	return nil
}

func (e *FramesEncoder) Close() error {
	if e.tmpDir == "" {
		return fmt.Errorf("%w: frames encoder not opened", model.ErrEncode)
	}
	if e.frames == 0 {
		e.Abort()
		return fmt.Errorf("%w: no frames to encode", model.ErrEncode)
	}
	if err := checkReplaceableDir(e.final); err != nil {
		e.Abort()
		return err
	}
	if err := os.RemoveAll(e.final); err != nil {
		e.Abort()
		return fmt.Errorf("%w: replace previous frames: %v", model.ErrEncode, err)
	}
	if err := os.Rename(e.tmpDir, e.final); err != nil {
		e.Abort()
		return fmt.Errorf("%w: move frames into place: %v", model.ErrEncode, err)
	}
	util.LogInfof("Frames written: %s (%d files)", e.final, e.frames)
	e.tmpDir = ""
	return nil
}

func (e *FramesEncoder) Abort() {
	if e.tmpDir != "" {
		_ = os.RemoveAll(e.tmpDir)
		e.tmpDir = ""
	}
}

// checkReplaceableDir allows path to be absent, or a directory holding only
// frame_*.png files from an earlier run.
func checkReplaceableDir(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrEncode, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s exists and is not a directory", model.ErrEncode, path)
	}
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrEncode, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "frame_") || filepath.Ext(name) != ".png" {
			return fmt.Errorf("%w: %s contains %s; refusing to replace it", model.ErrEncode, path, name)
		}
	}
	return nil
}
