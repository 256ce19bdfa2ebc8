package encoder

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/penwyp/tracevis/internal/core/model"
	"github.com/penwyp/tracevis/internal/util"
)

// FFmpegEnv names the environment variable consulted for the ffmpeg binary.
const FFmpegEnv = "FFMPEG_PATH"

// VideoEncoder pipes PNG frames into an ffmpeg subprocess producing H.264 MP4.
type VideoEncoder struct {
	binary string
	fps    int

	staged *stagedFile
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	buf    *bufio.Writer
	stderr bytes.Buffer
	png    *png.Encoder
	frames int
}

// NewVideoEncoder creates an mp4 encoder. An empty binary is resolved at Open.
func NewVideoEncoder(binary string, fps int) *VideoEncoder {
	return &VideoEncoder{
		binary: binary,
		fps:    fps,
		png:    &png.Encoder{CompressionLevel: png.BestSpeed},
	}
}

func (e *VideoEncoder) Name() string { return FormatMP4 }

// ResolveFFmpeg finds an executable ffmpeg: the explicit path, then
// $FFMPEG_PATH, then $PATH.
func ResolveFFmpeg(explicit string) (string, error) {
	candidates := []string{explicit, os.Getenv(FFmpegEnv)}
	for _, c := range candidates {
		if c == "" {
			continue
		}
		if err := unix.Access(c, unix.X_OK); err != nil {
			return "", fmt.Errorf("%w: ffmpeg at %s is not executable: %v", model.ErrEncoderUnavailable, c, err)
		}
		return c, nil
	}

	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return "", fmt.Errorf("%w: ffmpeg not found in PATH (set --ffmpeg or $%s)", model.ErrEncoderUnavailable, FFmpegEnv)
	}
	return path, nil
}

// Args returns the ffmpeg command line writing to output.
func (e *VideoEncoder) Args(output string) []string {
	return []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-f", "image2pipe",
		"-framerate", strconv.Itoa(e.fps),
		"-c:v", "png",
		"-i", "-",
		"-vf", "pad=ceil(iw/2)*2:ceil(ih/2)*2",
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p",
		"-f", "mp4",
		output,
	}
}

func (e *VideoEncoder) Open(path string) error {
	binary, err := ResolveFFmpeg(e.binary)
	if err != nil {
		return err
	}

	staged, err := stageFile(path)
	if err != nil {
		return err
	}
	// ffmpeg writes the staged path itself.
	_ = staged.file.Close()

	cmd := exec.Command(binary, e.Args(staged.file.Name())...)
	cmd.Stderr = &e.stderr
	stdin, err := cmd.StdinPipe()
	if err != nil {
		staged.discard()
		return fmt.Errorf("%w: ffmpeg stdin: %v", model.ErrEncoderUnavailable, err)
	}
	if err := cmd.Start(); err != nil {
		staged.discard()
		return fmt.Errorf("%w: start ffmpeg: %v", model.ErrEncoderUnavailable, err)
	}

	e.staged = staged
	e.cmd = cmd
	e.stdin = stdin
	e.buf = bufio.NewWriterSize(stdin, 1<<20)
	util.LogDebugf("ffmpeg started: %s %s", binary, strings.Join(e.Args(staged.file.Name()), " "))
	return nil
}

func (e *VideoEncoder) WriteFrame(img *image.RGBA) error {
	if e.cmd == nil {
		return fmt.Errorf("%w: video encoder not opened", model.ErrEncode)
	}
	if err := e.png.Encode(e.buf, img); err != nil {
		return fmt.Errorf("%w: pipe frame %d to ffmpeg: %v%s", model.ErrEncode, e.frames, err, e.stderrTail())
	}
	e.frames++
	return nil
}

func (e *VideoEncoder) Close() error {
	if e.cmd == nil {
		return fmt.Errorf("%w: video encoder not opened", model.ErrEncode)
	}
	flushErr := e.buf.Flush()
	_ = e.stdin.Close()
	waitErr := e.cmd.Wait()
	e.cmd = nil

	if flushErr != nil || waitErr != nil {
		e.staged.discard()
		err := waitErr
		if err == nil {
			err = flushErr
		}
		return fmt.Errorf("%w: ffmpeg: %v%s", model.ErrEncode, err, e.stderrTail())
	}
	if e.frames == 0 {
		e.staged.discard()
		return fmt.Errorf("%w: no frames to encode", model.ErrEncode)
	}
	if err := os.Rename(e.staged.file.Name(), e.staged.final); err != nil {
		e.staged.discard()
		return fmt.Errorf("%w: move output into place: %v", model.ErrEncode, err)
	}
	util.LogInfof("MP4 written: %s (%d frames at %d fps)", e.staged.final, e.frames, e.fps)
	return nil
}

func (e *VideoEncoder) Abort() {
	if e.cmd != nil {
		_ = e.stdin.Close()
		if e.cmd.Process != nil {
			_ = e.cmd.Process.Kill()
		}
		_ = e.cmd.Wait()
		e.cmd = nil
	}
	if e.staged != nil {
		e.staged.discard()
	}
}

func (e *VideoEncoder) stderrTail() string {
	msg := strings.TrimSpace(e.stderr.String())
	if msg == "" {
		return ""
	}
	if len(msg) > 400 {
		msg = msg[len(msg)-400:]
	}
	return ": " + msg
}
