// Package videosource opens a video file through an external ffmpeg
// process and produces a lazy, finite sequence of RGB frames resized and
// composed onto a target cell-grid-shaped pixel plane.
package videosource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/vtrender/vtrender/frame"
)

// ErrOpenFailed is returned by Open when the source file cannot be read or
// has no usable video stream.
var ErrOpenFailed = errors.New("videosource: open failed")

// ErrDecodeFailed marks a mid-stream I/O error from the ffmpeg pipe,
// surfaced through LastError once DecodeLoop observes it.
var ErrDecodeFailed = errors.New("videosource: decode failed")

// pushRetryInterval is the decoder's idle slice while the output queue is
// full, per spec.md §4.2 step 6 ("busy-spin with 1-ms sleep").
const pushRetryInterval = time.Millisecond

// VideoSource decodes a video file into RGB frames sized to
// (targetCols, 2*targetRows), letterboxed or filled per its FitMode.
//
// A VideoSource is driven by exactly one goroutine calling DecodeLoop; Open
// and LastError/SourceFPS may be called from any goroutine.
type VideoSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	cancel context.CancelFunc

	srcW, srcH int
	dstW, dstH int
	fit        FitMode
	sourceFPS  float64

	logger *slog.Logger

	mu      sync.Mutex
	lastErr error
}

// Open probes the source file's dimensions/fps via ffprobe and starts an
// ffmpeg rawvideo pipe decoding at the source's native resolution (resize
// and composition happen in Go, not via ffmpeg filters — see SPEC_FULL.md
// §1 videosource).
func Open(ctx context.Context, path string, targetCols, targetRows int, fit FitMode, logger *slog.Logger) (*VideoSource, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, fmt.Errorf("%w: ffmpeg not found in PATH", ErrOpenFailed)
	}

	probe, err := probeSource(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	runCtx, cancel := context.WithCancel(ctx)

	//nolint:gosec // path is an operator-supplied CLI argument, not untrusted input.
	cmd := exec.CommandContext(runCtx,
		"ffmpeg",
		"-i", path,
		"-pix_fmt", "rgba",
		"-f", "rawvideo",
		"pipe:1",
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()

		return nil, fmt.Errorf("%w: creating stdout pipe: %w", ErrOpenFailed, err)
	}

	if err := cmd.Start(); err != nil {
		cancel()

		return nil, fmt.Errorf("%w: starting ffmpeg: %w", ErrOpenFailed, err)
	}

	logger.Info("videosource opened",
		"path", path,
		"source_width", probe.width,
		"source_height", probe.height,
		"source_fps", probe.fps,
		"fit_mode", fit.String(),
	)

	return &VideoSource{
		cmd:       cmd,
		stdout:    stdout,
		cancel:    cancel,
		srcW:      probe.width,
		srcH:      probe.height,
		dstW:      targetCols,
		dstH:      2 * targetRows,
		fit:       fit,
		sourceFPS: probe.fps,
		logger:    logger,
	}, nil
}

// SourceFPS returns the source's declared frame rate (or the default of 30
// if ffprobe could not determine one).
func (v *VideoSource) SourceFPS() float64 {
	return v.sourceFPS
}

// LastError returns the terminal error observed by DecodeLoop, if any.
func (v *VideoSource) LastError() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.lastErr
}

func (v *VideoSource) setLastError(err error) {
	v.mu.Lock()
	v.lastErr = err
	v.mu.Unlock()
}

// DecodeLoop reads frames from the ffmpeg pipe until the source is
// exhausted or stop is set, composing each into a scratch RGB plane and
// publishing it to out. It returns once the loop ends; the caller is
// expected to run it on its own goroutine.
func (v *VideoSource) DecodeLoop(out *frame.FrameBuffer, stop *frame.CancelFlag) {
	defer func() {
		_ = v.stdout.Close()

		if v.cancel != nil {
			v.cancel()
		}

		if v.cmd != nil {
			_ = v.cmd.Wait()
		}
	}()

	srcFrameSize := v.srcW * v.srcH * 4
	srcBuf := make([]byte, srcFrameSize)

	frameWindow := time.Duration(float64(time.Second) / v.sourceFPS)

	var frameIndex int64

	// Padding is filled once per resolution and is invariant across
	// frames; compose only repaints the content rectangle on every call.
	blankPlane := make([]byte, v.dstW*v.dstH*3)

	for {
		if stop.IsSet() {
			return
		}

		if _, err := io.ReadFull(v.stdout, srcBuf); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return
			}

			v.setLastError(fmt.Errorf("%w: %w", ErrDecodeFailed, err))
			v.logger.Warn("decode pipe error", "error", err)

			return
		}

		dst := make([]byte, len(blankPlane))
		copy(dst, blankPlane)
		compose(srcBuf, v.srcW, v.srcH, dst, v.dstW, v.dstH, v.fit)

		f := &frame.Frame{
			Pixels: dst,
			Width:  v.dstW,
			Height: v.dstH,
			PTS:    time.Duration(frameIndex) * frameWindow,
		}

		frameIndex++

		for !out.TryPush(f) {
			if stop.IsSet() {
				return
			}

			time.Sleep(pushRetryInterval)
		}
	}
}
