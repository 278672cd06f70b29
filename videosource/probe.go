package videosource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// defaultSourceFPS is used when ffprobe reports no usable frame rate, per
// spec.md §6: "Source FPS must be discoverable or the core defaults to 30."
const defaultSourceFPS = 30.0

// ErrProbeFailed is returned when ffprobe cannot determine the source
// frame's pixel dimensions. Unlike fps, dimensions have no sane default:
// the raw rawvideo pipe cannot be read without knowing its frame byte size,
// so this is a fatal open-time error, not a silent fallback.
var ErrProbeFailed = errors.New("videosource: could not determine source dimensions")

type probeResult struct {
	width  int
	height int
	fps    float64
}

type ffprobeOutput struct {
	Streams []struct {
		Width      int    `json:"width"`
		Height     int    `json:"height"`
		RFrameRate string `json:"r_frame_rate"`
	} `json:"streams"`
}

// probeSource shells out to ffprobe to discover the first video stream's
// pixel dimensions and frame rate. A missing frame rate falls back to
// defaultSourceFPS; missing dimensions are a fatal error since the decode
// pipe cannot be sized without them.
func probeSource(ctx context.Context, path string) (probeResult, error) {
	if _, err := exec.LookPath("ffprobe"); err != nil {
		return probeResult{}, fmt.Errorf("%w: ffprobe not found in PATH", ErrProbeFailed)
	}

	//nolint:gosec // path is an operator-supplied CLI argument, not untrusted input.
	cmd := exec.CommandContext(ctx,
		"ffprobe",
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height,r_frame_rate",
		"-print_format", "json",
		path,
	)

	out, err := cmd.Output()
	if err != nil {
		return probeResult{}, fmt.Errorf("%w: running ffprobe: %w", ErrProbeFailed, err)
	}

	var parsed ffprobeOutput

	if err := json.Unmarshal(out, &parsed); err != nil || len(parsed.Streams) == 0 {
		return probeResult{}, fmt.Errorf("%w: no video stream reported", ErrProbeFailed)
	}

	stream := parsed.Streams[0]
	if stream.Width <= 0 || stream.Height <= 0 {
		return probeResult{}, fmt.Errorf("%w: stream reported non-positive dimensions", ErrProbeFailed)
	}

	fps, ok := parseFrameRate(stream.RFrameRate)
	if !ok {
		fps = defaultSourceFPS
	}

	return probeResult{width: stream.Width, height: stream.Height, fps: fps}, nil
}

// parseFrameRate parses ffprobe's "num/den" rational frame rate string.
func parseFrameRate(raw string) (float64, bool) {
	num, den, found := strings.Cut(raw, "/")
	if !found {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil || v <= 0 {
			return 0, false
		}

		return v, true
	}

	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, false
	}

	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0, false
	}

	rate := n / d
	if rate <= 0 {
		return 0, false
	}

	return rate, true
}
