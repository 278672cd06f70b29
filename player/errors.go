package player

import "errors"

// Error taxonomy surfaced by Run, per spec.md §7. None of these are
// retried internally; Run returns exactly one of them (or nil).
var (
	// ErrConfigInvalid covers impossible dimensions, missing files, and
	// other construction-time configuration problems.
	ErrConfigInvalid = errors.New("player: invalid configuration")
	// ErrOpenFailed means the video file could not be opened for decoding.
	ErrOpenFailed = errors.New("player: open failed")
	// ErrDecodeFailed means a mid-stream decode error occurred.
	ErrDecodeFailed = errors.New("player: decode failed")
	// ErrRenderFailed means a stdout write or terminal-control call failed.
	ErrRenderFailed = errors.New("player: render failed")
	// ErrCancelled means the user stopped playback; not an error at the
	// API level but reported distinctly so callers can distinguish a quit
	// from a clean end-of-stream finish.
	ErrCancelled = errors.New("player: cancelled")
)

// ExitCode maps an error returned by Run to the process exit code defined
// in spec.md §6: 0 on clean finish or user quit, 1 on configuration error,
// 2 on decode failure, 3 on render failure.
func ExitCode(err error) int {
	switch {
	case err == nil, errors.Is(err, ErrCancelled):
		return 0
	case errors.Is(err, ErrConfigInvalid), errors.Is(err, ErrOpenFailed):
		return 1
	case errors.Is(err, ErrDecodeFailed):
		return 2
	case errors.Is(err, ErrRenderFailed):
		return 3
	default:
		return 1
	}
}
