package player

import (
	"context"
	"errors"
	"log/slog"
	"os/exec"
)

var errNoAudioPlayer = errors.New("player: no audio player command found in PATH")

// audioSidecar launches a configured audio player as a fire-and-forget
// child process, per spec.md §6: no feedback channel, no A/V sync, any
// drift is tolerated.
type audioSidecar struct {
	cmd    *exec.Cmd
	logger *slog.Logger
}

// startAudioSidecar starts `path` via the system's default audio player at
// the caller's t0. A nil return means no audio was requested or it could
// not be started; either is non-fatal to playback.
func startAudioSidecar(ctx context.Context, path string, logger *slog.Logger) *audioSidecar {
	if path == "" {
		return nil
	}

	player, err := audioPlayerCommand()
	if err != nil {
		logger.Warn("no audio player available, continuing without audio", "error", err)

		return nil
	}

	//nolint:gosec // path is an operator-supplied CLI argument, not untrusted input.
	cmd := exec.CommandContext(ctx, player, path)

	if err := cmd.Start(); err != nil {
		logger.Warn("starting audio sidecar failed, continuing without audio", "error", err, "path", path)

		return nil
	}

	return &audioSidecar{cmd: cmd, logger: logger}
}

// audioPlayerCommand picks the first available command-line audio player
// from a short, common list. Platform-specific audio frameworks are out of
// scope (spec.md "Out of scope: Audio playback ... fire-and-forget
// sidecar").
func audioPlayerCommand() (string, error) {
	candidates := []string{"ffplay", "afplay", "aplay", "paplay"}

	for _, c := range candidates {
		if path, err := exec.LookPath(c); err == nil {
			return path, nil
		}
	}

	return "", errNoAudioPlayer
}

// stop terminates the sidecar process, if any. Safe to call on a nil
// *audioSidecar.
func (a *audioSidecar) stop() {
	if a == nil || a.cmd.Process == nil {
		return
	}

	_ = a.cmd.Process.Kill()
	_ = a.cmd.Wait()
}
