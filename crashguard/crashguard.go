// Package crashguard installs a belt-and-braces panic recovery path around
// the player's render-loop goroutine, matching spec.md §9's description: on panic it
// sets the shared CancelFlag, writes a crash record through the logging
// Publisher, and re-panics so the caller's deferred cleanup (TerminalSink's
// guaranteed restore) still runs as the stack unwinds.
package crashguard

import (
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"

	"github.com/vtrender/vtrender/frame"
)

// Guard recovers a panic on one goroutine, records it, and re-panics.
type Guard struct {
	cancel *frame.CancelFlag
	record io.Writer
	logger *slog.Logger
}

// New creates a Guard. record is typically a *log.Publisher so subscribers
// (e.g. cmd/vtplay) observe the crash; it may be nil
// to skip that step. cancel must be the same CancelFlag shared with the
// decoder and player.
func New(cancel *frame.CancelFlag, record io.Writer, logger *slog.Logger) *Guard {
	if logger == nil {
		logger = slog.Default()
	}

	return &Guard{cancel: cancel, record: record, logger: logger}
}

// Recover must be called via defer at the top of every goroutine the guard
// protects:
//
//	defer guard.Recover()
//
// On panic it sets CancelFlag, publishes a one-line crash record, logs at
// Error level, and re-panics. It is a no-op if there is no panic in flight.
func (g *Guard) Recover() {
	r := recover()
	if r == nil {
		return
	}

	g.cancel.Set()

	stack := debug.Stack()

	if g.record != nil {
		_, _ = fmt.Fprintf(g.record, "panic: %v\n%s\n", r, stack)
	}

	g.logger.Error("panic recovered, terminal restore will proceed on unwind", "panic", r)

	panic(r)
}
