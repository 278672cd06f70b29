// Package player orchestrates the playback pipeline: it owns the
// FrameBuffer, spawns the VideoSource decode goroutine, drives the render
// loop through CellRasterizer and TerminalSink, and enforces frame timing
// and graceful shutdown.
package player

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vtrender/vtrender/crashguard"
	"github.com/vtrender/vtrender/frame"
	vtlog "github.com/vtrender/vtrender/log"
	"github.com/vtrender/vtrender/rasterizer"
	"github.com/vtrender/vtrender/termsink"
	"github.com/vtrender/vtrender/videosource"
)

// sleepSlice bounds every wait in the render loop so the player stays
// responsive to cancellation within one slice, per spec.md §5.
const sleepSlice = 5 * time.Millisecond

// startingPollInterval is how often Starting re-checks queue fill / EOS.
const startingPollInterval = 5 * time.Millisecond

// startingFillThreshold is the queue fill ratio Starting waits for before
// transitioning to Playing, per spec.md §4.5.
const startingFillThreshold = 0.5

// TerminalProbe is the opaque platform-introspection collaborator from
// spec.md §1: it reports the terminal's current cell extent and color
// capability, used only when the caller didn't supply Cols/Rows.
type TerminalProbe interface {
	Probe() (cols, rows int, truecolor bool, err error)
}

// StdTerminalProbe probes the given file descriptor via the termsink
// package's golang.org/x/term-backed Probe.
type StdTerminalProbe struct {
	FD int
}

// Probe implements TerminalProbe.
func (p StdTerminalProbe) Probe() (int, int, bool, error) {
	return termsink.Probe(p.FD)
}

// state is the player's position in the Starting → Playing → Draining →
// Stopped machine from spec.md §4.5. It exists for logging only: Run is a
// single blocking call and does not expose state externally.
type state int

const (
	stateStarting state = iota
	statePlaying
	stateDraining
	stateStopped
)

func (s state) String() string {
	switch s {
	case stateStarting:
		return "starting"
	case statePlaying:
		return "playing"
	case stateDraining:
		return "draining"
	case stateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Player drives one playback session end to end.
type Player struct {
	cfg    PlaybackConfig
	logger *slog.Logger

	source *videosource.VideoSource
	queue  *frame.FrameBuffer
	raster *rasterizer.CellRasterizer
	sink   *termsink.TerminalSink
	grid   *rasterizer.CellGrid

	cancelFlag *frame.CancelFlag
	crashLog   *vtlog.Publisher

	cols, rows int
}

// CrashLog returns the Publisher crash records (and nothing else) are
// written to. A caller such as cmd/vtplay may Subscribe to it to surface a
// panic without stealing stdout from the TerminalSink.
func (p *Player) CrashLog() *vtlog.Publisher {
	return p.crashLog
}

// New validates cfg, probes the terminal if needed, and opens the
// VideoSource and TerminalSink. Any failure here is ConfigInvalid,
// OpenFailed, or RenderFailed per the taxonomy in spec.md §7 — no
// goroutines are started and no playback has occurred yet.
func New(ctx context.Context, cfg PlaybackConfig, probe TerminalProbe, logger *slog.Logger) (*Player, error) {
	if logger == nil {
		logger = slog.Default()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cols, rows := cfg.Cols, cfg.Rows

	if cols == 0 || rows == 0 {
		pCols, pRows, _, err := probe.Probe()
		if err != nil {
			return nil, fmt.Errorf("%w: probing terminal size: %w", ErrConfigInvalid, err)
		}

		if cols == 0 {
			cols = pCols
		}

		if rows == 0 {
			rows = pRows
		}
	}

	if cols <= 0 || rows <= 0 {
		return nil, fmt.Errorf("%w: resolved terminal extent is non-positive (%dx%d)", ErrConfigInvalid, cols, rows)
	}

	source, err := videosource.Open(ctx, cfg.VideoPath, cols, rows, cfg.fitMode(), logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrOpenFailed, err)
	}

	sink, err := termsink.Open(os.Stdout, os.Stdin)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRenderFailed, err)
	}

	return &Player{
		cfg:        cfg,
		logger:     logger,
		source:     source,
		queue:      frame.NewFrameBuffer(cfg.QueueCapacity),
		raster:     rasterizer.New(),
		sink:       sink,
		grid:       rasterizer.NewCellGrid(cols, rows),
		cancelFlag: &frame.CancelFlag{},
		crashLog:   vtlog.NewPublisher(),
		cols:       cols,
		rows:       rows,
	}, nil
}

// Run drives the full Starting → Playing → Draining → Stopped loop and
// returns once playback has ended, for any reason. The terminal is always
// restored before Run returns, even on error.
func (p *Player) Run(ctx context.Context) (Stats, error) {
	defer func() {
		_ = p.sink.Close()
		p.raster.Close()
		_ = p.crashLog.Close()
	}()

	// Guards the render-loop goroutine only (this one): a recovered panic
	// here re-panics after setting cancelFlag and recording to crashLog, so
	// the cleanup deferred above — which owns the sink and therefore the
	// terminal-restore path — still runs as this stack unwinds. The decode
	// goroutine below can't be protected the same way: a recover() in one
	// goroutine never reaches another goroutine's deferred stack, so its
	// errors are surfaced through the errgroup instead of a panic/recover
	// pair.
	guard := crashguard.New(p.cancelFlag, p.crashLog, p.logger)
	defer guard.Recover()

	go func() {
		<-ctx.Done()
		p.cancelFlag.Set()
	}()

	var eg errgroup.Group

	decoderDone := make(chan struct{})

	eg.Go(func() error {
		defer close(decoderDone)

		p.source.DecodeLoop(p.queue, p.cancelFlag)

		return p.source.LastError()
	})

	p.logger.Debug("player state transition", "state", stateStarting.String())
	p.runStarting(decoderDone)

	audio := startAudioSidecar(ctx, p.cfg.AudioPath, p.logger)
	t0 := time.Now()

	var (
		presented int
		dropped   int
		timer     frameTimer
		runErr    error
	)

	frameWindow := time.Second / time.Duration(p.cfg.TargetFPS)

	p.logger.Debug("player state transition", "state", statePlaying.String())

loop:
	for {
		if p.cancelFlag.IsSet() {
			runErr = ErrCancelled

			break loop
		}

		now := time.Since(t0)

		retained, n := popRetained(p.queue, now, frameWindow)
		dropped += n

		if retained == nil {
			select {
			case <-decoderDone:
				p.logger.Debug("player state transition", "state", stateDraining.String())

				break loop
			default:
				p.sleepSlices(frameWindow)

				continue loop
			}
		}

		if err := p.raster.RenderInto(retained.Pixels, retained.Width, retained.Height, p.grid); err != nil {
			runErr = fmt.Errorf("%w: %w", ErrRenderFailed, err)
			p.cancelFlag.Set()

			break loop
		}

		if err := p.sink.Draw(p.grid); err != nil {
			runErr = fmt.Errorf("%w: %w", ErrRenderFailed, err)
			p.cancelFlag.Set()

			break loop
		}

		presented++
		timer.observe(time.Now())

		deadline := t0.Add(retained.PTS + frameWindow)
		p.sleepUntil(deadline)

		if p.sink.PollQuit() {
			p.cancelFlag.Set()
		}
	}

	audio.stop()

	if runErr == nil {
		if decErr := eg.Wait(); decErr != nil {
			runErr = fmt.Errorf("%w: %w", ErrDecodeFailed, decErr)
		}
	} else {
		_ = eg.Wait()
	}

	if p.sink.Poisoned() && (runErr == nil || errors.Is(runErr, ErrCancelled)) {
		runErr = fmt.Errorf("%w: %w", ErrRenderFailed, termsink.ErrSinkPoisoned)
	}

	p.logger.Debug("player state transition", "state", stateStopped.String())

	return Stats{
		FramesPresented: presented,
		FramesDropped:   dropped,
		MeanFrameMillis: timer.mean(),
		MaxFrameMillis:  timer.maxMS,
	}, runErr
}

// runStarting blocks until the queue is at least half full or end-of-stream
// is signaled, per spec.md §4.5 Starting.
func (p *Player) runStarting(decoderDone <-chan struct{}) {
	for {
		if p.cancelFlag.IsSet() {
			return
		}

		if p.queue.FillRatio() >= startingFillThreshold {
			return
		}

		select {
		case <-decoderDone:
			return
		default:
			time.Sleep(startingPollInterval)
		}
	}
}

// popRetained pops and drops frames whose presentation window has already
// passed, returning the first frame still within its window (if any) and
// the count of frames dropped along the way.
func popRetained(q *frame.FrameBuffer, now, frameWindow time.Duration) (*frame.Frame, int) {
	var dropped int

	for {
		f, ok := q.TryPop()
		if !ok {
			return nil, dropped
		}

		if f.PTS+frameWindow < now {
			dropped++

			continue
		}

		return f, dropped
	}
}

// sleepUntil sleeps in sleepSlice increments until deadline or cancellation.
func (p *Player) sleepUntil(deadline time.Time) {
	for {
		if p.cancelFlag.IsSet() {
			return
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}

		d := remaining
		if d > sleepSlice {
			d = sleepSlice
		}

		time.Sleep(d)
	}
}

// sleepSlices sleeps up to dur, in sleepSlice increments, returning early on
// cancellation.
func (p *Player) sleepSlices(dur time.Duration) {
	p.sleepUntil(time.Now().Add(dur))
}
