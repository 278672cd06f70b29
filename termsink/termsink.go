// Package termsink maintains a shadow model of what has been written to an
// ANSI terminal and emits the minimum escape-sequence diff needed to make
// the terminal match a new target CellGrid.
package termsink

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"

	"github.com/vtrender/vtrender/rasterizer"
)

const bufferSize = 4 << 20 // 4 MiB, per the spec's O(1)-syscalls-per-frame contract.

// ErrSinkPoisoned is returned by Draw once a prior write to the terminal has
// failed. A poisoned sink refuses all further writes.
var ErrSinkPoisoned = errors.New("termsink: sink is poisoned")

const (
	seqAltScreenOn  = "\x1b[?1049h"
	seqAltScreenOff = "\x1b[?1049l"
	seqCursorHide   = "\x1b[?25l"
	seqCursorShow   = "\x1b[?25h"
	seqClearHome    = "\x1b[2J\x1b[H"
	seqResetColors  = "\x1b[0m"
)

// TerminalSink owns the terminal for the lifetime of playback: raw mode,
// alternate screen, cursor visibility, and a shadow CellGrid modeling what
// is currently on screen.
//
// A TerminalSink must be released with Close on every exit path — including
// panic, via a deferred call — so raw mode and the alternate screen are
// never left engaged.
type TerminalSink struct {
	fd       int
	oldState *term.State
	rawSet   bool

	w  io.Writer
	in *os.File
	bw *bufio.Writer

	current  *rasterizer.CellGrid
	poisoned bool

	closeOnce sync.Once
}

// Open acquires the terminal: raw mode on, cursor hidden, alternate screen
// on, full clear, cursor homed, colors reset. out is typically os.Stdout;
// in (typically os.Stdin) is put into raw mode and polled for the quit
// keystroke — grounded on IntuitionEngine's TerminalHost, which likewise
// puts stdin in raw mode for non-blocking keyboard polling while writing
// frames to a separate output handle.
func Open(out, in *os.File) (*TerminalSink, error) {
	fd := int(in.Fd())

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("termsink: entering raw mode: %w", err)
	}

	s := &TerminalSink{
		fd:       fd,
		oldState: oldState,
		rawSet:   true,
		w:        out,
		in:       in,
		bw:       bufio.NewWriterSize(out, bufferSize),
	}

	if _, err := io.WriteString(s.bw, seqAltScreenOn+seqCursorHide+seqClearHome+seqResetColors); err != nil {
		_ = s.Close()

		return nil, fmt.Errorf("termsink: entering alternate screen: %w", err)
	}

	if err := s.bw.Flush(); err != nil {
		_ = s.Close()

		return nil, fmt.Errorf("termsink: flushing entry sequence: %w", err)
	}

	return s, nil
}

// Probe implements the "opaque platform probe" collaborator from spec.md
// §1: it reports the terminal's current cell extent and whether it
// advertises 24-bit color support. truecolor is detected the common way —
// COLORTERM containing "truecolor" or "24bit" — since terminfo databases
// are unreliable for this on most systems.
func Probe(fd int) (cols, rows int, truecolor bool, err error) {
	cols, rows, err = term.GetSize(fd)
	if err != nil {
		return 0, 0, false, fmt.Errorf("termsink: probing terminal size: %w", err)
	}

	colorterm := os.Getenv("COLORTERM")
	truecolor = strings.Contains(colorterm, "truecolor") || strings.Contains(colorterm, "24bit")

	return cols, rows, truecolor, nil
}

const quitPollTimeout = 5 * time.Millisecond

// PollQuit does a non-blocking check of stdin for the quit keystroke ('q',
// 'Q', or Ctrl-C / 0x03), returning promptly either way. It relies on the
// input handle supporting read deadlines, true of real terminal devices;
// if the underlying fd doesn't support deadlines, it degrades to reporting
// no quit request rather than blocking the render loop.
func (s *TerminalSink) PollQuit() bool {
	if s.in == nil {
		return false
	}

	if err := s.in.SetReadDeadline(time.Now().Add(quitPollTimeout)); err != nil {
		return false
	}

	var b [1]byte

	n, err := s.in.Read(b[:])
	if n == 0 || err != nil {
		return false
	}

	return b[0] == 'q' || b[0] == 'Q' || b[0] == 0x03
}

// Poisoned reports whether a prior write error has disabled further draws.
func (s *TerminalSink) Poisoned() bool {
	return s.poisoned
}

// Draw computes the delta between next and the sink's shadow grid and
// writes only the changed cells, in row-major order, using the canonical
// cursor/color-caching protocol. If next is identical to the shadow grid,
// Draw writes zero bytes.
//
// fg/bg color state is local to each Draw call and always starts unset: the
// terminal's SGR state after the previous frame's writes is not assumed to
// be reset, so the first emitted cell in every call re-asserts its colors.
func (s *TerminalSink) Draw(next *rasterizer.CellGrid) error {
	if s.poisoned {
		return ErrSinkPoisoned
	}

	if s.current == nil || s.current.Cols != next.Cols || s.current.Rows != next.Rows {
		s.current = rasterizer.NewCellGrid(next.Cols, next.Rows)
	}

	var (
		haveCursor           bool
		cursorCol, cursorRow int
		haveFG, haveBG       bool
		fg, bg               rasterizer.RGB
	)

	cur := s.current.Cells
	nxt := next.Cells

	for i := range nxt {
		if cur[i] == nxt[i] {
			continue
		}

		row := i / next.Cols
		col := i % next.Cols

		contiguous := haveCursor && cursorRow == row && cursorCol == col
		if !contiguous {
			if err := s.writeCursorPosition(row, col); err != nil {
				return s.poison(err)
			}
		}

		haveCursor = true

		if !haveFG || fg != nxt[i].FG {
			if err := s.writeSGR(38, nxt[i].FG); err != nil {
				return s.poison(err)
			}

			fg, haveFG = nxt[i].FG, true
		}

		if !haveBG || bg != nxt[i].BG {
			if err := s.writeSGR(48, nxt[i].BG); err != nil {
				return s.poison(err)
			}

			bg, haveBG = nxt[i].BG, true
		}

		if _, err := s.bw.WriteRune(nxt[i].Glyph); err != nil {
			return s.poison(err)
		}

		cursorCol = col + 1
		cursorRow = row

		cur[i] = nxt[i]
	}

	if err := s.bw.Flush(); err != nil {
		return s.poison(err)
	}

	return nil
}

func (s *TerminalSink) writeCursorPosition(row, col int) error {
	_, err := fmt.Fprintf(s.bw, "\x1b[%d;%dH", row+1, col+1)

	return err
}

func (s *TerminalSink) writeSGR(kind int, c rasterizer.RGB) error {
	_, err := fmt.Fprintf(s.bw, "\x1b[%d;2;%d;%d;%dm", kind, c.R, c.G, c.B)

	return err
}

func (s *TerminalSink) poison(cause error) error {
	s.poisoned = true

	return fmt.Errorf("%w: %w", ErrSinkPoisoned, cause)
}

// Close releases the terminal unconditionally: colors reset, cursor shown,
// alternate screen off, raw mode restored. Idempotent and safe to call
// multiple times (including from a deferred call after an earlier explicit
// Close).
func (s *TerminalSink) Close() error {
	var closeErr error

	s.closeOnce.Do(func() {
		if s.bw != nil {
			_, _ = io.WriteString(s.bw, seqResetColors+seqCursorShow+seqAltScreenOff)
			_ = s.bw.Flush()
		}

		if s.rawSet {
			closeErr = term.Restore(s.fd, s.oldState)
			s.rawSet = false
		}
	})

	return closeErr
}
