package player

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vtrender/vtrender/frame"
)

func TestPopRetainedDropsOnlyLateFrames(t *testing.T) {
	t.Parallel()

	const frameWindow = 16 * time.Millisecond

	q := frame.NewFrameBuffer(8)
	q.TryPush(&frame.Frame{PTS: 0})
	q.TryPush(&frame.Frame{PTS: 16 * time.Millisecond})
	q.TryPush(&frame.Frame{PTS: 32 * time.Millisecond})

	// now is far enough along that the first two frames are late.
	now := 40 * time.Millisecond

	retained, dropped := popRetained(q, now, frameWindow)
	require.NotNil(t, retained)
	assert.Equal(t, 32*time.Millisecond, retained.PTS)
	assert.Equal(t, 2, dropped)

	_, ok := q.TryPop()
	assert.False(t, ok, "retained frame must not still be in the queue")
}

func TestPopRetainedEmptyQueueReturnsNil(t *testing.T) {
	t.Parallel()

	q := frame.NewFrameBuffer(4)

	retained, dropped := popRetained(q, time.Second, time.Millisecond)
	assert.Nil(t, retained)
	assert.Equal(t, 0, dropped)
}

func TestPopRetainedKeepsOnTimeFrame(t *testing.T) {
	t.Parallel()

	const frameWindow = 16 * time.Millisecond

	q := frame.NewFrameBuffer(4)
	q.TryPush(&frame.Frame{PTS: 10 * time.Millisecond})

	retained, dropped := popRetained(q, 12*time.Millisecond, frameWindow)
	require.NotNil(t, retained)
	assert.Equal(t, 0, dropped)
	assert.Equal(t, 10*time.Millisecond, retained.PTS)
}

func TestFrameTimerMeanAndMax(t *testing.T) {
	t.Parallel()

	var ft frameTimer

	base := time.Now()
	ft.observe(base)
	ft.observe(base.Add(10 * time.Millisecond))
	ft.observe(base.Add(30 * time.Millisecond))

	assert.InDelta(t, 15, ft.mean(), 1e-6)
	assert.InDelta(t, 20, ft.maxMS, 1e-6)
}

func TestExitCodeMapping(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 0, ExitCode(ErrCancelled))
	assert.Equal(t, 1, ExitCode(ErrConfigInvalid))
	assert.Equal(t, 1, ExitCode(ErrOpenFailed))
	assert.Equal(t, 2, ExitCode(ErrDecodeFailed))
	assert.Equal(t, 3, ExitCode(ErrRenderFailed))
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "starting", stateStarting.String())
	assert.Equal(t, "playing", statePlaying.String())
	assert.Equal(t, "draining", stateDraining.String())
	assert.Equal(t, "stopped", stateStopped.String())
}
