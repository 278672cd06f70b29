package frame

// FrameBuffer is a bounded, FIFO hand-off queue of decoded frames between the
// decoder goroutine (producer) and the render loop (consumer).
//
// It is backed by a buffered channel: pushes and pops never block past a
// channel send/receive, and capacity is enforced by the channel itself, so
// the queue never grows beyond the configured size. This is the idiomatic
// bounded MPSC primitive in Go — see DESIGN.md for why no hand-rolled
// lock-free ring buffer is used instead.
type FrameBuffer struct {
	ch chan *Frame
}

// NewFrameBuffer creates a FrameBuffer with the given capacity. Capacity
// less than 1 is clamped to 1.
func NewFrameBuffer(capacity int) *FrameBuffer {
	if capacity < 1 {
		capacity = 1
	}

	return &FrameBuffer{ch: make(chan *Frame, capacity)}
}

// TryPush attempts to enqueue f without blocking. It returns false if the
// buffer is full; the caller (decoder) is expected to idle briefly and
// retry.
func (b *FrameBuffer) TryPush(f *Frame) bool {
	select {
	case b.ch <- f:
		return true
	default:
		return false
	}
}

// TryPop attempts to dequeue the oldest frame without blocking. It returns
// (nil, false) if the buffer is empty.
func (b *FrameBuffer) TryPop() (*Frame, bool) {
	select {
	case f := <-b.ch:
		return f, true
	default:
		return nil, false
	}
}

// FillRatio returns the current occupancy in [0, 1].
func (b *FrameBuffer) FillRatio() float64 {
	return float64(len(b.ch)) / float64(cap(b.ch))
}

// Len returns the number of frames currently queued.
func (b *FrameBuffer) Len() int {
	return len(b.ch)
}

// Cap returns the configured capacity.
func (b *FrameBuffer) Cap() int {
	return cap(b.ch)
}
