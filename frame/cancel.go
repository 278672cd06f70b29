package frame

import "sync/atomic"

// CancelFlag is an atomic boolean shared between the player, the decoder
// goroutine, and the panic hook. Any of them may set it; the decoder checks
// it at every queue-full wait and after every frame, and the player checks
// it at every deadline slice.
type CancelFlag struct {
	flag atomic.Bool
}

// Set marks the flag as raised. Safe to call more than once.
func (c *CancelFlag) Set() {
	c.flag.Store(true)
}

// IsSet reports whether the flag has been raised.
func (c *CancelFlag) IsSet() bool {
	return c.flag.Load()
}
