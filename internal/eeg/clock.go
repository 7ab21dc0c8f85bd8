package eeg

import (
	"sync"
	"time"
)

// Clock issues strictly increasing millisecond timestamps. Wall-clock reads
// can repeat within a millisecond at 200 Hz, so repeated reads are bumped
// past the previous value.
type Clock struct {
	mu   sync.Mutex
	last int64
}

func NewClock() *Clock {
	return &Clock{}
}

// Now returns the current Unix-millisecond time, strictly greater than any
// previously returned value.
func (c *Clock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := time.Now().UnixMilli()
	if now <= c.last {
		now = c.last + 1
	}
	c.last = now
	return now
}
