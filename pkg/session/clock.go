package session

import (
	"sync"
	"time"
)

// clock hands out strictly increasing UTC timestamps at microsecond
// precision, the finest every store keeps. Two touches of the same session
// therefore never record the same last_active even on coarse system clocks.
type clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last time.Time
}

func (c *clock) next() time.Time {
	t := c.now().UTC().Truncate(time.Microsecond)

	c.mu.Lock()
	defer c.mu.Unlock()
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
