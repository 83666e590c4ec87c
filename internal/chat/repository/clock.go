package repository

import (
	"sync"
	"time"
)

// Clock hands out strictly increasing timestamps at millisecond precision,
// the resolution a BSON date keeps, so insertion order survives the round trip.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewClock create a Clock, now defaults to time.Now
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Next next timestamp, never equal to or before the previous one
func (c *Clock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Millisecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Millisecond)
	}
	c.last = t
	return t
}
