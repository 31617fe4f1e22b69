// Package clock supplies the current time to services so tests can pin it.
package clock

import (
	"sync"
	"time"
)

// Clock reports the current instant in UTC.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time {
	return f().UTC()
}

// NewSystem returns the wall clock.
func NewSystem() Clock {
	return Func(time.Now)
}

// NewFixed returns a clock frozen at t.
func NewFixed(t time.Time) Clock {
	return Func(func() time.Time { return t })
}

// Manual only moves when advanced. Safe for concurrent use.
type Manual struct {
	mu  sync.Mutex
	now time.Time
}

func NewManual(t time.Time) *Manual {
	return &Manual{now: t.UTC()}
}

func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Advance moves the clock forward by d.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}
