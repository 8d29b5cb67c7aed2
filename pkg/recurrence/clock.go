package recurrence

import (
	"sync"
	"time"
)

// Clock supplies the current instant.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock in Location (time.Local when nil).
type SystemClock struct {
	Location *time.Location
}

func (c SystemClock) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

// MockClock is a settable clock for tests.
type MockClock struct {
	mu       sync.RWMutex
	FixedNow time.Time
}

func (m *MockClock) Now() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.FixedNow
}

func (m *MockClock) SetNow(now time.Time) {
	m.mu.Lock()
	m.FixedNow = now
	m.mu.Unlock()
}

// Today returns the calendar day the clock is currently in.
func Today(c Clock) Date {
	return DateOf(c.Now())
}
