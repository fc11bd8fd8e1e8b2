package scheduler

import (
	"sync"
	"time"
)

// Manual is a deterministic Clock for tests. In auto-fire mode every task
// runs synchronously inside AfterFunc and advances Now by its delay; in hold
// mode tasks stay pending until Fire is called.
type Manual struct {
	mu       sync.Mutex
	now      time.Time
	auto     bool
	delays   []time.Duration
	pending  []*manualTimer
	canceled int
}

type manualTimer struct {
	clock *Manual
	d     time.Duration
	f     func()
	done  bool
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time, autoFire bool) *Manual {
	return &Manual{now: start, auto: autoFire}
}

// Now returns the clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc records d and either runs f immediately or keeps it pending.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	t := &manualTimer{clock: m, d: d, f: f}
	m.delays = append(m.delays, d)
	if !m.auto {
		m.pending = append(m.pending, t)
		m.mu.Unlock()
		return t
	}
	t.done = true
	m.now = m.now.Add(d)
	m.mu.Unlock()

	f()
	return t
}

// Fire runs the oldest pending task. It reports false if nothing was pending.
func (m *Manual) Fire() bool {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return false
	}
	t := m.pending[0]
	m.pending = m.pending[1:]
	t.done = true
	m.now = m.now.Add(t.d)
	m.mu.Unlock()

	t.f()
	return true
}

// Delays returns every delay requested so far, in order.
func (m *Manual) Delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.delays...)
}

// Pending returns the number of tasks waiting to fire.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Canceled returns how many tasks were stopped before firing.
func (m *Manual) Canceled() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canceled
}

func (t *manualTimer) Stop() bool {
	m := t.clock
	m.mu.Lock()
	defer m.mu.Unlock()
	if t.done {
		return false
	}
	t.done = true
	m.canceled++
	for i, p := range m.pending {
		if p == t {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			break
		}
	}
	return true
}
