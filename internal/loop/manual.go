package loop

import (
	"fmt"
	"time"
)

// maxIdleRuns bounds Settle so a task that never finishes fails loudly
// instead of hanging a test.
const maxIdleRuns = 1_000_000

// Manual is a Scheduler driven by a virtual clock. Nothing runs until the
// caller steps it, which makes timing-dependent behaviour deterministic.
// Manual must be used from a single goroutine.
type Manual struct {
	*sources
	now time.Time
}

// NewManual returns a scheduler whose clock starts at an arbitrary fixed
// instant.
func NewManual() *Manual {
	return &Manual{
		sources: newSources(),
		now:     time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// Idle implements Scheduler.
func (m *Manual) Idle(fn func() bool) Handle {
	return m.add(&source{fn: fn, idle: true})
}

// Timeout implements Scheduler.
func (m *Manual) Timeout(d time.Duration, fn func() bool) Handle {
	return m.add(&source{fn: fn, interval: d, due: m.now.Add(d)})
}

// Cancel implements Scheduler.
func (m *Manual) Cancel(h Handle) {
	m.cancel(h)
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time { return m.now }

// Step runs one idle task and reports whether there was one.
func (m *Manual) Step() bool {
	src := m.popIdle()
	if src == nil {
		return false
	}
	m.finish(src, src.fn(), m.now)
	return true
}

// Settle runs idle tasks until none remain. Time does not advance.
func (m *Manual) Settle() {
	for i := 0; m.Step(); i++ {
		if i >= maxIdleRuns {
			panic(fmt.Sprintf("loop: idle tasks still pending after %d runs", maxIdleRuns))
		}
	}
}

// Advance moves the clock forward by d. Idle tasks are settled first, then
// every timeout falling due within d fires in deadline order, with idle
// tasks settled again after each one.
func (m *Manual) Advance(d time.Duration) {
	target := m.now.Add(d)
	m.Settle()
	for {
		due := m.due(target)
		if len(due) == 0 {
			break
		}
		src := due[0]
		if src.due.After(m.now) {
			m.now = src.due
		}
		m.finish(src, src.fn(), m.now)
		m.Settle()
	}
	m.now = target
}

// IdleCount returns the number of scheduled idle tasks.
func (m *Manual) IdleCount() int {
	idle, _ := m.counts()
	return idle
}

// TimerCount returns the number of scheduled timeouts.
func (m *Manual) TimerCount() int {
	_, timers := m.counts()
	return timers
}
