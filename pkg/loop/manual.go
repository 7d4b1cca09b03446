package loop

import (
	"sort"
	"time"
)

// Manual is a deterministic Scheduler driven by a virtual clock. Nothing
// runs until the owner calls Flush, Advance or Settle.
type Manual struct {
	now    time.Duration
	seq    uint64
	timers []*manualTimer
	queue  []func()
}

type manualTimer struct {
	m        *Manual
	deadline time.Duration
	seq      uint64
	fn       func()
	stopped  bool
}

// NewManual creates a Manual scheduler at virtual time zero.
func NewManual() *Manual {
	return &Manual{}
}

// Now returns the virtual time elapsed since creation.
func (m *Manual) Now() time.Duration {
	return m.now
}

// Post queues fn.
func (m *Manual) Post(fn func()) {
	m.queue = append(m.queue, fn)
}

// AfterFunc registers fn to be posted once the clock passes d from now.
func (m *Manual) AfterFunc(d time.Duration, fn func()) Timer {
	m.seq++
	t := &manualTimer{m: m, deadline: m.now + d, seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Stop implements Timer.
func (t *manualTimer) Stop() bool {
	if t.stopped {
		return false
	}
	t.stopped = true
	for i, other := range t.m.timers {
		if other == t {
			t.m.timers = append(t.m.timers[:i], t.m.timers[i+1:]...)
			break
		}
	}
	return true
}

// Pending reports the number of armed timers and queued callbacks.
func (m *Manual) Pending() (timers, queued int) {
	return len(m.timers), len(m.queue)
}

// Flush runs queued callbacks, including ones they post, until the queue
// is empty. It returns the number of callbacks run.
func (m *Manual) Flush() int {
	n := 0
	for len(m.queue) > 0 {
		fn := m.queue[0]
		m.queue = m.queue[1:]
		fn()
		n++
	}
	return n
}

// Advance moves the clock forward by d, posting and flushing every timer
// whose deadline is reached, in deadline order.
func (m *Manual) Advance(d time.Duration) {
	target := m.now + d
	for {
		t := m.nextDue(target)
		if t == nil {
			break
		}
		t.Stop()
		if t.deadline > m.now {
			m.now = t.deadline
		}
		m.Post(t.fn)
		m.Flush()
	}
	m.now = target
	m.Flush()
}

// Settle advances the clock until no timers remain and the queue is empty.
func (m *Manual) Settle() {
	m.Flush()
	for len(m.timers) > 0 {
		last := m.now
		for _, t := range m.timers {
			if t.deadline > last {
				last = t.deadline
			}
		}
		m.Advance(last - m.now)
	}
}

func (m *Manual) nextDue(target time.Duration) *manualTimer {
	due := make([]*manualTimer, 0, len(m.timers))
	for _, t := range m.timers {
		if t.deadline <= target {
			due = append(due, t)
		}
	}
	if len(due) == 0 {
		return nil
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].deadline != due[j].deadline {
			return due[i].deadline < due[j].deadline
		}
		return due[i].seq < due[j].seq
	})
	return due[0]
}
