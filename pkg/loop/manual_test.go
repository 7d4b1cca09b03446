package loop

import (
	"testing"
	"time"
)

func TestManualPostAndFlush(t *testing.T) {
	m := NewManual()
	var order []string
	m.Post(func() {
		order = append(order, "a")
		m.Post(func() { order = append(order, "c") })
	})
	m.Post(func() { order = append(order, "b") })

	if n := m.Flush(); n != 3 {
		t.Errorf("Flush() = %d, want 3", n)
	}
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("order = %v", order)
	}
}

func TestManualAdvance(t *testing.T) {
	m := NewManual()
	var fired []time.Duration
	m.AfterFunc(20*time.Millisecond, func() { fired = append(fired, m.Now()) })
	m.AfterFunc(10*time.Millisecond, func() { fired = append(fired, m.Now()) })

	m.Advance(5 * time.Millisecond)
	if len(fired) != 0 {
		t.Fatalf("timers fired early: %v", fired)
	}

	m.Advance(20 * time.Millisecond)
	if len(fired) != 2 {
		t.Fatalf("fired = %v, want 2", fired)
	}
	if fired[0] != 10*time.Millisecond || fired[1] != 20*time.Millisecond {
		t.Errorf("fire times = %v", fired)
	}
	if m.Now() != 25*time.Millisecond {
		t.Errorf("Now() = %v", m.Now())
	}
}

func TestManualStop(t *testing.T) {
	m := NewManual()
	ran := false
	tm := m.AfterFunc(time.Millisecond, func() { ran = true })
	if !tm.Stop() {
		t.Error("first Stop() should return true")
	}
	if tm.Stop() {
		t.Error("second Stop() should return false")
	}
	m.Settle()
	if ran {
		t.Error("stopped timer ran")
	}
	if timers, queued := m.Pending(); timers != 0 || queued != 0 {
		t.Errorf("Pending() = %d, %d", timers, queued)
	}
}

func TestManualSettleChains(t *testing.T) {
	m := NewManual()
	count := 0
	var arm func()
	arm = func() {
		count++
		if count < 3 {
			m.AfterFunc(time.Millisecond, arm)
		}
	}
	m.AfterFunc(time.Millisecond, arm)

	m.Settle()
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}
