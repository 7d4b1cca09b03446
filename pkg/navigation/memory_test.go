package navigation

import (
	"context"
	"testing"

	"github.com/vango-dev/statehistory/pkg/loop"
)

func TestMemoryPushAndNavigate(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	if m.Len() != 1 || m.Index() != 0 {
		t.Fatalf("new Memory: len=%d index=%d", m.Len(), m.Index())
	}
	if cur, ok := m.Current(); !ok || cur != nil {
		t.Errorf("initial Current() = %q, %v", cur, ok)
	}

	_ = m.Push(ctx, []byte("a"))
	_ = m.Push(ctx, []byte("b"))

	var got []string
	cancel := m.Subscribe(func(p []byte) { got = append(got, string(p)) })

	if !m.Back() {
		t.Fatal("Back() = false")
	}
	if !m.Back() {
		t.Fatal("second Back() = false")
	}
	if m.Back() {
		t.Error("Back() past start should fail")
	}
	if !m.Forward() {
		t.Fatal("Forward() = false")
	}

	want := []string{"a", "", "a"}
	if len(got) != len(want) {
		t.Fatalf("notifications = %q, want %q", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("notification %d = %q, want %q", i, got[i], want[i])
		}
	}

	cancel()
	m.Forward()
	if len(got) != 3 {
		t.Error("canceled subscriber was notified")
	}
}

func TestMemoryPushTruncatesForward(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	_ = m.Push(ctx, []byte("a"))
	_ = m.Push(ctx, []byte("b"))
	m.Back()
	_ = m.Push(ctx, []byte("c"))

	if m.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", m.Len())
	}
	if string(m.Entry(2)) != "c" {
		t.Errorf("Entry(2) = %q", m.Entry(2))
	}
	if m.Forward() {
		t.Error("forward entries should be dropped after push")
	}
}

func TestMemoryReplaceAndIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	buf := []byte("first")
	_ = m.Replace(ctx, buf)
	buf[0] = 'X'

	cur, _ := m.Current()
	if string(cur) != "first" {
		t.Errorf("Current() = %q, stored payload was aliased", cur)
	}
	cur[0] = 'Y'
	if string(m.Entry(0)) != "first" {
		t.Error("Current() returned aliased bytes")
	}
	if m.Len() != 1 {
		t.Errorf("Replace should not add entries, Len() = %d", m.Len())
	}
}

func TestMemoryCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMemory()
	if err := m.Push(ctx, []byte("a")); err == nil {
		t.Error("Push with canceled context should fail")
	}
	if err := m.Replace(ctx, []byte("a")); err == nil {
		t.Error("Replace with canceled context should fail")
	}
}

func TestMemoryWithPoster(t *testing.T) {
	sched := loop.NewManual()
	m := NewMemory(WithPoster(sched))
	m.PushForeign([]byte("route"))

	var got []string
	m.Subscribe(func(p []byte) { got = append(got, string(p)) })
	m.Back()

	if len(got) != 0 {
		t.Fatal("notification should wait for the loop")
	}
	sched.Flush()
	if len(got) != 1 || got[0] != "" {
		t.Errorf("got %q", got)
	}
}
