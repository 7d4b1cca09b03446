package navigation

import (
	"context"
	"sync"
)

// Memory is an in-process history with a cursor. It starts with a single
// untagged entry, like a freshly loaded browser tab whose history.state is
// null.
type Memory struct {
	mu      sync.Mutex
	entries [][]byte
	index   int
	subs    subscribers
	poster  Poster
}

// MemoryOption configures a Memory host.
type MemoryOption func(*Memory)

// WithPoster delivers pop notifications through p instead of calling
// subscribers synchronously.
func WithPoster(p Poster) MemoryOption {
	return func(m *Memory) {
		m.poster = p
	}
}

// NewMemory creates a Memory host.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{entries: [][]byte{nil}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Push implements Host.
func (m *Memory) Push(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:m.index+1], clone(payload))
	m.index++
	return nil
}

// PushForeign appends an entry not written by the state engine, such as a
// route change handled elsewhere.
func (m *Memory) PushForeign(payload []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries[:m.index+1], clone(payload))
	m.index++
}

// Replace implements Host.
func (m *Memory) Replace(ctx context.Context, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[m.index] = clone(payload)
	return nil
}

// Current implements Host.
func (m *Memory) Current() ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.entries[m.index]), true
}

// Subscribe implements Host.
func (m *Memory) Subscribe(fn func([]byte)) func() {
	m.mu.Lock()
	id := m.subs.add(fn)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs.fns, id)
		m.mu.Unlock()
	}
}

// Len returns the number of entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Index returns the cursor position.
func (m *Memory) Index() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index
}

// Entry returns a copy of the payload at position i.
func (m *Memory) Entry(i int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i < 0 || i >= len(m.entries) {
		return nil
	}
	return clone(m.entries[i])
}

// Back moves one entry back. It reports false at the start of history.
func (m *Memory) Back() bool {
	return m.Go(-1)
}

// Forward moves one entry forward. It reports false at the end of history.
func (m *Memory) Forward() bool {
	return m.Go(1)
}

// Go moves the cursor by delta entries and notifies subscribers with the
// payload that became current. Out-of-range moves are ignored.
func (m *Memory) Go(delta int) bool {
	m.mu.Lock()
	target := m.index + delta
	if delta == 0 || target < 0 || target >= len(m.entries) {
		m.mu.Unlock()
		return false
	}
	m.index = target
	payload := m.entries[target]
	fns := m.subs.snapshot()
	poster := m.poster
	m.mu.Unlock()

	for _, fn := range fns {
		fn := fn
		data := clone(payload)
		if poster != nil {
			poster.Post(func() { fn(data) })
			continue
		}
		fn(data)
	}
	return true
}

func clone(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
