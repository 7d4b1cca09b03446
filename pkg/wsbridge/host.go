package wsbridge

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/vango-dev/statehistory/internal/errors"
)

// host is the navigation.Host for one browser tab. Writes are forwarded as
// push/replace frames; the tab's popstate events come back through pop.
type host struct {
	conn *Conn

	mu      sync.Mutex
	current []byte
	known   bool
	nextSub int
	subs    map[int]func([]byte)
}

func newHost(c *Conn) *host {
	return &host{conn: c, subs: make(map[int]func([]byte))}
}

func (h *host) Push(ctx context.Context, payload []byte) error {
	return h.write(ctx, TypePush, payload)
}

func (h *host) Replace(ctx context.Context, payload []byte) error {
	return h.write(ctx, TypeReplace, payload)
}

func (h *host) write(ctx context.Context, typ MessageType, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := h.conn.send(&Message{Type: typ, State: json.RawMessage(payload)}); err != nil {
		return errors.New("SH202").Wrap(err)
	}
	h.setCurrent(payload)
	return nil
}

func (h *host) Current() ([]byte, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current, h.known
}

func (h *host) Subscribe(fn func([]byte)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.nextSub++
	id := h.nextSub
	h.subs[id] = fn
	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		delete(h.subs, id)
	}
}

func (h *host) setCurrent(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.current = append([]byte(nil), payload...)
	h.known = true
}

// pop records the tab's new current entry and notifies subscribers. It
// must run on the connection's loop.
func (h *host) pop(payload []byte) {
	h.setCurrent(payload)

	h.mu.Lock()
	fns := make([]func([]byte), 0, len(h.subs))
	for id := 1; id <= h.nextSub; id++ {
		if fn, ok := h.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	h.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}
