package navigation

import (
	"context"
)

// Host is the navigation-history boundary.
type Host interface {
	// Push appends payload as a new entry after the current one.
	Push(ctx context.Context, payload []byte) error

	// Replace overwrites the payload of the current entry.
	Replace(ctx context.Context, payload []byte) error

	// Current returns the payload of the current entry. ok is false when
	// the host does not know it yet.
	Current() (payload []byte, ok bool)

	// Subscribe registers fn to receive the payload of the entry that
	// becomes current after a back/forward move. The payload may be nil
	// for entries this package did not write.
	Subscribe(fn func(payload []byte)) (cancel func())
}

// Poster delivers callbacks onto an event loop. loop.Scheduler satisfies it.
type Poster interface {
	Post(fn func())
}

type subscribers struct {
	next int
	fns  map[int]func([]byte)
}

func (s *subscribers) add(fn func([]byte)) int {
	if s.fns == nil {
		s.fns = make(map[int]func([]byte))
	}
	s.next++
	s.fns[s.next] = fn
	return s.next
}

func (s *subscribers) snapshot() []func([]byte) {
	out := make([]func([]byte), 0, len(s.fns))
	for id := 1; id <= s.next; id++ {
		if fn, ok := s.fns[id]; ok {
			out = append(out, fn)
		}
	}
	return out
}
