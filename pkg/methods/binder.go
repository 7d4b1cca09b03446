package methods

import (
	"context"
	"fmt"
	"reflect"

	"github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/pkg/snapshot"
)

// Factory builds a component's actions around its dispatch function and
// record. Both arguments are stable for the container's lifetime, so the
// actions may capture them.
type Factory[M any] func(dispatch Dispatch, state *Record) M

// Keys identifies a child element: RenderKey distinguishes it among its
// siblings, ChildKey is the container key to hand to the child's own
// container. ChildKey is empty when the parent has no explicit key.
type Keys struct {
	RenderKey string
	ChildKey  string
}

// Restorable reports whether a child created with these keys can be
// restored from history.
func (k Keys) Restorable() bool {
	return k.ChildKey != ""
}

// KeySeparator joins a parent key and a child discriminant.
const KeySeparator = "."

// Methods is the public mutation surface of one container.
type Methods[M any] struct {
	c       *Container
	actions M
	deps    []any
}

// CreateOption configures Create.
type CreateOption func(*createConfig)

type createConfig struct {
	key      string
	deps     []any
	onChange func(version uint64)
}

// WithKey gives the container an explicit key. Only explicitly keyed
// containers are restored after unmount.
func WithKey(key string) CreateOption {
	return func(c *createConfig) {
		c.key = key
	}
}

// WithDeps sets the initial dependency list for Rebind.
func WithDeps(deps ...any) CreateOption {
	return func(c *createConfig) {
		c.deps = deps
	}
}

// OnChange registers the re-render signal. It is called with the record
// version after every dispatch while the container is mounted.
func OnChange(fn func(version uint64)) CreateOption {
	return func(c *createConfig) {
		c.onChange = fn
	}
}

// Create creates and mounts a container using the Sync carried by ctx.
// Without one, the container works standalone and is never synced.
func Create[M any](ctx context.Context, factory Factory[M], initial State, opts ...CreateOption) (*Record, *Methods[M]) {
	s, ok := FromContext(ctx)
	if !ok {
		s = New(nil, nil)
	}
	return Use(s, factory, initial, opts...)
}

// Use creates and mounts a container in s.
//
// With an explicit key that matches a detached container, the new
// container starts from the detached container's state and the detached
// container is purged. With a key held by a mounted container, the
// collision is reported and the new container runs shadowed: it works but
// is never captured or restored.
func Use[M any](s *Sync, factory Factory[M], initial State, opts ...CreateOption) (*Record, *Methods[M]) {
	var cfg createConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	start := initial
	c := &Container{
		key:      cfg.key,
		explicit: cfg.key != "",
		initial:  snapshot.Clone(initial),
		status:   Live,
		onChange: cfg.onChange,
		sync:     s,
	}

	if s.Tracking() {
		if c.explicit {
			if prev, ok := s.registry.Lookup(c.key); ok {
				switch prev.status {
				case Detached:
					start = prev.record.fields
					s.registry.remove(prev)
					prev.status = Purged
					s.logger.Debug("container rehydrated", "key", c.key)
				default:
					c.shadow = true
					s.report(Diagnostic{
						Kind: KeyCollision,
						Key:  c.key,
						Err:  errors.New("SH001").WithDetail(fmt.Sprintf("key %q is held by a mounted container", c.key)),
					})
				}
			}
		} else {
			c.key = s.registry.autoKey()
		}
	}

	c.record = newRecord(start)
	c.cell = &reducer{record: c.record}

	if s.Tracking() && !c.shadow {
		s.registry.add(c)
		s.tagIfUntagged()
	}
	s.metrics.containersCreated.Inc()

	m := &Methods[M]{c: c, deps: cfg.deps}
	m.actions = factory(c.Dispatch, c.record)
	return c.record, m
}

// Actions returns the actions built by the factory.
func (m *Methods[M]) Actions() M {
	m.c.verify()
	return m.actions
}

// State returns the container's record.
func (m *Methods[M]) State() *Record {
	return m.c.Record()
}

// Container returns the underlying container.
func (m *Methods[M]) Container() *Container {
	return m.c
}

// Reset restores the initial state.
func (m *Methods[M]) Reset() {
	m.c.Reset()
}

// SetState merges partial into the record.
func (m *Methods[M]) SetState(partial State) {
	m.c.Dispatch(partial)
}

// Keys derives the render key and child container key for discriminant,
// which is formatted with fmt.Sprint. An empty render key yields no child
// key.
func (m *Methods[M]) Keys(discriminant any) Keys {
	k := Keys{RenderKey: fmt.Sprint(discriminant)}
	if m.c.explicit && k.RenderKey != "" {
		k.ChildKey = m.c.key + KeySeparator + k.RenderKey
	}
	return k
}

// Rebind rebuilds the actions with factory when deps differ from the
// previous call, and reports whether it did. The record keeps its identity
// either way.
func (m *Methods[M]) Rebind(factory Factory[M], deps ...any) bool {
	if depsEqual(m.deps, deps) {
		return false
	}
	m.c.verify()
	m.deps = deps
	m.actions = factory(m.c.Dispatch, m.c.record)
	return true
}

// Unmount tears the container down.
func (m *Methods[M]) Unmount() {
	m.c.Unmount()
}

// depsEqual compares dependency lists element by element: comparable
// values by ==, everything else structurally.
func depsEqual(a, b []any) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		x, y := a[i], b[i]
		if x == nil || y == nil {
			if x != y {
				return false
			}
			continue
		}
		tx, ty := reflect.TypeOf(x), reflect.TypeOf(y)
		if tx != ty {
			return false
		}
		if tx.Comparable() {
			if x != y {
				return false
			}
			continue
		}
		if !snapshot.EqualValues(x, y) {
			return false
		}
	}
	return true
}
