package methods

import (
	"strconv"
	"sync"
)

const autoKeyPrefix = "_auto"

// topKey is given to the first unkeyed container of an empty registry.
const topKey = "_top"

// Registry is the live set of containers for one component tree.
// Enumeration follows insertion order.
type Registry struct {
	mu         sync.Mutex
	containers []*Container
	nextAuto   int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{nextAuto: 1}
}

// Len returns the number of registered containers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.containers)
}

// Containers returns the registered containers in enumeration order.
// The slice is a copy, so callers may create or unmount containers while
// walking it.
func (r *Registry) Containers() []*Container {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Container, len(r.containers))
	copy(out, r.containers)
	return out
}

// Keys returns the registered keys in enumeration order.
func (r *Registry) Keys() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, len(r.containers))
	for i, c := range r.containers {
		keys[i] = c.key
	}
	return keys
}

// Lookup returns the registered container holding key.
func (r *Registry) Lookup(key string) (*Container, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.containers {
		if c.key == key {
			return c, true
		}
	}
	return nil, false
}

// Reset drops every container and restarts key generation. Dropped
// containers are marked purged.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.containers {
		c.status = Purged
		c.onChange = nil
	}
	r.containers = nil
	r.nextAuto = 1
}

func (r *Registry) add(c *Container) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.containers = append(r.containers, c)
}

func (r *Registry) remove(c *Container) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, other := range r.containers {
		if other == c {
			r.containers = append(r.containers[:i], r.containers[i+1:]...)
			return true
		}
	}
	return false
}

// autoKey generates a key for an unkeyed container.
func (r *Registry) autoKey() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.containers) == 0 {
		return topKey
	}
	key := autoKeyPrefix + strconv.Itoa(r.nextAuto)
	r.nextAuto++
	return key
}
