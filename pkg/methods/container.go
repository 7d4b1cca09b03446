package methods

import (
	"github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/pkg/snapshot"
)

// Status is the registry lifecycle state of a container.
type Status uint8

const (
	// Live containers are mounted and re-render on dispatch.
	Live Status = iota + 1

	// Detached containers were unmounted with an explicit key. They keep
	// their record so a later container with the same key can take it over.
	Detached

	// Purged containers are gone from the registry for good.
	Purged
)

// String returns a human-readable name for the status.
func (s Status) String() string {
	switch s {
	case Live:
		return "live"
	case Detached:
		return "detached"
	case Purged:
		return "purged"
	default:
		return "unknown"
	}
}

// Container owns one Record, its key, and the dispatch channel to the
// component that mounted it.
type Container struct {
	key      string
	explicit bool
	record   *Record
	cell     *reducer
	initial  State
	status   Status

	// shadow containers lost a key collision and are kept out of the
	// registry, so they never take part in capture or reconciliation.
	shadow bool

	onChange func(version uint64)
	sync     *Sync
}

// Key returns the container's key. Autogenerated keys are returned too.
func (c *Container) Key() string {
	return c.key
}

// Explicit reports whether the key was supplied by the caller.
func (c *Container) Explicit() bool {
	return c.explicit
}

// Status returns the lifecycle state.
func (c *Container) Status() Status {
	return c.status
}

// Shadowed reports whether the container lost a key collision.
func (c *Container) Shadowed() bool {
	return c.shadow
}

// Record returns the container's record after checking that it is still
// the record the reducer mutates.
func (c *Container) Record() *Record {
	c.verify()
	return c.record
}

// Dispatch merges partial into the record and signals a re-render.
func (c *Container) Dispatch(partial State) {
	c.apply(partial, nil)
}

// Reset restores the initial fields in place and triggers a re-render.
func (c *Container) Reset() {
	if c.status == Purged {
		c.sync.report(Diagnostic{Kind: DispatchAfterPurge, Key: c.key, Err: errors.New("SH006")})
		return
	}
	before := c.record.Fields()
	c.record.reset(c.initial)
	changed := !snapshot.Equal(before, c.record.fields)

	c.apply(State{}, nil)
	if changed {
		c.sync.scheduleCapture(commitPush)
	}
}

// Unmount tears the container down. Containers with an explicit key are
// retained as Detached; all others are purged. Calling Unmount twice is a
// no-op.
func (c *Container) Unmount() {
	if c.status != Live {
		return
	}
	c.onChange = nil

	switch {
	case c.shadow:
		c.status = Purged
	case c.explicit:
		c.status = Detached
		c.sync.logger.Debug("container detached", "key", c.key)
	default:
		c.sync.registry.remove(c)
		c.status = Purged
		c.sync.logger.Debug("container purged", "key", c.key)
	}
}

// verify panics with SH003 if the reducer cell and the container disagree
// on the record: every bound method would read stale data otherwise.
func (c *Container) verify() {
	if c.cell.record != c.record {
		panic(errors.New("SH003").WithDetail("container " + c.key))
	}
}
