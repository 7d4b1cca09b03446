package methods

import (
	"github.com/vango-dev/statehistory/internal/errors"
)

// Dispatch merges partial into a container's record.
type Dispatch func(partial State)

// reducer is the state cell behind a container. It holds the record it
// mutates; the container verifies it is the same record it handed out.
type reducer struct {
	record *Record
}

// replayToken marks a dispatch as part of a reconciliation replay. Only
// holders of a token skip capture scheduling.
type replayToken struct {
	applied int
}

// apply runs partial through the reducer. Live containers re-render;
// detached ones are overwritten in place with no dispatch channel to
// notify. Non-empty dispatches outside a replay schedule a capture.
func (c *Container) apply(partial State, tok *replayToken) {
	c.verify()

	switch c.status {
	case Purged:
		c.sync.report(Diagnostic{Kind: DispatchAfterPurge, Key: c.key, Err: errors.New("SH006")})
		return
	case Detached:
		c.cell.record.merge(partial)
	default:
		c.cell.record.merge(partial)
		if c.onChange != nil {
			c.onChange(c.record.version)
		}
	}

	if tok != nil {
		tok.applied++
		return
	}
	if len(partial) > 0 {
		c.sync.scheduleCapture(commitPush)
	}
}
