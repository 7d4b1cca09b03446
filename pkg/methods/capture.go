package methods

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/pkg/snapshot"
)

// commitMode selects how a capture is written to the host.
type commitMode uint8

const (
	commitNone commitMode = iota

	// commitReplace tags the current entry without adding a step. Used
	// once, when the first container mounts on an untagged entry.
	commitReplace

	// commitPush adds a history step for a genuine state change.
	commitPush
)

func (m commitMode) String() string {
	switch m {
	case commitReplace:
		return "replace"
	case commitPush:
		return "push"
	default:
		return "none"
	}
}

// scheduleCapture restarts the debounce timer. A push request wins over a
// pending replace; a replace never downgrades a pending push.
func (s *Sync) scheduleCapture(mode commitMode) {
	if s.host == nil {
		return
	}
	if mode > s.pending {
		s.pending = mode
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = s.scheduler.AfterFunc(s.debounce, func() {
		if gen != s.gen {
			return
		}
		// Commit on the next tick, after the renders the burst caused.
		s.scheduler.Post(func() {
			if gen != s.gen {
				return
			}
			mode := s.pending
			s.timer = nil
			s.pending = commitNone
			s.commit(context.Background(), mode)
		})
	})
}

// cancelCapture drops any pending capture.
func (s *Sync) cancelCapture() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.gen++
	s.pending = commitNone
}

// tagIfUntagged arms a replace capture when the host's current entry was
// not written by this package, so the entry carries a stack before the
// user first navigates away from it.
func (s *Sync) tagIfUntagged() {
	if s.host == nil {
		return
	}
	cur, ok := s.host.Current()
	if ok && snapshot.IsTagged(cur) {
		return
	}
	s.scheduleCapture(commitReplace)
}

// Capture snapshots every registered container in enumeration order.
func (s *Sync) Capture() snapshot.Stack {
	containers := s.registry.Containers()
	stack := make(snapshot.Stack, 0, len(containers))
	for _, c := range containers {
		stack = append(stack, snapshot.Entry{Key: c.key, State: c.record.Fields()})
	}
	return stack
}

// Flush commits a pending capture immediately instead of waiting for the
// debounce. It reports whether anything was committed.
func (s *Sync) Flush(ctx context.Context) bool {
	mode := s.pending
	if mode == commitNone {
		return false
	}
	s.cancelCapture()
	s.commit(ctx, mode)
	return true
}

// Commits returns the number of stacks written to the host.
func (s *Sync) Commits() int {
	return s.committed
}

func (s *Sync) commit(ctx context.Context, mode commitMode) {
	if s.host == nil || mode == commitNone {
		return
	}
	ctx, span := s.tracer.Start(ctx, "statehistory.capture")
	defer span.End()

	stack := s.Capture()
	data, err := snapshot.NewPayload(stack).Encode()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.report(Diagnostic{Kind: HostFailure, Err: errors.New("SH005").Wrap(err)})
		return
	}

	span.SetAttributes(
		attribute.String("statehistory.mode", mode.String()),
		attribute.Int("statehistory.stack_len", len(stack)),
	)

	if mode == commitReplace {
		err = s.host.Replace(ctx, data)
	} else {
		err = s.host.Push(ctx, data)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.report(Diagnostic{Kind: HostFailure, Err: errors.New("SH005").WithDetail(mode.String()).Wrap(err)})
		return
	}

	s.committed++
	s.metrics.captures.WithLabelValues(mode.String()).Inc()
	s.metrics.stackSize.Observe(float64(len(stack)))
	s.logger.Debug("captured state history", "mode", mode.String(), "entries", len(stack))
}
