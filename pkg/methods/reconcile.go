package methods

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/attribute"

	"github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/pkg/snapshot"
)

// Result summarizes one reconciliation.
type Result struct {
	// Total is the stack length.
	Total int

	// Matched is the number of stack entries matched to a container.
	Matched int

	// Applied is the number of matched entries whose state differed and
	// was written back.
	Applied int

	// Passes is the number of registry walks performed.
	Passes int
}

// Unmatched returns the number of entries dropped for this event.
func (r Result) Unmatched() int {
	return r.Total - r.Matched
}

// Complete reports whether every entry was matched.
func (r Result) Complete() bool {
	return r.Matched == r.Total
}

// Reconcile decodes a stored history payload and reapplies it. Payloads
// not written by this package are ignored with a diagnostic.
func (s *Sync) Reconcile(ctx context.Context, payload []byte) Result {
	p, err := snapshot.Decode(payload)
	if err != nil {
		s.metrics.reconciliations.WithLabelValues("malformed").Inc()
		s.report(Diagnostic{Kind: MalformedPayload, Err: errors.FromError(err, "SH004")})
		return Result{}
	}
	return s.ReconcileStack(ctx, p.Stack)
}

// ReconcileStack reapplies stack onto the registry.
//
// The registry is walked in enumeration order while a cursor moves through
// the stack: a container whose key equals the entry under the cursor gets
// that entry's state and advances the cursor; any other container is
// skipped. Because enumeration order need not match stack order, the walk
// is repeated from the cursor for as long as each walk advances it. The
// loop ends on a full match or on a walk that matches nothing, so it
// always terminates after at most len(stack) walks.
func (s *Sync) ReconcileStack(ctx context.Context, stack snapshot.Stack) Result {
	_, span := s.tracer.Start(ctx, "statehistory.reconcile")
	defer span.End()

	// A capture armed before navigation would overwrite the entry being
	// restored.
	s.cancelCapture()

	tok := &replayToken{}
	res := Result{Total: len(stack)}

	i := 0
	next := s.reconcilePass(ctx, stack, i, tok)
	res.Passes = 1
	for next < len(stack) && next > i {
		i = next
		next = s.reconcilePass(ctx, stack, i, tok)
		res.Passes++
	}
	res.Matched = next
	res.Applied = tok.applied

	span.SetAttributes(
		attribute.Int("statehistory.stack_len", res.Total),
		attribute.Int("statehistory.matched", res.Matched),
		attribute.Int("statehistory.applied", res.Applied),
		attribute.Int("statehistory.passes", res.Passes),
	)
	s.metrics.entriesApplied.Add(float64(res.Applied))

	if !res.Complete() {
		s.metrics.reconciliations.WithLabelValues("partial").Inc()
		s.report(Diagnostic{
			Kind:      PartialReconciliation,
			Unmatched: res.Unmatched(),
			Err: errors.New("SH002").WithDetail(
				fmt.Sprintf("%d of %d entries unmatched", res.Unmatched(), res.Total)),
		})
		return res
	}
	s.metrics.reconciliations.WithLabelValues("complete").Inc()
	s.logger.Debug("reconciled state history",
		"entries", res.Total, "applied", res.Applied, "passes", res.Passes)
	return res
}

// reconcilePass walks the registry once starting at stack position i and
// returns the position reached.
func (s *Sync) reconcilePass(ctx context.Context, stack snapshot.Stack, i int, tok *replayToken) int {
	for _, c := range s.registry.Containers() {
		if i >= len(stack) {
			break
		}
		entry := stack[i]
		if c.key != entry.Key {
			continue
		}
		if !snapshot.Equal(c.record.fields, entry.State) {
			s.logApply(ctx, c, entry.State)
			c.apply(entry.State, tok)
		}
		i++
	}
	return i
}

func (s *Sync) logApply(ctx context.Context, c *Container, recorded snapshot.State) {
	if !s.logger.Enabled(ctx, slog.LevelDebug) {
		return
	}
	delta, err := snapshot.Delta(c.record.fields, recorded)
	if err != nil {
		delta = []byte("?")
	}
	s.logger.Debug("restoring container",
		"key", c.key,
		"status", c.status.String(),
		"delta", string(delta))
}
