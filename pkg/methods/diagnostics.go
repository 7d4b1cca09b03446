package methods

import (
	"context"
	"log/slog"

	"github.com/vango-dev/statehistory/internal/errors"
)

// DiagnosticKind classifies a recoverable condition.
type DiagnosticKind string

const (
	KeyCollision          DiagnosticKind = "key_collision"
	PartialReconciliation DiagnosticKind = "partial_reconciliation"
	MalformedPayload      DiagnosticKind = "malformed_payload"
	HostFailure           DiagnosticKind = "host_failure"
	DispatchAfterPurge    DiagnosticKind = "dispatch_after_purge"
)

// Diagnostic reports a condition that was handled without interrupting
// the UI.
type Diagnostic struct {
	Kind DiagnosticKind

	// Key is the container key involved, if any.
	Key string

	// Unmatched is the number of stack entries left unapplied by a
	// partial reconciliation.
	Unmatched int

	// Err carries the coded error.
	Err *errors.Error
}

// report logs d and offers it on the diagnostic channel without blocking.
func (s *Sync) report(d Diagnostic) {
	attrs := []any{"kind", string(d.Kind)}
	if d.Key != "" {
		attrs = append(attrs, "key", d.Key)
	}
	if d.Unmatched > 0 {
		attrs = append(attrs, "unmatched", d.Unmatched)
	}
	if d.Err != nil {
		attrs = append(attrs, "code", d.Err.Code, "error", d.Err.Error())
	}
	s.logger.Log(context.Background(), levelFor(d.Kind), "state history diagnostic", attrs...)
	s.metrics.diagnostics.WithLabelValues(string(d.Kind)).Inc()

	select {
	case s.diags <- d:
	default:
		s.metrics.diagnosticsDropped.Inc()
	}
}

func levelFor(kind DiagnosticKind) slog.Level {
	switch kind {
	case HostFailure:
		return slog.LevelError
	case PartialReconciliation:
		return slog.LevelInfo
	default:
		return slog.LevelWarn
	}
}
