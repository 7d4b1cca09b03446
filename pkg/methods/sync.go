package methods

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/statehistory/pkg/loop"
	"github.com/vango-dev/statehistory/pkg/navigation"
)

// DefaultDebounce is the quiet period after the last dispatch before a
// capture is committed.
const DefaultDebounce = 16 * time.Millisecond

// DefaultDiagnosticsBuffer is the capacity of the diagnostic channel.
const DefaultDiagnosticsBuffer = 64

const tracerName = "github.com/vango-dev/statehistory/pkg/methods"

// Sync ties a Registry to a navigation Host: it captures the registry into
// the host after dispatches and reconciles stored stacks back into the
// registry on back/forward navigation.
//
// A Sync and every container it owns must only be used from the goroutine
// that runs its scheduler.
type Sync struct {
	registry  *Registry
	host      navigation.Host
	scheduler loop.Scheduler
	debounce  time.Duration

	logger  *slog.Logger
	metrics *Metrics
	tracer  trace.Tracer
	diags   chan Diagnostic

	// capture pipeline state
	timer     loop.Timer
	gen       uint64
	pending   commitMode
	committed int

	unsubscribe func()
}

// Option configures a Sync.
type Option func(*Sync)

// WithRegistry uses r instead of a fresh registry.
func WithRegistry(r *Registry) Option {
	return func(s *Sync) {
		s.registry = r
	}
}

// WithDebounce sets the capture debounce window.
func WithDebounce(d time.Duration) Option {
	return func(s *Sync) {
		s.debounce = d
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Sync) {
		s.logger = l
	}
}

// WithMetrics records into m.
func WithMetrics(m *Metrics) Option {
	return func(s *Sync) {
		s.metrics = m
	}
}

// WithTracer sets the tracer used for capture and reconcile spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Sync) {
		s.tracer = t
	}
}

// WithDiagnosticsBuffer sets the diagnostic channel capacity.
func WithDiagnosticsBuffer(n int) Option {
	return func(s *Sync) {
		if n >= 0 {
			s.diags = make(chan Diagnostic, n)
		}
	}
}

// New creates a Sync and subscribes it to host's back/forward
// notifications. A nil host puts the Sync in render-only mode: containers
// work but are never registered, captured or restored, as when rendering
// on a server with no history to sync with.
func New(host navigation.Host, sched loop.Scheduler, opts ...Option) *Sync {
	s := &Sync{
		host:      host,
		scheduler: sched,
		debounce:  DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "statehistory")
	if s.metrics == nil {
		s.metrics = NewMetrics(nil, "")
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	if s.diags == nil {
		s.diags = make(chan Diagnostic, DefaultDiagnosticsBuffer)
	}

	if host != nil {
		if sched == nil {
			panic("methods: New requires a scheduler when a host is set")
		}
		s.unsubscribe = host.Subscribe(func(payload []byte) {
			s.Reconcile(context.Background(), payload)
		})
	}
	return s
}

// Registry returns the registry this Sync captures.
func (s *Sync) Registry() *Registry {
	return s.registry
}

// Diagnostics returns the channel recoverable conditions are reported on.
// Reports are dropped when nobody drains it.
func (s *Sync) Diagnostics() <-chan Diagnostic {
	return s.diags
}

// Tracking reports whether the Sync is attached to a navigation host.
func (s *Sync) Tracking() bool {
	return s.host != nil
}

// Close cancels any pending capture and stops listening to the host.
func (s *Sync) Close() {
	s.cancelCapture()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

type syncKey struct{}

// NewContext returns a context carrying s. Create resolves its Sync from
// it, which lets independent component trees use independent registries.
func NewContext(ctx context.Context, s *Sync) context.Context {
	return context.WithValue(ctx, syncKey{}, s)
}

// FromContext returns the Sync carried by ctx.
func FromContext(ctx context.Context) (*Sync, bool) {
	s, ok := ctx.Value(syncKey{}).(*Sync)
	return s, ok && s != nil
}
