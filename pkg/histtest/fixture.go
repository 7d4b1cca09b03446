package histtest

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/vango-dev/statehistory/pkg/loop"
	"github.com/vango-dev/statehistory/pkg/methods"
	"github.com/vango-dev/statehistory/pkg/navigation"
	"github.com/vango-dev/statehistory/pkg/snapshot"
)

// Fixture is a Sync wired to deterministic collaborators.
type Fixture struct {
	Scheduler *loop.Manual
	Host      *navigation.Memory
	Sync      *methods.Sync

	// Ctx carries Sync for methods.Create.
	Ctx context.Context

	t testing.TB
}

// New creates a fixture. Logs are discarded unless opts override the
// logger. The Sync is closed when the test ends.
func New(t testing.TB, opts ...methods.Option) *Fixture {
	t.Helper()

	sched := loop.NewManual()
	host := navigation.NewMemory(navigation.WithPoster(sched))

	all := append([]methods.Option{
		methods.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	s := methods.New(host, sched, all...)
	t.Cleanup(s.Close)

	return &Fixture{
		Scheduler: sched,
		Host:      host,
		Sync:      s,
		Ctx:       methods.NewContext(context.Background(), s),
		t:         t,
	}
}

// Settle runs every pending timer and callback.
func (f *Fixture) Settle() {
	f.Scheduler.Settle()
}

// Back navigates back and delivers the notification.
func (f *Fixture) Back() bool {
	ok := f.Host.Back()
	f.Scheduler.Flush()
	return ok
}

// Forward navigates forward and delivers the notification.
func (f *Fixture) Forward() bool {
	ok := f.Host.Forward()
	f.Scheduler.Flush()
	return ok
}

// Stack decodes the host entry at position i.
func (f *Fixture) Stack(i int) snapshot.Stack {
	f.t.Helper()
	p, err := snapshot.Decode(f.Host.Entry(i))
	if err != nil {
		f.t.Fatalf("history entry %d: %v", i, err)
	}
	return p.Stack
}

// CurrentStack decodes the host's current entry.
func (f *Fixture) CurrentStack() snapshot.Stack {
	f.t.Helper()
	return f.Stack(f.Host.Index())
}

// Diagnostics drains the Sync's diagnostic channel.
func (f *Fixture) Diagnostics() []methods.Diagnostic {
	var out []methods.Diagnostic
	for {
		select {
		case d := <-f.Sync.Diagnostics():
			out = append(out, d)
		default:
			return out
		}
	}
}

// Kinds drains the diagnostic channel and returns just the kinds.
func (f *Fixture) Kinds() []methods.DiagnosticKind {
	diags := f.Diagnostics()
	kinds := make([]methods.DiagnosticKind, len(diags))
	for i, d := range diags {
		kinds[i] = d.Kind
	}
	return kinds
}
