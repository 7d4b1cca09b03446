package loop

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned when work is submitted to a stopped loop.
var ErrClosed = errors.New("loop: closed")

// Timer is a pending AfterFunc callback.
type Timer interface {
	// Stop prevents the callback from being posted. It reports whether the
	// call stopped the timer.
	Stop() bool
}

// Scheduler runs callbacks on a single cooperative event loop.
type Scheduler interface {
	// AfterFunc posts fn to the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer

	// Post queues fn to run on the loop after the work already queued.
	Post(fn func())
}

// EventLoop executes posted callbacks one at a time on its own goroutine.
type EventLoop struct {
	queue  chan func()
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
	logger *slog.Logger
}

// NewEventLoop creates a loop with the given queue capacity. Call Run to
// start draining it.
func NewEventLoop(capacity int, logger *slog.Logger) *EventLoop {
	if capacity <= 0 {
		capacity = 256
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &EventLoop{
		queue:  make(chan func(), capacity),
		done:   make(chan struct{}),
		logger: logger.With("component", "loop"),
	}
}

// Run drains the queue until ctx is canceled or Stop is called.
func (l *EventLoop) Run(ctx context.Context) {
	for {
		select {
		case fn := <-l.queue:
			l.execute(fn)
		case <-ctx.Done():
			l.Stop()
			return
		case <-l.done:
			return
		}
	}
}

// Stop shuts the loop down. Pending callbacks are discarded.
func (l *EventLoop) Stop() {
	l.once.Do(func() {
		l.closed.Store(true)
		close(l.done)
	})
}

// Done is closed when the loop stops.
func (l *EventLoop) Done() <-chan struct{} {
	return l.done
}

// Post queues fn. It never blocks: when the queue is full the callback is
// dropped and logged.
func (l *EventLoop) Post(fn func()) {
	if l.closed.Load() {
		return
	}
	select {
	case l.queue <- fn:
	case <-l.done:
	default:
		l.logger.Warn("loop queue full, discarding callback")
	}
}

// AfterFunc posts fn to the loop after d.
func (l *EventLoop) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, func() { l.Post(fn) })
}

// Call posts fn and waits for it to finish on the loop.
func (l *EventLoop) Call(ctx context.Context, fn func()) error {
	if l.closed.Load() {
		return ErrClosed
	}
	finished := make(chan struct{})
	wrapped := func() {
		defer close(finished)
		fn()
	}
	select {
	case l.queue <- wrapped:
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-l.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *EventLoop) execute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("callback panic",
				"panic", r,
				"stack", string(debug.Stack()))
		}
	}()
	fn()
}
