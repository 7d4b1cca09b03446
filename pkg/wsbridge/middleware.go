package wsbridge

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/statehistory/internal/errors"
)

// Handler processes one client message on the connection's loop.
type Handler func(ctx context.Context, c *Conn, msg *Message) error

// Middleware wraps a Handler.
type Middleware func(next Handler) Handler

// chain applies mws so the first one is outermost.
func chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// Tracing starts a span per message.
func Tracing(tracer trace.Tracer) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, c *Conn, msg *Message) error {
			attrs := []attribute.KeyValue{
				attribute.String("statehistory.session_id", c.id),
				attribute.String("statehistory.message", string(msg.Type)),
			}
			if msg.Key != "" {
				attrs = append(attrs, attribute.String("statehistory.key", msg.Key))
			}

			ctx, span := tracer.Start(ctx, "statehistory.bridge."+string(msg.Type),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...))
			defer span.End()

			err := next(ctx, c, msg)
			if err != nil {
				span.RecordError(err)
				span.SetStatus(codes.Error, err.Error())
			} else {
				span.SetStatus(codes.Ok, "")
			}
			return err
		}
	}
}

// Instrument records handling time and failures per message type.
func Instrument(m *metrics) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context, c *Conn, msg *Message) error {
			start := time.Now()
			err := next(ctx, c, msg)
			m.handleDuration.WithLabelValues(string(msg.Type)).Observe(time.Since(start).Seconds())
			if err != nil {
				code := errors.Code(err)
				if code == "" {
					code = "unknown"
				}
				m.handleErrors.With(prometheus.Labels{"type": string(msg.Type), "code": code}).Inc()
			}
			return err
		}
	}
}
