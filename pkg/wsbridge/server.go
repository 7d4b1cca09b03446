package wsbridge

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/statehistory/pkg/methods"
)

// Server accepts bridge connections.
type Server struct {
	config   Config
	upgrader websocket.Upgrader
	logger   *slog.Logger

	registry    *prometheus.Registry
	metrics     *metrics
	syncMetrics *methods.Metrics
	tracer      trace.Tracer

	middleware []Middleware
	handler    Handler

	ctx    context.Context
	cancel context.CancelFunc

	mu    sync.Mutex
	conns map[*Conn]struct{}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		s.logger = l
	}
}

// WithRegistry sets the Prometheus registry that metrics are registered
// with and served from.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) {
		s.registry = reg
	}
}

// WithTracer sets the tracer used for capture and reconcile spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Server) {
		s.tracer = t
	}
}

// WithMiddleware appends message middleware. It runs inside the built-in
// tracing and instrumentation.
func WithMiddleware(mws ...Middleware) Option {
	return func(s *Server) {
		s.middleware = append(s.middleware, mws...)
	}
}

// NewServer creates a bridge server. namespace prefixes every metric.
func NewServer(cfg Config, namespace string, opts ...Option) *Server {
	cfg = cfg.withDefaults()
	s := &Server{
		config: cfg,
		conns:  make(map[*Conn]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "wsbridge")
	if s.registry == nil {
		s.registry = prometheus.NewRegistry()
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer("github.com/vango-dev/statehistory/pkg/wsbridge")
	}
	s.metrics = newMetrics(s.registry, namespace)
	s.syncMetrics = methods.NewMetrics(s.registry, namespace)
	mws := append([]Middleware{Tracing(s.tracer), Instrument(s.metrics)}, s.middleware...)
	s.handler = chain(func(ctx context.Context, c *Conn, msg *Message) error {
		return c.handle(ctx, msg)
	}, mws...)
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     cfg.checkOrigin,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	return s
}

// Router returns the HTTP surface: the WebSocket endpoint, Prometheus
// metrics and a health check.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/history/ws", s.HandleWebSocket)
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	return r
}

// HandleWebSocket upgrades the request and serves the connection until it
// closes.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	ws.SetReadLimit(s.config.MaxMessageSize)

	c := newConn(s, ws)
	if !s.add(c) {
		ws.Close()
		return
	}
	c.logger.Info("connection opened",
		"remote_addr", r.RemoteAddr,
		"request_id", middleware.GetReqID(r.Context()))

	c.serve(s.ctx)
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// Shutdown closes every connection.
func (s *Server) Shutdown() {
	s.cancel()

	s.mu.Lock()
	conns := make([]*Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	s.logger.Info("bridge shutdown complete", "closed", len(conns))
}

func (s *Server) add(c *Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ctx.Err() != nil {
		return false
	}
	s.conns[c] = struct{}{}
	s.metrics.connections.Inc()
	s.metrics.accepted.Inc()
	return true
}

func (s *Server) remove(c *Conn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.conns[c]; ok {
		delete(s.conns, c)
		s.metrics.connections.Dec()
	}
}
