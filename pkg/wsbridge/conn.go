package wsbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/pkg/loop"
	"github.com/vango-dev/statehistory/pkg/methods"
)

// remote is a container mounted by the client. It has no server-side
// actions; the client drives it through dispatch frames.
type remote = methods.Methods[struct{}]

func remoteFactory(methods.Dispatch, *methods.Record) struct{} { return struct{}{} }

// Conn is one browser tab attached to the bridge.
type Conn struct {
	id     string
	ws     *websocket.Conn
	server *Server
	logger *slog.Logger

	loop *loop.EventLoop
	host *host
	sync *methods.Sync

	// containers is only touched on the loop.
	containers map[string]*remote

	ctx context.Context

	writeMu sync.Mutex
	closed  atomic.Bool
	done    chan struct{}
}

func newConn(s *Server, ws *websocket.Conn) *Conn {
	id := uuid.NewString()
	logger := s.logger.With("session_id", id)
	c := &Conn{
		id:         id,
		ws:         ws,
		server:     s,
		logger:     logger,
		loop:       loop.NewEventLoop(s.config.QueueSize, logger),
		containers: make(map[string]*remote),
		ctx:        context.Background(),
		done:       make(chan struct{}),
	}
	c.host = newHost(c)
	c.sync = methods.New(c.host, c.loop,
		methods.WithDebounce(s.config.Debounce),
		methods.WithDiagnosticsBuffer(s.config.DiagnosticsBuffer),
		methods.WithLogger(logger),
		methods.WithMetrics(s.syncMetrics),
		methods.WithTracer(s.tracer),
	)
	return c
}

// ID returns the connection's session id.
func (c *Conn) ID() string {
	return c.id
}

// serve runs the connection until the client goes away or ctx ends.
func (c *Conn) serve(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.ctx = ctx

	go c.loop.Run(ctx)
	go c.forwardDiagnostics()
	go c.heartbeat()

	c.readLoop()
}

// readLoop reads frames and posts their handling onto the loop.
func (c *Conn) readLoop() {
	defer c.Close()

	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout))
	})

	for {
		c.ws.SetReadDeadline(time.Now().Add(c.server.config.ReadTimeout))

		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Error("read error", "error", err)
			}
			return
		}

		msg, err := DecodeMessage(data)
		if err != nil {
			c.server.metrics.messages.WithLabelValues("invalid").Inc()
			c.logger.Warn("message decode error", "error", err)
			c.sendError(errors.FromError(err, "SH200"))
			continue
		}
		c.server.metrics.messages.WithLabelValues(string(msg.Type)).Inc()
		c.loop.Post(func() {
			if err := c.server.handler(c.ctx, c, msg); err != nil {
				c.sendError(errors.FromError(err, "SH200"))
			}
		})
	}
}

// handle applies one client message. It runs on the loop.
func (c *Conn) handle(ctx context.Context, msg *Message) error {
	switch msg.Type {
	case TypeHello:
		c.host.setCurrent(msg.historyState())
		c.logger.Debug("client hello", "tagged", msg.historyState() != nil)

	case TypePopState:
		c.host.pop(msg.historyState())

	case TypeMount:
		c.mount(msg.Key, msg.Initial)

	case TypeDispatch:
		r, err := c.lookup(msg.Key)
		if err != nil {
			return err
		}
		r.SetState(msg.Partial)

	case TypeReset:
		r, err := c.lookup(msg.Key)
		if err != nil {
			return err
		}
		r.Reset()

	case TypeUnmount:
		r, err := c.lookup(msg.Key)
		if err != nil {
			return err
		}
		r.Unmount()
		delete(c.containers, msg.Key)
	}
	return nil
}

func (c *Conn) mount(key string, initial methods.State) {
	var assigned string
	opts := []methods.CreateOption{
		methods.OnChange(func(version uint64) {
			c.render(assigned)
		}),
	}
	if key != "" {
		opts = append(opts, methods.WithKey(key))
	}

	_, r := methods.Use(c.sync, remoteFactory, initial, opts...)
	if r.Container().Shadowed() {
		// Use reported the collision; the client cannot address a shadow.
		return
	}
	assigned = r.Container().Key()
	c.containers[assigned] = r
	c.render(assigned)
}

func (c *Conn) lookup(key string) (*remote, error) {
	r, ok := c.containers[key]
	if !ok {
		return nil, errors.New("SH201").WithDetail(fmt.Sprintf("key %q", key))
	}
	return r, nil
}

func (c *Conn) render(key string) {
	r, ok := c.containers[key]
	if !ok {
		return
	}
	rec := r.State()
	msg, err := renderMessage(key, rec.Version(), rec.Fields())
	if err != nil {
		c.logger.Error("render encode error", "key", key, "error", err)
		return
	}
	if err := c.send(msg); err != nil {
		c.logger.Debug("render dropped", "key", key, "error", err)
	}
}

// forwardDiagnostics relays the Sync's diagnostics to the client as error
// frames.
func (c *Conn) forwardDiagnostics() {
	for {
		select {
		case d := <-c.sync.Diagnostics():
			if d.Err != nil {
				c.sendError(d.Err)
			}
		case <-c.done:
			return
		}
	}
}

// heartbeat pings the client so idle tabs keep their read deadline alive.
func (c *Conn) heartbeat() {
	interval := c.server.config.ReadTimeout / 2
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			deadline := time.Now().Add(c.server.config.WriteTimeout)
			if err := c.ws.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				c.logger.Debug("ping failed", "error", err)
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) sendError(err *errors.Error) {
	if sendErr := c.send(errorMessage(err)); sendErr != nil {
		c.logger.Debug("error frame dropped", "code", err.Code, "error", sendErr)
	}
}

// send writes msg as a text frame. It is safe for concurrent use.
func (c *Conn) send(msg *Message) error {
	if c.closed.Load() {
		return loop.ErrClosed
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.ws.SetWriteDeadline(time.Now().Add(c.server.config.WriteTimeout))
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		c.logger.Error("write error", "type", msg.Type, "error", err)
		return err
	}
	return nil
}

// Close tears the connection down. It is safe to call more than once.
func (c *Conn) Close() {
	if !c.closed.CompareAndSwap(false, true) {
		return
	}
	close(c.done)

	ctx, cancel := context.WithTimeout(context.Background(), c.server.config.WriteTimeout)
	defer cancel()
	err := c.loop.Call(ctx, func() {
		c.sync.Close()
		c.sync.Registry().Reset()
	})
	if err != nil {
		c.logger.Debug("teardown skipped", "error", err)
	}
	c.loop.Stop()

	c.ws.Close()
	c.server.remove(c)
	c.logger.Info("connection closed")
}
