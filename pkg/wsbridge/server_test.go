package wsbridge_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/statehistory/pkg/snapshot"
	"github.com/vango-dev/statehistory/pkg/wsbridge"
)

func newTestServer(t *testing.T) (*wsbridge.Server, *httptest.Server) {
	t.Helper()
	cfg := wsbridge.DefaultConfig()
	cfg.Debounce = time.Millisecond
	srv := wsbridge.NewServer(cfg, "test",
		wsbridge.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		srv.Shutdown()
		ts.Close()
	})
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/history/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func send(t *testing.T, ws *websocket.Conn, msg wsbridge.Message) {
	t.Helper()
	if err := ws.WriteJSON(msg); err != nil {
		t.Fatalf("write: %v", err)
	}
}

// waitFor reads frames until one of type typ arrives, skipping others.
func waitFor(t *testing.T, ws *websocket.Conn, typ wsbridge.MessageType) wsbridge.Message {
	t.Helper()
	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var msg wsbridge.Message
		if err := ws.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", typ, err)
		}
		if msg.Type == typ {
			return msg
		}
	}
}

func renderedState(t *testing.T, msg wsbridge.Message) snapshot.State {
	t.Helper()
	var s snapshot.State
	if err := json.Unmarshal(msg.State, &s); err != nil {
		t.Fatalf("render state: %v", err)
	}
	return s
}

func TestBridgeCaptureAndRestore(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts)

	send(t, ws, wsbridge.Message{Type: wsbridge.TypeHello, State: json.RawMessage("null")})
	send(t, ws, wsbridge.Message{Type: wsbridge.TypeMount, Key: "c", Initial: snapshot.State{"count": 0}})

	r := waitFor(t, ws, wsbridge.TypeRender)
	if r.Key != "c" || r.Version != 0 {
		t.Errorf("initial render = %+v", r)
	}

	// The untagged landing entry is tagged in place.
	replaced := waitFor(t, ws, wsbridge.TypeReplace)
	p, err := snapshot.Decode(replaced.State)
	if err != nil {
		t.Fatalf("replace payload: %v", err)
	}
	if len(p.Stack) != 1 || p.Stack[0].Key != "c" {
		t.Errorf("replace stack = %+v", p.Stack)
	}

	send(t, ws, wsbridge.Message{Type: wsbridge.TypeDispatch, Key: "c", Partial: snapshot.State{"count": 1}})
	r = waitFor(t, ws, wsbridge.TypeRender)
	if r.Version != 1 || !snapshot.Equal(renderedState(t, r), snapshot.State{"count": 1}) {
		t.Errorf("render after dispatch = %+v", r)
	}
	pushed := waitFor(t, ws, wsbridge.TypePush)
	p, err = snapshot.Decode(pushed.State)
	if err != nil {
		t.Fatalf("push payload: %v", err)
	}
	if !snapshot.Equal(p.Stack[0].State, snapshot.State{"count": 1}) {
		t.Errorf("pushed stack = %+v", p.Stack)
	}

	// Going back hands the replaced entry to the server.
	send(t, ws, wsbridge.Message{Type: wsbridge.TypePopState, State: replaced.State})
	r = waitFor(t, ws, wsbridge.TypeRender)
	if !snapshot.Equal(renderedState(t, r), snapshot.State{"count": 0}) {
		t.Errorf("render after popstate = %s", r.State)
	}
}

func TestBridgeErrors(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts)

	ws.WriteMessage(websocket.TextMessage, []byte("{"))
	if e := waitFor(t, ws, wsbridge.TypeError); e.Code != "SH200" {
		t.Errorf("bad frame code = %q", e.Code)
	}

	send(t, ws, wsbridge.Message{Type: wsbridge.TypeDispatch, Key: "missing", Partial: snapshot.State{"v": 1}})
	if e := waitFor(t, ws, wsbridge.TypeError); e.Code != "SH201" {
		t.Errorf("unknown key code = %q", e.Code)
	}

	send(t, ws, wsbridge.Message{Type: wsbridge.TypeMount, Key: "dup"})
	send(t, ws, wsbridge.Message{Type: wsbridge.TypeMount, Key: "dup"})
	if e := waitFor(t, ws, wsbridge.TypeError); e.Code != "SH001" {
		t.Errorf("collision code = %q", e.Code)
	}

	send(t, ws, wsbridge.Message{Type: wsbridge.TypePopState, State: json.RawMessage(`{"tag":"router"}`)})
	if e := waitFor(t, ws, wsbridge.TypeError); e.Code != "SH004" {
		t.Errorf("foreign payload code = %q", e.Code)
	}
}

func TestBridgeUnmountAndRemount(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts)

	send(t, ws, wsbridge.Message{Type: wsbridge.TypeMount, Key: "k", Initial: snapshot.State{"v": 0}})
	waitFor(t, ws, wsbridge.TypeRender)
	send(t, ws, wsbridge.Message{Type: wsbridge.TypeDispatch, Key: "k", Partial: snapshot.State{"v": 5}})
	waitFor(t, ws, wsbridge.TypeRender)
	send(t, ws, wsbridge.Message{Type: wsbridge.TypeUnmount, Key: "k"})
	send(t, ws, wsbridge.Message{Type: wsbridge.TypeMount, Key: "k", Initial: snapshot.State{"v": 0}})

	r := waitFor(t, ws, wsbridge.TypeRender)
	if !snapshot.Equal(renderedState(t, r), snapshot.State{"v": 5}) {
		t.Errorf("remounted state = %s, want detached state", r.State)
	}
}

func TestBridgeConnectionLifecycle(t *testing.T) {
	srv, ts := newTestServer(t)
	ws := dial(t, ts)

	send(t, ws, wsbridge.Message{Type: wsbridge.TypeMount, Key: "a"})
	waitFor(t, ws, wsbridge.TypeRender)
	if srv.Connections() != 1 {
		t.Errorf("Connections() = %d, want 1", srv.Connections())
	}

	ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	ws.Close()

	deadline := time.Now().Add(2 * time.Second)
	for srv.Connections() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection not released")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRouterEndpoints(t *testing.T) {
	_, ts := newTestServer(t)
	ws := dial(t, ts)
	send(t, ws, wsbridge.Message{Type: wsbridge.TypeMount, Key: "a"})
	waitFor(t, ws, wsbridge.TypeRender)
	send(t, ws, wsbridge.Message{Type: wsbridge.TypeReset, Key: "b"})
	waitFor(t, ws, wsbridge.TypeError)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ = io.ReadAll(resp.Body)
	resp.Body.Close()
	for _, want := range []string{
		"test_bridge_connections_accepted_total 1",
		`test_bridge_message_errors_total{code="SH201",type="reset"} 1`,
		`test_containers_created_total 1`,
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestRejectsCrossOrigin(t *testing.T) {
	_, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/history/ws"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("cross-origin dial succeeded")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("response = %v", resp)
	}
}
