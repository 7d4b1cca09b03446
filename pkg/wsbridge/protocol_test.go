package wsbridge

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/vango-dev/statehistory/internal/errors"
)

func TestDecodeMessage(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    MessageType
		wantErr bool
	}{
		{"hello", `{"type":"hello","state":null}`, TypeHello, false},
		{"mount without key", `{"type":"mount","initial":{"v":1}}`, TypeMount, false},
		{"dispatch", `{"type":"dispatch","key":"a","partial":{"v":2}}`, TypeDispatch, false},
		{"dispatch without key", `{"type":"dispatch","partial":{"v":2}}`, "", true},
		{"unmount without key", `{"type":"unmount"}`, "", true},
		{"missing type", `{"key":"a"}`, "", true},
		{"server type", `{"type":"push"}`, "", true},
		{"not json", `hello`, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeMessage([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("DecodeMessage(%s) succeeded", tt.input)
				}
				if errors.Code(err) != "SH200" {
					t.Errorf("code = %q, want SH200", errors.Code(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("DecodeMessage(%s) error: %v", tt.input, err)
			}
			if m.Type != tt.want {
				t.Errorf("Type = %q, want %q", m.Type, tt.want)
			}
		})
	}
}

func TestHistoryState(t *testing.T) {
	for _, raw := range []string{`{"type":"hello"}`, `{"type":"hello","state":null}`} {
		m, _ := DecodeMessage([]byte(raw))
		if m.historyState() != nil {
			t.Errorf("%s: historyState() = %q, want nil", raw, m.historyState())
		}
	}
	m, _ := DecodeMessage([]byte(`{"type":"popstate","state":{"tag":"stateHistory","stack":[]}}`))
	if string(m.historyState()) != `{"tag":"stateHistory","stack":[]}` {
		t.Errorf("historyState() = %q", m.historyState())
	}
}

func TestCheckOrigin(t *testing.T) {
	tests := []struct {
		name    string
		allowed []string
		origin  string
		want    bool
	}{
		{"no origin", nil, "", true},
		{"same host", nil, "http://example.com", true},
		{"other host", nil, "http://evil.com", false},
		{"allowed list", []string{"http://app.local"}, "http://app.local", true},
		{"wildcard", []string{"*"}, "http://evil.com", true},
		{"garbage", nil, "://", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "http://example.com/history/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			cfg := Config{AllowedOrigins: tt.allowed}
			if got := cfg.checkOrigin(r); got != tt.want {
				t.Errorf("checkOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
			}
		})
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context, c *Conn, msg *Message) error {
				order = append(order, name)
				return next(ctx, c, msg)
			}
		}
	}
	h := chain(func(context.Context, *Conn, *Message) error {
		order = append(order, "handler")
		return nil
	}, mw("outer"), mw("inner"))

	h(context.Background(), nil, &Message{Type: TypeHello})
	want := []string{"outer", "inner", "handler"}
	if diff := cmp.Diff(want, order); diff != "" {
		t.Errorf("order (-want +got):\n%s", diff)
	}
}
