package wsbridge

import (
	"net/http"
	"net/url"
	"time"

	"github.com/vango-dev/statehistory/pkg/methods"
)

// Config holds bridge settings.
type Config struct {
	// ReadTimeout bounds the wait for the next client frame. Pings are
	// sent at half this interval.
	ReadTimeout time.Duration

	// WriteTimeout bounds every frame write.
	WriteTimeout time.Duration

	// MaxMessageSize limits incoming frames in bytes.
	MaxMessageSize int64

	// QueueSize is the per-connection event loop capacity.
	QueueSize int

	// Debounce is the capture debounce for each connection's Sync.
	Debounce time.Duration

	// DiagnosticsBuffer is the diagnostic channel capacity per connection.
	DiagnosticsBuffer int

	// AllowedOrigins lists origins accepted in addition to the request's
	// own host. "*" accepts any origin.
	AllowedOrigins []string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      10 * time.Second,
		MaxMessageSize:    64 * 1024,
		QueueSize:         256,
		Debounce:          methods.DefaultDebounce,
		DiagnosticsBuffer: methods.DefaultDiagnosticsBuffer,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = d.ReadTimeout
	}
	if c.WriteTimeout <= 0 {
		c.WriteTimeout = d.WriteTimeout
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = d.MaxMessageSize
	}
	if c.QueueSize <= 0 {
		c.QueueSize = d.QueueSize
	}
	if c.Debounce <= 0 {
		c.Debounce = d.Debounce
	}
	if c.DiagnosticsBuffer <= 0 {
		c.DiagnosticsBuffer = d.DiagnosticsBuffer
	}
	return c
}

// checkOrigin accepts same-origin requests, requests without an Origin
// header, and the configured origins.
func (c Config) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range c.AllowedOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return r.Host != "" && u.Host == r.Host
}
