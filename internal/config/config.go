package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/vango-dev/statehistory/internal/errors"
)

const (
	// JSONFileName is the JSON configuration file name.
	JSONFileName = "statehistory.json"

	// YAMLFileName is the YAML configuration file name.
	YAMLFileName = "statehistory.yaml"

	// DefaultDebounce is the default capture debounce.
	DefaultDebounce = 16 * time.Millisecond

	// DefaultDiagnosticsBuffer is the default diagnostic channel capacity.
	DefaultDiagnosticsBuffer = 64

	// DefaultAddr is the default listen address for serve.
	DefaultAddr = ":8080"

	// DefaultNamespace prefixes every metric.
	DefaultNamespace = "statehistory"
)

// Duration is a time.Duration written as a string such as "250ms".
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config is the complete configuration.
type Config struct {
	// Debounce is the quiet period before a capture is committed.
	Debounce Duration `json:"debounce,omitempty" yaml:"debounce,omitempty"`

	// DiagnosticsBuffer is the diagnostic channel capacity.
	DiagnosticsBuffer int `json:"diagnosticsBuffer,omitempty" yaml:"diagnosticsBuffer,omitempty"`

	Server  ServerConfig  `json:"server,omitempty" yaml:"server,omitempty"`
	Metrics MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`

	path string
}

// ServerConfig configures the WebSocket bridge.
type ServerConfig struct {
	Addr           string   `json:"addr,omitempty" yaml:"addr,omitempty"`
	ReadTimeout    Duration `json:"readTimeout,omitempty" yaml:"readTimeout,omitempty"`
	WriteTimeout   Duration `json:"writeTimeout,omitempty" yaml:"writeTimeout,omitempty"`
	AllowedOrigins []string `json:"allowedOrigins,omitempty" yaml:"allowedOrigins,omitempty"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
}

// TracingConfig configures OpenTelemetry spans.
type TracingConfig struct {
	TracerName string `json:"tracerName,omitempty" yaml:"tracerName,omitempty"`
}

// New returns a Config with defaults applied.
func New() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the configuration from dir, preferring statehistory.json
// over statehistory.yaml.
func Load(dir string) (*Config, error) {
	for _, name := range []string{JSONFileName, YAMLFileName} {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}
	return nil, errors.New("SH100").
		WithDetail("No " + JSONFileName + " or " + YAMLFileName + " in " + dir)
}

// LoadFile reads configuration from path. The format follows the file
// extension.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("SH100").WithDetail(path)
		}
		return nil, errors.New("SH101").Wrap(err)
	}

	cfg := &Config{}
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, errors.New("SH101").
			WithDetail("Failed to parse " + filepath.Base(path)).
			Wrap(err)
	}

	cfg.path = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads the configuration from dir, falling back to New
// when no file exists.
func LoadOrDefault(dir string) (*Config, error) {
	cfg, err := Load(dir)
	if errors.Code(err) == "SH100" {
		return New(), nil
	}
	return cfg, err
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

func (c *Config) applyDefaults() {
	if c.Debounce == 0 {
		c.Debounce = Duration(DefaultDebounce)
	}
	if c.DiagnosticsBuffer == 0 {
		c.DiagnosticsBuffer = DefaultDiagnosticsBuffer
	}
	if c.Server.Addr == "" {
		c.Server.Addr = DefaultAddr
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = Duration(60 * time.Second)
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = Duration(10 * time.Second)
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Tracing.TracerName == "" {
		c.Tracing.TracerName = "github.com/vango-dev/statehistory"
	}
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Debounce < 0 {
		return errors.New("SH102").WithDetail("debounce must not be negative")
	}
	if c.DiagnosticsBuffer < 0 {
		return errors.New("SH102").WithDetail("diagnosticsBuffer must not be negative")
	}
	if c.Server.ReadTimeout < 0 || c.Server.WriteTimeout < 0 {
		return errors.New("SH102").WithDetail("server timeouts must not be negative")
	}
	if c.Server.ReadTimeout > 0 && c.Server.ReadTimeout.Std() < time.Second {
		return errors.New("SH102").
			WithDetail(fmt.Sprintf("server.readTimeout %s is too short", c.Server.ReadTimeout.Std())).
			WithSuggestion("Use at least 1s; pings are sent at half this interval.")
	}
	return nil
}
