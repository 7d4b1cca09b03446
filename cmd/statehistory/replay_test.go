package main

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/statehistory/internal/errors"
)

const backForwardScript = `
debounce: 10ms
steps:
  - mount: {key: top, initial: {v: 1}}
  - mount: {key: top.a, initial: {v: 2}}
  - flush: true
  - dispatch: {key: top, partial: {v: 2}}
  - flush: true
  - dispatch: {key: top, partial: {v: 3}}
  - flush: true
  - expect: {history: 3}
  - back: 1
  - expect: {key: top, state: {v: 2}}
  - back: 1
  - expect: {key: top, state: {v: 1}}
  - expect: {key: top.a, state: {v: 2}}
  - forward: 2
  - expect: {key: top, state: {v: 3}}
`

func runScript(t *testing.T, src string) (int, string, error) {
	t.Helper()
	script, err := ParseScript([]byte(src))
	if err != nil {
		t.Fatalf("ParseScript() error: %v", err)
	}
	d, _ := time.ParseDuration(script.Debounce)
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	failures, err := NewReplayer(d, &out, logger).Run(script.Steps)
	return failures, out.String(), err
}

func TestReplayBackForward(t *testing.T) {
	failures, out, err := runScript(t, backForwardScript)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if failures != 0 {
		t.Errorf("%d expectations failed:\n%s", failures, out)
	}
	for _, want := range []string{"mount top", "dispatch top {\"v\":2}", "back 1 (moved=true)", "forward 2 (moved=true)"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestReplayFailedExpectation(t *testing.T) {
	failures, out, err := runScript(t, `
steps:
  - mount: {key: a, initial: {v: 0}}
  - expect: {key: a, state: {v: 1}}
  - expect: {key: b, state: {}}
`)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if failures != 2 {
		t.Errorf("failures = %d, want 2:\n%s", failures, out)
	}
	if !strings.Contains(out, "no container b") {
		t.Errorf("output:\n%s", out)
	}
}

func TestReplayDiagnostics(t *testing.T) {
	_, out, err := runScript(t, `
steps:
  - mount: {key: dup}
  - mount: {key: dup}
`)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if !strings.Contains(out, "SH001") {
		t.Errorf("collision not reported:\n%s", out)
	}
}

func TestReplayUnknownKey(t *testing.T) {
	_, _, err := runScript(t, `
steps:
  - dispatch: {key: ghost, partial: {v: 1}}
`)
	if errors.Code(err) != "SH201" {
		t.Errorf("error = %v, want SH201", err)
	}
}

func TestReplayEmptyStep(t *testing.T) {
	_, _, err := runScript(t, "steps:\n  - {}\n")
	if errors.Code(err) != "SH101" {
		t.Errorf("error = %v, want SH101", err)
	}
}

func TestVersionCommand(t *testing.T) {
	cmd := rootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version", "--short"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out.String()) != version {
		t.Errorf("version output = %q", out.String())
	}
}
