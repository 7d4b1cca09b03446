package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/spf13/cobra"

	"github.com/vango-dev/statehistory/internal/errors"
	"github.com/vango-dev/statehistory/pkg/loop"
	"github.com/vango-dev/statehistory/pkg/methods"
	"github.com/vango-dev/statehistory/pkg/navigation"
	"github.com/vango-dev/statehistory/pkg/snapshot"
)

// Script is a scripted session replayed against an in-memory history.
type Script struct {
	Debounce string `yaml:"debounce"`
	Steps    []Step `yaml:"steps"`
}

// Step is one scripted action. Exactly one field is set.
type Step struct {
	Mount    *MountStep  `yaml:"mount"`
	Dispatch *StateStep  `yaml:"dispatch"`
	Reset    *KeyStep    `yaml:"reset"`
	Unmount  *KeyStep    `yaml:"unmount"`
	Flush    bool        `yaml:"flush"`
	Back     int         `yaml:"back"`
	Forward  int         `yaml:"forward"`
	Expect   *ExpectStep `yaml:"expect"`
}

// MountStep creates a container. Key may be empty.
type MountStep struct {
	Key     string         `yaml:"key"`
	Initial snapshot.State `yaml:"initial"`
}

// StateStep dispatches a partial state to a container.
type StateStep struct {
	Key     string         `yaml:"key"`
	Partial snapshot.State `yaml:"partial"`
}

// KeyStep names a container.
type KeyStep struct {
	Key string `yaml:"key"`
}

// ExpectStep asserts on a container's state or on the history length.
type ExpectStep struct {
	Key     string         `yaml:"key"`
	State   snapshot.State `yaml:"state"`
	History int            `yaml:"history"`
}

// ParseScript decodes a YAML replay script.
func ParseScript(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, errors.FromError(err, "SH101")
	}
	return &s, nil
}

type replayContainer = methods.Methods[struct{}]

// Replayer runs a Script.
type Replayer struct {
	scheduler  *loop.Manual
	host       *navigation.Memory
	sync       *methods.Sync
	containers map[string]*replayContainer
	out        io.Writer
	failures   int
}

// NewReplayer creates a Replayer writing its trace to out.
func NewReplayer(debounce time.Duration, out io.Writer, logger *slog.Logger) *Replayer {
	sched := loop.NewManual()
	host := navigation.NewMemory(navigation.WithPoster(sched))
	return &Replayer{
		scheduler: sched,
		host:      host,
		sync: methods.New(host, sched,
			methods.WithDebounce(debounce),
			methods.WithLogger(logger)),
		containers: make(map[string]*replayContainer),
		out:        out,
	}
}

// Run executes every step and reports the number of failed expectations.
func (r *Replayer) Run(steps []Step) (int, error) {
	defer r.sync.Close()

	for i, step := range steps {
		desc, err := r.step(step)
		if err != nil {
			return r.failures, fmt.Errorf("step %d: %w", i+1, err)
		}
		fmt.Fprintf(r.out, "%s %s\n", dim(fmt.Sprintf("%3d", i+1)), desc)
		r.printDiagnostics()
		if step.Expect == nil {
			r.printRegistry()
		}
	}
	return r.failures, nil
}

func (r *Replayer) step(s Step) (string, error) {
	switch {
	case s.Mount != nil:
		var opts []methods.CreateOption
		if s.Mount.Key != "" {
			opts = append(opts, methods.WithKey(s.Mount.Key))
		}
		_, m := methods.Use(r.sync, func(methods.Dispatch, *methods.Record) struct{} { return struct{}{} },
			s.Mount.Initial, opts...)
		key := m.Container().Key()
		if !m.Container().Shadowed() {
			r.containers[key] = m
		}
		return "mount " + key, nil

	case s.Dispatch != nil:
		m, err := r.lookup(s.Dispatch.Key)
		if err != nil {
			return "", err
		}
		m.SetState(s.Dispatch.Partial)
		return "dispatch " + s.Dispatch.Key + " " + compact(s.Dispatch.Partial), nil

	case s.Reset != nil:
		m, err := r.lookup(s.Reset.Key)
		if err != nil {
			return "", err
		}
		m.Reset()
		return "reset " + s.Reset.Key, nil

	case s.Unmount != nil:
		m, err := r.lookup(s.Unmount.Key)
		if err != nil {
			return "", err
		}
		m.Unmount()
		delete(r.containers, s.Unmount.Key)
		return "unmount " + s.Unmount.Key, nil

	case s.Flush:
		r.scheduler.Settle()
		return fmt.Sprintf("flush (history %d/%d)", r.host.Index()+1, r.host.Len()), nil

	case s.Back > 0:
		moved := r.host.Go(-s.Back)
		r.scheduler.Flush()
		return fmt.Sprintf("back %d (moved=%v)", s.Back, moved), nil

	case s.Forward > 0:
		moved := r.host.Go(s.Forward)
		r.scheduler.Flush()
		return fmt.Sprintf("forward %d (moved=%v)", s.Forward, moved), nil

	case s.Expect != nil:
		return r.expect(s.Expect), nil
	}
	return "", errors.New("SH101").WithDetail("empty step")
}

func (r *Replayer) expect(e *ExpectStep) string {
	if e.Key == "" {
		if r.host.Len() == e.History {
			return successMark("✓") + fmt.Sprintf(" history has %d entries", e.History)
		}
		r.failures++
		return errorMark("✗") + fmt.Sprintf(" history has %d entries, want %d", r.host.Len(), e.History)
	}

	c, ok := r.sync.Registry().Lookup(e.Key)
	if !ok {
		r.failures++
		return errorMark("✗") + " no container " + e.Key
	}
	got := c.Record().Fields()
	if snapshot.Equal(got, e.State) {
		return successMark("✓") + " " + e.Key + " = " + compact(got)
	}
	r.failures++
	return errorMark("✗") + " " + e.Key + " = " + compact(got) + ", want " + compact(e.State)
}

func (r *Replayer) lookup(key string) (*replayContainer, error) {
	m, ok := r.containers[key]
	if !ok {
		return nil, errors.New("SH201").WithDetail(fmt.Sprintf("key %q", key))
	}
	return m, nil
}

func (r *Replayer) printRegistry() {
	for _, c := range r.sync.Registry().Containers() {
		fmt.Fprintf(r.out, "      %-12s %-8s %s\n", c.Key(), dim(c.Status().String()), compact(c.Record().Fields()))
	}
}

func (r *Replayer) printDiagnostics() {
	for {
		select {
		case d := <-r.sync.Diagnostics():
			fmt.Fprintf(r.out, "      %s %s\n", warnMark("!"), d.Err.Error())
		default:
			return
		}
	}
}

func compact(s snapshot.State) string {
	data, err := json.Marshal(s)
	if err != nil {
		return "?"
	}
	return string(data)
}

func replayCmd() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "replay <script.yaml>",
		Short: "Replay a scripted session against an in-memory history",
		Long: `Replay a scripted session against an in-memory history.

Each step is printed followed by the registry contents. Steps:
  mount:    {key, initial}
  dispatch: {key, partial}
  reset:    {key}
  unmount:  {key}
  flush:    true            commit pending captures
  back:     N
  forward:  N
  expect:   {key, state} or {history: N}

The command fails when any expectation fails.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			script, err := ParseScript(data)
			if err != nil {
				return err
			}
			debounce := methods.DefaultDebounce
			if script.Debounce != "" {
				if debounce, err = time.ParseDuration(script.Debounce); err != nil {
					return errors.New("SH102").WithDetail("debounce").Wrap(err)
				}
			}

			logger := newLogger(debug)
			failures, err := NewReplayer(debounce, cmd.OutOrStdout(), logger).Run(script.Steps)
			if err != nil {
				return err
			}
			if failures > 0 {
				return fmt.Errorf("%d expectation(s) failed", failures)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "Log capture and restore details")

	return cmd
}
