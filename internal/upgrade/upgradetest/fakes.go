// Package upgradetest provides in-memory doubles for the upgrade sequencer's
// collaborators.
package upgradetest

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/discourse-tools/dsc/internal/remote"
	"github.com/discourse-tools/dsc/pkg/config"
)

// Commands returns a command set whose entries are easy to tell apart in
// recorded calls.
func Commands() config.Commands {
	return config.Commands{
		OSUpdate:          "os-update",
		OSUpdateRollback:  "os-rollback",
		Reboot:            "reboot",
		AppUpgrade:        "app-upgrade",
		Cleanup:           "cleanup",
		OSVersion:         "os-version",
		OSVersionFallback: "os-version-fallback",
	}
}

// Call is one recorded command.
type Call struct {
	Target  string
	Command string
}

// Runner answers commands from tables and records every call.
type Runner struct {
	mu    sync.Mutex
	calls []Call

	// Stdout maps a command to its output.
	Stdout map[string]string
	// Fail maps a command to a non-zero exit code.
	Fail map[string]int
	// FailOn restricts Fail to the listed targets when non-empty.
	FailOn []string
}

func NewRunner() *Runner {
	return &Runner{
		Stdout: map[string]string{},
		Fail:   map[string]int{},
	}
}

func (r *Runner) Run(_ context.Context, target, command string) (remote.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.calls = append(r.calls, Call{Target: target, Command: command})
	if code, ok := r.Fail[command]; ok && r.failsOn(target) {
		return remote.Result{ExitCode: code}, &remote.CommandFailedError{
			Target:   target,
			Command:  command,
			ExitCode: code,
			Stderr:   command + " failed",
		}
	}
	return remote.Result{Stdout: r.Stdout[command]}, nil
}

func (r *Runner) Stream(ctx context.Context, target, command string, onLine func(remote.Line)) (remote.Result, error) {
	result, err := r.Run(ctx, target, command)
	if onLine != nil {
		for _, line := range strings.Split(strings.TrimRight(result.Stdout, "\n"), "\n") {
			if line != "" {
				onLine(remote.Line{Stream: remote.Stdout, Text: line})
			}
		}
	}
	return result, err
}

func (r *Runner) failsOn(target string) bool {
	if len(r.FailOn) == 0 {
		return true
	}
	for _, t := range r.FailOn {
		if t == target {
			return true
		}
	}
	return false
}

// Calls returns the recorded calls in order.
func (r *Runner) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Count returns how often command ran, across all targets.
func (r *Runner) Count(command string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if c.Command == command {
			n++
		}
	}
	return n
}

// Prober succeeds from the UpAfter'th probe on. UpAfter <= 0 never succeeds.
type Prober struct {
	mu      sync.Mutex
	probes  int
	UpAfter int
}

func (p *Prober) Probe(context.Context, string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probes++
	return p.UpAfter > 0 && p.probes >= p.UpAfter
}

func (p *Prober) Probes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.probes
}

// Versions returns the queued versions in order, then errors.
type Versions struct {
	mu     sync.Mutex
	values []string
	calls  int
}

func NewVersions(values ...string) *Versions {
	return &Versions{values: values}
}

func (v *Versions) FetchVersion(context.Context) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.calls++
	if len(v.values) == 0 {
		return "", errors.New("version not available")
	}
	value := v.values[0]
	v.values = v.values[1:]
	return value, nil
}

func (v *Versions) Calls() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls
}
