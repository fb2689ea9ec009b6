// Package fleet upgrades many hosts, one after another or with bounded
// parallelism.
package fleet

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/loggo"
	"golang.org/x/sync/errgroup"

	"github.com/discourse-tools/dsc/internal/audit"
	"github.com/discourse-tools/dsc/internal/upgrade"
	"github.com/discourse-tools/dsc/pkg/config"
)

var logger = loggo.GetLogger("dsc.fleet")

// Upgrader performs one host's upgrade. *upgrade.Sequencer implements it.
type Upgrader interface {
	Run(ctx context.Context, target upgrade.Target, versions upgrade.VersionSource) (upgrade.Outcome, error)
}

// Publisher posts the changelog for a completed host.
type Publisher interface {
	Publish(ctx context.Context, d config.Discourse, outcome *upgrade.Outcome) error
}

// Recorder is the audit log.
type Recorder interface {
	Record(event, host, detail string) error
}

// Host is one entry of the fleet.
type Host struct {
	Discourse config.Discourse
	Target    upgrade.Target
	// Versions looks up the installed application version. May be nil.
	Versions upgrade.VersionSource
}

// Result is what happened to one host. Outcome is nil unless the upgrade
// completed; PublishErr never changes that.
type Result struct {
	Host       string
	Attempted  bool
	Outcome    *upgrade.Outcome
	Err        error
	PublishErr error
}

// Runner applies an Upgrader to a list of hosts and records every attempt in
// the audit log.
type Runner struct {
	Upgrader Upgrader
	Audit    Recorder
	// Publisher is optional; when set it runs after each completed host.
	Publisher Publisher
}

// RunSequential upgrades hosts in order and stops at the first failed
// upgrade. Hosts after the failure are returned with Attempted == false.
func (r *Runner) RunSequential(ctx context.Context, hosts []Host) ([]Result, error) {
	results := make([]Result, len(hosts))
	for i, host := range hosts {
		results[i].Host = host.Target.Name
	}
	for i, host := range hosts {
		results[i] = r.runHost(ctx, host)
		if results[i].Err != nil {
			logger.Debugf("stopping after %s failed; %d host(s) not attempted", host.Target.Name, len(hosts)-i-1)
			break
		}
	}
	return results, collect(results)
}

// RunParallel upgrades at most limit hosts at a time. A failing host never
// cancels its siblings. limit <= 0 runs every host at once.
func (r *Runner) RunParallel(ctx context.Context, hosts []Host, limit int) ([]Result, error) {
	if limit <= 0 || limit > len(hosts) {
		limit = len(hosts)
	}
	results := make([]Result, len(hosts))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, host := range hosts {
		i, host := i, host
		g.Go(func() error {
			results[i] = r.runHost(ctx, host)
			return nil
		})
	}
	_ = g.Wait()

	return results, collect(results)
}

func (r *Runner) runHost(ctx context.Context, host Host) Result {
	name := host.Target.Name
	result := Result{Host: name, Attempted: true}

	r.record(audit.EventStarting, name, "")
	outcome, err := r.Upgrader.Run(ctx, host.Target, host.Versions)
	if err != nil {
		r.record(audit.EventFailed, name, err.Error())
		result.Err = err
		return result
	}
	r.record(audit.EventCompleted, name, "")
	result.Outcome = &outcome

	if r.Publisher != nil {
		result.PublishErr = r.Publisher.Publish(ctx, host.Discourse, result.Outcome)
	}
	return result
}

func (r *Runner) record(event, host, detail string) {
	if r.Audit == nil {
		return
	}
	if err := r.Audit.Record(event, host, detail); err != nil {
		logger.Warningf("audit record %s for %s failed: %v", event, host, err)
	}
}

// FleetError lists every host failure of a run in configuration order.
type FleetError struct {
	Errors       []error
	NotAttempted []string
}

func (e *FleetError) Error() string {
	var msgs []string
	for _, err := range e.Errors {
		msgs = append(msgs, err.Error())
	}
	msg := strings.Join(msgs, "; ")
	if len(e.Errors) > 1 {
		msg = fmt.Sprintf("%d hosts failed: %s", len(e.Errors), msg)
	}
	if len(e.NotAttempted) > 0 {
		msg += fmt.Sprintf(" (not attempted: %s)", strings.Join(e.NotAttempted, ", "))
	}
	return msg
}

func (e *FleetError) Unwrap() []error {
	return e.Errors
}

func collect(results []Result) error {
	var fe FleetError
	for _, result := range results {
		switch {
		case !result.Attempted:
			fe.NotAttempted = append(fe.NotAttempted, result.Host)
		case result.Err != nil:
			fe.Errors = append(fe.Errors, result.Err)
		case result.PublishErr != nil:
			fe.Errors = append(fe.Errors, result.PublishErr)
		}
	}
	if len(fe.Errors) == 0 {
		return nil
	}
	return &fe
}

// Summary counts completed and failed hosts.
func Summary(results []Result) (completed, failed int) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Outcome != nil:
			completed++
		}
	}
	return completed, failed
}
