package upgrade

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/juju/clock"
	"github.com/juju/loggo"
	"github.com/juju/retry"

	"github.com/discourse-tools/dsc/internal/remote"
)

var logger = loggo.GetLogger("dsc.upgrade")

const (
	DefaultGracePeriod   = 30 * time.Second
	DefaultProbeInterval = 30 * time.Second
	DefaultProbeAttempts = 12
)

const reclaimedSpaceMarker = "Total reclaimed space:"

var errNotReachable = errors.New("ssh probe failed")

// Sequencer drives the upgrade of a single host. It is safe to use one
// Sequencer for several hosts at once.
type Sequencer struct {
	runner   Runner
	prober   Prober
	reporter Reporter
	oracle   *Oracle
	clock    clock.Clock

	GracePeriod   time.Duration
	ProbeInterval time.Duration
	ProbeAttempts int
}

// NewSequencer returns a Sequencer using the default reboot wait budget. A nil
// reporter discards progress and a nil clock means the wall clock.
func NewSequencer(runner Runner, prober Prober, reporter Reporter, clk clock.Clock) *Sequencer {
	if reporter == nil {
		reporter = nopReporter{}
	}
	if clk == nil {
		clk = clock.WallClock
	}
	return &Sequencer{
		runner:        runner,
		prober:        prober,
		reporter:      reporter,
		oracle:        NewOracle(runner),
		clock:         clk,
		GracePeriod:   DefaultGracePeriod,
		ProbeInterval: DefaultProbeInterval,
		ProbeAttempts: DefaultProbeAttempts,
	}
}

// Run performs every step against target. The Outcome is only meaningful when
// the returned error is nil; failures are returned as *StepError.
func (s *Sequencer) Run(ctx context.Context, target Target, versions VersionSource) (Outcome, error) {
	var outcome Outcome
	host := target.Name

	s.reporter.Stage(host, fmt.Sprintf("Starting update (ssh %s)", target.Address))
	outcome.BeforeAppVersion = optional(s.oracle.AppVersion(ctx, versions))
	outcome.BeforeOSVersion = optional(s.oracle.OSVersion(ctx, target))
	s.reporter.Stage(host, "Initial Discourse version: "+display(outcome.BeforeAppVersion))
	s.reporter.Stage(host, "Initial OS version: "+display(outcome.BeforeOSVersion))

	if err := s.osUpdate(ctx, target); err != nil {
		return Outcome{}, &StepError{Host: host, Step: StepOSUpdate, Kind: ErrOSUpdateFailed, Err: err}
	}
	outcome.OSUpdated = true

	if s.reboot(ctx, target) {
		if err := s.awaitOnline(ctx, target); err != nil {
			return Outcome{}, &StepError{Host: host, Step: StepAwaitOnline, Kind: ErrHostUnreachable, Err: err}
		}
		outcome.ServerRebooted = true
	}

	if err := s.stream(ctx, target, "Discourse update in progress", target.Commands.AppUpgrade); err != nil {
		return Outcome{}, &StepError{Host: host, Step: StepAppUpgrade, Kind: ErrAppUpgradeFailed, Err: err}
	}
	s.reporter.Stage(host, "Discourse update completed")

	outcome.AfterAppVersion = optional(s.oracle.AppVersion(ctx, versions))
	outcome.AfterOSVersion = optional(s.oracle.OSVersion(ctx, target))
	s.reporter.Stage(host, "Discourse version after update: "+display(outcome.AfterAppVersion))
	s.reporter.Stage(host, "OS version after update: "+display(outcome.AfterOSVersion))

	s.reporter.Stage(host, "Cleaning up unused images")
	result, err := s.runner.Run(ctx, target.Address, target.Commands.Cleanup)
	if err != nil {
		return Outcome{}, &StepError{Host: host, Step: StepCleanup, Kind: ErrCleanupFailed, Err: err}
	}
	outcome.ReclaimedSpace = optional(ParseReclaimedSpace(result.Stdout))
	s.reporter.Stage(host, "Reclaimed space: "+display(outcome.ReclaimedSpace))

	s.reporter.Stage(host, "Update completed")
	return outcome, nil
}

func (s *Sequencer) osUpdate(ctx context.Context, target Target) error {
	err := s.stream(ctx, target, "OS update in progress", target.Commands.OSUpdate)
	if err == nil {
		s.reporter.Stage(target.Name, "OS update completed")
		return nil
	}
	if strings.TrimSpace(target.Commands.OSUpdateRollback) == "" {
		return err
	}

	s.reporter.Warn(target.Name, "OS update failed; running rollback")
	if _, rollbackErr := s.runner.Run(ctx, target.Address, target.Commands.OSUpdateRollback); rollbackErr != nil {
		logger.Warningf("rollback on %s failed: %v", target.Name, rollbackErr)
		s.reporter.Warn(target.Name, fmt.Sprintf("Rollback failed: %v", rollbackErr))
	}
	return err
}

// reboot reports whether the host was rebooted.
func (s *Sequencer) reboot(ctx context.Context, target Target) bool {
	if strings.TrimSpace(target.Commands.Reboot) == "" {
		s.reporter.Stage(target.Name, "Reboot disabled; skipping")
		return false
	}
	s.reporter.Stage(target.Name, "Rebooting server")
	if _, err := s.runner.Run(ctx, target.Address, target.Commands.Reboot); err != nil {
		logger.Infof("reboot of %s failed: %v", target.Name, err)
		s.reporter.Stage(target.Name, "Reboot failed; continuing without reboot")
		return false
	}
	return true
}

func (s *Sequencer) awaitOnline(ctx context.Context, target Target) error {
	s.reporter.Stage(target.Name, "Waiting for server to come back online")
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(s.GracePeriod):
	}

	err := retry.Call(retry.CallArgs{
		Func: func() error {
			if s.prober.Probe(ctx, target.Address) {
				return nil
			}
			return errNotReachable
		},
		NotifyFunc: func(_ error, attempt int) {
			if attempt < s.ProbeAttempts {
				s.reporter.Stage(target.Name, fmt.Sprintf("Still waiting for SSH (attempt %d/%d)", attempt+1, s.ProbeAttempts))
			}
		},
		Attempts: s.ProbeAttempts,
		Delay:    s.ProbeInterval,
		Clock:    s.clock,
		Stop:     ctx.Done(),
	})
	if err != nil {
		if retry.IsAttemptsExceeded(err) {
			return fmt.Errorf("no response after %d probes: %w", s.ProbeAttempts, retry.LastError(err))
		}
		return err
	}
	s.reporter.Stage(target.Name, "Server is back online")
	return nil
}

func (s *Sequencer) stream(ctx context.Context, target Target, message, command string) error {
	onLine, done := s.reporter.Progress(target.Name, message)
	_, err := s.runner.Stream(ctx, target.Address, command, onLine)
	done()
	return err
}

// ParseReclaimedSpace returns the text following the "Total reclaimed space:"
// marker in cleanup output.
func ParseReclaimedSpace(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		_, value, found := strings.Cut(line, reclaimedSpaceMarker)
		if !found {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			return value, true
		}
	}
	return "", false
}

func display(value *string) string {
	if value == nil {
		return "unknown"
	}
	return *value
}

var _ Runner = (*remote.Channel)(nil)
