package upgrade

import (
	"errors"
	"fmt"
)

// Step names a stage of the upgrade sequence.
type Step string

const (
	StepCollectBefore Step = "collect-before"
	StepOSUpdate      Step = "os-update"
	StepReboot        Step = "reboot"
	StepAwaitOnline   Step = "await-online"
	StepAppUpgrade    Step = "app-upgrade"
	StepCollectAfter  Step = "collect-after"
	StepCleanup       Step = "cleanup"
)

var (
	ErrOSUpdateFailed   = errors.New("OS update failed")
	ErrHostUnreachable  = errors.New("host did not come back online after reboot")
	ErrAppUpgradeFailed = errors.New("application upgrade failed")
	ErrCleanupFailed    = errors.New("cleanup failed")
)

// StepError is the error returned when a host's upgrade aborts.
type StepError struct {
	Host string
	Step Step
	// Kind is one of the Err* sentinels of this package.
	Kind error
	// Err is the underlying cause.
	Err error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %s (step %s): %v", e.Host, e.Kind, e.Step, e.Err)
}

func (e *StepError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
