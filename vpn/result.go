package vpn

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yllada/vpn-connector/common"
)

// Op names a lifecycle operation that produces a Result.
type Op string

const (
	OpConnect    Op = "connect"
	OpDisconnect Op = "disconnect"
)

// Result reports a connect or disconnect attempt. Succeeded reflects the
// observed connectivity only; Cause keeps whatever went wrong on the way,
// even when polling ended up succeeding.
type Result struct {
	Op        Op
	AttemptID uuid.UUID
	Succeeded bool
	Cause     error
	Elapsed   time.Duration
}

// Err returns nil on success, otherwise an error describing the failure.
func (r Result) Err() error {
	if r.Succeeded {
		return nil
	}
	if r.Cause == nil {
		return fmt.Errorf("%s failed", r.Op)
	}
	return fmt.Errorf("%s failed: %w", r.Op, r.Cause)
}

// LaunchFailed reports whether the dial helper could not be started.
func (r Result) LaunchFailed() bool {
	return errors.Is(r.Cause, common.ErrHelperLaunch)
}

// TimedOut reports whether polling gave up before the target state.
func (r Result) TimedOut() bool {
	return errors.Is(r.Cause, common.ErrTimeout)
}

func (r Result) String() string {
	status := "ok"
	if !r.Succeeded {
		status = "failed"
	}
	if r.Cause != nil {
		return fmt.Sprintf("%s %s after %v (%v)", r.Op, status, r.Elapsed.Round(time.Millisecond), r.Cause)
	}
	return fmt.Sprintf("%s %s after %v", r.Op, status, r.Elapsed.Round(time.Millisecond))
}

// resultCause folds the launch error and the polling outcome together.
func resultCause(launchErr error, reached bool, waitErr error) error {
	var errs []error
	if launchErr != nil {
		errs = append(errs, launchErr)
	}
	switch {
	case waitErr != nil:
		errs = append(errs, waitErr)
	case !reached:
		errs = append(errs, common.ErrTimeout)
	}
	return errors.Join(errs...)
}
