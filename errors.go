package tether

import (
	"errors"
	"fmt"
)

// Sentinel errors for binding operations.
var (
	ErrNoPositions  = errors.New("tether: no bound positions found")
	ErrInvalidClass = errors.New("tether: invalid component class")
	ErrUnregistered = errors.New("tether: no registered class for discriminator")
	ErrDetached     = errors.New("tether: position is not attached to the watched root")
	ErrLoopStopped  = errors.New("tether: loop stopped")
)

// ConfigurationError reports a registry/document inconsistency found at
// activation time. It is never produced by asynchronous passes.
type ConfigurationError struct {
	// Name is the discriminator or class name involved, if any.
	Name string
	Err  error
}

func (e *ConfigurationError) Error() string {
	if e.Name == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %q", e.Err, e.Name)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// Phase identifies the lifecycle step a LifecycleError came from.
type Phase string

const (
	PhaseConnect    Phase = "connect"
	PhaseDisconnect Phase = "disconnect"
	PhaseCleanup    Phase = "cleanup"
)

// LifecycleError wraps an error returned by user code inside Connect,
// Disconnect or a registered cleanup action. The core bookkeeping for the
// instance is applied before the error is returned.
type LifecycleError struct {
	Phase Phase
	Name  string
	ID    uint64
	Err   error
}

func (e *LifecycleError) Error() string {
	return fmt.Sprintf("tether: %s %s#%d: %v", e.Phase, e.Name, e.ID, e.Err)
}

func (e *LifecycleError) Unwrap() error {
	return e.Err
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

// IsLifecycleError reports whether err is or wraps a LifecycleError.
func IsLifecycleError(err error) bool {
	var le *LifecycleError
	return errors.As(err, &le)
}
