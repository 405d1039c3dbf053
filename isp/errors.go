package isp

import (
	"errors"
	"fmt"
	"time"
)

// Flash errors derived from the ISP driver handshake.
var (
	// ErrFlashNotSupported means the driver found a flash it cannot program
	ErrFlashNotSupported = errors.New("SPI flash not supported")

	// ErrFlashNotConnected means no flash answered the driver
	ErrFlashNotConnected = errors.New("SPI flash not connected")
)

// TimeoutError indicates that a polling budget was exhausted.
type TimeoutError struct {
	// Step names the command that was being waited on
	Step string

	// Budget is the time allowed for the step
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s timed out after %s", e.Step, e.Budget)
}

// BadReplyError indicates that the sink answered with data the session
// cannot use.
type BadReplyError struct {
	Reason string
}

func (e *BadReplyError) Error() string {
	return fmt.Sprintf("bad reply: %s", e.Reason)
}

// PreconditionError indicates an operation called in an incompatible state.
type PreconditionError struct {
	Operation string
	State     State
	Reason    string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%s not allowed in state %s: %s", e.Operation, e.State, e.Reason)
}

// UnsupportedDeviceError indicates a branch ID that is not a Jaguar or Mustang.
type UnsupportedDeviceError struct {
	BranchID string
}

func (e *UnsupportedDeviceError) Error() string {
	return fmt.Sprintf("unsupported device: branch ID %q", e.BranchID)
}
