package protocol

import (
	"errors"
	"fmt"
)

// Sentinels matched by ProtocolError.Is for the statuses callers act on.
var (
	// ErrCRCFailure is terminal for an ISP session.
	ErrCRCFailure = errors.New("checking CRC of chunk data failed")

	// ErrInvalidImage is reported when EXECUTE_RAM_CODE rejects the ISP driver.
	ErrInvalidImage = errors.New("invalid image")
)

// ProtocolError represents a failure status returned by the sink in CMD_STATUS.
type ProtocolError struct {
	// Operation is the command that failed
	Operation string

	// Status is the status code reported by the sink
	Status Status
}

func (e *ProtocolError) Error() string {
	if e.Status == StatusCRCFailure {
		return fmt.Sprintf("%s failed: %s", e.Operation, ErrCRCFailure)
	}
	return fmt.Sprintf("%s failed: invalid replied value in CMD_STATUS: %s (0x%02X)",
		e.Operation, e.Status, byte(e.Status))
}

// Is reports whether the status maps to target.
func (e *ProtocolError) Is(target error) bool {
	switch target {
	case ErrCRCFailure:
		return e.Status == StatusCRCFailure
	case ErrInvalidImage:
		return e.Status == StatusInvalidImage
	}
	return false
}

// IsProtocolError returns true if err is or wraps a ProtocolError.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
