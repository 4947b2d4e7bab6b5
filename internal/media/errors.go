package media

import (
	"errors"
	"fmt"
)

var (
	// ErrPermission is returned when the user or the system denies access
	// to a capture device.
	ErrPermission = errors.New("permission denied")
	// ErrDevice is returned when no device satisfies the constraints.
	ErrDevice = errors.New("no matching device")
)

// Error names reported to the diagnostic log.
const (
	NotAllowedError = "NotAllowedError"
	NotFoundError   = "NotFoundError"
	UnknownError    = "UnknownError"
)

// ErrorName classifies err into one of the reported error kinds.
func ErrorName(err error) string {
	switch {
	case errors.Is(err, ErrPermission):
		return NotAllowedError
	case errors.Is(err, ErrDevice):
		return NotFoundError
	default:
		return UnknownError
	}
}

// PermissionError wraps err so that ErrorName reports it as NotAllowedError.
func PermissionError(err error) error {
	return fmt.Errorf("%w: %w", ErrPermission, err)
}

// DeviceError wraps err so that ErrorName reports it as NotFoundError.
func DeviceError(err error) error {
	return fmt.Errorf("%w: %w", ErrDevice, err)
}
