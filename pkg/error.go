package pkg

import (
	"errors"
	"fmt"
)

// Driver errors.
var (
	// ErrInvalidParameter indicates an invalid parameter was provided.
	// It is always reported before any register access.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrTimeout indicates the device never signaled ready within the
	// caller-supplied poll budget.
	ErrTimeout = errors.New("operation timeout")

	// ErrDevice indicates the device deterministically reported a failure
	// (e.g. the FAIL bit of the status register).
	ErrDevice = errors.New("device failure")

	// ErrNotInitialized indicates the controller has not been configured.
	ErrNotInitialized = errors.New("controller not initialized")

	// ErrAlreadyInitialized indicates the controller is already configured.
	ErrAlreadyInitialized = errors.New("controller already initialized")

	// ErrBusy indicates an operation is already pending on the controller.
	ErrBusy = errors.New("operation pending")

	// ErrNotSupported indicates an unsupported operation or feature.
	ErrNotSupported = errors.New("not supported")

	// ErrBufferLength indicates a buffer length does not match the page
	// geometry for the selected transfer mode.
	ErrBufferLength = fmt.Errorf("%w: buffer length", ErrInvalidParameter)

	// ErrAddressRange indicates a bank, block, page or section index outside
	// the configured geometry.
	ErrAddressRange = fmt.Errorf("%w: address out of range", ErrInvalidParameter)

	// ErrReadOnly indicates a write to read-only storage.
	ErrReadOnly = errors.New("storage is read-only")
)

// OpStatus is the three-way result class of every driver operation.
type OpStatus int

// Operation status values.
const (
	StatusOk      OpStatus = iota // Operation completed
	StatusError                   // Invalid parameter or device-reported failure
	StatusTimeout                 // Device never reported ready
)

// String returns a string representation of the operation status.
func (s OpStatus) String() string {
	switch s {
	case StatusOk:
		return "ok"
	case StatusError:
		return "error"
	case StatusTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// StatusOf classifies an error returned by a driver operation.
func StatusOf(err error) OpStatus {
	switch {
	case err == nil:
		return StatusOk
	case errors.Is(err, ErrTimeout):
		return StatusTimeout
	default:
		return StatusError
	}
}
