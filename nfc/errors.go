package nfc

import (
	"errors"
	"fmt"

	"github.com/ardnew/softnand/pkg"
)

// Device-reported failures. All wrap pkg.ErrDevice.
var (
	// ErrEraseFailed indicates the status register reported FAIL after an
	// erase.
	ErrEraseFailed = fmt.Errorf("%w: erase failed", pkg.ErrDevice)

	// ErrProgramFailed indicates the status register reported FAIL after a
	// page program.
	ErrProgramFailed = fmt.Errorf("%w: program failed", pkg.ErrDevice)

	// ErrWriteProtected indicates the device rejected a program or erase
	// because WP# is asserted.
	ErrWriteProtected = fmt.Errorf("%w: write protected", pkg.ErrDevice)

	// ErrParameterPage indicates a missing signature or CRC mismatch in the
	// ONFI parameter page.
	ErrParameterPage = fmt.Errorf("%w: invalid parameter page", pkg.ErrDevice)
)

var (
	// ErrNoEccResult indicates the ECC registers do not hold a result for the
	// requested mode, because no hardware ECC read in that mode completed.
	ErrNoEccResult = errors.New("no ECC result for mode")

	// ErrAborted completes a pending asynchronous operation whose bank was
	// reset.
	ErrAborted = errors.New("operation aborted by reset")
)
