// Package pkg provides shared utilities for the softnand driver packages.
//
// This package contains common functionality used by the controller driver,
// the board support packages and the simulator, including:
//
//   - Structured logging via Go's standard [log/slog] package
//   - Sentinel error values for parameter, timeout and device failures
//   - The [OpStatus] Ok/Error/Timeout classification
//   - Component identifiers for log filtering
//
// # Logging
//
// The logging subsystem wraps [log/slog] with component context:
//
//	pkg.SetLogLevel(slog.LevelDebug)
//	pkg.LogInfo(pkg.ComponentController, "bank configured", "bank", 0)
//
// # Errors
//
// Every operation returns its own error; nothing is retried internally.
// Timeouts are distinguishable from every other failure:
//
//	switch pkg.StatusOf(err) {
//	case pkg.StatusTimeout:
//	    // Device never reported ready; reset it
//	case pkg.StatusError:
//	    // Bad parameters or device-reported failure
//	}
package pkg
