// Package nfc implements a driver for the EXMC NAND Flash Controller.
//
// The driver is split along the controller's functions:
//
//  1. Configurator - [Controller.Init] programs the bank geometry, ECC mode
//     and AC timing once and resets every bank
//  2. Command/status sequencer - [Controller.Execute] issues one command and
//     busy-polls the bank's ready flag with a bounded budget; RESET, READ ID,
//     READ STATUS, READ PARAMETER PAGE and block erase build on it
//  3. Page I/O - [Controller.ReadPageMeta], [Controller.WritePageMeta],
//     [Controller.ReadPageHwEcc] and [Controller.WritePageHwEcc]
//  4. ECC readback - [Controller.GetEcc1BitResult] and
//     [Controller.GetEcc4BitResult] decode the syndromes left by the last
//     hardware ECC read
//
// # Errors
//
// Every operation returns nil, an error wrapping [pkg.ErrInvalidParameter] or
// [pkg.ErrDevice], or an error wrapping [pkg.ErrTimeout] when the device never
// reported ready within the poll budget. Parameter errors are always detected
// before any register access. Nothing is retried.
//
// # Concurrency
//
// One operation may be in flight per controller, by caller discipline.
// Asynchronous erase and program ([Controller.EraseBlockAsync],
// [Controller.WritePageMetaAsync]) return a [Completion] that the interrupt
// handler fills; a second asynchronous request while one is pending fails with
// [pkg.ErrBusy].
//
// # Reliability
//
// The driver performs no read-after-write verification and no bad-block
// management. ECC results are advisory; [Controller.CorrectPage] applies
// them only when called.
//
// # Example
//
//	ctrl := nfc.New(myHAL)
//	if err := ctrl.Init(cfg); err != nil {
//	    return err
//	}
//	if err := ctrl.EraseBlock(0, 10, eraseTimeout); err != nil {
//	    return err
//	}
//	err := ctrl.WritePageHwEcc(0, 640, data, nfc.Ecc4Bit, programTimeout)
package nfc
