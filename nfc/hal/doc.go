// Package hal defines the register-level Hardware Abstraction Layer of the
// NAND flash controller.
//
// The controller is described as a register map ([Reg] offsets) and a set of
// bit fields ([Field]) accessed through explicit getter and setter functions.
// Nothing depends on the memory layout of Go structs, so the same driver runs
// over memory-mapped registers, a debug probe or the simulator in
// [github.com/ardnew/softnand/nfc/hal/sim].
//
// # Implementing a HAL
//
//  1. Implement Read32 and Write32 over the controller's register file
//  2. Gate the controller clock in EnableClock
//  3. Route the chip-enable, command/address latch and data lines in
//     ConfigurePins
//  4. Optionally implement [InterruptSource] so the driver can complete
//     asynchronous operations from the controller interrupt
//
// # Example
//
//	type MMIO struct{ base uintptr }
//
//	func (m *MMIO) Read32(reg hal.Reg) uint32 {
//	    return (*(*uint32)(unsafe.Pointer(m.base + uintptr(reg))))
//	}
package hal
