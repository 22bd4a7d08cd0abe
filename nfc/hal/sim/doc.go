// Package sim provides a simulated NAND flash controller implementing
// [hal.HAL] and [hal.InterruptSource].
//
// The simulator backs every bank with a sparse in-memory NAND die. It decodes
// the command register the way the controller does: setup/confirm command
// pairs latch the index registers, the data window streams the page buffer
// four bytes at a time, busy operations clear the bank's ready flag for a
// configurable number of status polls, and hardware ECC modes fill the spare
// area on program and the syndrome registers on read.
//
// Programming follows NAND semantics: bits can only be cleared, so a page
// must be erased before it is rewritten.
//
// # Fault injection
//
//	s := sim.New(sim.WithBusyPolls(2))
//	s.FlipBit(0, page, 100, 3) // flip bit 3 of byte 100 of the stored page
//	s.SetStuck(0, true)        // bank 0 never reports ready
//	s.FailNext(0)              // next program/erase on bank 0 reports FAIL
package sim
