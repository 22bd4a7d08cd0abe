package nfc

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/pkg"
)

// Command is a NAND command byte written to CMDR.
type Command uint8

// NAND commands.
const (
	CmdRead              Command = 0x00
	CmdProgramConfirm    Command = 0x10
	CmdReadConfirm       Command = 0x30
	CmdEraseSetup        Command = 0x60
	CmdReadStatus        Command = 0x70
	CmdProgramSetup      Command = 0x80
	CmdReadID            Command = 0x90
	CmdEraseConfirm      Command = 0xd0
	CmdReadParameterPage Command = 0xec
	CmdReset             Command = 0xff
)

// String returns the command name.
func (c Command) String() string {
	switch c {
	case CmdRead:
		return "READ"
	case CmdProgramConfirm:
		return "PROGRAM CONFIRM"
	case CmdReadConfirm:
		return "READ CONFIRM"
	case CmdEraseSetup:
		return "ERASE"
	case CmdReadStatus:
		return "READ STATUS"
	case CmdProgramSetup:
		return "PROGRAM"
	case CmdReadID:
		return "READ ID"
	case CmdEraseConfirm:
		return "ERASE CONFIRM"
	case CmdReadParameterPage:
		return "READ PARAMETER PAGE"
	case CmdReset:
		return "RESET"
	default:
		return fmt.Sprintf("CMD(%#02x)", uint8(c))
	}
}

// Address is loaded into the index registers before a command.
type Address struct {
	Row    uint32 // Page address, or the address byte of READ ID
	Column uint32 // Byte offset within the page
}

// Status is the NAND status register returned by READ STATUS.
type Status uint8

// Failed reports whether the last program or erase failed.
func (s Status) Failed() bool { return s&0x01 != 0 }

// Ready reports whether the device is ready.
func (s Status) Ready() bool { return s&0x40 != 0 }

// WriteProtected reports whether WP# is asserted.
func (s Status) WriteProtected() bool { return s&0x80 == 0 }

// ID addresses for READ ID.
const (
	IDAddressJEDEC = 0x00
	IDAddressONFI  = 0x20
)

// Execute loads addr into the index registers, writes cmd to the bank and
// polls the status register until the bank reports ready.
//
// Execute polls at most timeout times and then returns pkg.ErrTimeout; a
// timeout of zero never polls. Invalid banks or addresses return
// pkg.ErrInvalidParameter before any register access.
func (c *Controller) Execute(bank int, cmd Command, addr Address, timeout uint32) error {
	if err := c.checkBank(bank); err != nil {
		return err
	}
	if !hal.IDXR0Row.Fits(addr.Row) || !hal.IDXR1Column.Fits(addr.Column) {
		return fmt.Errorf("address %+v: %w", addr, pkg.ErrAddressRange)
	}
	return c.execute(bank, cmd, addr, timeout)
}

func (c *Controller) execute(bank int, cmd Command, addr Address, timeout uint32) error {
	c.setAddress(addr)
	c.issue(bank, cmd)
	if err := c.waitReady(bank, timeout); err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	return nil
}

func (c *Controller) setAddress(addr Address) {
	c.hal.Write32(hal.IDXR0, hal.IDXR0Row.Set(0, addr.Row))
	c.hal.Write32(hal.IDXR1, hal.IDXR1Column.Set(0, addr.Column))
}

func (c *Controller) issue(bank int, cmd Command) {
	v := hal.CMDRCommand.Set(0, uint32(cmd))
	v = hal.CMDRBank.Set(v, uint32(bank))
	c.hal.Write32(hal.CMDR, v)
}

// waitReady busy-polls ISTR for the bank's ready flag and clears it.
func (c *Controller) waitReady(bank int, timeout uint32) error {
	rb := hal.ReadyBit(bank)
	for i := uint32(0); i < timeout; i++ {
		if c.hal.Read32(hal.ISTR)&rb != 0 {
			c.hal.Write32(hal.ISTR, rb)
			return nil
		}
	}
	c.log(pkg.ComponentSequencer).Warn("bank never reported ready", "bank", bank, "polls", timeout)
	return fmt.Errorf("bank %d after %d polls: %w", bank, timeout, pkg.ErrTimeout)
}

// readData drains len(buf) bytes from the data window.
func (c *Controller) readData(buf []byte) {
	var w [4]byte
	for i := 0; i < len(buf); i += 4 {
		binary.LittleEndian.PutUint32(w[:], c.hal.Read32(hal.DATR))
		copy(buf[i:], w[:])
	}
}

// writeData streams buf into the data window, padding the last word with 0xff.
func (c *Controller) writeData(buf []byte) {
	for i := 0; i < len(buf); i += 4 {
		w := [4]byte{0xff, 0xff, 0xff, 0xff}
		copy(w[:], buf[i:])
		c.hal.Write32(hal.DATR, binary.LittleEndian.Uint32(w[:]))
	}
}

// Reset issues RESET to the bank. A pending asynchronous operation on the
// bank completes with ErrAborted.
func (c *Controller) Reset(bank int, timeout uint32) error {
	if err := c.checkBank(bank); err != nil {
		return err
	}
	c.abort(bank)
	return c.reset(bank, timeout)
}

func (c *Controller) reset(bank int, timeout uint32) error {
	if err := c.execute(bank, CmdReset, Address{}, timeout); err != nil {
		return fmt.Errorf("reset bank %d: %w", bank, err)
	}
	c.log(pkg.ComponentSequencer).Debug("bank reset", "bank", bank)
	return nil
}

// ReadID reads len(buf) identifier bytes from addr (IDAddressJEDEC for the
// manufacturer and device codes, IDAddressONFI for the ONFI signature).
func (c *Controller) ReadID(bank int, addr uint8, buf []byte, timeout uint32) error {
	if err := c.checkBank(bank); err != nil {
		return err
	}
	if len(buf) == 0 || len(buf) > 8 {
		return fmt.Errorf("id length %d: %w", len(buf), pkg.ErrBufferLength)
	}
	if err := c.execute(bank, CmdReadID, Address{Row: uint32(addr)}, timeout); err != nil {
		return err
	}
	c.readData(buf)
	c.log(pkg.ComponentSequencer).Debug("id read", "bank", bank, "id", fmt.Sprintf("% x", buf))
	return nil
}

// ReadStatus returns the bank's status register.
func (c *Controller) ReadStatus(bank int) (Status, error) {
	if err := c.checkBank(bank); err != nil {
		return 0, err
	}
	return c.readStatus(bank), nil
}

func (c *Controller) readStatus(bank int) Status {
	c.issue(bank, CmdReadStatus)
	return Status(c.hal.Read32(hal.DATR))
}

// checkStatus converts the status after a program or erase into an error.
func (c *Controller) checkStatus(bank int, failure error) error {
	st := c.readStatus(bank)
	switch {
	case !st.Failed():
		return nil
	case st.WriteProtected():
		return fmt.Errorf("bank %d status %#02x: %w", bank, uint8(st), ErrWriteProtected)
	default:
		return fmt.Errorf("bank %d status %#02x: %w", bank, uint8(st), failure)
	}
}

func (c *Controller) checkBlock(bank int, block uint32) (uint32, error) {
	if err := c.checkBank(bank); err != nil {
		return 0, err
	}
	if block >= c.cfg.Geometry.BlockCount() {
		return 0, fmt.Errorf("block %d: %w", block, pkg.ErrAddressRange)
	}
	return block * uint32(c.cfg.Geometry.PagesPerBlock), nil
}

// EraseBlock erases one block and checks the status register.
func (c *Controller) EraseBlock(bank int, block uint32, timeout uint32) error {
	row, err := c.checkBlock(bank, block)
	if err != nil {
		return err
	}
	c.setAddress(Address{Row: row})
	c.issue(bank, CmdEraseSetup)
	if err := c.execute(bank, CmdEraseConfirm, Address{Row: row}, timeout); err != nil {
		return fmt.Errorf("erase block %d: %w", block, err)
	}
	if err := c.checkStatus(bank, ErrEraseFailed); err != nil {
		return fmt.Errorf("erase block %d: %w", block, err)
	}
	c.log(pkg.ComponentSequencer).Debug("block erased", "bank", bank, "block", block)
	return nil
}
