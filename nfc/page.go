package nfc

import (
	"fmt"

	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/pkg"
)

const pageComponent = pkg.ComponentPageIO

// checkTransfer validates a page transfer before any register access and
// reports whether it includes the spare area.
func (c *Controller) checkTransfer(bank int, page uint32, n int, spareAllowed bool) (bool, error) {
	if err := c.checkBank(bank); err != nil {
		return false, err
	}
	g := c.cfg.Geometry
	if page >= g.PageCount() {
		return false, fmt.Errorf("page %d: %w", page, pkg.ErrAddressRange)
	}
	switch {
	case n == g.TransferSize(false):
		return false, nil
	case spareAllowed && n == g.TransferSize(true):
		return true, nil
	}
	return false, fmt.Errorf("%d bytes for %d-byte page: %w", n, g.PageSize, pkg.ErrBufferLength)
}

func checkEccMode(mode EccMode) error {
	if mode > Ecc4Bit {
		return fmt.Errorf("ecc mode %d: %w", mode, pkg.ErrInvalidParameter)
	}
	return nil
}

// startRead issues READ / READ CONFIRM and waits for the page to load.
func (c *Controller) startRead(bank int, page uint32, timeout uint32) error {
	c.setAddress(Address{Row: page})
	c.issue(bank, CmdRead)
	if err := c.execute(bank, CmdReadConfirm, Address{Row: page}, timeout); err != nil {
		return fmt.Errorf("read page %d: %w", page, err)
	}
	return nil
}

// program streams buf into the page and waits for the program to finish.
func (c *Controller) program(bank int, page uint32, buf []byte, timeout uint32) error {
	c.setAddress(Address{Row: page})
	c.issue(bank, CmdProgramSetup)
	c.writeData(buf)
	c.issue(bank, CmdProgramConfirm)
	if err := c.waitReady(bank, timeout); err != nil {
		return fmt.Errorf("program page %d: %w", page, err)
	}
	if err := c.checkStatus(bank, ErrProgramFailed); err != nil {
		return fmt.Errorf("program page %d: %w", page, err)
	}
	return nil
}

// ReadPageMeta reads a page without ECC. len(buf) selects the data area alone
// (PageSize) or the data area followed by the spare area.
func (c *Controller) ReadPageMeta(bank int, page uint32, buf []byte, timeout uint32) error {
	spare, err := c.checkTransfer(bank, page, len(buf), true)
	if err != nil {
		return err
	}
	c.hal.Write32(hal.ECCCR, 0)
	if err := c.startRead(bank, page, timeout); err != nil {
		return err
	}
	c.readData(buf)
	c.log(pageComponent).Debug("page read", "bank", bank, "page", page, "spare", spare)
	return nil
}

// WritePageMeta programs a page without ECC. len(buf) selects the data area
// alone or the data area followed by the spare area. The page must be erased;
// nothing is read back.
func (c *Controller) WritePageMeta(bank int, page uint32, buf []byte, timeout uint32) error {
	spare, err := c.checkTransfer(bank, page, len(buf), true)
	if err != nil {
		return err
	}
	c.hal.Write32(hal.ECCCR, 0)
	if err := c.program(bank, page, buf, timeout); err != nil {
		return err
	}
	c.log(pageComponent).Debug("page written", "bank", bank, "page", page, "spare", spare)
	return nil
}

// ReadPageHwEcc reads a page's data area with hardware ECC in mode. The
// controller leaves one result per section in its ECC registers; check them
// with EccErrorSections, GetEcc1BitResult or GetEcc4BitResult after a nil
// return. buf is never corrected by the driver.
func (c *Controller) ReadPageHwEcc(bank int, page uint32, buf []byte, mode EccMode, timeout uint32) error {
	if _, err := c.checkTransfer(bank, page, len(buf), false); err != nil {
		return err
	}
	if err := checkEccMode(mode); err != nil {
		return err
	}
	c.lastEccValid = false
	c.setEccMode(mode)
	c.hal.Write32(hal.ECCCR, hal.ECCCREnable.Set(0, 1))
	if err := c.startRead(bank, page, timeout); err != nil {
		return err
	}
	c.readData(buf)

	c.eccSections = hal.ECCSRSection.Get(c.hal.Read32(hal.ECCSR))
	c.hal.Write32(hal.ISTR, hal.IntEccError.Mask())
	c.lastEccMode = mode
	c.lastEccValid = true

	if c.eccSections != 0 {
		c.log(pageComponent).Debug("ecc flagged sections", "bank", bank, "page", page,
			"mode", mode.String(), "sections", fmt.Sprintf("%#04x", c.eccSections))
	}
	return nil
}

// WritePageHwEcc programs a page's data area with hardware ECC in mode. The
// controller fills the ECC bytes of the spare area; the remaining spare bytes
// are left erased.
func (c *Controller) WritePageHwEcc(bank int, page uint32, buf []byte, mode EccMode, timeout uint32) error {
	if _, err := c.checkTransfer(bank, page, len(buf), false); err != nil {
		return err
	}
	if err := checkEccMode(mode); err != nil {
		return err
	}
	c.setEccMode(mode)
	c.hal.Write32(hal.ECCCR, hal.ECCCREnable.Set(0, 1))
	if err := c.program(bank, page, buf, timeout); err != nil {
		return err
	}
	c.log(pageComponent).Debug("page written with ecc", "bank", bank, "page", page, "mode", mode.String())
	return nil
}
