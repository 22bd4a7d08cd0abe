package storage

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/ardnew/softnand/nfc"
	"github.com/ardnew/softnand/pkg"
)

const component = pkg.ComponentStorage

// Timeouts are the status poll budgets used for each NAND operation.
type Timeouts struct {
	Read    uint32
	Program uint32
	Erase   uint32
}

// DefaultTimeouts suit a controller clocked in the 100 MHz range.
var DefaultTimeouts = Timeouts{Read: 1_000, Program: 10_000, Erase: 50_000}

// Option configures a NAND storage.
type Option func(*NAND)

// WithTimeouts sets the poll budgets.
func WithTimeouts(t Timeouts) Option {
	return func(n *NAND) { n.timeouts = t }
}

// WithReadOnly opens the storage read-only.
func WithReadOnly() Option {
	return func(n *NAND) { n.readOnly = true }
}

// NAND implements Storage over one bank of an initialized controller.
type NAND struct {
	ctrl     *nfc.Controller
	bank     int
	mode     nfc.EccMode
	geometry nfc.Geometry
	timeouts Timeouts
	readOnly bool

	// Scratch for read-modify-write of one erase block
	block []byte

	corrected uint64
	mutex     sync.Mutex
}

// NewNAND creates a storage over bank of ctrl using ECC mode for every page.
func NewNAND(ctrl *nfc.Controller, bank int, mode nfc.EccMode, opts ...Option) (*NAND, error) {
	if !ctrl.Initialized() {
		return nil, pkg.ErrNotInitialized
	}
	g := ctrl.Geometry()
	if bank < 0 || bank >= g.Banks {
		return nil, fmt.Errorf("bank %d: %w", bank, pkg.ErrAddressRange)
	}
	if mode > nfc.Ecc4Bit {
		return nil, fmt.Errorf("ecc mode %d: %w", mode, pkg.ErrInvalidParameter)
	}
	n := &NAND{
		ctrl:     ctrl,
		bank:     bank,
		mode:     mode,
		geometry: g,
		timeouts: DefaultTimeouts,
		block:    make([]byte, g.PagesPerBlock*g.PageSize),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// BlockSize returns the page data size.
func (n *NAND) BlockSize() uint32 {
	return uint32(n.geometry.PageSize)
}

// BlockCount returns the number of pages in the bank.
func (n *NAND) BlockCount() uint64 {
	return uint64(n.geometry.PageCount())
}

// Corrected returns the number of bit errors corrected since creation.
func (n *NAND) Corrected() uint64 {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.corrected
}

// readPage reads and corrects one page into buf.
func (n *NAND) readPage(page uint32, buf []byte) error {
	if err := n.ctrl.ReadPageHwEcc(n.bank, page, buf, n.mode, n.timeouts.Read); err != nil {
		return err
	}
	if n.ctrl.EccErrorSections() == 0 {
		return nil
	}
	bits, err := n.ctrl.CorrectPage(buf)
	n.corrected += uint64(bits)
	if err != nil {
		pkg.LogError(component, "uncorrectable page", "bank", n.bank, "page", page, "error", err)
		return fmt.Errorf("page %d: %w", page, err)
	}
	pkg.LogDebug(component, "page corrected", "bank", n.bank, "page", page, "bits", bits)
	return nil
}

// Read reads pages starting at lba, correcting bit errors. A page with
// uncorrectable errors fails the read with ecc.ErrUncorrectable.
func (n *NAND) Read(lba uint64, blocks uint32, buf []byte) (uint32, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if err := checkRange(lba, blocks, n.BlockSize(), n.BlockCount(), buf); err != nil {
		return 0, err
	}
	size := n.geometry.PageSize
	for i := uint32(0); i < blocks; i++ {
		if err := n.readPage(uint32(lba)+i, buf[int(i)*size:int(i+1)*size]); err != nil {
			return i, err
		}
	}
	return blocks, nil
}

// Write writes pages starting at lba. Every erase block the range touches
// is read, erased and reprogrammed; pages left fully erased are not
// programmed.
func (n *NAND) Write(lba uint64, blocks uint32, buf []byte) (uint32, error) {
	n.mutex.Lock()
	defer n.mutex.Unlock()

	if n.readOnly {
		return 0, errReadOnly
	}
	if err := checkRange(lba, blocks, n.BlockSize(), n.BlockCount(), buf); err != nil {
		return 0, err
	}

	ppb := uint32(n.geometry.PagesPerBlock)
	size := n.geometry.PageSize
	first := uint32(lba)
	end := first + blocks
	written := uint32(0)

	for page := first; page < end; {
		block := page / ppb
		base := block * ppb
		stop := min(base+ppb, end)

		if err := n.rewrite(block, page-base, buf[int(page-first)*size:int(stop-first)*size]); err != nil {
			return written, err
		}
		written += stop - page
		page = stop
	}
	return written, nil
}

// rewrite replaces the pages of block starting at offset with data.
func (n *NAND) rewrite(block uint32, offset uint32, data []byte) error {
	ppb := n.geometry.PagesPerBlock
	size := n.geometry.PageSize
	base := block * uint32(ppb)

	// A write covering the whole block needs nothing from the old contents.
	if offset != 0 || len(data) != len(n.block) {
		for p := 0; p < ppb; p++ {
			if err := n.readPage(base+uint32(p), n.block[p*size:(p+1)*size]); err != nil {
				return fmt.Errorf("rewrite block %d: %w", block, err)
			}
		}
	}
	copy(n.block[int(offset)*size:], data)

	if err := n.ctrl.EraseBlock(n.bank, block, n.timeouts.Erase); err != nil {
		return err
	}
	erased := bytes.Repeat([]byte{0xff}, size)
	for p := 0; p < ppb; p++ {
		page := n.block[p*size : (p+1)*size]
		if bytes.Equal(page, erased) {
			continue
		}
		if err := n.ctrl.WritePageHwEcc(n.bank, base+uint32(p), page, n.mode, n.timeouts.Program); err != nil {
			return fmt.Errorf("rewrite block %d: %w", block, err)
		}
	}
	pkg.LogDebug(component, "block rewritten", "bank", n.bank, "block", block)
	return nil
}

// Sync is a no-op; Write completes before returning.
func (n *NAND) Sync() error {
	return nil
}

// IsReadOnly returns whether the storage is read-only.
func (n *NAND) IsReadOnly() bool {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	return n.readOnly
}

// SetReadOnly sets the read-only flag.
func (n *NAND) SetReadOnly(readOnly bool) {
	n.mutex.Lock()
	defer n.mutex.Unlock()
	n.readOnly = readOnly
}

var (
	_ Storage = (*NAND)(nil)
	_ Storage = (*MemoryStorage)(nil)
)
