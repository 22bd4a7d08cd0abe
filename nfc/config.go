package nfc

import (
	"fmt"
	"log/slog"

	"github.com/ardnew/softnand/ecc"
	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/pkg"
)

// Capacity is the density of one NAND device, as encoded in BACR.
type Capacity uint8

// Device capacities.
const (
	Capacity512Mb Capacity = iota
	Capacity1Gb
	Capacity2Gb
	Capacity4Gb
	Capacity8Gb
	Capacity16Gb
	Capacity32Gb
	Capacity64Gb
)

// Bits returns the capacity in bits.
func (c Capacity) Bits() uint64 {
	return uint64(512<<20) << c
}

// Bytes returns the capacity of the main data area in bytes.
func (c Capacity) Bytes() uint64 {
	return c.Bits() / 8
}

// String returns a human-readable capacity.
func (c Capacity) String() string {
	if c < Capacity1Gb {
		return "512Mb"
	}
	if c > Capacity64Gb {
		return "unknown"
	}
	return fmt.Sprintf("%dGb", 1<<(c-Capacity1Gb))
}

// EccMode selects the hardware ECC code.
type EccMode uint8

// ECC modes.
const (
	Ecc1Bit EccMode = iota // Hamming, 3 bytes per 512-byte sector
	Ecc4Bit                // BCH t=4, 7 bytes per 512-byte sector
)

// String returns the mode name.
func (m EccMode) String() string {
	switch m {
	case Ecc1Bit:
		return "1-bit"
	case Ecc4Bit:
		return "4-bit"
	default:
		return "unknown"
	}
}

// BytesPerSection returns the spare bytes the mode stores per ECC section.
func (m EccMode) BytesPerSection() int {
	if m == Ecc4Bit {
		return ecc.BCHBytes
	}
	return ecc.HammingBytes
}

// Geometry describes the NAND devices attached to the controller. It is fixed
// when the controller is initialized.
type Geometry struct {
	Capacity      Capacity // Per bank
	Banks         int      // 1..hal.MaxBanks
	PageSize      int      // Data bytes per page: 2048, 4096 or 8192
	PagesPerBlock int      // Pages per erase block, power of two
	RowCycles     int      // Row address cycles: 2 or 3
	BusWidth      int      // Data bus width in bits: 8
}

// SpareSize returns the spare bytes per page.
func (g Geometry) SpareSize() int {
	return g.PageSize / 32
}

// Sections returns the number of 512-byte ECC sections per page.
func (g Geometry) Sections() int {
	return g.PageSize / ecc.SectorSize
}

// PageCount returns the number of pages per bank.
func (g Geometry) PageCount() uint32 {
	return uint32(g.Capacity.Bytes() / uint64(g.PageSize))
}

// BlockCount returns the number of erase blocks per bank.
func (g Geometry) BlockCount() uint32 {
	return g.PageCount() / uint32(g.PagesPerBlock)
}

// TransferSize returns the byte count of a page transfer with or without the
// spare area.
func (g Geometry) TransferSize(withSpare bool) int {
	if withSpare {
		return g.PageSize + g.SpareSize()
	}
	return g.PageSize
}

func pageSizeCode(size int) (uint32, bool) {
	switch size {
	case 2048:
		return 0, true
	case 4096:
		return 1, true
	case 8192:
		return 2, true
	}
	return 0, false
}

// Validate reports whether the geometry can be programmed into BACR.
func (g Geometry) Validate() error {
	if g.Capacity > Capacity64Gb {
		return fmt.Errorf("capacity code %d: %w", g.Capacity, pkg.ErrInvalidParameter)
	}
	if g.Banks < 1 || g.Banks > hal.MaxBanks {
		return fmt.Errorf("bank count %d: %w", g.Banks, pkg.ErrInvalidParameter)
	}
	if _, ok := pageSizeCode(g.PageSize); !ok {
		return fmt.Errorf("page size %d: %w", g.PageSize, pkg.ErrInvalidParameter)
	}
	if g.PagesPerBlock < 32 || g.PagesPerBlock > 256 || g.PagesPerBlock&(g.PagesPerBlock-1) != 0 {
		return fmt.Errorf("pages per block %d: %w", g.PagesPerBlock, pkg.ErrInvalidParameter)
	}
	if g.RowCycles != 2 && g.RowCycles != 3 {
		return fmt.Errorf("row cycles %d: %w", g.RowCycles, pkg.ErrInvalidParameter)
	}
	if g.BusWidth != 8 {
		return fmt.Errorf("bus width %d: %w", g.BusWidth, pkg.ErrNotSupported)
	}
	if uint64(g.PageCount()) > 1<<(8*g.RowCycles) {
		return fmt.Errorf("%d pages exceed %d row cycles: %w", g.PageCount(), g.RowCycles, pkg.ErrInvalidParameter)
	}
	return nil
}

// bacr encodes the geometry and ECC mode into a BACR value.
func (g Geometry) bacr(mode EccMode) uint32 {
	var v uint32
	code, _ := pageSizeCode(g.PageSize)
	v = hal.BACRCapacity.Set(v, uint32(g.Capacity))
	v = hal.BACRBanks.Set(v, uint32(g.Banks-1))
	v = hal.BACRPageSize.Set(v, code)
	v = hal.BACREccMode.Set(v, uint32(mode))
	v = hal.BACRRowCycles.Set(v, uint32(g.RowCycles-2))
	return v
}

// Timing holds the NAND AC timing parameters in controller clock cycles.
type Timing struct {
	TS   uint8 // CE# setup
	TWP  uint8 // WE# pulse width
	TRP  uint8 // RE# pulse width
	TH   uint8 // Hold after WE#/RE# high
	TWH  uint8 // WE# high hold
	TRH  uint8 // RE# high hold
	TRR  uint8 // Ready to RE# low
	TWB  uint8 // WE# high to busy
	TCCS uint8 // Change column setup
	TWTR uint8 // WE# high to RE# low
	TRTW uint8 // RE# high to WE# low
	TADL uint8 // Address to data loading
}

func (t Timing) cycles() []uint8 {
	return []uint8{t.TS, t.TWP, t.TRP, t.TH, t.TWH, t.TRH, t.TRR, t.TWB, t.TCCS, t.TWTR, t.TRTW, t.TADL}
}

// Validate reports whether every parameter is at least one cycle.
func (t Timing) Validate() error {
	for i, c := range t.cycles() {
		if c == 0 {
			return fmt.Errorf("timing parameter %d is zero: %w", i, pkg.ErrInvalidParameter)
		}
	}
	return nil
}

// registers packs the timing into TMCR0..TMCR2.
func (t Timing) registers() [3]uint32 {
	fields := [4]hal.Field{hal.TMCRField0, hal.TMCRField1, hal.TMCRField2, hal.TMCRField3}
	var regs [3]uint32
	for i, c := range t.cycles() {
		regs[i/4] = fields[i%4].Set(regs[i/4], uint32(c))
	}
	return regs
}

// TimingNanoseconds holds the AC timing parameters from a device datasheet.
type TimingNanoseconds struct {
	TS, TWP, TRP, TH, TWH, TRH, TRR, TWB, TCCS, TWTR, TRTW, TADL uint32
}

// TimingFromNanoseconds converts datasheet timings to cycles of a clock
// running at hz, rounding up. Every parameter takes at least one cycle.
func TimingFromNanoseconds(hz uint32, ns TimingNanoseconds) (Timing, error) {
	if hz == 0 {
		return Timing{}, fmt.Errorf("clock frequency 0: %w", pkg.ErrInvalidParameter)
	}
	var err error
	conv := func(v uint32) uint8 {
		c := (uint64(v)*uint64(hz) + 999_999_999) / 1_000_000_000
		if c == 0 {
			c = 1
		}
		if c > 0xff && err == nil {
			err = fmt.Errorf("%d ns at %d Hz exceeds 255 cycles: %w", v, hz, pkg.ErrInvalidParameter)
		}
		return uint8(c)
	}
	t := Timing{
		TS: conv(ns.TS), TWP: conv(ns.TWP), TRP: conv(ns.TRP), TH: conv(ns.TH),
		TWH: conv(ns.TWH), TRH: conv(ns.TRH), TRR: conv(ns.TRR), TWB: conv(ns.TWB),
		TCCS: conv(ns.TCCS), TWTR: conv(ns.TWTR), TRTW: conv(ns.TRTW), TADL: conv(ns.TADL),
	}
	return t, err
}

// Config is the controller configuration applied by Init.
type Config struct {
	Geometry Geometry
	Timing   Timing
	EccMode  EccMode

	// ResetTimeout is the status poll budget for the reset issued to every
	// bank during Init.
	ResetTimeout uint32

	// Logger receives every log record of the controller, tagged with the
	// emitting component. If nil, records go to the pkg default logger,
	// looked up on each call so pkg.SetLogger takes effect immediately.
	Logger *slog.Logger
}

// Validate checks the geometry, timing and ECC mode.
func (c *Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return err
	}
	if err := c.Timing.Validate(); err != nil {
		return err
	}
	if c.EccMode > Ecc4Bit {
		return fmt.Errorf("ecc mode %d: %w", c.EccMode, pkg.ErrInvalidParameter)
	}
	if c.ResetTimeout == 0 {
		return fmt.Errorf("reset timeout 0: %w", pkg.ErrInvalidParameter)
	}
	return nil
}
