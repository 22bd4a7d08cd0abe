package mt29f2g08ab

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ardnew/softnand/nfc"
	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/pkg"
)

const component = pkg.ComponentBSP

// Bank is the controller bank the device is wired to.
const Bank = 0

// Device organization.
const (
	PageSize      = 2048
	SpareSize     = 64
	PagesPerBlock = 64
	BlockCount    = 2048
)

// Status poll budgets for each operation.
const (
	ResetTimeout   = 10_000
	ReadTimeout    = 1_000
	ProgramTimeout = 10_000
	EraseTimeout   = 50_000
)

// ID is the manufacturer code, device code and the three ID bytes that
// follow, as returned by READ ID at address 0x00.
var ID = [5]byte{0x2c, 0xda, 0x90, 0x95, 0x06}

// ErrUnexpectedID is returned by Init when READ ID does not match ID.
var ErrUnexpectedID = fmt.Errorf("unexpected device id: %w", pkg.ErrDevice)

// TimingNs holds the datasheet AC timings in nanoseconds.
var TimingNs = nfc.TimingNanoseconds{
	TS:   10,  // tCLS
	TWP:  12,  // tWP
	TRP:  12,  // tRP
	TH:   5,   // tCLH
	TWH:  10,  // tWH
	TRH:  10,  // tREH
	TRR:  20,  // tRR
	TWB:  100, // tWB
	TCCS: 200, // tCCS
	TWTR: 60,  // tWHR
	TRTW: 100, // tRHW
	TADL: 70,  // tADL
}

// Geometry returns the device organization.
func Geometry() nfc.Geometry {
	return nfc.Geometry{
		Capacity:      nfc.Capacity2Gb,
		Banks:         1,
		PageSize:      PageSize,
		PagesPerBlock: PagesPerBlock,
		RowCycles:     3,
		BusWidth:      8,
	}
}

// Timing converts TimingNs to cycles of a controller clock running at hz.
func Timing(hz uint32) (nfc.Timing, error) {
	return nfc.TimingFromNanoseconds(hz, TimingNs)
}

// Config returns a controller configuration for the device at hz.
func Config(hz uint32, mode nfc.EccMode) (nfc.Config, error) {
	t, err := Timing(hz)
	if err != nil {
		return nfc.Config{}, err
	}
	return nfc.Config{
		Geometry:     Geometry(),
		Timing:       t,
		EccMode:      mode,
		ResetTimeout: ResetTimeout,
	}, nil
}

// Init configures a controller over h for the device at hz and verifies
// the device ID. On an ID mismatch the controller is deinitialized.
func Init(h hal.HAL, hz uint32, mode nfc.EccMode) (*nfc.Controller, error) {
	cfg, err := Config(hz, mode)
	if err != nil {
		return nil, err
	}
	c := nfc.New(h)
	if err := c.Init(cfg); err != nil {
		return nil, err
	}

	var id [len(ID)]byte
	if err := c.ReadID(Bank, nfc.IDAddressJEDEC, id[:], ReadTimeout); err != nil {
		return nil, errors.Join(err, c.Deinit())
	}
	if !bytes.Equal(id[:], ID[:]) {
		pkg.LogError(component, "device id mismatch", "got", fmt.Sprintf("% x", id), "want", fmt.Sprintf("% x", ID))
		return nil, errors.Join(fmt.Errorf("% x: %w", id, ErrUnexpectedID), c.Deinit())
	}

	pkg.LogInfo(component, "device ready", "hz", hz, "ecc", mode.String())
	return c, nil
}
