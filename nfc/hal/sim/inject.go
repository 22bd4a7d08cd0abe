package sim

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/pkg"
)

func checkBank(bank int) error {
	if bank < 0 || bank >= hal.MaxBanks {
		return fmt.Errorf("bank %d: %w", bank, pkg.ErrAddressRange)
	}
	return nil
}

// FlipBit inverts one stored bit of a page. offset indexes the page data
// followed by its spare area.
func (h *HAL) FlipBit(bank int, row uint32, offset int, bit uint) error {
	if err := checkBank(bank); err != nil {
		return err
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()

	page, spare := h.layout()
	if offset < 0 || offset >= page+spare || bit > 7 {
		return fmt.Errorf("flip offset %d bit %d: %w", offset, bit, pkg.ErrAddressRange)
	}
	p := h.dies[bank].page(row, page+spare)
	p[offset] ^= 1 << bit
	return nil
}

// Page returns a copy of the stored page data and spare area.
func (h *HAL) Page(bank int, row uint32) []byte {
	if checkBank(bank) != nil {
		return nil
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()

	page, spare := h.layout()
	return h.dies[bank].read(row, page+spare)
}

// SetStuck makes the bank's ready flag never assert (or restores it).
func (h *HAL) SetStuck(bank int, stuck bool) {
	if checkBank(bank) != nil {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.stuck[bank] = stuck
}

// FailNext makes the bank's next program or erase report FAIL without
// touching the array.
func (h *HAL) FailNext(bank int) {
	if checkBank(bank) != nil {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.dies[bank].failNext = true
}

// ClockEnabled reports whether the controller clock is ungated.
func (h *HAL) ClockEnabled() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.clock
}

// PinsConfigured reports whether ConfigurePins was called.
func (h *HAL) PinsConfigured() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.pins
}

// Commands returns the number of CMDR writes seen.
func (h *HAL) Commands() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.commands
}

// parameterPage builds an ONFI parameter page for the configured geometry.
func (h *HAL) parameterPage() []byte {
	bacr := h.regs[hal.BACR]
	page, spare := h.layout()
	capacity := uint64(64<<20) << hal.BACRCapacity.Get(bacr)
	blocks := capacity / uint64(page) / uint64(h.pagesPerBlock)
	rowCycles := byte(2 + hal.BACRRowCycles.Get(bacr))

	p := make([]byte, hal.ParamPageSize)
	copy(p[0:], "ONFI")
	binary.LittleEndian.PutUint16(p[4:], 0x0002)
	copy(p[32:44], fmt.Sprintf("%-12s", "SOFTNAND"))
	copy(p[44:64], fmt.Sprintf("%-20s", "SIMULATED DIE"))
	if len(h.id) > 0 {
		p[64] = h.id[0]
	}
	binary.LittleEndian.PutUint32(p[80:], uint32(page))
	binary.LittleEndian.PutUint16(p[84:], uint16(spare))
	binary.LittleEndian.PutUint32(p[92:], uint32(h.pagesPerBlock))
	binary.LittleEndian.PutUint32(p[96:], uint32(blocks))
	p[100] = 1
	p[101] = rowCycles | 2<<4
	binary.LittleEndian.PutUint16(p[254:], hal.ParamPageCRC(p[:254]))
	return p
}
