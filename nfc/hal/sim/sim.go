package sim

import (
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	"github.com/ardnew/softnand/ecc"
	"github.com/ardnew/softnand/nfc/hal"
	"github.com/ardnew/softnand/pkg"
)

const component = pkg.ComponentHAL

// Defaults for a newly created simulator.
const (
	DefaultBusyPolls     = 3
	DefaultPagesPerBlock = 64
)

// DefaultID is returned by READ ID when no other ID is configured.
var DefaultID = []byte{0x2c, 0xda, 0x90, 0x95, 0x06}

// onfiSignature is returned by READ ID at address 0x20.
var onfiSignature = []byte{'O', 'N', 'F', 'I'}

// NAND command bytes understood by the simulated controller.
const (
	cmdRead         = 0x00
	cmdProgConfirm  = 0x10
	cmdReadConfirm  = 0x30
	cmdEraseSetup   = 0x60
	cmdStatus       = 0x70
	cmdProgSetup    = 0x80
	cmdReadID       = 0x90
	cmdEraseConfirm = 0xd0
	cmdParamPage    = 0xec
	cmdReset        = 0xff
)

// Option configures a simulator.
type Option func(*HAL)

// WithBusyPolls sets how many ISTR reads a busy operation lasts. Zero makes
// every operation complete immediately.
func WithBusyPolls(n int) Option {
	return func(h *HAL) { h.busyPolls = n }
}

// WithInterruptDelay sets the delay before a busy operation with its ready
// interrupt enabled completes and raises the interrupt.
func WithInterruptDelay(d time.Duration) Option {
	return func(h *HAL) { h.irqDelay = d }
}

// WithID sets the bytes returned by READ ID at address 0x00.
func WithID(id []byte) Option {
	return func(h *HAL) { h.id = append([]byte(nil), id...) }
}

// WithPagesPerBlock sets the erase block size in pages.
func WithPagesPerBlock(n int) Option {
	return func(h *HAL) { h.pagesPerBlock = n }
}

// HAL implements hal.HAL and hal.InterruptSource with an in-memory model of
// the controller and one NAND die per bank.
//
// The model honors the controller's command sequencing: setup/confirm pairs,
// index registers, the data window, ready flags and the ECC registers. It
// also offers fault injection (bit flips, stuck-busy banks, program and
// erase failures) for exercising error paths.
type HAL struct {
	mutex sync.Mutex

	regs map[hal.Reg]uint32
	istr uint32

	clock bool
	pins  bool

	dies  [hal.MaxBanks]*die
	busy  [hal.MaxBanks]int
	stuck [hal.MaxBanks]bool

	busyPolls     int
	irqDelay      time.Duration
	id            []byte
	pagesPerBlock int
	handler       func()

	// Command sequencing state
	setup  byte
	row    uint32
	out    []byte
	outPos int
	in     []byte
	inPos  int

	commands int
}

// New creates a simulator with all pages of every bank erased.
func New(opts ...Option) *HAL {
	h := &HAL{
		regs:          make(map[hal.Reg]uint32),
		busyPolls:     DefaultBusyPolls,
		id:            append([]byte(nil), DefaultID...),
		pagesPerBlock: DefaultPagesPerBlock,
	}
	for i := range h.dies {
		h.dies[i] = newDie()
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// EnableClock gates the simulated controller. While gated, reads return zero
// and writes are ignored.
func (h *HAL) EnableClock(enable bool) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.clock = enable
}

// ConfigurePins records that the signal lines were routed.
func (h *HAL) ConfigurePins() error {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.pins = true
	return nil
}

// SetInterruptHandler installs the controller interrupt handler.
func (h *HAL) SetInterruptHandler(handler func()) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.handler = handler
}

// Read32 returns the value of reg.
func (h *HAL) Read32(reg hal.Reg) uint32 {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.clock {
		return 0
	}

	switch reg {
	case hal.ISTR:
		h.tick()
		return h.istr
	case hal.DATR:
		var w [4]byte
		for i := range w {
			w[i] = 0xff
			if h.outPos+i < len(h.out) {
				w[i] = h.out[h.outPos+i]
			}
		}
		h.outPos += 4
		return binary.LittleEndian.Uint32(w[:])
	default:
		return h.regs[reg]
	}
}

// Write32 stores value in reg.
func (h *HAL) Write32(reg hal.Reg, value uint32) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	if !h.clock {
		return
	}

	switch reg {
	case hal.ISTR:
		h.istr &^= value
	case hal.CMDR:
		h.command(byte(hal.CMDRCommand.Get(value)), int(hal.CMDRBank.Get(value)))
	case hal.DATR:
		var w [4]byte
		binary.LittleEndian.PutUint32(w[:], value)
		for i := range w {
			if h.inPos+i < len(h.in) {
				h.in[h.inPos+i] = w[i]
			}
		}
		h.inPos += 4
	default:
		h.regs[reg] = value
	}
}

// tick advances every busy bank by one status poll.
func (h *HAL) tick() {
	for b := range h.busy {
		if h.busy[b] == 0 || h.stuck[b] {
			continue
		}
		if h.busy[b]--; h.busy[b] == 0 {
			h.istr |= hal.ReadyBit(b)
		}
	}
}

// layout returns the page data and spare sizes configured in BACR.
func (h *HAL) layout() (page, spare int) {
	page = 2048 << hal.BACRPageSize.Get(h.regs[hal.BACR])
	return page, page / 32
}

func (h *HAL) eccEnabled() bool {
	return hal.ECCCREnable.Get(h.regs[hal.ECCCR]) != 0
}

func (h *HAL) writeProtected() bool {
	return hal.BACRWriteProt.Get(h.regs[hal.BACR]) != 0
}

func (h *HAL) command(cmd byte, bank int) {
	h.commands++
	d := h.dies[bank]
	row := hal.IDXR0Row.Get(h.regs[hal.IDXR0])
	col := int(hal.IDXR1Column.Get(h.regs[hal.IDXR1]))
	page, spare := h.layout()

	switch cmd {
	case cmdReset:
		h.setup, h.in, h.out = 0, nil, nil
		d.status = statusNotWP | statusReadyAll
		h.startBusy(bank)

	case cmdReadID:
		if row&0xff == 0x20 {
			h.load(onfiSignature, 0)
		} else {
			h.load(h.id, 0)
		}
		h.startBusy(bank)

	case cmdParamPage:
		h.load(h.parameterPage(), 0)
		h.startBusy(bank)

	case cmdStatus:
		h.load([]byte{d.status}, 0)

	case cmdRead, cmdEraseSetup:
		h.setup, h.row = cmd, row

	case cmdProgSetup:
		h.setup, h.row = cmd, row
		h.in = erased(page + spare)
		h.inPos = col

	case cmdReadConfirm:
		if h.setup != cmdRead {
			pkg.LogWarn(component, "read confirm without setup", "bank", bank)
			return
		}
		h.setup = 0
		data := d.read(h.row, page+spare)
		if h.eccEnabled() {
			h.check(data, page)
		}
		h.load(data, col)
		h.startBusy(bank)

	case cmdProgConfirm:
		if h.setup != cmdProgSetup {
			pkg.LogWarn(component, "program confirm without setup", "bank", bank)
			return
		}
		h.setup = 0
		if h.eccEnabled() {
			h.generate(h.in, page)
		}
		d.program(h.row, h.in, h.writeProtected())
		h.in = nil
		h.startBusy(bank)

	case cmdEraseConfirm:
		if h.setup != cmdEraseSetup {
			pkg.LogWarn(component, "erase confirm without setup", "bank", bank)
			return
		}
		h.setup = 0
		ppb := uint32(h.pagesPerBlock)
		d.erase(h.row/ppb*ppb, h.pagesPerBlock, h.writeProtected())
		h.startBusy(bank)

	default:
		pkg.LogWarn(component, "unknown command", "cmd", fmt.Sprintf("%#02x", cmd), "bank", bank)
	}
}

func (h *HAL) load(data []byte, pos int) {
	h.out = data
	h.outPos = pos
}

// startBusy clears the bank's ready flag and schedules its completion.
func (h *HAL) startBusy(bank int) {
	rb := hal.ReadyBit(bank)
	h.istr &^= rb
	h.busy[bank] = h.busyPolls
	if h.busyPolls == 0 && !h.stuck[bank] {
		h.istr |= rb
	}
	if h.regs[hal.IENR]&rb != 0 && h.handler != nil {
		time.AfterFunc(h.irqDelay, func() { h.raise(bank) })
	}
}

// raise completes the bank's busy operation and runs the interrupt handler.
func (h *HAL) raise(bank int) {
	h.mutex.Lock()
	if h.stuck[bank] {
		h.mutex.Unlock()
		return
	}
	h.busy[bank] = 0
	h.istr |= hal.ReadyBit(bank)
	handler := h.handler
	h.mutex.Unlock()

	if handler != nil {
		handler()
	}
}

// generate writes the ECC bytes of every section of buf into its spare area.
func (h *HAL) generate(buf []byte, page int) {
	mode := hal.BACREccMode.Get(h.regs[hal.BACR])
	for s := 0; s < page/ecc.SectorSize; s++ {
		sector := buf[s*ecc.SectorSize : (s+1)*ecc.SectorSize]
		off, _ := hal.EccSpareRange(mode, s)
		dst := buf[page+off:]
		if mode == 0 {
			code, _ := ecc.HammingCode(sector)
			ecc.PutHammingCode(dst, code)
		} else {
			parity, _ := ecc.BCHParity(sector)
			copy(dst, parity[:])
		}
	}
}

// check computes the syndrome registers for every section of a page read.
func (h *HAL) check(buf []byte, page int) {
	mode := hal.BACREccMode.Get(h.regs[hal.BACR])
	var flags uint32
	for s := 0; s < hal.MaxSections; s++ {
		h.regs[hal.ECCR(s)] = 0
		for w := 0; w < hal.SyndromeWords; w++ {
			h.regs[hal.SYND(s, w)] = 0
		}
		if s >= page/ecc.SectorSize {
			continue
		}
		sector := buf[s*ecc.SectorSize : (s+1)*ecc.SectorSize]
		off, n := hal.EccSpareRange(mode, s)
		stored := buf[page+off : page+off+n]
		if mode == 0 {
			syn, _ := ecc.HammingSyndrome(sector, ecc.LoadHammingCode(stored))
			h.regs[hal.ECCR(s)] = syn
			if syn != 0 {
				flags |= 1 << s
			}
			continue
		}
		synd, _ := ecc.BCHSyndromes(sector, stored)
		for w, v := range synd {
			h.regs[hal.SYND(s, w)] = uint32(v)
			if v != 0 {
				flags |= 1 << s
			}
		}
	}
	h.regs[hal.ECCSR] = flags
	if flags != 0 {
		h.istr |= hal.IntEccError.Mask()
	}
}
