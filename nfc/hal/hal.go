package hal

// Reg is the byte offset of a controller register from the controller base.
type Reg uint32

// Controller registers.
const (
	BACR  Reg = 0x000 // Bank configuration
	TMCR0 Reg = 0x004 // Timing: TS, TWP, TRP, TH
	TMCR1 Reg = 0x008 // Timing: TWH, TRH, TRR, TWB
	TMCR2 Reg = 0x00c // Timing: TCCS, TWTR, TRTW, TADL
	IENR  Reg = 0x010 // Interrupt enable
	ISTR  Reg = 0x014 // Interrupt status, write 1 to clear
	CMDR  Reg = 0x018 // Command
	IDXR0 Reg = 0x01c // Row address
	IDXR1 Reg = 0x020 // Column address
	ECCCR Reg = 0x024 // ECC control
	ECCSR Reg = 0x028 // ECC section error flags
	DATR  Reg = 0x040 // Data window, 4 bytes per access
	ECCR0 Reg = 0x080 // 1-bit ECC syndrome of section 0
	SYND0 Reg = 0x100 // 4-bit ECC syndrome S1 of section 0
)

// MaxBanks is the number of chip-select banks the controller drives.
const MaxBanks = 8

// MaxSections is the number of 512-byte ECC sections in the largest page.
const MaxSections = 16

// SyndromeWords is the number of 4-bit ECC syndrome registers per section.
const SyndromeWords = 8

// ECCR returns the 1-bit ECC syndrome register of section.
func ECCR(section int) Reg {
	return ECCR0 + Reg(section)*4
}

// SYND returns 4-bit ECC syndrome register word (0 for S1) of section.
func SYND(section, word int) Reg {
	return SYND0 + Reg(section)*SyndromeWords*4 + Reg(word)*4
}

// Field is a bit field within a 32-bit register.
type Field struct {
	Shift uint8
	Width uint8
}

// Mask returns the field mask in register position.
func (f Field) Mask() uint32 {
	return (1<<f.Width - 1) << f.Shift
}

// Get extracts the field from a register value.
func (f Field) Get(v uint32) uint32 {
	return (v & f.Mask()) >> f.Shift
}

// Set returns v with the field replaced by x. Bits of x beyond the field
// width are discarded.
func (f Field) Set(v, x uint32) uint32 {
	return v&^f.Mask() | (x<<f.Shift)&f.Mask()
}

// Fits reports whether x is representable in the field.
func (f Field) Fits(x uint32) bool {
	return x < 1<<f.Width
}

// BACR fields.
var (
	BACRCapacity  = Field{0, 3}  // Device capacity code
	BACRBanks     = Field{4, 3}  // Number of banks minus one
	BACRPageSize  = Field{8, 2}  // 0: 2 KiB, 1: 4 KiB, 2: 8 KiB
	BACRBusWidth  = Field{10, 1} // 0: 8-bit
	BACREccMode   = Field{12, 1} // 0: 1-bit Hamming, 1: 4-bit BCH
	BACRRowCycles = Field{13, 1} // 0: two row cycles, 1: three
	BACRWriteProt = Field{15, 1} // Assert WP#
)

// Timing register fields. Each timing register packs four cycle counts.
var (
	TMCRField0 = Field{0, 8}
	TMCRField1 = Field{8, 8}
	TMCRField2 = Field{16, 8}
	TMCRField3 = Field{24, 8}
)

// Interrupt enable and status fields.
var (
	IntReady    = Field{0, MaxBanks} // Per-bank ready, bit n for bank n
	IntEccError = Field{8, 1}        // Last ECC read flagged a section
)

// CMDR fields.
var (
	CMDRCommand = Field{0, 8}
	CMDRBank    = Field{8, 3}
)

// Address and ECC control fields.
var (
	IDXR0Row     = Field{0, 24}
	IDXR1Column  = Field{0, 16}
	ECCCREnable  = Field{0, 1}
	ECCSRSection = Field{0, MaxSections}
	ECCRSyndrome = Field{0, 24}
	SYNDValue    = Field{0, 13}
)

// ReadyBit returns the ISTR/IENR bit for bank.
func ReadyBit(bank int) uint32 {
	return 1 << (uint(bank) + uint(IntReady.Shift))
}

// Spare area layout written by the controller in hardware ECC modes. The
// first EccSpareOffset bytes are left to the user (bad-block marker, metadata).
const (
	EccSpareOffset = 8
	HammingStride  = 3 // bytes per section, 1-bit mode
	BCHStride      = 7 // bytes per section, 4-bit mode
)

// EccSpareRange returns the spare-area offset and length of the ECC bytes of
// section for the BACR ECC mode value mode.
func EccSpareRange(mode uint32, section int) (offset, length int) {
	stride := HammingStride
	if mode != 0 {
		stride = BCHStride
	}
	return EccSpareOffset + section*stride, stride
}

// HAL is the register-level interface to one NAND flash controller instance.
//
// Read32 and Write32 access the controller's register file; they never fail.
// Platform code backs them with memory-mapped I/O, a debug probe or a
// simulator.
type HAL interface {
	// Read32 returns the value of reg.
	Read32(reg Reg) uint32

	// Write32 stores value in reg.
	Write32(reg Reg, value uint32)

	// EnableClock gates the controller's clock domain on or off.
	EnableClock(enable bool)

	// ConfigurePins routes the NAND signal lines to the controller.
	ConfigurePins() error
}

// InterruptSource is implemented by HALs that deliver controller interrupts.
// The handler runs in interrupt context (or its own goroutine) and must not
// block.
type InterruptSource interface {
	SetInterruptHandler(handler func())
}

// ParamPageSize is the length of one ONFI parameter page copy.
const ParamPageSize = 256

// ParamPageCRC computes the ONFI parameter page CRC-16 (polynomial 0x8005,
// initial value 0x4f4e, MSB first) over data.
func ParamPageCRC(data []byte) uint16 {
	crc := uint16(0x4f4e)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ 0x8005
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
