package ecc

import (
	"errors"
	"fmt"
	"math/bits"
)

// SectorSize is the number of data bytes covered by one ECC code word.
const SectorSize = 512

// HammingBytes is the number of spare bytes holding one sector's Hamming code.
const HammingBytes = 3

// hammingMask selects the 24 code bits.
const hammingMask = 1<<24 - 1

// Code layout: bits 0..17 hold nine line-parity pairs (one per byte-address
// bit), bits 18..23 three column-parity pairs (one per bit-index bit). In
// every pair the odd bit covers positions whose address bit is one.
const (
	lineParityPairs   = 9
	columnParityPairs = 3
	columnParityShift = 2 * lineParityPairs
)

var (
	// ErrSectorSize indicates a sector that is not SectorSize bytes long.
	ErrSectorSize = fmt.Errorf("sector must be %d bytes", SectorSize)

	// ErrUncorrectable indicates more bit errors than the code can correct.
	ErrUncorrectable = errors.New("uncorrectable ECC error")

	// ErrLocation indicates a bit location outside the sector.
	ErrLocation = errors.New("bit location out of range")
)

// Ecc1Class classifies a Hamming syndrome.
type Ecc1Class uint8

// Hamming syndrome classes.
const (
	EccNoError           Ecc1Class = iota // Sector and code agree
	EccCorrectable                        // One data bit flipped, location known
	EccCorrectableInCode                  // One bit of the stored code flipped; data intact
	EccUncorrectable                      // Two or more bits flipped
)

// String returns a string representation of the class.
func (c Ecc1Class) String() string {
	switch c {
	case EccNoError:
		return "no error"
	case EccCorrectable:
		return "correctable"
	case EccCorrectableInCode:
		return "correctable in code"
	case EccUncorrectable:
		return "uncorrectable"
	default:
		return "unknown"
	}
}

// BitLocation addresses one bit inside a sector.
type BitLocation struct {
	Byte uint16 // 0..SectorSize-1
	Bit  uint8  // 0..7, LSB first
}

// Ecc1Result is the decoded Hamming syndrome of one sector.
type Ecc1Result struct {
	Class    Ecc1Class
	Location BitLocation // Valid when Class is EccCorrectable
	Syndrome uint32
}

// Err returns ErrUncorrectable for uncorrectable results and nil otherwise.
func (r Ecc1Result) Err() error {
	if r.Class == EccUncorrectable {
		return ErrUncorrectable
	}
	return nil
}

// HammingCode returns the 24-bit code stored in the spare area for sector.
// The code is stored inverted so that an all-0xFF sector has an all-ones code.
func HammingCode(sector []byte) (uint32, error) {
	if len(sector) != SectorSize {
		return 0, ErrSectorSize
	}

	var line uint32 // XOR of the addresses of bytes with odd parity
	var column byte
	for i, b := range sector {
		column ^= b
		if bits.OnesCount8(b)&1 != 0 {
			line ^= uint32(i)
		}
	}
	total := uint32(bits.OnesCount8(column) & 1)

	var code uint32
	for k := 0; k < lineParityPairs; k++ {
		odd := line >> k & 1
		code |= odd<<(2*k+1) | (odd^total)<<(2*k)
	}
	for j := 0; j < columnParityPairs; j++ {
		var odd uint32
		for b := 0; b < 8; b++ {
			if b>>j&1 != 0 {
				odd ^= uint32(column>>b) & 1
			}
		}
		shift := columnParityShift + 2*j
		code |= odd<<(shift+1) | (odd^total)<<shift
	}
	return ^code & hammingMask, nil
}

// PutHammingCode stores code little-endian in dst[:HammingBytes].
func PutHammingCode(dst []byte, code uint32) {
	_ = dst[HammingBytes-1]
	dst[0] = byte(code)
	dst[1] = byte(code >> 8)
	dst[2] = byte(code >> 16)
}

// LoadHammingCode reads a code stored by PutHammingCode.
func LoadHammingCode(src []byte) uint32 {
	_ = src[HammingBytes-1]
	return uint32(src[0]) | uint32(src[1])<<8 | uint32(src[2])<<16
}

// DecodeHamming classifies a syndrome, the XOR of the stored code and the
// code recomputed over the sector as read.
//
// A syndrome with exactly one bit set in every parity pair is a single data
// bit error whose address is spelled by the odd bits. A syndrome with a single
// bit set is an error in the stored code itself. Anything else is
// uncorrectable.
func DecodeHamming(syndrome uint32) Ecc1Result {
	s := syndrome & hammingMask
	r := Ecc1Result{Syndrome: s}
	switch {
	case s == 0:
		r.Class = EccNoError
	case (s^s>>1)&0x555555 == 0x555555:
		r.Class = EccCorrectable
		var byteAddr uint16
		for k := 0; k < lineParityPairs; k++ {
			byteAddr |= uint16(s>>(2*k+1)&1) << k
		}
		var bit uint8
		for j := 0; j < columnParityPairs; j++ {
			bit |= uint8(s>>(columnParityShift+2*j+1)&1) << j
		}
		r.Location = BitLocation{Byte: byteAddr, Bit: bit}
	case bits.OnesCount32(s) == 1:
		r.Class = EccCorrectableInCode
	default:
		r.Class = EccUncorrectable
	}
	return r
}

// HammingSyndrome recomputes the code of sector and returns its XOR with the
// stored code.
func HammingSyndrome(sector []byte, stored uint32) (uint32, error) {
	code, err := HammingCode(sector)
	if err != nil {
		return 0, err
	}
	return (stored ^ code) & hammingMask, nil
}

// Correct flips the bit at loc in sector.
func Correct(sector []byte, loc BitLocation) error {
	if int(loc.Byte) >= len(sector) || loc.Bit > 7 {
		return fmt.Errorf("correct byte %d bit %d: %w", loc.Byte, loc.Bit, ErrLocation)
	}
	sector[loc.Byte] ^= 1 << loc.Bit
	return nil
}
