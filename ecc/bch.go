package ecc

// BCH code parameters: t=4 over GF(2^13), shortened to one sector.
const (
	// BCHStrength is the number of bit errors corrected per sector.
	BCHStrength = 4

	// BCHSyndromeCount is the number of syndromes the controller reports.
	BCHSyndromeCount = 2 * BCHStrength

	// BCHParityBits is the number of parity bits per sector.
	BCHParityBits = gfBits * BCHStrength

	// BCHBytes is the number of spare bytes holding one sector's parity.
	BCHBytes = (BCHParityBits + 7) / 8

	bchDataBits = SectorSize * 8
	bchCodeBits = bchDataBits + BCHParityBits
	bchMask     = uint64(1)<<BCHParityBits - 1
)

var (
	// bchGenerator is g(x) = m1(x)·m3(x)·m5(x)·m7(x), degree 52.
	bchGenerator uint64

	// bchErased is the raw parity of an all-0xFF sector. Stored parity is
	// XORed with it so erased sectors read back as a valid code word.
	bchErased [BCHBytes]byte
)

func initBCH() {
	g := uint64(1)
	for i := 1; i < 2*BCHStrength; i += 2 {
		g = clmul(g, minimalPoly(i))
	}
	bchGenerator = g

	erased := make([]byte, SectorSize)
	for i := range erased {
		erased[i] = 0xff
	}
	raw := bchRemainder(erased)
	for i := range bchErased {
		bchErased[i] = ^raw[i]
	}
}

// bchRemainder returns d(x)·x^52 mod g(x) packed LSB first. Data bit k
// (byte k/8, bit k%8) is the coefficient of x^(52+k).
func bchRemainder(sector []byte) [BCHBytes]byte {
	low := bchGenerator & bchMask
	var r uint64
	for k := bchDataBits - 1; k >= 0; k-- {
		in := uint64(sector[k>>3]>>(k&7)) & 1
		fb := in ^ (r>>(BCHParityBits-1))&1
		r = (r << 1) & bchMask
		if fb != 0 {
			r ^= low
		}
	}
	var out [BCHBytes]byte
	for i := range out {
		out[i] = byte(r >> (8 * i))
	}
	return out
}

// BCHParity returns the parity bytes stored in the spare area for sector.
func BCHParity(sector []byte) ([BCHBytes]byte, error) {
	if len(sector) != SectorSize {
		return [BCHBytes]byte{}, ErrSectorSize
	}
	p := bchRemainder(sector)
	for i := range p {
		p[i] ^= bchErased[i]
	}
	return p, nil
}

// BCHSyndromes evaluates the received code word (sector plus stored parity)
// at α^1..α^8. All syndromes are zero when the code word is intact.
func BCHSyndromes(sector, stored []byte) ([BCHSyndromeCount]uint16, error) {
	var s [BCHSyndromeCount]uint16
	if len(sector) != SectorSize {
		return s, ErrSectorSize
	}
	if len(stored) < BCHBytes {
		return s, ErrSectorSize
	}

	accumulate := func(pos int) {
		for j := range s {
			s[j] ^= gfPow((j + 1) * pos)
		}
	}
	for i := 0; i < BCHParityBits; i++ {
		if (stored[i>>3]^bchErased[i>>3])>>(i&7)&1 != 0 {
			accumulate(i)
		}
	}
	for k := 0; k < bchDataBits; k++ {
		if sector[k>>3]>>(k&7)&1 != 0 {
			accumulate(BCHParityBits + k)
		}
	}
	return s, nil
}

// Ecc4Result is the outcome of decoding one sector's BCH syndromes.
type Ecc4Result struct {
	// Locations lists the flipped data bits, in ascending code position.
	Locations []BitLocation
	// CodeErrors counts flipped bits inside the stored parity.
	CodeErrors int
	// Uncorrectable is set when the syndromes match no pattern of at most
	// BCHStrength flips. More than BCHStrength flips usually set it, but a
	// few such patterns lie within BCHStrength bits of another code word and
	// decode as that word's 4-bit error instead.
	Uncorrectable bool
}

// Count returns the number of bit errors located.
func (r Ecc4Result) Count() int {
	return len(r.Locations) + r.CodeErrors
}

// Err returns ErrUncorrectable for uncorrectable results and nil otherwise.
func (r Ecc4Result) Err() error {
	if r.Uncorrectable {
		return ErrUncorrectable
	}
	return nil
}

// DecodeEcc4BitsErrors solves the error-locator polynomial for the syndromes
// S1..S8 of one sector and returns the error locations.
//
// The locator is found with Berlekamp-Massey and its roots with a Chien
// search restricted to the shortened code word. Roots outside the sector are
// never found, so a locator whose degree exceeds the number of roots found
// marks the sector uncorrectable.
//
// Detection beyond BCHStrength errors is not guaranteed. The code's minimum
// distance is 2*BCHStrength+1, so a pattern of BCHStrength+1 or more flips
// may be reported as a correctable result with exactly BCHStrength
// locations, and applying it miscorrects the sector.
func DecodeEcc4BitsErrors(syndromes [BCHSyndromeCount]uint16) Ecc4Result {
	var s [BCHSyndromeCount]uint16
	zero := true
	for i, v := range syndromes {
		s[i] = v & (gfSize - 1)
		if s[i] != 0 {
			zero = false
		}
	}
	if zero {
		return Ecc4Result{}
	}

	lambda, degree := berlekampMassey(s)
	if degree > BCHStrength {
		return Ecc4Result{Uncorrectable: true}
	}

	var r Ecc4Result
	found := 0
	for pos := 0; pos < bchCodeBits && found < degree; pos++ {
		// Λ(α^-pos) == 0 means position pos is in error.
		var v uint16
		for i := 0; i <= degree; i++ {
			if lambda[i] != 0 {
				v ^= gfPow(indexOf[lambda[i]] - i*pos)
			}
		}
		if v != 0 {
			continue
		}
		found++
		if pos < BCHParityBits {
			r.CodeErrors++
			continue
		}
		k := pos - BCHParityBits
		r.Locations = append(r.Locations, BitLocation{Byte: uint16(k >> 3), Bit: uint8(k & 7)})
	}
	if found != degree {
		return Ecc4Result{Uncorrectable: true}
	}
	return r
}

// berlekampMassey returns the error-locator polynomial Λ (coefficient i at
// index i) and its degree.
func berlekampMassey(s [BCHSyndromeCount]uint16) ([BCHSyndromeCount + 1]uint16, int) {
	var c, b [BCHSyndromeCount + 1]uint16
	c[0], b[0] = 1, 1
	degree, shift := 0, 1
	prev := uint16(1)

	for n := 0; n < BCHSyndromeCount; n++ {
		d := s[n]
		for i := 1; i <= degree; i++ {
			d ^= gfMul(c[i], s[n-i])
		}
		if d == 0 {
			shift++
			continue
		}
		coef := gfMul(d, gfInv(prev))
		t := c
		for i := 0; i+shift < len(c); i++ {
			c[i+shift] ^= gfMul(coef, b[i])
		}
		if 2*degree <= n {
			degree = n + 1 - degree
			b = t
			prev = d
			shift = 1
		} else {
			shift++
		}
	}
	return c, degree
}

// CorrectAll applies every location in r to sector.
func (r Ecc4Result) CorrectAll(sector []byte) error {
	if r.Uncorrectable {
		return ErrUncorrectable
	}
	for _, loc := range r.Locations {
		if err := Correct(sector, loc); err != nil {
			return err
		}
	}
	return nil
}
