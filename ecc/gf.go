package ecc

// GF(2^13) arithmetic in log/antilog form.
const (
	gfBits  = 13
	gfSize  = 1 << gfBits // field elements, including zero
	gfOrder = gfSize - 1  // multiplicative group order
	gfPoly  = 0x201b      // x^13 + x^4 + x^3 + x + 1
)

var (
	// alphaTo[i] = α^i.
	alphaTo [gfOrder]uint16
	// indexOf[x] = log_α(x); indexOf[0] is unused.
	indexOf [gfSize]int
)

func init() {
	x := 1
	for i := 0; i < gfOrder; i++ {
		alphaTo[i] = uint16(x)
		indexOf[x] = i
		x <<= 1
		if x&gfSize != 0 {
			x ^= gfPoly
		}
	}
	indexOf[0] = -1
	initBCH()
}

// gfMod reduces an exponent into [0, gfOrder).
func gfMod(e int) int {
	e %= gfOrder
	if e < 0 {
		e += gfOrder
	}
	return e
}

// gfPow returns α^e.
func gfPow(e int) uint16 {
	return alphaTo[gfMod(e)]
}

func gfMul(a, b uint16) uint16 {
	if a == 0 || b == 0 {
		return 0
	}
	return alphaTo[gfMod(indexOf[a]+indexOf[b])]
}

// gfInv returns the multiplicative inverse of a non-zero element.
func gfInv(a uint16) uint16 {
	return alphaTo[gfMod(-indexOf[a])]
}

// minimalPoly returns the minimal polynomial of α^e over GF(2), bit i
// holding the coefficient of x^i.
func minimalPoly(e int) uint64 {
	e = gfMod(e)
	p := []uint16{1}
	for c := e; ; {
		root := alphaTo[c]
		q := make([]uint16, len(p)+1)
		for k, coef := range p {
			q[k+1] ^= coef
			q[k] ^= gfMul(coef, root)
		}
		p = q
		if c = gfMod(c * 2); c == e {
			break
		}
	}
	var out uint64
	for k, coef := range p {
		if coef == 1 {
			out |= 1 << k
		}
	}
	return out
}

// clmul multiplies two GF(2) polynomials. The product must fit in 64 bits.
func clmul(a, b uint64) uint64 {
	var r uint64
	for ; b != 0; b >>= 1 {
		if b&1 != 0 {
			r ^= a
		}
		a <<= 1
	}
	return r
}
