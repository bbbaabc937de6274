package pricing

import "math/bits"

// u128 is an unsigned 128-bit integer used for fixed-point price arithmetic.
// All operations are checked: anything that would exceed 128 bits reports
// failure instead of wrapping. Wrapping here would be a price-manipulation
// vector, not just a correctness bug.
type u128 struct {
	hi, lo uint64
}

func u128From(v uint64) u128 { return u128{lo: v} }

func (a u128) isZero() bool { return a.hi == 0 && a.lo == 0 }

// cmp returns -1, 0, or 1.
func (a u128) cmp(b u128) int {
	switch {
	case a.hi < b.hi:
		return -1
	case a.hi > b.hi:
		return 1
	case a.lo < b.lo:
		return -1
	case a.lo > b.lo:
		return 1
	}
	return 0
}

// mul returns a*b and false on 128-bit overflow.
func (a u128) mul(b u128) (u128, bool) {
	if a.hi != 0 && b.hi != 0 {
		return u128{}, false
	}
	hi, lo := bits.Mul64(a.lo, b.lo)
	c1, p1 := bits.Mul64(a.hi, b.lo)
	c2, p2 := bits.Mul64(a.lo, b.hi)
	if c1 != 0 || c2 != 0 {
		return u128{}, false
	}
	var carry uint64
	hi, carry = bits.Add64(hi, p1, 0)
	if carry != 0 {
		return u128{}, false
	}
	hi, carry = bits.Add64(hi, p2, 0)
	if carry != 0 {
		return u128{}, false
	}
	return u128{hi: hi, lo: lo}, true
}

func (a u128) mul64(m uint64) (u128, bool) { return a.mul(u128From(m)) }

// div64 divides by a non-zero 64-bit divisor, truncating toward zero.
func (a u128) div64(d uint64) u128 {
	qhi := a.hi / d
	rem := a.hi % d
	qlo, _ := bits.Div64(rem, a.lo, d)
	return u128{hi: qhi, lo: qlo}
}

// toUint64 narrows to 64 bits, reporting failure when the value does not fit.
func (a u128) toUint64() (uint64, bool) {
	if a.hi != 0 {
		return 0, false
	}
	return a.lo, true
}

// floorOne returns a, raised to 1 if it is zero.
func (a u128) floorOne() u128 {
	if a.isZero() {
		return u128From(1)
	}
	return a
}
