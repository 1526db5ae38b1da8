package ball

import (
	"math"
)

// CertifiedDigits reports how many decimal digits of the center are backed
// by the error radius.
func (a Real) CertifiedDigits() int {
	return int(float64(a.AccurateBits()) * math.Ln2 / math.Ln10)
}

// Text renders the center in decimal with at most digits significant
// digits, clipped to the certified count so the printed precision never
// overstates the error bound. A value with no certified digits renders as
// "0.e+0" style from its exponent alone.
func (a Real) Text(digits int) string {
	certified := a.CertifiedDigits()
	if certified < digits {
		digits = certified
	}
	if digits < 1 {
		digits = 1
	}
	return a.c.Text('g', digits)
}

// String renders the ball with its full certified precision.
func (a Real) String() string {
	digits := a.CertifiedDigits()
	if digits < 1 {
		digits = 1
	}
	if a.Exact() {
		return a.c.Text('g', digits)
	}
	return a.c.Text('g', digits) + " +/- " + a.r.Text('e', 3)
}
