package ball

import (
	"math/big"
)

const (
	// GuardBits is the fixed safety margin added to the working precision
	// of every operation. Any positive value preserves correctness; the
	// size only affects how often the evaluator has to escalate.
	GuardBits = 10

	// radiusPrec is the precision radii are carried at. Radii only need
	// an order of magnitude, not full precision.
	radiusPrec = 32
)

// Real is a tracked real value: a center at an explicit working precision
// and a nonnegative error radius. A nil radius means exact at this
// precision. The zero Real is not valid; use the constructors.
type Real struct {
	c *big.Float
	r *big.Float
}

// FromInt builds an exact ball from an integer at the given precision.
func FromInt(v *big.Int, prec uint) Real {
	c := new(big.Float).SetPrec(prec)
	c.SetInt(v)
	if c.Acc() != big.Exact {
		return Real{c: c, r: ulp(c, prec)}
	}
	return Real{c: c}
}

// FromInt64 builds an exact ball from an int64.
func FromInt64(v int64, prec uint) Real {
	return FromInt(big.NewInt(v), prec)
}

// FromRat builds a ball from an exact rational at the given precision. The
// radius is zero when the rational is exactly representable, one ulp
// otherwise.
func FromRat(v *big.Rat, prec uint) Real {
	c := new(big.Float).SetPrec(prec)
	c.SetRat(v)
	if c.Acc() != big.Exact {
		return Real{c: c, r: ulp(c, prec)}
	}
	return Real{c: c}
}

// FromFloat builds an exact ball around a float the caller already trusts.
// The float is copied.
func FromFloat(v *big.Float) Real {
	return Real{c: new(big.Float).Copy(v)}
}

// FromParts builds a ball with an explicit radius. Both parts are copied;
// a nil or zero radius marks the value exact.
func FromParts(center, radius *big.Float) Real {
	out := Real{c: new(big.Float).Copy(center)}
	if radius != nil && radius.Sign() != 0 {
		out.r = newRadius().Set(radius)
	}
	return out
}

// Zero returns the exact zero ball at the given precision.
func Zero(prec uint) Real {
	return Real{c: new(big.Float).SetPrec(prec)}
}

// Center returns the center. The result must be treated as read-only.
func (a Real) Center() *big.Float { return a.c }

// Radius returns the error radius; zero when the value is exact. The
// result must be treated as read-only.
func (a Real) Radius() *big.Float {
	if a.r == nil {
		return new(big.Float)
	}
	return a.r
}

// Exact reports whether the radius is zero.
func (a Real) Exact() bool { return a.r == nil || a.r.Sign() == 0 }

// Prec returns the working precision of the center.
func (a Real) Prec() uint { return a.c.Prec() }

// IsZero reports whether the center is exactly zero.
func (a Real) IsZero() bool { return a.c.Sign() == 0 }

// Sign returns the sign of the center.
func (a Real) Sign() int { return a.c.Sign() }

// ContainsZero reports whether the ball includes zero, i.e. whether the
// magnitude of the center does not exceed the radius.
func (a Real) ContainsZero() bool {
	if a.c.Sign() == 0 {
		return true
	}
	if a.Exact() {
		return false
	}
	abs := new(big.Float).Abs(a.c)
	return abs.Cmp(a.r) <= 0
}

// AccurateBits reports how many leading bits of the center are certified by
// the radius: the distance between the center's and the radius's binary
// exponents. Exact values certify their full precision. A ball containing
// zero certifies nothing.
func (a Real) AccurateBits() uint {
	if a.Exact() {
		return a.c.Prec()
	}
	if a.c.Sign() == 0 {
		return 0
	}
	bits := expOf(a.c) - expOf(a.r)
	if bits <= 0 {
		return 0
	}
	return uint(bits)
}

// WithPrec returns a copy rounded to a new working precision. Rounding adds
// one ulp to the radius.
func (a Real) WithPrec(prec uint) Real {
	c := new(big.Float).SetPrec(prec).Set(a.c)
	r := newRadius()
	if a.r != nil {
		r.Set(a.r)
	}
	if c.Acc() != big.Exact {
		r.Add(r, ulp(c, prec))
	}
	if r.Sign() == 0 {
		return Real{c: c}
	}
	return Real{c: c, r: r}
}

// Neg returns -a.
func (a Real) Neg() Real {
	out := Real{c: new(big.Float).Neg(a.c)}
	if a.r != nil {
		out.r = newRadius().Set(a.r)
	}
	return out
}

// Abs returns |a|.
func (a Real) Abs() Real {
	out := Real{c: new(big.Float).Abs(a.c)}
	if a.r != nil {
		out.r = newRadius().Set(a.r)
	}
	return out
}

// Add returns a+b. Absolute radii compose additively, plus one ulp of the
// result when rounding occurred.
func (a Real) Add(b Real) Real {
	prec := workPrec(a, b)
	c := new(big.Float).SetPrec(prec).Add(a.c, b.c)
	return withRounding(c, prec, a.Exact() && b.Exact(), radiusSum(a.r, b.r))
}

// Sub returns a-b.
func (a Real) Sub(b Real) Real {
	prec := workPrec(a, b)
	c := new(big.Float).SetPrec(prec).Sub(a.c, b.c)
	return withRounding(c, prec, a.Exact() && b.Exact(), radiusSum(a.r, b.r))
}

// Mul returns a*b. Relative radii compose: the result radius is
// |a|*rb + |b|*ra + ra*rb plus rounding.
func (a Real) Mul(b Real) Real {
	prec := workPrec(a, b)
	c := new(big.Float).SetPrec(prec).Mul(a.c, b.c)
	var r *big.Float
	if !a.Exact() || !b.Exact() {
		r = newRadius()
		tmp := newRadius()
		if b.r != nil {
			r.Add(r, tmp.Mul(absRadius(a.c), b.r))
		}
		if a.r != nil {
			r.Add(r, tmp.Mul(absRadius(b.c), a.r))
		}
		if a.r != nil && b.r != nil {
			r.Add(r, tmp.Mul(a.r, b.r))
		}
	}
	return withRounding(c, prec, a.Exact() && b.Exact(), r)
}

// Div returns a/b. The denominator ball must exclude zero.
func (a Real) Div(b Real) (Real, error) {
	lb := lowerMagnitude(b)
	if lb == nil || lb.Sign() <= 0 {
		return Real{}, NewDomainError("division by a ball containing zero", nil)
	}
	prec := workPrec(a, b)
	c := new(big.Float).SetPrec(prec).Quo(a.c, b.c)
	var r *big.Float
	if !a.Exact() || !b.Exact() {
		// (|a|*rb + |b|*ra) / (lb * |b|)
		num := newRadius()
		tmp := newRadius()
		if b.r != nil {
			num.Add(num, tmp.Mul(absRadius(a.c), b.r))
		}
		if a.r != nil {
			num.Add(num, tmp.Mul(absRadius(b.c), a.r))
		}
		den := newRadius().Mul(lb, absRadius(b.c))
		r = newRadius().Quo(num, den)
	}
	return withRounding(c, prec, a.Exact() && b.Exact(), r), nil
}

// CancelledBits reports how many leading bits cancel when b is subtracted
// from a: the gap between the larger operand exponent and the exponent of
// the difference, computed exactly from the exponents involved.
func CancelledBits(a, b, diff Real) uint {
	if diff.c.Sign() == 0 {
		// Total cancellation at this precision.
		return max(a.c.Prec(), b.c.Prec())
	}
	hi := expOf(a.c)
	if e := expOf(b.c); e > hi {
		hi = e
	}
	lost := hi - expOf(diff.c)
	if lost <= 0 {
		return 0
	}
	return uint(lost)
}

// expOf returns the binary exponent of x, with zero mapped to the most
// negative representable value so that comparisons behave.
func expOf(x *big.Float) int {
	if x.Sign() == 0 {
		return -1 << 30
	}
	return x.MantExp(nil)
}

// ulp returns 2^(exp(x)-prec), one unit in the last place of x at prec.
func ulp(x *big.Float, prec uint) *big.Float {
	e := -int(prec)
	if x.Sign() != 0 {
		e += x.MantExp(nil)
	}
	return new(big.Float).SetMantExp(big.NewFloat(0.5), e+1)
}

func newRadius() *big.Float {
	return new(big.Float).SetPrec(radiusPrec).SetMode(big.ToPositiveInf)
}

func absRadius(x *big.Float) *big.Float {
	return newRadius().Abs(x)
}

func radiusSum(ra, rb *big.Float) *big.Float {
	if ra == nil && rb == nil {
		return nil
	}
	out := newRadius()
	if ra != nil {
		out.Add(out, ra)
	}
	if rb != nil {
		out.Add(out, rb)
	}
	return out
}

// withRounding attaches the radius to c, adding one ulp when the operation
// rounded. Exact inputs with an exact result stay exact.
func withRounding(c *big.Float, prec uint, inputsExact bool, r *big.Float) Real {
	rounded := c.Acc() != big.Exact
	if inputsExact && !rounded {
		return Real{c: c}
	}
	out := newRadius()
	if r != nil {
		out.Add(out, r)
	}
	if rounded || !inputsExact {
		out.Add(out, ulp(c, prec))
	}
	if out.Sign() == 0 {
		return Real{c: c}
	}
	return Real{c: c, r: out}
}

// lowerMagnitude returns a lower bound on |b|, or nil when the ball
// contains zero.
func lowerMagnitude(b Real) *big.Float {
	abs := new(big.Float).Abs(b.c)
	if b.Exact() {
		return abs
	}
	lb := new(big.Float).SetPrec(radiusPrec).SetMode(big.ToNegativeInf).Sub(abs, b.r)
	if lb.Sign() <= 0 {
		return nil
	}
	return lb
}

func workPrec(a, b Real) uint {
	p := a.c.Prec()
	if q := b.c.Prec(); q > p {
		p = q
	}
	return p + GuardBits
}
