package ball

import "math/big"

// Arbitrary-precision kernels for the elementary functions math/big does
// not supply. These operate on bare centers; the exported ball operations
// in functions.go attach the propagated radii.
//
// All kernels work at an internal precision comfortably above the requested
// one and round the final result down to prec, so the returned value is
// accurate to within one ulp at prec.

const kernelGuard = 20

func newF(prec uint) *big.Float { return new(big.Float).SetPrec(prec) }

// expFloat computes e^x. Argument reduction x = k*ln2 + t with |t| <= ln2,
// followed by the Taylor series on t and a binary exponent shift.
func expFloat(x *big.Float, prec uint) *big.Float {
	if x.Sign() == 0 {
		return newF(prec).SetInt64(1)
	}
	wp := prec + kernelGuard
	if e := expOf(x); e > 0 {
		wp += uint(e)
	}
	l2 := ln2Float(wp)
	q := newF(wp).Quo(x, l2)
	k, _ := q.Int(nil)
	t := newF(wp).Sub(x, newF(wp).Mul(l2, newF(wp).SetInt(k)))

	sum := newF(wp).SetInt64(1)
	term := newF(wp).SetInt64(1)
	for n := int64(1); ; n++ {
		term.Mul(term, t)
		term.Quo(term, newF(wp).SetInt64(n))
		if term.Sign() == 0 || expOf(term) < -int(wp) {
			break
		}
		sum.Add(sum, term)
	}
	out := newF(prec).SetMantExp(sum, int(k.Int64()))
	return out
}

// logFloat computes the natural logarithm of a positive x via
// ln x = ln m + e*ln 2 with m the mantissa in [1/2, 1), and
// ln m = 2*atanh((m-1)/(m+1)).
func logFloat(x *big.Float, prec uint) (*big.Float, error) {
	if x.Sign() <= 0 {
		return nil, NewDomainError("log of a nonpositive value", nil)
	}
	wp := prec + kernelGuard
	m := newF(wp)
	e := x.MantExp(m)

	num := newF(wp).Sub(m, newF(wp).SetInt64(1))
	den := newF(wp).Add(m, newF(wp).SetInt64(1))
	t := newF(wp).Quo(num, den)

	lnm := atanhSeries(t, wp)
	lnm.Mul(lnm, newF(wp).SetInt64(2))

	out := newF(wp).Mul(ln2Float(wp), newF(wp).SetInt64(int64(e)))
	out.Add(out, lnm)
	return newF(prec).Set(out), nil
}

// atanhSeries sums t + t^3/3 + t^5/5 + ... for |t| < 1/2.
func atanhSeries(t *big.Float, wp uint) *big.Float {
	sum := newF(wp).Set(t)
	term := newF(wp).Set(t)
	t2 := newF(wp).Mul(t, t)
	for k := int64(1); ; k++ {
		term.Mul(term, t2)
		if term.Sign() == 0 || expOf(term) < -int(wp) {
			break
		}
		c := newF(wp).Quo(term, newF(wp).SetInt64(2*k+1))
		sum.Add(sum, c)
	}
	return sum
}

// sincosFloat computes sin x and cos x together, reducing the argument
// modulo 2*pi first. Large arguments cost extra working precision equal to
// their binary exponent.
func sincosFloat(x *big.Float, prec uint) (*big.Float, *big.Float) {
	wp := prec + kernelGuard
	if e := expOf(x); e > 0 {
		wp += uint(e)
	}
	twoPi := newF(wp).Mul(piFloat(wp+2), newF(wp).SetInt64(2))

	red := newF(wp).Set(x)
	q := newF(wp).Quo(red, twoPi)
	qi, _ := q.Int(nil)
	red.Sub(red, newF(wp).Mul(twoPi, newF(wp).SetInt(qi)))
	if red.Sign() < 0 {
		red.Add(red, twoPi)
	}

	sin := newF(wp).Set(red)
	cos := newF(wp).SetInt64(1)
	sinTerm := newF(wp).Set(red)
	cosTerm := newF(wp).SetInt64(1)
	r2 := newF(wp).Mul(red, red)
	for n := int64(1); ; n++ {
		// cos term: (-1)^n x^(2n)/(2n)!, sin term: (-1)^n x^(2n+1)/(2n+1)!
		cosTerm.Mul(cosTerm, r2)
		cosTerm.Quo(cosTerm, newF(wp).SetInt64((2*n-1)*(2*n)))
		cosTerm.Neg(cosTerm)
		sinTerm.Mul(sinTerm, r2)
		sinTerm.Quo(sinTerm, newF(wp).SetInt64((2*n)*(2*n+1)))
		sinTerm.Neg(sinTerm)
		done := true
		if cosTerm.Sign() != 0 && expOf(cosTerm) >= -int(wp) {
			cos.Add(cos, cosTerm)
			done = false
		}
		if sinTerm.Sign() != 0 && expOf(sinTerm) >= -int(wp) {
			sin.Add(sin, sinTerm)
			done = false
		}
		if done {
			break
		}
	}
	return newF(prec).Set(sin), newF(prec).Set(cos)
}

// atanFloat computes arctan x. Arguments above one are folded through
// pi/2 - atan(1/x); the remaining range is halved via
// atan(x) = 2*atan(x/(1+sqrt(1+x^2))) until the Taylor series converges
// at four bits per term.
func atanFloat(x *big.Float, prec uint) *big.Float {
	wp := prec + kernelGuard
	neg := x.Sign() < 0
	y := newF(wp).Abs(x)

	if y.Cmp(newF(wp).SetInt64(1)) > 0 {
		inv := newF(wp).Quo(newF(wp).SetInt64(1), y)
		half := newF(wp).Quo(piFloat(wp), newF(wp).SetInt64(2))
		out := newF(wp).Sub(half, atanFloat(inv, wp))
		if neg {
			out.Neg(out)
		}
		return newF(prec).Set(out)
	}

	halvings := 0
	one := newF(wp).SetInt64(1)
	for y.Sign() != 0 && expOf(y) >= -1 {
		// y <- y / (1 + sqrt(1+y^2))
		s := newF(wp).Mul(y, y)
		s.Add(s, one)
		s.Sqrt(s)
		s.Add(s, one)
		y.Quo(y, s)
		halvings++
	}

	sum := newF(wp).Set(y)
	term := newF(wp).Set(y)
	y2 := newF(wp).Mul(y, y)
	for k := int64(1); ; k++ {
		term.Mul(term, y2)
		term.Neg(term)
		if term.Sign() == 0 || expOf(term) < -int(wp) {
			break
		}
		c := newF(wp).Quo(term, newF(wp).SetInt64(2*k+1))
		sum.Add(sum, c)
	}
	out := newF(prec).SetMantExp(sum, halvings)
	if neg {
		out.Neg(out)
	}
	return out
}
