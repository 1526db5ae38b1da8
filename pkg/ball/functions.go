package ball

import "math/big"

// One returns the exact one ball at the given precision.
func One(prec uint) Real {
	return Real{c: newF(prec).SetInt64(1)}
}

// expUnderflowExp is the binary exponent below which e^a is enclosed by a
// zero-centered ball instead of being computed: arguments below -2^24
// would need result exponents past what the kernel reduction handles.
const expUnderflowExp = 1 << 24

// Exp returns e^a. The radius scales with the result magnitude: a center
// error of r maps to a relative error of e^r - 1.
func (a Real) Exp() Real {
	prec := a.Prec() + GuardBits
	if a.c.Sign() < 0 && expOf(a.c) >= 25 {
		// 0 < e^a < 2^-2^24: the interval [-tiny, tiny] is a valid
		// enclosure at any precision.
		r := newRadius().SetMantExp(newF(radiusPrec).SetInt64(1), -expUnderflowExp)
		return Real{c: newF(a.Prec()), r: r}
	}
	c := expFloat(a.c, prec)
	r := newRadius()
	if !a.Exact() {
		// Relative growth is e^r - 1, bounded above by 2r for r <= 1
		// and by 2*e^r beyond. Both bounds survive upward rounding at
		// radius precision for arbitrarily small r.
		growth := newRadius()
		if a.r.Cmp(newF(radiusPrec).SetInt64(1)) <= 0 {
			growth.Add(a.r, a.r)
		} else {
			g := expFloat(a.r, radiusPrec+4)
			growth.Add(g, g)
		}
		r.Mul(absRadius(c), growth)
	}
	r.Add(r, ulp(c, prec))
	return Real{c: c, r: r}
}

// Log returns the natural logarithm. The ball must lie strictly right of
// zero.
func (a Real) Log() (Real, error) {
	lb := lowerBound(a)
	if lb == nil || lb.Sign() <= 0 {
		return Real{}, NewDomainError("log of a ball touching zero or negative values", nil)
	}
	prec := a.Prec() + GuardBits
	c, err := logFloat(a.c, prec)
	if err != nil {
		return Real{}, err
	}
	r := newRadius()
	if !a.Exact() {
		r.Quo(a.r, lb)
	}
	r.Add(r, ulp(c, prec))
	return Real{c: c, r: r}, nil
}

// Sin returns sin(a). The derivative is bounded by one, so the input
// radius carries through unchanged.
func (a Real) Sin() Real {
	prec := a.Prec() + GuardBits
	s, _ := sincosFloat(a.c, prec)
	return attachUnitDerivative(s, a, prec)
}

// Cos returns cos(a).
func (a Real) Cos() Real {
	prec := a.Prec() + GuardBits
	_, c := sincosFloat(a.c, prec)
	return attachUnitDerivative(c, a, prec)
}

// Tan returns sin(a)/cos(a).
func (a Real) Tan() (Real, error) {
	return a.Sin().Div(a.Cos())
}

// Atan returns arctan(a). The derivative 1/(1+x^2) is bounded by one.
func (a Real) Atan() Real {
	prec := a.Prec() + GuardBits
	c := atanFloat(a.c, prec)
	return attachUnitDerivative(c, a, prec)
}

// Sinh returns (e^a - e^-a)/2.
func (a Real) Sinh() Real {
	ea := a.Exp()
	ena := a.Neg().Exp()
	diff := ea.Sub(ena)
	return diff.Mul(FromRat(big.NewRat(1, 2), diff.Prec()))
}

// Cosh returns (e^a + e^-a)/2.
func (a Real) Cosh() Real {
	ea := a.Exp()
	ena := a.Neg().Exp()
	sum := ea.Add(ena)
	return sum.Mul(FromRat(big.NewRat(1, 2), sum.Prec()))
}

// Sqrt returns the square root. The ball must not extend below zero unless
// it is exactly zero.
func (a Real) Sqrt() (Real, error) {
	if a.c.Sign() == 0 && a.Exact() {
		return Zero(a.Prec()), nil
	}
	lb := lowerBound(a)
	if lb == nil || lb.Sign() < 0 {
		return Real{}, NewDomainError("sqrt of a ball extending below zero", nil)
	}
	prec := a.Prec() + GuardBits
	c := newF(prec).Sqrt(a.c)
	r := newRadius()
	if !a.Exact() {
		if lb.Sign() > 0 {
			// r / (2*sqrt(lb))
			den := newRadius().Sqrt(lb)
			den.Mul(den, newF(radiusPrec).SetInt64(2))
			r.Quo(a.r, den)
		} else {
			// lower bound is zero: fall back to sqrt(r)
			r.Sqrt(a.r)
		}
	}
	r.Add(r, ulp(c, prec))
	if r.Sign() == 0 && a.Exact() && c.Acc() == big.Exact {
		return Real{c: c}, nil
	}
	return Real{c: c, r: r}, nil
}

// PowInt returns a^n for integer n via binary exponentiation on balls, so
// the radius composition is handled by Mul.
func (a Real) PowInt(n *big.Int) (Real, error) {
	if n.Sign() == 0 {
		return One(a.Prec()), nil
	}
	abs := new(big.Int).Abs(n)
	out := One(a.Prec())
	base := a
	for i := abs.BitLen() - 1; i >= 0; i-- {
		out = out.Mul(out)
		if abs.Bit(i) == 1 {
			out = out.Mul(base)
		}
	}
	if n.Sign() < 0 {
		return One(a.Prec()).Div(out)
	}
	return out, nil
}

// Pow returns a^b as exp(b*log(a)) for a general exponent. The base ball
// must lie strictly right of zero.
func (a Real) Pow(b Real) (Real, error) {
	if n, acc := b.c.Int(nil); b.Exact() && acc == big.Exact {
		return a.PowInt(n)
	}
	la, err := a.Log()
	if err != nil {
		return Real{}, err
	}
	return b.Mul(la).Exp(), nil
}

// attachUnitDerivative attaches a radius for a function whose derivative
// magnitude never exceeds one.
func attachUnitDerivative(c *big.Float, a Real, prec uint) Real {
	r := newRadius()
	if !a.Exact() {
		r.Add(r, a.r)
	}
	r.Add(r, ulp(c, prec))
	return Real{c: c, r: r}
}

// lowerBound returns a lower bound on the ball (center minus radius), or
// nil when the value could be anything at all.
func lowerBound(a Real) *big.Float {
	if a.Exact() {
		return a.c
	}
	return new(big.Float).SetPrec(radiusPrec).SetMode(big.ToNegativeInf).Sub(a.c, a.r)
}
