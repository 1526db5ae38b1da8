package ball

import (
	"math/big"
	"sync"
)

// Named constants are pure functions of the requested precision, so results
// are memoized process-wide in an append-only map keyed by (name, prec).
// Entries are never invalidated within a process.
var constMemo sync.Map

type constKey struct {
	name string
	prec uint
}

func memoized(name string, prec uint, compute func(uint) *big.Float) *big.Float {
	key := constKey{name: name, prec: prec}
	if v, ok := constMemo.Load(key); ok {
		return v.(*big.Float)
	}
	v := compute(prec)
	actual, _ := constMemo.LoadOrStore(key, v)
	return actual.(*big.Float)
}

// piFloat computes pi with Machin's formula,
// pi = 16*atan(1/5) - 4*atan(1/239).
func piFloat(prec uint) *big.Float {
	return memoized("pi", prec, func(prec uint) *big.Float {
		wp := prec + kernelGuard
		a := atanInv(5, wp)
		b := atanInv(239, wp)
		out := newF(wp).Mul(a, newF(wp).SetInt64(16))
		out.Sub(out, newF(wp).Mul(b, newF(wp).SetInt64(4)))
		return newF(prec).Set(out)
	})
}

// atanInv sums the Taylor series for atan(1/m) with integer m > 1.
func atanInv(m int64, wp uint) *big.Float {
	mf := newF(wp).SetInt64(m)
	m2 := newF(wp).SetInt64(m * m)
	term := newF(wp).Quo(newF(wp).SetInt64(1), mf)
	sum := newF(wp).Set(term)
	for k := int64(1); ; k++ {
		term.Quo(term, m2)
		term.Neg(term)
		if term.Sign() == 0 || expOf(term) < -int(wp) {
			break
		}
		c := newF(wp).Quo(term, newF(wp).SetInt64(2*k+1))
		sum.Add(sum, c)
	}
	return sum
}

// ln2Float sums 2*atanh(1/3).
func ln2Float(prec uint) *big.Float {
	return memoized("ln2", prec, func(prec uint) *big.Float {
		wp := prec + kernelGuard
		t := newF(wp).Quo(newF(wp).SetInt64(1), newF(wp).SetInt64(3))
		out := atanhSeries(t, wp)
		out.Mul(out, newF(wp).SetInt64(2))
		return newF(prec).Set(out)
	})
}

// eFloat sums the factorial series for e.
func eFloat(prec uint) *big.Float {
	return memoized("e", prec, func(prec uint) *big.Float {
		wp := prec + kernelGuard
		sum := newF(wp).SetInt64(2)
		term := newF(wp).SetInt64(1)
		for k := int64(2); ; k++ {
			term.Quo(term, newF(wp).SetInt64(k))
			if term.Sign() == 0 || expOf(term) < -int(wp) {
				break
			}
			sum.Add(sum, term)
		}
		return newF(prec).Set(sum)
	})
}

// eulerGammaFloat uses the Brent-McMillan algorithm:
// gamma = A(n)/B(n) - ln n with A = sum (n^k/k!)^2 H_k, B = sum (n^k/k!)^2,
// whose error decays like e^(-4n).
func eulerGammaFloat(prec uint) *big.Float {
	return memoized("euler_gamma", prec, func(prec uint) *big.Float {
		wp := prec + 2*kernelGuard
		n := int64(prec)/4 + 2
		n2 := newF(wp).SetInt64(n * n)

		a := newF(wp).SetInt64(1) // (n^k/k!)^2
		h := newF(wp)             // H_k
		sumA := newF(wp)
		sumB := newF(wp).SetInt64(1)
		for k := int64(1); ; k++ {
			a.Mul(a, n2)
			a.Quo(a, newF(wp).SetInt64(k*k))
			h.Add(h, newF(wp).Quo(newF(wp).SetInt64(1), newF(wp).SetInt64(k)))
			sumA.Add(sumA, newF(wp).Mul(a, h))
			sumB.Add(sumB, a)
			if k > 2*n && expOf(a) < expOf(sumB)-int(wp) {
				break
			}
		}
		out := newF(wp).Quo(sumA, sumB)
		lnn, _ := logFloat(newF(wp).SetInt64(n), wp)
		out.Sub(out, lnn)
		return newF(prec).Set(out)
	})
}

// catalanFloat uses the central-binomial series
// G = 3/8 * sum 1/(binom(2n,n)*(2n+1)^2) + pi/8 * ln(2+sqrt(3)).
func catalanFloat(prec uint) *big.Float {
	return memoized("catalan", prec, func(prec uint) *big.Float {
		wp := prec + 2*kernelGuard
		term := newF(wp).SetInt64(1)
		sum := newF(wp).SetInt64(1)
		for n := int64(0); ; n++ {
			// t_{n+1}/t_n = (2n+1)(n+1) / (2*(2n+3)^2)
			term.Mul(term, newF(wp).SetInt64((2*n+1)*(n+1)))
			term.Quo(term, newF(wp).SetInt64(2*(2*n+3)*(2*n+3)))
			if term.Sign() == 0 || expOf(term) < -int(wp) {
				break
			}
			sum.Add(sum, term)
		}
		sum.Mul(sum, newF(wp).SetInt64(3))
		sum.Quo(sum, newF(wp).SetInt64(8))

		arg := newF(wp).SetInt64(3)
		arg.Sqrt(arg)
		arg.Add(arg, newF(wp).SetInt64(2))
		ln, _ := logFloat(arg, wp)
		corr := newF(wp).Mul(piFloat(wp), ln)
		corr.Quo(corr, newF(wp).SetInt64(8))

		sum.Add(sum, corr)
		return newF(prec).Set(sum)
	})
}

// goldenFloat computes (1+sqrt(5))/2.
func goldenFloat(prec uint) *big.Float {
	return memoized("golden_ratio", prec, func(prec uint) *big.Float {
		wp := prec + kernelGuard
		out := newF(wp).SetInt64(5)
		out.Sqrt(out)
		out.Add(out, newF(wp).SetInt64(1))
		out.Quo(out, newF(wp).SetInt64(2))
		return newF(prec).Set(out)
	})
}

// Constant returns the named constant as a ball with a one-ulp radius.
// Unknown names return a domain error.
func Constant(name string, prec uint) (Real, error) {
	var c *big.Float
	switch name {
	case "pi":
		c = piFloat(prec)
	case "e":
		c = eFloat(prec)
	case "ln2":
		c = ln2Float(prec)
	case "euler_gamma":
		c = eulerGammaFloat(prec)
	case "catalan":
		c = catalanFloat(prec)
	case "golden_ratio":
		c = goldenFloat(prec)
	default:
		return Real{}, NewDomainError("unknown constant "+name, nil)
	}
	return Real{c: c, r: ulp(c, prec)}, nil
}
