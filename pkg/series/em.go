package series

import (
	"context"
	"math/big"
	"sync"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/evalf"
	"github.com/numeval/numeval/pkg/expr"
)

// maxCorrections bounds the number of Euler-Maclaurin derivative
// correction terms. The corrections form an asymptotic series: they are
// added while they keep shrinking and the first growing term becomes the
// remainder estimate.
const maxCorrections = 24

// sumEulerMaclaurin finishes a summation whose range was too long for
// direct term-by-term addition: partial covers [lo, m), and the remainder
// from m on is estimated as integral + boundary value + derivative
// corrections. Needs the quadrature engine for the integral part; without
// one the task is handed to partial-sum extrapolation.
func (e *Engine) sumEulerMaclaurin(ctx context.Context, task evalf.SeriesTask, partial ball.Real, m, hi *big.Int, infinite bool, prec uint) (evalf.Value, error) {
	if e.quad == nil {
		return e.sumRichardson(ctx, task, m, prec)
	}
	wp := prec + 2*ball.GuardBits

	hiExpr := expr.Expr(expr.Infinity{})
	if !infinite {
		hiExpr = expr.NewBigInt(hi)
	}
	iv, _, err := e.quad.Integrate(ctx, evalf.IntegralTask{
		Body: task.Term, Var: task.Index,
		Lo: expr.NewBigInt(m), Hi: hiExpr,
		Scheme: evalf.QuadSchemeSmooth,
	}, prec+8)
	if err != nil {
		return evalf.Value{}, err
	}
	if iv.IsComplex() {
		return evalf.Value{}, evalf.NewUnsupportedError("complex summation terms are not supported", nil)
	}
	total := partial.Add(iv.Re)

	half := ball.FromRat(big.NewRat(1, 2), wp)
	fm, err := e.termAt(ctx, task, expr.NewBigInt(m), wp)
	if err != nil {
		return evalf.Value{}, err
	}
	total = total.Add(fm.Mul(half))
	if !infinite {
		fhi, err := e.termAt(ctx, task, expr.NewBigInt(hi), wp)
		if err != nil {
			return evalf.Value{}, err
		}
		total = total.Add(fhi.Mul(half))
	}

	tol := tolerance(prec)
	var lastMag, est *big.Float
	corrections := 0
	for j := 1; j <= maxCorrections; j++ {
		d := 2*j - 1
		dm, err := e.derivativeAt(ctx, task, m, d, prec)
		if err != nil {
			return evalf.Value{}, err
		}
		corr := dm.Neg()
		if !infinite {
			dhi, err := e.derivativeAt(ctx, task, hi, d, prec)
			if err != nil {
				return evalf.Value{}, err
			}
			corr = dhi.Sub(dm)
		}
		c := corr.Mul(ball.FromRat(emCoefficient(2*j), wp))
		mag := new(big.Float).SetPrec(32).SetMode(big.ToPositiveInf).Abs(c.Center())
		if lastMag != nil && mag.Cmp(lastMag) > 0 {
			// The asymptotic series started diverging: the first
			// growing term is the remainder estimate.
			est = mag
			break
		}
		total = total.Add(c)
		corrections = j
		est = mag
		lastMag = mag
		if mag.Cmp(tol) < 0 {
			break
		}
	}
	total = addRadius(total, est)

	e.recordTerms("euler_maclaurin", corrections)
	return realValue(total), nil
}

// emCoefficient returns B_n / n! for even n.
func emCoefficient(n int) *big.Rat {
	out := new(big.Rat).Set(bernoulli(n))
	f := new(big.Int).MulRange(1, int64(n))
	return out.Quo(out, new(big.Rat).SetInt(f))
}

var bernoulliTable struct {
	sync.Mutex
	b []*big.Rat
}

// bernoulli returns the Bernoulli number B_n (B_1 = -1/2 convention),
// extending a process-wide memo table on demand.
func bernoulli(n int) *big.Rat {
	bernoulliTable.Lock()
	defer bernoulliTable.Unlock()
	tb := &bernoulliTable.b
	if len(*tb) == 0 {
		*tb = append(*tb, big.NewRat(1, 1), big.NewRat(-1, 2))
	}
	for m := len(*tb); m <= n; m++ {
		// sum_{k=0}^{m} C(m+1, k) B_k = 0
		acc := new(big.Rat)
		tmp := new(big.Rat)
		for k := 0; k < m; k++ {
			c := new(big.Int).Binomial(int64(m+1), int64(k))
			acc.Add(acc, tmp.Mul(new(big.Rat).SetInt(c), (*tb)[k]))
		}
		bm := acc.Quo(acc.Neg(acc), new(big.Rat).SetInt64(int64(m+1)))
		*tb = append(*tb, bm)
	}
	return new(big.Rat).Set((*tb)[n])
}

// derivativeAt computes the order-d derivative of the term at an integer
// point by a central finite difference on exact dyadic sample points. The
// step shrinks and the evaluation precision grows with both the target
// precision and the order, so that the h^-d amplification of the sample
// radii stays far below the tolerance.
func (e *Engine) derivativeAt(ctx context.Context, task evalf.SeriesTask, point *big.Int, d int, prec uint) (ball.Real, error) {
	hb := int(prec)/2 + 16 + d
	wp := 2*prec + uint(d*hb) + 64

	// Offsets (d-2i)/2 * h for i = 0..d, exact rationals with a power of
	// two denominator.
	x := new(big.Rat).SetInt(point)
	den := new(big.Int).Lsh(big.NewInt(1), uint(hb+1))
	sum := ball.Zero(wp)
	sign := 1
	for i := 0; i <= d; i++ {
		at := new(big.Rat).Add(x, new(big.Rat).SetFrac(big.NewInt(int64(d-2*i)), den))
		f, err := e.termAt(ctx, task, expr.NewBigRat(at), wp)
		if err != nil {
			return ball.Real{}, err
		}
		c := new(big.Int).Binomial(int64(d), int64(i))
		if sign < 0 {
			c.Neg(c)
		}
		sum = sum.Add(f.Mul(ball.FromInt(c, wp)))
		sign = -sign
	}

	// Divide by h^d, an exact power of two.
	scale := ball.FromFloat(new(big.Float).SetMantExp(big.NewFloat(1), d*hb))
	out := sum.Mul(scale)

	// O(h^2) truncation allowance for the difference formula.
	trunc := new(big.Float).SetPrec(32).SetMode(big.ToPositiveInf).Abs(out.Center())
	trunc.Add(trunc, big.NewFloat(1))
	trunc.SetMantExp(trunc, d-2*hb)
	return addRadius(out, trunc), nil
}
