package series

import (
	"context"
	"math"
	"math/big"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/evalf"
	"github.com/numeval/numeval/pkg/expr"
)

// poly is a dense univariate polynomial over the rationals, coefficient
// index equal to degree. The zero-length poly is the zero polynomial.
type poly []*big.Rat

func polyConst(c *big.Rat) poly {
	if c.Sign() == 0 {
		return nil
	}
	return poly{new(big.Rat).Set(c)}
}

func polyVar() poly {
	return poly{new(big.Rat), new(big.Rat).SetInt64(1)}
}

func (p poly) degree() int { return len(p) - 1 }

func (p poly) add(q poly) poly {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	out := make(poly, n)
	for i := range out {
		out[i] = new(big.Rat)
		if i < len(p) {
			out[i].Add(out[i], p[i])
		}
		if i < len(q) {
			out[i].Add(out[i], q[i])
		}
	}
	return out.trim()
}

func (p poly) mul(q poly) poly {
	if len(p) == 0 || len(q) == 0 {
		return nil
	}
	out := make(poly, len(p)+len(q)-1)
	for i := range out {
		out[i] = new(big.Rat)
	}
	tmp := new(big.Rat)
	for i, a := range p {
		for j, b := range q {
			out[i+j].Add(out[i+j], tmp.Mul(a, b))
		}
	}
	return out.trim()
}

func (p poly) scale(c *big.Rat) poly {
	if c.Sign() == 0 {
		return nil
	}
	out := make(poly, len(p))
	for i, a := range p {
		out[i] = new(big.Rat).Mul(a, c)
	}
	return out
}

// shift returns p(x+1).
func (p poly) shift() poly {
	// Horner on (x+1): p(x+1) = sum c_i (x+1)^i
	xPlusOne := poly{new(big.Rat).SetInt64(1), new(big.Rat).SetInt64(1)}
	out := poly(nil)
	for i := len(p) - 1; i >= 0; i-- {
		out = out.mul(xPlusOne).add(polyConst(p[i]))
	}
	return out
}

func (p poly) pow(n int) poly {
	out := poly{new(big.Rat).SetInt64(1)}
	for i := 0; i < n; i++ {
		out = out.mul(p)
	}
	return out
}

func (p poly) trim() poly {
	n := len(p)
	for n > 0 && p[n-1].Sign() == 0 {
		n--
	}
	return p[:n]
}

func (p poly) evalRat(x *big.Rat) *big.Rat {
	out := new(big.Rat)
	for i := len(p) - 1; i >= 0; i-- {
		out.Mul(out, x)
		out.Add(out, p[i])
	}
	return out
}

func (p poly) evalFloat(x float64) float64 {
	out := 0.0
	for i := len(p) - 1; i >= 0; i-- {
		out = out*x + v(p[i])
	}
	return out
}

func v(r *big.Rat) float64 { f, _ := r.Float64(); return f }

// intPoly is a polynomial with integer coefficients, used inside binary
// splitting.
type intPoly []*big.Int

func (p intPoly) evalInt(x *big.Int) *big.Int {
	out := new(big.Int)
	for i := len(p) - 1; i >= 0; i-- {
		out.Mul(out, x)
		out.Add(out, p[i])
	}
	return out
}

// termRatio is the consecutive-term ratio t(k+1)/t(k) as a rational
// function of the index.
type termRatio struct {
	num poly
	den poly
}

func (r termRatio) mul(s termRatio) termRatio {
	return termRatio{num: r.num.mul(s.num), den: r.den.mul(s.den)}
}

func (r termRatio) inverse() termRatio {
	return termRatio{num: r.den, den: r.num}
}

func ratioOne() termRatio {
	one := poly{new(big.Rat).SetInt64(1)}
	return termRatio{num: one, den: one}
}

// extractRatio inspects the structure of a summation term and, when every
// factor is of hypergeometric type, returns the consecutive-term ratio.
// Recognized factors: rational literals, polynomials in the index,
// c**(a*k+b) with rational c and integer a, factorials of integer-linear
// arguments, and integer powers and inverses of any of these. Anything
// else (a transcendental constant raised to the index, a function of the
// index, a nested sum) makes the detection fail and routes the task to the
// general strategies.
func extractRatio(term expr.Expr, index string) (termRatio, bool) {
	r := ratioOne()
	factors := []expr.Expr{term}
	if m, ok := term.(expr.Mul); ok {
		factors = m.Factors
	}
	for _, f := range factors {
		fr, ok := factorRatio(f, index)
		if !ok {
			return termRatio{}, false
		}
		r = r.mul(fr)
	}
	if len(r.num) == 0 || len(r.den) == 0 {
		return termRatio{}, false
	}
	return r, true
}

func factorRatio(f expr.Expr, index string) (termRatio, bool) {
	if len(freeIn(f, index)) == 0 {
		// Constant factor: contributes to t(lo), not to the ratio. It
		// must still be numeric, which t(lo)'s evaluation enforces.
		return ratioOne(), true
	}
	switch n := f.(type) {
	case expr.Pow:
		if e, ok := n.Exponent.(expr.Integer); ok {
			if !e.Value.IsInt64() {
				return termRatio{}, false
			}
			base, ok := factorRatio(n.Base, index)
			if !ok {
				return termRatio{}, false
			}
			exp := e.Value.Int64()
			if exp < 0 {
				base = base.inverse()
				exp = -exp
			}
			out := ratioOne()
			for i := int64(0); i < exp; i++ {
				out = out.mul(base)
			}
			return out, true
		}
		// c**(a*k+b): ratio is c**a, a rational constant.
		c, ok := rationalLiteral(n.Base)
		if !ok || c.Sign() == 0 {
			return termRatio{}, false
		}
		a, ok := linearIntCoeff(n.Exponent, index)
		if !ok {
			return termRatio{}, false
		}
		step := ratPowInt(c, a)
		if step == nil {
			return termRatio{}, false
		}
		return termRatio{
			num: polyConst(new(big.Rat).SetInt(step.Num())),
			den: polyConst(new(big.Rat).SetInt(step.Denom())),
		}, true
	case expr.Func:
		if n.Name != expr.FuncFactorial {
			return termRatio{}, false
		}
		// (a*k+b)! with integer a >= 0: the ratio is the rising product
		// (a*k+b+1)...(a*k+b+a).
		arg, ok := asPoly(n.Arg, index)
		if !ok || arg.degree() != 1 || !arg[1].IsInt() || arg[1].Sign() <= 0 {
			return termRatio{}, false
		}
		a := arg[1].Num().Int64()
		num := poly{new(big.Rat).SetInt64(1)}
		for i := int64(1); i <= a; i++ {
			num = num.mul(arg.add(polyConst(new(big.Rat).SetInt64(i))))
		}
		one := poly{new(big.Rat).SetInt64(1)}
		return termRatio{num: num, den: one}, true
	}
	// Polynomial in the index, the index itself included.
	p, ok := asPoly(f, index)
	if !ok || len(p) == 0 {
		return termRatio{}, false
	}
	return termRatio{num: p.shift(), den: p}, true
}

// asPoly lowers an expression to a polynomial in the index with rational
// coefficients.
func asPoly(e expr.Expr, index string) (poly, bool) {
	switch n := e.(type) {
	case expr.Integer:
		return polyConst(new(big.Rat).SetInt(n.Value)), true
	case expr.Rational:
		return polyConst(n.Value), true
	case expr.Symbol:
		if n.Name == index {
			return polyVar(), true
		}
		return nil, false
	case expr.Add:
		out := poly(nil)
		for _, t := range n.Terms {
			p, ok := asPoly(t, index)
			if !ok {
				return nil, false
			}
			out = out.add(p)
		}
		return out, true
	case expr.Mul:
		out := poly{new(big.Rat).SetInt64(1)}
		for _, f := range n.Factors {
			p, ok := asPoly(f, index)
			if !ok {
				return nil, false
			}
			out = out.mul(p)
		}
		return out, true
	case expr.Pow:
		exp, ok := n.Exponent.(expr.Integer)
		if !ok || exp.Value.Sign() < 0 || !exp.Value.IsInt64() {
			return nil, false
		}
		base, ok := asPoly(n.Base, index)
		if !ok {
			return nil, false
		}
		return base.pow(int(exp.Value.Int64())), true
	}
	return nil, false
}

func rationalLiteral(e expr.Expr) (*big.Rat, bool) {
	switch n := e.(type) {
	case expr.Integer:
		return new(big.Rat).SetInt(n.Value), true
	case expr.Rational:
		return n.Value, true
	}
	return nil, false
}

// linearIntCoeff returns the integer slope a of an expression of the form
// a*k+b.
func linearIntCoeff(e expr.Expr, index string) (int64, bool) {
	p, ok := asPoly(e, index)
	if !ok || p.degree() > 1 {
		return 0, false
	}
	if p.degree() < 1 {
		return 0, true
	}
	if !p[1].IsInt() || !p[1].Num().IsInt64() {
		return 0, false
	}
	return p[1].Num().Int64(), true
}

func ratPowInt(c *big.Rat, a int64) *big.Rat {
	out := new(big.Rat).SetInt64(1)
	base := new(big.Rat).Set(c)
	if a < 0 {
		base.Inv(base)
		a = -a
	}
	for i := int64(0); i < a; i++ {
		out.Mul(out, base)
	}
	return out
}

func freeIn(e expr.Expr, index string) []string {
	out := []string(nil)
	for _, s := range expr.FreeSymbols(e) {
		if s == index {
			out = append(out, s)
		}
	}
	return out
}

// sumBySplitting evaluates the sum by binary splitting of the ratio
// recurrence. done reports whether the path applied; a ratio that does not
// decay fast enough, or a truncation point beyond the budget, hands the
// task back to the general strategies.
func (e *Engine) sumBySplitting(ctx context.Context, task evalf.SeriesTask, r termRatio, lo, hi *big.Int, infinite bool, prec uint) (evalf.Value, bool, error) {
	if !lo.IsInt64() || (hi != nil && !hi.IsInt64()) {
		return evalf.Value{}, false, nil
	}
	a := lo.Int64()

	n, tail, ok := truncationPoint(r, a, hi, infinite, prec)
	if !ok {
		return evalf.Value{}, false, nil
	}

	wp := prec + 2*ball.GuardBits
	first, err := e.termAt(ctx, task, expr.NewBigInt(lo), wp)
	if err != nil {
		return evalf.Value{}, false, err
	}
	if first.IsZero() && first.Exact() {
		// t(lo) = 0 annihilates the recurrence; the general path sums
		// such degenerate ranges term by term.
		return evalf.Value{}, false, nil
	}

	num, den := r.integerPolys()
	// The ratio denominator must not vanish at any index in range.
	for k := a; k < n; k++ {
		if den.evalInt(big.NewInt(k)).Sign() == 0 {
			return evalf.Value{}, false, nil
		}
	}

	_, q, t := bsplit(num, den, a, n)
	partial := new(big.Rat).SetFrac(t, q)
	total := first.Mul(ball.FromRat(partial, wp))
	total = addRadius(total, tailBound(first, tail))

	e.recordTerms("binary_splitting", int(n-a))
	return realValue(total), true, nil
}

// integerPolys clears denominators, preserving the ratio.
func (r termRatio) integerPolys() (num, den intPoly) {
	l := new(big.Int).SetInt64(1)
	for _, c := range r.num {
		l.Mul(l, new(big.Int).Div(c.Denom(), new(big.Int).GCD(nil, nil, l, c.Denom())))
	}
	for _, c := range r.den {
		l.Mul(l, new(big.Int).Div(c.Denom(), new(big.Int).GCD(nil, nil, l, c.Denom())))
	}
	scale := func(p poly) intPoly {
		out := make(intPoly, len(p))
		for i, c := range p {
			n := new(big.Int).Mul(c.Num(), l)
			out[i] = n.Div(n, c.Denom())
		}
		return out
	}
	return scale(r.num), scale(r.den)
}

// truncationPoint walks the ratio in float64 log space to find the index
// past which all remaining terms are negligible at this precision. The
// relative term magnitude is enough: the exact tail is attached in ball
// form later.
func truncationPoint(r termRatio, lo int64, hi *big.Int, infinite bool, prec uint) (n int64, tailLog2 float64, ok bool) {
	limit := int64(maxSplitTerms)
	end := int64(math.MaxInt64)
	if !infinite {
		end = hi.Int64() + 1
	}
	target := -float64(prec) - 20
	lt := 0.0
	k := lo
	for steps := int64(0); steps < limit; steps++ {
		if k >= end {
			return end, math.Inf(-1), true
		}
		nv := r.num.evalFloat(float64(k))
		dv := r.den.evalFloat(float64(k))
		if dv == 0 {
			return 0, 0, false
		}
		if nv == 0 {
			// Terms vanish identically from k+1 on.
			return k + 1, math.Inf(-1), true
		}
		q := math.Abs(nv / dv)
		lt += math.Log2(q)
		k++
		if lt < target && q < 0.95 {
			return k, lt, true
		}
	}
	return 0, 0, false
}

// tailBound converts the log-magnitude of the first dropped term, relative
// to t(lo), into an absolute radius contribution.
func tailBound(first ball.Real, tailLog2 float64) *big.Float {
	if math.IsInf(tailLog2, -1) {
		return nil
	}
	abs := new(big.Float).SetPrec(32).SetMode(big.ToPositiveInf).Abs(first.Center())
	// Factor 32 absorbs the geometric envelope (ratio up to 0.95) and
	// float64 slack in the log walk.
	scale := new(big.Float).SetMantExp(big.NewFloat(32), int(math.Ceil(tailLog2)))
	return abs.Mul(abs, scale)
}

// bsplit computes, over the half-open index range [a, b), the product
// P/Q of the ratios and the sum T/Q of the cumulative ratio products,
// all as exact integers.
func bsplit(num, den intPoly, a, b int64) (p, q, t *big.Int) {
	if b-a == 1 {
		x := big.NewInt(a)
		p = num.evalInt(x)
		q = den.evalInt(x)
		return p, q, new(big.Int).Set(q)
	}
	m := (a + b) / 2
	p1, q1, t1 := bsplit(num, den, a, m)
	p2, q2, t2 := bsplit(num, den, m, b)
	p = new(big.Int).Mul(p1, p2)
	q = new(big.Int).Mul(q1, q2)
	t = new(big.Int).Add(new(big.Int).Mul(t1, q2), new(big.Int).Mul(p1, t2))
	return p, q, t
}
