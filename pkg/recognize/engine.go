package recognize

import (
	"context"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/evalf"
	"github.com/numeval/numeval/pkg/expr"
)

const (
	// minWorkBits is the least certified accuracy recognition will accept
	// as input. Below that almost anything fits almost anything.
	minWorkBits = 24
	// pslqStepsPerDim scales the iteration budget with the basis size.
	pslqStepsPerDim = 128
)

// maxRelationCoeff bounds the integer coefficients of a proposed relation.
// A "closed form" with million-digit coefficients is noise, not structure.
var maxRelationCoeff = new(big.Int).Lsh(big.NewInt(1), 24)

// Candidate is a named constant offered to the relation search.
type Candidate struct {
	Name string
	Expr expr.Expr
}

// Engine recognizes closed forms behind numeric values. Every match is
// re-verified through the evaluator before being returned.
type Engine struct {
	ev  *evalf.Evaluator
	log zerolog.Logger
}

func New(ev *evalf.Evaluator, log zerolog.Logger) *Engine {
	return &Engine{ev: ev, log: log.With().Str("component", "recognize").Logger()}
}

// Recognize searches for a closed form matching v to within 2^-tolBits
// (relative to the magnitude of v). A zero tolBits derives the tolerance
// from the certified accuracy of v. The result is nil when no hypothesis
// both fits and survives numeric re-verification.
func (e *Engine) Recognize(ctx context.Context, v ball.Real, candidates []Candidate, tolBits uint) (expr.Expr, error) {
	// A tight enclosure of zero is already an answer. It certifies zero
	// accurate bits, so it must be taken before the accuracy gate.
	if v.ContainsZero() {
		r := v.Radius()
		if r.Sign() == 0 || r.MantExp(nil) <= -minWorkBits {
			return expr.NewInt(0), nil
		}
		e.log.Debug().Msg("wide enclosure of zero, nothing to recognize")
		return nil, nil
	}

	usable := v.AccurateBits()
	if usable > v.Prec() {
		usable = v.Prec()
	}
	if tolBits == 0 {
		if usable > 40 {
			tolBits = usable - 8
		} else {
			tolBits = usable
		}
	}
	if tolBits > usable {
		tolBits = usable
	}
	if tolBits < minWorkBits {
		e.log.Debug().Uint("usable_bits", usable).Msg("value too fuzzy to recognize")
		return nil, nil
	}
	tol := toleranceFor(v.Center(), tolBits)

	// A center within tolerance of zero matches the zero form.
	if absFloat(v.Center()).Cmp(tol) < 0 {
		return expr.NewInt(0), nil
	}

	type hypothesis struct {
		form string
		ex   expr.Expr
	}
	var tries []hypothesis

	if r, ok := rationalFit(v.Center(), tolBits); ok {
		tries = append(tries, hypothesis{"rational", expr.NewBigRat(r)})
	}
	if ex, ok, err := e.linearForm(ctx, v.Center(), candidates, tolBits); err != nil {
		return nil, err
	} else if ok {
		tries = append(tries, hypothesis{"linear", ex})
	}

	// Square the value and look for the same two shapes under a root.
	sq := v.Mul(v)
	if r, ok := rationalFit(sq.Center(), tolBits); ok && r.Sign() > 0 {
		root := expr.Expr(expr.NewFunc(expr.FuncSqrt, expr.NewBigRat(r)))
		if v.Center().Sign() < 0 {
			root = expr.NewNeg(root)
		}
		tries = append(tries, hypothesis{"sqrt_rational", root})
	}
	if ex, ok, err := e.linearForm(ctx, sq.Center(), candidates, tolBits); err != nil {
		return nil, err
	} else if ok {
		root := expr.Expr(expr.NewFunc(expr.FuncSqrt, ex))
		if v.Center().Sign() < 0 {
			root = expr.NewNeg(root)
		}
		tries = append(tries, hypothesis{"sqrt_linear", root})
	}

	for _, h := range tries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if e.verify(ctx, h.ex, v, tolBits) {
			e.log.Debug().Str("form", h.form).Msg("recognized closed form")
			return h.ex, nil
		}
	}
	return nil, nil
}

// rationalFit walks the continued-fraction convergents of x and returns
// the first one within 2^-tolBits. The denominator cap of 2^(tolBits/3)
// matters: convergents of any number at all reach error 1/q^2, so a cap
// near 2^(tolBits/2) would let every irrational pass as a rational. At a
// third of the tolerance bits, a generic best fit stays a factor
// 2^(tolBits/3) outside the tolerance.
func rationalFit(x *big.Float, tolBits uint) (*big.Rat, bool) {
	if x.IsInf() {
		return nil, false
	}
	xr, _ := x.Rat(nil)
	if xr == nil {
		return nil, false
	}
	maxDen := new(big.Int).Lsh(big.NewInt(1), tolBits/3)
	tol := new(big.Rat).SetFrac(big.NewInt(1), new(big.Int).Lsh(big.NewInt(1), tolBits))
	if s := new(big.Rat).Abs(xr); s.Cmp(big.NewRat(1, 1)) > 0 {
		tol.Mul(tol, s)
	}

	num := new(big.Int).Set(xr.Num())
	den := new(big.Int).Set(xr.Denom())
	a := new(big.Int).Div(num, den)

	prevP, prevQ := big.NewInt(1), big.NewInt(0)
	curP := new(big.Int).Set(a)
	curQ := big.NewInt(1)

	for curQ.Cmp(maxDen) <= 0 {
		conv := new(big.Rat).SetFrac(curP, curQ)
		diff := new(big.Rat).Sub(xr, conv)
		if diff.Abs(diff).Cmp(tol) <= 0 {
			return conv, true
		}
		rem := new(big.Int).Sub(num, new(big.Int).Mul(a, den))
		if rem.Sign() == 0 {
			return nil, false
		}
		num, den = den, rem
		a = new(big.Int).Div(num, den)
		nextP := new(big.Int).Add(new(big.Int).Mul(a, curP), prevP)
		nextQ := new(big.Int).Add(new(big.Int).Mul(a, curQ), prevQ)
		prevP, prevQ = curP, curQ
		curP, curQ = nextP, nextQ
	}
	return nil, false
}

// linearForm searches for an integer relation between x, 1 and the
// candidate constants, and rebuilds the matching expression when PSLQ
// finds one with a nonzero coefficient on x.
func (e *Engine) linearForm(ctx context.Context, x *big.Float, candidates []Candidate, tolBits uint) (expr.Expr, bool, error) {
	if len(candidates) == 0 {
		return nil, false, nil
	}
	wp := tolBits + 32

	basis := []*big.Float{newF(wp).Set(x), newF(wp).SetInt64(1)}
	kept := make([]Candidate, 0, len(candidates))
	for _, c := range candidates {
		val, err := e.numericValue(ctx, c.Expr, wp)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, ctx.Err()
			}
			e.log.Debug().Err(err).Str("candidate", c.Name).Msg("candidate does not evaluate, skipping")
			continue
		}
		basis = append(basis, val)
		kept = append(kept, c)
	}
	if len(basis) < 3 {
		return nil, false, nil
	}

	rel := pslq(basis, tolBits, maxRelationCoeff, pslqStepsPerDim*len(basis))
	if rel == nil || rel[0].Sign() == 0 {
		return nil, false, nil
	}
	for _, c := range rel {
		if new(big.Int).Abs(c).Cmp(maxRelationCoeff) > 0 {
			return nil, false, nil
		}
	}

	// rel[0]*x + rel[1] + sum rel[i+2]*c_i = 0, so
	// x = -(rel[1] + sum rel[i+2]*c_i) / rel[0].
	var terms []expr.Expr
	if rel[1].Sign() != 0 {
		terms = append(terms, expr.NewBigInt(rel[1]))
	}
	for i, c := range kept {
		k := rel[i+2]
		if k.Sign() == 0 {
			continue
		}
		terms = append(terms, expr.NewMul(expr.NewBigInt(k), c.Expr))
	}
	if len(terms) == 0 {
		return nil, false, nil
	}
	out := expr.NewDiv(expr.NewNeg(expr.NewAdd(terms...)), expr.NewBigInt(rel[0]))
	return out, true, nil
}

// verify re-evaluates a hypothesis and compares it against the input. A
// hypothesis that cannot be evaluated, or that misses the tolerance, is
// discarded silently.
func (e *Engine) verify(ctx context.Context, candidate expr.Expr, v ball.Real, tolBits uint) bool {
	digits := evalf.BitsToDigits(tolBits) + 4
	res, err := e.ev.N(ctx, candidate, digits, evalf.Options{})
	if err != nil || res.Value == nil {
		return false
	}
	if res.Value.Im != nil && res.Value.Im.Center().Sign() != 0 {
		return false
	}
	diff := newF(tolBits + 32).Sub(res.Value.Re.Center(), v.Center())
	diff.Abs(diff)
	return diff.Cmp(toleranceFor(v.Center(), tolBits)) <= 0
}

func (e *Engine) numericValue(ctx context.Context, ex expr.Expr, wp uint) (*big.Float, error) {
	res, err := e.ev.N(ctx, ex, evalf.BitsToDigits(wp)+4, evalf.Options{})
	if err != nil {
		return nil, err
	}
	if res.Value == nil {
		return nil, evalf.NewUnsupportedError("candidate does not evaluate to a number", nil)
	}
	if res.Value.Im != nil && res.Value.Im.Center().Sign() != 0 {
		return nil, evalf.NewDomainError("relation search is real only", nil)
	}
	return newF(wp).Set(res.Value.Re.Center()), nil
}

// toleranceFor is 2^-tolBits scaled by the magnitude of x when that
// magnitude exceeds one.
func toleranceFor(x *big.Float, tolBits uint) *big.Float {
	tol := newF(64).SetMantExp(big.NewFloat(1), -int(tolBits))
	if a := absFloat(x); a.Cmp(newF(64).SetInt64(1)) > 0 {
		tol.Mul(tol, a)
	}
	return tol
}

func absFloat(x *big.Float) *big.Float {
	return new(big.Float).SetPrec(x.Prec()).Abs(x)
}
