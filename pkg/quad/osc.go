package quad

import (
	"context"
	"math/big"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/evalf"
	"github.com/numeval/numeval/pkg/expr"
)

// oscillation is the recognized structure of an oscillatory integrand: a
// sin or cos factor with a rational-linear argument times an envelope.
type oscillation struct {
	isSin  bool
	omega  *big.Rat // argument slope, > 0
	phase  *big.Rat // argument offset
}

// recognizeOscillation inspects the integrand for exactly one bounded
// oscillatory factor sin(omega*x+phase) or cos(omega*x+phase). Recognition
// is purely structural; it is attempted only because the caller explicitly
// chose the oscillatory scheme.
func recognizeOscillation(body expr.Expr, v string) (oscillation, bool) {
	factors := []expr.Expr{body}
	if m, ok := body.(expr.Mul); ok {
		factors = m.Factors
	}
	found := false
	var osc oscillation
	for _, f := range factors {
		fn, ok := f.(expr.Func)
		if !ok || (fn.Name != expr.FuncSin && fn.Name != expr.FuncCos) {
			continue
		}
		omega, phase, ok := linearRational(fn.Arg, v)
		if !ok || omega.Sign() <= 0 {
			continue
		}
		if found {
			// Two oscillatory factors: the half-period structure no
			// longer holds.
			return oscillation{}, false
		}
		found = true
		osc = oscillation{isSin: fn.Name == expr.FuncSin, omega: omega, phase: phase}
	}
	return osc, found
}

// linearRational decomposes an expression as omega*x + phase with rational
// coefficients.
func linearRational(e expr.Expr, v string) (omega, phase *big.Rat, ok bool) {
	switch n := e.(type) {
	case expr.Symbol:
		if n.Name == v {
			return big.NewRat(1, 1), new(big.Rat), true
		}
	case expr.Integer:
		return new(big.Rat), new(big.Rat).SetInt(n.Value), true
	case expr.Rational:
		return new(big.Rat), new(big.Rat).Set(n.Value), true
	case expr.Add:
		omega, phase = new(big.Rat), new(big.Rat)
		for _, t := range n.Terms {
			o, p, tok := linearRational(t, v)
			if !tok {
				return nil, nil, false
			}
			omega.Add(omega, o)
			phase.Add(phase, p)
		}
		return omega, phase, true
	case expr.Mul:
		coeff := big.NewRat(1, 1)
		var variable expr.Expr
		for _, f := range n.Factors {
			if c, cok := rationalLiteral(f); cok {
				coeff.Mul(coeff, c)
				continue
			}
			if variable != nil {
				return nil, nil, false
			}
			variable = f
		}
		if variable == nil {
			return new(big.Rat), coeff, true
		}
		o, p, tok := linearRational(variable, v)
		if !tok {
			return nil, nil, false
		}
		return o.Mul(o, coeff), p.Mul(p, coeff), true
	}
	return nil, nil, false
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

// maxHalfPeriods bounds the number of half-period sub-integrals.
const maxHalfPeriods = 240

// integrateOscillatory evaluates an integral of envelope * sin/cos over
// [a, infinity) by integrating each half-period between consecutive zeros
// of the oscillatory factor and accelerating the resulting alternating
// series by iterated averaging of its partial sums.
func (e *Engine) integrateOscillatory(ctx context.Context, task evalf.IntegralTask, lo, hi endpoint, prec uint) (evalf.Value, error) {
	if lo.infinite || !hi.infinite {
		return evalf.Value{}, evalf.NewDomainError(
			"oscillatory quadrature requires a domain of the form [a, infinity)", nil)
	}
	osc, ok := recognizeOscillation(task.Body, task.Var)
	if !ok {
		return evalf.Value{}, evalf.NewDomainError(
			"oscillatory quadrature requires a sin or cos factor with a linear argument", nil)
	}

	wp := prec + 4*ball.GuardBits
	pi, err := ball.Constant("pi", wp)
	if err != nil {
		return evalf.Value{}, evalf.NewInternalError("pi unavailable", err)
	}

	// Zeros of the oscillatory factor: x_n = (n*pi - phase)/omega for
	// sin, shifted by half a period for cos.
	piRat, _ := pi.Center().Rat(nil)
	shift := new(big.Rat).Set(osc.phase)
	if !osc.isSin {
		shift.Sub(shift, new(big.Rat).Quo(piRat, big.NewRat(2, 1)))
	}
	// First zero index with x_n > a.
	fa := new(big.Rat).Mul(osc.omega, lo.rat)
	fa.Add(fa, shift)
	fa.Quo(fa, piRat)
	n0 := ratCeil(fa)

	zeroAt := func(n int64) *big.Rat {
		x := new(big.Rat).SetInt64(n)
		x.Mul(x, piRat)
		x.Sub(x, shift)
		return x.Quo(x, osc.omega)
	}

	pieces := int(prec) + 16
	if pieces > maxHalfPeriods {
		pieces = maxHalfPeriods
	}

	// Head piece from a to the first zero.
	z := zeroAt(n0)
	head, err := e.tanhSinh(ctx, task.Body, task.Var, lo, rationalEndpoint(z, wp), prec+8)
	if err != nil {
		return evalf.Value{}, err
	}
	total := head.Re

	// Alternating half-period pieces, accelerated by iterated averaging
	// of the partial sums.
	partials := make([]ball.Real, pieces)
	acc := ball.Zero(wp)
	for j := 0; j < pieces; j++ {
		if err := ctx.Err(); err != nil {
			return evalf.Value{}, err
		}
		zNext := zeroAt(n0 + int64(j) + 1)
		piece, err := e.tanhSinh(ctx, task.Body, task.Var,
			rationalEndpoint(z, wp), rationalEndpoint(zNext, wp), prec+8)
		if err != nil {
			return evalf.Value{}, err
		}
		acc = acc.Add(piece.Re)
		partials[j] = acc
		z = zNext
	}

	half := ball.FromRat(big.NewRat(1, 2), wp)
	row := partials
	var prevHead ball.Real
	for len(row) > 1 {
		prevHead = row[0]
		next := make([]ball.Real, len(row)-1)
		for i := range next {
			next[i] = row[i].Add(row[i+1]).Mul(half)
		}
		row = next
	}
	tail := row[0]
	est := new(big.Float).SetPrec(32).SetMode(big.ToPositiveInf)
	est.Abs(tail.Sub(prevHead).Center())

	total = addRadius(total.Add(tail), est)
	if e.metrics != nil {
		e.metrics.QuadratureLevels(pieces)
	}
	e.log.Debug().Int("half_periods", pieces).Msg("oscillatory integration finished")
	return realValue(total), nil
}

func rationalEndpoint(x *big.Rat, wp uint) endpoint {
	return endpoint{value: ball.FromRat(x, wp), rat: x}
}

// ratCeil returns the smallest integer strictly greater than x, so the
// first zero lands strictly inside the domain.
func ratCeil(x *big.Rat) int64 {
	q := new(big.Int).Quo(x.Num(), x.Denom())
	n := q.Int64()
	if x.Cmp(new(big.Rat).SetInt64(n)) >= 0 {
		n++
	}
	return n
}
