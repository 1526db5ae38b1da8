package series

import (
	"context"
	"math/big"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/evalf"
	"github.com/numeval/numeval/pkg/expr"
)

// sumAlternating accelerates a strictly alternating series by iterated
// averaging of the partial sums (the Euler transform in its simplest
// form): each averaging level roughly halves the error, so K levels yield
// about K certified bits for a smoothly decaying term.
func (e *Engine) sumAlternating(ctx context.Context, task evalf.SeriesTask, lo *big.Int, prec uint) (evalf.Value, error) {
	wp := prec + 2*ball.GuardBits
	levels := int(prec) + 16
	if levels > 1200 {
		levels = 1200
	}

	partials := make([]ball.Real, levels)
	acc := ball.Zero(wp)
	k := new(big.Int).Set(lo)
	one := big.NewInt(1)
	for i := 0; i < levels; i++ {
		if err := ctx.Err(); err != nil {
			return evalf.Value{}, err
		}
		t, err := e.termAt(ctx, task, expr.NewBigInt(k), wp)
		if err != nil {
			return evalf.Value{}, err
		}
		acc = acc.Add(t)
		partials[i] = acc
		k.Add(k, one)
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
	result := row[0]

	est := new(big.Float).SetPrec(32).SetMode(big.ToPositiveInf)
	est.Abs(result.Sub(prevHead).Center())
	result = addRadius(result, est)

	e.recordTerms("alternating_euler", levels)
	return realValue(result), nil
}

const (
	richardsonLevels = 10
	richardsonBase   = 64
)

// sumRichardson extrapolates the sequence of partial sums at equally
// spaced checkpoints to the infinite limit, Neville style, in the variable
// 1/N. It is the last resort for slow monotone tails when no quadrature
// engine is available for the Euler-Maclaurin integral; the realized
// radius is honest about how little it certifies, and the driver escalates
// or reports degradation from there.
func (e *Engine) sumRichardson(ctx context.Context, task evalf.SeriesTask, lo *big.Int, prec uint) (evalf.Value, error) {
	wp := prec + 2*ball.GuardBits
	base := richardsonBase
	if p := int(prec) / 2; p > base {
		base = p
	}

	checkpoints := make([]ball.Real, 0, richardsonLevels)
	ns := make([]int64, 0, richardsonLevels)
	acc := ball.Zero(wp)
	k := new(big.Int).Set(lo)
	one := big.NewInt(1)
	count := int64(0)
	for level := 1; level <= richardsonLevels; level++ {
		target := int64(level * base)
		for count < target {
			if err := ctx.Err(); err != nil {
				return evalf.Value{}, err
			}
			t, err := e.termAt(ctx, task, expr.NewBigInt(k), wp)
			if err != nil {
				return evalf.Value{}, err
			}
			acc = acc.Add(t)
			k.Add(k, one)
			count++
		}
		checkpoints = append(checkpoints, acc)
		ns = append(ns, target)
	}

	// Neville extrapolation to 1/N -> 0 with exact rational nodes.
	tbl := make([]ball.Real, len(checkpoints))
	copy(tbl, checkpoints)
	var prevLast ball.Real
	for j := 1; j < len(tbl); j++ {
		prevLast = tbl[len(tbl)-1]
		for i := len(tbl) - 1; i >= j; i-- {
			// factor = x_i / (x_{i-j} - x_i), x = 1/N
			xi := new(big.Rat).SetFrac64(1, ns[i])
			xij := new(big.Rat).SetFrac64(1, ns[i-j])
			factor := new(big.Rat).Quo(xi, xij.Sub(xij, xi))
			diff := tbl[i].Sub(tbl[i-1])
			tbl[i] = tbl[i].Add(diff.Mul(ball.FromRat(factor, wp)))
		}
	}
	result := tbl[len(tbl)-1]

	est := new(big.Float).SetPrec(32).SetMode(big.ToPositiveInf)
	est.Abs(result.Sub(prevLast).Center())
	result = addRadius(result, est)

	e.recordTerms("richardson", int(count))
	return realValue(result), nil
}
