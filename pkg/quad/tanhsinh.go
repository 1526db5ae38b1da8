package quad

import (
	"context"
	"math"
	"math/big"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/evalf"
	"github.com/numeval/numeval/pkg/expr"
)

// maxLevels bounds the node-doubling refinement. Together with the
// per-level node cutoff it is the sole exit from the refinement loop, per
// the resource model: a rule that has not converged by then returns its
// last increment as the radius and lets the driver decide.
const maxLevels = 12

// tanhSinh integrates body over the finite interval (lo, hi) with the
// doubly exponential rule: x = mid + rad*tanh((pi/2)*sinh(t)) on an
// equispaced t-grid whose spacing halves per level. Nodes from previous
// levels are reused; each level only samples the odd multiples of the new
// spacing.
func (e *Engine) tanhSinh(ctx context.Context, body expr.Expr, v string, lo, hi endpoint, prec uint) (evalf.Value, error) {
	wp := prec + 4*ball.GuardBits
	mid := new(big.Rat).Add(lo.rat, hi.rat)
	mid.Quo(mid, big.NewRat(2, 1))
	rad := new(big.Rat).Sub(hi.rat, lo.rat)
	rad.Quo(rad, big.NewRat(2, 1))

	halfPi, err := ball.Constant("pi", wp)
	if err != nil {
		return evalf.Value{}, evalf.NewInternalError("pi unavailable", err)
	}
	halfPi = halfPi.Mul(ball.FromRat(big.NewRat(1, 2), wp))
	half := ball.FromRat(big.NewRat(1, 2), wp)

	// The weights decay like exp(-(pi/2)*e^t); beyond tmax they cannot
	// contribute at this precision.
	tmax := math.Log(float64(wp)*math.Ln2/(math.Pi/2)) + 1.0
	cutoff := new(big.Float).SetMantExp(big.NewFloat(1), -int(wp)-10)
	oneRat := new(big.Rat).SetInt64(1)

	sum := ball.Zero(wp) // running h-weighted node sum at current level
	var prev ball.Real
	havePrev := false
	levels := 0

	for level := 0; level <= maxLevels; level++ {
		if err := ctx.Err(); err != nil {
			return evalf.Value{}, err
		}
		h := new(big.Rat).SetFrac(big.NewInt(1), new(big.Int).Lsh(big.NewInt(1), uint(level)))
		hBall := ball.FromRat(h, wp)

		levelSum := ball.Zero(wp)
		step := int64(2)
		start := int64(1)
		if level == 0 {
			// Center node plus every positive integer t.
			f0, err := e.sampleAt(ctx, body, v, mid, wp)
			if err != nil {
				return evalf.Value{}, err
			}
			levelSum = halfPi.Mul(f0)
			step = 1
		}
		maxK := int64(math.Ceil(tmax * math.Exp2(float64(level))))
		for k := start; k <= maxK; k += step {
			t := new(big.Rat).SetFrac64(k, 1)
			t.Mul(t, h)
			w, offset, err := e.node(t, halfPi, half, wp)
			if err != nil {
				return evalf.Value{}, err
			}
			wAbs := new(big.Float).Abs(w.Center())
			if wAbs.Cmp(cutoff) < 0 {
				break
			}
			// A tanh offset that rounded all the way to 1 would place
			// the sample on the endpoint itself.
			if offset.Cmp(oneRat) >= 0 {
				break
			}
			dx := new(big.Rat).Mul(rad, offset)
			fPlus, err := e.sampleAt(ctx, body, v, new(big.Rat).Add(mid, dx), wp)
			if err != nil {
				return evalf.Value{}, err
			}
			fMinus, err := e.sampleAt(ctx, body, v, new(big.Rat).Sub(mid, dx), wp)
			if err != nil {
				return evalf.Value{}, err
			}
			levelSum = levelSum.Add(w.Mul(fPlus.Add(fMinus)))
		}

		if level == 0 {
			sum = levelSum
		} else {
			sum = sum.Mul(half).Add(hBall.Mul(levelSum))
		}
		levels = level + 1

		estimate := sum.Mul(ball.FromRat(rad, wp))
		if havePrev {
			inc := new(big.Float).SetPrec(32).SetMode(big.ToPositiveInf)
			inc.Abs(estimate.Sub(prev).Center())
			scale := new(big.Float).Abs(estimate.Center())
			scale.Add(scale, big.NewFloat(1))
			tolAbs := new(big.Float).SetMantExp(scale, -int(prec)-4)
			if inc.Cmp(tolAbs) < 0 || level == maxLevels {
				if e.metrics != nil {
					e.metrics.QuadratureLevels(levels)
				}
				e.log.Debug().Int("levels", levels).Msg("tanh-sinh refinement finished")
				return realValue(addRadius(estimate, inc)), nil
			}
		}
		prev = estimate
		havePrev = true
	}
	return evalf.Value{}, evalf.NewInternalError("tanh-sinh refinement loop exited unexpectedly", nil)
}

// node computes the weight and the tanh offset for abscissa parameter t>0.
// The offset is returned as an exact rational so the sample point can be
// formed without rounding against the interval midpoint.
func (e *Engine) node(t *big.Rat, halfPi, half ball.Real, wp uint) (w ball.Real, offset *big.Rat, err error) {
	tb := ball.FromRat(t, wp)
	et := tb.Exp()
	one := ball.One(wp)
	etInv, err := one.Div(et)
	if err != nil {
		return ball.Real{}, nil, evalf.NewInternalError("exp underflow in node computation", err)
	}
	sinhT := et.Sub(etInv).Mul(half)
	coshT := et.Add(etInv).Mul(half)

	u := halfPi.Mul(sinhT)
	eu := u.Exp()
	euInv, err := one.Div(eu)
	if err != nil {
		return ball.Real{}, nil, evalf.NewInternalError("exp underflow in node computation", err)
	}
	coshU := eu.Add(euInv).Mul(half)
	sinhU := eu.Sub(euInv).Mul(half)

	w, err = halfPi.Mul(coshT).Div(coshU.Mul(coshU))
	if err != nil {
		return ball.Real{}, nil, evalf.NewInternalError("vanishing cosh in node computation", err)
	}
	tanhU, err := sinhU.Div(coshU)
	if err != nil {
		return ball.Real{}, nil, evalf.NewInternalError("vanishing cosh in node computation", err)
	}
	offset, _ = tanhU.Center().Rat(nil)
	return w, offset, nil
}
