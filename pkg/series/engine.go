package series

import (
	"context"
	"math/big"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/evalf"
	"github.com/numeval/numeval/pkg/expr"
	"github.com/numeval/numeval/pkg/telemetry"
)

const (
	// directBudget scales the number of directly summed terms with the
	// working precision.
	directBudget = 2

	// minDirect is summed directly even at tiny precisions.
	minDirect = 64

	// maxSplitTerms caps the truncation point of the binary-splitting
	// path; a convergent series needing more terms than this falls back
	// to direct summation with a tail estimate.
	maxSplitTerms = 4_000_000
)

// Engine implements evalf.SeriesEngine.
type Engine struct {
	ev      *evalf.Evaluator
	quad    evalf.QuadEngine
	log     zerolog.Logger
	metrics *telemetry.Metrics
	evals   atomic.Uint64
}

// New creates a summation engine on top of the evaluator.
func New(ev *evalf.Evaluator, log zerolog.Logger, m *telemetry.Metrics) *Engine {
	return &Engine{
		ev:      ev,
		log:     log.With().Str("component", "series").Logger(),
		metrics: m,
	}
}

// SetQuadEngine registers the quadrature engine used for the integral part
// of Euler-Maclaurin tail estimates.
func (e *Engine) SetQuadEngine(q evalf.QuadEngine) { e.quad = q }

// Sum evaluates the summation task to prec bits. The index runs over
// consecutive integers from Lo to Hi inclusive; Hi may be positive
// infinity.
func (e *Engine) Sum(ctx context.Context, task evalf.SeriesTask, prec uint) (evalf.Value, evalf.Status, error) {
	lo, hi, infinite, err := e.resolveBounds(ctx, task)
	if err != nil {
		return evalf.Value{}, "", err
	}
	if !infinite && lo.Cmp(hi) > 0 {
		return evalf.Value{}, "", evalf.NewDomainError("summation range is empty: lo > hi", nil)
	}

	if r, ok := extractRatio(task.Term, task.Index); ok {
		if val, done, err := e.sumBySplitting(ctx, task, r, lo, hi, infinite, prec); err != nil {
			return evalf.Value{}, "", err
		} else if done {
			return val, evalf.StatusOK, nil
		}
	}

	val, err := e.sumDirect(ctx, task, lo, hi, infinite, prec)
	if err != nil {
		return evalf.Value{}, "", err
	}
	return val, evalf.StatusOK, nil
}

// resolveBounds extracts the integer bounds of the summation range.
func (e *Engine) resolveBounds(ctx context.Context, task evalf.SeriesTask) (lo, hi *big.Int, infinite bool, err error) {
	lo, err = e.integerBound(ctx, task.Lo, "lower")
	if err != nil {
		return nil, nil, false, err
	}
	if inf, ok := task.Hi.(expr.Infinity); ok {
		if inf.Negative {
			return nil, nil, false, evalf.NewDomainError("summation to negative infinity", nil)
		}
		return lo, nil, true, nil
	}
	hi, err = e.integerBound(ctx, task.Hi, "upper")
	if err != nil {
		return nil, nil, false, err
	}
	return lo, hi, false, nil
}

func (e *Engine) integerBound(ctx context.Context, bound expr.Expr, which string) (*big.Int, error) {
	if n, ok := bound.(expr.Integer); ok {
		return n.Value, nil
	}
	out, err := e.ev.Evaluate(ctx, bound, 64, evalf.Options{})
	if err != nil {
		return nil, err
	}
	if out.Value == nil || out.Value.IsComplex() || !out.Value.Re.Exact() {
		return nil, evalf.NewDomainError(which+" summation bound is not an exact integer", nil)
	}
	n, acc := out.Value.Re.Center().Int(nil)
	if acc != big.Exact {
		return nil, evalf.NewDomainError(which+" summation bound is not an exact integer", nil)
	}
	return n, nil
}

// TermEvaluations reports the total number of individual term evaluations
// performed by this engine, across all strategies. Budget instrumentation:
// a million-term range must never cost a million evaluations.
func (e *Engine) TermEvaluations() uint64 { return e.evals.Load() }

// termAt evaluates the term at an integer or rational index value.
func (e *Engine) termAt(ctx context.Context, task evalf.SeriesTask, at expr.Expr, prec uint) (ball.Real, error) {
	e.evals.Add(1)
	sub := expr.Substitute(task.Term, task.Index, at)
	out, err := e.ev.Evaluate(ctx, sub, prec, evalf.Options{})
	if err != nil {
		return ball.Real{}, err
	}
	if out.Value == nil {
		return ball.Real{}, evalf.NewUnsupportedError("summation term contains unbound symbols", nil)
	}
	if out.Value.IsComplex() {
		return ball.Real{}, evalf.NewUnsupportedError("complex summation terms are not supported", nil)
	}
	return out.Value.Re, nil
}

// sumDirect adds terms one by one while they still contribute above the
// tolerance. A range too long to finish within the budget hands the
// remainder to the Euler-Maclaurin tail estimate, or to extrapolation of
// the partial sums when the terms alternate.
func (e *Engine) sumDirect(ctx context.Context, task evalf.SeriesTask, lo, hi *big.Int, infinite bool, prec uint) (evalf.Value, error) {
	wp := prec + 2*ball.GuardBits
	budget := int(prec)*directBudget + minDirect

	total := ball.Zero(wp)
	tol := tolerance(prec)
	k := new(big.Int).Set(lo)
	one := big.NewInt(1)

	var prevTerm ball.Real
	havePrev := false
	terms := 0
	signFlips, signChecks := 0, 0
	for {
		if err := ctx.Err(); err != nil {
			return evalf.Value{}, err
		}
		if !infinite && k.Cmp(hi) > 0 {
			// Whole range summed exactly.
			e.recordTerms("direct", terms)
			return realValue(total), nil
		}
		if terms >= budget {
			break
		}
		t, err := e.termAt(ctx, task, expr.NewBigInt(k), wp)
		if err != nil {
			return evalf.Value{}, err
		}
		total = total.Add(t)
		terms++
		if havePrev && t.Sign() != 0 && prevTerm.Sign() != 0 {
			signChecks++
			if t.Sign() != prevTerm.Sign() {
				signFlips++
			}
		}
		if havePrev && terms > 2 && belowTol(t, tol) {
			// Converged: the remaining tail is bounded by a geometric
			// envelope fitted to the observed decay.
			e.recordTerms("direct", terms)
			return realValue(addRadius(total, tailEnvelope(prevTerm, t))), nil
		}
		prevTerm = t
		havePrev = true
		k.Add(k, one)
	}

	alternating := signChecks > 4 && signFlips == signChecks
	if alternating {
		val, err := e.sumAlternating(ctx, task, lo, prec)
		if err == nil {
			return val, nil
		}
		e.log.Debug().Err(err).Msg("alternating acceleration failed, falling through")
	}
	return e.sumEulerMaclaurin(ctx, task, total, k, hi, infinite, prec)
}

func (e *Engine) recordTerms(strategy string, terms int) {
	if e.metrics != nil {
		e.metrics.SeriesTerms(strategy, terms)
	}
	e.log.Debug().Str("strategy", strategy).Int("terms", terms).Msg("summation finished")
}

func realValue(r ball.Real) evalf.Value { return evalf.Value{Re: r} }

// tolerance returns the absolute error target for prec requested bits.
func tolerance(prec uint) *big.Float {
	return new(big.Float).SetMantExp(big.NewFloat(1), -int(prec)-4)
}

func belowTol(t ball.Real, tol *big.Float) bool {
	abs := new(big.Float).Abs(t.Center())
	return abs.Cmp(tol) < 0
}

// tailEnvelope bounds the unsummed tail by a geometric series fitted to
// the last two terms. When the observed decay is too slow to trust, the
// bound degrades to many last-term units, which the caller's radius then
// honestly reports.
func tailEnvelope(prev, last ball.Real) *big.Float {
	absLast := new(big.Float).SetPrec(32).SetMode(big.ToPositiveInf).Abs(last.Center())
	if absLast.Sign() == 0 {
		return new(big.Float)
	}
	absPrev := new(big.Float).SetPrec(32).Abs(prev.Center())
	// ratio = |t_n| / |t_{n-1}|, clamped to [0, 0.9]
	ratio := 0.9
	if absPrev.Sign() != 0 {
		q := new(big.Float).Quo(absLast, absPrev)
		if f, _ := q.Float64(); f < ratio {
			ratio = f
		}
	}
	scale := big.NewFloat(1 / (1 - ratio))
	return absLast.Mul(absLast, scale)
}

func addRadius(v ball.Real, extra *big.Float) ball.Real {
	if extra == nil || extra.Sign() == 0 {
		return v
	}
	r := new(big.Float).SetPrec(32).SetMode(big.ToPositiveInf).Add(v.Radius(), extra)
	return ball.FromParts(v.Center(), r)
}
