package quad

import (
	"context"
	"math/big"

	"github.com/rs/zerolog"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/evalf"
	"github.com/numeval/numeval/pkg/expr"
	"github.com/numeval/numeval/pkg/telemetry"
)

// Engine implements evalf.QuadEngine.
type Engine struct {
	ev      *evalf.Evaluator
	log     zerolog.Logger
	metrics *telemetry.Metrics
}

// New creates a quadrature engine on top of the evaluator.
func New(ev *evalf.Evaluator, log zerolog.Logger, m *telemetry.Metrics) *Engine {
	return &Engine{
		ev:      ev,
		log:     log.With().Str("component", "quad").Logger(),
		metrics: m,
	}
}

// endpoint is a resolved integration bound.
type endpoint struct {
	infinite bool
	negative bool
	value    ball.Real
	rat      *big.Rat
}

// Integrate evaluates the integral task to prec bits.
func (e *Engine) Integrate(ctx context.Context, task evalf.IntegralTask, prec uint) (evalf.Value, evalf.Status, error) {
	wp := prec + 4*ball.GuardBits
	lo, err := e.resolveEndpoint(ctx, task.Lo, wp)
	if err != nil {
		return evalf.Value{}, "", err
	}
	hi, err := e.resolveEndpoint(ctx, task.Hi, wp)
	if err != nil {
		return evalf.Value{}, "", err
	}
	if err := checkDomain(lo, hi); err != nil {
		return evalf.Value{}, "", err
	}

	if task.Scheme == evalf.QuadSchemeOsc {
		val, err := e.integrateOscillatory(ctx, task, lo, hi, prec)
		if err != nil {
			return evalf.Value{}, "", err
		}
		return val, evalf.StatusOK, nil
	}

	body, v, lo, hi := foldInfinite(task, lo, hi, wp)
	val, err := e.tanhSinh(ctx, body, v, lo, hi, prec)
	if err != nil {
		return evalf.Value{}, "", err
	}
	return val, evalf.StatusOK, nil
}

func (e *Engine) resolveEndpoint(ctx context.Context, bound expr.Expr, wp uint) (endpoint, error) {
	if inf, ok := bound.(expr.Infinity); ok {
		return endpoint{infinite: true, negative: inf.Negative}, nil
	}
	out, err := e.ev.Evaluate(ctx, bound, wp, evalf.Options{})
	if err != nil {
		return endpoint{}, err
	}
	if out.Value == nil || out.Value.IsComplex() {
		return endpoint{}, evalf.NewDomainError("integration bound is not a real number", nil)
	}
	r := out.Value.Re
	rr, _ := r.Center().Rat(nil)
	return endpoint{value: r, rat: rr}, nil
}

func checkDomain(lo, hi endpoint) error {
	if lo.infinite && !lo.negative {
		return evalf.NewDomainError("lower integration bound is positive infinity", nil)
	}
	if hi.infinite && hi.negative {
		return evalf.NewDomainError("upper integration bound is negative infinity", nil)
	}
	if !lo.infinite && !hi.infinite && lo.value.Center().Cmp(hi.value.Center()) >= 0 {
		return evalf.NewDomainError("integration domain requires lo < hi", nil)
	}
	return nil
}

// foldInfinite rewrites an integral over an unbounded domain as an
// equivalent integral over a finite one, substituting a rational change of
// variables into the integrand expression. The transformed integrand has
// at worst integrable endpoint behavior, which tanh-sinh absorbs.
func foldInfinite(task evalf.IntegralTask, lo, hi endpoint, wp uint) (expr.Expr, string, endpoint, endpoint) {
	v := expr.Symbol{Name: task.Var}
	zero := endpoint{value: ball.Zero(wp), rat: new(big.Rat)}
	one := endpoint{value: ball.One(wp), rat: new(big.Rat).SetInt64(1)}
	negOne := endpoint{value: ball.One(wp).Neg(), rat: new(big.Rat).SetInt64(-1)}

	switch {
	case lo.infinite && hi.infinite:
		// x = u/(1-u^2) on (-1, 1), dx = (1+u^2)/(1-u^2)^2 du
		u2 := expr.NewMul(v, v)
		oneMinus := expr.NewAdd(expr.NewInt(1), expr.NewNeg(u2))
		x := expr.NewMul(v, expr.NewPow(oneMinus, expr.NewInt(-1)))
		jac := expr.NewMul(
			expr.NewAdd(expr.NewInt(1), u2),
			expr.NewPow(oneMinus, expr.NewInt(-2)))
		body := expr.NewMul(expr.Substitute(task.Body, task.Var, x), jac)
		return body, task.Var, negOne, one
	case hi.infinite:
		// x = a + u/(1-u) on (0, 1), dx = (1-u)^-2 du
		oneMinus := expr.NewAdd(expr.NewInt(1), expr.NewNeg(v))
		x := expr.NewAdd(task.Lo, expr.NewMul(v, expr.NewPow(oneMinus, expr.NewInt(-1))))
		jac := expr.NewPow(oneMinus, expr.NewInt(-2))
		body := expr.NewMul(expr.Substitute(task.Body, task.Var, x), jac)
		return body, task.Var, zero, one
	case lo.infinite:
		// x = b - u/(1-u) on (0, 1), dx = (1-u)^-2 du
		oneMinus := expr.NewAdd(expr.NewInt(1), expr.NewNeg(v))
		x := expr.NewAdd(task.Hi, expr.NewNeg(expr.NewMul(v, expr.NewPow(oneMinus, expr.NewInt(-1)))))
		jac := expr.NewPow(oneMinus, expr.NewInt(-2))
		body := expr.NewMul(expr.Substitute(task.Body, task.Var, x), jac)
		return body, task.Var, zero, one
	}
	return task.Body, task.Var, lo, hi
}

// sampleAt evaluates the integrand at an exact rational abscissa.
func (e *Engine) sampleAt(ctx context.Context, body expr.Expr, v string, x *big.Rat, prec uint) (ball.Real, error) {
	sub := expr.Substitute(body, v, expr.NewBigRat(x))
	out, err := e.ev.Evaluate(ctx, sub, prec, evalf.Options{})
	if err != nil {
		return ball.Real{}, err
	}
	if out.Value == nil {
		return ball.Real{}, evalf.NewUnsupportedError("integrand contains unbound symbols", nil)
	}
	if out.Value.IsComplex() {
		return ball.Real{}, evalf.NewUnsupportedError("complex integrands are not supported", nil)
	}
	return out.Value.Re, nil
}

func realValue(r ball.Real) evalf.Value { return evalf.Value{Re: r} }

func addRadius(v ball.Real, extra *big.Float) ball.Real {
	if extra == nil || extra.Sign() == 0 {
		return v
	}
	r := new(big.Float).SetPrec(32).SetMode(big.ToPositiveInf).Add(v.Radius(), extra)
	return ball.FromParts(v.Center(), r)
}
