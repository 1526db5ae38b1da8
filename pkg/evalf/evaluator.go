package evalf

import (
	"context"
	"math/big"
	"sync"

	"github.com/rs/zerolog"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/cache"
	"github.com/numeval/numeval/pkg/expr"
	"github.com/numeval/numeval/pkg/telemetry"
)

// Evaluator is the precision-directed expression evaluator. It is safe for
// concurrent use: evaluation carries no shared mutable state beyond the
// append-only constant cache.
type Evaluator struct {
	log     zerolog.Logger
	metrics *telemetry.Metrics
	cache   *cache.Cache
	series  SeriesEngine
	quad    QuadEngine
}

// New creates an evaluator. The cache and metrics may be nil; Sum and
// Integral nodes additionally require the engines to be registered.
func New(log zerolog.Logger, c *cache.Cache, m *telemetry.Metrics) *Evaluator {
	return &Evaluator{
		log:     log.With().Str("component", "evalf").Logger(),
		cache:   c,
		metrics: m,
	}
}

// SetSeriesEngine registers the summation engine used for Sum nodes.
func (ev *Evaluator) SetSeriesEngine(s SeriesEngine) { ev.series = s }

// SetQuadEngine registers the quadrature engine used for Integral nodes.
func (ev *Evaluator) SetQuadEngine(q QuadEngine) { ev.quad = q }

// Evaluate performs one fixed-precision evaluation pass over e, aiming for
// prec certified bits. Symbol bindings from the options are substituted
// before evaluation; remaining free symbols yield a partial outcome rather
// than an error.
func (ev *Evaluator) Evaluate(ctx context.Context, e expr.Expr, prec uint, opts Options) (Outcome, error) {
	opts = opts.withDefaults()
	if err := opts.validate(); err != nil {
		return Outcome{}, err
	}
	for name, value := range opts.Bindings {
		e = expr.Substitute(e, name, value)
	}
	t := &task{ev: ev, opts: opts}
	return t.eval(ctx, e, prec)
}

// task carries the per-call options through the recursion.
type task struct {
	ev   *Evaluator
	opts Options
}

func (t *task) eval(ctx context.Context, e expr.Expr, prec uint) (Outcome, error) {
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}
	switch v := e.(type) {
	case expr.Integer:
		return exactOutcome(ball.FromInt(v.Value, prec+ball.GuardBits)), nil
	case expr.Rational:
		return exactOutcome(ball.FromRat(v.Value, prec+ball.GuardBits)), nil
	case expr.Constant:
		return t.evalConstant(ctx, v, prec)
	case expr.ImaginaryUnit:
		one := ball.One(prec + ball.GuardBits)
		return Outcome{Value: &Value{Re: ball.Zero(prec + ball.GuardBits), Im: &one}, Status: StatusOK}, nil
	case expr.Symbol:
		// No binding: the subtree is not numerically evaluable.
		return Outcome{Partial: v, Status: StatusOK}, nil
	case expr.Add:
		return t.evalAdd(ctx, v, prec)
	case expr.Mul:
		return t.evalMul(ctx, v, prec)
	case expr.Pow:
		return t.evalPow(ctx, v, prec)
	case expr.Func:
		return t.evalFunc(ctx, v, prec)
	case expr.Sum:
		return t.evalSum(ctx, v, prec)
	case expr.Integral:
		return t.evalIntegral(ctx, v, prec)
	case expr.Infinity:
		return Outcome{}, NewDomainError("infinity is only valid as a summation or integration bound", nil).WithExpr(v)
	}
	return Outcome{}, NewUnsupportedError("unknown expression node", nil).WithExpr(e)
}

func exactOutcome(r ball.Real) Outcome {
	v := realValue(r)
	return Outcome{Value: &v, Status: StatusOK}
}

// evalConstant consults the process-wide cache before computing: constant
// values are pure functions of (name, precision).
func (t *task) evalConstant(ctx context.Context, c expr.Constant, prec uint) (Outcome, error) {
	wp := prec + ball.GuardBits
	key := cache.Key{ID: string(c.Name), Prec: wp}
	if t.ev.cache != nil {
		if f, ok := t.ev.cache.Get(ctx, key); ok {
			if t.ev.metrics != nil {
				t.ev.metrics.CacheHit()
			}
			return exactOutcome(ball.FromParts(f, ulpAt(f, wp))), nil
		}
		if t.ev.metrics != nil {
			t.ev.metrics.CacheMiss()
		}
	}
	r, err := ball.Constant(string(c.Name), wp)
	if err != nil {
		return Outcome{}, NewUnsupportedError("constant not implemented", err).WithExpr(c)
	}
	if t.ev.cache != nil {
		t.ev.cache.Put(ctx, key, r.Center())
	}
	return exactOutcome(r), nil
}

// evalAdd evaluates an n-ary sum. Additive error composition means every
// child must be asked for the full target plus headroom for the term
// count; cancellation discovered after combining is recovered by
// re-deriving the child precision from the observed exponent drop and
// retrying.
func (t *task) evalAdd(ctx context.Context, a expr.Add, prec uint) (Outcome, error) {
	childPrec := prec + log2up(len(a.Terms)) + ball.GuardBits
	for attempt := 0; ; attempt++ {
		outs, err := t.evalAll(ctx, a.Terms, childPrec)
		if err != nil {
			return Outcome{}, err
		}
		if partial := t.reassemble(a.Terms, outs, expr.NewAdd); partial != nil {
			return Outcome{Partial: partial, Status: StatusOK}, nil
		}
		status := StatusOK
		sum := *outs[0].Value
		status = worse(status, outs[0].Status)
		allExact := sum.Im == nil && sum.Re.Exact()
		for _, out := range outs[1:] {
			sum = vAdd(sum, *out.Value)
			status = worse(status, out.Status)
			if out.Value.Im != nil || !out.Value.Re.Exact() {
				allExact = false
			}
		}
		acc := sum.AccurateBits()
		if acc >= prec || allExact || attempt >= maxLocalRetries || status != StatusOK {
			return Outcome{Value: &sum, Status: status}, nil
		}
		// Cancellation: the exponent drop tells us exactly how much
		// more the children must supply.
		childPrec += (prec - acc) + ball.GuardBits
		t.ev.log.Debug().Uint("prec", prec).Uint("child_prec", childPrec).
			Int("attempt", attempt+1).Msg("re-deriving sub-precision after cancellation")
	}
}

// evalMul evaluates an n-ary product. Relative errors compose additively,
// so a constant amount of headroom per factor suffices.
func (t *task) evalMul(ctx context.Context, m expr.Mul, prec uint) (Outcome, error) {
	childPrec := prec + log2up(len(m.Factors)) + ball.GuardBits
	for attempt := 0; ; attempt++ {
		outs, err := t.evalAll(ctx, m.Factors, childPrec)
		if err != nil {
			return Outcome{}, err
		}
		if partial := t.reassemble(m.Factors, outs, expr.NewMul); partial != nil {
			return Outcome{Partial: partial, Status: StatusOK}, nil
		}
		status := StatusOK
		prod := *outs[0].Value
		status = worse(status, outs[0].Status)
		for _, out := range outs[1:] {
			prod = vMul(prod, *out.Value)
			status = worse(status, out.Status)
		}
		acc := prod.AccurateBits()
		exact := prod.Im == nil && prod.Re.Exact()
		if acc >= prec || exact || attempt >= maxLocalRetries || status != StatusOK {
			return Outcome{Value: &prod, Status: status}, nil
		}
		childPrec += (prec - acc) + ball.GuardBits
	}
}

// evalPow evaluates base**exponent. An exact integer exponent scales the
// base's precision requirement by its bit length; a general exponent goes
// through exp(y*log b), which requires a strictly positive real base.
func (t *task) evalPow(ctx context.Context, p expr.Pow, prec uint) (Outcome, error) {
	expOut, err := t.eval(ctx, p.Exponent, prec)
	if err != nil {
		return Outcome{}, err
	}
	if expOut.Value == nil {
		baseOut, berr := t.eval(ctx, p.Base, prec)
		if berr != nil {
			return Outcome{}, berr
		}
		return Outcome{Partial: expr.NewPow(partialOf(p.Base, baseOut), expOut.Partial), Status: StatusOK}, nil
	}

	if n, ok := exactInteger(*expOut.Value); ok {
		childPrec := prec + uint(n.BitLen()) + ball.GuardBits
		for attempt := 0; ; attempt++ {
			baseOut, berr := t.eval(ctx, p.Base, childPrec)
			if berr != nil {
				return Outcome{}, berr
			}
			if baseOut.Value == nil {
				return Outcome{Partial: expr.NewPow(baseOut.Partial, expr.NewBigInt(n)), Status: StatusOK}, nil
			}
			out, perr := vPowInt(*baseOut.Value, n)
			if perr != nil {
				return Outcome{}, withExprErr(perr, p)
			}
			acc := out.AccurateBits()
			exact := out.Im == nil && out.Re.Exact()
			if acc >= prec || exact || attempt >= maxLocalRetries || baseOut.Status != StatusOK {
				return Outcome{Value: &out, Status: baseOut.Status}, nil
			}
			childPrec += (prec - acc) + ball.GuardBits
		}
	}

	// General exponent: headroom grows with the exponent's magnitude,
	// since d(b^y)/db amplifies relative error by |y|.
	extra := uint(0)
	if s := expOut.Value.Re.Center(); s.Sign() != 0 {
		if e := s.MantExp(nil); e > 0 {
			extra = uint(e)
		}
	}
	childPrec := prec + extra + ball.GuardBits
	for attempt := 0; ; attempt++ {
		baseOut, berr := t.eval(ctx, p.Base, childPrec)
		if berr != nil {
			return Outcome{}, berr
		}
		if baseOut.Value == nil {
			return Outcome{Partial: expr.NewPow(baseOut.Partial, partialOf(p.Exponent, expOut)), Status: StatusOK}, nil
		}
		if baseOut.Value.IsComplex() || expOut.Value.IsComplex() {
			return Outcome{}, NewUnsupportedError("complex base or exponent in a general power", nil).WithExpr(p)
		}
		out, perr := baseOut.Value.Re.Pow(expOut.Value.Re)
		if perr != nil {
			return Outcome{}, NewDomainError("general power requires a strictly positive base", perr).WithExpr(p)
		}
		v := realValue(out)
		status := worse(baseOut.Status, expOut.Status)
		acc := v.AccurateBits()
		if acc >= prec || attempt >= maxLocalRetries || status != StatusOK {
			return Outcome{Value: &v, Status: status}, nil
		}
		childPrec += (prec - acc) + ball.GuardBits
	}
}

func (t *task) evalFunc(ctx context.Context, f expr.Func, prec uint) (Outcome, error) {
	argPrec := prec + ball.GuardBits
	for attempt := 0; ; attempt++ {
		argOut, err := t.eval(ctx, f.Arg, argPrec)
		if err != nil {
			return Outcome{}, err
		}
		if argOut.Value == nil {
			return Outcome{Partial: expr.NewFunc(f.Name, argOut.Partial), Status: StatusOK}, nil
		}
		out, ferr := t.applyFunc(f, *argOut.Value, prec)
		if ferr != nil {
			return Outcome{}, ferr
		}
		acc := out.AccurateBits()
		exact := out.Im == nil && out.Re.Exact()
		if acc >= prec || exact || attempt >= maxLocalRetries || argOut.Status != StatusOK {
			return Outcome{Value: &out, Status: argOut.Status}, nil
		}
		// Ill-conditioned spot (large argument to sin, argument near a
		// root of log, ...): ask the argument for the observed deficit.
		argPrec += (prec - acc) + ball.GuardBits
	}
}

func (t *task) applyFunc(f expr.Func, v Value, prec uint) (Value, error) {
	if v.IsComplex() {
		return applyComplexFunc(f, v)
	}
	a := v.Re
	switch f.Name {
	case expr.FuncSin:
		return realValue(a.Sin()), nil
	case expr.FuncCos:
		return realValue(a.Cos()), nil
	case expr.FuncTan:
		out, err := a.Tan()
		if err != nil {
			return Value{}, NewDomainError("tan at a point indistinguishable from a pole", err).WithExpr(f)
		}
		return realValue(out), nil
	case expr.FuncExp:
		return realValue(a.Exp()), nil
	case expr.FuncLog:
		out, err := a.Log()
		if err != nil {
			return Value{}, NewDomainError("log of a nonpositive value", err).WithExpr(f)
		}
		return realValue(out), nil
	case expr.FuncSqrt:
		out, err := a.Sqrt()
		if err != nil {
			return Value{}, NewDomainError("sqrt of a negative value", err).WithExpr(f)
		}
		return realValue(out), nil
	case expr.FuncAtan:
		return realValue(a.Atan()), nil
	case expr.FuncSinh:
		return realValue(a.Sinh()), nil
	case expr.FuncCosh:
		return realValue(a.Cosh()), nil
	case expr.FuncAbs:
		return realValue(a.Abs()), nil
	case expr.FuncFactorial, expr.FuncGamma:
		return applyGammaLike(f, v, prec)
	}
	return Value{}, NewUnsupportedError("function not implemented: "+string(f.Name), nil).WithExpr(f)
}

// applyGammaLike evaluates factorial(n) for nonnegative integers and
// gamma at positive integers and half-integers. The general gamma
// function is not implemented.
func applyGammaLike(f expr.Func, v Value, prec uint) (Value, error) {
	wp := prec + ball.GuardBits
	if n, ok := exactInteger(v); ok {
		if f.Name == expr.FuncGamma {
			n = new(big.Int).Sub(n, big.NewInt(1))
		}
		if n.Sign() < 0 {
			return Value{}, NewDomainError("factorial of a negative integer", nil).WithExpr(f)
		}
		return realValue(ball.FromInt(factorialInt(n), wp)), nil
	}
	if f.Name == expr.FuncGamma {
		if k, ok := halfIntegerK(v); ok && k >= 0 {
			// gamma(k+1/2) = (2k)! / (4^k k!) * sqrt(pi)
			num := factorialInt(big.NewInt(2 * k))
			den := new(big.Int).Mul(
				new(big.Int).Exp(big.NewInt(4), big.NewInt(k), nil),
				factorialInt(big.NewInt(k)))
			coeff := ball.FromRat(new(big.Rat).SetFrac(num, den), wp)
			pi, err := ball.Constant("pi", wp)
			if err != nil {
				return Value{}, NewInternalError("pi unavailable", err)
			}
			root, err := pi.Sqrt()
			if err != nil {
				return Value{}, NewInternalError("sqrt(pi) unavailable", err)
			}
			return realValue(coeff.Mul(root)), nil
		}
	}
	return Value{}, NewUnsupportedError(
		"gamma and factorial are implemented for integers and positive half-integers only", nil).WithExpr(f)
}

func applyComplexFunc(f expr.Func, v Value) (Value, error) {
	z := v.complex()
	switch f.Name {
	case expr.FuncExp:
		// e^(x+iy) = e^x (cos y + i sin y)
		scale := z.Re.Exp()
		return complexValue(ball.Complex{
			Re: scale.Mul(z.Im.Cos()),
			Im: scale.Mul(z.Im.Sin()),
		}), nil
	case expr.FuncSin:
		// sin(x+iy) = sin x cosh y + i cos x sinh y
		return complexValue(ball.Complex{
			Re: z.Re.Sin().Mul(z.Im.Cosh()),
			Im: z.Re.Cos().Mul(z.Im.Sinh()),
		}), nil
	case expr.FuncCos:
		// cos(x+iy) = cos x cosh y - i sin x sinh y
		return complexValue(ball.Complex{
			Re: z.Re.Cos().Mul(z.Im.Cosh()),
			Im: z.Re.Sin().Mul(z.Im.Sinh()).Neg(),
		}), nil
	case expr.FuncAbs:
		out, err := z.AbsSq().Sqrt()
		if err != nil {
			return Value{}, NewInternalError("modulus of a complex value failed", err).WithExpr(f)
		}
		return realValue(out), nil
	}
	return Value{}, NewUnsupportedError(
		"function not implemented for complex arguments: "+string(f.Name), nil).WithExpr(f)
}

func (t *task) evalSum(ctx context.Context, s expr.Sum, prec uint) (Outcome, error) {
	if free := freeExcept(s.Term, s.Index.Name); len(free) > 0 {
		return Outcome{Partial: s, Status: StatusOK}, nil
	}
	if t.ev.series == nil {
		return Outcome{}, NewUnsupportedError("no series engine registered", nil).WithExpr(s)
	}
	val, status, err := t.ev.series.Sum(ctx, SeriesTask{
		Term: s.Term, Index: s.Index.Name, Lo: s.Lo, Hi: s.Hi,
	}, prec)
	if err != nil {
		return Outcome{}, withExprErr(err, s)
	}
	return Outcome{Value: &val, Status: status}, nil
}

func (t *task) evalIntegral(ctx context.Context, n expr.Integral, prec uint) (Outcome, error) {
	if free := freeExcept(n.Body, n.Var.Name); len(free) > 0 {
		return Outcome{Partial: n, Status: StatusOK}, nil
	}
	if t.ev.quad == nil {
		return Outcome{}, NewUnsupportedError("no quadrature engine registered", nil).WithExpr(n)
	}
	val, status, err := t.ev.quad.Integrate(ctx, IntegralTask{
		Body: n.Body, Var: n.Var.Name, Lo: n.Lo, Hi: n.Hi, Scheme: t.opts.Quad,
	}, prec)
	if err != nil {
		return Outcome{}, withExprErr(err, n)
	}
	return Outcome{Value: &val, Status: status}, nil
}

// evalAll evaluates independent children, concurrently when the worker
// budget allows. Results are indexed by child position so combination is
// order-stable regardless of scheduling.
func (t *task) evalAll(ctx context.Context, children []expr.Expr, prec uint) ([]Outcome, error) {
	outs := make([]Outcome, len(children))
	if t.opts.Workers <= 1 || len(children) < 2 {
		for i, c := range children {
			out, err := t.eval(ctx, c, prec)
			if err != nil {
				return nil, err
			}
			outs[i] = out
		}
		return outs, nil
	}

	errs := make([]error, len(children))
	sem := make(chan struct{}, t.opts.Workers)
	var wg sync.WaitGroup
	for i, c := range children {
		wg.Add(1)
		go func(i int, c expr.Expr) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			outs[i], errs[i] = t.eval(ctx, c, prec)
		}(i, c)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return outs, nil
}

// reassemble builds a partially evaluated parent when any child came back
// symbolic: evaluated children are frozen as exact literals, unevaluable
// ones keep their partial form. Returns nil when every child evaluated.
func (t *task) reassemble(children []expr.Expr, outs []Outcome, rebuild func(...expr.Expr) expr.Expr) expr.Expr {
	anyPartial := false
	for _, out := range outs {
		if out.Value == nil {
			anyPartial = true
			break
		}
	}
	if !anyPartial {
		return nil
	}
	parts := make([]expr.Expr, len(outs))
	for i, out := range outs {
		parts[i] = partialOf(children[i], out)
	}
	return rebuild(parts...)
}

// partialOf renders a child outcome back into expression form.
func partialOf(original expr.Expr, out Outcome) expr.Expr {
	if out.Value == nil {
		if out.Partial != nil {
			return out.Partial
		}
		return original
	}
	return literalFromValue(*out.Value)
}

// literalFromValue freezes a tracked value as an exact literal. The
// center's binary representation converts to a rational without loss.
func literalFromValue(v Value) expr.Expr {
	rer, _ := v.Re.Center().Rat(nil)
	re := expr.NewBigRat(rer)
	if v.Im == nil {
		return re
	}
	imr, _ := v.Im.Center().Rat(nil)
	im := expr.NewBigRat(imr)
	return expr.NewAdd(re, expr.NewMul(im, expr.ImaginaryUnit{}))
}

func freeExcept(e expr.Expr, name string) []string {
	free := expr.FreeSymbols(e)
	out := free[:0]
	for _, f := range free {
		if f != name {
			out = append(out, f)
		}
	}
	return out
}

func factorialInt(n *big.Int) *big.Int {
	out := big.NewInt(1)
	i := big.NewInt(2)
	for i.Cmp(n) <= 0 {
		out.Mul(out, i)
		i = new(big.Int).Add(i, big.NewInt(1))
	}
	return out
}

// halfIntegerK reports k when the value is exactly k + 1/2.
func halfIntegerK(v Value) (int64, bool) {
	if v.Im != nil || !v.Re.Exact() {
		return 0, false
	}
	doubled := new(big.Float).SetPrec(v.Re.Prec() + 1).Add(v.Re.Center(), v.Re.Center())
	n, acc := doubled.Int(nil)
	if acc != big.Exact || n.Bit(0) == 0 {
		return 0, false
	}
	k := new(big.Int).Rsh(new(big.Int).Sub(n, big.NewInt(1)), 1)
	if !k.IsInt64() {
		return 0, false
	}
	return k.Int64(), true
}

func ulpAt(f *big.Float, prec uint) *big.Float {
	e := -int(prec)
	if f.Sign() != 0 {
		e += f.MantExp(nil)
	}
	return new(big.Float).SetMantExp(big.NewFloat(1), e)
}

func withExprErr(err error, e expr.Expr) error {
	if ee, ok := err.(*EvalError); ok && ee.Expr == nil {
		return ee.WithExpr(e)
	}
	return err
}

func log2up(n int) uint {
	bits := uint(0)
	for v := n - 1; v > 0; v >>= 1 {
		bits++
	}
	return bits
}
