package evalf

import (
	"context"
	"math"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/expr"
)

// Status reports how trustworthy an evaluation outcome is.
type Status string

const (
	// StatusOK means the certified error bound meets the request.
	StatusOK Status = "ok"

	// StatusDegraded means the best bound found is worse than requested
	// but the value is usable.
	StatusDegraded Status = "degraded"

	// StatusExhausted means the maximum working precision was reached
	// without meeting the tolerance.
	StatusExhausted Status = "exhausted"
)

// worse returns the less trustworthy of two statuses.
func worse(a, b Status) Status {
	rank := map[Status]int{StatusOK: 0, StatusDegraded: 1, StatusExhausted: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// Value is a tracked numeric value, real or complex. A nil Im marks a
// purely real value; complex values carry an independent radius per
// component.
type Value struct {
	Re ball.Real
	Im *ball.Real
}

// IsComplex reports whether the value has an imaginary component.
func (v Value) IsComplex() bool { return v.Im != nil }

// AccurateBits reports the certified leading bits of the value: for a
// complex value, the weaker of the two components, ignoring an exact zero
// component.
func (v Value) AccurateBits() uint {
	if v.Im == nil {
		return v.Re.AccurateBits()
	}
	z := ball.Complex{Re: v.Re, Im: *v.Im}
	return z.AccurateBits()
}

// String renders the value clipped to its certified digits.
func (v Value) String() string {
	if v.Im == nil {
		return v.Re.String()
	}
	return v.Re.String() + " + " + v.Im.String() + "*I"
}

// Text renders the value with at most the given significant digits,
// clipped to the certified count.
func (v Value) Text(digits int) string {
	if v.Im == nil {
		return v.Re.Text(digits)
	}
	return v.Re.Text(digits) + " + " + v.Im.Text(digits) + "*I"
}

// Outcome is the result of a single fixed-precision evaluation pass.
type Outcome struct {
	// Value is the tracked result, nil when the expression is not
	// numerically evaluable.
	Value *Value

	// Partial is the partially evaluated expression when Value is nil:
	// evaluable subtrees replaced by exact literals, free symbols left
	// symbolic.
	Partial expr.Expr

	// Status qualifies the value.
	Status Status
}

// SeriesTask is the immutable descriptor of one summation: the term, the
// index variable and its inclusive bounds. Hi may be expr.Infinity. A
// fresh evaluation is constructed from the descriptor on every precision
// attempt; the descriptor itself is never mutated, so retries are
// idempotent.
type SeriesTask struct {
	Term  expr.Expr
	Index string
	Lo    expr.Expr
	Hi    expr.Expr
}

// IntegralTask is the immutable descriptor of one definite integral.
// Either bound may be a signed expr.Infinity. Scheme selects the
// quadrature rule ("smooth" or "osc"); selecting the oscillatory scheme is
// always an explicit caller choice.
type IntegralTask struct {
	Body   expr.Expr
	Var    string
	Lo     expr.Expr
	Hi     expr.Expr
	Scheme string
}

// SeriesEngine evaluates summation tasks. Implemented by pkg/series.
type SeriesEngine interface {
	Sum(ctx context.Context, task SeriesTask, prec uint) (Value, Status, error)
}

// QuadEngine evaluates integral tasks. Implemented by pkg/quad.
type QuadEngine interface {
	Integrate(ctx context.Context, task IntegralTask, prec uint) (Value, Status, error)
}

const (
	// DefaultMaxPrec bounds the working precision when the caller does
	// not say otherwise: about 100 decimal digits.
	DefaultMaxPrec = 330

	// DefaultDigits is the accuracy requested when the caller does not
	// say otherwise.
	DefaultDigits = 15

	// DefaultWorkers bounds concurrent child evaluation.
	DefaultWorkers = 4

	// initialGuardBits is added to the first working precision guess.
	initialGuardBits = 32

	// maxLocalRetries bounds per-node cancellation recovery before the
	// outer escalation loop takes over.
	maxLocalRetries = 2
)

// QuadSchemeSmooth and QuadSchemeOsc name the quadrature schemes.
const (
	QuadSchemeSmooth = "smooth"
	QuadSchemeOsc    = "osc"
)

// Options control one top-level call. The zero value is usable: defaults
// are applied by withDefaults.
type Options struct {
	// MaxPrec is the upper bound on working precision in bits.
	MaxPrec uint

	// Chop replaces a component whose magnitude is below its own error
	// radius with an exact zero, as the very last step.
	Chop bool

	// Strict fails with a typed error instead of returning a degraded
	// result.
	Strict bool

	// Quad selects the quadrature scheme for Integral nodes.
	Quad string

	// Workers bounds concurrent evaluation of independent children.
	Workers int

	// Bindings assigns numeric expressions to free symbols. Applied by
	// substitution before evaluation begins.
	Bindings map[string]expr.Expr
}

func (o Options) withDefaults() Options {
	if o.MaxPrec == 0 {
		o.MaxPrec = DefaultMaxPrec
	}
	if o.Quad == "" {
		o.Quad = QuadSchemeSmooth
	}
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	return o
}

func (o Options) validate() error {
	if o.Quad != QuadSchemeSmooth && o.Quad != QuadSchemeOsc {
		return NewDomainError("unknown quadrature scheme "+o.Quad, nil)
	}
	return nil
}

// Result is the outcome of a driven N call.
type Result struct {
	// Value is the tracked result, nil when the expression is not
	// numerically evaluable.
	Value *Value

	// Partial is the partially evaluated expression when Value is nil.
	Partial expr.Expr

	// Status qualifies the value.
	Status Status

	// RequestedDigits is the accuracy the caller asked for.
	RequestedDigits int

	// CertifiedDigits is the accuracy actually achieved. Lower than
	// RequestedDigits exactly when Status is degraded or exhausted.
	CertifiedDigits int

	// WorkingPrec is the final working precision in bits.
	WorkingPrec uint

	// Attempts counts evaluation passes, escalations included.
	Attempts int

	// ID correlates the log records of this call.
	ID string
}

// DigitsToBits converts a decimal digit request to bits, rounding up.
func DigitsToBits(digits int) uint {
	return uint(math.Ceil(float64(digits) * math.Ln10 / math.Ln2))
}

// BitsToDigits converts certified bits to whole decimal digits.
func BitsToDigits(bits uint) int {
	return int(float64(bits) * math.Ln2 / math.Ln10)
}
