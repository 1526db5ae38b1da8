package evalf

import (
	"errors"
	"fmt"

	"github.com/numeval/numeval/pkg/expr"
)

// ErrorKind classifies evaluation failures.
type ErrorKind string

const (
	// ErrorKindPrecisionExhausted means maxprec was reached without
	// meeting the tolerance. Raised only under the strict option;
	// otherwise a degraded result is returned instead.
	ErrorKindPrecisionExhausted ErrorKind = "precision_exhausted"

	// ErrorKindDomain means a malformed domain or an argument outside a
	// function's domain: lo > hi, log of a negative ball, the
	// oscillatory scheme on a non-oscillatory integrand.
	ErrorKindDomain ErrorKind = "domain"

	// ErrorKindUnsupported means the expression is structurally valid
	// but outside what the engine implements.
	ErrorKindUnsupported ErrorKind = "unsupported"

	// ErrorKindInternal means an invariant was violated.
	ErrorKindInternal ErrorKind = "internal"
)

// EvalError is a classified evaluation error. It always carries enough
// state for the caller to retry with different options: the expression and
// the requested versus required precision, never a bare message.
type EvalError struct {
	// Kind is the error classification.
	Kind ErrorKind

	// Message is the human-readable error message.
	Message string

	// Expr is the expression being evaluated, when known.
	Expr expr.Expr

	// RequestedBits is the precision the caller asked for.
	RequestedBits uint

	// RequiredBits estimates the precision that would have been needed.
	RequiredBits uint

	// Err is the underlying error, if any.
	Err error
}

// Error implements the error interface.
func (e *EvalError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Kind, e.Message)
	if e.Expr != nil {
		msg += fmt.Sprintf(" (expr=%s)", e.Expr)
	}
	if e.RequiredBits > 0 {
		msg += fmt.Sprintf(" (requested=%d bits, required~%d bits)", e.RequestedBits, e.RequiredBits)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EvalError) Unwrap() error { return e.Err }

// Is implements error equality on the kind for errors.Is.
func (e *EvalError) Is(target error) bool {
	t, ok := target.(*EvalError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// WithExpr attaches the expression context to an error.
func (e *EvalError) WithExpr(ex expr.Expr) *EvalError {
	e.Expr = ex
	return e
}

// WithPrecision attaches the requested and estimated required precision.
func (e *EvalError) WithPrecision(requested, required uint) *EvalError {
	e.RequestedBits = requested
	e.RequiredBits = required
	return e
}

// NewPrecisionExhaustedError creates a strict-mode precision failure.
func NewPrecisionExhaustedError(message string, err error) *EvalError {
	return &EvalError{Kind: ErrorKindPrecisionExhausted, Message: message, Err: err}
}

// NewDomainError creates a domain error.
func NewDomainError(message string, err error) *EvalError {
	return &EvalError{Kind: ErrorKindDomain, Message: message, Err: err}
}

// NewUnsupportedError creates an unsupported-expression error.
func NewUnsupportedError(message string, err error) *EvalError {
	return &EvalError{Kind: ErrorKindUnsupported, Message: message, Err: err}
}

// NewInternalError creates an internal invariant failure.
func NewInternalError(message string, err error) *EvalError {
	return &EvalError{Kind: ErrorKindInternal, Message: message, Err: err}
}

// IsPrecisionExhausted reports whether err is a strict-mode precision
// failure.
func IsPrecisionExhausted(err error) bool {
	var e *EvalError
	return errors.As(err, &e) && e.Kind == ErrorKindPrecisionExhausted
}

// IsDomain reports whether err is a domain error.
func IsDomain(err error) bool {
	var e *EvalError
	return errors.As(err, &e) && e.Kind == ErrorKindDomain
}

// IsUnsupported reports whether err is an unsupported-expression error.
func IsUnsupported(err error) bool {
	var e *EvalError
	return errors.As(err, &e) && e.Kind == ErrorKindUnsupported
}
