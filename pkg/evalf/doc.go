// Package evalf implements the precision-directed evaluator and the
// precision escalation driver, the core of the numerical evaluation engine.
//
// # Overview
//
// Evaluation proceeds in two layers:
//
//  1. Evaluate walks an expression tree once at a fixed working precision.
//     For every operator it derives the precision its operands must supply
//     so that the combined error meets the target, evaluates the children
//     (concurrently for independent terms of a sum or factors of a
//     product), and combines the resulting balls. The realized error
//     radius is reported, not the requested one: a child may have come
//     back looser than asked.
//
//  2. N drives Evaluate in an escalation loop: start a little above the
//     requested accuracy, inspect the certified error bound, and double the
//     working precision until the request is met or the maxprec ceiling is
//     reached. Cancellation discovered mid-evaluation is first recovered
//     locally, by re-deriving the required sub-precision from the observed
//     exponents and retrying the affected node; the outer doubling only
//     kicks in when local recovery is not enough.
//
// # Outcomes
//
// A value is always accompanied by a status: ok, degraded (bound worse
// than requested but usable) or exhausted (maxprec reached). A subtree
// containing a free symbol with no numeric binding is not an error: the
// outcome carries a partially evaluated expression instead of a value.
// Under the strict option, insufficient accuracy raises a typed error
// carrying the expression and the requested versus required precision.
//
// # Undecidability Caveat
//
// The engine only ever produces a value with an error bound. A result that
// is smaller than its own radius may or may not be exactly zero; the chop
// option rounds such results to zero, but the engine never claims to
// distinguish "exactly zero" from "very small".
//
// # Determinism
//
// Evaluation is a pure function of (expression, precision, options).
// Parallel children are combined in child order, so repeated calls yield
// identical results bit for bit.
package evalf
