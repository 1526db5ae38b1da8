// Package series evaluates finite and infinite sums to a target accuracy.
//
// Three strategies are tried in priority order. A term whose consecutive
// ratio is a rational function of the index with rational coefficients is
// summed by binary splitting of the ratio recurrence, which reaches high
// precision without evaluating each term independently. Everything else is
// summed directly while terms still contribute above the tolerance; when
// the range is too long for that, the remaining tail is estimated with the
// Euler-Maclaurin correction formula, and alternating slowly-converging
// series fall back to extrapolation of the partial sums.
//
// The engine reports the realized error estimate inside the returned
// value's radius and leaves precision escalation to the driver: a sum that
// came back too loose is simply retried at a higher working precision,
// like any other expression.
package series
