// Package ball implements tracked arbitrary-precision values: a center
// carried as a math/big Float at an explicit working precision, plus an
// error radius guaranteed to bound the distance between the center and the
// true value.
//
// # Error Propagation
//
// Every arithmetic operation works at a precision at least the maximum of
// its operand precisions plus a fixed guard margin, and produces a radius
// that bounds the propagated error:
//
//   - addition and subtraction compose absolute radii, plus one ulp of the
//     result for rounding
//   - multiplication and division compose relative radii
//   - elementary functions scale the input radius by a bound on the
//     derivative at the center
//
// Radius arithmetic always rounds toward +infinity, so a reported radius
// can be pessimistic but never too small.
//
// # Exactness
//
// A nil radius means the value is exact at its stated precision: the center
// is the value, bit for bit. This is "exact at this precision", not exact in
// the mathematical sense; converting an irrational to a ball always yields a
// nonzero radius.
//
// # Cancellation
//
// CancelledBits reports exactly how many leading bits were lost when two
// values of comparable magnitude were subtracted, computed from the binary
// exponents involved. The evaluator uses it to re-derive the precision it
// must request from the operands.
//
// # Constants and Elementary Functions
//
// The package carries its own arbitrary-precision kernels for exp, log,
// sin, cos, atan and the named constants (pi, e, ln 2, Euler's gamma,
// Catalan's constant, the golden ratio), since math/big supplies only Sqrt.
package ball
