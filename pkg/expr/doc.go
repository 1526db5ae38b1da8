// Package expr defines the immutable symbolic expression tree consumed by the
// numerical evaluation engine.
//
// # Overview
//
// The tree is the hand-off format between a symbolic front end and the
// numeric core. Nodes are typed and immutable: construction helpers perform
// light normalization (flattening nested sums and products, folding exact
// integer and rational literals) but no algebraic simplification; rewriting
// is the job of an external symbolic engine.
//
// # Node Types
//
//   - Integer, Rational: exact numeric literals (math/big backed)
//   - Constant: a named transcendental constant (pi, e, euler_gamma, ...)
//   - Symbol: a free or bound variable
//   - ImaginaryUnit: the imaginary unit i
//   - Infinity: a signed infinity, valid only as a Sum/Integral bound
//   - Add, Mul: n-ary sum and product
//   - Pow: base raised to an exponent
//   - Func: a named single-argument function application (sin, exp, ...)
//   - Sum: a summation over an index variable with finite or infinite bounds
//   - Integral: a definite integral over a finite or infinite domain
//
// # Immutability
//
// All nodes are value objects. Substitute returns a new tree and never
// mutates its receiver, so trees may be shared read-only across concurrent
// evaluations.
//
// # Content Addressing
//
// Key returns a stable content hash of a tree. The evaluation cache uses
// (key, precision) pairs to address previously computed values.
package expr
