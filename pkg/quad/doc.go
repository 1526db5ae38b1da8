// Package quad evaluates definite integrals to a target accuracy.
//
// The default scheme is tanh-sinh (doubly exponential) quadrature: a
// change of variables clusters sample points near the interval endpoints,
// which handles smooth interiors and integrable endpoint singularities
// alike. The rule refines by doubling the node count and uses the
// increment between successive estimates as its error estimate, since no
// independent bound exists for a black-box integrand. Infinite intervals
// are folded onto a finite one by a rational substitution before the rule
// is applied.
//
// Tanh-sinh is known to misjudge highly oscillatory integrands: the
// increment only reflects local smoothness, not the global cancellation
// between half-periods, so the reported bound can be optimistic or the
// refinement can stall. The separate oscillatory scheme integrates
// half-period by half-period and accelerates the resulting alternating
// series; it applies only when the integrand is structurally a bounded
// sin/cos factor with a linear argument times a slowly varying envelope
// over a semi-infinite domain, and selecting it is always an explicit
// caller choice.
package quad
