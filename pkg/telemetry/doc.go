// Package telemetry provides structured logging, metrics and tracing for
// the numeval evaluation engine.
//
// # Logging
//
// Logger wraps zerolog with evaluation-specific field helpers: every
// top-level call is tagged with an evaluation ID, the expression content
// hash and the working precision, so the escalation attempts of one call
// can be correlated across components.
//
// # Metrics
//
// Metrics exposes Prometheus collectors for the quantities operators care
// about: evaluations by outcome status, precision escalations, quadrature
// refinement levels, series terms summed, and constant-cache hit rates.
//
// # Tracing
//
// Tracer wraps the OpenTelemetry SDK. A span covers one top-level call
// (N, integrate, sum or recognize) with precision attributes on it.
// Tracing is disabled by default and exports to stdout when enabled;
// it exists for debugging convergence problems, not production telemetry.
package telemetry
