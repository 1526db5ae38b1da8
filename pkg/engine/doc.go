// Package engine assembles the full evaluation stack from a configuration:
// logger, metrics, tracer, constant cache, the precision-directed
// evaluator with its series and quadrature engines, and the constant
// recognizer. The CLI and embedding programs talk to this facade; the
// individual packages remain usable on their own.
package engine
