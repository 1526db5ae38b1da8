// Package cache provides the process-wide cache of pure constant
// evaluations.
//
// # Overview
//
// Evaluating a transcendental constant to thousands of bits is expensive
// and the result is a pure function of (expression identity, precision).
// The cache is content-addressed on exactly that pair, populated lazily and
// never invalidated within a process. Entries are appended, never replaced:
// concurrent inserts of the same key carry identical values, so
// last-writer-wins is harmless.
//
// # Persistence
//
// An optional Store persists entries across processes. SQLiteStore is the
// provided implementation; values are serialized in the exact hexadecimal
// floating-point form produced by big.Float, so a round trip is lossless at
// any precision.
package cache
