// Package recognize turns numeric values back into closed forms. Given a
// ball and a set of candidate constants it tries, in order: an exact
// rational via continued-fraction convergents, an integer linear
// combination of the candidates found by PSLQ, and the same two forms
// applied to the square of the value.
//
// Every hypothesis is re-evaluated numerically before it is returned, so
// a lattice artifact at exhausted precision can never surface as a match.
// Finding nothing is a nil result, not an error.
package recognize
