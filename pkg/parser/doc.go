// Package parser turns expression text into expression trees. The surface
// syntax is the Starlark expression grammar, which already has unary minus,
// calls and identifiers; the Starlark AST is lowered into pkg/expr nodes
// and never executed. Power is Starlark's ^ operator, with ** accepted as
// an alternate spelling; ^ binds looser than + - * / and unary minus, so
// parenthesize power subterms: 3*(x^2), (x^2) + y.
//
// Decimal literals become exact rationals: 0.1 parses to 1/10, not to the
// nearest binary double.
package parser
