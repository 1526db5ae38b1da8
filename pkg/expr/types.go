package expr

import (
	"fmt"
	"math/big"
	"sort"
	"strings"
)

// Expr is a node in an immutable symbolic expression tree.
type Expr interface {
	// String renders the node in a conventional infix form.
	String() string

	// children returns the direct sub-expressions, in a stable order.
	children() []Expr

	// head returns the node tag used for hashing and dispatch.
	head() string
}

// ConstName identifies a named transcendental constant.
type ConstName string

const (
	ConstPi          ConstName = "pi"
	ConstE           ConstName = "e"
	ConstEulerGamma  ConstName = "euler_gamma"
	ConstCatalan     ConstName = "catalan"
	ConstLn2         ConstName = "ln2"
	ConstGoldenRatio ConstName = "golden_ratio"
)

// FuncName identifies a named single-argument function.
type FuncName string

const (
	FuncSin       FuncName = "sin"
	FuncCos       FuncName = "cos"
	FuncTan       FuncName = "tan"
	FuncExp       FuncName = "exp"
	FuncLog       FuncName = "log"
	FuncSqrt      FuncName = "sqrt"
	FuncAtan      FuncName = "atan"
	FuncSinh      FuncName = "sinh"
	FuncCosh      FuncName = "cosh"
	FuncAbs       FuncName = "abs"
	FuncGamma     FuncName = "gamma"
	FuncFactorial FuncName = "factorial"
)

// Integer is an exact integer literal.
type Integer struct {
	Value *big.Int
}

func (n Integer) String() string   { return n.Value.String() }
func (n Integer) children() []Expr { return nil }
func (n Integer) head() string     { return "int:" + n.Value.String() }

// Sign reports -1, 0 or +1.
func (n Integer) Sign() int { return n.Value.Sign() }

// Rational is an exact rational literal with a nonzero denominator.
type Rational struct {
	Value *big.Rat
}

func (n Rational) String() string   { return n.Value.RatString() }
func (n Rational) children() []Expr { return nil }
func (n Rational) head() string     { return "rat:" + n.Value.RatString() }

// Constant is a named transcendental constant.
type Constant struct {
	Name ConstName
}

func (c Constant) String() string   { return string(c.Name) }
func (c Constant) children() []Expr { return nil }
func (c Constant) head() string     { return "const:" + string(c.Name) }

// Symbol is a free or bound variable.
type Symbol struct {
	Name string
}

func (s Symbol) String() string   { return s.Name }
func (s Symbol) children() []Expr { return nil }
func (s Symbol) head() string     { return "sym:" + s.Name }

// ImaginaryUnit is the imaginary unit i.
type ImaginaryUnit struct{}

func (ImaginaryUnit) String() string   { return "I" }
func (ImaginaryUnit) children() []Expr { return nil }
func (ImaginaryUnit) head() string     { return "imag" }

// Infinity is a signed infinity. It is only meaningful as a bound of a Sum
// or Integral; the evaluator rejects it anywhere else.
type Infinity struct {
	// Negative selects -inf instead of +inf.
	Negative bool
}

func (f Infinity) String() string {
	if f.Negative {
		return "-inf"
	}
	return "inf"
}
func (f Infinity) children() []Expr { return nil }
func (f Infinity) head() string     { return "inf:" + f.String() }

// Add is an n-ary sum with at least two terms.
type Add struct {
	Terms []Expr
}

func (a Add) String() string {
	parts := make([]string, len(a.Terms))
	for i, t := range a.Terms {
		parts[i] = t.String()
	}
	return strings.Join(parts, " + ")
}
func (a Add) children() []Expr { return a.Terms }
func (a Add) head() string     { return "add" }

// Mul is an n-ary product with at least two factors.
type Mul struct {
	Factors []Expr
}

func (m Mul) String() string {
	parts := make([]string, len(m.Factors))
	for i, f := range m.Factors {
		if needsParens(f) {
			parts[i] = "(" + f.String() + ")"
		} else {
			parts[i] = f.String()
		}
	}
	return strings.Join(parts, "*")
}
func (m Mul) children() []Expr { return m.Factors }
func (m Mul) head() string     { return "mul" }

// Pow is base**exponent.
type Pow struct {
	Base     Expr
	Exponent Expr
}

func (p Pow) String() string {
	base := p.Base.String()
	if needsParens(p.Base) {
		base = "(" + base + ")"
	}
	exp := p.Exponent.String()
	if needsParens(p.Exponent) {
		exp = "(" + exp + ")"
	}
	return base + "**" + exp
}
func (p Pow) children() []Expr { return []Expr{p.Base, p.Exponent} }
func (p Pow) head() string     { return "pow" }

// Func is a named single-argument function application.
type Func struct {
	Name FuncName
	Arg  Expr
}

func (f Func) String() string   { return fmt.Sprintf("%s(%s)", f.Name, f.Arg) }
func (f Func) children() []Expr { return []Expr{f.Arg} }
func (f Func) head() string     { return "func:" + string(f.Name) }

// Sum is a summation of Term over Index running from Lo to Hi inclusive.
// Hi may be Infinity.
type Sum struct {
	Term  Expr
	Index Symbol
	Lo    Expr
	Hi    Expr
}

func (s Sum) String() string {
	return fmt.Sprintf("Sum(%s, (%s, %s, %s))", s.Term, s.Index.Name, s.Lo, s.Hi)
}
func (s Sum) children() []Expr { return []Expr{s.Term, s.Lo, s.Hi} }
func (s Sum) head() string     { return "sum:" + s.Index.Name }

// Integral is a definite integral of Body with respect to Var over (Lo, Hi).
// Either bound may be Infinity.
type Integral struct {
	Body Expr
	Var  Symbol
	Lo   Expr
	Hi   Expr
}

func (n Integral) String() string {
	return fmt.Sprintf("Integral(%s, (%s, %s, %s))", n.Body, n.Var.Name, n.Lo, n.Hi)
}
func (n Integral) children() []Expr { return []Expr{n.Body, n.Lo, n.Hi} }
func (n Integral) head() string     { return "integral:" + n.Var.Name }

func needsParens(e Expr) bool {
	switch e.(type) {
	case Add, Mul:
		return true
	case Integer:
		return e.(Integer).Sign() < 0
	case Rational:
		return true
	}
	return false
}

// FreeSymbols returns the names of unbound symbols in e, sorted. Bound
// summation indices and integration variables are excluded within their
// scope.
func FreeSymbols(e Expr) []string {
	seen := map[string]bool{}
	collectFree(e, map[string]bool{}, seen)
	out := make([]string, 0, len(seen))
	for name := range seen {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func collectFree(e Expr, bound map[string]bool, seen map[string]bool) {
	switch v := e.(type) {
	case Symbol:
		if !bound[v.Name] {
			seen[v.Name] = true
		}
	case Sum:
		inner := copyBound(bound)
		inner[v.Index.Name] = true
		collectFree(v.Term, inner, seen)
		collectFree(v.Lo, bound, seen)
		collectFree(v.Hi, bound, seen)
	case Integral:
		inner := copyBound(bound)
		inner[v.Var.Name] = true
		collectFree(v.Body, inner, seen)
		collectFree(v.Lo, bound, seen)
		collectFree(v.Hi, bound, seen)
	default:
		for _, c := range e.children() {
			collectFree(c, bound, seen)
		}
	}
}

func copyBound(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
