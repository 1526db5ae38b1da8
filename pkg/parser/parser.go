package parser

import (
	"math/big"
	"strings"

	"go.starlark.net/syntax"

	"github.com/numeval/numeval/pkg/expr"
)

// constants maps identifier spellings to named constants.
var constants = map[string]expr.ConstName{
	"pi":           expr.ConstPi,
	"e":            expr.ConstE,
	"euler_gamma":  expr.ConstEulerGamma,
	"catalan":      expr.ConstCatalan,
	"ln2":          expr.ConstLn2,
	"golden_ratio": expr.ConstGoldenRatio,
}

// functions maps call names to single-argument functions.
var functions = map[string]expr.FuncName{
	"sin":       expr.FuncSin,
	"cos":       expr.FuncCos,
	"tan":       expr.FuncTan,
	"exp":       expr.FuncExp,
	"log":       expr.FuncLog,
	"sqrt":      expr.FuncSqrt,
	"atan":      expr.FuncAtan,
	"sinh":      expr.FuncSinh,
	"cosh":      expr.FuncCosh,
	"abs":       expr.FuncAbs,
	"gamma":     expr.FuncGamma,
	"factorial": expr.FuncFactorial,
}

// Parse parses a single expression. The grammar is Starlark's expression
// grammar; the AST is lowered, not executed. Power is spelled ^ (Starlark
// has no binary **); the ** spelling is rewritten to ^ before parsing.
// Power binds looser than + - * / and unary minus in this grammar, so
// power subterms need parentheses: 3*(x^2), (x^2) + y.
func Parse(src string) (expr.Expr, error) {
	ast, err := syntax.ParseExpr("<expr>", strings.ReplaceAll(src, "**", "^"), 0)
	if err != nil {
		return nil, NewParseError("invalid expression syntax", err)
	}
	return lower(ast)
}

func lower(n syntax.Expr) (expr.Expr, error) {
	switch node := n.(type) {
	case *syntax.ParenExpr:
		return lower(node.X)

	case *syntax.Literal:
		return lowerLiteral(node)

	case *syntax.Ident:
		return lowerIdent(node), nil

	case *syntax.UnaryExpr:
		return lowerUnary(node)

	case *syntax.BinaryExpr:
		return lowerBinary(node)

	case *syntax.CallExpr:
		return lowerCall(node)
	}
	start, _ := n.Span()
	return nil, NewParseError("unsupported syntax", nil).WithPos(start.Line, start.Col)
}

func lowerLiteral(node *syntax.Literal) (expr.Expr, error) {
	switch node.Token {
	case syntax.INT:
		switch v := node.Value.(type) {
		case int64:
			return expr.NewInt(v), nil
		case *big.Int:
			return expr.NewBigInt(v), nil
		}
	case syntax.FLOAT:
		// Lower the decimal text, not the float64 the lexer produced:
		// 0.1 must mean 1/10 exactly.
		if r, ok := new(big.Rat).SetString(node.Raw); ok {
			return expr.NewBigRat(r), nil
		}
	}
	return nil, NewParseError("unsupported literal "+node.Raw, nil).WithPos(node.TokenPos.Line, node.TokenPos.Col)
}

func lowerIdent(node *syntax.Ident) expr.Expr {
	if c, ok := constants[node.Name]; ok {
		return expr.Constant{Name: c}
	}
	switch node.Name {
	case "inf":
		return expr.Infinity{}
	case "I":
		return expr.ImaginaryUnit{}
	}
	return expr.Symbol{Name: node.Name}
}

func lowerUnary(node *syntax.UnaryExpr) (expr.Expr, error) {
	x, err := lower(node.X)
	if err != nil {
		return nil, err
	}
	switch node.Op {
	case syntax.PLUS:
		return x, nil
	case syntax.MINUS:
		if inf, ok := x.(expr.Infinity); ok {
			return expr.Infinity{Negative: !inf.Negative}, nil
		}
		return expr.NewNeg(x), nil
	}
	return nil, NewParseError("unsupported unary operator "+node.Op.String(), nil).WithPos(node.OpPos.Line, node.OpPos.Col)
}

func lowerBinary(node *syntax.BinaryExpr) (expr.Expr, error) {
	x, err := lower(node.X)
	if err != nil {
		return nil, err
	}
	y, err := lower(node.Y)
	if err != nil {
		return nil, err
	}
	switch node.Op {
	case syntax.PLUS:
		return expr.NewAdd(x, y), nil
	case syntax.MINUS:
		return expr.NewAdd(x, expr.NewNeg(y)), nil
	case syntax.STAR:
		return expr.NewMul(x, y), nil
	case syntax.SLASH:
		return expr.NewDiv(x, y), nil
	case syntax.CIRCUMFLEX:
		return expr.NewPow(x, y), nil
	}
	return nil, NewParseError("unsupported operator "+node.Op.String(), nil).WithPos(node.OpPos.Line, node.OpPos.Col)
}

func lowerCall(node *syntax.CallExpr) (expr.Expr, error) {
	ident, ok := node.Fn.(*syntax.Ident)
	if !ok {
		start, _ := node.Fn.Span()
		return nil, NewParseError("calls must use a plain function name", nil).WithPos(start.Line, start.Col)
	}
	start, _ := node.Span()

	switch ident.Name {
	case "Sum", "Integral":
		return lowerBinder(ident.Name, node)
	}

	name, ok := functions[ident.Name]
	if !ok {
		return nil, NewParseError("unknown function "+ident.Name, nil).WithPos(start.Line, start.Col)
	}
	if len(node.Args) != 1 {
		return nil, NewParseError(ident.Name+" takes exactly one argument", nil).WithPos(start.Line, start.Col)
	}
	arg, err := lower(node.Args[0])
	if err != nil {
		return nil, err
	}
	return expr.NewFunc(name, arg), nil
}

// lowerBinder handles Sum(term, k, lo, hi) and Integral(body, x, lo, hi).
func lowerBinder(name string, node *syntax.CallExpr) (expr.Expr, error) {
	start, _ := node.Span()
	if len(node.Args) != 4 {
		return nil, NewParseError(name+" takes (body, variable, lo, hi)", nil).WithPos(start.Line, start.Col)
	}
	body, err := lower(node.Args[0])
	if err != nil {
		return nil, err
	}
	ident, ok := node.Args[1].(*syntax.Ident)
	if !ok {
		return nil, NewParseError(name+" needs a plain variable name", nil).WithPos(start.Line, start.Col)
	}
	if _, taken := constants[ident.Name]; taken || ident.Name == "inf" || ident.Name == "I" {
		return nil, NewParseError(ident.Name+" is reserved and cannot be a bound variable", nil).WithPos(start.Line, start.Col)
	}
	lo, err := lower(node.Args[2])
	if err != nil {
		return nil, err
	}
	hi, err := lower(node.Args[3])
	if err != nil {
		return nil, err
	}
	v := expr.Symbol{Name: ident.Name}
	if name == "Sum" {
		return expr.NewSum(body, v, lo, hi), nil
	}
	return expr.NewIntegral(body, v, lo, hi), nil
}
