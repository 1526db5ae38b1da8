package parser

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/numeval/numeval/pkg/expr"
)

func TestDecimalLiteralIsExactRational(t *testing.T) {
	e, err := Parse("0.1")
	require.NoError(t, err)
	r, ok := e.(expr.Rational)
	require.True(t, ok, "got %T", e)
	require.Equal(t, 0, r.Value.Cmp(big.NewRat(1, 10)))
}

func TestArithmeticLowering(t *testing.T) {
	for _, src := range []string{
		"1 + 2*x",
		"x**2",
		"sin(pi/6)",
		"-x",
		"2**(-2)",
		"(x + 1)*(x - 1)",
	} {
		t.Run(src, func(t *testing.T) {
			e, err := Parse(src)
			require.NoError(t, err)
			require.NotEmpty(t, e.String())
		})
	}
}

func TestPowerOperatorSpellings(t *testing.T) {
	for _, src := range []string{"x^2", "x**2"} {
		t.Run(src, func(t *testing.T) {
			e, err := Parse(src)
			require.NoError(t, err)
			p, ok := e.(expr.Pow)
			require.True(t, ok, "got %T", e)
			require.Equal(t, expr.Symbol{Name: "x"}, p.Base)
		})
	}
}

func TestPowerBindsLooserThanMultiplication(t *testing.T) {
	// Starlark precedence puts ^ below * and /: 2*x^2 is (2*x)^2.
	e, err := Parse("2*x^2")
	require.NoError(t, err)
	p, ok := e.(expr.Pow)
	require.True(t, ok, "got %T", e)
	_, ok = p.Base.(expr.Mul)
	require.True(t, ok, "got %T", p.Base)
}

func TestConstantsAndSymbols(t *testing.T) {
	e, err := Parse("pi")
	require.NoError(t, err)
	require.Equal(t, expr.Constant{Name: expr.ConstPi}, e)

	e, err = Parse("y")
	require.NoError(t, err)
	require.Equal(t, expr.Symbol{Name: "y"}, e)

	e, err = Parse("I")
	require.NoError(t, err)
	require.Equal(t, expr.ImaginaryUnit{}, e)
}

func TestSignedInfinity(t *testing.T) {
	e, err := Parse("inf")
	require.NoError(t, err)
	require.Equal(t, expr.Infinity{}, e)

	e, err = Parse("-inf")
	require.NoError(t, err)
	require.Equal(t, expr.Infinity{Negative: true}, e)
}

func TestSumAndIntegralForms(t *testing.T) {
	e, err := Parse("Sum(1/factorial(k), k, 0, inf)")
	require.NoError(t, err)
	s, ok := e.(expr.Sum)
	require.True(t, ok, "got %T", e)
	require.Equal(t, "k", s.Index.Name)
	require.Equal(t, expr.Infinity{}, s.Hi)

	e, err = Parse("Integral(exp(-x), x, 0, inf)")
	require.NoError(t, err)
	in, ok := e.(expr.Integral)
	require.True(t, ok, "got %T", e)
	require.Equal(t, "x", in.Var.Name)
}

func TestReservedBoundVariableRejected(t *testing.T) {
	_, err := Parse("Sum(pi, pi, 0, 10)")
	require.Error(t, err)
	require.True(t, IsParseError(err))
}

func TestUnknownFunctionRejected(t *testing.T) {
	_, err := Parse("zeta(2)")
	require.Error(t, err)
	require.True(t, IsParseError(err))
}

func TestSyntaxErrorRejected(t *testing.T) {
	_, err := Parse("1 +")
	require.Error(t, err)
	require.True(t, IsParseError(err))
}

func TestStatementsRejected(t *testing.T) {
	// The grammar is expressions only; nothing is ever executed.
	_, err := Parse("x = 1")
	require.Error(t, err)
}
