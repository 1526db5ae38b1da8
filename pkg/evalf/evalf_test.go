package evalf

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/numeval/numeval/pkg/expr"
)

func newTestEvaluator() *Evaluator {
	return New(zerolog.Nop(), nil, nil)
}

func TestExactRationalArithmetic(t *testing.T) {
	ev := newTestEvaluator()

	// 1/3 + 1/6 = 1/2, exactly representable in binary.
	e := expr.NewAdd(expr.NewRat(1, 3), expr.NewRat(1, 6))
	res, err := ev.N(context.Background(), e, 30, Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	require.Equal(t, StatusOK, res.Status)
	require.True(t, res.Value.Re.Exact())
	require.Equal(t, 0, res.Value.Re.Center().Cmp(big.NewFloat(0.5)))
}

func TestRationalDecimalExpansion(t *testing.T) {
	ev := newTestEvaluator()

	res, err := ev.N(context.Background(), expr.NewRat(1, 3), 30, Options{})
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	require.Equal(t, 30, res.CertifiedDigits)
	require.True(t, strings.HasPrefix(res.Value.Text(30), "0.3333333333"))
}

func TestDeterminism(t *testing.T) {
	ev := newTestEvaluator()
	e := expr.NewAdd(
		expr.NewFunc(expr.FuncSin, expr.NewInt(1)),
		expr.NewFunc(expr.FuncExp, expr.NewRat(1, 2)),
		expr.NewMul(expr.Constant{Name: expr.ConstPi}, expr.NewRat(2, 7)),
	)

	first, err := ev.N(context.Background(), e, 40, Options{})
	require.NoError(t, err)
	for i := 0; i < 3; i++ {
		again, err := ev.N(context.Background(), e, 40, Options{})
		require.NoError(t, err)
		require.Equal(t, 0, first.Value.Re.Center().Cmp(again.Value.Re.Center()))
		require.Equal(t, first.Value.Text(40), again.Value.Text(40))
	}
}

func TestMonotonicPrefixAcrossPrecisions(t *testing.T) {
	ev := newTestEvaluator()
	e := expr.NewFunc(expr.FuncExp, expr.NewInt(1))

	low, err := ev.N(context.Background(), e, 15, Options{})
	require.NoError(t, err)
	high, err := ev.N(context.Background(), e, 45, Options{})
	require.NoError(t, err)

	lowText := low.Value.Text(15)
	require.True(t, strings.HasPrefix(high.Value.Text(45), lowText[:len(lowText)-1]),
		"low=%s high=%s", lowText, high.Value.Text(45))
}

func TestCatastrophicCancellationRecovered(t *testing.T) {
	ev := newTestEvaluator()

	// (sqrt(2) + 10**20) - 10**20, built without constructor folding so
	// the cancellation actually happens during evaluation.
	big20 := new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil)
	inner := expr.Add{Terms: []expr.Expr{
		expr.NewFunc(expr.FuncSqrt, expr.NewInt(2)),
		expr.NewBigInt(big20),
	}}
	e := expr.Add{Terms: []expr.Expr{
		inner,
		expr.NewBigInt(new(big.Int).Neg(big20)),
	}}

	res, err := ev.N(context.Background(), e, 50, Options{})
	require.NoError(t, err)
	require.Equal(t, StatusOK, res.Status)
	require.Equal(t, 50, res.CertifiedDigits)
	require.True(t, strings.HasPrefix(res.Value.Text(50), "1.41421356237309504880168872420969807856967187537694"[:40]))
}

func TestChopSinPi(t *testing.T) {
	ev := newTestEvaluator()
	e := expr.NewFunc(expr.FuncSin, expr.Constant{Name: expr.ConstPi})

	plain, err := ev.N(context.Background(), e, 20, Options{})
	require.NoError(t, err)
	require.NotNil(t, plain.Value)
	require.True(t, plain.Value.Re.ContainsZero())

	chopped, err := ev.N(context.Background(), e, 20, Options{Chop: true})
	require.NoError(t, err)
	require.True(t, chopped.Value.Re.IsZero())
	require.True(t, chopped.Value.Re.Exact())
}

func TestPartialEvaluationWithFreeSymbol(t *testing.T) {
	ev := newTestEvaluator()
	e := expr.NewAdd(
		expr.NewFunc(expr.FuncSqrt, expr.NewInt(2)),
		expr.Symbol{Name: "x"},
	)

	res, err := ev.N(context.Background(), e, 20, Options{})
	require.NoError(t, err)
	require.Nil(t, res.Value)
	require.NotNil(t, res.Partial)
	require.Contains(t, expr.FreeSymbols(res.Partial), "x")
}

func TestBindingsSubstituteBeforeEvaluation(t *testing.T) {
	ev := newTestEvaluator()
	e := expr.NewAdd(expr.Symbol{Name: "x"}, expr.NewInt(1))

	res, err := ev.N(context.Background(), e, 20, Options{
		Bindings: map[string]expr.Expr{"x": expr.NewRat(1, 2)},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	require.Equal(t, 0, res.Value.Re.Center().Cmp(big.NewFloat(1.5)))
}

func TestStrictModeRaisesTypedError(t *testing.T) {
	ev := newTestEvaluator()

	// A 200-digit request cannot be certified under a 64-bit ceiling.
	e := expr.NewFunc(expr.FuncExp, expr.NewInt(1))
	_, err := ev.N(context.Background(), e, 200, Options{MaxPrec: 64, Strict: true})
	require.Error(t, err)
	require.True(t, IsPrecisionExhausted(err))

	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	require.NotNil(t, ee.Expr)
	require.NotZero(t, ee.RequestedBits)
}

func TestNonStrictDegradesInsteadOfFailing(t *testing.T) {
	ev := newTestEvaluator()
	e := expr.NewFunc(expr.FuncExp, expr.NewInt(1))

	res, err := ev.N(context.Background(), e, 200, Options{MaxPrec: 64})
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	require.Equal(t, StatusExhausted, res.Status)
	require.Less(t, res.CertifiedDigits, res.RequestedDigits)
}

func TestIntegerPowerFastPath(t *testing.T) {
	ev := newTestEvaluator()

	// 3**100 evaluates exactly.
	e := expr.NewPow(expr.NewInt(3), expr.NewInt(100))
	res, err := ev.N(context.Background(), e, 20, Options{})
	require.NoError(t, err)
	require.True(t, res.Value.Re.Exact())

	want := new(big.Int).Exp(big.NewInt(3), big.NewInt(100), nil)
	got, acc := res.Value.Re.Center().Int(nil)
	require.Equal(t, big.Exact, acc)
	require.Equal(t, 0, want.Cmp(got))
}

func TestGeneralPower(t *testing.T) {
	ev := newTestEvaluator()

	// 2**(1/2) through exp(y*log b) agrees with sqrt(2).
	e := expr.NewPow(expr.NewInt(2), expr.NewRat(1, 2))
	res, err := ev.N(context.Background(), e, 30, Options{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.Value.Text(30), "1.4142135623730950488"[:20]))
}

func TestGammaHalfInteger(t *testing.T) {
	ev := newTestEvaluator()

	// gamma(1/2) = sqrt(pi)
	e := expr.NewFunc(expr.FuncGamma, expr.NewRat(1, 2))
	res, err := ev.N(context.Background(), e, 30, Options{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.Value.Text(30), "1.77245385090551602729"[:20]))

	// gamma(5) = 24
	res, err = ev.N(context.Background(), expr.NewFunc(expr.FuncGamma, expr.NewInt(5)), 10, Options{})
	require.NoError(t, err)
	require.Equal(t, 0, res.Value.Re.Center().Cmp(big.NewFloat(24)))
}

func TestFactorialNegativeRejected(t *testing.T) {
	ev := newTestEvaluator()
	_, err := ev.N(context.Background(), expr.NewFunc(expr.FuncFactorial, expr.NewInt(-3)), 10, Options{})
	require.Error(t, err)
	require.True(t, IsDomain(err))
}

func TestComplexArithmetic(t *testing.T) {
	ev := newTestEvaluator()

	// (1+2i)*(3-i) = 5+5i
	i := expr.ImaginaryUnit{}
	lhs := expr.NewAdd(expr.NewInt(1), expr.NewMul(expr.NewInt(2), i))
	rhs := expr.NewAdd(expr.NewInt(3), expr.NewMul(expr.NewInt(-1), i))
	res, err := ev.N(context.Background(), expr.NewMul(lhs, rhs), 20, Options{})
	require.NoError(t, err)
	require.True(t, res.Value.IsComplex())
	require.Equal(t, 0, res.Value.Re.Center().Cmp(big.NewFloat(5)))
	require.Equal(t, 0, res.Value.Im.Center().Cmp(big.NewFloat(5)))
}

func TestEulerIdentityChopsToZero(t *testing.T) {
	ev := newTestEvaluator()

	// exp(i*pi) + 1 with chop collapses to exactly zero.
	arg := expr.NewMul(expr.ImaginaryUnit{}, expr.Constant{Name: expr.ConstPi})
	e := expr.NewAdd(expr.NewFunc(expr.FuncExp, arg), expr.NewInt(1))
	res, err := ev.N(context.Background(), e, 20, Options{Chop: true})
	require.NoError(t, err)
	require.False(t, res.Value.IsComplex())
	require.True(t, res.Value.Re.IsZero())
}

func TestLogOfNegativeIsDomainError(t *testing.T) {
	ev := newTestEvaluator()
	_, err := ev.N(context.Background(), expr.NewFunc(expr.FuncLog, expr.NewInt(-1)), 10, Options{})
	require.Error(t, err)
	require.True(t, IsDomain(err))
}

func TestDivisionByZeroBall(t *testing.T) {
	ev := newTestEvaluator()

	// 1 / sin(pi): the denominator is indistinguishable from zero.
	den := expr.NewFunc(expr.FuncSin, expr.Constant{Name: expr.ConstPi})
	_, err := ev.N(context.Background(), expr.NewDiv(expr.NewInt(1), den), 10, Options{})
	require.Error(t, err)
	require.True(t, IsDomain(err))
}

func TestBareInfinityRejected(t *testing.T) {
	ev := newTestEvaluator()
	_, err := ev.N(context.Background(), expr.NewAdd(expr.Infinity{}, expr.NewInt(1)), 10, Options{})
	require.Error(t, err)
	require.True(t, IsDomain(err))
}

func TestUnregisteredEnginesRejectTasks(t *testing.T) {
	ev := newTestEvaluator()
	k := expr.Symbol{Name: "k"}

	sum := expr.NewSum(expr.NewPow(k, expr.NewInt(-2)), k, expr.NewInt(1), expr.Infinity{})
	_, err := ev.N(context.Background(), sum, 10, Options{})
	require.Error(t, err)
	require.True(t, IsUnsupported(err))

	x := expr.Symbol{Name: "x"}
	integral := expr.NewIntegral(expr.NewMul(x, x), x, expr.NewInt(0), expr.NewInt(1))
	_, err = ev.N(context.Background(), integral, 10, Options{})
	require.Error(t, err)
	require.True(t, IsUnsupported(err))
}

func TestContextCancellation(t *testing.T) {
	ev := newTestEvaluator()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ev.N(ctx, expr.NewFunc(expr.FuncExp, expr.NewInt(1)), 30, Options{})
	require.ErrorIs(t, err, context.Canceled)
}
