package series

import (
	"context"
	"math/big"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/numeval/numeval/pkg/ball"
	"github.com/numeval/numeval/pkg/evalf"
	"github.com/numeval/numeval/pkg/expr"
	"github.com/numeval/numeval/pkg/quad"
)

func newTestEngine(t *testing.T) (*Engine, *evalf.Evaluator) {
	t.Helper()
	ev := evalf.New(zerolog.Nop(), nil, nil)
	eng := New(ev, zerolog.Nop(), nil)
	eng.SetQuadEngine(quad.New(ev, zerolog.Nop(), nil))
	ev.SetSeriesEngine(eng)
	return eng, ev
}

func sumTask(term expr.Expr, index string, lo, hi expr.Expr) evalf.SeriesTask {
	return evalf.SeriesTask{Term: term, Index: index, Lo: lo, Hi: hi}
}

func TestFiniteIntegerSumIsExact(t *testing.T) {
	eng, _ := newTestEngine(t)
	k := expr.Symbol{Name: "k"}

	val, status, err := eng.Sum(context.Background(),
		sumTask(k, "k", expr.NewInt(1), expr.NewInt(10)), 64)
	require.NoError(t, err)
	require.Equal(t, evalf.StatusOK, status)
	require.True(t, val.Re.Exact())
	require.Equal(t, 0, val.Re.Center().Cmp(big.NewFloat(55)))
}

func TestEmptyRangeRejected(t *testing.T) {
	eng, _ := newTestEngine(t)
	k := expr.Symbol{Name: "k"}

	_, _, err := eng.Sum(context.Background(),
		sumTask(k, "k", expr.NewInt(5), expr.NewInt(3)), 64)
	require.Error(t, err)
	require.True(t, evalf.IsDomain(err))
}

func TestFactorialSeriesByBinarySplitting(t *testing.T) {
	eng, _ := newTestEngine(t)
	k := expr.Symbol{Name: "k"}

	// sum 1/k! for k >= 0 is e. The ratio 1/(k+1) is rational in k, so
	// the binary-splitting path applies and needs only a single direct
	// term evaluation for t(0).
	term := expr.NewPow(expr.NewFunc(expr.FuncFactorial, k), expr.NewInt(-1))
	val, status, err := eng.Sum(context.Background(),
		sumTask(term, "k", expr.NewInt(0), expr.Infinity{}), 200)
	require.NoError(t, err)
	require.Equal(t, evalf.StatusOK, status)
	require.EqualValues(t, 1, eng.TermEvaluations())

	e, err := ball.Constant("e", 260)
	require.NoError(t, err)
	require.True(t, val.Re.Sub(e).ContainsZero())
	require.GreaterOrEqual(t, val.Re.AccurateBits(), uint(190))
}

func TestGeometricSeries(t *testing.T) {
	eng, _ := newTestEngine(t)
	k := expr.Symbol{Name: "k"}

	term := expr.NewPow(expr.NewRat(1, 2), k)
	val, _, err := eng.Sum(context.Background(),
		sumTask(term, "k", expr.NewInt(0), expr.Infinity{}), 110)
	require.NoError(t, err)

	two := ball.FromInt64(2, 160)
	require.True(t, val.Re.Sub(two).ContainsZero())
	require.GreaterOrEqual(t, val.Re.AccurateBits(), uint(110))
}

func TestBaselProblemViaEulerMaclaurin(t *testing.T) {
	eng, _ := newTestEngine(t)
	k := expr.Symbol{Name: "k"}

	// sum 1/k**2 = pi**2/6. The term ratio tends to 1, so binary
	// splitting refuses it and the tail past the direct budget goes
	// through the Euler-Maclaurin estimate, far below one evaluation
	// per term of the range.
	term := expr.NewPow(k, expr.NewInt(-2))
	val, status, err := eng.Sum(context.Background(),
		sumTask(term, "k", expr.NewInt(1), expr.Infinity{}), 110)
	require.NoError(t, err)
	require.Equal(t, evalf.StatusOK, status)
	require.Less(t, eng.TermEvaluations(), uint64(100_000))

	pi, err := ball.Constant("pi", 200)
	require.NoError(t, err)
	expected := pi.Mul(pi).Mul(ball.FromRat(big.NewRat(1, 6), 200))
	require.True(t, val.Re.Sub(expected).ContainsZero())
	require.GreaterOrEqual(t, val.Re.AccurateBits(), uint(105))
}

func TestAlternatingHarmonicSeries(t *testing.T) {
	eng, _ := newTestEngine(t)
	k := expr.Symbol{Name: "k"}

	// sum (-1)**k/(k+1) = log 2, too slow for direct summation and not
	// accepted by binary splitting; the averaging acceleration handles
	// it.
	term := expr.NewMul(
		expr.NewPow(expr.NewInt(-1), k),
		expr.NewPow(expr.NewAdd(k, expr.NewInt(1)), expr.NewInt(-1)))
	val, _, err := eng.Sum(context.Background(),
		sumTask(term, "k", expr.NewInt(0), expr.Infinity{}), 70)
	require.NoError(t, err)

	ln2, err := ball.Constant("ln2", 160)
	require.NoError(t, err)
	require.True(t, val.Re.Sub(ln2).ContainsZero())
	require.GreaterOrEqual(t, val.Re.AccurateBits(), uint(60))
}

func TestSumThroughDriver(t *testing.T) {
	eng, ev := newTestEngine(t)
	_ = eng
	k := expr.Symbol{Name: "k"}

	// N() on a Sum node routes through the registered engine.
	term := expr.NewPow(expr.NewFunc(expr.FuncFactorial, k), expr.NewInt(-1))
	node := expr.NewSum(term, k, expr.NewInt(0), expr.Infinity{})
	res, err := ev.N(context.Background(), node, 40, evalf.Options{})
	require.NoError(t, err)
	require.Equal(t, evalf.StatusOK, res.Status)
	require.True(t, strings.HasPrefix(res.Value.Text(40), "2.718281828459045235360287471352"[:25]))
}

func TestRatioExtraction(t *testing.T) {
	k := expr.Symbol{Name: "k"}

	cases := []struct {
		name string
		term expr.Expr
		ok   bool
	}{
		{"index", k, true},
		{"inverse_factorial", expr.NewPow(expr.NewFunc(expr.FuncFactorial, k), expr.NewInt(-1)), true},
		{"geometric", expr.NewPow(expr.NewRat(1, 3), k), true},
		{"polynomial", expr.NewMul(k, expr.NewAdd(k, expr.NewInt(1))), true},
		{"transcendental_base", expr.NewPow(expr.Constant{Name: expr.ConstE}, k), false},
		{"function_of_index", expr.NewFunc(expr.FuncSin, k), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, ok := extractRatio(tc.term, "k")
			require.Equal(t, tc.ok, ok)
		})
	}
}

func TestBernoulliNumbers(t *testing.T) {
	require.Equal(t, 0, bernoulli(2).Cmp(big.NewRat(1, 6)))
	require.Equal(t, 0, bernoulli(4).Cmp(big.NewRat(-1, 30)))
	require.Equal(t, 0, bernoulli(6).Cmp(big.NewRat(1, 42)))
	require.Equal(t, 0, bernoulli(12).Cmp(big.NewRat(-691, 2730)))
	require.Equal(t, 0, bernoulli(3).Sign())
}
