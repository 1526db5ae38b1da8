package recognize

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
)

func newTestEngine() (*Engine, *evalf.Evaluator) {
	ev := evalf.New(zerolog.Nop(), nil, nil)
	return New(ev, zerolog.Nop()), ev
}

func piCandidate() Candidate {
	return Candidate{Name: "pi", Expr: expr.Constant{Name: expr.ConstPi}}
}

func TestDecimalLiteralRecoversRational(t *testing.T) {
	eng, _ := newTestEngine()

	// 0.1 is not a binary rational; the input is the usual rounded
	// 128-bit approximation and the continued fraction still lands on
	// 1/10 with no candidates offered.
	f, _, err := big.ParseFloat("0.1", 10, 128, big.ToNearestEven)
	require.NoError(t, err)
	v := ball.FromFloat(f)

	got, err := eng.Recognize(context.Background(), v, nil, 100)
	require.NoError(t, err)
	require.NotNil(t, got)

	r, ok := got.(expr.Rational)
	require.True(t, ok, "expected a rational literal, got %T", got)
	require.Equal(t, 0, r.Value.Cmp(big.NewRat(1, 10)))
}

func TestTwoPiFromPiCandidate(t *testing.T) {
	eng, ev := newTestEngine()

	pi, err := ball.Constant("pi", 200)
	require.NoError(t, err)
	v := pi.Mul(ball.FromInt64(2, 200))

	got, err := eng.Recognize(context.Background(), v, []Candidate{piCandidate()}, 120)
	require.NoError(t, err)
	require.NotNil(t, got)

	res, err := ev.N(context.Background(), got, 30, evalf.Options{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.Value.Text(30), "6.2831853071795864769"))
}

func TestUnrelatedIrrationalReturnsNone(t *testing.T) {
	eng, _ := newTestEngine()

	// The cube root of two satisfies no short linear relation with pi,
	// and neither does its square.
	two := ball.FromInt64(2, 220)
	v, err := two.Pow(ball.FromRat(big.NewRat(1, 3), 220))
	require.NoError(t, err)

	got, err := eng.Recognize(context.Background(), v, []Candidate{piCandidate()}, 160)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestZeroEnclosure(t *testing.T) {
	eng, _ := newTestEngine()

	pi, err := ball.Constant("pi", 150)
	require.NoError(t, err)
	v := pi.Sub(pi)

	got, err := eng.Recognize(context.Background(), v, nil, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	n, ok := got.(expr.Integer)
	require.True(t, ok)
	require.Equal(t, 0, n.Value.Sign())

	// An exact zero is the tightest enclosure of all.
	got, err = eng.Recognize(context.Background(), ball.Zero(64), nil, 0)
	require.NoError(t, err)
	n, ok = got.(expr.Integer)
	require.True(t, ok, "got %T", got)
	require.Equal(t, 0, n.Value.Sign())
}

func TestWideZeroEnclosureRefused(t *testing.T) {
	eng, _ := newTestEngine()

	// A quarter-wide ball around zero could hide many small constants.
	v := ball.FromParts(new(big.Float).SetPrec(64), big.NewFloat(0.25))
	got, err := eng.Recognize(context.Background(), v, nil, 0)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestSqrtOfRationalRecognized(t *testing.T) {
	eng, ev := newTestEngine()

	three := ball.FromInt64(3, 200)
	v, err := three.Sqrt()
	require.NoError(t, err)

	got, err := eng.Recognize(context.Background(), v, nil, 120)
	require.NoError(t, err)
	require.NotNil(t, got)

	res, err := ev.N(context.Background(), got, 25, evalf.Options{})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(res.Value.Text(25), "1.73205080756887729"))
}

func TestFuzzyInputRefused(t *testing.T) {
	eng, _ := newTestEngine()

	// Ten accurate bits certify nothing worth matching.
	coarse := ball.FromParts(
		new(big.Float).SetPrec(64).SetRat(big.NewRat(1, 2)),
		new(big.Float).SetMantExp(big.NewFloat(1), -10))

	got, err := eng.Recognize(context.Background(), coarse, nil, 0)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestPSLQRelation(t *testing.T) {
	wp := uint(256)
	sqrt2 := new(big.Float).SetPrec(wp).Sqrt(new(big.Float).SetPrec(wp).SetInt64(2))
	x0 := new(big.Float).SetPrec(wp).Add(new(big.Float).SetPrec(wp).SetInt64(1), sqrt2)
	basis := []*big.Float{x0, new(big.Float).SetPrec(wp).SetInt64(1), sqrt2}

	rel := pslq(basis, 200, maxRelationCoeff, 400)
	require.NotNil(t, rel)

	// The relation annihilates the basis.
	acc := new(big.Float).SetPrec(wp)
	for i, c := range rel {
		term := new(big.Float).SetPrec(wp).Mul(new(big.Float).SetPrec(wp).SetInt(c), basis[i])
		acc.Add(acc, term)
	}
	acc.Abs(acc)
	require.Less(t, acc.Cmp(new(big.Float).SetMantExp(big.NewFloat(1), -120)), 0)
	require.NotEqual(t, 0, rel[0].Sign())
}
