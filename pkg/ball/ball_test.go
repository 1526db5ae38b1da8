package ball

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func parseFloat(t *testing.T, s string, prec uint) *big.Float {
	t.Helper()
	f, _, err := big.ParseFloat(s, 10, prec, big.ToNearestEven)
	require.NoError(t, err)
	return f
}

// closeTo asserts |got-want| < 2^-bits relative to want.
func closeTo(t *testing.T, got, want *big.Float, bits int) {
	t.Helper()
	diff := new(big.Float).SetPrec(got.Prec()).Sub(got, want)
	if diff.Sign() == 0 {
		return
	}
	scale := want.MantExp(nil)
	require.Less(t, diff.MantExp(nil), scale-bits,
		"difference too large: got %s want %s", got.Text('g', 30), want.Text('g', 30))
}

func TestFromRatExact(t *testing.T) {
	tests := []struct {
		name  string
		num   int64
		den   int64
		exact bool
	}{
		{name: "half is exact in binary", num: 1, den: 2, exact: true},
		{name: "three quarters is exact", num: 3, den: 4, exact: true},
		{name: "one tenth rounds", num: 1, den: 10, exact: false},
		{name: "one third rounds", num: 1, den: 3, exact: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := FromRat(big.NewRat(tt.num, tt.den), 64)
			require.Equal(t, tt.exact, v.Exact())
			if !tt.exact {
				require.Positive(t, v.Radius().Sign())
			}
		})
	}
}

func TestExactArithmeticStaysExact(t *testing.T) {
	a := FromRat(big.NewRat(1, 2), 64)
	b := FromRat(big.NewRat(1, 4), 64)
	sum := a.Add(b)
	require.True(t, sum.Exact())
	require.Equal(t, 0, sum.Center().Cmp(big.NewFloat(0.75)))

	prod := a.Mul(b)
	require.True(t, prod.Exact())
	require.Equal(t, 0, prod.Center().Cmp(big.NewFloat(0.125)))
}

func TestInexactArithmeticCarriesRadius(t *testing.T) {
	a := FromRat(big.NewRat(1, 10), 64)
	b := FromRat(big.NewRat(1, 3), 64)
	sum := a.Add(b)
	require.False(t, sum.Exact())
	// Still certifies nearly the full working precision.
	require.Greater(t, sum.AccurateBits(), uint(55))
}

func TestCancelledBits(t *testing.T) {
	prec := uint(128)
	one := FromInt64(1, prec)
	aPlus := FromRat(new(big.Rat).SetFrac(
		new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 20), big.NewInt(1)),
		new(big.Int).Lsh(big.NewInt(1), 20)), prec) // 1 + 2^-20
	diff := aPlus.Sub(one)
	lost := CancelledBits(aPlus, one, diff)
	require.Equal(t, uint(20), lost)
}

func TestDivisionByBallContainingZero(t *testing.T) {
	a := FromInt64(1, 64)
	tiny := FromParts(big.NewFloat(1e-30), big.NewFloat(1e-29))
	_, err := a.Div(tiny)
	require.Error(t, err)
	var de *DomainError
	require.ErrorAs(t, err, &de)
}

func TestConstants50Digits(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "pi", want: "3.141592653589793238462643383279502884197169399375105820974944"},
		{name: "e", want: "2.718281828459045235360287471352662497757247093699959574966967"},
		{name: "ln2", want: "0.693147180559945309417232121458176568075500134360255254120680"},
		{name: "euler_gamma", want: "0.577215664901532860606512090082402431042159335939923598805767"},
		{name: "catalan", want: "0.915965594177219015054603514932384110774149374281672134266498"},
		{name: "golden_ratio", want: "1.618033988749894848204586834365638117720309179805762862135448"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := Constant(tt.name, 200)
			require.NoError(t, err)
			want := parseFloat(t, tt.want, 200)
			closeTo(t, v.Center(), want, 160)
			require.Greater(t, v.AccurateBits(), uint(190))
		})
	}
}

func TestUnknownConstant(t *testing.T) {
	_, err := Constant("feigenbaum", 64)
	require.Error(t, err)
}

func TestExpLogRoundTrip(t *testing.T) {
	for _, num := range []int64{1, 3, 7, 22} {
		x := FromRat(big.NewRat(num, 5), 200)
		lx, err := x.Log()
		require.NoError(t, err)
		back := lx.Exp()
		closeTo(t, back.Center(), x.Center(), 160)
	}
}

func TestExpRadiusCoversTinyInputRadius(t *testing.T) {
	// d(e^x)/dx = e^x at x = 1, so an input radius of 2^-80 must grow to
	// at least e * 2^-80 in the output, regardless of working precision.
	center := new(big.Float).SetPrec(300).SetInt64(1)
	rad := new(big.Float).SetMantExp(big.NewFloat(1), -80)
	out := FromParts(center, rad).Exp()

	require.GreaterOrEqual(t, out.Radius().Cmp(rad), 0)
	require.LessOrEqual(t, out.AccurateBits(), uint(82))
}

func TestExpRadiusCoversWideInputRadius(t *testing.T) {
	// The ball [-1, 3] maps into [e^-1, e^3]; from center e^1 the radius
	// must reach e^3 - e^1 = 17.36...
	center := new(big.Float).SetPrec(128).SetInt64(1)
	out := FromParts(center, big.NewFloat(2)).Exp()

	require.GreaterOrEqual(t, out.Radius().Cmp(big.NewFloat(17.36)), 0)
}

func TestSinCosPythagorean(t *testing.T) {
	x := FromRat(big.NewRat(7, 3), 200)
	s := x.Sin()
	c := x.Cos()
	unit := s.Mul(s).Add(c.Mul(c))
	closeTo(t, unit.Center(), big.NewFloat(1), 160)
}

func TestAtanOne(t *testing.T) {
	x := FromInt64(1, 200)
	quarter := x.Atan()
	pi4 := new(big.Float).SetPrec(220).Quo(piFloat(220), big.NewFloat(4))
	closeTo(t, quarter.Center(), pi4, 160)
}

func TestSinLargeArgumentReduction(t *testing.T) {
	// sin(10^6) needs ~20 extra bits for argument reduction.
	x := FromInt64(1_000_000, 200)
	s := x.Sin()
	// sin(10^6) = -0.34999350217...
	want := parseFloat(t, "-0.3499935021712929521", 80)
	closeTo(t, s.Center(), want, 55)
}

func TestPowIntNegative(t *testing.T) {
	x := FromInt64(2, 64)
	inv, err := x.PowInt(big.NewInt(-3))
	require.NoError(t, err)
	require.Equal(t, 0, inv.Center().Cmp(big.NewFloat(0.125)))
}

func TestSqrtOfExactSquare(t *testing.T) {
	x := FromInt64(9, 64)
	r, err := x.Sqrt()
	require.NoError(t, err)
	require.Equal(t, 0, r.Center().Cmp(big.NewFloat(3)))
}

func TestSqrtNegativeRejected(t *testing.T) {
	x := FromInt64(-2, 64)
	_, err := x.Sqrt()
	require.Error(t, err)
}

func TestTextClipsToCertifiedDigits(t *testing.T) {
	// A ball with only ~10 certified bits must not print 20 digits.
	c := big.NewFloat(1.2345678901234567)
	r := big.NewFloat(1e-3)
	v := FromParts(c, r)
	s := v.Text(20)
	require.LessOrEqual(t, len(s), 10)
}

func TestContainsZeroAndChopCandidate(t *testing.T) {
	small := FromParts(big.NewFloat(1e-40), big.NewFloat(1e-35))
	require.True(t, small.ContainsZero())

	solid := FromParts(big.NewFloat(0.5), big.NewFloat(1e-20))
	require.False(t, solid.ContainsZero())
}

func TestComplexMulAndAccuracy(t *testing.T) {
	z := Complex{Re: FromInt64(1, 64), Im: FromInt64(2, 64)}
	w := Complex{Re: FromInt64(3, 64), Im: FromInt64(-1, 64)}
	p := z.Mul(w)
	// (1+2i)(3-i) = 5+5i
	require.Equal(t, 0, p.Re.Center().Cmp(big.NewFloat(5)))
	require.Equal(t, 0, p.Im.Center().Cmp(big.NewFloat(5)))
}
