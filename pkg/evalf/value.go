package evalf

import (
	"math/big"

	"github.com/numeval/numeval/pkg/ball"
)

func realValue(r ball.Real) Value { return Value{Re: r} }

func complexValue(z ball.Complex) Value {
	if z.IsReal() {
		return Value{Re: z.Re}
	}
	im := z.Im
	return Value{Re: z.Re, Im: &im}
}

func (v Value) complex() ball.Complex {
	if v.Im == nil {
		return ball.FromReal(v.Re)
	}
	return ball.Complex{Re: v.Re, Im: *v.Im}
}

func vAdd(a, b Value) Value {
	if a.Im == nil && b.Im == nil {
		return realValue(a.Re.Add(b.Re))
	}
	return complexValue(a.complex().Add(b.complex()))
}

func vMul(a, b Value) Value {
	if a.Im == nil && b.Im == nil {
		return realValue(a.Re.Mul(b.Re))
	}
	return complexValue(a.complex().Mul(b.complex()))
}

func vNeg(a Value) Value {
	if a.Im == nil {
		return realValue(a.Re.Neg())
	}
	return complexValue(a.complex().Neg())
}

func vDiv(a, b Value) (Value, error) {
	if a.Im == nil && b.Im == nil {
		q, err := a.Re.Div(b.Re)
		if err != nil {
			return Value{}, NewDomainError("division by a value indistinguishable from zero", err)
		}
		return realValue(q), nil
	}
	q, err := a.complex().Div(b.complex())
	if err != nil {
		return Value{}, NewDomainError("division by a value indistinguishable from zero", err)
	}
	return complexValue(q), nil
}

// vPowInt raises a value to an exact integer power by binary
// exponentiation on balls.
func vPowInt(a Value, n *big.Int) (Value, error) {
	if a.Im == nil {
		out, err := a.Re.PowInt(n)
		if err != nil {
			return Value{}, NewDomainError("integer power of a value indistinguishable from zero", err)
		}
		return realValue(out), nil
	}
	if n.Sign() == 0 {
		return realValue(ball.One(a.Re.Prec())), nil
	}
	abs := new(big.Int).Abs(n)
	z := a.complex()
	out := ball.FromReal(ball.One(a.Re.Prec()))
	for i := abs.BitLen() - 1; i >= 0; i-- {
		out = out.Mul(out)
		if abs.Bit(i) == 1 {
			out = out.Mul(z)
		}
	}
	if n.Sign() < 0 {
		inv, err := ball.FromReal(ball.One(a.Re.Prec())).Div(out)
		if err != nil {
			return Value{}, NewDomainError("integer power of a value indistinguishable from zero", err)
		}
		return complexValue(inv), nil
	}
	return complexValue(out), nil
}

// exactInteger extracts an exact integer from a value, when it is one.
func exactInteger(v Value) (*big.Int, bool) {
	if v.Im != nil || !v.Re.Exact() {
		return nil, false
	}
	n, acc := v.Re.Center().Int(nil)
	if acc != big.Exact {
		return nil, false
	}
	return n, true
}

// chop zeroes each component whose magnitude is below its own error
// radius, independently for the real and imaginary parts.
func chop(v Value) Value {
	prec := v.Re.Prec()
	re := v.Re
	if re.ContainsZero() && !re.Exact() {
		re = ball.Zero(prec)
	}
	if v.Im == nil {
		return Value{Re: re}
	}
	im := *v.Im
	if im.ContainsZero() && !im.Exact() {
		im = ball.Zero(prec)
	}
	if im.IsZero() && im.Exact() {
		return Value{Re: re}
	}
	return Value{Re: re, Im: &im}
}
