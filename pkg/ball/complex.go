package ball

// Complex is a tracked complex value: a pair of real balls, each carrying
// its own radius.
type Complex struct {
	Re Real
	Im Real
}

// FromReal lifts a real ball into a complex one with an exact zero
// imaginary part.
func FromReal(re Real) Complex {
	return Complex{Re: re, Im: Zero(re.Prec())}
}

// IsReal reports whether the imaginary part is certainly zero.
func (z Complex) IsReal() bool {
	return z.Im.IsZero() && z.Im.Exact()
}

// Add returns z+w component-wise.
func (z Complex) Add(w Complex) Complex {
	return Complex{Re: z.Re.Add(w.Re), Im: z.Im.Add(w.Im)}
}

// Sub returns z-w component-wise.
func (z Complex) Sub(w Complex) Complex {
	return Complex{Re: z.Re.Sub(w.Re), Im: z.Im.Sub(w.Im)}
}

// Neg returns -z.
func (z Complex) Neg() Complex {
	return Complex{Re: z.Re.Neg(), Im: z.Im.Neg()}
}

// Conj returns the complex conjugate.
func (z Complex) Conj() Complex {
	return Complex{Re: z.Re, Im: z.Im.Neg()}
}

// Mul returns z*w with the four real products propagating their own radii.
func (z Complex) Mul(w Complex) Complex {
	re := z.Re.Mul(w.Re).Sub(z.Im.Mul(w.Im))
	im := z.Re.Mul(w.Im).Add(z.Im.Mul(w.Re))
	return Complex{Re: re, Im: im}
}

// Div returns z/w via the conjugate; the squared magnitude of w must
// exclude zero.
func (z Complex) Div(w Complex) (Complex, error) {
	norm := w.Re.Mul(w.Re).Add(w.Im.Mul(w.Im))
	num := z.Mul(w.Conj())
	re, err := num.Re.Div(norm)
	if err != nil {
		return Complex{}, err
	}
	im, err := num.Im.Div(norm)
	if err != nil {
		return Complex{}, err
	}
	return Complex{Re: re, Im: im}, nil
}

// AbsSq returns |z|^2 as a real ball.
func (z Complex) AbsSq() Real {
	return z.Re.Mul(z.Re).Add(z.Im.Mul(z.Im))
}

// AccurateBits reports the weaker of the two components' certified bits.
// An exact zero component does not drag the figure down.
func (z Complex) AccurateBits() uint {
	if z.IsReal() {
		return z.Re.AccurateBits()
	}
	if z.Re.IsZero() && z.Re.Exact() {
		return z.Im.AccurateBits()
	}
	re, im := z.Re.AccurateBits(), z.Im.AccurateBits()
	if re < im {
		return re
	}
	return im
}
