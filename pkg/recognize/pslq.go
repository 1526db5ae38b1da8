package recognize

import "math/big"

// pslq searches for a small integer relation m with m[0]*x[0] + ... +
// m[n-1]*x[n-1] numerically zero, using the PSLQ lattice algorithm. The
// search is bounded: it gives up once any intermediate coefficient
// outgrows maxCoeff or after maxSteps iterations, which guarantees
// termination with nil rather than a forced guess.
//
// The inputs must be nonzero and are worked on at prec bits; the
// detection tolerance is a few digits short of prec, leaving the final
// say to the caller's numeric verification.
func pslq(x []*big.Float, prec uint, maxCoeff *big.Int, maxSteps int) []*big.Int {
	n := len(x)
	if n < 2 {
		return nil
	}
	wp := prec + 32
	tol := newF(wp).SetMantExp(big.NewFloat(1), -int(3*prec/4))

	one := newF(wp).SetInt64(1)

	// Normalize by the largest magnitude.
	scale := newF(wp)
	for _, v := range x {
		if a := newF(wp).Abs(v); a.Cmp(scale) > 0 {
			scale.Set(a)
		}
	}
	if scale.Sign() == 0 {
		return nil
	}
	y := make([]*big.Float, n)
	for i, v := range x {
		y[i] = newF(wp).Quo(v, scale)
	}

	// Partial norms s_k = sqrt(sum_{j>=k} y_j^2).
	s := make([]*big.Float, n)
	acc := newF(wp)
	for k := n - 1; k >= 0; k-- {
		t := newF(wp).Mul(y[k], y[k])
		acc.Add(acc, t)
		s[k] = newF(wp).Sqrt(acc)
	}
	t0 := newF(wp).Set(s[0])
	for i := range y {
		y[i].Quo(y[i], t0)
	}
	for i := range s {
		s[i].Quo(s[i], t0)
	}

	// H is the n x (n-1) lower trapezoidal starting matrix.
	h := make([][]*big.Float, n)
	for i := range h {
		h[i] = make([]*big.Float, n-1)
		for j := range h[i] {
			h[i][j] = newF(wp)
		}
	}
	for j := 0; j < n-1; j++ {
		h[j][j].Quo(s[j+1], s[j])
		for i := j + 1; i < n; i++ {
			num := newF(wp).Mul(y[i], y[j])
			num.Neg(num)
			den := newF(wp).Mul(s[j], s[j+1])
			h[i][j].Quo(num, den)
		}
	}

	a := identity(n)
	b := identity(n)

	// Initial full size reduction.
	for i := 1; i < n; i++ {
		for j := i - 1; j >= 0; j-- {
			if h[j][j].Sign() == 0 {
				continue
			}
			t := roundQuotient(h[i][j], h[j][j], wp)
			if t.Sign() == 0 {
				continue
			}
			reduceRow(y, h, a, b, i, j, t, wp)
		}
	}

	// gamma^k weights with gamma = 2/sqrt(3).
	gamma := newF(wp).Quo(newF(wp).SetInt64(2), newF(wp).Sqrt(newF(wp).SetInt64(3)))

	for step := 0; step < maxSteps; step++ {
		// Pick the row maximizing gamma^(i+1) * |H[i][i]|.
		m := 0
		best := newF(wp)
		weight := newF(wp).Set(gamma)
		for i := 0; i < n-1; i++ {
			v := newF(wp).Abs(h[i][i])
			v.Mul(v, weight)
			if v.Cmp(best) > 0 {
				best.Set(v)
				m = i
			}
			weight.Mul(weight, gamma)
		}

		y[m], y[m+1] = y[m+1], y[m]
		h[m], h[m+1] = h[m+1], h[m]
		a[m], a[m+1] = a[m+1], a[m]
		for i := 0; i < n; i++ {
			b[i][m], b[i][m+1] = b[i][m+1], b[i][m]
		}

		// Restore the trapezoidal shape with a Givens rotation.
		if m < n-2 {
			t00, t01 := newF(wp).Set(h[m][m]), newF(wp).Set(h[m][m+1])
			norm := newF(wp).Mul(t00, t00)
			norm.Add(norm, newF(wp).Mul(t01, t01))
			norm.Sqrt(norm)
			if norm.Sign() == 0 {
				return nil
			}
			c := newF(wp).Quo(t00, norm)
			sn := newF(wp).Quo(t01, norm)
			for i := m; i < n; i++ {
				hm := newF(wp).Set(h[i][m])
				hm1 := newF(wp).Set(h[i][m+1])
				h[i][m].Add(newF(wp).Mul(c, hm), newF(wp).Mul(sn, hm1))
				h[i][m+1].Sub(newF(wp).Mul(c, hm1), newF(wp).Mul(sn, hm))
			}
		}

		// Size-reduce the rows below the swap point.
		for i := m + 1; i < n; i++ {
			for j := min(i-1, m+1); j >= 0; j-- {
				if h[j][j].Sign() == 0 {
					continue
				}
				t := roundQuotient(h[i][j], h[j][j], wp)
				if t.Sign() == 0 {
					continue
				}
				reduceRow(y, h, a, b, i, j, t, wp)
			}
		}

		// A vanishing y component flags a relation: the matching column
		// of B holds the coefficients.
		for i := 0; i < n; i++ {
			if newF(wp).Abs(y[i]).Cmp(tol) < 0 {
				rel := make([]*big.Int, n)
				nontrivial := false
				for j := 0; j < n; j++ {
					rel[j] = new(big.Int).Set(b[j][i])
					if rel[j].Sign() != 0 {
						nontrivial = true
					}
				}
				if !nontrivial {
					return nil
				}
				return rel
			}
		}

		// Coefficient growth bound.
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				if new(big.Int).Abs(a[i][j]).Cmp(maxCoeff) > 0 {
					return nil
				}
			}
		}

		// Norm bound: 1/max|H[i][i]| underestimates the norm of any
		// remaining relation; past maxCoeff nothing small is left.
		hMax := newF(wp)
		for i := 0; i < n-1; i++ {
			if v := newF(wp).Abs(h[i][i]); v.Cmp(hMax) > 0 {
				hMax.Set(v)
			}
		}
		if hMax.Sign() == 0 {
			return nil
		}
		bound := newF(wp).Quo(one, hMax)
		if bound.Cmp(newF(wp).SetInt(maxCoeff)) > 0 {
			return nil
		}
	}
	return nil
}

func newF(prec uint) *big.Float { return new(big.Float).SetPrec(prec) }

func identity(n int) [][]*big.Int {
	m := make([][]*big.Int, n)
	for i := range m {
		m[i] = make([]*big.Int, n)
		for j := range m[i] {
			m[i][j] = new(big.Int)
		}
		m[i][i].SetInt64(1)
	}
	return m
}

// roundQuotient returns round(p/q) as an integer.
func roundQuotient(p, q *big.Float, wp uint) *big.Int {
	r := newF(wp).Quo(p, q)
	half := newF(wp).SetMantExp(big.NewFloat(1), -1)
	if r.Sign() >= 0 {
		r.Add(r, half)
	} else {
		r.Sub(r, half)
	}
	out, _ := r.Int(nil)
	return out
}

// reduceRow subtracts t times row j from row i across y, H, A and adds to
// the matching B column.
func reduceRow(y []*big.Float, h [][]*big.Float, a, b [][]*big.Int, i, j int, t *big.Int, wp uint) {
	tf := newF(wp).SetInt(t)
	y[j].Add(y[j], newF(wp).Mul(tf, y[i]))
	for k := 0; k <= j; k++ {
		h[i][k].Sub(h[i][k], newF(wp).Mul(tf, h[j][k]))
	}
	n := len(a)
	for k := 0; k < n; k++ {
		a[i][k].Sub(a[i][k], new(big.Int).Mul(t, a[j][k]))
		b[k][j].Add(b[k][j], new(big.Int).Mul(t, b[k][i]))
	}
}
