package expr

import "math/big"

// NewInt builds an exact integer literal.
func NewInt(v int64) Integer { return Integer{Value: big.NewInt(v)} }

// NewBigInt builds an integer literal from a big.Int. The value is copied.
func NewBigInt(v *big.Int) Integer { return Integer{Value: new(big.Int).Set(v)} }

// NewRat builds an exact rational literal p/q. Integer results collapse to
// Integer nodes so that 4/2 and 2 hash identically.
func NewRat(p, q int64) Expr {
	return NewBigRat(new(big.Rat).SetFrac64(p, q))
}

// NewBigRat builds a rational literal from a big.Rat. The value is copied
// and integer values collapse to Integer nodes.
func NewBigRat(v *big.Rat) Expr {
	if v.IsInt() {
		return Integer{Value: new(big.Int).Set(v.Num())}
	}
	return Rational{Value: new(big.Rat).Set(v)}
}

// NewAdd builds a sum. Nested sums are flattened and exact literals folded;
// a sum that collapses to a single term returns that term.
func NewAdd(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	acc := new(big.Rat)
	hasNum := false
	for _, t := range terms {
		switch v := t.(type) {
		case Add:
			for _, inner := range v.Terms {
				flat, acc, hasNum = addTerm(flat, acc, hasNum, inner)
			}
		default:
			flat, acc, hasNum = addTerm(flat, acc, hasNum, t)
		}
	}
	if hasNum && acc.Sign() != 0 {
		flat = append(flat, NewBigRat(acc))
	}
	switch len(flat) {
	case 0:
		return NewInt(0)
	case 1:
		return flat[0]
	}
	return Add{Terms: flat}
}

func addTerm(flat []Expr, acc *big.Rat, hasNum bool, t Expr) ([]Expr, *big.Rat, bool) {
	switch v := t.(type) {
	case Integer:
		acc.Add(acc, new(big.Rat).SetInt(v.Value))
		return flat, acc, true
	case Rational:
		acc.Add(acc, v.Value)
		return flat, acc, true
	}
	return append(flat, t), acc, hasNum
}

// NewMul builds a product. Nested products are flattened and exact literals
// folded; a zero literal annihilates the whole product.
func NewMul(factors ...Expr) Expr {
	flat := make([]Expr, 0, len(factors))
	coeff := new(big.Rat).SetInt64(1)
	hasNum := false
	for _, f := range factors {
		switch v := f.(type) {
		case Mul:
			for _, inner := range v.Factors {
				flat, coeff, hasNum = mulFactor(flat, coeff, hasNum, inner)
			}
		default:
			flat, coeff, hasNum = mulFactor(flat, coeff, hasNum, f)
		}
	}
	if coeff.Sign() == 0 {
		return NewInt(0)
	}
	one := coeff.Cmp(new(big.Rat).SetInt64(1)) == 0
	if hasNum && !one {
		flat = append([]Expr{NewBigRat(coeff)}, flat...)
	}
	switch len(flat) {
	case 0:
		return NewInt(1)
	case 1:
		return flat[0]
	}
	return Mul{Factors: flat}
}

func mulFactor(flat []Expr, coeff *big.Rat, hasNum bool, f Expr) ([]Expr, *big.Rat, bool) {
	switch v := f.(type) {
	case Integer:
		coeff.Mul(coeff, new(big.Rat).SetInt(v.Value))
		return flat, coeff, true
	case Rational:
		coeff.Mul(coeff, v.Value)
		return flat, coeff, true
	}
	return append(flat, f), coeff, hasNum
}

// NewPow builds base**exponent with trivial exponents folded.
func NewPow(base, exponent Expr) Expr {
	if n, ok := exponent.(Integer); ok {
		if n.Value.Sign() == 0 {
			return NewInt(1)
		}
		if n.Value.Cmp(big.NewInt(1)) == 0 {
			return base
		}
	}
	return Pow{Base: base, Exponent: exponent}
}

// NewDiv builds num/den as num * den**-1.
func NewDiv(num, den Expr) Expr {
	return NewMul(num, NewPow(den, NewInt(-1)))
}

// NewNeg builds -e.
func NewNeg(e Expr) Expr { return NewMul(NewInt(-1), e) }

// NewFunc builds a named function application.
func NewFunc(name FuncName, arg Expr) Func { return Func{Name: name, Arg: arg} }

// NewSum builds a summation task node.
func NewSum(term Expr, index Symbol, lo, hi Expr) Sum {
	return Sum{Term: term, Index: index, Lo: lo, Hi: hi}
}

// NewIntegral builds a definite integral node.
func NewIntegral(body Expr, v Symbol, lo, hi Expr) Integral {
	return Integral{Body: body, Var: v, Lo: lo, Hi: hi}
}

// Substitute returns a copy of e with every free occurrence of the named
// symbol replaced by value. Bound occurrences inside Sum and Integral scopes
// shadowing the name are left alone.
func Substitute(e Expr, name string, value Expr) Expr {
	switch v := e.(type) {
	case Symbol:
		if v.Name == name {
			return value
		}
		return v
	case Add:
		terms := make([]Expr, len(v.Terms))
		for i, t := range v.Terms {
			terms[i] = Substitute(t, name, value)
		}
		return NewAdd(terms...)
	case Mul:
		factors := make([]Expr, len(v.Factors))
		for i, f := range v.Factors {
			factors[i] = Substitute(f, name, value)
		}
		return NewMul(factors...)
	case Pow:
		return NewPow(Substitute(v.Base, name, value), Substitute(v.Exponent, name, value))
	case Func:
		return Func{Name: v.Name, Arg: Substitute(v.Arg, name, value)}
	case Sum:
		if v.Index.Name == name {
			return Sum{Term: v.Term, Index: v.Index,
				Lo: Substitute(v.Lo, name, value), Hi: Substitute(v.Hi, name, value)}
		}
		return Sum{Term: Substitute(v.Term, name, value), Index: v.Index,
			Lo: Substitute(v.Lo, name, value), Hi: Substitute(v.Hi, name, value)}
	case Integral:
		if v.Var.Name == name {
			return Integral{Body: v.Body, Var: v.Var,
				Lo: Substitute(v.Lo, name, value), Hi: Substitute(v.Hi, name, value)}
		}
		return Integral{Body: Substitute(v.Body, name, value), Var: v.Var,
			Lo: Substitute(v.Lo, name, value), Hi: Substitute(v.Hi, name, value)}
	}
	return e
}
