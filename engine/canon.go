package engine

import (
	"fmt"
	"math/big"
)

// ============================================================
// Rational functions
// ============================================================

// frac is num/den. Fractions returned by the canonizer are normalized:
// reduced, denominator monic (or exactly 1), common monomials cancelled.
type frac struct{ num, den *poly }

func fracPoly(p *poly) *frac        { return &frac{num: p, den: intPoly(1)} }
func fracConst(r *big.Rat) *frac   { return fracPoly(constPoly(r)) }
func fracInt(n int64) *frac        { return fracPoly(intPoly(n)) }
func fracAtom(a *atom) *frac       { return fracPoly(atomPoly(a)) }
func fracRatio(p, q int64) *frac   { return fracConst(big.NewRat(p, q)) }

func (f *frac) isZero() bool { return f.num.isZero() }

func (f *frac) constant() (*big.Rat, bool) {
	n, ok := f.num.constant()
	if !ok {
		return nil, false
	}
	d, ok := f.den.constant()
	if !ok || d.Sign() == 0 {
		return nil, false
	}
	return n.Quo(n, d), true
}

func (f *frac) key() string {
	if f.den.isOne() {
		return f.num.key()
	}
	return f.num.key() + "/" + f.den.key()
}

func sameKey(a, b *frac) bool { return a.key() == b.key() }

func fracAdd(a, b *frac) *frac {
	if a.den.key() == b.den.key() {
		return &frac{num: polyAdd(a.num, b.num), den: a.den}
	}
	return &frac{
		num: polyAdd(polyMul(a.num, b.den), polyMul(b.num, a.den)),
		den: polyMul(a.den, b.den),
	}
}

func fracNeg(a *frac) *frac    { return &frac{num: polyNeg(a.num), den: a.den} }
func fracSub(a, b *frac) *frac { return fracAdd(a, fracNeg(b)) }
func fracMul(a, b *frac) *frac {
	return &frac{num: polyMul(a.num, b.num), den: polyMul(a.den, b.den)}
}

func fracInv(a *frac) (*frac, error) {
	if a.num.isZero() {
		return nil, ErrDivisionByZero
	}
	return &frac{num: a.den, den: a.num}, nil
}

func fracQuo(a, b *frac) (*frac, error) {
	inv, err := fracInv(b)
	if err != nil {
		return nil, err
	}
	return fracMul(a, inv), nil
}

// ============================================================
// Canonizer
// ============================================================

const (
	maxCanonDepth   = 1000
	maxReducePasses = 16
	maxPolyPower    = 64
	maxMonoPower    = 10000
	maxTerms        = 20000
	maxFactorial    = 1000
)

type canonizer struct{ depth int }

func canonicalize(e Expr) (*frac, error) {
	c := &canonizer{}
	return c.canon(e)
}

func (c *canonizer) canon(e Expr) (*frac, error) {
	c.depth++
	defer func() { c.depth-- }()
	if c.depth > maxCanonDepth {
		return nil, ErrTooComplex
	}
	switch v := e.(type) {
	case *Num:
		return fracConst(v.val), nil
	case *Float:
		return fracConst(v.val), nil
	case *Sym:
		return fracAtom(symbolAtom(v)), nil
	case *Const:
		if v.name == "pi" {
			return fracAtom(piAtom()), nil
		}
		return fracAtom(rootAtom(fracInt(-1), 2)), nil
	case *Add:
		acc := fracInt(0)
		for _, t := range v.terms {
			tf, err := c.canon(t)
			if err != nil {
				return nil, err
			}
			if acc, err = c.normalize(fracAdd(acc, tf)); err != nil {
				return nil, err
			}
		}
		return acc, nil
	case *Mul:
		acc := fracInt(1)
		for _, f := range v.factors {
			ff, err := c.canon(f)
			if err != nil {
				return nil, err
			}
			if acc, err = c.normalize(fracMul(acc, ff)); err != nil {
				return nil, err
			}
		}
		return acc, nil
	case *Pow:
		b, err := c.canon(v.base)
		if err != nil {
			return nil, err
		}
		ex, err := c.canon(v.exp)
		if err != nil {
			return nil, err
		}
		return c.pow(b, ex)
	case *Func:
		return c.function(v)
	case *Equation:
		return nil, fmt.Errorf("%w: equation used as a value", ErrUnsupported)
	}
	return nil, fmt.Errorf("%w: %T", ErrUnsupported, e)
}

// normalize reduces f to canonical shape. See frac.
func (c *canonizer) normalize(f *frac) (*frac, error) {
	for pass := 0; pass < maxReducePasses; pass++ {
		n, changedN, err := c.reduce(f.num)
		if err != nil {
			return nil, err
		}
		d, changedD, err := c.reduce(f.den)
		if err != nil {
			return nil, err
		}
		if !changedN && !changedD {
			break
		}
		f = &frac{num: polyMul(n.num, d.den), den: polyMul(n.den, d.num)}
	}
	if f.den.isZero() {
		return nil, ErrDivisionByZero
	}
	if len(f.num.terms) > maxTerms || len(f.den.terms) > maxTerms {
		return nil, ErrTooComplex
	}
	if f.num.isZero() {
		return fracInt(0), nil
	}
	num, den := f.num, f.den
	if g := monoGCD(num.contentMonomial(), den.contentMonomial()); len(g) > 0 {
		num, den = num.divMonomial(g), den.divMonomial(g)
	}
	if q, ok := exactDiv(num, den); ok {
		num, den = q, intPoly(1)
	} else if _, isConst := num.constant(); !isConst {
		if q, ok := exactDiv(den, num); ok {
			num, den = intPoly(1), q
		}
	}
	if d, ok := den.constant(); ok {
		return &frac{num: polyScale(num, new(big.Rat).Inv(d)), den: intPoly(1)}, nil
	}
	lc := new(big.Rat).Inv(den.leading().coef)
	return &frac{num: polyScale(num, lc), den: polyScale(den, lc)}, nil
}

// reduce applies the ring identities cos² = 1 - sin², cosh² = 1 + sinh² and
// root(B,q)^q = B to every term of p.
func (c *canonizer) reduce(p *poly) (*frac, bool, error) {
	changed := false
	acc := fracInt(0)
	for _, t := range p.terms {
		var rest monomial
		part := fracConst(t.coef)
		for _, f := range t.mono {
			rep, ok, err := c.rewriteFactor(f)
			if err != nil {
				return nil, false, err
			}
			if !ok {
				rest = append(rest, f)
				continue
			}
			changed = true
			part = fracMul(part, rep)
		}
		restPoly := newPoly()
		restPoly.addTerm(rest, big.NewRat(1, 1))
		acc = fracAdd(acc, fracMul(part, fracPoly(restPoly)))
	}
	if !changed {
		return fracPoly(p), false, nil
	}
	return acc, true, nil
}

func (c *canonizer) rewriteFactor(f factor) (*frac, bool, error) {
	a := f.a
	switch {
	case a.kind == atomFunction && (a.name == "cos" || a.name == "cosh") && f.exp >= 2 && f.exp <= maxPolyPower:
		partner, sign := "sin", int64(-1)
		if a.name == "cosh" {
			partner, sign = "sinh", 1
		}
		sq := polyPow(atomPoly(functionAtom(partner, a.args...)), 2)
		base := polyAdd(intPoly(1), polyScale(sq, big.NewRat(sign, 1)))
		r := polyPow(base, f.exp/2)
		if f.exp%2 == 1 {
			r = polyMul(r, atomPoly(a))
		}
		return fracPoly(r), true, nil
	case a.kind == atomRoot && f.exp >= a.q:
		r, err := c.powInt(a.args[0], f.exp/a.q)
		if err != nil {
			return nil, false, err
		}
		if rem := f.exp % a.q; rem > 0 {
			r = fracMul(r, fracPoly(powAtomPoly(a, rem)))
		}
		return r, true, nil
	}
	return nil, false, nil
}

func powAtomPoly(a *atom, exp int64) *poly {
	p := newPoly()
	p.addTerm(monomial{{a: a, exp: exp}}, big.NewRat(1, 1))
	return p
}

// ============================================================
// Powers
// ============================================================

func (c *canonizer) pow(b, e *frac) (*frac, error) {
	r, ok := e.constant()
	if !ok {
		return c.symbolicPow(b, e)
	}
	if r.IsInt() {
		n := r.Num()
		if !n.IsInt64() || n.Int64() > maxMonoPower || n.Int64() < -maxMonoPower {
			if bc, ok := b.constant(); ok && (bc.Cmp(ratOne) == 0 || bc.Sign() == 0) && n.Sign() > 0 {
				return b, nil
			}
			return nil, ErrTooComplex
		}
		return c.powInt(b, n.Int64())
	}
	if !r.Num().IsInt64() || !r.Denom().IsInt64() || r.Denom().Int64() > maxMonoPower {
		return c.symbolicPow(b, e)
	}
	return c.radical(b, r.Num().Int64(), r.Denom().Int64())
}

func (c *canonizer) powInt(b *frac, n int64) (*frac, error) {
	if n == 0 {
		return fracInt(1), nil
	}
	if b.isZero() {
		if n < 0 {
			return nil, ErrDivisionByZero
		}
		return fracInt(0), nil
	}
	_, numSingle := b.num.singleTerm()
	_, denSingle := b.den.singleTerm()
	abs := n
	if abs < 0 {
		abs = -abs
	}
	if (!numSingle || !denSingle) && abs > maxPolyPower {
		if n < 0 {
			inv, err := fracInv(fracAtom(powerAtom(b, fracInt(-n))))
			return inv, err
		}
		return fracAtom(powerAtom(b, fracInt(n))), nil
	}
	r := &frac{num: polyPow(b.num, abs), den: polyPow(b.den, abs)}
	if n < 0 {
		inv, err := fracInv(r)
		if err != nil {
			return nil, err
		}
		r = inv
	}
	return c.normalize(r)
}

// monomialParts returns the factors of a single-term fraction with signed
// exponents (denominator factors negative) and its coefficient.
func monomialParts(b *frac) (*big.Rat, []factor, bool) {
	nt, ok := b.num.singleTerm()
	if !ok {
		return nil, nil, false
	}
	dt, ok := b.den.singleTerm()
	if !ok {
		return nil, nil, false
	}
	coef := new(big.Rat).Quo(nt.coef, dt.coef)
	fs := make([]factor, 0, len(nt.mono)+len(dt.mono))
	fs = append(fs, nt.mono...)
	for _, f := range dt.mono {
		fs = append(fs, factor{a: f.a, exp: -f.exp})
	}
	return coef, fs, true
}

func allNonNegative(fs []factor) bool {
	for _, f := range fs {
		if !f.a.nonNegative() {
			return false
		}
	}
	return true
}

// radical returns b^(p/q) for q > 1.
func (c *canonizer) radical(b *frac, p, q int64) (*frac, error) {
	if bc, ok := b.constant(); ok {
		return c.numericRadical(bc, p, q)
	}
	if coef, fs, ok := monomialParts(b); ok && allNonNegative(fs) {
		acc, err := c.numericRadical(coef, p, q)
		if err != nil {
			return nil, err
		}
		for _, f := range fs {
			e := new(big.Rat).SetFrac64(f.exp*p, q)
			var part *frac
			if e.IsInt() {
				part, err = c.powInt(fracAtom(f.a), e.Num().Int64())
			} else {
				part, err = c.powInt(fracAtom(rootAtom(fracAtom(f.a), e.Denom().Int64())), e.Num().Int64())
			}
			if err != nil {
				return nil, err
			}
			acc = fracMul(acc, part)
		}
		return c.normalize(acc)
	}
	if v, ok, err := c.polyRadical(b, p, q); ok || err != nil {
		return v, err
	}
	return c.powInt(fracAtom(rootAtom(b, q)), p)
}

// polyRadical pulls positive rational content and nonnegative perfect q-th
// powers out of the numerator and denominator of b:
//
//	(k * r^q * A / (l * s^q * B))^(1/q) = (k/l)^(1/q) * (r/s) * (A/B)^(1/q)
//
// A positive B is then split off as its own root.
func (c *canonizer) polyRadical(b *frac, p, q int64) (*frac, bool, error) {
	split := func(part *poly) (root *poly, content *big.Rat, rest *poly) {
		content = part.content()
		rest = polyScale(part, new(big.Rat).Inv(content))
		if r, ok := polyRoot(rest, q); ok && !r.isOne() && r.nonNegative() {
			return r, content, intPoly(1)
		}
		return nil, content, rest
	}
	numRoot, numContent, numRest := split(b.num)
	denRoot, denContent, denRest := split(b.den)
	ratio := new(big.Rat).Quo(numContent, denContent)
	_, denConst := denRest.constant()
	positiveDen := !denConst && denRest.nonNegative()
	if numRoot == nil && denRoot == nil && ratio.Cmp(ratOne) == 0 && !positiveDen {
		return nil, false, nil
	}

	out := fracInt(1)
	if numRoot != nil {
		out = fracPoly(numRoot)
	}
	if denRoot != nil {
		out = &frac{num: out.num, den: denRoot}
	}
	outside, err := c.powInt(out, p)
	if err != nil {
		return nil, false, err
	}
	acc, err := c.numericRadical(ratio, p, q)
	if err != nil {
		return nil, false, err
	}
	acc = fracMul(acc, outside)

	if positiveDen {
		top, err := c.radical(fracPoly(numRest), p, q)
		if err != nil {
			return nil, false, err
		}
		bottom, err := c.radical(fracPoly(denRest), -p, q)
		if err != nil {
			return nil, false, err
		}
		acc = fracMul(acc, fracMul(top, bottom))
	} else {
		in, err := c.normalize(&frac{num: numRest, den: denRest})
		if err != nil {
			return nil, false, err
		}
		var inside *frac
		if r, ok := in.constant(); ok {
			inside, err = c.numericRadical(r, p, q)
		} else {
			inside, err = c.powInt(fracAtom(rootAtom(in, q)), p)
		}
		if err != nil {
			return nil, false, err
		}
		acc = fracMul(acc, inside)
	}
	v, err := c.normalize(acc)
	return v, true, err
}

// numericRadical returns r^(p/q) using principal roots.
func (c *canonizer) numericRadical(r *big.Rat, p, q int64) (*frac, error) {
	if r.Sign() == 0 {
		if p < 0 {
			return nil, ErrDivisionByZero
		}
		return fracInt(0), nil
	}
	acc := fracInt(1)
	if r.Sign() < 0 {
		sign, err := c.powInt(fracAtom(rootAtom(fracInt(-1), q)), p)
		if err != nil {
			return nil, err
		}
		acc = sign
		r = new(big.Rat).Neg(r)
	}
	outside, inside := extractRoot(r, q)
	base := fracConst(outside)
	if inside.Cmp(big.NewInt(1)) != 0 {
		base = fracMul(base, fracAtom(rootAtom(fracConst(new(big.Rat).SetInt(inside)), q)))
	}
	powered, err := c.powInt(base, p)
	if err != nil {
		return nil, err
	}
	return c.normalize(fracMul(acc, powered))
}

const rootTrialLimit = 1000

// extractRoot writes r^(1/q) as outside * inside^(1/q) with outside
// rational and inside a positive integer free of small q-th powers.
func extractRoot(r *big.Rat, q int64) (*big.Rat, *big.Int) {
	d := new(big.Int).Set(r.Denom())
	m := new(big.Int).Mul(r.Num(), new(big.Int).Exp(d, big.NewInt(q-1), nil))
	outside := new(big.Rat).SetFrac(big.NewInt(1), d)
	if t, ok := exactRoot(m, q); ok {
		return outside.Mul(outside, new(big.Rat).SetInt(t)), big.NewInt(1)
	}
	bq := big.NewInt(q)
	mod := new(big.Int)
	for p := int64(2); p <= rootTrialLimit; p++ {
		pq := new(big.Int).Exp(big.NewInt(p), bq, nil)
		if pq.Cmp(m) > 0 {
			break
		}
		for {
			quo, rem := new(big.Int).QuoRem(m, pq, mod)
			if rem.Sign() != 0 {
				break
			}
			m = quo
			outside.Mul(outside, new(big.Rat).SetInt64(p))
		}
	}
	if t, ok := exactRoot(m, q); ok {
		return outside.Mul(outside, new(big.Rat).SetInt(t)), big.NewInt(1)
	}
	return outside, m
}

// exactRoot returns t with t^q == m when m is a perfect q-th power.
func exactRoot(m *big.Int, q int64) (*big.Int, bool) {
	if m.Sign() <= 0 {
		return nil, false
	}
	if m.Cmp(big.NewInt(1)) == 0 {
		return big.NewInt(1), true
	}
	bq := big.NewInt(q)
	x := new(big.Int).Lsh(big.NewInt(1), uint(int64(m.BitLen())/q+1))
	qm1 := big.NewInt(q - 1)
	for {
		// y = ((q-1)x + m / x^(q-1)) / q
		xp := new(big.Int).Exp(x, qm1, nil)
		y := new(big.Int).Mul(qm1, x)
		y.Add(y, new(big.Int).Quo(m, xp))
		y.Quo(y, bq)
		if y.Cmp(x) >= 0 {
			break
		}
		x = y
	}
	if new(big.Int).Exp(x, bq, nil).Cmp(m) == 0 {
		return x, true
	}
	return nil, false
}

func (c *canonizer) symbolicPow(b, e *frac) (*frac, error) {
	if bc, ok := b.constant(); ok && bc.Cmp(ratOne) == 0 {
		return fracInt(1), nil
	}
	if coef, fs, ok := monomialParts(b); ok && coef.Sign() > 0 && allNonNegative(fs) {
		acc := fracInt(1)
		if coef.Cmp(ratOne) != 0 {
			part, err := c.atomPow(fracConst(coef), e)
			if err != nil {
				return nil, err
			}
			acc = part
		}
		for _, f := range fs {
			part, err := c.atomPow(fracAtom(f.a), fracMul(e, fracInt(f.exp)))
			if err != nil {
				return nil, err
			}
			acc = fracMul(acc, part)
		}
		return c.normalize(acc)
	}
	return c.atomPow(b, e)
}

// atomPow builds b^e for a non-constant exponent. An integer constant part
// of e is split off and the exponent's sign is normalized.
func (c *canonizer) atomPow(b, e *frac) (*frac, error) {
	e, err := c.normalize(e)
	if err != nil {
		return nil, err
	}
	if r, ok := e.constant(); ok {
		return c.pow(b, fracConst(r))
	}
	if e.den.isOne() {
		if t, ok := e.num.terms[""]; ok {
			k := new(big.Int).Div(t.coef.Num(), t.coef.Denom())
			if k.Sign() != 0 && k.IsInt64() {
				whole, err := c.powInt(b, k.Int64())
				if err != nil {
					return nil, err
				}
				restExp := fracSub(e, fracConst(new(big.Rat).SetInt(k)))
				rest, err := c.atomPow(b, restExp)
				if err != nil {
					return nil, err
				}
				return c.normalize(fracMul(whole, rest))
			}
		}
	}
	if e.num.leading().coef.Sign() < 0 {
		inner, err := c.atomPow(b, fracNeg(e))
		if err != nil {
			return nil, err
		}
		return fracInv(inner)
	}
	return fracAtom(powerAtom(b, e)), nil
}

// ============================================================
// Conversion back to expression trees
// ============================================================

func (f *frac) expr() Expr {
	num := f.num.expr()
	if f.den.isOne() {
		return num
	}
	inv := &Pow{base: f.den.expr(), exp: N(-1)}
	if m, ok := num.(*Mul); ok {
		factors := append(append([]Expr{}, m.factors...), inv)
		return &Mul{factors: factors}
	}
	return &Mul{factors: []Expr{num, inv}}
}

func (p *poly) expr() Expr {
	ts := p.sorted()
	if len(ts) == 0 {
		return N(0)
	}
	terms := make([]Expr, len(ts))
	for i, t := range ts {
		terms[i] = t.expr()
	}
	return AddOf(terms...)
}

func (t term) expr() Expr {
	var factors []Expr
	if t.coef.Cmp(ratOne) != 0 || len(t.mono) == 0 {
		factors = append(factors, NRat(t.coef))
	}
	for _, f := range t.mono {
		ae := f.a.expr()
		if f.exp != 1 {
			ae = &Pow{base: ae, exp: N(f.exp)}
		}
		factors = append(factors, ae)
	}
	return MulOf(factors...)
}

func (a *atom) expr() Expr {
	switch a.kind {
	case atomSymbol:
		return a.sym
	case atomConstant:
		return Pi()
	case atomRoot:
		if a.isImaginaryUnit() {
			return ImagUnit()
		}
		return &Pow{base: a.args[0].expr(), exp: F(1, a.q)}
	case atomPower:
		return &Pow{base: a.args[0].expr(), exp: a.args[1].expr()}
	}
	args := make([]Expr, len(a.args))
	for i, arg := range a.args {
		args[i] = arg.expr()
	}
	return FuncOf(a.name, args...)
}

// hasSymbols reports whether any atom of f, at any depth, is a symbol.
func (f *frac) hasSymbols() bool {
	found := false
	var visit func(*atom)
	visit = func(a *atom) {
		if found {
			return
		}
		if a.kind == atomSymbol {
			found = true
			return
		}
		for _, arg := range a.args {
			arg.num.atoms(visit)
			arg.den.atoms(visit)
		}
	}
	f.num.atoms(visit)
	f.den.atoms(visit)
	return found
}

// ============================================================
// Public API
// ============================================================

// Simplify returns the canonical form of e. Equations are simplified side
// by side.
func Simplify(e Expr) (Expr, error) {
	if eq, ok := e.(*Equation); ok {
		lhs, err := Simplify(eq.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := Simplify(eq.RHS)
		if err != nil {
			return nil, err
		}
		return Eq(lhs, rhs), nil
	}
	f, err := canonicalize(e)
	if err != nil {
		return nil, err
	}
	return f.expr(), nil
}

// IsZero reports whether e is identically zero under the canonical form.
func IsZero(e Expr) (bool, error) {
	f, err := canonicalize(e)
	if err != nil {
		return false, err
	}
	return f.isZero(), nil
}

// IsConstant reports whether e canonicalizes to an expression free of
// symbols. Expressions that cannot be canonicalized are not constant.
func IsConstant(e Expr) bool {
	if _, ok := e.(*Equation); ok {
		return false
	}
	f, err := canonicalize(e)
	if err != nil {
		return false
	}
	return !f.hasSymbols()
}

// Equivalent reports whether a - b canonicalizes to zero.
func Equivalent(a, b Expr) (bool, error) { return IsZero(Minus(a, b)) }

// Rationalize replaces every decimal literal with the exact rational it
// denotes.
func Rationalize(e Expr) (Expr, error) {
	switch v := e.(type) {
	case *Float:
		return NRat(v.val), nil
	case *Add:
		terms := make([]Expr, len(v.terms))
		for i, t := range v.terms {
			r, err := Rationalize(t)
			if err != nil {
				return nil, err
			}
			terms[i] = r
		}
		return &Add{terms: terms}, nil
	case *Mul:
		factors := make([]Expr, len(v.factors))
		for i, f := range v.factors {
			r, err := Rationalize(f)
			if err != nil {
				return nil, err
			}
			factors[i] = r
		}
		return &Mul{factors: factors}, nil
	case *Pow:
		b, err := Rationalize(v.base)
		if err != nil {
			return nil, err
		}
		x, err := Rationalize(v.exp)
		if err != nil {
			return nil, err
		}
		return &Pow{base: b, exp: x}, nil
	case *Func:
		args := make([]Expr, len(v.args))
		for i, a := range v.args {
			r, err := Rationalize(a)
			if err != nil {
				return nil, err
			}
			args[i] = r
		}
		return &Func{name: v.name, args: args}, nil
	case *Equation:
		lhs, err := Rationalize(v.LHS)
		if err != nil {
			return nil, err
		}
		rhs, err := Rationalize(v.RHS)
		if err != nil {
			return nil, err
		}
		return Eq(lhs, rhs), nil
	}
	return e, nil
}
