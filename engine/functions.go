package engine

import (
	"fmt"
	"math/big"
)

// ============================================================
// Function canonicalization
// ============================================================

func (c *canonizer) function(f *Func) (*frac, error) {
	if f.name == "Derivative" {
		d := evalDerivative(f)
		if dd, ok := d.(*Func); ok && dd.name == "Derivative" {
			return c.opaque(dd)
		}
		return c.canon(d)
	}
	args := make([]*frac, len(f.args))
	for i, a := range f.args {
		af, err := c.canon(a)
		if err != nil {
			return nil, err
		}
		args[i] = af
	}
	u := args[0]
	switch f.name {
	case "sin", "cos":
		return c.trig(f.name, u)
	case "tan":
		return c.trigRatio(u, "sin", "cos")
	case "cot":
		return c.trigRatio(u, "cos", "sin")
	case "sec":
		cs, err := c.trig("cos", u)
		if err != nil {
			return nil, err
		}
		return c.invert(cs)
	case "csc":
		sn, err := c.trig("sin", u)
		if err != nil {
			return nil, err
		}
		return c.invert(sn)
	case "asin", "acos", "atan":
		return c.inverseTrig(f.name, u)
	case "sinh", "cosh":
		return c.hyperbolic(f.name, u)
	case "tanh":
		sh, err := c.hyperbolic("sinh", u)
		if err != nil {
			return nil, err
		}
		ch, err := c.hyperbolic("cosh", u)
		if err != nil {
			return nil, err
		}
		q, err := fracQuo(sh, ch)
		if err != nil {
			return nil, err
		}
		return c.normalize(q)
	case "exp":
		return c.exp(u)
	case "log":
		l, err := c.log(u)
		if err != nil || len(args) == 1 {
			return l, err
		}
		lb, err := c.log(args[1])
		if err != nil {
			return nil, err
		}
		q, err := fracQuo(l, lb)
		if err != nil {
			return nil, err
		}
		return c.normalize(q)
	case "sqrt":
		return c.radical(u, 1, 2)
	case "Abs":
		return c.abs(u)
	case "sign", "floor", "ceiling":
		return c.step(f.name, u)
	case "gamma":
		return c.gamma(u)
	case "beta":
		return c.beta(args[0], args[1])
	case "zeta":
		return c.zeta(u)
	}
	return fracAtom(functionAtom(f.name, args...)), nil
}

// opaque canonicalizes the arguments of an application it cannot evaluate.
func (c *canonizer) opaque(f *Func) (*frac, error) {
	args := make([]*frac, len(f.args))
	for i, a := range f.args {
		af, err := c.canon(a)
		if err != nil {
			return nil, err
		}
		args[i] = af
	}
	return fracAtom(functionAtom(f.name, args...)), nil
}

func (c *canonizer) invert(f *frac) (*frac, error) {
	inv, err := fracInv(f)
	if err != nil {
		return nil, fmt.Errorf("%w: pole", ErrUndefined)
	}
	return c.normalize(inv)
}

// negativeLead reports whether u's leading coefficient is negative, which
// is how odd and even functions normalize their argument.
func negativeLead(u *frac) bool {
	if u.num.isZero() {
		return false
	}
	return u.num.leading().coef.Sign() < 0
}

// piMultiple returns r when u == r*pi.
func piMultiple(u *frac) (*big.Rat, bool) {
	if !u.den.isOne() {
		return nil, false
	}
	if u.num.isZero() {
		return new(big.Rat), true
	}
	t, ok := u.num.singleTerm()
	if !ok || len(t.mono) != 1 || t.mono[0].exp != 1 || t.mono[0].a.kind != atomConstant {
		return nil, false
	}
	return new(big.Rat).Set(t.coef), true
}

// ============================================================
// Trigonometric
// ============================================================

func (c *canonizer) trig(name string, u *frac) (*frac, error) {
	if r, ok := piMultiple(u); ok {
		if name == "cos" {
			r.Add(r, big.NewRat(1, 2))
		}
		if v, ok, err := c.exactSin(r); ok || err != nil {
			return v, err
		}
	}
	if negativeLead(u) {
		v, err := c.trig(name, fracNeg(u))
		if err != nil {
			return nil, err
		}
		if name == "sin" {
			return fracNeg(v), nil
		}
		return v, nil
	}
	if v, ok, err := c.expandAngle(name, u, c.trig); ok || err != nil {
		return v, err
	}
	return fracAtom(functionAtom(name, u)), nil
}

const (
	maxAngleTerms    = 6
	maxAngleMultiple = 12
)

// expandAngle rewrites the sine or cosine (circular or hyperbolic) of a sum
// with the addition formulas, and of n*v for a small integer n as a
// polynomial in the functions of v. Pure multiples of pi are left alone.
func (c *canonizer) expandAngle(name string, u *frac, eval func(string, *frac) (*frac, error)) (*frac, bool, error) {
	if !u.den.isOne() {
		return nil, false, nil
	}
	sinName, cosName, sign := "sin", "cos", int64(-1)
	if name == "sinh" || name == "cosh" {
		sinName, cosName, sign = "sinh", "cosh", 1
	}
	pair := func(v *frac) (*frac, *frac, error) {
		sv, err := eval(sinName, v)
		if err != nil {
			return nil, nil, err
		}
		cv, err := eval(cosName, v)
		if err != nil {
			return nil, nil, err
		}
		return sv, cv, nil
	}
	// sin(a+b) = sin a cos b + cos a sin b
	// cos(a+b) = cos a cos b + sign * sin a sin b
	combine := func(sa, ca, sb, cb *frac) (*frac, *frac, error) {
		s, err := c.normalize(fracAdd(fracMul(sa, cb), fracMul(ca, sb)))
		if err != nil {
			return nil, nil, err
		}
		k, err := c.normalize(fracAdd(fracMul(ca, cb), fracMul(fracInt(sign), fracMul(sa, sb))))
		if err != nil {
			return nil, nil, err
		}
		return s, k, nil
	}
	pick := func(s, k *frac) *frac {
		if name == sinName {
			return s
		}
		return k
	}

	ts := u.num.sorted()
	switch {
	case len(ts) > 1 && len(ts) <= maxAngleTerms:
		head, rest := newPoly(), newPoly()
		head.addTerm(ts[0].mono, ts[0].coef)
		for _, t := range ts[1:] {
			rest.addTerm(t.mono, t.coef)
		}
		sa, ca, err := pair(fracPoly(head))
		if err != nil {
			return nil, false, err
		}
		sb, cb, err := pair(fracPoly(rest))
		if err != nil {
			return nil, false, err
		}
		s, k, err := combine(sa, ca, sb, cb)
		if err != nil {
			return nil, false, err
		}
		return pick(s, k), true, nil
	case len(ts) == 1:
		t := ts[0]
		if len(t.mono) == 0 || (len(t.mono) == 1 && t.mono[0].a.kind == atomConstant) {
			return nil, false, nil
		}
		n := t.coef.Num()
		if !n.IsInt64() || n.Int64() < 2 || n.Int64() > maxAngleMultiple {
			return nil, false, nil
		}
		unit := newPoly()
		unit.addTerm(t.mono, new(big.Rat).SetFrac(big.NewInt(1), t.coef.Denom()))
		s1, c1, err := pair(fracPoly(unit))
		if err != nil {
			return nil, false, err
		}
		s, k := s1, c1
		for i := int64(1); i < n.Int64(); i++ {
			if s, k, err = combine(s, k, s1, c1); err != nil {
				return nil, false, err
			}
		}
		return pick(s, k), true, nil
	}
	return nil, false, nil
}

func (c *canonizer) trigRatio(u *frac, num, den string) (*frac, error) {
	n, err := c.trig(num, u)
	if err != nil {
		return nil, err
	}
	d, err := c.trig(den, u)
	if err != nil {
		return nil, err
	}
	if d.isZero() {
		return nil, fmt.Errorf("%w: pole", ErrUndefined)
	}
	q, err := fracQuo(n, d)
	if err != nil {
		return nil, err
	}
	return c.normalize(q)
}

// exactSin evaluates sin(r*pi) when r is a multiple of 1/12.
func (c *canonizer) exactSin(r *big.Rat) (*frac, bool, error) {
	t := new(big.Rat).Set(r)
	two := big.NewRat(2, 1)
	// t mod 2 into [0, 2)
	q := new(big.Int).Div(t.Num(), new(big.Int).Mul(t.Denom(), big.NewInt(2)))
	t.Sub(t, new(big.Rat).Mul(two, new(big.Rat).SetInt(q)))
	negate := false
	if t.Cmp(ratOne) >= 0 {
		t.Sub(t, ratOne)
		negate = true
	}
	if t.Cmp(big.NewRat(1, 2)) > 0 {
		t.Sub(ratOne, t)
	}
	twelfths := new(big.Rat).Mul(t, big.NewRat(12, 1))
	if !twelfths.IsInt() {
		return nil, false, nil
	}
	var v *frac
	var err error
	switch twelfths.Num().Int64() {
	case 0:
		v = fracInt(0)
	case 1, 5:
		// (sqrt(6) -+ sqrt(2)) / 4
		var s6, s2 *frac
		if s6, err = c.numericRadical(big.NewRat(6, 1), 1, 2); err != nil {
			return nil, false, err
		}
		if s2, err = c.numericRadical(big.NewRat(2, 1), 1, 2); err != nil {
			return nil, false, err
		}
		if twelfths.Num().Int64() == 1 {
			s2 = fracNeg(s2)
		}
		v = fracMul(fracAdd(s6, s2), fracRatio(1, 4))
	case 2:
		v = fracRatio(1, 2)
	case 3:
		if v, err = c.numericRadical(big.NewRat(1, 2), 1, 2); err != nil {
			return nil, false, err
		}
	case 4:
		if v, err = c.numericRadical(big.NewRat(3, 4), 1, 2); err != nil {
			return nil, false, err
		}
	case 6:
		v = fracInt(1)
	default:
		return nil, false, nil
	}
	if negate {
		v = fracNeg(v)
	}
	v, err = c.normalize(v)
	return v, true, err
}

func (c *canonizer) inverseTrig(name string, u *frac) (*frac, error) {
	if r, ok, err := c.inverseTable(name, u); ok || err != nil {
		if err != nil {
			return nil, err
		}
		return c.normalize(fracMul(fracConst(r), fracAtom(piAtom())))
	}
	if negativeLead(u) {
		inner, err := c.inverseTrig(name, fracNeg(u))
		if err != nil {
			return nil, err
		}
		if name == "acos" {
			// acos(-u) = pi - acos(u)
			return c.normalize(fracSub(fracAtom(piAtom()), inner))
		}
		return fracNeg(inner), nil
	}
	return fracAtom(functionAtom(name, u)), nil
}

// inverseTable returns r such that name(u) == r*pi for tabulated values.
func (c *canonizer) inverseTable(name string, u *frac) (*big.Rat, bool, error) {
	type entry struct {
		value *frac
		asin  *big.Rat
		atan  *big.Rat
	}
	s2, err := c.numericRadical(big.NewRat(1, 2), 1, 2)
	if err != nil {
		return nil, false, err
	}
	s3h, err := c.numericRadical(big.NewRat(3, 4), 1, 2)
	if err != nil {
		return nil, false, err
	}
	s3, err := c.numericRadical(big.NewRat(3, 1), 1, 2)
	if err != nil {
		return nil, false, err
	}
	s33, err := c.numericRadical(big.NewRat(1, 3), 1, 2)
	if err != nil {
		return nil, false, err
	}
	table := []entry{
		{value: fracInt(0), asin: new(big.Rat), atan: new(big.Rat)},
		{value: fracRatio(1, 2), asin: big.NewRat(1, 6)},
		{value: s2, asin: big.NewRat(1, 4)},
		{value: s3h, asin: big.NewRat(1, 3)},
		{value: fracInt(1), asin: big.NewRat(1, 2), atan: big.NewRat(1, 4)},
		{value: s3, atan: big.NewRat(1, 3)},
		{value: s33, atan: big.NewRat(1, 6)},
	}
	key := u.key()
	negKey := fracNeg(u).key()
	for _, e := range table {
		sign := int64(0)
		switch e.value.key() {
		case key:
			sign = 1
		case negKey:
			sign = -1
		default:
			continue
		}
		switch name {
		case "asin":
			if e.asin != nil {
				return new(big.Rat).Mul(e.asin, big.NewRat(sign, 1)), true, nil
			}
		case "acos":
			if e.asin != nil {
				// acos(x) = pi/2 - asin(x)
				r := new(big.Rat).Mul(e.asin, big.NewRat(sign, 1))
				return r.Sub(big.NewRat(1, 2), r), true, nil
			}
		case "atan":
			if e.atan != nil {
				return new(big.Rat).Mul(e.atan, big.NewRat(sign, 1)), true, nil
			}
		}
	}
	return nil, false, nil
}

// ============================================================
// Hyperbolic
// ============================================================

func (c *canonizer) hyperbolic(name string, u *frac) (*frac, error) {
	if u.isZero() {
		if name == "sinh" {
			return fracInt(0), nil
		}
		return fracInt(1), nil
	}
	if negativeLead(u) {
		v, err := c.hyperbolic(name, fracNeg(u))
		if err != nil {
			return nil, err
		}
		if name == "sinh" {
			return fracNeg(v), nil
		}
		return v, nil
	}
	if v, ok, err := c.expandAngle(name, u, c.hyperbolic); ok || err != nil {
		return v, err
	}
	return fracAtom(functionAtom(name, u)), nil
}

// ============================================================
// Exponential and logarithm
// ============================================================

// exp splits exp(a + b) into exp(a)*exp(b) term by term; integer
// multiples become powers and exp(w*log(v)) becomes v^w.
func (c *canonizer) exp(u *frac) (*frac, error) {
	if u.isZero() {
		return fracInt(1), nil
	}
	if !u.den.isOne() {
		return fracAtom(functionAtom("exp", u)), nil
	}
	acc := fracInt(1)
	for _, t := range u.num.sorted() {
		part, err := c.expTerm(t)
		if err != nil {
			return nil, err
		}
		acc = fracMul(acc, part)
	}
	return c.normalize(acc)
}

func (c *canonizer) expTerm(t term) (*frac, error) {
	for i, f := range t.mono {
		if f.exp != 1 || f.a.kind != atomFunction || f.a.name != "log" || len(f.a.args) != 1 {
			continue
		}
		rest := newPoly()
		rest.addTerm(append(append(monomial{}, t.mono[:i]...), t.mono[i+1:]...), t.coef)
		return c.pow(f.a.args[0], fracPoly(rest))
	}
	if !t.coef.IsInt() || !t.coef.Num().IsInt64() {
		p := newPoly()
		p.addTerm(t.mono, t.coef)
		return fracAtom(functionAtom("exp", fracPoly(p))), nil
	}
	unit := newPoly()
	unit.addTerm(t.mono, big.NewRat(1, 1))
	return c.powInt(fracAtom(functionAtom("exp", fracPoly(unit))), t.coef.Num().Int64())
}

// log pulls exp factors out of a monomial argument and writes the log of a
// positive rational as a sum of logs of its prime factors.
func (c *canonizer) log(u *frac) (*frac, error) {
	if r, ok := u.constant(); ok {
		switch {
		case r.Sign() == 0:
			return nil, fmt.Errorf("%w: log(0)", ErrUndefined)
		case r.Sign() > 0:
			return c.rationalLog(r)
		}
	}
	if coef, fs, ok := monomialParts(u); ok {
		acc := fracInt(0)
		rest := fracConst(coef)
		split := false
		for _, f := range fs {
			if f.a.kind == atomFunction && f.a.name == "exp" {
				acc = fracAdd(acc, fracMul(fracInt(f.exp), f.a.args[0]))
				split = true
				continue
			}
			part, err := c.powInt(fracAtom(f.a), f.exp)
			if err != nil {
				return nil, err
			}
			rest = fracMul(rest, part)
		}
		if split {
			rest, err := c.normalize(rest)
			if err != nil {
				return nil, err
			}
			l, err := c.log(rest)
			if err != nil {
				return nil, err
			}
			return c.normalize(fracAdd(acc, l))
		}
	}
	return fracAtom(functionAtom("log", u)), nil
}

func (c *canonizer) rationalLog(r *big.Rat) (*frac, error) {
	acc := fracInt(0)
	addFactors := func(n *big.Int, sign int64) {
		m := new(big.Int).Set(n)
		mod := new(big.Int)
		for p := int64(2); p <= rootTrialLimit; p++ {
			bp := big.NewInt(p)
			if new(big.Int).Mul(bp, bp).Cmp(m) > 0 {
				break
			}
			k := int64(0)
			for {
				quo, rem := new(big.Int).QuoRem(m, bp, mod)
				if rem.Sign() != 0 {
					break
				}
				m = quo
				k++
			}
			if k > 0 {
				acc = fracAdd(acc, fracMul(fracInt(sign*k), primeLog(bp)))
			}
		}
		if m.Cmp(big.NewInt(1)) > 0 {
			acc = fracAdd(acc, fracMul(fracInt(sign), primeLog(m)))
		}
	}
	addFactors(r.Num(), 1)
	addFactors(r.Denom(), -1)
	return c.normalize(acc)
}

func primeLog(p *big.Int) *frac {
	return fracAtom(functionAtom("log", fracConst(new(big.Rat).SetInt(p))))
}

// ============================================================
// Absolute value and step functions
// ============================================================

func (c *canonizer) abs(u *frac) (*frac, error) {
	if r, ok := u.constant(); ok {
		return fracConst(r.Abs(r)), nil
	}
	if coef, fs, ok := monomialParts(u); ok {
		acc := fracConst(new(big.Rat).Abs(coef))
		for _, f := range fs {
			var base *frac
			switch {
			case f.a.nonNegative():
				base = fracAtom(f.a)
			case f.a.nonPositive():
				base = fracNeg(fracAtom(f.a))
			case f.a.isImaginaryUnit():
				continue
			default:
				base = fracAtom(functionAtom("Abs", fracAtom(f.a)))
			}
			part, err := c.powInt(base, f.exp)
			if err != nil {
				return nil, err
			}
			acc = fracMul(acc, part)
		}
		return c.normalize(acc)
	}
	if negativeLead(u) {
		u = fracNeg(u)
	}
	return fracAtom(functionAtom("Abs", u)), nil
}

func (c *canonizer) step(name string, u *frac) (*frac, error) {
	r, ok := u.constant()
	if !ok {
		return fracAtom(functionAtom(name, u)), nil
	}
	switch name {
	case "sign":
		return fracInt(int64(r.Sign())), nil
	case "floor":
		return fracConst(new(big.Rat).SetInt(floorRat(r))), nil
	}
	neg := new(big.Rat).Neg(r)
	return fracConst(new(big.Rat).SetInt(new(big.Int).Neg(floorRat(neg)))), nil
}

func floorRat(r *big.Rat) *big.Int {
	return new(big.Int).Div(r.Num(), r.Denom())
}

// ============================================================
// Special functions
// ============================================================

func (c *canonizer) gamma(u *frac) (*frac, error) {
	if r, ok := u.constant(); ok {
		if !r.IsInt() {
			return fracAtom(functionAtom("gamma", u)), nil
		}
		n := r.Num()
		if n.Sign() <= 0 {
			return nil, fmt.Errorf("%w: gamma pole at %s", ErrUndefined, n)
		}
		if !n.IsInt64() || n.Int64() > maxFactorial {
			return fracAtom(functionAtom("gamma", u)), nil
		}
		return fracConst(new(big.Rat).SetInt(new(big.Int).MulRange(1, n.Int64()-1))), nil
	}
	if u.den.isOne() {
		if t, ok := u.num.terms[""]; ok {
			k := floorRat(t.coef)
			if k.Sign() != 0 && k.IsInt64() && k.Int64() <= maxFactorial && k.Int64() >= -maxFactorial {
				return c.gammaShift(u, k.Int64())
			}
		}
	}
	return fracAtom(functionAtom("gamma", u)), nil
}

// gammaShift rewrites gamma(P + k) through gamma(z+1) = z*gamma(z).
func (c *canonizer) gammaShift(u *frac, k int64) (*frac, error) {
	p, err := c.normalize(fracSub(u, fracInt(k)))
	if err != nil {
		return nil, err
	}
	acc := fracAtom(functionAtom("gamma", p))
	if k > 0 {
		for i := int64(0); i < k; i++ {
			acc = fracMul(acc, fracAdd(p, fracInt(i)))
		}
		return c.normalize(acc)
	}
	for i := int64(1); i <= -k; i++ {
		q, err := fracQuo(acc, fracSub(p, fracInt(i)))
		if err != nil {
			return nil, err
		}
		acc = q
	}
	return c.normalize(acc)
}

func (c *canonizer) beta(a, b *frac) (*frac, error) {
	ga, err := c.gamma(a)
	if err != nil {
		return nil, err
	}
	gb, err := c.gamma(b)
	if err != nil {
		return nil, err
	}
	sum, err := c.normalize(fracAdd(a, b))
	if err != nil {
		return nil, err
	}
	gs, err := c.gamma(sum)
	if err != nil {
		return nil, err
	}
	q, err := fracQuo(fracMul(ga, gb), gs)
	if err != nil {
		return nil, err
	}
	return c.normalize(q)
}

const maxZetaArgument = 200

func (c *canonizer) zeta(u *frac) (*frac, error) {
	r, ok := u.constant()
	if !ok || !r.IsInt() || !r.Num().IsInt64() {
		return fracAtom(functionAtom("zeta", u)), nil
	}
	s := r.Num().Int64()
	switch {
	case s == 1:
		return nil, fmt.Errorf("%w: zeta pole at 1", ErrUndefined)
	case s == 0:
		return fracRatio(-1, 2), nil
	case s > 0 && s%2 == 0 && s <= maxZetaArgument:
		// zeta(2n) = (-1)^(n+1) B(2n) (2 pi)^(2n) / (2 (2n)!)
		n := s / 2
		coef := new(big.Rat).Mul(bernoulli(s), new(big.Rat).SetInt(new(big.Int).Lsh(big.NewInt(1), uint(s))))
		coef.Quo(coef, new(big.Rat).SetInt(new(big.Int).Mul(big.NewInt(2), new(big.Int).MulRange(1, s))))
		if n%2 == 0 {
			coef.Neg(coef)
		}
		pis, err := c.powInt(fracAtom(piAtom()), s)
		if err != nil {
			return nil, err
		}
		return c.normalize(fracMul(fracConst(coef), pis))
	case s < 0 && -s < maxZetaArgument:
		// zeta(-n) = (-1)^n B(n+1) / (n+1)
		n := -s
		v := new(big.Rat).Quo(bernoulli(n+1), big.NewRat(n+1, 1))
		if n%2 == 1 {
			v.Neg(v)
		}
		return fracConst(v), nil
	}
	return fracAtom(functionAtom("zeta", u)), nil
}

// bernoulli returns B(n) for n >= 2 (Akiyama–Tanigawa).
func bernoulli(n int64) *big.Rat {
	if n%2 == 1 {
		return new(big.Rat)
	}
	a := make([]*big.Rat, n+1)
	for m := int64(0); m <= n; m++ {
		a[m] = big.NewRat(1, m+1)
		for j := m; j >= 1; j-- {
			d := new(big.Rat).Sub(a[j-1], a[j])
			a[j-1] = d.Mul(d, big.NewRat(j, 1))
		}
	}
	return a[0]
}
