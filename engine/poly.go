package engine

import (
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Atoms — indeterminates of the canonical polynomial ring
// ============================================================

type atomKind int

const (
	atomSymbol atomKind = iota
	atomConstant
	atomFunction
	atomRoot
	atomPower
)

// atom keys are unique per atom. Constants sort before symbols and
// compound atoms after them, which fixes the printed factor order.
type atom struct {
	kind atomKind
	key  string
	name string
	sym  *Sym
	args []*frac
	q    int64
}

func symbolAtom(s *Sym) *atom { return &atom{kind: atomSymbol, key: s.name, name: s.name, sym: s} }
func piAtom() *atom          { return &atom{kind: atomConstant, key: "#pi", name: "pi"} }

func functionAtom(name string, args ...*frac) *atom {
	keys := make([]string, len(args))
	for i, a := range args {
		keys[i] = a.key()
	}
	return &atom{kind: atomFunction, key: "~" + name + "(" + strings.Join(keys, ",") + ")", name: name, args: args}
}

func rootAtom(base *frac, q int64) *atom {
	return &atom{
		kind: atomRoot,
		key:  "~root(" + base.key() + "," + strconv.FormatInt(q, 10) + ")",
		name: "root", args: []*frac{base}, q: q,
	}
}

func powerAtom(base, exp *frac) *atom {
	return &atom{kind: atomPower, key: "~pow(" + base.key() + "," + exp.key() + ")", name: "pow", args: []*frac{base, exp}}
}

// nonNegative reports whether the atom is known to take only values >= 0.
func (a *atom) nonNegative() bool {
	switch a.kind {
	case atomSymbol:
		return a.sym.assume.nonNegative()
	case atomConstant:
		return true
	case atomRoot:
		c, ok := a.args[0].constant()
		return ok && c.Sign() > 0
	case atomFunction:
		return a.name == "Abs"
	}
	return false
}

func (a *atom) nonPositive() bool { return a.kind == atomSymbol && a.sym.assume.nonPositive() }

func (a *atom) isImaginaryUnit() bool {
	if a.kind != atomRoot || a.q != 2 {
		return false
	}
	c, ok := a.args[0].constant()
	return ok && c.Cmp(big.NewRat(-1, 1)) == 0
}

// ============================================================
// Monomials
// ============================================================

type factor struct {
	a   *atom
	exp int64
}

// monomial is a product of atoms with positive exponents, sorted by key.
type monomial []factor

func (m monomial) key() string {
	var b strings.Builder
	for i, f := range m {
		if i > 0 {
			b.WriteByte('*')
		}
		b.WriteString(f.a.key)
		if f.exp != 1 {
			b.WriteByte('^')
			b.WriteString(strconv.FormatInt(f.exp, 10))
		}
	}
	return b.String()
}

func (m monomial) degree() int64 {
	var d int64
	for _, f := range m {
		d += f.exp
	}
	return d
}

func monoMul(a, b monomial) monomial {
	out := make(monomial, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].a.key < b[j].a.key:
			out = append(out, a[i])
			i++
		case a[i].a.key > b[j].a.key:
			out = append(out, b[j])
			j++
		default:
			out = append(out, factor{a: a[i].a, exp: a[i].exp + b[j].exp})
			i++
			j++
		}
	}
	out = append(out, a[i:]...)
	return append(out, b[j:]...)
}

func (m monomial) exponent(key string) int64 {
	for _, f := range m {
		if f.a.key == key {
			return f.exp
		}
	}
	return 0
}

// monoDivides reports whether a divides b.
func monoDivides(a, b monomial) bool {
	for _, f := range a {
		if b.exponent(f.a.key) < f.exp {
			return false
		}
	}
	return true
}

// monoQuo returns b / a; a must divide b.
func monoQuo(b, a monomial) monomial {
	out := make(monomial, 0, len(b))
	for _, f := range b {
		if e := f.exp - a.exponent(f.a.key); e > 0 {
			out = append(out, factor{a: f.a, exp: e})
		}
	}
	return out
}

func monoGCD(a, b monomial) monomial {
	var out monomial
	for _, f := range a {
		e := b.exponent(f.a.key)
		if e > f.exp {
			e = f.exp
		}
		if e > 0 {
			out = append(out, factor{a: f.a, exp: e})
		}
	}
	return out
}

// monoCmp orders monomials graded-lexicographically.
func monoCmp(a, b monomial) int {
	if da, db := a.degree(), b.degree(); da != db {
		if da > db {
			return 1
		}
		return -1
	}
	i, j := 0, 0
	for i < len(a) || j < len(b) {
		switch {
		case j >= len(b) || (i < len(a) && a[i].a.key < b[j].a.key):
			return 1
		case i >= len(a) || a[i].a.key > b[j].a.key:
			return -1
		case a[i].exp != b[j].exp:
			if a[i].exp > b[j].exp {
				return 1
			}
			return -1
		}
		i++
		j++
	}
	return 0
}

// ============================================================
// Polynomials
// ============================================================

type term struct {
	mono monomial
	coef *big.Rat
}

type poly struct {
	terms map[string]term
}

func newPoly() *poly { return &poly{terms: map[string]term{}} }

func constPoly(r *big.Rat) *poly {
	p := newPoly()
	p.addTerm(nil, r)
	return p
}

func intPoly(n int64) *poly { return constPoly(new(big.Rat).SetInt64(n)) }

func atomPoly(a *atom) *poly {
	p := newPoly()
	p.addTerm(monomial{{a: a, exp: 1}}, big.NewRat(1, 1))
	return p
}

func (p *poly) addTerm(m monomial, c *big.Rat) {
	if c.Sign() == 0 {
		return
	}
	k := m.key()
	if t, ok := p.terms[k]; ok {
		sum := new(big.Rat).Add(t.coef, c)
		if sum.Sign() == 0 {
			delete(p.terms, k)
			return
		}
		p.terms[k] = term{mono: t.mono, coef: sum}
		return
	}
	p.terms[k] = term{mono: m, coef: new(big.Rat).Set(c)}
}

func (p *poly) isZero() bool { return len(p.terms) == 0 }

func (p *poly) constant() (*big.Rat, bool) {
	switch len(p.terms) {
	case 0:
		return new(big.Rat), true
	case 1:
		if t, ok := p.terms[""]; ok {
			return new(big.Rat).Set(t.coef), true
		}
	}
	return nil, false
}

func (p *poly) isOne() bool {
	c, ok := p.constant()
	return ok && c.Cmp(ratOne) == 0
}

func polyAdd(a, b *poly) *poly {
	out := newPoly()
	for _, t := range a.terms {
		out.addTerm(t.mono, t.coef)
	}
	for _, t := range b.terms {
		out.addTerm(t.mono, t.coef)
	}
	return out
}

func polyScale(a *poly, c *big.Rat) *poly {
	out := newPoly()
	for _, t := range a.terms {
		out.addTerm(t.mono, new(big.Rat).Mul(t.coef, c))
	}
	return out
}

func polyNeg(a *poly) *poly      { return polyScale(a, big.NewRat(-1, 1)) }
func polySub(a, b *poly) *poly   { return polyAdd(a, polyNeg(b)) }

func polyMul(a, b *poly) *poly {
	out := newPoly()
	for _, x := range a.terms {
		for _, y := range b.terms {
			out.addTerm(monoMul(x.mono, y.mono), new(big.Rat).Mul(x.coef, y.coef))
		}
	}
	return out
}

func polyMulTerm(a *poly, m monomial, c *big.Rat) *poly {
	out := newPoly()
	for _, t := range a.terms {
		out.addTerm(monoMul(t.mono, m), new(big.Rat).Mul(t.coef, c))
	}
	return out
}

func polyPow(a *poly, n int64) *poly {
	result := intPoly(1)
	base := a
	for n > 0 {
		if n&1 == 1 {
			result = polyMul(result, base)
		}
		n >>= 1
		if n > 0 {
			base = polyMul(base, base)
		}
	}
	return result
}

// sorted returns the terms in descending monomial order.
func (p *poly) sorted() []term {
	ts := make([]term, 0, len(p.terms))
	for _, t := range p.terms {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return monoCmp(ts[i].mono, ts[j].mono) > 0 })
	return ts
}

func (p *poly) leading() term {
	var best term
	first := true
	for _, t := range p.terms {
		if first || monoCmp(t.mono, best.mono) > 0 {
			best = t
			first = false
		}
	}
	return best
}

func (p *poly) key() string {
	ts := p.sorted()
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.coef.RatString() + "." + t.mono.key()
	}
	return strings.Join(parts, "+")
}

func (p *poly) singleTerm() (term, bool) {
	if len(p.terms) != 1 {
		return term{}, false
	}
	for _, t := range p.terms {
		return t, true
	}
	return term{}, false
}

// contentMonomial is the largest monomial dividing every term.
func (p *poly) contentMonomial() monomial {
	var g monomial
	first := true
	for _, t := range p.terms {
		if first {
			g = t.mono
			first = false
			continue
		}
		g = monoGCD(g, t.mono)
	}
	return g
}

func (p *poly) divMonomial(m monomial) *poly {
	out := newPoly()
	for _, t := range p.terms {
		out.addTerm(monoQuo(t.mono, m), t.coef)
	}
	return out
}

// atoms visits every atom of every term.
func (p *poly) atoms(visit func(*atom)) {
	for _, t := range p.terms {
		for _, f := range t.mono {
			visit(f.a)
		}
	}
}

// maxDivisionSteps bounds exact division so pathological inputs terminate.
const maxDivisionSteps = 20000

// exactDiv returns p / d when d divides p exactly over the rationals.
// Division runs in graded-lex order: if the leading term of the remainder
// is not a multiple of lt(d), d cannot divide p.
func exactDiv(p, d *poly) (*poly, bool) {
	if d.isZero() {
		return nil, false
	}
	lt := d.leading()
	q := newPoly()
	r := p
	for steps := 0; !r.isZero(); steps++ {
		if steps > maxDivisionSteps {
			return nil, false
		}
		rt := r.leading()
		if !monoDivides(lt.mono, rt.mono) {
			return nil, false
		}
		m := monoQuo(rt.mono, lt.mono)
		c := new(big.Rat).Quo(rt.coef, lt.coef)
		q.addTerm(m, c)
		r = polySub(r, polyMulTerm(d, m, c))
	}
	return q, true
}

const maxRootSteps = 256

// polyRoot returns r with r^q == p when p is a perfect q-th power whose
// root has rational coefficients. Terms of r are found leading term first:
// the leading term of p - r^q is q*lt(r)^(q-1) times the next term of r.
func polyRoot(p *poly, q int64) (*poly, bool) {
	if p.isZero() || q < 2 || q > maxPolyPower {
		return nil, false
	}
	lead, ok := termRoot(p.leading(), q)
	if !ok {
		return nil, false
	}
	r := newPoly()
	r.addTerm(lead.mono, lead.coef)
	unit := newPoly()
	unit.addTerm(lead.mono, lead.coef)
	dt := polyScale(polyPow(unit, q-1), big.NewRat(q, 1)).leading()
	for steps := 0; steps < maxRootSteps; steps++ {
		rem := polySub(p, polyPow(r, q))
		if rem.isZero() {
			return r, true
		}
		rt := rem.leading()
		if !monoDivides(dt.mono, rt.mono) {
			return nil, false
		}
		m := monoQuo(rt.mono, dt.mono)
		if monoCmp(m, lead.mono) >= 0 {
			return nil, false
		}
		r.addTerm(m, new(big.Rat).Quo(rt.coef, dt.coef))
	}
	return nil, false
}

func termRoot(t term, q int64) (term, bool) {
	mono := make(monomial, len(t.mono))
	for i, f := range t.mono {
		if f.exp%q != 0 {
			return term{}, false
		}
		mono[i] = factor{a: f.a, exp: f.exp / q}
	}
	neg := t.coef.Sign() < 0
	if neg && q%2 == 0 {
		return term{}, false
	}
	n, ok := exactRoot(new(big.Int).Abs(t.coef.Num()), q)
	if !ok {
		return term{}, false
	}
	d, ok := exactRoot(t.coef.Denom(), q)
	if !ok {
		return term{}, false
	}
	coef := new(big.Rat).SetFrac(n, d)
	if neg {
		coef.Neg(coef)
	}
	return term{mono: mono, coef: coef}, true
}

// nonNegative reports whether every coefficient of p is positive and every
// atom is known to be nonnegative.
func (p *poly) nonNegative() bool {
	for _, t := range p.terms {
		if t.coef.Sign() < 0 || !allNonNegative(t.mono) {
			return false
		}
	}
	return true
}

// content returns the positive rational c such that p/c has coprime
// integer coefficients.
func (p *poly) content() *big.Rat {
	num, den := new(big.Int), big.NewInt(1)
	for _, t := range p.terms {
		num.GCD(nil, nil, num, new(big.Int).Abs(t.coef.Num()))
		d := t.coef.Denom()
		g := new(big.Int).GCD(nil, nil, den, d)
		den.Mul(den, new(big.Int).Quo(d, g))
	}
	if num.Sign() == 0 {
		return big.NewRat(1, 1)
	}
	return new(big.Rat).SetFrac(num, den)
}
