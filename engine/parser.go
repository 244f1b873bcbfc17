package engine

import (
	"math/big"
	"sort"
	"strings"
	"unicode/utf8"
)

// ============================================================
// Parser
// ============================================================

// ParseOptions controls how Parse reads an input string.
//
// In loose mode `^` denotes exponentiation, juxtaposition denotes
// multiplication and unknown multi-letter names are split into single-letter
// symbols. In strict mode none of that applies and `^` is integer XOR.
type ParseOptions struct {
	Strict           bool
	ComplexNumbers   bool
	SpecialFunctions bool
	// Symbols binds names to specific symbols, usually ones carrying
	// assumptions. Bound names are never split.
	Symbols map[string]*Sym
	// Unsplittable lists multi-character names that always read as a single
	// plain symbol.
	Unsplittable []string
}

const maxNesting = 500

type parser struct {
	toks    []token
	pos     int
	depth   int
	opts    ParseOptions
	unsplit map[string]bool
}

// Parse reads src into an unevaluated expression tree. A single top-level
// `=` produces an *Equation.
func Parse(src string, opts ParseOptions) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errorAt(0, "empty expression")
	}
	toks, err := tokenize(src)
	if err != nil {
		return nil, err
	}
	p := &parser{opts: opts, unsplit: map[string]bool{}}
	for _, u := range opts.Unsplittable {
		p.unsplit[u] = true
	}
	if !opts.Strict {
		toks = p.expandNames(toks)
	}
	p.toks = toks
	return p.parseTop()
}

// MustParse is Parse in loose mode that panics on error. Intended for tests
// and examples.
func MustParse(src string) Expr {
	e, err := Parse(src, ParseOptions{})
	if err != nil {
		panic(err)
	}
	return e
}

func (p *parser) expandNames(toks []token) []token {
	codes := make([]string, 0, len(p.unsplit))
	for u := range p.unsplit {
		codes = append(codes, u)
	}
	// Longest codes first; ties broken lexically so splitting is deterministic.
	sort.Slice(codes, func(i, j int) bool {
		if len(codes[i]) != len(codes[j]) {
			return len(codes[i]) > len(codes[j])
		}
		return codes[i] < codes[j]
	})
	out := make([]token, 0, len(toks))
	for _, t := range toks {
		if t.kind == tokName && p.splittable(t.text) {
			out = append(out, splitName(t, codes)...)
			continue
		}
		out = append(out, t)
	}
	return out
}

func (p *parser) splittable(name string) bool {
	if utf8.RuneCountInString(name) < 2 || strings.Contains(name, "_") {
		return false
	}
	if _, ok := knownFunctions[name]; ok {
		return false
	}
	if _, ok := specialFunctions[name]; ok {
		return false
	}
	if _, ok := p.opts.Symbols[name]; ok {
		return false
	}
	return !p.unsplit[name] && !alwaysSymbols[name] && name != "pi" && !isGreekName(name)
}

func (p *parser) peek() token { return p.toks[p.pos] }

func (p *parser) next() token {
	t := p.toks[p.pos]
	if t.kind != tokEOF {
		p.pos++
	}
	return t
}

func (p *parser) isOp(op string) bool {
	t := p.peek()
	return t.kind == tokOp && t.text == op
}

func (p *parser) expect(kind tokenKind, what string) error {
	t := p.next()
	if t.kind != kind {
		return errorAt(t.pos, "expected %s, found %s", what, t)
	}
	return nil
}

func (p *parser) parseTop() (Expr, error) {
	lhs, err := p.parseXor()
	if err != nil {
		return nil, err
	}
	if p.isOp("=") {
		p.next()
		rhs, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		if t := p.peek(); t.kind != tokEOF {
			return nil, errorAt(t.pos, "unexpected %s", t)
		}
		return Eq(lhs, rhs), nil
	}
	if t := p.peek(); t.kind != tokEOF {
		return nil, errorAt(t.pos, "unexpected %s", t)
	}
	return lhs, nil
}

func (p *parser) parseXor() (Expr, error) {
	left, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.opts.Strict && p.isOp("^") {
		op := p.next()
		right, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		a, okA := integerLiteral(left)
		b, okB := integerLiteral(right)
		if !okA || !okB {
			return nil, errorAt(op.pos, "unsupported operands for ^")
		}
		left = &Num{val: new(big.Rat).SetInt(new(big.Int).Xor(a, b))}
	}
	return left, nil
}

func integerLiteral(e Expr) (*big.Int, bool) {
	n, ok := e.(*Num)
	if !ok || !n.val.IsInt() {
		return nil, false
	}
	return new(big.Int).Set(n.val.Num()), true
}

func (p *parser) parseAdditive() (Expr, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	terms := []Expr{first}
	for p.isOp("+") || p.isOp("-") {
		op := p.next()
		t, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if op.text == "-" {
			t = Neg(t)
		}
		terms = append(terms, t)
	}
	return AddOf(terms...), nil
}

func (p *parser) parseTerm() (Expr, error) {
	negated := p.isOp("-")
	f, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	factors := []Expr{f}
	for {
		t := p.peek()
		switch {
		case t.kind == tokOp && t.text == "*":
			p.next()
			g, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			factors = append(factors, g)
		case t.kind == tokOp && t.text == "/":
			p.next()
			g, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			factors = append(factors, &Pow{base: g, exp: N(-1)})
		case !p.opts.Strict && startsOperand(t):
			g, err := p.parsePower()
			if err != nil {
				return nil, err
			}
			factors = append(factors, g)
		default:
			if len(factors) > 1 && negated {
				if m, ok := factors[0].(*Mul); ok && len(m.factors) == 2 {
					factors = append([]Expr{m.factors[0], m.factors[1]}, factors[1:]...)
				}
			}
			return MulOf(factors...), nil
		}
	}
}

func startsOperand(t token) bool {
	return t.kind == tokNumber || t.kind == tokName || t.kind == tokLParen
}

func (p *parser) parseUnary() (Expr, error) {
	switch {
	case p.isOp("-"):
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Neg(operand), nil
	case p.isOp("+"):
		p.next()
		return p.parseUnary()
	}
	return p.parsePower()
}

func (p *parser) parsePower() (Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	if p.isOp("**") || (!p.opts.Strict && p.isOp("^")) {
		p.next()
		exp, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &Pow{base: base, exp: exp}, nil
	}
	return base, nil
}

func (p *parser) parsePrimary() (Expr, error) {
	p.depth++
	defer func() { p.depth-- }()
	t := p.next()
	if p.depth > maxNesting {
		return nil, errorAt(t.pos, "expression is nested too deeply")
	}
	switch t.kind {
	case tokNumber:
		return numberLiteral(t)
	case tokLParen:
		inner, err := p.parseXor()
		if err != nil {
			return nil, err
		}
		if err := p.expect(tokRParen, "')'"); err != nil {
			return nil, err
		}
		return inner, nil
	case tokName:
		return p.parseName(t)
	}
	return nil, errorAt(t.pos, "unexpected %s", t)
}

func numberLiteral(t token) (Expr, error) {
	if strings.ContainsAny(t.text, ".eE") {
		f, ok := floatLiteral(t.text)
		if !ok {
			return nil, errorAt(t.pos, "invalid number %q", t.text)
		}
		return f, nil
	}
	n, ok := new(big.Int).SetString(t.text, 10)
	if !ok {
		return nil, errorAt(t.pos, "invalid number %q", t.text)
	}
	return &Num{val: new(big.Rat).SetInt(n)}, nil
}

func (p *parser) parseName(t token) (Expr, error) {
	name := t.text
	if s, ok := p.opts.Symbols[name]; ok {
		return s, nil
	}
	if p.unsplit[name] {
		return S(name), nil
	}
	followedByCall := p.peek().kind == tokLParen
	if fn, ok := knownFunctions[name]; ok {
		if !followedByCall {
			return nil, errorAt(t.pos, "function %s must be followed by an argument list", name)
		}
		return p.parseCall(t, fn.name, fn.min, fn.max)
	}
	if fn, ok := specialFunctions[name]; ok {
		if p.opts.SpecialFunctions && followedByCall {
			return p.parseCall(t, fn.name, fn.min, fn.max)
		}
		return S(name), nil
	}
	switch {
	case name == "pi":
		return Pi(), nil
	case name == "I" && p.opts.ComplexNumbers:
		return ImagUnit(), nil
	case alwaysSymbols[name] || name == "I":
		return S(name), nil
	}
	if p.opts.Strict && followedByCall {
		return p.parseCall(t, name, 1, -1)
	}
	return S(name), nil
}

func (p *parser) parseCall(at token, name string, minArgs, maxArgs int) (Expr, error) {
	if err := p.expect(tokLParen, "'('"); err != nil {
		return nil, err
	}
	var args []Expr
	if p.peek().kind != tokRParen {
		for {
			a, err := p.parseXor()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
			if p.peek().kind != tokComma {
				break
			}
			p.next()
		}
	}
	if err := p.expect(tokRParen, "')'"); err != nil {
		return nil, err
	}
	if len(args) < minArgs || (maxArgs >= 0 && len(args) > maxArgs) {
		return nil, errorAt(at.pos, "wrong number of arguments for %s", name)
	}
	switch name {
	case "sqrt":
		return SqrtOf(args[0]), nil
	case "Derivative":
		for _, v := range args[1:] {
			if _, ok := v.(*Sym); !ok {
				return nil, errorAt(at.pos, "derivative variables must be symbols")
			}
		}
	}
	return FuncOf(name, args...), nil
}
