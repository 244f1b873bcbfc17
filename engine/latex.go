package engine

import (
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ============================================================
// LaTeX input
// ============================================================

type ltxKind int

const (
	ltxEOF ltxKind = iota
	ltxCmd
	ltxChar
	ltxNumber
	ltxLetter
)

type ltxToken struct {
	kind ltxKind
	text string
	pos  int
}

func (t ltxToken) is(kind ltxKind, text string) bool { return t.kind == kind && t.text == text }

var latexSpacing = map[string]bool{
	`\,`: true, `\;`: true, `\:`: true, `\!`: true, `\ `: true,
	`\quad`: true, `\qquad`: true, `\displaystyle`: true,
}

func tokenizeLaTeX(src string) ([]ltxToken, error) {
	var toks []ltxToken
	i := 0
	for i < len(src) {
		c := src[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '~':
			i++
		case c == '\\':
			start := i
			i++
			for i < len(src) && ((src[i] >= 'a' && src[i] <= 'z') || (src[i] >= 'A' && src[i] <= 'Z')) {
				i++
			}
			if i == start+1 {
				if i >= len(src) {
					return nil, errorAt(start, "dangling backslash")
				}
				i++
			}
			cmd := src[start:i]
			if !latexSpacing[cmd] {
				toks = append(toks, ltxToken{kind: ltxCmd, text: cmd, pos: start})
			}
		case isDigit(c) || (c == '.' && i+1 < len(src) && isDigit(src[i+1])):
			start := i
			for i < len(src) && isDigit(src[i]) {
				i++
			}
			if i < len(src) && src[i] == '.' {
				i++
				for i < len(src) && isDigit(src[i]) {
					i++
				}
			}
			toks = append(toks, ltxToken{kind: ltxNumber, text: src[start:i], pos: start})
		default:
			r, size := utf8.DecodeRuneInString(src[i:])
			kind := ltxChar
			if unicode.IsLetter(r) {
				kind = ltxLetter
			}
			toks = append(toks, ltxToken{kind: kind, text: src[i : i+size], pos: i})
			i += size
		}
	}
	toks = append(toks, ltxToken{kind: ltxEOF, pos: len(src)})
	return toks, nil
}

var latexFunctions = map[string]string{
	`\sin`: "sin", `\cos`: "cos", `\tan`: "tan",
	`\sec`: "sec", `\csc`: "csc", `\cot`: "cot",
	`\arcsin`: "asin", `\arccos`: "acos", `\arctan`: "atan",
	`\sinh`: "sinh", `\cosh`: "cosh", `\tanh`: "tanh",
	`\exp`: "exp", `\ln`: "log", `\log`: "log",
}

var inverseTrig = map[string]string{"sin": "asin", "cos": "acos", "tan": "atan"}

var latexGreekAliases = map[string]string{
	`\varepsilon`: "epsilon", `\vartheta`: "theta", `\varphi`: "phi",
	`\varrho`: "rho", `\varsigma`: "sigma",
}

var latexStoppers = map[string]bool{
	`\right`: true, `\cdot`: true, `\times`: true, `\div`: true,
	`\pm`: true, `\mp`: true, `\}`: true,
}

type latexParser struct {
	toks     []ltxToken
	pos      int
	absDepth int
	depth    int
}

// ParseLaTeX reads a LaTeX math fragment into an unevaluated expression.
// Single letters are separate symbols and juxtaposition is multiplication.
func ParseLaTeX(src string) (Expr, error) {
	if strings.TrimSpace(src) == "" {
		return nil, errorAt(0, "empty expression")
	}
	toks, err := tokenizeLaTeX(src)
	if err != nil {
		return nil, err
	}
	p := &latexParser{toks: toks}
	lhs, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.peek().is(ltxChar, "=") {
		p.next()
		rhs, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		lhs = Eq(lhs, rhs)
	}
	if t := p.peek(); t.kind != ltxEOF {
		return nil, errorAt(t.pos, "unexpected %q", t.text)
	}
	return lhs, nil
}

// LaTeXToText translates LaTeX into the plain-text syntax accepted by Parse.
func LaTeXToText(src string) (string, error) {
	e, err := ParseLaTeX(src)
	if err != nil {
		return "", err
	}
	return e.String(), nil
}

func (p *latexParser) peek() ltxToken { return p.toks[p.pos] }

func (p *latexParser) next() ltxToken {
	t := p.toks[p.pos]
	if t.kind != ltxEOF {
		p.pos++
	}
	return t
}

func (p *latexParser) expectChar(c string) error {
	t := p.next()
	if !t.is(ltxChar, c) {
		return errorAt(t.pos, "expected %q", c)
	}
	return nil
}

func (p *latexParser) parseExpr() (Expr, error) {
	first, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	terms := []Expr{first}
	for p.peek().is(ltxChar, "+") || p.peek().is(ltxChar, "-") {
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

func (p *latexParser) parseTerm() (Expr, error) {
	f, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	factors := []Expr{f}
	for {
		t := p.peek()
		switch {
		case t.is(ltxChar, "*") || t.is(ltxCmd, `\cdot`) || t.is(ltxCmd, `\times`):
			p.next()
			g, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			factors = append(factors, g)
		case t.is(ltxChar, "/") || t.is(ltxCmd, `\div`):
			p.next()
			g, err := p.parseUnary()
			if err != nil {
				return nil, err
			}
			factors = append(factors, &Pow{base: g, exp: N(-1)})
		case p.startsPrimary(t):
			g, err := p.parsePostfix()
			if err != nil {
				return nil, err
			}
			factors = append(factors, g)
		default:
			return MulOf(factors...), nil
		}
	}
}

func (p *latexParser) startsPrimary(t ltxToken) bool {
	switch t.kind {
	case ltxNumber, ltxLetter:
		return true
	case ltxCmd:
		return !latexStoppers[t.text]
	case ltxChar:
		switch t.text {
		case "(", "[", "{":
			return true
		case "|":
			return p.absDepth == 0
		}
	}
	return false
}

func (p *latexParser) parseUnary() (Expr, error) {
	switch {
	case p.peek().is(ltxChar, "-"):
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Neg(operand), nil
	case p.peek().is(ltxChar, "+"):
		p.next()
		return p.parseUnary()
	}
	return p.parsePostfix()
}

func (p *latexParser) parsePostfix() (Expr, error) {
	base, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.peek()
		switch {
		case t.is(ltxChar, "^"):
			p.next()
			exp, err := p.parseScript()
			if err != nil {
				return nil, err
			}
			if s, ok := base.(*Sym); ok && s.name == "e" {
				base = ExpOf(exp)
			} else {
				base = &Pow{base: base, exp: exp}
			}
		case t.is(ltxChar, "_"):
			s, ok := base.(*Sym)
			if !ok {
				return nil, errorAt(t.pos, "subscript on non-symbol")
			}
			p.next()
			sub, err := p.parseScriptText()
			if err != nil {
				return nil, err
			}
			base = S(s.name + "_" + sub)
		default:
			return base, nil
		}
	}
}

// parseScript reads a superscript: a braced group or a single token.
func (p *latexParser) parseScript() (Expr, error) {
	t := p.peek()
	switch {
	case t.is(ltxChar, "{"):
		return p.parsePrimary()
	case t.kind == ltxNumber:
		p.next()
		// x^23 is x^{2}3 in LaTeX.
		if len(t.text) > 1 {
			p.toks[p.pos-1] = ltxToken{kind: ltxNumber, text: t.text[1:], pos: t.pos + 1}
			p.pos--
		}
		return latexNumber(ltxToken{kind: ltxNumber, text: t.text[:1], pos: t.pos})
	case t.is(ltxChar, "-"):
		p.next()
		e, err := p.parseScript()
		if err != nil {
			return nil, err
		}
		return Neg(e), nil
	}
	return p.parsePrimary()
}

// parseScriptText reads a subscript as plain text for use in a symbol name.
func (p *latexParser) parseScriptText() (string, error) {
	t := p.next()
	switch t.kind {
	case ltxLetter, ltxNumber:
		return t.text, nil
	case ltxCmd:
		return strings.TrimPrefix(t.text, `\`), nil
	}
	if !t.is(ltxChar, "{") {
		return "", errorAt(t.pos, "invalid subscript")
	}
	var b strings.Builder
	for {
		t = p.next()
		switch {
		case t.kind == ltxEOF:
			return "", errorAt(t.pos, "unclosed subscript")
		case t.is(ltxChar, "}"):
			if b.Len() == 0 {
				return "", errorAt(t.pos, "empty subscript")
			}
			return b.String(), nil
		case t.kind == ltxCmd:
			b.WriteString(strings.TrimPrefix(t.text, `\`))
		default:
			b.WriteString(t.text)
		}
	}
}

func latexNumber(t ltxToken) (Expr, error) {
	if strings.Contains(t.text, ".") {
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

func (p *latexParser) parseGroup(open, close string) (Expr, error) {
	p.next()
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if err := p.expectChar(close); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *latexParser) parsePrimary() (Expr, error) {
	p.depth++
	defer func() { p.depth-- }()
	t := p.peek()
	if p.depth > maxNesting {
		return nil, errorAt(t.pos, "expression is nested too deeply")
	}
	switch t.kind {
	case ltxNumber:
		p.next()
		return latexNumber(t)
	case ltxLetter:
		p.next()
		return S(t.text), nil
	case ltxChar:
		switch t.text {
		case "(":
			return p.parseGroup("(", ")")
		case "[":
			return p.parseGroup("[", "]")
		case "{":
			return p.parseGroup("{", "}")
		case "|":
			p.next()
			p.absDepth++
			e, err := p.parseExpr()
			p.absDepth--
			if err != nil {
				return nil, err
			}
			if err := p.expectChar("|"); err != nil {
				return nil, err
			}
			return AbsOf(e), nil
		}
	case ltxCmd:
		return p.parseCommand()
	}
	return nil, errorAt(t.pos, "unexpected %q", t.text)
}

func (p *latexParser) parseCommand() (Expr, error) {
	t := p.next()
	cmd := t.text
	if name, ok := latexFunctions[cmd]; ok {
		return p.parseFunction(name)
	}
	if name, ok := latexGreekAliases[cmd]; ok {
		return S(name), nil
	}
	switch cmd {
	case `\left`:
		return p.parseLeft()
	case `\frac`, `\dfrac`, `\tfrac`:
		return p.parseFrac()
	case `\sqrt`:
		return p.parseSqrt()
	case `\pi`:
		return Pi(), nil
	case `\partial`:
		return S("d"), nil
	case `\operatorname`, `\mathrm`, `\text`, `\mathit`:
		name, err := p.parseScriptText()
		if err != nil {
			return nil, err
		}
		if fn, ok := knownFunctions[name]; ok {
			return p.parseFunction(fn.name)
		}
		return S(name), nil
	case `\infty`:
		return nil, errorAt(t.pos, "infinity is not supported")
	}
	if name := strings.TrimPrefix(cmd, `\`); isGreekName(name) {
		return S(name), nil
	}
	return nil, errorAt(t.pos, "unsupported command %s", cmd)
}

func (p *latexParser) parseLeft() (Expr, error) {
	d := p.next()
	var closer string
	switch d.text {
	case "(":
		closer = ")"
	case "[":
		closer = "]"
	case `\{`:
		closer = `\}`
	case "|":
		closer = "|"
	case ".":
		closer = ""
	default:
		return nil, errorAt(d.pos, "unsupported delimiter %q", d.text)
	}
	saved := p.absDepth
	p.absDepth = 0
	e, err := p.parseExpr()
	p.absDepth = saved
	if err != nil {
		return nil, err
	}
	r := p.next()
	if !r.is(ltxCmd, `\right`) {
		return nil, errorAt(r.pos, `expected \right`)
	}
	c := p.next()
	if closer != "" && c.text != closer {
		return nil, errorAt(c.pos, "mismatched delimiter %q", c.text)
	}
	if closer == "|" {
		return AbsOf(e), nil
	}
	return e, nil
}

func (p *latexParser) parseBraced() (Expr, error) {
	if !p.peek().is(ltxChar, "{") {
		return p.parseScript()
	}
	return p.parseGroup("{", "}")
}

func (p *latexParser) parseFrac() (Expr, error) {
	num, err := p.parseBraced()
	if err != nil {
		return nil, err
	}
	den, err := p.parseBraced()
	if err != nil {
		return nil, err
	}
	if v, ok := derivativeOperator(num, den); ok {
		operand, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		return FuncOf("Derivative", operand, v), nil
	}
	return Quo(num, den), nil
}

// derivativeOperator recognises the d/dv operator written as \frac{d}{dv}.
func derivativeOperator(num, den Expr) (*Sym, bool) {
	d, ok := num.(*Sym)
	if !ok || d.name != "d" {
		return nil, false
	}
	m, ok := den.(*Mul)
	if !ok || len(m.factors) != 2 {
		return nil, false
	}
	if d2, ok := m.factors[0].(*Sym); !ok || d2.name != "d" {
		return nil, false
	}
	v, ok := m.factors[1].(*Sym)
	return v, ok
}

func (p *latexParser) parseSqrt() (Expr, error) {
	var index Expr
	if p.peek().is(ltxChar, "[") {
		var err error
		index, err = p.parseGroup("[", "]")
		if err != nil {
			return nil, err
		}
	}
	arg, err := p.parseBraced()
	if err != nil {
		return nil, err
	}
	if index == nil {
		return SqrtOf(arg), nil
	}
	if n, ok := index.(*Num); ok && n.IsInteger() && !n.IsZero() {
		return &Pow{base: arg, exp: &Num{val: new(big.Rat).Inv(n.val)}}, nil
	}
	return &Pow{base: arg, exp: &Pow{base: index, exp: N(-1)}}, nil
}

func (p *latexParser) parseFunction(name string) (Expr, error) {
	var power, logBase Expr
	for {
		t := p.peek()
		if t.is(ltxChar, "^") && power == nil {
			p.next()
			e, err := p.parseScript()
			if err != nil {
				return nil, err
			}
			power = e
			continue
		}
		if t.is(ltxChar, "_") && name == "log" && logBase == nil {
			p.next()
			e, err := p.parseScript()
			if err != nil {
				return nil, err
			}
			logBase = e
			continue
		}
		break
	}
	if n, ok := power.(*Num); ok && n.val.Cmp(big.NewRat(-1, 1)) == 0 {
		if inv, ok := inverseTrig[name]; ok {
			name, power = inv, nil
		}
	}
	arg, err := p.parseFunctionArg()
	if err != nil {
		return nil, err
	}
	var f Expr = FuncOf(name, arg)
	if logBase != nil {
		f = FuncOf(name, arg, logBase)
	}
	if power != nil {
		f = &Pow{base: f, exp: power}
	}
	return f, nil
}

// parseFunctionArg reads a delimited argument, or else the implicit product
// that follows a function name as in \sin 2x.
func (p *latexParser) parseFunctionArg() (Expr, error) {
	t := p.peek()
	if t.is(ltxChar, "(") || t.is(ltxChar, "{") || t.is(ltxChar, "[") || t.is(ltxCmd, `\left`) {
		return p.parsePrimary()
	}
	var factors []Expr
	for {
		t = p.peek()
		if !p.startsPrimary(t) || (t.kind == ltxCmd && latexFunctions[t.text] != "") {
			break
		}
		g, err := p.parsePostfix()
		if err != nil {
			return nil, err
		}
		factors = append(factors, g)
	}
	if len(factors) == 0 {
		return nil, errorAt(t.pos, "missing function argument")
	}
	return MulOf(factors...), nil
}
