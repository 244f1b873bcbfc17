// Package engine is a deterministic symbolic math kernel used by the grader.
//
// Design goals:
//   - Exact rational arithmetic (math/big.Rat)
//   - Unevaluated expression trees straight from the parser, so a learner's
//     input can be echoed back exactly as it was read
//   - A canonical rational-function normal form for deciding equivalence
//   - Deterministic, stable output
package engine

import (
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// ============================================================
// Core Interface
// ============================================================

// Expr is an unevaluated expression tree node. Trees are immutable; every
// operation returns a new tree.
type Expr interface {
	String() string
	LaTeX() string
	Sub(varName string, value Expr) Expr
	Diff(varName string) Expr
	Equal(other Expr) bool
	exprType() string
}

// ============================================================
// Num — exact rational number
// ============================================================

type Num struct{ val *big.Rat }

var ratOne = big.NewRat(1, 1)

func N(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }
func F(p, q int64) *Num {
	if q == 0 {
		panic("engine: denominator is zero")
	}
	return &Num{val: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}
func NRat(r *big.Rat) *Num { return &Num{val: new(big.Rat).Set(r)} }

func (n *Num) Sub(string, Expr) Expr { return n }
func (n *Num) Diff(string) Expr      { return N(0) }
func (n *Num) Equal(other Expr) bool { o, ok := other.(*Num); return ok && n.val.Cmp(o.val) == 0 }
func (n *Num) exprType() string      { return "num" }
func (n *Num) Float64() float64      { f, _ := n.val.Float64(); return f }
func (n *Num) IsZero() bool          { return n.val.Sign() == 0 }
func (n *Num) IsOne() bool           { return n.val.Cmp(ratOne) == 0 }
func (n *Num) IsInteger() bool       { return n.val.IsInt() }
func (n *Num) IsNegative() bool      { return n.val.Sign() < 0 }
func (n *Num) Rat() *big.Rat         { return new(big.Rat).Set(n.val) }

func (n *Num) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	return n.val.RatString()
}

func (n *Num) LaTeX() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	sign := ""
	v := new(big.Rat).Set(n.val)
	if v.Sign() < 0 {
		sign = "-"
		v.Neg(v)
	}
	return fmt.Sprintf("%s\\frac{%s}{%s}", sign, v.Num().String(), v.Denom().String())
}

// ============================================================
// Float — decimal literal
// ============================================================

// Float is a decimal literal as typed. It keeps its source text for
// rendering; val holds the exact value of that text.
type Float struct {
	text string
	val  *big.Rat
}

// NFloat returns the decimal literal for the shortest representation of f.
func NFloat(f float64) *Float {
	text := strconv.FormatFloat(f, 'g', -1, 64)
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		r = new(big.Rat)
	}
	return &Float{text: text, val: r}
}

func floatLiteral(text string) (*Float, bool) {
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return nil, false
	}
	return &Float{text: text, val: r}, true
}

func (f *Float) String() string        { return f.text }
func (f *Float) LaTeX() string         { return f.text }
func (f *Float) Sub(string, Expr) Expr { return f }
func (f *Float) Diff(string) Expr      { return N(0) }
func (f *Float) Equal(other Expr) bool { o, ok := other.(*Float); return ok && f.val.Cmp(o.val) == 0 }
func (f *Float) exprType() string      { return "float" }
func (f *Float) Rat() *big.Rat         { return new(big.Rat).Set(f.val) }

// ============================================================
// Sym — symbolic variable
// ============================================================

type Sym struct {
	name   string
	assume Assumptions
	latex  string
}

func S(name string) *Sym { return &Sym{name: name} }

// SymWith returns a symbol carrying the given assumptions.
func SymWith(name string, a Assumptions) *Sym { return &Sym{name: name, assume: a} }

// SymDisplay returns a symbol that renders as latex in LaTeX output.
func SymDisplay(name, latex string) *Sym { return &Sym{name: name, latex: latex} }

func (s *Sym) String() string            { return s.name }
func (s *Sym) Name() string              { return s.name }
func (s *Sym) Assumptions() Assumptions  { return s.assume }
func (s *Sym) Equal(other Expr) bool     { o, ok := other.(*Sym); return ok && s.name == o.name }
func (s *Sym) exprType() string          { return "sym" }
func (s *Sym) Sub(varName string, value Expr) Expr {
	if s.name == varName {
		return value
	}
	return s
}
func (s *Sym) Diff(varName string) Expr {
	if s.name == varName {
		return N(1)
	}
	return N(0)
}

func (s *Sym) LaTeX() string {
	if s.latex != "" {
		return s.latex
	}
	return symbolLaTeX(s.name)
}

func symbolLaTeX(name string) string {
	if base, sub, ok := strings.Cut(name, "_"); ok && base != "" && sub != "" {
		return symbolLaTeX(base) + "_{" + symbolLaTeX(sub) + "}"
	}
	if isGreekName(name) {
		return "\\" + name
	}
	return name
}

// ============================================================
// Const — named mathematical constants
// ============================================================

type Const struct{ name string }

func Pi() *Const        { return &Const{name: "pi"} }
func ImagUnit() *Const  { return &Const{name: "I"} }
func (c *Const) String() string { return c.name }
func (c *Const) LaTeX() string {
	if c.name == "pi" {
		return "\\pi"
	}
	return "i"
}
func (c *Const) Sub(string, Expr) Expr { return c }
func (c *Const) Diff(string) Expr      { return N(0) }
func (c *Const) Equal(other Expr) bool { o, ok := other.(*Const); return ok && c.name == o.name }
func (c *Const) exprType() string      { return "const" }
func (c *Const) Name() string          { return c.name }

// ============================================================
// Add — sum of terms
// ============================================================

type Add struct{ terms []Expr }

// AddOf builds an unevaluated sum.
func AddOf(terms ...Expr) Expr {
	if len(terms) == 1 {
		return terms[0]
	}
	return &Add{terms: terms}
}

func (a *Add) String() string {
	if len(a.terms) == 0 {
		return "0"
	}
	var b strings.Builder
	for i, t := range a.terms {
		s := wrap(t, precAdd+1)
		if i == 0 {
			b.WriteString(s)
			continue
		}
		if rest, ok := strings.CutPrefix(s, "-"); ok {
			b.WriteString(" - ")
			b.WriteString(rest)
		} else {
			b.WriteString(" + ")
			b.WriteString(s)
		}
	}
	return b.String()
}

func (a *Add) LaTeX() string {
	var b strings.Builder
	for i, t := range a.terms {
		s := t.LaTeX()
		if _, nested := t.(*Add); nested {
			s = "\\left(" + s + "\\right)"
		}
		if i == 0 {
			b.WriteString(s)
			continue
		}
		if rest, ok := strings.CutPrefix(s, "-"); ok {
			b.WriteString(" - ")
			b.WriteString(rest)
		} else {
			b.WriteString(" + ")
			b.WriteString(s)
		}
	}
	return b.String()
}

func (a *Add) Sub(varName string, value Expr) Expr {
	newTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		newTerms[i] = t.Sub(varName, value)
	}
	return &Add{terms: newTerms}
}

func (a *Add) Diff(varName string) Expr {
	dTerms := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		dTerms[i] = t.Diff(varName)
	}
	return AddOf(dTerms...)
}

func (a *Add) Equal(other Expr) bool {
	o, ok := other.(*Add)
	if !ok || len(a.terms) != len(o.terms) {
		return false
	}
	for i := range a.terms {
		if !a.terms[i].Equal(o.terms[i]) {
			return false
		}
	}
	return true
}

func (a *Add) exprType() string { return "add" }
func (a *Add) Terms() []Expr    { return a.terms }

// ============================================================
// Mul — product of factors
// ============================================================

type Mul struct{ factors []Expr }

// MulOf builds an unevaluated product.
func MulOf(factors ...Expr) Expr {
	if len(factors) == 1 {
		return factors[0]
	}
	return &Mul{factors: factors}
}

// Neg returns -e, folding literal numbers.
func Neg(e Expr) Expr {
	if n, ok := e.(*Num); ok {
		return &Num{val: new(big.Rat).Neg(n.val)}
	}
	return &Mul{factors: []Expr{N(-1), e}}
}

// Minus returns the unevaluated difference a - b.
func Minus(a, b Expr) Expr { return &Add{terms: []Expr{a, Neg(b)}} }

// Quo returns the unevaluated quotient a / b.
func Quo(a, b Expr) Expr { return &Mul{factors: []Expr{a, &Pow{base: b, exp: N(-1)}}} }

// splitFraction separates the factors into numerator and denominator parts
// the way they are printed. sign is true when the product is negative.
func (m *Mul) splitFraction() (sign bool, nums, dens []Expr) {
	for i, f := range m.factors {
		switch v := f.(type) {
		case *Num:
			r := v.val
			if i == 0 && r.Sign() < 0 {
				sign = true
				r = new(big.Rat).Neg(r)
			}
			if !r.IsInt() {
				if r.Num().Cmp(big.NewInt(1)) != 0 {
					nums = append(nums, &Num{val: new(big.Rat).SetInt(r.Num())})
				}
				dens = append(dens, &Num{val: new(big.Rat).SetInt(r.Denom())})
				continue
			}
			if r.Cmp(ratOne) == 0 && len(m.factors) > 1 {
				continue
			}
			nums = append(nums, &Num{val: r})
		case *Pow:
			if e, ok := v.exp.(*Num); ok && e.IsNegative() {
				inv := new(big.Rat).Neg(e.val)
				if inv.Cmp(ratOne) == 0 {
					dens = append(dens, v.base)
				} else {
					dens = append(dens, &Pow{base: v.base, exp: &Num{val: inv}})
				}
				continue
			}
			nums = append(nums, f)
		default:
			nums = append(nums, f)
		}
	}
	return sign, nums, dens
}

func (m *Mul) String() string {
	if len(m.factors) == 0 {
		return "1"
	}
	sign, nums, dens := m.splitFraction()
	parts := make([]string, len(nums))
	for i, f := range nums {
		parts[i] = wrap(f, precMul)
	}
	out := strings.Join(parts, "*")
	if len(nums) == 0 {
		out = "1"
	}
	if len(dens) > 0 {
		ds := make([]string, len(dens))
		for i, f := range dens {
			ds[i] = wrap(f, precPow)
		}
		d := strings.Join(ds, "*")
		if len(dens) > 1 {
			d = "(" + d + ")"
		}
		out += "/" + d
	}
	if sign {
		return "-" + out
	}
	return out
}

func (m *Mul) LaTeX() string {
	if len(m.factors) == 0 {
		return "1"
	}
	sign, nums, dens := m.splitFraction()
	numStr := latexProduct(nums)
	out := numStr
	if len(dens) > 0 {
		out = "\\frac{" + numStr + "}{" + latexProduct(dens) + "}"
	}
	if sign {
		return "-" + out
	}
	return out
}

func latexProduct(fs []Expr) string {
	if len(fs) == 0 {
		return "1"
	}
	var b strings.Builder
	for i, f := range fs {
		s := f.LaTeX()
		if precedence(f) <= precAdd || (i > 0 && strings.HasPrefix(s, "-")) {
			s = "\\left(" + s + "\\right)"
		}
		if i > 0 {
			if s != "" && (s[0] >= '0' && s[0] <= '9') {
				b.WriteString(" \\cdot ")
			} else {
				b.WriteString(" ")
			}
		}
		b.WriteString(s)
	}
	return b.String()
}

func (m *Mul) Sub(varName string, value Expr) Expr {
	newFactors := make([]Expr, len(m.factors))
	for i, f := range m.factors {
		newFactors[i] = f.Sub(varName, value)
	}
	return &Mul{factors: newFactors}
}

func (m *Mul) Diff(varName string) Expr {
	terms := make([]Expr, len(m.factors))
	for i, fi := range m.factors {
		dfi := fi.Diff(varName)
		others := make([]Expr, 0, len(m.factors))
		others = append(others, dfi)
		for j, fj := range m.factors {
			if j != i {
				others = append(others, fj)
			}
		}
		terms[i] = MulOf(others...)
	}
	return AddOf(terms...)
}

func (m *Mul) Equal(other Expr) bool {
	o, ok := other.(*Mul)
	if !ok || len(m.factors) != len(o.factors) {
		return false
	}
	for i := range m.factors {
		if !m.factors[i].Equal(o.factors[i]) {
			return false
		}
	}
	return true
}

func (m *Mul) exprType() string { return "mul" }
func (m *Mul) Factors() []Expr  { return m.factors }

// ============================================================
// Pow — base**exponent
// ============================================================

type Pow struct{ base, exp Expr }

// PowOf builds an unevaluated power.
func PowOf(base, exp Expr) Expr { return &Pow{base: base, exp: exp} }
func SqrtOf(arg Expr) Expr      { return &Pow{base: arg, exp: F(1, 2)} }

func (p *Pow) isSqrt() bool {
	n, ok := p.exp.(*Num)
	return ok && n.val.Cmp(big.NewRat(1, 2)) == 0
}

func (p *Pow) String() string {
	if p.isSqrt() {
		return "sqrt(" + p.base.String() + ")"
	}
	exp := wrap(p.exp, precAtom)
	return wrap(p.base, precAtom) + "**" + exp
}

func (p *Pow) LaTeX() string {
	if n, ok := p.exp.(*Num); ok && !n.IsInteger() && n.val.Num().Cmp(big.NewInt(1)) == 0 {
		if p.isSqrt() {
			return "\\sqrt{" + p.base.LaTeX() + "}"
		}
		return "\\sqrt[" + n.val.Denom().String() + "]{" + p.base.LaTeX() + "}"
	}
	baseStr := p.base.LaTeX()
	if f, ok := p.base.(*Func); (ok && f.name == "exp") || precedence(p.base) < precAtom {
		baseStr = "\\left(" + baseStr + "\\right)"
	}
	return baseStr + "^{" + p.exp.LaTeX() + "}"
}

func (p *Pow) Sub(varName string, value Expr) Expr {
	return &Pow{base: p.base.Sub(varName, value), exp: p.exp.Sub(varName, value)}
}

func (p *Pow) Diff(varName string) Expr {
	du := p.base.Diff(varName)
	dv := p.exp.Diff(varName)
	if !dependsOn(p.exp, varName) {
		return MulOf(p.exp, PowOf(p.base, AddOf(p.exp, N(-1))), du)
	}
	if !dependsOn(p.base, varName) {
		return MulOf(PowOf(p.base, p.exp), FuncOf("log", p.base), dv)
	}
	logTerm := MulOf(dv, FuncOf("log", p.base))
	divTerm := MulOf(p.exp, du, PowOf(p.base, N(-1)))
	return MulOf(PowOf(p.base, p.exp), AddOf(logTerm, divTerm))
}

func (p *Pow) Equal(other Expr) bool {
	o, ok := other.(*Pow)
	return ok && p.base.Equal(o.base) && p.exp.Equal(o.exp)
}

func (p *Pow) exprType() string { return "pow" }
func (p *Pow) Base() Expr       { return p.base }
func (p *Pow) ExpExpr() Expr    { return p.exp }

// ============================================================
// Func — named function applications
// ============================================================

type Func struct {
	name string
	args []Expr
}

// FuncOf builds an unevaluated function application.
func FuncOf(name string, args ...Expr) *Func { return &Func{name: name, args: args} }
func AbsOf(arg Expr) Expr                     { return FuncOf("Abs", arg) }
func SinOf(arg Expr) Expr                     { return FuncOf("sin", arg) }
func CosOf(arg Expr) Expr                     { return FuncOf("cos", arg) }
func ExpOf(arg Expr) Expr                     { return FuncOf("exp", arg) }
func LogOf(arg Expr) Expr                     { return FuncOf("log", arg) }

func (f *Func) String() string {
	parts := make([]string, len(f.args))
	for i, a := range f.args {
		parts[i] = a.String()
	}
	return f.name + "(" + strings.Join(parts, ", ") + ")"
}

var latexFuncNames = map[string]string{
	"sin": "\\sin", "cos": "\\cos", "tan": "\\tan",
	"sec": "\\sec", "csc": "\\csc", "cot": "\\cot",
	"sinh": "\\sinh", "cosh": "\\cosh", "tanh": "\\tanh",
	"asin": "\\operatorname{asin}", "acos": "\\operatorname{acos}", "atan": "\\operatorname{atan}",
	"gamma": "\\Gamma", "zeta": "\\zeta", "beta": "\\operatorname{B}",
}

func (f *Func) LaTeX() string {
	inner := func(i int) string { return f.args[i].LaTeX() }
	switch f.name {
	case "Abs":
		return "\\left|" + inner(0) + "\\right|"
	case "exp":
		return "e^{" + inner(0) + "}"
	case "log":
		if len(f.args) == 2 {
			return "\\log_{" + inner(1) + "}{\\left(" + inner(0) + "\\right)}"
		}
		return "\\log{\\left(" + inner(0) + "\\right)}"
	case "floor":
		return "\\left\\lfloor{" + inner(0) + "}\\right\\rfloor"
	case "ceiling":
		return "\\left\\lceil{" + inner(0) + "}\\right\\rceil"
	case "Derivative":
		if len(f.args) >= 2 {
			return "\\frac{d}{d " + inner(1) + "} " + wrapLaTeX(f.args[0])
		}
	}
	parts := make([]string, len(f.args))
	for i := range f.args {
		parts[i] = inner(i)
	}
	name, ok := latexFuncNames[f.name]
	if !ok {
		name = "\\operatorname{" + f.name + "}"
	}
	return name + "{\\left(" + strings.Join(parts, ", ") + "\\right)}"
}

func wrapLaTeX(e Expr) string {
	if precedence(e) <= precAdd {
		return "\\left(" + e.LaTeX() + "\\right)"
	}
	return e.LaTeX()
}

func (f *Func) Sub(varName string, value Expr) Expr {
	if f.name == "Derivative" && len(f.args) >= 2 {
		for _, v := range f.args[1:] {
			if s, ok := v.(*Sym); ok && s.name == varName {
				return evalDerivative(f).Sub(varName, value)
			}
		}
	}
	args := make([]Expr, len(f.args))
	for i, a := range f.args {
		args[i] = a.Sub(varName, value)
	}
	return &Func{name: f.name, args: args}
}

func (f *Func) Diff(varName string) Expr {
	if f.name == "Derivative" {
		return FuncOf("Derivative", f, S(varName))
	}
	if f.name == "log" && len(f.args) == 2 {
		return Quo(LogOf(f.args[0]), LogOf(f.args[1])).Diff(varName)
	}
	if len(f.args) != 1 {
		return FuncOf("Derivative", f, S(varName))
	}
	u := f.args[0]
	du := u.Diff(varName)
	var outer Expr
	switch f.name {
	case "sin":
		outer = CosOf(u)
	case "cos":
		outer = Neg(SinOf(u))
	case "tan":
		outer = AddOf(N(1), PowOf(FuncOf("tan", u), N(2)))
	case "sec":
		outer = MulOf(FuncOf("sec", u), FuncOf("tan", u))
	case "csc":
		outer = Neg(MulOf(FuncOf("csc", u), FuncOf("cot", u)))
	case "cot":
		outer = Neg(AddOf(N(1), PowOf(FuncOf("cot", u), N(2))))
	case "exp":
		outer = ExpOf(u)
	case "log":
		outer = PowOf(u, N(-1))
	case "asin":
		outer = PowOf(Minus(N(1), PowOf(u, N(2))), F(-1, 2))
	case "acos":
		outer = Neg(PowOf(Minus(N(1), PowOf(u, N(2))), F(-1, 2)))
	case "atan":
		outer = PowOf(AddOf(N(1), PowOf(u, N(2))), N(-1))
	case "sinh":
		outer = FuncOf("cosh", u)
	case "cosh":
		outer = FuncOf("sinh", u)
	case "tanh":
		outer = Minus(N(1), PowOf(FuncOf("tanh", u), N(2)))
	case "Abs":
		outer = FuncOf("sign", u)
	case "sign", "floor", "ceiling":
		return N(0)
	default:
		return FuncOf("Derivative", f, S(varName))
	}
	return MulOf(outer, du)
}

func (f *Func) Equal(other Expr) bool {
	o, ok := other.(*Func)
	if !ok || f.name != o.name || len(f.args) != len(o.args) {
		return false
	}
	for i := range f.args {
		if !f.args[i].Equal(o.args[i]) {
			return false
		}
	}
	return true
}

func (f *Func) exprType() string { return "func" }
func (f *Func) FuncName() string { return f.name }
func (f *Func) Args() []Expr     { return f.args }

// evalDerivative applies d/dv for every variable of a Derivative node.
func evalDerivative(f *Func) Expr {
	e := f.args[0]
	for _, v := range f.args[1:] {
		s, ok := v.(*Sym)
		if !ok {
			return f
		}
		e = e.Diff(s.name)
	}
	return e
}

// ============================================================
// Equation
// ============================================================

type Equation struct{ LHS, RHS Expr }

func Eq(lhs, rhs Expr) *Equation { return &Equation{LHS: lhs, RHS: rhs} }
func (e *Equation) String() string {
	return e.LHS.String() + " = " + e.RHS.String()
}
func (e *Equation) LaTeX() string { return e.LHS.LaTeX() + " = " + e.RHS.LaTeX() }
func (e *Equation) Sub(varName string, value Expr) Expr {
	return &Equation{LHS: e.LHS.Sub(varName, value), RHS: e.RHS.Sub(varName, value)}
}
func (e *Equation) Diff(varName string) Expr {
	return &Equation{LHS: e.LHS.Diff(varName), RHS: e.RHS.Diff(varName)}
}
func (e *Equation) Equal(other Expr) bool {
	o, ok := other.(*Equation)
	return ok && e.LHS.Equal(o.LHS) && e.RHS.Equal(o.RHS)
}
func (e *Equation) exprType() string { return "equation" }

// Residual returns LHS - RHS.
func (e *Equation) Residual() Expr { return Minus(e.LHS, e.RHS) }

// ============================================================
// Printing precedence
// ============================================================

const (
	precEq = iota
	precAdd
	precMul
	precPow
	precAtom
)

func precedence(e Expr) int {
	switch v := e.(type) {
	case *Equation:
		return precEq
	case *Add:
		return precAdd
	case *Mul:
		return precMul
	case *Pow:
		if v.isSqrt() {
			return precAtom
		}
		return precPow
	case *Num:
		if v.val.Sign() < 0 || !v.val.IsInt() {
			return precMul
		}
	case *Float:
		if v.val.Sign() < 0 {
			return precMul
		}
	}
	return precAtom
}

func wrap(e Expr, min int) string {
	if precedence(e) < min {
		return "(" + e.String() + ")"
	}
	return e.String()
}

// ============================================================
// Free Symbols
// ============================================================

func FreeSymbols(e Expr) map[string]struct{} {
	result := map[string]struct{}{}
	collectSymbols(e, result)
	return result
}

// SortedFreeSymbols returns the free symbol names in lexical order.
func SortedFreeSymbols(e Expr) []string {
	set := FreeSymbols(e)
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func collectSymbols(e Expr, out map[string]struct{}) {
	switch v := e.(type) {
	case *Sym:
		out[v.name] = struct{}{}
	case *Add:
		for _, t := range v.terms {
			collectSymbols(t, out)
		}
	case *Mul:
		for _, f := range v.factors {
			collectSymbols(f, out)
		}
	case *Pow:
		collectSymbols(v.base, out)
		collectSymbols(v.exp, out)
	case *Func:
		for _, a := range v.args {
			collectSymbols(a, out)
		}
	case *Equation:
		collectSymbols(v.LHS, out)
		collectSymbols(v.RHS, out)
	}
}

func dependsOn(e Expr, name string) bool {
	_, ok := FreeSymbols(e)[name]
	return ok
}

// Sub substitutes value for every occurrence of the symbol varName.
func Sub(expr Expr, varName string, value Expr) Expr { return expr.Sub(varName, value) }

// Diff returns the unevaluated derivative of expr with respect to varName.
func Diff(expr Expr, varName string) Expr { return expr.Diff(varName) }
