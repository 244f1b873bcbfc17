package symgrade

import (
	"github.com/njchilds90/symgrade/engine"
)

// ============================================================
// Symbolic engine interface
// ============================================================

// ParseConfig controls how an Engine reads expression text.
type ParseConfig struct {
	// Strict disables implicit multiplication, name splitting and `^` as
	// exponentiation.
	Strict           bool
	ComplexNumbers   bool
	SpecialFunctions bool
	// Unsplittable names always read as one plain symbol.
	Unsplittable []string
	Assumptions  []SymbolAssumption
}

// Engine parses expressions for the checker.
type Engine interface {
	Parse(text string, cfg ParseConfig) (Expression, error)
	LaTeXToText(latex string) (string, error)
	// Number returns the exact rational num/den.
	Number(num, den int64) Expression
	// Symbol returns the plain symbol name, shown in LaTeX as latex when
	// latex is not empty.
	Symbol(name, latex string) Expression
	SupportsAssumption(name string) bool
}

// Expression is a parsed expression or equality. Methods taking another
// Expression expect one produced by the same Engine.
type Expression interface {
	IsEquality() bool
	// Sides returns both sides of an equality, or the expression and nil.
	Sides() (lhs, rhs Expression)
	FreeSymbols() []string
	IsConstant() bool
	Subs(name string, value Expression) Expression
	SubsFloat(name string, v float64) Expression
	Simplify() (Expression, error)
	// Rationalize replaces decimal literals with exact rationals.
	Rationalize() (Expression, error)
	Sub(other Expression) Expression
	Div(other Expression) Expression
	IsZero() (bool, error)
	IsNonzeroConstant() (bool, error)
	Numeric() (complex128, error)
	Equal(other Expression) bool
	LaTeX() string
	String() string
}

// ============================================================
// Default engine
// ============================================================

type symEngine struct{}

// DefaultEngine returns the engine backed by package engine.
func DefaultEngine() Engine { return symEngine{} }

func (symEngine) Parse(text string, cfg ParseConfig) (Expression, error) {
	opts := engine.ParseOptions{
		Strict:           cfg.Strict,
		ComplexNumbers:   cfg.ComplexNumbers,
		SpecialFunctions: cfg.SpecialFunctions,
		Unsplittable:     cfg.Unsplittable,
	}
	if len(cfg.Assumptions) > 0 {
		flags := map[string]engine.Assumptions{}
		var order []string
		for _, sa := range cfg.Assumptions {
			a, ok := engine.ParseAssumption(sa.Assumption)
			if !ok {
				continue
			}
			if _, seen := flags[sa.Symbol]; !seen {
				order = append(order, sa.Symbol)
			}
			flags[sa.Symbol] |= a
		}
		opts.Symbols = make(map[string]*engine.Sym, len(order))
		for _, name := range order {
			opts.Symbols[name] = engine.SymWith(name, flags[name])
		}
	}
	e, err := engine.Parse(text, opts)
	if err != nil {
		return nil, err
	}
	return casExpr{e}, nil
}

func (symEngine) LaTeXToText(latex string) (string, error) { return engine.LaTeXToText(latex) }

func (symEngine) Number(num, den int64) Expression { return casExpr{engine.F(num, den)} }

func (symEngine) Symbol(name, latex string) Expression {
	if latex == "" {
		return casExpr{engine.S(name)}
	}
	return casExpr{engine.SymDisplay(name, latex)}
}

func (symEngine) SupportsAssumption(name string) bool {
	_, ok := engine.ParseAssumption(name)
	return ok
}

// casExpr adapts an engine.Expr to Expression.
type casExpr struct{ e engine.Expr }

func unwrap(x Expression) engine.Expr {
	if c, ok := x.(casExpr); ok {
		return c.e
	}
	panic("symgrade: expression from a different engine")
}

func (c casExpr) IsEquality() bool {
	_, ok := c.e.(*engine.Equation)
	return ok
}

func (c casExpr) Sides() (Expression, Expression) {
	if eq, ok := c.e.(*engine.Equation); ok {
		return casExpr{eq.LHS}, casExpr{eq.RHS}
	}
	return c, nil
}

func (c casExpr) FreeSymbols() []string { return engine.SortedFreeSymbols(c.e) }
func (c casExpr) IsConstant() bool      { return engine.IsConstant(c.e) }

func (c casExpr) Subs(name string, value Expression) Expression {
	return casExpr{engine.Sub(c.e, name, unwrap(value))}
}

func (c casExpr) SubsFloat(name string, v float64) Expression {
	return casExpr{engine.Sub(c.e, name, engine.NFloat(v))}
}

func (c casExpr) Simplify() (Expression, error) {
	s, err := engine.Simplify(c.e)
	if err != nil {
		return nil, err
	}
	return casExpr{s}, nil
}

func (c casExpr) Rationalize() (Expression, error) {
	r, err := engine.Rationalize(c.e)
	if err != nil {
		return nil, err
	}
	return casExpr{r}, nil
}

func (c casExpr) Sub(other Expression) Expression { return casExpr{engine.Minus(c.e, unwrap(other))} }
func (c casExpr) Div(other Expression) Expression { return casExpr{engine.Quo(c.e, unwrap(other))} }
func (c casExpr) IsZero() (bool, error)           { return engine.IsZero(c.e) }

func (c casExpr) IsNonzeroConstant() (bool, error) {
	zero, err := engine.IsZero(c.e)
	if err != nil {
		return false, err
	}
	return !zero && engine.IsConstant(c.e), nil
}

func (c casExpr) Numeric() (complex128, error) { return engine.Numeric(c.e) }
func (c casExpr) Equal(other Expression) bool {
	o, ok := other.(casExpr)
	return ok && c.e.Equal(o.e)
}
func (c casExpr) LaTeX() string  { return c.e.LaTeX() }
func (c casExpr) String() string { return c.e.String() }
