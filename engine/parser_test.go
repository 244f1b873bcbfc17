package engine_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symgrade/engine"
)

var strict = engine.ParseOptions{Strict: true}
var loose = engine.ParseOptions{}

// ============================================================
// Strict syntax
// ============================================================

func TestParseStrict_RoundTrip(t *testing.T) {
	cases := []struct{ in, want string }{
		{"x**2 + 3*x", "x**2 + 3*x"},
		{"x - y", "x - y"},
		{"x - 2*y", "x - 2*y"},
		{"(x + 1)/(x + 2)", "(x + 1)/(x + 2)"},
		{"-x**2", "-x**2"},
		{"2**-1", "2**(-1)"},
		{"sqrt(x + 1)", "sqrt(x + 1)"},
		{"log(x, 10)", "log(x, 10)"},
		{"Abs(x)", "Abs(x)"},
		{"abs(x)", "Abs(x)"},
		{"3.14", "3.14"},
		{"x**(1/3)", "x**(1/3)"},
	}
	for _, c := range cases {
		e, err := engine.Parse(c.in, strict)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, e.String(), c.in)
	}
}

func TestParseStrict_Rejects(t *testing.T) {
	for _, in := range []string{"3x", "2 x", "x^2", "0,5", "x.y", "∞", "(x + 1", "sin x", "", "x = y = z"} {
		_, err := engine.Parse(in, strict)
		assert.Error(t, err, in)
	}
}

func TestParseStrict_CaretIsXor(t *testing.T) {
	e, err := engine.Parse("2^4", strict)
	require.NoError(t, err)
	assert.Equal(t, "6", e.String())
}

func TestParseStrict_UndefinedFunction(t *testing.T) {
	e, err := engine.Parse("f(x) + 1", strict)
	require.NoError(t, err)
	assert.Equal(t, "f(x) + 1", e.String())
}

func TestParse_ParseErrorPosition(t *testing.T) {
	_, err := engine.Parse("x + $", strict)
	var pe *engine.ParseError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, 4, pe.Pos)
}

// ============================================================
// Loose syntax
// ============================================================

func TestParseLoose_ImplicitMultiplication(t *testing.T) {
	cases := []struct{ in, want string }{
		{"2x", "2*x"},
		{"2 x", "2*x"},
		{"xy", "x*y"},
		{"x^2", "x**2"},
		{"2(x + 1)", "2*(x + 1)"},
		{"(a)(b)", "a*b"},
		{"x sin(x)", "x*sin(x)"},
		{"x2", "x*2"},
		{"(x**2 + x + x)/x", "(x**2 + x + x)/x"},
	}
	for _, c := range cases {
		e, err := engine.Parse(c.in, loose)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, e.String(), c.in)
	}
}

func TestParseLoose_Unsplittable(t *testing.T) {
	opts := engine.ParseOptions{Unsplittable: []string{"longName", "abc", "xyz"}}
	e, err := engine.Parse("longNamex", opts)
	require.NoError(t, err)
	assert.Equal(t, "longName*x", e.String())

	e, err = engine.Parse("abcxyz", opts)
	require.NoError(t, err)
	assert.Equal(t, "abc*xyz", e.String())
}

func TestParseLoose_NamesNotSplit(t *testing.T) {
	for _, in := range []string{"alpha", "x_1", "pi", "sin(x)", "gamma"} {
		e, err := engine.Parse(in, loose)
		require.NoError(t, err, in)
		_, isMul := e.(*engine.Mul)
		assert.False(t, isMul, in)
	}
}

// ============================================================
// Reserved names
// ============================================================

func TestParse_ImaginaryUnit(t *testing.T) {
	e, err := engine.Parse("I", engine.ParseOptions{ComplexNumbers: true})
	require.NoError(t, err)
	_, isConst := e.(*engine.Const)
	assert.True(t, isConst)

	e, err = engine.Parse("I", loose)
	require.NoError(t, err)
	_, isSym := e.(*engine.Sym)
	assert.True(t, isSym)
}

func TestParse_SpecialFunctions(t *testing.T) {
	e, err := engine.Parse("gamma(x)", engine.ParseOptions{SpecialFunctions: true})
	require.NoError(t, err)
	f, ok := e.(*engine.Func)
	require.True(t, ok)
	assert.Equal(t, "gamma", f.FuncName())

	e, err = engine.Parse("gamma*x", strict)
	require.NoError(t, err)
	assert.Equal(t, "gamma*x", e.String())
}

func TestParse_Equation(t *testing.T) {
	e, err := engine.Parse("x + y = 2", strict)
	require.NoError(t, err)
	eq, ok := e.(*engine.Equation)
	require.True(t, ok)
	assert.Equal(t, "x + y", eq.LHS.String())
	assert.Equal(t, "2", eq.RHS.String())
}

func TestParse_BoundSymbols(t *testing.T) {
	x := engine.SymWith("x", engine.AssumePositive)
	e, err := engine.Parse("x", engine.ParseOptions{Symbols: map[string]*engine.Sym{"x": x}})
	require.NoError(t, err)
	s, ok := e.(*engine.Sym)
	require.True(t, ok)
	assert.Equal(t, engine.AssumePositive, s.Assumptions())
}
