package engine_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symgrade/engine"
)

// ============================================================
// LaTeX input
// ============================================================

func TestLaTeXToText(t *testing.T) {
	cases := []struct{ in, want string }{
		{`\frac{x+1}{2}`, "(x + 1)/2"},
		{`x^{3}`, "x**3"},
		{`x^23`, "x**2*3"},
		{`\sin{x\pi}`, "sin(x*pi)"},
		{`\frac{d}{dx} tx`, "Derivative(t*x, x)"},
		{`\log_{10} x`, "log(x, 10)"},
		{`10 e^{\ln{G}}`, "10*exp(log(G))"},
		{`\left|x\right|`, "Abs(x)"},
		{`|x||y|`, "Abs(x)*Abs(y)"},
		{`\sqrt{x}`, "sqrt(x)"},
		{`\sqrt[3]{x}`, "x**(1/3)"},
		{`2 \cdot x`, "2*x"},
		{`\alpha_{1}`, "alpha_1"},
		{`\sin^{-1}(x)`, "asin(x)"},
		{`\sin^2 x`, "sin(x)**2"},
		{`x = 2`, "x = 2"},
	}
	for _, c := range cases {
		got, err := engine.LaTeXToText(c.in)
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestLaTeXToText_ReparsesStrict(t *testing.T) {
	for _, in := range []string{`\frac{\sin x}{x^{2}+1}`, `\sqrt{2}\pi r`, `e^{-x}`} {
		text, err := engine.LaTeXToText(in)
		require.NoError(t, err, in)
		_, err = engine.Parse(text, strict)
		assert.NoError(t, err, "%s -> %s", in, text)
	}
}

func TestLaTeXToText_Rejects(t *testing.T) {
	for _, in := range []string{``, `\frac{1}`, `\infty`, `\unknowncommand x`, `(x`} {
		_, err := engine.LaTeXToText(in)
		assert.Error(t, err, in)
	}
}

// ============================================================
// LaTeX output
// ============================================================

func TestLaTeXOutput(t *testing.T) {
	cases := []struct{ in, want string }{
		{"x/2", `\frac{x}{2}`},
		{"x**2", `x^{2}`},
		{"sqrt(x)", `\sqrt{x}`},
		{"alpha + pi", `\alpha + \pi`},
		{"Abs(x)", `\left|x\right|`},
		{"x_1", `x_{1}`},
	}
	for _, c := range cases {
		e := parseWith(t, c.in, strict)
		assert.Equal(t, c.want, e.LaTeX(), c.in)
	}
}

func TestLaTeXOutput_SimplifiedExpPower(t *testing.T) {
	cases := []struct{ in, want string }{
		{"exp(2*x)", `\left(e^{x}\right)^{2}`},
		{"exp(3)", `\left(e^{1}\right)^{3}`},
	}
	for _, c := range cases {
		got, err := engine.Simplify(parseWith(t, c.in, strict))
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got.LaTeX(), c.in)
		assert.NotContains(t, got.LaTeX(), "}^{", c.in)
	}
}

func TestLaTeXOutput_DisplaySymbol(t *testing.T) {
	e := engine.Sub(parseWith(t, "2*v", strict), "v", engine.SymDisplay("v", `\nu`))
	assert.Equal(t, `2 \nu`, e.LaTeX())
}
