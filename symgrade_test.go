package symgrade_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symgrade"
)

func loose() symgrade.Params { return symgrade.Params{StrictSyntax: symgrade.Bool(false)} }

func evaluate(t *testing.T, response, answer string, params symgrade.Params) symgrade.Result {
	t.Helper()
	res, err := symgrade.Evaluate(context.Background(), symgrade.Text(response), answer, params)
	require.NoError(t, err, "%q vs %q", response, answer)
	return res
}

// assertVariations checks the verdict is unchanged when `**` is written as
// `^` and multiplication signs are replaced by spaces or dropped.
func assertVariations(t *testing.T, response, answer string, params symgrade.Params, want bool) {
	t.Helper()
	assert.Equal(t, want, evaluate(t, response, answer, params).IsCorrect, "%q vs %q", response, answer)
	variations := []func(string) string{
		func(s string) string { return strings.ReplaceAll(s, "**", "^") },
		func(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "**", "^"), "*", " ") },
		func(s string) string { return strings.ReplaceAll(strings.ReplaceAll(s, "**", "^"), "*", "") },
	}
	for _, v := range variations {
		rv, av := v(response), v(answer)
		if rv == response && av == answer {
			continue
		}
		assert.Equal(t, want, evaluate(t, rv, answer, params).IsCorrect, "%q vs %q", rv, answer)
		assert.Equal(t, want, evaluate(t, response, av, params).IsCorrect, "%q vs %q", response, av)
		assert.Equal(t, want, evaluate(t, rv, av, params).IsCorrect, "%q vs %q", rv, av)
	}
}

func requireConfigError(t *testing.T, err error, tag string) *symgrade.ConfigurationError {
	t.Helper()
	var ce *symgrade.ConfigurationError
	require.True(t, errors.As(err, &ce), "want ConfigurationError, got %v", err)
	assert.Equal(t, tag, ce.Tag)
	return ce
}

// ============================================================
// Literal scenarios
// ============================================================

func TestEvaluate_SimplePolynomial(t *testing.T) {
	assertVariations(t, "3*x**2 + 3*x + 5", "2+3+x+2*x+x*x*3", loose(), true)
	assertVariations(t, "3*x**2 + 3*x + 5", "2+3+x+2*x+x*x*3 - x", loose(), false)
}

func TestEvaluate_Decimals(t *testing.T) {
	res := evaluate(t, "x/2", "0.5*x", symgrade.Params{})
	assert.True(t, res.IsCorrect)
	assert.Equal(t, "4", res.Level)
	assertVariations(t, "x/2", "0.5*x", loose(), true)
}

func TestEvaluate_Absolute(t *testing.T) {
	res := evaluate(t, "|x|+y", "Abs(x)+y", symgrade.Params{})
	assert.True(t, res.IsCorrect)
	assert.Empty(t, res.Feedback)
	assertVariations(t, "|x|+y", "Abs(x)+y", loose(), true)
}

func TestEvaluate_AbsoluteAmbiguity(t *testing.T) {
	for _, response := range []string{"a|x|+|y|", "|x|a+|y|"} {
		res := evaluate(t, response, "a*Abs(x)+Abs(y)", loose())
		assert.True(t, res.IsCorrect, response)
		assert.Contains(t, res.Feedback, symgrade.AmbiguityRemark, response)
	}
}

func TestEvaluate_EmptyResponse(t *testing.T) {
	for _, response := range []string{"", "   "} {
		res := evaluate(t, response, "5*x", symgrade.Params{})
		assert.False(t, res.IsCorrect)
		assert.Equal(t, "No response submitted.", res.Feedback)
	}
}

func TestEvaluate_EmptyAnswer(t *testing.T) {
	for _, response := range []string{"", "x", "5*x"} {
		_, err := symgrade.Evaluate(context.Background(), symgrade.Text(response), "", symgrade.Params{})
		requireConfigError(t, err, symgrade.TagNoAnswer)
		assert.True(t, errors.Is(err, symgrade.ErrNoAnswer))
	}
}

func TestEvaluate_EqualityRatio(t *testing.T) {
	res := evaluate(t, "2*x**2 = 10*y**2+14", "x**2-5*y**2-7=0", loose())
	assert.True(t, res.IsCorrect)
	assert.Empty(t, res.Level)
	assert.NotEmpty(t, res.ResponseLatex)

	res = evaluate(t, "x**2 = 5*y**2+8", "x**2-5*y**2-7=0", loose())
	assert.False(t, res.IsCorrect)
}

// ============================================================
// Structure and parse errors
// ============================================================

func TestEvaluate_StructuralMismatch(t *testing.T) {
	res := evaluate(t, "x + 1", "x = 1", symgrade.Params{})
	assert.False(t, res.IsCorrect)
	assert.Equal(t, symgrade.ExpectedEquality, res.Feedback)
	assert.Equal(t, "x + 1", res.ResponseSimplified)

	res = evaluate(t, "x = 1", "x + 1", symgrade.Params{})
	assert.False(t, res.IsCorrect)
	assert.Equal(t, symgrade.ExpectedExpression, res.Feedback)
}

func TestEvaluate_InvalidResponse(t *testing.T) {
	res := evaluate(t, "a*(b+c", "a*(b+c)", symgrade.Params{})
	assert.False(t, res.IsCorrect)
	assert.Contains(t, res.Feedback, symgrade.ParseErrorFeedback("a*(b+c"))
}

func TestEvaluate_InvalidAnswer(t *testing.T) {
	_, err := symgrade.Evaluate(context.Background(), symgrade.Text("3*x"), "3x", symgrade.Params{})
	requireConfigError(t, err, symgrade.TagAnswerParse)
	assert.True(t, errors.Is(err, symgrade.ErrAnswerParse))
}

func TestEvaluate_CaretRemarkUnderStrictSyntax(t *testing.T) {
	res := evaluate(t, "x^2", "x**2", symgrade.Params{})
	assert.False(t, res.IsCorrect)
	assert.Contains(t, res.Feedback, symgrade.ParseErrorFeedback("x^2"))
	assert.Contains(t, res.Feedback, symgrade.CaretRemark)

	res = evaluate(t, "x^2", "x**2", loose())
	assert.True(t, res.IsCorrect)
	assert.Empty(t, res.Feedback)
}

func TestEvaluate_AmbiguousAnswer(t *testing.T) {
	_, err := symgrade.Evaluate(context.Background(), symgrade.Text("|a+b|*c+d*|e+f|"), "|a+b|c+d|e+f|", symgrade.Params{})
	requireConfigError(t, err, symgrade.TagAmbiguity)
}

func TestEvaluate_AmbiguousResponse(t *testing.T) {
	res := evaluate(t, "|a+b|c+d|e+f|", "|a+b|*c+d*|e+f|", symgrade.Params{})
	assert.Contains(t, res.Feedback, symgrade.AmbiguityRemark)
}

func TestEvaluate_NestedAbsolute(t *testing.T) {
	cases := [][2]string{
		{"|x+|y||", "Abs(x+Abs(y))"},
		{"a*|x+b*|y||", "a*Abs(x+b*Abs(y))"},
		{"|x+|y||", "|x+|y||"},
		{"|x|+|y|", "Abs(x)+Abs(y)"},
		{"|x|+|y|", "|x|+|y|"},
	}
	for _, c := range cases {
		assert.True(t, evaluate(t, c[0], c[1], symgrade.Params{}).IsCorrect, "%s vs %s", c[0], c[1])
	}
}

// ============================================================
// Symbols
// ============================================================

func TestEvaluate_InputSymbols(t *testing.T) {
	params := loose()
	params.InputSymbols = []symgrade.InputSymbol{{Code: "longName"}}
	assertVariations(t, "3*longName**2 + 3*longName + 5", "2+3+longName+2*longName + 3*longName * longName", params, true)

	params.InputSymbols = []symgrade.InputSymbol{{Code: "abc"}, {Code: "xyz"}}
	assert.True(t, evaluate(t, "abcxyz", "abc*xyz", params).IsCorrect)
}

func TestEvaluate_Aliases(t *testing.T) {
	params := symgrade.Params{InputSymbols: []symgrade.InputSymbol{{Code: "v", Aliases: []string{"speed", "velocity", ""}}}}
	assert.True(t, evaluate(t, "2*speed", "2*v", params).IsCorrect)
	assert.True(t, evaluate(t, "velocity + speed", "2*v", params).IsCorrect)
	assert.False(t, evaluate(t, "2*velocity", "v", params).IsCorrect)
}

func TestEvaluate_ClashingSymbols(t *testing.T) {
	res := evaluate(t, "beta+gamma+zeta+I+N+O+Q+S+E", "E+S+Q+O+N+I+zeta+gamma+beta", symgrade.Params{})
	assert.True(t, res.IsCorrect)
}

func TestEvaluate_SpecialConstants(t *testing.T) {
	assertVariations(t, "pi", "2*asin(1)", loose(), true)
}

func TestEvaluate_ComplexNumbers(t *testing.T) {
	params := loose()
	params.ComplexNumbers = true
	assertVariations(t, "I", "(-1)**(1/2)", params, true)
}

func TestEvaluate_SpecialFunctions(t *testing.T) {
	params := loose()
	params.SpecialFunctions = true
	cases := [][2]string{
		{"beta(1,x)", "1/x"},
		{"gamma(5)", "24"},
		{"zeta(2)", "pi**2/6"},
	}
	for _, c := range cases {
		assertVariations(t, c[0], c[1], params, true)
	}
}

func TestEvaluate_Trig(t *testing.T) {
	assertVariations(t, "cos(x)**2 + sin(x)**2 + y", "y + 1", loose(), true)
	assertVariations(t, "1+tan(x)**2 + y", "sec(x)**2 + y", loose(), true)
}

func TestEvaluate_SymbolAssumptions(t *testing.T) {
	params := loose()
	params.SymbolAssumptions = "('g','positive') ('v','positive')"
	cases := [][2]string{
		{"sqrt(v)/sqrt(g)", "sqrt(v/g)"},
		{"v**(1/2)/g**(1/2)", "(v/g)**(0.5)"},
		{"v**(0.2)/g**(0.2)", "(v/g)**(1/5)"},
		{"v**(1/n)/g**(1/n)", "(v/g)**(1/n)"},
	}
	for _, c := range cases {
		assertVariations(t, c[0], c[1], params, true)
	}

	assert.True(t, evaluate(t, "sqrt(x**2)", "x", symgrade.Params{SymbolAssumptions: "(x,positive)"}).IsCorrect)
	assert.False(t, evaluate(t, "sqrt(x**2)", "x", symgrade.Params{}).IsCorrect)
}

func TestEvaluate_SquareUnderRadical(t *testing.T) {
	params := loose()
	params.SymbolAssumptions = "('x','positive')"
	cases := [][2]string{
		{"1/( ((x+1)**2) * ( sqrt(1-(x/(x+1))**2) ) )", "1/((x+1)*(sqrt(2x+1)))"},
		{"1/((x+1)*(sqrt(2x+1)))", "1/( ((x+1)**2) * ( sqrt(1-(x/(x+1))**2) ) )"},
		{"sqrt(x**2+2*x+1)", "x+1"},
		{"sqrt((4*x**2+4*x+1)/(x+2))", "(2*x+1)/sqrt(x+2)"},
	}
	for _, c := range cases {
		assertVariations(t, c[0], c[1], params, true)
	}

	assert.False(t, evaluate(t, "sqrt(x**2+2*x+1)", "x+1", loose()).IsCorrect)
}

func TestEvaluate_AngleIdentities(t *testing.T) {
	cases := [][2]string{
		{"sin(2x)", "2sin(x)cos(x)"},
		{"cos(2x)", "cos(x)^2-sin(x)^2"},
		{"sin(x+y)", "sin(x)cos(y)+cos(x)sin(y)"},
	}
	for _, c := range cases {
		assertVariations(t, c[0], c[1], loose(), true)
	}
	assert.False(t, evaluate(t, "sin(2x)", "2sin(x)", loose()).IsCorrect)
}

func TestEvaluate_ExpLog(t *testing.T) {
	cases := [][2]string{
		{"log(exp(2x))", "2x"},
		{"log(exp(2))", "2"},
		{"log(8,2)", "3"},
	}
	for _, c := range cases {
		assertVariations(t, c[0], c[1], loose(), true)
	}
	assert.True(t, evaluate(t, "x**x", "exp(x*log(x))", symgrade.Params{}).IsCorrect)
	assert.True(t, evaluate(t, "x^x", "exp(x log(x))", loose()).IsCorrect)
}

func TestEvaluate_BadAssumptions(t *testing.T) {
	_, err := symgrade.Evaluate(context.Background(), symgrade.Text("x"), "x", symgrade.Params{SymbolAssumptions: "(x positive)"})
	ce := requireConfigError(t, err, symgrade.TagAssumptions)
	assert.Equal(t, "List of symbol assumptions not written correctly.", ce.Reason)

	_, err = symgrade.Evaluate(context.Background(), symgrade.Text("x"), "x", symgrade.Params{SymbolAssumptions: "('x','wobbly')"})
	ce = requireConfigError(t, err, symgrade.TagAssumptions)
	assert.Equal(t, "Assumption wobbly for symbol x caused a problem.", ce.Reason)
	assert.True(t, errors.Is(err, symgrade.ErrUnknownAssumption))
}

// ============================================================
// Numerical tolerance
// ============================================================

func TestEvaluate_AbsoluteTolerance(t *testing.T) {
	prev := false
	for _, atol := range []float64{1e-5, 1e-4, 1e-3, 1e-2, 1e-1, 1} {
		res := evaluate(t, "3.14", "pi", symgrade.Params{Atol: symgrade.Float(atol)})
		if prev {
			assert.True(t, res.IsCorrect, "atol=%g", atol)
		}
		prev = res.IsCorrect
	}
	assert.True(t, prev)

	res := evaluate(t, "3.14", "pi", symgrade.Params{Atol: symgrade.Float(0.01)})
	assert.True(t, res.IsCorrect)
	assert.Equal(t, "0", res.Level)
	assert.Equal(t, symgrade.NumericMatchFeedback, res.Feedback)

	res = evaluate(t, "3.14", "pi", symgrade.Params{Atol: symgrade.Float(0.001)})
	assert.False(t, res.IsCorrect)
}

func TestEvaluate_RelativeTolerance(t *testing.T) {
	assert.True(t, evaluate(t, "101", "100", symgrade.Params{Rtol: symgrade.Float(0.02)}).IsCorrect)
	assert.False(t, evaluate(t, "101", "100", symgrade.Params{Rtol: symgrade.Float(0.005)}).IsCorrect)

	both := symgrade.Params{Atol: symgrade.Float(2), Rtol: symgrade.Float(0.005)}
	assert.False(t, evaluate(t, "101", "100", both).IsCorrect)
}

func TestEvaluate_ToleranceIgnoresExpressions(t *testing.T) {
	res := evaluate(t, "x + 0.001", "x", symgrade.Params{Atol: symgrade.Float(1)})
	assert.False(t, res.IsCorrect)

	res = evaluate(t, "2*x", "x + x", symgrade.Params{Atol: symgrade.Float(1)})
	assert.True(t, res.IsCorrect)
	assert.Equal(t, "4", res.Level)
}

func TestEvaluate_NumericalWithoutTolerances(t *testing.T) {
	// Both tolerances unset pass automatically for constants.
	res := evaluate(t, "1", "2", symgrade.Params{Numerical: true})
	assert.True(t, res.IsCorrect)
	assert.Equal(t, "0", res.Level)
}

func TestEvaluate_PiInputSymbol(t *testing.T) {
	params := symgrade.Params{
		InputSymbols: []symgrade.InputSymbol{{Code: "pi"}},
		Atol:         symgrade.Float(0.01),
	}
	assert.True(t, evaluate(t, "3.14", "pi", params).IsCorrect)
}

// ============================================================
// Sign expansion
// ============================================================

func TestEvaluate_PlusMinusAll(t *testing.T) {
	answer := "plus_minus x**2 + minus_plus y**2"
	assertVariations(t, "-minus_plus x**2 - plus_minus y**2", answer, loose(), true)
	assertVariations(t, "plus_minus x**2 - minus_plus y**2", answer, loose(), false)
	// A single response variant cannot match both answer variants.
	assert.False(t, evaluate(t, "x**2 - y**2", answer, loose()).IsCorrect)
}

func TestEvaluate_PlusMinusAllResponses(t *testing.T) {
	answer := "plus_minus x**2 + minus_plus y**2"
	params := loose()
	params.MultipleAnswersCriteria = "all_responses"
	for _, response := range []string{"x**2 - y**2", "-x**2 + y**2"} {
		assertVariations(t, response, answer, params, true)
	}
	for _, response := range []string{"-x**2 - y**2", "x**2 + y**2"} {
		assertVariations(t, response, answer, params, false)
	}
}

func TestEvaluate_PlusMinusAllAnswers(t *testing.T) {
	params := loose()
	params.MultipleAnswersCriteria = "all_answers"
	assertVariations(t, "-x**2", "plus_minus minus_plus x**2", params, true)
	assertVariations(t, "x**2", "plus_minus minus_plus x**2", params, false)
}

func TestEvaluate_PlusMinusCustomTokens(t *testing.T) {
	params := loose()
	params.PlusMinus, params.MinusPlus = "+-", "-+"
	assert.True(t, evaluate(t, "- -+ x**2 - +- y**2", "+- x**2 + -+ y**2", params).IsCorrect)
}

func TestEvaluate_PlusMinusInterpretation(t *testing.T) {
	res := evaluate(t, "plus_minus x", "plus_minus x", symgrade.Params{})
	assert.True(t, res.IsCorrect)
	assert.Equal(t, "x, -x", res.ResponseLatex)
}

func TestEvaluate_UnknownCriteria(t *testing.T) {
	params := symgrade.Params{MultipleAnswersCriteria: "some"}
	_, err := symgrade.Evaluate(context.Background(), symgrade.Text("plus_minus x"), "plus_minus x", params)
	requireConfigError(t, err, symgrade.TagCriteria)

	// Without markers the criteria are never consulted.
	assert.True(t, evaluate(t, "x", "x", params).IsCorrect)
}

// ============================================================
// LaTeX responses
// ============================================================

func TestEvaluate_LaTeXResponse(t *testing.T) {
	ctx := context.Background()
	res, err := symgrade.Evaluate(ctx, symgrade.LaTeX(`\frac{x}{2}`), "0.5*x", symgrade.Params{})
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)

	res, err = symgrade.Evaluate(ctx, symgrade.LaTeX(`x^{2} + \sin^2 x + \cos^2 x`), "x**2 + 1", symgrade.Params{})
	require.NoError(t, err)
	assert.True(t, res.IsCorrect)
	assert.NotContains(t, res.Feedback, symgrade.CaretRemark)

	res, err = symgrade.Evaluate(ctx, symgrade.LaTeX(`\frac{1}`), "x", symgrade.Params{})
	require.NoError(t, err)
	assert.False(t, res.IsCorrect)
	assert.Contains(t, res.Feedback, "could not be parsed")
}

func TestEvaluate_LaTeXResponseFormatParam(t *testing.T) {
	params := symgrade.Params{ResponseFormat: "latex"}
	assert.True(t, evaluate(t, `\left|x\right| + y`, "Abs(x) + y", params).IsCorrect)
}

// ============================================================
// Requests and results
// ============================================================

func TestResponse_UnmarshalJSON(t *testing.T) {
	var r symgrade.Response
	require.NoError(t, json.Unmarshal([]byte(`"x + 1"`), &r))
	assert.Equal(t, symgrade.Text("x + 1"), r)

	require.NoError(t, json.Unmarshal([]byte(`{"response": "\\frac{1}{2}", "is_latex": true}`), &r))
	assert.Equal(t, symgrade.LaTeX(`\frac{1}{2}`), r)

	assert.Error(t, json.Unmarshal([]byte(`42`), &r))
}

func TestResult_JSONOmitsEmptyFields(t *testing.T) {
	b, err := json.Marshal(symgrade.Result{IsCorrect: false, Feedback: "No response submitted."})
	require.NoError(t, err)
	assert.JSONEq(t, `{"is_correct": false, "feedback": "No response submitted."}`, string(b))
}

func TestEvaluate_InvalidParams(t *testing.T) {
	_, err := symgrade.Evaluate(context.Background(), symgrade.Text("x"), "x", symgrade.Params{Atol: symgrade.Float(-1)})
	requireConfigError(t, err, symgrade.TagParams)
	assert.True(t, errors.Is(err, symgrade.ErrInvalidParams))
}

func TestEvaluate_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := symgrade.Evaluate(ctx, symgrade.Text("x"), "x", symgrade.Params{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestEvaluate_Concurrent(t *testing.T) {
	g := symgrade.New()
	var wg sync.WaitGroup
	results := make([]symgrade.Result, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := g.Evaluate(context.Background(), symgrade.Text("(x + 1)**2"), "x**2 + 2*x + 1", symgrade.Params{})
			assert.NoError(t, err)
			results[i] = res
		}(i)
	}
	wg.Wait()
	for _, res := range results {
		assert.Equal(t, results[0], res)
		assert.True(t, res.IsCorrect)
	}
}
