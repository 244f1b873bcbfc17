package symgrade

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/cmplx"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ============================================================
// Outcome
// ============================================================

// Level identifies the stage that produced a correct verdict.
type Level string

const (
	LevelNone      Level = ""
	LevelTolerance Level = "0"
	LevelSymbolic  Level = "4"
)

// Outcome is the result of comparing one response with one answer.
type Outcome struct {
	IsCorrect          bool
	Level              Level
	Feedback           string
	ResponseLatex      string
	ResponseSimplified string
}

// Feedback texts.
const (
	NoResponseFeedback   = "No response submitted."
	NumericMatchFeedback = "The response is numerically equal to the answer."
	ExpectedEquality     = "The response was an expression but was expected to be an equality."
	ExpectedExpression   = "The response was an equality but was expected to be an expression."
	CaretRemark          = "Note that `^` cannot be used to denote exponentiation, use `**` instead."
)

// ParseErrorFeedback is the feedback for a response that cannot be parsed.
func ParseErrorFeedback(response string) string {
	return fmt.Sprintf("`%s` could not be parsed as a valid mathematical expression. "+
		"Ensure that correct codes for input symbols are used, correct notation is used, "+
		"that the expression is unambiguous and that all parentheses are closed.", response)
}

// joinFeedback appends remark to primary on a new line.
func joinFeedback(primary, remark string) string {
	switch {
	case remark == "":
		return primary
	case primary == "":
		return remark
	}
	return primary + "\n" + remark
}

// ============================================================
// Checker
// ============================================================

// Numeric sampling parameters.
const (
	samplePoints    = 10
	sampleLow       = 0
	sampleHigh      = 1
	sampleTolerance = 1e-14
)

// Checker compares responses with answers under one EvaluationConfig. It
// holds no mutable state and may be shared between goroutines.
type Checker struct {
	eng     Engine
	cfg     EvaluationConfig
	aliases AliasTable
	logger  *slog.Logger
}

// NewChecker returns a checker for cfg. A nil logger discards output.
func NewChecker(eng Engine, cfg EvaluationConfig, logger *slog.Logger) *Checker {
	if eng == nil {
		eng = DefaultEngine()
	}
	if logger == nil {
		logger = discardLogger()
	}
	return &Checker{eng: eng, cfg: cfg, aliases: NewAliasTable(cfg.InputSymbols), logger: logger}
}

func discardLogger() *slog.Logger { return slog.New(slog.DiscardHandler) }

// parseConfig is the parser configuration shared by answer and response.
func (c *Checker) parseConfig(assumptions []SymbolAssumption) ParseConfig {
	unsplittable := []string{PlusMinusMarker, MinusPlusMarker}
	for _, tok := range []string{c.cfg.PlusMinusToken, c.cfg.MinusPlusToken} {
		if tok != PlusMinusMarker && tok != MinusPlusMarker && utf8.RuneCountInString(tok) > 1 {
			unsplittable = append(unsplittable, tok)
		}
	}
	for _, code := range c.aliases.Codes() {
		if utf8.RuneCountInString(code) > 1 {
			unsplittable = append(unsplittable, code)
		}
	}
	return ParseConfig{
		Strict:           c.cfg.StrictSyntax,
		ComplexNumbers:   c.cfg.ComplexNumbers,
		SpecialFunctions: c.cfg.SpecialFunctions,
		Unsplittable:     unsplittable,
		Assumptions:      assumptions,
	}
}

// stage starts a span for one pipeline stage and returns the function that
// ends it.
func (c *Checker) stage(ctx context.Context, name string) (context.Context, func()) {
	ctx, span := tracer.Start(ctx, "symgrade.check."+name)
	start := time.Now()
	return ctx, func() {
		stageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		span.End()
	}
}

// Check compares one response with one answer. Problems with the response
// are reported in the Outcome; only authoring defects return an error.
func (c *Checker) Check(ctx context.Context, response, answer string) (Outcome, error) {
	ctx, span := tracer.Start(ctx, "symgrade.Check")
	defer span.End()

	out, err := c.check(ctx, response, answer)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Outcome{}, err
	}
	span.SetAttributes(
		attribute.Bool("correct", out.IsCorrect),
		attribute.String("level", string(out.Level)),
	)
	return out, nil
}

func (c *Checker) check(ctx context.Context, response, answer string) (Outcome, error) {
	answer = strings.TrimSpace(answer)
	response = strings.TrimSpace(response)
	if answer == "" {
		return Outcome{}, configError(TagNoAnswer, ErrNoAnswer, "No answer was given.")
	}
	if response == "" {
		return Outcome{Feedback: NoResponseFeedback}, nil
	}

	// Preprocessing.
	latex := c.cfg.ResponseFormat == FormatLaTeX
	if latex {
		text, err := c.eng.LaTeXToText(response)
		if err != nil {
			c.logger.Debug("latex response rejected", "error", err)
			return Outcome{Feedback: ParseErrorFeedback(response)}, nil
		}
		response = text
	}
	response, answer = c.aliases.Apply(response), c.aliases.Apply(answer)

	var remarks []string
	var err error
	answer, err = NormalizeAnswerAbsolute(answer)
	if err != nil {
		return Outcome{}, err
	}
	if !latex {
		var ambiguous bool
		response, ambiguous = NormalizeResponseAbsolute(response)
		if ambiguous {
			remarks = append(remarks, AmbiguityRemark)
		}
		if c.cfg.StrictSyntax && strings.Contains(response, "^") {
			remarks = append(remarks, CaretRemark)
		}
	}
	remark := strings.Join(remarks, "\n")

	assumptions, err := ParseAssumptions(c.cfg.SymbolAssumptions)
	if err != nil {
		return Outcome{}, err
	}
	if err := checkAssumptions(c.eng, assumptions); err != nil {
		return Outcome{}, err
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	// Parsing.
	pctx, end := c.stage(ctx, "parse")
	pcfg := c.parseConfig(assumptions)
	res, err := c.eng.Parse(response, pcfg)
	if err == nil {
		res, err = res.Simplify()
	}
	if err != nil {
		end()
		c.logger.Debug("response rejected by parser", "response", response, "error", err)
		trace.SpanFromContext(pctx).RecordError(err)
		return Outcome{Feedback: joinFeedback(ParseErrorFeedback(response), remark)}, nil
	}
	ans, err := c.eng.Parse(answer, pcfg)
	end()
	if err != nil {
		return Outcome{}, configError(TagAnswerParse, fmt.Errorf("%w: %w", ErrAnswerParse, err),
			"%s", joinFeedback("Unable to parse the answer.", remark))
	}

	base := Outcome{ResponseLatex: res.LaTeX(), ResponseSimplified: res.String()}
	with := func(correct bool, level Level, primary string) Outcome {
		o := base
		o.IsCorrect, o.Level, o.Feedback = correct, level, joinFeedback(primary, remark)
		return o
	}

	// Structure.
	switch {
	case !res.IsEquality() && ans.IsEquality():
		return with(false, LevelNone, ExpectedEquality), nil
	case res.IsEquality() && !ans.IsEquality():
		return with(false, LevelNone, ExpectedExpression), nil
	case res.IsEquality() && ans.IsEquality():
		return with(c.equalitiesMatch(res, ans), LevelNone, ""), nil
	}

	// Decimal literals.
	res, err = res.Rationalize()
	if err != nil {
		return Outcome{Feedback: joinFeedback(ParseErrorFeedback(response), remark)}, nil
	}
	ans, err = ans.Rationalize()
	if err != nil {
		return Outcome{}, configError(TagAnswerParse, fmt.Errorf("%w: %w", ErrAnswerParse, err), "Unable to parse the answer.")
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	if c.cfg.tolerant() {
		_, end := c.stage(ctx, "tolerance")
		ans = ans.SubsFloat("pi", math.Pi)
		res = res.SubsFloat("pi", math.Pi)
		ok := c.withinTolerance(res, ans)
		end()
		if ok {
			return with(true, LevelTolerance, NumericMatchFeedback), nil
		}
	}

	_, end = c.stage(ctx, "sampling")
	differs := c.samplesDiffer(res, ans)
	end()
	if differs {
		c.logger.Debug("response rejected by sampling")
		return with(false, LevelNone, ""), nil
	}
	if err := ctx.Err(); err != nil {
		return Outcome{}, err
	}

	_, end = c.stage(ctx, "symbolic")
	zero, err := res.Sub(ans).IsZero()
	end()
	if err != nil {
		c.logger.Debug("symbolic comparison failed", "error", err)
	}
	if err == nil && zero {
		return with(true, LevelSymbolic, ""), nil
	}
	return with(false, LevelNone, ""), nil
}

// equalitiesMatch reports whether two equalities are scalar multiples of
// one another.
func (c *Checker) equalitiesMatch(res, ans Expression) bool {
	r1, r2 := res.Sides()
	a1, a2 := ans.Sides()
	ok, err := r1.Sub(r2).Div(a1.Sub(a2)).IsNonzeroConstant()
	if err != nil {
		c.logger.Debug("equality ratio failed", "error", err)
		return false
	}
	return ok
}

// withinTolerance applies atol and rtol to constant expressions. An unset
// tolerance always passes; non-constant expressions never do.
func (c *Checker) withinTolerance(res, ans Expression) bool {
	if !res.IsConstant() || !ans.IsConstant() {
		return false
	}
	diff := ans.Sub(res)
	if c.cfg.Atol != nil {
		d, err := diff.Numeric()
		if err != nil || !(cmplx.Abs(d) < *c.cfg.Atol) {
			return false
		}
	}
	if c.cfg.Rtol != nil {
		r, err := diff.Div(ans).Numeric()
		if err != nil || !(cmplx.Abs(r) < *c.cfg.Rtol) {
			return false
		}
	}
	return true
}

// samplesDiffer evaluates both expressions at fixed points of (0, 1), every
// free symbol taking the same value, and reports whether their magnitudes
// disagree anywhere. Points where neither ratio can be formed are skipped.
func (c *Checker) samplesDiffer(res, ans Expression) bool {
	for k := 0; k < samplePoints; k++ {
		x := c.eng.Number(int64(sampleLow*(samplePoints+1)+(sampleHigh-sampleLow)*(k+1)), samplePoints+1)
		na, okA := magnitudeAt(ans, x)
		nr, okR := magnitudeAt(res, x)
		if !okA || !okR {
			continue
		}
		var ratio float64
		switch {
		case nr != 0:
			ratio = math.Abs(1 - na/nr)
		case na != 0:
			ratio = math.Abs(1 - nr/na)
		default:
			continue
		}
		if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
			continue
		}
		if ratio > sampleTolerance {
			return true
		}
	}
	return false
}

func magnitudeAt(e Expression, x Expression) (float64, bool) {
	for _, s := range e.FreeSymbols() {
		e = e.Subs(s, x)
	}
	v, err := e.Numeric()
	if err != nil {
		return 0, false
	}
	m := cmplx.Abs(v)
	if math.IsNaN(m) || math.IsInf(m, 0) {
		return 0, false
	}
	return m, true
}
