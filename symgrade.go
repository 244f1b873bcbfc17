// Package symgrade grades free-form mathematical responses against a
// reference answer.
//
// A response is rewritten through the author's symbol aliases, its |x|
// notation is made explicit, plus_minus/minus_plus markers are expanded into
// sign variants, and every variant pair is compared by a staged checker:
// structural checks, an optional numeric tolerance test, a numeric sampling
// filter and finally exact symbolic comparison.
//
// Mistakes in the response never produce an error; they come back as a
// Result with IsCorrect false and explanatory feedback. Mistakes made by the
// author (an empty or unparsable answer, bad parameters) are returned as a
// *ConfigurationError.
package symgrade

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ============================================================
// Request and result
// ============================================================

// Response is the learner's submission. On the wire it is either a plain
// string or an object {"response": ..., "is_latex": ...}.
type Response struct {
	Response string `json:"response"`
	IsLatex  bool   `json:"is_latex"`
}

// Text returns a plain-text response.
func Text(s string) Response { return Response{Response: s} }

// LaTeX returns a LaTeX response.
func LaTeX(s string) Response { return Response{Response: s, IsLatex: true} }

func (r *Response) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = Response{Response: s}
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		*r = Response{}
		return nil
	}
	type plain Response
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("response: %w", err)
	}
	*r = Response(p)
	return nil
}

// Result is the verdict for one evaluation.
type Result struct {
	IsCorrect          bool   `json:"is_correct"`
	Feedback           string `json:"feedback,omitempty"`
	ResponseLatex      string `json:"response_latex,omitempty"`
	ResponseSimplified string `json:"response_simplified,omitempty"`
	Level              string `json:"level,omitempty"`
}

func resultFrom(o Outcome) Result {
	return Result{
		IsCorrect:          o.IsCorrect,
		Feedback:           o.Feedback,
		ResponseLatex:      o.ResponseLatex,
		ResponseSimplified: o.ResponseSimplified,
		Level:              string(o.Level),
	}
}

// ============================================================
// Grader
// ============================================================

// Grader evaluates responses. It is safe for concurrent use.
type Grader struct {
	eng    Engine
	logger *slog.Logger
}

// Option configures a Grader.
type Option func(*Grader)

// WithEngine replaces the symbolic engine.
func WithEngine(e Engine) Option { return func(g *Grader) { g.eng = e } }

// WithLogger sets the logger. Without one nothing is logged.
func WithLogger(l *slog.Logger) Option { return func(g *Grader) { g.logger = l } }

// New returns a Grader using the default engine.
func New(opts ...Option) *Grader {
	g := &Grader{eng: DefaultEngine(), logger: discardLogger()}
	for _, opt := range opts {
		opt(g)
	}
	if g.eng == nil {
		g.eng = DefaultEngine()
	}
	if g.logger == nil {
		g.logger = discardLogger()
	}
	return g
}

var defaultGrader = New()

// Evaluate grades response against answer with the default Grader.
func Evaluate(ctx context.Context, response Response, answer string, params Params) (Result, error) {
	return defaultGrader.Evaluate(ctx, response, answer, params)
}

// Evaluate grades response against answer.
func (g *Grader) Evaluate(ctx context.Context, response Response, answer string, params Params) (Result, error) {
	ctx, span := tracer.Start(ctx, "symgrade.Evaluate")
	defer span.End()
	start := time.Now()
	defer func() { evaluationDuration.Observe(time.Since(start).Seconds()) }()

	if response.IsLatex {
		params.ResponseFormat = string(FormatLaTeX)
	}
	cfg, err := params.Resolve()
	if err == nil {
		var out Outcome
		out, err = NewChecker(g.eng, cfg, g.logger).CheckVariants(ctx, response.Response, answer)
		if err == nil {
			res := resultFrom(out)
			evaluationsTotal.WithLabelValues(verdictLabel(res.IsCorrect), res.Level).Inc()
			span.SetAttributes(
				attribute.Bool("symgrade.correct", res.IsCorrect),
				attribute.String("symgrade.level", res.Level),
			)
			g.logger.Debug("evaluation complete", "correct", res.IsCorrect, "level", res.Level)
			return res, nil
		}
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	var ce *ConfigurationError
	if errors.As(err, &ce) {
		configurationErrors.WithLabelValues(ce.Tag).Inc()
		g.logger.Warn("evaluation aborted", "tag", ce.Tag, "error", err)
	}
	return Result{}, err
}
