package symgrade

import (
	"context"
	"fmt"
	"sort"
	"unicode"
)

// ============================================================
// Preview
// ============================================================

// PreviewParams configures Preview. Symbols maps symbol codes to the LaTeX
// used to display them, e.g. {"nu": `\nu`}.
type PreviewParams struct {
	Simplify bool              `json:"simplify,omitempty" yaml:"simplify,omitempty"`
	Symbols  map[string]string `json:"symbols,omitempty" yaml:"symbols,omitempty"`
}

// Preview shows an author how an input is read.
type Preview struct {
	LaTeX string `json:"latex"`
	Sympy string `json:"sympy"`
}

// Preview renders response as LaTeX and as plain text. The input is read in
// loose syntax and, unless params.Simplify is set, left unsimplified.
func (g *Grader) Preview(ctx context.Context, response Response, params PreviewParams) (Preview, error) {
	_, span := tracer.Start(ctx, "symgrade.Preview")
	defer span.End()

	p, err := g.renderPreview(response, params)
	if err != nil {
		previewsTotal.WithLabelValues("error").Inc()
		g.logger.Debug("preview failed", "error", err)
		return Preview{}, err
	}
	previewsTotal.WithLabelValues("ok").Inc()
	return p, nil
}

func (g *Grader) renderPreview(response Response, params PreviewParams) (Preview, error) {
	if response.Response == "" {
		return Preview{}, nil
	}
	codes := make([]string, 0, len(params.Symbols))
	for code := range params.Symbols {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	var e Expression
	var err error
	if response.IsLatex {
		e, err = g.previewLaTeX(response.Response, codes, params.Symbols)
	} else {
		e, err = g.eng.Parse(response.Response, ParseConfig{Unsplittable: codes})
		if err != nil {
			err = fmt.Errorf("%w: failed to parse expression: %v", ErrPreviewParse, err)
		}
	}
	if err != nil {
		return Preview{}, err
	}
	if params.Simplify {
		if e, err = e.Simplify(); err != nil {
			return Preview{}, fmt.Errorf("%w: %v", ErrPreviewParse, err)
		}
	}
	text := e.String()
	for _, code := range codes {
		e = e.Subs(code, g.eng.Symbol(code, params.Symbols[code]))
	}
	return Preview{LaTeX: e.LaTeX(), Sympy: text}, nil
}

// latexTextConfig reads text produced by LaTeXToText.
var latexTextConfig = ParseConfig{Strict: true, ComplexNumbers: true, SpecialFunctions: true}

// previewLaTeX reads a LaTeX input, mapping each symbol's LaTeX spelling
// back onto its code.
func (g *Grader) previewLaTeX(src string, codes []string, symbols map[string]string) (Expression, error) {
	text, err := g.eng.LaTeXToText(src)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse LaTeX expression: %v", ErrPreviewParse, err)
	}
	e, err := g.eng.Parse(text, latexTextConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse LaTeX expression: %v", ErrPreviewParse, err)
	}
	for _, code := range codes {
		spelled, err := g.eng.LaTeXToText(symbols[code])
		if err != nil {
			return nil, fmt.Errorf("%w: couldn't parse latex symbol %s to symbol", ErrPreviewParse, symbols[code])
		}
		if spelled != code && isPlainName(spelled) {
			e = e.Subs(spelled, g.eng.Symbol(code, ""))
		}
	}
	return e, nil
}

func isPlainName(s string) bool {
	for i, r := range s {
		if !(r == '_' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r))) {
			return false
		}
	}
	return s != ""
}
