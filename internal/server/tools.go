package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/njchilds90/symgrade"
	"github.com/njchilds90/symgrade/engine"
)

// ============================================================
// Tool interface
// ============================================================

// HandleToolCall runs one tool. Expressions are passed as text and read in
// loose syntax unless the request sets "strict": true.
func HandleToolCall(ctx context.Context, g *symgrade.Grader, req ToolRequest) ToolResponse {
	getString := func(key string) (string, error) {
		v, ok := req.Params[key]
		if !ok {
			return "", fmt.Errorf("missing param: %s", key)
		}
		s, ok := v.(string)
		if !ok {
			return "", fmt.Errorf("param %s must be a string", key)
		}
		return s, nil
	}
	getBool := func(key string) (bool, error) {
		v, ok := req.Params[key]
		if !ok {
			return false, nil
		}
		b, ok := v.(bool)
		if !ok {
			return false, fmt.Errorf("param %s must be a boolean", key)
		}
		return b, nil
	}
	// getObject re-decodes an object param into dst through its JSON tags.
	getObject := func(key string, dst interface{}) error {
		v, ok := req.Params[key]
		if !ok {
			return nil
		}
		if _, ok := v.(map[string]interface{}); !ok {
			return fmt.Errorf("param %s must be an object", key)
		}
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(b, dst); err != nil {
			return fmt.Errorf("param %s: %w", key, err)
		}
		return nil
	}
	getExpr := func(key string) (engine.Expr, error) {
		src, err := getString(key)
		if err != nil {
			return nil, err
		}
		strict, err := getBool("strict")
		if err != nil {
			return nil, err
		}
		return engine.Parse(src, engine.ParseOptions{Strict: strict})
	}
	getResponse := func() (symgrade.Response, error) {
		text, err := getString("response")
		if err != nil {
			return symgrade.Response{}, err
		}
		latex, err := getBool("is_latex")
		if err != nil {
			return symgrade.Response{}, err
		}
		return symgrade.Response{Response: text, IsLatex: latex}, nil
	}
	respond := func(e engine.Expr) ToolResponse {
		return ToolResponse{Result: e.String(), LaTeX: e.LaTeX(), String: e.String()}
	}

	switch req.Tool {
	case "evaluate":
		response, err := getResponse()
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		answer, err := getString("answer")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		var params symgrade.Params
		if err := getObject("params", &params); err != nil {
			return ToolResponse{Error: err.Error()}
		}
		res, err := g.Evaluate(ctx, response, answer, params)
		if err != nil {
			var ce *symgrade.ConfigurationError
			if errors.As(err, &ce) {
				return ToolResponse{Error: ce.Reason}
			}
			return ToolResponse{Error: err.Error()}
		}
		return ToolResponse{Result: res, LaTeX: res.ResponseLatex, String: res.ResponseSimplified}

	case "preview":
		response, err := getResponse()
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		var params symgrade.PreviewParams
		if err := getObject("params", &params); err != nil {
			return ToolResponse{Error: err.Error()}
		}
		p, err := g.Preview(ctx, response, params)
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return ToolResponse{Result: p, LaTeX: p.LaTeX, String: p.Sympy}

	case "simplify":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		s, err := engine.Simplify(e)
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return respond(s)

	case "to_latex":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return ToolResponse{LaTeX: e.LaTeX(), String: e.String()}

	case "latex_to_text":
		src, err := getString("latex")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		text, err := engine.LaTeXToText(src)
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return ToolResponse{Result: text, String: text}

	case "free_symbols":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		names := engine.SortedFreeSymbols(e)
		if names == nil {
			names = []string{}
		}
		return ToolResponse{Result: names}

	case "diff":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		v, err := getString("var")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		d, err := engine.Simplify(engine.Diff(e, v))
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return respond(d)

	case "equivalent":
		a, err := getExpr("a")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		b, err := getExpr("b")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		ok, err := engine.Equivalent(a, b)
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		return ToolResponse{Result: ok, String: fmt.Sprintf("%t", ok)}

	case "numeric":
		e, err := getExpr("expr")
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		v, err := engine.Numeric(e)
		if err != nil {
			return ToolResponse{Error: err.Error()}
		}
		if imag(v) == 0 {
			return ToolResponse{Result: real(v), String: fmt.Sprintf("%.10g", real(v))}
		}
		return ToolResponse{
			Result: map[string]float64{"re": real(v), "im": imag(v)},
			String: fmt.Sprintf("%.10g", v),
		}

	case "mcp_spec":
		return ToolResponse{Result: ToolSpec(), String: "MCP tool specification"}
	}
	return ToolResponse{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
}

// ToolSpec returns the JSON schema of every tool, for agent registration.
func ToolSpec() string {
	tools := []map[string]interface{}{
		ts("evaluate", "Grade a response against an answer", []string{"response", "answer"},
			map[string]string{"response": "string", "is_latex": "boolean", "answer": "string", "params": "object"}),
		ts("preview", "Render a response as LaTeX and text", []string{"response"},
			map[string]string{"response": "string", "is_latex": "boolean", "params": "object"}),
		ts("simplify", "Simplify an expression", []string{"expr"}, map[string]string{"expr": "string", "strict": "boolean"}),
		ts("to_latex", "Convert an expression to LaTeX", []string{"expr"}, map[string]string{"expr": "string", "strict": "boolean"}),
		ts("latex_to_text", "Translate LaTeX into expression text", []string{"latex"}, map[string]string{"latex": "string"}),
		ts("free_symbols", "Return free symbol names", []string{"expr"}, map[string]string{"expr": "string", "strict": "boolean"}),
		ts("diff", "First derivative d/dvar", []string{"expr", "var"}, map[string]string{"expr": "string", "var": "string", "strict": "boolean"}),
		ts("equivalent", "Decide whether a and b are symbolically equal", []string{"a", "b"},
			map[string]string{"a": "string", "b": "string", "strict": "boolean"}),
		ts("numeric", "Evaluate a constant expression numerically", []string{"expr"}, map[string]string{"expr": "string", "strict": "boolean"}),
		ts("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

func ts(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
