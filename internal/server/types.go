package server

import "github.com/njchilds90/symgrade"

// EvaluateRequest is the body of POST /v1/evaluate.
type EvaluateRequest struct {
	// Response is a plain string or {"response": ..., "is_latex": ...}.
	Response symgrade.Response `json:"response"`
	Answer   string            `json:"answer"`
	Params   symgrade.Params   `json:"params"`
}

// EvaluateResponse is returned by POST /v1/evaluate.
type EvaluateResponse struct {
	Command string          `json:"command"`
	Result  symgrade.Result `json:"result"`
}

// PreviewRequest is the body of POST /v1/preview.
type PreviewRequest struct {
	Response symgrade.Response      `json:"response"`
	Params   symgrade.PreviewParams `json:"params"`
}

// PreviewResponse is returned by POST /v1/preview.
type PreviewResponse struct {
	Command string           `json:"command"`
	Preview symgrade.Preview `json:"preview"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	// Error is the error message.
	Error string `json:"error"`

	// Code is a stable machine-readable code.
	Code string `json:"code,omitempty"`

	// Details carries the configuration error tag, when there is one.
	Details string `json:"details,omitempty"`
}

// ToolRequest is a single tool invocation on POST /v1/tool.
type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

// ToolResponse is the result of a tool invocation. Tool failures are
// reported in Error with status 200.
type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}
