package server

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njchilds90/symgrade"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestRouter() *gin.Engine {
	return NewRouter(NewHandlers(nil, slog.New(slog.DiscardHandler)), slog.New(slog.DiscardHandler))
}

func postJSON(t *testing.T, router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandlers_HandleHealth(t *testing.T) {
	router := setupTestRouter()
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var resp HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, ServiceVersion, resp.Version)
	assert.NotEmpty(t, resp.Time)
}

func TestHandlers_HandleEvaluate(t *testing.T) {
	router := setupTestRouter()
	w := postJSON(t, router, "/v1/evaluate", `{
		"response": "3*x**2 + 3*x + 5",
		"answer": "2+3+x+2*x+x*x*3",
		"params": {"strict_syntax": false}
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "eval", resp.Command)
	assert.True(t, resp.Result.IsCorrect)
	assert.Equal(t, "4", resp.Result.Level)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestHandlers_HandleEvaluateLaTeXResponse(t *testing.T) {
	router := setupTestRouter()
	w := postJSON(t, router, "/v1/evaluate", `{
		"response": {"response": "\\frac{x}{2}", "is_latex": true},
		"answer": "0.5*x"
	}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Result.IsCorrect)
}

func TestHandlers_HandleEvaluateIncorrect(t *testing.T) {
	router := setupTestRouter()
	w := postJSON(t, router, "/v1/evaluate", `{"response": "", "answer": "5*x"}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp EvaluateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.False(t, resp.Result.IsCorrect)
	assert.Equal(t, symgrade.NoResponseFeedback, resp.Result.Feedback)
}

func TestHandlers_HandleEvaluateConfigurationError(t *testing.T) {
	router := setupTestRouter()
	w := postJSON(t, router, "/v1/evaluate", `{"response": "x", "answer": ""}`)

	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "CONFIGURATION_ERROR", resp.Code)
	assert.Equal(t, symgrade.TagNoAnswer, resp.Details)
	assert.Equal(t, "No answer was given.", resp.Error)
}

func TestHandlers_HandleEvaluateInvalidBody(t *testing.T) {
	router := setupTestRouter()
	for _, body := range []string{`{`, `{"response": 5, "answer": "x"}`, `{"answer": "x", "params": {"atol": "big"}}`} {
		w := postJSON(t, router, "/v1/evaluate", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestHandlers_HandleEvaluateBodyTooLarge(t *testing.T) {
	router := setupTestRouter()
	body := `{"response": "` + strings.Repeat("x", MaxBodyBytes) + `", "answer": "x"}`
	w := postJSON(t, router, "/v1/evaluate", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandlers_RequestIDEchoed(t *testing.T) {
	router := setupTestRouter()
	req, _ := http.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString(`{"response": "x", "answer": "x"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-123", w.Header().Get("X-Request-ID"))
}

func TestHandlers_LogsThroughInjectedLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	router := NewRouter(NewHandlers(nil, logger), slog.New(slog.DiscardHandler))

	req, _ := http.NewRequest(http.MethodPost, "/v1/evaluate", bytes.NewBufferString(`{`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", "req-456")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	var entry map[string]any
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	assert.Equal(t, "Invalid request body", entry["msg"])
	assert.Equal(t, "req-456", entry["request_id"])
	assert.Equal(t, "HandleEvaluate", entry["handler"])
}

func TestHandlers_HandlePreview(t *testing.T) {
	router := setupTestRouter()
	w := postJSON(t, router, "/v1/preview", `{"response": "x + x", "params": {"simplify": true}}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp PreviewResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "preview", resp.Command)
	assert.Equal(t, "2*x", resp.Preview.Sympy)

	w = postJSON(t, router, "/v1/preview", `{"response": "x + (1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	var errResp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errResp))
	assert.Equal(t, "PREVIEW_FAILED", errResp.Code)
}

func TestHandlers_HandleSchema(t *testing.T) {
	router := setupTestRouter()
	req, _ := http.NewRequest(http.MethodGet, "/v1/schema", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var spec struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &spec))
	var names []string
	for _, tool := range spec.Tools {
		names = append(names, tool.Name)
	}
	assert.Contains(t, names, "evaluate")
	assert.Contains(t, names, "mcp_spec")
}

func TestHandlers_HandleMetrics(t *testing.T) {
	router := setupTestRouter()
	postJSON(t, router, "/v1/evaluate", `{"response": "x", "answer": "x"}`)

	req, _ := http.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "symgrade_evaluations_total")
}

func TestHandlers_HandleTool(t *testing.T) {
	router := setupTestRouter()
	w := postJSON(t, router, "/v1/tool", `{"tool": "simplify", "params": {"expr": "x + x"}}`)

	require.Equal(t, http.StatusOK, w.Code)
	var resp ToolResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.Error)
	assert.Equal(t, "2*x", resp.String)
}

// ============================================================
// Tool calls
// ============================================================

func TestHandleToolCall(t *testing.T) {
	g := symgrade.New()
	ctx := context.Background()

	cases := []struct {
		name   string
		req    ToolRequest
		result interface{}
		str    string
	}{
		{"simplify", ToolRequest{Tool: "simplify", Params: map[string]interface{}{"expr": "(x**2 - 1)/(x - 1)"}}, "x + 1", "x + 1"},
		{"diff", ToolRequest{Tool: "diff", Params: map[string]interface{}{"expr": "x**3", "var": "x"}}, "3*x**2", "3*x**2"},
		{"free_symbols", ToolRequest{Tool: "free_symbols", Params: map[string]interface{}{"expr": "x*y + 1", "strict": true}}, []string{"x", "y"}, ""},
		{"equivalent", ToolRequest{Tool: "equivalent", Params: map[string]interface{}{"a": "(x + 1)**2", "b": "x**2 + 2*x + 1"}}, true, "true"},
		{"latex_to_text", ToolRequest{Tool: "latex_to_text", Params: map[string]interface{}{"latex": `\sqrt[3]{x}`}}, "x**(1/3)", "x**(1/3)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := HandleToolCall(ctx, g, tc.req)
			require.Empty(t, resp.Error)
			assert.Equal(t, tc.result, resp.Result)
			assert.Equal(t, tc.str, resp.String)
		})
	}
}

func TestHandleToolCall_Evaluate(t *testing.T) {
	g := symgrade.New()
	resp := HandleToolCall(context.Background(), g, ToolRequest{Tool: "evaluate", Params: map[string]interface{}{
		"response": "x/2",
		"answer":   "0.5*x",
		"params":   map[string]interface{}{"input_symbols": []interface{}{[]interface{}{"x", []interface{}{"ex"}}}},
	}})
	require.Empty(t, resp.Error)
	res, ok := resp.Result.(symgrade.Result)
	require.True(t, ok)
	assert.True(t, res.IsCorrect)

	resp = HandleToolCall(context.Background(), g, ToolRequest{Tool: "evaluate", Params: map[string]interface{}{
		"response": "x",
		"answer":   "",
	}})
	assert.Equal(t, "No answer was given.", resp.Error)
}

func TestHandleToolCall_Errors(t *testing.T) {
	g := symgrade.New()
	ctx := context.Background()

	assert.Equal(t, "unknown tool: integrate", HandleToolCall(ctx, g, ToolRequest{Tool: "integrate"}).Error)
	assert.Equal(t, "missing param: expr", HandleToolCall(ctx, g, ToolRequest{Tool: "simplify", Params: map[string]interface{}{}}).Error)
	assert.Equal(t, "param expr must be a string",
		HandleToolCall(ctx, g, ToolRequest{Tool: "simplify", Params: map[string]interface{}{"expr": 3.0}}).Error)
	assert.Equal(t, "param params must be an object",
		HandleToolCall(ctx, g, ToolRequest{Tool: "evaluate", Params: map[string]interface{}{"response": "x", "answer": "x", "params": "strict"}}).Error)
	assert.NotEmpty(t, HandleToolCall(ctx, g, ToolRequest{Tool: "simplify", Params: map[string]interface{}{"expr": "(x"}}).Error)
}

func TestHandleToolCall_Numeric(t *testing.T) {
	resp := HandleToolCall(context.Background(), symgrade.New(), ToolRequest{Tool: "numeric", Params: map[string]interface{}{"expr": "1/4"}})
	require.Empty(t, resp.Error)
	assert.Equal(t, 0.25, resp.Result)
	assert.Equal(t, "0.25", resp.String)
}
