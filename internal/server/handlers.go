package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/njchilds90/symgrade"
)

// ServiceVersion is the grading service version.
const ServiceVersion = "0.1.0"

// Handlers contains the HTTP handlers of the grading service.
type Handlers struct {
	grader *symgrade.Grader
	logger *slog.Logger
}

// NewHandlers creates handlers that grade with g and log to logger. A nil g
// uses a default Grader and a nil logger uses slog.Default().
func NewHandlers(g *symgrade.Grader, logger *slog.Logger) *Handlers {
	if g == nil {
		g = symgrade.New()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{grader: g, logger: logger}
}

// HandleEvaluate handles POST /v1/evaluate.
//
// Response:
//
//	200 OK: EvaluateResponse, for correct and incorrect responses alike
//	400 Bad Request: the body is not a valid EvaluateRequest
//	422 Unprocessable Entity: the answer or params are defective
//	504 Gateway Timeout: the request deadline passed during grading
func (h *Handlers) HandleEvaluate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleEvaluate")

	var req EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	res, err := h.grader.Evaluate(c.Request.Context(), req.Response, req.Answer, req.Params)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	logger.Debug("Evaluated response", "correct", res.IsCorrect, "level", res.Level)
	c.JSON(http.StatusOK, EvaluateResponse{Command: "eval", Result: res})
}

// HandlePreview handles POST /v1/preview.
//
// Response:
//
//	200 OK: PreviewResponse
//	400 Bad Request: invalid body, or the response could not be read
func (h *Handlers) HandlePreview(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandlePreview")

	var req PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	p, err := h.grader.Preview(c.Request.Context(), req.Response, req.Params)
	if err != nil {
		writeError(c, logger, err)
		return
	}
	c.JSON(http.StatusOK, PreviewResponse{Command: "preview", Preview: p})
}

// HandleTool handles POST /v1/tool.
func (h *Handlers) HandleTool(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.logger.With("request_id", requestID, "handler", "HandleTool")

	var req ToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Invalid request body", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "Invalid request body",
			Code:  "INVALID_REQUEST",
		})
		return
	}

	resp := HandleToolCall(c.Request.Context(), h.grader, req)
	if resp.Error != "" {
		logger.Debug("Tool call failed", "tool", req.Tool, "error", resp.Error)
	}
	c.JSON(http.StatusOK, resp)
}

// HandleSchema handles GET /v1/schema.
func (h *Handlers) HandleSchema(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(ToolSpec()))
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: ServiceVersion,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// writeError maps a grading error onto a status code.
func writeError(c *gin.Context, logger *slog.Logger, err error) {
	var ce *symgrade.ConfigurationError
	switch {
	case errors.As(err, &ce):
		logger.Warn("Configuration error", "tag", ce.Tag, "error", err)
		c.JSON(http.StatusUnprocessableEntity, ErrorResponse{
			Error:   ce.Reason,
			Code:    "CONFIGURATION_ERROR",
			Details: ce.Tag,
		})
	case errors.Is(err, symgrade.ErrPreviewParse):
		logger.Debug("Preview failed", "error", err)
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "PREVIEW_FAILED",
		})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		logger.Warn("Request cancelled", "error", err)
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{
			Error: "Request cancelled",
			Code:  "TIMEOUT",
		})
	default:
		logger.Error("Grading failed", "error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "Internal error",
			Code:  "INTERNAL_ERROR",
		})
	}
}

// getOrCreateRequestID returns the X-Request-ID header, generating one when
// absent, and echoes it on the response.
func getOrCreateRequestID(c *gin.Context) string {
	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Header("X-Request-ID", requestID)
	return requestID
}
