package server

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MaxBodyBytes caps the size of request bodies.
const MaxBodyBytes = 1 << 20 // 1 MiB

// RegisterRoutes registers the grading endpoints with the router group.
//
//	POST /v1/evaluate - Grade a response
//	POST /v1/preview  - Render a response
//	POST /v1/tool     - Execute a tool call
//	GET  /v1/schema   - Tool schema for agent registration
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.POST("/evaluate", handlers.HandleEvaluate)
	rg.POST("/preview", handlers.HandlePreview)
	rg.POST("/tool", handlers.HandleTool)
	rg.GET("/schema", handlers.HandleSchema)
}

// NewRouter builds the service router: the /v1 API plus /health and
// /metrics, behind recovery, body limit and access log middleware.
func NewRouter(handlers *Handlers, logger *slog.Logger) *gin.Engine {
	if logger == nil {
		logger = slog.Default()
	}
	router := gin.New()
	router.Use(recovery(logger), limitBody(MaxBodyBytes), accessLog(logger))

	router.GET("/health", handlers.HandleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/v1")
	RegisterRoutes(v1, handlers)
	return router
}

// ============================================================
// Middleware
// ============================================================

func recovery(logger *slog.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, rec any) {
		logger.Error("panic in handler", "path", c.Request.URL.Path, "panic", rec, "stack", string(debug.Stack()))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
	})
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func accessLog(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", c.Writer.Header().Get("X-Request-ID"),
		)
	}
}
