package symgrade

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
)

var tracer = otel.Tracer("symgrade")

// ============================================================
// Prometheus metrics
// ============================================================

var (
	// evaluationsTotal counts completed evaluations.
	// Labels: verdict (correct, incorrect), level ("", 0, 4)
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "symgrade",
		Name:      "evaluations_total",
		Help:      "Total evaluations by verdict and level",
	}, []string{"verdict", "level"})

	// configurationErrors counts evaluations aborted by an authoring defect.
	// Labels: tag
	configurationErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "symgrade",
		Name:      "configuration_errors_total",
		Help:      "Total evaluations aborted by a configuration error",
	}, []string{"tag"})

	evaluationDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "symgrade",
		Name:      "evaluation_duration_seconds",
		Help:      "Evaluation latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	})

	// stageDuration measures each checker stage.
	// Labels: stage (parse, tolerance, sampling, symbolic)
	stageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "symgrade",
		Subsystem: "check",
		Name:      "stage_duration_seconds",
		Help:      "Checker stage latency in seconds",
		Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"stage"})

	// previewsTotal counts preview requests.
	// Labels: status (ok, error)
	previewsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "symgrade",
		Name:      "previews_total",
		Help:      "Total preview requests by status",
	}, []string{"status"})
)

func verdictLabel(correct bool) string {
	if correct {
		return "correct"
	}
	return "incorrect"
}
