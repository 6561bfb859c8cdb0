// Package metrics provides the Prometheus collector for the service. It
// is internal and should not be imported by external projects.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

// Collector records HTTP, model-call and pipeline-stage metrics. It
// satisfies both the gateway and the pipeline instrumentation interfaces.
type Collector struct {
	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	modelCallsTotal   *prometheus.CounterVec
	modelCallDuration *prometheus.HistogramVec
	promptTokens      *prometheus.CounterVec

	stageRunsTotal   *prometheus.CounterVec
	stageDuration    *prometheus.HistogramVec
	stageDegradation *prometheus.CounterVec

	logger *zap.Logger
}

// NewCollector registers all metrics on reg. Tests pass a private
// registry; main passes prometheus.DefaultRegisterer.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	factory := promauto.With(reg)

	c := &Collector{logger: logger.With(zap.String("component", "metrics"))}

	c.httpRequestsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	c.httpRequestDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	c.modelCallsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "model_calls_total",
			Help:      "Total number of upstream model calls",
		},
		[]string{"model", "outcome"},
	)
	c.modelCallDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "model_call_duration_seconds",
			Help:      "Upstream model call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)
	c.promptTokens = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prompt_tokens_total",
			Help:      "Estimated prompt tokens sent upstream",
		},
		[]string{"model"},
	)

	c.stageRunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_runs_total",
			Help:      "Total number of pipeline stage executions",
		},
		[]string{"stage", "outcome"},
	)
	c.stageDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"stage"},
	)
	c.stageDegradation = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_degradations_total",
			Help:      "Per-agent degraded results within a stage",
		},
		[]string{"stage"},
	)

	logger.Info("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// RecordHTTPRequest records one served HTTP request.
func (c *Collector) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	c.httpRequestsTotal.WithLabelValues(method, path, statusClass(status)).Inc()
	c.httpRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordModelCall records one upstream completion call.
func (c *Collector) RecordModelCall(model, outcome string, duration time.Duration) {
	c.modelCallsTotal.WithLabelValues(model, outcome).Inc()
	c.modelCallDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordPromptTokens adds the estimated prompt token count for a call.
func (c *Collector) RecordPromptTokens(model string, tokens int) {
	c.promptTokens.WithLabelValues(model).Add(float64(tokens))
}

// RecordStage records one pipeline stage execution.
func (c *Collector) RecordStage(stage, outcome string, duration time.Duration) {
	c.stageRunsTotal.WithLabelValues(stage, outcome).Inc()
	c.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordDegradation counts one agent falling back to a degraded result.
func (c *Collector) RecordDegradation(stage string) {
	c.stageDegradation.WithLabelValues(stage).Inc()
}

func statusClass(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "2xx"
	case code >= 300 && code < 400:
		return "3xx"
	case code >= 400 && code < 500:
		return "4xx"
	case code >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
