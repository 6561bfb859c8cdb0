package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	return NewCollector("roundwise", reg, zap.NewNop()), reg
}

func TestRecordHTTPRequest(t *testing.T) {
	c, _ := newTestCollector(t)
	c.RecordHTTPRequest("POST", "/api/conversations", 201, 5*time.Millisecond)
	c.RecordHTTPRequest("POST", "/api/conversations", 201, 5*time.Millisecond)
	c.RecordHTTPRequest("GET", "/api/health", 500, time.Millisecond)

	assert.Equal(t, float64(2), testutil.ToFloat64(
		c.httpRequestsTotal.WithLabelValues("POST", "/api/conversations", "2xx")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.httpRequestsTotal.WithLabelValues("GET", "/api/health", "5xx")))
}

func TestRecordModelCall(t *testing.T) {
	c, _ := newTestCollector(t)
	c.RecordModelCall("openai/gpt-4-turbo", "success", time.Second)
	c.RecordModelCall("openai/gpt-4-turbo", "error", 2*time.Second)
	c.RecordPromptTokens("openai/gpt-4-turbo", 120)
	c.RecordPromptTokens("openai/gpt-4-turbo", 30)

	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.modelCallsTotal.WithLabelValues("openai/gpt-4-turbo", "success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.modelCallsTotal.WithLabelValues("openai/gpt-4-turbo", "error")))
	assert.Equal(t, float64(150), testutil.ToFloat64(
		c.promptTokens.WithLabelValues("openai/gpt-4-turbo")))
}

func TestRecordStage(t *testing.T) {
	c, _ := newTestCollector(t)
	c.RecordStage("stage1", "success", 10*time.Second)
	c.RecordDegradation("stage1")
	c.RecordDegradation("stage1")

	assert.Equal(t, float64(1), testutil.ToFloat64(
		c.stageRunsTotal.WithLabelValues("stage1", "success")))
	assert.Equal(t, float64(2), testutil.ToFloat64(
		c.stageDegradation.WithLabelValues("stage1")))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "3xx", statusClass(302))
	assert.Equal(t, "4xx", statusClass(404))
	assert.Equal(t, "5xx", statusClass(503))
	assert.Equal(t, "unknown", statusClass(42))
}

func TestSeparateRegistriesDoNotCollide(t *testing.T) {
	_, reg1 := newTestCollector(t)
	_, reg2 := newTestCollector(t)
	require.NotNil(t, reg1)
	require.NotNil(t, reg2)
}
