package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/roundwise/roundwise/api"
	"github.com/roundwise/roundwise/llm"
	"go.uber.org/zap"
)

// HealthHandler serves liveness and upstream health.
type HealthHandler struct {
	provider llm.Provider
	logger   *zap.Logger
}

// NewHealthHandler creates the handler. provider may be nil; the
// liveness answer then omits the upstream section.
func NewHealthHandler(provider llm.Provider, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		provider: provider,
		logger:   logger.With(zap.String("component", "health_handler")),
	}
}

// HandleHealth serves GET /api/health. The upstream check runs with a
// short timeout so the endpoint stays responsive when the provider is
// down; a degraded upstream still answers 200 with status "degraded".
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	resp := api.HealthResponse{Status: "ok"}

	if h.provider != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status, err := h.provider.HealthCheck(ctx)
		if err != nil {
			h.logger.Warn("upstream health check failed", zap.Error(err))
			resp.Status = "degraded"
			resp.Provider = &llm.HealthStatus{Healthy: false}
		} else {
			resp.Provider = status
			if !status.Healthy {
				resp.Status = "degraded"
			}
		}
	}

	WriteSuccess(w, resp)
}

// HandleHealthz serves GET /healthz: process liveness only, no upstream
// calls.
func (h *HealthHandler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, api.HealthResponse{Status: "ok"})
}
