package handlers

import (
	"net/http"

	"github.com/roundwise/roundwise/api"
	"github.com/roundwise/roundwise/config"
	"github.com/roundwise/roundwise/types"
	"go.uber.org/zap"
)

// ModelsHandler serves the model configuration endpoint.
type ModelsHandler struct {
	models config.ModelsConfig
	logger *zap.Logger
}

// NewModelsHandler creates the handler.
func NewModelsHandler(models config.ModelsConfig, logger *zap.Logger) *ModelsHandler {
	return &ModelsHandler{
		models: models,
		logger: logger.With(zap.String("component", "models_handler")),
	}
}

// HandleModels serves GET /api/config/models: the per-role model
// selection plus the list clients may choose from when editing experts.
func (h *ModelsHandler) HandleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteErrorMessage(w, http.StatusMethodNotAllowed, types.ErrInvalidRequest, "method not allowed", h.logger)
		return
	}

	available := h.models.Available
	if available == nil {
		available = []string{}
	}
	WriteSuccess(w, api.ModelsResponse{
		Gatekeeper:    h.models.Gatekeeper,
		Notary:        h.models.Notary,
		ExpertDefault: h.models.ExpertDefault,
		Available:     available,
	})
}
