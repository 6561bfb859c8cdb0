package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/roundwise/roundwise/api"
	"github.com/roundwise/roundwise/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleModels(t *testing.T) {
	h := NewModelsHandler(config.ModelsConfig{
		Gatekeeper:    "openai/gpt-4-turbo",
		Notary:        "anthropic/claude-3-opus",
		ExpertDefault: "openai/gpt-4-turbo",
		Available:     []string{"openai/gpt-4-turbo", "anthropic/claude-3-opus"},
	}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.HandleModels(rec, httptest.NewRequest(http.MethodGet, "/api/config/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var env Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	raw, err := json.Marshal(env.Data)
	require.NoError(t, err)
	var resp api.ModelsResponse
	require.NoError(t, json.Unmarshal(raw, &resp))

	assert.Equal(t, "openai/gpt-4-turbo", resp.Gatekeeper)
	assert.Equal(t, "anthropic/claude-3-opus", resp.Notary)
	assert.Len(t, resp.Available, 2)
}

func TestHandleModelsEmptyAvailableList(t *testing.T) {
	h := NewModelsHandler(config.ModelsConfig{}, zap.NewNop())
	rec := httptest.NewRecorder()
	h.HandleModels(rec, httptest.NewRequest(http.MethodGet, "/api/config/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"available":[]`)
}

func TestHandleModelsMethodNotAllowed(t *testing.T) {
	h := NewModelsHandler(config.ModelsConfig{}, zap.NewNop())
	rec := httptest.NewRecorder()
	h.HandleModels(rec, httptest.NewRequest(http.MethodPost, "/api/config/models", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
