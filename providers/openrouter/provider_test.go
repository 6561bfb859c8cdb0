package openrouter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/roundwise/roundwise/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) (*Provider, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	p := New(Config{APIKey: "test-key", BaseURL: srv.URL, Timeout: 2 * time.Second}, zap.NewNop())
	return p, srv
}

func TestProvider_Completion(t *testing.T) {
	t.Run("success returns first choice text", func(t *testing.T) {
		p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

			var req openAIRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "openai/gpt-4-turbo", req.Model)
			require.Len(t, req.Messages, 2)
			assert.Equal(t, "system", req.Messages[0].Role)

			json.NewEncoder(w).Encode(openAIResponse{
				ID:    "gen-1",
				Model: req.Model,
				Choices: []openAIChoice{{
					FinishReason: "stop",
					Message:      openAIMessage{Role: "assistant", Content: `{"answer": 42}`},
				}},
				Usage: &openAIUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
			})
		})

		resp, err := p.Completion(context.Background(), &llm.ChatRequest{
			Model: "openai/gpt-4-turbo",
			Messages: []llm.Message{
				llm.NewSystemMessage("you are a test"),
				llm.NewUserMessage("answer"),
			},
		})
		require.NoError(t, err)
		choice, err := llm.FirstChoice(resp)
		require.NoError(t, err)
		assert.Equal(t, `{"answer": 42}`, choice.Message.Content)
		assert.Equal(t, 15, resp.Usage.TotalTokens)
	})

	t.Run("reasoning details are surfaced", func(t *testing.T) {
		p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"id":"gen-2","model":"m","choices":[{"message":{"role":"assistant","content":"ok","reasoning_details":[{"type":"summary"}]}}]}`))
		})

		resp, err := p.Completion(context.Background(), &llm.ChatRequest{Model: "m"})
		require.NoError(t, err)
		assert.JSONEq(t, `[{"type":"summary"}]`, string(resp.Reasoning))
	})

	t.Run("error status maps to typed error", func(t *testing.T) {
		tests := []struct {
			name   string
			status int
			body   string
			code   llm.ErrorCode
			retry  bool
		}{
			{"unauthorized", http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, llm.ErrUnauthorized, false},
			{"rate limited", http.StatusTooManyRequests, `{"error":{"message":"slow down"}}`, llm.ErrRateLimited, true},
			{"quota in 400", http.StatusBadRequest, `{"error":{"message":"insufficient credits"}}`, llm.ErrQuotaExceeded, false},
			{"plain 400", http.StatusBadRequest, `{"error":{"message":"bad request"}}`, llm.ErrInvalidRequest, false},
			{"bad gateway", http.StatusBadGateway, `upstream died`, llm.ErrUpstreamError, true},
			{"overloaded", 529, `{"error":{"message":"overloaded"}}`, llm.ErrModelOverloaded, true},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.status)
					w.Write([]byte(tt.body))
				})

				_, err := p.Completion(context.Background(), &llm.ChatRequest{Model: "m"})
				require.Error(t, err)
				lerr, ok := err.(*llm.Error)
				require.True(t, ok)
				assert.Equal(t, tt.code, lerr.Code)
				assert.Equal(t, tt.retry, lerr.Retryable)
			})
		}
	})

	t.Run("malformed success body is upstream error", func(t *testing.T) {
		p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("not json"))
		})

		_, err := p.Completion(context.Background(), &llm.ChatRequest{Model: "m"})
		require.Error(t, err)
		lerr, ok := err.(*llm.Error)
		require.True(t, ok)
		assert.Equal(t, llm.ErrUpstreamError, lerr.Code)
	})
}

func TestProvider_HealthCheck(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/models", r.URL.Path)
			w.Write([]byte(`{"data":[]}`))
		})
		status, err := p.HealthCheck(context.Background())
		require.NoError(t, err)
		assert.True(t, status.Healthy)
	})

	t.Run("unhealthy on error status", func(t *testing.T) {
		p, _ := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
		status, err := p.HealthCheck(context.Background())
		require.Error(t, err)
		assert.False(t, status.Healthy)
	})
}
