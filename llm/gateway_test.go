package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProvider struct {
	reply    func(req *ChatRequest) (*ChatResponse, error)
	calls    atomic.Int64
	inFlight atomic.Int64
	maxSeen  atomic.Int64
}

func (p *fakeProvider) Completion(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	p.calls.Add(1)
	cur := p.inFlight.Add(1)
	defer p.inFlight.Add(-1)
	for {
		seen := p.maxSeen.Load()
		if cur <= seen || p.maxSeen.CompareAndSwap(seen, cur) {
			break
		}
	}
	if p.reply != nil {
		return p.reply(req)
	}
	return textResponse(req.Model, "ok"), nil
}

func (p *fakeProvider) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return &HealthStatus{Healthy: true}, nil
}

func (p *fakeProvider) Name() string { return "fake" }

func textResponse(model, text string) *ChatResponse {
	return &ChatResponse{
		Model:   model,
		Choices: []ChatChoice{{Message: Message{Role: RoleAssistant, Content: text}}},
	}
}

func newTestGateway(p Provider, cfg GatewayConfig) *Gateway {
	return NewGateway(p, cfg, nil, zap.NewNop())
}

func TestGateway_Invoke(t *testing.T) {
	t.Run("returns text on success", func(t *testing.T) {
		p := &fakeProvider{reply: func(req *ChatRequest) (*ChatResponse, error) {
			return textResponse(req.Model, "hello"), nil
		}}
		g := newTestGateway(p, GatewayConfig{Timeout: time.Second})

		res, err := g.Invoke(context.Background(), InvokeRequest{Model: "m", Messages: []Message{NewUserMessage("hi")}})
		require.NoError(t, err)
		assert.Equal(t, "hello", res.Text)
	})

	t.Run("propagates provider failure", func(t *testing.T) {
		p := &fakeProvider{reply: func(req *ChatRequest) (*ChatResponse, error) {
			return nil, &Error{Code: ErrUpstreamError, Message: "boom"}
		}}
		g := newTestGateway(p, GatewayConfig{Timeout: time.Second})

		_, err := g.Invoke(context.Background(), InvokeRequest{Model: "m"})
		require.Error(t, err)
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, ErrUpstreamError, lerr.Code)
	})

	t.Run("timeout maps to upstream timeout", func(t *testing.T) {
		p := &fakeProvider{reply: func(req *ChatRequest) (*ChatResponse, error) {
			<-time.After(200 * time.Millisecond)
			return nil, context.DeadlineExceeded
		}}
		g := newTestGateway(p, GatewayConfig{Timeout: 20 * time.Millisecond})

		_, err := g.Invoke(context.Background(), InvokeRequest{Model: "m"})
		require.Error(t, err)
		var lerr *Error
		require.True(t, errors.As(err, &lerr))
		assert.Equal(t, ErrUpstreamTimeout, lerr.Code)
		assert.True(t, lerr.Retryable)
	})

	t.Run("empty choices is a failure", func(t *testing.T) {
		p := &fakeProvider{reply: func(req *ChatRequest) (*ChatResponse, error) {
			return &ChatResponse{Model: req.Model}, nil
		}}
		g := newTestGateway(p, GatewayConfig{Timeout: time.Second})

		_, err := g.Invoke(context.Background(), InvokeRequest{Model: "m"})
		require.Error(t, err)
	})
}

func TestGateway_InvokeMany(t *testing.T) {
	t.Run("preserves request order", func(t *testing.T) {
		p := &fakeProvider{reply: func(req *ChatRequest) (*ChatResponse, error) {
			if req.Model == "slow" {
				<-time.After(50 * time.Millisecond)
			}
			return textResponse(req.Model, "reply:"+req.Model), nil
		}}
		g := newTestGateway(p, GatewayConfig{Timeout: time.Second})

		outcomes := g.InvokeMany(context.Background(), []InvokeRequest{
			{Model: "slow"},
			{Model: "fast"},
		})
		require.Len(t, outcomes, 2)
		require.NoError(t, outcomes[0].Err)
		require.NoError(t, outcomes[1].Err)
		assert.Equal(t, "reply:slow", outcomes[0].Result.Text)
		assert.Equal(t, "reply:fast", outcomes[1].Result.Text)
	})

	t.Run("one failure does not affect siblings", func(t *testing.T) {
		p := &fakeProvider{reply: func(req *ChatRequest) (*ChatResponse, error) {
			if req.Model == "bad" {
				return nil, &Error{Code: ErrUpstreamError, Message: "down"}
			}
			return textResponse(req.Model, "fine"), nil
		}}
		g := newTestGateway(p, GatewayConfig{Timeout: time.Second})

		outcomes := g.InvokeMany(context.Background(), []InvokeRequest{
			{Model: "good"},
			{Model: "bad"},
			{Model: "good"},
		})
		require.Len(t, outcomes, 3)
		assert.NoError(t, outcomes[0].Err)
		assert.Error(t, outcomes[1].Err)
		assert.NoError(t, outcomes[2].Err)
		assert.Equal(t, int64(3), p.calls.Load())
	})

	t.Run("respects concurrency cap", func(t *testing.T) {
		p := &fakeProvider{reply: func(req *ChatRequest) (*ChatResponse, error) {
			<-time.After(20 * time.Millisecond)
			return textResponse(req.Model, "ok"), nil
		}}
		g := newTestGateway(p, GatewayConfig{Timeout: time.Second, MaxConcurrent: 2})

		outcomes := g.InvokeMany(context.Background(), []InvokeRequest{
			{Model: "a"}, {Model: "b"}, {Model: "c"}, {Model: "d"},
		})
		require.Len(t, outcomes, 4)
		for _, o := range outcomes {
			require.NoError(t, o.Err)
		}
		assert.LessOrEqual(t, p.maxSeen.Load(), int64(2))
	})

	t.Run("empty request list settles immediately", func(t *testing.T) {
		g := newTestGateway(&fakeProvider{}, GatewayConfig{Timeout: time.Second})
		assert.Empty(t, g.InvokeMany(context.Background(), nil))
	})
}
