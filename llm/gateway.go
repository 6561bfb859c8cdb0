package llm

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkoukk/tiktoken-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// InvokeRequest is one gateway call: a named model, an ordered message
// sequence and the sampling parameters for this call.
type InvokeRequest struct {
	Model       string
	Messages    []Message
	Temperature float32
	MaxTokens   int
}

// InvokeResult is the success half of a gateway outcome.
type InvokeResult struct {
	Text      string
	Reasoning json.RawMessage
}

// InvokeOutcome is the settled result of one fan-out call. Exactly one of
// Result and Err is set.
type InvokeOutcome struct {
	Result *InvokeResult
	Err    error
}

// Metrics is the optional instrumentation hook for gateway calls.
type Metrics interface {
	RecordModelCall(model, outcome string, duration time.Duration)
	RecordPromptTokens(model string, tokens int)
}

// GatewayConfig bounds gateway behavior. Timeout applies per call;
// MaxConcurrent caps simultaneous fan-out calls; RequestsPerSec and Burst
// feed the shared token-bucket limiter (zero disables limiting).
type GatewayConfig struct {
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	MaxConcurrent  int           `yaml:"max_concurrent" json:"max_concurrent"`
	RequestsPerSec float64       `yaml:"requests_per_sec" json:"requests_per_sec"`
	Burst          int           `yaml:"burst" json:"burst"`
}

// DefaultGatewayConfig returns the default gateway bounds.
func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		Timeout:       60 * time.Second,
		MaxConcurrent: 4,
	}
}

// Gateway wraps a Provider with per-call timeouts, rate limiting, token
// accounting and ordered all-settle fan-out. Stage functions talk to models
// exclusively through this type.
type Gateway struct {
	provider Provider
	cfg      GatewayConfig
	limiter  *rate.Limiter
	encoder  *tiktoken.Tiktoken
	metrics  Metrics
	logger   *zap.Logger
}

// NewGateway creates a gateway around the given provider. metrics may be
// nil to disable instrumentation.
func NewGateway(provider Provider, cfg GatewayConfig, metrics Metrics, logger *zap.Logger) *Gateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGatewayConfig().Timeout
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSec > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst)
	}

	// Token estimates are best effort and only needed when instrumentation
	// is on; a missing encoding just disables them.
	var encoder *tiktoken.Tiktoken
	if metrics != nil {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			logger.Warn("tokenizer unavailable, prompt token estimates disabled", zap.Error(err))
		} else {
			encoder = enc
		}
	}

	return &Gateway{
		provider: provider,
		cfg:      cfg,
		limiter:  limiter,
		encoder:  encoder,
		metrics:  metrics,
		logger:   logger.With(zap.String("component", "model_gateway")),
	}
}

// Invoke sends one prompt to a named model and returns its raw text or a
// structured failure. A timeout is reported the same way as any other call
// failure.
func (g *Gateway) Invoke(ctx context.Context, req InvokeRequest) (*InvokeResult, error) {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, &Error{Code: ErrRateLimited, Message: "rate limiter wait aborted: " + err.Error(), Retryable: true}
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	g.recordPromptTokens(req)

	start := time.Now()
	resp, err := g.provider.Completion(callCtx, &ChatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Timeout:     g.cfg.Timeout,
	})
	duration := time.Since(start)

	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			err = &Error{Code: ErrUpstreamTimeout, Message: "model call timed out", Retryable: true, Provider: g.provider.Name()}
		}
		g.observe(req.Model, "failure", duration)
		g.logger.Warn("model call failed",
			zap.String("model", req.Model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	choice, err := FirstChoice(resp)
	if err != nil {
		g.observe(req.Model, "failure", duration)
		return nil, err
	}

	g.observe(req.Model, "success", duration)
	g.logger.Debug("model call complete",
		zap.String("model", req.Model),
		zap.Duration("duration", duration),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens),
	)

	return &InvokeResult{Text: choice.Message.Content, Reasoning: resp.Reasoning}, nil
}

// InvokeMany dispatches independent calls concurrently and waits for all of
// them to settle. Results are returned in request order, each independently
// success or failure; one slow or failed call never cancels its siblings.
func (g *Gateway) InvokeMany(ctx context.Context, reqs []InvokeRequest) []InvokeOutcome {
	outcomes := make([]InvokeOutcome, len(reqs))

	var group errgroup.Group
	if g.cfg.MaxConcurrent > 0 {
		group.SetLimit(g.cfg.MaxConcurrent)
	}
	for i, req := range reqs {
		group.Go(func() error {
			res, err := g.Invoke(ctx, req)
			outcomes[i] = InvokeOutcome{Result: res, Err: err}
			// Failures settle into their slot; the group itself never errors,
			// so sibling calls always run to completion.
			return nil
		})
	}
	_ = group.Wait()

	return outcomes
}

// HealthCheck probes the underlying provider.
func (g *Gateway) HealthCheck(ctx context.Context) (*HealthStatus, error) {
	return g.provider.HealthCheck(ctx)
}

func (g *Gateway) observe(model, outcome string, d time.Duration) {
	if g.metrics != nil {
		g.metrics.RecordModelCall(model, outcome, d)
	}
}

func (g *Gateway) recordPromptTokens(req InvokeRequest) {
	if g.encoder == nil || g.metrics == nil {
		return
	}
	tokens := 0
	for _, m := range req.Messages {
		tokens += len(g.encoder.Encode(m.Content, nil, nil))
	}
	g.metrics.RecordPromptTokens(req.Model, tokens)
}
