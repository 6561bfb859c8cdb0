package pipeline

import (
	"context"
	"time"

	"github.com/roundwise/roundwise/llm"
	"go.uber.org/zap"
)

// PointBudget is the total number of points each agent distributes across
// the proposed solutions in the scoring stage.
const PointBudget = 10

// Gateway is the model-invocation capability stage functions depend on.
// *llm.Gateway satisfies it; tests substitute scripted fakes.
type Gateway interface {
	Invoke(ctx context.Context, req llm.InvokeRequest) (*llm.InvokeResult, error)
	InvokeMany(ctx context.Context, reqs []llm.InvokeRequest) []llm.InvokeOutcome
}

// StageMetrics is the optional instrumentation hook for stage executions.
type StageMetrics interface {
	RecordStage(stage, outcome string, duration time.Duration)
	RecordDegradation(stage string)
}

// StageConfig selects the models and sampling parameters used by the
// stage functions.
type StageConfig struct {
	GatekeeperModel    string  `yaml:"gatekeeper" json:"gatekeeper"`
	NotaryModel        string  `yaml:"notary" json:"notary"`
	DefaultExpertModel string  `yaml:"expert_default" json:"expert_default"`
	Temperature        float32 `yaml:"temperature" json:"temperature"`
	ScoringTemperature float32 `yaml:"scoring_temperature" json:"scoring_temperature"`
}

// DefaultStageConfig returns the default sampling parameters. Model names
// have no sensible defaults and must come from configuration.
func DefaultStageConfig() StageConfig {
	return StageConfig{
		Temperature:        0.7,
		ScoringTemperature: 0.5,
	}
}

// Stages bundles the five stage functions around one gateway.
type Stages struct {
	gw      Gateway
	cfg     StageConfig
	metrics StageMetrics
	logger  *zap.Logger
}

// NewStages creates the stage function set. metrics may be nil.
func NewStages(gw Gateway, cfg StageConfig, metrics StageMetrics, logger *zap.Logger) *Stages {
	if cfg.Temperature == 0 {
		cfg.Temperature = DefaultStageConfig().Temperature
	}
	if cfg.ScoringTemperature == 0 {
		cfg.ScoringTemperature = DefaultStageConfig().ScoringTemperature
	}
	return &Stages{
		gw:      gw,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger.With(zap.String("component", "pipeline")),
	}
}

func (s *Stages) degraded(stage string) {
	if s.metrics != nil {
		s.metrics.RecordDegradation(stage)
	}
}

func (s *Stages) recordStage(stage, outcome string, duration time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordStage(stage, outcome, duration)
	}
}
