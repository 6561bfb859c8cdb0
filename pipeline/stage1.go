package pipeline

import (
	"context"

	"github.com/roundwise/roundwise/llm"
	"github.com/roundwise/roundwise/types"
	"go.uber.org/zap"
)

// Degraded fallback texts for stage 1, kept stable for reproducibility.
const (
	analysisUnavailableText    = "Response not available"
	analysisFailedSummary      = "Failed to generate analysis"
	analysisSeeFullText        = "See full analysis"
	degradedRecommendationSize = 500
	degradedPointSize          = 300
)

// stage1Response is the JSON shape agents are instructed to return.
type stage1Response struct {
	InitialRecommendation string            `json:"initial_recommendation"`
	OneSentenceSummary    string            `json:"one_sentence_summary"`
	CriticalPoints        map[string]string `json:"critical_points_to_consider"`
}

// RunInitialAnalysis queries all experts concurrently for their initial
// analyses. The fan-out waits for every call to settle; one agent's failure
// degrades only that agent's entry and never blocks or invalidates another
// agent's result.
func (s *Stages) RunInitialAnalysis(ctx context.Context, problem string, dimensions []string, agents []types.Agent) *types.Stage1Payload {
	reqs := make([]llm.InvokeRequest, len(agents))
	for i, agent := range agents {
		reqs[i] = llm.InvokeRequest{
			Model: agent.Model,
			Messages: []llm.Message{
				llm.NewSystemMessage(analysisSystemPrompt(agent)),
				llm.NewUserMessage(analysisUserPrompt(problem, dimensions)),
			},
			Temperature: s.cfg.Temperature,
			MaxTokens:   analysisMaxTokens,
		}
	}

	outcomes := s.gw.InvokeMany(ctx, reqs)

	payload := &types.Stage1Payload{
		Agents:   agents,
		Analyses: make(map[string]types.Stage1Entry, len(agents)),
	}
	for i, agent := range agents {
		payload.Analyses[agent.AgentID] = s.stage1Entry(agent, outcomes[i])
	}
	return payload
}

func (s *Stages) stage1Entry(agent types.Agent, outcome llm.InvokeOutcome) types.Stage1Entry {
	if outcome.Err != nil {
		s.logger.Warn("expert analysis call failed",
			zap.String("agent_id", agent.AgentID),
			zap.String("model", agent.Model),
			zap.Error(outcome.Err),
		)
		s.degraded("stage1")
		return types.Stage1Entry{
			RoleName:              agent.RoleName,
			InitialRecommendation: analysisUnavailableText,
			OneSentenceSummary:    analysisFailedSummary,
			CriticalPoints:        map[string]string{},
		}
	}

	var parsed stage1Response
	if !llm.ExtractInto(outcome.Result.Text, &parsed) {
		// The call succeeded but the output is unstructured: keep the raw
		// text rather than discard the agent's response.
		s.logger.Warn("expert analysis not parseable, degrading to raw text",
			zap.String("agent_id", agent.AgentID),
		)
		s.degraded("stage1")
		return types.Stage1Entry{
			RoleName:              agent.RoleName,
			InitialRecommendation: truncate(outcome.Result.Text, degradedRecommendationSize),
			OneSentenceSummary:    analysisSeeFullText,
			CriticalPoints:        map[string]string{"1": truncate(outcome.Result.Text, degradedPointSize)},
		}
	}

	points := parsed.CriticalPoints
	if points == nil {
		points = map[string]string{}
	}
	return types.Stage1Entry{
		RoleName:              agent.RoleName,
		InitialRecommendation: parsed.InitialRecommendation,
		OneSentenceSummary:    parsed.OneSentenceSummary,
		CriticalPoints:        points,
	}
}
