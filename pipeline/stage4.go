package pipeline

import (
	"context"

	"github.com/roundwise/roundwise/llm"
	"github.com/roundwise/roundwise/types"
	"go.uber.org/zap"
)

// Fallback reasoning texts for stage 4.
const (
	scoringFallbackEqual       = "Fallback equal distribution"
	scoringFallbackUnavailable = "Fallback: response not available"
)

// defaultSolution guarantees the non-empty solution list that distributing
// the point budget requires.
var defaultSolution = types.Solution{ID: "1", Text: "Default solution"}

// stage4Response is the JSON shape agents are instructed to return.
type stage4Response struct {
	Scores    []stage4Score `json:"scores"`
	Reasoning string        `json:"reasoning"`
}

type stage4Score struct {
	ID     string  `json:"id"`
	Points float64 `json:"points"`
}

// RunScoring has each agent distribute the point budget across the
// proposed solutions, then normalizes every allocation so it sums to
// exactly PointBudget. Per-agent failures degrade to an equal split; the
// stage never fails.
func (s *Stages) RunScoring(ctx context.Context, solutions []types.Solution, stage1 *types.Stage1Payload, agents []types.Agent) *types.Stage4Payload {
	if len(solutions) == 0 {
		solutions = []types.Solution{defaultSolution}
	}

	payload := &types.Stage4Payload{Scorings: make(map[string]types.Stage4Entry, len(agents))}
	for _, agent := range agents {
		ownSummary := ""
		if entry, ok := stage1.Analyses[agent.AgentID]; ok {
			ownSummary = entry.OneSentenceSummary
		}

		res, err := s.gw.Invoke(ctx, llm.InvokeRequest{
			Model: agent.Model,
			Messages: []llm.Message{
				llm.NewSystemMessage(scoringSystemPrompt(agent)),
				llm.NewUserMessage(scoringUserPrompt(solutions, ownSummary)),
			},
			Temperature: s.cfg.ScoringTemperature,
			MaxTokens:   scoringMaxTokens,
		})
		if err != nil {
			s.logger.Warn("scoring call failed, equal split fallback",
				zap.String("agent_id", agent.AgentID),
				zap.Error(err),
			)
			s.degraded("stage4")
			payload.Scorings[agent.AgentID] = types.Stage4Entry{
				RoleName:  agent.RoleName,
				Scores:    EqualSplit(solutions),
				Reasoning: scoringFallbackUnavailable,
			}
			continue
		}

		var parsed stage4Response
		if !llm.ExtractInto(res.Text, &parsed) {
			s.logger.Warn("scoring not parseable, equal split fallback",
				zap.String("agent_id", agent.AgentID),
			)
			s.degraded("stage4")
			payload.Scorings[agent.AgentID] = types.Stage4Entry{
				RoleName:  agent.RoleName,
				Scores:    EqualSplit(solutions),
				Reasoning: scoringFallbackEqual,
			}
			continue
		}

		raw := make(map[string]int, len(parsed.Scores))
		for _, sc := range parsed.Scores {
			points := int(sc.Points)
			if points < 0 {
				points = 0
			}
			raw[sc.ID] = points
		}

		payload.Scorings[agent.AgentID] = types.Stage4Entry{
			RoleName:  agent.RoleName,
			Scores:    NormalizeScores(solutions, raw),
			Reasoning: parsed.Reasoning,
		}
	}
	return payload
}
