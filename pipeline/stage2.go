package pipeline

import (
	"context"
	"fmt"
	"net/http"

	"github.com/roundwise/roundwise/llm"
	"github.com/roundwise/roundwise/types"
	"go.uber.org/zap"
)

// Degraded fallback texts for stage 2.
const (
	rebuttalUnavailableText = "Rebuttal not available"
	rebuttalFailedSummary   = "Failed to generate rebuttal"
)

// stage2Response is the JSON shape agents are instructed to return.
type stage2Response struct {
	FinalStance        string            `json:"final_stance"`
	OneSentenceSummary string            `json:"one_sentence_summary"`
	CriticalPoints     map[string]string `json:"critical_points_to_consider"`
	CriticalEvaluation string            `json:"critical_evaluation"`
}

// expertLabel is the anonymized display label for the agent at index i.
func expertLabel(i int) string {
	return fmt.Sprintf("Response Expert %d", i+1)
}

// RunRebuttal has each expert read the counterpart's stage-1 analysis,
// anonymized under a positional label, and produce a refined stance. The
// current protocol is strictly pairwise. An agent whose own stage-1 entry
// or whose counterpart's entry is missing is skipped entirely; call and
// parse failures degrade that agent's entry only.
func (s *Stages) RunRebuttal(ctx context.Context, problem string, agents []types.Agent, stage1 *types.Stage1Payload) (*types.Stage2Payload, error) {
	if len(agents) != 2 {
		return nil, types.NewError(types.ErrPreconditionFailed,
			fmt.Sprintf("rebuttal requires exactly 2 agents, got %d", len(agents))).
			WithHTTPStatus(http.StatusBadRequest)
	}

	payload := &types.Stage2Payload{
		Rebuttals:    make(map[string]types.Stage2Entry, len(agents)),
		LabelToModel: make(map[string]string, len(agents)),
	}

	// Both calls are independent, so dispatch them as one fan-out.
	type pending struct {
		idx   int
		other types.Stage1Entry
	}
	var reqs []llm.InvokeRequest
	var order []pending

	for i, agent := range agents {
		other := agents[1-i]
		own, ownOK := stage1.Analyses[agent.AgentID]
		otherEntry, otherOK := stage1.Analyses[other.AgentID]
		if !ownOK || !otherOK {
			s.logger.Warn("skipping rebuttal, stage-1 entry missing",
				zap.String("agent_id", agent.AgentID),
				zap.Bool("own_present", ownOK),
				zap.Bool("counterpart_present", otherOK),
			)
			continue
		}

		payload.LabelToModel[expertLabel(i)] = agent.Model

		reqs = append(reqs, llm.InvokeRequest{
			Model: agent.Model,
			Messages: []llm.Message{
				llm.NewSystemMessage(rebuttalSystemPrompt(agent)),
				llm.NewUserMessage(rebuttalUserPrompt(problem, own.OneSentenceSummary, expertLabel(1-i), otherEntry)),
			},
			Temperature: s.cfg.Temperature,
			MaxTokens:   rebuttalMaxTokens,
		})
		order = append(order, pending{idx: i, other: otherEntry})
	}

	outcomes := s.gw.InvokeMany(ctx, reqs)
	for j, p := range order {
		agent := agents[p.idx]
		payload.Rebuttals[agent.AgentID] = s.stage2Entry(agent, p.other, outcomes[j])
	}
	return payload, nil
}

func (s *Stages) stage2Entry(agent types.Agent, other types.Stage1Entry, outcome llm.InvokeOutcome) types.Stage2Entry {
	entry := types.Stage2Entry{
		RoleName:        agent.RoleName,
		OtherExpertRole: other.RoleName,
		CriticalPoints:  map[string]string{},
	}

	if outcome.Err != nil {
		s.logger.Warn("rebuttal call failed",
			zap.String("agent_id", agent.AgentID),
			zap.Error(outcome.Err),
		)
		s.degraded("stage2")
		entry.FinalStance = rebuttalUnavailableText
		entry.OneSentenceSummary = rebuttalFailedSummary
		return entry
	}

	var parsed stage2Response
	if !llm.ExtractInto(outcome.Result.Text, &parsed) {
		s.logger.Warn("rebuttal not parseable, degrading to raw text",
			zap.String("agent_id", agent.AgentID),
		)
		s.degraded("stage2")
		entry.FinalStance = truncate(outcome.Result.Text, degradedRecommendationSize)
		entry.OneSentenceSummary = analysisSeeFullText
		return entry
	}

	entry.FinalStance = parsed.FinalStance
	entry.OneSentenceSummary = parsed.OneSentenceSummary
	entry.CriticalEvaluation = parsed.CriticalEvaluation
	if parsed.CriticalPoints != nil {
		entry.CriticalPoints = parsed.CriticalPoints
	}
	return entry
}
