package pipeline

import (
	"context"
	"fmt"

	"github.com/roundwise/roundwise/llm"
	"github.com/roundwise/roundwise/types"
	"go.uber.org/zap"
)

// defaultKeyDimensions is the deterministic fallback dimension list used
// when the gatekeeper call fails or returns no recoverable JSON.
var defaultKeyDimensions = []string{"Technical", "Business", "User Experience"}

// RunGatekeeper normalizes the raw problem text and proposes the expert
// agents. Every downstream stage depends unconditionally on the shape of
// this result, so it never fails: on any upstream or parsing failure it
// returns the deterministic fallback payload instead.
func (s *Stages) RunGatekeeper(ctx context.Context, problem string) *types.Stage0Payload {
	res, err := s.gw.Invoke(ctx, llm.InvokeRequest{
		Model: s.cfg.GatekeeperModel,
		Messages: []llm.Message{
			llm.NewSystemMessage(gatekeeperSystemPrompt),
			llm.NewUserMessage(gatekeeperUserPrompt(problem)),
		},
		Temperature: s.cfg.Temperature,
		MaxTokens:   gatekeeperMaxTokens,
	})
	if err != nil {
		s.logger.Warn("gatekeeper call failed, using fallback", zap.Error(err))
		s.degraded("stage0")
		return s.fallbackStage0(problem)
	}

	var payload types.Stage0Payload
	if !llm.ExtractInto(res.Text, &payload) {
		s.logger.Warn("gatekeeper returned no recoverable JSON, using fallback")
		s.degraded("stage0")
		return s.fallbackStage0(problem)
	}

	s.sanitizeStage0(&payload, problem)
	return &payload
}

// sanitizeStage0 patches holes in a parsed gatekeeper result so the payload
// shape downstream stages rely on always holds.
func (s *Stages) sanitizeStage0(p *types.Stage0Payload, problem string) {
	if p.NormalizedProblem == "" {
		p.NormalizedProblem = problem
	}
	if len(p.KeyDimensions) == 0 {
		p.KeyDimensions = append([]string(nil), defaultKeyDimensions...)
	}
	if len(p.ProposedAgents) == 0 {
		p.ProposedAgents = s.fallbackAgents()
	}
	for i := range p.ProposedAgents {
		if p.ProposedAgents[i].AgentID == "" {
			p.ProposedAgents[i].AgentID = agentID(i)
		}
		if p.ProposedAgents[i].Model == "" {
			p.ProposedAgents[i].Model = s.cfg.DefaultExpertModel
		}
	}
}

func (s *Stages) fallbackStage0(problem string) *types.Stage0Payload {
	return &types.Stage0Payload{
		NormalizedProblem: problem,
		KeyDimensions:     append([]string(nil), defaultKeyDimensions...),
		ProposedAgents:    s.fallbackAgents(),
	}
}

func (s *Stages) fallbackAgents() []types.Agent {
	return []types.Agent{
		{
			AgentID:     "expert_1",
			RoleName:    "Technical Expert",
			RoleMission: "Analyze the technical feasibility and implementation aspects",
			Model:       s.cfg.DefaultExpertModel,
		},
		{
			AgentID:     "expert_2",
			RoleName:    "Business Strategist",
			RoleMission: "Consider business impact, market fit, and strategic implications",
			Model:       s.cfg.DefaultExpertModel,
		},
	}
}

func agentID(i int) string {
	return fmt.Sprintf("expert_%d", i+1)
}
