package api

import (
	"time"

	"github.com/roundwise/roundwise/llm"
	"github.com/roundwise/roundwise/types"
)

// Message action kinds accepted by POST /api/conversations/{id}/message.
const (
	ActionMessage    = "message"
	ActionRoleUpdate = "role_update"
	ActionStage      = "stage"
)

// Stage names accepted by an ActionStage request.
const (
	StageRebuttal  = "rebuttal"
	StageSynthesis = "synthesis"
	StageScoring   = "scoring"
)

// MessageRequest advances a conversation. Type selects the action:
// "message" submits a problem statement, "role_update" confirms (or
// edits) the proposed experts and runs the initial analysis, "stage"
// requests one of the later stages by name.
type MessageRequest struct {
	Type    string        `json:"type"`
	Content string        `json:"content,omitempty"`
	Agents  []types.Agent `json:"agents,omitempty"`
	Stage   string        `json:"stage,omitempty"`
}

// MessageResponse carries the payload a successful action produced.
// Exactly one stage field is set, matching the action that ran. Scoring
// additionally carries the derived ranking and the anonymized label map.
type MessageResponse struct {
	ConversationID string                `json:"conversation_id"`
	Stage0         *types.Stage0Payload  `json:"stage0,omitempty"`
	Stage1         *types.Stage1Payload  `json:"stage1,omitempty"`
	Stage2         *types.Stage2Payload  `json:"stage2,omitempty"`
	Stage3         *types.Stage3Payload  `json:"stage3,omitempty"`
	Stage4         *types.Stage4Payload  `json:"stage4,omitempty"`
	Rankings       []types.AggregateRank `json:"aggregate_rankings,omitempty"`
	LabelToModel   map[string]string     `json:"label_to_model,omitempty"`
}

// CreateConversationResponse is returned by POST /api/conversations.
type CreateConversationResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// ProgressResponse is returned by GET /api/conversations/{id}/progress.
// Stage is empty when no stage is currently executing.
type ProgressResponse struct {
	ConversationID string `json:"conversation_id"`
	Stage          string `json:"stage"`
	InProgress     bool   `json:"in_progress"`
}

// ModelsResponse is returned by GET /api/config/models.
type ModelsResponse struct {
	Gatekeeper    string   `json:"gatekeeper"`
	Notary        string   `json:"notary"`
	ExpertDefault string   `json:"expert_default"`
	Available     []string `json:"available"`
}

// HealthResponse is returned by GET /api/health.
type HealthResponse struct {
	Status   string            `json:"status"`
	Provider *llm.HealthStatus `json:"provider,omitempty"`
}
