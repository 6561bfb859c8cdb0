package types

// Agent is a configured expert persona bound to one underlying model.
// Agents are created by stage 0 (or supplied by the caller overriding the
// proposal) and are immutable thereafter. The current protocol runs with
// exactly two agents, but nothing here depends on that count.
type Agent struct {
	AgentID     string `json:"agent_id"`
	RoleName    string `json:"role_name"`
	RoleMission string `json:"role_mission"`
	Model       string `json:"llm_model"`
}

// Stage0Payload is the gatekeeper result: the normalized problem statement,
// its key dimensions and the proposed expert agents.
type Stage0Payload struct {
	NormalizedProblem string   `json:"normalized_problem"`
	KeyDimensions     []string `json:"key_dimensions"`
	ProposedAgents    []Agent  `json:"proposed_agents"`
}

// Stage1Entry is one agent's initial analysis. CriticalPoints maps ordinals
// ("1", "2", ...) to point text, mirroring the model's output shape.
type Stage1Entry struct {
	RoleName              string            `json:"role_name"`
	InitialRecommendation string            `json:"initial_recommendation"`
	OneSentenceSummary    string            `json:"one_sentence_summary"`
	CriticalPoints        map[string]string `json:"critical_points_to_consider"`
}

// Stage1Payload holds the per-agent initial analyses keyed by agent id.
// Agents is the confirmed roster the analyses were run with; when the
// caller edits the stage-0 proposal, this list is the one later stages
// operate on.
type Stage1Payload struct {
	Agents   []Agent                `json:"agents"`
	Analyses map[string]Stage1Entry `json:"analyses"`
}

// Stage2Entry is one agent's rebuttal after reading the counterpart's
// stage-1 analysis.
type Stage2Entry struct {
	RoleName           string            `json:"role_name"`
	OtherExpertRole    string            `json:"other_expert_role"`
	FinalStance        string            `json:"final_stance"`
	OneSentenceSummary string            `json:"one_sentence_summary"`
	CriticalPoints     map[string]string `json:"critical_points_to_consider"`
	CriticalEvaluation string            `json:"critical_evaluation"`
}

// Stage2Payload holds the per-agent rebuttals plus the label-to-model map.
// LabelToModel resolves anonymized labels ("Response Expert 1") back to the
// underlying model identifier for display; prompts only ever see the label.
type Stage2Payload struct {
	Rebuttals    map[string]Stage2Entry `json:"rebuttals"`
	LabelToModel map[string]string      `json:"label_to_model"`
}

// Solution is one deduplicated proposal extracted by the notary. IDs are
// sequential strings starting at "1".
type Solution struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Stage3Payload is the notary synthesis: a markdown summary of the debate
// and the extracted solution list.
type Stage3Payload struct {
	SummaryMarkdown   string     `json:"summary_markdown"`
	ProposedSolutions []Solution `json:"proposed_solutions"`
}

// ScoreEntry is one agent's allocation for a single solution, with the
// solution text denormalized for display.
type ScoreEntry struct {
	ID     string `json:"id"`
	Text   string `json:"text"`
	Points int    `json:"points"`
}

// Stage4Entry is one agent's full scoring. After normalization the points
// across Scores always sum to exactly the stage-4 point budget.
type Stage4Entry struct {
	RoleName  string       `json:"role_name"`
	Scores    []ScoreEntry `json:"scores"`
	Reasoning string       `json:"reasoning"`
}

// Stage4Payload holds the per-agent scorings keyed by agent id.
type Stage4Payload struct {
	Scorings map[string]Stage4Entry `json:"scorings"`
}

// AggregateRank is the derived cross-agent total for one solution. Rankings
// are recomputed on demand from a Stage4Payload and never persisted.
type AggregateRank struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Total int    `json:"total"`
}
