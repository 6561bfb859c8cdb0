package pipeline

import (
	"fmt"
	"sort"
	"strings"

	"github.com/roundwise/roundwise/types"
)

// Per-stage completion budgets, in tokens.
const (
	gatekeeperMaxTokens = 1500
	analysisMaxTokens   = 2000
	rebuttalMaxTokens   = 1500
	synthesisMaxTokens  = 2000
	scoringMaxTokens    = 1000
)

const gatekeeperSystemPrompt = `You are a Gatekeeper AI that normalizes problem statements and proposes expert roles for analysis.

Your job:
1. Normalize the user's problem statement for clarity and remove ambiguity, without removing details.
2. Identify 2-3 key dimensions or stakeholder perspectives relevant to this problem
3. Propose exactly 2 expert roles that would provide diverse perspectives on this problem

Return ONLY valid JSON (no markdown, no extra text) with this structure:
{
  "normalized_problem": "A clear, concise version of the problem",
  "key_dimensions": ["dimension1", "dimension2", "dimension3"],
  "proposed_agents": [
    {
      "role_name": "Expert Role Name",
      "role_mission": "What this expert should focus on (1-3 sentences)",
      "llm_model": "openai/gpt-4-turbo",
      "agent_id": "expert_1"
    },
    {
      "role_name": "Another Expert Role",
      "role_mission": "Different perspective or focus area (1-3 sentences)",
      "llm_model": "openai/gpt-4-turbo",
      "agent_id": "expert_2"
    }
  ]
}`

func gatekeeperUserPrompt(problem string) string {
	return "Please analyze this problem and propose expert roles:\n\n" + problem
}

const analysisSystemTemplate = `You are a specialized expert analyst with a specific role and perspective.

Your role: %s
Your mission: %s

Provide an initial analysis of the problem that has been presented to you. Structure your response as valid JSON:

{
  "initial_recommendation": "Markdown of your reasoning to support your position (max 6 sentences)",
  "one_sentence_summary": "A one sentence chat-like message that explains your overall position",
  "critical_points_to_consider": {
    "1": "First key point",
    "2": "Second key point",
    "3": "Third key point"
  }
}

Be thorough but concise. Focus on YOUR unique perspective and expertise.`

func analysisSystemPrompt(agent types.Agent) string {
	return fmt.Sprintf(analysisSystemTemplate, agent.RoleName, agent.RoleMission)
}

func analysisUserPrompt(problem string, dimensions []string) string {
	var b strings.Builder
	b.WriteString("Analyze this problem from your expert perspective:\n\n")
	b.WriteString("Problem: " + problem + "\n\n")
	b.WriteString("Key dimensions to consider:\n")
	for _, dim := range dimensions {
		b.WriteString("- " + dim + "\n")
	}
	b.WriteString("\nProvide your initial analysis now.")
	return b.String()
}

const rebuttalSystemTemplate = `You are a specialized expert analyst with a specific role and perspective.

Your role: %s
Your mission: %s

You have already provided an initial analysis. Now, you are seeing the initial analysis from another expert.

Read their analysis carefully, analyse critically and be autocritical with yourself. Provide a refined analysis considering the following:
1. In what ways do you agree or disagree with their key points?
2. How could your original analysis be improved or adjusted in light of their perspective?
3. What do you think they can improve in their analysis?
4. Do you wish to revise or reinforce your original analysis?

Structure your response as valid JSON:

{
  "final_stance": "Your refined position after considering the other expert's perspective",
  "one_sentence_summary": "A concise short chat-like message that explains your refined position",
  "critical_points_to_consider": {
    "1": "Most relevant point",
    "2": "Second most relevant point",
    "3": "Final point"
  },
  "critical_evaluation": "Your overall evaluation of the problem given both perspectives"
}

IMPORTANT
- Consider that the other expert does not need to have the same perspective as you, so focus on how both analyses can be merged or contrasted to improve overall understanding.`

func rebuttalSystemPrompt(agent types.Agent) string {
	return fmt.Sprintf(rebuttalSystemTemplate, agent.RoleName, agent.RoleMission)
}

// rebuttalUserPrompt embeds the counterpart's stage-1 content under an
// anonymized label. The underlying model identifier never appears here.
func rebuttalUserPrompt(problem, ownSummary, otherLabel string, other types.Stage1Entry) string {
	var points strings.Builder
	keys := make([]string, 0, len(other.CriticalPoints))
	for k := range other.CriticalPoints {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		points.WriteString("- " + other.CriticalPoints[k] + "\n")
	}

	return fmt.Sprintf(`The problem was: %s

Your original analysis summary: %s

Here is the initial analysis from %s:

Their one-sentence summary: %s

Their initial recommendation: %s

Their key reasoning points:
%s
Now provide your rebuttal and refined analysis:`,
		problem, ownSummary, otherLabel,
		other.OneSentenceSummary, other.InitialRecommendation, points.String())
}

const synthesisSystemPrompt = `You are a Notary synthesizing expert deliberation. Return ONLY valid JSON, no other text.`

func synthesisUserPrompt(problem, stage1JSON, stage2JSON string) string {
	return fmt.Sprintf(`You are a Notary - a synthesizer of expert deliberations.

The problem under discussion:
%s

Expert analyses (Stage 1):
%s

Expert rebuttals (Stage 2):
%s

Your job:
1. Synthesize the key points and areas of agreement/disagreement among experts
2. Produce a coherent markdown summary that captures the essential debate
3. Extract a deduplicated list of unique solutions or recommendations that appeared in the expert analyses

Return only valid JSON:
{
  "summary_markdown": "A bulleted markdown summary capturing the key points of the expert discussion, with headers: Problem Overview, Expert Analyses, Key Agreements and Disagreements. Max 3 points per section.",
  "proposed_solutions": [
    {"id": "1", "text": "Solution 1 or recommendation mentioned by experts"},
    {"id": "2", "text": "Solution 2 or recommendation mentioned by experts"},
    {"id": "3", "text": "Solution 3 or recommendation mentioned by experts"}
  ]
}

IMPORTANT:
- Each solution MUST have an "id" field (sequential: "1", "2", "3", etc.)
- Each solution MUST have a "text" field with the full solution description
- Solutions should be concise, unique statements that capture distinct approaches
- Deduplicate fundamentally equivalent solutions
- If more than 5 solutions are found, prioritize the most comprehensive or frequently mentioned ones
- If no clear solutions emerged, return an empty list for proposed_solutions`,
		problem, stage1JSON, stage2JSON)
}

const scoringSystemTemplate = `You are a specialized expert analyst evaluating proposed solutions.

Your role: %s
Your mission: %s

You must allocate exactly %d points across the proposed solutions based on how convincing you find each one from your expert perspective.

Return ONLY valid JSON:
{
  "scores": [
    {"id": "1", "points": 3},
    {"id": "2", "points": 5},
    {"id": "3", "points": 2}
  ],
  "reasoning": "Brief explanation of your scoring rationale"
}

CONSTRAINTS:
- Each score MUST have an "id" field matching the solution ID
- Each score MUST have a "points" field (integer >= 0)
- Points must be integers >= 0
- Total points MUST equal %d
- Score all solutions provided`

func scoringSystemPrompt(agent types.Agent) string {
	return fmt.Sprintf(scoringSystemTemplate, agent.RoleName, agent.RoleMission, PointBudget, PointBudget)
}

func scoringUserPrompt(solutions []types.Solution, ownSummary string) string {
	var list strings.Builder
	for _, sol := range solutions {
		list.WriteString(sol.ID + ". " + sol.Text + "\n")
	}

	return fmt.Sprintf(`Based on the discussion so far, please allocate exactly %d points across these proposed solutions:

%s
Your original position summary: %s

Allocate your %d points now. Solutions you consider more convincing get more points. Return the scores as a JSON array with id and points fields.`,
		PointBudget, list.String(), ownSummary, PointBudget)
}

// truncate limits degraded raw-text fallbacks to a displayable size
// without splitting a multi-byte rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
