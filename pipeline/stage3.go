package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/roundwise/roundwise/llm"
	"github.com/roundwise/roundwise/types"
	"go.uber.org/zap"
)

const synthesisUnavailableText = "Synthesis not available"

// stage3Response is the JSON shape the notary is instructed to return.
// Solutions decode as loose values because the model cannot be trusted to
// emit well-formed {id, text} objects.
type stage3Response struct {
	SummaryMarkdown   string `json:"summary_markdown"`
	ProposedSolutions []any  `json:"proposed_solutions"`
}

// RunSynthesis drives the notary over the full stage-1 and stage-2
// contents: a structured markdown summary plus a deduplicated solution
// list. Every extracted solution is re-validated so that both id and text
// are always present. On total parse failure the raw response becomes the
// summary with an empty solution list; the stage never fails.
func (s *Stages) RunSynthesis(ctx context.Context, problem string, stage1 *types.Stage1Payload, stage2 *types.Stage2Payload) *types.Stage3Payload {
	stage1JSON, _ := json.MarshalIndent(stage1.Analyses, "", "  ")
	stage2JSON, _ := json.MarshalIndent(stage2.Rebuttals, "", "  ")

	res, err := s.gw.Invoke(ctx, llm.InvokeRequest{
		Model: s.cfg.NotaryModel,
		Messages: []llm.Message{
			llm.NewSystemMessage(synthesisSystemPrompt),
			llm.NewUserMessage(synthesisUserPrompt(problem, string(stage1JSON), string(stage2JSON))),
		},
		Temperature: s.cfg.Temperature,
		MaxTokens:   synthesisMaxTokens,
	})
	if err != nil {
		s.logger.Warn("notary call failed", zap.Error(err))
		s.degraded("stage3")
		return &types.Stage3Payload{
			SummaryMarkdown:   synthesisUnavailableText,
			ProposedSolutions: []types.Solution{},
		}
	}

	var parsed stage3Response
	if !llm.ExtractInto(res.Text, &parsed) {
		s.logger.Warn("notary synthesis not parseable, keeping raw text as summary")
		s.degraded("stage3")
		return &types.Stage3Payload{
			SummaryMarkdown:   res.Text,
			ProposedSolutions: []types.Solution{},
		}
	}

	return &types.Stage3Payload{
		SummaryMarkdown:   parsed.SummaryMarkdown,
		ProposedSolutions: validateSolutions(parsed.ProposedSolutions),
	}
}

// validateSolutions guarantees every solution entry carries an id and a
// text. Object entries get a sequential id when theirs is missing;
// non-object entries are coerced to their string form.
func validateSolutions(raw []any) []types.Solution {
	out := make([]types.Solution, 0, len(raw))
	for i, entry := range raw {
		seq := strconv.Itoa(i + 1)
		switch v := entry.(type) {
		case map[string]any:
			sol := types.Solution{ID: seq}
			if id, ok := v["id"].(string); ok && id != "" {
				sol.ID = id
			}
			if text, ok := v["text"].(string); ok && text != "" {
				sol.Text = text
			} else {
				sol.Text = looseString(v)
			}
			out = append(out, sol)
		default:
			out = append(out, types.Solution{ID: seq, Text: looseString(v)})
		}
	}
	return out
}

func looseString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
