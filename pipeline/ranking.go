package pipeline

import (
	"sort"

	"github.com/roundwise/roundwise/types"
)

// AggregateRanking sums each solution's points across all agents in a
// stage-4 result and returns the totals sorted descending. The ranking is
// a pure function of its input: agents contribute in sorted agent-id
// order, ties keep first-seen order, and recomputing from the same payload
// yields an identical slice. It is derived on demand and never persisted.
func AggregateRanking(p *types.Stage4Payload) []types.AggregateRank {
	if p == nil || len(p.Scorings) == 0 {
		return []types.AggregateRank{}
	}

	agentIDs := make([]string, 0, len(p.Scorings))
	for id := range p.Scorings {
		agentIDs = append(agentIDs, id)
	}
	sort.Strings(agentIDs)

	type key struct{ id, text string }
	totals := make(map[key]int)
	var order []key

	for _, agentID := range agentIDs {
		for _, score := range p.Scorings[agentID].Scores {
			k := key{id: score.ID, text: score.Text}
			if _, seen := totals[k]; !seen {
				order = append(order, k)
			}
			totals[k] += score.Points
		}
	}

	out := make([]types.AggregateRank, 0, len(order))
	for _, k := range order {
		out = append(out, types.AggregateRank{ID: k.id, Text: k.text, Total: totals[k]})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Total > out[j].Total })
	return out
}
