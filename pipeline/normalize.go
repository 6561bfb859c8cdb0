package pipeline

import "github.com/roundwise/roundwise/types"

// NormalizeScores forces an agent's raw allocation to sum to exactly
// PointBudget over the given solution list. The output contains one entry
// per solution, in solution-list order, with solution text denormalized
// for display. The algorithm, in order:
//
//  1. Solution ids absent from raw are zero-filled.
//  2. A zero (or empty) total falls back to an equal integer split of the
//     budget; the remainder is dropped, not redistributed.
//  3. A non-zero total != budget rescales each entry by
//     floor(points * budget / total), clamped to >= 0.
//  4. Any shortfall left by floor truncation is added entirely to the
//     first solution in list order. This is intentionally not a
//     proportional fix-up; keep it exact for output reproducibility.
//
// An allocation already summing to the budget passes through unchanged.
func NormalizeScores(solutions []types.Solution, raw map[string]int) []types.ScoreEntry {
	if len(solutions) == 0 {
		return []types.ScoreEntry{}
	}

	entries := make([]types.ScoreEntry, len(solutions))
	total := 0
	for i, sol := range solutions {
		points := raw[sol.ID]
		if points < 0 {
			points = 0
		}
		entries[i] = types.ScoreEntry{ID: sol.ID, Text: sol.Text, Points: points}
		total += points
	}

	if total == 0 {
		return EqualSplit(solutions)
	}
	if total == PointBudget {
		return entries
	}

	rescaled := 0
	for i := range entries {
		p := entries[i].Points * PointBudget / total
		if p < 0 {
			p = 0
		}
		entries[i].Points = p
		rescaled += p
	}
	if rescaled < PointBudget {
		entries[0].Points += PointBudget - rescaled
	}
	return entries
}

// EqualSplit distributes the point budget evenly across the solutions
// using integer division. The remainder is dropped, a documented
// truncation on this fallback path rather than an error.
func EqualSplit(solutions []types.Solution) []types.ScoreEntry {
	per := 0
	if len(solutions) > 0 {
		per = PointBudget / len(solutions)
	}
	entries := make([]types.ScoreEntry, len(solutions))
	for i, sol := range solutions {
		entries[i] = types.ScoreEntry{ID: sol.ID, Text: sol.Text, Points: per}
	}
	return entries
}
