package ranking

import (
	"sort"

	"WeeklyTop/internal/domain"
)

// Score sums the weight of each distinct signal; unknown labels weigh zero.
func Score(c domain.Candidate, weights map[string]float64) float64 {
	seen := make(map[string]struct{}, len(c.Signals))
	var score float64
	for _, label := range c.Signals {
		if _, dup := seen[label]; dup {
			continue
		}
		seen[label] = struct{}{}
		score += weights[label]
	}
	return score
}

// Rank scores candidates, sorts them by score descending keeping input order on
// ties, truncates to limit (at most domain.MaxRanked) and numbers them from 1.
// The input slice is not modified.
func Rank(candidates []domain.Candidate, weights map[string]float64, limit int) []domain.RankedItem {
	if limit <= 0 || limit > domain.MaxRanked {
		limit = domain.MaxRanked
	}

	scored := make([]domain.Candidate, len(candidates))
	for i, c := range candidates {
		c.Score = Score(c, weights)
		scored[i] = c
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	n := min(len(scored), limit)
	ranked := make([]domain.RankedItem, 0, n)
	for i := 0; i < n; i++ {
		ranked = append(ranked, domain.RankedItem{Rank: i + 1, Candidate: scored[i]})
	}
	return ranked
}
