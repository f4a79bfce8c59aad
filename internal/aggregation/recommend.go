package aggregation

import (
	"sort"

	"github.com/jonathan/applypilot/internal/types"
)

// DefaultTopRecommendations bounds the recommendation list for display.
const DefaultTopRecommendations = 10

// Recommend projects the externally ranked match list into a view-ready
// ordered sequence: sorted by score descending, ties broken by the external
// rank order, truncated to topN. The score itself is the external model's
// concern; this only sorts and trims it. Without a profile there is nothing
// to recommend against.
func Recommend(profile *types.Profile, matches []types.RankedMatch, topN int) []types.JobRecommendation {
	if profile == nil || len(matches) == 0 {
		return nil
	}
	if topN <= 0 {
		topN = DefaultTopRecommendations
	}

	ordered := make([]types.RankedMatch, len(matches))
	copy(ordered, matches)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Score > ordered[j].Score
	})

	if len(ordered) > topN {
		ordered = ordered[:topN]
	}

	out := make([]types.JobRecommendation, 0, len(ordered))
	for i, m := range ordered {
		out = append(out, types.JobRecommendation{
			Rank:  i + 1,
			Job:   m.Job,
			Score: m.Score,
		})
	}
	return out
}
