package aggregation

import "github.com/jonathan/applypilot/internal/types"

// DashboardSummary holds the counts the dashboard renders.
type DashboardSummary struct {
	TotalApplications int     `json:"total_applications"`
	Submitted         int     `json:"submitted"`
	InProgress        int     `json:"in_progress"`
	Drafts            int     `json:"drafts"`
	SuccessRate       float64 `json:"success_rate"`
	WishlistCount     int     `json:"wishlist_count"`
}

// Summarize reduces the cached applications and wishlist into dashboard
// counts. SuccessRate is the naive submitted/total placeholder.
func Summarize(apps []types.Application, wishlist []types.WishlistItem) DashboardSummary {
	s := DashboardSummary{
		TotalApplications: len(apps),
		WishlistCount:     len(wishlist),
	}
	for _, a := range apps {
		switch a.Status {
		case types.StatusSubmitted:
			s.Submitted++
		case types.StatusInProgress:
			s.InProgress++
		case types.StatusDraft:
			s.Drafts++
		}
	}
	if s.TotalApplications > 0 {
		s.SuccessRate = float64(s.Submitted) / float64(s.TotalApplications)
	}
	return s
}
