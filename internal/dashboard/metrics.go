package dashboard

import (
	"time"

	"github.com/sakif/livt/internal/model"
)

// AnalyticsWindow is the "last 30 days" span.
const AnalyticsWindow = 30 * 24 * time.Hour

// SummarizeOverview computes the KPI cards from the follower count and the
// subject's programs.
func SummarizeOverview(followers int64, programs []model.Program) model.Overview {
	o := model.Overview{Followers: followers, Programs: int64(len(programs))}
	for _, p := range programs {
		o.Downloads += p.Downloads
	}
	return o
}

// Summarize computes the analytics tab. A program counts as recent when it
// was created strictly after now minus AnalyticsWindow; a zero CreatedAt
// never does. Published + Drafts always equals len(programs).
func Summarize(programs []model.Program, now time.Time) model.Analytics {
	cutoff := now.Add(-AnalyticsWindow)

	var a model.Analytics
	for _, p := range programs {
		if p.Published {
			a.Published++
		} else {
			a.Drafts++
		}
		if !p.CreatedAt.IsZero() && p.CreatedAt.After(cutoff) {
			a.LastThirty++
		}
	}
	return a
}
