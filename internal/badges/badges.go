// Package badges derives earned badges from a progress tree.
package badges

import (
	"time"

	"github.com/verte-zerg/worddrop/internal/progress"
)

// Badge is one earned branch badge.
type Badge struct {
	ID       string
	Name     string
	Series   string
	Major    string
	EarnedAt time.Time
}

// Earned lists earned badges in layout order: series first, then major level.
// A flat series' badge uses the series id.
func Earned(tree progress.Tree, layout progress.Layout) []Badge {
	var out []Badge
	for _, sl := range layout {
		for _, bl := range sl.Majors {
			b, err := tree.Branch(sl.ID, bl.ID)
			if err != nil || !b.Badge.Earned {
				continue
			}
			badge := Badge{ID: bl.ID, Name: bl.BadgeName, Series: sl.ID, Major: bl.ID}
			if bl.ID == "" {
				badge.ID = sl.ID
			}
			if b.Badge.EarnedAt != nil {
				badge.EarnedAt = *b.Badge.EarnedAt
			}
			out = append(out, badge)
		}
	}
	return out
}

// Newly returns the badges in after that are absent from before, keeping
// after's order.
func Newly(before, after []Badge) []Badge {
	had := make(map[string]bool, len(before))
	for _, b := range before {
		had[b.ID] = true
	}
	var out []Badge
	for _, b := range after {
		if !had[b.ID] {
			out = append(out, b)
		}
	}
	return out
}

// Starred reports whether every level of a branch, final exam included,
// has a perfect score.
func Starred(tree progress.Tree, layout progress.Layout, series, major string) bool {
	sl, ok := layout.Series(series)
	if !ok {
		return false
	}
	b, err := tree.Branch(series, major)
	if err != nil || b.FinalExam == nil || b.FinalExam.Score != 100 {
		return false
	}
	for _, bl := range sl.Majors {
		if bl.ID != major {
			continue
		}
		for _, id := range bl.Levels {
			rec := b.Levels[id]
			if rec == nil || rec.Score != 100 {
				return false
			}
		}
		return true
	}
	return false
}
