// Package progress persists certification exam progress.
package progress

import (
	"fmt"
	"time"
)

// FinalExam is the minor level id of every branch's closing exam.
const FinalExam = "finalExam"

// LevelRecord is the attempt history of one exam level.
type LevelRecord struct {
	Score         int        `json:"score"`
	Passed        bool       `json:"passed"`
	Attempts      int        `json:"attempts"`
	LastAttempt   *time.Time `json:"lastAttempt"`
	CooldownUntil *time.Time `json:"cooldownUntil"`
	// BestDuration is the fastest passing attempt, in seconds.
	BestDuration *int `json:"bestDuration"`
}

// Badge marks a completed branch.
type Badge struct {
	Earned   bool       `json:"earned"`
	EarnedAt *time.Time `json:"earnedAt"`
}

// Branch is a group of levels closed by a final exam and rewarded by a badge.
type Branch struct {
	Badge     Badge                   `json:"badge"`
	FinalExam *LevelRecord            `json:"finalExam"`
	Levels    map[string]*LevelRecord `json:"levels"`
}

// Series is a top-level exam track. A flat series keeps its levels in Branch;
// otherwise each major level is an entry of Majors.
type Series struct {
	Unlocked bool               `json:"unlocked"`
	Branch   *Branch            `json:"branch,omitempty"`
	Majors   map[string]*Branch `json:"majors,omitempty"`
}

// Tree maps series ids to their progress.
type Tree map[string]*Series

// LevelRef addresses one exam level. Major is empty for flat series.
type LevelRef struct {
	Series string `json:"series"`
	Major  string `json:"majorLevel"`
	Minor  string `json:"minorLevel"`
}

func (r LevelRef) String() string {
	if r.Major == "" {
		return r.Series + "/" + r.Minor
	}
	return r.Series + "/" + r.Major + "/" + r.Minor
}

// IsFinal reports whether r names a final exam.
func (r LevelRef) IsFinal() bool {
	return r.Minor == FinalExam
}

// BranchLayout lists the ordinary levels of one branch, in unlock order.
// ID is empty for the single branch of a flat series.
type BranchLayout struct {
	ID        string
	BadgeName string
	Levels    []string
}

// SeriesLayout describes one series.
type SeriesLayout struct {
	ID       string
	Name     string
	Unlocked bool
	Majors   []BranchLayout
}

// Flat reports whether the series has no major levels.
func (s SeriesLayout) Flat() bool {
	return len(s.Majors) == 1 && s.Majors[0].ID == ""
}

// Layout is the ordered set of series that exist. It is the single source of
// the canonical tree shape.
type Layout []SeriesLayout

// Series returns the layout of series id.
func (l Layout) Series(id string) (SeriesLayout, bool) {
	for _, s := range l {
		if s.ID == id {
			return s, true
		}
	}
	return SeriesLayout{}, false
}

// Defaults returns a fresh tree with every level at zero progress.
func Defaults(layout Layout) Tree {
	tree := make(Tree, len(layout))
	for _, sl := range layout {
		series := &Series{Unlocked: sl.Unlocked}
		if sl.Flat() {
			series.Branch = newBranch(sl.Majors[0].Levels)
		} else {
			series.Majors = make(map[string]*Branch, len(sl.Majors))
			for _, bl := range sl.Majors {
				series.Majors[bl.ID] = newBranch(bl.Levels)
			}
		}
		tree[sl.ID] = series
	}
	return tree
}

func newBranch(levels []string) *Branch {
	b := &Branch{FinalExam: &LevelRecord{}, Levels: make(map[string]*LevelRecord, len(levels))}
	for _, id := range levels {
		b.Levels[id] = &LevelRecord{}
	}
	return b
}

// Branch returns the branch holding major (empty for flat series).
func (t Tree) Branch(series, major string) (*Branch, error) {
	s, ok := t[series]
	if !ok || s == nil {
		return nil, fmt.Errorf("unknown series %q", series)
	}
	if major == "" {
		if s.Branch == nil {
			return nil, fmt.Errorf("series %q has major levels", series)
		}
		return s.Branch, nil
	}
	b, ok := s.Majors[major]
	if !ok || b == nil {
		return nil, fmt.Errorf("unknown level %q in series %q", major, series)
	}
	return b, nil
}

// Record returns the record addressed by ref.
func (t Tree) Record(ref LevelRef) (*LevelRecord, error) {
	b, err := t.Branch(ref.Series, ref.Major)
	if err != nil {
		return nil, err
	}
	if ref.IsFinal() {
		if b.FinalExam == nil {
			b.FinalExam = &LevelRecord{}
		}
		return b.FinalExam, nil
	}
	rec, ok := b.Levels[ref.Minor]
	if !ok || rec == nil {
		return nil, fmt.Errorf("unknown level %s", ref)
	}
	return rec, nil
}

// AllPassed reports whether every ordinary level of b is passed.
func (b *Branch) AllPassed(levels []string) bool {
	for _, id := range levels {
		rec := b.Levels[id]
		if rec == nil || !rec.Passed {
			return false
		}
	}
	return true
}

// RecordAttempt applies one finished attempt. Score keeps the best value;
// a pass clears the cooldown and a failure starts a new one.
func (r *LevelRecord) RecordAttempt(score int, passed bool, at time.Time, durationSec *int) {
	r.Attempts++
	ts := at
	r.LastAttempt = &ts
	if score > r.Score {
		r.Score = score
	}
	if !passed {
		r.SetCooldown()
		return
	}
	r.Passed = true
	if durationSec != nil && (r.BestDuration == nil || *durationSec < *r.BestDuration) {
		d := *durationSec
		r.BestDuration = &d
	}
	r.ClearCooldown()
}
