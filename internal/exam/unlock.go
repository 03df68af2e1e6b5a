package exam

import (
	"fmt"
	"time"

	"github.com/verte-zerg/worddrop/internal/progress"
)

func badgeEarned(tree progress.Tree, series, major string) bool {
	b, err := tree.Branch(series, major)
	return err == nil && b.Badge.Earned
}

// IsUnlocked applies the unlock rules:
//   - a series opens once its required badge is earned;
//   - a major opens once the previous major's badge is earned;
//   - inside a branch, each level opens once the previous one is passed;
//   - the final exam opens once every level of its branch is passed.
func (l Levels) IsUnlocked(tree progress.Tree, ref progress.LevelRef) bool {
	ref = l.Normalize(ref)
	s, m, idx, ok := l.major(ref.Series, ref.Major)
	if !ok {
		return false
	}
	if s.Requires != nil && !badgeEarned(tree, s.Requires.Series, s.Requires.Major) {
		return false
	}
	if idx > 0 && !badgeEarned(tree, s.ID, s.Majors[idx-1].ID) {
		return false
	}
	branch, err := tree.Branch(s.ID, m.ID)
	if err != nil {
		return false
	}
	if ref.IsFinal() {
		ids := make([]string, 0, len(m.Levels))
		for _, lv := range m.Levels {
			ids = append(ids, lv.ID)
		}
		return branch.AllPassed(ids)
	}
	for i, lv := range m.Levels {
		if lv.ID != ref.Minor {
			continue
		}
		if i == 0 {
			return true
		}
		prev := branch.Levels[m.Levels[i-1].ID]
		return prev != nil && prev.Passed
	}
	return false
}

// CheckEligibility returns nil when ref may be started at now.
func (l Levels) CheckEligibility(tree progress.Tree, ref progress.LevelRef, now time.Time) error {
	ref = l.Normalize(ref)
	if _, err := l.Lookup(ref); err != nil {
		return err
	}
	if !l.IsUnlocked(tree, ref) {
		return fmt.Errorf("%w: %s", ErrLevelLocked, l.DisplayName(ref))
	}
	rec, err := tree.Record(ref)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownLevel, err)
	}
	if rec.IsInCooldown(now) {
		return &CooldownError{Ref: ref, Until: *rec.CooldownUntil, Remaining: rec.RemainingCooldownSeconds(now)}
	}
	return nil
}

// Award marks the branch badge of ref as earned when ref is a passed final
// exam, opening the series the branch unlocks. It reports whether a badge was
// newly earned.
func (l Levels) Award(tree progress.Tree, ref progress.LevelRef, at time.Time) bool {
	ref = l.Normalize(ref)
	if !ref.IsFinal() {
		return false
	}
	_, m, _, ok := l.major(ref.Series, ref.Major)
	if !ok {
		return false
	}
	branch, err := tree.Branch(ref.Series, ref.Major)
	if err != nil || branch.FinalExam == nil || !branch.FinalExam.Passed || branch.Badge.Earned {
		return false
	}
	ts := at
	branch.Badge = progress.Badge{Earned: true, EarnedAt: &ts}
	for _, id := range m.Unlocks {
		if s := tree[id]; s != nil {
			s.Unlocked = true
		}
	}
	return true
}

// NextAvailable returns the first unlocked level, in catalog order, that has
// not been passed.
func (l Levels) NextAvailable(tree progress.Tree) (progress.LevelRef, bool) {
	for _, ref := range l.All() {
		rec, err := tree.Record(ref)
		if err != nil || rec.Passed {
			continue
		}
		if l.IsUnlocked(tree, ref) {
			return ref, true
		}
	}
	return progress.LevelRef{}, false
}
