package progress

import (
	"fmt"
	"time"
)

// CooldownDuration is the lockout after a failed attempt.
const CooldownDuration = 30 * time.Minute

// IsInCooldown reports whether now is before the record's cooldown end.
func (r *LevelRecord) IsInCooldown(now time.Time) bool {
	return r != nil && r.CooldownUntil != nil && now.Before(*r.CooldownUntil)
}

// RemainingCooldownSeconds returns whole seconds left, rounded up, or 0.
func (r *LevelRecord) RemainingCooldownSeconds(now time.Time) int {
	if !r.IsInCooldown(now) {
		return 0
	}
	left := r.CooldownUntil.Sub(now)
	secs := int(left / time.Second)
	if left%time.Second != 0 {
		secs++
	}
	return secs
}

// FormatCooldown renders the remaining cooldown as MM:SS, or "" when none.
func (r *LevelRecord) FormatCooldown(now time.Time) string {
	secs := r.RemainingCooldownSeconds(now)
	if secs <= 0 {
		return ""
	}
	return FormatClock(secs)
}

// FormatClock renders seconds as MM:SS. Minutes are not wrapped at 60.
func FormatClock(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

// SetCooldown starts a cooldown measured from LastAttempt.
func (r *LevelRecord) SetCooldown() {
	if r.LastAttempt == nil {
		return
	}
	until := r.LastAttempt.Add(CooldownDuration)
	r.CooldownUntil = &until
}

// ClearCooldown removes any cooldown.
func (r *LevelRecord) ClearCooldown() {
	r.CooldownUntil = nil
}
