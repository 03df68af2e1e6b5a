package exam

import (
	"errors"
	"fmt"
	"time"

	"github.com/verte-zerg/worddrop/internal/progress"
)

var (
	// ErrSessionActive is returned when an exam is already running.
	ErrSessionActive = errors.New("an exam is already in progress")
	// ErrNoSession is returned when no exam is running.
	ErrNoSession = errors.New("no exam in progress")
	// ErrUnknownLevel is returned for refs outside the level catalog.
	ErrUnknownLevel = errors.New("unknown exam level")
	// ErrLevelLocked is returned when unlock requirements are unmet.
	ErrLevelLocked = errors.New("exam level is locked")
	// ErrLoadTimeout is returned when the word catalog did not load in time.
	ErrLoadTimeout = errors.New("timed out waiting for the word catalog")
	// ErrCancelled is returned by a start that was cancelled while loading.
	ErrCancelled = errors.New("exam start was cancelled")
)

// CooldownError rejects a start during a level's cooldown.
type CooldownError struct {
	Ref       progress.LevelRef
	Until     time.Time
	Remaining int
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("level %s is cooling down, try again in %s", e.Ref, progress.FormatClock(e.Remaining))
}

// ConfigError rejects a start because the level or its vocabulary is not
// set up.
type ConfigError struct {
	Ref    progress.LevelRef
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("exam %s is not configured: %s: %v", e.Ref, e.Reason, e.Err)
	}
	return fmt.Sprintf("exam %s is not configured: %s", e.Ref, e.Reason)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
