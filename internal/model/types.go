// Package model defines shared data structures.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Difficulty is a word tier in the range 1..3.
type Difficulty int

const (
	DifficultyEasy   Difficulty = 1
	DifficultyMedium Difficulty = 2
	DifficultyHard   Difficulty = 3
)

// Valid reports whether d is one of the three supported tiers.
func (d Difficulty) Valid() bool {
	return d >= DifficultyEasy && d <= DifficultyHard
}

// AllDifficulties returns the tiers in ascending order.
func AllDifficulties() []Difficulty {
	return []Difficulty{DifficultyEasy, DifficultyMedium, DifficultyHard}
}

// WordEntry is a single vocabulary item loaded from a lesson source.
type WordEntry struct {
	Word         string     `json:"word" yaml:"word"`
	Meaning      string     `json:"meaning" yaml:"meaning"`
	Phonetic     string     `json:"phonetic" yaml:"phonetic"`
	Difficulty   Difficulty `json:"difficulty" yaml:"difficulty"`
	Phoneme      string     `json:"phoneme" yaml:"phoneme"`
	SourceLesson string     `json:"sourceLesson" yaml:"-"`
}

// Lesson is one named source of words, in file order.
type Lesson struct {
	ID      string
	Entries []WordEntry
}

// Placeholder replaces each missing letter in Challenge.Display.
const Placeholder = '_'

// Challenge is a word presented with some letters blanked out.
type Challenge struct {
	Original       string
	Meaning        string
	Phonetic       string
	MissingIndices []int
	Display        string
	MissingLetters string
	Difficulty     Difficulty
}

// PlayMode controls how strictly the game host presents challenges.
type PlayMode string

const (
	ModeCasual    PlayMode = "casual"
	ModeChallenge PlayMode = "challenge"
)

// ParsePlayMode validates a mode name.
func ParsePlayMode(s string) (PlayMode, error) {
	switch PlayMode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeCasual:
		return ModeCasual, nil
	case ModeChallenge:
		return ModeChallenge, nil
	default:
		return "", fmt.Errorf("unknown play mode %q (expected casual or challenge)", s)
	}
}

// Config defines play settings.
type Config struct {
	LessonsDir    string
	Lessons       []string
	Tier          Difficulty
	Mode          PlayMode
	DropSeconds   int
	IncludeMissed bool
}

// StatsConfig defines filters and options for the progress report.
type StatsConfig struct {
	Since       *time.Time
	Last        int
	CurveWindow int
	ExamsOnly   bool
}

// SessionStats captures a finished play session.
type SessionStats struct {
	SessionID  string
	StartedAt  time.Time
	EndedAt    time.Time
	Mode       PlayMode
	Tier       Difficulty
	Hits       int
	Fallen     int
	DurationMs int64
	Exam       string
	Passed     bool
}

// SessionAggregate summarizes a stored session for reporting.
type SessionAggregate struct {
	ID         int64
	EndedAt    time.Time
	Mode       PlayMode
	Hits       int
	Fallen     int
	DurationMs int64
	Exam       string
	Passed     bool
}
