// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Play     PlayConfig     `toml:"play"`
	Storage  StorageConfig  `toml:"storage"`
	Logging  LoggingConfig  `toml:"logging"`
	Debuglog DebuglogConfig `toml:"debuglog"`
	// Exams overrides exam levels, keyed by "series/major/minor" or
	// "series/minor" for flat series.
	Exams map[string]ExamOverride `toml:"exams"`
}

// ExamOverride maps one [exams."<level>"] table.
type ExamOverride struct {
	WordCount *int     `toml:"word-count"`
	Lessons   []string `toml:"lessons"`
}

// PlayConfig maps play-related settings.
type PlayConfig struct {
	Tier          *int    `toml:"tier"`
	Mode          *string `toml:"mode"`
	DropSeconds   *int    `toml:"drop-seconds"`
	IncludeMissed *bool   `toml:"include-missed"`
	LessonsDir    *string `toml:"lessons-dir"`
}

// StorageConfig maps database settings.
type StorageConfig struct {
	DBPath *string `toml:"db"`
}

// LoggingConfig maps log settings.
type LoggingConfig struct {
	Level *string `toml:"level"`
}

// DebuglogConfig maps debug log viewer settings.
type DebuglogConfig struct {
	// PasswordHash is a bcrypt hash gating `worddrop debuglog`.
	PasswordHash *string `toml:"password-hash"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}
