package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// EnvConfig holds environment overrides. Empty values leave the file and flag
// settings untouched.
type EnvConfig struct {
	DBPath     string `env:"WORDDROP_DB"`
	LessonsDir string `env:"WORDDROP_LESSONS_DIR"`
	LogLevel   string `env:"WORDDROP_LOG_LEVEL"`
}

// ParseEnv loads environment overrides.
func ParseEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return EnvConfig{}, fmt.Errorf("failed to parse env: %w", err)
	}
	return cfg, nil
}

// Overlay copies non-empty environment values onto the file config so the
// usual flag > env > file > default order applies.
func (e EnvConfig) Overlay(cfg *FileConfig) {
	if e.DBPath != "" {
		v := e.DBPath
		cfg.Storage.DBPath = &v
	}
	if e.LessonsDir != "" {
		v := e.LessonsDir
		cfg.Play.LessonsDir = &v
	}
	if e.LogLevel != "" {
		v := e.LogLevel
		cfg.Logging.Level = &v
	}
}
