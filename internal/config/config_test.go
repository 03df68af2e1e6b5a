package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if cfg.Play.Tier != nil || cfg.Storage.DBPath != nil {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
}

func TestLoadConfigDecodesSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `[play]
tier = 2
mode = "challenge"
drop-seconds = 9

[logging]
level = "debug"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Play.Tier == nil || *cfg.Play.Tier != 2 {
		t.Fatalf("unexpected tier: %v", cfg.Play.Tier)
	}
	if cfg.Play.Mode == nil || *cfg.Play.Mode != "challenge" {
		t.Fatalf("unexpected mode: %v", cfg.Play.Mode)
	}
	if cfg.Play.DropSeconds == nil || *cfg.Play.DropSeconds != 9 {
		t.Fatalf("unexpected drop seconds: %v", cfg.Play.DropSeconds)
	}
	if cfg.Logging.Level == nil || *cfg.Logging.Level != "debug" {
		t.Fatalf("unexpected log level: %v", cfg.Logging.Level)
	}
	if cfg.Play.IncludeMissed != nil {
		t.Fatalf("include-missed should stay unset")
	}
}

func TestLoadConfigRejectsEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestEnvOverlay(t *testing.T) {
	t.Setenv("WORDDROP_DB", "/tmp/alt.db")
	t.Setenv("WORDDROP_LESSONS_DIR", "")
	t.Setenv("WORDDROP_LOG_LEVEL", "warn")

	envCfg, err := ParseEnv()
	if err != nil {
		t.Fatalf("parse env: %v", err)
	}
	dir := "/srv/lessons"
	cfg := FileConfig{Play: PlayConfig{LessonsDir: &dir}}
	envCfg.Overlay(&cfg)

	if cfg.Storage.DBPath == nil || *cfg.Storage.DBPath != "/tmp/alt.db" {
		t.Fatalf("db path not overlaid: %v", cfg.Storage.DBPath)
	}
	if *cfg.Play.LessonsDir != "/srv/lessons" {
		t.Fatalf("empty env value must not override file value, got %q", *cfg.Play.LessonsDir)
	}
	if cfg.Logging.Level == nil || *cfg.Logging.Level != "warn" {
		t.Fatalf("log level not overlaid: %v", cfg.Logging.Level)
	}
}

func TestDefaultPathsUseXDG(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "worddrop", "config.toml") {
		t.Fatalf("unexpected config path %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "worddrop", "worddrop.db") {
		t.Fatalf("unexpected db path %q", got)
	}
	if got := DefaultLessonsDir(); got != filepath.Join("/cfg", "worddrop", "lessons") {
		t.Fatalf("unexpected lessons dir %q", got)
	}
}

func TestLoadConfigExamOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	body := `[exams."academic/cet4/coreVocab"]
word-count = 30
lessons = ["cet4/core"]

[exams."phonics/shortVowels"]
word-count = 10
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if len(cfg.Exams) != 2 {
		t.Fatalf("expected 2 exam overrides, got %d", len(cfg.Exams))
	}
	cet := cfg.Exams["academic/cet4/coreVocab"]
	if cet.WordCount == nil || *cet.WordCount != 30 {
		t.Fatalf("unexpected word count: %v", cet.WordCount)
	}
	if len(cet.Lessons) != 1 || cet.Lessons[0] != "cet4/core" {
		t.Fatalf("unexpected lessons: %v", cet.Lessons)
	}
	if cfg.Exams["phonics/shortVowels"].Lessons != nil {
		t.Fatalf("lessons should stay unset")
	}
}
