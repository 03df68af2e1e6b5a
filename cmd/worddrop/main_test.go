package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/worddrop/internal/badges"
	"github.com/verte-zerg/worddrop/internal/config"
	"github.com/verte-zerg/worddrop/internal/debuglog"
	"github.com/verte-zerg/worddrop/internal/exam"
	"github.com/verte-zerg/worddrop/internal/model"
	"github.com/verte-zerg/worddrop/internal/progress"
)

func TestValidateConfig(t *testing.T) {
	ok := model.Config{LessonsDir: "lessons", Tier: model.DifficultyMedium, DropSeconds: 5}
	if err := validateConfig(ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cases := []model.Config{
		{LessonsDir: "lessons", Tier: 4, DropSeconds: 5},
		{LessonsDir: "lessons", Tier: model.DifficultyEasy, DropSeconds: 0},
		{LessonsDir: " ", Tier: model.DifficultyEasy, DropSeconds: 5},
	}
	for i, cfg := range cases {
		if err := validateConfig(cfg); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}

func TestParseLogLevel(t *testing.T) {
	level, err := parseLogLevel(" debug ")
	if err != nil || level != slog.LevelDebug {
		t.Fatalf("unexpected level %v %v", level, err)
	}
	if _, err := parseLogLevel("loud"); err == nil {
		t.Fatalf("expected error for unknown level")
	}
}

func TestExamOverrides(t *testing.T) {
	if examOverrides(nil) != nil {
		t.Fatalf("expected nil overrides")
	}
	five := 5
	out := examOverrides(map[string]config.ExamOverride{
		"phonics/shortVowels": {WordCount: &five, Lessons: []string{"phonics/short"}},
	})
	levels, err := exam.DefaultLevels().Configure(out)
	if err != nil {
		t.Fatalf("configure: %v", err)
	}
	info, err := levels.Lookup(progress.LevelRef{Series: "phonics", Minor: "shortVowels"})
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if info.WordCount != 5 || len(info.Lessons) != 1 {
		t.Fatalf("override not applied: %+v", info)
	}
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	until := time.Date(2026, 1, 1, 10, 20, 0, 0, time.Local)
	res := exam.Result{
		Ref:           progress.LevelRef{Series: "phonics", Minor: "shortVowels"},
		Score:         85,
		Attempts:      1,
		BestScore:     85,
		Duration:      4 * time.Minute,
		CooldownUntil: &until,
	}
	if err := printResult(&buf, exam.DefaultLevels(), res); err != nil {
		t.Fatalf("print: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Short vowels: 85% (not passed)", "Attempts: 1", "Next attempt after 10:20"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}

	buf.Reset()
	secs := 240
	res.Score, res.Passed, res.BestDuration, res.CooldownUntil = 95, true, &secs, nil
	res.NewBadges = []badges.Badge{{Name: "Phonics Master"}}
	if err := printResult(&buf, exam.DefaultLevels(), res); err != nil {
		t.Fatalf("print: %v", err)
	}
	out = buf.String()
	for _, want := range []string{"(passed)", "Best passing time: 04:00", "New badge: Phonics Master"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestExamStartError(t *testing.T) {
	levels := exam.DefaultLevels()
	ref := progress.LevelRef{Series: "phonics", Minor: "longVowels"}
	err := examStartError(levels, ref, &exam.CooldownError{Ref: ref, Remaining: 90})
	if !strings.Contains(err.Error(), "01:30") {
		t.Fatalf("unexpected message %q", err)
	}
	err = examStartError(levels, ref, exam.ErrLevelLocked)
	if !strings.Contains(err.Error(), "locked") {
		t.Fatalf("unexpected message %q", err)
	}
	err = examStartError(levels, ref, exam.ErrLoadTimeout)
	if !errors.Is(err, exam.ErrLoadTimeout) {
		t.Fatalf("expected wrapped timeout, got %v", err)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "progress.json")
	if err := writeFileAtomic(path, func(w io.Writer) error {
		_, err := io.WriteString(w, "{}")
		return err
	}); err != nil {
		t.Fatalf("write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "{}" {
		t.Fatalf("unexpected file %q %v", data, err)
	}

	boom := errors.New("boom")
	if err := writeFileAtomic(path, func(io.Writer) error { return boom }); !errors.Is(err, boom) {
		t.Fatalf("expected write error, got %v", err)
	}
	data, _ = os.ReadFile(path)
	if string(data) != "{}" {
		t.Fatalf("failed write must keep the old file, got %q", data)
	}
}

func TestFormatEntry(t *testing.T) {
	e := debuglog.Entry{
		Time:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.Local),
		Level:   "WARN",
		Message: "exam load slow",
		Attrs:   map[string]string{"level": "phonics/shortVowels", "elapsed": "3s"},
	}
	got := formatEntry(e)
	want := "2026-01-01 09:00:00 WARN  exam load slow elapsed=3s level=phonics/shortVowels"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestReadPasswordFromPipe(t *testing.T) {
	got, err := readPassword(strings.NewReader("secret\n"))
	if err != nil || got != "secret" {
		t.Fatalf("unexpected password %q %v", got, err)
	}
}

func TestDefaultConfigTemplateDecodes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("template must decode: %v", err)
	}
	if cfg.Play.Tier != nil || len(cfg.Exams) != 0 {
		t.Fatalf("template values should be commented out: %+v", cfg)
	}
}
