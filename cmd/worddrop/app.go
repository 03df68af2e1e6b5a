package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/verte-zerg/worddrop/internal/config"
	"github.com/verte-zerg/worddrop/internal/debuglog"
	"github.com/verte-zerg/worddrop/internal/exam"
	"github.com/verte-zerg/worddrop/internal/missed"
	"github.com/verte-zerg/worddrop/internal/prefs"
	"github.com/verte-zerg/worddrop/internal/progress"
	"github.com/verte-zerg/worddrop/internal/store"
	"github.com/verte-zerg/worddrop/internal/wordlist"
)

// app holds the collaborators shared by the subcommands.
type app struct {
	fileCfg  config.FileConfig
	logLevel slog.Level

	st       *store.Store
	ring     *debuglog.Ring
	levels   exam.Levels
	progress *progress.Store
	prefs    *prefs.Prefs
	missed   *missed.Book
	lib      *wordlist.Library
}

// openApp resolves configuration (flag > env > file > default), opens the
// database and installs the logger.
func openApp(cmd *cobra.Command) (*app, error) {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	envCfg, err := config.ParseEnv()
	if err != nil {
		return nil, err
	}
	envCfg.Overlay(&fileCfg)

	applyStringConfig(cmd, "db", &globalDB, fileCfg.Storage.DBPath)
	applyStringConfig(cmd, "log-level", &globalLogLevel, fileCfg.Logging.Level)
	applyStringConfig(cmd, "lessons-dir", &globalLessonsDir, fileCfg.Play.LessonsDir)

	level, err := parseLogLevel(globalLogLevel)
	if err != nil {
		return nil, err
	}
	levels, err := exam.DefaultLevels().Configure(examOverrides(fileCfg.Exams))
	if err != nil {
		return nil, fmt.Errorf("invalid [exams] config: %w", err)
	}

	st, err := store.Open(globalDB)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	a := &app{
		fileCfg:  fileCfg,
		logLevel: level,
		st:       st,
		ring:     debuglog.NewRing(st),
		levels:   levels,
		progress: progress.NewStore(st, levels.Layout()),
		prefs:    prefs.New(st),
		missed:   missed.New(st),
		lib:      wordlist.NewLibrary(globalLessonsDir),
	}
	a.restoreLogs()
	slog.Debug("worddrop started", "command", cmd.Name(), "db", globalDB, "lessons", globalLessonsDir)
	return a, nil
}

// Close flushes captured log records and closes the database.
func (a *app) Close() {
	if err := a.ring.Flush(context.Background()); err != nil {
		logErrf("failed to save debug log: %v\n", err)
	}
	if cerr := a.st.Close(); cerr != nil {
		logErrf("failed to close db: %v\n", cerr)
	}
}

// restoreLogs installs the default logger: text on stderr at the configured
// level, with every record from debug up captured into the debug log.
func (a *app) restoreLogs() {
	a.setLogOutput(os.Stderr)
}

// quietLogs stops writing to stderr while a full-screen UI owns the
// terminal. Records are still captured into the debug log.
func (a *app) quietLogs() {
	a.setLogOutput(io.Discard)
}

func (a *app) setLogOutput(w io.Writer) {
	inner := slog.NewTextHandler(w, &slog.HandlerOptions{Level: a.logLevel})
	slog.SetDefault(slog.New(debuglog.NewHandler(inner, a.ring, slog.LevelDebug)))
}

func parseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid --log-level value %q: %w", s, err)
	}
	return level, nil
}

func examOverrides(in map[string]config.ExamOverride) map[string]exam.Override {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]exam.Override, len(in))
	for key, ov := range in {
		out[key] = exam.Override{WordCount: ov.WordCount, Lessons: ov.Lessons}
	}
	return out
}
