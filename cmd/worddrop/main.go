// Package main provides the CLI entrypoint for worddrop.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/worddrop/internal/catalog"
	"github.com/verte-zerg/worddrop/internal/config"
	"github.com/verte-zerg/worddrop/internal/exam"
	"github.com/verte-zerg/worddrop/internal/generator"
	"github.com/verte-zerg/worddrop/internal/model"
	"github.com/verte-zerg/worddrop/internal/progress"
	"github.com/verte-zerg/worddrop/internal/tui"
)

const (
	defaultTier        = 1
	defaultDropSeconds = 10
	defaultCurveWindow = 10
	defaultLogLevel    = "warn"
	catalogWait        = 10 * time.Second
)

var (
	globalDB         string
	globalLogLevel   string
	globalLessonsDir string

	playTier          int
	playMode          string
	playDropSeconds   int
	playIncludeMissed bool
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "worddrop",
		Short:         "Missing-letter vocabulary game",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE:          runPlayCmd,
	}

	rootCmd.PersistentFlags().StringVar(&globalDB, "db", config.DefaultDBPath(), "path to the SQLite database")
	rootCmd.PersistentFlags().StringVar(&globalLogLevel, "log-level", defaultLogLevel, "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&globalLessonsDir, "lessons-dir", config.DefaultLessonsDir(), "directory with lesson files")
	addPlayFlags(rootCmd)

	rootCmd.AddCommand(newExamCmd())
	rootCmd.AddCommand(newProgressCmd())
	rootCmd.AddCommand(newBadgesCmd())
	rootCmd.AddCommand(newExportCmd())
	rootCmd.AddCommand(newImportCmd())
	rootCmd.AddCommand(newResetCmd())
	rootCmd.AddCommand(newLessonsCmd())
	rootCmd.AddCommand(newMissedCmd())
	rootCmd.AddCommand(newDebuglogCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func addPlayFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&playTier, "tier", defaultTier, "word difficulty tier (1-3)")
	cmd.Flags().StringVar(&playMode, "mode", "", "play mode: casual or challenge (default: saved preference)")
	cmd.Flags().IntVar(&playDropSeconds, "drop-seconds", defaultDropSeconds, "seconds before a word drops")
	cmd.Flags().BoolVar(&playIncludeMissed, "include-missed", false, "mix missed words into the catalog")
}

func runPlayCmd(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	cfg, err := a.playConfig(ctx, cmd)
	if err != nil {
		return err
	}
	ref, queued, err := exam.ConsumePending(ctx, a.st)
	if err != nil {
		logErrf("failed to read queued exam: %v\n", err)
	}
	if queued {
		return a.play(ctx, cfg, &ref)
	}
	return a.play(ctx, cfg, nil)
}

func (a *app) playConfig(ctx context.Context, cmd *cobra.Command) (model.Config, error) {
	play := a.fileCfg.Play
	applyIntConfig(cmd, "tier", &playTier, play.Tier)
	applyStringConfig(cmd, "mode", &playMode, play.Mode)
	applyIntConfig(cmd, "drop-seconds", &playDropSeconds, play.DropSeconds)
	applyBoolConfig(cmd, "include-missed", &playIncludeMissed, play.IncludeMissed)

	cfg := model.Config{
		LessonsDir:    a.lib.Root(),
		Tier:          model.Difficulty(playTier),
		DropSeconds:   playDropSeconds,
		IncludeMissed: playIncludeMissed,
	}
	if err := validateConfig(cfg); err != nil {
		return model.Config{}, err
	}

	if strings.TrimSpace(playMode) != "" {
		mode, err := model.ParsePlayMode(playMode)
		if err != nil {
			return model.Config{}, fmt.Errorf("invalid --mode value: %w", err)
		}
		cfg.Mode = mode
		if cmd.Flags().Changed("mode") {
			if err := a.prefs.SetMode(ctx, mode); err != nil {
				logErrf("failed to save play mode: %v\n", err)
			}
		}
	} else {
		mode, err := a.prefs.Mode(ctx)
		if err != nil {
			return model.Config{}, err
		}
		cfg.Mode = mode
	}

	lessons, err := a.prefs.Lessons(ctx)
	if err != nil {
		return model.Config{}, err
	}
	cfg.Lessons = lessons
	return cfg, nil
}

// play runs the game. With start set the exam is started before the game
// opens and the game ends when the exam does.
func (a *app) play(ctx context.Context, cfg model.Config, start *progress.LevelRef) error {
	ids := cfg.Lessons
	if len(ids) == 0 {
		all, err := a.lib.List()
		if err != nil {
			return lessonsLoadError(cfg.LessonsDir, err)
		}
		ids = all
	}

	var extras []catalog.ExtraSource
	if cfg.IncludeMissed {
		extras = append(extras, a.missed)
	}
	pending := catalog.NewLoader(a.lib, extras...).Load(ctx, ids)
	pool := catalog.NewPool(nil)
	ctrl := exam.NewController(a.levels, a.progress, pool, a.prefs,
		exam.WithPending(func() *catalog.Pending { return pending }),
		exam.WithLessonLoader(catalog.NewLoader(a.lib)),
	)

	if start != nil {
		if _, err := ctrl.Start(ctx, *start); err != nil {
			return examStartError(a.levels, *start, err)
		}
	} else {
		waitCtx, cancel := context.WithTimeout(ctx, catalogWait)
		cat, err := pending.Wait(waitCtx)
		cancel()
		if err != nil {
			return lessonsLoadError(cfg.LessonsDir, err)
		}
		if cat.Len() == 0 {
			return lessonsLoadError(cfg.LessonsDir, errors.New("no words found"))
		}
		pool.Swap(cat)
	}
	reportRejected(pending)

	m := tui.NewModel(cfg, tui.Deps{
		Pool:     pool,
		Gen:      generator.New(),
		Sessions: a.st,
		Missed:   a.missed,
		Exams:    ctrl,
	})
	a.quietLogs()
	program := tea.NewProgram(m, tea.WithAltScreen())
	_, err := program.Run()
	a.restoreLogs()
	if err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}
	if err := m.Err(); err != nil {
		return err
	}
	if res, ok := m.Result(); ok {
		return printResult(os.Stdout, a.levels, res)
	}
	return nil
}

func reportRejected(p *catalog.Pending) {
	select {
	case <-p.Done():
	default:
		return
	}
	report := p.Report()
	if n := len(report.Rejected); n > 0 {
		logErrf("skipped %d invalid words in lessons\n", n)
	}
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# worddrop configuration
# Uncomment a value to enable it. CLI flags and WORDDROP_* environment
# variables override config values.

[play]
# tier = %d                 # Word difficulty tier (1-3)
# mode = "casual"           # casual shows meaning and phonetic, challenge hides them
# drop-seconds = %d        # Seconds before a word drops
# include-missed = false    # Mix missed words into the catalog
# lessons-dir = %q

[storage]
# db = %q

[logging]
# level = %q              # debug, info, warn or error

[debuglog]
# password-hash = ""        # Output of: worddrop debuglog hash

# Exam levels can be tuned per level ref.
# [exams."phonics/shortVowels"]
# word-count = 20
# lessons = ["phonics/short-vowels"]
`,
		defaultTier,
		defaultDropSeconds,
		config.DefaultLessonsDir(),
		config.DefaultDBPath(),
		defaultLogLevel,
	)
}

func validateConfig(cfg model.Config) error {
	if !cfg.Tier.Valid() {
		return fmt.Errorf("--tier must be between 1 and 3")
	}
	if cfg.DropSeconds <= 0 {
		return fmt.Errorf("--drop-seconds must be > 0")
	}
	if strings.TrimSpace(cfg.LessonsDir) == "" {
		return fmt.Errorf("--lessons-dir must not be empty")
	}
	return nil
}

func lessonsLoadError(dir string, err error) error {
	lines := []string{
		fmt.Sprintf("failed to load lessons: %v", err),
		fmt.Sprintf("expected lesson files (.yaml, .json, .txt) in: %s", dir),
		"Run: worddrop lessons list",
		"Select lessons: worddrop lessons enable <id>...",
	}
	return fmt.Errorf("%s", strings.Join(lines, "\n"))
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}

func logErrln(args ...any) {
	if _, err := fmt.Fprintln(os.Stderr, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
