package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/verte-zerg/worddrop/internal/badges"
	"github.com/verte-zerg/worddrop/internal/exam"
	"github.com/verte-zerg/worddrop/internal/model"
	"github.com/verte-zerg/worddrop/internal/progress"
	"github.com/verte-zerg/worddrop/internal/stats"
	"github.com/verte-zerg/worddrop/internal/statsui"
)

var (
	examQuery string
	examNext  bool
	examLater bool

	progressSince       string
	progressLast        int
	progressCurveWindow int
	progressExamsOnly   bool
	progressPlain       bool

	resetYes bool
)

var (
	passStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	badgeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
)

func newExamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "exam [level]",
		Short: "Take a certification exam",
		Long: `Take a certification exam.

The level is given as series/major/minor (series/minor for phonics), for
example "primaryGrades/grade3/term1" or "phonics/shortVowels".`,
		Args: cobra.MaximumNArgs(1),
		RunE: runExamCmd,
	}
	cmd.Flags().StringVar(&examQuery, "query", "", "exam trigger query: mode=exam&series=<id>&major=<id>&minor=<id>")
	cmd.Flags().BoolVar(&examNext, "next", false, "take the next available level")
	cmd.Flags().BoolVar(&examLater, "later", false, "queue the exam for the next game launch")
	addPlayFlags(cmd)
	return cmd
}

func runExamCmd(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	var ref progress.LevelRef
	switch {
	case len(args) == 1:
		ref, err = exam.ParseRef(args[0])
		if err != nil {
			return err
		}
	case examQuery != "":
		var ok bool
		ref, ok, err = exam.ParseQuery(examQuery)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("--query does not request an exam (missing mode=exam)")
		}
	case examNext:
		tree, err := a.progress.Load(ctx)
		if err != nil {
			return err
		}
		next, ok := a.levels.NextAvailable(tree)
		if !ok {
			return fmt.Errorf("no exam level is available")
		}
		ref = next
	default:
		return fmt.Errorf("exam level required (or use --next or --query)")
	}
	ref = a.levels.Normalize(ref)
	if _, err := a.levels.Lookup(ref); err != nil {
		return fmt.Errorf("%w: %s", err, ref)
	}

	if examLater {
		if err := exam.SavePending(ctx, a.st, ref); err != nil {
			return err
		}
		logErrf("Queued %s. It starts the next time you run worddrop.\n", a.levels.DisplayName(ref))
		return nil
	}

	cfg, err := a.playConfig(ctx, cmd)
	if err != nil {
		return err
	}
	return a.play(ctx, cfg, &ref)
}

func examStartError(levels exam.Levels, ref progress.LevelRef, err error) error {
	var cooldown *exam.CooldownError
	switch {
	case errors.As(err, &cooldown):
		return fmt.Errorf("%s is cooling down, try again in %s", levels.DisplayName(ref), progress.FormatClock(cooldown.Remaining))
	case errors.Is(err, exam.ErrLevelLocked):
		return fmt.Errorf("%s is locked; pass the levels before it first", levels.DisplayName(ref))
	case errors.Is(err, exam.ErrLoadTimeout):
		return fmt.Errorf("failed to start %s: %w", levels.DisplayName(ref), err)
	default:
		return fmt.Errorf("failed to start exam: %w", err)
	}
}

func printResult(w io.Writer, levels exam.Levels, res exam.Result) error {
	color := isTerminal(w)
	style := func(s lipgloss.Style, text string) string {
		if !color {
			return text
		}
		return s.Render(text)
	}

	verdict := style(failStyle, "not passed")
	if res.Passed {
		verdict = style(passStyle, "passed")
	}
	lines := []string{
		fmt.Sprintf("%s: %d%% (%s)", levels.DisplayName(res.Ref), res.Score, verdict),
		fmt.Sprintf("Attempts: %d  Best: %d%%  Time: %s", res.Attempts, res.BestScore, res.Duration.Round(time.Second)),
	}
	if res.BestDuration != nil {
		lines = append(lines, fmt.Sprintf("Best passing time: %s", progress.FormatClock(*res.BestDuration)))
	}
	if !res.Passed && res.CooldownUntil != nil {
		lines = append(lines, fmt.Sprintf("Next attempt after %s (pass mark %d%%)", res.CooldownUntil.Local().Format("15:04"), exam.PassThreshold))
	}
	for _, b := range res.NewBadges {
		lines = append(lines, style(badgeStyle, "New badge: "+b.Name))
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func newProgressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "progress",
		Short: "Show exam progress and play history",
		Args:  cobra.NoArgs,
		RunE:  runProgressCmd,
	}
	cmd.Flags().StringVar(&progressSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&progressLast, "last", 0, "limit to last N sessions")
	cmd.Flags().IntVar(&progressCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().BoolVar(&progressExamsOnly, "exams-only", false, "only count exam sessions")
	cmd.Flags().BoolVar(&progressPlain, "plain", false, "print tables instead of the interactive view")
	return cmd
}

func runProgressCmd(cmd *cobra.Command, _ []string) error {
	var sinceTime *time.Time
	if progressSince != "" {
		parsed, err := time.ParseInLocation("2006-01-02", progressSince, time.Local)
		if err != nil {
			return fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if progressCurveWindow <= 0 {
		return fmt.Errorf("--curve-window must be > 0")
	}
	statsCfg := model.StatsConfig{
		Since:       sinceTime,
		Last:        progressLast,
		CurveWindow: progressCurveWindow,
		ExamsOnly:   progressExamsOnly,
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := cmd.Context()

	tree, err := a.progress.Load(ctx)
	if err != nil {
		return err
	}
	report, err := stats.BuildReport(ctx, a.st, statsCfg)
	if err != nil {
		return err
	}
	now := a.progress.Now()

	out := cmd.OutOrStdout()
	if progressPlain || !isTerminal(out) {
		if err := stats.RenderSummary(out, report.Sessions); err != nil {
			return err
		}
		if err := stats.RenderTrend(out, report.Window, progressCurveWindow); err != nil {
			return err
		}
		return stats.RenderProgressTable(out, a.levels, tree, now)
	}

	entries, err := a.missed.List(ctx)
	if err != nil {
		return err
	}
	browser := statsui.NewModel(statsui.Data{
		Levels: a.levels,
		Tree:   tree,
		Report: report,
		Window: progressCurveWindow,
		Missed: entries,
		Now:    now,
	})
	a.quietLogs()
	program := tea.NewProgram(browser, tea.WithAltScreen())
	_, err = program.Run()
	a.restoreLogs()
	if err != nil {
		return fmt.Errorf("failed to run progress TUI: %w", err)
	}
	ref, ok := browser.Selected()
	if !ok {
		return nil
	}
	cfg, err := a.playConfig(ctx, cmd)
	if err != nil {
		return err
	}
	return a.play(ctx, cfg, &ref)
}

func newBadgesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "badges",
		Short: "List earned badges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			tree, err := a.progress.Load(cmd.Context())
			if err != nil {
				return err
			}
			layout := a.levels.Layout()
			return stats.RenderBadges(cmd.OutOrStdout(), badges.Earned(tree, layout), tree, layout)
		},
	}
}

func newExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export [file]",
		Short: "Export exam progress as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if len(args) == 0 || args[0] == "-" {
				return a.progress.Export(cmd.Context(), cmd.OutOrStdout())
			}
			return writeFileAtomic(args[0], func(w io.Writer) error {
				return a.progress.Export(cmd.Context(), w)
			})
		},
	}
}

func newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import exam progress from an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open import file: %w", err)
				}
				defer func() {
					if cerr := f.Close(); cerr != nil {
						// Best-effort close of a read-only file.
						_ = cerr
					}
				}()
				r = f
			}
			tree, err := a.progress.Import(cmd.Context(), r)
			if err != nil {
				return err
			}
			earned := badges.Earned(tree, a.levels.Layout())
			logErrf("Imported progress (%d badges earned).\n", len(earned))
			return nil
		},
	}
}

func newResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset exam progress to the defaults",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !resetYes {
				return fmt.Errorf("this erases all exam progress; rerun with --yes to confirm")
			}
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if _, err := a.progress.Reset(cmd.Context()); err != nil {
				return err
			}
			logErrln("Exam progress reset.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&resetYes, "yes", false, "confirm the reset")
	return cmd
}

func writeFileAtomic(path string, write func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmpFile, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if err := write(tmpFile); err != nil {
		return err
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
