// Package stats contains statistics calculations and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/verte-zerg/worddrop/internal/badges"
	"github.com/verte-zerg/worddrop/internal/exam"
	"github.com/verte-zerg/worddrop/internal/model"
	"github.com/verte-zerg/worddrop/internal/progress"
)

const sparkChars = " .:-=+*#%@"

// SessionMetrics computes accuracy (0..1) and answered words per minute.
func SessionMetrics(hits, fallen int, durationMs int64) (accuracy, wordsPerMin float64) {
	if fallen > 0 {
		accuracy = float64(hits) / float64(fallen)
	}
	if durationMs > 0 {
		wordsPerMin = float64(fallen) / (float64(durationMs) / 60000.0)
	}
	return accuracy, wordsPerMin
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	if window <= 1 || len(values) == 0 {
		out := make([]float64, len(values))
		copy(out, values)
		return out
	}
	out := make([]float64, len(values))
	var sum float64
	for i := 0; i < len(values); i++ {
		sum += values[i]
		if i >= window {
			sum -= values[i-window]
		}
		den := float64(i + 1)
		if i >= window {
			den = float64(window)
		}
		out[i] = sum / den
	}
	return out
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderSummary prints a summary of play sessions.
func RenderSummary(w io.Writer, sessions []model.SessionAggregate) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}
	var totalAcc, bestAcc float64
	var words, hits, exams, passed int
	var played time.Duration
	for _, s := range sessions {
		acc, _ := SessionMetrics(s.Hits, s.Fallen, s.DurationMs)
		totalAcc += acc
		if acc > bestAcc {
			bestAcc = acc
		}
		words += s.Fallen
		hits += s.Hits
		played += time.Duration(s.DurationMs) * time.Millisecond
		if s.Exam != "" {
			exams++
			if s.Passed {
				passed++
			}
		}
	}
	count := float64(len(sessions))
	lines := []string{
		"Summary",
		fmt.Sprintf("Sessions: %d", len(sessions)),
		fmt.Sprintf("Words: %d (%d correct)", words, hits),
		fmt.Sprintf("Time played: %s", played.Round(time.Second)),
		fmt.Sprintf("Avg accuracy: %.2f%%", totalAcc/count*100),
		fmt.Sprintf("Best accuracy: %.2f%%", bestAcc*100),
		fmt.Sprintf("Exams: %d taken, %d passed", exams, passed),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderTrend prints smoothed accuracy and pace sparklines.
func RenderTrend(w io.Writer, sessions []model.SessionAggregate, window int) error {
	if len(sessions) == 0 {
		return nil
	}
	accs := make([]float64, len(sessions))
	paces := make([]float64, len(sessions))
	for i, s := range sessions {
		acc, pace := SessionMetrics(s.Hits, s.Fallen, s.DurationMs)
		accs[i] = acc * 100
		paces[i] = pace
	}
	accs = MovingAverage(accs, window)
	paces = MovingAverage(paces, window)
	last := len(accs) - 1
	if _, err := fmt.Fprintf(w, "Accuracy  %s  %.1f%%\n", Sparkline(accs), accs[last]); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Words/min %s  %.1f\n\n", Sparkline(paces), paces[last]); err != nil {
		return err
	}
	return nil
}

// LevelStatus describes where a level stands: passed, cooldown MM:SS,
// available or locked.
func LevelStatus(levels exam.Levels, tree progress.Tree, ref progress.LevelRef, rec *progress.LevelRecord, now time.Time) string {
	switch {
	case rec.Passed:
		return "passed"
	case rec.IsInCooldown(now):
		return "cooldown " + rec.FormatCooldown(now)
	case levels.IsUnlocked(tree, ref):
		return "available"
	default:
		return "locked"
	}
}

// LevelLabel names a level, prefixed by its series unless the series is flat.
func LevelLabel(levels exam.Levels, ref progress.LevelRef) string {
	name := levels.DisplayName(ref)
	if s, ok := levels.Series(ref.Series); ok && !s.Flat() {
		name = s.Name + ": " + name
	}
	return name
}

// RenderProgressTable prints one row per exam level.
func RenderProgressTable(w io.Writer, levels exam.Levels, tree progress.Tree, now time.Time) error {
	headers := []string{"Level", "Status", "Best", "Tries", "Best time"}
	var rows [][]string
	for _, ref := range levels.All() {
		rec, err := tree.Record(ref)
		if err != nil {
			continue
		}
		best := "-"
		if rec.Attempts > 0 {
			best = fmt.Sprintf("%d%%", rec.Score)
		}
		bestTime := "-"
		if rec.BestDuration != nil {
			bestTime = progress.FormatClock(*rec.BestDuration)
		}
		rows = append(rows, []string{
			LevelLabel(levels, ref),
			LevelStatus(levels, tree, ref, rec, now),
			best,
			fmt.Sprintf("%d", rec.Attempts),
			bestTime,
		})
	}
	for _, line := range formatTable(headers, rows, map[int]bool{2: true, 3: true, 4: true}) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// RenderBadges prints earned badges, starring perfect branches.
func RenderBadges(w io.Writer, earned []badges.Badge, tree progress.Tree, layout progress.Layout) error {
	if len(earned) == 0 {
		_, err := fmt.Fprintln(w, "No badges earned yet.")
		return err
	}
	rows := make([][]string, 0, len(earned))
	for _, b := range earned {
		name := b.Name
		if badges.Starred(tree, layout, b.Series, b.Major) {
			name += " *"
		}
		earnedAt := "-"
		if !b.EarnedAt.IsZero() {
			earnedAt = b.EarnedAt.Local().Format("2006-01-02 15:04")
		}
		rows = append(rows, []string{name, earnedAt})
	}
	for _, line := range formatTable([]string{"Badge", "Earned"}, rows, nil) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
