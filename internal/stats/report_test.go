package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/verte-zerg/worddrop/internal/model"
	"github.com/verte-zerg/worddrop/internal/store"
)

func TestBuildReport(t *testing.T) {
	dir := t.TempDir()
	st, err := store.Open(filepath.Join(dir, "worddrop.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		_ = st.Close()
	})

	ctx := context.Background()
	var ids []int64
	for i := 0; i < 4; i++ {
		start := time.Unix(0, 0).Add(time.Duration(i) * time.Minute)
		end := start.Add(30 * time.Second)
		exam := ""
		if i == 3 {
			exam = "phonics/shortVowels"
		}
		id, err := st.InsertSession(ctx, model.SessionStats{
			SessionID:  "s",
			StartedAt:  start,
			EndedAt:    end,
			Mode:       model.ModeCasual,
			Tier:       model.DifficultyEasy,
			Hits:       8 + i,
			Fallen:     12,
			DurationMs: end.Sub(start).Milliseconds(),
			Exam:       exam,
		})
		if err != nil {
			t.Fatalf("insert session: %v", err)
		}
		ids = append(ids, id)
	}

	report, err := BuildReport(ctx, st, model.StatsConfig{Last: 3, CurveWindow: 2})
	if err != nil {
		t.Fatalf("build report: %v", err)
	}
	if len(report.Sessions) != 3 {
		t.Fatalf("expected 3 sessions, got %d", len(report.Sessions))
	}
	if report.Sessions[0].ID != ids[1] || report.Sessions[2].ID != ids[3] {
		t.Fatalf("unexpected session ids: %+v", report.Sessions)
	}
	if len(report.Window) != 2 || report.Window[1].ID != ids[3] {
		t.Fatalf("unexpected window: %+v", report.Window)
	}

	report, err = BuildReport(ctx, st, model.StatsConfig{ExamsOnly: true})
	if err != nil {
		t.Fatalf("build exams report: %v", err)
	}
	if len(report.Sessions) != 1 || report.Sessions[0].Exam != "phonics/shortVowels" {
		t.Fatalf("expected only the exam session, got %+v", report.Sessions)
	}
}
