package statsui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/verte-zerg/worddrop/internal/exam"
	"github.com/verte-zerg/worddrop/internal/missed"
	"github.com/verte-zerg/worddrop/internal/model"
	"github.com/verte-zerg/worddrop/internal/progress"
	"github.com/verte-zerg/worddrop/internal/stats"
)

func testData() Data {
	levels := exam.DefaultLevels()
	sessions := []model.SessionAggregate{
		{ID: 1, Hits: 8, Fallen: 10, DurationMs: 60000},
		{ID: 2, Hits: 18, Fallen: 20, DurationMs: 120000, Exam: "phonics/shortVowels", Passed: true},
	}
	return Data{
		Levels: levels,
		Tree:   progress.Defaults(levels.Layout()),
		Report: stats.Report{Sessions: sessions, Window: sessions},
		Window: 5,
		Missed: []missed.Entry{{Word: "castle", Meaning: "a large fortified building", Count: 2}},
		Now:    time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
	}
}

func sized(m *Model) {
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
}

func TestTabsRender(t *testing.T) {
	m := NewModel(testData())
	sized(m)
	if !strings.Contains(m.View(), "Sessions") {
		t.Fatalf("expected overview cards")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if !strings.Contains(m.View(), "Short vowels") {
		t.Fatalf("expected level table, got %q", m.View())
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if !strings.Contains(m.View(), "No badges earned yet.") {
		t.Fatalf("expected empty badges tab")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if !strings.Contains(m.View(), "castle") {
		t.Fatalf("expected missed words tab")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	if m.activeTab != tabOverview {
		t.Fatalf("expected tabs to wrap, got %d", m.activeTab)
	}
}

func TestSelectAvailableLevel(t *testing.T) {
	m := NewModel(testData())
	sized(m)
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil {
		t.Fatalf("expected quit after choosing a level")
	}
	ref, ok := m.Selected()
	if !ok || ref != (progress.LevelRef{Series: "phonics", Minor: "shortVowels"}) {
		t.Fatalf("unexpected selection %+v %v", ref, ok)
	}
}

func TestSelectLockedLevelShowsError(t *testing.T) {
	m := NewModel(testData())
	sized(m)
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyDown})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd != nil {
		t.Fatalf("locked level must not quit")
	}
	if _, ok := m.Selected(); ok {
		t.Fatalf("locked level must not be selected")
	}
	if !strings.Contains(m.View(), "locked") {
		t.Fatalf("expected locked error in footer")
	}
}

func TestCooldownLevelRejected(t *testing.T) {
	data := testData()
	rec, err := data.Tree.Record(progress.LevelRef{Series: "phonics", Minor: "shortVowels"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	until := data.Now.Add(10 * time.Minute)
	rec.CooldownUntil = &until
	rec.Attempts = 1

	m := NewModel(data)
	sized(m)
	m.Update(tea.KeyMsg{Type: tea.KeyRight})
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if _, ok := m.Selected(); ok {
		t.Fatalf("cooling level must not be selected")
	}
	var cd *exam.CooldownError
	if err := data.Levels.CheckEligibility(data.Tree, progress.LevelRef{Series: "phonics", Minor: "shortVowels"}, data.Now); !errors.As(err, &cd) {
		t.Fatalf("expected cooldown error, got %v", err)
	}
	if !strings.Contains(m.View(), "10:00") {
		t.Fatalf("expected remaining cooldown in view")
	}
}

func TestEmptyOverview(t *testing.T) {
	data := testData()
	data.Report = stats.Report{}
	m := NewModel(data)
	sized(m)
	if !strings.Contains(m.View(), "No sessions found.") {
		t.Fatalf("expected empty notice")
	}
}
