// Package tui provides the Bubble Tea game interface.
package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/verte-zerg/worddrop/internal/catalog"
	"github.com/verte-zerg/worddrop/internal/exam"
	"github.com/verte-zerg/worddrop/internal/generator"
	"github.com/verte-zerg/worddrop/internal/model"
	"github.com/verte-zerg/worddrop/internal/progress"
	statsPkg "github.com/verte-zerg/worddrop/internal/stats"
)

// RoundLength is the number of words per round; the last word of a round
// hides one extra letter.
const RoundLength = 10

// SessionRecorder stores finished play sessions.
type SessionRecorder interface {
	InsertSession(ctx context.Context, stats model.SessionStats) (int64, error)
}

// MissedRecorder records words the player failed.
type MissedRecorder interface {
	Record(ctx context.Context, words ...model.WordEntry) error
}

// Deps are the collaborators of a Model. Sessions, Missed and Exams may be nil.
type Deps struct {
	Pool     *catalog.Pool
	Gen      *generator.Generator
	Sessions SessionRecorder
	Missed   MissedRecorder
	Exams    *exam.Controller
	Now      func() time.Time
}

type dropTickMsg struct {
	seq int
}

// Model implements the Bubble Tea game UI.
type Model struct {
	config model.Config
	deps   Deps

	width  int
	height int

	input     textinput.Model
	challenge model.Challenge
	ready     bool
	seq       int
	remaining int
	feedback  string
	notice    string

	sessionID string
	startedAt time.Time
	hits      int
	fallen    int
	saved     bool

	examSession *exam.Session
	examResult  *exam.Result
	examErr     error
	done        bool
}

var (
	knownStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	correctStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A")).Bold(true)
	incorrectStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F")).Bold(true)
	pendingStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cursorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Underline(true)
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C")).Italic(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A")).Bold(true)
)

// NewModel constructs a game model. When deps.Exams holds an active session
// the model plays that exam and completes it after its target word count.
func NewModel(cfg model.Config, deps Deps) *Model {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.DropSeconds <= 0 {
		cfg.DropSeconds = 10
	}
	in := textinput.New()
	in.Prompt = "> "
	in.Placeholder = "missing letters"
	in.Focus()

	m := &Model{
		config:    cfg,
		deps:      deps,
		input:     in,
		sessionID: uuid.NewString(),
		startedAt: deps.Now(),
	}
	if deps.Exams != nil {
		if sess, ok := deps.Exams.Session(); ok {
			m.examSession = &sess
			m.sessionID = sess.ID
			m.config.Mode = model.ModeChallenge
		}
	}
	m.nextChallenge()
	return m
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.tick())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case dropTickMsg:
		return m, m.handleTick(msg)
	case tea.KeyMsg:
		if m.done {
			return m, tea.Quit
		}
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.quit()
			return m, tea.Quit
		case tea.KeyEnter:
			return m, m.submit()
		case tea.KeyTab:
			return m, m.resolve(false)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		if m.ready && len([]rune(strings.TrimSpace(m.input.Value()))) >= len([]rune(m.challenge.MissingLetters)) {
			return m, tea.Batch(cmd, m.submit())
		}
		return m, cmd
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) tick() tea.Cmd {
	if !m.ready || m.done {
		return nil
	}
	seq := m.seq
	return tea.Tick(time.Second, func(time.Time) tea.Msg {
		return dropTickMsg{seq: seq}
	})
}

func (m *Model) handleTick(msg dropTickMsg) tea.Cmd {
	if msg.seq != m.seq || !m.ready || m.done {
		return nil
	}
	m.remaining--
	if m.remaining <= 0 {
		return m.resolve(false)
	}
	return m.tick()
}

func (m *Model) submit() tea.Cmd {
	if !m.ready || m.done {
		return nil
	}
	return m.resolve(generator.CheckAnswer(m.challenge, m.input.Value()))
}

// resolve ends the current word. A miss covers wrong answers, give-ups and
// words that dropped out of time.
func (m *Model) resolve(correct bool) tea.Cmd {
	if !m.ready {
		return nil
	}
	m.fallen++
	if correct {
		m.hits++
		m.feedback = correctStyle.Render("✓ " + m.challenge.Original)
	} else {
		m.feedback = incorrectStyle.Render("✗ " + m.challenge.Original)
		m.recordMissed()
	}
	if m.examSession != nil {
		m.deps.Exams.Observe(m.hits, m.fallen)
		if m.fallen >= m.examSession.TargetWordCount {
			m.completeExam()
			return nil
		}
	}
	m.nextChallenge()
	return m.tick()
}

func (m *Model) recordMissed() {
	if m.deps.Missed == nil {
		return
	}
	entry := model.WordEntry{
		Word:       m.challenge.Original,
		Meaning:    m.challenge.Meaning,
		Phonetic:   m.challenge.Phonetic,
		Difficulty: m.challenge.Difficulty,
	}
	if err := m.deps.Missed.Record(context.Background(), entry); err != nil {
		slog.Error("failed to record missed word", "word", entry.Word, "error", err)
	}
}

func (m *Model) nextChallenge() {
	m.input.Reset()
	m.seq++
	m.remaining = m.config.DropSeconds
	var (
		ch  model.Challenge
		err error
	)
	if m.examSession != nil {
		ch, err = m.deps.Gen.SelectAny(m.deps.Pool.Current(), m.fallen+1 == m.examSession.TargetWordCount)
	} else {
		ch, err = m.deps.Gen.SelectWidened(m.deps.Pool.Current(), m.config.Tier, (m.fallen+1)%RoundLength == 0)
	}
	if err != nil {
		m.ready = false
		switch {
		case errors.Is(err, generator.ErrNotReady):
			m.notice = "Word list is still loading."
		default:
			m.notice = "No words available: " + err.Error()
		}
		slog.Warn("no challenge available", "tier", int(m.config.Tier), "error", err)
		return
	}
	m.challenge = ch
	m.ready = true
	m.notice = ""
}

func (m *Model) completeExam() {
	m.ready = false
	m.done = true
	res, err := m.deps.Exams.Complete(context.Background(), m.deps.Exams.CorrectRate())
	m.examResult = &res
	if err != nil {
		m.examErr = err
		slog.Error("failed to record exam", "error", err)
	}
	m.saveSession(res.Passed)
}

func (m *Model) quit() {
	if m.examSession != nil && !m.done {
		m.deps.Exams.Cancel(context.Background())
	}
	m.done = true
	m.saveSession(false)
}

func (m *Model) saveSession(passed bool) {
	if m.saved || m.fallen == 0 || m.deps.Sessions == nil {
		return
	}
	m.saved = true
	ended := m.deps.Now()
	stats := model.SessionStats{
		SessionID:  m.sessionID,
		StartedAt:  m.startedAt,
		EndedAt:    ended,
		Mode:       m.config.Mode,
		Tier:       m.config.Tier,
		Hits:       m.hits,
		Fallen:     m.fallen,
		DurationMs: ended.Sub(m.startedAt).Milliseconds(),
	}
	if m.examSession != nil && m.examResult != nil {
		stats.Exam = m.examSession.Ref.String()
		stats.Passed = passed
	}
	if _, err := m.deps.Sessions.InsertSession(context.Background(), stats); err != nil {
		slog.Error("failed to save session", "error", err)
	}
}

// Result returns the exam outcome once the exam has completed.
func (m *Model) Result() (exam.Result, bool) {
	if m.examResult == nil {
		return exam.Result{}, false
	}
	return *m.examResult, true
}

// Err returns the error from saving the exam result, if any.
func (m *Model) Err() error {
	return m.examErr
}

// Counts returns the words answered correctly and the words played.
func (m *Model) Counts() (hits, fallen int) {
	return m.hits, m.fallen
}

// View implements tea.Model.
func (m *Model) View() string {
	content := m.renderBody()
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	footer := m.renderFooter()
	if m.height < 3 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-1, lipgloss.Center, lipgloss.Center, content)
	footerLine := lipgloss.Place(m.width, 1, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLine
}

func (m *Model) renderBody() string {
	if m.examResult != nil {
		return m.renderResult()
	}
	if !m.ready {
		return hintStyle.Render(m.notice)
	}
	runes := buildStyledRunes(m.challenge, []rune(strings.TrimSpace(m.input.Value())))
	word := spaced(runes)
	if m.width > 0 && displayWidth(runes)*2 > m.width {
		word = renderStyledRunes(runes)
	}
	lines := []string{}
	if m.examSession != nil {
		lines = append(lines, titleStyle.Render(m.examSession.Level.Name), "")
	}
	lines = append(lines, word, "")
	if m.config.Mode == model.ModeCasual {
		if m.challenge.Phonetic != "" {
			lines = append(lines, hintStyle.Render(m.challenge.Phonetic))
		}
		if m.challenge.Meaning != "" {
			lines = append(lines, hintStyle.Render(m.challenge.Meaning))
		}
		lines = append(lines, "")
	}
	lines = append(lines, m.input.View())
	if m.feedback != "" {
		lines = append(lines, "", m.feedback)
	}
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderResult() string {
	res := m.examResult
	verdict := incorrectStyle.Render("Not passed")
	if res.Passed {
		verdict = correctStyle.Render("Passed")
	}
	lines := []string{
		titleStyle.Render(m.examSession.Level.Name),
		"",
		fmt.Sprintf("Score %d%%  %s", res.Score, verdict),
		fmt.Sprintf("Best %d%%  Attempts %d", res.BestScore, res.Attempts),
	}
	if res.Passed && res.BestDuration != nil {
		lines = append(lines, "Best time "+progress.FormatClock(*res.BestDuration))
	}
	if res.CooldownUntil != nil {
		lines = append(lines, fmt.Sprintf("Retry after %s", res.CooldownUntil.Local().Format("15:04")))
	}
	for _, b := range res.NewBadges {
		lines = append(lines, titleStyle.Render("New badge: "+b.Name))
	}
	if m.examErr != nil {
		lines = append(lines, incorrectStyle.Render("Progress was not saved: "+m.examErr.Error()))
	}
	lines = append(lines, "", hintStyle.Render("press any key"))
	return lipgloss.JoinVertical(lipgloss.Center, lines...)
}

func (m *Model) renderFooter() string {
	acc, _ := statsPkg.SessionMetrics(m.hits, m.fallen, 0)
	segments := []string{}
	if m.ready {
		segments = append(segments, fmt.Sprintf("Drop %ds", m.remaining))
	}
	if m.examSession != nil {
		segments = append(segments, fmt.Sprintf("Word %d/%d", m.fallen, m.examSession.TargetWordCount))
	}
	segments = append(segments, fmt.Sprintf("Hits %d/%d", m.hits, m.fallen))
	if m.fallen > 0 {
		segments = append(segments, fmt.Sprintf("%.1f%%", acc*100))
	}
	segments = append(segments, "tab give up · esc quit")
	return footerStyle.Render(strings.Join(segments, "  "))
}
