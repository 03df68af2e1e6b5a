// Package statsui provides the Bubble Tea progress browser.
package statsui

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/verte-zerg/worddrop/internal/badges"
	"github.com/verte-zerg/worddrop/internal/exam"
	"github.com/verte-zerg/worddrop/internal/missed"
	"github.com/verte-zerg/worddrop/internal/progress"
	"github.com/verte-zerg/worddrop/internal/stats"
)

const (
	tabOverview = iota
	tabLevels
	tabBadges
	tabMissed
)

var (
	activeNavStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	inactiveNavStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#B0B0B0")).
				Padding(0, 1).
				Border(lipgloss.RoundedBorder(), true).
				BorderForeground(lipgloss.Color("#4A4A4A"))
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	cardStyle   = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	tableMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))
)

// Data is everything the browser shows. It is loaded once by the caller.
type Data struct {
	Levels exam.Levels
	Tree   progress.Tree
	Report stats.Report
	Window int
	Missed []missed.Entry
	Now    time.Time
}

// Model implements the Bubble Tea progress browser.
type Model struct {
	data Data

	tabs       []string
	activeTab  int
	viewports  []viewport.Model
	levelTable table.Model
	refs       []progress.LevelRef

	selected *progress.LevelRef
	errMsg   string

	width  int
	height int
}

// NewModel creates a progress browser over data.
func NewModel(data Data) *Model {
	if data.Now.IsZero() {
		data.Now = time.Now()
	}
	m := &Model{
		data: data,
		tabs: []string{"Overview", "Levels", "Badges", "Missed words"},
	}
	m.viewports = make([]viewport.Model, len(m.tabs))
	for i := range m.viewports {
		m.viewports[i] = viewport.New(0, 0)
	}
	m.levelTable = m.buildLevelTable()
	m.renderTabContents()
	return m
}

// Selected returns the level chosen for an exam, if the user picked one.
func (m *Model) Selected() (progress.LevelRef, bool) {
	if m.selected == nil {
		return progress.LevelRef{}, false
	}
	return *m.selected, true
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.updateLayout()
		m.renderTabContents()
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			return m, tea.Quit
		case "left", "h", "shift+tab":
			m.moveTab(-1)
			return m, nil
		case "right", "l", "tab":
			m.moveTab(1)
			return m, nil
		case "enter":
			if m.activeTab == tabLevels {
				return m, m.chooseLevel()
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	if m.activeTab == tabLevels {
		m.levelTable, cmd = m.levelTable.Update(msg)
		return m, cmd
	}
	m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	headerHeight, bodyHeight, footerHeight := m.layoutHeights()
	header := fitLines(m.renderTabs(), m.width, headerHeight)
	body := fitLines(m.renderBody(), m.width, bodyHeight)
	footer := fitLines(m.renderFooter(), m.width, footerHeight)
	return strings.Join([]string{header, body, footer}, "\n")
}

func (m *Model) chooseLevel() tea.Cmd {
	idx := m.levelTable.Cursor()
	if idx < 0 || idx >= len(m.refs) {
		return nil
	}
	ref := m.refs[idx]
	if err := m.data.Levels.CheckEligibility(m.data.Tree, ref, m.data.Now); err != nil {
		m.errMsg = err.Error()
		return nil
	}
	m.errMsg = ""
	m.selected = &ref
	return tea.Quit
}

func (m *Model) layoutHeights() (headerHeight, bodyHeight, footerHeight int) {
	headerHeight = lipgloss.Height(activeNavStyle.Render("X"))
	if headerHeight < 1 {
		headerHeight = 1
	}
	footerHeight = 1
	if m.errMsg != "" {
		footerHeight++
	}
	bodyHeight = m.height - headerHeight - footerHeight
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	return headerHeight, bodyHeight, footerHeight
}

func (m *Model) updateLayout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	_, bodyHeight, _ := m.layoutHeights()
	for i := range m.viewports {
		m.viewports[i].Width = m.width
		m.viewports[i].Height = bodyHeight
	}
	m.levelTable.SetWidth(m.width)
	m.levelTable.SetHeight(bodyHeight)
}

func (m *Model) moveTab(delta int) {
	count := len(m.tabs)
	next := m.activeTab + delta
	if next < 0 {
		next = count - 1
	}
	if next >= count {
		next = 0
	}
	m.activeTab = next
	m.errMsg = ""
	if m.activeTab == tabLevels {
		m.levelTable.Focus()
	} else {
		m.levelTable.Blur()
	}
}

func (m *Model) renderTabs() string {
	parts := make([]string, 0, len(m.tabs))
	for i, tab := range m.tabs {
		if i == m.activeTab {
			parts = append(parts, activeNavStyle.Render(tab))
		} else {
			parts = append(parts, inactiveNavStyle.Render(tab))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m *Model) renderFooter() string {
	help := "Nav: left/right  Scroll: up/down/pgup/pgdn  Quit: q"
	if m.activeTab == tabLevels {
		help = "Nav: left/right  Select: up/down  Start exam: enter  Quit: q"
	}
	out := headerStyle.Render(help)
	if m.errMsg != "" {
		out += "\n" + errorStyle.Render(m.errMsg)
	}
	return out
}

func (m *Model) renderBody() string {
	if m.activeTab == tabLevels {
		return tableMutedStyle.Render(m.levelTable.View())
	}
	return m.viewports[m.activeTab].View()
}

func (m *Model) renderTabContents() {
	width := m.width
	if width <= 0 {
		width = 80
	}
	m.viewports[tabOverview].SetContent(renderOverview(m.data.Report, m.data.Window, width))
	m.viewports[tabBadges].SetContent(renderBadges(m.data))
	m.viewports[tabMissed].SetContent(renderMissed(m.data.Missed))
}

func (m *Model) buildLevelTable() table.Model {
	columns := []table.Column{
		{Title: "Level", Width: 34},
		{Title: "Status", Width: 16},
		{Title: "Best", Width: 5},
		{Title: "Tries", Width: 5},
	}
	m.refs = m.data.Levels.All()
	rows := make([]table.Row, 0, len(m.refs))
	kept := m.refs[:0]
	for _, ref := range m.refs {
		rec, err := m.data.Tree.Record(ref)
		if err != nil {
			continue
		}
		best := "-"
		if rec.Attempts > 0 {
			best = fmt.Sprintf("%d%%", rec.Score)
		}
		rows = append(rows, table.Row{
			stats.LevelLabel(m.data.Levels, ref),
			stats.LevelStatus(m.data.Levels, m.data.Tree, ref, rec, m.data.Now),
			best,
			fmt.Sprintf("%d", rec.Attempts),
		})
		kept = append(kept, ref)
	}
	m.refs = kept

	t := table.New(table.WithColumns(columns), table.WithRows(rows), table.WithHeight(10))
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#F0F0F0")).
		Background(lipgloss.Color("#5A4A2A")).
		Bold(false)
	t.SetStyles(styles)
	if next, ok := m.data.Levels.NextAvailable(m.data.Tree); ok {
		for i, ref := range m.refs {
			if ref == next {
				t.SetCursor(i)
				break
			}
		}
	}
	return t
}

func renderOverview(report stats.Report, window, width int) string {
	if len(report.Sessions) == 0 {
		return "No sessions found."
	}
	cards := renderSummaryCards(report, width)
	var buf bytes.Buffer
	if err := stats.RenderTrend(&buf, report.Window, window); err != nil {
		return fmt.Sprintf("Failed to render trend: %v", err)
	}
	return strings.TrimRight(cards+"\n\n"+buf.String(), "\n")
}

func renderSummaryCards(report stats.Report, width int) string {
	var totalAcc, totalPace float64
	exams, passed := 0, 0
	for _, s := range report.Sessions {
		acc, pace := stats.SessionMetrics(s.Hits, s.Fallen, s.DurationMs)
		totalAcc += acc
		totalPace += pace
		if s.Exam != "" {
			exams++
			if s.Passed {
				passed++
			}
		}
	}
	count := float64(len(report.Sessions))
	cards := []string{
		metricCard("Sessions", fmt.Sprintf("%d", len(report.Sessions))),
		metricCard("Avg accuracy", fmt.Sprintf("%.1f%%", totalAcc/count*100)),
		metricCard("Avg words/min", fmt.Sprintf("%.1f", totalPace/count)),
		metricCard("Exams passed", fmt.Sprintf("%d/%d", passed, exams)),
	}
	if width < 80 {
		return strings.Join(cards, "\n")
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func metricCard(label, value string) string {
	content := fmt.Sprintf("%s\n%s", cardTitleStyle.Render(label), cardValueStyle.Render(value))
	return cardStyle.Render(content)
}

func renderBadges(data Data) string {
	var buf bytes.Buffer
	layout := data.Levels.Layout()
	earned := badges.Earned(data.Tree, layout)
	if err := stats.RenderBadges(&buf, earned, data.Tree, layout); err != nil {
		return fmt.Sprintf("Failed to render badges: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}

func renderMissed(entries []missed.Entry) string {
	if len(entries) == 0 {
		return "No missed words."
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("%-16s x%-3d %s", e.Word, e.Count, e.Meaning)
		lines = append(lines, strings.TrimRight(line, " "))
	}
	return strings.Join(lines, "\n")
}

func padLine(line string, width int) string {
	w := lipgloss.Width(line)
	if w >= width {
		return line
	}
	return line + strings.Repeat(" ", width-w)
}

func fitLines(s string, width, height int) string {
	lines := strings.Split(s, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for len(lines) < height {
		lines = append(lines, "")
	}
	for i, line := range lines {
		lines[i] = padLine(line, width)
	}
	return strings.Join(lines, "\n")
}
