package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/bootgate/pkg/tui"
	"github.com/go-go-golems/bootgate/pkg/tui/styles"
	"github.com/go-go-golems/bootgate/pkg/tui/widgets"
)

type EventLogModel struct {
	max     int
	entries []tui.EventLogEntry

	width  int
	height int

	searching bool
	search    textinput.Model
	filter    string

	vp viewport.Model
}

func NewEventLogModel() EventLogModel {
	search := textinput.New()
	search.Placeholder = "filter…"
	search.Prompt = "/ "
	search.CharLimit = 200

	m := EventLogModel{max: 200, search: search}
	m.vp = viewport.New(0, 0)
	return m
}

func (m EventLogModel) Searching() bool { return m.searching }

func (m EventLogModel) WithSize(width, height int) EventLogModel {
	m.width, m.height = width, height
	m = m.resizeViewport()
	return m
}

func (m EventLogModel) Update(msg tea.Msg) (EventLogModel, tea.Cmd) {
	v, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	if m.searching {
		switch v.String() {
		case "esc":
			m.searching = false
			m.search.Blur()
			return m, nil
		case "enter":
			m.filter = strings.TrimSpace(m.search.Value())
			m.searching = false
			m.search.Blur()
			m = m.refreshViewportContent(true)
			return m, nil
		}

		var cmd tea.Cmd
		m.search, cmd = m.search.Update(v)
		return m, cmd
	}

	switch v.String() {
	case "/":
		m.searching = true
		m.search.SetValue(m.filter)
		m.search.CursorEnd()
		m.search.Focus()
		return m, nil
	case "ctrl+l":
		m.filter = ""
		m.search.SetValue("")
		m = m.refreshViewportContent(true)
		return m, nil
	case "c":
		m.entries = nil
		m = m.refreshViewportContent(true)
		return m, nil
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(v)
	return m, cmd
}

func (m EventLogModel) Append(e tui.EventLogEntry) EventLogModel {
	m.entries = append(m.entries, e)
	if m.max > 0 && len(m.entries) > m.max {
		m.entries = append([]tui.EventLogEntry{}, m.entries[len(m.entries)-m.max:]...)
	}
	m = m.refreshViewportContent(true)
	return m
}

func (m EventLogModel) View() string {
	theme := styles.DefaultTheme()

	var sections []string

	titleRight := ""
	if m.filter != "" {
		titleRight = fmt.Sprintf("filter=%q", m.filter)
	}

	if m.searching {
		sections = append(sections, m.search.View())
	}

	content := m.vp.View()
	boxHeight := m.vp.Height + 3
	if len(m.entries) == 0 {
		content = theme.TitleMuted.Render("(no events yet)")
		boxHeight = 5
	}
	box := widgets.NewBox(fmt.Sprintf("Events (%d)", len(m.entries))).
		WithTitleRight(titleRight).
		WithContent(content).
		WithSize(m.width, boxHeight)
	sections = append(sections, box.Render())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m EventLogModel) resizeViewport() EventLogModel {
	usableHeight := m.height - 4
	if usableHeight < 3 {
		usableHeight = 3
	}
	m.vp.Width = m.width
	if m.vp.Width < 0 {
		m.vp.Width = 0
	}
	m.vp.Height = usableHeight
	m = m.refreshViewportContent(false)
	return m
}

func (m EventLogModel) refreshViewportContent(gotoBottom bool) EventLogModel {
	theme := styles.DefaultTheme()

	if len(m.entries) == 0 {
		m.vp.SetContent("")
		return m
	}

	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		if m.filter != "" && !strings.Contains(e.Text, m.filter) {
			continue
		}
		ts := e.At
		if ts.IsZero() {
			ts = time.Now()
		}

		source := strings.TrimSpace(e.Source)
		if source == "" {
			source = "system"
		}

		level := e.Level
		if level == "" {
			level = tui.LogLevelInfo
		}

		style := theme.TitleMuted
		switch level {
		case tui.LogLevelError:
			style = theme.StatusDead
		case tui.LogLevelWarn:
			style = lipgloss.NewStyle().Foreground(theme.Warning)
		}

		line := lipgloss.JoinHorizontal(lipgloss.Center,
			style.Render(styles.LogLevelIcon(string(level))),
			" ",
			theme.TitleMuted.Render(ts.Format("15:04:05")),
			" ",
			theme.TitleMuted.Render(fmt.Sprintf("[%s]", source)),
			"  ",
			style.Render(e.Text),
		)
		lines = append(lines, line)
	}
	m.vp.SetContent(strings.Join(lines, "\n") + "\n")
	if gotoBottom {
		m.vp.GotoBottom()
	}
	return m
}
