package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/bootgate/pkg/events"
	"github.com/go-go-golems/bootgate/pkg/state"
	"github.com/go-go-golems/bootgate/pkg/tui"
	"github.com/go-go-golems/bootgate/pkg/tui/styles"
	"github.com/go-go-golems/bootgate/pkg/tui/widgets"
)

type logTickMsg struct{}

const (
	logFollowInterval = 500 * time.Millisecond
	logTailLines      = 500
	logTailMaxBytes   = 2 << 20
)

// LogsModel tails one process's captured log file. The role (primary or
// dependent) and stream (stdout or stderr) are switchable; follow mode
// re-reads the tail on a tick.
type LogsModel struct {
	width  int
	height int

	role   string
	stderr bool
	follow bool

	// ticking tracks whether a follow tick is already in flight, so
	// toggling follow repeatedly does not stack tickers.
	ticking bool

	last *events.RunSnapshot

	searching bool
	search    textinput.Model
	filter    string

	lines   []string
	loadErr string

	vp viewport.Model
}

func NewLogsModel() LogsModel {
	search := textinput.New()
	search.Placeholder = "filter…"
	search.Prompt = "/ "
	search.CharLimit = 200

	m := LogsModel{role: events.RolePrimary, follow: true, search: search}
	m.vp = viewport.New(0, 0)
	return m
}

func (m LogsModel) Searching() bool { return m.searching }

func (m LogsModel) WithSize(width, height int) LogsModel {
	m.width, m.height = width, height
	m = m.resizeViewport()
	return m
}

func (m LogsModel) WithSnapshot(s events.RunSnapshot) LogsModel {
	m.last = &s
	return m
}

// WithRole points the view at a process and reloads. Called when the
// dashboard navigates here.
func (m LogsModel) WithRole(role string) (LogsModel, tea.Cmd) {
	if role != "" {
		m.role = role
	}
	m = m.reload()
	if m.follow && !m.ticking {
		m.ticking = true
		return m, followTick()
	}
	return m, nil
}

func (m LogsModel) Update(msg tea.Msg) (LogsModel, tea.Cmd) {
	switch v := msg.(type) {
	case logTickMsg:
		if !m.follow {
			m.ticking = false
			return m, nil
		}
		m = m.reload()
		return m, followTick()

	case tea.KeyMsg:
		return m.updateKey(v)
	}
	return m, nil
}

func (m LogsModel) updateKey(v tea.KeyMsg) (LogsModel, tea.Cmd) {
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
	case "esc":
		return m, func() tea.Msg { return tui.NavigateBackMsg{} }
	case "p":
		if m.role == events.RolePrimary {
			m.role = events.RoleDependent
		} else {
			m.role = events.RolePrimary
		}
		m = m.reload()
		return m, nil
	case "s":
		m.stderr = !m.stderr
		m = m.reload()
		return m, nil
	case "f":
		m.follow = !m.follow
		if m.follow && !m.ticking {
			m.ticking = true
			return m, followTick()
		}
		return m, nil
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
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(v)
	return m, cmd
}

func (m LogsModel) View() string {
	theme := styles.DefaultTheme()

	var sections []string
	if m.searching {
		sections = append(sections, m.search.View())
	}

	stream := "stdout"
	if m.stderr {
		stream = "stderr"
	}
	title := fmt.Sprintf("Logs: %s %s", m.role, stream)

	var titleRight []string
	if m.follow {
		titleRight = append(titleRight, "following")
	}
	if m.filter != "" {
		titleRight = append(titleRight, fmt.Sprintf("filter=%q", m.filter))
	}

	content := m.vp.View()
	boxHeight := m.vp.Height + 3
	switch {
	case m.loadErr != "":
		content = theme.StatusDead.Render(m.loadErr)
		boxHeight = 5
	case len(m.lines) == 0:
		content = theme.TitleMuted.Render("(no log lines)")
		boxHeight = 5
	}

	box := widgets.NewBox(title).
		WithTitleRight(strings.Join(titleRight, " ")).
		WithContent(content).
		WithSize(m.width, boxHeight)
	sections = append(sections, box.Render())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m LogsModel) reload() LogsModel {
	m.loadErr = ""
	m.lines = nil

	rec := m.record()
	if rec == nil {
		m.loadErr = "no process record for " + m.role
		return m.refreshViewportContent(true)
	}

	path := rec.StdoutLog
	if m.stderr {
		path = rec.StderrLog
	}
	if path == "" {
		m.loadErr = "no log file recorded (run started without log capture?)"
		return m.refreshViewportContent(true)
	}

	lines, err := state.TailLines(path, logTailLines, logTailMaxBytes)
	if err != nil {
		m.loadErr = err.Error()
		return m.refreshViewportContent(true)
	}
	m.lines = lines
	return m.refreshViewportContent(true)
}

func (m LogsModel) record() *state.ProcessRecord {
	if m.last == nil || m.last.Run == nil {
		return nil
	}
	if m.role == events.RoleDependent {
		return m.last.Run.Dependent
	}
	return m.last.Run.Primary
}

func (m LogsModel) resizeViewport() LogsModel {
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

func (m LogsModel) refreshViewportContent(gotoBottom bool) LogsModel {
	if len(m.lines) == 0 {
		m.vp.SetContent("")
		return m
	}

	out := make([]string, 0, len(m.lines))
	for _, line := range m.lines {
		if m.filter != "" && !strings.Contains(line, m.filter) {
			continue
		}
		out = append(out, line)
	}
	m.vp.SetContent(strings.Join(out, "\n") + "\n")
	if gotoBottom {
		m.vp.GotoBottom()
	}
	return m
}

func followTick() tea.Cmd {
	return tea.Tick(logFollowInterval, func(time.Time) tea.Msg { return logTickMsg{} })
}
