package models

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/bootgate/pkg/tui"
	"github.com/go-go-golems/bootgate/pkg/tui/widgets"
)

type ViewID string

const (
	ViewDashboard ViewID = "dashboard"
	ViewEvents    ViewID = "events"
	ViewLogs      ViewID = "logs"
)

type RootModel struct {
	width  int
	height int

	active ViewID

	dashboard DashboardModel
	events    EventLogModel
	logs      LogsModel
}

func NewRootModel() RootModel {
	return RootModel{
		active:    ViewDashboard,
		dashboard: NewDashboardModel(),
		events:    NewEventLogModel(),
		logs:      NewLogsModel(),
	}
}

func (m RootModel) Init() tea.Cmd { return nil }

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch v := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = v.Width, v.Height
		inner := m.innerHeight()
		m.dashboard = m.dashboard.WithSize(v.Width, inner)
		m.events = m.events.WithSize(v.Width, inner)
		m.logs = m.logs.WithSize(v.Width, inner)
		return m, nil

	case tea.KeyMsg:
		if v.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if !m.capturingInput() {
			switch v.String() {
			case "q":
				return m, tea.Quit
			case "tab":
				m.active = m.nextView()
				return m, nil
			case "1":
				m.active = ViewDashboard
				return m, nil
			case "2":
				m.active = ViewEvents
				return m, nil
			case "3":
				m.active = ViewLogs
				return m, nil
			}
		}
		return m.updateActive(msg)

	case tui.RunSnapshotMsg:
		m.dashboard = m.dashboard.WithSnapshot(v.Snapshot)
		m.logs = m.logs.WithSnapshot(v.Snapshot)
		return m, nil

	case tui.EventLogAppendMsg:
		m.events = m.events.Append(v.Entry)
		return m, nil

	case tui.NavigateToLogsMsg:
		m.active = ViewLogs
		var cmd tea.Cmd
		m.logs, cmd = m.logs.WithRole(v.Role)
		return m, cmd

	case tui.NavigateBackMsg:
		m.active = ViewDashboard
		return m, nil

	case logTickMsg:
		// Follow ticks must reach the logs model even when another view
		// is in front, or following stops on view switch.
		var cmd tea.Cmd
		m.logs, cmd = m.logs.Update(msg)
		return m, cmd
	}
	return m.updateActive(msg)
}

func (m RootModel) View() string {
	var content string
	switch m.active {
	case ViewEvents:
		content = m.events.View()
	case ViewLogs:
		content = m.logs.View()
	default:
		content = m.dashboard.View()
	}

	footer := widgets.NewFooter(m.keybinds()).WithWidth(m.width).Render()
	return lipgloss.JoinVertical(lipgloss.Left, content, footer)
}

func (m RootModel) updateActive(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.active {
	case ViewEvents:
		m.events, cmd = m.events.Update(msg)
	case ViewLogs:
		m.logs, cmd = m.logs.Update(msg)
	default:
		m.dashboard, cmd = m.dashboard.Update(msg)
	}
	return m, cmd
}

func (m RootModel) capturingInput() bool {
	switch m.active {
	case ViewEvents:
		return m.events.Searching()
	case ViewLogs:
		return m.logs.Searching()
	}
	return false
}

func (m RootModel) nextView() ViewID {
	switch m.active {
	case ViewDashboard:
		return ViewEvents
	case ViewEvents:
		return ViewLogs
	default:
		return ViewDashboard
	}
}

func (m RootModel) keybinds() []widgets.Keybind {
	kb := []widgets.Keybind{
		{Key: "1", Label: "dashboard"},
		{Key: "2", Label: "events"},
		{Key: "3", Label: "logs"},
		{Key: "tab", Label: "next"},
	}
	switch m.active {
	case ViewEvents:
		kb = append(kb,
			widgets.Keybind{Key: "/", Label: "filter"},
			widgets.Keybind{Key: "c", Label: "clear"},
		)
	case ViewLogs:
		kb = append(kb,
			widgets.Keybind{Key: "p", Label: "process"},
			widgets.Keybind{Key: "s", Label: "stream"},
			widgets.Keybind{Key: "f", Label: "follow"},
			widgets.Keybind{Key: "/", Label: "filter"},
		)
	default:
		kb = append(kb,
			widgets.Keybind{Key: "↑/↓", Label: "select"},
			widgets.Keybind{Key: "enter", Label: "logs"},
		)
	}
	return append(kb, widgets.Keybind{Key: "q", Label: "quit"})
}

func (m RootModel) innerHeight() int {
	h := m.height - 2 // footer
	if h < 0 {
		h = 0
	}
	return h
}
