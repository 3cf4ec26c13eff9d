package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/bootgate/pkg/events"
	"github.com/go-go-golems/bootgate/pkg/probe"
	"github.com/go-go-golems/bootgate/pkg/proc"
	"github.com/go-go-golems/bootgate/pkg/state"
	"github.com/go-go-golems/bootgate/pkg/tui"
	"github.com/go-go-golems/bootgate/pkg/tui/styles"
	"github.com/go-go-golems/bootgate/pkg/tui/widgets"
)

type DashboardModel struct {
	width  int
	height int

	cursor int
	last   *events.RunSnapshot
}

func NewDashboardModel() DashboardModel { return DashboardModel{} }

func (m DashboardModel) WithSize(width, height int) DashboardModel {
	m.width, m.height = width, height
	return m
}

func (m DashboardModel) WithSnapshot(s events.RunSnapshot) DashboardModel {
	m.last = &s
	if n := m.rowCount(); m.cursor >= n && n > 0 {
		m.cursor = n - 1
	}
	return m
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	if v, ok := msg.(tea.KeyMsg); ok {
		switch v.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < m.rowCount()-1 {
				m.cursor++
			}
		case "enter":
			if role := m.roleAt(m.cursor); role != "" {
				return m, func() tea.Msg { return tui.NavigateToLogsMsg{Role: role} }
			}
		}
	}
	return m, nil
}

func (m DashboardModel) View() string {
	theme := styles.DefaultTheme()

	if m.last == nil {
		return theme.TitleMuted.Render("Waiting for first snapshot...") + "\n"
	}
	s := m.last

	header := widgets.NewHeader("bootgate").WithWidth(m.width)

	if !s.Exists {
		header = header.WithStatus(styles.IconPending, "no run", false)
		return lipgloss.JoinVertical(lipgloss.Left,
			header.Render(),
			"",
			theme.TitleMuted.Render("No run record under "+s.Root+". Start one with: bootgate run"),
		)
	}
	if s.Error != "" || s.Run == nil {
		header = header.WithStatus(styles.IconError, "run record unreadable", false)
		detail := s.Error
		if detail == "" {
			detail = "run record missing from snapshot"
		}
		return lipgloss.JoinVertical(lipgloss.Left, header.Render(), "", theme.StatusDead.Render(detail))
	}

	run := s.Run
	header = header.WithStatus(styles.PhaseIcon(run.Phase), run.Phase, run.Phase != "aborted")
	if !run.CreatedAt.IsZero() {
		header = header.WithUptime(time.Since(run.CreatedAt))
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header.Render(),
		m.progressBox(run, theme),
		m.processBox(s, run),
	)
}

func (m DashboardModel) progressBox(run *state.Run, theme styles.Theme) string {
	barWidth := m.width - 20
	if barWidth < 10 {
		barWidth = 10
	}

	bar := widgets.NewProgressBar(phasePercent(run.Phase)).
		WithWidth(barWidth).
		WithStyle(theme.StatusRunning)
	if run.Phase == "aborted" {
		bar = widgets.NewProgressBar(100).
			WithWidth(barWidth).
			WithStyle(theme.StatusDead).
			WithLabel("aborted")
	}

	lines := []string{bar.Render()}
	if run.Attempts > 0 {
		lines = append(lines, theme.TitleMuted.Render(fmt.Sprintf("probe attempts: %d", run.Attempts)))
	}
	if run.ExitCode != nil {
		lines = append(lines, theme.Title.Render(fmt.Sprintf("exit code: %d", *run.ExitCode)))
	}

	return widgets.NewBox("Boot").
		WithContent(strings.Join(lines, "\n")).
		WithSize(m.width, len(lines)+3).
		Render()
}

func (m DashboardModel) processBox(s *events.RunSnapshot, run *state.Run) string {
	cols := []widgets.TableColumn{
		{Header: "name", Width: 16},
		{Header: "status", Width: 12},
		{Header: "pid", Width: 8},
		{Header: "cpu", Width: 8},
		{Header: "mem", Width: 9},
		{Header: "detail", Width: 28},
	}

	var rows []widgets.TableRow
	if run.Primary != nil {
		rows = append(rows, processRow(run.Primary, s.PrimaryAlive, s.PrimaryStats, probeDetail(s.PrimaryProbe)))
	}
	if run.Dependent != nil {
		rows = append(rows, processRow(run.Dependent, s.DependentAlive, s.DependentStats, ""))
	}

	tableWidth := m.width - 2
	if tableWidth < 0 {
		tableWidth = 0
	}
	table := widgets.NewTable(cols).
		WithRows(rows).
		WithCursor(m.cursor).
		WithWidth(tableWidth)

	return widgets.NewBox("Processes").
		WithTitleRight("enter opens logs").
		WithContent(table.Render()).
		WithSize(m.width, len(rows)+3).
		Render()
}

func (m DashboardModel) rowCount() int {
	if m.last == nil || m.last.Run == nil {
		return 0
	}
	n := 0
	if m.last.Run.Primary != nil {
		n++
	}
	if m.last.Run.Dependent != nil {
		n++
	}
	return n
}

func (m DashboardModel) roleAt(i int) string {
	if m.last == nil || m.last.Run == nil {
		return ""
	}
	var roles []string
	if m.last.Run.Primary != nil {
		roles = append(roles, events.RolePrimary)
	}
	if m.last.Run.Dependent != nil {
		roles = append(roles, events.RoleDependent)
	}
	if i < 0 || i >= len(roles) {
		return ""
	}
	return roles[i]
}

func processRow(rec *state.ProcessRecord, alive bool, stats *proc.Stats, detail string) widgets.TableRow {
	status := "dead"
	switch {
	case alive:
		status = "alive"
	case rec.Signal != "":
		status = "signal " + rec.Signal
	case rec.ExitCode != nil:
		status = fmt.Sprintf("exit %d", *rec.ExitCode)
	}

	cpu, mem := "-", "-"
	if stats != nil {
		cpu = fmt.Sprintf("%.1f%%", stats.CPUPercent)
		mem = fmt.Sprintf("%dMB", stats.MemoryMB)
	}

	return widgets.TableRow{
		Icon:  styles.StatusIcon(alive),
		Cells: []string{rec.Name, status, strconv.Itoa(rec.PID), cpu, mem, detail},
	}
}

func probeDetail(r *probe.Result) string {
	if r == nil {
		return ""
	}
	if r.Reason != "" {
		return fmt.Sprintf("%s (%s)", r.Status, r.Reason)
	}
	return string(r.Status)
}

func phasePercent(phase string) int {
	switch phase {
	case "primary_starting":
		return 25
	case "waiting_for_ready":
		return 50
	case "dependent_running":
		return 75
	case "done":
		return 100
	default:
		return 0
	}
}
