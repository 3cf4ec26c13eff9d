package widgets

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/bootgate/pkg/tui/styles"
)

// Keybind represents a keybinding hint.
type Keybind struct {
	Key   string
	Label string
}

// Header renders a styled title bar with status and uptime.
type Header struct {
	Title      string
	Status     string
	StatusIcon string
	StatusOk   bool
	Uptime     time.Duration
	Width      int
	theme      styles.Theme
}

// NewHeader creates a new header.
func NewHeader(title string) Header {
	return Header{
		Title: title,
		theme: styles.DefaultTheme(),
	}
}

// WithStatus sets the status text and icon.
func (h Header) WithStatus(icon, status string, ok bool) Header {
	h.StatusIcon = icon
	h.Status = status
	h.StatusOk = ok
	return h
}

// WithUptime sets the uptime duration.
func (h Header) WithUptime(d time.Duration) Header {
	h.Uptime = d
	return h
}

// WithWidth sets the header width.
func (h Header) WithWidth(w int) Header {
	h.Width = w
	return h
}

// Render returns the styled header as a string.
func (h Header) Render() string {
	theme := h.theme

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.Text).
		Background(theme.Primary).
		Padding(0, 1)
	left := titleStyle.Render(h.Title)

	if h.Status != "" {
		statusStyle := theme.StatusDead
		if h.StatusOk {
			statusStyle = theme.StatusRunning
		}
		icon := h.StatusIcon
		if icon == "" {
			icon = styles.IconSystem
		}
		status := statusStyle.Render(icon) + " " + lipgloss.NewStyle().Foreground(theme.Text).Render(h.Status)
		left = lipgloss.JoinHorizontal(lipgloss.Center, left, "  ", status)
	}

	right := ""
	if h.Uptime > 0 {
		right = theme.TitleMuted.Render(fmt.Sprintf("Uptime: %s", formatDuration(h.Uptime)))
	}

	spacing := h.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if spacing < 1 {
		spacing = 1
	}
	spacer := lipgloss.NewStyle().Width(spacing).Render("")
	line := lipgloss.JoinHorizontal(lipgloss.Top, left, spacer, right)

	return lipgloss.JoinVertical(lipgloss.Left, line, separatorLine(h.Width, theme))
}

// RenderKeybinds renders a list of keybinding hints.
func RenderKeybinds(keybinds []Keybind, theme styles.Theme) string {
	parts := make([]string, 0, len(keybinds)*2)
	for i, kb := range keybinds {
		if i > 0 {
			parts = append(parts, theme.TitleMuted.Render(" "))
		}
		parts = append(parts, theme.KeybindKey.Render("["+kb.Key+"]"))
		parts = append(parts, theme.Keybind.Render(" "+kb.Label))
	}
	return lipgloss.JoinHorizontal(lipgloss.Center, parts...)
}

func separatorLine(width int, theme styles.Theme) string {
	if width <= 0 {
		width = 80
	}
	chars := make([]rune, width)
	for i := range chars {
		chars[i] = '━'
	}
	return lipgloss.NewStyle().Foreground(theme.Muted).Render(string(chars))
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh %dm %ds", h, m, s)
	}
	if m > 0 {
		return fmt.Sprintf("%dm %ds", m, s)
	}
	return fmt.Sprintf("%ds", s)
}
