package widgets

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ProgressBar renders a horizontal bar with a percentage label.
type ProgressBar struct {
	percent int
	width   int
	style   lipgloss.Style
	label   string
}

// NewProgressBar creates a progress bar for the given percentage (0-100).
func NewProgressBar(percent int) ProgressBar {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return ProgressBar{percent: percent, width: 20}
}

// WithWidth sets the bar width (not counting the label).
func (p ProgressBar) WithWidth(width int) ProgressBar {
	if width < 5 {
		width = 5
	}
	p.width = width
	return p
}

// WithStyle sets the style for the filled portion.
func (p ProgressBar) WithStyle(style lipgloss.Style) ProgressBar {
	p.style = style
	return p
}

// WithLabel replaces the percentage text with a custom label.
func (p ProgressBar) WithLabel(label string) ProgressBar {
	p.label = label
	return p
}

// Render returns the rendered bar.
func (p ProgressBar) Render() string {
	filled := p.width * p.percent / 100
	empty := p.width - filled

	bar := p.style.Render(strings.Repeat("█", filled)) + strings.Repeat("░", empty)

	label := p.label
	if label == "" {
		label = fmt.Sprintf("%3d%%", p.percent)
	}
	return bar + " " + label
}
