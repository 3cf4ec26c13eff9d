package widgets

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/bootgate/pkg/tui/styles"
)

// Box renders a bordered container with an optional title line.
type Box struct {
	Title      string
	TitleRight string
	Content    string
	Width      int
	Height     int
	theme      styles.Theme
}

// NewBox creates a new box with default styling.
func NewBox(title string) Box {
	return Box{
		Title: title,
		theme: styles.DefaultTheme(),
	}
}

// WithContent sets the box content.
func (b Box) WithContent(content string) Box {
	b.Content = content
	return b
}

// WithTitleRight sets the right-aligned title text (e.g., keybindings).
func (b Box) WithTitleRight(text string) Box {
	b.TitleRight = text
	return b
}

// WithSize sets the box dimensions.
func (b Box) WithSize(width, height int) Box {
	b.Width = width
	b.Height = height
	return b
}

// Render returns the styled box as a string.
func (b Box) Render() string {
	contentWidth := b.Width - 2 // borders
	if contentWidth < 0 {
		contentWidth = 0
	}

	header := b.renderTitleLine(contentWidth)

	full := b.Content
	if header != "" {
		full = header + "\n" + b.Content
	}

	style := b.theme.Border
	if b.Width > 0 {
		style = style.Width(contentWidth)
	}
	if b.Height > 0 {
		innerHeight := b.Height - 2 // top and bottom borders
		if header != "" {
			innerHeight--
		}
		if innerHeight < 0 {
			innerHeight = 0
		}
		style = style.Height(innerHeight)
	}

	return style.Render(full)
}

func (b Box) renderTitleLine(contentWidth int) string {
	left := ""
	if b.Title != "" {
		left = b.theme.Title.Render(b.Title)
	}
	right := ""
	if b.TitleRight != "" {
		right = b.theme.TitleMuted.Render(b.TitleRight)
	}
	if left == "" && right == "" {
		return ""
	}

	spacing := contentWidth - lipgloss.Width(left) - lipgloss.Width(right)
	if spacing < 1 {
		spacing = 1
	}
	spacer := lipgloss.NewStyle().Width(spacing).Render("")
	return lipgloss.JoinHorizontal(lipgloss.Top, left, spacer, right)
}
