package widgets

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/bootgate/pkg/tui/styles"
)

// Footer renders a keybindings bar under a separator line.
type Footer struct {
	Keybinds []Keybind
	Width    int
	theme    styles.Theme
}

// NewFooter creates a new footer.
func NewFooter(keybinds []Keybind) Footer {
	return Footer{
		Keybinds: keybinds,
		theme:    styles.DefaultTheme(),
	}
}

// WithWidth sets the footer width.
func (f Footer) WithWidth(w int) Footer {
	f.Width = w
	return f
}

// Render returns the styled footer as a string.
func (f Footer) Render() string {
	theme := f.theme

	keybinds := RenderKeybinds(f.Keybinds, theme)

	padding := (f.Width - lipgloss.Width(keybinds)) / 2
	if padding < 0 {
		padding = 0
	}
	centered := lipgloss.NewStyle().
		PaddingLeft(padding).
		Width(f.Width).
		Render(keybinds)

	return lipgloss.JoinVertical(lipgloss.Left, separatorLine(f.Width, theme), centered)
}
