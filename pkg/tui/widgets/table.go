package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-go-golems/bootgate/pkg/tui/styles"
)

// TableColumn defines a column in the table.
type TableColumn struct {
	Header string
	Width  int
	Align  lipgloss.Position
}

// TableRow is one row: a status icon plus one cell per column.
type TableRow struct {
	Icon  string
	Cells []string
}

// Table renders rows with a cursor for selection.
type Table struct {
	Columns []TableColumn
	Rows    []TableRow
	Cursor  int
	Width   int
	theme   styles.Theme
}

// NewTable creates a new table.
func NewTable(cols []TableColumn) Table {
	return Table{
		Columns: cols,
		theme:   styles.DefaultTheme(),
	}
}

// WithRows sets the table rows.
func (t Table) WithRows(rows []TableRow) Table {
	t.Rows = rows
	return t
}

// WithCursor sets the selected row index.
func (t Table) WithCursor(idx int) Table {
	t.Cursor = idx
	return t
}

// WithWidth sets the table width.
func (t Table) WithWidth(width int) Table {
	t.Width = width
	return t
}

// Render returns the styled table as a string.
func (t Table) Render() string {
	if len(t.Rows) == 0 {
		return t.theme.TitleMuted.Render("(no data)")
	}

	theme := t.theme
	lines := make([]string, 0, len(t.Rows))

	for i, row := range t.Rows {
		selected := i == t.Cursor

		var parts []string

		cursor := "  "
		if selected {
			cursor = theme.KeybindKey.Render("> ")
		}
		parts = append(parts, cursor)

		if row.Icon != "" {
			iconStyle := theme.StatusRunning
			switch row.Icon {
			case styles.IconError:
				iconStyle = theme.StatusDead
			case styles.IconPending, styles.IconGear:
				iconStyle = theme.StatusPending
			}
			parts = append(parts, iconStyle.Render(row.Icon)+" ")
		}

		for j, cell := range row.Cells {
			width := 20
			if j < len(t.Columns) && t.Columns[j].Width > 0 {
				width = t.Columns[j].Width
			}
			if len(cell) > width {
				cell = cell[:width-1] + "…"
			}

			cellStyle := lipgloss.NewStyle().Width(width)
			if j < len(t.Columns) {
				cellStyle = cellStyle.Align(t.Columns[j].Align)
			}
			if selected {
				cellStyle = cellStyle.Bold(true).Foreground(theme.Text)
			} else {
				cellStyle = cellStyle.Foreground(theme.TextDim)
			}
			parts = append(parts, cellStyle.Render(cell))
		}

		line := lipgloss.JoinHorizontal(lipgloss.Top, parts...)
		if selected {
			line = theme.Selected.Width(t.Width).Render(line)
		}
		lines = append(lines, line)
	}

	return strings.Join(lines, "\n")
}
