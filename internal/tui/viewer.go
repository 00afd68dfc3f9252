// Package tui provides an interactive, scrollable view of a result table.
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/dbprobe/internal/database"
	"github.com/joacominatel/dbprobe/internal/tui/statusbar"
	"github.com/joacominatel/dbprobe/internal/tui/theme"
)

const maxColumnWidth = 40

// Model is the result viewer.
type Model struct {
	title  string
	table  table.Model
	status statusbar.Model
	rows   int
}

// NewModel creates a viewer over a result.
func NewModel(title, target string, result *database.ResultTable) Model {
	cells := result.Strings()
	widths := columnWidths(result.Columns, cells)

	cols := make([]table.Column, len(result.Columns))
	for i, name := range result.Columns {
		cols[i] = table.Column{Title: name, Width: widths[i]}
	}

	rows := make([]table.Row, len(cells))
	for i, r := range cells {
		rows[i] = table.Row(r)
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(theme.ColorBorder).
		BorderBottom(true).
		Foreground(theme.ColorPrimary).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(theme.ColorHighlight).
		Bold(true)
	t.SetStyles(s)

	status := statusbar.New(target)
	status.SetPosition(0, len(rows))

	return Model{
		title:  title,
		table:  t,
		status: status,
		rows:   len(rows),
	}
}

// Init returns the initial command (none).
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles window resizes, quitting and table navigation.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		height := msg.Height - 5
		if height < 1 {
			height = 1
		}
		m.table.SetHeight(height)
		m.status.SetWidth(msg.Width)
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	m.syncStatus()
	return m, cmd
}

// syncStatus reports the cursor row and flags the last row.
func (m *Model) syncStatus() {
	row := m.table.Cursor()
	m.status.SetPosition(row, m.rows)
	if m.rows > 1 && row == m.rows-1 {
		m.status.SetMessage("end of results")
	} else {
		m.status.SetMessage("")
	}
}

// View renders the viewer.
func (m Model) View() string {
	header := theme.StyleTitle.Padding(0, 1).Render(m.title) + "  " +
		theme.StyleMuted.Render(fmt.Sprintf("%d row(s)", m.rows))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		theme.StyleBorder.Render(m.table.View()),
		m.status.View(),
	)
}

// Browse runs the viewer full screen until the user quits.
func Browse(title, target string, result *database.ResultTable) error {
	p := tea.NewProgram(NewModel(title, target, result), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("result viewer: %w", err)
	}
	return nil
}

// columnWidths measures display width (not byte length), capped per column.
func columnWidths(header []string, rows [][]string) []int {
	widths := make([]int, len(header))
	for i, col := range header {
		widths[i] = lipgloss.Width(col)
	}

	for _, row := range rows {
		for i, cell := range row {
			if w := lipgloss.Width(cell); i < len(widths) && w > widths[i] {
				widths[i] = w
			}
		}
	}

	for i := range widths {
		if widths[i] < 1 {
			widths[i] = 1
		}
		if widths[i] > maxColumnWidth {
			widths[i] = maxColumnWidth
		}
	}
	return widths
}
