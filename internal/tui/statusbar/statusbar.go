package statusbar

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/joacominatel/dbprobe/internal/tui/theme"
)

const hints = "↑/↓: Scroll │ PgUp/PgDn: Page │ q: Quit"

// Model is the status bar shown under the result viewer.
type Model struct {
	width   int
	target  string
	row     int
	rows    int
	message string
}

// New creates a status bar for a connection target.
func New(target string) Model {
	return Model{target: target}
}

// SetWidth updates the component width.
func (m *Model) SetWidth(w int) {
	m.width = w
}

// SetPosition updates the cursor row (0-based) and the total row count.
func (m *Model) SetPosition(row, rows int) {
	m.row = row
	m.rows = rows
}

// SetMessage sets a temporary status message that replaces the key hints.
func (m *Model) SetMessage(msg string) {
	m.message = msg
}

// View renders the status bar.
func (m Model) View() string {
	style := theme.StyleStatusBar.Width(m.width)

	left := lipgloss.NewStyle().Foreground(theme.ColorSuccess).Render("●") + " " + m.target
	if m.rows > 0 {
		left += theme.StyleMuted.Render(fmt.Sprintf("  row %d/%d", m.row+1, m.rows))
	} else {
		left += theme.StyleMuted.Render("  no rows")
	}

	right := hints
	if m.message != "" {
		right = m.message
	}

	padding := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 4
	if padding < 1 {
		padding = 1
	}

	return style.Render(left + strings.Repeat(" ", padding) + right)
}
