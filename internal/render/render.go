// Package render prints result tables and column descriptors to a writer.
package render

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/olekukonko/tablewriter"

	"github.com/joacominatel/dbprobe/internal/database"
	"github.com/joacominatel/dbprobe/internal/tui/theme"
)

// Format selects how a table is drawn.
type Format string

const (
	// FormatPlain prints aligned columns with a header and no borders or row numbers.
	FormatPlain Format = "plain"
	// FormatBox draws a bordered, styled table.
	FormatBox Format = "box"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatPlain, "":
		return FormatPlain, nil
	case FormatBox:
		return FormatBox, nil
	}
	return "", fmt.Errorf("unknown output format %q (want plain or box)", s)
}

// Table writes t in the given format.
func Table(w io.Writer, t *database.ResultTable, f Format) error {
	if t == nil {
		return fmt.Errorf("render: nil result")
	}
	return grid(w, t.Columns, t.Strings(), f)
}

// Columns writes a descriptor listing for a table.
func Columns(w io.Writer, cols []database.ColumnDescriptor, f Format) error {
	rows := make([][]string, len(cols))
	for i, c := range cols {
		nullable := "NO"
		if c.Nullable {
			nullable = "YES"
		}
		maxLen := ""
		if c.MaxLength != nil {
			maxLen = strconv.FormatInt(*c.MaxLength, 10)
		}
		rows[i] = []string{c.Name, c.DataType, nullable, maxLen}
	}
	return grid(w, []string{"column", "type", "nullable", "max_length"}, rows, f)
}

func grid(w io.Writer, header []string, rows [][]string, f Format) error {
	switch f {
	case FormatBox:
		return box(w, header, rows)
	default:
		return plain(w, header, rows)
	}
}

func plain(w io.Writer, header []string, rows [][]string) error {
	tw := tablewriter.NewWriter(w)
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetBorder(false)
	tw.SetHeaderLine(false)
	tw.SetCenterSeparator("")
	tw.SetColumnSeparator("")
	tw.SetRowSeparator("")
	tw.SetTablePadding("  ")
	tw.SetNoWhiteSpace(true)

	tw.SetHeader(header)
	tw.AppendBulk(rows)
	tw.Render()
	return nil
}

func box(w io.Writer, header []string, rows [][]string) error {
	headerStyle := lipgloss.NewStyle().Foreground(theme.ColorPrimary).Bold(true).Padding(0, 1)
	cellStyle := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(header...).
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	_, err := fmt.Fprintln(w, t.Render())
	return err
}
