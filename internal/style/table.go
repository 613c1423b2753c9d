package style

import (
	"strings"
)

// Column defines a table column with name and width.
type Column struct {
	Name  string
	Width int
	Align Alignment
}

// Alignment specifies column text alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// Table renders rows of plain text under a bold header.
type Table struct {
	columns []Column
	rows    [][]string
	indent  string
}

// NewTable creates a new table with the given columns.
func NewTable(columns ...Column) *Table {
	return &Table{
		columns: columns,
		indent:  "  ",
	}
}

// AddRow adds a row of values to the table.
func (t *Table) AddRow(values ...string) *Table {
	for len(values) < len(t.columns) {
		values = append(values, "")
	}
	t.rows = append(t.rows, values)
	return t
}

// Render returns the formatted table string.
func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}

	var sb strings.Builder

	sb.WriteString(t.indent)
	for i, col := range t.columns {
		sb.WriteString(pad(Bold.Render(col.Name), col.Name, col.Width, col.Align))
		if i < len(t.columns)-1 {
			sb.WriteString(" ")
		}
	}
	sb.WriteString("\n")

	sb.WriteString(t.indent)
	totalWidth := len(t.columns) - 1
	for _, col := range t.columns {
		totalWidth += col.Width
	}
	sb.WriteString(Dim.Render(strings.Repeat("─", totalWidth)))
	sb.WriteString("\n")

	for _, row := range t.rows {
		sb.WriteString(t.indent)
		for i, col := range t.columns {
			val := row[i]
			if len(val) > col.Width && col.Width > 3 {
				val = val[:col.Width-3] + "..."
			}
			sb.WriteString(pad(val, val, col.Width, col.Align))
			if i < len(t.columns)-1 {
				sb.WriteString(" ")
			}
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

// pad pads styled text to width using the plain text's length, so ANSI
// escape codes in the styled form do not skew the column.
func pad(styledText, plainText string, width int, align Alignment) string {
	if len(plainText) >= width {
		return styledText
	}
	padding := strings.Repeat(" ", width-len(plainText))
	if align == AlignRight {
		return padding + styledText
	}
	return styledText + padding
}
