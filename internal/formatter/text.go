package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rivo/uniseg"
)

const columnGap = "  "

// TextFormatter formats tables as aligned plain text
type TextFormatter struct {
	writer io.Writer
}

// NewTextFormatter creates a new text formatter
func NewTextFormatter(w io.Writer) *TextFormatter {
	return &TextFormatter{writer: w}
}

// Format writes every table, separated by a blank line
func (f *TextFormatter) Format(tables []Named) error {
	for i, t := range tables {
		if i > 0 {
			_, _ = fmt.Fprintln(f.writer) // Blank line between tables
		}

		if err := f.FormatTable(t); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable writes a single table (exported for use by multifile formatter)
func (f *TextFormatter) FormatTable(t Named) error {
	_, _ = fmt.Fprintf(f.writer, "TABLE %s (%s)\n", t.Name, rowCount(t.Table.Len()))

	if len(t.Table.Columns) == 0 {
		_, _ = fmt.Fprintln(f.writer, "  (no columns)")
		return nil
	}

	cells := make([][]string, 0, t.Table.Len())
	widths := make([]int, len(t.Table.Columns))
	for i, name := range t.Table.Columns {
		widths[i] = uniseg.StringWidth(name)
	}
	for _, row := range t.Table.Rows {
		line := make([]string, len(row))
		for i, c := range row {
			line[i] = cellText(c.Value)
			widths[i] = max(widths[i], uniseg.StringWidth(line[i]))
		}
		cells = append(cells, line)
	}

	f.writeLine(t.Table.Columns, widths)
	rule := make([]string, len(widths))
	for i, w := range widths {
		rule[i] = strings.Repeat("-", w)
	}
	f.writeLine(rule, widths)
	for _, line := range cells {
		f.writeLine(line, widths)
	}
	return nil
}

func (f *TextFormatter) writeLine(fields []string, widths []int) {
	var b strings.Builder
	b.WriteString(columnGap)
	for i, field := range fields {
		if i > 0 {
			b.WriteString(columnGap)
		}
		b.WriteString(field)
		// no trailing padding on the last column
		if i < len(fields)-1 {
			b.WriteString(strings.Repeat(" ", widths[i]-uniseg.StringWidth(field)))
		}
	}
	_, _ = fmt.Fprintln(f.writer, strings.TrimRight(b.String(), " "))
}

func rowCount(n int) string {
	if n == 1 {
		return "1 row"
	}
	return humanize.Comma(int64(n)) + " rows"
}
