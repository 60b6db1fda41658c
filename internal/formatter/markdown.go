package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/samber/lo"

	"github.com/tordrt/snaketrade/internal/tabular"
)

var markdownEscaper = strings.NewReplacer("|", `\|`)

// MarkdownFormatter formats tables as markdown pipe tables
type MarkdownFormatter struct {
	writer io.Writer
}

// NewMarkdownFormatter creates a new markdown formatter
func NewMarkdownFormatter(w io.Writer) *MarkdownFormatter {
	return &MarkdownFormatter{writer: w}
}

// Format writes the tables in markdown format
func (f *MarkdownFormatter) Format(tables []Named) error {
	_, _ = fmt.Fprintln(f.writer, "# Account Data")
	_, _ = fmt.Fprintln(f.writer)

	for _, t := range tables {
		if err := f.FormatTable(t); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable formats a single table (exported for use by multifile formatter)
func (f *MarkdownFormatter) FormatTable(t Named) error {
	_, _ = fmt.Fprintf(f.writer, "## %s\n\n", t.Name)

	if len(t.Table.Columns) == 0 {
		_, _ = fmt.Fprintln(f.writer, "_No data._")
		_, _ = fmt.Fprintln(f.writer)
		return nil
	}

	_, _ = fmt.Fprintf(f.writer, "_%s_\n\n", rowCount(t.Table.Len()))

	f.writeRow(t.Table.Columns)
	f.writeRow(lo.Map(t.Table.Columns, func(string, int) string { return "---" }))
	for _, row := range t.Table.Rows {
		f.writeRow(lo.Map(row, func(c tabular.Cell, _ int) string { return cellText(c.Value) }))
	}
	_, _ = fmt.Fprintln(f.writer)

	return nil
}

func (f *MarkdownFormatter) writeRow(fields []string) {
	escaped := lo.Map(fields, func(s string, _ int) string { return markdownEscaper.Replace(s) })
	_, _ = fmt.Fprintf(f.writer, "| %s |\n", strings.Join(escaped, " | "))
}
