package formatter

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVFormatter formats tables as comma separated values. When more than one
// table is written, each is preceded by a "# name" line and separated by a
// blank line; csv.Reader with Comment set to '#' skips the name lines.
type CSVFormatter struct {
	writer io.Writer
}

// NewCSVFormatter creates a new CSV formatter
func NewCSVFormatter(w io.Writer) *CSVFormatter {
	return &CSVFormatter{writer: w}
}

// Format writes the tables as CSV
func (f *CSVFormatter) Format(tables []Named) error {
	for i, t := range tables {
		if len(tables) > 1 {
			if i > 0 {
				_, _ = fmt.Fprintln(f.writer)
			}
			_, _ = fmt.Fprintf(f.writer, "# %s\n", t.Name)
		}
		if err := f.FormatTable(t); err != nil {
			return err
		}
	}
	return nil
}

// FormatTable writes the header and rows of a single table
func (f *CSVFormatter) FormatTable(t Named) error {
	w := csv.NewWriter(f.writer)

	if len(t.Table.Columns) > 0 {
		if err := w.Write(t.Table.Columns); err != nil {
			return fmt.Errorf("failed to write header of %s: %w", t.Name, err)
		}
	}
	for _, row := range t.Table.Rows {
		record := make([]string, len(row))
		for i, c := range row {
			record[i] = c.Value.String()
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row of %s: %w", t.Name, err)
		}
	}

	w.Flush()
	return w.Error()
}
