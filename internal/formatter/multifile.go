package formatter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
)

// MultiFileFormatter writes tables to multiple files in a directory
type MultiFileFormatter struct {
	OutputDir    string
	OutputFormat string // "text", "markdown" or "csv"
}

// NewMultiFileFormatter creates a new multi-file formatter
func NewMultiFileFormatter(outputDir, format string) *MultiFileFormatter {
	return &MultiFileFormatter{
		OutputDir:    outputDir,
		OutputFormat: format,
	}
}

// Format writes an overview file plus one file per table
func (f *MultiFileFormatter) Format(tables []Named) error {
	if _, err := f.tableFormatter(io.Discard); err != nil {
		return err
	}

	// Create output directory if it doesn't exist
	if err := os.MkdirAll(f.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	if err := f.writeOverview(tables); err != nil {
		return fmt.Errorf("failed to write overview: %w", err)
	}

	for _, t := range tables {
		if err := f.writeTableFile(t); err != nil {
			return fmt.Errorf("failed to write table file for %s: %w", t.Name, err)
		}
	}

	return nil
}

// Filename returns the file a table is written to
func (f *MultiFileFormatter) Filename(name string) string {
	return filepath.Join(f.OutputDir, safeName(name)+f.getFileExtension())
}

func (f *MultiFileFormatter) writeOverview(tables []Named) error {
	// Overview is never CSV
	ext := f.getFileExtension()
	if f.OutputFormat == FormatCSV {
		ext = ".txt"
	}

	file, err := os.Create(filepath.Join(f.OutputDir, "_overview"+ext))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	sorted := make([]Named, len(tables))
	copy(sorted, tables)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Name < sorted[j].Name
	})

	if f.OutputFormat == FormatMarkdown {
		_, _ = fmt.Fprintf(file, "# Overview\n\n")
		_, _ = fmt.Fprintf(file, "Each table has a corresponding file: `<table_name>%s`\n\n", f.getFileExtension())
		_, _ = fmt.Fprintf(file, "## Tables\n\n")
		for _, t := range sorted {
			_, _ = fmt.Fprintf(file, "- **%s** (%s, %s)\n", t.Name, rowCount(t.Table.Len()), columnCount(len(t.Table.Columns)))
		}
		return nil
	}

	_, _ = fmt.Fprintf(file, "OVERVIEW\n")
	_, _ = fmt.Fprintf(file, "Each table has a file: <table_name>%s\n\n", f.getFileExtension())
	for _, t := range sorted {
		_, _ = fmt.Fprintf(file, "%s (%s, %s)\n", t.Name, rowCount(t.Table.Len()), columnCount(len(t.Table.Columns)))
	}
	return nil
}

func (f *MultiFileFormatter) writeTableFile(t Named) error {
	file, err := os.Create(f.Filename(t.Name))
	if err != nil {
		return err
	}
	defer func() { _ = file.Close() }()

	tf, err := f.tableFormatter(file)
	if err != nil {
		return err
	}
	if err := tf.FormatTable(t); err != nil {
		return err
	}
	return file.Close()
}

type tableFormatter interface {
	FormatTable(t Named) error
}

func (f *MultiFileFormatter) tableFormatter(w io.Writer) (tableFormatter, error) {
	switch f.OutputFormat {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	case FormatCSV:
		return NewCSVFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (must be text, markdown or csv)", f.OutputFormat)
	}
}

func (f *MultiFileFormatter) getFileExtension() string {
	switch f.OutputFormat {
	case FormatMarkdown:
		return ".md"
	case FormatCSV:
		return ".csv"
	default:
		return ".txt"
	}
}

func columnCount(n int) string {
	if n == 1 {
		return "1 column"
	}
	return humanize.Comma(int64(n)) + " columns"
}

var unsafeChars = strings.NewReplacer("/", "_", `\`, "_", " ", "_", ":", "_")

// safeName keeps table names usable as file names
func safeName(name string) string {
	name = unsafeChars.Replace(strings.TrimSpace(name))
	if name == "" || name == "." || name == ".." {
		return "table"
	}
	return name
}
