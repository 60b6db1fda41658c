// Package formatter renders tables as text, markdown or CSV.
package formatter

import (
	"fmt"
	"io"
	"strings"

	"github.com/tordrt/snaketrade/internal/tabular"
)

const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatCSV      = "csv"
)

// Named pairs a table with the name it is rendered under
type Named struct {
	Name  string
	Table tabular.Table
}

// Formatter renders a set of named tables
type Formatter interface {
	Format(tables []Named) error
}

// New returns the formatter for format writing to w
func New(format string, w io.Writer) (Formatter, error) {
	switch format {
	case FormatText, "":
		return NewTextFormatter(w), nil
	case FormatMarkdown:
		return NewMarkdownFormatter(w), nil
	case FormatCSV:
		return NewCSVFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (must be text, markdown or csv)", format)
	}
}

var lineBreaks = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ")

// cellText renders a value on a single line
func cellText(v tabular.Value) string {
	return lineBreaks.Replace(v.String())
}
