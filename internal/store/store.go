// Package store writes tables into PostgreSQL, MySQL or SQLite databases.
//
// Each table is written to a database table of the same name. Column types are
// inferred from the cell values. In replace mode the target table is dropped
// and recreated; in append mode it is created when missing and any columns it
// lacks are added before the rows are inserted.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/tordrt/snaketrade/internal/tabular"
)

// Mode selects how existing target tables are treated
type Mode string

const (
	ModeReplace Mode = "replace"
	ModeAppend  Mode = "append"
)

// ParseMode validates a mode name. The empty string selects ModeReplace.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeReplace:
		return ModeReplace, nil
	case ModeAppend:
		return ModeAppend, nil
	default:
		return "", fmt.Errorf("unknown mode %q (must be replace or append)", s)
	}
}

// Writer writes tables into a database
type Writer interface {
	// Write stores t under name and returns the number of rows inserted
	Write(ctx context.Context, name string, t tabular.Table, mode Mode) (int, error)
	Close() error
}

// Open connects to the database named by databaseURL. Supported schemes are
// postgres://, postgresql://, mysql:// and sqlite://.
func Open(ctx context.Context, databaseURL string) (Writer, error) {
	dbType, connStr, err := parseDatabaseURL(databaseURL)
	if err != nil {
		return nil, err
	}

	switch dbType {
	case "postgres":
		return NewPostgresWriter(ctx, connStr)
	case "mysql":
		return NewMySQLWriter(ctx, connStr)
	case "sqlite":
		return NewSQLiteWriter(ctx, connStr)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// parseDatabaseURL detects database type and returns connection string
func parseDatabaseURL(url string) (dbType, connectionStr string, err error) {
	if url == "" {
		return "", "", fmt.Errorf("database URL is required")
	}

	if strings.HasPrefix(url, "postgres://") || strings.HasPrefix(url, "postgresql://") {
		return "postgres", url, nil
	}

	if strings.HasPrefix(url, "mysql://") {
		// Strip mysql:// prefix for the Go MySQL driver
		return "mysql", strings.TrimPrefix(url, "mysql://"), nil
	}

	if strings.HasPrefix(url, "sqlite://") {
		// Strip sqlite:// prefix to get file path
		filePath := strings.TrimPrefix(url, "sqlite://")
		if filePath == "" {
			return "", "", fmt.Errorf("sqlite URL has no file path")
		}
		return "sqlite", filePath, nil
	}

	return "", "", fmt.Errorf("invalid database URL scheme (must start with postgres://, mysql://, or sqlite://)")
}

// validateName rejects table names no dialect can store
func validateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("table name is required")
	}
	if strings.ContainsRune(name, 0) {
		return fmt.Errorf("table name %q contains a NUL byte", name)
	}
	return nil
}

// missingColumns returns the columns whose name is not in existing
func missingColumns(columns []Column, existing []string) []Column {
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[strings.ToLower(name)] = true
	}

	var missing []Column
	for _, c := range columns {
		if !have[strings.ToLower(c.Name)] {
			missing = append(missing, c)
		}
	}
	return missing
}
