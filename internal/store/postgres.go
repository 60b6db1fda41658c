package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/samber/lo"

	"github.com/tordrt/snaketrade/internal/tabular"
)

var postgresTypes = map[ColumnType]string{
	TypeInteger:   "BIGINT",
	TypeNumber:    "DOUBLE PRECISION",
	TypeBoolean:   "BOOLEAN",
	TypeTimestamp: "TIMESTAMPTZ",
	TypeText:      "TEXT",
}

// PostgresWriter writes tables to PostgreSQL
type PostgresWriter struct {
	conn *pgx.Conn
}

// NewPostgresWriter connects to PostgreSQL
func NewPostgresWriter(ctx context.Context, connString string) (*PostgresWriter, error) {
	conn, err := pgx.Connect(ctx, connString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test the connection
	if err := conn.Ping(ctx); err != nil {
		_ = conn.Close(ctx)
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresWriter{conn: conn}, nil
}

// Close closes the database connection
func (w *PostgresWriter) Close() error {
	return w.conn.Close(context.Background())
}

// GetConnection returns the underlying connection
func (w *PostgresWriter) GetConnection() *pgx.Conn {
	return w.conn
}

// Write stores t in the table name inside one transaction, using COPY for
// the rows
func (w *PostgresWriter) Write(ctx context.Context, name string, t tabular.Table, mode Mode) (int, error) {
	if mode != ModeReplace && mode != ModeAppend {
		return 0, fmt.Errorf("unknown mode %q", mode)
	}
	if err := validateName(name); err != nil {
		return 0, err
	}
	columns, err := InferColumns(name, t)
	if err != nil {
		return 0, err
	}
	if len(columns) == 0 {
		return 0, nil
	}
	rows, err := rowValues(t, columns)
	if err != nil {
		return 0, fmt.Errorf("failed to convert %s: %w", name, err)
	}

	tx, err := w.conn.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	table := pgx.Identifier{name}.Sanitize()
	if mode == ModeReplace {
		if _, err := tx.Exec(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return 0, fmt.Errorf("failed to drop %s: %w", name, err)
		}
		if _, err := tx.Exec(ctx, createPostgresTable(table, columns)); err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", name, err)
		}
	} else if err := w.ensureColumns(ctx, tx, name, table, columns); err != nil {
		return 0, err
	}

	names := lo.Map(columns, func(c Column, _ int) string { return c.Name })
	n, err := tx.CopyFrom(ctx, pgx.Identifier{name}, names, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("failed to copy rows into %s: %w", name, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return int(n), nil
}

// ensureColumns creates the table when missing and adds absent columns
func (w *PostgresWriter) ensureColumns(ctx context.Context, tx pgx.Tx, name, table string, columns []Column) error {
	existing, err := postgresColumns(ctx, tx, name)
	if err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", name, err)
	}

	if len(existing) == 0 {
		if _, err := tx.Exec(ctx, createPostgresTable(table, columns)); err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		return nil
	}

	for _, c := range missingColumns(columns, existing) {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s",
			table, pgx.Identifier{c.Name}.Sanitize(), postgresTypes[c.Type])
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add column %s to %s: %w", c.Name, name, err)
		}
	}
	return nil
}

// postgresColumns lists the columns of a table in the current schema
func postgresColumns(ctx context.Context, tx pgx.Tx, name string) ([]string, error) {
	query := `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = $1
		ORDER BY ordinal_position
	`

	rows, err := tx.Query(ctx, query, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var column string
		if err := rows.Scan(&column); err != nil {
			return nil, err
		}
		columns = append(columns, column)
	}

	return columns, rows.Err()
}

func createPostgresTable(table string, columns []Column) string {
	defs := lo.Map(columns, func(c Column, _ int) string {
		return pgx.Identifier{c.Name}.Sanitize() + " " + postgresTypes[c.Type]
	})
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}
