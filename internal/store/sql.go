package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/samber/lo"

	"github.com/tordrt/snaketrade/internal/tabular"
)

// dialect holds what differs between the database/sql backends
type dialect struct {
	driver string
	quote  func(ident string) string
	types  map[ColumnType]string

	// columnsQuery lists the column names of the table bound to its only
	// parameter, or nothing when the table does not exist
	columnsQuery string
}

// SQLWriter writes tables through database/sql, for MySQL and SQLite
type SQLWriter struct {
	db      *sqlx.DB
	dialect dialect
}

func newSQLWriter(ctx context.Context, d dialect, dsn string) (*SQLWriter, error) {
	db, err := sqlx.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLWriter{db: db, dialect: d}, nil
}

// Close closes the database connection
func (w *SQLWriter) Close() error {
	return w.db.Close()
}

// GetDB returns the underlying database connection
func (w *SQLWriter) GetDB() *sqlx.DB {
	return w.db
}

// Write stores t in the table name. MySQL commits DDL implicitly, so only
// the inserted rows are covered by the transaction there.
func (w *SQLWriter) Write(ctx context.Context, name string, t tabular.Table, mode Mode) (int, error) {
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

	tx, err := w.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	table := w.dialect.quote(name)
	if mode == ModeReplace {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			return 0, fmt.Errorf("failed to drop %s: %w", name, err)
		}
		if _, err := tx.ExecContext(ctx, w.createTable(table, columns)); err != nil {
			return 0, fmt.Errorf("failed to create %s: %w", name, err)
		}
	} else if err := w.ensureColumns(ctx, tx, name, table, columns); err != nil {
		return 0, err
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table,
		strings.Join(lo.Map(columns, func(c Column, _ int) string { return w.dialect.quote(c.Name) }), ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", "))

	stmt, err := tx.PreparexContext(ctx, tx.Rebind(insert))
	if err != nil {
		return 0, fmt.Errorf("failed to prepare insert into %s: %w", name, err)
	}
	defer func() { _ = stmt.Close() }()

	for i, values := range rows {
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return 0, fmt.Errorf("failed to insert row %d into %s: %w", i, name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return len(rows), nil
}

// Columns returns the column names of the named table, or nil when it does
// not exist
func (w *SQLWriter) Columns(ctx context.Context, name string) ([]string, error) {
	var columns []string
	if err := w.db.SelectContext(ctx, &columns, w.db.Rebind(w.dialect.columnsQuery), name); err != nil {
		return nil, err
	}
	return columns, nil
}

// ensureColumns creates the table when missing and adds absent columns
func (w *SQLWriter) ensureColumns(ctx context.Context, tx *sqlx.Tx, name, table string, columns []Column) error {
	var existing []string
	if err := tx.SelectContext(ctx, &existing, tx.Rebind(w.dialect.columnsQuery), name); err != nil {
		return fmt.Errorf("failed to read columns of %s: %w", name, err)
	}

	if len(existing) == 0 {
		if _, err := tx.ExecContext(ctx, w.createTable(table, columns)); err != nil {
			return fmt.Errorf("failed to create %s: %w", name, err)
		}
		return nil
	}

	for _, c := range missingColumns(columns, existing) {
		stmt := fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, w.dialect.quote(c.Name), w.dialect.types[c.Type])
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to add column %s to %s: %w", c.Name, name, err)
		}
	}
	return nil
}

func (w *SQLWriter) createTable(table string, columns []Column) string {
	defs := lo.Map(columns, func(c Column, _ int) string {
		return w.dialect.quote(c.Name) + " " + w.dialect.types[c.Type]
	})
	return fmt.Sprintf("CREATE TABLE %s (%s)", table, strings.Join(defs, ", "))
}
