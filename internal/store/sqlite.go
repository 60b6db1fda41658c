package store

import (
	"context"
	"strings"

	_ "github.com/mattn/go-sqlite3"
)

var sqliteDialect = dialect{
	driver: "sqlite3",
	quote: func(ident string) string {
		return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
	},
	types: map[ColumnType]string{
		TypeInteger:   "INTEGER",
		TypeNumber:    "REAL",
		TypeBoolean:   "BOOLEAN",
		TypeTimestamp: "TIMESTAMP",
		TypeText:      "TEXT",
	},
	columnsQuery: `SELECT name FROM pragma_table_info(?) ORDER BY cid`,
}

// NewSQLiteWriter opens the SQLite database file at path, creating it when
// missing
func NewSQLiteWriter(ctx context.Context, path string) (*SQLWriter, error) {
	return newSQLWriter(ctx, sqliteDialect, path)
}
