package store

import (
	"context"
	"strings"

	_ "github.com/go-sql-driver/mysql"
)

var mysqlDialect = dialect{
	driver: "mysql",
	quote: func(ident string) string {
		return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
	},
	types: map[ColumnType]string{
		TypeInteger:   "BIGINT",
		TypeNumber:    "DOUBLE",
		TypeBoolean:   "BOOLEAN",
		TypeTimestamp: "DATETIME(6)",
		TypeText:      "TEXT",
	},
	columnsQuery: `
		SELECT column_name
		FROM information_schema.columns
		WHERE table_schema = DATABASE() AND table_name = ?
		ORDER BY ordinal_position
	`,
}

// NewMySQLWriter connects to MySQL. dsn uses the go-sql-driver format,
// e.g. user:pass@tcp(localhost:3306)/trades.
func NewMySQLWriter(ctx context.Context, dsn string) (*SQLWriter, error) {
	return newSQLWriter(ctx, mysqlDialect, dsn)
}
