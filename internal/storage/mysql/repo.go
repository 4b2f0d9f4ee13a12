// Package mysql implements a MySQL-backed storage.Store on database/sql with
// the go-sql-driver/mysql driver.
package mysql

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"

	"footballetl/internal/ddl"
	"footballetl/internal/frame"
	"footballetl/internal/storage/sqldb"
)

// Dialect describes MySQL to the generic database/sql store. GET_LOCK is
// session-scoped rather than transaction-scoped, so partitions are not
// locked; the load transaction still makes the swap atomic.
var Dialect = sqldb.Dialect{
	Kind:        "mysql",
	Driver:      "mysql",
	Quote:       ddl.Backtick,
	Placeholder: sqldb.QuestionMark,
	Types: ddl.TypeMap{
		frame.KindString: "TEXT",
		frame.KindInt:    "BIGINT",
		frame.KindFloat:  "DOUBLE",
		frame.KindDate:   "DATE",
	},
	ExistsQuery: func(table string) (string, []any) {
		schema, name := ddl.SplitFQN(table, "")
		if schema == "" {
			return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = DATABASE() AND table_name = ?", []any{name}
		}
		return "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = ? AND table_name = ?", []any{schema, name}
	},
}

// NormalizeDSN parses dsn and turns on time parsing so DATE columns scan
// into time.Time.
func NormalizeDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// NewStore validates dsn and opens the pool.
func NewStore(ctx context.Context, dsn string, log logrus.FieldLogger) (*sqldb.Store, error) {
	norm, err := NormalizeDSN(dsn)
	if err != nil {
		return nil, err
	}
	return sqldb.Open(ctx, Dialect, norm, log)
}
