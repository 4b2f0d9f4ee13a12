// Package sqlite implements a SQLite-backed storage.Store using database/sql.
// SQLite does not have a dedicated bulk-load API like Postgres COPY; prepared
// INSERTs inside the load transaction keep performance acceptable for
// season-sized partitions.
package sqlite

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"footballetl/internal/ddl"
	"footballetl/internal/frame"
	"footballetl/internal/storage/sqldb"
)

// Dialect describes SQLite to the generic database/sql store. A single
// connection serializes writers and keeps in-memory databases alive.
var Dialect = sqldb.Dialect{
	Kind:        "sqlite",
	Driver:      "sqlite",
	Quote:       ddl.DoubleQuote,
	Placeholder: sqldb.QuestionMark,
	Types: ddl.TypeMap{
		frame.KindString: "TEXT",
		frame.KindInt:    "INTEGER",
		frame.KindFloat:  "REAL",
		frame.KindDate:   "DATE",
	},
	ExistsQuery: func(table string) (string, []any) {
		_, name := ddl.SplitFQN(table, "main")
		return "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", []any{name}
	},
	MaxOpenConns: 1,
}

// NewStore opens the SQLite database at dsn, e.g. "file:etl.db" or
// "file::memory:".
func NewStore(ctx context.Context, dsn string, log logrus.FieldLogger) (*sqldb.Store, error) {
	s, err := sqldb.Open(ctx, Dialect, dsn, log)
	if err != nil {
		return nil, err
	}
	if _, err := s.DB().ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		s.Close()
		return nil, fmt.Errorf("sqlite: pragma: %w", err)
	}
	return s, nil
}
