// Package postgres implements a Postgres storage.Store using pgx v5. Rows are
// loaded with COPY inside the load transaction, and partitions are guarded by
// transaction-scoped advisory locks.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"footballetl/internal/ddl"
	"footballetl/internal/frame"
	"footballetl/internal/logging"
	"footballetl/internal/storage"
)

// Types maps frame kinds onto Postgres column types.
var Types = ddl.TypeMap{
	frame.KindString: "TEXT",
	frame.KindInt:    "BIGINT",
	frame.KindFloat:  "DOUBLE PRECISION",
	frame.KindDate:   "DATE",
}

// pool is the subset of *pgxpool.Pool the store uses.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store is a Postgres-backed implementation of storage.Store.
type Store struct {
	pool pool
	log  logrus.FieldLogger
}

var _ storage.Store = (*Store)(nil)

// NewStore connects a pgx pool to dsn and pings it.
func NewStore(ctx context.Context, dsn string, log logrus.FieldLogger) (*Store, error) {
	p, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("postgres: ping: %w", describe(err))
	}
	return &Store{pool: p, log: logging.Component(log, "postgres")}, nil
}

func (s *Store) Kind() string       { return "postgres" }
func (s *Store) Types() ddl.TypeMap { return Types }

// TableExists resolves table with to_regclass, so unqualified names follow
// the search_path.
func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, "SELECT to_regclass($1) IS NOT NULL", ddl.QuoteFQN(table, ddl.DoubleQuote)).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: table exists %s: %w", table, describe(err))
	}
	return exists, nil
}

func (s *Store) CreateTable(ctx context.Context, def ddl.TableDef) error {
	stmt, err := ddl.BuildCreateTableSQL(def, ddl.DoubleQuote, true)
	if err != nil {
		return fmt.Errorf("postgres ddl: %w", err)
	}
	if _, err := s.pool.Exec(ctx, stmt); err != nil {
		return fmt.Errorf("postgres: create table %s: %w", def.FQN, describe(err))
	}
	s.log.WithField(logging.FieldTable, def.FQN).Info("table created")
	return nil
}

func (s *Store) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: begin tx: %w", describe(err))
	}
	return &Tx{tx: tx}, nil
}

func (s *Store) Close() { s.pool.Close() }

// Tx wraps pgx.Tx.
type Tx struct {
	tx pgx.Tx
}

// LockPartition takes pg_advisory_xact_lock on a key derived from table and
// season; the lock is released at commit or rollback.
func (t *Tx) LockPartition(ctx context.Context, table, season string) error {
	if _, err := t.tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", storage.PartitionKey(table, season)); err != nil {
		return fmt.Errorf("postgres: advisory lock %s/%s: %w", table, season, describe(err))
	}
	return nil
}

func (t *Tx) DeleteSeason(ctx context.Context, table, season string) (int64, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", ddl.QuoteFQN(table, ddl.DoubleQuote), ddl.DoubleQuote(storage.SeasonColumn))
	tag, err := t.tx.Exec(ctx, q, season)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete season %s: %w", season, describe(err))
	}
	return tag.RowsAffected(), nil
}

func (t *Tx) CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n, err := t.tx.CopyFrom(ctx, splitFQN(table), columns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("postgres: copy into %s: %w", table, describe(err))
	}
	return n, nil
}

func (t *Tx) Commit(ctx context.Context) error {
	if err := t.tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit: %w", describe(err))
	}
	return nil
}

// Rollback is safe after Commit; pgx reports ErrTxClosed, which is ignored.
func (t *Tx) Rollback(ctx context.Context) error {
	if err := t.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("postgres: rollback: %w", err)
	}
	return nil
}

// splitFQN converts "schema.table" into a pgx.Identifier {"schema","table"}.
// If no dot is present, returns {"table"}.
func splitFQN(fqn string) pgx.Identifier {
	parts := strings.Split(fqn, ".")
	id := make(pgx.Identifier, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			id = append(id, p)
		}
	}
	return id
}

// pgError adds the server's detail and SQLSTATE to a *pgconn.PgError.
type pgError struct {
	pg *pgconn.PgError
}

func (e *pgError) Error() string {
	msg := e.pg.Message
	if e.pg.Detail != "" {
		msg += ": " + e.pg.Detail
	}
	return fmt.Sprintf("%s (SQLSTATE %s)", msg, e.pg.SQLState())
}

func (e *pgError) Unwrap() error { return e.pg }

// describe surfaces server detail for Postgres errors and passes others
// through unchanged.
func describe(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return &pgError{pg: pgErr}
	}
	return err
}
