// Package sqldb implements storage.Store over database/sql. Backends that
// speak database/sql (SQLite, MySQL, SQL Server) supply a Dialect and reuse
// the transaction, delete and insert paths here.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"footballetl/internal/ddl"
	"footballetl/internal/logging"
	"footballetl/internal/storage"
)

// Dialect captures what differs between database/sql backends.
type Dialect struct {
	Kind   string
	Driver string
	Types  ddl.TypeMap
	Quote  ddl.Quoter
	// Placeholder renders the n-th (1-based) bind parameter.
	Placeholder func(n int) string
	// ExistsQuery returns a query yielding a single row count for table.
	ExistsQuery func(table string) (string, []any)
	// CreateSQL renders def; nil renders CREATE TABLE IF NOT EXISTS.
	CreateSQL func(def ddl.TableDef) (string, error)
	// Copy bulk-inserts rows inside tx; nil prepares one INSERT and runs it
	// per row.
	Copy func(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error)
	// Lock takes a transaction-scoped lock on resource; nil is a no-op.
	Lock func(ctx context.Context, tx *sql.Tx, resource string) error
	// MaxOpenConns caps the pool when > 0.
	MaxOpenConns int
}

// QuestionMark is the placeholder style of SQLite and MySQL.
func QuestionMark(int) string { return "?" }

// Store is a storage.Store backed by *sql.DB.
type Store struct {
	db  *sql.DB
	d   Dialect
	log logrus.FieldLogger
}

var _ storage.Store = (*Store)(nil)

// Open opens dsn with the dialect's driver and pings it.
func Open(ctx context.Context, d Dialect, dsn string, log logrus.FieldLogger) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%s: DSN must not be empty", d.Kind)
	}
	db, err := sql.Open(d.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open: %w", d.Kind, err)
	}
	if d.MaxOpenConns > 0 {
		db.SetMaxOpenConns(d.MaxOpenConns)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: ping: %w", d.Kind, err)
	}
	return New(db, d, log), nil
}

// New wraps an open *sql.DB.
func New(db *sql.DB, d Dialect, log logrus.FieldLogger) *Store {
	if d.Placeholder == nil {
		d.Placeholder = QuestionMark
	}
	if d.Quote == nil {
		d.Quote = ddl.DoubleQuote
	}
	return &Store{db: db, d: d, log: logging.Component(log, d.Kind)}
}

// DB exposes the underlying handle.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Kind() string       { return s.d.Kind }
func (s *Store) Types() ddl.TypeMap { return s.d.Types }

func (s *Store) TableExists(ctx context.Context, table string) (bool, error) {
	q, args := s.d.ExistsQuery(table)
	var n int
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return false, fmt.Errorf("%s: table exists %s: %w", s.d.Kind, table, err)
	}
	return n > 0, nil
}

func (s *Store) CreateTable(ctx context.Context, def ddl.TableDef) error {
	render := s.d.CreateSQL
	if render == nil {
		render = func(def ddl.TableDef) (string, error) {
			return ddl.BuildCreateTableSQL(def, s.d.Quote, true)
		}
	}
	stmt, err := render(def)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("%s: create table %s: %w", s.d.Kind, def.FQN, err)
	}
	s.log.WithField(logging.FieldTable, def.FQN).Info("table created")
	return nil
}

func (s *Store) BeginTx(ctx context.Context) (storage.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: begin tx: %w", s.d.Kind, err)
	}
	return &Tx{tx: tx, d: s.d}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

// Tx is a storage.Tx over *sql.Tx.
type Tx struct {
	tx   *sql.Tx
	d    Dialect
	done bool
}

func (t *Tx) LockPartition(ctx context.Context, table, season string) error {
	if t.d.Lock == nil {
		return nil
	}
	return t.d.Lock(ctx, t.tx, table+"/"+season)
}

func (t *Tx) DeleteSeason(ctx context.Context, table, season string) (int64, error) {
	q := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		ddl.QuoteFQN(table, t.d.Quote), t.d.Quote(storage.SeasonColumn), t.d.Placeholder(1))
	res, err := t.tx.ExecContext(ctx, q, season)
	if err != nil {
		return 0, fmt.Errorf("%s: delete season %s: %w", t.d.Kind, season, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: rows affected: %w", t.d.Kind, err)
	}
	return n, nil
}

func (t *Tx) CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("%s: CopyInto: columns must not be empty", t.d.Kind)
	}
	if len(rows) == 0 {
		return 0, nil
	}
	if t.d.Copy != nil {
		return t.d.Copy(ctx, t.tx, table, columns, rows)
	}
	return t.insertRows(ctx, table, columns, rows)
}

// insertRows runs a prepared INSERT per row; the surrounding transaction
// keeps this acceptable for season-sized batches.
func (t *Tx) insertRows(ctx context.Context, table string, columns []string, rows [][]any) (int64, error) {
	quoted := make([]string, len(columns))
	placeholders := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = t.d.Quote(c)
		placeholders[i] = t.d.Placeholder(i + 1)
	}
	stmtSQL := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		ddl.QuoteFQN(table, t.d.Quote), strings.Join(quoted, ", "), strings.Join(placeholders, ", "))

	stmt, err := t.tx.PrepareContext(ctx, stmtSQL)
	if err != nil {
		return 0, fmt.Errorf("%s: prepare insert: %w", t.d.Kind, err)
	}
	defer stmt.Close()

	var inserted int64
	for _, row := range rows {
		if len(row) != len(columns) {
			return inserted, fmt.Errorf("%s: row length %d != columns length %d", t.d.Kind, len(row), len(columns))
		}
		if _, err := stmt.ExecContext(ctx, row...); err != nil {
			return inserted, fmt.Errorf("%s: insert: %w", t.d.Kind, err)
		}
		inserted++
	}
	return inserted, nil
}

func (t *Tx) Commit(context.Context) error {
	t.done = true
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", t.d.Kind, err)
	}
	return nil
}

func (t *Tx) Rollback(context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("%s: rollback: %w", t.d.Kind, err)
	}
	return nil
}
