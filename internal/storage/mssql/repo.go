// Package mssql implements a Microsoft SQL Server storage.Store. Rows are
// loaded with the go-mssqldb bulk copy API inside the load transaction.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	mssql "github.com/microsoft/go-mssqldb"
	"github.com/microsoft/go-mssqldb/msdsn"
	"github.com/sirupsen/logrus"

	"footballetl/internal/ddl"
	"footballetl/internal/frame"
	"footballetl/internal/storage/sqldb"
)

// defaultSchema applies to unqualified table names.
const defaultSchema = "dbo"

// Dialect describes SQL Server to the generic database/sql store.
var Dialect = sqldb.Dialect{
	Kind:        "mssql",
	Driver:      "sqlserver",
	Quote:       ddl.Bracket,
	Placeholder: func(n int) string { return fmt.Sprintf("@p%d", n) },
	Types: ddl.TypeMap{
		frame.KindString: "NVARCHAR(MAX)",
		frame.KindInt:    "BIGINT",
		frame.KindFloat:  "FLOAT",
		frame.KindDate:   "DATE",
	},
	ExistsQuery: func(table string) (string, []any) {
		schema, name := ddl.SplitFQN(table, defaultSchema)
		return "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = @p1 AND TABLE_NAME = @p2", []any{schema, name}
	},
	CreateSQL: BuildCreateTableSQL,
	Copy:      bulkCopy,
	Lock:      appLock,
}

// BuildCreateTableSQL wraps CREATE TABLE in an OBJECT_ID guard, since T-SQL
// has no CREATE TABLE IF NOT EXISTS:
//
//	IF OBJECT_ID(N'[dbo].[t]', N'U') IS NULL
//	BEGIN
//	  CREATE TABLE [dbo].[t] (...)
//	END
func BuildCreateTableSQL(def ddl.TableDef) (string, error) {
	schema, name := ddl.SplitFQN(strings.TrimSpace(def.FQN), defaultSchema)
	def.FQN = schema + "." + name
	create, err := ddl.BuildCreateTableSQL(def, ddl.Bracket, false)
	if err != nil {
		return "", fmt.Errorf("mssql ddl: %w", err)
	}
	fqn := ddl.QuoteFQN(def.FQN, ddl.Bracket)
	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL\nBEGIN\n%s;\nEND", strings.ReplaceAll(fqn, "'", "''"), create), nil
}

// bulkCopy streams rows through mssql.CopyIn on the transaction.
func bulkCopy(ctx context.Context, tx *sql.Tx, table string, columns []string, rows [][]any) (int64, error) {
	stmt, err := tx.PrepareContext(ctx, mssql.CopyIn(table, mssql.BulkOptions{Tablock: true}, columns...))
	if err != nil {
		return 0, fmt.Errorf("mssql: prepare bulk: %w", err)
	}
	for i := range rows {
		if _, err := stmt.ExecContext(ctx, rows[i]...); err != nil {
			_ = stmt.Close()
			return 0, fmt.Errorf("mssql: bulk row %d: %w", i, err)
		}
	}
	res, err := stmt.ExecContext(ctx)
	if cerr := stmt.Close(); cerr != nil && err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("mssql: bulk finalize: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mssql: rows affected: %w", err)
	}
	return n, nil
}

// appLock takes an exclusive application lock owned by the transaction.
func appLock(ctx context.Context, tx *sql.Tx, resource string) error {
	var status int
	err := tx.QueryRowContext(ctx,
		"DECLARE @r INT; EXEC @r = sp_getapplock @Resource = @p1, @LockMode = 'Exclusive', @LockOwner = 'Transaction'; SELECT @r",
		resource,
	).Scan(&status)
	if err != nil {
		return fmt.Errorf("mssql: applock %s: %w", resource, err)
	}
	if status < 0 {
		return fmt.Errorf("mssql: applock %s: status %d", resource, status)
	}
	return nil
}

// NewStore validates dsn early to fail fast on obvious mistakes, then opens
// the pool.
func NewStore(ctx context.Context, dsn string, log logrus.FieldLogger) (*sqldb.Store, error) {
	if _, err := msdsn.Parse(dsn); err != nil {
		return nil, fmt.Errorf("mssql dsn: %w", err)
	}
	return sqldb.Open(ctx, Dialect, dsn, log)
}
