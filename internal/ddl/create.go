// Package ddl defines a small, backend-agnostic model for SQL DDL and helpers
// to render CREATE TABLE statements from that model.
//
// Dialects plug in through a Quoter; T-SQL, which has no CREATE TABLE IF NOT
// EXISTS, wraps the statement itself.
package ddl

import (
	"fmt"
	"strings"
)

// Quoter quotes one identifier segment.
type Quoter func(ident string) string

// DoubleQuote is the ANSI quoter used by Postgres and SQLite.
func DoubleQuote(id string) string { return `"` + strings.ReplaceAll(id, `"`, `""`) + `"` }

// Backtick is the MySQL quoter.
func Backtick(id string) string { return "`" + strings.ReplaceAll(id, "`", "``") + "`" }

// Bracket is the SQL Server quoter.
func Bracket(id string) string { return `[` + strings.ReplaceAll(id, `]`, `]]`) + `]` }

// QuoteFQN quotes a possibly schema-qualified name like "public.matches".
// Empty segments are ignored.
func QuoteFQN(name string, q Quoter) string {
	parts := strings.Split(name, ".")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, q(p))
	}
	return strings.Join(out, ".")
}

// SplitFQN returns the schema and table of name, using defaultSchema when the
// name is not qualified.
func SplitFQN(name, defaultSchema string) (schema, table string) {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[:i], name[i+1:]
	}
	return defaultSchema, name
}

// BuildCreateTableSQL renders a CREATE TABLE statement from a TableDef.
//
// Rules:
//
//   - t.FQN must be non-empty; it is quoted segment by segment.
//
//   - Each column must have a non-empty Name and SQLType.
//
//   - A column is rendered as:
//
//     <Name> <SQLType> [NOT NULL]
//
//   - ifNotExists adds IF NOT EXISTS after CREATE TABLE.
func BuildCreateTableSQL(t TableDef, q Quoter, ifNotExists bool) (string, error) {
	fqn := strings.TrimSpace(t.FQN)
	if fqn == "" {
		return "", fmt.Errorf("ddl: table FQN must not be empty")
	}
	if len(t.Columns) == 0 {
		return "", fmt.Errorf("ddl: at least one column is required")
	}

	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		name := strings.TrimSpace(c.Name)
		if name == "" {
			return "", fmt.Errorf("ddl: column with empty name in table %s", fqn)
		}
		typ := strings.TrimSpace(c.SQLType)
		if typ == "" {
			return "", fmt.Errorf("ddl: column %s missing SQLType", name)
		}

		var sb strings.Builder
		sb.WriteString(q(name))
		sb.WriteByte(' ')
		sb.WriteString(typ)
		if !c.Nullable {
			sb.WriteString(" NOT NULL")
		}
		cols = append(cols, sb.String())
	}

	create := "CREATE TABLE "
	if ifNotExists {
		create += "IF NOT EXISTS "
	}
	return fmt.Sprintf("%s%s (\n  %s\n)", create, QuoteFQN(fqn, q), strings.Join(cols, ",\n  ")), nil
}
