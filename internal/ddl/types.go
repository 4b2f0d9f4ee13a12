package ddl

import (
	"fmt"

	"footballetl/internal/frame"
)

// ColumnDef describes a single column in a table definition.
//
// Fields:
//   - Name: logical column name (unquoted; quoting happens at render time)
//   - SQLType: target SQL type (e.g., TEXT, BIGINT, DATE)
//   - Nullable: whether NULL is allowed
type ColumnDef struct {
	Name     string
	SQLType  string
	Nullable bool
}

// TableDef holds the fully-qualified table name (FQN) and an ordered list of
// columns. The FQN is expected in dotted form (e.g., "schema.table") and is
// quoted by renderers as needed.
type TableDef struct {
	FQN     string
	Columns []ColumnDef
}

// TypeMap maps frame kinds onto one backend's SQL types.
type TypeMap map[frame.Kind]string

// FromFrame derives a table definition from frame columns. Cleaned frames
// never hold NULLs, so every column is NOT NULL.
func FromFrame(fqn string, cols []frame.Column, types TypeMap) (TableDef, error) {
	def := TableDef{FQN: fqn, Columns: make([]ColumnDef, 0, len(cols))}
	for _, c := range cols {
		typ, ok := types[c.Kind]
		if !ok {
			return TableDef{}, fmt.Errorf("ddl: no SQL type for column %q of kind %s", c.Name, c.Kind)
		}
		def.Columns = append(def.Columns, ColumnDef{Name: c.Name, SQLType: typ})
	}
	return def, nil
}
