package ddl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"footballetl/internal/frame"
)

// TestBuildCreateTableSQL verifies the rendered statement and the error cases
// for invalid definitions.
func TestBuildCreateTableSQL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		def         TableDef
		q           Quoter
		ifNotExists bool
		wantSQL     string
		errContains string
	}{
		{
			name:        "empty FQN returns error",
			def:         TableDef{Columns: []ColumnDef{{Name: "id", SQLType: "INT"}}},
			q:           DoubleQuote,
			errContains: "table FQN must not be empty",
		},
		{
			name:        "no columns returns error",
			def:         TableDef{FQN: "public.t"},
			q:           DoubleQuote,
			errContains: "at least one column is required",
		},
		{
			name:        "column with empty name returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{SQLType: "INT"}}},
			q:           DoubleQuote,
			errContains: "column with empty name",
		},
		{
			name:        "column with empty type returns error",
			def:         TableDef{FQN: "t", Columns: []ColumnDef{{Name: "id"}}},
			q:           DoubleQuote,
			errContains: "missing SQLType",
		},
		{
			name: "postgres style",
			def: TableDef{FQN: "public.matches", Columns: []ColumnDef{
				{Name: "date", SQLType: "DATE"},
				{Name: "b365>2.5", SQLType: "DOUBLE PRECISION", Nullable: true},
			}},
			q:           DoubleQuote,
			ifNotExists: true,
			wantSQL:     "CREATE TABLE IF NOT EXISTS \"public\".\"matches\" (\n  \"date\" DATE NOT NULL,\n  \"b365>2.5\" DOUBLE PRECISION\n)",
		},
		{
			name:    "bracket quoting",
			def:     TableDef{FQN: "dbo.m", Columns: []ColumnDef{{Name: "a]b", SQLType: "BIGINT"}}},
			q:       Bracket,
			wantSQL: "CREATE TABLE [dbo].[m] (\n  [a]]b] BIGINT NOT NULL\n)",
		},
		{
			name:    "backtick quoting",
			def:     TableDef{FQN: "m", Columns: []ColumnDef{{Name: "fthg", SQLType: "BIGINT"}}},
			q:       Backtick,
			wantSQL: "CREATE TABLE `m` (\n  `fthg` BIGINT NOT NULL\n)",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := BuildCreateTableSQL(tt.def, tt.q, tt.ifNotExists)
			if tt.errContains != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantSQL, got)
		})
	}
}

func TestQuoteFQNAndSplit(t *testing.T) {
	t.Parallel()

	assert.Equal(t, `"public"."t"`, QuoteFQN("public..t", DoubleQuote))
	assert.Equal(t, `"we""ird"`, DoubleQuote(`we"ird`))

	s, tbl := SplitFQN("english_league_data", "public")
	assert.Equal(t, "public", s)
	assert.Equal(t, "english_league_data", tbl)
	s, tbl = SplitFQN("stage.matches", "dbo")
	assert.Equal(t, "stage", s)
	assert.Equal(t, "matches", tbl)
}

func TestFromFrame(t *testing.T) {
	t.Parallel()

	types := TypeMap{frame.KindString: "TEXT", frame.KindInt: "BIGINT", frame.KindDate: "DATE"}
	def, err := FromFrame("t", []frame.Column{{Name: "date", Kind: frame.KindDate}, {Name: "fthg", Kind: frame.KindInt}}, types)
	require.NoError(t, err)
	assert.Equal(t, TableDef{FQN: "t", Columns: []ColumnDef{
		{Name: "date", SQLType: "DATE"},
		{Name: "fthg", SQLType: "BIGINT"},
	}}, def)

	_, err = FromFrame("t", []frame.Column{{Name: "odds", Kind: frame.KindFloat}}, types)
	assert.Error(t, err)
}
