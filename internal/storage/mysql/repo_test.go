package mysql

import (
	"context"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"footballetl/internal/storage"
	"footballetl/internal/storage/sqldb"
)

func TestNormalizeDSN(t *testing.T) {
	t.Parallel()

	got, err := NormalizeDSN("etl:secret@tcp(db:3306)/football")
	require.NoError(t, err)
	assert.Contains(t, got, "parseTime=true")

	_, err = NormalizeDSN("not a dsn")
	assert.Error(t, err)
}

func TestExistsQuery(t *testing.T) {
	t.Parallel()

	q, args := Dialect.ExistsQuery("english_league_data")
	assert.Contains(t, q, "DATABASE()")
	assert.Equal(t, []any{"english_league_data"}, args)

	q, args = Dialect.ExistsQuery("football.matches")
	assert.NotContains(t, q, "DATABASE()")
	assert.Equal(t, []any{"football", "matches"}, args)
}

func TestRegistrationUsesNewStoreHook(t *testing.T) {
	orig := newStore
	defer func() { newStore = orig }()

	boom := errors.New("boom")
	var gotDSN string
	newStore = func(ctx context.Context, dsn string, log logrus.FieldLogger) (*sqldb.Store, error) {
		gotDSN = dsn
		return nil, boom
	}

	_, err := storage.Open(context.Background(), storage.Config{Kind: "mysql", DSN: "u:p@tcp(h)/d"})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, "u:p@tcp(h)/d", gotDSN)
}
