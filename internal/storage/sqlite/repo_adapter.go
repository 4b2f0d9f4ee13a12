package sqlite

import (
	"context"

	"footballetl/internal/storage"
)

// newStore is a test hook that points to NewStore by default.
var newStore = NewStore

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		s, err := newStore(ctx, cfg.DSN, cfg.Logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
