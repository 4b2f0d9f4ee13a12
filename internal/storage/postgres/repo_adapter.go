package postgres

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"

	"footballetl/internal/storage"
)

// newStore is a test hook that points to NewStore by default.
// Tests may replace this variable to avoid real DB connections.
var newStore = NewStore

// DSNFromEnv assembles a connection URL from POSTGRES_USER,
// POSTGRES_PASSWORD, POSTGRES_SERVER, POSTGRES_PORT (default 5432) and
// POSTGRES_DB. It returns "" when POSTGRES_SERVER is unset.
func DSNFromEnv(getenv func(string) string) string {
	if getenv == nil {
		getenv = os.Getenv
	}
	host := strings.TrimSpace(getenv("POSTGRES_SERVER"))
	if host == "" {
		return ""
	}
	port := strings.TrimSpace(getenv("POSTGRES_PORT"))
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + getenv("POSTGRES_DB"),
	}
	if user := getenv("POSTGRES_USER"); user != "" {
		u.User = url.UserPassword(user, getenv("POSTGRES_PASSWORD"))
	}
	return u.String()
}

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Store, error) {
		dsn := cfg.DSN
		if dsn == "" {
			dsn = DSNFromEnv(nil)
		}
		if dsn == "" {
			return nil, fmt.Errorf("postgres: no DSN configured and POSTGRES_SERVER is unset")
		}
		s, err := newStore(ctx, dsn, cfg.Logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	})
}
