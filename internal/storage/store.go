// Package storage contains storage-agnostic contracts and utilities.
//
// A backend registers a Factory under its kind from init(); callers open it
// through Open and stay backend-agnostic from then on. Importing
// footballetl/internal/storage/all enables every built-in backend.
package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"github.com/zeebo/xxh3"

	"footballetl/internal/ddl"
)

// Store is a relational destination for season partitions.
type Store interface {
	// Kind returns the registered backend name.
	Kind() string
	// Types maps frame kinds to this backend's column types.
	Types() ddl.TypeMap
	TableExists(ctx context.Context, table string) (bool, error)
	// CreateTable creates def unless a table of that name already exists.
	CreateTable(ctx context.Context, def ddl.TableDef) error
	BeginTx(ctx context.Context) (Tx, error)
	Close()
}

// Tx is one unit of work against a Store. After Commit or Rollback the Tx
// must not be used; Rollback after Commit is a no-op.
type Tx interface {
	// LockPartition serializes writers of one season of table until the
	// transaction ends. Backends without transaction-scoped locks no-op.
	LockPartition(ctx context.Context, table, season string) error
	// DeleteSeason removes every row of season and reports how many.
	DeleteSeason(ctx context.Context, table, season string) (int64, error)
	// CopyInto bulk-inserts rows aligned to columns.
	CopyInto(ctx context.Context, table string, columns []string, rows [][]any) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// SeasonColumn is the partition column every loaded table carries.
const SeasonColumn = "season"

// Config selects and configures a backend.
type Config struct {
	Kind   string
	DSN    string
	Logger logrus.FieldLogger
}

// Factory opens a Store for one backend kind.
type Factory func(ctx context.Context, cfg Config) (Store, error)

var (
	regMu     sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the Factory for kind. It is typically
// called from backend packages' init() functions.
func Register(kind string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	factories[strings.ToLower(kind)] = f
}

// Kinds returns the registered backend kinds, sorted.
func Kinds() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	out := make([]string, 0, len(factories))
	for k := range factories {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Open locates the Factory for cfg.Kind and invokes it.
func Open(ctx context.Context, cfg Config) (Store, error) {
	regMu.RLock()
	f, ok := factories[strings.ToLower(cfg.Kind)]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: no backend registered for kind %q (have %s)", cfg.Kind, strings.Join(Kinds(), ", "))
	}
	return f(ctx, cfg)
}

// PartitionKey derives a stable 64-bit lock key for one season of table.
func PartitionKey(table, season string) int64 {
	return int64(xxh3.HashString(table + "/" + season))
}
