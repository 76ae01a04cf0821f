package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/nao1215/routecrawl/internal/model"
)

// Storage is the result cache consulted by the crawl engine.
// Implementations must be safe for concurrent use.
type Storage interface {
	// IsProcessed reports whether a result is stored under url's normalized key.
	IsProcessed(ctx context.Context, url string) (bool, error)

	// StoreResult records the links and body of url. The stored entry starts
	// with one hit. Storing an already known key is a no-op.
	StoreResult(ctx context.Context, url string, links []string, body []byte) error

	// FetchResult increments the hit counter of url's entry and returns the
	// entry with the updated counter. It fails with ErrNotFound if url was
	// never stored.
	FetchResult(ctx context.Context, url string) (*model.Result, error)

	// Data returns every stored result in store order.
	Data(ctx context.Context) ([]*model.Result, error)

	// Close releases backend resources.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory    = "memory"
	BackendSQLite    = "sqlite"
	BackendMySQL     = "mysql"
	BackendMemcached = "memcached"
)

// Backends lists the accepted backend names.
func Backends() []string {
	return []string{BackendMemory, BackendSQLite, BackendMySQL, BackendMemcached}
}

// Config selects and configures a storage backend.
type Config struct {
	// Backend is one of the Backend* names. Empty means memory.
	Backend string

	// DBDir is the directory holding the SQLite database file.
	DBDir string

	// DSN is the MySQL data source name.
	DSN string

	// MemcachedServers is a comma separated list of host:port addresses.
	MemcachedServers string
}

// Open creates the storage backend described by cfg.
func Open(cfg Config) (Storage, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendMemory:
		return NewRuntime(), nil
	case BackendSQLite:
		return OpenSQLite(cfg.DBDir, DefaultOptions())
	case BackendMySQL:
		return OpenMySQL(cfg.DSN)
	case BackendMemcached:
		return OpenMemcached(cfg.MemcachedServers)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}

// copyLinks returns a private copy of links that is never nil.
func copyLinks(links []string) []string {
	return append(make([]string, 0, len(links)), links...)
}
