package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/nao1215/routecrawl/internal/model"
	"github.com/patrickmn/go-cache"
)

// Runtime is the default in-memory backend. Entries live for the lifetime
// of the process and never expire.
type Runtime struct {
	// items maps normalized keys to *model.Result.
	items *cache.Cache

	// order holds normalized keys in store order, for Data.
	order []string

	// mu serializes stores and hit increments.
	mu sync.Mutex
}

var _ Storage = (*Runtime)(nil)

// NewRuntime creates an empty in-memory store.
func NewRuntime() *Runtime {
	return &Runtime{
		// A non-positive cleanup interval disables the janitor goroutine.
		items: cache.New(cache.NoExpiration, 0),
		order: make([]string, 0),
	}
}

// IsProcessed implements Storage.
func (r *Runtime) IsProcessed(_ context.Context, url string) (bool, error) {
	_, ok := r.items.Get(NormalizeURL(url))
	return ok, nil
}

// StoreResult implements Storage.
func (r *Runtime) StoreResult(_ context.Context, url string, links []string, body []byte) error {
	key := NormalizeURL(url)
	res := model.NewResult(url, copyLinks(links), append([]byte(nil), body...))

	r.mu.Lock()
	defer r.mu.Unlock()

	// Add refuses existing keys, which keeps the first stored entry.
	if err := r.items.Add(key, res, cache.NoExpiration); err != nil {
		return nil
	}
	r.order = append(r.order, key)
	return nil
}

// FetchResult implements Storage.
func (r *Runtime) FetchResult(_ context.Context, url string) (*model.Result, error) {
	key := NormalizeURL(url)

	r.mu.Lock()
	defer r.mu.Unlock()

	v, ok := r.items.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
	}
	res := v.(*model.Result) //nolint:forcetypeassert // only *model.Result is stored
	res.Hits++
	return res.Clone(), nil
}

// Data implements Storage.
func (r *Runtime) Data(_ context.Context) ([]*model.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	results := make([]*model.Result, 0, len(r.order))
	for _, key := range r.order {
		if v, ok := r.items.Get(key); ok {
			results = append(results, v.(*model.Result).Clone()) //nolint:forcetypeassert // only *model.Result is stored
		}
	}
	return results, nil
}

// Len returns the number of stored entries.
func (r *Runtime) Len() int {
	return r.items.ItemCount()
}

// Close implements Storage. The in-memory store has nothing to release.
func (r *Runtime) Close() error {
	return nil
}
