package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/bradfitz/gomemcache/memcache"

	"github.com/nao1215/routecrawl/internal/model"
)

const (
	// memcachedKeyPrefix namespaces routecrawl entries on shared servers.
	memcachedKeyPrefix = "routecrawl:"

	// memcachedMaxItemSize is the default memcached item size limit (1 MiB).
	memcachedMaxItemSize = 1024 * 1024

	// casRetries bounds compare-and-swap attempts when another process
	// increments the same entry concurrently.
	casRetries = 5
)

// memcacheClient is the subset of *memcache.Client used by Memcached.
type memcacheClient interface {
	Get(key string) (*memcache.Item, error)
	GetMulti(keys []string) (map[string]*memcache.Item, error)
	Add(item *memcache.Item) error
	CompareAndSwap(item *memcache.Item) error
	Close() error
}

// Memcached stores results on memcached servers. Items never expire, but the
// server may still evict them under memory pressure. An evicted entry reads
// as unprocessed, so the page is fetched again.
//
// A result whose encoding exceeds the item size limit is stored without its
// body. BodyHash still identifies the dropped content.
//
// Data only returns entries this process stored or read, because memcached
// cannot enumerate keys.
type Memcached struct {
	client memcacheClient

	// mu guards keys and seen, and serializes in-process hit increments.
	mu   sync.Mutex
	keys []string
	seen map[string]bool
}

var _ Storage = (*Memcached)(nil)

// OpenMemcached connects to the comma separated list of servers and pings them.
func OpenMemcached(servers string) (*Memcached, error) {
	ss := new(memcache.ServerList)
	if err := ss.SetServers(splitServers(servers)...); err != nil {
		return nil, fmt.Errorf("failed to set memcached servers: %w", err)
	}
	client := memcache.NewFromSelector(ss)
	if err := client.Ping(); err != nil {
		return nil, fmt.Errorf("failed to connect to memcached: %w", err)
	}
	return newMemcached(client), nil
}

func newMemcached(client memcacheClient) *Memcached {
	return &Memcached{
		client: client,
		keys:   make([]string, 0),
		seen:   make(map[string]bool),
	}
}

func splitServers(servers string) []string {
	parts := strings.Split(servers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// memcachedKey hashes the normalized URL so keys stay within memcached's
// length and character limits.
func memcachedKey(url string) string {
	sum := sha256.Sum256([]byte(NormalizeURL(url)))
	return memcachedKeyPrefix + hex.EncodeToString(sum[:])
}

// remember records key in first-seen order. Callers must hold mu.
func (m *Memcached) remember(key string) {
	if !m.seen[key] {
		m.seen[key] = true
		m.keys = append(m.keys, key)
	}
}

// forget drops an evicted key from the index. Callers must hold mu.
func (m *Memcached) forget(key string) {
	if !m.seen[key] {
		return
	}
	delete(m.seen, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

// IsProcessed implements Storage.
func (m *Memcached) IsProcessed(_ context.Context, url string) (bool, error) {
	key := memcachedKey(url)

	_, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		m.mu.Lock()
		m.forget(key)
		m.mu.Unlock()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check result: %w", err)
	}
	return true, nil
}

// StoreResult implements Storage.
func (m *Memcached) StoreResult(_ context.Context, url string, links []string, body []byte) error {
	key := memcachedKey(url)
	res := model.NewResult(url, copyLinks(links), body)
	value, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to serialize result: %w", err)
	}
	if len(value) > memcachedMaxItemSize {
		res.Body = nil
		if value, err = json.Marshal(res); err != nil {
			return fmt.Errorf("failed to serialize result: %w", err)
		}
	}
	if len(value) > memcachedMaxItemSize {
		return fmt.Errorf("%w: %s (%d bytes)", ErrValueTooLarge, url, len(value))
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	err = m.client.Add(&memcache.Item{Key: key, Value: value})
	if err != nil && !errors.Is(err, memcache.ErrNotStored) {
		return fmt.Errorf("failed to store result: %w", err)
	}
	m.remember(key)
	return nil
}

// FetchResult implements Storage.
func (m *Memcached) FetchResult(_ context.Context, url string) (*model.Result, error) {
	key := memcachedKey(url)

	m.mu.Lock()
	defer m.mu.Unlock()

	for attempt := 0; attempt < casRetries; attempt++ {
		item, err := m.client.Get(key)
		if errors.Is(err, memcache.ErrCacheMiss) {
			m.forget(key)
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to fetch result: %w", err)
		}

		var res model.Result
		if err := json.Unmarshal(item.Value, &res); err != nil {
			return nil, fmt.Errorf("failed to parse result: %w", err)
		}
		res.Hits++

		item.Value, err = json.Marshal(&res)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize result: %w", err)
		}

		err = m.client.CompareAndSwap(item)
		if errors.Is(err, memcache.ErrCASConflict) {
			continue
		}
		if errors.Is(err, memcache.ErrNotStored) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, url)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to update hits: %w", err)
		}

		m.remember(key)
		return &res, nil
	}
	return nil, fmt.Errorf("failed to update hits for %s: %w", url, memcache.ErrCASConflict)
}

// Data implements Storage.
func (m *Memcached) Data(_ context.Context) ([]*model.Result, error) {
	m.mu.Lock()
	keys := append([]string(nil), m.keys...)
	m.mu.Unlock()

	if len(keys) == 0 {
		return []*model.Result{}, nil
	}

	items, err := m.client.GetMulti(keys)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch results: %w", err)
	}

	results := make([]*model.Result, 0, len(keys))
	for _, key := range keys {
		item, ok := items[key]
		if !ok {
			continue
		}
		var res model.Result
		if err := json.Unmarshal(item.Value, &res); err != nil {
			return nil, fmt.Errorf("failed to parse result: %w", err)
		}
		results = append(results, &res)
	}
	return results, nil
}

// Close implements Storage.
func (m *Memcached) Close() error {
	return m.client.Close()
}
