package storage

import "errors"

var (
	// ErrNotFound is returned by FetchResult for a URL that was never stored.
	// Callers are expected to check IsProcessed first, so seeing this error
	// means the caller broke the storage contract.
	ErrNotFound = errors.New("result not found")

	// ErrUnknownBackend is returned by Open for an unrecognized backend name.
	ErrUnknownBackend = errors.New("unknown storage backend: use one of memory, sqlite, mysql, memcached")

	// ErrValueTooLarge is returned when an encoded result exceeds the
	// memcached item size limit even after its body was dropped.
	ErrValueTooLarge = errors.New("encoded result exceeds memcached item size limit")
)
