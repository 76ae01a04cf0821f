package crawler

import "errors"

var (
	// ErrInvalidURL is returned when a page URL cannot be parsed.
	ErrInvalidURL = errors.New("invalid URL")

	// ErrNoStorage is returned when an Engine is created without a storage backend.
	ErrNoStorage = errors.New("crawler requires a storage backend")

	// ErrNoFetcher is returned when an Engine is created without a fetcher.
	ErrNoFetcher = errors.New("crawler requires a fetcher")
)
