// Package storage provides the result cache that gives routecrawl its
// at-most-once processing guarantee.
//
// Every backend keys entries by NormalizeURL, so URLs that differ only in
// scheme, fragment, trailing separators or doubled slashes share one entry.
// The first StoreResult for a key creates the entry with one hit; each
// FetchResult increments the hit counter by exactly one. Entries are never
// overwritten or deleted.
//
// Available backends:
//   - Runtime: in-memory, process lifetime (default)
//   - SQL: SQLite file or MySQL database
//   - Memcached: shared memcached servers
package storage
