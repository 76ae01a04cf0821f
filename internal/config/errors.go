package config

import "errors"

// Configuration validation errors.
// These errors are returned while loading the config file or by
// Config.Validate(), so callers can test for them with errors.Is().
var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")

	// ErrMalformedConfig is returned when the config file does not have the
	// expected options/routes mapping shape.
	ErrMalformedConfig = errors.New("malformed configuration")

	// ErrNoRoutes is returned when the config file has no routes section.
	ErrNoRoutes = errors.New("no routes section defined")

	// ErrMissingURL is returned when a route has no seed URL.
	ErrMissingURL = errors.New("route has no url")

	// ErrInvalidDepth is returned when a route depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidTimeout is returned when a route timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidSleep is returned when the sleep between fetches is negative.
	ErrInvalidSleep = errors.New("invalid sleep: must be non-negative")

	// ErrInvalidWorkers is returned when the worker count is below one.
	ErrInvalidWorkers = errors.New("invalid workers: must be at least 1")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	// Use 0 to get the default limit.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidReportFormat is returned for an unknown --report value.
	ErrInvalidReportFormat = errors.New("invalid report format: must be text, json or markdown")

	// ErrInvalidLogFormat is returned for an unknown --log-format value.
	ErrInvalidLogFormat = errors.New("invalid log format: must be text or json")

	// ErrMissingDSN is returned when the mysql backend is selected without --dsn.
	ErrMissingDSN = errors.New("mysql storage requires --dsn")

	// ErrMissingMemcached is returned when the memcached backend is selected
	// without any server.
	ErrMissingMemcached = errors.New("memcached storage requires --memcached")

	// ErrConflictingProxy is returned when both --proxy and --tor are given.
	ErrConflictingProxy = errors.New("conflicting transports: --proxy and --tor cannot be used together")
)
