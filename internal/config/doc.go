// Package config loads routecrawl configuration.
//
// Two layers live here. The YAML file describes crawl options and an ordered
// set of named routes, each resolved once into an immutable Route. The CLI
// level Config carries flag values such as the storage backend, report format
// and exporters, and validates them before a run starts.
package config
