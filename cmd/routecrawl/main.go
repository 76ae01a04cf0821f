// Package main provides the entry point for the routecrawl CLI.
//
// routecrawl walks a list of named routes from a YAML configuration file.
// Each route starts at a seed URL and follows links depth-first up to a
// maximum depth, subject to a domain policy and whitelist/blacklist filters.
// Visited pages are cached so that a page reachable from several routes is
// fetched only once.
//
// Usage:
//
//	routecrawl crawl [config]
//	routecrawl init
//	routecrawl show --storage sqlite
//
// See --help for all available options.
package main

func main() {
	Execute()
}
