// Package model defines the core data structures shared by routecrawl packages.
//
// This package contains the following main types:
//   - Result: a visited page's links and raw body, with its hit counter
//   - RouteSummary: per-route counters collected by the crawl engine
//   - RunReport: the outcome of a whole run, consumed by report writers and exporters
//
// Storage, crawler, report and export packages all depend on these types,
// so they live in their own package to keep the import graph acyclic.
package model
