// Package metrics exposes crawl counters in the Prometheus format.
//
// A Collector implements crawler.Observer. Serve publishes its registry on
// /metrics for the duration of a run.
package metrics
