// Package crawler implements the route-driven crawl engine.
//
// # Traversal
//
// Engine.Crawl walks one route depth-first from its seed. Every link found on
// a page below the route's depth limit is checked against the route's domain
// policy and link filter and, when allowed, visited in turn. The seed itself
// is never checked. The traversal keeps an explicit stack of (url, depth)
// items, so visit order is the same as a recursive pre-order walk in link
// order, without growing the goroutine stack on deep sites.
//
// Each normalized URL is fetched at most once. Later visits read the stored
// result, which increments its hit counter, and reuse its links.
//
// Engine.Run crawls several routes in order against the same storage.
//
// # Concurrency
//
// With WithWorkers(n) for n > 1 a route is walked by up to n goroutines.
// Concurrent visits of one URL share a single fetch, and the sleep option
// turns into a per-host rate limit. Stored results and hit counts are the
// same as in a sequential run; only the order of progress lines differs.
//
// # Output
//
// Progress lines go to a log.Console:
//
//	parsed http://example.com/, found 12 links
//	  fetched http://example.com/ from cache, reached depth 1
//
// Pages that cannot be fetched are reported as "ERROR: <url> has no content"
// and stored with an empty body.
//
// # Usage
//
//	engine, err := crawler.NewEngine(store, httpFetcher, crawler.WithSleep(500*time.Millisecond))
//	report, err := engine.Run(ctx, routes)
package crawler
