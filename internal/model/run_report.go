package model

import "time"

// RouteSummary holds the counters collected while crawling a single route.
type RouteSummary struct {
	// Name is the route key from the configuration file.
	Name string `json:"name"`

	// Seed is the route's start URL.
	Seed string `json:"seed"`

	// Depth is the route's maximum depth.
	Depth int `json:"depth"`

	// Domain is the domain policy name.
	Domain string `json:"domain"`

	// Fetched counts live network fetches.
	Fetched int `json:"fetched"`

	// CacheHits counts visits served from storage.
	CacheHits int `json:"cache_hits"`

	// Failures counts fetches that produced no content.
	Failures int `json:"failures"`

	// PrunedByDomain counts links rejected by the domain policy.
	PrunedByDomain int `json:"pruned_by_domain"`

	// PrunedByFilter counts links rejected by the whitelist or blacklist.
	PrunedByFilter int `json:"pruned_by_filter"`

	// Elapsed is the wall time spent on the route.
	Elapsed time.Duration `json:"elapsed"`

	// Cancelled is true when the route stopped because the context ended.
	Cancelled bool `json:"cancelled,omitempty"`
}

// Visited returns the number of pages visited, either live or from cache.
func (s *RouteSummary) Visited() int {
	return s.Fetched + s.CacheHits
}

// Pruned returns the total number of links not followed.
func (s *RouteSummary) Pruned() int {
	return s.PrunedByDomain + s.PrunedByFilter
}

// RunReport is the outcome of crawling every configured route once.
type RunReport struct {
	// StartedAt is when the run began.
	StartedAt time.Time `json:"started_at"`

	// Elapsed is the total wall time of the run.
	Elapsed time.Duration `json:"elapsed"`

	// Routes holds one summary per route, in crawl order.
	Routes []*RouteSummary `json:"routes"`

	// Results holds every stored result in store order.
	Results []*Result `json:"results"`

	// Error contains the message of the error that stopped the run, if any.
	Error string `json:"error,omitempty"`
}

// NewRunReport creates an empty report stamped with the current time.
func NewRunReport() *RunReport {
	return &RunReport{
		StartedAt: time.Now(),
		Routes:    make([]*RouteSummary, 0),
		Results:   make([]*Result, 0),
	}
}

// TotalFetched sums live fetches over all routes.
func (r *RunReport) TotalFetched() int {
	total := 0
	for _, s := range r.Routes {
		total += s.Fetched
	}
	return total
}

// TotalCacheHits sums cache hits over all routes.
func (r *RunReport) TotalCacheHits() int {
	total := 0
	for _, s := range r.Routes {
		total += s.CacheHits
	}
	return total
}

// TotalFailures sums failed fetches over all routes.
func (r *RunReport) TotalFailures() int {
	total := 0
	for _, s := range r.Routes {
		total += s.Failures
	}
	return total
}

// TotalPruned sums pruned links over all routes.
func (r *RunReport) TotalPruned() int {
	total := 0
	for _, s := range r.Routes {
		total += s.Pruned()
	}
	return total
}
