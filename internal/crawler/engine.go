package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/nao1215/routecrawl/internal/config"
	"github.com/nao1215/routecrawl/internal/fetcher"
	"github.com/nao1215/routecrawl/internal/log"
	"github.com/nao1215/routecrawl/internal/model"
	"github.com/nao1215/routecrawl/internal/storage"
)

// Prune reasons reported to an Observer.
const (
	PrunedByDomain = "domain"
	PrunedByFilter = "filter"
)

// Observer receives crawl events. The metrics package implements it.
// Implementations must be safe for concurrent use.
type Observer interface {
	PageFetched(route string, elapsed time.Duration)
	CacheHit(route string)
	FetchFailed(route string)
	LinkPruned(route, reason string)
}

type nopObserver struct{}

func (nopObserver) PageFetched(string, time.Duration) {}
func (nopObserver) CacheHit(string)                   {}
func (nopObserver) FetchFailed(string)                {}
func (nopObserver) LinkPruned(string, string)         {}

// Engine crawls routes depth-first and records every visited page in its
// storage exactly once per normalized URL.
type Engine struct {
	storage  storage.Storage
	fetcher  fetcher.Fetcher
	parser   *Parser
	console  *log.Console
	logger   *slog.Logger
	observer Observer

	// sleep is the pause after every live fetch. In concurrent mode it
	// becomes the minimum interval between fetches to the same host.
	sleep   time.Duration
	workers int

	flight     singleflight.Group
	limitersMu sync.Mutex
	limiters   map[string]*rate.Limiter
}

// Option configures an Engine.
type Option func(*Engine)

// WithSleep sets the pause after each live fetch.
func WithSleep(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.sleep = d
		}
	}
}

// WithWorkers enables concurrent traversal with at most n goroutines per
// route. Values below 2 keep the sequential depth-first traversal.
func WithWorkers(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.workers = n
		}
	}
}

// WithConsole sets the sink for progress lines.
func WithConsole(c *log.Console) Option {
	return func(e *Engine) {
		if c != nil {
			e.console = c
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver registers an Observer for crawl events.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// WithParser replaces the default link parser.
func WithParser(p *Parser) Option {
	return func(e *Engine) {
		if p != nil {
			e.parser = p
		}
	}
}

// NewEngine creates an Engine reading and writing results through store and
// retrieving pages through f.
func NewEngine(store storage.Storage, f fetcher.Fetcher, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, ErrNoStorage
	}
	if f == nil {
		return nil, ErrNoFetcher
	}
	e := &Engine{
		storage:  store,
		fetcher:  f,
		parser:   NewParser(),
		console:  log.Discard(),
		logger:   slog.New(slog.DiscardHandler),
		observer: nopObserver{},
		workers:  1,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Run crawls routes one after the other in the given order, sharing the
// storage between them.
//
// The returned report is never nil. When a route fails or ctx is cancelled
// the run stops there and the report holds what was collected so far.
func (e *Engine) Run(ctx context.Context, routes []config.Route) (*model.RunReport, error) {
	report := model.NewRunReport()
	queue := slices.Clone(routes)

	e.console.Logf("crawling %d routes...", len(queue))
	e.console.Log("----")

	var runErr error
	for len(queue) > 0 {
		route := queue[0]
		queue = queue[1:]

		summary, err := e.Crawl(ctx, route)
		report.Routes = append(report.Routes, summary)
		e.console.Log("----")
		if err != nil {
			runErr = fmt.Errorf("route %s: %w", route.Name, err)
			break
		}
	}
	if runErr == nil {
		e.console.Log("done")
	}

	// Collect results even after cancellation so the partial run is reported.
	results, err := e.storage.Data(context.WithoutCancel(ctx))
	if err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to read stored results: %w", err))
	} else {
		report.Results = results
	}

	report.Elapsed = time.Since(report.StartedAt)
	if runErr != nil {
		report.Error = runErr.Error()
	}
	return report, runErr
}

// Crawl traverses a single route from its seed URL.
//
// It returns the route's counters together with the first error that stopped
// the traversal: a storage failure, an invalid domain policy, or ctx ending.
// Fetch failures are reported on the console and do not stop the crawl.
func (e *Engine) Crawl(ctx context.Context, route config.Route) (*model.RouteSummary, error) {
	t := &tally{summary: &model.RouteSummary{
		Name:   route.Name,
		Seed:   route.URL,
		Depth:  route.Depth,
		Domain: route.Domain.String(),
	}}
	start := time.Now()

	e.logger.Debug("crawling route", "route", route.Name, "url", route.URL,
		"depth", route.Depth, "domain", route.Domain.String(), "filtered", !route.Filter.Empty(),
		"workers", e.workers)

	root := workItem{url: route.URL}
	var err error
	if e.workers > 1 {
		err = e.crawlConcurrent(ctx, route, root, t)
	} else {
		err = e.crawlSequential(ctx, route, root, t)
	}

	summary := t.snapshot()
	summary.Elapsed = time.Since(start)
	if err != nil && ctx.Err() != nil {
		summary.Cancelled = true
	}
	return summary, err
}

// workItem is a pending visit on the traversal stack.
type workItem struct {
	url   string
	depth int
}

// crawlSequential visits pages in recursive pre-order. Children are pushed in
// reverse so the first link found is the next one popped.
func (e *Engine) crawlSequential(ctx context.Context, route config.Route, root workItem, t *tally) error {
	stack := []workItem{root}
	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := e.visit(ctx, route, item, t)
		if err != nil {
			return err
		}
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i])
		}
	}
	return nil
}

// crawlConcurrent runs the same traversal with up to e.workers goroutines.
// A goroutine that cannot hand a child to a free slot keeps it on its own
// stack, so the pool never blocks on itself.
func (e *Engine) crawlConcurrent(ctx context.Context, route config.Route, root workItem, t *tally) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	var walk func(item workItem) error
	walk = func(item workItem) error {
		stack := []workItem{item}
		for len(stack) > 0 {
			if err := gctx.Err(); err != nil {
				return err
			}
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			children, err := e.visit(gctx, route, cur, t)
			if err != nil {
				return err
			}
			for i := len(children) - 1; i >= 0; i-- {
				child := children[i]
				if !g.TryGo(func() error { return walk(child) }) {
					stack = append(stack, child)
				}
			}
		}
		return nil
	}

	g.Go(func() error { return walk(root) })
	if err := g.Wait(); err != nil {
		// Report the caller's cancellation rather than the derived one.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return err
	}
	return nil
}

// visit processes one work item and returns the children to traverse next.
func (e *Engine) visit(ctx context.Context, route config.Route, item workItem, t *tally) ([]workItem, error) {
	prefix := strings.Repeat("  ", item.depth)

	if item.depth > 0 {
		allowed, err := route.Domain.Allows(route.URL, item.url)
		if err != nil {
			return nil, err
		}
		if !allowed {
			t.prune(PrunedByDomain)
			e.observer.LinkPruned(route.Name, PrunedByDomain)
			return nil, nil
		}
		if !route.Filter.Allows(item.url) {
			t.prune(PrunedByFilter)
			e.observer.LinkPruned(route.Name, PrunedByFilter)
			return nil, nil
		}
	}

	links, msg, err := e.load(ctx, route, item.url, t)
	if err != nil {
		return nil, err
	}

	if item.depth >= route.Depth {
		e.console.Log(prefix + msg + ", reached depth " + strconv.Itoa(item.depth))
		return nil, nil
	}
	e.console.Log(prefix + msg + ", found " + strconv.Itoa(len(links)) + " links")

	children := make([]workItem, len(links))
	for i, link := range links {
		children[i] = workItem{url: link, depth: item.depth + 1}
	}
	return children, nil
}

// load returns the links of pageURL from storage or from the network,
// together with the progress message describing where they came from.
//
// Every call performs exactly one of StoreResult or FetchResult on the
// storage, so hit counts do not depend on the traversal mode. Concurrent
// visits of one normalized URL share a single fetch; the visitor that ran it
// reports "parsed", the others read the stored entry.
func (e *Engine) load(ctx context.Context, route config.Route, pageURL string, t *tally) ([]string, string, error) {
	var fresh bool
	v, err, _ := e.flight.Do(storage.NormalizeURL(pageURL), func() (any, error) {
		processed, err := e.storage.IsProcessed(ctx, pageURL)
		if err != nil {
			return nil, fmt.Errorf("failed to look up %s: %w", pageURL, err)
		}
		if processed {
			return nil, nil
		}
		fresh = true
		return e.fetchAndStore(ctx, route, pageURL, t)
	})
	if err != nil {
		return nil, "", err
	}
	if fresh {
		return v.([]string), "parsed " + pageURL, nil
	}

	res, err := e.storage.FetchResult(ctx, pageURL)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read cached result for %s: %w", pageURL, err)
	}
	t.cacheHit()
	e.observer.CacheHit(route.Name)
	return res.Links, "fetched " + pageURL + " from cache", nil
}

// fetchAndStore downloads pageURL, extracts its links and stores the result.
// A page that yields no content is stored with an empty body and no links.
func (e *Engine) fetchAndStore(ctx context.Context, route config.Route, pageURL string, t *tally) ([]string, error) {
	if err := e.throttle(ctx, pageURL); err != nil {
		return nil, err
	}

	start := time.Now()
	body, err := e.fetcher.Fetch(ctx, pageURL, fetcher.Request{
		Timeout:  route.Timeout,
		HTTPAuth: route.HTTPAuth,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		e.console.Error(pageURL + " has no content")
		e.logger.Debug("fetch failed", "route", route.Name, "url", pageURL, "error", err)
		t.failure()
		e.observer.FetchFailed(route.Name)
		body = nil
	}
	e.observer.PageFetched(route.Name, time.Since(start))
	t.fetched()

	links, err := e.parser.ExtractLinks(body, pageURL)
	if err != nil {
		e.logger.Debug("link extraction failed", "route", route.Name, "url", pageURL, "error", err)
	}

	if err := e.storage.StoreResult(ctx, pageURL, links, body); err != nil {
		if !errors.Is(err, storage.ErrValueTooLarge) {
			return nil, fmt.Errorf("failed to store %s: %w", pageURL, err)
		}
		// The page was crawled but is not cached; a later visit fetches it again.
		e.console.Error(pageURL + " is too large to store")
		e.logger.Debug("store failed", "route", route.Name, "url", pageURL, "error", err)
	}

	if err := e.pause(ctx); err != nil {
		return nil, err
	}
	return links, nil
}

// pause sleeps after a live fetch in sequential mode.
func (e *Engine) pause(ctx context.Context) error {
	if e.sleep <= 0 || e.workers > 1 {
		return nil
	}
	timer := time.NewTimer(e.sleep)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// throttle waits for the host's rate limiter in concurrent mode.
func (e *Engine) throttle(ctx context.Context, pageURL string) error {
	if e.sleep <= 0 || e.workers <= 1 {
		return nil
	}
	return e.limiter(pageURL).Wait(ctx)
}

// limiter returns the rate limiter of pageURL's host, creating it on first use.
func (e *Engine) limiter(pageURL string) *rate.Limiter {
	host := pageURL
	if u, err := url.Parse(pageURL); err == nil && u.Host != "" {
		host = strings.ToLower(u.Host)
	}

	e.limitersMu.Lock()
	defer e.limitersMu.Unlock()
	l, ok := e.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Every(e.sleep), 1)
		e.limiters[host] = l
	}
	return l
}

// tally accumulates a route's counters. It is shared by the goroutines of a
// concurrent crawl.
type tally struct {
	mu      sync.Mutex
	summary *model.RouteSummary
}

func (t *tally) fetched() {
	t.mu.Lock()
	t.summary.Fetched++
	t.mu.Unlock()
}

func (t *tally) cacheHit() {
	t.mu.Lock()
	t.summary.CacheHits++
	t.mu.Unlock()
}

func (t *tally) failure() {
	t.mu.Lock()
	t.summary.Failures++
	t.mu.Unlock()
}

func (t *tally) prune(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if reason == PrunedByDomain {
		t.summary.PrunedByDomain++
		return
	}
	t.summary.PrunedByFilter++
}

func (t *tally) snapshot() *model.RouteSummary {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := *t.summary
	return &s
}
