package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "routecrawl"

// Collector records crawl events in its own Prometheus registry.
type Collector struct {
	registry      *prometheus.Registry
	pagesFetched  *prometheus.CounterVec
	cacheHits     *prometheus.CounterVec
	fetchFailures *prometheus.CounterVec
	linksPruned   *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
}

// NewCollector creates a Collector with the process and Go runtime
// collectors registered next to the crawl metrics.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		pagesFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pages_fetched_total",
			Help:      "Live page fetches, including failed ones.",
		}, []string{"route"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Visits served from the result cache.",
		}, []string{"route"}),
		fetchFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fetch_failures_total",
			Help:      "Fetches that produced no content.",
		}, []string{"route"}),
		linksPruned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "links_pruned_total",
			Help:      "Links not followed, by reason.",
		}, []string{"route", "reason"}),
		fetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Duration of live page fetches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
	}

	c.registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
		c.pagesFetched,
		c.cacheHits,
		c.fetchFailures,
		c.linksPruned,
		c.fetchDuration,
	)
	return c
}

// PageFetched records a live fetch and its duration.
func (c *Collector) PageFetched(route string, elapsed time.Duration) {
	c.pagesFetched.WithLabelValues(route).Inc()
	c.fetchDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// CacheHit records a visit served from storage.
func (c *Collector) CacheHit(route string) {
	c.cacheHits.WithLabelValues(route).Inc()
}

// FetchFailed records a fetch without content.
func (c *Collector) FetchFailed(route string) {
	c.fetchFailures.WithLabelValues(route).Inc()
}

// LinkPruned records a link rejected by the domain policy or the link filter.
func (c *Collector) LinkPruned(route, reason string) {
	c.linksPruned.WithLabelValues(route, reason).Inc()
}

// Handler returns the HTTP handler serving the registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve listens on addr and serves the registry on /metrics until the
// returned stop function is called. The listener is bound before Serve
// returns, so an unusable address fails immediately.
func (c *Collector) Serve(addr string, logger *slog.Logger) (stop func(), err error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("metrics server listening", "addr", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("graceful shutdown of metrics server failed", "error", err)
		}
	}, nil
}
