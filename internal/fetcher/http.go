package fetcher

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/proxy"
)

const (
	// DefaultMaxRedirects is how many redirects a fetch follows before failing.
	DefaultMaxRedirects = 50

	// DefaultMaxBodySize limits how much of a response body is read.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultTimeout applies when a Request carries no timeout.
	DefaultTimeout = 10 * time.Second
)

// Request carries the per-route parameters of a fetch.
type Request struct {
	// Timeout bounds the connect phase and the whole request.
	Timeout time.Duration

	// HTTPAuth is a "login:password" pair sent as basic authentication.
	HTTPAuth string
}

// Fetcher retrieves the body of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string, req Request) ([]byte, error)
}

// HTTPFetcher fetches pages over HTTP(S).
// It is safe for concurrent use.
type HTTPFetcher struct {
	client       *http.Client
	userAgent    string
	maxBodySize  int64
	maxRedirects int
	proxyAddress string
}

var _ Fetcher = (*HTTPFetcher)(nil)

// HTTPOption configures an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption {
	return func(f *HTTPFetcher) {
		if ua != "" {
			f.userAgent = ua
		}
	}
}

// WithMaxBodySize limits the bytes read per response. Zero keeps the default.
func WithMaxBodySize(size int64) HTTPOption {
	return func(f *HTTPFetcher) {
		if size > 0 {
			f.maxBodySize = size
		}
	}
}

// WithMaxRedirects sets how many redirects are followed before the last
// response is returned as is.
func WithMaxRedirects(n int) HTTPOption {
	return func(f *HTTPFetcher) {
		if n >= 0 {
			f.maxRedirects = n
		}
	}
}

// WithSOCKS5Proxy routes every connection through the SOCKS5 proxy at address.
func WithSOCKS5Proxy(address string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.proxyAddress = address
	}
}

// NewHTTPFetcher creates a fetcher. userAgent is the default User-Agent,
// which WithUserAgent can replace.
func NewHTTPFetcher(userAgent string, opts ...HTTPOption) (*HTTPFetcher, error) {
	f := &HTTPFetcher{
		userAgent:    userAgent,
		maxBodySize:  DefaultMaxBodySize,
		maxRedirects: DefaultMaxRedirects,
	}
	for _, opt := range opts {
		opt(f)
	}

	dial, err := f.dialContext()
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		DialContext: dial,
		// Crawled sites frequently run with self-signed or expired certificates.
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // Crawler fetches arbitrary sites
		},
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
	}

	f.client = &http.Client{
		Transport: transport,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) > f.maxRedirects {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}
	return f, nil
}

// dialContext returns a direct dialer or one going through the SOCKS5 proxy.
// The request context carries the route timeout, so it bounds connecting too.
func (f *HTTPFetcher) dialContext() (func(ctx context.Context, network, addr string) (net.Conn, error), error) {
	if f.proxyAddress == "" {
		var d net.Dialer
		return d.DialContext, nil
	}
	if !isValidProxyAddress(f.proxyAddress) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidProxyAddress, f.proxyAddress)
	}

	// Proxy auth is nil: Tor and most local SOCKS ports accept anonymous clients.
	dialer, err := proxy.SOCKS5("tcp", f.proxyAddress, nil, proxy.Direct)
	if err != nil {
		return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
	}
	if cd, ok := dialer.(proxy.ContextDialer); ok {
		return cd.DialContext, nil
	}
	return func(_ context.Context, network, addr string) (net.Conn, error) {
		return dialer.Dial(network, addr)
	}, nil
}

// ProxyAddress returns the configured SOCKS5 proxy, or "" for direct connections.
func (f *HTTPFetcher) ProxyAddress() string {
	return f.proxyAddress
}

// Fetch retrieves url and returns its body.
//
// The body is returned whatever the status code. A transport error or an
// empty body yields an error wrapping ErrFetchFailed.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string, r Request) ([]byte, error) {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	if r.HTTPAuth != "" {
		user, pass, _ := strings.Cut(r.HTTPAuth, ":")
		req.SetBasicAuth(user, pass)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFetchFailed, url, err)
	}
	if len(body) == 0 {
		return nil, fmt.Errorf("%w: %s: empty body (status %d)", ErrFetchFailed, url, resp.StatusCode)
	}
	return body, nil
}
