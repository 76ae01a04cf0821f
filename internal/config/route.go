package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/routecrawl/internal/policy"
)

// Built-in route defaults, applied before the file's routes.defaults record.
const (
	// DefaultRouteDepth only fetches the seed page.
	DefaultRouteDepth = 0

	// DefaultRouteTimeoutSeconds bounds both connect and total fetch time.
	DefaultRouteTimeoutSeconds = 10
)

// RouteSpec is a route as written in the config file.
// Pointer fields distinguish "not set" from a zero value, so that an
// explicit `depth: 0` overrides a non-zero default.
type RouteSpec struct {
	// URL is the seed URL. It is also the reference origin for the domain policy.
	URL string `yaml:"url,omitempty"`

	// Depth is the maximum link depth followed from the seed.
	Depth *int `yaml:"depth,omitempty"`

	// Domain is the domain policy name: strict, same-sld, same-tld or any.
	Domain *string `yaml:"domain,omitempty"`

	// Whitelist holds regex bodies a link must match to be followed.
	Whitelist *[]string `yaml:"whitelist,omitempty"`

	// Blacklist holds regex bodies a link must not match to be followed.
	Blacklist *[]string `yaml:"blacklist,omitempty"`

	// Timeout is the fetch timeout in whole seconds.
	Timeout *int `yaml:"timeout,omitempty"`

	// HTTPAuth is a "login:password" pair for basic authentication.
	HTTPAuth *string `yaml:"httpAuth,omitempty"`

	// LegacyHTTPAuth is the older `http.auth` spelling of HTTPAuth.
	LegacyHTTPAuth *string `yaml:"http.auth,omitempty"`
}

// auth returns the effective credentials, preferring httpAuth over http.auth.
func (s RouteSpec) auth() *string {
	if s.HTTPAuth != nil {
		return s.HTTPAuth
	}
	return s.LegacyHTTPAuth
}

// overlay returns s with every field set in over replacing s's value.
func (s RouteSpec) overlay(over RouteSpec) RouteSpec {
	if over.URL != "" {
		s.URL = over.URL
	}
	if over.Depth != nil {
		s.Depth = over.Depth
	}
	if over.Domain != nil {
		s.Domain = over.Domain
	}
	if over.Whitelist != nil {
		s.Whitelist = over.Whitelist
	}
	if over.Blacklist != nil {
		s.Blacklist = over.Blacklist
	}
	if over.Timeout != nil {
		s.Timeout = over.Timeout
	}
	if a := over.auth(); a != nil {
		s.HTTPAuth = a
		s.LegacyHTTPAuth = nil
	}
	return s
}

// Route is a fully resolved route. Every field is set and the route is never
// modified after Resolve returns it; the engine receives it by value.
type Route struct {
	// Name is the route's key in the config file.
	Name string

	// URL is the seed URL.
	URL string

	// Depth is the maximum depth expanded from the seed (seed depth is 0).
	Depth int

	// Domain is the domain-following policy.
	Domain policy.Domain

	// Whitelist and Blacklist are the regex bodies the Filter was compiled from.
	Whitelist []string
	Blacklist []string

	// Filter is the compiled whitelist/blacklist pair.
	Filter *policy.LinkFilter

	// Timeout bounds each fetch in this route.
	Timeout time.Duration

	// HTTPAuth is a "login:password" pair, empty when unauthenticated.
	HTTPAuth string
}

// String returns a short description that never includes credentials.
func (r Route) String() string {
	return fmt.Sprintf("%s (%s, depth %d, %s)", r.Name, r.URL, r.Depth, r.Domain)
}

// Resolve merges the built-in defaults, the file-level defaults and spec,
// then validates and compiles the result.
func Resolve(name string, defaults, spec RouteSpec) (Route, error) {
	merged := builtinDefaults().overlay(defaults).overlay(spec)

	url := strings.TrimSpace(merged.URL)
	if url == "" {
		return Route{}, fmt.Errorf("route %q: %w", name, ErrMissingURL)
	}

	depth := *merged.Depth
	if depth < 0 {
		return Route{}, fmt.Errorf("route %q: %w (got %d)", name, ErrInvalidDepth, depth)
	}

	domain, err := policy.Parse(*merged.Domain)
	if err != nil {
		return Route{}, fmt.Errorf("route %q: %w", name, err)
	}

	timeout := *merged.Timeout
	if timeout <= 0 {
		return Route{}, fmt.Errorf("route %q: %w (got %d)", name, ErrInvalidTimeout, timeout)
	}

	whitelist := cloneStrings(merged.Whitelist)
	blacklist := cloneStrings(merged.Blacklist)
	filter, err := policy.NewLinkFilter(whitelist, blacklist)
	if err != nil {
		return Route{}, fmt.Errorf("route %q: %w", name, err)
	}

	var auth string
	if a := merged.auth(); a != nil {
		auth = *a
	}

	return Route{
		Name:      name,
		URL:       url,
		Depth:     depth,
		Domain:    domain,
		Whitelist: whitelist,
		Blacklist: blacklist,
		Filter:    filter,
		Timeout:   time.Duration(timeout) * time.Second,
		HTTPAuth:  auth,
	}, nil
}

func builtinDefaults() RouteSpec {
	depth := DefaultRouteDepth
	domain := policy.DefaultDomain.String()
	timeout := DefaultRouteTimeoutSeconds
	return RouteSpec{
		Depth:   &depth,
		Domain:  &domain,
		Timeout: &timeout,
	}
}

func cloneStrings(p *[]string) []string {
	if p == nil {
		return []string{}
	}
	return append(make([]string, 0, len(*p)), *p...)
}
