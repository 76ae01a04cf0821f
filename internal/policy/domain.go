package policy

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"golang.org/x/text/cases"
)

// Domain is a domain-following policy.
type Domain string

const (
	// Strict follows links whose host equals the seed host.
	Strict Domain = "strict"

	// SameSLD follows links on the seed's second-level domain and its
	// subdomains, e.g. *.example.com for a www.example.com seed.
	SameSLD Domain = "same-sld"

	// SameTLD follows links sharing the seed's top-level domain.
	SameTLD Domain = "same-tld"

	// Any follows every link.
	Any Domain = "any"

	// legacyStrict is an older spelling of Strict still found in config files.
	legacyStrict = "same"
)

// DefaultDomain is the policy used when a route does not set one.
const DefaultDomain = SameSLD

// Parse converts a policy name into a Domain.
// Names are case-insensitive and "same" is accepted as an alias of strict.
func Parse(name string) (Domain, error) {
	d := Domain(strings.ToLower(strings.TrimSpace(name)))
	if d == legacyStrict {
		return Strict, nil
	}
	if !d.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, name)
	}
	return d, nil
}

// Valid reports whether d is one of the four recognized policies.
func (d Domain) Valid() bool {
	switch d {
	case Strict, SameSLD, SameTLD, Any:
		return true
	default:
		return false
	}
}

// String returns the policy name.
func (d Domain) String() string {
	return string(d)
}

// Allows reports whether candidate is in scope relative to reference.
//
// Hosts are compared after Unicode case folding and without ports.
// Single-label hosts such as "localhost" and IP literals only match
// themselves under same-sld and same-tld. URLs without a host are rejected.
func (d Domain) Allows(reference, candidate string) (bool, error) {
	if !d.Valid() {
		return false, fmt.Errorf("%w: %q", ErrInvalidPolicy, string(d))
	}
	if d == Any {
		return true, nil
	}

	refHost := hostOf(reference)
	candHost := hostOf(candidate)
	if refHost == "" || candHost == "" {
		return false, nil
	}

	if d == Strict {
		return candHost == refHost, nil
	}

	if isOpaqueHost(refHost) || isOpaqueHost(candHost) {
		return candHost == refHost, nil
	}

	switch d {
	case SameTLD:
		tld := refHost[strings.LastIndex(refHost, ".")+1:]
		return strings.HasSuffix(candHost, "."+tld), nil
	default:
		suffix := sldSuffix(refHost)
		return candHost == suffix || strings.HasSuffix(candHost, "."+suffix), nil
	}
}

// sldSuffix returns host from its second-to-last dot onward, or the whole
// host when it contains a single dot.
func sldSuffix(host string) string {
	last := strings.LastIndex(host, ".")
	if last <= 0 {
		return host
	}
	prev := strings.LastIndex(host[:last], ".")
	if prev < 0 {
		return host
	}
	return host[prev+1:]
}

// hostOf extracts the case-folded hostname from a URL, or "" when the URL
// cannot be parsed.
func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return cases.Fold().String(u.Hostname())
}

// isOpaqueHost reports whether host has no domain structure to compare:
// an IP literal or a name without any dot.
func isOpaqueHost(host string) bool {
	if net.ParseIP(host) != nil {
		return true
	}
	return !strings.Contains(host, ".")
}
