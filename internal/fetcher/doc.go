// Package fetcher retrieves page bodies for the crawl engine.
//
// HTTPFetcher is a plain net/http client tuned for crawling: certificate
// verification is off, redirects are followed up to a fixed limit, and basic
// authentication is sent when a route carries credentials. Traffic can go
// direct, through a SOCKS5 proxy, or through an embedded Tor daemon started
// with tornago.
package fetcher
