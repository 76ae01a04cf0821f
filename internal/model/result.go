package model

import (
	"encoding/hex"
	"time"

	"golang.org/x/crypto/sha3"
)

// Result is the cached outcome of visiting one URL.
// A Result is created once per normalized URL and only Hits changes afterwards.
type Result struct {
	// URL is the URL exactly as it was first seen, before normalization.
	URL string `json:"url"`

	// Links holds the absolute link targets extracted from the page,
	// in document order. Duplicates are preserved.
	Links []string `json:"links"`

	// Body is the raw response body, stored verbatim.
	// It is empty when the fetch failed.
	Body []byte `json:"body,omitempty"`

	// Hits starts at 1 on the first store and is incremented on every
	// cache read.
	Hits int `json:"hits"`

	// BodyHash is the hex encoded SHA3-256 digest of Body.
	BodyHash string `json:"body_hash,omitempty"`

	// StoredAt is when the result was first stored.
	StoredAt time.Time `json:"stored_at"`
}

// NewResult creates a Result with a hit count of one and a computed body hash.
func NewResult(url string, links []string, body []byte) *Result {
	r := &Result{
		URL:      url,
		Links:    links,
		Body:     body,
		Hits:     1,
		StoredAt: time.Now(),
	}
	if r.Links == nil {
		r.Links = []string{}
	}
	r.ComputeHash()
	return r
}

// ComputeHash calculates the SHA3-256 digest of the body.
func (r *Result) ComputeHash() {
	if len(r.Body) == 0 {
		r.BodyHash = ""
		return
	}
	sum := sha3.Sum256(r.Body)
	r.BodyHash = hex.EncodeToString(sum[:])
}

// Clone returns a deep copy so callers cannot mutate a stored entry.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	c.Links = append(make([]string, 0, len(r.Links)), r.Links...)
	c.Body = append([]byte(nil), r.Body...)
	return &c
}

// HasContent reports whether the fetch produced a non-empty body.
func (r *Result) HasContent() bool {
	return len(r.Body) > 0
}
