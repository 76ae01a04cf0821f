package storage

import (
	"strings"
)

// NormalizeURL canonicalizes a URL into a cache key.
//
// Steps, in order:
//  1. strip a leading "http://" or "https://"
//  2. strip everything from the first "#" onward
//  3. strip trailing "/" and "?" characters
//  4. collapse runs of "/" into a single "/"
//
// The function is total and idempotent.
func NormalizeURL(raw string) string {
	s := raw
	switch {
	case strings.HasPrefix(s, "http://"):
		s = s[len("http://"):]
	case strings.HasPrefix(s, "https://"):
		s = s[len("https://"):]
	}

	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}

	s = strings.TrimRight(s, "/?")

	return collapseSlashes(s)
}

func collapseSlashes(s string) string {
	if !strings.Contains(s, "//") {
		return s
	}
	var sb strings.Builder
	sb.Grow(len(s))
	prevSlash := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		sb.WriteByte(c)
	}
	return sb.String()
}
