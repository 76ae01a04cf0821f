package policy

import (
	"fmt"
	"regexp"
)

// LinkFilter applies a route's whitelist and blacklist.
// A nil *LinkFilter allows every URL.
type LinkFilter struct {
	whitelist []*regexp.Regexp
	blacklist []*regexp.Regexp
}

// NewLinkFilter compiles the given regex bodies.
// Every pattern is compiled case-insensitively and unanchored, so it matches
// when found anywhere in the URL.
func NewLinkFilter(whitelist, blacklist []string) (*LinkFilter, error) {
	wl, err := compilePatterns(whitelist)
	if err != nil {
		return nil, err
	}
	bl, err := compilePatterns(blacklist)
	if err != nil {
		return nil, err
	}
	return &LinkFilter{whitelist: wl, blacklist: bl}, nil
}

func compilePatterns(patterns []string) ([]*regexp.Regexp, error) {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, p, err)
		}
		compiled = append(compiled, re)
	}
	return compiled, nil
}

// Allows reports whether a link may be followed.
//
// With a non-empty whitelist the URL must match at least one entry, otherwise
// it is rejected without consulting the blacklist. A URL that passed the gate
// is then rejected if any blacklist entry matches.
func (f *LinkFilter) Allows(u string) bool {
	if f == nil {
		return true
	}
	if len(f.whitelist) > 0 && !matchAny(f.whitelist, u) {
		return false
	}
	return !matchAny(f.blacklist, u)
}

// Empty reports whether the filter has no patterns at all.
func (f *LinkFilter) Empty() bool {
	return f == nil || (len(f.whitelist) == 0 && len(f.blacklist) == 0)
}

func matchAny(patterns []*regexp.Regexp, u string) bool {
	for _, re := range patterns {
		if re.MatchString(u) {
			return true
		}
	}
	return false
}
