package policy

import "errors"

var (
	// ErrInvalidPolicy is returned when a domain policy name is not one of
	// any, same-sld, same-tld or strict. It indicates a configuration defect.
	ErrInvalidPolicy = errors.New("invalid domain policy: use one of any, same-sld, same-tld, strict")

	// ErrInvalidPattern is returned when a whitelist or blacklist entry is
	// not a valid regular expression.
	ErrInvalidPattern = errors.New("invalid link filter pattern")
)
