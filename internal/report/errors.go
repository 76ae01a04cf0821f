package report

import "errors"

// ErrUnknownFormat is returned by New for an unsupported output format.
var ErrUnknownFormat = errors.New("unknown report format: use one of text, json, markdown")
