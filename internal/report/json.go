package report

import (
	"bytes"
	"encoding/json"
	"io"

	jsoniter "github.com/json-iterator/go"

	"github.com/nao1215/routecrawl/internal/model"
)

// jsonAPI mirrors encoding/json behavior, including field tags and map key order.
var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONWriter outputs reports in JSON format.
type JSONWriter struct {
	baseWriter

	version string

	// indent enables pretty-printed JSON output.
	indent       bool
	indentPrefix string
	indentString string

	// includeBodies keeps page bodies in the output. They are dropped by
	// default because a run can store many megabytes of markup.
	includeBodies bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
// The prefix is prepended to each line, and indent is used for each level.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint enables pretty-printed JSON with two space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// WithBodies includes the raw page bodies, base64 encoded.
func WithBodies(include bool) JSONWriterOption {
	return func(w *JSONWriter) {
		w.includeBodies = include
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// JSONReport wraps a run report with output-only metadata.
type JSONReport struct {
	// Version is the routecrawl version that produced the report.
	Version string `json:"version"`

	// Totals aggregates the route summaries.
	Totals Totals `json:"totals"`

	// Report is the run report itself.
	Report *model.RunReport `json:"report"`
}

// Totals holds run-wide counters.
type Totals struct {
	Stored    int `json:"stored"`
	Fetched   int `json:"fetched"`
	CacheHits int `json:"cache_hits"`
	Failures  int `json:"failures"`
	Pruned    int `json:"pruned"`
}

// NewJSONReport creates the JSON wrapper for report.
func NewJSONReport(report *model.RunReport, version string) *JSONReport {
	return &JSONReport{
		Version: version,
		Totals: Totals{
			Stored:    len(report.Results),
			Fetched:   report.TotalFetched(),
			CacheHits: report.TotalCacheHits(),
			Failures:  report.TotalFailures(),
			Pruned:    report.TotalPruned(),
		},
		Report: report,
	}
}

// Write outputs the report wrapped with metadata.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	if !w.includeBodies {
		report = withoutBodies(report)
	}
	return w.writeJSON(NewJSONReport(report, w.version))
}

// writeJSON marshals v and writes it followed by a newline.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	data, err := jsonAPI.Marshal(v)
	if err != nil {
		return 0, err
	}

	if w.indent {
		// jsoniter only indents with spaces and without prefix.
		var buf bytes.Buffer
		if err := json.Indent(&buf, data, w.indentPrefix, w.indentString); err != nil {
			return 0, err
		}
		data = buf.Bytes()
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

// withoutBodies returns a shallow copy of report whose results carry no body.
func withoutBodies(report *model.RunReport) *model.RunReport {
	c := *report
	c.Results = make([]*model.Result, len(report.Results))
	for i, r := range report.Results {
		stripped := *r
		stripped.Body = nil
		c.Results[i] = &stripped
	}
	return &c
}
