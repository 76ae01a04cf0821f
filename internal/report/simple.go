package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/nao1215/routecrawl/internal/model"
)

// SimpleWriter outputs human-readable text reports.
type SimpleWriter struct {
	baseWriter

	// verbose lists every stored result after the route summaries.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables the per-result listing.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the report in human-readable format.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeRoutes(&sb, report)
	if w.verbose {
		w.writeResults(&sb, report)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

// writeHeader writes the run information and totals.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                        ROUTECRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Started:        %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Elapsed:        %s\n", report.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(sb, "Routes:         %d\n", len(report.Routes))
	fmt.Fprintf(sb, "Pages stored:   %d\n", len(report.Results))
	fmt.Fprintf(sb, "Fetched:        %d\n", report.TotalFetched())
	fmt.Fprintf(sb, "Cache hits:     %d\n", report.TotalCacheHits())
	fmt.Fprintf(sb, "Failures:       %d\n", report.TotalFailures())
	fmt.Fprintf(sb, "Pruned links:   %d\n", report.TotalPruned())
	fmt.Fprintf(sb, "Status:         %s\n", status(report))
	sb.WriteString("\n")
}

// writeRoutes writes one block per route.
func (w *SimpleWriter) writeRoutes(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("ROUTES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Routes) == 0 {
		sb.WriteString("  No routes crawled\n\n")
		return
	}

	for _, r := range report.Routes {
		marker := "+"
		if r.Cancelled {
			marker = "!"
		}
		fmt.Fprintf(sb, "  [%s] %s  %s\n", marker, r.Name, r.Seed)
		fmt.Fprintf(sb, "      depth %d, domain %s, %s\n", r.Depth, r.Domain, r.Elapsed.Round(time.Millisecond))
		fmt.Fprintf(sb, "      fetched %d, cache hits %d, failures %d\n", r.Fetched, r.CacheHits, r.Failures)
		fmt.Fprintf(sb, "      pruned by domain %d, by filter %d\n", r.PrunedByDomain, r.PrunedByFilter)
	}
	sb.WriteString("\n")
}

// writeResults lists every stored page in store order.
func (w *SimpleWriter) writeResults(sb *strings.Builder, report *model.RunReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("RESULTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if len(report.Results) == 0 {
		sb.WriteString("  No results stored\n\n")
		return
	}

	for _, res := range report.Results {
		fmt.Fprintf(sb, "  * %s\n", res.URL)
		fmt.Fprintf(sb, "    hits %d, links %d, %d bytes\n", res.Hits, len(res.Links), len(res.Body))
		if !res.HasContent() {
			sb.WriteString("    no content\n")
		}
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by routecrawl\n")
	sb.WriteString("https://github.com/nao1215/routecrawl\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
