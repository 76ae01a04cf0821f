package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/routecrawl/internal/model"
)

// maxMarkdownResults caps the result table; larger runs are better read as JSON.
const maxMarkdownResults = 200

// MarkdownWriter outputs reports in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the report in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeRoutes(md, report)
	w.writeResults(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run overview table, the visit chart and a status alert.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport) {
	md.H1("routecrawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Elapsed", report.Elapsed.Round(time.Millisecond).String()},
			{"Routes", strconv.Itoa(len(report.Routes))},
			{"Pages Stored", strconv.Itoa(len(report.Results))},
			{"Status", w.getStatusText(report)},
		},
	})
	md.PlainText("")

	if report.TotalFetched()+report.TotalCacheHits() > 0 {
		w.writePieChart(md, report)
	}
	w.writeAlert(md, report)
}

// getStatusText returns the status text based on report state.
func (w *MarkdownWriter) getStatusText(report *model.RunReport) string {
	switch s := status(report); {
	case report.Error != "":
		return "❌ " + s
	case s != "Complete":
		return "⚠️ " + s
	default:
		return "✅ Complete"
	}
}

// writePieChart writes a mermaid pie chart of how pages were visited.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.RunReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Page Visits"),
		piechart.WithShowData(true),
	)

	failures := report.TotalFailures()
	if ok := report.TotalFetched() - failures; ok > 0 {
		chart.LabelAndIntValue("Fetched", uint64(ok))
	}
	if hits := report.TotalCacheHits(); hits > 0 {
		chart.LabelAndIntValue("Cache Hits", uint64(hits))
	}
	if failures > 0 {
		chart.LabelAndIntValue("No Content", uint64(failures))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert summarizing the run outcome.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.RunReport) {
	switch failures := report.TotalFailures(); {
	case report.Error != "":
		md.Cautionf("The run stopped early: %s", report.Error)
	case failures > 0:
		md.Warningf("%d page(s) returned no content.", failures)
	case len(report.Results) == 0:
		md.Note("No pages were stored.")
	default:
		md.Tip("Every visited page returned content.")
	}
	md.PlainText("")
}

// writeRoutes writes the per-route summary table.
func (w *MarkdownWriter) writeRoutes(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Routes")
	md.PlainText("")

	if len(report.Routes) == 0 {
		md.PlainText("No routes crawled.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(report.Routes))
	for i, r := range report.Routes {
		rows[i] = []string{
			r.Name,
			"`" + truncateString(r.Seed, 60) + "`",
			strconv.Itoa(r.Depth),
			r.Domain,
			strconv.Itoa(r.Fetched),
			strconv.Itoa(r.CacheHits),
			strconv.Itoa(r.Failures),
			strconv.Itoa(r.PrunedByDomain),
			strconv.Itoa(r.PrunedByFilter),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Route", "Seed", "Depth", "Domain", "Fetched", "Cache Hits", "Failures", "Pruned (domain)", "Pruned (filter)"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeResults writes the stored results table.
func (w *MarkdownWriter) writeResults(md *markdown.Markdown, report *model.RunReport) {
	md.H2("Results")
	md.PlainText("")

	if len(report.Results) == 0 {
		md.PlainText("No results stored.")
		md.PlainText("")
		return
	}

	results := report.Results
	if len(results) > maxMarkdownResults {
		results = results[:maxMarkdownResults]
	}

	rows := make([][]string, len(results))
	for i, r := range results {
		size := strconv.Itoa(len(r.Body))
		if !r.HasContent() {
			size = "-"
		}
		rows[i] = []string{
			"`" + truncateString(r.URL, 80) + "`",
			strconv.Itoa(r.Hits),
			strconv.Itoa(len(r.Links)),
			size,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Hits", "Links", "Bytes"},
		Rows:   rows,
	})
	md.PlainText("")

	if omitted := len(report.Results) - len(results); omitted > 0 {
		md.PlainTextf("*%d more result(s) omitted.*", omitted)
		md.PlainText("")
	}
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [routecrawl](https://github.com/nao1215/routecrawl)*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
