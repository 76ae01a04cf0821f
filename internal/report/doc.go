// Package report renders a crawl run's RunReport.
//
// This package contains writers for different output formats:
//   - SimpleWriter: human-readable text for the terminal
//   - JSONWriter: structured JSON for tool integration
//   - MarkdownWriter: Markdown with a route table and a mermaid chart
//
// Writers implement the Writer interface, so they can be used
// interchangeably and combined with MultiWriter.
package report
