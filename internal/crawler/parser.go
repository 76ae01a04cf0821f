package crawler

import (
	"bytes"
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/charset"
)

// skippedSchemes are href prefixes that never lead to a crawlable page.
var skippedSchemes = []string{"javascript:", "mailto:", "tel:", "data:"}

// Parser extracts anchor targets from HTML documents.
// It is stateless and safe for concurrent use.
type Parser struct{}

// NewParser creates a new HTML link parser.
func NewParser() *Parser {
	return &Parser{}
}

// ExtractLinks returns the absolute targets of every <a href> in body, in
// document order. Duplicates are kept.
//
// Relative hrefs are resolved against the document's <base href> when it has
// one, and against pageURL otherwise. The body's charset is sniffed from its
// BOM and <meta> declarations before parsing.
func (p *Parser) ExtractLinks(body []byte, pageURL string) ([]string, error) {
	links := make([]string, 0)
	if len(body) == 0 {
		return links, nil
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return links, fmt.Errorf("%w: %q: %v", ErrInvalidURL, pageURL, err)
	}

	reader, err := charset.NewReader(bytes.NewReader(body), "")
	if err != nil {
		return links, fmt.Errorf("failed to decode document %s: %w", pageURL, err)
	}
	doc, err := html.Parse(reader)
	if err != nil {
		return links, fmt.Errorf("failed to parse document %s: %w", pageURL, err)
	}

	var hrefs []string
	baseSet := false
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "a":
				if href, ok := getAttr(n, "href"); ok {
					hrefs = append(hrefs, href)
				}
			case "base":
				// Only the first <base href> counts.
				if href, ok := getAttr(n, "href"); ok && !baseSet {
					if u, err := url.Parse(strings.TrimSpace(href)); err == nil {
						base = base.ResolveReference(u)
						baseSet = true
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)

	for _, href := range hrefs {
		if resolved := resolveURL(base, href); resolved != "" {
			links = append(links, resolved)
		}
	}
	return links, nil
}

// resolveURL resolves href against base. It returns "" for hrefs that do not
// point at a page: empty or bare fragment references and the schemes in
// skippedSchemes.
func resolveURL(base *url.URL, href string) string {
	href = strings.TrimSpace(href)
	if href == "" || href == "#" {
		return ""
	}
	lower := strings.ToLower(href)
	for _, scheme := range skippedSchemes {
		if strings.HasPrefix(lower, scheme) {
			return ""
		}
	}

	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(u).String()
}

// getAttr retrieves an attribute value from an HTML node and reports whether
// the attribute is present.
func getAttr(n *html.Node, key string) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val, true
		}
	}
	return "", false
}
