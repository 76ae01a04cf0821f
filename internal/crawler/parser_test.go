package crawler

import (
	"errors"
	"slices"
	"testing"
)

// TestParserExtractLinks tests link extraction from HTML documents.
func TestParserExtractLinks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		body    string
		pageURL string
		want    []string
	}{
		{
			name: "keeps document order and duplicates",
			body: `<html><body>
				<a href="/b">B</a>
				<a href="http://other.com/">Other</a>
				<a href="/b">B again</a>
				<a href="c.html">C</a>
			</body></html>`,
			pageURL: "http://a.com/dir/page",
			want: []string{
				"http://a.com/b",
				"http://other.com/",
				"http://a.com/b",
				"http://a.com/dir/c.html",
			},
		},
		{
			name: "skips non page references",
			body: `<a href="javascript:void(0)">js</a>
				<a href="mailto:admin@a.com">mail</a>
				<a href="TEL:123">tel</a>
				<a href="data:text/plain,hi">data</a>
				<a href="#">top</a>
				<a href="">empty</a>
				<a name="anchor">no href</a>
				<a href="#section">section</a>`,
			pageURL: "http://a.com/page",
			want:    []string{"http://a.com/page#section"},
		},
		{
			name: "honors base href",
			body: `<html><head><base href="http://cdn.a.com/root/"></head>
				<body><a href="x">X</a><a href="/y">Y</a></body></html>`,
			pageURL: "http://a.com/page",
			want:    []string{"http://cdn.a.com/root/x", "http://cdn.a.com/y"},
		},
		{
			name: "relative base href resolves against the page",
			body: `<base href="/sub/"><base href="http://ignored.com/"><a href="x">X</a>`,
			pageURL: "http://a.com/page",
			want:    []string{"http://a.com/sub/x"},
		},
		{
			name:    "trims whitespace around href",
			body:    `<a href="  /spaced  ">S</a>`,
			pageURL: "https://a.com/",
			want:    []string{"https://a.com/spaced"},
		},
		{
			name:    "non html body has no links",
			body:    `{"links": ["http://a.com/"]}`,
			pageURL: "http://a.com/",
			want:    []string{},
		},
		{
			name:    "latin-1 document",
			body:    "<meta charset=\"iso-8859-1\"><a href=\"/caf\xe9\">caf\xe9</a>",
			pageURL: "http://a.com/",
			want:    []string{"http://a.com/caf%C3%A9"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := NewParser().ExtractLinks([]byte(tt.body), tt.pageURL)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestParserEdgeCases tests inputs without a usable document or base.
func TestParserEdgeCases(t *testing.T) {
	t.Parallel()

	t.Run("empty body", func(t *testing.T) {
		t.Parallel()

		got, err := NewParser().ExtractLinks(nil, "http://a.com/")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got == nil || len(got) != 0 {
			t.Errorf("expected empty non-nil slice, got %#v", got)
		}
	})

	t.Run("invalid page URL", func(t *testing.T) {
		t.Parallel()

		got, err := NewParser().ExtractLinks([]byte(`<a href="/x">x</a>`), "http://a.com/%zz")
		if !errors.Is(err, ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got %v", err)
		}
		if len(got) != 0 {
			t.Errorf("expected no links, got %v", got)
		}
	})
}
