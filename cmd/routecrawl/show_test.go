package main

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/routecrawl/internal/model"
)

// TestNewShowCmd tests the show command flags.
func TestNewShowCmd(t *testing.T) {
	t.Parallel()

	cmd := NewShowCmd()
	for _, name := range []string{"storage", "db-dir", "dsn", "memcached", "filter", "report"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("expected %s flag", name)
		}
	}
}

// TestRunShowCmd crawls into SQLite and lists the cache afterwards.
func TestRunShowCmd(t *testing.T) {
	t.Parallel()

	t.Run("lists a previous crawl", func(t *testing.T) {
		t.Parallel()

		site := newSite(t)
		dir := t.TempDir()
		dbDir := filepath.Join(dir, "db")
		cfgPath := writeConfig(t, dir, site.URL)

		if _, stderr, err := runRoot(t, "crawl", cfgPath, "--storage", "sqlite", "--db-dir", dbDir); err != nil {
			t.Fatalf("crawl failed: %v\nstderr: %s", err, stderr)
		}

		stdout, _, err := runRoot(t, "show", "--storage", "sqlite", "--db-dir", dbDir)
		if err != nil {
			t.Fatalf("show failed: %v", err)
		}
		for _, want := range []string{"HITS", site.URL + "/a", site.URL + "/b", "3 result(s)"} {
			if !strings.Contains(stdout, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, stdout)
			}
		}

		stdout, _, err = runRoot(t, "show", "--storage", "sqlite", "--db-dir", dbDir, "--filter", "/b", "--report", "json")
		if err != nil {
			t.Fatalf("show failed: %v", err)
		}
		if !strings.Contains(stdout, site.URL+"/b") || strings.Contains(stdout, site.URL+"/a") {
			t.Errorf("expected only /b in filtered output, got:\n%s", stdout)
		}
	})

	t.Run("memory backend is rejected", func(t *testing.T) {
		t.Parallel()

		_, _, err := runRoot(t, "show", "--storage", "memory")
		if !errors.Is(err, errNotPersistent) {
			t.Errorf("expected errNotPersistent, got %v", err)
		}
	})

	t.Run("missing database is not created", func(t *testing.T) {
		t.Parallel()

		_, _, err := runRoot(t, "show", "--storage", "sqlite", "--db-dir", filepath.Join(t.TempDir(), "none"))
		if err == nil || !strings.Contains(err.Error(), "database not found") {
			t.Errorf("expected database not found, got %v", err)
		}
	})
}

// TestPrintResults tests the plain results table.
func TestPrintResults(t *testing.T) {
	t.Parallel()

	t.Run("renders one row per result", func(t *testing.T) {
		t.Parallel()

		cmd := NewShowCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)

		results := []*model.Result{
			model.NewResult("http://a.com/", []string{"http://a.com/x", "http://a.com/y"}, []byte("<html></html>")),
			model.NewResult("http://a.com/x", nil, nil),
		}
		if err := printResults(cmd, results); err != nil {
			t.Fatalf("printResults failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(out.String()), "\n")
		if len(lines) != 5 {
			t.Fatalf("expected header, 2 rows, blank line and count, got:\n%s", out.String())
		}
		header := strings.Fields(lines[0])
		if strings.Join(header, " ") != "HITS LINKS BYTES STORED URL" {
			t.Errorf("unexpected header %q", lines[0])
		}
		if strings.ContainsAny(out.String(), "|+│─") {
			t.Errorf("expected no borders, got:\n%s", out.String())
		}
		row := strings.Fields(lines[1])
		if row[0] != "1" || row[1] != "2" || row[2] != "13" || row[len(row)-1] != "http://a.com/" {
			t.Errorf("unexpected row %q", lines[1])
		}
		if strings.Index(lines[1], "http://a.com/") != strings.Index(lines[0], "URL") {
			t.Errorf("expected the URL column to be aligned:\n%s", out.String())
		}
		if lines[4] != "2 result(s)" {
			t.Errorf("unexpected count line %q", lines[4])
		}
	})

	t.Run("empty list", func(t *testing.T) {
		t.Parallel()

		cmd := NewShowCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		if err := printResults(cmd, nil); err != nil {
			t.Fatalf("printResults failed: %v", err)
		}
		if out.String() != "No stored results.\n" {
			t.Errorf("unexpected output %q", out.String())
		}
	})
}
