package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/routecrawl/internal/policy"
	"github.com/nao1215/routecrawl/internal/storage"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default storage is memory", func(t *testing.T) {
		t.Parallel()
		if cfg.Storage != storage.BackendMemory {
			t.Errorf("expected Storage to be memory, got %q", cfg.Storage)
		}
	})

	t.Run("default workers is 1", func(t *testing.T) {
		t.Parallel()
		if cfg.Workers != 1 {
			t.Errorf("expected Workers to be 1, got %d", cfg.Workers)
		}
	})

	t.Run("default max body size is 10MB", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxBodySize != 10*1024*1024 {
			t.Errorf("expected MaxBodySize to be 10MB, got %d", cfg.MaxBodySize)
		}
	})

	t.Run("default db dir is under XDG data home", func(t *testing.T) {
		t.Parallel()
		if !strings.HasSuffix(cfg.DBDir, AppName) {
			t.Errorf("expected DBDir to end with %q, got %q", AppName, cfg.DBDir)
		}
	})

	t.Run("default report is text", func(t *testing.T) {
		t.Parallel()
		if cfg.ReportFormat != ReportText {
			t.Errorf("expected ReportFormat to be text, got %q", cfg.ReportFormat)
		}
	})

	t.Run("defaults validate", func(t *testing.T) {
		t.Parallel()
		if err := cfg.Validate(); err != nil {
			t.Errorf("expected default config to be valid, got %v", err)
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{"mysql without dsn", func(c *Config) { c.Storage = storage.BackendMySQL }, ErrMissingDSN},
		{"mysql with dsn", func(c *Config) { c.Storage = "MySQL"; c.DSN = "u:p@tcp(db:3306)/crawl" }, nil},
		{"memcached without servers", func(c *Config) { c.Storage = storage.BackendMemcached; c.MemcachedServers = " " }, ErrMissingMemcached},
		{"unknown storage", func(c *Config) { c.Storage = "redis" }, storage.ErrUnknownBackend},
		{"zero workers", func(c *Config) { c.Workers = 0 }, ErrInvalidWorkers},
		{"negative sleep", func(c *Config) { c.Sleep = -time.Millisecond }, ErrInvalidSleep},
		{"negative max body", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"unknown report", func(c *Config) { c.ReportFormat = "html" }, ErrInvalidReportFormat},
		{"unknown log format", func(c *Config) { c.LogFormat = "xml" }, ErrInvalidLogFormat},
		{"proxy and tor", func(c *Config) { c.ProxyAddress = "127.0.0.1:9050"; c.UseTor = true }, ErrConflictingProxy},
		{"markdown report", func(c *Config) { c.ReportFormat = ReportMarkdown }, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestApplyFileOptions verifies that command line flags win over file options.
func TestApplyFileOptions(t *testing.T) {
	t.Parallel()

	sleep := 250
	workers := 4
	maxBody := int64(1024)
	opts := Options{Sleep: &sleep, Workers: &workers, MaxBodySize: &maxBody, UserAgent: "bot/1"}

	t.Run("file fills unset flags", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.ApplyFileOptions(opts, func(string) bool { return false })

		if cfg.Sleep != 250*time.Millisecond {
			t.Errorf("expected sleep 250ms, got %v", cfg.Sleep)
		}
		if cfg.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", cfg.Workers)
		}
		if cfg.MaxBodySize != 1024 {
			t.Errorf("expected max body 1024, got %d", cfg.MaxBodySize)
		}
		if cfg.UserAgent != "bot/1" {
			t.Errorf("expected user agent bot/1, got %q", cfg.UserAgent)
		}
	})

	t.Run("changed flags are kept", func(t *testing.T) {
		t.Parallel()
		cfg := NewConfig()
		cfg.Sleep = 0
		cfg.Workers = 2
		cfg.ApplyFileOptions(opts, func(flag string) bool { return flag == "sleep" || flag == "workers" })

		if cfg.Sleep != 0 {
			t.Errorf("expected --sleep 0 to win, got %v", cfg.Sleep)
		}
		if cfg.Workers != 2 {
			t.Errorf("expected --workers 2 to win, got %d", cfg.Workers)
		}
	})
}

// TestParse tests config document resolution.
func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("routes keep file order and merge defaults", func(t *testing.T) {
		t.Parallel()

		f, err := Parse([]byte(`
options:
  sleep: 500
routes:
  zeta:
    url: http://z.example.com/
  defaults:
    depth: 2
    domain: any
    timeout: 3
  alpha:
    url: http://a.example.com/
    depth: 0
    domain: strict
    whitelist: ['/docs/']
    blacklist: ['\.pdf$']
  mid:
    url: http://m.example.com/
    http.auth: "user:secret"
`))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}

		if f.Options.SleepDuration() != 500*time.Millisecond {
			t.Errorf("expected sleep 500ms, got %v", f.Options.SleepDuration())
		}

		names := make([]string, 0, len(f.Routes))
		for _, r := range f.Routes {
			names = append(names, r.Name)
		}
		if strings.Join(names, ",") != "zeta,alpha,mid" {
			t.Errorf("unexpected route order: %v", names)
		}

		zeta, alpha, mid := f.Routes[0], f.Routes[1], f.Routes[2]
		if zeta.Depth != 2 || zeta.Domain != policy.Any || zeta.Timeout != 3*time.Second {
			t.Errorf("defaults not applied to zeta: %+v", zeta)
		}
		if alpha.Depth != 0 {
			t.Errorf("explicit depth 0 must override default 2, got %d", alpha.Depth)
		}
		if alpha.Domain != policy.Strict {
			t.Errorf("expected strict domain, got %s", alpha.Domain)
		}
		if !alpha.Filter.Allows("http://a.example.com/docs/x") || alpha.Filter.Allows("http://a.example.com/docs/x.PDF") {
			t.Error("alpha filter not compiled from whitelist and blacklist")
		}
		if mid.HTTPAuth != "user:secret" {
			t.Errorf("expected http.auth to be accepted, got %q", mid.HTTPAuth)
		}
		if zeta.HTTPAuth != "" || !zeta.Filter.Empty() {
			t.Errorf("unexpected auth or filter on zeta: %+v", zeta)
		}
	})

	t.Run("built-in defaults apply without a defaults record", func(t *testing.T) {
		t.Parallel()

		f, err := Parse([]byte("routes:\n  only:\n    url: http://example.com\n"))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		r := f.Routes[0]
		if r.Depth != 0 || r.Domain != policy.SameSLD || r.Timeout != 10*time.Second {
			t.Errorf("unexpected built-in defaults: %+v", r)
		}
		if f.Options.SleepDuration() != 0 {
			t.Errorf("expected no sleep, got %v", f.Options.SleepDuration())
		}
	})

	t.Run("httpAuth wins over http.auth", func(t *testing.T) {
		t.Parallel()

		f, err := Parse([]byte(`
routes:
  defaults:
    http.auth: "default:pw"
  r:
    url: http://example.com
    httpAuth: "route:pw"
  s:
    url: http://example.com
`))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if f.Routes[0].HTTPAuth != "route:pw" {
			t.Errorf("expected route auth, got %q", f.Routes[0].HTTPAuth)
		}
		if f.Routes[1].HTTPAuth != "default:pw" {
			t.Errorf("expected default auth, got %q", f.Routes[1].HTTPAuth)
		}
	})

	t.Run("legacy same policy is strict", func(t *testing.T) {
		t.Parallel()

		f, err := Parse([]byte("routes:\n  r:\n    url: http://example.com\n    domain: same\n"))
		if err != nil {
			t.Fatalf("Parse failed: %v", err)
		}
		if f.Routes[0].Domain != policy.Strict {
			t.Errorf("expected strict, got %s", f.Routes[0].Domain)
		}
	})
}

// TestParseErrors verifies that invalid documents fail at load time.
func TestParseErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		doc     string
		wantErr error
	}{
		{"empty document", "", ErrNoRoutes},
		{"no routes key", "options:\n  sleep: 1\n", ErrNoRoutes},
		{"routes is a list", "routes:\n  - a\n", ErrMalformedConfig},
		{"top level is a list", "- a\n", ErrMalformedConfig},
		{"invalid yaml", "routes: [\n", ErrMalformedConfig},
		{"missing url", "routes:\n  r:\n    depth: 1\n", ErrMissingURL},
		{"negative depth", "routes:\n  r:\n    url: http://a.com\n    depth: -1\n", ErrInvalidDepth},
		{"zero timeout", "routes:\n  r:\n    url: http://a.com\n    timeout: 0\n", ErrInvalidTimeout},
		{"unknown domain", "routes:\n  r:\n    url: http://a.com\n    domain: foo\n", policy.ErrInvalidPolicy},
		{"bad pattern", "routes:\n  r:\n    url: http://a.com\n    whitelist: ['(']\n", policy.ErrInvalidPattern},
		{"negative sleep", "options:\n  sleep: -5\nroutes:\n  r:\n    url: http://a.com\n", ErrInvalidSleep},
		{"zero workers", "options:\n  workers: 0\nroutes:\n  r:\n    url: http://a.com\n", ErrInvalidWorkers},
		{"duplicate route", "routes:\n  r:\n    url: http://a.com\n  r:\n    url: http://b.com\n", ErrMalformedConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(tt.doc))
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

// TestParseWithoutRoutes verifies that a routes section without named routes is valid.
func TestParseWithoutRoutes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		doc       string
		wantDepth int
	}{
		{"only defaults", "options:\n  sleep: 0\nroutes:\n  defaults:\n    depth: 1\n", 1},
		{"null routes", "routes:\n", 0},
		{"empty mapping", "routes: {}\n", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			f, err := Parse([]byte(tt.doc))
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if f.Routes == nil || len(f.Routes) != 0 {
				t.Errorf("expected an empty route list, got %v", f.Routes)
			}
			if f.Defaults.Depth != nil && *f.Defaults.Depth != tt.wantDepth {
				t.Errorf("expected default depth %d, got %d", tt.wantDepth, *f.Defaults.Depth)
			}
		})
	}
}

// TestResolve tests route merging outside of a file.
func TestResolve(t *testing.T) {
	t.Parallel()

	depth := 3
	wl := []string{"a"}
	defaults := RouteSpec{Depth: &depth, Whitelist: &wl}

	t.Run("route clears default whitelist with empty list", func(t *testing.T) {
		t.Parallel()
		empty := []string{}
		r, err := Resolve("r", defaults, RouteSpec{URL: "http://x.com", Whitelist: &empty})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if len(r.Whitelist) != 0 || !r.Filter.Allows("http://x.com/b") {
			t.Errorf("expected empty whitelist, got %v", r.Whitelist)
		}
		if r.Depth != 3 {
			t.Errorf("expected depth 3, got %d", r.Depth)
		}
	})

	t.Run("resolved slices are private copies", func(t *testing.T) {
		t.Parallel()
		list := []string{"docs"}
		r, err := Resolve("r", RouteSpec{}, RouteSpec{URL: "http://x.com", Whitelist: &list})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		list[0] = "mutated"
		if r.Whitelist[0] != "docs" {
			t.Errorf("route shares caller's slice: %v", r.Whitelist)
		}
	})

	t.Run("string hides credentials", func(t *testing.T) {
		t.Parallel()
		auth := "user:secret"
		r, err := Resolve("r", RouteSpec{}, RouteSpec{URL: "http://x.com", HTTPAuth: &auth})
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if strings.Contains(r.String(), "secret") {
			t.Errorf("route string leaks credentials: %s", r.String())
		}
	})
}

// TestLoadConfigFile tests loading the config from disk.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("missing file returns ErrConfigNotFound", func(t *testing.T) {
		t.Parallel()
		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope.yaml"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("loads and records path", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), DefaultConfigFile)
		if err := os.WriteFile(path, []byte("routes:\n  r:\n    url: http://a.com\n"), 0600); err != nil {
			t.Fatal(err)
		}
		f, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("LoadConfigFile failed: %v", err)
		}
		if f.Path != path || len(f.Routes) != 1 {
			t.Errorf("unexpected file: %+v", f)
		}
	})

	t.Run("parse errors name the file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "bad.yaml")
		if err := os.WriteFile(path, []byte("routes:\n  r:\n    depth: 1\n"), 0600); err != nil {
			t.Fatal(err)
		}
		_, err := LoadConfigFile(path)
		if !errors.Is(err, ErrMissingURL) || !strings.Contains(err.Error(), path) {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

// TestFindConfigFile tests the explicit-path branch of the search.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "custom.yaml")
	if err := os.WriteFile(path, []byte("routes: {}\n"), 0600); err != nil {
		t.Fatal(err)
	}

	if got := FindConfigFile(path); got != path {
		t.Errorf("expected %q, got %q", path, got)
	}
	if got := FindConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); got != "" {
		t.Errorf("expected empty path for missing file, got %q", got)
	}
}
