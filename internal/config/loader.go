package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = "routecrawl.yaml"

// defaultsKey names the routes entry holding route defaults rather than a route.
const defaultsKey = "defaults"

// Options holds the crawl-wide options of the config file.
type Options struct {
	// Sleep is the pause in milliseconds after each live fetch.
	Sleep *int `yaml:"sleep,omitempty"`

	// UserAgent replaces the default User-Agent header when set.
	UserAgent string `yaml:"userAgent,omitempty"`

	// MaxBodySize caps response bodies in bytes.
	MaxBodySize *int64 `yaml:"maxBodySize,omitempty"`

	// Workers enables bounded concurrent crawling when greater than one.
	Workers *int `yaml:"workers,omitempty"`
}

// SleepDuration returns the configured sleep, or zero when unset.
func (o Options) SleepDuration() time.Duration {
	if o.Sleep == nil {
		return 0
	}
	return time.Duration(*o.Sleep) * time.Millisecond
}

// File is a loaded and resolved configuration file.
type File struct {
	// Path is where the file was read from, empty when parsed from memory.
	Path string

	// Options are the crawl-wide options.
	Options Options

	// Defaults is the routes.defaults record as written.
	Defaults RouteSpec

	// Routes are the resolved routes in file order.
	Routes []Route
}

// LoadConfigFile reads and resolves the configuration file at path.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, err
	}

	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	f.Path = path
	return f, nil
}

// Parse resolves a YAML configuration document.
//
// The document is decoded through yaml.Node rather than a map so that routes
// keep the order in which they are written.
func Parse(data []byte) (*File, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedConfig, err)
	}
	if root.Kind == 0 || len(root.Content) == 0 {
		return nil, ErrNoRoutes
	}

	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: top level must be a mapping", ErrMalformedConfig)
	}

	f := &File{Routes: []Route{}}
	var routes *yaml.Node
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, value := doc.Content[i], doc.Content[i+1]
		switch key.Value {
		case "options":
			if err := value.Decode(&f.Options); err != nil {
				return nil, fmt.Errorf("%w: options: %v", ErrMalformedConfig, err)
			}
		case "routes":
			routes = value
		}
	}

	if err := validateOptions(f.Options); err != nil {
		return nil, err
	}

	if routes == nil {
		return nil, ErrNoRoutes
	}
	if isNull(routes) {
		return f, nil
	}
	if routes.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: routes must be a mapping", ErrMalformedConfig)
	}

	// defaults may appear anywhere in the mapping, so find it first.
	for i := 0; i+1 < len(routes.Content); i += 2 {
		if routes.Content[i].Value == defaultsKey {
			if err := routes.Content[i+1].Decode(&f.Defaults); err != nil {
				return nil, fmt.Errorf("%w: routes.defaults: %v", ErrMalformedConfig, err)
			}
		}
	}

	seen := make(map[string]bool)
	for i := 0; i+1 < len(routes.Content); i += 2 {
		name := routes.Content[i].Value
		if name == defaultsKey {
			continue
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate route %q", ErrMalformedConfig, name)
		}
		seen[name] = true

		var spec RouteSpec
		if err := routes.Content[i+1].Decode(&spec); err != nil {
			return nil, fmt.Errorf("%w: route %q: %v", ErrMalformedConfig, name, err)
		}
		route, err := Resolve(name, f.Defaults, spec)
		if err != nil {
			return nil, err
		}
		f.Routes = append(f.Routes, route)
	}
	return f, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func validateOptions(o Options) error {
	if o.Sleep != nil && *o.Sleep < 0 {
		return fmt.Errorf("%w (got %d)", ErrInvalidSleep, *o.Sleep)
	}
	if o.Workers != nil && *o.Workers < 1 {
		return fmt.Errorf("%w (got %d)", ErrInvalidWorkers, *o.Workers)
	}
	if o.MaxBodySize != nil && *o.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	return nil
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for routecrawl.yaml in the current directory
// 3. Look for routecrawl.yaml in the XDG config directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	if cwd, err := os.Getwd(); err == nil {
		cwdConfig := filepath.Join(cwd, DefaultConfigFile)
		if _, err := os.Stat(cwdConfig); err == nil {
			return cwdConfig
		}
	}

	xdgConfig := filepath.Join(XDGConfigDir(), DefaultConfigFile)
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig
	}

	return ""
}
