package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"

	"github.com/nao1215/routecrawl/internal/storage"
)

// Default configuration values for the crawl command.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "routecrawl"

	// DefaultWorkers keeps the crawl sequential and depth-first.
	DefaultWorkers = 1

	// DefaultMaxBodySize limits the response body size read per page.
	DefaultMaxBodySize = 10 * 1024 * 1024 // 10MB

	// DefaultTorStartupTimeout is the maximum time to wait for the embedded
	// Tor daemon to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute

	// DefaultS3Region is used when --s3-bucket is set without a region.
	DefaultS3Region = "us-east-1"

	// DefaultS3Prefix is the key prefix of exported objects.
	DefaultS3Prefix = "routecrawl"

	// DefaultKafkaTopic receives one message per stored result.
	DefaultKafkaTopic = "routecrawl-results"
)

// Report formats accepted by --report.
const (
	ReportText     = "text"
	ReportJSON     = "json"
	ReportMarkdown = "markdown"
)

// Log formats accepted by --log-format.
const (
	LogText = "text"
	LogJSON = "json"
)

// Config holds the options of a crawl run that come from the command line or
// ROUTECRAWL_* environment variables. The routes themselves come from the
// config File.
type Config struct {
	// ConfigFilePath is the path given via --config or the positional argument.
	ConfigFilePath string

	// Storage selects the result cache backend: memory, sqlite, mysql or memcached.
	Storage string

	// DBDir is the directory of the SQLite database.
	// Defaults to the XDG data directory (~/.local/share/routecrawl on Linux).
	DBDir string

	// DSN is the MySQL data source name.
	DSN string

	// MemcachedServers is a comma separated host:port list.
	MemcachedServers string

	// Workers enables bounded concurrency when greater than one.
	Workers int

	// Sleep is the pause after each live fetch.
	Sleep time.Duration

	// UserAgent overrides the default User-Agent header when not empty.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes.
	MaxBodySize int64

	// ReportFormat is text, json or markdown.
	ReportFormat string

	// ReportFile is the output path of the report. Empty means stdout.
	ReportFile string

	// S3Bucket enables the S3 exporter when not empty.
	S3Bucket   string
	S3Region   string
	S3Endpoint string
	S3Prefix   string

	// KafkaBrokers enables the Kafka exporter when not empty.
	KafkaBrokers string
	KafkaTopic   string

	// MetricsAddr serves Prometheus metrics at /metrics when not empty.
	MetricsAddr string

	// ProxyAddress routes every fetch through a SOCKS5 proxy.
	ProxyAddress string

	// UseTor starts an embedded Tor daemon and fetches through it.
	UseTor bool

	// TorStartupTimeout bounds the embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// LogFormat is text (tint) or json.
	LogFormat string

	// Verbose enables debug logging.
	Verbose bool
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Storage:           storage.BackendMemory,
		DBDir:             XDGDataDir(),
		Workers:           DefaultWorkers,
		MaxBodySize:       DefaultMaxBodySize,
		ReportFormat:      ReportText,
		S3Region:          DefaultS3Region,
		S3Prefix:          DefaultS3Prefix,
		KafkaTopic:        DefaultKafkaTopic,
		TorStartupTimeout: DefaultTorStartupTimeout,
		LogFormat:         LogText,
	}
}

// ApplyFileOptions fills values from the config file options. A value whose
// command line flag was set (changed reports it by flag name) is kept.
func (c *Config) ApplyFileOptions(o Options, changed func(flag string) bool) {
	if !changed("sleep") && o.Sleep != nil {
		c.Sleep = o.SleepDuration()
	}
	if !changed("user-agent") && o.UserAgent != "" {
		c.UserAgent = o.UserAgent
	}
	if !changed("max-body-size") && o.MaxBodySize != nil {
		c.MaxBodySize = *o.MaxBodySize
	}
	if !changed("workers") && o.Workers != nil {
		c.Workers = *o.Workers
	}
}

// StorageConfig returns the storage.Open parameters for this run.
func (c *Config) StorageConfig() storage.Config {
	return storage.Config{
		Backend:          c.Storage,
		DBDir:            c.DBDir,
		DSN:              c.DSN,
		MemcachedServers: c.MemcachedServers,
	}
}

// XDGDataDir returns the XDG data directory for routecrawl.
// On Linux: ~/.local/share/routecrawl
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for routecrawl.
// On Linux: ~/.config/routecrawl
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Storage) {
	case storage.BackendMemory, storage.BackendSQLite, "":
	case storage.BackendMySQL:
		if c.DSN == "" {
			return ErrMissingDSN
		}
	case storage.BackendMemcached:
		if strings.TrimSpace(c.MemcachedServers) == "" {
			return ErrMissingMemcached
		}
	default:
		return fmt.Errorf("%w: %q", storage.ErrUnknownBackend, c.Storage)
	}

	if c.Workers < 1 {
		return ErrInvalidWorkers
	}

	if c.Sleep < 0 {
		return ErrInvalidSleep
	}

	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}

	switch c.ReportFormat {
	case ReportText, ReportJSON, ReportMarkdown:
	default:
		return fmt.Errorf("%w (got %q)", ErrInvalidReportFormat, c.ReportFormat)
	}

	switch c.LogFormat {
	case LogText, LogJSON:
	default:
		return fmt.Errorf("%w (got %q)", ErrInvalidLogFormat, c.LogFormat)
	}

	if c.ProxyAddress != "" && c.UseTor {
		return ErrConflictingProxy
	}

	return nil
}
