package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nao1215/routecrawl/internal/config"
	"github.com/nao1215/routecrawl/internal/crawler"
	"github.com/nao1215/routecrawl/internal/export"
	"github.com/nao1215/routecrawl/internal/fetcher"
	"github.com/nao1215/routecrawl/internal/log"
	"github.com/nao1215/routecrawl/internal/metrics"
	"github.com/nao1215/routecrawl/internal/model"
	"github.com/nao1215/routecrawl/internal/pipeline"
	"github.com/nao1215/routecrawl/internal/report"
	"github.com/nao1215/routecrawl/internal/storage"
)

// postRunTimeout bounds report writing and exports after the crawl.
// It also applies when the crawl itself was interrupted.
const postRunTimeout = 2 * time.Minute

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [config]",
		Short: "Crawl every route of a configuration file",
		Long: `Crawl walks the routes of a configuration file in order.

Each route starts at its seed URL and follows links depth-first up to the
route depth. A page visited once is served from the cache afterwards, even
by a later route. Progress is printed to stdout, fetch errors to stderr.

S3 credentials come from ROUTECRAWL_S3_ACCESS_KEY and ROUTECRAWL_S3_SECRET_KEY
when set, and from the default AWS credential chain otherwise.

The configuration file is searched in this order:
  1. the positional argument or --config
  2. ./routecrawl.yaml
  3. $XDG_CONFIG_HOME/routecrawl/routecrawl.yaml

Examples:
  # Crawl with the configuration in the current directory
  routecrawl crawl

  # Cache results in SQLite so a later run reuses them
  routecrawl crawl --storage sqlite routes.yaml

  # Crawl with four workers and write a Markdown report
  routecrawl crawl --workers 4 --report markdown -o report.md

  # Publish results to S3 and Kafka
  routecrawl crawl --s3-bucket crawl-results --kafka-brokers localhost:9092

  # Crawl .onion routes through an embedded Tor daemon
  routecrawl crawl --tor`,
		Args: cobra.MaximumNArgs(1),
		RunE: runCrawlCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: routecrawl.yaml in current or XDG config directory)")
	addStorageFlags(cmd)

	// Crawl behavior flags
	cmd.Flags().IntP("workers", "w", config.DefaultWorkers,
		"Number of concurrent workers (1 keeps the crawl sequential)")
	cmd.Flags().Duration("sleep", 0,
		"Pause after each page fetched over the network (overrides options.sleep)")
	cmd.Flags().String("user-agent", "",
		"User-Agent header (default: routecrawl/<version>)")
	cmd.Flags().Int64("max-body-size", config.DefaultMaxBodySize,
		"Maximum response body size in bytes")

	// Transport flags
	cmd.Flags().String("proxy", "",
		"Fetch through the SOCKS5 proxy at this address (e.g., 127.0.0.1:9050)")
	cmd.Flags().Bool("tor", false,
		"Fetch through an embedded Tor daemon")
	cmd.Flags().Duration("tor-timeout", config.DefaultTorStartupTimeout,
		"Timeout for embedded Tor startup")

	// Report flags
	cmd.Flags().String("report", config.ReportText,
		"Report format: text, json or markdown")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// Export flags
	cmd.Flags().String("s3-bucket", "", "Upload results to this S3 bucket")
	cmd.Flags().String("s3-region", config.DefaultS3Region, "S3 region")
	cmd.Flags().String("s3-endpoint", "", "S3 endpoint override (LocalStack, MinIO)")
	cmd.Flags().String("s3-prefix", config.DefaultS3Prefix, "Key prefix of uploaded objects")
	cmd.Flags().String("kafka-brokers", "", "Publish results to these Kafka brokers (comma separated)")
	cmd.Flags().String("kafka-topic", config.DefaultKafkaTopic, "Kafka topic")

	cmd.Flags().String("metrics-addr", "",
		"Serve Prometheus metrics at http://<addr>/metrics during the crawl")

	return cmd
}

// addStorageFlags registers the storage backend flags shared by crawl and show.
func addStorageFlags(cmd *cobra.Command) {
	cmd.Flags().String("storage", storage.BackendMemory,
		"Result cache backend: "+strings.Join(storage.Backends(), ", "))
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the SQLite database")
	cmd.Flags().String("dsn", "",
		"MySQL data source name (user:pass@tcp(host:3306)/db)")
	cmd.Flags().String("memcached", "",
		"Memcached servers (comma separated host:port)")
}

// runCrawlCmd executes the crawl command.
func runCrawlCmd(cmd *cobra.Command, args []string) error {
	v, err := newSettings(cmd)
	if err != nil {
		return err
	}

	cfg := buildConfig(v, args)

	file, err := loadConfigFile(cfg.ConfigFilePath)
	if err != nil {
		return err
	}
	cfg.ApplyFileOptions(file.Options, v.IsSet)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(cmd.ErrOrStderr(), cfg.LogFormat, cfg.Verbose)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, file.Routes, logger, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildConfig creates a Config from flags and ROUTECRAWL_* variables.
func buildConfig(v *viper.Viper, args []string) *config.Config {
	cfg := config.NewConfig()

	cfg.ConfigFilePath = v.GetString("config")
	if len(args) > 0 {
		cfg.ConfigFilePath = args[0]
	}

	cfg.Storage = v.GetString("storage")
	cfg.DBDir = v.GetString("db-dir")
	cfg.DSN = v.GetString("dsn")
	cfg.MemcachedServers = v.GetString("memcached")

	cfg.Workers = v.GetInt("workers")
	cfg.Sleep = v.GetDuration("sleep")
	cfg.UserAgent = v.GetString("user-agent")
	cfg.MaxBodySize = v.GetInt64("max-body-size")

	cfg.ProxyAddress = v.GetString("proxy")
	cfg.UseTor = v.GetBool("tor")
	cfg.TorStartupTimeout = v.GetDuration("tor-timeout")

	cfg.ReportFormat = v.GetString("report")
	cfg.ReportFile = v.GetString("output")

	cfg.S3Bucket = v.GetString("s3-bucket")
	cfg.S3Region = v.GetString("s3-region")
	cfg.S3Endpoint = v.GetString("s3-endpoint")
	cfg.S3Prefix = v.GetString("s3-prefix")
	cfg.KafkaBrokers = v.GetString("kafka-brokers")
	cfg.KafkaTopic = v.GetString("kafka-topic")

	cfg.MetricsAddr = v.GetString("metrics-addr")

	cfg.LogFormat = v.GetString("log-format")
	cfg.Verbose = v.GetBool("verbose")

	return cfg
}

// loadConfigFile finds and loads the route configuration.
// An explicit path must exist; otherwise the default locations are searched.
func loadConfigFile(explicitPath string) (*config.File, error) {
	path := config.FindConfigFile(explicitPath)
	if path == "" {
		if explicitPath != "" {
			return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, explicitPath)
		}
		return nil, fmt.Errorf("%w: no %s in the current directory or %s (run 'routecrawl init' to create one)",
			config.ErrConfigNotFound, config.DefaultConfigFile, config.XDGConfigDir())
	}

	file, err := config.LoadConfigFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}
	return file, nil
}

// runCrawl crawls routes and then writes the report and runs the exports.
//
// The report and exports also run when the crawl failed or was interrupted,
// on whatever the storage holds at that point. Their own failures are only
// logged. The returned error is the crawl error.
func runCrawl(ctx context.Context, cfg *config.Config, routes []config.Route, logger *slog.Logger, stdout, stderr io.Writer) error {
	console := log.NewConsole(stdout, stderr)

	logger.Info("starting crawl",
		"routes", len(routes),
		"storage", cfg.Storage,
		"workers", cfg.Workers,
		"sleep", cfg.Sleep,
	)

	store, err := storage.Open(cfg.StorageConfig())
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close storage", "error", err)
		}
	}()
	if db, ok := store.(*storage.SQL); ok && db.Path() != "" {
		logger.Info("using SQLite database", "path", db.Path())
	}

	// Exporters are created up front so that a bad export setting fails
	// before any page is fetched.
	exporters, err := newExporters(ctx, cfg, logger)
	if err != nil {
		return err
	}
	var exportStep *pipeline.ExportStep
	if len(exporters) > 0 {
		exportStep = pipeline.NewExportStep(exporters, pipeline.WithExportLogger(logger))
		defer func() {
			if err := exportStep.Close(); err != nil {
				logger.Warn("failed to close exporters", "error", err)
			}
		}()
	}

	f, cleanup, err := newFetcher(ctx, cfg, console, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	collector := metrics.NewCollector()
	if cfg.MetricsAddr != "" {
		stopMetrics, err := collector.Serve(cfg.MetricsAddr, logger)
		if err != nil {
			return fmt.Errorf("failed to start metrics server: %w", err)
		}
		defer stopMetrics()
	}

	engine, err := crawler.NewEngine(store, f,
		crawler.WithSleep(cfg.Sleep),
		crawler.WithWorkers(cfg.Workers),
		crawler.WithConsole(console),
		crawler.WithLogger(logger),
		crawler.WithObserver(collector),
	)
	if err != nil {
		return err
	}

	runReport, crawlErr := engine.Run(ctx, routes)
	if crawlErr != nil && ctx.Err() != nil {
		logger.Warn("crawl interrupted, reporting partial results", "reason", ctx.Err())
	}

	finishRun(ctx, cfg, runReport, exportStep, stdout, logger)

	if crawlErr != nil {
		return fmt.Errorf("crawl failed: %w", crawlErr)
	}
	return nil
}

// finishRun writes the report and runs the exports, if any, with a context
// that outlives an interrupted crawl.
func finishRun(ctx context.Context, cfg *config.Config, runReport *model.RunReport, exportStep *pipeline.ExportStep, stdout io.Writer, logger *slog.Logger) {
	postCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), postRunTimeout)
	defer cancel()

	p := pipeline.New(
		pipeline.WithLogger(logger),
		pipeline.WithContinueOnError(true),
	)

	output, closeOutput, err := openReportOutput(cfg.ReportFile, stdout)
	if err != nil {
		logger.Error("report failed", "error", err)
	} else {
		defer closeOutput()
		writer, err := report.New(cfg.ReportFormat, output, getVersion())
		if err != nil {
			logger.Error("report failed", "error", err)
		} else {
			p.AddStep(pipeline.NewReportStep(cfg.ReportFormat, writer))
		}
	}

	if exportStep != nil {
		p.AddStep(exportStep)
	}

	if err := p.Execute(postCtx, runReport); err != nil {
		logger.Error("post-run steps failed", "error", err)
	}
}

// newExporters creates the exporters enabled by cfg.
func newExporters(ctx context.Context, cfg *config.Config, logger *slog.Logger) ([]export.Exporter, error) {
	var exporters []export.Exporter

	if cfg.S3Bucket != "" {
		s3Exporter, err := export.NewS3Exporter(ctx, export.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			Prefix:    cfg.S3Prefix,
			AccessKey: os.Getenv(envPrefix + "_S3_ACCESS_KEY"),
			SecretKey: os.Getenv(envPrefix + "_S3_SECRET_KEY"),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create s3 exporter: %w", err)
		}
		exporters = append(exporters, s3Exporter)
	}

	if cfg.KafkaBrokers != "" {
		kafkaExporter, err := export.NewKafkaExporter(export.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		}, logger)
		if err != nil {
			return nil, errors.Join(fmt.Errorf("failed to create kafka exporter: %w", err), closeAll(exporters))
		}
		exporters = append(exporters, kafkaExporter)
	}

	return exporters, nil
}

func closeAll(exporters []export.Exporter) error {
	var errs []error
	for _, e := range exporters {
		errs = append(errs, e.Close())
	}
	return errors.Join(errs...)
}

// newFetcher creates the transport selected by cfg. The returned cleanup
// stops the embedded Tor daemon when one was started.
func newFetcher(ctx context.Context, cfg *config.Config, console *log.Console, logger *slog.Logger) (fetcher.Fetcher, func(), error) {
	opts := []fetcher.HTTPOption{
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
	}
	cleanup := func() {}

	logger.Warn("TLS certificate verification is disabled for crawled sites")

	switch {
	case cfg.UseTor:
		console.Log("starting embedded Tor daemon, this may take a few minutes...")
		tor := fetcher.NewEmbeddedTor(fetcher.WithStartupTimeout(cfg.TorStartupTimeout))
		if err := tor.Start(ctx); err != nil {
			return nil, nil, err
		}
		cleanup = func() {
			logger.Info("stopping embedded Tor daemon")
			if err := tor.Stop(); err != nil {
				logger.Error("failed to stop embedded Tor", "error", err)
			}
		}

		f, err := tor.NewFetcher(userAgent(), opts...)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if err := fetcher.CheckSOCKS5(ctx, tor.SocksAddr()).Err(); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("embedded Tor proxy check failed: %w", err)
		}
		logger.Info("embedded Tor daemon started", "socksAddr", f.ProxyAddress())
		return f, cleanup, nil

	case cfg.ProxyAddress != "":
		if err := fetcher.CheckSOCKS5(ctx, cfg.ProxyAddress).Err(); err != nil {
			return nil, nil, fmt.Errorf("proxy check failed for %s: %w", cfg.ProxyAddress, err)
		}
		f, err := fetcher.NewHTTPFetcher(userAgent(), append(opts, fetcher.WithSOCKS5Proxy(cfg.ProxyAddress))...)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("fetching through SOCKS5 proxy", "address", f.ProxyAddress())
		return f, cleanup, nil

	default:
		f, err := fetcher.NewHTTPFetcher(userAgent(), opts...)
		if err != nil {
			return nil, nil, err
		}
		return f, cleanup, nil
	}
}

// openReportOutput returns stdout, or the file at path created with
// owner-only permissions.
func openReportOutput(path string, stdout io.Writer) (io.Writer, func(), error) {
	if path == "" {
		return stdout, func() {}, nil
	}

	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Stored pages may come from authenticated routes.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) //nolint:gosec // User-provided output path is intentional
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // Write errors surface through the writer
}
