package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/nao1215/routecrawl/internal/config"
	"github.com/nao1215/routecrawl/internal/log"
	"github.com/nao1215/routecrawl/internal/model"
	"github.com/nao1215/routecrawl/internal/report"
	"github.com/nao1215/routecrawl/internal/storage"
)

// errNotPersistent is returned by show for backends that cannot list a
// previous run's results.
var errNotPersistent = errors.New("show requires the sqlite or mysql storage backend")

// NewShowCmd creates the show command.
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "List results cached by previous crawls",
		Long: `Show lists the pages stored in a persistent storage backend, in the order
they were first stored, with their hit counters and link counts.

Only the sqlite and mysql backends can be listed. The memory backend lives
for a single run, and memcached cannot enumerate its keys.

Examples:
  # List the SQLite cache in the XDG data directory
  routecrawl show --storage sqlite

  # Only pages whose URL contains "/docs/"
  routecrawl show --storage sqlite --filter /docs/

  # Full results as JSON
  routecrawl show --storage mysql --dsn 'user:pass@tcp(localhost:3306)/crawl' --report json`,
		Args: cobra.NoArgs,
		RunE: runShowCmd,
	}

	addStorageFlags(cmd)
	cmd.Flags().String("filter", "", "Only show URLs containing this substring")
	cmd.Flags().String("report", config.ReportText,
		"Output format: text, json or markdown")

	return cmd
}

// runShowCmd executes the show command.
func runShowCmd(cmd *cobra.Command, _ []string) error {
	v, err := newSettings(cmd)
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	cfg.Storage = strings.ToLower(v.GetString("storage"))
	cfg.DBDir = v.GetString("db-dir")
	cfg.DSN = v.GetString("dsn")
	cfg.MemcachedServers = v.GetString("memcached")
	cfg.ReportFormat = v.GetString("report")
	cfg.LogFormat = v.GetString("log-format")
	cfg.Verbose = v.GetBool("verbose")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.Storage != storage.BackendSQLite && cfg.Storage != storage.BackendMySQL {
		return fmt.Errorf("%w (got %q)", errNotPersistent, cfg.Storage)
	}

	logger := log.New(cmd.ErrOrStderr(), cfg.LogFormat, cfg.Verbose)

	store, err := openForShow(cfg)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close storage", "error", err)
		}
	}()

	results, err := store.Data(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to read stored results: %w", err)
	}
	results = filterResults(results, v.GetString("filter"))
	logger.Debug("listing stored results", "storage", cfg.Storage, "count", len(results))

	if cfg.ReportFormat != config.ReportText {
		runReport := model.NewRunReport()
		runReport.Results = results
		w, err := report.New(cfg.ReportFormat, cmd.OutOrStdout(), getVersion())
		if err != nil {
			return err
		}
		_, err = w.Write(runReport)
		return err
	}

	return printResults(cmd, results)
}

// openForShow opens the backend without creating a missing SQLite database.
func openForShow(cfg *config.Config) (storage.Storage, error) {
	if cfg.Storage == storage.BackendSQLite {
		return storage.OpenSQLite(cfg.DBDir, storage.Options{EnableWAL: true})
	}
	return storage.Open(cfg.StorageConfig())
}

// filterResults keeps the results whose URL contains substr.
func filterResults(results []*model.Result, substr string) []*model.Result {
	if substr == "" {
		return results
	}
	kept := make([]*model.Result, 0, len(results))
	for _, r := range results {
		if strings.Contains(r.URL, substr) {
			kept = append(kept, r)
		}
	}
	return kept
}

// plainStyle renders a table without borders or separators.
var plainStyle = table.Style{
	Box: table.BoxStyle{
		PaddingLeft:  "",
		PaddingRight: "  ",
	},
	Format: table.FormatOptions{
		Header: text.FormatUpper,
	},
	Options: table.Options{
		DrawBorder:      false,
		SeparateColumns: false,
		SeparateHeader:  false,
		SeparateRows:    false,
	},
}

// printResults writes one aligned line per result.
func printResults(cmd *cobra.Command, results []*model.Result) error {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No stored results.")
		return nil
	}

	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetStyle(plainStyle)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
	})
	t.AppendHeader(table.Row{"Hits", "Links", "Bytes", "Stored", "URL"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Hits,
			len(r.Links),
			len(r.Body),
			r.StoredAt.Local().Format("2006-01-02 15:04:05"),
			r.URL,
		})
	}
	t.Render()

	fmt.Fprintf(out, "\n%d result(s)\n", len(results))
	return nil
}
