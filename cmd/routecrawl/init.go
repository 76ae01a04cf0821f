package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/routecrawl/internal/config"
)

//go:embed templates/routecrawl.yaml
var configTemplate embed.FS

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new routecrawl configuration file",
		Long: `Initialize creates a new routecrawl.yaml configuration file in the current directory.

The generated file includes:
- Crawl-wide options such as the sleep between fetches
- Route defaults for depth, domain policy and timeout
- An example route with whitelist and blacklist patterns

Examples:
  # Create routecrawl.yaml in current directory
  routecrawl init

  # Create config file at a specific path
  routecrawl init -o ~/.config/routecrawl/routecrawl.yaml

  # Force overwrite existing file
  routecrawl init -f`,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}

	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile("templates/routecrawl.yaml")
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	dir := filepath.Dir(outputPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	// The file may later hold httpAuth credentials.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to define your routes:")
	fmt.Fprintln(out, "  - Seed URL and crawl depth per route")
	fmt.Fprintln(out, "  - Domain policy and link filters")
	fmt.Fprintln(out, "  - Basic authentication credentials")

	return nil
}
