package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nao1215/routecrawl/internal/config"
)

// envPrefix is the prefix of environment variables that set flags,
// e.g. ROUTECRAWL_S3_BUCKET for --s3-bucket.
const envPrefix = "ROUTECRAWL"

// NewRootCmd creates the root command for routecrawl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "routecrawl",
		Short: "Route-driven recursive web crawler",
		Long: `routecrawl crawls named routes from a YAML configuration file.

Each route starts at a seed URL and follows links depth-first up to a maximum
depth. Links are kept only when they satisfy the route's domain policy and
whitelist/blacklist filters. Every page is fetched at most once per run, even
when several routes reach it.

Every flag can also be set through a ROUTECRAWL_* environment variable,
for example ROUTECRAWL_STORAGE=sqlite or ROUTECRAWL_S3_BUCKET=my-bucket.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().String("log-format", config.LogText, "Log format: text or json")

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewShowCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// newSettings binds the command's flags to ROUTECRAWL_* environment variables.
// A flag given on the command line wins over the environment, which wins over
// the flag default.
func newSettings(cmd *cobra.Command) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("failed to bind flags: %w", err)
	}
	return v, nil
}
