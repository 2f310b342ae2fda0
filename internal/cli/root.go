// Package cli defines the readingroom command line: serving, migrations and
// version output.
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mrlokans/readingroom/internal/config"
	"github.com/mrlokans/readingroom/internal/logging"
)

// BuildInfo is stamped at build time via ldflags.
type BuildInfo struct {
	Version string
	Commit  string
}

// NewRootCommand builds the command tree. Running without a subcommand serves.
func NewRootCommand(info BuildInfo) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "readingroom",
		Short:         "Self-hosted library of scanned books with reading time tracking",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(info)
		},
	}

	rootCmd.AddCommand(newServeCmd(info))
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newVersionCmd(info))

	return rootCmd
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "readingroom %s (%s)\n", info.Version, info.Commit)
		},
	}
}

// loadConfig reads the environment and builds the logger for it.
func loadConfig() (*config.Config, *zap.Logger, error) {
	cfg := config.NewConfig()
	log, err := logging.New(cfg.Log)
	if err != nil {
		return nil, nil, fmt.Errorf("configure logging: %w", err)
	}
	return cfg, log, nil
}
