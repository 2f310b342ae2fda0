package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrlokans/readingroom/internal/entrypoint"
)

func newServeCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(info)
		},
	}
}

func runServe(info BuildInfo) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	return entrypoint.Run(cfg, info.Version, log)
}
