package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/mrlokans/readingroom/internal/database"
)

func newMigrateCmd() *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "migrate [up|status|version]",
		Short: "Apply or inspect database migrations",
		Long: "Apply pending migrations (up, the default), list every migration with its " +
			"state (status) or print the applied schema version (version).",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "status", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action := "up"
			if len(args) == 1 {
				action = args[0]
			}

			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if dbPath == "" {
				dbPath = cfg.Database.Path
			}

			db, err := database.NewDatabase(dbPath, database.WithLogger(log), database.WithoutMigrations())
			if err != nil {
				return err
			}
			defer db.Close()

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			switch action {
			case "up":
				if err := db.Migrate(ctx); err != nil {
					return err
				}
				return printVersion(cmd, db, out)
			case "status":
				statuses, err := db.MigrationStatus(ctx)
				if err != nil {
					return err
				}
				return printStatus(out, statuses)
			case "version":
				return printVersion(cmd, db, out)
			}
			return fmt.Errorf("unknown migrate action %q (want up, status or version)", action)
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "", "database path (default: DATABASE_PATH)")
	return cmd
}

func printVersion(cmd *cobra.Command, db *database.Database, out io.Writer) error {
	version, err := db.Version(cmd.Context())
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "schema version %d\n", version)
	return err
}

func printStatus(out io.Writer, statuses []*goose.MigrationStatus) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tSTATE\tAPPLIED AT\tSOURCE")
	for _, s := range statuses {
		appliedAt := "-"
		if !s.AppliedAt.IsZero() {
			appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
		}
		source := s.Source.Path
		if source == "" {
			source = "(go)"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", s.Source.Version, s.State, appliedAt, source)
	}
	return tw.Flush()
}
