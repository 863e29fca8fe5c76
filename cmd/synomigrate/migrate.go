package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"synomigrate/internal/migrate"
)

func newMigrateCommand(ctx *commandContext) *cobra.Command {
	var dryRunFlag bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Upload all unmigrated photos and videos to Immich",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := buildMigrator(cmd, ctx, dryRunFlag)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := m.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"migrated %d/%d files (%d failed, %d skipped, %d unsupported) in %s\n",
				summary.Success, summary.Total, summary.Failed, summary.Skipped,
				summary.Unsupported, summary.Elapsed.Round(time.Second),
			)
			if summary.Failed > 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "run 'synomigrate retry' to reattempt failed files")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Enumerate and group files without uploading")
	return cmd
}

// buildMigrator wires the source reader, Immich client, and ledger into
// a migrator. The returned cleanup closes everything it opened.
func buildMigrator(cmd *cobra.Command, ctx *commandContext, dryRunFlag bool) (*migrate.Migrator, func(), error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return nil, nil, err
	}

	source, err := ctx.openReader(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	store, err := ctx.openLedger()
	if err != nil {
		source.Close()
		return nil, nil, err
	}
	client, err := ctx.immichClient()
	if err != nil {
		source.Close()
		store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		_ = source.Close()
		_ = store.Close()
	}
	m := migrate.New(source, client, store, logger, migrate.Options{
		DryRun:     ctx.dryRun(dryRunFlag),
		BatchSize:  cfg.Migration.BatchSize,
		BatchDelay: time.Duration(cfg.Migration.BatchDelaySeconds * float64(time.Second)),
	})
	return m, cleanup, nil
}
