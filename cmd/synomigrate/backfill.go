package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"synomigrate/internal/backfill"
)

func newBackfillCommand(ctx *commandContext) *cobra.Command {
	var dryRunFlag bool

	cmd := &cobra.Command{
		Use:   "backfill",
		Short: "Rebuild ledger rows for source files the ledger has never seen",
		Long: `Scans the source for files with no ledger record, typically after a
lost ledger database. Files already present in Immich get their rows
rebuilt from the server; the rest are uploaded.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			source, err := ctx.openReader(cmd.Context())
			if err != nil {
				return err
			}
			defer source.Close()

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			client, err := ctx.immichClient()
			if err != nil {
				return err
			}

			b := backfill.New(source, client, store, logger, ctx.dryRun(dryRunFlag))
			summary, err := b.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"scanned %d files: %d tracked, %d untracked, %d backfilled, %d uploaded, %d failed in %s\n",
				summary.Scanned, summary.Tracked, summary.Untracked,
				summary.Backfilled, summary.Uploaded, summary.Failed,
				summary.Elapsed.Round(time.Second),
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Detect untracked files without writing or uploading")
	return cmd
}
