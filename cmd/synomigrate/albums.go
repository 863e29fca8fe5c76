package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"synomigrate/internal/albums"
)

func newAlbumsCommand(ctx *commandContext) *cobra.Command {
	var dryRunFlag bool

	cmd := &cobra.Command{
		Use:   "albums",
		Short: "Recreate Synology Photos albums in Immich",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			fetcher, mapper, err := ctx.synologyFetcher(cmd.Context())
			if err != nil {
				return err
			}
			defer fetcher.Close()

			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			client, err := ctx.immichClient()
			if err != nil {
				return err
			}

			m := albums.New(fetcher, client, store, mapper, logger, ctx.dryRun(dryRunFlag))
			summary, err := m.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"albums: %d migrated, %d skipped, %d failed of %d (%d members missing) in %s\n",
				summary.Migrated, summary.Skipped, summary.Failed, summary.Total,
				summary.MissingAssets, summary.Elapsed.Round(time.Second),
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "Resolve album contents without creating albums")
	return cmd
}
