package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"synomigrate/internal/verify"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify every migrated file exists in Immich with matching content",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
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

			v := verify.NewFileVerifier(source, client, store, logger, cfg.Paths.VerifyProgressPath)
			summary, err := v.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"verified %d files: %d ok, %d missing, %d mismatched, %d not in ledger (%d resumed)\n",
				summary.Checked, summary.OK, summary.Missing, summary.Mismatched,
				summary.NotInDB, summary.Resumed,
			)
			if !summary.Valid() {
				return fmt.Errorf("verification failed: %d missing, %d mismatched", summary.Missing, summary.Mismatched)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "verification passed")
			return nil
		},
	}
	return cmd
}
