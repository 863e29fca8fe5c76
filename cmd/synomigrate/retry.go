package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newRetryCommand(ctx *commandContext) *cobra.Command {
	var dryRunFlag bool

	cmd := &cobra.Command{
		Use:   "retry",
		Short: "Reattempt files whose last migration failed",
		RunE: func(cmd *cobra.Command, args []string) error {
			m, cleanup, err := buildMigrator(cmd, ctx, dryRunFlag)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := m.Retry(cmd.Context())
			if err != nil {
				return err
			}
			if summary.Total == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no failed files to retry")
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"retried %d files: %d succeeded, %d failed, %d unsupported in %s\n",
				summary.Total, summary.Success, summary.Failed,
				summary.Unsupported, summary.Elapsed.Round(time.Second),
			)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRunFlag, "dry-run", false, "List retry candidates without uploading")
	return cmd
}
