package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"synomigrate/internal/report"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write a Markdown report of the migration state",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			if outputFlag == "" {
				content, err := report.Generate(cmd.Context(), store)
				if err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), content)
				return nil
			}

			if err := report.Write(cmd.Context(), store, outputFlag); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", outputFlag)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the report to a file instead of stdout")
	return cmd
}
