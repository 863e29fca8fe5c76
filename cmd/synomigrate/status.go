package main

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

// maxErrorRows caps the --errors listing so a badly failed run does
// not scroll the summary away.
const maxErrorRows = 20

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var showErrors bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration progress from the ledger",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openLedger()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Statistics(cmd.Context())
			if err != nil {
				return err
			}

			writer := table.NewWriter()
			writer.SetOutputMirror(cmd.OutOrStdout())
			if file, ok := cmd.OutOrStdout().(*os.File); ok && isatty.IsTerminal(file.Fd()) {
				writer.SetStyle(table.StyleLight)
			}
			writer.AppendHeader(table.Row{"Status", "Files"})
			writer.AppendRows([]table.Row{
				{"migrated", stats.Success},
				{"failed", stats.Failed},
				{"unsupported", stats.Unsupported},
			})
			writer.AppendFooter(table.Row{"total", stats.Total})
			writer.Render()

			if !showErrors {
				return nil
			}

			problems, err := store.FailedFilesWithErrors(cmd.Context())
			if err != nil {
				return err
			}
			if len(problems) == 0 {
				return nil
			}

			shown := problems
			if len(shown) > maxErrorRows {
				shown = shown[:maxErrorRows]
			}
			errWriter := table.NewWriter()
			errWriter.SetOutputMirror(cmd.OutOrStdout())
			errWriter.AppendHeader(table.Row{"File", "Status", "Error"})
			for _, record := range shown {
				errWriter.AppendRow(table.Row{record.SourcePath, record.Status, record.ErrorMessage})
			}
			if remaining := len(problems) - len(shown); remaining > 0 {
				errWriter.AppendFooter(table.Row{fmt.Sprintf("... and %d more", remaining), "", ""})
			}
			errWriter.Render()
			return nil
		},
	}

	cmd.Flags().BoolVar(&showErrors, "errors", false, "Also list failed and unsupported files with their errors")
	return cmd
}
