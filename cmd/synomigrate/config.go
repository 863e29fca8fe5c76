package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"synomigrate/internal/config"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the synomigrate configuration",
	}

	cmd.AddCommand(newConfigInitCommand())
	cmd.AddCommand(newConfigShowCommand(ctx))
	return cmd
}

func newConfigInitCommand() *cobra.Command {
	var pathFlag string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := pathFlag
			if path == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				path = defaultPath
			}
			expanded, err := config.ExpandPath(path)
			if err != nil {
				return err
			}
			if err := config.CreateSample(expanded); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sample configuration written to %s\n", expanded)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pathFlag, "path", "p", "", "Where to write the sample configuration")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "source: %s\n", cfg.Source.Path)
			fmt.Fprintf(out, "immich: %s\n", cfg.Immich.URL)
			fmt.Fprintf(out, "ledger: %s\n", cfg.Paths.LedgerPath)
			fmt.Fprintf(out, "log dir: %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "batch: %d files, %.1fs delay\n", cfg.Migration.BatchSize, cfg.Migration.BatchDelaySeconds)
			if cfg.HasSynologyDB() {
				fmt.Fprintf(out, "synology db: %s:%d/%s\n", cfg.Synology.DBHost, cfg.Synology.DBPort, cfg.Synology.DBName)
			} else {
				fmt.Fprintln(out, "synology db: not configured")
			}
			fmt.Fprintf(out, "dry run: %v\n", cfg.Migration.DryRun)
			return nil
		},
	}
}
