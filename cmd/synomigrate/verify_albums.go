package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"synomigrate/internal/verify"
)

func newVerifyAlbumsCommand(ctx *commandContext) *cobra.Command {
	var byFilename bool
	cmd := &cobra.Command{
		Use:   "verify-albums",
		Short: "Verify album contents match between Synology Photos and Immich",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			fetcher, mapper, err := ctx.synologyFetcher(cmd.Context())
			if err != nil {
				return err
			}
			defer fetcher.Close()

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

			var opts []verify.AlbumVerifierOption
			if byFilename {
				opts = append(opts, verify.WithFilenameCompare())
			}
			v := verify.NewAlbumVerifier(
				fetcher, client, source, store, mapper, logger,
				cfg.Paths.AlbumVerifyProgressPath,
				cfg.Paths.AlbumVerifyReportPath,
				opts...,
			)
			report, err := v.Run(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"verified %d albums (%d resumed), %d synology-only, %d immich-only\nreport: %s\n",
				len(report.Albums), report.Resumed, len(report.SynologyOnly),
				len(report.ImmichOnly), cfg.Paths.AlbumVerifyReportPath,
			)
			if !report.Valid {
				return fmt.Errorf("album verification failed, see %s", cfg.Paths.AlbumVerifyReportPath)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "album verification passed")
			return nil
		},
	}
	cmd.Flags().BoolVar(&byFilename, "by-filename", false, "Compare album members by file name instead of content hash")
	return cmd
}
