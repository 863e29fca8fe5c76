// Package migrate drives the photo migration: it enumerates source
// files, groups Live Photo pairs, uploads assets to Immich, and records
// every outcome in the ledger.
package migrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"synomigrate/internal/immich"
	"synomigrate/internal/ledger"
	"synomigrate/internal/livephoto"
	"synomigrate/internal/logging"
	"synomigrate/internal/reader"
)

// Uploader is the slice of the Immich client the migrator needs.
type Uploader interface {
	UploadAsset(ctx context.Context, fileName string, data []byte, modTime time.Time) (*immich.UploadResult, error)
}

// Options tunes a migration run.
type Options struct {
	// DryRun enumerates and groups files without uploading or writing
	// ledger rows.
	DryRun bool
	// BatchSize is the number of groups processed between pauses.
	BatchSize int
	// BatchDelay is the pause between batches, easing load on the NAS
	// and the Immich server.
	BatchDelay time.Duration
}

// Summary reports per-file counters for a migration run.
type Summary struct {
	Total       int
	Success     int
	Failed      int
	Skipped     int
	Unsupported int
	Elapsed     time.Duration
}

// Migrator owns one migration run.
type Migrator struct {
	source   reader.FileReader
	uploader Uploader
	store    *ledger.Store
	logger   *slog.Logger
	opts     Options
}

// New creates a migrator. A nil logger disables logging.
func New(source reader.FileReader, uploader Uploader, store *ledger.Store, logger *slog.Logger, opts Options) *Migrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Migrator{
		source:   source,
		uploader: uploader,
		store:    store,
		logger:   logging.WithComponent(logger, "migrator"),
		opts:     opts,
	}
}

// Run migrates every unmigrated source file and returns the counters.
func (m *Migrator) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()

	files, err := m.source.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate source: %w", err)
	}
	groups := livephoto.GroupFiles(files)

	summary := &Summary{Total: len(files)}
	m.logger.Info("migration started",
		"files", len(files),
		"groups", len(groups),
		"dry_run", m.opts.DryRun,
	)

	processed := 0
	for _, group := range groups {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		skipped, err := m.migrateGroup(ctx, group, summary)
		if err != nil {
			return summary, err
		}
		if skipped {
			continue
		}

		processed++
		if m.opts.BatchDelay > 0 && processed%m.opts.BatchSize == 0 {
			m.logger.Debug("batch pause", "processed", processed, "delay", m.opts.BatchDelay)
			if err := sleepCtx(ctx, m.opts.BatchDelay); err != nil {
				return summary, err
			}
		}
	}

	summary.Elapsed = time.Since(started)
	m.logger.Info("migration finished",
		"total", summary.Total,
		"success", summary.Success,
		"failed", summary.Failed,
		"skipped", summary.Skipped,
		"unsupported", summary.Unsupported,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

// migrateGroup uploads one upload unit. It reports whether the group
// was skipped as already migrated.
func (m *Migrator) migrateGroup(ctx context.Context, group livephoto.Group, summary *Summary) (bool, error) {
	primary := group.Primary()
	groupSize := 1
	if group.IsPair() {
		groupSize = 2
	}

	migrated, err := m.store.IsMigrated(ctx, primary.Path)
	if err != nil {
		return false, err
	}
	if migrated {
		summary.Skipped += groupSize
		m.logger.Debug("already migrated", "path", primary.Path)
		return true, nil
	}

	if m.opts.DryRun {
		summary.Success += groupSize
		m.logger.Info("would upload", "path", primary.Path, "pair", group.IsPair())
		return false, nil
	}

	outcome, assetErr := m.uploadFile(ctx, primary)
	if assetErr != nil {
		return false, assetErr
	}
	switch outcome.status {
	case ledger.StatusFailed:
		summary.Failed++
		return false, nil
	case ledger.StatusUnsupported:
		summary.Unsupported++
		// The motion half of a pair is still worth migrating on its
		// own when the still is a format Immich rejects.
		if group.IsPair() {
			videoOutcome, err := m.uploadFile(ctx, *group.Video)
			if err != nil {
				return false, err
			}
			bumpCounter(summary, videoOutcome.status)
		}
		return false, nil
	}
	summary.Success++

	if !group.IsPair() {
		return false, nil
	}

	videoOutcome, err := m.uploadFile(ctx, *group.Video)
	if err != nil {
		return false, err
	}
	bumpCounter(summary, videoOutcome.status)

	// A transient video failure demotes the whole pair so the next run
	// re-drives both halves together. Duplicate detection makes the
	// repeated image upload idempotent.
	if videoOutcome.status == ledger.StatusFailed {
		summary.Success--
		summary.Failed++
		demoted := ledger.FileRecord{
			SourcePath:   primary.Path,
			SourceHash:   outcome.hash,
			SourceSize:   primary.Size,
			SourceMTime:  primary.ModTime,
			Status:       ledger.StatusFailed,
			ErrorMessage: "live photo video upload failed: " + videoOutcome.errorMessage,
		}
		if err := m.store.RecordFile(ctx, demoted); err != nil {
			return false, err
		}
		m.logger.Warn("live photo pair demoted",
			"image", primary.Path,
			"video", group.Video.Path,
			"error", videoOutcome.errorMessage,
		)
	}
	return false, nil
}

type uploadOutcome struct {
	status       ledger.Status
	hash         string
	errorMessage string
}

// uploadFile uploads one file and records its ledger row. Only ledger
// write errors abort the run; upload problems become row outcomes.
func (m *Migrator) uploadFile(ctx context.Context, file reader.FileInfo) (uploadOutcome, error) {
	record := ledger.FileRecord{
		SourcePath:  file.Path,
		SourceSize:  file.Size,
		SourceMTime: file.ModTime,
	}

	data, err := m.source.ReadFile(ctx, file.Path)
	if err != nil {
		if ctx.Err() != nil {
			return uploadOutcome{}, ctx.Err()
		}
		record.Status = ledger.StatusFailed
		record.ErrorMessage = err.Error()
		m.logger.Warn("read failed", "path", file.Path, "error", err)
		if recErr := m.store.RecordFile(ctx, record); recErr != nil {
			return uploadOutcome{}, recErr
		}
		return uploadOutcome{status: ledger.StatusFailed, errorMessage: err.Error()}, nil
	}

	record.SourceHash = immich.Checksum(data)
	record.SourceSize = int64(len(data))

	result, err := m.uploader.UploadAsset(ctx, file.Path, data, file.ModTime)
	if err != nil {
		if ctx.Err() != nil {
			return uploadOutcome{}, ctx.Err()
		}
		var unsupported *immich.UnsupportedError
		if errors.As(err, &unsupported) {
			record.Status = ledger.StatusUnsupported
			record.ErrorMessage = unsupported.Message
			m.logger.Warn("unsupported format", "path", file.Path, "size", len(data), "detail", unsupported.Message)
		} else {
			record.Status = ledger.StatusFailed
			record.ErrorMessage = err.Error()
			m.logger.Warn("upload failed", "path", file.Path, "error", err)
		}
		if recErr := m.store.RecordFile(ctx, record); recErr != nil {
			return uploadOutcome{}, recErr
		}
		return uploadOutcome{status: record.Status, hash: record.SourceHash, errorMessage: record.ErrorMessage}, nil
	}

	record.Status = ledger.StatusSuccess
	record.ImmichAssetID = result.AssetID
	if err := m.store.RecordFile(ctx, record); err != nil {
		return uploadOutcome{}, err
	}
	m.logger.Info("uploaded", "path", file.Path, "asset_id", result.AssetID, "duplicate", result.Duplicate)
	return uploadOutcome{status: ledger.StatusSuccess, hash: record.SourceHash}, nil
}

func bumpCounter(summary *Summary, status ledger.Status) {
	switch status {
	case ledger.StatusSuccess:
		summary.Success++
	case ledger.StatusFailed:
		summary.Failed++
	case ledger.StatusUnsupported:
		summary.Unsupported++
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
