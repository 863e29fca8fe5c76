package migrate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"synomigrate/internal/immich"
	"synomigrate/internal/ledger"
)

// RetrySummary reports counters for a retry run.
type RetrySummary struct {
	Total       int
	Success     int
	Failed      int
	Unsupported int
	Elapsed     time.Duration
}

// Retry re-uploads every file whose last outcome was a transient
// failure. Unsupported rows are terminal and never retried.
func (m *Migrator) Retry(ctx context.Context) (*RetrySummary, error) {
	started := time.Now()

	failed, err := m.store.FilesByStatus(ctx, ledger.StatusFailed)
	if err != nil {
		return nil, fmt.Errorf("load failed rows: %w", err)
	}

	summary := &RetrySummary{Total: len(failed)}
	m.logger.Info("retry started", "files", len(failed), "dry_run", m.opts.DryRun)

	for _, record := range failed {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if m.opts.DryRun {
			summary.Success++
			m.logger.Info("would retry", "path", record.SourcePath)
			continue
		}
		if err := m.retryFile(ctx, record, summary); err != nil {
			return summary, err
		}
	}

	summary.Elapsed = time.Since(started)
	m.logger.Info("retry finished",
		"total", summary.Total,
		"success", summary.Success,
		"failed", summary.Failed,
		"unsupported", summary.Unsupported,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

func (m *Migrator) retryFile(ctx context.Context, record ledger.FileRecord, summary *RetrySummary) error {
	modTime := record.SourceMTime
	if modTime.IsZero() {
		// Rows written after a read failure have no mtime. Recover it
		// from the source before uploading.
		info, err := m.source.Stat(ctx, record.SourcePath)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			summary.Failed++
			m.logger.Warn("retry stat failed", "path", record.SourcePath, "error", err)
			return nil
		}
		modTime = info.ModTime
	}

	data, err := m.source.ReadFile(ctx, record.SourcePath)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.Failed++
		record.Status = ledger.StatusFailed
		record.ErrorMessage = err.Error()
		m.logger.Warn("retry read failed", "path", record.SourcePath, "error", err)
		return m.store.RecordFile(ctx, record)
	}

	record.SourceHash = immich.Checksum(data)
	record.SourceSize = int64(len(data))
	record.SourceMTime = modTime

	result, err := m.uploader.UploadAsset(ctx, record.SourcePath, data, modTime)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		var unsupported *immich.UnsupportedError
		if errors.As(err, &unsupported) {
			summary.Unsupported++
			record.Status = ledger.StatusUnsupported
			record.ErrorMessage = unsupported.Message
		} else {
			summary.Failed++
			record.Status = ledger.StatusFailed
			record.ErrorMessage = err.Error()
		}
		m.logger.Warn("retry upload failed", "path", record.SourcePath, "error", err)
		return m.store.RecordFile(ctx, record)
	}

	summary.Success++
	record.Status = ledger.StatusSuccess
	record.ImmichAssetID = result.AssetID
	record.ErrorMessage = ""
	m.logger.Info("retry uploaded", "path", record.SourcePath, "asset_id", result.AssetID)
	return m.store.RecordFile(ctx, record)
}
