// Package backfill reconciles source files that have no ledger row,
// typically after a lost or truncated ledger database. Files already in
// Immich get their rows rebuilt; the rest are uploaded.
package backfill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"time"

	"synomigrate/internal/immich"
	"synomigrate/internal/ledger"
	"synomigrate/internal/logging"
	"synomigrate/internal/reader"
)

// Client is the slice of the Immich client backfill needs.
type Client interface {
	AllAssets(ctx context.Context) ([]immich.Asset, error)
	UploadAsset(ctx context.Context, fileName string, data []byte, modTime time.Time) (*immich.UploadResult, error)
}

// Summary reports counters for a backfill run.
type Summary struct {
	Scanned     int
	Tracked     int
	Untracked   int
	Backfilled  int
	Uploaded    int
	Failed      int
	Unsupported int
	Elapsed     time.Duration
}

// Backfiller owns one reconciliation run.
type Backfiller struct {
	source reader.FileReader
	client Client
	store  *ledger.Store
	logger *slog.Logger
	dryRun bool
}

// New creates a backfiller. A nil logger disables logging.
func New(source reader.FileReader, client Client, store *ledger.Store, logger *slog.Logger, dryRun bool) *Backfiller {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Backfiller{
		source: source,
		client: client,
		store:  store,
		logger: logging.WithComponent(logger, "backfill"),
		dryRun: dryRun,
	}
}

// Run scans the source for files the ledger has never seen and
// reconciles them against Immich. In dry run mode detection still
// happens but nothing is written or uploaded.
func (b *Backfiller) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()

	files, err := b.source.ListFiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate source: %w", err)
	}

	var untracked []reader.FileInfo
	summary := &Summary{Scanned: len(files)}
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		record, err := b.store.GetFile(ctx, file.Path)
		if err != nil {
			return summary, err
		}
		if record != nil {
			summary.Tracked++
			continue
		}
		untracked = append(untracked, file)
	}
	summary.Untracked = len(untracked)

	b.logger.Info("backfill scan finished",
		"scanned", summary.Scanned,
		"tracked", summary.Tracked,
		"untracked", summary.Untracked,
		"dry_run", b.dryRun,
	)
	if len(untracked) == 0 || b.dryRun {
		summary.Elapsed = time.Since(started)
		return summary, nil
	}

	assets, err := b.client.AllAssets(ctx)
	if err != nil {
		return summary, fmt.Errorf("fetch immich assets: %w", err)
	}
	byFileName := make(map[string]immich.Asset, len(assets))
	for _, asset := range assets {
		if asset.OriginalFileName == "" {
			continue
		}
		if _, exists := byFileName[asset.OriginalFileName]; !exists {
			byFileName[asset.OriginalFileName] = asset
		}
	}

	for _, file := range untracked {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := b.reconcileFile(ctx, file, byFileName, summary); err != nil {
			return summary, err
		}
	}

	summary.Elapsed = time.Since(started)
	b.logger.Info("backfill finished",
		"backfilled", summary.Backfilled,
		"uploaded", summary.Uploaded,
		"failed", summary.Failed,
		"unsupported", summary.Unsupported,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

// reconcileFile rebuilds the ledger row for one untracked file. A
// filename match is only trusted when the content hash agrees;
// otherwise the local bytes are uploaded as a new asset.
func (b *Backfiller) reconcileFile(ctx context.Context, file reader.FileInfo, byFileName map[string]immich.Asset, summary *Summary) error {
	record := ledger.FileRecord{
		SourcePath:  file.Path,
		SourceSize:  file.Size,
		SourceMTime: file.ModTime,
	}

	data, err := b.source.ReadFile(ctx, file.Path)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		summary.Failed++
		record.Status = ledger.StatusFailed
		record.ErrorMessage = err.Error()
		b.logger.Warn("backfill read failed", "path", file.Path, "error", err)
		return b.store.RecordFile(ctx, record)
	}
	record.SourceHash = immich.Checksum(data)
	record.SourceSize = int64(len(data))

	if asset, ok := byFileName[path.Base(file.Path)]; ok {
		if asset.Checksum == "" || asset.Checksum == record.SourceHash {
			summary.Backfilled++
			record.Status = ledger.StatusSuccess
			record.ImmichAssetID = asset.ID
			b.logger.Info("backfilled existing asset", "path", file.Path, "asset_id", asset.ID)
			return b.store.RecordFile(ctx, record)
		}
		// Same name, different bytes. Upload rather than claim the
		// wrong asset.
		b.logger.Debug("filename match rejected by checksum", "path", file.Path, "asset_id", asset.ID)
	}

	result, err := b.client.UploadAsset(ctx, file.Path, data, file.ModTime)
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
		b.logger.Warn("backfill upload failed", "path", file.Path, "error", err)
		return b.store.RecordFile(ctx, record)
	}

	summary.Uploaded++
	record.Status = ledger.StatusSuccess
	record.ImmichAssetID = result.AssetID
	b.logger.Info("backfill uploaded", "path", file.Path, "asset_id", result.AssetID)
	return b.store.RecordFile(ctx, record)
}
