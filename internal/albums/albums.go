// Package albums recreates Synology Photos albums in Immich using the
// asset ids the file migration recorded in the ledger.
package albums

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"synomigrate/internal/ledger"
	"synomigrate/internal/logging"
	"synomigrate/internal/synodb"
)

// Source lists albums and their members from the Synology database.
type Source interface {
	Albums(ctx context.Context) ([]synodb.Album, error)
	AlbumItemPaths(ctx context.Context, albumID int64) ([]string, error)
}

// Service is the slice of the Immich client album migration needs.
type Service interface {
	CreateAlbum(ctx context.Context, name string) (string, error)
	AddAssetsToAlbum(ctx context.Context, albumID string, assetIDs []string) error
}

// Summary reports counters for an album migration run.
type Summary struct {
	Total         int
	Migrated      int
	Skipped       int
	Failed        int
	MissingAssets int
	Elapsed       time.Duration
}

// Migrator owns one album migration run.
type Migrator struct {
	source  Source
	service Service
	store   *ledger.Store
	mapper  *synodb.PathMapper
	logger  *slog.Logger
	dryRun  bool
}

// New creates an album migrator. A nil logger disables logging.
func New(source Source, service Service, store *ledger.Store, mapper *synodb.PathMapper, logger *slog.Logger, dryRun bool) *Migrator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Migrator{
		source:  source,
		service: service,
		store:   store,
		mapper:  mapper,
		logger:  logging.WithComponent(logger, "albums"),
		dryRun:  dryRun,
	}
}

// Run migrates every album not yet recorded as migrated.
func (m *Migrator) Run(ctx context.Context) (*Summary, error) {
	started := time.Now()

	albums, err := m.source.Albums(ctx)
	if err != nil {
		return nil, fmt.Errorf("list synology albums: %w", err)
	}

	summary := &Summary{Total: len(albums)}
	m.logger.Info("album migration started", "albums", len(albums), "dry_run", m.dryRun)

	for _, album := range albums {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if err := m.migrateAlbum(ctx, album, summary); err != nil {
			return summary, err
		}
	}

	summary.Elapsed = time.Since(started)
	m.logger.Info("album migration finished",
		"total", summary.Total,
		"migrated", summary.Migrated,
		"skipped", summary.Skipped,
		"failed", summary.Failed,
		"missing_assets", summary.MissingAssets,
		"elapsed", summary.Elapsed,
	)
	return summary, nil
}

func (m *Migrator) migrateAlbum(ctx context.Context, album synodb.Album, summary *Summary) error {
	migrated, err := m.store.IsAlbumMigrated(ctx, album.ID)
	if err != nil {
		return err
	}
	if migrated {
		summary.Skipped++
		m.logger.Debug("album already migrated", "album", album.Name)
		return nil
	}

	assetIDs, missing, err := m.resolveAssets(ctx, album)
	if err != nil {
		return err
	}
	summary.MissingAssets += missing

	if m.dryRun {
		summary.Migrated++
		m.logger.Info("would create album",
			"album", album.Name,
			"assets", len(assetIDs),
			"missing", missing,
		)
		return nil
	}

	immichAlbumID, err := m.service.CreateAlbum(ctx, album.Name)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// No ledger row: the next run gets another attempt.
		summary.Failed++
		m.logger.Warn("album creation failed", "album", album.Name, "error", err)
		return nil
	}

	if err := m.service.AddAssetsToAlbum(ctx, immichAlbumID, assetIDs); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// The album exists; recreating it next run would duplicate it.
		// Record it and leave asset assignment to a manual fix.
		m.logger.Warn("asset assignment failed",
			"album", album.Name,
			"immich_album_id", immichAlbumID,
			"error", err,
		)
	}

	if err := m.store.RecordAlbum(ctx, ledger.AlbumRecord{
		SynologyAlbumID: album.ID,
		Name:            album.Name,
		ImmichAlbumID:   immichAlbumID,
		Status:          ledger.StatusSuccess,
	}); err != nil {
		return err
	}

	summary.Migrated++
	m.logger.Info("album migrated",
		"album", album.Name,
		"immich_album_id", immichAlbumID,
		"assets", len(assetIDs),
		"missing", missing,
	)
	return nil
}

// resolveAssets maps album members to Immich asset ids through the
// ledger. Members without a successful ledger row are skipped and
// counted, never fatal.
func (m *Migrator) resolveAssets(ctx context.Context, album synodb.Album) ([]string, int, error) {
	paths, err := m.source.AlbumItemPaths(ctx, album.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("list members of album %q: %w", album.Name, err)
	}

	var assetIDs []string
	missing := 0
	for _, dbPath := range paths {
		sourcePath, err := m.mapper.ToSourcePath(dbPath)
		if err != nil {
			missing++
			m.logger.Warn("unmappable album member", "album", album.Name, "path", dbPath, "error", err)
			continue
		}
		record, err := m.store.GetFile(ctx, sourcePath)
		if err != nil {
			return nil, 0, err
		}
		if record == nil || record.Status != ledger.StatusSuccess || record.ImmichAssetID == "" {
			missing++
			m.logger.Warn("album member not migrated", "album", album.Name, "path", sourcePath)
			continue
		}
		assetIDs = append(assetIDs, record.ImmichAssetID)
	}
	return assetIDs, missing, nil
}
