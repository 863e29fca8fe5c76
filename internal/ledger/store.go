// Package ledger persists migration progress in SQLite so interrupted
// runs resume where they left off instead of re-uploading.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	_ "modernc.org/sqlite"
)

// Store manages the migration ledger backed by SQLite. A flock-based
// lock next to the database file enforces a single writer process.
type Store struct {
	db   *sql.DB
	path string
	lock *flock.Flock
}

// Open initializes or connects to the ledger database, acquires the
// process lock, and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure ledger directory: %w", err)
		}
	}

	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire ledger lock: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("ledger %s is in use by another process", path)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		_ = lock.Unlock()
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			_ = lock.Unlock()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path, lock: lock}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		_ = lock.Unlock()
		return nil, err
	}

	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database and releases the process lock.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	var firstErr error
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			firstErr = err
		}
	}
	if s.lock != nil {
		if err := s.lock.Unlock(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// RecordFile upserts a file outcome keyed by source path. Re-recording
// replaces the previous outcome entirely.
func (s *Store) RecordFile(ctx context.Context, record FileRecord) error {
	if record.SourcePath == "" {
		return fmt.Errorf("record file: source path required")
	}
	if _, err := ParseStatus(string(record.Status)); err != nil {
		return fmt.Errorf("record file %s: %w", record.SourcePath, err)
	}

	recordedAt := record.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO migrated_files (
            source_path, source_hash, source_size, source_mtime,
            immich_asset_id, status, error_message, recorded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(source_path) DO UPDATE SET
            source_hash = excluded.source_hash,
            source_size = excluded.source_size,
            source_mtime = excluded.source_mtime,
            immich_asset_id = excluded.immich_asset_id,
            status = excluded.status,
            error_message = excluded.error_message,
            recorded_at = excluded.recorded_at`,
		record.SourcePath,
		nullableString(record.SourceHash),
		record.SourceSize,
		nullableTime(record.SourceMTime),
		nullableString(record.ImmichAssetID),
		string(record.Status),
		nullableString(record.ErrorMessage),
		recordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record file %s: %w", record.SourcePath, err)
	}
	return nil
}

// GetFile returns the ledger row for a source path, or nil when the
// path has never been recorded.
func (s *Store) GetFile(ctx context.Context, sourcePath string) (*FileRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT source_path, source_hash, source_size, source_mtime,
            immich_asset_id, status, error_message, recorded_at
        FROM migrated_files WHERE source_path = ?`,
		sourcePath,
	)
	record, err := scanFileRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get file %s: %w", sourcePath, err)
	}
	return record, nil
}

// IsMigrated reports whether a source path has been migrated
// successfully. Failed and unsupported rows do not count.
func (s *Store) IsMigrated(ctx context.Context, sourcePath string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		"SELECT COUNT(1) FROM migrated_files WHERE source_path = ? AND status = ?",
		sourcePath,
		string(StatusSuccess),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check migrated %s: %w", sourcePath, err)
	}
	return count > 0, nil
}

// FilesByStatus returns rows with the given status ordered by source
// path so every run processes them in the same order.
func (s *Store) FilesByStatus(ctx context.Context, status Status) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT source_path, source_hash, source_size, source_mtime,
            immich_asset_id, status, error_message, recorded_at
        FROM migrated_files WHERE status = ? ORDER BY source_path ASC`,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("files by status %s: %w", status, err)
	}
	defer rows.Close()
	return collectFileRecords(rows)
}

// AllFiles returns every ledger row ordered by source path.
func (s *Store) AllFiles(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT source_path, source_hash, source_size, source_mtime,
            immich_asset_id, status, error_message, recorded_at
        FROM migrated_files ORDER BY source_path ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("all files: %w", err)
	}
	defer rows.Close()
	return collectFileRecords(rows)
}

// FailedFilesWithErrors returns failed and unsupported rows, newest
// first, for error reporting.
func (s *Store) FailedFilesWithErrors(ctx context.Context) ([]FileRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT source_path, source_hash, source_size, source_mtime,
            immich_asset_id, status, error_message, recorded_at
        FROM migrated_files
        WHERE status IN (?, ?)
        ORDER BY recorded_at DESC`,
		string(StatusFailed),
		string(StatusUnsupported),
	)
	if err != nil {
		return nil, fmt.Errorf("failed files: %w", err)
	}
	defer rows.Close()
	return collectFileRecords(rows)
}

// Statistics summarizes the file ledger by status.
func (s *Store) Statistics(ctx context.Context) (Statistics, error) {
	rows, err := s.db.QueryContext(
		ctx,
		"SELECT status, COUNT(1) FROM migrated_files GROUP BY status",
	)
	if err != nil {
		return Statistics{}, fmt.Errorf("ledger statistics: %w", err)
	}
	defer rows.Close()

	var stats Statistics
	for rows.Next() {
		var statusStr string
		var count int
		if err := rows.Scan(&statusStr, &count); err != nil {
			return Statistics{}, fmt.Errorf("scan statistics: %w", err)
		}
		stats.Total += count
		switch Status(statusStr) {
		case StatusSuccess:
			stats.Success = count
		case StatusFailed:
			stats.Failed = count
		case StatusUnsupported:
			stats.Unsupported = count
		}
	}
	if err := rows.Err(); err != nil {
		return Statistics{}, fmt.Errorf("iterate statistics: %w", err)
	}
	return stats, nil
}

// RecordAlbum upserts an album outcome keyed by Synology album id.
func (s *Store) RecordAlbum(ctx context.Context, record AlbumRecord) error {
	if _, err := ParseStatus(string(record.Status)); err != nil {
		return fmt.Errorf("record album %d: %w", record.SynologyAlbumID, err)
	}

	recordedAt := record.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO migrated_albums (
            synology_album_id, album_name, immich_album_id, status, recorded_at
        ) VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(synology_album_id) DO UPDATE SET
            album_name = excluded.album_name,
            immich_album_id = excluded.immich_album_id,
            status = excluded.status,
            recorded_at = excluded.recorded_at`,
		record.SynologyAlbumID,
		record.Name,
		nullableString(record.ImmichAlbumID),
		string(record.Status),
		recordedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record album %d: %w", record.SynologyAlbumID, err)
	}
	return nil
}

// IsAlbumMigrated reports whether an album has a successful ledger row.
func (s *Store) IsAlbumMigrated(ctx context.Context, synologyAlbumID int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(
		ctx,
		"SELECT COUNT(1) FROM migrated_albums WHERE synology_album_id = ? AND status = ?",
		synologyAlbumID,
		string(StatusSuccess),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check album %d: %w", synologyAlbumID, err)
	}
	return count > 0, nil
}

// Albums returns every album ledger row ordered by name.
func (s *Store) Albums(ctx context.Context) ([]AlbumRecord, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT synology_album_id, album_name, immich_album_id, status, recorded_at
        FROM migrated_albums ORDER BY album_name ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("albums: %w", err)
	}
	defer rows.Close()

	var records []AlbumRecord
	for rows.Next() {
		record, err := scanAlbumRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return records, nil
}
