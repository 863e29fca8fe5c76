package ledger

import (
	"database/sql"
	"fmt"
	"time"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFileRecord(scanner rowScanner) (*FileRecord, error) {
	var (
		sourcePath    string
		sourceHash    sql.NullString
		sourceSize    int64
		sourceMTime   sql.NullString
		immichAssetID sql.NullString
		statusStr     string
		errorMessage  sql.NullString
		recordedAt    string
	)
	if err := scanner.Scan(
		&sourcePath,
		&sourceHash,
		&sourceSize,
		&sourceMTime,
		&immichAssetID,
		&statusStr,
		&errorMessage,
		&recordedAt,
	); err != nil {
		return nil, err
	}

	status, err := ParseStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("row %s: %w", sourcePath, err)
	}

	record := &FileRecord{
		SourcePath:    sourcePath,
		SourceHash:    sourceHash.String,
		SourceSize:    sourceSize,
		ImmichAssetID: immichAssetID.String,
		Status:        status,
		ErrorMessage:  errorMessage.String,
	}
	if sourceMTime.Valid {
		record.SourceMTime = parseTimestamp(sourceMTime.String)
	}
	record.RecordedAt = parseTimestamp(recordedAt)
	return record, nil
}

func collectFileRecords(rows *sql.Rows) ([]FileRecord, error) {
	var records []FileRecord
	for rows.Next() {
		record, err := scanFileRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file record: %w", err)
		}
		records = append(records, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file records: %w", err)
	}
	return records, nil
}

func scanAlbumRecord(scanner rowScanner) (*AlbumRecord, error) {
	var (
		synologyAlbumID int64
		name            string
		immichAlbumID   sql.NullString
		statusStr       string
		recordedAt      string
	)
	if err := scanner.Scan(&synologyAlbumID, &name, &immichAlbumID, &statusStr, &recordedAt); err != nil {
		return nil, err
	}

	status, err := ParseStatus(statusStr)
	if err != nil {
		return nil, fmt.Errorf("album %d: %w", synologyAlbumID, err)
	}

	return &AlbumRecord{
		SynologyAlbumID: synologyAlbumID,
		Name:            name,
		ImmichAlbumID:   immichAlbumID.String,
		Status:          status,
		RecordedAt:      parseTimestamp(recordedAt),
	}, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value time.Time) any {
	if value.IsZero() {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if parsed, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return parsed
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed
	}
	return time.Time{}
}
