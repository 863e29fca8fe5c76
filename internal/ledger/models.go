package ledger

import (
	"fmt"
	"strings"
	"time"
)

// Status records the outcome of a migration attempt for a file or album.
type Status string

const (
	// StatusSuccess marks a file whose bytes are confirmed in Immich.
	StatusSuccess Status = "success"
	// StatusFailed marks a file whose last attempt failed and which is
	// eligible for retry.
	StatusFailed Status = "failed"
	// StatusUnsupported marks a file Immich rejected as an unsupported
	// format. Retries skip these.
	StatusUnsupported Status = "unsupported"
)

// ParseStatus validates a stored status string.
func ParseStatus(value string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(value))) {
	case StatusSuccess:
		return StatusSuccess, nil
	case StatusFailed:
		return StatusFailed, nil
	case StatusUnsupported:
		return StatusUnsupported, nil
	default:
		return "", fmt.Errorf("unknown ledger status %q", value)
	}
}

// FileRecord is one row of the file ledger, keyed by source path.
type FileRecord struct {
	SourcePath    string
	SourceHash    string
	SourceSize    int64
	SourceMTime   time.Time
	ImmichAssetID string
	Status        Status
	ErrorMessage  string
	RecordedAt    time.Time
}

// AlbumRecord is one row of the album ledger, keyed by Synology album id.
type AlbumRecord struct {
	SynologyAlbumID int64
	Name            string
	ImmichAlbumID   string
	Status          Status
	RecordedAt      time.Time
}

// Statistics summarizes the file ledger.
type Statistics struct {
	Total       int
	Success     int
	Failed      int
	Unsupported int
}
