// Package reader provides filesystem access to the migration source,
// either a locally mounted directory or an SMB share on the NAS.
package reader

import (
	"context"
	"strings"
	"time"
)

// FileInfo describes a single candidate file discovered on the source.
type FileInfo struct {
	// Path is the stable identifier for the file: an absolute path for
	// local sources, or an smb://host/share/... URL for SMB sources.
	Path string
	// Size is the file size in bytes.
	Size int64
	// ModTime is the file's last modification time.
	ModTime time.Time
}

// FileReader enumerates and reads files from a migration source.
type FileReader interface {
	// ListFiles walks the source and returns every non-excluded regular
	// file. Directory exclusion prunes entire subtrees.
	ListFiles(ctx context.Context) ([]FileInfo, error)
	// ReadFile returns the full contents of a file previously returned
	// by ListFiles, identified by its FileInfo.Path.
	ReadFile(ctx context.Context, path string) ([]byte, error)
	// Stat returns metadata for a single file by its FileInfo.Path.
	Stat(ctx context.Context, path string) (FileInfo, error)
	// Close releases any resources held by the reader.
	Close() error
}

var excludedDirs = map[string]struct{}{
	"@eaDir":     {},
	".thumbnail": {},
	"#recycle":   {},
}

var excludedFiles = map[string]struct{}{
	".DS_Store": {},
	"Thumbs.db": {},
}

// ExcludedDir reports whether a directory name is Synology housekeeping
// metadata that must never be migrated.
func ExcludedDir(name string) bool {
	_, ok := excludedDirs[name]
	return ok
}

// ExcludedFile reports whether a file name is desktop clutter that must
// never be migrated.
func ExcludedFile(name string) bool {
	_, ok := excludedFiles[name]
	return ok
}

// ExcludedPath reports whether any segment of a slash-separated relative
// path is an excluded directory, or the final segment an excluded file.
func ExcludedPath(rel string) bool {
	segments := strings.Split(rel, "/")
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		if i == len(segments)-1 {
			if ExcludedFile(segment) {
				return true
			}
		}
		if ExcludedDir(segment) {
			return true
		}
	}
	return false
}
