package verify

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// progressEntry is one line of a verification progress log.
type progressEntry struct {
	Key       string `json:"key"`
	Status    string `json:"status,omitempty"`
	Detail    string `json:"detail,omitempty"`
	CheckedAt string `json:"checked_at"`
}

// ProgressLog is an append-only JSON-lines file tracking completed
// verification work, so an interrupted run resumes where it stopped.
type ProgressLog struct {
	file      *os.File
	completed map[string]string
}

// OpenProgressLog opens or creates a progress log and loads the keys of
// already completed work. Unparseable lines, such as a torn final write
// from a crash, are ignored.
func OpenProgressLog(path string) (*ProgressLog, error) {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("ensure progress dir: %w", err)
		}
	}

	completed := make(map[string]string)
	if existing, err := os.Open(path); err == nil {
		scanner := bufio.NewScanner(existing)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			var entry progressEntry
			if json.Unmarshal(scanner.Bytes(), &entry) != nil {
				continue
			}
			if entry.Key != "" {
				completed[entry.Key] = entry.Status
			}
		}
		if err := scanner.Err(); err != nil {
			existing.Close()
			return nil, fmt.Errorf("read progress log: %w", err)
		}
		existing.Close()
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("open progress log: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("append progress log: %w", err)
	}

	return &ProgressLog{file: file, completed: completed}, nil
}

// Done reports whether a key has already been verified, returning its
// recorded status.
func (l *ProgressLog) Done(key string) (string, bool) {
	status, ok := l.completed[key]
	return status, ok
}

// Len returns the number of completed keys loaded at open time.
func (l *ProgressLog) Len() int {
	return len(l.completed)
}

// Record appends a completed entry and syncs it to disk immediately so
// a crash loses at most the in-flight item.
func (l *ProgressLog) Record(key, status, detail string) error {
	entry := progressEntry{
		Key:       key,
		Status:    status,
		Detail:    detail,
		CheckedAt: time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal progress entry: %w", err)
	}
	if _, err := l.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write progress entry: %w", err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync progress log: %w", err)
	}
	l.completed[key] = status
	return nil
}

// Close closes the underlying file.
func (l *ProgressLog) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
