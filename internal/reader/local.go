package reader

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// LocalReader reads files from a locally mounted directory tree.
type LocalReader struct {
	base string
}

// NewLocalReader creates a reader rooted at base. The base directory must
// exist and be a directory.
func NewLocalReader(base string) (*LocalReader, error) {
	abs, err := filepath.Abs(base)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("source path: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source path %s is not a directory", abs)
	}
	return &LocalReader{base: abs}, nil
}

// Base returns the absolute root directory this reader serves.
func (r *LocalReader) Base() string {
	return r.base
}

// ListFiles walks the tree and returns non-excluded regular files with
// absolute paths, sorted by path.
func (r *LocalReader) ListFiles(ctx context.Context) ([]FileInfo, error) {
	var files []FileInfo
	err := walkFS(ctx, os.DirFS(r.base), func(rel string, entry fs.DirEntry) error {
		info, err := entry.Info()
		if err != nil {
			return err
		}
		files = append(files, FileInfo{
			Path:    filepath.Join(r.base, filepath.FromSlash(rel)),
			Size:    info.Size(),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list source files: %w", err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })
	return files, nil
}

// ReadFile returns the contents of an absolute path under the base.
func (r *LocalReader) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.checkPath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}
	return data, nil
}

// Stat returns metadata for a single file.
func (r *LocalReader) Stat(ctx context.Context, path string) (FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return FileInfo{}, err
	}
	if err := r.checkPath(path); err != nil {
		return FileInfo{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, fmt.Errorf("stat source file: %w", err)
	}
	return FileInfo{Path: path, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Close is a no-op for local sources.
func (r *LocalReader) Close() error {
	return nil
}

func (r *LocalReader) checkPath(path string) error {
	cleaned := filepath.Clean(path)
	if cleaned != r.base && !strings.HasPrefix(cleaned, r.base+string(filepath.Separator)) {
		return fmt.Errorf("path %s is outside source root %s", path, r.base)
	}
	return nil
}
