package reader

import (
	"context"
	"io/fs"
)

// walkFS walks fsys from root selecting every regular file that survives
// the exclusion policy. Excluded directories are pruned whole, so their
// contents never reach the visitor. Paths handed to visit are
// slash-separated and relative to fsys.
func walkFS(ctx context.Context, fsys fs.FS, visit func(rel string, entry fs.DirEntry) error) error {
	return fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if entry.IsDir() {
			if path != "." && ExcludedDir(entry.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if !entry.Type().IsRegular() {
			return nil
		}
		if ExcludedFile(entry.Name()) {
			return nil
		}
		return visit(path, entry)
	})
}
