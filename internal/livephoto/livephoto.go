// Package livephoto groups source files into upload units, pairing the
// still image and motion video halves of Apple Live Photos.
package livephoto

import (
	"path"
	"sort"
	"strings"

	"synomigrate/internal/reader"
)

var imageExtensions = map[string]struct{}{
	".heic": {},
	".jpg":  {},
	".jpeg": {},
}

const videoExtension = ".mov"

// Group is a single upload unit: either a standalone file or a Live
// Photo pair. Image and Video are never both nil.
type Group struct {
	// Image is the still half of a pair, or a standalone image.
	Image *reader.FileInfo
	// Video is the motion half of a pair, or a standalone video.
	Video *reader.FileInfo
}

// IsPair reports whether the group holds both halves of a Live Photo.
func (g Group) IsPair() bool {
	return g.Image != nil && g.Video != nil
}

// Primary returns the file that drives the group: the image of a pair,
// otherwise whichever file the group holds.
func (g Group) Primary() reader.FileInfo {
	if g.Image != nil {
		return *g.Image
	}
	return *g.Video
}

// GroupFiles partitions files into upload units. An image and a .mov in
// the same directory sharing a base name (case-insensitive) form a pair;
// everything else becomes a singleton group. Files whose extension is
// neither a pairing image type nor .mov always stand alone. The result
// is ordered by the primary file's path.
func GroupFiles(files []reader.FileInfo) []Group {
	type bucket struct {
		image *reader.FileInfo
		video *reader.FileInfo
	}
	buckets := make(map[string]*bucket)
	order := make([]string, 0, len(files))

	for i := range files {
		file := &files[i]
		ext := strings.ToLower(path.Ext(file.Path))
		isImage := isImageExt(ext)
		isVideo := ext == videoExtension

		// Non-pairable types are keyed by full path so they can never
		// absorb or join a Live Photo pair.
		key := file.Path
		if isImage || isVideo {
			key = groupKey(file.Path)
		}

		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
			order = append(order, key)
		}
		switch {
		case isImage && b.image == nil:
			b.image = file
		case isVideo && b.video == nil:
			b.video = file
		case !isImage && !isVideo:
			b.image = file
		default:
			// The role slot is already taken: a second same-stem image
			// (or video) is not part of the pair. It stands alone under
			// its full path.
			extra := &bucket{}
			if isImage {
				extra.image = file
			} else {
				extra.video = file
			}
			buckets[file.Path] = extra
			order = append(order, file.Path)
		}
	}

	groups := make([]Group, 0, len(order))
	for _, key := range order {
		b := buckets[key]
		groups = append(groups, Group{Image: b.image, Video: b.video})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].Primary().Path < groups[j].Primary().Path
	})
	return groups
}

func isImageExt(ext string) bool {
	_, ok := imageExtensions[ext]
	return ok
}

// groupKey identifies a potential Live Photo pair: the containing
// directory plus the lowercased file stem.
func groupKey(filePath string) string {
	dir := path.Dir(filePath)
	base := path.Base(filePath)
	stem := strings.TrimSuffix(base, path.Ext(base))
	return dir + "\x00" + strings.ToLower(stem)
}
