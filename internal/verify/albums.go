package verify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"synomigrate/internal/immich"
	"synomigrate/internal/ledger"
	"synomigrate/internal/logging"
	"synomigrate/internal/reader"
	"synomigrate/internal/synodb"
)

// hashBatchSize bounds how many source files are hashed between
// progress log lines.
const hashBatchSize = 100

// Album match types.
const (
	MatchBoth = "both"
	MatchName = "name"
	MatchID   = "id"
)

// AlbumSource lists albums and members from the Synology database.
type AlbumSource interface {
	Albums(ctx context.Context) ([]synodb.Album, error)
	AlbumItemPaths(ctx context.Context, albumID int64) ([]string, error)
}

// AlbumClient is the slice of the Immich client album verification needs.
type AlbumClient interface {
	Albums(ctx context.Context) ([]immich.Album, error)
	AlbumAssets(ctx context.Context, albumID string) ([]immich.Asset, error)
	AssetByID(ctx context.Context, id string) (*immich.Asset, error)
}

// AlbumResult is the verification outcome for one matched album.
// HashMismatchPaths is only populated in filename comparison mode,
// where a name match can pair files with different contents.
type AlbumResult struct {
	SynologyID        int64    `json:"synology_id"`
	Name              string   `json:"name"`
	ImmichID          string   `json:"immich_id"`
	MatchType         string   `json:"match_type"`
	SourceCount       int      `json:"source_count"`
	DestCount         int      `json:"dest_count"`
	MissingPaths      []string `json:"missing_paths,omitempty"`
	HashMismatchPaths []string `json:"hash_mismatch_paths,omitempty"`
	ExtraCount        int      `json:"extra_count"`
	OK                bool     `json:"ok"`
}

// AlbumReport is the full album verification report.
type AlbumReport struct {
	GeneratedAt  string        `json:"generated_at"`
	Albums       []AlbumResult `json:"albums"`
	SynologyOnly []string      `json:"synology_only,omitempty"`
	ImmichOnly   []string      `json:"immich_only,omitempty"`
	Resumed      int           `json:"resumed"`
	Valid        bool          `json:"valid"`
}

// AlbumVerifier compares album contents between Synology and Immich by
// content hash, so renamed files still verify.
type AlbumVerifier struct {
	albumSource  AlbumSource
	client       AlbumClient
	source       reader.FileReader
	store        *ledger.Store
	mapper       *synodb.PathMapper
	logger       *slog.Logger
	progressPath string
	reportPath   string
	byFilename   bool
}

// AlbumVerifierOption configures an AlbumVerifier.
type AlbumVerifierOption func(*AlbumVerifier)

// WithFilenameCompare switches album comparison to filename mode:
// members pair by original file name and paired files additionally
// compare content hashes. Renamed files report as missing there.
func WithFilenameCompare() AlbumVerifierOption {
	return func(v *AlbumVerifier) {
		v.byFilename = true
	}
}

// NewAlbumVerifier creates an album verifier. A nil logger disables
// logging.
func NewAlbumVerifier(
	albumSource AlbumSource,
	client AlbumClient,
	source reader.FileReader,
	store *ledger.Store,
	mapper *synodb.PathMapper,
	logger *slog.Logger,
	progressPath, reportPath string,
	opts ...AlbumVerifierOption,
) *AlbumVerifier {
	if logger == nil {
		logger = logging.NewNop()
	}
	v := &AlbumVerifier{
		albumSource:  albumSource,
		client:       client,
		source:       source,
		store:        store,
		mapper:       mapper,
		logger:       logging.WithComponent(logger, "verify-albums"),
		progressPath: progressPath,
		reportPath:   reportPath,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Run matches albums across both systems and verifies every matched
// album's contents by hash. Completed albums are skipped on restart,
// and the structured report is written to the configured path.
func (v *AlbumVerifier) Run(ctx context.Context) (*AlbumReport, error) {
	synoAlbums, err := v.albumSource.Albums(ctx)
	if err != nil {
		return nil, fmt.Errorf("list synology albums: %w", err)
	}
	immichAlbums, err := v.client.Albums(ctx)
	if err != nil {
		return nil, fmt.Errorf("list immich albums: %w", err)
	}
	ledgerAlbums, err := v.store.Albums(ctx)
	if err != nil {
		return nil, err
	}

	matches, synoOnly, immichOnly := matchAlbums(synoAlbums, immichAlbums, ledgerAlbums)

	progress, err := OpenProgressLog(v.progressPath)
	if err != nil {
		return nil, err
	}
	defer progress.Close()

	report := &AlbumReport{
		SynologyOnly: synoOnly,
		ImmichOnly:   immichOnly,
		Valid:        true,
	}
	v.logger.Info("album verification started",
		"matched", len(matches),
		"synology_only", len(synoOnly),
		"immich_only", len(immichOnly),
		"resumed", progress.Len(),
	)

	for _, match := range matches {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		key := strconv.FormatInt(match.SynologyID, 10)
		if status, done := progress.Done(key); done {
			report.Resumed++
			if status != StatusOK {
				report.Valid = false
			}
			continue
		}

		var result *AlbumResult
		var err error
		if v.byFilename {
			result, err = v.verifyAlbumByFilename(ctx, match)
		} else {
			result, err = v.verifyAlbum(ctx, match)
		}
		if err != nil {
			return report, err
		}
		report.Albums = append(report.Albums, *result)
		if !result.OK {
			report.Valid = false
		}

		status := StatusOK
		detail := ""
		if !result.OK {
			status = StatusMismatch
			detail = fmt.Sprintf("%d missing, %d mismatched", len(result.MissingPaths), len(result.HashMismatchPaths))
		}
		if err := progress.Record(key, status, detail); err != nil {
			return report, err
		}
	}

	if len(synoOnly) > 0 {
		report.Valid = false
	}
	report.GeneratedAt = time.Now().UTC().Format(time.RFC3339)

	if err := v.writeReport(report); err != nil {
		return report, err
	}
	v.logger.Info("album verification finished",
		"albums", len(report.Albums),
		"valid", report.Valid,
		"report", v.reportPath,
	)
	return report, nil
}

type albumMatch struct {
	SynologyID int64
	Name       string
	ImmichID   string
	MatchType  string
}

// matchAlbums pairs Synology albums with Immich albums by exact name
// and by the id mapping the album migration recorded. Albums found
// through both routes report MatchBoth.
func matchAlbums(synoAlbums []synodb.Album, immichAlbums []immich.Album, ledgerAlbums []ledger.AlbumRecord) ([]albumMatch, []string, []string) {
	immichByName := make(map[string]immich.Album, len(immichAlbums))
	immichByID := make(map[string]immich.Album, len(immichAlbums))
	for _, album := range immichAlbums {
		immichByName[album.AlbumName] = album
		immichByID[album.ID] = album
	}

	mappedID := make(map[int64]string, len(ledgerAlbums))
	for _, record := range ledgerAlbums {
		if record.Status == ledger.StatusSuccess && record.ImmichAlbumID != "" {
			mappedID[record.SynologyAlbumID] = record.ImmichAlbumID
		}
	}

	var matches []albumMatch
	var synoOnly []string
	claimed := make(map[string]struct{})

	for _, album := range synoAlbums {
		byName, nameOK := immichByName[album.Name]

		var byID immich.Album
		idOK := false
		if immichID, ok := mappedID[album.ID]; ok {
			byID, idOK = immichByID[immichID]
		}

		switch {
		case nameOK && idOK && byName.ID == byID.ID:
			matches = append(matches, albumMatch{album.ID, album.Name, byID.ID, MatchBoth})
			claimed[byID.ID] = struct{}{}
		case idOK:
			matches = append(matches, albumMatch{album.ID, album.Name, byID.ID, MatchID})
			claimed[byID.ID] = struct{}{}
			if nameOK {
				claimed[byName.ID] = struct{}{}
			}
		case nameOK:
			matches = append(matches, albumMatch{album.ID, album.Name, byName.ID, MatchName})
			claimed[byName.ID] = struct{}{}
		default:
			synoOnly = append(synoOnly, album.Name)
		}
	}

	var immichOnly []string
	for _, album := range immichAlbums {
		if _, ok := claimed[album.ID]; !ok {
			immichOnly = append(immichOnly, album.AlbumName)
		}
	}
	sort.Strings(immichOnly)

	return matches, synoOnly, immichOnly
}

// verifyAlbum compares one album's contents by hash. Live Photo motion
// assets hang off their still in Immich, so their checksums are pulled
// in per-asset to keep paired .mov files from reporting as missing.
func (v *AlbumVerifier) verifyAlbum(ctx context.Context, match albumMatch) (*AlbumResult, error) {
	result := &AlbumResult{
		SynologyID: match.SynologyID,
		Name:       match.Name,
		ImmichID:   match.ImmichID,
		MatchType:  match.MatchType,
	}

	assets, err := v.client.AlbumAssets(ctx, match.ImmichID)
	if err != nil {
		return nil, fmt.Errorf("album %q assets: %w", match.Name, err)
	}
	destHashes := make(map[string]struct{}, len(assets))
	for _, asset := range assets {
		if asset.Checksum != "" {
			destHashes[asset.Checksum] = struct{}{}
		}
		if asset.LivePhotoVideoID == "" {
			continue
		}
		companion, err := v.client.AssetByID(ctx, asset.LivePhotoVideoID)
		if err != nil {
			return nil, err
		}
		if companion != nil && companion.Checksum != "" {
			destHashes[companion.Checksum] = struct{}{}
		}
	}
	result.DestCount = len(assets)

	paths, err := v.albumSource.AlbumItemPaths(ctx, match.SynologyID)
	if err != nil {
		return nil, fmt.Errorf("album %q members: %w", match.Name, err)
	}
	result.SourceCount = len(paths)

	matchedDest := make(map[string]struct{})
	for start := 0; start < len(paths); start += hashBatchSize {
		end := start + hashBatchSize
		if end > len(paths) {
			end = len(paths)
		}
		for _, dbPath := range paths[start:end] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sourcePath, err := v.mapper.ToSourcePath(dbPath)
			if err != nil {
				result.MissingPaths = append(result.MissingPaths, dbPath)
				continue
			}
			data, err := v.source.ReadFile(ctx, sourcePath)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				v.logger.Warn("album member unreadable", "album", match.Name, "path", sourcePath, "error", err)
				result.MissingPaths = append(result.MissingPaths, sourcePath)
				continue
			}
			hash := immich.Checksum(data)
			if _, ok := destHashes[hash]; ok {
				matchedDest[hash] = struct{}{}
			} else {
				result.MissingPaths = append(result.MissingPaths, sourcePath)
			}
		}
		v.logger.Debug("album hash batch done", "album", match.Name, "hashed", end, "of", len(paths))
	}

	result.ExtraCount = len(destHashes) - len(matchedDest)
	result.OK = len(result.MissingPaths) == 0
	return result, nil
}

// verifyAlbumByFilename compares one album's contents by original file
// name, then checks content hashes on the pairs that matched.
func (v *AlbumVerifier) verifyAlbumByFilename(ctx context.Context, match albumMatch) (*AlbumResult, error) {
	result := &AlbumResult{
		SynologyID: match.SynologyID,
		Name:       match.Name,
		ImmichID:   match.ImmichID,
		MatchType:  match.MatchType,
	}

	assets, err := v.client.AlbumAssets(ctx, match.ImmichID)
	if err != nil {
		return nil, fmt.Errorf("album %q assets: %w", match.Name, err)
	}
	checksumByName := make(map[string]string, len(assets))
	for _, asset := range assets {
		checksumByName[asset.OriginalFileName] = asset.Checksum
	}
	result.DestCount = len(assets)

	paths, err := v.albumSource.AlbumItemPaths(ctx, match.SynologyID)
	if err != nil {
		return nil, fmt.Errorf("album %q members: %w", match.Name, err)
	}
	result.SourceCount = len(paths)

	sourceNames := make(map[string]struct{}, len(paths))
	for start := 0; start < len(paths); start += hashBatchSize {
		end := start + hashBatchSize
		if end > len(paths) {
			end = len(paths)
		}
		for _, dbPath := range paths[start:end] {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sourcePath, err := v.mapper.ToSourcePath(dbPath)
			if err != nil {
				result.MissingPaths = append(result.MissingPaths, dbPath)
				continue
			}
			name := path.Base(sourcePath)
			sourceNames[name] = struct{}{}
			checksum, ok := checksumByName[name]
			if !ok {
				result.MissingPaths = append(result.MissingPaths, sourcePath)
				continue
			}
			if checksum == "" {
				continue
			}
			data, err := v.source.ReadFile(ctx, sourcePath)
			if err != nil {
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				v.logger.Warn("album member unreadable", "album", match.Name, "path", sourcePath, "error", err)
				result.MissingPaths = append(result.MissingPaths, sourcePath)
				continue
			}
			if immich.Checksum(data) != checksum {
				result.HashMismatchPaths = append(result.HashMismatchPaths, sourcePath)
			}
		}
		v.logger.Debug("album hash batch done", "album", match.Name, "hashed", end, "of", len(paths))
	}

	for _, asset := range assets {
		if _, ok := sourceNames[asset.OriginalFileName]; !ok {
			result.ExtraCount++
		}
	}
	result.OK = len(result.MissingPaths) == 0 && len(result.HashMismatchPaths) == 0
	return result, nil
}

func (v *AlbumVerifier) writeReport(report *AlbumReport) error {
	dir := filepath.Dir(v.reportPath)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure report dir: %w", err)
		}
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal album report: %w", err)
	}
	if err := os.WriteFile(v.reportPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write album report: %w", err)
	}
	return nil
}
