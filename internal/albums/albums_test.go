package albums

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"synomigrate/internal/ledger"
	"synomigrate/internal/synodb"
)

type fakeSource struct {
	albums []synodb.Album
	items  map[int64][]string
}

func (f *fakeSource) Albums(context.Context) ([]synodb.Album, error) {
	return f.albums, nil
}

func (f *fakeSource) AlbumItemPaths(_ context.Context, albumID int64) ([]string, error) {
	return f.items[albumID], nil
}

type fakeService struct {
	created    []string
	assigned   map[string][]string
	createErr  error
	assignErr  error
	nextID     int
}

func (f *fakeService) CreateAlbum(_ context.Context, name string) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.nextID++
	id := "imm-" + name
	f.created = append(f.created, name)
	return id, nil
}

func (f *fakeService) AddAssetsToAlbum(_ context.Context, albumID string, assetIDs []string) error {
	if f.assignErr != nil {
		return f.assignErr
	}
	if f.assigned == nil {
		f.assigned = map[string][]string{}
	}
	f.assigned[albumID] = assetIDs
	return nil
}

func openLedger(t *testing.T) *ledger.Store {
	t.Helper()
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRunCreatesAlbumWithResolvedAssets(t *testing.T) {
	store := openLedger(t)
	ctx := context.Background()
	if err := store.RecordFile(ctx, ledger.FileRecord{
		SourcePath:    "/mnt/photo/family/a.jpg",
		Status:        ledger.StatusSuccess,
		ImmichAssetID: "asset-a",
	}); err != nil {
		t.Fatal(err)
	}
	if err := store.RecordFile(ctx, ledger.FileRecord{
		SourcePath:   "/mnt/photo/family/b.jpg",
		Status:       ledger.StatusFailed,
		ErrorMessage: "timeout",
	}); err != nil {
		t.Fatal(err)
	}

	source := &fakeSource{
		albums: []synodb.Album{{ID: 1, Name: "Family", ItemCount: 3}},
		items: map[int64][]string{
			1: {
				"/volume1/photo/family/a.jpg",
				"/volume1/photo/family/b.jpg",
				"/volume1/photo/family/never-migrated.jpg",
			},
		},
	}
	service := &fakeService{}
	mapper := synodb.NewPathMapper("/volume1/photo", "/mnt/photo")
	m := New(source, service, store, mapper, nil, false)

	summary, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Migrated != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.MissingAssets != 2 {
		t.Fatalf("missing = %d, want 2", summary.MissingAssets)
	}

	got := service.assigned["imm-Family"]
	if len(got) != 1 || got[0] != "asset-a" {
		t.Fatalf("assigned = %v", got)
	}

	albums, err := store.Albums(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(albums) != 1 || albums[0].ImmichAlbumID != "imm-Family" || albums[0].Status != ledger.StatusSuccess {
		t.Fatalf("albums = %+v", albums)
	}
}

func TestRunSkipsMigratedAlbums(t *testing.T) {
	store := openLedger(t)
	ctx := context.Background()
	if err := store.RecordAlbum(ctx, ledger.AlbumRecord{
		SynologyAlbumID: 1,
		Name:            "Done",
		ImmichAlbumID:   "imm-1",
		Status:          ledger.StatusSuccess,
	}); err != nil {
		t.Fatal(err)
	}

	source := &fakeSource{albums: []synodb.Album{{ID: 1, Name: "Done"}}}
	service := &fakeService{}
	m := New(source, service, store, synodb.NewPathMapper("", "/mnt"), nil, false)

	summary, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Skipped != 1 || len(service.created) != 0 {
		t.Fatalf("summary = %+v, created = %v", summary, service.created)
	}
}

func TestRunCreateFailureLeavesAlbumUnrecorded(t *testing.T) {
	store := openLedger(t)
	source := &fakeSource{albums: []synodb.Album{{ID: 2, Name: "Broken"}}}
	service := &fakeService{createErr: errors.New("boom")}
	m := New(source, service, store, synodb.NewPathMapper("", "/mnt"), nil, false)

	summary, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	albums, err := store.Albums(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(albums) != 0 {
		t.Fatalf("failed album must not be recorded: %+v", albums)
	}
}

func TestRunAssignFailureStillRecordsAlbum(t *testing.T) {
	store := openLedger(t)
	ctx := context.Background()
	if err := store.RecordFile(ctx, ledger.FileRecord{
		SourcePath:    "/mnt/a.jpg",
		Status:        ledger.StatusSuccess,
		ImmichAssetID: "asset-a",
	}); err != nil {
		t.Fatal(err)
	}

	source := &fakeSource{
		albums: []synodb.Album{{ID: 3, Name: "Partial"}},
		items:  map[int64][]string{3: {"/a.jpg"}},
	}
	service := &fakeService{assignErr: errors.New("put failed")}
	m := New(source, service, store, synodb.NewPathMapper("", "/mnt"), nil, false)

	summary, err := m.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Migrated != 1 || summary.Failed != 0 {
		t.Fatalf("summary = %+v", summary)
	}

	albums, err := store.Albums(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(albums) != 1 || albums[0].Status != ledger.StatusSuccess {
		t.Fatalf("albums = %+v", albums)
	}
}

func TestRunDryRunCreatesNothing(t *testing.T) {
	store := openLedger(t)
	source := &fakeSource{albums: []synodb.Album{{ID: 4, Name: "Preview"}}}
	service := &fakeService{}
	m := New(source, service, store, synodb.NewPathMapper("", "/mnt"), nil, true)

	summary, err := m.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Migrated != 1 || len(service.created) != 0 {
		t.Fatalf("summary = %+v, created = %v", summary, service.created)
	}

	albums, err := store.Albums(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(albums) != 0 {
		t.Fatalf("dry run must not record albums: %+v", albums)
	}
}
