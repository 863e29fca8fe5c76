package backfill

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"synomigrate/internal/immich"
	"synomigrate/internal/ledger"
	"synomigrate/internal/reader"
)

type fakeClient struct {
	mu        sync.Mutex
	assets    []immich.Asset
	uploads   []string
	uploadErr error
	nextID    int
}

func (f *fakeClient) AllAssets(context.Context) ([]immich.Asset, error) {
	return f.assets, nil
}

func (f *fakeClient) UploadAsset(_ context.Context, fileName string, _ []byte, _ time.Time) (*immich.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, fileName)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.nextID++
	return &immich.UploadResult{AssetID: "up-" + filepath.Base(fileName)}, nil
}

func newFixture(t *testing.T, files map[string]string) (*reader.LocalReader, *ledger.Store, string) {
	t.Helper()
	base := t.TempDir()
	for rel, content := range files {
		full := filepath.Join(base, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	source, err := reader.NewLocalReader(base)
	if err != nil {
		t.Fatalf("NewLocalReader: %v", err)
	}
	store, err := ledger.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	t.Cleanup(func() {
		_ = source.Close()
		_ = store.Close()
	})
	return source, store, base
}

func TestRunBackfillsExistingAndUploadsMissing(t *testing.T) {
	source, store, base := newFixture(t, map[string]string{
		"known.jpg":   "known-bytes",
		"new.jpg":     "new-bytes",
		"tracked.jpg": "tracked-bytes",
	})
	ctx := context.Background()
	if err := store.RecordFile(ctx, ledger.FileRecord{
		SourcePath:    filepath.Join(base, "tracked.jpg"),
		Status:        ledger.StatusSuccess,
		ImmichAssetID: "t-1",
	}); err != nil {
		t.Fatal(err)
	}

	client := &fakeClient{
		assets: []immich.Asset{
			{ID: "remote-1", OriginalFileName: "known.jpg", Checksum: immich.Checksum([]byte("known-bytes"))},
		},
	}
	b := New(source, client, store, nil, false)

	summary, err := b.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Scanned != 3 || summary.Tracked != 1 || summary.Untracked != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Backfilled != 1 || summary.Uploaded != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(client.uploads) != 1 || filepath.Base(client.uploads[0]) != "new.jpg" {
		t.Fatalf("uploads = %v", client.uploads)
	}

	known, _ := store.GetFile(ctx, filepath.Join(base, "known.jpg"))
	if known == nil || known.Status != ledger.StatusSuccess || known.ImmichAssetID != "remote-1" {
		t.Fatalf("known record = %+v", known)
	}
	added, _ := store.GetFile(ctx, filepath.Join(base, "new.jpg"))
	if added == nil || added.Status != ledger.StatusSuccess || added.ImmichAssetID != "up-new.jpg" {
		t.Fatalf("new record = %+v", added)
	}
}

func TestRunChecksumMismatchForcesUpload(t *testing.T) {
	source, store, base := newFixture(t, map[string]string{
		"dup.jpg": "local-version",
	})
	client := &fakeClient{
		assets: []immich.Asset{
			{ID: "remote-dup", OriginalFileName: "dup.jpg", Checksum: immich.Checksum([]byte("remote-version"))},
		},
	}
	b := New(source, client, store, nil, false)

	summary, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Backfilled != 0 || summary.Uploaded != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	record, _ := store.GetFile(context.Background(), filepath.Join(base, "dup.jpg"))
	if record.ImmichAssetID == "remote-dup" {
		t.Fatal("mismatching asset must not be claimed")
	}
}

func TestRunDryRunStopsAfterDetection(t *testing.T) {
	source, store, base := newFixture(t, map[string]string{"a.jpg": "x"})
	client := &fakeClient{}
	b := New(source, client, store, nil, true)

	summary, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Untracked != 1 || summary.Uploaded != 0 || summary.Backfilled != 0 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(client.uploads) != 0 {
		t.Fatal("dry run must not upload")
	}

	record, _ := store.GetFile(context.Background(), filepath.Join(base, "a.jpg"))
	if record != nil {
		t.Fatalf("dry run must not write rows, got %+v", record)
	}
}

func TestRunRecordsUploadFailures(t *testing.T) {
	source, store, base := newFixture(t, map[string]string{"a.jpg": "x"})
	client := &fakeClient{uploadErr: errors.New("server down")}
	b := New(source, client, store, nil, false)

	summary, err := b.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Failed != 1 {
		t.Fatalf("summary = %+v", summary)
	}

	record, _ := store.GetFile(context.Background(), filepath.Join(base, "a.jpg"))
	if record == nil || record.Status != ledger.StatusFailed {
		t.Fatalf("record = %+v", record)
	}
}

func TestRunNothingUntrackedSkipsImmich(t *testing.T) {
	source, store, base := newFixture(t, map[string]string{"a.jpg": "x"})
	ctx := context.Background()
	if err := store.RecordFile(ctx, ledger.FileRecord{
		SourcePath: filepath.Join(base, "a.jpg"),
		Status:     ledger.StatusFailed,
		ErrorMessage: "seen before",
	}); err != nil {
		t.Fatal(err)
	}

	client := &fakeClient{}
	b := New(source, client, store, nil, false)

	summary, err := b.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Untracked != 0 || summary.Tracked != 1 {
		t.Fatalf("summary = %+v", summary)
	}
}
