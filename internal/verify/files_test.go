package verify

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"synomigrate/internal/immich"
	"synomigrate/internal/ledger"
	"synomigrate/internal/reader"
)

type fakeAssetClient struct {
	mu       sync.Mutex
	assets   []immich.Asset
	byID     map[string]*immich.Asset
	idCalls  []string
	allCalls int
}

func (f *fakeAssetClient) AllAssets(context.Context) ([]immich.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.allCalls++
	return f.assets, nil
}

func (f *fakeAssetClient) AssetByID(_ context.Context, id string) (*immich.Asset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.idCalls = append(f.idCalls, id)
	return f.byID[id], nil
}

type fixture struct {
	source       *reader.LocalReader
	store        *ledger.Store
	base         string
	progressPath string
}

func newVerifyFixture(t *testing.T, files map[string]string) *fixture {
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
	return &fixture{
		source:       source,
		store:        store,
		base:         base,
		progressPath: filepath.Join(t.TempDir(), "verify.jsonl"),
	}
}

func TestFileVerifierClassifiesOutcomes(t *testing.T) {
	fx := newVerifyFixture(t, map[string]string{
		"ok.jpg":       "good-bytes",
		"mismatch.jpg": "changed-bytes",
		"missing.jpg":  "never-uploaded",
		"unknown.jpg":  "no-ledger-row",
	})
	ctx := context.Background()

	seed := []ledger.FileRecord{
		{SourcePath: filepath.Join(fx.base, "ok.jpg"), Status: ledger.StatusSuccess, ImmichAssetID: "a-ok"},
		{SourcePath: filepath.Join(fx.base, "mismatch.jpg"), Status: ledger.StatusSuccess, ImmichAssetID: "a-mis"},
		{SourcePath: filepath.Join(fx.base, "missing.jpg"), Status: ledger.StatusSuccess, ImmichAssetID: "a-gone"},
	}
	for _, r := range seed {
		if err := fx.store.RecordFile(ctx, r); err != nil {
			t.Fatal(err)
		}
	}

	client := &fakeAssetClient{
		assets: []immich.Asset{
			{ID: "a-ok", Checksum: immich.Checksum([]byte("good-bytes"))},
			{ID: "a-mis", Checksum: immich.Checksum([]byte("original-bytes"))},
		},
		byID: map[string]*immich.Asset{},
	}

	v := NewFileVerifier(fx.source, client, fx.store, nil, fx.progressPath)
	summary, err := v.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if summary.Checked != 4 {
		t.Fatalf("checked = %d", summary.Checked)
	}
	if summary.OK != 1 || summary.Mismatched != 1 || summary.Missing != 1 || summary.NotInDB != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if summary.Valid() {
		t.Fatal("run with missing and mismatched files must not be valid")
	}
}

func TestFileVerifierNotInDBDoesNotInvalidate(t *testing.T) {
	fx := newVerifyFixture(t, map[string]string{"extra.jpg": "x"})

	client := &fakeAssetClient{byID: map[string]*immich.Asset{}}
	v := NewFileVerifier(fx.source, client, fx.store, nil, fx.progressPath)

	summary, err := v.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.NotInDB != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if !summary.Valid() {
		t.Fatal("files absent from the ledger must not invalidate the run")
	}
}

func TestFileVerifierFallsBackToPerAssetLookup(t *testing.T) {
	fx := newVerifyFixture(t, map[string]string{"late.jpg": "late-bytes"})
	ctx := context.Background()
	if err := fx.store.RecordFile(ctx, ledger.FileRecord{
		SourcePath:    filepath.Join(fx.base, "late.jpg"),
		Status:        ledger.StatusSuccess,
		ImmichAssetID: "a-late",
	}); err != nil {
		t.Fatal(err)
	}

	client := &fakeAssetClient{
		byID: map[string]*immich.Asset{
			"a-late": {ID: "a-late", Checksum: immich.Checksum([]byte("late-bytes"))},
		},
	}
	v := NewFileVerifier(fx.source, client, fx.store, nil, fx.progressPath)

	summary, err := v.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.OK != 1 {
		t.Fatalf("summary = %+v", summary)
	}
	if len(client.idCalls) != 1 || client.idCalls[0] != "a-late" {
		t.Fatalf("idCalls = %v", client.idCalls)
	}
}

func TestFileVerifierResumesFromProgressLog(t *testing.T) {
	fx := newVerifyFixture(t, map[string]string{
		"a.jpg": "aaa",
		"b.jpg": "bbb",
	})
	ctx := context.Background()
	for _, rel := range []string{"a.jpg", "b.jpg"} {
		if err := fx.store.RecordFile(ctx, ledger.FileRecord{
			SourcePath:    filepath.Join(fx.base, rel),
			Status:        ledger.StatusSuccess,
			ImmichAssetID: "asset-" + rel,
		}); err != nil {
			t.Fatal(err)
		}
	}

	// Seed the progress log as if a previous run verified a.jpg.
	log, err := OpenProgressLog(fx.progressPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := log.Record(filepath.Join(fx.base, "a.jpg"), StatusOK, ""); err != nil {
		t.Fatal(err)
	}
	log.Close()

	client := &fakeAssetClient{
		assets: []immich.Asset{
			{ID: "asset-a.jpg", Checksum: immich.Checksum([]byte("aaa"))},
			{ID: "asset-b.jpg", Checksum: immich.Checksum([]byte("bbb"))},
		},
		byID: map[string]*immich.Asset{},
	}
	v := NewFileVerifier(fx.source, client, fx.store, nil, fx.progressPath)

	summary, err := v.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Resumed != 1 {
		t.Fatalf("resumed = %d", summary.Resumed)
	}
	if summary.OK != 2 || summary.Checked != 2 {
		t.Fatalf("summary = %+v", summary)
	}
	if !summary.Valid() {
		t.Fatal("resumed clean run should be valid")
	}
}

func TestFileVerifierRowWithoutAssetIDIsMissing(t *testing.T) {
	fx := newVerifyFixture(t, map[string]string{"odd.jpg": "x"})
	ctx := context.Background()
	if err := fx.store.RecordFile(ctx, ledger.FileRecord{
		SourcePath: filepath.Join(fx.base, "odd.jpg"),
		Status:     ledger.StatusSuccess,
	}); err != nil {
		t.Fatal(err)
	}

	client := &fakeAssetClient{byID: map[string]*immich.Asset{}}
	v := NewFileVerifier(fx.source, client, fx.store, nil, fx.progressPath)

	summary, err := v.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if summary.Missing != 1 || summary.Valid() {
		t.Fatalf("summary = %+v", summary)
	}
	if len(client.idCalls) != 0 {
		t.Fatalf("no per-asset lookup expected, got %v", client.idCalls)
	}
}
