package immich

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, "test-key", 5*time.Second, 5*time.Second)
}

func TestUploadAssetCreated(t *testing.T) {
	var gotKey, gotFileName string
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/assets" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("x-api-key")
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if r.FormValue("deviceId") != "synomigrate" {
			t.Errorf("deviceId = %q", r.FormValue("deviceId"))
		}
		if r.FormValue("fileCreatedAt") == "" || r.FormValue("fileModifiedAt") == "" {
			t.Error("timestamps missing from upload form")
		}
		_, header, err := r.FormFile("assetData")
		if err != nil {
			t.Fatalf("assetData part: %v", err)
		}
		gotFileName = header.Filename
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "asset-9", "status": "created"})
	}))

	result, err := client.UploadAsset(context.Background(), "/photos/IMG_1.jpg", []byte("bytes"), time.Now())
	if err != nil {
		t.Fatalf("UploadAsset: %v", err)
	}
	if result.AssetID != "asset-9" || result.Duplicate {
		t.Fatalf("result = %+v", result)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
	if gotFileName != "IMG_1.jpg" {
		t.Errorf("upload file name = %q", gotFileName)
	}
}

func TestUploadAssetOKWithoutDuplicateStatusIsError(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"id": "asset-7", "status": "created"})
	}))

	_, err := client.UploadAsset(context.Background(), "/photos/IMG_2.jpg", []byte("bytes"), time.Now())
	if err == nil {
		t.Fatal("200 without duplicate status must be rejected")
	}
}

func TestUploadAssetDuplicateIsSuccess(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"id": "existing-1", "status": "duplicate"})
	}))

	result, err := client.UploadAsset(context.Background(), "a.jpg", []byte("x"), time.Time{})
	if err != nil {
		t.Fatalf("UploadAsset: %v", err)
	}
	if !result.Duplicate || result.AssetID != "existing-1" {
		t.Fatalf("result = %+v", result)
	}
}

func TestUploadAssetUnsupportedFormat(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Bad Request: Unsupported file type .xyz", http.StatusBadRequest)
	}))

	_, err := client.UploadAsset(context.Background(), "a.xyz", []byte("x"), time.Time{})
	var unsupported *UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Fatalf("expected UnsupportedError, got %v", err)
	}
}

func TestUploadAssetOtherBadRequestIsFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusBadRequest)
	}))

	_, err := client.UploadAsset(context.Background(), "a.jpg", []byte("x"), time.Time{})
	if err == nil {
		t.Fatal("expected error")
	}
	var unsupported *UnsupportedError
	if errors.As(err, &unsupported) {
		t.Fatal("quota error must not classify as unsupported")
	}
}

func TestAllAssetsPaginates(t *testing.T) {
	pagesServed := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/search/metadata" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req searchMetadataRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.Size != searchPageSize {
			t.Errorf("page size = %d", req.Size)
		}
		pagesServed++

		var items []Asset
		switch req.Page {
		case 1:
			for i := 0; i < searchPageSize; i++ {
				items = append(items, Asset{ID: fmt.Sprintf("p1-%d", i)})
			}
		case 2:
			items = []Asset{{ID: "p2-0"}, {ID: "p2-1"}}
		default:
			t.Errorf("unexpected page %d", req.Page)
		}

		var resp searchMetadataResponse
		resp.Assets.Items = items
		json.NewEncoder(w).Encode(resp)
	}))

	assets, err := client.AllAssets(context.Background())
	if err != nil {
		t.Fatalf("AllAssets: %v", err)
	}
	if len(assets) != searchPageSize+2 {
		t.Fatalf("got %d assets", len(assets))
	}
	if pagesServed != 2 {
		t.Fatalf("served %d pages, want 2", pagesServed)
	}
	if assets[len(assets)-1].ID != "p2-1" {
		t.Fatalf("last asset = %q", assets[len(assets)-1].ID)
	}
}

func TestAssetByIDAbsentReturnsNil(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))

	asset, err := client.AssetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("AssetByID: %v", err)
	}
	if asset != nil {
		t.Fatalf("expected nil asset, got %+v", asset)
	}
}

func TestAssetByIDServerErrorRetriesInsteadOfAbsent(t *testing.T) {
	attempts := 0
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts < 3 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(Asset{ID: "a-2", Checksum: "cafe"})
	}))

	// A 500 must surface as a retryable error, never as (nil, nil):
	// verification would otherwise report the asset missing.
	asset, err := client.AssetByID(context.Background(), "a-2")
	if err != nil {
		t.Fatalf("AssetByID: %v", err)
	}
	if asset == nil || asset.Checksum != "cafe" {
		t.Fatalf("asset = %+v", asset)
	}
	if attempts != 3 {
		t.Fatalf("attempts = %d, want 3", attempts)
	}
}

func TestAssetByIDFound(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/assets/a-1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(Asset{ID: "a-1", Checksum: "deadbeef", LivePhotoVideoID: "v-1"})
	}))

	asset, err := client.AssetByID(context.Background(), "a-1")
	if err != nil {
		t.Fatalf("AssetByID: %v", err)
	}
	if asset == nil || asset.Checksum != "deadbeef" || asset.LivePhotoVideoID != "v-1" {
		t.Fatalf("asset = %+v", asset)
	}
}

func TestCreateAlbum(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/albums" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req createAlbumRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.AlbumName != "Vacation" {
			t.Errorf("album name = %q", req.AlbumName)
		}
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]string{"id": "album-1"})
	}))

	id, err := client.CreateAlbum(context.Background(), "Vacation")
	if err != nil {
		t.Fatalf("CreateAlbum: %v", err)
	}
	if id != "album-1" {
		t.Fatalf("id = %q", id)
	}
}

func TestCreateAlbumFailure(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	if _, err := client.CreateAlbum(context.Background(), "X"); err == nil {
		t.Fatal("expected error")
	}
}

func TestAddAssetsToAlbum(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/api/albums/album-1/assets" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var req addAssetsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(req.IDs) != 2 {
			t.Errorf("ids = %v", req.IDs)
		}
		w.WriteHeader(http.StatusOK)
	}))

	if err := client.AddAssetsToAlbum(context.Background(), "album-1", []string{"a", "b"}); err != nil {
		t.Fatalf("AddAssetsToAlbum: %v", err)
	}
}

func TestAddAssetsToAlbumEmptyIsNoop(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected for empty asset list")
	}))

	if err := client.AddAssetsToAlbum(context.Background(), "album-1", nil); err != nil {
		t.Fatalf("AddAssetsToAlbum: %v", err)
	}
}

func TestChecksum(t *testing.T) {
	// SHA-1("hello") base64-encoded.
	if got := Checksum([]byte("hello")); got != "qvTGHdzF6KLavt4PO0gs2a6pQ00=" {
		t.Fatalf("Checksum = %q", got)
	}
}

func TestAlbumsList(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/albums" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]Album{{ID: "al-1", AlbumName: "Trip", AssetCount: 3}})
	}))

	albums, err := client.Albums(context.Background())
	if err != nil {
		t.Fatalf("Albums: %v", err)
	}
	if len(albums) != 1 || albums[0].AlbumName != "Trip" {
		t.Fatalf("albums = %+v", albums)
	}
}

func TestAlbumAssets(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Album{ID: "al-1", Assets: []Asset{{ID: "a-1"}, {ID: "a-2"}}})
	}))

	assets, err := client.AlbumAssets(context.Background(), "al-1")
	if err != nil {
		t.Fatalf("AlbumAssets: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("assets = %+v", assets)
	}
}
