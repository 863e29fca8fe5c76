package immich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
)

// CreateAlbum creates an empty album and returns its id.
func (c *Client) CreateAlbum(ctx context.Context, name string) (string, error) {
	payload, err := json.Marshal(createAlbumRequest{AlbumName: name})
	if err != nil {
		return "", fmt.Errorf("marshal album request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/albums", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("create album %q: %w", name, err)
	}
	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create album %q: status %d: %s", name, resp.StatusCode, drainBody(resp))
	}

	var decoded createAlbumResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		resp.Body.Close()
		return "", fmt.Errorf("decode album response: %w", err)
	}
	resp.Body.Close()
	if decoded.ID == "" {
		return "", fmt.Errorf("create album %q: response carried no id", name)
	}
	return decoded.ID, nil
}

// AddAssetsToAlbum assigns assets to an existing album.
func (c *Client) AddAssetsToAlbum(ctx context.Context, albumID string, assetIDs []string) error {
	if len(assetIDs) == 0 {
		return nil
	}

	payload, err := json.Marshal(addAssetsRequest{IDs: assetIDs})
	if err != nil {
		return fmt.Errorf("marshal asset ids: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPut, "/api/albums/"+queryEscapePath(albumID)+"/assets", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("add assets to album %s: %w", albumID, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("add assets to album %s: status %d: %s", albumID, resp.StatusCode, drainBody(resp))
	}
	drainBody(resp)
	return nil
}

// Albums lists every album on the server.
func (c *Client) Albums(ctx context.Context) ([]Album, error) {
	var albums []Album
	err := c.retryRead(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, "/api/albums", nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("list albums: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("list albums: status %d: %s", resp.StatusCode, drainBody(resp))
		}

		var decoded []Album
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			resp.Body.Close()
			return fmt.Errorf("decode albums: %w", err)
		}
		resp.Body.Close()
		albums = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return albums, nil
}

// AlbumAssets fetches one album with its full asset list.
func (c *Client) AlbumAssets(ctx context.Context, albumID string) ([]Asset, error) {
	var assets []Asset
	err := c.retryRead(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, "/api/albums/"+queryEscapePath(albumID), nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("get album %s: %w", albumID, err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("get album %s: status %d: %s", albumID, resp.StatusCode, drainBody(resp))
		}

		var decoded Album
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			resp.Body.Close()
			return fmt.Errorf("decode album %s: %w", albumID, err)
		}
		resp.Body.Close()
		assets = decoded.Assets
		return nil
	})
	if err != nil {
		return nil, err
	}
	return assets, nil
}
