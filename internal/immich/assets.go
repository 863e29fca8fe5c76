package immich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/cenkalti/backoff/v4"
)

// searchPageSize matches the server's maximum metadata search page.
const searchPageSize = 1000

// AllAssets pages through the metadata search endpoint and returns
// every asset on the server.
func (c *Client) AllAssets(ctx context.Context) ([]Asset, error) {
	var all []Asset
	for page := 1; ; page++ {
		items, err := c.searchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		all = append(all, items...)
		if len(items) < searchPageSize {
			return all, nil
		}
	}
}

func (c *Client) searchPage(ctx context.Context, page int) ([]Asset, error) {
	payload, err := json.Marshal(searchMetadataRequest{Size: searchPageSize, Page: page})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	var items []Asset
	err = c.retryRead(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodPost, "/api/search/metadata", bytes.NewReader(payload))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("search assets: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("search assets page %d: status %d: %s", page, resp.StatusCode, drainBody(resp))
		}

		var decoded searchMetadataResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			resp.Body.Close()
			return fmt.Errorf("decode search response: %w", err)
		}
		resp.Body.Close()
		items = decoded.Assets.Items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// AssetByID fetches a single asset. A 404 returns (nil, nil); any other
// non-success status is an error.
func (c *Client) AssetByID(ctx context.Context, id string) (*Asset, error) {
	var asset *Asset
	err := c.retryRead(ctx, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, "/api/assets/"+queryEscapePath(id), nil)
		if err != nil {
			return backoff.Permanent(err)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("get asset %s: %w", id, err)
		}
		if resp.StatusCode == http.StatusNotFound {
			drainBody(resp)
			asset = nil
			return nil
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("get asset %s: status %d: %s", id, resp.StatusCode, drainBody(resp))
		}

		var decoded Asset
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			resp.Body.Close()
			return fmt.Errorf("decode asset %s: %w", id, err)
		}
		resp.Body.Close()
		asset = &decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return asset, nil
}
