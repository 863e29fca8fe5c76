package immich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// UnsupportedError reports that Immich rejected an asset because it
// cannot handle the file format. These are terminal: retrying the same
// bytes can never succeed.
type UnsupportedError struct {
	Message string
}

func (e *UnsupportedError) Error() string {
	return "unsupported format: " + e.Message
}

// UploadResult describes a successful asset upload.
type UploadResult struct {
	// AssetID is the server-assigned asset id.
	AssetID string
	// Duplicate is true when the server already held identical bytes
	// and returned the existing asset instead of creating a new one.
	Duplicate bool
}

// UploadAsset uploads file bytes as a new asset. A server-side
// duplicate is reported as success with the existing asset id. Format
// rejections surface as *UnsupportedError.
func (c *Client) UploadAsset(ctx context.Context, fileName string, data []byte, modTime time.Time) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if modTime.IsZero() {
		modTime = time.Now().UTC()
	}
	created := modTime.UTC().Format(time.RFC3339)

	fields := map[string]string{
		"deviceAssetId":  "synomigrate-" + uuid.NewString(),
		"deviceId":       "synomigrate",
		"fileCreatedAt":  created,
		"fileModifiedAt": created,
		"isFavorite":     "false",
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, fmt.Errorf("write upload field %s: %w", key, err)
		}
	}

	part, err := writer.CreateFormFile("assetData", path.Base(fileName))
	if err != nil {
		return nil, fmt.Errorf("create upload part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write upload payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finalize upload body: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/api/assets", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upload asset: %w", err)
	}

	switch resp.StatusCode {
	case http.StatusCreated, http.StatusOK:
		var decoded uploadResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("decode upload response: %w", err)
		}
		resp.Body.Close()
		if decoded.ID == "" {
			return nil, fmt.Errorf("upload response carried no asset id")
		}
		duplicate := strings.EqualFold(decoded.Status, "duplicate")
		// The server creates with 201 and reports duplicates with 200.
		// A 200 with any other status is off-contract.
		if resp.StatusCode == http.StatusOK && !duplicate {
			return nil, fmt.Errorf("upload returned 200 with status %q, want duplicate", decoded.Status)
		}
		return &UploadResult{
			AssetID:   decoded.ID,
			Duplicate: duplicate,
		}, nil
	case http.StatusBadRequest:
		message := drainBody(resp)
		if strings.Contains(strings.ToLower(message), "unsupported") {
			return nil, &UnsupportedError{Message: message}
		}
		return nil, fmt.Errorf("upload rejected: %s", message)
	default:
		return nil, fmt.Errorf("upload failed with status %d: %s", resp.StatusCode, drainBody(resp))
	}
}
