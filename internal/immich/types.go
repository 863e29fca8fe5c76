package immich

// Asset is an Immich asset as returned by search and lookup endpoints.
type Asset struct {
	ID               string `json:"id"`
	DeviceAssetID    string `json:"deviceAssetId"`
	OwnerID          string `json:"ownerId"`
	OriginalPath     string `json:"originalPath"`
	OriginalFileName string `json:"originalFileName"`
	Type             string `json:"type"`
	Checksum         string `json:"checksum"`
	LivePhotoVideoID string `json:"livePhotoVideoId"`
}

// Album is an Immich album summary.
type Album struct {
	ID         string  `json:"id"`
	AlbumName  string  `json:"albumName"`
	AssetCount int     `json:"assetCount"`
	Assets     []Asset `json:"assets"`
}

type searchMetadataRequest struct {
	Size int `json:"size"`
	Page int `json:"page"`
}

type searchMetadataResponse struct {
	Assets struct {
		Items    []Asset `json:"items"`
		Total    int     `json:"total"`
		NextPage string  `json:"nextPage"`
	} `json:"assets"`
}

type uploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type createAlbumRequest struct {
	AlbumName string `json:"albumName"`
}

type createAlbumResponse struct {
	ID string `json:"id"`
}

type addAssetsRequest struct {
	IDs []string `json:"ids"`
}
