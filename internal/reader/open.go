package reader

import (
	"context"

	"synomigrate/internal/config"
)

// Open constructs the FileReader appropriate for the configured source:
// an SMB reader for smb:// URLs, a local reader otherwise.
func Open(ctx context.Context, cfg *config.Config) (FileReader, error) {
	if cfg.IsSMBSource() {
		location, err := ParseSMBLocation(cfg.Source.Path)
		if err != nil {
			return nil, err
		}
		return NewSMBReader(ctx, location, cfg.Source.SMBUser, cfg.Source.SMBPassword)
	}
	return NewLocalReader(cfg.Source.Path)
}
