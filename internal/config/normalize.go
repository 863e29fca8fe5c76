package config

import "strings"

// normalize expands path fields and trims connection values so validation and
// later use see canonical values.
func (c *Config) normalize() error {
	c.Source.Path = strings.TrimSpace(c.Source.Path)
	c.Immich.URL = strings.TrimRight(strings.TrimSpace(c.Immich.URL), "/")
	c.Immich.APIKey = strings.TrimSpace(c.Immich.APIKey)
	c.Synology.DBHost = strings.TrimSpace(c.Synology.DBHost)
	c.Synology.DBName = strings.TrimSpace(c.Synology.DBName)
	c.Synology.DBPathPrefix = strings.TrimSpace(c.Synology.DBPathPrefix)
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))

	// Local source paths are made absolute; SMB locations are kept verbatim.
	if c.Source.Path != "" && !c.IsSMBSource() {
		expanded, err := expandPath(c.Source.Path)
		if err != nil {
			return err
		}
		c.Source.Path = expanded
	}

	for _, field := range []*string{
		&c.Paths.LedgerPath,
		&c.Paths.LogDir,
		&c.Paths.VerifyProgressPath,
		&c.Paths.AlbumVerifyProgressPath,
		&c.Paths.AlbumVerifyReportPath,
	} {
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}
	return nil
}
