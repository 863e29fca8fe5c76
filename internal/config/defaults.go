package config

const (
	defaultLedgerPath              = "migration_progress.db"
	defaultLogDir                  = "~/.local/share/synomigrate/logs"
	defaultVerifyProgressPath      = "hash_verification_progress.txt"
	defaultAlbumVerifyProgressPath = "album_verification_progress.json"
	defaultAlbumVerifyReportPath   = "album_verification_report.json"
	defaultBatchSize               = 100
	defaultBatchDelaySeconds       = 1.0
	defaultUploadTimeoutSeconds    = 600
	defaultRequestTimeoutSeconds   = 60
	defaultSynologyDBPort          = 5432
	defaultSynologyDBName          = "synofoto"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Immich: Immich{
			UploadTimeout:  defaultUploadTimeoutSeconds,
			RequestTimeout: defaultRequestTimeoutSeconds,
		},
		Migration: Migration{
			BatchSize:         defaultBatchSize,
			BatchDelaySeconds: defaultBatchDelaySeconds,
		},
		Synology: Synology{
			DBPort: defaultSynologyDBPort,
			DBName: defaultSynologyDBName,
		},
		Paths: Paths{
			LedgerPath:              defaultLedgerPath,
			LogDir:                  defaultLogDir,
			VerifyProgressPath:      defaultVerifyProgressPath,
			AlbumVerifyProgressPath: defaultAlbumVerifyProgressPath,
			AlbumVerifyReportPath:   defaultAlbumVerifyReportPath,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
