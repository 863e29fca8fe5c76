// Package testsupport provides fixtures shared by package tests.
package testsupport

import (
	"path/filepath"
	"testing"

	"synomigrate/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per
// test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Source.Path = filepath.Join(base, "source")
	cfg.Immich.URL = "http://127.0.0.1:0"
	cfg.Immich.APIKey = "test"
	cfg.Paths.LedgerPath = filepath.Join(base, "ledger.db")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.VerifyProgressPath = filepath.Join(base, "verify.jsonl")
	cfg.Paths.AlbumVerifyProgressPath = filepath.Join(base, "verify-albums.jsonl")
	cfg.Paths.AlbumVerifyReportPath = filepath.Join(base, "verify-albums.json")

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithSource overrides the source path on the test config.
func WithSource(path string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Source.Path = path
	}
}
