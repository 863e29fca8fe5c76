package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Source describes where the photo library is read from.
type Source struct {
	// Path is either a local directory or an smb://host[:port]/share/sub/path
	// location string.
	Path        string `toml:"path"`
	SMBUser     string `toml:"smb_user"`
	SMBPassword string `toml:"smb_password"`
}

// Immich contains connection settings for the destination server.
type Immich struct {
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	UploadTimeout  int    `toml:"upload_timeout_seconds"`
	RequestTimeout int    `toml:"request_timeout_seconds"`
}

// Migration contains orchestration tuning.
type Migration struct {
	DryRun            bool    `toml:"dry_run"`
	BatchSize         int     `toml:"batch_size"`
	BatchDelaySeconds float64 `toml:"batch_delay_seconds"`
}

// Synology contains connection settings for the Synology Photos metadata
// database, used by album migration and album verification.
type Synology struct {
	DBHost     string `toml:"db_host"`
	DBPort     int    `toml:"db_port"`
	DBUser     string `toml:"db_user"`
	DBPassword string `toml:"db_password"`
	DBName     string `toml:"db_name"`
	// DBPathPrefix is the root the metadata database prepends to file paths.
	// Paths returned by album queries are translated from this prefix to the
	// source reader's root before any file access.
	DBPathPrefix string `toml:"db_path_prefix"`
}

// Paths contains locations for the ledger and auxiliary run files.
type Paths struct {
	LedgerPath              string `toml:"ledger_path"`
	LogDir                  string `toml:"log_dir"`
	VerifyProgressPath      string `toml:"verify_progress_path"`
	AlbumVerifyProgressPath string `toml:"album_verify_progress_path"`
	AlbumVerifyReportPath   string `toml:"album_verify_report_path"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for synomigrate.
type Config struct {
	Source    Source    `toml:"source"`
	Immich    Immich    `toml:"immich"`
	Migration Migration `toml:"migration"`
	Synology  Synology  `toml:"synology"`
	Paths     Paths     `toml:"paths"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/synomigrate/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("synomigrate.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// IsSMBSource reports whether the configured source is a remote SMB share.
func (c *Config) IsSMBSource() bool {
	return strings.HasPrefix(c.Source.Path, "smb://")
}

// HasSynologyDB reports whether the metadata database connection is configured.
func (c *Config) HasSynologyDB() bool {
	return strings.TrimSpace(c.Synology.DBHost) != ""
}

// EnsureDirectories creates the directories required for a run.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if dir := filepath.Dir(c.Paths.LedgerPath); dir != "" && dir != "." {
		dirs = append(dirs, dir)
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
