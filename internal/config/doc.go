// Package config loads, validates, and normalizes the TOML configuration
// shared by every synomigrate command.
package config
