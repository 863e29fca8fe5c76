package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSource(); err != nil {
		return err
	}
	if err := c.validateImmich(); err != nil {
		return err
	}
	if err := c.validateMigration(); err != nil {
		return err
	}
	if err := c.validateSynology(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSource() error {
	if c.Source.Path == "" {
		return errors.New("source.path must be set")
	}
	return nil
}

func (c *Config) validateImmich() error {
	if c.Immich.URL == "" {
		return errors.New("immich.url must be set")
	}
	if c.Immich.APIKey == "" {
		return errors.New("immich.api_key must be set")
	}
	if c.Immich.UploadTimeout <= 0 {
		return errors.New("immich.upload_timeout_seconds must be positive")
	}
	if c.Immich.RequestTimeout <= 0 {
		return errors.New("immich.request_timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateMigration() error {
	if c.Migration.BatchSize <= 0 {
		return errors.New("migration.batch_size must be positive")
	}
	if c.Migration.BatchDelaySeconds < 0 {
		return errors.New("migration.batch_delay_seconds must not be negative")
	}
	return nil
}

func (c *Config) validateSynology() error {
	if c.Synology.DBHost == "" {
		return nil
	}
	if c.Synology.DBPort <= 0 || c.Synology.DBPort > 65535 {
		return fmt.Errorf("synology.db_port %d is out of range", c.Synology.DBPort)
	}
	if c.Synology.DBName == "" {
		return errors.New("synology.db_name must be set when db_host is configured")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
