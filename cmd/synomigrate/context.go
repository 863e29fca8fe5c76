package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"synomigrate/internal/config"
	"synomigrate/internal/immich"
	"synomigrate/internal/ledger"
	"synomigrate/internal/logging"
	"synomigrate/internal/reader"
	"synomigrate/internal/synodb"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

func (c *commandContext) openLedger() (*ledger.Store, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return ledger.Open(cfg.Paths.LedgerPath)
}

func (c *commandContext) openReader(ctx context.Context) (reader.FileReader, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return reader.Open(ctx, cfg)
}

func (c *commandContext) immichClient() (*immich.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return immich.NewClient(
		cfg.Immich.URL,
		cfg.Immich.APIKey,
		time.Duration(cfg.Immich.RequestTimeout)*time.Second,
		time.Duration(cfg.Immich.UploadTimeout)*time.Second,
	), nil
}

func (c *commandContext) synologyFetcher(ctx context.Context) (*synodb.Fetcher, *synodb.PathMapper, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	if !cfg.HasSynologyDB() {
		return nil, nil, fmt.Errorf("album operations need [synology] db settings in the config")
	}
	fetcher, err := synodb.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	mapper := synodb.NewPathMapper(cfg.Synology.DBPathPrefix, sourceRoot(cfg))
	return fetcher, mapper, nil
}

// sourceRoot is the ledger-path root album members are translated to.
func sourceRoot(cfg *config.Config) string {
	if !cfg.IsSMBSource() {
		return cfg.Source.Path
	}
	location, err := reader.ParseSMBLocation(cfg.Source.Path)
	if err != nil {
		return cfg.Source.Path
	}
	return location.Prefix()
}

// dryRun combines the config default with the per-command flag.
func (c *commandContext) dryRun(flag bool) bool {
	if flag {
		return true
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return flag
	}
	return cfg.Migration.DryRun
}
