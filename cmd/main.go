package main

import (
	"context"
	"errors"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/marquee/internal/repositories"
	"github.com/desertthunder/marquee/internal/services"
	"github.com/desertthunder/marquee/internal/shared"
)

const defaultConfigPath = "config.toml"

func main() {
	ctx := context.Background()
	logger := shared.NewLogger(nil)

	config := shared.DefaultConfig()
	configPath := ""
	if _, err := os.Stat(defaultConfigPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(defaultConfigPath); err == nil {
			config = loadedConfig
			configPath = defaultConfigPath
		} else {
			logger.Warn("failed to load config, using defaults", "error", err)
		}
	}

	api := services.NewAuthenticatedAPIService(ctx, config.API, logger)
	opts := RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		API:        api,
		Catalog:    services.NewCatalogService(api, logger),
		Uploader:   services.NewSubmissionClient(api, config.Upload, logger),
		Logger:     logger,
	}

	if db, err := shared.OpenDatabase(config.Database); err != nil {
		logger.Warn("local database unavailable, history and cache disabled", "error", err)
	} else {
		defer db.Close()
		if err := shared.RunMigrations(db); err != nil {
			logger.Warn("failed to run migrations, history and cache disabled", "error", err)
		} else {
			opts.Ledger = repositories.NewSubmissionRepository(db)
			catalogItems := repositories.NewCatalogItemRepository(db)
			opts.Cache = repositories.NewItemCacheAdapter(catalogItems)
			opts.CatalogItems = catalogItems
		}
	}

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "marquee",
		Usage:    "Browse, play and publish on the marketplace from your terminal",
		Version:  "0.1.0",
		Commands: runner.register(),

		DisableSliceFlagSeparator: true,
	}

	if err := app.Run(ctx, os.Args); err != nil {
		if errors.Is(err, shared.ErrNotImplemented) {
			logger.Warn("not implemented")
			os.Exit(0)
		}
		logger.Fatalf("application error: %v", err)
	}
}
