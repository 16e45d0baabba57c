package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/krishkalaria12/cropcare/config"
	"github.com/krishkalaria12/cropcare/database"
	"github.com/krishkalaria12/cropcare/logger"
	"github.com/krishkalaria12/cropcare/storage"
	"gorm.io/gorm"
)

// app holds what every command needs. Close releases it in reverse order.
type app struct {
	cfg   *config.Settings
	log   *logger.Logger
	db    *gorm.DB
	store storage.ObjectStore

	gcs   *storage.GCSStore
	local *storage.LocalStore
}

func bootstrap(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	mode := "development"
	if cfg.IsProduction() {
		mode = "production"
	}
	log, err := logger.NewWithOptions(logger.Options{Mode: mode, File: cfg.LogFile})
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.Connect(database.Options{
		Driver:  cfg.DatabaseDriver,
		DSN:     cfg.DatabaseURL,
		Verbose: !cfg.IsProduction(),
	}, log)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log, db: db}

	switch cfg.StorageDriver {
	case "gcs":
		a.gcs, err = storage.NewGCSStore(ctx, storage.GCSOptions{
			ProjectID:  cfg.GCSProjectID,
			BucketName: cfg.GCSBucketName,
			SignedURLs: cfg.StorageSignedURLs,
		})
		a.store = a.gcs
	case "local":
		a.local, err = storage.NewLocalStore(cfg.LocalStorageDir, cfg.AppURL)
		a.store = a.local
	default:
		err = fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
	if err != nil {
		a.Close()
		return nil, err
	}

	log.Info("Bootstrapped",
		"env", cfg.Env,
		"database_driver", cfg.DatabaseDriver,
		"storage_driver", cfg.StorageDriver,
	)
	return a, nil
}

func (a *app) Close() {
	var errs []error
	if a.gcs != nil {
		errs = append(errs, a.gcs.Close())
	}
	if a.db != nil {
		errs = append(errs, database.Close(a.db))
	}
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("Error during shutdown", "error", err)
	}
	a.log.Sync()
}
