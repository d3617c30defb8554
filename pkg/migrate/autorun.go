package migrate

import (
	"context"
	"fmt"

	"github.com/thedailydev/dailydev-backend/pkg/config"
	"github.com/thedailydev/dailydev-backend/pkg/db"
	"github.com/thedailydev/dailydev-backend/pkg/logger"
)

// MaybeRunDev brings a local database up to date on boot. It only acts in
// dev with DAILYDEV_AUTO_MIGRATE set; deployed environments run cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.DB.AutoMigrate {
		return nil
	}
	if err := ValidateDir(DefaultDir); err != nil {
		return err
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	applied, err := Run(ctx, sqlDB, DefaultDir, "up")
	if err != nil {
		return err
	}

	version, err := SchemaVersion(ctx, sqlDB, DefaultDir)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	logg.Info(logg.WithFields(ctx, map[string]any{
		"dir":            DefaultDir,
		"applied":        len(applied),
		"schema_version": version,
	}), "dev migrations applied")
	return nil
}
