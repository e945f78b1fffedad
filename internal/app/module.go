// Package app assembles the feedmart application with uber-fx: configuration,
// warehouse connection, schema migration, registry, and the run orchestrator.
package app

import (
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/openihd/feedmart/internal/config"
	"github.com/openihd/feedmart/internal/migration"
)

// NewWarehouseMigrator builds the schema migrator for the warehouse
// connection, using the same dialect the repository connects with.
func NewWarehouseMigrator(db *gorm.DB, dbCfg config.DatabaseConfig) (*migration.Migrator, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	return migration.NewMigrator(sqlDB, dbCfg.Type), nil
}

// Module provides the application-level components that glue the feature
// packages together.
var Module = fx.Options(
	fx.Provide(NewWarehouseMigrator),
)
