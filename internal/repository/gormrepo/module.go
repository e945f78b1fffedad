package gormrepo

import (
	"context"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/openihd/feedmart/internal/config"
	"github.com/openihd/feedmart/internal/repository"
)

// NewWarehouseDBConfig resolves the connection settings named by the
// warehouse_db_ref infrastructure key.
func NewWarehouseDBConfig(cfg *config.Config) (config.DatabaseConfig, error) {
	return cfg.DatabaseConfigFor(cfg.Feedmart.Infrastructure.WarehouseDBRef)
}

// WarehouseDBParams defines the dependencies for NewWarehouseDB.
type WarehouseDBParams struct {
	fx.In
	Lifecycle fx.Lifecycle
	DBConfig  config.DatabaseConfig
}

// NewWarehouseDB opens the warehouse connection and registers its close
// hook with the Fx lifecycle.
func NewWarehouseDB(p WarehouseDBParams) (*gorm.DB, error) {
	db, err := OpenDB(p.DBConfig)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return CloseDB(db)
		},
	})
	return db, nil
}

// Module provides the warehouse GORM connection and the repository bound to
// the repository.Warehouse interface.
var Module = fx.Options(
	fx.Provide(NewWarehouseDBConfig),
	fx.Provide(NewWarehouseDB),
	fx.Provide(fx.Annotate(
		NewWarehouseRepository,
		fx.As(new(repository.Warehouse)),
	)),
)
