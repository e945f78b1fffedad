package gormrepo

import (
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/openihd/feedmart/internal/config"
	"github.com/openihd/feedmart/internal/support/logger"
)

// BuildDSN constructs the driver-specific connection string.
func BuildDSN(cfg config.DatabaseConfig) (string, error) {
	switch cfg.Type {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.Sslmode), nil
	case "mysql":
		var authPart string
		if cfg.User != "" {
			authPart = cfg.User
			if cfg.Password != "" {
				authPart = fmt.Sprintf("%s:%s", cfg.User, cfg.Password)
			}
			authPart += "@"
		}
		return fmt.Sprintf("%stcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			authPart, cfg.Host, cfg.Port, cfg.Database), nil
	case "sqlite":
		// The SQLite dialector takes the file path directly.
		return cfg.Database, nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// newDialector maps the configured type to a GORM dialector.
func newDialector(cfg config.DatabaseConfig) (gorm.Dialector, error) {
	dsn, err := BuildDSN(cfg)
	if err != nil {
		return nil, err
	}
	switch cfg.Type {
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
}

// OpenDB opens a GORM connection for the given configuration and applies
// the pool settings.
func OpenDB(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := newDialector(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open GORM connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if cfg.Pool.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.Pool.MaxOpenConns)
	}
	if cfg.Pool.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.Pool.MaxIdleConns)
	}
	if cfg.Pool.ConnMaxLifetimeMinutes > 0 {
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.Pool.ConnMaxLifetimeMinutes) * time.Minute)
	}

	logger.Infof("Established database connection (%s).", cfg.Type)
	return db, nil
}

// CloseDB closes the pooled connections behind a GORM handle.
func CloseDB(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	logger.Infof("Closing database connection...")
	return sqlDB.Close()
}
