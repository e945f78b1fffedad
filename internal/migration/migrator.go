// Package migration applies the warehouse schema with golang-migrate,
// using SQL files embedded per database dialect.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/openihd/feedmart/internal/support/logger"
)

//go:embed sql
var migrationFS embed.FS

const migrationsTable = "feedmart_schema_migrations"

// Migrator applies schema migrations against one database connection.
type Migrator struct {
	sqlDB  *sql.DB
	dbType string
}

// NewMigrator creates a Migrator for the given connection and dialect
// ("postgres", "mysql", or "sqlite").
func NewMigrator(sqlDB *sql.DB, dbType string) *Migrator {
	return &Migrator{sqlDB: sqlDB, dbType: dbType}
}

// Up applies all pending migrations for the connection's dialect.
func (m *Migrator) Up(ctx context.Context) error {
	return m.run(ctx, "up")
}

// Down rolls back all applied migrations.
func (m *Migrator) Down(ctx context.Context) error {
	return m.run(ctx, "down")
}

func (m *Migrator) run(ctx context.Context, command string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path := "sql/" + m.dbType
	logger.Infof("Executing migration '%s' (DB: %s, Path: %s).", command, m.dbType, path)

	instance, err := m.newMigrateInstance(path)
	if err != nil {
		return err
	}
	defer func() {
		if srcErr, dbErr := instance.Close(); srcErr != nil || dbErr != nil {
			logger.Warnf("Migration close reported errors (source: %v, database: %v).", srcErr, dbErr)
		}
	}()

	var migrateErr error
	switch command {
	case "up":
		migrateErr = instance.Up()
	case "down":
		migrateErr = instance.Down()
	default:
		return fmt.Errorf("unsupported migration command: %s", command)
	}

	if migrateErr != nil && !errors.Is(migrateErr, migrate.ErrNoChange) {
		return fmt.Errorf("migration failed for command '%s' (DB: %s): %w", command, m.dbType, migrateErr)
	}
	if errors.Is(migrateErr, migrate.ErrNoChange) {
		logger.Infof("Migration '%s': schema already current.", command)
		return nil
	}
	logger.Infof("Migration '%s' completed successfully.", command)
	return nil
}

func (m *Migrator) newMigrateInstance(path string) (*migrate.Migrate, error) {
	sub, err := fs.Sub(migrationFS, path)
	if err != nil {
		return nil, fmt.Errorf("no embedded migrations for database type %s: %w", m.dbType, err)
	}
	sourceDriver, err := iofs.New(sub, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source driver for path %s: %w", path, err)
	}
	dbDriver, err := m.databaseDriver()
	if err != nil {
		return nil, err
	}
	instance, err := migrate.NewWithInstance("iofs", sourceDriver, m.dbType, dbDriver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return instance, nil
}

func (m *Migrator) databaseDriver() (database.Driver, error) {
	switch m.dbType {
	case "postgres":
		return postgres.WithInstance(m.sqlDB, &postgres.Config{MigrationsTable: migrationsTable})
	case "mysql":
		return mysql.WithInstance(m.sqlDB, &mysql.Config{MigrationsTable: migrationsTable})
	case "sqlite":
		return sqlite.WithInstance(m.sqlDB, &sqlite.Config{MigrationsTable: migrationsTable})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", m.dbType)
	}
}
