package database

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func setupGoose() error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	dir, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open embedded migrations: %w", err)
	}
	goose.SetBaseFS(dir)
	return nil
}

// Migrate applies every pending schema migration.
func Migrate(db *sqlx.DB, logger *zap.Logger) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.Up(db.DB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	if logger != nil {
		version, err := goose.GetDBVersion(db.DB)
		if err == nil {
			logger.Info("migrations applied", zap.Int64("version", version))
		}
	}
	return nil
}

// Rollback reverts the most recent migration.
func Rollback(db *sqlx.DB) error {
	if err := setupGoose(); err != nil {
		return err
	}
	if err := goose.Down(db.DB, "."); err != nil {
		return fmt.Errorf("rollback migration: %w", err)
	}
	return nil
}
