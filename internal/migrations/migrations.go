package migrations

import (
	"database/sql"
	"fmt"

	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

// RunMigrations applies every pending goose migration from
// migrationsDir before the server starts taking requests.
func RunMigrations(db *sql.DB, logger *zap.SugaredLogger, migrationsDir string) error {
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set migration dialect: %w", err)
	}
	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	logger.Infof("Database schema is up to date (migrations from %s)", migrationsDir)
	return nil
}
