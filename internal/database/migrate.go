package database

import (
	"context"
	"embed"
	"fmt"
	"log/slog"

	"istancool/internal/middleware"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

const migrationTable = "schema_migrations"

type gooseLogger struct {
	log *slog.Logger
}

func (g *gooseLogger) Printf(format string, args ...any) {
	g.log.Info(fmt.Sprintf(format, args...))
}

func (g *gooseLogger) Fatalf(format string, args ...any) {
	g.log.Error(fmt.Sprintf(format, args...))
}

func setupGoose() error {
	goose.SetBaseFS(migrationFS)
	goose.SetLogger(&gooseLogger{middleware.Logger})
	goose.SetTableName(migrationTable)
	return goose.SetDialect("postgres")
}

// Migrate brings the schema up to date. Postgres runs the versioned SQL
// migrations; sqlite, used for local runs and tests, is auto-migrated from
// the models.
func Migrate(ctx context.Context, db *gorm.DB) error {
	if db.Dialector.Name() != "postgres" {
		return db.WithContext(ctx).AutoMigrate(PersistentModels()...)
	}
	return RunMigrations(ctx, db, "up")
}

// RunMigrations executes a goose command (up, down, status, version, reset)
// against a postgres database.
func RunMigrations(ctx context.Context, db *gorm.DB, command string) error {
	if db.Dialector.Name() != "postgres" {
		return fmt.Errorf("versioned migrations need postgres, got %s", db.Dialector.Name())
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if err := setupGoose(); err != nil {
		return err
	}

	switch command {
	case "up":
		err = goose.UpContext(ctx, sqlDB, "migrations")
	case "down":
		err = goose.DownContext(ctx, sqlDB, "migrations")
	case "status":
		err = goose.StatusContext(ctx, sqlDB, "migrations")
	case "version":
		err = goose.VersionContext(ctx, sqlDB, "migrations")
	case "reset":
		err = goose.ResetContext(ctx, sqlDB, "migrations")
	default:
		return fmt.Errorf("unknown migration command %q", command)
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}
