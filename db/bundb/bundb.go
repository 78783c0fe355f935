// Package bundb opens the arena database.
package bundb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	arenamigrations "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/Black-And-White-Club/arena-engine/config"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
	_ "modernc.org/sqlite"
)

// Open connects to Postgres when a DSN is configured. Without one it opens a
// private in-memory SQLite database and migrates it, so the engine can run
// without external services.
func Open(ctx context.Context, cfg config.PostgresConfig, logger *slog.Logger) (*bun.DB, error) {
	if cfg.DSN == "" {
		logger.WarnContext(ctx, "No Postgres DSN configured, using in-memory SQLite")
		return OpenMemory(ctx, "arena-"+uuid.NewString())
	}
	return OpenPostgres(ctx, cfg.DSN)
}

// OpenPostgres connects with pgdriver and pings the server.
func OpenPostgres(ctx context.Context, dsn string) (*bun.DB, error) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(
		pgdriver.WithDSN(dsn),
		pgdriver.WithTimeout(10*time.Second),
	))
	sqldb.SetMaxOpenConns(20)
	sqldb.SetConnMaxIdleTime(5 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := sqldb.PingContext(pingCtx); err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

// OpenMemory opens a named shared-cache SQLite database and applies the
// arena migrations. SQLite allows one writer, so the pool holds one
// connection.
func OpenMemory(ctx context.Context, name string) (*bun.DB, error) {
	sqldb, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	if _, err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// Migrate initialises the migration tables and applies pending arena
// migrations. It returns the applied group.
func Migrate(ctx context.Context, db *bun.DB) (*migrate.MigrationGroup, error) {
	migrator := migrate.NewMigrator(db, arenamigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		return nil, fmt.Errorf("failed to init migrations: %w", err)
	}
	group, err := migrator.Migrate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return group, nil
}

// LogGroup reports the outcome of Migrate.
func LogGroup(ctx context.Context, logger *slog.Logger, group *migrate.MigrationGroup) {
	if group == nil || group.IsZero() {
		logger.InfoContext(ctx, "No new migrations to run")
		return
	}
	logger.InfoContext(ctx, "Migrated database", attr.String("group", group.String()))
}
