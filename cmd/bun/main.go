package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	arenaqueue "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/queue"
	arenamigrations "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/repositories/migrations"
	"github.com/Black-And-White-Club/arena-engine/config"
	"github.com/Black-And-White-Club/arena-engine/db/bundb"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
	"github.com/urfave/cli/v2"
)

func main() {
	cliApp := &cli.App{
		Name:  "bun",
		Usage: "arena database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config",
				Value: "config.yaml",
				Usage: "path to the configuration file",
			},
		},
		Commands: []*cli.Command{
			newDBCommand(),
			newRiverCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openDB connects to the configured Postgres database. Migrations never run
// against the in-memory fallback.
func openDB(c *cli.Context) (*bun.DB, string, error) {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return nil, "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return nil, "", fmt.Errorf("postgres.dsn (or DATABASE_URL) is required for migrations")
	}
	db, err := bundb.OpenPostgres(c.Context, cfg.Postgres.DSN)
	if err != nil {
		return nil, "", err
	}
	return db, cfg.Postgres.DSN, nil
}

// withMigrator opens the database and runs fn with the arena migrator.
func withMigrator(fn func(ctx context.Context, m *migrate.Migrator, c *cli.Context) error) cli.ActionFunc {
	return func(c *cli.Context) error {
		db, _, err := openDB(c)
		if err != nil {
			return err
		}
		defer db.Close()
		return fn(c.Context, migrate.NewMigrator(db, arenamigrations.Migrations), c)
	}
}

func newDBCommand() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "manage arena schema migrations",
		Subcommands: []*cli.Command{
			{
				Name:  "init",
				Usage: "create migration tables",
				Action: withMigrator(func(ctx context.Context, m *migrate.Migrator, _ *cli.Context) error {
					return m.Init(ctx)
				}),
			},
			{
				Name:  "migrate",
				Usage: "migrate database",
				Action: withMigrator(func(ctx context.Context, m *migrate.Migrator, _ *cli.Context) error {
					if err := m.Lock(ctx); err != nil {
						return err
					}
					defer m.Unlock(ctx) //nolint:errcheck

					group, err := m.Migrate(ctx)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Println("No new migrations to run (database is up to date)")
						return nil
					}
					fmt.Printf("Migrated to %s\n", group)
					return nil
				}),
			},
			{
				Name:  "rollback",
				Usage: "rollback the last migration group",
				Action: withMigrator(func(ctx context.Context, m *migrate.Migrator, _ *cli.Context) error {
					if err := m.Lock(ctx); err != nil {
						return err
					}
					defer m.Unlock(ctx) //nolint:errcheck

					group, err := m.Rollback(ctx)
					if err != nil {
						return err
					}
					if group.IsZero() {
						fmt.Println("No groups to roll back")
						return nil
					}
					fmt.Printf("Rolled back %s\n", group)
					return nil
				}),
			},
			{
				Name:  "create_go",
				Usage: "create Go migration",
				Action: withMigrator(func(ctx context.Context, m *migrate.Migrator, c *cli.Context) error {
					name := strings.Join(c.Args().Slice(), "_")
					mf, err := m.CreateGoMigration(ctx, name)
					if err != nil {
						return err
					}
					fmt.Printf("Created migration %s (%s)\n", mf.Name, mf.Path)
					return nil
				}),
			},
			{
				Name:  "status",
				Usage: "print migrations status",
				Action: withMigrator(func(ctx context.Context, m *migrate.Migrator, _ *cli.Context) error {
					ms, err := m.MigrationsWithStatus(ctx)
					if err != nil {
						return err
					}
					fmt.Printf("Migrations: %s\n", ms)
					fmt.Printf("Unapplied: %s\n", ms.Unapplied())
					fmt.Printf("Last migration group: %s\n", ms.LastGroup())
					return nil
				}),
			},
		},
	}
}

func newRiverCommand() *cli.Command {
	return &cli.Command{
		Name:  "river",
		Usage: "manage the scheduler queue schema",
		Subcommands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "bring the River tables up to date",
				Action: func(c *cli.Context) error {
					db, dsn, err := openDB(c)
					if err != nil {
						return err
					}
					_ = db.Close()
					if err := arenaqueue.Migrate(c.Context, dsn); err != nil {
						return err
					}
					fmt.Println("River migrations applied")
					return nil
				},
			},
		},
	}
}
