//go:build integration

// Package containers starts the backing services the arena integration
// tests run against: a migrated Postgres and a NATS server carrying the
// ARENA stream.
package containers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/Black-And-White-Club/arena-engine/app/eventbus"
	arenaqueue "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/queue"
	"github.com/Black-And-White-Club/arena-engine/db/bundb"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/nats"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
)

// ArenaDatabase is a Postgres container with the arena tables and the River
// schema in place.
type ArenaDatabase struct {
	DSN string
	DB  *bun.DB

	container *postgres.PostgresContainer
}

// StartArenaDatabase runs Postgres, applies the bun migrations and migrates
// River so a queue service can start against DSN straight away.
func StartArenaDatabase(ctx context.Context) (*ArenaDatabase, error) {
	pg, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("arena"),
		postgres.WithUsername("arena"),
		postgres.WithPassword("arena"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		if pg != nil {
			_ = testcontainers.TerminateContainer(pg)
		}
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}
	adb := &ArenaDatabase{container: pg}

	raw, err := pg.ConnectionString(ctx)
	if err != nil {
		return nil, adb.fail("failed to get postgres connection string", err)
	}
	if adb.DSN, err = withoutTLS(raw); err != nil {
		return nil, adb.fail("failed to parse connection string", err)
	}
	if adb.DB, err = bundb.OpenPostgres(ctx, adb.DSN); err != nil {
		return nil, adb.fail("failed to open arena database", err)
	}
	if _, err := bundb.Migrate(ctx, adb.DB); err != nil {
		return nil, adb.fail("failed to migrate arena tables", err)
	}
	if err := arenaqueue.Migrate(ctx, adb.DSN); err != nil {
		return nil, adb.fail("failed to migrate river", err)
	}
	return adb, nil
}

func (d *ArenaDatabase) fail(msg string, err error) error {
	return errors.Join(fmt.Errorf("%s: %w", msg, err), d.Close())
}

// Close closes the connection and removes the container.
func (d *ArenaDatabase) Close() error {
	var errs []error
	if d.DB != nil {
		errs = append(errs, d.DB.Close())
	}
	errs = append(errs, testcontainers.TerminateContainer(d.container))
	return errors.Join(errs...)
}

func withoutTLS(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", err
	}
	q := u.Query()
	q.Set("sslmode", "disable")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ArenaBus is a JetStream-enabled NATS container with an event bus
// connected and the ARENA stream created.
type ArenaBus struct {
	URL string
	Bus eventbus.EventBus

	container *nats.NATSContainer
}

func StartArenaBus(ctx context.Context, logger *slog.Logger) (*ArenaBus, error) {
	nc, err := nats.Run(ctx,
		"nats:2.10-alpine",
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForLog("Server is ready"),
				wait.ForListeningPort("4222/tcp"),
			).WithDeadline(45*time.Second),
		),
	)
	if err != nil {
		if nc != nil {
			_ = testcontainers.TerminateContainer(nc)
		}
		return nil, fmt.Errorf("failed to start NATS container: %w", err)
	}
	ab := &ArenaBus{container: nc}

	if ab.URL, err = nc.ConnectionString(ctx); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to get NATS connection string: %w", err), ab.Close())
	}
	if ab.Bus, err = eventbus.NewEventBus(ctx, ab.URL, logger); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to connect event bus: %w", err), ab.Close())
	}
	if err := ab.Bus.CreateStream(ctx, eventbus.StreamName, eventbus.StreamSubjects); err != nil {
		return nil, errors.Join(fmt.Errorf("failed to create %s stream: %w", eventbus.StreamName, err), ab.Close())
	}
	return ab, nil
}

// Close disconnects the bus and removes the container.
func (b *ArenaBus) Close() error {
	var errs []error
	if b.Bus != nil {
		errs = append(errs, b.Bus.Close())
	}
	errs = append(errs, testcontainers.TerminateContainer(b.container))
	return errors.Join(errs...)
}
