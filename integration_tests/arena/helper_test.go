//go:build integration

package arena_integration

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenabuilder "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/builder"
	arenaeconomy "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/economy"
	arenametrics "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/metrics"
	arenaqueue "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/queue"
	arenadb "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/repositories"
	arenaroster "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/roster"
	"github.com/Black-And-White-Club/arena-engine/integration_tests/containers"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
)

const manager arenadomain.CharacterID = 1

// testEnv is a migrated Postgres database with a running River queue.
type testEnv struct {
	DB      *bun.DB
	Service *arenaservice.ArenaService
	Queue   *arenaqueue.Service
	Roster  *arenaroster.Roster
	Builder *arenabuilder.Builder
	Arena   arenadomain.ArenaID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	adb, err := containers.StartArenaDatabase(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = adb.Close() })
	db, dsn := adb.DB, adb.DSN

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
	metrics := arenametrics.NewNoop()
	roster := arenaroster.NewRoster(db)

	svc := arenaservice.NewArenaService(arenadb.NewRepository(db), logger, metrics, noop.NewTracerProvider().Tracer("it"), db,
		arenaservice.WithConfig(arenaservice.Config{DefaultCurrency: "denarii", ReservationTTL: time.Hour}),
		arenaservice.WithRoster(roster),
		arenaservice.WithAccounts(arenaeconomy.NewAccounts(db)),
	)

	poll := 100 * time.Millisecond
	q, err := arenaqueue.NewServiceWithOptions(ctx, db, logger, dsn, metrics, svc, &arenaqueue.ServiceOptions{
		FetchPollInterval: &poll,
		MaxWorkers:        2,
		Grace:             time.Second,
	})
	require.NoError(t, err)
	svc.UseScheduler(q)
	require.NoError(t, q.Start(ctx))
	t.Cleanup(func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = q.Stop(stopCtx)
	})

	info, err := svc.CreateArena(ctx, "Colosseum", "", []arenadomain.CharacterID{manager})
	require.NoError(t, err)

	return &testEnv{
		DB:      db,
		Service: svc,
		Queue:   q,
		Roster:  roster,
		Builder: arenabuilder.NewBuilder(svc, logger, arenabuilder.WithRateLimit(rate.Inf, 1)),
		Arena:   info.ID,
	}
}

// run executes builder commands as the manager.
func (e *testEnv) run(t *testing.T, commands ...string) {
	t.Helper()
	for _, c := range commands {
		ok, msg := e.Builder.BuildingCommand(context.Background(), manager, e.Arena, c)
		require.Truef(t, ok, "%q: %s", c, msg)
	}
}

// jobStates returns the River states of the transition jobs of an event.
func (e *testEnv) jobStates(t *testing.T, id arenadomain.EventID) map[string]string {
	t.Helper()
	var rows []struct {
		Transition string `bun:"transition"`
		State      string `bun:"state"`
	}
	err := e.DB.NewSelect().
		TableExpr("river_job").
		ColumnExpr("args->>'transition' AS transition").
		ColumnExpr("state").
		Where("kind = ?", arenaqueue.EventTransitionJob{}.Kind()).
		Where("args->>'event_id' = ?", itoa(int64(id))).
		Scan(context.Background(), &rows)
	require.NoError(t, err)
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Transition] = r.State
	}
	return out
}
