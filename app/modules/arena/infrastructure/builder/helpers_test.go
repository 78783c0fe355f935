package arenabuilder

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenaeconomy "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/economy"
	arenadb "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/repositories"
	arenaroster "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/roster"
	arenautil "github.com/Black-And-White-Club/arena-engine/app/modules/arena/utils"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"
	_ "modernc.org/sqlite"
)

const (
	manager  arenadomain.CharacterID = 1
	outsider arenadomain.CharacterID = 2
)

type harness struct {
	svc     *arenaservice.ArenaService
	builder *Builder
	clock   *arenautil.ManualClock
	arena   arenadomain.ArenaID
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sqldb, err := sql.Open("sqlite", fmt.Sprintf("file:builder_%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, arenadb.CreateTables(ctx, db))
	require.NoError(t, arenaroster.CreateTables(ctx, db))
	require.NoError(t, arenaeconomy.CreateTables(ctx, db))

	logger := slog.New(slog.DiscardHandler)
	clock := arenautil.NewManualClock(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	svc := arenaservice.NewArenaService(
		arenadb.NewRepository(db),
		logger,
		nil,
		noop.NewTracerProvider().Tracer("test"),
		db,
		arenaservice.WithConfig(arenaservice.Config{DefaultCurrency: "denarii", ReservationTTL: time.Hour}),
		arenaservice.WithClock(clock),
		arenaservice.WithRoster(arenaroster.NewRoster(db)),
		arenaservice.WithAccounts(arenaeconomy.NewAccounts(db)),
	)

	info, err := svc.CreateArena(ctx, "Colosseum", "", []arenadomain.CharacterID{manager})
	require.NoError(t, err)

	return &harness{
		svc:     svc,
		builder: NewBuilder(svc, logger, WithClock(clock), WithRateLimit(rate.Inf, 1)),
		clock:   clock,
		arena:   info.ID,
	}
}

// run executes commands as the manager and fails on the first rejection.
func (h *harness) run(t *testing.T, commands ...string) string {
	t.Helper()
	var msg string
	for _, c := range commands {
		var ok bool
		ok, msg = h.builder.BuildingCommand(context.Background(), manager, h.arena, c)
		require.Truef(t, ok, "%q: %s", c, msg)
	}
	return msg
}

func (h *harness) info(t *testing.T) *arenaservice.ArenaInfo {
	t.Helper()
	info, err := h.svc.GetArena(context.Background(), h.arena)
	require.NoError(t, err)
	return info
}

// ready configures rooms, an eligibility program, a class and a two-sided
// "Grand Melee" type.
func (h *harness) ready(t *testing.T) {
	t.Helper()
	h.run(t,
		"arena room add floor 10",
		"arena room add waiting 11",
		"program set anyone return function(c) return true end",
		"class create Heavyweight anyone",
		`type create "Grand Melee"`,
		`side add "Grand Melee"`,
	)
}

func itoa(id arenadomain.EventID) string { return strconv.FormatInt(int64(id), 10) }
