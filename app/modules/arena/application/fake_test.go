package arenaservice

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenaeconomy "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/economy"
	arenadb "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/repositories"
	arenaroster "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/roster"
	arenautil "github.com/Black-And-White-Club/arena-engine/app/modules/arena/utils"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"go.opentelemetry.io/otel/trace/noop"
	_ "modernc.org/sqlite"
)

// FakeScheduler records what the service asks it to schedule.
type FakeScheduler struct {
	mu     sync.Mutex
	events []arenadomain.EventID
	states map[arenadomain.EventID]arenadomain.EventState
	types  []arenadomain.EventTypeID
	err    error
}

func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{states: make(map[arenadomain.EventID]arenadomain.EventState)}
}

func (f *FakeScheduler) Schedule(ctx context.Context, e *arenadomain.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, e.ID)
	f.states[e.ID] = e.State()
	return f.err
}

func (f *FakeScheduler) SyncRecurringSchedule(ctx context.Context, t *arenadomain.EventType) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.types = append(f.types, t.ID)
	return f.err
}

func (f *FakeScheduler) Events() []arenadomain.EventID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]arenadomain.EventID(nil), f.events...)
}

func (f *FakeScheduler) Types() []arenadomain.EventTypeID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]arenadomain.EventTypeID(nil), f.types...)
}

func (f *FakeScheduler) LastState(id arenadomain.EventID) arenadomain.EventState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.states[id]
}

var _ arenadomain.Scheduler = (*FakeScheduler)(nil)

// FakePublisher keeps published messages by topic.
type FakePublisher struct {
	mu       sync.Mutex
	messages map[string][]*message.Message
}

func NewFakePublisher() *FakePublisher {
	return &FakePublisher{messages: make(map[string][]*message.Message)}
}

func (f *FakePublisher) Publish(topic string, msgs ...*message.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages[topic] = append(f.messages[topic], msgs...)
	return nil
}

func (f *FakePublisher) Close() error { return nil }

func (f *FakePublisher) Count(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages[topic])
}

func (f *FakePublisher) Last(topic string) *message.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[topic]
	if len(msgs) == 0 {
		return nil
	}
	return msgs[len(msgs)-1]
}

var _ message.Publisher = (*FakePublisher)(nil)

// failingRepo fails every LoadArena call with err.
type failingRepo struct {
	arenadb.Repository
	err error
}

func (r failingRepo) LoadArena(context.Context, bun.IDB, arenadomain.ArenaID, arenadb.LoadOptions) (*arenadomain.Arena, error) {
	return nil, r.err
}

type harness struct {
	svc      *ArenaService
	db       *bun.DB
	clock    *arenautil.ManualClock
	roster   *arenaroster.Roster
	accounts *arenaeconomy.Accounts
	sched    *FakeScheduler
	pub      *FakePublisher
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	sqldb, err := sql.Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", name))
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	require.NoError(t, arenadb.CreateTables(ctx, db))
	require.NoError(t, arenaroster.CreateTables(ctx, db))
	require.NoError(t, arenaeconomy.CreateTables(ctx, db))
	return db
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newTestDB(t)
	h := &harness{
		db:       db,
		clock:    arenautil.NewManualClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
		roster:   arenaroster.NewRoster(db),
		accounts: arenaeconomy.NewAccounts(db),
		sched:    NewFakeScheduler(),
		pub:      NewFakePublisher(),
	}
	h.svc = NewArenaService(
		arenadb.NewRepository(db),
		slog.New(slog.DiscardHandler),
		nil,
		noop.NewTracerProvider().Tracer("test"),
		db,
		WithConfig(Config{DefaultCurrency: "denarii", ReservationTTL: time.Hour}),
		WithClock(h.clock),
		WithRoster(h.roster),
		WithAccounts(h.accounts),
		WithPublisher(h.pub),
		WithScheduler(h.sched),
	)

	ctx := context.Background()
	for _, c := range []*arenaroster.Character{
		{ID: 1, Name: "Aldric", AbleBodied: true},
		{ID: 2, Name: "Brenna", AbleBodied: true},
		{ID: 3, Name: "Cato", AbleBodied: true, Clans: []int64{7}},
	} {
		require.NoError(t, h.roster.Register(ctx, c))
	}
	return h
}

// seeded holds the ids of a ready arena with a two-sided "Duel" type whose
// sides accept the "Heavyweight" class.
type seeded struct {
	arena arenadomain.ArenaID
	etype arenadomain.EventTypeID
	class arenadomain.ClassID
}

func (h *harness) seed(t *testing.T) seeded {
	t.Helper()
	ctx := context.Background()
	info, err := h.svc.CreateArena(ctx, "Colosseum", "", []arenadomain.CharacterID{1})
	require.NoError(t, err)
	_, err = h.svc.UpsertProgram(ctx, info.ID, "anyone", `return function(c) return c.able end`)
	require.NoError(t, err)

	err = h.svc.MutateArena(ctx, info.ID, func(ctx context.Context, m *Session) error {
		m.Arena.AddRoom(arenadomain.RoomFloor, 10)
		m.Arena.AddRoom(arenadomain.RoomWaiting, 11)
		prog, err := m.Program(ctx, "anyone")
		if err != nil {
			return err
		}
		class, err := m.Arena.CreateCombatantClass("Heavyweight", prog)
		if err != nil {
			return err
		}
		et, err := m.Arena.CreateEventType("Duel")
		if err != nil {
			return err
		}
		et.AddSide()
		for _, side := range et.Sides() {
			if _, err := side.ToggleClass(class); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)

	info, err = h.svc.GetArena(ctx, info.ID)
	require.NoError(t, err)
	require.Len(t, info.EventTypes, 1)
	require.Len(t, info.Classes, 1)
	return seeded{arena: info.ID, etype: info.EventTypes[0].ID, class: info.Classes[0].ID}
}

// openEvent creates an event an hour out and opens its registration.
func (h *harness) openEvent(t *testing.T, s seeded) arenadomain.EventID {
	t.Helper()
	ctx := context.Background()
	e, err := h.svc.CreateEvent(ctx, s.arena, s.etype, h.clock.Now().Add(time.Hour), nil)
	require.NoError(t, err)
	res, err := h.svc.ApplyTransition(ctx, s.arena, e.ID, arenadomain.TransitionOpenRegistration, "")
	require.NoError(t, err)
	require.True(t, res.Applied)
	return e.ID
}
