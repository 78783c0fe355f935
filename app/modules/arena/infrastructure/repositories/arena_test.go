package arenadb

import (
	"context"
	"testing"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type seeded struct {
	arena *arenadomain.Arena
	class *arenadomain.CombatantClass
	etype *arenadomain.EventType
	event *arenadomain.Event
}

func testOptions() LoadOptions {
	return LoadOptions{
		Deps: arenadomain.Collaborators{Clock: fixedClock{t: testNow}},
		Programs: func(id arenadomain.ProgramID) arenadomain.Prog {
			return testProg{id: id, result: true}
		},
	}
}

// seedArena saves a two-sided arena with one open event holding a signup and a
// reservation.
func seedArena(t *testing.T, repo Repository) seeded {
	t.Helper()
	ctx := context.Background()
	a := arenadomain.NewArena("Colosseum", testOptions().Deps)
	a.Currency = "denarii"
	a.AddManager(7)
	a.AddRoom(arenadomain.RoomFloor, 10)
	a.AddRoom(arenadomain.RoomWaiting, 11)
	require.NoError(t, a.Credit(ctx, decimal.NewFromInt(250)))

	class, err := a.CreateCombatantClass("Heavyweight", testProg{id: 3, result: true})
	require.NoError(t, err)
	class.SetStageNameTemplate("$name the Bold")

	et, err := a.CreateEventType("Duel")
	require.NoError(t, err)
	require.NoError(t, et.SetRegistrationDuration(time.Hour))
	limit := 20 * time.Minute
	require.NoError(t, et.SetTimeLimit(&limit))
	require.NoError(t, et.SetAppearanceFee(decimal.RequireFromString("2.5")))
	et.SetScoringProg(testProg{id: 4})
	interval := 24 * time.Hour
	ref := testNow.Add(48 * time.Hour)
	et.ConfigureAutoSchedule(&interval, &ref)
	second := et.AddSide()
	second.SetPolicy(arenadomain.PolicyReservedOnly)
	lo := 1200.0
	require.NoError(t, second.SetRatingBand(&lo, nil))
	for _, s := range et.Sides() {
		_, err := s.ToggleClass(class)
		require.NoError(t, err)
	}

	holder := arenadomain.CharacterID(2)
	e, err := a.CreateEvent(et, testNow.Add(3*time.Hour), []arenadomain.Reservation{
		{SideIndex: 1, CharacterID: &holder, ExpiresAt: testNow.Add(2 * time.Hour)},
	})
	require.NoError(t, err)
	require.NoError(t, repo.SaveArena(ctx, nil, a))
	require.NotZero(t, e.ID)

	require.True(t, e.OpenRegistration())
	_, err = e.SignUp(ctx, repo.EventStore(nil), testCharacter{id: 1, name: "Aldric"}, 0, class)
	require.NoError(t, err)
	require.NoError(t, repo.SaveArena(ctx, nil, a))
	return seeded{arena: a, class: class, etype: et, event: e}
}

func TestRepository_SaveAndLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	s := seedArena(t, repo)

	got, err := repo.LoadArena(ctx, nil, s.arena.ID, testOptions())
	require.NoError(t, err)
	assert.False(t, got.IsDirty())
	assert.Equal(t, "Colosseum", got.Name)
	assert.Equal(t, "denarii", got.Currency)
	assert.Equal(t, []arenadomain.CharacterID{7}, got.Managers())
	assert.Equal(t, []arenadomain.RoomID{10}, got.Rooms(arenadomain.RoomFloor))
	assert.True(t, decimal.NewFromInt(250).Equal(got.VirtualBalance()))

	class := got.CombatantClassByName("heavyweight")
	require.NotNil(t, class)
	assert.Equal(t, s.class.ID, class.ID)
	assert.Equal(t, "$name the Bold", class.StageNameTemplate)
	assert.Equal(t, arenadomain.ProgramID(3), class.Eligibility.ID())

	et := got.EventType(s.etype.ID)
	require.NotNil(t, et)
	assert.Equal(t, time.Hour, et.RegistrationDuration)
	assert.Equal(t, 20*time.Minute, *et.TimeLimit)
	assert.True(t, decimal.RequireFromString("2.5").Equal(et.AppearanceFee))
	assert.Equal(t, arenadomain.ProgramID(4), et.ScoringProg.ID())
	assert.Nil(t, et.IntroProg)
	require.True(t, et.AutoScheduleEnabled())
	_, ref := et.AutoSchedule()
	assert.True(t, testNow.Add(48*time.Hour).Equal(*ref))

	sides := et.Sides()
	require.Len(t, sides, 2)
	assert.Equal(t, arenadomain.PolicyReservedOnly, sides[1].Policy)
	assert.Equal(t, 1200.0, *sides[1].MinimumRating)
	for _, side := range sides {
		assert.True(t, side.IsClassEligible(class), "side %d", side.Index)
	}

	e := got.Event(s.event.ID)
	require.NotNil(t, e)
	assert.Equal(t, arenadomain.StateRegistrationOpen, e.State())
	assert.Same(t, et, e.EventType())
	require.Len(t, e.Participants(), 1)
	p := e.Participants()[0]
	assert.Equal(t, arenadomain.CharacterID(1), p.CharacterID)
	assert.Equal(t, "Aldric the Bold", p.StageName)
	assert.Same(t, class, p.Class)
	require.Len(t, e.Reservations(), 1)
	assert.Equal(t, arenadomain.CharacterID(2), *e.Reservations()[0].CharacterID)
}

func TestRepository_LoadMissingArena(t *testing.T) {
	repo := NewRepository(newTestDB(t))
	_, err := repo.LoadArena(context.Background(), nil, 404, testOptions())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRepository_LoadWithoutResolverKeepsProgramIDs(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	s := seedArena(t, repo)

	got, err := repo.LoadArena(ctx, nil, s.arena.ID, LoadOptions{})
	require.NoError(t, err)
	class := got.CombatantClass(s.class.ID)
	class.SetDescription("touched")
	require.NoError(t, repo.SaveArena(ctx, nil, got))

	again, err := repo.LoadArena(ctx, nil, s.arena.ID, testOptions())
	require.NoError(t, err)
	assert.Equal(t, arenadomain.ProgramID(3), again.CombatantClass(s.class.ID).Eligibility.ID())
	_, err = class.Eligibility.Execute(ctx)
	assert.Error(t, err)
}

func TestRepository_SaveRemovesSidesAndReindexes(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	s := seedArena(t, repo)

	require.True(t, s.event.Abort("rescheduled"))
	third := s.etype.AddSide()
	require.NoError(t, third.SetCapacity(4))
	require.NoError(t, repo.SaveArena(ctx, nil, s.arena))
	_, err := s.etype.RemoveSide(0)
	require.NoError(t, err)
	require.NoError(t, repo.SaveArena(ctx, nil, s.arena))

	got, err := repo.LoadArena(ctx, nil, s.arena.ID, testOptions())
	require.NoError(t, err)
	sides := got.EventType(s.etype.ID).Sides()
	require.Len(t, sides, 2)
	assert.Equal(t, 0, sides[0].Index)
	assert.Equal(t, arenadomain.PolicyReservedOnly, sides[0].Policy)
	assert.Equal(t, 4, sides[1].Capacity)
	assert.Empty(t, sides[1].EligibleClasses())
}

func TestRepository_DeleteClassRespectsLinks(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	s := seedArena(t, repo)

	assert.ErrorIs(t, repo.DeleteCombatantClass(ctx, nil, int64(s.class.ID)), arenadomain.ErrClassInUse)

	for _, side := range s.etype.Sides() {
		_, err := side.ToggleClass(s.class)
		require.NoError(t, err)
	}
	require.NoError(t, s.arena.RemoveCombatantClass(s.class))
	require.NoError(t, repo.SaveArena(ctx, nil, s.arena))

	got, err := repo.LoadArena(ctx, nil, s.arena.ID, testOptions())
	require.NoError(t, err)
	assert.Empty(t, got.CombatantClasses())
}

func TestRepository_DeleteEventTypeCascades(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := NewRepository(db)
	s := seedArena(t, repo)

	assert.ErrorIs(t, repo.DeleteEventType(ctx, nil, int64(s.etype.ID)), arenadomain.ErrTypeInUse)

	require.True(t, s.event.Abort("cancelled"))
	require.NoError(t, repo.SaveArena(ctx, nil, s.arena))
	require.NoError(t, s.arena.RemoveEventType(s.etype))
	require.NoError(t, repo.SaveArena(ctx, nil, s.arena))

	for _, model := range []any{(*EventType)(nil), (*EventTypeSide)(nil), (*SideClass)(nil), (*Event)(nil), (*Signup)(nil), (*Reservation)(nil)} {
		n, err := db.NewSelect().Model(model).Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, n, "%T", model)
	}
}

func TestRepository_ArchivedEventsAreNotLoaded(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	s := seedArena(t, repo)

	require.True(t, s.event.Abort("storm"))
	require.True(t, s.arena.ArchiveEvent(s.event))
	require.NoError(t, repo.SaveArena(ctx, nil, s.arena))

	got, err := repo.LoadArena(ctx, nil, s.arena.ID, testOptions())
	require.NoError(t, err)
	assert.Empty(t, got.Events())

	arenaID, err := repo.FindEventArena(ctx, nil, s.event.ID)
	require.NoError(t, err)
	assert.Equal(t, s.arena.ID, arenaID)
}

func TestRepository_OutcomePersists(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	s := seedArena(t, repo)

	require.True(t, s.event.StartLive())
	require.True(t, s.event.Resolve())
	require.True(t, s.event.RecordOutcome(arenadomain.OutcomeVictory, []int{1, 0}))
	require.NoError(t, repo.SaveArena(ctx, nil, s.arena))

	got, err := repo.LoadArena(ctx, nil, s.arena.ID, testOptions())
	require.NoError(t, err)
	e := got.Event(s.event.ID)
	require.NotNil(t, e.Outcome())
	assert.Equal(t, arenadomain.OutcomeVictory, *e.Outcome())
	assert.Equal(t, []int{0, 1}, e.WinningSides())
	assert.NotNil(t, e.StartedAt())
	assert.NotNil(t, e.ResolvedAt())
}

func TestRepository_ListUnfinishedEvents(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	s := seedArena(t, repo)

	due, err := repo.ListUnfinishedEvents(ctx, nil, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, int64(s.event.ID), due[0].EventID)
	assert.Equal(t, int64(s.arena.ID), due[0].ArenaID)

	due, err = repo.ListUnfinishedEvents(ctx, nil, testNow)
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestEventStore(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))
	store := repo.EventStore(nil)

	id, err := store.InsertSignup(ctx, 1, &arenadomain.Participant{CharacterID: 5, SideIndex: 0})
	require.NoError(t, err)
	assert.NotZero(t, id)
	require.NoError(t, store.DeleteSignup(ctx, id))
	assert.ErrorIs(t, store.DeleteSignup(ctx, id), ErrNotFound)

	rid, err := store.InsertReservation(ctx, 1, &arenadomain.Reservation{SideIndex: 0, ExpiresAt: testNow})
	require.NoError(t, err)
	require.NoError(t, store.DeleteReservation(ctx, rid))
	assert.NoError(t, store.DeleteReservation(ctx, rid), "deleting twice is fine")
}

func TestPrograms(t *testing.T) {
	ctx := context.Background()
	repo := NewRepository(newTestDB(t))

	p := &Program{ArenaID: 1, Name: "heavy", Source: "return function() return true end"}
	require.NoError(t, repo.UpsertProgram(ctx, nil, p))
	require.NotZero(t, p.ID)

	updated := &Program{ArenaID: 1, Name: "heavy", Source: "return function() return false end"}
	require.NoError(t, repo.UpsertProgram(ctx, nil, updated))

	got, err := repo.GetProgramByName(ctx, nil, 1, "HEAVY")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)
	assert.Contains(t, got.Source, "false")

	_, err = repo.GetProgram(ctx, nil, 999)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = repo.GetProgramByName(ctx, nil, 2, "heavy")
	assert.ErrorIs(t, err, ErrNotFound)
}
