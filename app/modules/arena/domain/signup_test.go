package arenadomain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvent_CanSignUp(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name       string
		setup      func(f *fixture, e *Event) (Character, int, *CombatantClass)
		wantReason string
	}{
		{
			name: "ok",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				return f.aldric, 0, f.class
			},
		},
		{
			name: "nil character",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				return nil, 0, f.class
			},
			wantReason: "no such character",
		},
		{
			name: "registration not open",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				e.CloseRegistration()
				return f.aldric, 0, f.class
			},
			wantReason: "not open",
		},
		{
			name: "missing side",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				return f.aldric, 5, f.class
			},
			wantReason: "no side 6",
		},
		{
			name: "class not eligible on side",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				other, err := f.arena.CreateCombatantClass("Featherweight", alwaysTrue())
				require.NoError(t, err)
				return f.aldric, 0, other
			},
			wantReason: "may not fight on side 1",
		},
		{
			name: "npc not allowed",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				f.aldric.npc = true
				return f.aldric, 0, f.class
			},
			wantReason: "NPCs may not sign up",
		},
		{
			name: "class check precedes npc check",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				f.aldric.npc = true
				other, err := f.arena.CreateCombatantClass("Featherweight", alwaysTrue())
				require.NoError(t, err)
				return f.aldric, 0, other
			},
			wantReason: "may not fight",
		},
		{
			name: "eligibility program refuses",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				require.NoError(t, f.class.SetEligibility(alwaysFalse()))
				return f.aldric, 0, f.class
			},
			wantReason: "does not qualify",
		},
		{
			name: "eligibility program errors",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				require.NoError(t, f.class.SetEligibility(&FakeProg{name: "broken", Err: errors.New("lua: nil index")}))
				return f.aldric, 0, f.class
			},
			wantReason: "does not qualify",
		},
		{
			name: "eligibility program returns a number",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				require.NoError(t, f.class.SetEligibility(&FakeProg{name: "numeric", Result: 1.0}))
				return f.aldric, 0, f.class
			},
			wantReason: "does not qualify",
		},
		{
			name: "already signed up",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				_, err := e.SignUp(ctx, f.store, f.aldric, 0, f.class)
				require.NoError(t, err)
				return f.aldric, 1, f.class
			},
			wantReason: "already signed up",
		},
		{
			name: "side full",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				_, err := e.SignUp(ctx, f.store, f.brenna, 0, f.class)
				require.NoError(t, err)
				return f.aldric, 0, f.class
			},
			wantReason: "side 1 is full",
		},
		{
			name: "closed side",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				f.etype.Side(0).SetPolicy(PolicyClosed)
				return f.aldric, 0, f.class
			},
			wantReason: "closed to signups",
		},
		{
			name: "managers only",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				f.etype.Side(0).SetPolicy(PolicyManagersOnly)
				return f.aldric, 0, f.class
			},
			wantReason: "only arena managers",
		},
		{
			name: "managers only as manager",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				f.etype.Side(0).SetPolicy(PolicyManagersOnly)
				f.arena.AddManager(f.aldric.id)
				return f.aldric, 0, f.class
			},
		},
		{
			name: "reserved without reservation",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				f.etype.Side(0).SetPolicy(PolicyReservedOnly)
				return f.aldric, 0, f.class
			},
			wantReason: "requires a reservation",
		},
		{
			name: "reserved through clan",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				f.etype.Side(0).SetPolicy(PolicyReservedOnly)
				clan := ClanID(7)
				f.aldric.clans = []ClanID{clan}
				_, err := e.AddReservation(ctx, f.store, Reservation{SideIndex: 0, ClanID: &clan, ExpiresAt: f.clock.Now().Add(time.Hour)})
				require.NoError(t, err)
				return f.aldric, 0, f.class
			},
		},
		{
			name: "reservation expired",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				f.etype.Side(0).SetPolicy(PolicyReservedOnly)
				id := f.aldric.id
				_, err := e.AddReservation(ctx, f.store, Reservation{SideIndex: 0, CharacterID: &id, ExpiresAt: f.clock.Now().Add(time.Minute)})
				require.NoError(t, err)
				f.clock.Advance(2 * time.Minute)
				return f.aldric, 0, f.class
			},
			wantReason: "requires a reservation",
		},
		{
			name: "unrated character on banded side",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				lo, hi := 1000.0, 1500.0
				require.NoError(t, f.etype.Side(0).SetRatingBand(&lo, &hi))
				return f.aldric, 0, f.class
			},
			wantReason: "has no rating",
		},
		{
			name: "rating outside band",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				lo, hi := 1000.0, 1500.0
				require.NoError(t, f.etype.Side(0).SetRatingBand(&lo, &hi))
				f.ratings.ratings[f.aldric.id] = 1600
				return f.aldric, 0, f.class
			},
			wantReason: "outside side 1's rating band",
		},
		{
			name: "rating inside band",
			setup: func(f *fixture, e *Event) (Character, int, *CombatantClass) {
				lo, hi := 1000.0, 1500.0
				require.NoError(t, f.etype.Side(0).SetRatingBand(&lo, &hi))
				f.ratings.ratings[f.aldric.id] = 1500
				return f.aldric, 0, f.class
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			e := f.openEvent(t)
			ch, side, class := tt.setup(f, e)

			ok, reason := e.CanSignUp(ctx, ch, side, class)
			if tt.wantReason == "" {
				assert.True(t, ok, reason)
				assert.Empty(t, reason)
			} else {
				assert.False(t, ok)
				assert.Contains(t, reason, tt.wantReason)
			}

			// SignUp must agree with CanSignUp.
			before := len(e.Participants())
			p, err := e.SignUp(ctx, f.store, ch, side, class)
			if ok {
				require.NoError(t, err)
				assert.NotNil(t, p)
				assert.Len(t, e.Participants(), before+1)
			} else {
				assert.ErrorIs(t, err, ErrSignupRejected)
				assert.Nil(t, p)
				assert.Len(t, e.Participants(), before)
			}
		})
	}
}

func TestEvent_SignUpRecordsParticipant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.class.SetStageNameTemplate("$name the Bold")
	f.class.SetSignatureColour("crimson")
	f.ratings.ratings[f.aldric.id] = 1250
	e := f.openEvent(t)

	p, err := e.SignUp(ctx, f.store, f.aldric, 1, f.class)
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, f.aldric.id, p.CharacterID)
	assert.Equal(t, 1, p.SideIndex)
	assert.Equal(t, "Aldric the Bold", p.StageName)
	assert.Equal(t, "crimson", p.SignatureColour)
	require.NotNil(t, p.StartingRating)
	assert.Equal(t, 1250.0, *p.StartingRating)
	assert.Nil(t, p.ReservationID)

	ch, err := p.Character(ctx, f.reg)
	require.NoError(t, err)
	assert.Same(t, f.aldric, ch)
	assert.Zero(t, f.reg.calls, "character was primed at signup")
}

func TestEvent_SignUpStoreFailureLeavesEventUnchanged(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.openEvent(t)
	e.ClearDirty()
	f.store.failInsert = true

	_, err := e.SignUp(ctx, f.store, f.aldric, 0, f.class)
	assert.ErrorIs(t, err, errStore)
	assert.Empty(t, e.Participants())
	assert.False(t, e.IsDirty())
}

func TestEvent_ReservationConsumption(t *testing.T) {
	ctx := context.Background()

	t.Run("matching reservation is consumed and linked", func(t *testing.T) {
		f := newFixture(t)
		f.etype.Side(0).SetPolicy(PolicyReservedOnly)
		e := f.openEvent(t)
		aldric, brenna := f.aldric.id, f.brenna.id
		mine, err := e.AddReservation(ctx, f.store, Reservation{SideIndex: 0, CharacterID: &aldric, ExpiresAt: f.clock.Now().Add(time.Hour)})
		require.NoError(t, err)
		theirs, err := e.AddReservation(ctx, f.store, Reservation{SideIndex: 1, CharacterID: &brenna, ExpiresAt: f.clock.Now().Add(time.Hour)})
		require.NoError(t, err)

		p, err := e.SignUp(ctx, f.store, f.aldric, 0, f.class)
		require.NoError(t, err)
		require.NotNil(t, p.ReservationID)
		assert.Equal(t, mine.ID, *p.ReservationID)

		left := e.Reservations()
		require.Len(t, left, 1)
		assert.Equal(t, theirs.ID, left[0].ID)
		assert.NotContains(t, f.store.reservations, mine.ID)
	})

	t.Run("no reservation leaves list untouched", func(t *testing.T) {
		f := newFixture(t)
		e := f.openEvent(t)
		brenna := f.brenna.id
		_, err := e.AddReservation(ctx, f.store, Reservation{SideIndex: 0, CharacterID: &brenna, ExpiresAt: f.clock.Now().Add(time.Hour)})
		require.NoError(t, err)

		p, err := e.SignUp(ctx, f.store, f.aldric, 0, f.class)
		require.NoError(t, err)
		assert.Nil(t, p.ReservationID)
		assert.Len(t, e.Reservations(), 1)
	})
}

func TestEvent_ReservationsPrunedLazily(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.openEvent(t)
	id := f.aldric.id
	short, err := e.AddReservation(ctx, f.store, Reservation{SideIndex: 0, CharacterID: &id, ExpiresAt: f.clock.Now().Add(time.Minute)})
	require.NoError(t, err)
	long, err := e.AddReservation(ctx, f.store, Reservation{SideIndex: 1, CharacterID: &id, ExpiresAt: f.clock.Now().Add(time.Hour)})
	require.NoError(t, err)

	f.clock.Advance(2 * time.Minute)
	assert.Len(t, e.reservationsRaw(), 2, "nothing pruned until a read")

	left := e.Reservations()
	require.Len(t, left, 1)
	assert.Equal(t, long.ID, left[0].ID)
	assert.Equal(t, []ReservationID{short.ID}, e.TakePrunedReservations())
	assert.Empty(t, e.TakePrunedReservations())
}

func TestEvent_AddAndRemoveReservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.openEvent(t)
	id := f.aldric.id

	_, err := e.AddReservation(ctx, f.store, Reservation{SideIndex: 9, CharacterID: &id})
	assert.ErrorIs(t, err, ErrSideNotFound)
	_, err = e.AddReservation(ctx, f.store, Reservation{SideIndex: 0})
	assert.Error(t, err)

	r, err := e.AddReservation(ctx, f.store, Reservation{SideIndex: 0, CharacterID: &id, ExpiresAt: f.clock.Now().Add(time.Hour)})
	require.NoError(t, err)
	assert.ErrorIs(t, e.RemoveReservation(ctx, f.store, r.ID+100), ErrReservationUnknown)
	require.NoError(t, e.RemoveReservation(ctx, f.store, r.ID))
	assert.Empty(t, e.Reservations())
}

func TestEvent_Withdraw(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.openEvent(t)
	_, err := e.SignUp(ctx, f.store, f.aldric, 0, f.class)
	require.NoError(t, err)

	removed, err := e.Withdraw(ctx, f.store, f.brenna.id)
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = e.Withdraw(ctx, f.store, f.aldric.id)
	require.NoError(t, err)
	assert.True(t, removed)
	assert.Empty(t, e.Participants())
	assert.Empty(t, f.store.signups)

	_, err = e.SignUp(ctx, f.store, f.aldric, 0, f.class)
	require.NoError(t, err)
	e.CloseRegistration()
	_, err = e.Withdraw(ctx, f.store, f.aldric.id)
	assert.ErrorIs(t, err, ErrWithdrawClosed)
	assert.Len(t, e.Participants(), 1)
}

func TestEvent_WithdrawStoreFailure(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.openEvent(t)
	_, err := e.SignUp(ctx, f.store, f.aldric, 0, f.class)
	require.NoError(t, err)
	f.store.failDelete = true

	_, err = e.Withdraw(ctx, f.store, f.aldric.id)
	assert.ErrorIs(t, err, errStore)
	assert.Len(t, e.Participants(), 1)
}

func TestEvent_CapacityHoldsUnderConcurrentSignups(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.class.SetEligibility(constProg(true)))
	require.NoError(t, f.etype.Side(0).SetCapacity(3))
	e := f.openEvent(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		ch := newCharacter(CharacterID(100+i), fmt.Sprintf("Gladiator %d", i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = e.SignUp(ctx, f.store, ch, 0, f.class)
		}()
	}
	wg.Wait()

	assert.Len(t, e.ParticipantsOnSide(0), 3)
	for _, side := range f.etype.Sides() {
		assert.LessOrEqual(t, len(e.ParticipantsOnSide(side.Index)), side.Capacity)
	}
}

func TestEvent_AutoFillNpcs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	npcA := &fakeCharacter{id: 50, name: "Guard", npc: true, able: true}
	npcB := &fakeCharacter{id: 51, name: "Brute", npc: true, able: true}
	f.reg.chars[npcA.id] = npcA
	f.reg.chars[npcB.id] = npcB

	side := f.etype.Side(1)
	require.NoError(t, side.SetCapacity(2))
	side.SetAllowNpcSignup(true)
	side.SetAutoFillNpc(true)
	loader := &FakeProg{name: "loader", Result: []any{50.0, 1.0, 51.0, 52.0}}
	side.SetNpcLoaderProg(loader)

	e := f.openEvent(t)
	e.CloseRegistration()

	added, err := e.AutoFillNpcs(ctx, f.store)
	require.NoError(t, err)
	require.Len(t, added, 2)
	assert.Equal(t, CharacterID(50), added[0].CharacterID)
	assert.Equal(t, CharacterID(51), added[1].CharacterID)
	assert.True(t, added[0].IsNPC)
	require.Len(t, loader.Calls, 1)
	assert.Equal(t, []any{1, 2}, loader.Calls[0])
	assert.Empty(t, e.ParticipantsOnSide(0), "side 0 is not auto-filled")
}
