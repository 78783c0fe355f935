package arenadomain

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeCharacter struct {
	id    CharacterID
	name  string
	npc   bool
	clans []ClanID
	able  bool
}

func (c *fakeCharacter) ID() CharacterID    { return c.id }
func (c *fakeCharacter) Name() string       { return c.name }
func (c *fakeCharacter) IsNPC() bool        { return c.npc }
func (c *fakeCharacter) Clans() []ClanID    { return c.clans }
func (c *fakeCharacter) IsAbleBodied() bool { return c.able }

func newCharacter(id CharacterID, name string) *fakeCharacter {
	return &fakeCharacter{id: id, name: name, able: true}
}

type fakeRegistry struct {
	chars map[CharacterID]Character
	calls int
}

func newRegistry(chars ...*fakeCharacter) *fakeRegistry {
	r := &fakeRegistry{chars: make(map[CharacterID]Character)}
	for _, c := range chars {
		r.chars[c.id] = c
	}
	return r
}

func (r *fakeRegistry) Character(_ context.Context, id CharacterID) (Character, error) {
	r.calls++
	ch, ok := r.chars[id]
	if !ok {
		return nil, fmt.Errorf("character %d not loaded", id)
	}
	return ch, nil
}

type fakeRatings struct {
	ratings map[CharacterID]float64
	err     error
}

func (f *fakeRatings) Rating(_ context.Context, id CharacterID, _ ClassID) (float64, bool, error) {
	if f.err != nil {
		return 0, false, f.err
	}
	r, ok := f.ratings[id]
	return r, ok, nil
}

// FakeProg returns Result/Err, or delegates to ExecuteFunc when set.
type FakeProg struct {
	name        string
	Result      any
	Err         error
	ExecuteFunc func(args ...any) (any, error)
	Calls       [][]any
}

func (p *FakeProg) ID() ProgramID { return 1 }
func (p *FakeProg) Name() string  { return p.name }

func (p *FakeProg) Execute(_ context.Context, args ...any) (any, error) {
	p.Calls = append(p.Calls, args)
	if p.ExecuteFunc != nil {
		return p.ExecuteFunc(args...)
	}
	return p.Result, p.Err
}

func alwaysTrue() *FakeProg  { return &FakeProg{name: "always", Result: true} }
func alwaysFalse() *FakeProg { return &FakeProg{name: "never", Result: false} }

// memStore is an EventStore that assigns sequential ids and can be told to fail.
type memStore struct {
	mu           sync.Mutex
	next         int64
	signups      map[SignupID]EventID
	reservations map[ReservationID]EventID
	failInsert   bool
	failDelete   bool
	trace        []string
}

func newMemStore() *memStore {
	return &memStore{
		signups:      make(map[SignupID]EventID),
		reservations: make(map[ReservationID]EventID),
	}
}

var errStore = errors.New("store unavailable")

func (s *memStore) InsertSignup(_ context.Context, event EventID, _ *Participant) (SignupID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = append(s.trace, "InsertSignup")
	if s.failInsert {
		return 0, errStore
	}
	s.next++
	id := SignupID(s.next)
	s.signups[id] = event
	return id, nil
}

func (s *memStore) DeleteSignup(_ context.Context, id SignupID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = append(s.trace, "DeleteSignup")
	if s.failDelete {
		return errStore
	}
	delete(s.signups, id)
	return nil
}

func (s *memStore) InsertReservation(_ context.Context, event EventID, _ *Reservation) (ReservationID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = append(s.trace, "InsertReservation")
	if s.failInsert {
		return 0, errStore
	}
	s.next++
	id := ReservationID(s.next)
	s.reservations[id] = event
	return id, nil
}

func (s *memStore) DeleteReservation(_ context.Context, id ReservationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trace = append(s.trace, "DeleteReservation")
	if s.failDelete {
		return errStore
	}
	delete(s.reservations, id)
	return nil
}

type fakeBank struct {
	balance     decimal.Decimal
	balanceErr  error
	withdrawals int
	deposits    int
}

func (b *fakeBank) Balance(context.Context) (decimal.Decimal, error) {
	if b.balanceErr != nil {
		return decimal.Zero, b.balanceErr
	}
	return b.balance, nil
}

func (b *fakeBank) Withdraw(_ context.Context, amount decimal.Decimal) error {
	b.withdrawals++
	b.balance = b.balance.Sub(amount)
	return nil
}

func (b *fakeBank) Deposit(_ context.Context, amount decimal.Decimal) error {
	b.deposits++
	b.balance = b.balance.Add(amount)
	return nil
}

// constProg is a stateless program safe to share between goroutines.
type constProg bool

func (constProg) ID() ProgramID                                  { return 2 }
func (constProg) Name() string                                   { return "const" }
func (p constProg) Execute(context.Context, ...any) (any, error) { return bool(p), nil }
