package arenahandlers

import (
	"context"
	"time"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
)

// ------------------------
// Fake Arena Service
// ------------------------

type FakeArenaService struct {
	trace []string

	SignUpFunc   func(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, characterID arenadomain.CharacterID, sideIndex int, classID arenadomain.ClassID) (*arenaservice.ParticipantInfo, error)
	WithdrawFunc func(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, characterID arenadomain.CharacterID) (bool, error)
}

func NewFakeArenaService() *FakeArenaService {
	return &FakeArenaService{trace: []string{}}
}

func (f *FakeArenaService) record(step string) {
	f.trace = append(f.trace, step)
}

func (f *FakeArenaService) Trace() []string {
	out := make([]string, len(f.trace))
	copy(out, f.trace)
	return out
}

func (f *FakeArenaService) SignUp(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, characterID arenadomain.CharacterID, sideIndex int, classID arenadomain.ClassID) (*arenaservice.ParticipantInfo, error) {
	f.record("SignUp")
	if f.SignUpFunc != nil {
		return f.SignUpFunc(ctx, arenaID, eventID, characterID, sideIndex, classID)
	}
	return &arenaservice.ParticipantInfo{CharacterID: characterID, SideIndex: sideIndex}, nil
}

func (f *FakeArenaService) Withdraw(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, characterID arenadomain.CharacterID) (bool, error) {
	f.record("Withdraw")
	if f.WithdrawFunc != nil {
		return f.WithdrawFunc(ctx, arenaID, eventID, characterID)
	}
	return true, nil
}

// The handlers never call the rest of the service.

func (f *FakeArenaService) CreateArena(context.Context, string, string, []arenadomain.CharacterID) (*arenaservice.ArenaInfo, error) {
	f.record("CreateArena")
	return nil, nil
}

func (f *FakeArenaService) GetArena(context.Context, arenadomain.ArenaID) (*arenaservice.ArenaInfo, error) {
	f.record("GetArena")
	return nil, nil
}

func (f *FakeArenaService) MutateArena(context.Context, arenadomain.ArenaID, func(context.Context, *arenaservice.Session) error) error {
	f.record("MutateArena")
	return nil
}

func (f *FakeArenaService) UpsertProgram(context.Context, arenadomain.ArenaID, string, string) (arenadomain.ProgramID, error) {
	f.record("UpsertProgram")
	return 0, nil
}

func (f *FakeArenaService) CreateEvent(context.Context, arenadomain.ArenaID, arenadomain.EventTypeID, time.Time, []arenaservice.Reservation) (*arenaservice.EventInfo, error) {
	f.record("CreateEvent")
	return nil, nil
}

func (f *FakeArenaService) CreateNextOccurrence(context.Context, arenadomain.ArenaID, arenadomain.EventTypeID) (*arenaservice.EventInfo, error) {
	f.record("CreateNextOccurrence")
	return nil, nil
}

func (f *FakeArenaService) GetEvent(context.Context, arenadomain.ArenaID, arenadomain.EventID) (*arenaservice.EventInfo, error) {
	f.record("GetEvent")
	return nil, nil
}

func (f *FakeArenaService) ApplyTransition(context.Context, arenadomain.ArenaID, arenadomain.EventID, arenadomain.Transition, string) (*arenaservice.TransitionResult, error) {
	f.record("ApplyTransition")
	return nil, nil
}

func (f *FakeArenaService) RecordOutcome(context.Context, arenadomain.ArenaID, arenadomain.EventID, arenadomain.Outcome, []int) (*arenaservice.EventInfo, error) {
	f.record("RecordOutcome")
	return nil, nil
}

func (f *FakeArenaService) ArchiveEvent(context.Context, arenadomain.ArenaID, arenadomain.EventID) (bool, error) {
	f.record("ArchiveEvent")
	return false, nil
}

func (f *FakeArenaService) AddReservation(context.Context, arenadomain.ArenaID, arenadomain.EventID, arenaservice.Reservation) (arenadomain.ReservationID, error) {
	f.record("AddReservation")
	return 0, nil
}

func (f *FakeArenaService) RemoveReservation(context.Context, arenadomain.ArenaID, arenadomain.EventID, arenadomain.ReservationID) error {
	f.record("RemoveReservation")
	return nil
}

func (f *FakeArenaService) ConfigureAutoSchedule(context.Context, arenadomain.ArenaID, arenadomain.EventTypeID, *time.Duration, *time.Time) (*arenaservice.EventTypeInfo, error) {
	f.record("ConfigureAutoSchedule")
	return nil, nil
}

func (f *FakeArenaService) CloneEventType(context.Context, arenadomain.ArenaID, arenadomain.EventTypeID, string, arenadomain.CharacterID) (*arenaservice.EventTypeInfo, error) {
	f.record("CloneEventType")
	return nil, nil
}

func (f *FakeArenaService) ReconcileSchedules(context.Context) error {
	f.record("ReconcileSchedules")
	return nil
}

var _ arenaservice.Service = (*FakeArenaService)(nil)

// ------------------------
// Fake Builder
// ------------------------

type FakeCommander struct {
	calls []string
	OK    bool
	Reply string
}

func (f *FakeCommander) BuildingCommand(_ context.Context, _ arenadomain.CharacterID, _ arenadomain.ArenaID, command string) (bool, string) {
	f.calls = append(f.calls, command)
	return f.OK, f.Reply
}

var _ Commander = (*FakeCommander)(nil)
