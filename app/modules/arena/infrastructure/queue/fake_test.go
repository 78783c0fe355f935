package arenaqueue

import (
	"context"
	"sync"
	"testing"
	"time"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenautil "github.com/Black-And-White-Club/arena-engine/app/modules/arena/utils"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

type transitionCall struct {
	ArenaID    arenadomain.ArenaID
	EventID    arenadomain.EventID
	Transition arenadomain.Transition
}

// FakeService records calls; the Func fields override the default success.
type FakeService struct {
	ApplyTransitionFunc      func(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, t arenadomain.Transition) (*arenaservice.TransitionResult, error)
	CreateNextOccurrenceFunc func(ctx context.Context, arenaID arenadomain.ArenaID, typeID arenadomain.EventTypeID) (*arenaservice.EventInfo, error)

	mu          sync.Mutex
	transitions []transitionCall
	occurrences []arenadomain.EventTypeID
}

func (f *FakeService) ApplyTransition(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, t arenadomain.Transition, _ string) (*arenaservice.TransitionResult, error) {
	f.mu.Lock()
	f.transitions = append(f.transitions, transitionCall{arenaID, eventID, t})
	f.mu.Unlock()
	if f.ApplyTransitionFunc != nil {
		return f.ApplyTransitionFunc(ctx, arenaID, eventID, t)
	}
	return &arenaservice.TransitionResult{Applied: true}, nil
}

func (f *FakeService) CreateNextOccurrence(ctx context.Context, arenaID arenadomain.ArenaID, typeID arenadomain.EventTypeID) (*arenaservice.EventInfo, error) {
	f.mu.Lock()
	f.occurrences = append(f.occurrences, typeID)
	f.mu.Unlock()
	if f.CreateNextOccurrenceFunc != nil {
		return f.CreateNextOccurrenceFunc(ctx, arenaID, typeID)
	}
	return &arenaservice.EventInfo{ArenaID: arenaID, EventTypeID: typeID}, nil
}

func (f *FakeService) Transitions() []transitionCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]transitionCall(nil), f.transitions...)
}

func (f *FakeService) Occurrences() []arenadomain.EventTypeID {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]arenadomain.EventTypeID(nil), f.occurrences...)
}

var (
	_ TransitionApplier = (*FakeService)(nil)
	_ TransitionApplier = (*arenaservice.ArenaService)(nil)
)

// newEventType returns type 9 of arena 3, with a two hour registration and
// a thirty minute preparation window.
func newEventType(t *testing.T, clock *arenautil.ManualClock) *arenadomain.EventType {
	t.Helper()
	a := arenadomain.NewArena("Colosseum", arenadomain.Collaborators{Clock: clock})
	a.ID = 3
	et, err := a.CreateEventType("Duel")
	require.NoError(t, err)
	et.ID = 9
	et.RegistrationDuration = 2 * time.Hour
	et.PreparationDuration = 30 * time.Minute
	return et
}

func ptr[T any](v T) *T { return &v }
