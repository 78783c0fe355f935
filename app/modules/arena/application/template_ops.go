package arenaservice

import (
	"context"
	"fmt"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/Black-And-White-Club/arena-engine/app/shared/results"
	"github.com/uptrace/bun"
)

// ConfigureAutoSchedule sets or clears the recurrence of an event type and
// resyncs its recurring job. Auto-scheduling is on only when both interval
// and reference are given and the interval is positive.
func (s *ArenaService) ConfigureAutoSchedule(ctx context.Context, arenaID arenadomain.ArenaID, typeID arenadomain.EventTypeID, interval *time.Duration, reference *time.Time) (*EventTypeInfo, error) {
	configure := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (*arenadomain.EventType, error) {
		t := a.EventType(typeID)
		if t == nil {
			return nil, fmt.Errorf("event type %d: %w", typeID, ErrEventTypeNotFound)
		}
		t.ConfigureAutoSchedule(interval, reference)
		return t, nil
	}

	t, err := unwrap(withTelemetry(s, ctx, "ConfigureAutoSchedule", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[*arenadomain.EventType, error], error) {
		return withArena(s, ctx, arenaID, configure)
	}))
	if err != nil {
		return nil, err
	}
	s.syncRecurring(ctx, t)
	info := newEventTypeInfo(t)
	return &info, nil
}

// CloneEventType copies an event type under a new name. The copy keeps the
// source's auto-schedule, so it gets its own recurring job.
func (s *ArenaService) CloneEventType(ctx context.Context, arenaID arenadomain.ArenaID, typeID arenadomain.EventTypeID, newName string, originator arenadomain.CharacterID) (*EventTypeInfo, error) {
	clone := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (*arenadomain.EventType, error) {
		t := a.EventType(typeID)
		if t == nil {
			return nil, fmt.Errorf("event type %d: %w", typeID, ErrEventTypeNotFound)
		}
		return t.Clone(newName, originator)
	}

	cp, err := unwrap(withTelemetry(s, ctx, "CloneEventType", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[*arenadomain.EventType, error], error) {
		return withArena(s, ctx, arenaID, clone)
	}))
	if err != nil {
		return nil, err
	}
	if cp.AutoScheduleEnabled() {
		s.syncRecurring(ctx, cp)
	}
	info := newEventTypeInfo(cp)
	return &info, nil
}
