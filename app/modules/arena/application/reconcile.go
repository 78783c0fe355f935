package arenaservice

import (
	"context"
	"errors"
	"fmt"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/Black-And-White-Club/arena-engine/app/shared/results"
	"github.com/uptrace/bun"
)

// ReconcileSchedules hands every unfinished event and every auto-scheduled
// event type to the scheduler. Schedulers dedupe, so it is safe to run on
// every start. One broken arena does not stop the others.
func (s *ArenaService) ReconcileSchedules(ctx context.Context) error {
	if s.sched() == nil {
		return nil
	}

	type plan struct {
		events []*arenadomain.Event
		types  []*arenadomain.EventType
	}
	collect := func(ctx context.Context, db bun.IDB) (results.OperationResult[[]plan, error], error) {
		rows, err := s.repo.ListArenas(ctx, db)
		if err != nil {
			return results.OperationResult[[]plan, error]{}, err
		}
		var plans []plan
		for _, row := range rows {
			a, err := s.loadArena(ctx, db, arenadomain.ArenaID(row.ID))
			if err != nil {
				s.logger.ErrorContext(ctx, "Skipping arena during reconciliation",
					attr.ExtractCorrelationID(ctx),
					attr.Int64("arena_id", row.ID),
					attr.Error(err),
				)
				continue
			}
			var p plan
			for _, e := range a.Events() {
				if !e.State().IsTerminal() {
					p.events = append(p.events, e)
				}
			}
			for _, t := range a.EventTypes() {
				if t.AutoScheduleEnabled() {
					p.types = append(p.types, t)
				}
			}
			plans = append(plans, p)
		}
		return results.SuccessResult[[]plan, error](plans), nil
	}

	// Read-only, and outside a transaction so one failed load does not
	// abort the scan of the other arenas.
	var db bun.IDB
	if s.db != nil {
		db = s.db
	}
	plans, err := unwrap(withTelemetry(s, ctx, "ReconcileSchedules", "all", func(ctx context.Context) (results.OperationResult[[]plan, error], error) {
		return collect(ctx, db)
	}))
	if err != nil {
		return err
	}

	sc := s.sched()
	var errs []error
	events, types := 0, 0
	for _, p := range plans {
		for _, e := range p.events {
			if err := sc.Schedule(ctx, e); err != nil {
				errs = append(errs, fmt.Errorf("event %d: %w", e.ID, err))
			}
			events++
		}
		for _, t := range p.types {
			if err := sc.SyncRecurringSchedule(ctx, t); err != nil {
				errs = append(errs, fmt.Errorf("event type %d: %w", t.ID, err))
			}
			types++
		}
	}
	s.logger.InfoContext(ctx, "Schedules reconciled",
		attr.ExtractCorrelationID(ctx),
		attr.Int("events", events),
		attr.Int("event_types", types),
		attr.Int("failures", len(errs)),
	)
	return errors.Join(errs...)
}
