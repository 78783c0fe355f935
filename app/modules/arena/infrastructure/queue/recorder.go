package arenaqueue

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
)

// Pending is a transition the Recorder holds for an event.
type Pending struct {
	ArenaID arenadomain.ArenaID
	EventID arenadomain.EventID
	Step
}

type recurrence struct {
	arenaID  arenadomain.ArenaID
	typeID   arenadomain.EventTypeID
	interval time.Duration
	next     time.Time
	// immediate fires once on the next RunDue, whatever the time, so the
	// upcoming occurrence exists as soon as the schedule is registered.
	immediate bool
}

// Recorder is an in-memory scheduler for tests and single-process setups.
// It holds at most one pending step per event and fires due work when
// RunDue is called.
type Recorder struct {
	service TransitionApplier
	grace   time.Duration

	mu        sync.Mutex
	pending   map[arenadomain.EventID]Pending
	recurring map[arenadomain.EventTypeID]*recurrence
}

// NewRecorder returns a Recorder that applies due work through service.
// A nil service only records.
func NewRecorder(service TransitionApplier, grace time.Duration) *Recorder {
	return &Recorder{
		service:   service,
		grace:     grace,
		pending:   make(map[arenadomain.EventID]Pending),
		recurring: make(map[arenadomain.EventTypeID]*recurrence),
	}
}

var _ arenadomain.Scheduler = (*Recorder)(nil)

func (r *Recorder) Schedule(_ context.Context, e *arenadomain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	step, ok := Plan(e, r.grace)
	if !ok || e.State().IsTerminal() {
		delete(r.pending, e.ID)
		return nil
	}
	p := Pending{EventID: e.ID, Step: step}
	if a := e.Arena(); a != nil {
		p.ArenaID = a.ID
	}
	r.pending[e.ID] = p
	return nil
}

func (r *Recorder) SyncRecurringSchedule(_ context.Context, t *arenadomain.EventType) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := t.Arena()
	if a == nil || !t.AutoScheduleEnabled() {
		delete(r.recurring, t.ID)
		return nil
	}
	interval, reference := t.AutoSchedule()
	r.recurring[t.ID] = &recurrence{
		arenaID:  a.ID,
		typeID:   t.ID,
		interval:  *interval,
		next:      *reference,
		immediate: true,
	}
	return nil
}

// Pending returns the held steps ordered by due time.
func (r *Recorder) Pending() []Pending {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Pending, 0, len(r.pending))
	for _, p := range r.pending {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].At.Equal(out[j].At) {
			return out[i].EventID < out[j].EventID
		}
		return out[i].At.Before(out[j].At)
	})
	return out
}

// Recurring lists the event types with a recurring registration.
func (r *Recorder) Recurring() []arenadomain.EventTypeID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]arenadomain.EventTypeID, 0, len(r.recurring))
	for id := range r.recurring {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RunDue fires every step and recurrence due at now. Applying a step
// usually schedules the next one, so RunDue repeats until nothing more is
// due. It returns how many jobs ran.
func (r *Recorder) RunDue(ctx context.Context, now time.Time) (int, error) {
	if r.service == nil {
		return 0, nil
	}
	var (
		ran  int
		errs []error
		seen = make(map[Pending]bool)
	)
	for {
		steps, types := r.takeDue(now, seen)
		if len(steps) == 0 && len(types) == 0 {
			return ran, errors.Join(errs...)
		}
		for _, rec := range types {
			ran++
			if _, err := r.service.CreateNextOccurrence(ctx, rec.arenaID, rec.typeID); err != nil {
				errs = append(errs, err)
			}
		}
		for _, p := range steps {
			ran++
			_, err := r.service.ApplyTransition(ctx, p.ArenaID, p.EventID, p.Transition, "")
			if err != nil && !permanent(err) {
				errs = append(errs, err)
			}
		}
	}
}

// takeDue removes due steps under the lock so the service can call back
// into Schedule while they are applied. seen stops a step that re-plans
// itself from looping.
func (r *Recorder) takeDue(now time.Time, seen map[Pending]bool) ([]Pending, []recurrence) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var steps []Pending
	for id, p := range r.pending {
		if p.At.After(now) || seen[p] {
			continue
		}
		seen[p] = true
		steps = append(steps, p)
		delete(r.pending, id)
	}
	sort.Slice(steps, func(i, j int) bool { return steps[i].EventID < steps[j].EventID })

	var types []recurrence
	for _, rec := range r.recurring {
		if !rec.immediate && rec.next.After(now) {
			continue
		}
		rec.immediate = false
		types = append(types, *rec)
		if !rec.next.After(now) {
			steps := now.Sub(rec.next)/rec.interval + 1
			rec.next = rec.next.Add(steps * rec.interval)
		}
	}
	sort.Slice(types, func(i, j int) bool { return types[i].typeID < types[j].typeID })
	return steps, types
}
