package arenadomain

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// Arena is the facility aggregate. It owns its combatant classes, event types
// and events, and is the only factory for events.
type Arena struct {
	ID             ArenaID
	Name           string
	EconomicZoneID int64
	Currency       string
	BankAccountID  *int64

	fundsMu        sync.Mutex
	account        BankAccount
	virtualBalance decimal.Decimal

	managers map[CharacterID]struct{}
	rooms    map[RoomRole][]RoomID

	classes    []*CombatantClass
	eventTypes []*EventType
	events     []*Event

	deps  Collaborators
	dirty bool
}

// NewArena returns an empty arena with every room role initialised.
func NewArena(name string, deps Collaborators) *Arena {
	a := &Arena{
		Name:     strings.TrimSpace(name),
		managers: make(map[CharacterID]struct{}),
		rooms:    make(map[RoomRole][]RoomID, len(AllRoomRoles)),
		deps:     deps,
		dirty:    true,
	}
	for _, role := range AllRoomRoles {
		a.rooms[role] = nil
	}
	return a
}

func (a *Arena) IsDirty() bool { return a.dirty }
func (a *Arena) ClearDirty()   { a.dirty = false }
func (a *Arena) MarkDirty()    { a.dirty = true }

// Bind replaces the runtime collaborators, typically after loading.
func (a *Arena) Bind(deps Collaborators) { a.deps = deps }

func (a *Arena) Collaborators() Collaborators { return a.deps }

func (a *Arena) Now() time.Time { return a.deps.now() }

// --- managers ---

func (a *Arena) IsManager(id CharacterID) bool {
	_, ok := a.managers[id]
	return ok
}

// AddManager reports whether id was newly added.
func (a *Arena) AddManager(id CharacterID) bool {
	if a.IsManager(id) {
		return false
	}
	a.managers[id] = struct{}{}
	a.dirty = true
	return true
}

// RemoveManager reports whether id was present.
func (a *Arena) RemoveManager(id CharacterID) bool {
	if !a.IsManager(id) {
		return false
	}
	delete(a.managers, id)
	a.dirty = true
	return true
}

// Managers returns manager ids in ascending order.
func (a *Arena) Managers() []CharacterID {
	out := make([]CharacterID, 0, len(a.managers))
	for id := range a.managers {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// --- rooms ---

func (a *Arena) Rooms(role RoomRole) []RoomID {
	rooms := a.rooms[role]
	out := make([]RoomID, len(rooms))
	copy(out, rooms)
	return out
}

func (a *Arena) AddRoom(role RoomRole, room RoomID) bool {
	for _, r := range a.rooms[role] {
		if r == room {
			return false
		}
	}
	a.rooms[role] = append(a.rooms[role], room)
	a.dirty = true
	return true
}

func (a *Arena) RemoveRoom(role RoomRole, room RoomID) bool {
	rooms := a.rooms[role]
	for i, r := range rooms {
		if r == room {
			a.rooms[role] = append(rooms[:i:i], rooms[i+1:]...)
			a.dirty = true
			return true
		}
	}
	return false
}

// IsReadyToHost checks the arena can run an event of type t.
func (a *Arena) IsReadyToHost(t *EventType) (bool, string) {
	if len(a.rooms[RoomFloor]) == 0 {
		return false, "the arena has no combat floor rooms"
	}
	if len(a.rooms[RoomWaiting]) == 0 {
		return false, "the arena has no waiting rooms"
	}
	if t == nil || t.arena != a {
		return false, "that event type does not belong to this arena"
	}
	return true, ""
}

// --- combatant classes ---

func (a *Arena) CombatantClasses() []*CombatantClass {
	out := make([]*CombatantClass, len(a.classes))
	copy(out, a.classes)
	return out
}

func (a *Arena) CombatantClass(id ClassID) *CombatantClass {
	for _, c := range a.classes {
		if c.ID == id {
			return c
		}
	}
	return nil
}

func (a *Arena) CombatantClassByName(name string) *CombatantClass {
	for _, c := range a.classes {
		if strings.EqualFold(c.Name, name) {
			return c
		}
	}
	return nil
}

// CreateCombatantClass adds a class. The eligibility program is required.
func (a *Arena) CreateCombatantClass(name string, eligibility Prog) (*CombatantClass, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if eligibility == nil {
		return nil, ErrEligibilityMissing
	}
	if a.CombatantClassByName(name) != nil {
		return nil, ErrDuplicateName
	}
	c := &CombatantClass{Name: name, Eligibility: eligibility, arena: a, dirty: true}
	a.classes = append(a.classes, c)
	return c, nil
}

// AttachCombatantClass adds a loaded class.
func (a *Arena) AttachCombatantClass(c *CombatantClass) {
	c.arena = a
	a.classes = append(a.classes, c)
}

// RemoveCombatantClass refuses while any side still lists c as eligible.
func (a *Arena) RemoveCombatantClass(c *CombatantClass) error {
	if c == nil || c.arena != a {
		return ErrForeignClass
	}
	for _, t := range a.eventTypes {
		for _, s := range t.sides {
			if s.IsClassEligible(c) {
				return fmt.Errorf("%w: %s side %d", ErrClassInUse, t.Name, s.DisplayIndex())
			}
		}
	}
	for i, existing := range a.classes {
		if existing == c {
			a.classes = append(a.classes[:i:i], a.classes[i+1:]...)
			break
		}
	}
	c.arena = nil
	return nil
}

// --- event types ---

func (a *Arena) EventTypes() []*EventType {
	out := make([]*EventType, len(a.eventTypes))
	copy(out, a.eventTypes)
	return out
}

func (a *Arena) EventType(id EventTypeID) *EventType {
	for _, t := range a.eventTypes {
		if t.ID == id {
			return t
		}
	}
	return nil
}

func (a *Arena) EventTypeByName(name string) *EventType {
	for _, t := range a.eventTypes {
		if strings.EqualFold(t.Name, name) {
			return t
		}
	}
	return nil
}

// CreateEventType adds a template with a single open side.
func (a *Arena) CreateEventType(name string) (*EventType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if a.EventTypeByName(name) != nil {
		return nil, ErrDuplicateName
	}
	t := &EventType{Name: name, arena: a, dirty: true}
	t.AddSide()
	a.eventTypes = append(a.eventTypes, t)
	return t, nil
}

// AttachEventType adds a loaded template.
func (a *Arena) AttachEventType(t *EventType) {
	t.arena = a
	a.eventTypes = append(a.eventTypes, t)
}

// RemoveEventType cascades to the type's sides. It is refused while the type
// has events that are not yet terminal.
func (a *Arena) RemoveEventType(t *EventType) error {
	if t == nil || t.arena != a {
		return ErrForeignEventType
	}
	if a.hasUnfinishedEvents(t) {
		return ErrTypeInUse
	}
	for i, existing := range a.eventTypes {
		if existing == t {
			a.eventTypes = append(a.eventTypes[:i:i], a.eventTypes[i+1:]...)
			break
		}
	}
	kept := a.events[:0:0]
	for _, e := range a.events {
		if e.eventType != t {
			kept = append(kept, e)
		}
	}
	a.events = kept
	t.arena = nil
	return nil
}

func (a *Arena) hasUnfinishedEvents(t *EventType) bool {
	for _, e := range a.events {
		if e.eventType == t && !e.state.IsTerminal() {
			return true
		}
	}
	return false
}

// --- events ---

func (a *Arena) Events() []*Event {
	out := make([]*Event, len(a.events))
	copy(out, a.events)
	return out
}

func (a *Arena) Event(id EventID) *Event {
	for _, e := range a.events {
		if e.ID == id {
			return e
		}
	}
	return nil
}

// CreateEvent instantiates t. Using a type from another arena is a caller bug
// and fails without changing anything.
func (a *Arena) CreateEvent(t *EventType, scheduledFor time.Time, reservations []Reservation) (*Event, error) {
	if t == nil || t.arena != a || a.EventType(t.ID) != t {
		return nil, ErrForeignEventType
	}
	now := a.Now()
	e := &Event{
		arena:                a,
		eventType:            t,
		state:                StateDraft,
		CreatedAt:            now,
		ScheduledAt:          scheduledFor.UTC(),
		BringYourOwn:         t.BringYourOwn,
		RegistrationDuration: t.RegistrationDuration,
		PreparationDuration:  t.PreparationDuration,
		BettingModel:         t.BettingModel,
		AppearanceFee:        t.AppearanceFee,
		VictoryFee:           t.VictoryFee,
		dirty:                true,
	}
	if t.TimeLimit != nil {
		limit := *t.TimeLimit
		e.TimeLimit = &limit
	}
	opens := e.ScheduledAt.Add(-e.PreparationDuration - e.RegistrationDuration)
	if opens.Before(now) {
		opens = now
	}
	e.registrationOpensAt = &opens
	for _, r := range reservations {
		r := r
		r.ID = 0
		e.reservations = append(e.reservations, &r)
	}
	a.events = append(a.events, e)
	return e, nil
}

// AttachEvent adds a loaded event.
func (a *Arena) AttachEvent(e *Event) {
	e.arena = a
	a.events = append(a.events, e)
}

// ArchiveEvent drops a terminal event from the live list.
func (a *Arena) ArchiveEvent(e *Event) bool {
	if e == nil || !e.state.IsTerminal() {
		return false
	}
	for i, existing := range a.events {
		if existing == e {
			a.events = append(a.events[:i:i], a.events[i+1:]...)
			return true
		}
	}
	return false
}
