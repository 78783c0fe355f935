package arenadomain

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EventType is a reusable template for events.
type EventType struct {
	ID           EventTypeID
	Name         string
	BringYourOwn bool
	CreatedBy    *CharacterID

	RegistrationDuration time.Duration
	PreparationDuration  time.Duration
	TimeLimit            *time.Duration

	autoInterval  *time.Duration
	autoReference *time.Time

	BettingModel  BettingModel
	AppearanceFee decimal.Decimal
	VictoryFee    decimal.Decimal

	IntroProg       Prog
	ScoringProg     Prog
	ResolutionProg  Prog
	EliminationProg Prog

	sides []*EventTypeSide
	arena *Arena
	dirty bool
}

func (t *EventType) Arena() *Arena { return t.arena }
func (t *EventType) IsDirty() bool { return t.dirty }
func (t *EventType) ClearDirty()   { t.dirty = false }

// Sides returns the sides ordered by index.
func (t *EventType) Sides() []*EventTypeSide {
	out := make([]*EventTypeSide, len(t.sides))
	copy(out, t.sides)
	return out
}

func (t *EventType) Side(index int) *EventTypeSide {
	for _, s := range t.sides {
		if s.Index == index {
			return s
		}
	}
	return nil
}

func (t *EventType) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if t.arena != nil {
		if other := t.arena.EventTypeByName(name); other != nil && other != t {
			return ErrDuplicateName
		}
	}
	t.Name = name
	t.dirty = true
	return nil
}

func (t *EventType) SetBringYourOwn(v bool) {
	t.BringYourOwn = v
	t.dirty = true
}

func (t *EventType) SetRegistrationDuration(d time.Duration) error {
	if d < 0 {
		return ErrInvalidDuration
	}
	t.RegistrationDuration = d
	t.dirty = true
	return nil
}

func (t *EventType) SetPreparationDuration(d time.Duration) error {
	if d < 0 {
		return ErrInvalidDuration
	}
	t.PreparationDuration = d
	t.dirty = true
	return nil
}

// SetTimeLimit sets the live time limit; nil or zero removes it.
func (t *EventType) SetTimeLimit(d *time.Duration) error {
	if d != nil && *d < 0 {
		return ErrInvalidDuration
	}
	if d != nil && *d == 0 {
		d = nil
	}
	t.TimeLimit = d
	t.dirty = true
	return nil
}

func (t *EventType) SetBettingModel(m BettingModel) {
	t.BettingModel = m
	t.dirty = true
}

func (t *EventType) SetAppearanceFee(fee decimal.Decimal) error {
	if fee.IsNegative() {
		return ErrInvalidFee
	}
	t.AppearanceFee = fee
	t.dirty = true
	return nil
}

func (t *EventType) SetVictoryFee(fee decimal.Decimal) error {
	if fee.IsNegative() {
		return ErrInvalidFee
	}
	t.VictoryFee = fee
	t.dirty = true
	return nil
}

func (t *EventType) SetIntroProg(p Prog) {
	t.IntroProg = p
	t.dirty = true
}

func (t *EventType) SetScoringProg(p Prog) {
	t.ScoringProg = p
	t.dirty = true
}

func (t *EventType) SetResolutionProg(p Prog) {
	t.ResolutionProg = p
	t.dirty = true
}

func (t *EventType) SetEliminationProg(p Prog) {
	t.EliminationProg = p
	t.dirty = true
}

// ConfigureAutoSchedule enables recurrence when interval is positive and a
// reference time is given, and disables it otherwise. The caller must resync
// the scheduler's recurring registration after persisting.
func (t *EventType) ConfigureAutoSchedule(interval *time.Duration, reference *time.Time) {
	if interval != nil && *interval > 0 && reference != nil {
		iv := *interval
		ref := reference.UTC()
		t.autoInterval = &iv
		t.autoReference = &ref
	} else {
		t.autoInterval = nil
		t.autoReference = nil
	}
	t.dirty = true
}

func (t *EventType) AutoScheduleEnabled() bool {
	return t.autoInterval != nil && *t.autoInterval > 0 && t.autoReference != nil
}

// AutoSchedule returns the raw recurrence settings.
func (t *EventType) AutoSchedule() (interval *time.Duration, reference *time.Time) {
	return t.autoInterval, t.autoReference
}

// NextOccurrence returns the first recurrence strictly after now.
func (t *EventType) NextOccurrence(now time.Time) (time.Time, bool) {
	if !t.AutoScheduleEnabled() {
		return time.Time{}, false
	}
	ref, iv := *t.autoReference, *t.autoInterval
	if ref.After(now) {
		return ref, true
	}
	steps := now.Sub(ref)/iv + 1
	return ref.Add(steps * iv), true
}

// AddSide appends a new side with capacity 1 and an open policy.
func (t *EventType) AddSide() *EventTypeSide {
	side := &EventTypeSide{
		Index:     len(t.sides),
		Capacity:  1,
		Policy:    PolicyOpen,
		eventType: t,
		dirty:     true,
	}
	t.sides = append(t.sides, side)
	t.dirty = true
	return side
}

// RemoveSide deletes the side at index and shifts later sides down so indices
// stay contiguous. The shifted sides are returned marked dirty.
func (t *EventType) RemoveSide(index int) (*EventTypeSide, error) {
	if len(t.sides) <= 1 {
		return nil, ErrLastSide
	}
	if t.arena != nil && t.arena.hasUnfinishedEvents(t) {
		return nil, ErrTypeInUse
	}
	pos := -1
	for i, s := range t.sides {
		if s.Index == index {
			pos = i
			break
		}
	}
	if pos < 0 {
		return nil, ErrSideNotFound
	}
	removed := t.sides[pos]
	t.sides = append(t.sides[:pos:pos], t.sides[pos+1:]...)
	for i, s := range t.sides {
		if s.Index != i {
			s.Index = i
			s.dirty = true
		}
	}
	removed.eventType = nil
	t.dirty = true
	return removed, nil
}

// AttachSide adds a loaded side without marking anything dirty.
func (t *EventType) AttachSide(s *EventTypeSide) {
	s.eventType = t
	t.sides = append(t.sides, s)
	sort.SliceStable(t.sides, func(i, j int) bool { return t.sides[i].Index < t.sides[j].Index })
}

// Clone deep-copies the type and its sides into a new type of the same arena.
func (t *EventType) Clone(newName string, originator CharacterID) (*EventType, error) {
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, ErrEmptyName
	}
	if t.arena == nil {
		return nil, ErrForeignEventType
	}
	if t.arena.EventTypeByName(newName) != nil {
		return nil, ErrDuplicateName
	}
	cp := *t
	cp.ID = 0
	cp.Name = newName
	cp.CreatedBy = &originator
	cp.sides = nil
	if t.TimeLimit != nil {
		v := *t.TimeLimit
		cp.TimeLimit = &v
	}
	if t.autoInterval != nil {
		v := *t.autoInterval
		cp.autoInterval = &v
	}
	if t.autoReference != nil {
		v := *t.autoReference
		cp.autoReference = &v
	}
	for _, s := range t.sides {
		cp.sides = append(cp.sides, s.clone(&cp))
	}
	cp.dirty = true
	t.arena.eventTypes = append(t.arena.eventTypes, &cp)
	return &cp, nil
}

// RestoreAutoSchedule sets the recurrence fields as loaded from storage.
func (t *EventType) RestoreAutoSchedule(interval *time.Duration, reference *time.Time) {
	t.autoInterval = interval
	t.autoReference = reference
}
