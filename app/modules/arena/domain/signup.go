package arenadomain

import (
	"context"
	"fmt"
)

// CanSignUp reports whether ch may join side sideIndex as class. Checks run in
// a fixed order and the first failure's reason is returned.
func (e *Event) CanSignUp(ctx context.Context, ch Character, sideIndex int, class *CombatantClass) (bool, string) {
	ok, reason, _ := e.checkSignup(ctx, ch, sideIndex, class, true)
	return ok, reason
}

// checkSignup also returns the reservation the signup would consume.
func (e *Event) checkSignup(ctx context.Context, ch Character, sideIndex int, class *CombatantClass, requireOpen bool) (bool, string, *Reservation) {
	if ch == nil {
		return false, "there is no such character", nil
	}
	if requireOpen && e.state != StateRegistrationOpen {
		return false, "registration for this event is not open", nil
	}
	var side *EventTypeSide
	if e.eventType != nil {
		side = e.eventType.Side(sideIndex)
	}
	if side == nil {
		return false, fmt.Sprintf("there is no side %d in this event", sideIndex+1), nil
	}
	if !side.IsClassEligible(class) {
		return false, fmt.Sprintf("that combatant class may not fight on side %d", side.DisplayIndex()), nil
	}
	if ch.IsNPC() && !side.AllowNpcSignup {
		return false, fmt.Sprintf("NPCs may not sign up for side %d", side.DisplayIndex()), nil
	}
	if !class.IsEligible(ctx, ch) {
		return false, fmt.Sprintf("%s does not qualify for the %s class", ch.Name(), class.Name), nil
	}

	e.mu.Lock()
	ok, reason, res := e.checkRosterLocked(ch, side)
	e.mu.Unlock()
	if !ok {
		return false, reason, nil
	}

	if side.HasRatingBand() {
		ratings := e.collaborators().Ratings
		if ratings == nil {
			return false, "ratings are unavailable for this side's rating band", nil
		}
		r, rated, err := ratings.Rating(ctx, ch.ID(), class.ID)
		if err != nil || !rated {
			return false, fmt.Sprintf("%s has no rating in the %s class", ch.Name(), class.Name), nil
		}
		if !side.InRatingBand(r) {
			return false, fmt.Sprintf("%s's rating is outside side %d's rating band", ch.Name(), side.DisplayIndex()), nil
		}
	}
	return true, "", res
}

// checkRosterLocked covers the checks that read participants and
// reservations: duplicates, capacity and policy.
func (e *Event) checkRosterLocked(ch Character, side *EventTypeSide) (bool, string, *Reservation) {
	if e.participantLocked(ch.ID()) != nil {
		return false, fmt.Sprintf("%s is already signed up to this event", ch.Name()), nil
	}
	if e.countOnSideLocked(side.Index) >= side.Capacity {
		return false, fmt.Sprintf("side %d is full", side.DisplayIndex()), nil
	}
	res := e.activeReservationLocked(ch, side.Index)
	switch side.Policy {
	case PolicyClosed:
		return false, fmt.Sprintf("side %d is closed to signups", side.DisplayIndex()), nil
	case PolicyManagersOnly:
		if e.arena == nil || !e.arena.IsManager(ch.ID()) {
			return false, fmt.Sprintf("only arena managers may sign up for side %d", side.DisplayIndex()), nil
		}
	case PolicyReservedOnly:
		if res == nil {
			return false, fmt.Sprintf("side %d requires a reservation", side.DisplayIndex()), nil
		}
	}
	return true, "", res
}

// activeReservationLocked prunes expired reservations and returns one held by
// ch for the side, if any.
func (e *Event) activeReservationLocked(ch Character, sideIndex int) *Reservation {
	e.pruneExpiredLocked()
	for _, r := range e.reservations {
		if r.SideIndex == sideIndex && r.Matches(ch) {
			return r
		}
	}
	return nil
}

// SignUp adds ch to the event. It fails with a *SignupRejectedError whenever
// CanSignUp would refuse the same arguments, and leaves the event unchanged
// if the store fails.
func (e *Event) SignUp(ctx context.Context, store EventStore, ch Character, sideIndex int, class *CombatantClass) (*Participant, error) {
	return e.signUp(ctx, store, ch, sideIndex, class, true)
}

func (e *Event) signUp(ctx context.Context, store EventStore, ch Character, sideIndex int, class *CombatantClass, requireOpen bool) (*Participant, error) {
	ok, reason, _ := e.checkSignup(ctx, ch, sideIndex, class, requireOpen)
	if !ok {
		return nil, &SignupRejectedError{Reason: reason}
	}

	p := &Participant{
		CharacterID:     ch.ID(),
		Class:           class,
		SideIndex:       sideIndex,
		IsNPC:           ch.IsNPC(),
		StageName:       class.StageNameFor(ch),
		SignatureColour: class.SignatureColour,
	}
	if ratings := e.collaborators().Ratings; ratings != nil {
		if r, rated, err := ratings.Rating(ctx, ch.ID(), class.ID); err == nil && rated {
			p.StartingRating = &r
		}
	}
	p.prime(ch)

	e.mu.Lock()
	defer e.mu.Unlock()
	side := e.eventType.Side(sideIndex)
	ok, reason, res := e.checkRosterLocked(ch, side)
	if !ok {
		return nil, &SignupRejectedError{Reason: reason}
	}
	if res != nil {
		id := res.ID
		p.ReservationID = &id
	}
	id, err := store.InsertSignup(ctx, e.ID, p)
	if err != nil {
		return nil, fmt.Errorf("insert signup: %w", err)
	}
	if res != nil && res.ID != 0 {
		if err := store.DeleteReservation(ctx, res.ID); err != nil {
			return nil, fmt.Errorf("consume reservation: %w", err)
		}
	}
	p.ID = id
	if res != nil {
		e.removeReservationLocked(res)
	}
	e.participants = append(e.participants, p)
	e.dirty = true
	return p, nil
}

// Withdraw removes ch's signup. It reports false when ch was not signed up.
func (e *Event) Withdraw(ctx context.Context, store EventStore, ch CharacterID) (bool, error) {
	if e.state > StateRegistrationOpen {
		return false, ErrWithdrawClosed
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	p := e.participantLocked(ch)
	if p == nil {
		return false, nil
	}
	if err := store.DeleteSignup(ctx, p.ID); err != nil {
		return false, fmt.Errorf("delete signup: %w", err)
	}
	for i, existing := range e.participants {
		if existing == p {
			e.participants = append(e.participants[:i:i], e.participants[i+1:]...)
			break
		}
	}
	e.dirty = true
	return true, nil
}

// AddReservation persists r and attaches it to the event.
func (e *Event) AddReservation(ctx context.Context, store EventStore, r Reservation) (*Reservation, error) {
	if e.eventType == nil || e.eventType.Side(r.SideIndex) == nil {
		return nil, ErrSideNotFound
	}
	if r.CharacterID == nil && r.ClanID == nil {
		return nil, fmt.Errorf("reservation needs a character or a clan")
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	r.ID = 0
	id, err := store.InsertReservation(ctx, e.ID, &r)
	if err != nil {
		return nil, fmt.Errorf("insert reservation: %w", err)
	}
	r.ID = id
	e.reservations = append(e.reservations, &r)
	e.dirty = true
	return &r, nil
}

// RemoveReservation deletes the reservation with the given id.
func (e *Event) RemoveReservation(ctx context.Context, store EventStore, id ReservationID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	var found *Reservation
	for _, r := range e.reservations {
		if r.ID == id {
			found = r
			break
		}
	}
	if found == nil {
		return ErrReservationUnknown
	}
	if err := store.DeleteReservation(ctx, id); err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	e.removeReservationLocked(found)
	e.dirty = true
	return nil
}

func (e *Event) removeReservationLocked(r *Reservation) {
	for i, existing := range e.reservations {
		if existing == r {
			e.reservations = append(e.reservations[:i:i], e.reservations[i+1:]...)
			return
		}
	}
}

// PersistPendingReservations stores reservations that were copied in at
// creation and have no id yet.
func (e *Event) PersistPendingReservations(ctx context.Context, store EventStore) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range e.reservations {
		if r.ID != 0 {
			continue
		}
		id, err := store.InsertReservation(ctx, e.ID, r)
		if err != nil {
			return fmt.Errorf("insert reservation: %w", err)
		}
		r.ID = id
	}
	return nil
}
