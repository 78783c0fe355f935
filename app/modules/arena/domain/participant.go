package arenadomain

import (
	"context"
	"sync"
	"time"
)

// Participant is a signup on an event.
type Participant struct {
	ID              SignupID
	CharacterID     CharacterID
	Class           *CombatantClass
	SideIndex       int
	IsNPC           bool
	StageName       string
	SignatureColour string
	StartingRating  *float64
	ReservationID   *ReservationID

	mu        sync.Mutex
	character Character
}

// Character resolves the participant's character on first use and memoizes
// it. Failed lookups are retried on the next call.
func (p *Participant) Character(ctx context.Context, reg CharacterRegistry) (Character, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.character != nil {
		return p.character, nil
	}
	if reg == nil {
		return nil, ErrCharacterRegistryMissing
	}
	ch, err := reg.Character(ctx, p.CharacterID)
	if err != nil {
		return nil, err
	}
	p.character = ch
	return ch, nil
}

func (p *Participant) prime(ch Character) {
	p.mu.Lock()
	p.character = ch
	p.mu.Unlock()
}

// Reservation grants pre-registration signup rights on a reserved side.
type Reservation struct {
	ID          ReservationID
	SideIndex   int
	CharacterID *CharacterID
	ClanID      *ClanID
	ExpiresAt   time.Time
}

func (r *Reservation) Expired(now time.Time) bool {
	return r.ExpiresAt.Before(now)
}

// Matches reports whether r is held by ch directly or through one of its clans.
func (r *Reservation) Matches(ch Character) bool {
	if ch == nil {
		return false
	}
	if r.CharacterID != nil && *r.CharacterID == ch.ID() {
		return true
	}
	if r.ClanID != nil {
		for _, clan := range ch.Clans() {
			if clan == *r.ClanID {
				return true
			}
		}
	}
	return false
}
