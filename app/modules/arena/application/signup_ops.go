package arenaservice

import (
	"context"
	"fmt"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/Black-And-White-Club/arena-engine/app/shared/results"
	"github.com/uptrace/bun"
)

// SignUp enters a character on one side of an event. A zero classID picks
// the first of the side's eligible classes the character qualifies for.
// Refusals come back as *arenadomain.SignupRejectedError.
func (s *ArenaService) SignUp(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, characterID arenadomain.CharacterID, sideIndex int, classID arenadomain.ClassID) (*ParticipantInfo, error) {
	signUp := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (*ParticipantInfo, error) {
		e, err := findEvent(a, eventID)
		if err != nil {
			return nil, err
		}
		reg := a.Collaborators().Characters
		if reg == nil {
			return nil, arenadomain.ErrCharacterRegistryMissing
		}
		ch, err := reg.Character(ctx, characterID)
		if err != nil {
			return nil, err
		}
		class, err := s.pickClass(ctx, a, e, ch, sideIndex, classID)
		if err != nil {
			return nil, err
		}
		p, err := e.SignUp(ctx, s.repo.EventStore(db), ch, sideIndex, class)
		if err != nil {
			return nil, err
		}
		return &ParticipantInfo{
			SignupID:    p.ID,
			CharacterID: p.CharacterID,
			SideIndex:   p.SideIndex,
			Class:       class.Name,
			NPC:         p.IsNPC,
			StageName:   p.StageName,
		}, nil
	}

	info, err := unwrap(withTelemetry(s, ctx, "SignUp", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[*ParticipantInfo, error], error) {
		return withArena(s, ctx, arenaID, signUp)
	}))
	s.metrics.RecordSignup(ctx, err == nil)
	return info, err
}

// pickClass resolves the class a signup uses. When none of the side's
// classes accepts the character the first one is returned so the signup
// check reports why.
func (s *ArenaService) pickClass(ctx context.Context, a *arenadomain.Arena, e *arenadomain.Event, ch arenadomain.Character, sideIndex int, classID arenadomain.ClassID) (*arenadomain.CombatantClass, error) {
	if classID != 0 {
		c := a.CombatantClass(classID)
		if c == nil {
			return nil, fmt.Errorf("class %d: %w", classID, ErrClassNotFound)
		}
		return c, nil
	}
	side := e.EventType().Side(sideIndex)
	if side == nil {
		return nil, nil
	}
	classes := side.EligibleClasses()
	if len(classes) == 0 {
		return nil, &arenadomain.SignupRejectedError{
			Reason: fmt.Sprintf("side %d accepts no combatant classes", side.DisplayIndex()),
		}
	}
	for _, c := range classes {
		if ok, _ := e.CanSignUp(ctx, ch, sideIndex, c); ok {
			return c, nil
		}
	}
	return classes[0], nil
}

// Withdraw removes a character's signup while registration is still open.
// It reports false when the character was not signed up.
func (s *ArenaService) Withdraw(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, characterID arenadomain.CharacterID) (bool, error) {
	withdraw := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (bool, error) {
		e, err := findEvent(a, eventID)
		if err != nil {
			return false, err
		}
		return e.Withdraw(ctx, s.repo.EventStore(db), characterID)
	}

	return unwrap(withTelemetry(s, ctx, "Withdraw", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[bool, error], error) {
		return withArena(s, ctx, arenaID, withdraw)
	}))
}

func (s *ArenaService) AddReservation(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, r Reservation) (arenadomain.ReservationID, error) {
	reserve := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (arenadomain.ReservationID, error) {
		if r.CharacterID == nil && r.ClanID == nil {
			return 0, ErrReservationTarget
		}
		e, err := findEvent(a, eventID)
		if err != nil {
			return 0, err
		}
		added, err := e.AddReservation(ctx, s.repo.EventStore(db), arenadomain.Reservation{
			SideIndex:   r.SideIndex,
			CharacterID: r.CharacterID,
			ClanID:      r.ClanID,
			ExpiresAt:   s.clock.Now().Add(s.reservationTTL(r.TTL)),
		})
		if err != nil {
			return 0, err
		}
		return added.ID, nil
	}

	return unwrap(withTelemetry(s, ctx, "AddReservation", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[arenadomain.ReservationID, error], error) {
		return withArena(s, ctx, arenaID, reserve)
	}))
}

func (s *ArenaService) RemoveReservation(ctx context.Context, arenaID arenadomain.ArenaID, eventID arenadomain.EventID, id arenadomain.ReservationID) error {
	remove := func(ctx context.Context, db bun.IDB, a *arenadomain.Arena) (struct{}, error) {
		e, err := findEvent(a, eventID)
		if err != nil {
			return struct{}{}, err
		}
		return struct{}{}, e.RemoveReservation(ctx, s.repo.EventStore(db), id)
	}

	_, err := unwrap(withTelemetry(s, ctx, "RemoveReservation", arenaIdent(arenaID), func(ctx context.Context) (results.OperationResult[struct{}, error], error) {
		return withArena(s, ctx, arenaID, remove)
	}))
	return err
}
