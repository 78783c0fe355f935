package arenadb

import (
	"context"
	"fmt"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/uptrace/bun"
)

type eventStore struct {
	db bun.IDB
}

// EventStore returns an arenadomain.EventStore writing through db.
func (r *Impl) EventStore(db bun.IDB) arenadomain.EventStore {
	return &eventStore{db: r.resolveDB(db)}
}

func (s *eventStore) InsertSignup(ctx context.Context, event arenadomain.EventID, p *arenadomain.Participant) (arenadomain.SignupID, error) {
	row := signupRow(event, p)
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to insert signup: %w", err)
	}
	return arenadomain.SignupID(row.ID), nil
}

func (s *eventStore) DeleteSignup(ctx context.Context, id arenadomain.SignupID) error {
	res, err := s.db.NewDelete().Model((*Signup)(nil)).Where("id = ?", int64(id)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete signup: %w", err)
	}
	return checkAffected(res, "signup")
}

func (s *eventStore) InsertReservation(ctx context.Context, event arenadomain.EventID, r *arenadomain.Reservation) (arenadomain.ReservationID, error) {
	row := reservationRow(event, r)
	if _, err := s.db.NewInsert().Model(row).Returning("id").Exec(ctx); err != nil {
		return 0, fmt.Errorf("failed to insert reservation: %w", err)
	}
	return arenadomain.ReservationID(row.ID), nil
}

// DeleteReservation is idempotent: a reservation already gone is not an error.
func (s *eventStore) DeleteReservation(ctx context.Context, id arenadomain.ReservationID) error {
	if _, err := s.db.NewDelete().Model((*Reservation)(nil)).Where("id = ?", int64(id)).Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete reservation: %w", err)
	}
	return nil
}
