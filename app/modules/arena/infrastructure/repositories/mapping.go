package arenadb

import (
	"fmt"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
)

func progID(p arenadomain.Prog) *int64 {
	if p == nil {
		return nil
	}
	id := int64(p.ID())
	return &id
}

func (o LoadOptions) prog(id *int64) arenadomain.Prog {
	if id == nil {
		return nil
	}
	if o.Programs == nil {
		return unresolvedProg{id: arenadomain.ProgramID(*id)}
	}
	return o.Programs(arenadomain.ProgramID(*id))
}

func arenaRow(a *arenadomain.Arena) *Arena {
	s := a.Snapshot()
	return &Arena{
		ID:             int64(s.ID),
		Name:           s.Name,
		EconomicZoneID: s.EconomicZoneID,
		Currency:       s.Currency,
		BankAccountID:  s.BankAccountID,
		VirtualBalance: s.VirtualBalance,
	}
}

func classRow(arenaID arenadomain.ArenaID, c *arenadomain.CombatantClass) *CombatantClass {
	return &CombatantClass{
		ID:                   int64(c.ID),
		ArenaID:              int64(arenaID),
		Name:                 c.Name,
		Description:          c.Description,
		EligibilityProgID:    progID(c.Eligibility),
		AdminNpcLoaderProgID: progID(c.AdminNpcLoader),
		ResurrectOnDeath:     c.ResurrectOnDeath,
		StageNameTemplate:    c.StageNameTemplate,
		SignatureColour:      c.SignatureColour,
	}
}

func (o LoadOptions) classFromRow(row CombatantClass) *arenadomain.CombatantClass {
	return &arenadomain.CombatantClass{
		ID:                arenadomain.ClassID(row.ID),
		Name:              row.Name,
		Description:       row.Description,
		Eligibility:       o.prog(row.EligibilityProgID),
		AdminNpcLoader:    o.prog(row.AdminNpcLoaderProgID),
		ResurrectOnDeath:  row.ResurrectOnDeath,
		StageNameTemplate: row.StageNameTemplate,
		SignatureColour:   row.SignatureColour,
	}
}

func eventTypeRow(arenaID arenadomain.ArenaID, t *arenadomain.EventType) *EventType {
	interval, reference := t.AutoSchedule()
	row := &EventType{
		ID:                   int64(t.ID),
		ArenaID:              int64(arenaID),
		Name:                 t.Name,
		BringYourOwn:         t.BringYourOwn,
		RegistrationDuration: t.RegistrationDuration,
		PreparationDuration:  t.PreparationDuration,
		TimeLimit:            t.TimeLimit,
		AutoInterval:         interval,
		AutoReference:        reference,
		BettingModel:         t.BettingModel.String(),
		AppearanceFee:        t.AppearanceFee,
		VictoryFee:           t.VictoryFee,
		IntroProgID:          progID(t.IntroProg),
		ScoringProgID:        progID(t.ScoringProg),
		ResolutionProgID:     progID(t.ResolutionProg),
		EliminationProgID:    progID(t.EliminationProg),
	}
	if t.CreatedBy != nil {
		id := int64(*t.CreatedBy)
		row.CreatedBy = &id
	}
	return row
}

func (o LoadOptions) eventTypeFromRow(row EventType) *arenadomain.EventType {
	betting, err := arenadomain.ParseBettingModel(row.BettingModel)
	if err != nil {
		betting = arenadomain.BettingFixed
	}
	t := &arenadomain.EventType{
		ID:                   arenadomain.EventTypeID(row.ID),
		Name:                 row.Name,
		BringYourOwn:         row.BringYourOwn,
		RegistrationDuration: row.RegistrationDuration,
		PreparationDuration:  row.PreparationDuration,
		TimeLimit:            row.TimeLimit,
		BettingModel:         betting,
		AppearanceFee:        row.AppearanceFee,
		VictoryFee:           row.VictoryFee,
		IntroProg:            o.prog(row.IntroProgID),
		ScoringProg:          o.prog(row.ScoringProgID),
		ResolutionProg:       o.prog(row.ResolutionProgID),
		EliminationProg:      o.prog(row.EliminationProgID),
	}
	if row.CreatedBy != nil {
		id := arenadomain.CharacterID(*row.CreatedBy)
		t.CreatedBy = &id
	}
	if row.AutoReference != nil {
		ref := row.AutoReference.UTC()
		row.AutoReference = &ref
	}
	t.RestoreAutoSchedule(row.AutoInterval, row.AutoReference)
	return t
}

func sideRow(typeID arenadomain.EventTypeID, s *arenadomain.EventTypeSide) *EventTypeSide {
	return &EventTypeSide{
		ID:              int64(s.ID),
		EventTypeID:     int64(typeID),
		SideIndex:       s.Index,
		Capacity:        s.Capacity,
		Policy:          s.Policy.String(),
		MinimumRating:   s.MinimumRating,
		MaximumRating:   s.MaximumRating,
		AllowNpcSignup:  s.AllowNpcSignup,
		AutoFillNpc:     s.AutoFillNpc,
		OutfitProgID:    progID(s.OutfitProg),
		NpcLoaderProgID: progID(s.NpcLoaderProg),
	}
}

func (o LoadOptions) sideFromRow(row EventTypeSide) *arenadomain.EventTypeSide {
	policy, err := arenadomain.ParseSignupPolicy(row.Policy)
	if err != nil {
		policy = arenadomain.PolicyClosed
	}
	return &arenadomain.EventTypeSide{
		ID:             arenadomain.SideID(row.ID),
		Index:          row.SideIndex,
		Capacity:       row.Capacity,
		Policy:         policy,
		MinimumRating:  row.MinimumRating,
		MaximumRating:  row.MaximumRating,
		AllowNpcSignup: row.AllowNpcSignup,
		AutoFillNpc:    row.AutoFillNpc,
		OutfitProg:     o.prog(row.OutfitProgID),
		NpcLoaderProg:  o.prog(row.NpcLoaderProgID),
	}
}

func eventRow(arenaID arenadomain.ArenaID, e *arenadomain.Event) *Event {
	s := e.Snapshot()
	row := &Event{
		ID:                   int64(s.ID),
		ArenaID:              int64(arenaID),
		EventTypeID:          int64(e.EventType().ID),
		State:                s.State.String(),
		CreatedAt:            s.CreatedAt,
		ScheduledAt:          s.ScheduledAt,
		RegistrationOpensAt:  s.RegistrationOpensAt,
		StartedAt:            s.StartedAt,
		ResolvedAt:           s.ResolvedAt,
		CompletedAt:          s.CompletedAt,
		BringYourOwn:         s.BringYourOwn,
		RegistrationDuration: s.RegistrationDuration,
		PreparationDuration:  s.PreparationDuration,
		TimeLimit:            s.TimeLimit,
		BettingModel:         s.BettingModel.String(),
		AppearanceFee:        s.AppearanceFee,
		VictoryFee:           s.VictoryFee,
		AbortReason:          s.AbortReason,
		WinningSides:         s.WinningSides,
	}
	if s.Outcome != nil {
		outcome := s.Outcome.String()
		row.Outcome = &outcome
	}
	return row
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func eventSnapshot(row Event, a *arenadomain.Arena, signups []Signup, reservations []Reservation) (arenadomain.EventSnapshot, error) {
	state, err := arenadomain.ParseEventState(row.State)
	if err != nil {
		return arenadomain.EventSnapshot{}, fmt.Errorf("event %d: %w", row.ID, err)
	}
	betting, err := arenadomain.ParseBettingModel(row.BettingModel)
	if err != nil {
		betting = arenadomain.BettingFixed
	}
	s := arenadomain.EventSnapshot{
		ID:                   arenadomain.EventID(row.ID),
		State:                state,
		CreatedAt:            row.CreatedAt.UTC(),
		ScheduledAt:          row.ScheduledAt.UTC(),
		RegistrationOpensAt:  utcPtr(row.RegistrationOpensAt),
		StartedAt:            utcPtr(row.StartedAt),
		ResolvedAt:           utcPtr(row.ResolvedAt),
		CompletedAt:          utcPtr(row.CompletedAt),
		BringYourOwn:         row.BringYourOwn,
		RegistrationDuration: row.RegistrationDuration,
		PreparationDuration:  row.PreparationDuration,
		TimeLimit:            row.TimeLimit,
		BettingModel:         betting,
		AppearanceFee:        row.AppearanceFee,
		VictoryFee:           row.VictoryFee,
		AbortReason:          row.AbortReason,
		WinningSides:         row.WinningSides,
	}
	if row.Outcome != nil {
		outcome, err := arenadomain.ParseOutcome(*row.Outcome)
		if err != nil {
			return arenadomain.EventSnapshot{}, fmt.Errorf("event %d: %w", row.ID, err)
		}
		s.Outcome = &outcome
	}
	for _, su := range signups {
		p := &arenadomain.Participant{
			ID:              arenadomain.SignupID(su.ID),
			CharacterID:     arenadomain.CharacterID(su.CharacterID),
			SideIndex:       su.SideIndex,
			IsNPC:           su.IsNPC,
			StageName:       su.StageName,
			SignatureColour: su.SignatureColour,
			StartingRating:  su.StartingRating,
		}
		if su.ClassID != nil {
			p.Class = a.CombatantClass(arenadomain.ClassID(*su.ClassID))
		}
		if su.ReservationID != nil {
			rid := arenadomain.ReservationID(*su.ReservationID)
			p.ReservationID = &rid
		}
		s.Participants = append(s.Participants, p)
	}
	for _, rr := range reservations {
		s.Reservations = append(s.Reservations, reservationFromRow(rr))
	}
	return s, nil
}

func reservationFromRow(row Reservation) *arenadomain.Reservation {
	r := &arenadomain.Reservation{
		ID:        arenadomain.ReservationID(row.ID),
		SideIndex: row.SideIndex,
		ExpiresAt: row.ExpiresAt.UTC(),
	}
	if row.CharacterID != nil {
		id := arenadomain.CharacterID(*row.CharacterID)
		r.CharacterID = &id
	}
	if row.ClanID != nil {
		id := arenadomain.ClanID(*row.ClanID)
		r.ClanID = &id
	}
	return r
}

func reservationRow(eventID arenadomain.EventID, r *arenadomain.Reservation) *Reservation {
	row := &Reservation{
		EventID:   int64(eventID),
		SideIndex: r.SideIndex,
		ExpiresAt: r.ExpiresAt,
	}
	if r.CharacterID != nil {
		id := int64(*r.CharacterID)
		row.CharacterID = &id
	}
	if r.ClanID != nil {
		id := int64(*r.ClanID)
		row.ClanID = &id
	}
	return row
}

func signupRow(eventID arenadomain.EventID, p *arenadomain.Participant) *Signup {
	row := &Signup{
		EventID:         int64(eventID),
		CharacterID:     int64(p.CharacterID),
		SideIndex:       p.SideIndex,
		IsNPC:           p.IsNPC,
		StageName:       p.StageName,
		SignatureColour: p.SignatureColour,
		StartingRating:  p.StartingRating,
	}
	if p.Class != nil {
		id := int64(p.Class.ID)
		row.ClassID = &id
	}
	if p.ReservationID != nil {
		id := int64(*p.ReservationID)
		row.ReservationID = &id
	}
	return row
}
