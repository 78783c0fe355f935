package arenabuilder

import (
	"context"
	"fmt"
	"strings"
	"time"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenautil "github.com/Black-And-White-Club/arena-engine/app/modules/arena/utils"
)

var eventVerbs = map[string]handler{
	"schedule":  eventSchedule,
	"abort":     eventAbort,
	"advance":   eventAdvance,
	"outcome":   eventOutcome,
	"reserve":   eventReserve,
	"unreserve": eventUnreserve,
	"show":      eventShow,
	"archive":   eventArchive,
}

func eventID(s string) (arenadomain.EventID, error) {
	id, err := parseID(s, "event")
	return arenadomain.EventID(id), err
}

func eventSchedule(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "event schedule <type> <time>"); err != nil {
		return "", err
	}
	t, err := findType(r.arena, r.args.At(0))
	if err != nil {
		return "", err
	}
	when := r.args.Rest(1)
	at, err := arenautil.NewTimeParser(b.clock).ParseTime(when)
	if err != nil {
		return "", usagef("Could not understand %q as a time.", when)
	}
	if !at.After(b.clock.Now()) {
		return "", usagef("Events must be scheduled in the future.")
	}

	info, err := b.service.CreateEvent(ctx, r.arena.ID, t.ID, at, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Scheduled %s event #%d for %s.", info.EventType, info.ID, info.ScheduledAt.Format(time.RFC1123)), nil
}

func eventAbort(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(1, "event abort <event> [reason]"); err != nil {
		return "", err
	}
	id, err := eventID(r.args.At(0))
	if err != nil {
		return "", err
	}
	reason := r.args.Rest(1)
	if reason == "" {
		reason = "aborted by a manager"
	}
	res, err := b.service.ApplyTransition(ctx, r.arena.ID, id, arenadomain.TransitionAbort, reason)
	if err != nil {
		return "", err
	}
	if !res.Applied {
		if res.Event.Outcome != "" && res.Event.State != arenadomain.StateAborted.String() {
			return "", usagef("Event #%d already has an outcome and cannot be aborted.", id)
		}
		return "", usagef("Event #%d is already %s.", id, res.From)
	}
	return fmt.Sprintf("Event #%d aborted.", id), nil
}

func eventAdvance(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "event advance <event> <transition>"); err != nil {
		return "", err
	}
	id, err := eventID(r.args.At(0))
	if err != nil {
		return "", err
	}
	t, ok := arenadomain.ParseTransition(strings.ToLower(r.args.At(1)))
	if !ok {
		return "", usagef("%q is not a transition.", r.args.At(1))
	}
	res, err := b.service.ApplyTransition(ctx, r.arena.ID, id, t, r.args.Rest(2))
	if err != nil {
		return "", err
	}
	if !res.Applied {
		return "", usagef("Event #%d cannot %s while %s.", id, t, res.From)
	}
	return fmt.Sprintf("Event #%d moved from %s to %s.", id, res.From, res.Event.State), nil
}

func eventOutcome(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "event outcome <event> victory|draw [winning sides]"); err != nil {
		return "", err
	}
	id, err := eventID(r.args.At(0))
	if err != nil {
		return "", err
	}
	outcome, err := arenadomain.ParseOutcome(r.args.At(1))
	if err != nil {
		return "", usagef("%s.", capitalize(err.Error()))
	}
	var winners []int
	for i := 2; i < r.args.Len(); i++ {
		idx, err := parseIndex(r.args.At(i))
		if err != nil {
			return "", err
		}
		winners = append(winners, idx)
	}

	info, err := b.service.RecordOutcome(ctx, r.arena.ID, id, outcome, winners)
	if err != nil {
		return "", err
	}
	if len(info.WinningSides) == 0 {
		return fmt.Sprintf("Event #%d recorded as %s.", id, info.Outcome), nil
	}
	return fmt.Sprintf("Event #%d recorded as %s for %s.", id, info.Outcome, sideList(info.WinningSides)), nil
}

func eventReserve(ctx context.Context, b *Builder, r *request) (string, error) {
	const usage = "event reserve <event> <side> character|clan <id> [ttl]"
	if err := r.args.need(4, usage); err != nil {
		return "", err
	}
	id, err := eventID(r.args.At(0))
	if err != nil {
		return "", err
	}
	side, err := parseIndex(r.args.At(1))
	if err != nil {
		return "", err
	}
	res := arenaservice.Reservation{SideIndex: side}
	switch kind := strings.ToLower(r.args.At(2)); kind {
	case "character", "char":
		target, err := parseID(r.args.At(3), "character")
		if err != nil {
			return "", err
		}
		ch := arenadomain.CharacterID(target)
		res.CharacterID = &ch
	case "clan":
		target, err := parseID(r.args.At(3), "clan")
		if err != nil {
			return "", err
		}
		clan := arenadomain.ClanID(target)
		res.ClanID = &clan
	default:
		return "", usagef("Usage: %s", usage)
	}
	if r.args.Len() > 4 {
		if res.TTL, err = parseDuration(r.args.At(4)); err != nil {
			return "", err
		}
	}

	resID, err := b.service.AddReservation(ctx, r.arena.ID, id, res)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Reservation #%d holds side %d of event #%d.", resID, side+1, id), nil
}

func eventUnreserve(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "event unreserve <event> <reservation>"); err != nil {
		return "", err
	}
	id, err := eventID(r.args.At(0))
	if err != nil {
		return "", err
	}
	resID, err := parseID(r.args.At(1), "reservation")
	if err != nil {
		return "", err
	}
	if err := b.service.RemoveReservation(ctx, r.arena.ID, id, arenadomain.ReservationID(resID)); err != nil {
		return "", err
	}
	return fmt.Sprintf("Reservation #%d removed from event #%d.", resID, id), nil
}

func eventShow(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(1, "event show <event>"); err != nil {
		return "", err
	}
	id, err := eventID(r.args.At(0))
	if err != nil {
		return "", err
	}
	info, err := b.service.GetEvent(ctx, r.arena.ID, id)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Event #%d: %s (%s)\n", info.ID, info.EventType, info.State)
	fmt.Fprintf(&sb, "Scheduled for %s\n", info.ScheduledAt.Format(time.RFC1123))
	if info.RegistrationOpensAt != nil {
		fmt.Fprintf(&sb, "Registration opens %s\n", info.RegistrationOpensAt.Format(time.RFC1123))
	}
	if info.Outcome != "" {
		fmt.Fprintf(&sb, "Outcome: %s", info.Outcome)
		if len(info.WinningSides) > 0 {
			fmt.Fprintf(&sb, " (%s)", sideList(info.WinningSides))
		}
		sb.WriteString("\n")
	}
	if info.AbortReason != "" {
		fmt.Fprintf(&sb, "Aborted: %s\n", info.AbortReason)
	}
	for _, p := range info.Participants {
		name := fmt.Sprintf("#%d", p.CharacterID)
		if p.StageName != "" {
			name = p.StageName
		}
		npc := ""
		if p.NPC {
			npc = " [npc]"
		}
		fmt.Fprintf(&sb, "Side %d: %s (%s)%s\n", p.SideIndex+1, name, p.Class, npc)
	}
	if info.Reservations > 0 {
		fmt.Fprintf(&sb, "Reservations: %d\n", info.Reservations)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func eventArchive(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(1, "event archive <event>"); err != nil {
		return "", err
	}
	id, err := eventID(r.args.At(0))
	if err != nil {
		return "", err
	}
	archived, err := b.service.ArchiveEvent(ctx, r.arena.ID, id)
	if err != nil {
		return "", err
	}
	if !archived {
		return "", usagef("Event #%d has not finished yet.", id)
	}
	return fmt.Sprintf("Event #%d archived.", id), nil
}

func sideList(sides []int) string {
	out := make([]string, len(sides))
	for i, s := range sides {
		out[i] = fmt.Sprintf("side %d", s+1)
	}
	return strings.Join(out, ", ")
}
