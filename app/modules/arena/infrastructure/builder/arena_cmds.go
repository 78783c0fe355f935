package arenabuilder

import (
	"context"
	"fmt"
	"sort"
	"strings"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenaeconomy "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/economy"
)

var arenaVerbs = map[string]handler{
	"show":    arenaShow,
	"manager": arenaManager,
	"room":    arenaRoom,
	"funds":   arenaFunds,
	"bank":    arenaBank,
}

func arenaShow(_ context.Context, _ *Builder, r *request) (string, error) {
	info := r.arena
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s (#%d)\n", info.Name, info.ID)
	fmt.Fprintf(&sb, "Funds: %s", arenaeconomy.FormatAmount(info.Funds, info.Currency))
	if info.BankAccount != nil {
		fmt.Fprintf(&sb, " (bank account #%d)", *info.BankAccount)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Managers: %s\n", joinIDs(info.Managers))

	roles := make([]string, 0, len(info.Rooms))
	for role := range info.Rooms {
		roles = append(roles, role)
	}
	sort.Strings(roles)
	for _, role := range roles {
		if rooms := info.Rooms[role]; len(rooms) > 0 {
			fmt.Fprintf(&sb, "Rooms (%s): %s\n", role, joinIDs(rooms))
		}
	}
	for _, c := range info.Classes {
		fmt.Fprintf(&sb, "Class: %s\n", c.Name)
	}
	for _, t := range info.EventTypes {
		auto := ""
		if t.AutoSchedule {
			auto = ", recurring"
		}
		fmt.Fprintf(&sb, "Event type: %s (%d sides%s)\n", t.Name, t.Sides, auto)
	}
	if !info.ReadyToHost && info.ReadyMessage != "" {
		fmt.Fprintf(&sb, "Not ready to host: %s\n", info.ReadyMessage)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func arenaManager(ctx context.Context, b *Builder, r *request) (string, error) {
	const usage = "arena manager add|remove <character>"
	if err := r.args.need(2, usage); err != nil {
		return "", err
	}
	id, err := parseID(r.args.At(1), "character")
	if err != nil {
		return "", err
	}
	who := arenadomain.CharacterID(id)

	switch strings.ToLower(r.args.At(0)) {
	case "add":
		return b.mutate(ctx, r, func(_ context.Context, m *arenaservice.Session) (string, error) {
			if !m.Arena.AddManager(who) {
				return fmt.Sprintf("Character %d already manages %s.", who, m.Arena.Name), nil
			}
			return fmt.Sprintf("Character %d now manages %s.", who, m.Arena.Name), nil
		})
	case "remove":
		if who == r.actor && len(r.arena.Managers) == 1 {
			return "", usagef("You are the last manager of %s.", r.arena.Name)
		}
		return b.mutate(ctx, r, func(_ context.Context, m *arenaservice.Session) (string, error) {
			if !m.Arena.RemoveManager(who) {
				return fmt.Sprintf("Character %d does not manage %s.", who, m.Arena.Name), nil
			}
			return fmt.Sprintf("Character %d no longer manages %s.", who, m.Arena.Name), nil
		})
	}
	return "", usagef("Usage: %s", usage)
}

func arenaRoom(ctx context.Context, b *Builder, r *request) (string, error) {
	const usage = "arena room add|remove <role> <room>"
	if err := r.args.need(3, usage); err != nil {
		return "", err
	}
	role, err := arenadomain.ParseRoomRole(r.args.At(1))
	if err != nil {
		return "", usagef("%s.", capitalize(err.Error()))
	}
	id, err := parseID(r.args.At(2), "room")
	if err != nil {
		return "", err
	}
	room := arenadomain.RoomID(id)

	switch strings.ToLower(r.args.At(0)) {
	case "add":
		return b.mutate(ctx, r, func(_ context.Context, m *arenaservice.Session) (string, error) {
			if !m.Arena.AddRoom(role, room) {
				return fmt.Sprintf("Room %d is already a %s room.", room, role), nil
			}
			return fmt.Sprintf("Room %d added as a %s room.", room, role), nil
		})
	case "remove":
		return b.mutate(ctx, r, func(_ context.Context, m *arenaservice.Session) (string, error) {
			if !m.Arena.RemoveRoom(role, room) {
				return fmt.Sprintf("Room %d is not a %s room.", room, role), nil
			}
			return fmt.Sprintf("Room %d is no longer a %s room.", room, role), nil
		})
	}
	return "", usagef("Usage: %s", usage)
}

func arenaFunds(ctx context.Context, b *Builder, r *request) (string, error) {
	const usage = "arena funds credit|debit <amount>"
	if err := r.args.need(2, usage); err != nil {
		return "", err
	}
	amount, err := parseAmount(r.args.At(1))
	if err != nil {
		return "", err
	}
	if !amount.IsPositive() {
		return "", usagef("The amount must be positive.")
	}

	credit := strings.EqualFold(r.args.At(0), "credit")
	if !credit && !strings.EqualFold(r.args.At(0), "debit") {
		return "", usagef("Usage: %s", usage)
	}
	return b.mutate(ctx, r, func(ctx context.Context, m *arenaservice.Session) (string, error) {
		var err error
		verb := "Credited"
		if credit {
			err = m.Arena.Credit(ctx, amount)
		} else {
			verb, err = "Debited", m.Arena.Debit(ctx, amount)
		}
		if err != nil {
			return "", err
		}
		balance, err := m.Arena.AvailableFunds(ctx)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s. Funds: %s.", verb,
			arenaeconomy.FormatAmount(amount, m.Arena.Currency),
			arenaeconomy.FormatAmount(balance, m.Arena.Currency)), nil
	})
}

func arenaBank(ctx context.Context, b *Builder, r *request) (string, error) {
	const usage = "arena bank link <account>|unlink"
	switch strings.ToLower(r.args.At(0)) {
	case "link":
		if err := r.args.need(2, usage); err != nil {
			return "", err
		}
		id, err := parseID(r.args.At(1), "bank account")
		if err != nil {
			return "", err
		}
		return b.mutate(ctx, r, func(ctx context.Context, m *arenaservice.Session) (string, error) {
			if err := m.LinkBankAccount(ctx, id); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s now draws on bank account #%d.", m.Arena.Name, id), nil
		})
	case "unlink":
		return b.mutate(ctx, r, func(_ context.Context, m *arenaservice.Session) (string, error) {
			if !m.Arena.HasBankAccount() {
				return m.Arena.Name + " has no bank account.", nil
			}
			m.Arena.UnlinkBankAccount()
			return m.Arena.Name + " now uses its own funds.", nil
		})
	}
	return "", usagef("Usage: %s", usage)
}

func joinIDs[T ~int64](ids []T) string {
	if len(ids) == 0 {
		return "none"
	}
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = fmt.Sprintf("#%d", id)
	}
	return strings.Join(out, ", ")
}
