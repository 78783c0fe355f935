package arenabuilder

import (
	"context"
	"fmt"
	"time"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenaeconomy "github.com/Black-And-White-Club/arena-engine/app/modules/arena/infrastructure/economy"
	arenautil "github.com/Black-And-White-Club/arena-engine/app/modules/arena/utils"
	"github.com/shopspring/decimal"
)

var typeVerbs = map[string]handler{
	"create":       typeCreate,
	"rename":       typeRename,
	"byo":          typeBringYourOwn,
	"registration": typeDuration("registration", (*arenadomain.EventType).SetRegistrationDuration),
	"preparation":  typeDuration("preparation", (*arenadomain.EventType).SetPreparationDuration),
	"timelimit":    typeTimeLimit,
	"betting":      typeBetting,
	"appearance":   typeFee("appearance", (*arenadomain.EventType).SetAppearanceFee),
	"victory":      typeFee("victory", (*arenadomain.EventType).SetVictoryFee),
	"intro":        typeProg("intro", (*arenadomain.EventType).SetIntroProg),
	"scoring":      typeProg("scoring", (*arenadomain.EventType).SetScoringProg),
	"resolution":   typeProg("resolution", (*arenadomain.EventType).SetResolutionProg),
	"elimination":  typeProg("elimination", (*arenadomain.EventType).SetEliminationProg),
	"autoschedule": typeAutoSchedule,
	"clone":        typeClone,
	"delete":       typeDelete,
}

// withType loads the arena and the event type named by the first argument.
func (b *Builder) withType(ctx context.Context, r *request, fn func(ctx context.Context, m *arenaservice.Session, t *arenadomain.EventType) (string, error)) (string, error) {
	name := r.args.At(0)
	return b.mutate(ctx, r, func(ctx context.Context, m *arenaservice.Session) (string, error) {
		t := m.Arena.EventTypeByName(name)
		if t == nil {
			return "", fmt.Errorf("%q: %w", name, arenaservice.ErrEventTypeNotFound)
		}
		return fn(ctx, m, t)
	})
}

func typeCreate(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(1, "type create <name>"); err != nil {
		return "", err
	}
	name := r.args.Words(0)
	return b.mutate(ctx, r, func(_ context.Context, m *arenaservice.Session) (string, error) {
		t, err := m.Arena.CreateEventType(name)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Created event type %s with one side.", t.Name), nil
	})
}

func typeRename(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "type rename <name> <new name>"); err != nil {
		return "", err
	}
	newName := r.args.Words(1)
	return b.withType(ctx, r, func(_ context.Context, _ *arenaservice.Session, t *arenadomain.EventType) (string, error) {
		old := t.Name
		if err := t.Rename(newName); err != nil {
			return "", err
		}
		return fmt.Sprintf("Renamed %s to %s.", old, t.Name), nil
	})
}

func typeBringYourOwn(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "type byo <name> on|off"); err != nil {
		return "", err
	}
	on, err := parseSwitch(r.args.At(1))
	if err != nil {
		return "", err
	}
	return b.withType(ctx, r, func(_ context.Context, _ *arenaservice.Session, t *arenadomain.EventType) (string, error) {
		t.SetBringYourOwn(on)
		if on {
			return fmt.Sprintf("%s events skip registration; combatants are brought in.", t.Name), nil
		}
		return fmt.Sprintf("%s events open registration.", t.Name), nil
	})
}

func typeDuration(what string, set func(*arenadomain.EventType, time.Duration) error) handler {
	usage := fmt.Sprintf("type %s <name> <duration>", what)
	return func(ctx context.Context, b *Builder, r *request) (string, error) {
		if err := r.args.need(2, usage); err != nil {
			return "", err
		}
		d, err := parseDuration(r.args.At(1))
		if err != nil {
			return "", err
		}
		return b.withType(ctx, r, func(_ context.Context, _ *arenaservice.Session, t *arenadomain.EventType) (string, error) {
			if err := set(t, d); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s %s period set to %s.", t.Name, what, d), nil
		})
	}
}

func typeTimeLimit(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "type timelimit <name> <duration|none>"); err != nil {
		return "", err
	}
	d, err := parseDuration(r.args.At(1))
	if err != nil {
		return "", err
	}
	return b.withType(ctx, r, func(_ context.Context, _ *arenaservice.Session, t *arenadomain.EventType) (string, error) {
		if err := t.SetTimeLimit(&d); err != nil {
			return "", err
		}
		if t.TimeLimit == nil {
			return fmt.Sprintf("%s events have no time limit.", t.Name), nil
		}
		return fmt.Sprintf("%s events are resolved after %s.", t.Name, *t.TimeLimit), nil
	})
}

func typeBetting(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "type betting <name> fixed|parimutuel"); err != nil {
		return "", err
	}
	model, err := arenadomain.ParseBettingModel(r.args.At(1))
	if err != nil {
		return "", usagef("%s.", capitalize(err.Error()))
	}
	return b.withType(ctx, r, func(_ context.Context, _ *arenaservice.Session, t *arenadomain.EventType) (string, error) {
		t.SetBettingModel(model)
		return fmt.Sprintf("%s uses %s betting.", t.Name, model), nil
	})
}

func typeFee(what string, set func(*arenadomain.EventType, decimal.Decimal) error) handler {
	usage := fmt.Sprintf("type %s <name> <amount>", what)
	return func(ctx context.Context, b *Builder, r *request) (string, error) {
		if err := r.args.need(2, usage); err != nil {
			return "", err
		}
		fee, err := parseAmount(r.args.At(1))
		if err != nil {
			return "", err
		}
		return b.withType(ctx, r, func(_ context.Context, m *arenaservice.Session, t *arenadomain.EventType) (string, error) {
			if err := set(t, fee); err != nil {
				return "", err
			}
			return fmt.Sprintf("%s %s fee set to %s.", t.Name, what,
				arenaeconomy.FormatAmount(fee, m.Arena.Currency)), nil
		})
	}
}

func typeProg(what string, set func(*arenadomain.EventType, arenadomain.Prog)) handler {
	usage := fmt.Sprintf("type %s <name> <program|none>", what)
	return func(ctx context.Context, b *Builder, r *request) (string, error) {
		if err := r.args.need(2, usage); err != nil {
			return "", err
		}
		progName := r.args.At(1)
		return b.withType(ctx, r, func(ctx context.Context, m *arenaservice.Session, t *arenadomain.EventType) (string, error) {
			p, err := program(ctx, m, progName)
			if err != nil {
				return "", err
			}
			set(t, p)
			if p == nil {
				return fmt.Sprintf("%s %s program cleared.", t.Name, what), nil
			}
			return fmt.Sprintf("%s %s program set to %s.", t.Name, what, progName), nil
		})
	}
}

func typeAutoSchedule(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "type autoschedule <name> off|<interval> [first occurrence]"); err != nil {
		return "", err
	}
	t, err := findType(r.arena, r.args.At(0))
	if err != nil {
		return "", err
	}
	interval, err := parseDuration(r.args.At(1))
	if err != nil {
		return "", err
	}

	var ivp *time.Duration
	var ref *time.Time
	if interval > 0 {
		at := b.clock.Now()
		if rest := r.args.Rest(2); rest != "" {
			at, err = arenautil.NewTimeParser(b.clock).ParseTime(rest)
			if err != nil {
				return "", usagef("Could not understand %q as a time.", rest)
			}
		}
		ivp, ref = &interval, &at
	}

	info, err := b.service.ConfigureAutoSchedule(ctx, r.arena.ID, t.ID, ivp, ref)
	if err != nil {
		return "", err
	}
	if !info.AutoSchedule {
		return fmt.Sprintf("%s is no longer scheduled automatically.", info.Name), nil
	}
	return fmt.Sprintf("%s recurs every %s from %s.", info.Name, interval, ref.Format(time.RFC1123)), nil
}

func typeClone(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "type clone <name> <new name>"); err != nil {
		return "", err
	}
	t, err := findType(r.arena, r.args.At(0))
	if err != nil {
		return "", err
	}
	info, err := b.service.CloneEventType(ctx, r.arena.ID, t.ID, r.args.Words(1), r.actor)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Cloned %s as %s.", t.Name, info.Name), nil
}

func typeDelete(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(1, "type delete <name>"); err != nil {
		return "", err
	}
	return b.withType(ctx, r, func(_ context.Context, m *arenaservice.Session, t *arenadomain.EventType) (string, error) {
		name := t.Name
		if err := m.Arena.RemoveEventType(t); err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted event type %s.", name), nil
	})
}
