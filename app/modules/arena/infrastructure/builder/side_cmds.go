package arenabuilder

import (
	"context"
	"fmt"
	"strconv"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
)

var sideVerbs = map[string]handler{
	"add":       sideAdd,
	"remove":    sideRemove,
	"capacity":  sideCapacity,
	"policy":    sidePolicy,
	"rating":    sideRating,
	"npc":       sideSwitch("npc", (*arenadomain.EventTypeSide).SetAllowNpcSignup, "accepts NPC signups", "refuses NPC signups"),
	"autofill":  sideSwitch("autofill", (*arenadomain.EventTypeSide).SetAutoFillNpc, "is filled with NPCs", "is no longer filled with NPCs"),
	"class":     sideClass,
	"outfit":    sideProg("outfit", (*arenadomain.EventTypeSide).SetOutfitProg),
	"npcloader": sideProg("npcloader", (*arenadomain.EventTypeSide).SetNpcLoaderProg),
}

type sideFunc func(ctx context.Context, m *arenaservice.Session, t *arenadomain.EventType, s *arenadomain.EventTypeSide) (string, error)

// withSide resolves "<type> <side number>" from the first two arguments.
func (b *Builder) withSide(ctx context.Context, r *request, usage string, fn sideFunc) (string, error) {
	if err := r.args.need(2, usage); err != nil {
		return "", err
	}
	index, err := parseIndex(r.args.At(1))
	if err != nil {
		return "", err
	}
	return b.withType(ctx, r, func(ctx context.Context, m *arenaservice.Session, t *arenadomain.EventType) (string, error) {
		s := t.Side(index)
		if s == nil {
			return "", fmt.Errorf("side %d of %s: %w", index+1, t.Name, arenadomain.ErrSideNotFound)
		}
		return fn(ctx, m, t, s)
	})
}

func sideLabel(t *arenadomain.EventType, s *arenadomain.EventTypeSide) string {
	return fmt.Sprintf("Side %d of %s", s.DisplayIndex(), t.Name)
}

func sideAdd(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(1, "side add <type>"); err != nil {
		return "", err
	}
	return b.withType(ctx, r, func(_ context.Context, _ *arenaservice.Session, t *arenadomain.EventType) (string, error) {
		s := t.AddSide()
		return fmt.Sprintf("Added side %d to %s.", s.DisplayIndex(), t.Name), nil
	})
}

func sideRemove(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "side remove <type> <side>"); err != nil {
		return "", err
	}
	index, err := parseIndex(r.args.At(1))
	if err != nil {
		return "", err
	}
	return b.withType(ctx, r, func(_ context.Context, _ *arenaservice.Session, t *arenadomain.EventType) (string, error) {
		if _, err := t.RemoveSide(index); err != nil {
			return "", err
		}
		return fmt.Sprintf("Removed side %d from %s; %d remain.", index+1, t.Name, len(t.Sides())), nil
	})
}

func sideCapacity(ctx context.Context, b *Builder, r *request) (string, error) {
	const usage = "side capacity <type> <side> <n>"
	if err := r.args.need(3, usage); err != nil {
		return "", err
	}
	n, err := strconv.Atoi(r.args.At(2))
	if err != nil {
		return "", usagef("%q is not a number.", r.args.At(2))
	}
	return b.withSide(ctx, r, usage, func(_ context.Context, _ *arenaservice.Session, t *arenadomain.EventType, s *arenadomain.EventTypeSide) (string, error) {
		if err := s.SetCapacity(n); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s holds %d.", sideLabel(t, s), n), nil
	})
}

func sidePolicy(ctx context.Context, b *Builder, r *request) (string, error) {
	const usage = "side policy <type> <side> open|closed|managers|reserved"
	if err := r.args.need(3, usage); err != nil {
		return "", err
	}
	policy, err := arenadomain.ParseSignupPolicy(r.args.At(2))
	if err != nil {
		return "", usagef("%s.", capitalize(err.Error()))
	}
	return b.withSide(ctx, r, usage, func(_ context.Context, _ *arenaservice.Session, t *arenadomain.EventType, s *arenadomain.EventTypeSide) (string, error) {
		s.SetPolicy(policy)
		return fmt.Sprintf("%s signup policy is %s.", sideLabel(t, s), policy), nil
	})
}

func sideRating(ctx context.Context, b *Builder, r *request) (string, error) {
	const usage = "side rating <type> <side> <min|none> [max|none]"
	if err := r.args.need(3, usage); err != nil {
		return "", err
	}
	lo, err := parseOptionalFloat(r.args.At(2))
	if err != nil {
		return "", err
	}
	var hi *float64
	if r.args.Len() > 3 {
		if hi, err = parseOptionalFloat(r.args.At(3)); err != nil {
			return "", err
		}
	}
	return b.withSide(ctx, r, usage, func(_ context.Context, _ *arenaservice.Session, t *arenadomain.EventType, s *arenadomain.EventTypeSide) (string, error) {
		if err := s.SetRatingBand(lo, hi); err != nil {
			return "", err
		}
		if !s.HasRatingBand() {
			return fmt.Sprintf("%s has no rating band.", sideLabel(t, s)), nil
		}
		return fmt.Sprintf("%s accepts ratings %s to %s.", sideLabel(t, s), bound(lo), bound(hi)), nil
	})
}

func bound(f *float64) string {
	if f == nil {
		return "any"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func sideSwitch(what string, set func(*arenadomain.EventTypeSide, bool), on, off string) handler {
	usage := fmt.Sprintf("side %s <type> <side> on|off", what)
	return func(ctx context.Context, b *Builder, r *request) (string, error) {
		if err := r.args.need(3, usage); err != nil {
			return "", err
		}
		v, err := parseSwitch(r.args.At(2))
		if err != nil {
			return "", err
		}
		return b.withSide(ctx, r, usage, func(_ context.Context, _ *arenaservice.Session, t *arenadomain.EventType, s *arenadomain.EventTypeSide) (string, error) {
			set(s, v)
			if v {
				return fmt.Sprintf("%s %s.", sideLabel(t, s), on), nil
			}
			return fmt.Sprintf("%s %s.", sideLabel(t, s), off), nil
		})
	}
}

func sideClass(ctx context.Context, b *Builder, r *request) (string, error) {
	const usage = "side class <type> <side> <class>"
	if err := r.args.need(3, usage); err != nil {
		return "", err
	}
	className := r.args.Words(2)
	return b.withSide(ctx, r, usage, func(_ context.Context, m *arenaservice.Session, t *arenadomain.EventType, s *arenadomain.EventTypeSide) (string, error) {
		c := m.Arena.CombatantClassByName(className)
		if c == nil {
			return "", fmt.Errorf("%q: %w", className, arenaservice.ErrClassNotFound)
		}
		eligible, err := s.ToggleClass(c)
		if err != nil {
			return "", err
		}
		if eligible {
			return fmt.Sprintf("%s now admits %s.", sideLabel(t, s), c.Name), nil
		}
		return fmt.Sprintf("%s no longer admits %s.", sideLabel(t, s), c.Name), nil
	})
}

func sideProg(what string, set func(*arenadomain.EventTypeSide, arenadomain.Prog)) handler {
	usage := fmt.Sprintf("side %s <type> <side> <program|none>", what)
	return func(ctx context.Context, b *Builder, r *request) (string, error) {
		if err := r.args.need(3, usage); err != nil {
			return "", err
		}
		progName := r.args.At(2)
		return b.withSide(ctx, r, usage, func(ctx context.Context, m *arenaservice.Session, t *arenadomain.EventType, s *arenadomain.EventTypeSide) (string, error) {
			p, err := program(ctx, m, progName)
			if err != nil {
				return "", err
			}
			set(s, p)
			if p == nil {
				return fmt.Sprintf("%s %s program cleared.", sideLabel(t, s), what), nil
			}
			return fmt.Sprintf("%s %s program set to %s.", sideLabel(t, s), what, progName), nil
		})
	}
}
