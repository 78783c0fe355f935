package arenabuilder

import (
	"context"
	"fmt"
	"strings"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
)

var programVerbs = map[string]handler{
	"set": programSet,
}

// programSet stores a Lua program under a name. The source is everything
// after the name, so it may span lines.
func programSet(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "program set <name> <lua source>"); err != nil {
		return "", err
	}
	name := r.args.At(0)
	id, err := b.service.UpsertProgram(ctx, r.arena.ID, name, r.args.Rest(1))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Program %s saved (#%d).", name, id), nil
}

var classVerbs = map[string]handler{
	"create":    classCreate,
	"rename":    classRename,
	"desc":      classDesc,
	"prog":      classProg,
	"npcprog":   classNpcProg,
	"resurrect": classResurrect,
	"stagename": classStageName,
	"colour":    classColour,
	"delete":    classDelete,
}

// withClass loads the arena and the class named by the first argument.
func (b *Builder) withClass(ctx context.Context, r *request, fn func(ctx context.Context, m *arenaservice.Session, c *arenadomain.CombatantClass) (string, error)) (string, error) {
	name := r.args.At(0)
	return b.mutate(ctx, r, func(ctx context.Context, m *arenaservice.Session) (string, error) {
		c := m.Arena.CombatantClassByName(name)
		if c == nil {
			return "", fmt.Errorf("%q: %w", name, arenaservice.ErrClassNotFound)
		}
		return fn(ctx, m, c)
	})
}

// program resolves a program name; "none" clears.
func program(ctx context.Context, m *arenaservice.Session, name string) (arenadomain.Prog, error) {
	if isNone(name) {
		return nil, nil
	}
	return m.Program(ctx, name)
}

func classCreate(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "class create <name> <eligibility program>"); err != nil {
		return "", err
	}
	name, progName := r.args.At(0), r.args.At(1)
	return b.mutate(ctx, r, func(ctx context.Context, m *arenaservice.Session) (string, error) {
		p, err := m.Program(ctx, progName)
		if err != nil {
			return "", err
		}
		c, err := m.Arena.CreateCombatantClass(name, p)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Created combatant class %s.", c.Name), nil
	})
}

func classRename(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "class rename <name> <new name>"); err != nil {
		return "", err
	}
	newName := r.args.Words(1)
	return b.withClass(ctx, r, func(_ context.Context, _ *arenaservice.Session, c *arenadomain.CombatantClass) (string, error) {
		old := c.Name
		if err := c.Rename(newName); err != nil {
			return "", err
		}
		return fmt.Sprintf("Renamed %s to %s.", old, c.Name), nil
	})
}

func classDesc(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "class desc <name> <description>"); err != nil {
		return "", err
	}
	desc := r.args.Rest(1)
	return b.withClass(ctx, r, func(_ context.Context, _ *arenaservice.Session, c *arenadomain.CombatantClass) (string, error) {
		c.SetDescription(desc)
		return fmt.Sprintf("Description of %s updated.", c.Name), nil
	})
}

func classProg(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "class prog <name> <program>"); err != nil {
		return "", err
	}
	progName := r.args.At(1)
	return b.withClass(ctx, r, func(ctx context.Context, m *arenaservice.Session, c *arenadomain.CombatantClass) (string, error) {
		p, err := program(ctx, m, progName)
		if err != nil {
			return "", err
		}
		if err := c.SetEligibility(p); err != nil {
			return "", err
		}
		return fmt.Sprintf("%s now uses %s for eligibility.", c.Name, progName), nil
	})
}

func classNpcProg(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "class npcprog <name> <program|none>"); err != nil {
		return "", err
	}
	progName := r.args.At(1)
	return b.withClass(ctx, r, func(ctx context.Context, m *arenaservice.Session, c *arenadomain.CombatantClass) (string, error) {
		p, err := program(ctx, m, progName)
		if err != nil {
			return "", err
		}
		c.SetAdminNpcLoader(p)
		if p == nil {
			return fmt.Sprintf("%s no longer loads NPCs.", c.Name), nil
		}
		return fmt.Sprintf("%s loads NPCs with %s.", c.Name, progName), nil
	})
}

func classResurrect(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "class resurrect <name> on|off"); err != nil {
		return "", err
	}
	on, err := parseSwitch(r.args.At(1))
	if err != nil {
		return "", err
	}
	return b.withClass(ctx, r, func(_ context.Context, _ *arenaservice.Session, c *arenadomain.CombatantClass) (string, error) {
		c.SetResurrectOnDeath(on)
		if on {
			return fmt.Sprintf("%s combatants are resurrected on death.", c.Name), nil
		}
		return fmt.Sprintf("%s combatants stay dead.", c.Name), nil
	})
}

func classStageName(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "class stagename <name> <template|none>"); err != nil {
		return "", err
	}
	tmpl := r.args.Rest(1)
	if isNone(tmpl) {
		tmpl = ""
	}
	return b.withClass(ctx, r, func(_ context.Context, _ *arenaservice.Session, c *arenadomain.CombatantClass) (string, error) {
		c.SetStageNameTemplate(tmpl)
		if tmpl == "" {
			return fmt.Sprintf("%s combatants fight under their own names.", c.Name), nil
		}
		return fmt.Sprintf("%s stage names now follow %q.", c.Name, tmpl), nil
	})
}

func classColour(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(2, "class colour <name> <colour|none>"); err != nil {
		return "", err
	}
	colour := strings.ToLower(r.args.At(1))
	if isNone(colour) {
		colour = ""
	}
	return b.withClass(ctx, r, func(_ context.Context, _ *arenaservice.Session, c *arenadomain.CombatantClass) (string, error) {
		c.SetSignatureColour(colour)
		return fmt.Sprintf("Signature colour of %s updated.", c.Name), nil
	})
}

func classDelete(ctx context.Context, b *Builder, r *request) (string, error) {
	if err := r.args.need(1, "class delete <name>"); err != nil {
		return "", err
	}
	return b.withClass(ctx, r, func(_ context.Context, m *arenaservice.Session, c *arenadomain.CombatantClass) (string, error) {
		if err := m.Arena.RemoveCombatantClass(c); err != nil {
			return "", err
		}
		return fmt.Sprintf("Deleted combatant class %s.", c.Name), nil
	})
}
