package arenadomain

import (
	"context"
	"strings"
)

// CombatantClass is an eligibility bucket such as "Heavyweight".
type CombatantClass struct {
	ID          ClassID
	Name        string
	Description string

	Eligibility       Prog
	AdminNpcLoader    Prog
	ResurrectOnDeath  bool
	StageNameTemplate string
	SignatureColour   string

	arena *Arena
	dirty bool
}

func (c *CombatantClass) Arena() *Arena { return c.arena }
func (c *CombatantClass) IsDirty() bool { return c.dirty }
func (c *CombatantClass) ClearDirty()   { c.dirty = false }

// IsEligible evaluates the eligibility program for ch. A missing or failing
// program makes the character ineligible.
func (c *CombatantClass) IsEligible(ctx context.Context, ch Character) bool {
	if c.Eligibility == nil || ch == nil {
		return false
	}
	return evalBool(ctx, c.Eligibility, ch)
}

func (c *CombatantClass) Rename(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if c.arena != nil {
		if other := c.arena.CombatantClassByName(name); other != nil && other != c {
			return ErrDuplicateName
		}
	}
	c.Name = name
	c.dirty = true
	return nil
}

func (c *CombatantClass) SetDescription(desc string) {
	c.Description = desc
	c.dirty = true
}

func (c *CombatantClass) SetEligibility(p Prog) error {
	if p == nil {
		return ErrEligibilityMissing
	}
	c.Eligibility = p
	c.dirty = true
	return nil
}

// SetAdminNpcLoader sets or, with nil, clears the NPC loader.
func (c *CombatantClass) SetAdminNpcLoader(p Prog) {
	c.AdminNpcLoader = p
	c.dirty = true
}

func (c *CombatantClass) SetResurrectOnDeath(v bool) {
	c.ResurrectOnDeath = v
	c.dirty = true
}

func (c *CombatantClass) SetStageNameTemplate(tmpl string) {
	c.StageNameTemplate = strings.TrimSpace(tmpl)
	c.dirty = true
}

func (c *CombatantClass) SetSignatureColour(colour string) {
	c.SignatureColour = strings.TrimSpace(colour)
	c.dirty = true
}

// StageNameFor expands the default stage-name template. "$name" is replaced
// with the character's name.
func (c *CombatantClass) StageNameFor(ch Character) string {
	if c.StageNameTemplate == "" || ch == nil {
		return ""
	}
	return strings.ReplaceAll(c.StageNameTemplate, "$name", ch.Name())
}
