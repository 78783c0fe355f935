package arenadomain

import (
	"context"
	"sort"
)

// EliminationStrategy decides whether a live event may be stopped early.
type EliminationStrategy interface {
	MercyStopAllowed(ctx context.Context, e *Event) bool
}

// LastSideStanding allows a stop once at most one side still has an
// able-bodied participant. Zero able sides also allows it; the event then
// resolves as a draw.
type LastSideStanding struct{}

func (LastSideStanding) MercyStopAllowed(ctx context.Context, e *Event) bool {
	return len(e.ActiveSides(ctx)) <= 1
}

// ScriptedElimination delegates to a program that receives the count of
// able-bodied participants per side index and returns a boolean.
type ScriptedElimination struct {
	Prog Prog
}

func (s ScriptedElimination) MercyStopAllowed(ctx context.Context, e *Event) bool {
	return evalBool(ctx, s.Prog, e.AbleCountsBySide(ctx))
}

// EliminationStrategy returns the scripted strategy when the event type has
// one, else LastSideStanding.
func (e *Event) EliminationStrategy() EliminationStrategy {
	if e.eventType != nil && e.eventType.EliminationProg != nil {
		return ScriptedElimination{Prog: e.eventType.EliminationProg}
	}
	return LastSideStanding{}
}

// AbleCountsBySide counts able-bodied participants for every side of the
// event type, indexed by side index. Characters that cannot be resolved are
// not counted.
func (e *Event) AbleCountsBySide(ctx context.Context) []int {
	n := 0
	if e.eventType != nil {
		n = len(e.eventType.sides)
	}
	counts := make([]int, n)
	reg := e.collaborators().Characters
	for _, p := range e.Participants() {
		if p.SideIndex < 0 || p.SideIndex >= n {
			continue
		}
		ch, err := p.Character(ctx, reg)
		if err != nil || !ch.IsAbleBodied() {
			continue
		}
		counts[p.SideIndex]++
	}
	return counts
}

// ActiveSides lists, ascending, the side indices with at least one
// able-bodied participant.
func (e *Event) ActiveSides(ctx context.Context) []int {
	var out []int
	for i, n := range e.AbleCountsBySide(ctx) {
		if n > 0 {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}
