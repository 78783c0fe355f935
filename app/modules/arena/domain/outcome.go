package arenadomain

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/shopspring/decimal"
)

// RecordOutcome stores the result. Winners are reduced to indices of sides
// that exist, de-duplicated and sorted; nil winners clears them. An aborted
// event keeps its abort outcome.
func (e *Event) RecordOutcome(outcome Outcome, winners []int) bool {
	if e.state == StateAborted {
		return false
	}
	e.outcome = &outcome
	e.winners = e.filterWinners(winners)
	e.dirty = true
	return true
}

func (e *Event) filterWinners(winners []int) []int {
	if winners == nil {
		return nil
	}
	seen := make(map[int]struct{}, len(winners))
	out := make([]int, 0, len(winners))
	for _, idx := range winners {
		if e.eventType == nil || e.eventType.Side(idx) == nil {
			continue
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		out = append(out, idx)
	}
	sort.Ints(out)
	return out
}

// DetermineOutcome works out the result of a resolving event. The resolution
// program wins over the scoring program, which wins over last side standing.
func (e *Event) DetermineOutcome(ctx context.Context) (Outcome, []int) {
	if e.eventType != nil && e.eventType.ResolutionProg != nil {
		if nums, ok := evalNumbers(ctx, e.eventType.ResolutionProg, e.AbleCountsBySide(ctx)); ok {
			winners := make([]int, 0, len(nums))
			for _, n := range nums {
				winners = append(winners, int(n))
			}
			winners = e.filterWinners(winners)
			if len(winners) == 0 {
				return OutcomeDraw, nil
			}
			return OutcomeVictory, winners
		}
	}
	if e.eventType != nil && e.eventType.ScoringProg != nil {
		if winners, ok := e.scoreSides(ctx); ok {
			if len(winners) == 1 {
				return OutcomeVictory, winners
			}
			return OutcomeDraw, nil
		}
	}
	active := e.ActiveSides(ctx)
	if len(active) == 1 {
		return OutcomeVictory, active
	}
	return OutcomeDraw, nil
}

// scoreSides totals the scoring program per side and returns the sides tied
// for the highest score. Participants whose score fails count as zero.
func (e *Event) scoreSides(ctx context.Context) ([]int, bool) {
	reg := e.collaborators().Characters
	totals := make(map[int]float64)
	for _, p := range e.Participants() {
		var score float64
		if ch, err := p.Character(ctx, reg); err == nil {
			if v, ok := evalNumber(ctx, e.eventType.ScoringProg, ch, p.SideIndex); ok && !math.IsNaN(v) {
				score = v
			}
		}
		totals[p.SideIndex] += score
	}
	if len(totals) == 0 {
		return nil, false
	}
	best := math.Inf(-1)
	var winners []int
	for side, total := range totals {
		switch {
		case total > best:
			best = total
			winners = []int{side}
		case total == best:
			winners = append(winners, side)
		}
	}
	sort.Ints(winners)
	return winners, true
}

// RunIntro runs the intro program once per participant and returns the
// failures joined.
func (e *Event) RunIntro(ctx context.Context) error {
	if e.eventType == nil || e.eventType.IntroProg == nil {
		return nil
	}
	reg := e.collaborators().Characters
	var errs []error
	for _, p := range e.Participants() {
		ch, err := p.Character(ctx, reg)
		if err != nil {
			errs = append(errs, fmt.Errorf("participant %d: %w", p.CharacterID, err))
			continue
		}
		if _, err := execute(ctx, e.eventType.IntroProg, ch, p.SideIndex); err != nil {
			errs = append(errs, fmt.Errorf("participant %d: %w", p.CharacterID, err))
		}
	}
	return errors.Join(errs...)
}

// AppearanceFeesDue is the appearance fee times the number of non-NPC
// participants.
func (e *Event) AppearanceFeesDue() decimal.Decimal {
	n := 0
	for _, p := range e.Participants() {
		if !p.IsNPC {
			n++
		}
	}
	return e.AppearanceFee.Mul(decimal.NewFromInt(int64(n)))
}

// VictoryFeesDue is the victory fee times the number of non-NPC participants
// on winning sides.
func (e *Event) VictoryFeesDue() decimal.Decimal {
	if e.outcome == nil || *e.outcome != OutcomeVictory {
		return decimal.Zero
	}
	winning := make(map[int]bool, len(e.winners))
	for _, w := range e.winners {
		winning[w] = true
	}
	n := 0
	for _, p := range e.Participants() {
		if !p.IsNPC && winning[p.SideIndex] {
			n++
		}
	}
	return e.VictoryFee.Mul(decimal.NewFromInt(int64(n)))
}

// ChargeAppearanceFees pays the appearance fees out of arena funds.
func (e *Event) ChargeAppearanceFees(ctx context.Context) (decimal.Decimal, error) {
	return e.payOut(ctx, e.AppearanceFeesDue())
}

// PayVictoryFees pays the victory fees for the recorded winners.
func (e *Event) PayVictoryFees(ctx context.Context) (decimal.Decimal, error) {
	return e.payOut(ctx, e.VictoryFeesDue())
}

func (e *Event) payOut(ctx context.Context, amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.IsPositive() || e.arena == nil {
		return decimal.Zero, nil
	}
	if ok, reason := e.arena.EnsureFunds(ctx, amount); !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInsufficientFunds, reason)
	}
	if err := e.arena.Debit(ctx, amount); err != nil {
		return decimal.Zero, err
	}
	return amount, nil
}

// AutoFillNpcs fills free slots on sides marked for NPC auto-fill. NPC ids
// come from the side's loader program, else from the first eligible class
// with an admin loader; the program receives the side index and free slot
// count. Registration state is not checked. Returns the new participants.
func (e *Event) AutoFillNpcs(ctx context.Context, store EventStore) ([]*Participant, error) {
	if e.eventType == nil || e.state.IsTerminal() {
		return nil, nil
	}
	reg := e.collaborators().Characters
	if reg == nil {
		return nil, ErrCharacterRegistryMissing
	}
	var added []*Participant
	for _, side := range e.eventType.Sides() {
		if !side.AutoFillNpc {
			continue
		}
		free := side.Capacity - len(e.ParticipantsOnSide(side.Index))
		if free <= 0 {
			continue
		}
		loader := side.NpcLoaderProg
		if loader == nil {
			for _, c := range side.EligibleClasses() {
				if c.AdminNpcLoader != nil {
					loader = c.AdminNpcLoader
					break
				}
			}
		}
		if loader == nil {
			continue
		}
		ids, ok := evalNumbers(ctx, loader, side.Index, free)
		if !ok {
			continue
		}
		for _, raw := range ids {
			if free <= 0 {
				break
			}
			ch, err := reg.Character(ctx, CharacterID(int64(raw)))
			if err != nil || !ch.IsNPC() {
				continue
			}
			for _, class := range side.EligibleClasses() {
				p, err := e.signUp(ctx, store, ch, side.Index, class, false)
				if err != nil {
					var rejected *SignupRejectedError
					if errors.As(err, &rejected) {
						continue
					}
					return added, err
				}
				added = append(added, p)
				free--
				break
			}
		}
	}
	return added, nil
}
