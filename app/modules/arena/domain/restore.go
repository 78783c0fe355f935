package arenadomain

import "github.com/shopspring/decimal"

// ArenaSnapshot is the stored form of an arena's own fields.
type ArenaSnapshot struct {
	ID             ArenaID
	Name           string
	EconomicZoneID int64
	Currency       string
	BankAccountID  *int64
	VirtualBalance decimal.Decimal
	Managers       []CharacterID
	Rooms          map[RoomRole][]RoomID
}

// RestoreArena rebuilds a stored arena. Classes, types and events are attached
// afterwards. account may be nil when no bank account is linked.
func RestoreArena(s ArenaSnapshot, deps Collaborators, account BankAccount) *Arena {
	a := NewArena(s.Name, deps)
	a.ID = s.ID
	a.EconomicZoneID = s.EconomicZoneID
	a.Currency = s.Currency
	a.virtualBalance = s.VirtualBalance
	if s.BankAccountID != nil && account != nil {
		id := *s.BankAccountID
		a.BankAccountID = &id
		a.account = account
	}
	for _, m := range s.Managers {
		a.managers[m] = struct{}{}
	}
	for role, rooms := range s.Rooms {
		a.rooms[role] = append([]RoomID(nil), rooms...)
	}
	a.dirty = false
	return a
}

// Snapshot captures the arena's own fields for storage.
func (a *Arena) Snapshot() ArenaSnapshot {
	rooms := make(map[RoomRole][]RoomID, len(a.rooms))
	for role := range a.rooms {
		rooms[role] = a.Rooms(role)
	}
	a.fundsMu.Lock()
	var bank *int64
	if a.BankAccountID != nil {
		id := *a.BankAccountID
		bank = &id
	}
	balance := a.virtualBalance
	a.fundsMu.Unlock()
	return ArenaSnapshot{
		ID:             a.ID,
		Name:           a.Name,
		EconomicZoneID: a.EconomicZoneID,
		Currency:       a.Currency,
		BankAccountID:  bank,
		VirtualBalance: balance,
		Managers:       a.Managers(),
		Rooms:          rooms,
	}
}

// MarkClean clears the dirty flag on the arena and everything it owns.
func (a *Arena) MarkClean() {
	a.dirty = false
	for _, c := range a.classes {
		c.dirty = false
	}
	for _, t := range a.eventTypes {
		t.dirty = false
		for _, s := range t.sides {
			s.dirty = false
		}
	}
	for _, e := range a.events {
		e.dirty = false
	}
}
