package arenadomain

// EventTypeSide is one competing slot-group of an event type.
type EventTypeSide struct {
	ID       SideID
	Index    int
	Capacity int
	Policy   SignupPolicy

	MinimumRating *float64
	MaximumRating *float64

	AllowNpcSignup bool
	AutoFillNpc    bool
	OutfitProg     Prog
	NpcLoaderProg  Prog

	eligible  []*CombatantClass
	eventType *EventType
	dirty     bool
}

func (s *EventTypeSide) EventType() *EventType { return s.eventType }
func (s *EventTypeSide) IsDirty() bool         { return s.dirty }
func (s *EventTypeSide) ClearDirty()           { s.dirty = false }

// DisplayIndex is the 1-based index shown to players.
func (s *EventTypeSide) DisplayIndex() int { return s.Index + 1 }

// EligibleClasses returns a copy of the eligible class set.
func (s *EventTypeSide) EligibleClasses() []*CombatantClass {
	out := make([]*CombatantClass, len(s.eligible))
	copy(out, s.eligible)
	return out
}

func (s *EventTypeSide) IsClassEligible(c *CombatantClass) bool {
	if c == nil {
		return false
	}
	for _, e := range s.eligible {
		if e == c {
			return true
		}
	}
	return false
}

func (s *EventTypeSide) SetCapacity(n int) error {
	if n <= 0 {
		return ErrInvalidCapacity
	}
	s.Capacity = n
	s.dirty = true
	return nil
}

func (s *EventTypeSide) SetPolicy(p SignupPolicy) {
	s.Policy = p
	s.dirty = true
}

// SetRatingBand sets the inclusive rating band. Either bound may be nil.
func (s *EventTypeSide) SetRatingBand(min, max *float64) error {
	if min != nil && max != nil && *min > *max {
		return ErrInvalidRatingBand
	}
	s.MinimumRating = min
	s.MaximumRating = max
	s.dirty = true
	return nil
}

func (s *EventTypeSide) HasRatingBand() bool {
	return s.MinimumRating != nil || s.MaximumRating != nil
}

func (s *EventTypeSide) InRatingBand(r float64) bool {
	if s.MinimumRating != nil && r < *s.MinimumRating {
		return false
	}
	if s.MaximumRating != nil && r > *s.MaximumRating {
		return false
	}
	return true
}

func (s *EventTypeSide) SetAllowNpcSignup(v bool) {
	s.AllowNpcSignup = v
	s.dirty = true
}

func (s *EventTypeSide) SetAutoFillNpc(v bool) {
	s.AutoFillNpc = v
	s.dirty = true
}

func (s *EventTypeSide) SetOutfitProg(p Prog) {
	s.OutfitProg = p
	s.dirty = true
}

func (s *EventTypeSide) SetNpcLoaderProg(p Prog) {
	s.NpcLoaderProg = p
	s.dirty = true
}

// ToggleClass adds c to the eligible set, or removes it if already present.
// It reports whether c is eligible afterwards.
func (s *EventTypeSide) ToggleClass(c *CombatantClass) (bool, error) {
	if c == nil || s.eventType == nil || c.arena != s.eventType.arena {
		return false, ErrForeignClass
	}
	for i, e := range s.eligible {
		if e == c {
			s.eligible = append(s.eligible[:i:i], s.eligible[i+1:]...)
			s.dirty = true
			return false, nil
		}
	}
	s.eligible = append(s.eligible, c)
	s.dirty = true
	return true, nil
}

// AttachClass links c without marking the side dirty. Used when loading.
func (s *EventTypeSide) AttachClass(c *CombatantClass) {
	if c != nil && !s.IsClassEligible(c) {
		s.eligible = append(s.eligible, c)
	}
}

func (s *EventTypeSide) clone(parent *EventType) *EventTypeSide {
	cp := *s
	cp.ID = 0
	cp.eventType = parent
	cp.eligible = s.EligibleClasses()
	if s.MinimumRating != nil {
		v := *s.MinimumRating
		cp.MinimumRating = &v
	}
	if s.MaximumRating != nil {
		v := *s.MaximumRating
		cp.MaximumRating = &v
	}
	cp.dirty = true
	return &cp
}
