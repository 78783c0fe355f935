package arenadb

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Arena is the stored form of an arena's own fields.
type Arena struct {
	bun.BaseModel  `bun:"table:arenas,alias:a"`
	ID             int64           `bun:"id,pk,autoincrement"`
	Name           string          `bun:"name,notnull"`
	EconomicZoneID int64           `bun:"economic_zone_id,notnull,default:0"`
	Currency       string          `bun:"currency,notnull,default:''"`
	BankAccountID  *int64          `bun:"bank_account_id"`
	VirtualBalance decimal.Decimal `bun:"virtual_balance,type:numeric(20,4),notnull,default:0"`
	CreatedAt      time.Time       `bun:",nullzero,notnull,default:current_timestamp"`
	UpdatedAt      time.Time       `bun:",nullzero,notnull,default:current_timestamp"`
}

type ArenaManager struct {
	bun.BaseModel `bun:"table:arena_managers,alias:am"`
	ArenaID       int64 `bun:"arena_id,pk"`
	CharacterID   int64 `bun:"character_id,pk"`
}

type ArenaRoom struct {
	bun.BaseModel `bun:"table:arena_rooms,alias:ar"`
	ArenaID       int64  `bun:"arena_id,pk"`
	Role          string `bun:"role,pk"`
	RoomID        int64  `bun:"room_id,pk"`
}

type CombatantClass struct {
	bun.BaseModel        `bun:"table:combatant_classes,alias:cc"`
	ID                   int64  `bun:"id,pk,autoincrement"`
	ArenaID              int64  `bun:"arena_id,notnull"`
	Name                 string `bun:"name,notnull"`
	Description          string `bun:"description,notnull,default:''"`
	EligibilityProgID    *int64 `bun:"eligibility_prog_id"`
	AdminNpcLoaderProgID *int64 `bun:"admin_npc_loader_prog_id"`
	ResurrectOnDeath     bool   `bun:"resurrect_on_death,notnull,default:false"`
	StageNameTemplate    string `bun:"stage_name_template,notnull,default:''"`
	SignatureColour      string `bun:"signature_colour,notnull,default:''"`
}

type EventType struct {
	bun.BaseModel        `bun:"table:event_types,alias:et"`
	ID                   int64           `bun:"id,pk,autoincrement"`
	ArenaID              int64           `bun:"arena_id,notnull"`
	Name                 string          `bun:"name,notnull"`
	BringYourOwn         bool            `bun:"bring_your_own,notnull,default:false"`
	CreatedBy            *int64          `bun:"created_by"`
	RegistrationDuration time.Duration   `bun:"registration_duration,notnull,default:0"`
	PreparationDuration  time.Duration   `bun:"preparation_duration,notnull,default:0"`
	TimeLimit            *time.Duration  `bun:"time_limit"`
	AutoInterval         *time.Duration  `bun:"auto_interval"`
	AutoReference        *time.Time      `bun:"auto_reference"`
	BettingModel         string          `bun:"betting_model,notnull,default:'fixed'"`
	AppearanceFee        decimal.Decimal `bun:"appearance_fee,type:numeric(20,4),notnull,default:0"`
	VictoryFee           decimal.Decimal `bun:"victory_fee,type:numeric(20,4),notnull,default:0"`
	IntroProgID          *int64          `bun:"intro_prog_id"`
	ScoringProgID        *int64          `bun:"scoring_prog_id"`
	ResolutionProgID     *int64          `bun:"resolution_prog_id"`
	EliminationProgID    *int64          `bun:"elimination_prog_id"`
}

type EventTypeSide struct {
	bun.BaseModel   `bun:"table:event_type_sides,alias:ets"`
	ID              int64    `bun:"id,pk,autoincrement"`
	EventTypeID     int64    `bun:"event_type_id,notnull"`
	SideIndex       int      `bun:"side_index,notnull"`
	Capacity        int      `bun:"capacity,notnull"`
	Policy          string   `bun:"policy,notnull"`
	MinimumRating   *float64 `bun:"minimum_rating"`
	MaximumRating   *float64 `bun:"maximum_rating"`
	AllowNpcSignup  bool     `bun:"allow_npc_signup,notnull,default:false"`
	AutoFillNpc     bool     `bun:"auto_fill_npc,notnull,default:false"`
	OutfitProgID    *int64   `bun:"outfit_prog_id"`
	NpcLoaderProgID *int64   `bun:"npc_loader_prog_id"`
}

// SideClass links a side to an eligible combatant class.
type SideClass struct {
	bun.BaseModel `bun:"table:event_type_side_classes,alias:esc"`
	SideID        int64 `bun:"side_id,pk"`
	ClassID       int64 `bun:"class_id,pk"`
}

type Event struct {
	bun.BaseModel        `bun:"table:arena_events,alias:ev"`
	ID                   int64           `bun:"id,pk,autoincrement"`
	ArenaID              int64           `bun:"arena_id,notnull"`
	EventTypeID          int64           `bun:"event_type_id,notnull"`
	State                string          `bun:"state,notnull"`
	CreatedAt            time.Time       `bun:"created_at,notnull"`
	ScheduledAt          time.Time       `bun:"scheduled_at,notnull"`
	RegistrationOpensAt  *time.Time      `bun:"registration_opens_at"`
	StartedAt            *time.Time      `bun:"started_at"`
	ResolvedAt           *time.Time      `bun:"resolved_at"`
	CompletedAt          *time.Time      `bun:"completed_at"`
	BringYourOwn         bool            `bun:"bring_your_own,notnull,default:false"`
	RegistrationDuration time.Duration   `bun:"registration_duration,notnull,default:0"`
	PreparationDuration  time.Duration   `bun:"preparation_duration,notnull,default:0"`
	TimeLimit            *time.Duration  `bun:"time_limit"`
	BettingModel         string          `bun:"betting_model,notnull,default:'fixed'"`
	AppearanceFee        decimal.Decimal `bun:"appearance_fee,type:numeric(20,4),notnull,default:0"`
	VictoryFee           decimal.Decimal `bun:"victory_fee,type:numeric(20,4),notnull,default:0"`
	Outcome              *string         `bun:"outcome"`
	AbortReason          string          `bun:"abort_reason,notnull,default:''"`
	WinningSides         []int           `bun:"winning_sides,type:jsonb"`
	Archived             bool            `bun:"archived,notnull,default:false"`
}

type Signup struct {
	bun.BaseModel   `bun:"table:arena_signups,alias:s"`
	ID              int64     `bun:"id,pk,autoincrement"`
	EventID         int64     `bun:"event_id,notnull"`
	CharacterID     int64     `bun:"character_id,notnull"`
	ClassID         *int64    `bun:"class_id"`
	SideIndex       int       `bun:"side_index,notnull"`
	IsNPC           bool      `bun:"is_npc,notnull,default:false"`
	StageName       string    `bun:"stage_name,notnull,default:''"`
	SignatureColour string    `bun:"signature_colour,notnull,default:''"`
	StartingRating  *float64  `bun:"starting_rating"`
	ReservationID   *int64    `bun:"reservation_id"`
	CreatedAt       time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

type Reservation struct {
	bun.BaseModel `bun:"table:arena_reservations,alias:r"`
	ID            int64     `bun:"id,pk,autoincrement"`
	EventID       int64     `bun:"event_id,notnull"`
	SideIndex     int       `bun:"side_index,notnull"`
	CharacterID   *int64    `bun:"character_id"`
	ClanID        *int64    `bun:"clan_id"`
	ExpiresAt     time.Time `bun:"expires_at,notnull"`
}

// Program is the stored source of a script hook.
type Program struct {
	bun.BaseModel `bun:"table:arena_programs,alias:p"`
	ID            int64     `bun:"id,pk,autoincrement"`
	ArenaID       int64     `bun:"arena_id,notnull"`
	Name          string    `bun:"name,notnull"`
	Source        string    `bun:"source,notnull"`
	UpdatedAt     time.Time `bun:",nullzero,notnull,default:current_timestamp"`
}

// DueEvent identifies an unfinished event for scheduler reconciliation.
type DueEvent struct {
	ArenaID     int64     `bun:"arena_id"`
	EventID     int64     `bun:"id"`
	State       string    `bun:"state"`
	ScheduledAt time.Time `bun:"scheduled_at"`
}
