// Package arenaroster persists the characters and class ratings the arena
// consults. It implements arenadomain.CharacterRegistry and RatingLookup.
package arenaroster

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/uptrace/bun"
)

var ErrUnknownCharacter = errors.New("unknown character")

type Character struct {
	bun.BaseModel `bun:"table:arena_characters,alias:ach"`

	ID         int64   `bun:"id,pk,autoincrement"`
	Name       string  `bun:"name,notnull"`
	NPC        bool    `bun:"npc,notnull"`
	Clans      []int64 `bun:"clans,type:jsonb"`
	AbleBodied bool    `bun:"able_bodied,notnull"`
}

type Rating struct {
	bun.BaseModel `bun:"table:arena_ratings,alias:art"`

	CharacterID int64   `bun:"character_id,pk"`
	ClassID     int64   `bun:"class_id,pk"`
	Rating      float64 `bun:"rating,notnull"`
}

// Roster reads and writes characters and ratings through db.
type Roster struct {
	db bun.IDB
}

func NewRoster(db bun.IDB) *Roster {
	return &Roster{db: db}
}

// With returns a roster bound to db, usually the caller's transaction.
func (r *Roster) With(db bun.IDB) *Roster {
	if db == nil {
		return r
	}
	return &Roster{db: db}
}

// Character implements arenadomain.CharacterRegistry.
func (r *Roster) Character(ctx context.Context, id arenadomain.CharacterID) (arenadomain.Character, error) {
	row := new(Character)
	err := r.db.NewSelect().Model(row).Where("id = ?", int64(id)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("character %d: %w", id, ErrUnknownCharacter)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load character %d: %w", id, err)
	}
	return character{row: *row}, nil
}

// Rating implements arenadomain.RatingLookup.
func (r *Roster) Rating(ctx context.Context, id arenadomain.CharacterID, class arenadomain.ClassID) (float64, bool, error) {
	row := new(Rating)
	err := r.db.NewSelect().Model(row).
		Where("character_id = ?", int64(id)).
		Where("class_id = ?", int64(class)).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to load rating: %w", err)
	}
	return row.Rating, true, nil
}

// Register inserts a new character or replaces an existing one.
func (r *Roster) Register(ctx context.Context, c *Character) error {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return arenadomain.ErrEmptyName
	}
	q := r.db.NewInsert().Model(c)
	if c.ID != 0 {
		q = q.On("CONFLICT (id) DO UPDATE").
			Set("name = EXCLUDED.name").
			Set("npc = EXCLUDED.npc").
			Set("clans = EXCLUDED.clans").
			Set("able_bodied = EXCLUDED.able_bodied")
	}
	if _, err := q.Returning("id").Exec(ctx); err != nil {
		return fmt.Errorf("failed to register character: %w", err)
	}
	return nil
}

func (r *Roster) SetAbleBodied(ctx context.Context, id arenadomain.CharacterID, able bool) error {
	res, err := r.db.NewUpdate().Model((*Character)(nil)).
		Set("able_bodied = ?", able).
		Where("id = ?", int64(id)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update character: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("character %d: %w", id, ErrUnknownCharacter)
	}
	return nil
}

func (r *Roster) SetRating(ctx context.Context, id arenadomain.CharacterID, class arenadomain.ClassID, rating float64) error {
	row := &Rating{CharacterID: int64(id), ClassID: int64(class), Rating: rating}
	_, err := r.db.NewInsert().Model(row).
		On("CONFLICT (character_id, class_id) DO UPDATE").
		Set("rating = EXCLUDED.rating").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to set rating: %w", err)
	}
	return nil
}

// NPCs lists up to limit able-bodied NPCs, optionally restricted to a clan.
func (r *Roster) NPCs(ctx context.Context, clan *arenadomain.ClanID, limit int) ([]arenadomain.CharacterID, error) {
	var rows []Character
	err := r.db.NewSelect().Model(&rows).
		Where("npc = ?", true).
		Where("able_bodied = ?", true).
		Order("id ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list npcs: %w", err)
	}
	var out []arenadomain.CharacterID
	for _, row := range rows {
		if limit > 0 && len(out) >= limit {
			break
		}
		if clan != nil && !containsClan(row.Clans, int64(*clan)) {
			continue
		}
		out = append(out, arenadomain.CharacterID(row.ID))
	}
	return out, nil
}

func containsClan(clans []int64, want int64) bool {
	for _, c := range clans {
		if c == want {
			return true
		}
	}
	return false
}

type character struct {
	row Character
}

func (c character) ID() arenadomain.CharacterID { return arenadomain.CharacterID(c.row.ID) }
func (c character) Name() string                { return c.row.Name }
func (c character) IsNPC() bool                 { return c.row.NPC }
func (c character) IsAbleBodied() bool          { return c.row.AbleBodied }

func (c character) Clans() []arenadomain.ClanID {
	out := make([]arenadomain.ClanID, len(c.row.Clans))
	for i, id := range c.row.Clans {
		out[i] = arenadomain.ClanID(id)
	}
	return out
}

var (
	_ arenadomain.CharacterRegistry = (*Roster)(nil)
	_ arenadomain.RatingLookup      = (*Roster)(nil)
)

// Models lists the roster tables.
var Models = []any{(*Character)(nil), (*Rating)(nil)}

func CreateTables(ctx context.Context, db bun.IDB) error {
	for _, m := range Models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", m, err)
		}
	}
	return nil
}

func DropTables(ctx context.Context, db bun.IDB) error {
	for i := len(Models) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(Models[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", Models[i], err)
		}
	}
	return nil
}
