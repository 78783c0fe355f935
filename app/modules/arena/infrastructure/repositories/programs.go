package arenadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
)

func (r *Impl) GetProgram(ctx context.Context, db bun.IDB, id int64) (*Program, error) {
	db = r.resolveDB(db)
	p := new(Program)
	if err := db.NewSelect().Model(p).Where("id = ?", id).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get program: %w", err)
	}
	return p, nil
}

// GetProgramByName matches names case-insensitively within an arena.
func (r *Impl) GetProgramByName(ctx context.Context, db bun.IDB, arenaID int64, name string) (*Program, error) {
	db = r.resolveDB(db)
	p := new(Program)
	err := db.NewSelect().
		Model(p).
		Where("arena_id = ?", arenaID).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get program by name: %w", err)
	}
	return p, nil
}

// UpsertProgram creates the program or replaces the source of the one with
// the same arena and name. p.ID is set either way.
func (r *Impl) UpsertProgram(ctx context.Context, db bun.IDB, p *Program) error {
	db = r.resolveDB(db)
	p.Name = strings.TrimSpace(p.Name)
	p.UpdatedAt = time.Now().UTC()
	_, err := db.NewInsert().
		Model(p).
		On("CONFLICT (arena_id, name) DO UPDATE").
		Set("source = EXCLUDED.source").
		Set("updated_at = EXCLUDED.updated_at").
		Returning("id").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert program: %w", err)
	}
	return nil
}
