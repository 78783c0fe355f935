package arenadb

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Models lists every arena table in creation order.
var Models = []any{
	(*Arena)(nil),
	(*ArenaManager)(nil),
	(*ArenaRoom)(nil),
	(*CombatantClass)(nil),
	(*EventType)(nil),
	(*EventTypeSide)(nil),
	(*SideClass)(nil),
	(*Event)(nil),
	(*Signup)(nil),
	(*Reservation)(nil),
	(*Program)(nil),
}

type index struct {
	model   any
	name    string
	unique  bool
	columns []string
}

var indexes = []index{
	{(*CombatantClass)(nil), "idx_combatant_classes_arena", false, []string{"arena_id"}},
	{(*EventType)(nil), "idx_event_types_arena", false, []string{"arena_id"}},
	{(*EventTypeSide)(nil), "idx_event_type_sides_type", false, []string{"event_type_id", "side_index"}},
	{(*Event)(nil), "idx_arena_events_arena", false, []string{"arena_id", "archived"}},
	{(*Event)(nil), "idx_arena_events_scheduled", false, []string{"state", "scheduled_at"}},
	{(*Signup)(nil), "idx_arena_signups_event_character", true, []string{"event_id", "character_id"}},
	{(*Reservation)(nil), "idx_arena_reservations_event", false, []string{"event_id"}},
	{(*Program)(nil), "idx_arena_programs_arena_name", true, []string{"arena_id", "name"}},
}

// CreateTables creates the arena tables and indexes if they do not exist.
func CreateTables(ctx context.Context, db bun.IDB) error {
	for _, m := range Models {
		if _, err := db.NewCreateTable().Model(m).IfNotExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to create table for %T: %w", m, err)
		}
	}
	for _, idx := range indexes {
		q := db.NewCreateIndex().Model(idx.model).Index(idx.name).Column(idx.columns...).IfNotExists()
		if idx.unique {
			q = q.Unique()
		}
		if _, err := q.Exec(ctx); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}
	return nil
}

// DropTables drops every arena table.
func DropTables(ctx context.Context, db bun.IDB) error {
	for i := len(Models) - 1; i >= 0; i-- {
		if _, err := db.NewDropTable().Model(Models[i]).IfExists().Exec(ctx); err != nil {
			return fmt.Errorf("failed to drop table for %T: %w", Models[i], err)
		}
	}
	return nil
}
