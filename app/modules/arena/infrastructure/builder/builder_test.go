package arenabuilder

import (
	"context"
	"log/slog"
	"testing"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func TestBuildingCommand_Rejections(t *testing.T) {
	tests := []struct {
		name    string
		actor   arenadomain.CharacterID
		command string
		want    string
	}{
		{name: "empty", actor: manager, command: "", want: "Usage: <arena|class|event|program|side|type> <verb> [arguments]"},
		{name: "unknown noun", actor: manager, command: "stadium show", want: "Usage: <arena|class|event|program|side|type>"},
		{name: "unknown verb", actor: manager, command: "side paint", want: "Usage: side add|remove"},
		{name: "not a manager", actor: outsider, command: "arena show", want: "Only managers of Colosseum may do that."},
		{name: "missing arguments", actor: manager, command: "type create", want: "Usage: type create <name>"},
		{name: "bad amount", actor: manager, command: "arena funds credit lots", want: `"lots" is not a valid amount.`},
		{name: "bad side number", actor: manager, command: "side capacity Duel 0 3", want: `"0" is not a valid side number.`},
		{name: "unknown type", actor: manager, command: "type byo Joust on", want: `"Joust": event type not found.`},
		{name: "unknown class", actor: manager, command: "class desc Lightweight fast", want: `"Lightweight": combatant class not found.`},
		{name: "unknown event", actor: manager, command: "event show 99", want: "not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ok, msg := h.builder.BuildingCommand(context.Background(), tt.actor, h.arena, tt.command)
			assert.False(t, ok)
			assert.Contains(t, msg, tt.want)
		})
	}
}

func TestBuildingCommand_UnknownArena(t *testing.T) {
	h := newHarness(t)
	ok, msg := h.builder.BuildingCommand(context.Background(), manager, 404, "arena show")
	assert.False(t, ok)
	assert.Equal(t, "Arena 404: arena not found.", msg)
}

func TestBuildingCommand_RateLimited(t *testing.T) {
	h := newHarness(t)
	b := NewBuilder(h.svc, slog.New(slog.DiscardHandler), WithRateLimit(rate.Every(time.Hour), 1))

	ok, _ := b.BuildingCommand(context.Background(), manager, h.arena, "arena show")
	require.True(t, ok)
	ok, msg := b.BuildingCommand(context.Background(), manager, h.arena, "arena show")
	assert.False(t, ok)
	assert.Contains(t, msg, "too quickly")

	ok, _ = b.BuildingCommand(context.Background(), outsider, h.arena, "arena show")
	assert.False(t, ok, "outsider passes the limiter but is not a manager")
}

func TestBuildingCommand_IdleLimitersEvicted(t *testing.T) {
	h := newHarness(t)
	b := NewBuilder(h.svc, slog.New(slog.DiscardHandler), WithClock(h.clock), WithRateLimit(rate.Every(time.Minute), 1))

	b.BuildingCommand(context.Background(), manager, h.arena, "arena show")
	b.BuildingCommand(context.Background(), outsider, h.arena, "arena show")
	assert.Equal(t, 2, b.trackedActors())

	h.clock.Advance(5 * time.Minute)
	b.BuildingCommand(context.Background(), manager, h.arena, "arena show")
	assert.Equal(t, 2, b.trackedActors(), "nothing idle long enough yet")

	h.clock.Advance(6 * time.Minute)
	ok, msg := b.BuildingCommand(context.Background(), manager, h.arena, "arena show")
	require.True(t, ok, msg)
	assert.Equal(t, 1, b.trackedActors(), "the outsider's limiter was dropped")
}

func TestArenaCommands(t *testing.T) {
	h := newHarness(t)

	h.run(t, "arena manager add 5", "arena room add floor #10", "arena funds credit 250")
	msg := h.run(t, "arena funds debit 50.5")
	assert.Equal(t, "Debited 50.50 denarii. Funds: 199.50 denarii.", msg)

	info := h.info(t)
	assert.Equal(t, []arenadomain.CharacterID{1, 5}, info.Managers)
	assert.Equal(t, []arenadomain.RoomID{10}, info.Rooms["floor"])
	assert.True(t, decimal.RequireFromString("199.5").Equal(info.Funds))

	ok, msg := h.builder.BuildingCommand(context.Background(), manager, h.arena, "arena funds debit 1000")
	assert.False(t, ok)
	assert.Equal(t, "Insufficient funds.", msg)

	ok, msg = h.builder.BuildingCommand(context.Background(), 5, h.arena, "arena manager remove 1")
	require.True(t, ok, msg)
	ok, msg = h.builder.BuildingCommand(context.Background(), 5, h.arena, "arena manager remove 5")
	assert.False(t, ok)
	assert.Equal(t, "You are the last manager of Colosseum.", msg)

	show := h.run2(t, 5, "arena show")
	assert.Contains(t, show, "Colosseum (#")
	assert.Contains(t, show, "Rooms (floor): #10")
	assert.Contains(t, show, "Funds: 199.50 denarii")
}

func (h *harness) run2(t *testing.T, actor arenadomain.CharacterID, command string) string {
	t.Helper()
	ok, msg := h.builder.BuildingCommand(context.Background(), actor, h.arena, command)
	require.Truef(t, ok, "%q: %s", command, msg)
	return msg
}

func TestClassCommands(t *testing.T) {
	h := newHarness(t)

	ok, msg := h.builder.BuildingCommand(context.Background(), manager, h.arena, "class create Heavyweight missing")
	assert.False(t, ok)
	assert.Equal(t, `"missing": program not found.`, msg)

	ok, msg = h.builder.BuildingCommand(context.Background(), manager, h.arena, "program set broken return 42")
	assert.False(t, ok)
	assert.Contains(t, msg, "Program is invalid")

	h.run(t,
		"program set anyone return function(c) return true end",
		"class create Heavyweight anyone",
		`class desc Heavyweight "Big and slow"`,
		"class resurrect Heavyweight on",
		"class stagename Heavyweight The {name}",
		"class colour Heavyweight RED",
	)
	msg = h.run(t, `class rename Heavyweight Super Heavyweight`)
	assert.Equal(t, "Renamed Heavyweight to Super Heavyweight.", msg)

	info := h.info(t)
	require.Len(t, info.Classes, 1)
	assert.Equal(t, "Super Heavyweight", info.Classes[0].Name)

	h.run(t, `type create Duel`, `side class Duel 1 "Super Heavyweight"`)
	ok, msg = h.builder.BuildingCommand(context.Background(), manager, h.arena, `class delete "Super Heavyweight"`)
	assert.False(t, ok)
	assert.Contains(t, msg, "still eligible")

	h.run(t, `side class Duel 1 "Super Heavyweight"`, `class delete "Super Heavyweight"`)
	assert.Empty(t, h.info(t).Classes)
}

func TestTypeAndSideCommands(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	h.run(t,
		`type registration "Grand Melee" 2h`,
		`type preparation "Grand Melee" 15`,
		`type timelimit "Grand Melee" 45m`,
		`type betting "Grand Melee" parimutuel`,
		`type appearance "Grand Melee" 10`,
		`type victory "Grand Melee" 100`,
		`type intro "Grand Melee" anyone`,
		`type intro "Grand Melee" none`,
		`side capacity "Grand Melee" 2 4`,
		`side policy "Grand Melee" 2 reserved`,
		`side rating "Grand Melee" 1 1200 none`,
		`side npc "Grand Melee" 2 on`,
		`side autofill "Grand Melee" 2 on`,
		`side class "Grand Melee" 1 Heavyweight`,
		`side outfit "Grand Melee" 1 anyone`,
	)

	info := h.info(t)
	require.Len(t, info.EventTypes, 1)
	assert.Equal(t, 2, info.EventTypes[0].Sides)
	assert.True(t, info.ReadyToHost)

	msg := h.run(t, `side add "Grand Melee"`)
	assert.Equal(t, "Added side 3 to Grand Melee.", msg)
	msg = h.run(t, `side remove "Grand Melee" 1`)
	assert.Equal(t, "Removed side 1 from Grand Melee; 2 remain.", msg)

	ok, msg := h.builder.BuildingCommand(context.Background(), manager, h.arena, `side rating "Grand Melee" 1 1500 1000`)
	assert.False(t, ok)
	assert.Equal(t, "Minimum rating cannot exceed maximum rating.", msg)

	ok, msg = h.builder.BuildingCommand(context.Background(), manager, h.arena, `side capacity "Grand Melee" 9 2`)
	assert.False(t, ok)
	assert.Contains(t, msg, "side not found")

	msg = h.run(t, `type clone "Grand Melee" Skirmish`)
	assert.Equal(t, "Cloned Grand Melee as Skirmish.", msg)
	h.run(t, "type delete Skirmish")

	info = h.info(t)
	require.Len(t, info.EventTypes, 1)
	assert.Equal(t, "Grand Melee", info.EventTypes[0].Name)
}

func TestTypeAutoSchedule(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	msg := h.run(t, `type autoschedule "Grand Melee" 24h 2026-06-02 20:00`)
	assert.Contains(t, msg, "recurs every 24h0m0s")
	assert.True(t, h.info(t).EventTypes[0].AutoSchedule)

	msg = h.run(t, `type autoschedule "Grand Melee" off`)
	assert.Equal(t, "Grand Melee is no longer scheduled automatically.", msg)
	assert.False(t, h.info(t).EventTypes[0].AutoSchedule)
}

func TestEventCommands(t *testing.T) {
	h := newHarness(t)
	h.ready(t)

	msg := h.run(t, `event schedule "Grand Melee" in 3h`)
	assert.Contains(t, msg, "Scheduled Grand Melee event #")

	info := h.info(t)
	require.Len(t, info.Events, 1)
	id := info.Events[0].ID
	assert.WithinDuration(t, h.clock.Now().Add(3*time.Hour), info.Events[0].ScheduledAt, time.Second)

	ok, msg := h.builder.BuildingCommand(context.Background(), manager, h.arena, `event schedule "Grand Melee" 2020-01-01 10:00`)
	assert.False(t, ok)
	assert.Equal(t, "Events must be scheduled in the future.", msg)

	ref := "#" + itoa(id)
	msg = h.run(t, "event advance "+ref+" open_registration")
	assert.Contains(t, msg, "moved from draft to registration_open")

	ok, msg = h.builder.BuildingCommand(context.Background(), manager, h.arena, "event advance "+ref+" complete")
	assert.False(t, ok)
	assert.Contains(t, msg, "cannot complete")

	msg = h.run(t, "event reserve "+ref+" 2 character 3 30m")
	assert.Contains(t, msg, "holds side 2 of event")
	ev, err := h.svc.GetEvent(context.Background(), h.arena, id)
	require.NoError(t, err)
	assert.Equal(t, 1, ev.Reservations)

	ok, msg = h.builder.BuildingCommand(context.Background(), manager, h.arena, "event unreserve "+ref+" 999")
	assert.False(t, ok)
	assert.Contains(t, msg, "eservation not found")

	ok, msg = h.builder.BuildingCommand(context.Background(), manager, h.arena, "event archive "+ref)
	assert.False(t, ok)
	assert.Contains(t, msg, "has not finished")

	msg = h.run(t, "event abort "+ref+" rain")
	assert.Equal(t, "Event "+ref+" aborted.", msg)

	show := h.run(t, "event show "+ref)
	assert.Contains(t, show, "(aborted)")
	assert.Contains(t, show, "Aborted: rain")

	h.run(t, "event archive "+ref)
	assert.Empty(t, h.info(t).Events)
}

func TestEventOutcome(t *testing.T) {
	h := newHarness(t)
	h.ready(t)
	h.run(t, `event schedule "Grand Melee" in 1h`)
	id := h.info(t).Events[0].ID
	ref := itoa(id)

	ok, msg := h.builder.BuildingCommand(context.Background(), manager, h.arena, "event outcome "+ref+" aborted")
	assert.False(t, ok)
	assert.Contains(t, msg, "use the abort transition")

	msg = h.run(t, "event outcome "+ref+" victory 2")
	assert.Equal(t, "Event #"+ref+" recorded as victory for side 2.", msg)

	ok, msg = h.builder.BuildingCommand(context.Background(), manager, h.arena, "event outcome "+ref+" draw")
	assert.False(t, ok)
	assert.Contains(t, msg, "already has an outcome")

	ok, msg = h.builder.BuildingCommand(context.Background(), manager, h.arena, "event abort "+ref)
	assert.False(t, ok)
	assert.Equal(t, "Event #"+ref+" already has an outcome and cannot be aborted.", msg)
}
