package arenadb

import (
	"context"
	"time"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type testProg struct {
	id     arenadomain.ProgramID
	result any
}

func (p testProg) ID() arenadomain.ProgramID                    { return p.id }
func (p testProg) Name() string                                 { return "test" }
func (p testProg) Execute(context.Context, ...any) (any, error) { return p.result, nil }

type testCharacter struct {
	id   arenadomain.CharacterID
	name string
}

func (c testCharacter) ID() arenadomain.CharacterID { return c.id }
func (c testCharacter) Name() string                { return c.name }
func (c testCharacter) IsNPC() bool                 { return false }
func (c testCharacter) Clans() []arenadomain.ClanID { return nil }
func (c testCharacter) IsAbleBodied() bool          { return true }
