package arenaservice

import (
	"context"

	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
)

type managerKey struct{}

// AsManager marks ctx as acting for id. Every arena operation run with the
// returned context checks, inside its transaction, that id still manages the
// arena and fails with ErrNotManager otherwise.
func AsManager(ctx context.Context, id arenadomain.CharacterID) context.Context {
	return context.WithValue(ctx, managerKey{}, id)
}

func managerFrom(ctx context.Context) (arenadomain.CharacterID, bool) {
	id, ok := ctx.Value(managerKey{}).(arenadomain.CharacterID)
	return id, ok
}
