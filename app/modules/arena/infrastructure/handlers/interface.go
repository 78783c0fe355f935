package arenahandlers

import (
	"context"

	arenaevents "github.com/Black-And-White-Club/arena-engine/app/shared/events/arena"
	"github.com/Black-And-White-Club/arena-engine/app/shared/handlerwrapper"
)

// Handlers defines the interface for arena event handlers.
type Handlers interface {
	// HandleSignupRequested enters a character and answers with an accepted
	// or rejected event.
	HandleSignupRequested(ctx context.Context, payload *arenaevents.SignupRequestedPayloadV1) ([]handlerwrapper.Result, error)

	HandleWithdrawRequested(ctx context.Context, payload *arenaevents.WithdrawRequestedPayloadV1) ([]handlerwrapper.Result, error)

	// HandleBuilderCommand runs one builder command line for a manager.
	HandleBuilderCommand(ctx context.Context, payload *arenaevents.BuilderCommandPayloadV1) ([]handlerwrapper.Result, error)
}
