package arenahandlers

import (
	"context"
	"errors"
	"log/slog"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	arenaevents "github.com/Black-And-White-Club/arena-engine/app/shared/events/arena"
	"github.com/Black-And-White-Club/arena-engine/app/shared/handlerwrapper"
	"go.opentelemetry.io/otel/trace"
)

// Commander runs builder command lines.
type Commander interface {
	BuildingCommand(ctx context.Context, actor arenadomain.CharacterID, arenaID arenadomain.ArenaID, command string) (bool, string)
}

// ArenaHandlers implements the Handlers interface.
type ArenaHandlers struct {
	service arenaservice.Service
	builder Commander
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewArenaHandlers creates a new ArenaHandlers instance.
func NewArenaHandlers(
	service arenaservice.Service,
	builder Commander,
	logger *slog.Logger,
	tracer trace.Tracer,
) Handlers {
	return &ArenaHandlers{
		service: service,
		builder: builder,
		logger:  logger,
		tracer:  tracer,
	}
}

// replyTopic prefers the request's reply_to over the default topic.
func replyTopic(ctx context.Context, fallback string) string {
	if rt, ok := ctx.Value(handlerwrapper.CtxKeyReplyTo).(string); ok && rt != "" {
		return rt
	}
	return fallback
}

// rejectionReason is the player-facing part of a refused request.
func rejectionReason(err error) string {
	var rejected *arenadomain.SignupRejectedError
	if errors.As(err, &rejected) {
		return rejected.Reason
	}
	return err.Error()
}

// HandleSignupRequested enters a character on an event. Business refusals
// are answered with SignupRejected; anything else is returned for redelivery.
func (h *ArenaHandlers) HandleSignupRequested(ctx context.Context, payload *arenaevents.SignupRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "ArenaHandlers.HandleSignupRequested")
	defer span.End()

	logger := h.logger.With(
		attr.ExtractCorrelationID(ctx),
		attr.Int64("arena_id", payload.ArenaID),
		attr.Int64("event_id", payload.EventID),
		attr.Int64("character_id", payload.CharacterID),
	)
	logger.InfoContext(ctx, "Signup request received", attr.Int("side_index", payload.SideIndex))

	info, err := h.service.SignUp(ctx,
		arenadomain.ArenaID(payload.ArenaID),
		arenadomain.EventID(payload.EventID),
		arenadomain.CharacterID(payload.CharacterID),
		payload.SideIndex,
		arenadomain.ClassID(payload.ClassID),
	)
	if err != nil {
		if !arenaservice.IsDomainFailure(err) {
			logger.ErrorContext(ctx, "Signup failed", attr.Error(err))
			return nil, err
		}
		reason := rejectionReason(err)
		logger.InfoContext(ctx, "Signup rejected", attr.String("reason", reason))
		return []handlerwrapper.Result{{
			Topic: replyTopic(ctx, arenaevents.SignupRejectedV1),
			Payload: &arenaevents.SignupRejectedPayloadV1{
				ArenaID:     payload.ArenaID,
				EventID:     payload.EventID,
				CharacterID: payload.CharacterID,
				Reason:      reason,
			},
		}}, nil
	}

	logger.InfoContext(ctx, "Signup accepted",
		attr.Int64("signup_id", int64(info.SignupID)),
		attr.String("class", info.Class),
	)
	return []handlerwrapper.Result{{
		Topic: replyTopic(ctx, arenaevents.SignupAcceptedV1),
		Payload: &arenaevents.SignupAcceptedPayloadV1{
			ArenaID:     payload.ArenaID,
			EventID:     payload.EventID,
			CharacterID: payload.CharacterID,
			SignupID:    int64(info.SignupID),
			SideIndex:   info.SideIndex,
			Class:       info.Class,
			StageName:   info.StageName,
		},
	}}, nil
}

// HandleWithdrawRequested removes a character from an event.
func (h *ArenaHandlers) HandleWithdrawRequested(ctx context.Context, payload *arenaevents.WithdrawRequestedPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "ArenaHandlers.HandleWithdrawRequested")
	defer span.End()

	logger := h.logger.With(
		attr.ExtractCorrelationID(ctx),
		attr.Int64("arena_id", payload.ArenaID),
		attr.Int64("event_id", payload.EventID),
		attr.Int64("character_id", payload.CharacterID),
	)

	reply := &arenaevents.WithdrawCompletedPayloadV1{
		ArenaID:     payload.ArenaID,
		EventID:     payload.EventID,
		CharacterID: payload.CharacterID,
	}
	withdrawn, err := h.service.Withdraw(ctx,
		arenadomain.ArenaID(payload.ArenaID),
		arenadomain.EventID(payload.EventID),
		arenadomain.CharacterID(payload.CharacterID),
	)
	switch {
	case err == nil:
		reply.Withdrawn = withdrawn
		if !withdrawn {
			reply.Reason = "not signed up"
		}
	case arenaservice.IsDomainFailure(err):
		reply.Reason = err.Error()
	default:
		logger.ErrorContext(ctx, "Withdraw failed", attr.Error(err))
		return nil, err
	}

	logger.InfoContext(ctx, "Withdraw handled",
		attr.Bool("withdrawn", reply.Withdrawn),
		attr.String("reason", reply.Reason),
	)
	return []handlerwrapper.Result{{
		Topic:   replyTopic(ctx, arenaevents.WithdrawCompletedV1),
		Payload: reply,
	}}, nil
}

// HandleBuilderCommand runs a builder command. The builder answers every
// command itself, so this never asks for redelivery.
func (h *ArenaHandlers) HandleBuilderCommand(ctx context.Context, payload *arenaevents.BuilderCommandPayloadV1) ([]handlerwrapper.Result, error) {
	ctx, span := h.tracer.Start(ctx, "ArenaHandlers.HandleBuilderCommand")
	defer span.End()

	ok, msg := h.builder.BuildingCommand(ctx,
		arenadomain.CharacterID(payload.ActorID),
		arenadomain.ArenaID(payload.ArenaID),
		payload.Command,
	)

	return []handlerwrapper.Result{{
		Topic: replyTopic(ctx, arenaevents.BuilderResultV1),
		Payload: &arenaevents.BuilderResultPayloadV1{
			ArenaID: payload.ArenaID,
			ActorID: payload.ActorID,
			Command: payload.Command,
			OK:      ok,
			Message: msg,
		},
	}}, nil
}
