package arenahandlers

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	arenaservice "github.com/Black-And-White-Club/arena-engine/app/modules/arena/application"
	arenadomain "github.com/Black-And-White-Club/arena-engine/app/modules/arena/domain"
	arenaevents "github.com/Black-And-White-Club/arena-engine/app/shared/events/arena"
	"github.com/Black-And-White-Club/arena-engine/app/shared/handlerwrapper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace/noop"
)

func newTestHandlers(svc *FakeArenaService, cmd *FakeCommander) Handlers {
	return NewArenaHandlers(svc, cmd, slog.New(slog.DiscardHandler), noop.NewTracerProvider().Tracer("test"))
}

func TestHandleSignupRequested(t *testing.T) {
	payload := &arenaevents.SignupRequestedPayloadV1{ArenaID: 3, EventID: 8, CharacterID: 21, SideIndex: 1}

	tests := []struct {
		name         string
		setupService func(*FakeArenaService)
		wantTopic    string
		wantReason   string
		wantErr      bool
	}{
		{
			name: "accepted",
			setupService: func(f *FakeArenaService) {
				f.SignUpFunc = func(_ context.Context, _ arenadomain.ArenaID, _ arenadomain.EventID, ch arenadomain.CharacterID, side int, _ arenadomain.ClassID) (*arenaservice.ParticipantInfo, error) {
					return &arenaservice.ParticipantInfo{SignupID: 55, CharacterID: ch, SideIndex: side, Class: "Heavyweight", StageName: "The Hammer"}, nil
				}
			},
			wantTopic: arenaevents.SignupAcceptedV1,
		},
		{
			name: "rejected by a signup rule",
			setupService: func(f *FakeArenaService) {
				f.SignUpFunc = func(context.Context, arenadomain.ArenaID, arenadomain.EventID, arenadomain.CharacterID, int, arenadomain.ClassID) (*arenaservice.ParticipantInfo, error) {
					return nil, &arenadomain.SignupRejectedError{Reason: "that side is full"}
				}
			},
			wantTopic:  arenaevents.SignupRejectedV1,
			wantReason: "that side is full",
		},
		{
			name: "unknown event",
			setupService: func(f *FakeArenaService) {
				f.SignUpFunc = func(context.Context, arenadomain.ArenaID, arenadomain.EventID, arenadomain.CharacterID, int, arenadomain.ClassID) (*arenaservice.ParticipantInfo, error) {
					return nil, arenadomain.ErrEventNotFound
				}
			},
			wantTopic:  arenaevents.SignupRejectedV1,
			wantReason: "event not found",
		},
		{
			name: "infrastructure error",
			setupService: func(f *FakeArenaService) {
				f.SignUpFunc = func(context.Context, arenadomain.ArenaID, arenadomain.EventID, arenadomain.CharacterID, int, arenadomain.ClassID) (*arenaservice.ParticipantInfo, error) {
					return nil, errors.New("connection reset")
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFakeArenaService()
			tt.setupService(svc)

			results, err := newTestHandlers(svc, &FakeCommander{}).HandleSignupRequested(context.Background(), payload)
			assert.Equal(t, []string{"SignUp"}, svc.Trace())
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, results)
				return
			}
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, tt.wantTopic, results[0].Topic)

			switch p := results[0].Payload.(type) {
			case *arenaevents.SignupAcceptedPayloadV1:
				assert.Equal(t, int64(55), p.SignupID)
				assert.Equal(t, 1, p.SideIndex)
				assert.Equal(t, "The Hammer", p.StageName)
			case *arenaevents.SignupRejectedPayloadV1:
				assert.Equal(t, tt.wantReason, p.Reason)
				assert.Equal(t, int64(21), p.CharacterID)
			default:
				t.Fatalf("unexpected payload %T", p)
			}
		})
	}
}

func TestHandleSignupRequested_ReplyTo(t *testing.T) {
	ctx := context.WithValue(context.Background(), handlerwrapper.CtxKeyReplyTo, "_INBOX.abc")
	results, err := newTestHandlers(NewFakeArenaService(), &FakeCommander{}).HandleSignupRequested(ctx, &arenaevents.SignupRequestedPayloadV1{ArenaID: 1, EventID: 2, CharacterID: 3})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "_INBOX.abc", results[0].Topic)
}

func TestHandleWithdrawRequested(t *testing.T) {
	tests := []struct {
		name          string
		withdraw      func(context.Context, arenadomain.ArenaID, arenadomain.EventID, arenadomain.CharacterID) (bool, error)
		wantWithdrawn bool
		wantReason    string
		wantErr       bool
	}{
		{
			name:          "withdrawn",
			withdraw:      func(context.Context, arenadomain.ArenaID, arenadomain.EventID, arenadomain.CharacterID) (bool, error) { return true, nil },
			wantWithdrawn: true,
		},
		{
			name:       "not signed up",
			withdraw:   func(context.Context, arenadomain.ArenaID, arenadomain.EventID, arenadomain.CharacterID) (bool, error) { return false, nil },
			wantReason: "not signed up",
		},
		{
			name: "registration closed",
			withdraw: func(context.Context, arenadomain.ArenaID, arenadomain.EventID, arenadomain.CharacterID) (bool, error) {
				return false, arenadomain.ErrWithdrawClosed
			},
			wantReason: "withdrawals are closed for this event",
		},
		{
			name: "infrastructure error",
			withdraw: func(context.Context, arenadomain.ArenaID, arenadomain.EventID, arenadomain.CharacterID) (bool, error) {
				return false, errors.New("deadlock detected")
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewFakeArenaService()
			svc.WithdrawFunc = tt.withdraw

			results, err := newTestHandlers(svc, &FakeCommander{}).HandleWithdrawRequested(context.Background(),
				&arenaevents.WithdrawRequestedPayloadV1{ArenaID: 3, EventID: 8, CharacterID: 21})
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, results, 1)
			assert.Equal(t, arenaevents.WithdrawCompletedV1, results[0].Topic)
			p, ok := results[0].Payload.(*arenaevents.WithdrawCompletedPayloadV1)
			require.True(t, ok)
			assert.Equal(t, tt.wantWithdrawn, p.Withdrawn)
			assert.Equal(t, tt.wantReason, p.Reason)
		})
	}
}

func TestHandleBuilderCommand(t *testing.T) {
	cmd := &FakeCommander{OK: false, Reply: "Only managers of Colosseum may do that."}
	svc := NewFakeArenaService()

	results, err := newTestHandlers(svc, cmd).HandleBuilderCommand(context.Background(),
		&arenaevents.BuilderCommandPayloadV1{ArenaID: 3, ActorID: 9, Command: "arena show"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, arenaevents.BuilderResultV1, results[0].Topic)
	assert.Equal(t, &arenaevents.BuilderResultPayloadV1{
		ArenaID: 3,
		ActorID: 9,
		Command: "arena show",
		OK:      false,
		Message: "Only managers of Colosseum may do that.",
	}, results[0].Payload)
	assert.Equal(t, []string{"arena show"}, cmd.calls)
	assert.Empty(t, svc.Trace())
}
