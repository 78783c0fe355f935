package eventbus

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/Black-And-White-Club/arena-engine/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *message.Message) *message.Message {
	t.Helper()
	select {
	case m := <-ch:
		m.Ack()
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
		return nil
	}
}

func TestInMemory_PublishRoutesOnMetadata(t *testing.T) {
	bus := NewInMemory(slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = bus.Close() })

	ctx := context.Background()
	accepted, err := bus.Subscribe(ctx, "arena.signup.accepted")
	require.NoError(t, err)
	rejected, err := bus.Subscribe(ctx, "arena.signup.rejected")
	require.NoError(t, err)

	a := message.NewMessage(watermill.NewUUID(), []byte(`{"n":1}`))
	a.Metadata.Set(handlerwrapper.MetadataTopic, "arena.signup.accepted")
	r := message.NewMessage(watermill.NewUUID(), []byte(`{"n":2}`))
	r.Metadata.Set(handlerwrapper.MetadataTopic, "arena.signup.rejected")

	require.NoError(t, bus.Publish("", a, r))

	assert.Equal(t, a.UUID, receive(t, accepted).UUID)
	assert.Equal(t, r.UUID, receive(t, rejected).UUID)
}

func TestInMemory_ExplicitTopicWins(t *testing.T) {
	bus := NewInMemory(slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = bus.Close() })

	ch, err := bus.Subscribe(context.Background(), "arena.builder.result")
	require.NoError(t, err)

	m := message.NewMessage(watermill.NewUUID(), nil)
	m.Metadata.Set(handlerwrapper.MetadataTopic, "somewhere.else")
	require.NoError(t, bus.Publish("arena.builder.result", m))

	assert.Equal(t, m.UUID, receive(t, ch).UUID)
}

func TestInMemory_MissingTopic(t *testing.T) {
	bus := NewInMemory(slog.New(slog.DiscardHandler))
	t.Cleanup(func() { _ = bus.Close() })

	err := bus.Publish("", message.NewMessage(watermill.NewUUID(), nil))
	assert.ErrorIs(t, err, ErrNoTopic)
	assert.NoError(t, bus.CreateStream(context.Background(), StreamName, StreamSubjects))
}

func TestMissingSubjects(t *testing.T) {
	assert.Equal(t, []string{"b.>"}, missingSubjects([]string{"a.>"}, []string{"a.>", "b.>"}))
	assert.Nil(t, missingSubjects([]string{"a.>"}, []string{"a.>"}))
}
