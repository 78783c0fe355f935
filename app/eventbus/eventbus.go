// Package eventbus carries arena messages over NATS JetStream, or over an
// in-process channel when no broker is configured.
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/Black-And-White-Club/arena-engine/app/shared/handlerwrapper"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	nc "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// StreamName is the JetStream stream holding every arena subject.
	StreamName = "ARENA"
	// StreamSubjects matches every arena topic.
	StreamSubjects = "arena.>"

	queueGroup = "arena-engine"
)

// ErrNoTopic is returned when a message is published without a topic and
// carries no topic metadata either.
var ErrNoTopic = errors.New("message has no topic")

// EventBus is the publisher and subscriber the arena module runs on.
type EventBus interface {
	message.Publisher
	message.Subscriber
	// CreateStream ensures a stream exists and covers subjects.
	CreateStream(ctx context.Context, streamName string, subjects ...string) error
}

type natsBus struct {
	publisher  message.Publisher
	subscriber message.Subscriber
	js         jetstream.JetStream
	conn       *nc.Conn
	logger     *slog.Logger

	mu      sync.Mutex
	streams map[string]bool
}

// NewEventBus connects to NATS and returns a JetStream backed EventBus.
// Streams are provisioned explicitly through CreateStream.
func NewEventBus(ctx context.Context, natsURL string, logger *slog.Logger) (EventBus, error) {
	conn, err := nc.Connect(natsURL, nc.RetryOnFailedConnect(true), nc.MaxReconnects(-1))
	if err != nil {
		logger.ErrorContext(ctx, "Failed to connect to NATS", attr.Error(err))
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize JetStream: %w", err)
	}

	wmLogger := watermill.NewSlogLogger(logger)
	marshaler := &nats.NATSMarshaler{}
	jsConfig := nats.JetStreamConfig{
		Disabled:      false,
		AutoProvision: false,
		DurablePrefix: queueGroup,
		DurableCalculator: func(prefix, topic string) string {
			return prefix + "_" + strings.NewReplacer(".", "_", "*", "any", ">", "all").Replace(topic)
		},
		SubscribeOptions: []nc.SubOpt{nc.DeliverNew(), nc.AckExplicit()},
	}

	publisher, err := nats.NewPublisher(
		nats.PublisherConfig{
			URL:               natsURL,
			Marshaler:         marshaler,
			NatsOptions:       []nc.Option{nc.RetryOnFailedConnect(true)},
			JetStream:         jsConfig,
			SubjectCalculator: nats.DefaultSubjectCalculator,
		},
		wmLogger,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create Watermill publisher: %w", err)
	}

	subscriber, err := nats.NewSubscriber(
		nats.SubscriberConfig{
			URL:               natsURL,
			QueueGroupPrefix:  queueGroup,
			SubscribersCount:  4,
			AckWaitTimeout:    30 * time.Second,
			Unmarshaler:       marshaler,
			NatsOptions:       []nc.Option{nc.RetryOnFailedConnect(true)},
			JetStream:         jsConfig,
			SubjectCalculator: nats.DefaultSubjectCalculator,
		},
		wmLogger,
	)
	if err != nil {
		_ = publisher.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to create Watermill subscriber: %w", err)
	}

	logger.InfoContext(ctx, "Connected to NATS", attr.String("url", conn.ConnectedUrlRedacted()))

	return &natsBus{
		publisher:  publisher,
		subscriber: subscriber,
		js:         js,
		conn:       conn,
		logger:     logger,
		streams:    make(map[string]bool),
	}, nil
}

// Publish sends messages to topic. An empty topic publishes each message to
// its own "topic" metadata, which is how router handlers address replies.
func (b *natsBus) Publish(topic string, msgs ...*message.Message) error {
	return publishRouted(b.publisher, topic, msgs)
}

func (b *natsBus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	b.logger.InfoContext(ctx, "Subscribing to subject", attr.String("subject", topic))
	return b.subscriber.Subscribe(ctx, topic)
}

func (b *natsBus) CreateStream(ctx context.Context, streamName string, subjects ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.streams[streamName] {
		return nil
	}

	stream, err := b.js.Stream(ctx, streamName)
	switch {
	case errors.Is(err, jetstream.ErrStreamNotFound):
		if _, err := b.js.CreateStream(ctx, jetstream.StreamConfig{
			Name:      streamName,
			Subjects:  subjects,
			Retention: jetstream.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
		}); err != nil {
			return fmt.Errorf("failed to create stream %s: %w", streamName, err)
		}
		b.logger.InfoContext(ctx, "Stream created",
			attr.String("stream_name", streamName),
			attr.Any("subjects", subjects),
		)
	case err != nil:
		return fmt.Errorf("failed to check stream %s: %w", streamName, err)
	default:
		info, err := stream.Info(ctx)
		if err != nil {
			return fmt.Errorf("failed to get stream info: %w", err)
		}
		missing := missingSubjects(info.Config.Subjects, subjects)
		if len(missing) > 0 {
			info.Config.Subjects = append(info.Config.Subjects, missing...)
			if _, err := b.js.UpdateStream(ctx, info.Config); err != nil {
				return fmt.Errorf("failed to update stream %s: %w", streamName, err)
			}
			b.logger.InfoContext(ctx, "Stream updated with new subjects",
				attr.String("stream_name", streamName),
				attr.Any("subjects", missing),
			)
		}
	}

	b.streams[streamName] = true
	return nil
}

func (b *natsBus) Close() error {
	var errs []error
	if err := b.publisher.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publisher: %w", err))
	}
	if err := b.subscriber.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close subscriber: %w", err))
	}
	b.conn.Close()
	return errors.Join(errs...)
}

func missingSubjects(have, want []string) []string {
	var missing []string
	for _, w := range want {
		found := false
		for _, h := range have {
			if h == w {
				found = true
				break
			}
		}
		if !found {
			missing = append(missing, w)
		}
	}
	return missing
}

// publishRouted groups messages by destination and publishes them in order.
func publishRouted(pub message.Publisher, topic string, msgs []*message.Message) error {
	if topic != "" {
		return pub.Publish(topic, msgs...)
	}
	for _, m := range msgs {
		t := m.Metadata.Get(handlerwrapper.MetadataTopic)
		if t == "" {
			return fmt.Errorf("%w: message %s", ErrNoTopic, m.UUID)
		}
		if err := pub.Publish(t, m); err != nil {
			return err
		}
	}
	return nil
}
