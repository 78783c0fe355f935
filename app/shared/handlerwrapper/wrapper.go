// Package handlerwrapper adapts typed handlers to watermill handler funcs.
package handlerwrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Black-And-White-Club/arena-engine/app/shared/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// MetadataTopic names the topic a produced message is published to. The
	// event bus routes on it when the router publishes with an empty topic.
	MetadataTopic = "topic"

	MetadataCorrelationID = "correlation_id"
	MetadataReplyTo       = "reply_to"
)

type ctxKey string

// CtxKeyReplyTo holds the inbound reply_to metadata, when present.
const CtxKeyReplyTo ctxKey = "reply_to"

// Result is one message a handler wants published.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// WrapTransformingTyped decodes the inbound JSON payload into T, runs handler,
// and encodes every Result into an outbound message. Decode failures are
// logged and acked so a malformed message is not redelivered forever.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	handler func(ctx context.Context, payload *T) ([]Result, error),
) message.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer(handlerName)
	}
	return func(msg *message.Message) ([]*message.Message, error) {
		ctx, span := tracer.Start(msg.Context(), handlerName, trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
		))
		defer span.End()

		correlationID := msg.Metadata.Get(MetadataCorrelationID)
		if correlationID == "" {
			correlationID = msg.UUID
		}
		ctx = attr.WithCorrelationID(ctx, correlationID)
		if rt := msg.Metadata.Get(MetadataReplyTo); rt != "" {
			ctx = context.WithValue(ctx, CtxKeyReplyTo, rt)
		}

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.ErrorContext(ctx, "Failed to decode message payload",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.Error(err),
			)
			span.RecordError(err)
			return nil, nil
		}

		results, err := handler(ctx, payload)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("%s: %w", handlerName, err)
		}

		out := make([]*message.Message, 0, len(results))
		for _, r := range results {
			m, err := NewMessage(ctx, r)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", handlerName, err)
			}
			out = append(out, m)
		}
		return out, nil
	}
}

// NewMessage encodes r into a watermill message carrying the correlation id
// of ctx.
func NewMessage(ctx context.Context, r Result) (*message.Message, error) {
	body, err := json.Marshal(r.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload for %s: %w", r.Topic, err)
	}
	m := message.NewMessage(watermill.NewUUID(), body)
	for k, v := range r.Metadata {
		m.Metadata.Set(k, v)
	}
	m.Metadata.Set(MetadataTopic, r.Topic)
	if id := attr.CorrelationID(ctx); id != "" {
		m.Metadata.Set(MetadataCorrelationID, id)
	}
	return m, nil
}
