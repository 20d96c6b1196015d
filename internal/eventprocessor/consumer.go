// Sentinel - Behavioral Login Anomaly Detection
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/sentinel

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/tomtom215/sentinel/internal/detection"
	"github.com/tomtom215/sentinel/internal/logging"
	"github.com/tomtom215/sentinel/internal/metrics"
)

// Ingestor records one audit entry. *Processor satisfies it.
type Ingestor interface {
	Ingest(ctx context.Context, event *detection.AuditEvent) (*detection.Verdict, error)
}

// Consumer drains the audit topic into an Ingestor. It implements
// suture.Service.
type Consumer struct {
	subscriber message.Subscriber
	topic      string
	ingestor   Ingestor
}

// NewConsumer creates a consumer for topic.
func NewConsumer(subscriber message.Subscriber, topic string, ingestor Ingestor) *Consumer {
	return &Consumer{
		subscriber: subscriber,
		topic:      topic,
		ingestor:   ingestor,
	}
}

// Serve subscribes and handles messages until ctx is canceled. A closed
// message channel is returned as an error so the supervisor restarts the
// subscription.
func (c *Consumer) Serve(ctx context.Context) error {
	messages, err := c.subscriber.Subscribe(ctx, c.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", c.topic, err)
	}

	logging.Info().Str("topic", c.topic).Msg("Audit event consumer started")

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("subscription to %s closed", c.topic)
			}
			c.handle(ctx, msg)
		}
	}
}

// String names the service in supervisor logs.
func (c *Consumer) String() string {
	return "audit-consumer"
}

// handle processes one message and settles it exactly once.
func (c *Consumer) handle(ctx context.Context, msg *message.Message) {
	start := time.Now()
	metrics.NATSMessagesConsumed.Inc()
	defer func() { metrics.RecordNATSProcessingDuration(time.Since(start)) }()

	msgCtx := logging.ContextWithCorrelationID(ctx, msg.UUID)
	logger := logging.Ctx(msgCtx)

	wire, err := Unmarshal(msg.Payload)
	if err != nil {
		metrics.NATSMessagesParseFailed.Inc()
		logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping undecodable audit event")
		msg.Ack()
		return
	}

	event := wire.AuditEvent()
	if event.ID == "" {
		event.ID = msg.UUID
	}

	verdict, err := c.ingestor.Ingest(msgCtx, event)
	switch {
	case errors.Is(err, detection.ErrMalformedInput):
		metrics.NATSMessagesParseFailed.Inc()
		logger.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Dropping invalid audit event")
		msg.Ack()
	case err != nil:
		logger.Error().Err(err).Str("message_uuid", msg.UUID).Msg("Audit event processing failed, requesting redelivery")
		msg.Nack()
	default:
		metrics.NATSMessagesProcessed.Inc()
		if verdict != nil && verdict.Anomalous {
			logger.Info().
				Str("log_id", event.ID).
				Str("user_id", event.UserID).
				Str("reason", string(verdict.Reason)).
				Msg("Anomalous audit event")
		}
		msg.Ack()
	}
}
