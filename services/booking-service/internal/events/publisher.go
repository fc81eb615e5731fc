package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/cronosflow/cronosflow/libs/kafkax"
)

// Event types published by the booking service. Topic name == event type.
const (
	AppointmentCreated   = "booking.appointment.created.v1"
	AppointmentUpdated   = "booking.appointment.updated.v1"
	AppointmentCancelled = "booking.appointment.cancelled.v1"
	NotificationSent     = "notification.sent.v1"
)

// Publisher emits domain events to Kafka. A nil or disabled publisher is
// safe to call; delivery is best effort and never blocks the request path
// beyond the write timeout.
type Publisher struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// NewPublisher returns a disabled publisher when brokers is empty.
func NewPublisher(brokers string, log *slog.Logger) *Publisher {
	list := kafkax.SplitBrokers(brokers)
	if len(list) == 0 {
		return &Publisher{log: log}
	}
	return &Publisher{
		log: log,
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(list...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchTimeout:           50 * time.Millisecond,
		},
	}
}

func (p *Publisher) Enabled() bool {
	return p != nil && p.writer != nil
}

// Publish sends one event keyed by aggregate id. Failures are logged, not
// returned; booking flow must not fail because the broker is down.
func (p *Publisher) Publish(ctx context.Context, eventType, aggregateID string, payload any) {
	if !p.Enabled() {
		return
	}
	value, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("event payload marshal failed", "event_type", eventType, "err", err)
		return
	}

	headers := kafkax.EventHeaders(uuid.NewString(), eventType)
	headers = kafkax.InjectTraceHeaders(ctx, headers)

	msg := kafka.Message{
		Topic:   eventType,
		Key:     []byte(aggregateID),
		Value:   value,
		Headers: headers,
		Time:    time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.log.Error("event publish failed", "event_type", eventType, "aggregate_id", aggregateID, "err", err)
		return
	}
	p.log.Debug("event published", "event_type", eventType, "aggregate_id", aggregateID)
}

func (p *Publisher) Close() error {
	if !p.Enabled() {
		return nil
	}
	return p.writer.Close()
}
