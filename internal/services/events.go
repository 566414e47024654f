package services

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"farah_app_echo/internal/models"
)

// PaymentStatusChanged is emitted whenever a booking's payment status moves
type PaymentStatusChanged struct {
	BookingID     string               `json:"booking_id"`
	BookingType   models.BookingKind   `json:"booking_type"`
	ResourceID    string               `json:"resource_id"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	PaymentID     string               `json:"payment_id,omitempty"`
	RefundID      string               `json:"refund_id,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// EventPublisher feeds payment status changes to subscribers (owner
// dashboards, analytics).
type EventPublisher interface {
	PublishPaymentStatusChanged(ctx context.Context, event PaymentStatusChanged) error
}

// messageWriter is the part of kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaEventPublisher writes one JSON message per change, keyed by booking id
// so that a booking's events stay ordered within a partition.
type KafkaEventPublisher struct {
	writer messageWriter
}

func NewKafkaEventPublisher(brokers, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(strings.Split(brokers, ",")...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaEventPublisher) PublishPaymentStatusChanged(ctx context.Context, event PaymentStatusChanged) error {
	value, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.BookingID),
		Value: value,
	})
}

func (p *KafkaEventPublisher) Close() error {
	return p.writer.Close()
}

// NopEventPublisher is used when no broker is configured
type NopEventPublisher struct{}

func (NopEventPublisher) PublishPaymentStatusChanged(context.Context, PaymentStatusChanged) error {
	return nil
}
