// Package kafka writes delivery outcomes to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/aliskhannn/clinic-notifier/internal/model"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes outcomes keyed by notification id, so all events of
// one notification land on the same partition in order.
type Producer struct {
	writer messageWriter
}

// NewProducer creates a producer for topic on brokers.
func NewProducer(brokers []string, topic string) *Producer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}
	return &Producer{writer: w}
}

// Write sends one outcome.
func (p *Producer) Write(ctx context.Context, outcome model.DeliveryOutcome) error {
	value, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("failed to marshal outcome: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(outcome.NotificationID.String()),
		Value: value,
		Time:  outcome.OccurredAt,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write outcome: %w", err)
	}

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	return p.writer.Close()
}
