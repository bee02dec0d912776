// Package queue declares the RabbitMQ topology used to hand delivery
// outcomes to the audit pipeline.
package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/wb-go/wbf/rabbitmq"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/clinic-notifier/internal/config"
	"github.com/aliskhannn/clinic-notifier/internal/model"
)

const contentType = "application/json"

// Retries are owned by the outcome publisher, so each write is one attempt.
var singleAttempt = retry.Strategy{Attempts: 1}

// OutcomeQueue publishes delivery outcomes to a durable audit queue.
type OutcomeQueue struct {
	publisher  *rabbitmq.Publisher
	routingKey string
}

// NewOutcomeQueue declares the audit exchange and queue on ch and binds them.
func NewOutcomeQueue(ch *rabbitmq.Channel, cfg config.RabbitMQ) (*OutcomeQueue, error) {
	exchange := rabbitmq.NewExchange(cfg.Exchange, "direct")
	if err := exchange.BindToChannel(ch); err != nil {
		return nil, fmt.Errorf("failed to bind to exchange: %w", err)
	}

	qm := rabbitmq.NewQueueManager(ch)

	q, err := qm.DeclareQueue(cfg.Queue, rabbitmq.QueueConfig{Durable: true})
	if err != nil {
		return nil, fmt.Errorf("failed to declare audit queue: %w", err)
	}

	if err := ch.QueueBind(q.Name, cfg.RoutingKey, exchange.Name(), false, nil); err != nil {
		return nil, fmt.Errorf("failed to bind the exchange to the audit queue: %w", err)
	}

	return &OutcomeQueue{
		publisher:  rabbitmq.NewPublisher(ch, exchange.Name()),
		routingKey: cfg.RoutingKey,
	}, nil
}

// Write publishes one outcome as JSON.
func (q *OutcomeQueue) Write(ctx context.Context, outcome model.DeliveryOutcome) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := Encode(outcome)
	if err != nil {
		return err
	}

	return q.publisher.PublishWithRetry(body, q.routingKey, contentType, singleAttempt)
}

// Encode renders an outcome as the audit message body.
func Encode(outcome model.DeliveryOutcome) ([]byte, error) {
	body, err := json.Marshal(outcome)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal outcome: %w", err)
	}
	return body, nil
}
