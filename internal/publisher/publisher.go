// Package publisher hands delivery outcomes to the audit collaborator
// without ever holding up the delivery path.
package publisher

import (
	"context"
	"time"

	"github.com/wb-go/wbf/retry"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/clinic-notifier/internal/metrics"
	"github.com/aliskhannn/clinic-notifier/internal/model"
)

// Sink delivers one outcome event to an external system.
type Sink interface {
	Write(ctx context.Context, outcome model.DeliveryOutcome) error
}

// Publisher buffers outcome events and writes them to a Sink from a single
// background goroutine.
type Publisher struct {
	events       chan model.DeliveryOutcome
	sink         Sink
	strategy     retry.Strategy
	drainTimeout time.Duration
	metrics      *metrics.Metrics
}

// New creates a Publisher holding up to bufferSize pending events.
func New(sink Sink, bufferSize int, strategy retry.Strategy, drainTimeout time.Duration, m *metrics.Metrics) *Publisher {
	if bufferSize < 1 {
		bufferSize = 1
	}

	return &Publisher{
		events:       make(chan model.DeliveryOutcome, bufferSize),
		sink:         sink,
		strategy:     strategy,
		drainTimeout: drainTimeout,
		metrics:      m,
	}
}

// Publish enqueues the outcome of n. It never blocks: when the buffer is
// full the event is dropped and logged.
func (p *Publisher) Publish(n model.Notification) {
	outcome := model.NewDeliveryOutcome(n)

	select {
	case p.events <- outcome:
		p.metrics.PublisherQueue(len(p.events))
	default:
		p.metrics.Published("dropped")
		zlog.Logger.Warn().
			Str("id", outcome.NotificationID.String()).
			Str("status", outcome.Status.String()).
			Msg("outcome buffer full, event dropped")
	}
}

// Run writes buffered events until ctx is cancelled, then drains what is
// left within the drain timeout.
func (p *Publisher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.drain()
			return
		case outcome := <-p.events:
			p.deliver(ctx, outcome)
		}
	}
}

func (p *Publisher) drain() {
	ctx, cancel := context.WithTimeout(context.Background(), p.drainTimeout)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			if left := len(p.events); left > 0 {
				zlog.Logger.Warn().Int("left", left).Msg("outcome drain timed out")
			}
			return
		case outcome := <-p.events:
			p.deliver(ctx, outcome)
		default:
			return
		}
	}
}

func (p *Publisher) deliver(ctx context.Context, outcome model.DeliveryOutcome) {
	p.metrics.PublisherQueue(len(p.events))

	err := retry.Do(func() error {
		return p.sink.Write(ctx, outcome)
	}, p.strategy)
	if err != nil {
		p.metrics.Published("failed")
		zlog.Logger.Error().
			Err(err).
			Str("id", outcome.NotificationID.String()).
			Str("status", outcome.Status.String()).
			Msg("failed to publish delivery outcome")
		return
	}

	p.metrics.Published("delivered")
}
