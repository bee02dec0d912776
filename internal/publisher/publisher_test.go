package publisher

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/retry"

	"github.com/aliskhannn/clinic-notifier/internal/metrics"
	"github.com/aliskhannn/clinic-notifier/internal/model"
)

var strategy = retry.Strategy{Attempts: 3, Delay: time.Millisecond, Backoff: 1}

type memorySink struct {
	mu       sync.Mutex
	outcomes []model.DeliveryOutcome
	failures int
	calls    int
}

func (s *memorySink) Write(_ context.Context, o model.DeliveryOutcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	if s.failures > 0 {
		s.failures--
		return errors.New("broker unavailable")
	}
	s.outcomes = append(s.outcomes, o)
	return nil
}

func (s *memorySink) written() []model.DeliveryOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.DeliveryOutcome(nil), s.outcomes...)
}

func (s *memorySink) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func sent(correlationID string) model.Notification {
	return model.Notification{
		ID:            uuid.New(),
		Channel:       model.ChannelEmail,
		Recipient:     "patient@example.com",
		Content:       "secret",
		Status:        model.StatusSent,
		AttemptCount:  1,
		MaxAttempts:   3,
		CorrelationID: correlationID,
		UpdatedAt:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_DeliversOutcomes(t *testing.T) {
	sink := &memorySink{}
	p := New(sink, 10, strategy, time.Second, metrics.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	n := sent("appointment-7")
	p.Publish(n)

	require.Eventually(t, func() bool { return len(sink.written()) == 1 }, time.Second, 5*time.Millisecond)

	got := sink.written()[0]
	assert.Equal(t, n.ID, got.NotificationID)
	assert.Equal(t, model.StatusSent, got.Status)
	assert.Equal(t, "appointment-7", got.CorrelationID)
	assert.Equal(t, n.UpdatedAt, got.OccurredAt)
}

func TestPublisher_RetriesSink(t *testing.T) {
	sink := &memorySink{failures: 2}
	p := New(sink, 10, strategy, time.Second, metrics.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Publish(sent(""))

	require.Eventually(t, func() bool { return len(sink.written()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 3, sink.callCount())
}

func TestPublisher_SinkFailureIsSwallowed(t *testing.T) {
	sink := &memorySink{failures: 100}
	p := New(sink, 10, strategy, time.Second, metrics.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go p.Run(ctx)

	p.Publish(sent(""))
	p.Publish(sent(""))

	require.Eventually(t, func() bool { return sink.callCount() == 6 }, time.Second, 5*time.Millisecond)
	assert.Empty(t, sink.written())
}

func TestPublisher_PublishNeverBlocks(t *testing.T) {
	sink := &memorySink{}
	p := New(sink, 2, strategy, time.Second, metrics.NewNop())

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			p.Publish(sent(""))
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked with no consumer running")
	}

	assert.Len(t, p.events, 2, "events beyond the buffer are dropped")
}

func TestPublisher_DrainsOnShutdown(t *testing.T) {
	sink := &memorySink{}
	p := New(sink, 10, strategy, time.Second, metrics.NewNop())

	for i := 0; i < 5; i++ {
		p.Publish(sent(""))
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p.Run(ctx)

	assert.Len(t, sink.written(), 5)
}

func TestLogSink(t *testing.T) {
	n := sent("evt")
	n.Status = model.StatusDead
	n.LastError = &model.DeliveryError{Kind: model.ErrorPermanent, Message: "recipient unreachable"}

	assert.NoError(t, LogSink{}.Write(context.Background(), model.NewDeliveryOutcome(n)))
}
