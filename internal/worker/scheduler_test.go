package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/clinic-notifier/internal/backoff"
	"github.com/aliskhannn/clinic-notifier/internal/clock"
	"github.com/aliskhannn/clinic-notifier/internal/dispatcher"
	"github.com/aliskhannn/clinic-notifier/internal/metrics"
	mocks "github.com/aliskhannn/clinic-notifier/internal/mocks/worker"
	"github.com/aliskhannn/clinic-notifier/internal/model"
	"github.com/aliskhannn/clinic-notifier/internal/repository/memory"
	"github.com/aliskhannn/clinic-notifier/internal/sender"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type nopPublisher struct{}

func (nopPublisher) Publish(model.Notification) {}

type countingSender struct {
	mu    sync.Mutex
	calls map[string]int
	err   error
}

func (s *countingSender) Send(_ context.Context, recipient, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.calls == nil {
		s.calls = make(map[string]int)
	}
	s.calls[recipient]++
	return s.err
}

func newMemoryScheduler(t *testing.T, cfg Config, snd sender.Sender) (*Scheduler, *memory.Store, *clock.Fake) {
	t.Helper()

	store := memory.NewStore(time.Minute)
	clk := clock.NewFake(t0)

	registry := sender.NewRegistry()
	registry.Register(model.ChannelEmail, snd)

	policy := backoff.Policy{Base: time.Second, Factor: 2, Max: time.Minute}
	d := dispatcher.New(store, registry, nopPublisher{}, policy, clk, time.Second, metrics.NewNop())

	return NewScheduler(store, d, clk, metrics.NewNop(), cfg), store, clk
}

func seed(t *testing.T, store *memory.Store, count int) []uuid.UUID {
	t.Helper()

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id, err := store.Create(context.Background(), model.Notification{
			Channel:     model.ChannelEmail,
			Recipient:   uuid.NewString() + "@example.com",
			Content:     "Your invoice is overdue",
			Priority:    model.PriorityNormal,
			MaxAttempts: 3,
			CreatedAt:   t0.Add(time.Duration(i) * time.Millisecond),
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func TestScheduler_RunOnce_BatchLimit(t *testing.T) {
	snd := &countingSender{}
	s, store, _ := newMemoryScheduler(t, Config{BatchSize: 2, Parallelism: 2, RunTimeout: time.Minute}, snd)

	ids := seed(t, store, 5)

	stats := s.RunOnce(context.Background())
	assert.Equal(t, Stats{Claimed: 2, Sent: 2}, stats)

	pending := 0
	for _, id := range ids {
		n, err := store.GetByID(context.Background(), id)
		require.NoError(t, err)
		if n.Status == model.StatusPending {
			pending++
			assert.Equal(t, 0, n.AttemptCount)
		}
	}
	assert.Equal(t, 3, pending)
}

func TestScheduler_RunOnce_SendsEachNotificationOnce(t *testing.T) {
	snd := &countingSender{}
	s, store, _ := newMemoryScheduler(t, Config{BatchSize: 25, Parallelism: 4, RunTimeout: time.Minute}, snd)

	seed(t, store, 100)

	total := Stats{}
	for i := 0; i < 5; i++ {
		stats := s.RunOnce(context.Background())
		total.Claimed += stats.Claimed
		total.Sent += stats.Sent
	}

	assert.Equal(t, 100, total.Claimed)
	assert.Equal(t, 100, total.Sent)
	assert.Len(t, snd.calls, 100)
	for recipient, calls := range snd.calls {
		assert.Equal(t, 1, calls, recipient)
	}

	assert.Equal(t, Stats{}, s.RunOnce(context.Background()), "nothing left to claim")
}

func TestScheduler_RunOnce_CountsFailures(t *testing.T) {
	snd := &countingSender{err: sender.Retryable("provider unavailable", errors.New("503"))}
	s, store, clk := newMemoryScheduler(t, Config{BatchSize: 10, Parallelism: 3, RunTimeout: time.Minute}, snd)

	seed(t, store, 4)

	assert.Equal(t, Stats{Claimed: 4, Failed: 4}, s.RunOnce(context.Background()))
	assert.Equal(t, Stats{}, s.RunOnce(context.Background()), "backoff not elapsed")

	clk.Advance(time.Second)
	assert.Equal(t, Stats{Claimed: 4, Failed: 4}, s.RunOnce(context.Background()))

	clk.Advance(2 * time.Second)
	assert.Equal(t, Stats{Claimed: 4, Dead: 4}, s.RunOnce(context.Background()))
}

func TestScheduler_RunOnce_ClaimError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockclaimStore(ctrl)
	mockDispatcher := mocks.NewMocknotificationDispatcher(ctrl)

	s := NewScheduler(mockStore, mockDispatcher, clock.NewFake(t0), metrics.NewNop(), Config{BatchSize: 10})

	mockStore.EXPECT().ClaimBatch(gomock.Any(), 10, t0).Return(nil, errors.New("connection refused"))

	assert.Equal(t, Stats{Errors: 1}, s.RunOnce(context.Background()))
}

func TestScheduler_RunOnce_DispatchErrorsAreCounted(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockclaimStore(ctrl)
	mockDispatcher := mocks.NewMocknotificationDispatcher(ctrl)

	s := NewScheduler(mockStore, mockDispatcher, clock.NewFake(t0), metrics.NewNop(), Config{BatchSize: 10, Parallelism: 2})

	ok := model.Notification{ID: uuid.New(), Channel: model.ChannelSMS}
	lost := model.Notification{ID: uuid.New(), Channel: model.ChannelPush}

	mockStore.EXPECT().ClaimBatch(gomock.Any(), 10, t0).Return([]model.Notification{ok, lost}, nil)
	mockDispatcher.EXPECT().Dispatch(gomock.Any(), ok).Return(model.StatusSent, nil)
	mockDispatcher.EXPECT().Dispatch(gomock.Any(), lost).Return(model.StatusProcessing, errors.New("claim lost"))

	assert.Equal(t, Stats{Claimed: 2, Sent: 1, Errors: 1}, s.RunOnce(context.Background()))
}

func TestScheduler_RunOnce_ExpiredRunLeavesClaims(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockclaimStore(ctrl)
	mockDispatcher := mocks.NewMocknotificationDispatcher(ctrl)

	s := NewScheduler(mockStore, mockDispatcher, clock.NewFake(t0), metrics.NewNop(), Config{BatchSize: 1, Parallelism: 1})

	ctx, cancel := context.WithCancel(context.Background())
	mockStore.EXPECT().ClaimBatch(gomock.Any(), 1, t0).DoAndReturn(
		func(context.Context, int, time.Time) ([]model.Notification, error) {
			cancel()
			return []model.Notification{{ID: uuid.New()}}, nil
		},
	)

	assert.Equal(t, Stats{Claimed: 1, Errors: 1}, s.RunOnce(ctx))
}

func TestScheduler_RunOnce_SkipsWhileRunning(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockclaimStore(ctrl)
	mockDispatcher := mocks.NewMocknotificationDispatcher(ctrl)

	s := NewScheduler(mockStore, mockDispatcher, clock.NewFake(t0), metrics.NewNop(), Config{BatchSize: 1})

	entered := make(chan struct{})
	release := make(chan struct{})

	mockStore.EXPECT().ClaimBatch(gomock.Any(), 1, t0).DoAndReturn(
		func(context.Context, int, time.Time) ([]model.Notification, error) {
			close(entered)
			<-release
			return nil, nil
		},
	).Times(1)

	done := make(chan Stats)
	go func() { done <- s.RunOnce(context.Background()) }()

	<-entered
	assert.Equal(t, Stats{}, s.RunOnce(context.Background()))
	close(release)
	assert.Equal(t, Stats{}, <-done)
}

func TestScheduler_Purge(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockStore := mocks.NewMockclaimStore(ctrl)
	s := NewScheduler(mockStore, mocks.NewMocknotificationDispatcher(ctrl), clock.NewFake(t0), metrics.NewNop(),
		Config{Retention: 72 * time.Hour})

	mockStore.EXPECT().PurgeTerminalOlderThan(gomock.Any(), 72*time.Hour, t0).Return(int64(4), nil)
	purged, err := s.Purge(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(4), purged)

	mockStore.EXPECT().PurgeTerminalOlderThan(gomock.Any(), 72*time.Hour, t0).Return(int64(0), errors.New("timeout"))
	_, err = s.Purge(context.Background())
	assert.Error(t, err)
}

func TestScheduler_Run_StopsOnCancel(t *testing.T) {
	snd := &countingSender{}
	s, store, _ := newMemoryScheduler(t, Config{
		Interval:      10 * time.Millisecond,
		PurgeInterval: time.Hour,
		BatchSize:     10,
		Parallelism:   2,
		RunTimeout:    time.Second,
	}, snd)

	ids := seed(t, store, 3)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		for _, id := range ids {
			n, err := store.GetByID(context.Background(), id)
			if err != nil || n.Status != model.StatusSent {
				return false
			}
		}
		return true
	}, time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}
