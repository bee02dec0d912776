package worker

import (
	"context"
	"regexp"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/clinic-notifier/internal/backoff"
	"github.com/aliskhannn/clinic-notifier/internal/clock"
	"github.com/aliskhannn/clinic-notifier/internal/dispatcher"
	"github.com/aliskhannn/clinic-notifier/internal/metrics"
	"github.com/aliskhannn/clinic-notifier/internal/model"
	"github.com/aliskhannn/clinic-notifier/internal/repository/notification"
	"github.com/aliskhannn/clinic-notifier/internal/sender"
)

var claimColumns = []string{
	"id", "channel", "recipient", "content", "priority", "status", "attempt_count", "max_attempts",
	"next_eligible_at", "last_error_kind", "last_error_message", "correlation_id", "claim_token",
	"created_at", "updated_at",
}

func TestScheduler_RunOnce_RecordsSendCutOffByRunDeadline(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := notification.NewRepository(&dbpg.DB{Master: db}, time.Minute)

	id, token := uuid.New(), uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE SKIP LOCKED`)).
		WillReturnRows(sqlmock.NewRows(claimColumns).
			AddRow(id.String(), "email", "patient@example.com", "Your results are ready", int64(1), "processing",
				int64(0), int64(3), t0, nil, nil, nil, token.String(), t0, t0))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE notifications`)).
		WithArgs(id, token, "failed", 1, sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var calls atomic.Int32
	registry := sender.NewRegistry()
	registry.Register(model.ChannelEmail, sender.Func(func(ctx context.Context, _, _ string) error {
		calls.Add(1)
		<-ctx.Done()
		return ctx.Err()
	}))

	clk := clock.NewFake(t0)
	policy := backoff.Policy{Base: time.Second, Factor: 2, Max: time.Minute}
	d := dispatcher.New(repo, registry, nopPublisher{}, policy, clk, time.Second, metrics.NewNop())

	s := NewScheduler(repo, d, clk, metrics.NewNop(), Config{
		BatchSize:   1,
		Parallelism: 1,
		RunTimeout:  50 * time.Millisecond,
	})

	stats := s.RunOnce(context.Background())

	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, Stats{Claimed: 1, Failed: 1}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}
