package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/dbpg"

	"github.com/aliskhannn/clinic-notifier/internal/model"
	"github.com/aliskhannn/clinic-notifier/internal/repository"
)

const notificationColumns = `id, channel, recipient, content, priority, status, attempt_count, max_attempts,
		next_eligible_at, last_error_kind, last_error_message, correlation_id, claim_token, created_at, updated_at`

// Repository provides methods to interact with notifications table.
type Repository struct {
	db         *dbpg.DB
	staleGrace time.Duration
}

// NewRepository creates a new notification repository. Processing rows not
// updated for staleGrace are claimable again; zero disables recovery.
func NewRepository(db *dbpg.DB, staleGrace time.Duration) *Repository {
	return &Repository{db: db, staleGrace: staleGrace}
}

// Create inserts a new pending notification and returns its ID.
func (r *Repository) Create(ctx context.Context, n model.Notification) (uuid.UUID, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO notifications (
		    id, channel, recipient, content, priority, status, attempt_count, max_attempts,
		    next_eligible_at, correlation_id, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, 'pending', 0, $6, $7, $8, $7, $7)
		RETURNING id;
    `

	var id uuid.UUID
	err := r.db.Master.QueryRowContext(
		ctx, query,
		n.ID, n.Channel.String(), n.Recipient, n.Content, int(n.Priority), n.MaxAttempts,
		n.CreatedAt, n.CorrelationID,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create notification: %w", err)
	}

	return id, nil
}

// ClaimBatch atomically moves up to limit eligible notifications to
// processing under fresh claim tokens. Concurrent callers never receive the
// same row: candidates are locked with SKIP LOCKED inside the update.
func (r *Repository) ClaimBatch(ctx context.Context, limit int, now time.Time) ([]model.Notification, error) {
	if limit <= 0 {
		return nil, nil
	}

	var staleBefore sql.NullTime
	if r.staleGrace > 0 {
		staleBefore = sql.NullTime{Time: now.Add(-r.staleGrace), Valid: true}
	}

	query := `
		UPDATE notifications AS n
		SET status = 'processing', claim_token = gen_random_uuid(), updated_at = $2
		FROM (
		    SELECT id FROM notifications
		    WHERE status = 'pending'
		       OR (status = 'failed' AND attempt_count < max_attempts AND next_eligible_at <= $2)
		       OR (status = 'processing' AND attempt_count < max_attempts
		           AND $3::timestamptz IS NOT NULL AND updated_at <= $3)
		    ORDER BY priority DESC, created_at ASC, id ASC
		    LIMIT $1
		    FOR UPDATE SKIP LOCKED
		) AS c
		WHERE n.id = c.id
		RETURNING n.id, n.channel, n.recipient, n.content, n.priority, n.status, n.attempt_count, n.max_attempts,
		    n.next_eligible_at, n.last_error_kind, n.last_error_message, n.correlation_id, n.claim_token,
		    n.created_at, n.updated_at;
    `

	rows, err := r.db.Master.QueryContext(ctx, query, limit, now, staleBefore)
	if err != nil {
		return nil, fmt.Errorf("failed to claim notifications: %w", err)
	}
	defer rows.Close()

	var claimed []model.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan claimed notification: %w", err)
		}
		claimed = append(claimed, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to claim notifications: %w", err)
	}

	// RETURNING does not keep the subquery order.
	sort.Slice(claimed, func(i, j int) bool {
		return repository.ClaimLess(claimed[i], claimed[j])
	})

	return claimed, nil
}

// RecordOutcome persists the result of a dispatch attempt. The update only
// applies while the row is still processing under claimToken.
func (r *Repository) RecordOutcome(ctx context.Context, id, claimToken uuid.UUID, outcome model.Outcome) error {
	switch outcome.Status {
	case model.StatusSent, model.StatusFailed, model.StatusDead:
	default:
		return fmt.Errorf("%w: status %s", repository.ErrInvalidOutcome, outcome.Status)
	}

	var errKind, errMessage sql.NullString
	if outcome.LastError != nil {
		errKind = sql.NullString{String: string(outcome.LastError.Kind), Valid: true}
		errMessage = sql.NullString{String: outcome.LastError.Message, Valid: true}
	}

	query := `
		UPDATE notifications
		SET status = $3,
		    attempt_count = $4,
		    last_error_kind = $5,
		    last_error_message = $6,
		    next_eligible_at = GREATEST(next_eligible_at, $7),
		    claim_token = NULL,
		    updated_at = $8
		WHERE id = $1
		  AND claim_token = $2
		  AND status = 'processing'
		  AND $4 BETWEEN attempt_count AND max_attempts;
    `

	res, err := r.db.Master.ExecContext(
		ctx, query,
		id, claimToken, outcome.Status.String(), outcome.AttemptCount,
		errKind, errMessage, outcome.NextEligibleAt, outcome.At,
	)
	if err != nil {
		return fmt.Errorf("failed to record notification outcome: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to record notification outcome: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Nothing matched: tell a missing row apart from a lost claim.
	if _, err := r.GetByID(ctx, id); err != nil {
		return err
	}

	return repository.ErrClaimLost
}

// PurgeTerminalOlderThan deletes sent and dead notifications whose last
// update is older than retention and returns how many were removed.
func (r *Repository) PurgeTerminalOlderThan(ctx context.Context, retention time.Duration, now time.Time) (int64, error) {
	query := `
		DELETE FROM notifications
		WHERE status IN ('sent', 'dead')
		  AND updated_at < $1;
    `

	res, err := r.db.Master.ExecContext(ctx, query, now.Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to purge notifications: %w", err)
	}

	return rows, nil
}

// GetByID retrieves a notification by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (model.Notification, error) {
	query := `
		SELECT ` + notificationColumns + `
		FROM notifications
		WHERE id = $1;
    `

	n, err := scanNotification(r.db.Master.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Notification{}, repository.ErrNotificationNotFound
		}

		return model.Notification{}, fmt.Errorf("failed to get notification: %w", err)
	}

	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(row scanner) (model.Notification, error) {
	var (
		n                   model.Notification
		channel, status     string
		priority            int
		errKind, errMessage sql.NullString
		correlationID       sql.NullString
		claimToken          uuid.NullUUID
	)

	err := row.Scan(
		&n.ID, &channel, &n.Recipient, &n.Content, &priority, &status, &n.AttemptCount, &n.MaxAttempts,
		&n.NextEligibleAt, &errKind, &errMessage, &correlationID, &claimToken, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		return model.Notification{}, err
	}

	n.Channel = model.Channel(channel)
	n.Status = model.Status(status)
	n.Priority = model.Priority(priority)
	n.CorrelationID = correlationID.String
	if claimToken.Valid {
		n.ClaimToken = claimToken.UUID
	}
	if errKind.Valid {
		n.LastError = &model.DeliveryError{Kind: model.ErrorKind(errKind.String), Message: errMessage.String}
	}

	return n, nil
}
