// Package memory is an in-process notification record store. It serves
// single-instance development setups and tests; state is lost on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aliskhannn/clinic-notifier/internal/model"
	"github.com/aliskhannn/clinic-notifier/internal/repository"
)

type Store struct {
	mu         sync.Mutex
	items      map[uuid.UUID]model.Notification
	staleGrace time.Duration
}

// NewStore creates an empty store. Processing records whose last update is
// older than staleGrace become claimable again; zero disables recovery.
func NewStore(staleGrace time.Duration) *Store {
	return &Store{
		items:      make(map[uuid.UUID]model.Notification),
		staleGrace: staleGrace,
	}
}

func (s *Store) Create(_ context.Context, n model.Notification) (uuid.UUID, error) {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}

	n.Status = model.StatusPending
	n.AttemptCount = 0
	n.NextEligibleAt = n.CreatedAt
	n.UpdatedAt = n.CreatedAt
	n.LastError = nil
	n.ClaimToken = uuid.Nil

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[n.ID]; exists {
		return uuid.Nil, fmt.Errorf("failed to create notification: duplicate id %s", n.ID)
	}
	s.items[n.ID] = n

	return n.ID, nil
}

func (s *Store) ClaimBatch(_ context.Context, limit int, now time.Time) ([]model.Notification, error) {
	if limit <= 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var eligible []model.Notification
	for _, n := range s.items {
		if s.claimable(n, now) {
			eligible = append(eligible, n)
		}
	}

	sort.Slice(eligible, func(i, j int) bool {
		return repository.ClaimLess(eligible[i], eligible[j])
	})

	if len(eligible) > limit {
		eligible = eligible[:limit]
	}

	for i := range eligible {
		eligible[i].Status = model.StatusProcessing
		eligible[i].ClaimToken = uuid.New()
		eligible[i].UpdatedAt = now
		s.items[eligible[i].ID] = eligible[i]
	}

	return eligible, nil
}

func (s *Store) claimable(n model.Notification, now time.Time) bool {
	switch n.Status {
	case model.StatusPending:
		return true
	case model.StatusFailed:
		return n.AttemptCount < n.MaxAttempts && !n.NextEligibleAt.After(now)
	case model.StatusProcessing:
		return s.staleGrace > 0 &&
			n.AttemptCount < n.MaxAttempts &&
			!n.UpdatedAt.After(now.Add(-s.staleGrace))
	}
	return false
}

func (s *Store) RecordOutcome(_ context.Context, id, claimToken uuid.UUID, outcome model.Outcome) error {
	switch outcome.Status {
	case model.StatusSent, model.StatusFailed, model.StatusDead:
	default:
		return fmt.Errorf("%w: status %s", repository.ErrInvalidOutcome, outcome.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return repository.ErrNotificationNotFound
	}

	if n.Status != model.StatusProcessing || n.ClaimToken != claimToken {
		return repository.ErrClaimLost
	}

	if outcome.AttemptCount > n.MaxAttempts || outcome.AttemptCount < n.AttemptCount {
		return fmt.Errorf("%w: attempt %d of %d", repository.ErrInvalidOutcome, outcome.AttemptCount, n.MaxAttempts)
	}

	n.Status = outcome.Status
	n.AttemptCount = outcome.AttemptCount
	n.LastError = outcome.LastError
	if outcome.NextEligibleAt.After(n.NextEligibleAt) {
		n.NextEligibleAt = outcome.NextEligibleAt
	}
	n.UpdatedAt = outcome.At
	n.ClaimToken = uuid.Nil
	s.items[id] = n

	return nil
}

func (s *Store) PurgeTerminalOlderThan(_ context.Context, retention time.Duration, now time.Time) (int64, error) {
	cutoff := now.Add(-retention)

	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64
	for id, n := range s.items {
		if n.Status.IsTerminal() && n.UpdatedAt.Before(cutoff) {
			delete(s.items, id)
			purged++
		}
	}

	return purged, nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.items[id]
	if !ok {
		return model.Notification{}, repository.ErrNotificationNotFound
	}

	return n, nil
}

// Len returns the number of stored notifications.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}
