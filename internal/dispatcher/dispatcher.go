// Package dispatcher drives a claimed notification through one delivery
// attempt and writes the resulting transition back to the record store.
package dispatcher

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/clinic-notifier/internal/backoff"
	"github.com/aliskhannn/clinic-notifier/internal/clock"
	"github.com/aliskhannn/clinic-notifier/internal/metrics"
	"github.com/aliskhannn/clinic-notifier/internal/model"
	"github.com/aliskhannn/clinic-notifier/internal/sender"
)

const maxErrorMessage = 512

// outcomeWriteTimeout bounds the store write that follows a send. The write
// is detached from the caller's context so that a send cut off by a run
// deadline is still recorded.
const outcomeWriteTimeout = 5 * time.Second

type outcomeStore interface {
	RecordOutcome(ctx context.Context, id, claimToken uuid.UUID, outcome model.Outcome) error
}

type senderRegistry interface {
	Lookup(channel model.Channel) (sender.Sender, error)
}

type outcomePublisher interface {
	Publish(n model.Notification)
}

// Dispatcher performs delivery attempts.
type Dispatcher struct {
	store     outcomeStore
	senders   senderRegistry
	publisher outcomePublisher
	policy    backoff.Policy
	clock     clock.Clock
	timeout   time.Duration
	metrics   *metrics.Metrics
}

// New creates a Dispatcher. Each sender call is bounded by timeout; zero
// leaves it to the caller's context.
func New(
	store outcomeStore,
	senders senderRegistry,
	publisher outcomePublisher,
	policy backoff.Policy,
	clk clock.Clock,
	timeout time.Duration,
	m *metrics.Metrics,
) *Dispatcher {
	return &Dispatcher{
		store:     store,
		senders:   senders,
		publisher: publisher,
		policy:    policy,
		clock:     clk,
		timeout:   timeout,
		metrics:   m,
	}
}

// Dispatch attempts delivery of n, which must be processing under a claim
// held by the caller, and returns the status it was moved to.
//
// Delivery failures are recorded as state, not returned. The error is only
// set when the outcome could not be stored; the record then stays processing
// until its claim goes stale and another run picks it up.
func (d *Dispatcher) Dispatch(ctx context.Context, n model.Notification) (model.Status, error) {
	var outcome model.Outcome

	if n.AttemptCount >= n.MaxAttempts {
		// A recovered claim with no attempts left is closed without sending.
		outcome = model.Outcome{
			Status:       model.StatusDead,
			AttemptCount: n.AttemptCount,
			LastError:    exhausted(n.AttemptCount, n.LastError),
		}
	} else {
		outcome = d.attempt(ctx, n)
	}

	outcome.At = d.clock.Now()
	if outcome.Status == model.StatusFailed {
		outcome.NextEligibleAt = d.nextEligible(n, outcome.AttemptCount, outcome.At)
	}

	if err := d.recordOutcome(ctx, n, outcome); err != nil {
		zlog.Logger.Error().
			Err(err).
			Str("id", n.ID.String()).
			Str("channel", n.Channel.String()).
			Str("status", outcome.Status.String()).
			Msg("failed to record delivery outcome")
		d.metrics.StoreError("record_outcome")

		return model.StatusProcessing, fmt.Errorf("record outcome for %s: %w", n.ID, err)
	}

	n.Status = outcome.Status
	n.AttemptCount = outcome.AttemptCount
	n.LastError = outcome.LastError
	if outcome.NextEligibleAt.After(n.NextEligibleAt) {
		n.NextEligibleAt = outcome.NextEligibleAt
	}
	n.UpdatedAt = outcome.At
	n.ClaimToken = uuid.Nil

	d.log(n)
	d.metrics.Dispatched(n.Channel, n.Status)
	d.publisher.Publish(n)

	return n.Status, nil
}

func (d *Dispatcher) recordOutcome(ctx context.Context, n model.Notification, outcome model.Outcome) error {
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), outcomeWriteTimeout)
	defer cancel()

	return d.store.RecordOutcome(writeCtx, n.ID, n.ClaimToken, outcome)
}

// attempt invokes the channel sender once and maps the result onto the
// next state. Every call counts as an attempt.
func (d *Dispatcher) attempt(ctx context.Context, n model.Notification) model.Outcome {
	attempt := n.AttemptCount + 1

	err := d.send(ctx, n)
	if err == nil {
		return model.Outcome{Status: model.StatusSent, AttemptCount: attempt}
	}

	classified := sender.Classify(err)
	lastErr := &model.DeliveryError{Kind: classified.Kind, Message: describe(classified)}

	switch {
	case classified.Kind == model.ErrorPermanent:
		return model.Outcome{Status: model.StatusDead, AttemptCount: attempt, LastError: lastErr}
	case attempt >= n.MaxAttempts:
		return model.Outcome{Status: model.StatusDead, AttemptCount: attempt, LastError: exhausted(attempt, lastErr)}
	default:
		return model.Outcome{Status: model.StatusFailed, AttemptCount: attempt, LastError: lastErr}
	}
}

func (d *Dispatcher) send(ctx context.Context, n model.Notification) (err error) {
	s, err := d.senders.Lookup(n.Channel)
	if err != nil {
		return err
	}

	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	defer func() {
		d.metrics.ObserveSend(n.Channel, time.Since(start))

		if r := recover(); r != nil {
			zlog.Logger.Error().
				Str("id", n.ID.String()).
				Str("channel", n.Channel.String()).
				Interface("panic", r).
				Msg("sender panicked")
			err = sender.Retryable("sender panic", fmt.Errorf("%v", r))
		}
	}()

	return s.Send(ctx, n.Recipient, n.Content)
}

// nextEligible never moves the eligibility time backward.
func (d *Dispatcher) nextEligible(n model.Notification, attempt int, now time.Time) time.Time {
	next := now.Add(d.policy.Delay(attempt))
	if n.NextEligibleAt.After(next) {
		return n.NextEligibleAt
	}
	return next
}

func (d *Dispatcher) log(n model.Notification) {
	event := zlog.Logger.Info()
	if n.Status != model.StatusSent {
		event = zlog.Logger.Warn()
	}

	event = event.
		Str("id", n.ID.String()).
		Str("channel", n.Channel.String()).
		Str("recipient", model.MaskRecipient(n.Channel, n.Recipient)).
		Str("status", n.Status.String()).
		Int("attempt", n.AttemptCount).
		Int("max_attempts", n.MaxAttempts)

	if n.LastError != nil {
		event = event.Str("error_kind", string(n.LastError.Kind)).Str("error", n.LastError.Message)
	}
	if n.Status == model.StatusFailed {
		event = event.Time("next_eligible_at", n.NextEligibleAt)
	}

	event.Msg("delivery attempt finished")
}

func exhausted(attempts int, last *model.DeliveryError) *model.DeliveryError {
	msg := fmt.Sprintf("gave up after %d attempts", attempts)
	if last != nil && last.Message != "" {
		msg += ": " + last.Message
	}
	return &model.DeliveryError{Kind: model.ErrorExhausted, Message: truncate(msg)}
}

func describe(e *sender.Error) string {
	if e.Err == nil {
		return e.Reason
	}
	return truncate(e.Reason + ": " + e.Err.Error())
}

func truncate(s string) string {
	if utf8.RuneCountInString(s) <= maxErrorMessage {
		return s
	}
	return string([]rune(s)[:maxErrorMessage])
}
