package model

import (
	"time"

	"github.com/google/uuid"
)

// ErrorKind classifies a delivery failure.
type ErrorKind string

const (
	// ErrorRetryable is a transient provider or network fault.
	ErrorRetryable ErrorKind = "retryable"
	// ErrorPermanent means the recipient or channel cannot take the message.
	ErrorPermanent ErrorKind = "permanent"
	// ErrorExhausted marks a notification that ran out of attempts.
	ErrorExhausted ErrorKind = "exhausted"
)

// DeliveryError is the last failure recorded on a notification.
type DeliveryError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *DeliveryError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

// Outcome is the state written back by the dispatcher after an attempt.
type Outcome struct {
	Status         Status
	AttemptCount   int
	LastError      *DeliveryError
	NextEligibleAt time.Time
	At             time.Time
}

// DeliveryOutcome is the event handed to the audit collaborator.
type DeliveryOutcome struct {
	NotificationID uuid.UUID      `json:"notification_id"`
	Channel        Channel        `json:"channel"`
	Status         Status         `json:"status"`
	AttemptCount   int            `json:"attempt_count"`
	LastError      *DeliveryError `json:"last_error,omitempty"`
	CorrelationID  string         `json:"correlation_id,omitempty"`
	OccurredAt     time.Time      `json:"occurred_at"`
}

// NewDeliveryOutcome builds the outcome event for the current state of n.
func NewDeliveryOutcome(n Notification) DeliveryOutcome {
	return DeliveryOutcome{
		NotificationID: n.ID,
		Channel:        n.Channel,
		Status:         n.Status,
		AttemptCount:   n.AttemptCount,
		LastError:      n.LastError,
		CorrelationID:  n.CorrelationID,
		OccurredAt:     n.UpdatedAt,
	}
}
