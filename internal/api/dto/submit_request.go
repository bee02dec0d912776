package dto

import "github.com/google/uuid"

// SubmitRequest is the JSON body of a notification submission.
type SubmitRequest struct {
	Channel       string `json:"channel" validate:"required"`
	Recipient     string `json:"recipient" validate:"required"`
	Content       string `json:"content" validate:"required"`
	Priority      string `json:"priority"` // low, normal, high or urgent; defaults to normal
	CorrelationID string `json:"correlation_id"`
	MaxAttempts   int    `json:"max_attempts"`
}

// SubmitResponse acknowledges an accepted submission.
type SubmitResponse struct {
	ID     uuid.UUID `json:"id"`
	Status string    `json:"status"`
}
