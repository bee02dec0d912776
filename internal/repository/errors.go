// Package repository holds what the notification record stores share.
package repository

import "errors"

var (
	ErrNotificationNotFound = errors.New("notification not found")

	// ErrClaimLost is returned when an outcome is recorded for a notification
	// that is no longer processing under the presented claim token, for
	// example because a stale claim was recovered by another sweep.
	ErrClaimLost = errors.New("notification claim lost")

	ErrInvalidOutcome = errors.New("invalid notification outcome")
)
