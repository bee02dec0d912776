package repository

import "github.com/aliskhannn/clinic-notifier/internal/model"

// ClaimLess orders claimed notifications for dispatch: highest priority
// first, then oldest first, then by id so the order is total.
func ClaimLess(a, b model.Notification) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}
