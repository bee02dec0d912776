package sender

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/aliskhannn/clinic-notifier/internal/model"
)

// Error is a classified delivery failure returned by a Sender.
type Error struct {
	Kind   model.ErrorKind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	}
	return fmt.Sprintf("%s: %s: %v", e.Kind, e.Reason, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable wraps err as a transient failure that should be retried later.
func Retryable(reason string, err error) error {
	return &Error{Kind: model.ErrorRetryable, Reason: reason, Err: err}
}

// Permanent wraps err as a failure no retry can fix.
func Permanent(reason string, err error) error {
	return &Error{Kind: model.ErrorPermanent, Reason: reason, Err: err}
}

// Classify maps any send error onto the delivery taxonomy. A nil error
// yields nil. Errors the sender did not classify are treated as retryable.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: model.ErrorRetryable, Reason: "timeout", Err: err}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &Error{Kind: model.ErrorRetryable, Reason: "timeout", Err: err}
	}

	return &Error{Kind: model.ErrorRetryable, Reason: "unexpected", Err: err}
}

// IsPermanent reports whether err classifies as permanent.
func IsPermanent(err error) bool {
	c := Classify(err)
	return c != nil && c.Kind == model.ErrorPermanent
}
