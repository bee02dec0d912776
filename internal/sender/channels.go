package sender

import (
	"context"
	"errors"
	"net/http"
	"net/textproto"

	"github.com/aliskhannn/clinic-notifier/pkg/push"
	"github.com/aliskhannn/clinic-notifier/pkg/sms"
)

// TruncationMarker ends every SMS cut down to the channel limit.
const TruncationMarker = "..."

// client is the shape of the provider clients under pkg/.
type client interface {
	Send(ctx context.Context, to string, msg string) error
}

// Email sends over SMTP and classifies SMTP replies.
type Email struct {
	client client
}

// NewEmail wraps an SMTP client.
func NewEmail(c client) *Email {
	return &Email{client: c}
}

func (e *Email) Send(ctx context.Context, recipient, content string) error {
	err := e.client.Send(ctx, recipient, content)
	if err == nil {
		return nil
	}

	var reply *textproto.Error
	if errors.As(err, &reply) {
		if reply.Code >= 500 {
			return Permanent("smtp rejected", err)
		}
		return Retryable("smtp deferred", err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Retryable("timeout", err)
	}

	return Retryable("smtp unavailable", err)
}

// SMS sends through the SMS gateway, truncating content that exceeds the
// payload limit.
type SMS struct {
	client    client
	maxLength int
}

// NewSMS wraps an SMS gateway client. maxLength counts characters and
// includes the truncation marker.
func NewSMS(c client, maxLength int) *SMS {
	return &SMS{client: c, maxLength: maxLength}
}

func (s *SMS) Send(ctx context.Context, recipient, content string) error {
	err := s.client.Send(ctx, recipient, Truncate(content, s.maxLength))
	if err == nil {
		return nil
	}

	var apiErr *sms.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, err)
	}

	return Retryable("sms gateway unavailable", err)
}

// Truncate shortens content to exactly limit characters ending in
// TruncationMarker. Content within the limit is returned unchanged.
func Truncate(content string, limit int) string {
	runes := []rune(content)
	if limit <= 0 || len(runes) <= limit {
		return content
	}

	marker := []rune(TruncationMarker)
	if limit <= len(marker) {
		return string(marker[:limit])
	}

	return string(runes[:limit-len(marker)]) + TruncationMarker
}

// Push sends through the push gateway.
type Push struct {
	client client
}

// NewPush wraps a push gateway client.
func NewPush(c client) *Push {
	return &Push{client: c}
}

func (p *Push) Send(ctx context.Context, recipient, content string) error {
	err := p.client.Send(ctx, recipient, content)
	if err == nil {
		return nil
	}

	var apiErr *push.APIError
	if errors.As(err, &apiErr) {
		return classifyStatus(apiErr.StatusCode, err)
	}

	return Retryable("push gateway unavailable", err)
}

// classifyStatus maps a gateway HTTP status onto the taxonomy.
func classifyStatus(code int, err error) error {
	switch {
	case code == http.StatusTooManyRequests:
		return Retryable("rate limited", err)
	case code == http.StatusRequestTimeout || code >= 500:
		return Retryable("provider unavailable", err)
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return Permanent("channel disabled", err)
	case code == http.StatusNotFound || code == http.StatusGone:
		return Permanent("recipient unreachable", err)
	default:
		return Permanent("rejected by provider", err)
	}
}
