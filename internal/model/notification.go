package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Channel is the delivery medium of a notification.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelSMS   Channel = "sms"
	ChannelPush  Channel = "push"
)

// Channels lists every supported channel.
var Channels = []Channel{ChannelEmail, ChannelSMS, ChannelPush}

func (c Channel) String() string { return string(c) }

// IsValid reports whether c is a supported channel.
func (c Channel) IsValid() bool {
	switch c {
	case ChannelEmail, ChannelSMS, ChannelPush:
		return true
	}
	return false
}

// Status is the lifecycle state of a notification.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
	StatusDead       Status = "dead"
)

func (s Status) String() string { return string(s) }

// IsTerminal reports whether no further transitions are allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusSent || s == StatusDead
}

// Notification is a single message to deliver over one channel.
type Notification struct {
	ID             uuid.UUID      `json:"id"`              // unique identifier, immutable
	Channel        Channel        `json:"channel"`         // email, sms or push
	Recipient      string         `json:"recipient"`       // address, phone number or device token
	Content        string         `json:"content"`         // rendered message body
	Priority       Priority       `json:"priority"`        // scheduling order only
	Status         Status         `json:"status"`          // current lifecycle state
	AttemptCount   int            `json:"attempt_count"`   // dispatcher invocations so far
	MaxAttempts    int            `json:"max_attempts"`    // fixed at creation
	NextEligibleAt time.Time      `json:"next_eligible_at"` // no claim before this instant
	LastError      *DeliveryError `json:"last_error,omitempty"`
	CorrelationID  string         `json:"correlation_id,omitempty"` // originating domain event
	ClaimToken     uuid.UUID      `json:"-"`                        // lease of the current claim
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Summary is the view of a notification returned to status pollers.
// It never carries the content and only a masked recipient.
type Summary struct {
	ID             uuid.UUID      `json:"id"`
	Channel        Channel        `json:"channel"`
	Recipient      string         `json:"recipient"`
	Priority       Priority       `json:"priority"`
	Status         Status         `json:"status"`
	AttemptCount   int            `json:"attempt_count"`
	MaxAttempts    int            `json:"max_attempts"`
	NextEligibleAt time.Time      `json:"next_eligible_at"`
	LastError      *DeliveryError `json:"last_error,omitempty"`
	CorrelationID  string         `json:"correlation_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// Summary returns the status view of n.
func (n Notification) Summary() Summary {
	return Summary{
		ID:             n.ID,
		Channel:        n.Channel,
		Recipient:      MaskRecipient(n.Channel, n.Recipient),
		Priority:       n.Priority,
		Status:         n.Status,
		AttemptCount:   n.AttemptCount,
		MaxAttempts:    n.MaxAttempts,
		NextEligibleAt: n.NextEligibleAt,
		LastError:      n.LastError,
		CorrelationID:  n.CorrelationID,
		CreatedAt:      n.CreatedAt,
		UpdatedAt:      n.UpdatedAt,
	}
}

// MaskRecipient hides most of a recipient address so it can be logged or
// returned without exposing patient contact details.
func MaskRecipient(channel Channel, recipient string) string {
	if recipient == "" {
		return ""
	}

	if channel == ChannelEmail {
		if at := strings.LastIndex(recipient, "@"); at > 0 {
			return recipient[:1] + "***" + recipient[at:]
		}
	}

	runes := []rune(recipient)
	if len(runes) <= 4 {
		return "****"
	}

	return "***" + string(runes[len(runes)-4:])
}

// String implements fmt.Stringer without leaking recipient or content.
func (n Notification) String() string {
	return fmt.Sprintf("notification %s (%s, %s, attempt %d/%d)",
		n.ID, n.Channel, n.Status, n.AttemptCount, n.MaxAttempts)
}
