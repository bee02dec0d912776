// Package email sends plain-text notifications over SMTP.
package email

import (
	"context"
	"time"

	"gopkg.in/mail.v2"
)

// Client sends messages through a single SMTP relay.
type Client struct {
	smtpHost string
	smtpPort int
	username string
	password string
	from     string
	subject  string
}

// NewClient creates an SMTP client. Every message is sent with the given
// subject line.
func NewClient(smtpHost string, smtpPort int, username, password, from, subject string) *Client {
	return &Client{
		smtpHost: smtpHost,
		smtpPort: smtpPort,
		username: username,
		password: password,
		from:     from,
		subject:  subject,
	}
}

// Send delivers msg to the address to.
//
// The SMTP exchange is bounded by the deadline of ctx; if ctx is done first
// the context error is returned and the dial is abandoned.
func (c *Client) Send(ctx context.Context, to string, msg string) error {
	message := mail.NewMessage()

	message.SetHeader("From", c.from)
	message.SetHeader("To", to)
	message.SetHeader("Subject", c.subject)

	message.SetBody("text/plain", msg)

	dialer := mail.NewDialer(c.smtpHost, c.smtpPort, c.username, c.password)
	if deadline, ok := ctx.Deadline(); ok {
		dialer.Timeout = time.Until(deadline)
	}

	done := make(chan error, 1)
	go func() {
		done <- dialer.DialAndSend(message)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
