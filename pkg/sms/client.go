// Package sms provides a client for an HTTP SMS gateway.
//
// The gateway accepts a JSON body with the sender id, destination number and
// text, authenticated with a bearer API key.
package sms

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError is returned when the gateway answers with a non-2xx status.
type APIError struct {
	StatusCode int    // HTTP status returned by the gateway
	Body       string // first bytes of the response body
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sms gateway error: %d %s", e.StatusCode, e.Body)
}

// Client sends text messages through the gateway.
type Client struct {
	baseURL string       // gateway root, e.g. https://sms.example.com
	apiKey  string       // bearer token
	from    string       // sender id shown on the handset
	client  *http.Client // HTTP client used to make requests
}

// NewClient creates a gateway client. A nil httpClient uses http.DefaultClient.
func NewClient(baseURL, apiKey, from string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		from:    from,
		client:  httpClient,
	}
}

// sendMessageRequest represents the payload for the gateway messages API.
type sendMessageRequest struct {
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
}

// Send posts msg for delivery to the phone number to.
func (c *Client) Send(ctx context.Context, to string, msg string) error {
	body, err := json.Marshal(sendMessageRequest{From: c.from, To: to, Text: msg})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	return nil
}
