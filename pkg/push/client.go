// Package push provides a client for an HTTP push notification gateway.
package push

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
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("push gateway error: %d %s", e.StatusCode, e.Body)
}

// Client delivers push messages to device tokens.
type Client struct {
	baseURL string
	apiKey  string
	title   string
	client  *http.Client
}

// NewClient creates a push gateway client. A nil httpClient uses
// http.DefaultClient.
func NewClient(baseURL, apiKey, title string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		title:   title,
		client:  httpClient,
	}
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type sendRequest struct {
	Token        string       `json:"token"`
	Notification notification `json:"notification"`
}

// Send delivers msg to the device identified by token.
func (c *Client) Send(ctx context.Context, token string, msg string) error {
	body, err := json.Marshal(sendRequest{
		Token:        token,
		Notification: notification{Title: c.title, Body: msg},
	})
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "key="+c.apiKey)
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
