package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the Telegram Bot API over plain HTTP. It carries no retry
// or rate limiting: the dispatch engine treats every non-2xx outcome as a
// plain failure and only accounts for it.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
}

// Result is one delivery outcome. The response body is kept so a failed
// delivery can be logged with enough context to diagnose.
type Result struct {
	StatusCode int
	Body       []byte
}

// Delivered reports whether the push API accepted the request.
func (r Result) Delivered() bool {
	return r.StatusCode == http.StatusOK || r.StatusCode == http.StatusCreated
}

func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// MethodURL builds the endpoint for an API method such as sendMessage.
func (c *Client) MethodURL(method string) string {
	return fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method)
}

// Send posts payload to the given API method and returns the raw outcome.
// A transport-level fault (including timeout) surfaces as an error; any HTTP
// status comes back as a Result for the caller to judge.
func (c *Client) Send(ctx context.Context, method string, payload interface{}) (Result, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, fmt.Errorf("telegram: marshal %s payload: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.MethodURL(method), bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, err
	}
	return Result{StatusCode: resp.StatusCode, Body: respBody}, nil
}
