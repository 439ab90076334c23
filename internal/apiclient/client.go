// Package apiclient is the bot-side client of the record-keeping API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Serenityblood/victory-test/internal/model"
)

type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// CreateMailingRequest mirrors the creation endpoint's body.
type CreateMailingRequest struct {
	Name        string      `json:"name"`
	Message     string      `json:"message"`
	CreatorTgID int64       `json:"creator_id"`
	SendAt      *time.Time  `json:"send_at,omitempty"`
	Extra       model.Extra `json:"extra"`
}

// RegisterUser creates the user; an already-registered user comes back with
// ErrAlreadyRegistered.
func (c *Client) RegisterUser(ctx context.Context, name string, tgID int64) (*model.User, error) {
	body := map[string]interface{}{"name": name, "tg_id": tgID}
	var u model.User
	err := c.post(ctx, "/users", body, http.StatusCreated, &u)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// ErrAlreadyRegistered marks a duplicate registration.
var ErrAlreadyRegistered = fmt.Errorf("already registered")

func (c *Client) GetUser(ctx context.Context, tgID int64) (*model.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/users/%d", c.baseURL, tgID), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api: get user returned %d", resp.StatusCode)
	}
	var u model.User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateMailing(ctx context.Context, in CreateMailingRequest) error {
	return c.post(ctx, "/mailings", in, http.StatusCreated, nil)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, want int, out interface{}) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return ErrAlreadyRegistered
	}
	if resp.StatusCode != want {
		return fmt.Errorf("api: POST %s returned %d", path, resp.StatusCode)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
