package telegram

import (
	"context"
	"encoding/json"
	"fmt"
)

// Minimal slice of the Bot API update shape: just enough for the authoring
// conversation (text commands plus media attachments).

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message"`
}

type Message struct {
	MessageID int64       `json:"message_id"`
	From      *Account    `json:"from"`
	Chat      Chat        `json:"chat"`
	Text      string      `json:"text"`
	Photo     []PhotoSize `json:"photo"`
	Video     *FileRef    `json:"video"`
	Animation *FileRef    `json:"animation"`
}

type Account struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// FullName mirrors what users see in their Telegram profile.
func (a *Account) FullName() string {
	if a.LastName == "" {
		return a.FirstName
	}
	return a.FirstName + " " + a.LastName
}

type Chat struct {
	ID int64 `json:"id"`
}

type PhotoSize struct {
	FileID string `json:"file_id"`
}

type FileRef struct {
	FileID string `json:"file_id"`
}

type updatesResponse struct {
	OK          bool     `json:"ok"`
	Result      []Update `json:"result"`
	Description string   `json:"description"`
}

// GetUpdates long-polls the Bot API for new updates past offset.
func (c *Client) GetUpdates(ctx context.Context, offset int64, timeoutSec int) ([]Update, error) {
	payload := map[string]interface{}{
		"offset":  offset,
		"timeout": timeoutSec,
	}
	res, err := c.Send(ctx, "getUpdates", payload)
	if err != nil {
		return nil, err
	}
	if !res.Delivered() {
		return nil, fmt.Errorf("telegram: getUpdates status %d: %s", res.StatusCode, res.Body)
	}
	var parsed updatesResponse
	if err := json.Unmarshal(res.Body, &parsed); err != nil {
		return nil, fmt.Errorf("telegram: decode updates: %w", err)
	}
	if !parsed.OK {
		return nil, fmt.Errorf("telegram: getUpdates rejected: %s", parsed.Description)
	}
	return parsed.Result, nil
}
