// internal/model/mailing.go
package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// MailingStatus is a closed set: a mailing only ever moves pending -> done.
type MailingStatus string

const (
	StatusPending MailingStatus = "pending"
	StatusDone    MailingStatus = "done"
)

// Media kinds accepted inside a mailing's extra payload.
const (
	MediaAnimation = "animation"
	MediaPhoto     = "photo"
	MediaVideo     = "video"
)

// MaxNameSize is the mailing name limit in UTF-8 bytes.
const MaxNameSize = 128

type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type Media struct {
	MediaType string `json:"media_type"`
	URL       string `json:"url"`
}

// Extra is the optional structured payload attached to a mailing: at most one
// inline keyboard row and at most one media reference.
type Extra struct {
	Keyboard []Button `json:"keyboard,omitempty"`
	Media    *Media   `json:"media,omitempty"`
}

type Mailing struct {
	ID        int           `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	SendAt    time.Time     `db:"send_at" json:"send_at"`
	Extra     Extra         `db:"extra" json:"extra"`
	Message   string        `db:"message" json:"message"`
	Status    MailingStatus `db:"status" json:"status"`
	CreatorID int           `db:"creator_id" json:"creator_id"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

// ValidMediaType reports whether kind is one of the supported media kinds.
func ValidMediaType(kind string) bool {
	switch kind {
	case MediaAnimation, MediaPhoto, MediaVideo:
		return true
	}
	return false
}

// ExtraFromJSON decodes the jsonb extra column.
func ExtraFromJSON(raw []byte) (Extra, error) {
	var e Extra
	if len(raw) == 0 {
		return e, nil
	}
	if err := json.Unmarshal(raw, &e); err != nil {
		return Extra{}, fmt.Errorf("decode mailing extra: %w", err)
	}
	return e, nil
}

// JSON encodes the extra payload for the jsonb column. Empty extras encode as
// an empty object, matching the column default.
func (e Extra) JSON() ([]byte, error) {
	return json.Marshal(e)
}
