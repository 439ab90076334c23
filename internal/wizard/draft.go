package wizard

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Serenityblood/victory-test/internal/model"
	"github.com/Serenityblood/victory-test/internal/telegram"
)

// DatetimeLayout is the schedule format operators type into the chat.
const DatetimeLayout = "2006-01-02 15:04:05"

var (
	ErrNameTooLong = fmt.Errorf("name is longer than %d bytes", model.MaxNameSize)
	ErrBadTime     = errors.New("time must match the 2006-01-02 15:04:05 format and lie in the future")
	ErrBadMedia    = errors.New("media type must be one of animation, photo, video")
)

// Draft is the typed payload of an authoring session. It accumulates the
// mailing piece by piece and is serialized into the session store between
// steps.
type Draft struct {
	CreatorTgID int64          `json:"creator_tg_id"`
	Name        string         `json:"name"`
	Message     string         `json:"message"`
	SendAt      *time.Time     `json:"send_at,omitempty"`
	Keyboard    []model.Button `json:"keyboard,omitempty"`
	Media       *model.Media   `json:"media,omitempty"`

	// Two-step inputs in flight.
	PendingButtonText string `json:"pending_button_text,omitempty"`
	PendingMediaType  string `json:"pending_media_type,omitempty"`
}

func (d *Draft) SetName(name string) error {
	if len(name) > model.MaxNameSize {
		return ErrNameTooLong
	}
	d.Name = name
	return nil
}

// SetSendAt parses an operator-typed schedule in the display timezone and
// rejects moments already in the past.
func (d *Draft) SetSendAt(raw string, tz *time.Location, now time.Time) error {
	t, err := time.ParseInLocation(DatetimeLayout, raw, tz)
	if err != nil {
		return ErrBadTime
	}
	if t.Before(now) {
		return ErrBadTime
	}
	utc := t.UTC()
	d.SendAt = &utc
	return nil
}

// SendNow drops the schedule so the mailing is immediately eligible.
func (d *Draft) SendNow() {
	d.SendAt = nil
}

func (d *Draft) AddButton(text, url string) {
	d.Keyboard = append(d.Keyboard, model.Button{Text: text, URL: url})
}

func (d *Draft) SetMediaType(kind string) error {
	if !model.ValidMediaType(kind) {
		return ErrBadMedia
	}
	d.PendingMediaType = kind
	return nil
}

// SetMediaFrom finishes the media step: an attached file wins over a typed
// URL. For photos Telegram sends multiple sizes; the largest one is used.
func (d *Draft) SetMediaFrom(msg *telegram.Message) {
	url := msg.Text
	switch d.PendingMediaType {
	case model.MediaPhoto:
		if len(msg.Photo) > 0 {
			url = msg.Photo[len(msg.Photo)-1].FileID
		}
	case model.MediaVideo:
		if msg.Video != nil {
			url = msg.Video.FileID
		}
	case model.MediaAnimation:
		if msg.Animation != nil {
			url = msg.Animation.FileID
		}
	}
	d.Media = &model.Media{MediaType: d.PendingMediaType, URL: url}
	d.PendingMediaType = ""
}

// Extra assembles the optional structured payload for saving.
func (d *Draft) Extra() model.Extra {
	return model.Extra{Keyboard: d.Keyboard, Media: d.Media}
}

// Represent renders the draft for a preview message.
func (d *Draft) Represent(tz *time.Location) string {
	schedule := "now"
	if d.SendAt != nil {
		schedule = d.SendAt.In(tz).Format(DatetimeLayout)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Name: %s\nMessage:\n%s\n\nSend at: %s\n", d.Name, d.Message, schedule)
	if len(d.Keyboard) > 0 {
		b.WriteString("Buttons:\n")
		for _, btn := range d.Keyboard {
			fmt.Fprintf(&b, "%s -> %s\n", btn.Text, btn.URL)
		}
	}
	if d.Media != nil {
		fmt.Fprintf(&b, "Media: %s %s\n", d.Media.MediaType, d.Media.URL)
	}
	return b.String()
}
