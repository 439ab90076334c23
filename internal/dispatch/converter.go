package dispatch

import (
	"fmt"

	"github.com/Serenityblood/victory-test/internal/model"
)

// Bot API method names per media kind.
const (
	methodSendMessage   = "sendMessage"
	methodSendPhoto     = "sendPhoto"
	methodSendVideo     = "sendVideo"
	methodSendAnimation = "sendAnimation"
)

// ReplyMarkup wraps a mailing's buttons as a single-row inline keyboard.
type ReplyMarkup struct {
	InlineKeyboard [][]model.Button `json:"inline_keyboard"`
}

// SendPayload is the request body for one send call. ChatID stays zero until
// the fan-out addresses a concrete recipient.
type SendPayload struct {
	ChatID      int64        `json:"chat_id,omitempty"`
	Text        string       `json:"text,omitempty"`
	Caption     string       `json:"caption,omitempty"`
	Photo       string       `json:"photo,omitempty"`
	Video       string       `json:"video,omitempty"`
	Animation   string       `json:"animation,omitempty"`
	ParseMode   string       `json:"parse_mode"`
	ReplyMarkup *ReplyMarkup `json:"reply_markup,omitempty"`
}

// Prepare converts a stored mailing into the Bot API method and request body
// that deliver it. Conversion is pure: the same mailing always yields the
// same pair.
func Prepare(m *model.Mailing) (string, SendPayload, error) {
	payload := SendPayload{ParseMode: "HTML"}

	if len(m.Extra.Keyboard) > 0 {
		payload.ReplyMarkup = &ReplyMarkup{
			InlineKeyboard: [][]model.Button{m.Extra.Keyboard},
		}
	}

	media := m.Extra.Media
	if media == nil {
		payload.Text = m.Message
		return methodSendMessage, payload, nil
	}

	payload.Caption = m.Message
	switch media.MediaType {
	case model.MediaPhoto:
		payload.Photo = media.URL
		return methodSendPhoto, payload, nil
	case model.MediaVideo:
		payload.Video = media.URL
		return methodSendVideo, payload, nil
	case model.MediaAnimation:
		payload.Animation = media.URL
		return methodSendAnimation, payload, nil
	}
	return "", SendPayload{}, fmt.Errorf("mailing %d: unsupported media type %q", m.ID, media.MediaType)
}
