// Package wizard implements the mailing-constructor conversation: a small
// explicit state machine that builds a mailing draft step by step and hands
// the finished draft back to the caller for saving.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Serenityblood/victory-test/internal/telegram"
)

const menuHelp = "Commands:\n" +
	"/save - save the mailing\n" +
	"/preview - show the draft\n" +
	"/name - change the name\n" +
	"/message - change the message\n" +
	"/time - change the send time\n" +
	"/button - add a button\n" +
	"/media - attach media\n" +
	"/cancel - drop the draft"

// Reply is what the bot should answer with after feeding one message.
// When Done is set the conversation finished and the draft is ready to save.
type Reply struct {
	Text string
	Done *Draft
}

type Wizard struct {
	store Store
	tz    *time.Location
	now   func() time.Time
}

func New(store Store, tz *time.Location) *Wizard {
	return &Wizard{store: store, tz: tz, now: time.Now}
}

// Start opens a fresh session for the chat, dropping any previous draft.
func (w *Wizard) Start(ctx context.Context, chatID, creatorTgID int64) (Reply, error) {
	s := &Session{
		State: StateChooseName,
		Draft: Draft{CreatorTgID: creatorTgID},
	}
	if err := w.store.Save(ctx, chatID, s); err != nil {
		return Reply{}, err
	}
	return Reply{Text: "New mailing. Send its name."}, nil
}

// Active reports whether the chat has a wizard in progress.
func (w *Wizard) Active(ctx context.Context, chatID int64) bool {
	_, err := w.store.Load(ctx, chatID)
	return err == nil
}

// Feed advances the conversation with one incoming message. A corrupt stored
// session is reset and reported, never fatal.
func (w *Wizard) Feed(ctx context.Context, chatID int64, msg *telegram.Message) (Reply, error) {
	s, err := w.store.Load(ctx, chatID)
	if err != nil {
		if errors.Is(err, ErrCorruptSession) {
			_ = w.store.Clear(ctx, chatID)
			return Reply{Text: "The draft got lost, start over with /constructor."}, nil
		}
		return Reply{}, err
	}

	reply := w.advance(s, msg)
	if reply.Done != nil {
		if err := w.store.Clear(ctx, chatID); err != nil {
			return Reply{}, err
		}
		return reply, nil
	}
	if err := w.store.Save(ctx, chatID, s); err != nil {
		return Reply{}, err
	}
	return reply, nil
}

// Cancel drops the chat's draft.
func (w *Wizard) Cancel(ctx context.Context, chatID int64) error {
	return w.store.Clear(ctx, chatID)
}

func (w *Wizard) advance(s *Session, msg *telegram.Message) Reply {
	text := strings.TrimSpace(msg.Text)

	switch s.State {
	case StateChooseName:
		if err := s.Draft.SetName(text); err != nil {
			return Reply{Text: err.Error()}
		}
		s.State = StateChooseMessage
		return Reply{Text: "Send the mailing message."}

	case StateChooseMessage:
		s.Draft.Message = msg.Text
		s.State = StateChooseSendAt
		return Reply{Text: fmt.Sprintf("Send the time as %s (%s), or /now to send immediately.", DatetimeLayout, w.tz)}

	case StateChooseSendAt:
		if text == "/now" {
			s.Draft.SendNow()
		} else if err := s.Draft.SetSendAt(text, w.tz, w.now()); err != nil {
			return Reply{Text: err.Error()}
		}
		s.State = StateMenu
		return Reply{Text: s.Draft.Represent(w.tz) + "\n" + menuHelp}

	case StateMenu:
		return w.menuCommand(s, text)

	case StateButtonText:
		s.Draft.PendingButtonText = text
		s.State = StateButtonURL
		return Reply{Text: "Send the button URL."}

	case StateButtonURL:
		s.Draft.AddButton(s.Draft.PendingButtonText, text)
		s.Draft.PendingButtonText = ""
		s.State = StateMenu
		return Reply{Text: s.Draft.Represent(w.tz) + "\n" + menuHelp}

	case StateMediaType:
		if err := s.Draft.SetMediaType(text); err != nil {
			return Reply{Text: err.Error()}
		}
		s.State = StateMediaURL
		return Reply{Text: "Send the media file or its URL."}

	case StateMediaURL:
		s.Draft.SetMediaFrom(msg)
		s.State = StateMenu
		return Reply{Text: s.Draft.Represent(w.tz) + "\n" + menuHelp}
	}

	return Reply{Text: menuHelp}
}

func (w *Wizard) menuCommand(s *Session, text string) Reply {
	switch text {
	case "/save":
		draft := s.Draft
		return Reply{Done: &draft}
	case "/preview":
		return Reply{Text: s.Draft.Represent(w.tz) + "\n" + menuHelp}
	case "/name":
		s.State = StateChooseName
		return Reply{Text: "Send the new name."}
	case "/message":
		s.State = StateChooseMessage
		return Reply{Text: "Send the new message."}
	case "/time":
		s.State = StateChooseSendAt
		return Reply{Text: fmt.Sprintf("Send the time as %s (%s), or /now.", DatetimeLayout, w.tz)}
	case "/button":
		s.State = StateButtonText
		return Reply{Text: "Send the button text."}
	case "/media":
		s.State = StateMediaType
		return Reply{Text: "Send the media type: animation, photo or video."}
	}
	return Reply{Text: menuHelp}
}
