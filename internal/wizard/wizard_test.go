package wizard

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/Serenityblood/victory-test/internal/model"
	"github.com/Serenityblood/victory-test/internal/telegram"
)

type memStore struct {
	sessions map[int64]*Session
	corrupt  map[int64]bool
}

func newMemStore() *memStore {
	return &memStore{
		sessions: map[int64]*Session{},
		corrupt:  map[int64]bool{},
	}
}

func (m *memStore) Load(ctx context.Context, chatID int64) (*Session, error) {
	if m.corrupt[chatID] {
		return nil, ErrCorruptSession
	}
	s, ok := m.sessions[chatID]
	if !ok {
		return nil, ErrNoSession
	}
	// Copy, like a real store round-trip would.
	cp := *s
	return &cp, nil
}

func (m *memStore) Save(ctx context.Context, chatID int64, s *Session) error {
	cp := *s
	m.sessions[chatID] = &cp
	return nil
}

func (m *memStore) Clear(ctx context.Context, chatID int64) error {
	delete(m.sessions, chatID)
	delete(m.corrupt, chatID)
	return nil
}

func testWizard(t *testing.T) (*Wizard, *memStore) {
	t.Helper()
	tz, err := time.LoadLocation("Europe/Moscow")
	if err != nil {
		t.Fatal(err)
	}
	store := newMemStore()
	w := New(store, tz)
	w.now = func() time.Time {
		return time.Date(2025, 6, 1, 12, 0, 0, 0, tz)
	}
	return w, store
}

func feed(t *testing.T, w *Wizard, chatID int64, text string) Reply {
	t.Helper()
	r, err := w.Feed(context.Background(), chatID, &telegram.Message{Text: text})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestWizardHappyPath(t *testing.T) {
	w, _ := testWizard(t)
	ctx := context.Background()
	const chat = int64(42)

	if _, err := w.Start(ctx, chat, 42); err != nil {
		t.Fatal(err)
	}
	if !w.Active(ctx, chat) {
		t.Fatal("session must be active after Start")
	}

	feed(t, w, chat, "June promo")
	feed(t, w, chat, "Big sale today!")
	r := feed(t, w, chat, "2025-06-02 10:00:00")
	if !strings.Contains(r.Text, "June promo") {
		t.Errorf("menu reply should preview the draft, got %q", r.Text)
	}

	r = feed(t, w, chat, "/save")
	if r.Done == nil {
		t.Fatal("/save must finish the conversation")
	}
	d := r.Done
	if d.Name != "June promo" || d.Message != "Big sale today!" {
		t.Errorf("unexpected draft: %+v", d)
	}
	if d.SendAt == nil {
		t.Fatal("schedule must be set")
	}
	if got := d.SendAt.UTC(); got != time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC) {
		t.Errorf("send_at must be stored in UTC, got %s", got)
	}
	if d.CreatorTgID != 42 {
		t.Errorf("creator must survive the session, got %d", d.CreatorTgID)
	}

	if w.Active(ctx, chat) {
		t.Error("session must be cleared after /save")
	}
}

func TestWizardSendNow(t *testing.T) {
	w, _ := testWizard(t)
	const chat = int64(1)

	w.Start(context.Background(), chat, 1)
	feed(t, w, chat, "n")
	feed(t, w, chat, "m")
	feed(t, w, chat, "/now")

	r := feed(t, w, chat, "/save")
	if r.Done == nil {
		t.Fatal("expected finished draft")
	}
	if r.Done.SendAt != nil {
		t.Error("/now must leave the schedule empty")
	}
}

func TestWizardRejectsBadInput(t *testing.T) {
	w, store := testWizard(t)
	const chat = int64(1)
	w.Start(context.Background(), chat, 1)

	r := feed(t, w, chat, strings.Repeat("x", model.MaxNameSize+1))
	if r.Text != ErrNameTooLong.Error() {
		t.Errorf("expected name rejection, got %q", r.Text)
	}
	if store.sessions[chat].State != StateChooseName {
		t.Error("a rejected name must keep the state")
	}

	feed(t, w, chat, "ok name")
	feed(t, w, chat, "msg")

	r = feed(t, w, chat, "tomorrow at noon")
	if r.Text != ErrBadTime.Error() {
		t.Errorf("expected time rejection, got %q", r.Text)
	}
	// Past moments are rejected too.
	r = feed(t, w, chat, "2020-01-01 00:00:00")
	if r.Text != ErrBadTime.Error() {
		t.Errorf("expected past-time rejection, got %q", r.Text)
	}
	if store.sessions[chat].State != StateChooseSendAt {
		t.Error("a rejected time must keep the state")
	}
}

func TestWizardButtonsAndMedia(t *testing.T) {
	w, _ := testWizard(t)
	const chat = int64(1)
	w.Start(context.Background(), chat, 1)
	feed(t, w, chat, "n")
	feed(t, w, chat, "m")
	feed(t, w, chat, "/now")

	feed(t, w, chat, "/button")
	feed(t, w, chat, "Open site")
	feed(t, w, chat, "https://example.com")

	feed(t, w, chat, "/media")
	r := feed(t, w, chat, "sticker")
	if r.Text != ErrBadMedia.Error() {
		t.Errorf("expected media type rejection, got %q", r.Text)
	}
	feed(t, w, chat, "photo")
	feed(t, w, chat, "https://example.com/pic.png")

	r = feed(t, w, chat, "/save")
	if r.Done == nil {
		t.Fatal("expected finished draft")
	}
	extra := r.Done.Extra()
	if len(extra.Keyboard) != 1 || extra.Keyboard[0].Text != "Open site" {
		t.Errorf("unexpected keyboard: %+v", extra.Keyboard)
	}
	if extra.Media == nil || extra.Media.MediaType != model.MediaPhoto || extra.Media.URL != "https://example.com/pic.png" {
		t.Errorf("unexpected media: %+v", extra.Media)
	}
}

func TestWizardAttachedFileWinsOverURL(t *testing.T) {
	w, _ := testWizard(t)
	const chat = int64(1)
	w.Start(context.Background(), chat, 1)
	feed(t, w, chat, "n")
	feed(t, w, chat, "m")
	feed(t, w, chat, "/now")

	feed(t, w, chat, "/media")
	feed(t, w, chat, "photo")
	msg := &telegram.Message{
		Text: "ignored",
		Photo: []telegram.PhotoSize{
			{FileID: "small"},
			{FileID: "large"},
		},
	}
	if _, err := w.Feed(context.Background(), chat, msg); err != nil {
		t.Fatal(err)
	}

	r := feed(t, w, chat, "/save")
	if r.Done == nil {
		t.Fatal("expected finished draft")
	}
	if got := r.Done.Media.URL; got != "large" {
		t.Errorf("largest photo size must win, got %q", got)
	}
}

func TestWizardChangeCommandsReuseSteps(t *testing.T) {
	w, _ := testWizard(t)
	const chat = int64(1)
	w.Start(context.Background(), chat, 1)
	feed(t, w, chat, "old name")
	feed(t, w, chat, "old msg")
	feed(t, w, chat, "/now")

	feed(t, w, chat, "/name")
	feed(t, w, chat, "new name")
	feed(t, w, chat, "/message")
	feed(t, w, chat, "new msg")

	r := feed(t, w, chat, "/save")
	if r.Done == nil {
		t.Fatal("expected finished draft")
	}
	if r.Done.Name != "new name" || r.Done.Message != "new msg" {
		t.Errorf("change commands must overwrite the draft: %+v", r.Done)
	}
}

func TestWizardCorruptSessionResets(t *testing.T) {
	w, store := testWizard(t)
	const chat = int64(1)
	w.Start(context.Background(), chat, 1)
	store.corrupt[chat] = true

	r := feed(t, w, chat, "anything")
	if !strings.Contains(r.Text, "/constructor") {
		t.Errorf("corrupt session must ask to start over, got %q", r.Text)
	}
	if w.Active(context.Background(), chat) {
		t.Error("corrupt session must be cleared")
	}
}

func TestWizardCancel(t *testing.T) {
	w, _ := testWizard(t)
	ctx := context.Background()
	const chat = int64(1)
	w.Start(ctx, chat, 1)

	if err := w.Cancel(ctx, chat); err != nil {
		t.Fatal(err)
	}
	if w.Active(ctx, chat) {
		t.Error("cancel must drop the session")
	}
}
