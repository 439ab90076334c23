package wizard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// State names every step of the authoring conversation.
type State string

const (
	StateChooseName    State = "choose_name"
	StateChooseMessage State = "choose_message"
	StateChooseSendAt  State = "choose_send_at"
	StateMenu          State = "menu"
	StateButtonText    State = "new_button_text"
	StateButtonURL     State = "new_button_url"
	StateMediaType     State = "new_media_type"
	StateMediaURL      State = "new_media_url"
)

// Session is one chat's wizard progress, persisted between updates.
type Session struct {
	State State `json:"state"`
	Draft Draft `json:"draft"`
}

var (
	// ErrNoSession means the chat has no wizard in progress.
	ErrNoSession = errors.New("no active session")
	// ErrCorruptSession means the stored session no longer deserializes.
	// Callers reset the session instead of crashing on it.
	ErrCorruptSession = errors.New("stored session is corrupt")
)

// Store persists wizard sessions keyed by chat.
type Store interface {
	Load(ctx context.Context, chatID int64) (*Session, error)
	Save(ctx context.Context, chatID int64, s *Session) error
	Clear(ctx context.Context, chatID int64) error
}

// RedisStore keeps sessions in Redis with a TTL so abandoned drafts expire.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: client, ttl: ttl}
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("wizard:session:%d", chatID)
}

func (r *RedisStore) Load(ctx context.Context, chatID int64) (*Session, error) {
	raw, err := r.client.Get(ctx, sessionKey(chatID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSession
		}
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	return &s, nil
}

func (r *RedisStore) Save(ctx context.Context, chatID int64, s *Session) error {
	raw, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, sessionKey(chatID), raw, r.ttl).Err()
}

func (r *RedisStore) Clear(ctx context.Context, chatID int64) error {
	return r.client.Del(ctx, sessionKey(chatID)).Err()
}

var _ Store = (*RedisStore)(nil)
