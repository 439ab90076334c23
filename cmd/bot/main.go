// cmd/bot/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/Serenityblood/victory-test/internal/apiclient"
	"github.com/Serenityblood/victory-test/internal/config"
	"github.com/Serenityblood/victory-test/internal/model"
	"github.com/Serenityblood/victory-test/internal/telegram"
	"github.com/Serenityblood/victory-test/internal/wizard"
	"github.com/Serenityblood/victory-test/pkg/logger"
)

const pollWindow = 30 * time.Second

const (
	startText     = "Hello! You are registered and will receive mailings."
	notAllowed    = "Only admins and moderators can create mailings."
	savedText     = "Mailing saved."
	cancelledText = "Draft dropped."
	errorText     = "Something went wrong, try again later."
)

type bot struct {
	client *telegram.Client
	api    *apiclient.Client
	wizard *wizard.Wizard
	log    zerolog.Logger
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.LogLevel)

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// The client timeout must exceed the long-poll window or idle polls
	// would surface as transport errors.
	b := &bot{
		client: telegram.NewClient(cfg.TelegramAPI, cfg.BotToken, pollWindow+10*time.Second),
		api:    apiclient.New(cfg.APIURL, 5*time.Second),
		wizard: wizard.New(wizard.NewRedisStore(redisClient, 24*time.Hour), cfg.Timezone),
		log:    log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Msg("bot polling started")
	b.poll(ctx)
	log.Info().Msg("bot stopped")
}

func (b *bot) poll(ctx context.Context) {
	var offset int64
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		updates, err := b.client.GetUpdates(ctx, offset, int(pollWindow.Seconds()))
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			b.log.Error().Err(err).Msg("poll failed")
			time.Sleep(3 * time.Second)
			continue
		}
		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil || u.Message.From == nil {
				continue
			}
			b.handle(ctx, u.Message)
		}
	}
}

func (b *bot) handle(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID

	switch msg.Text {
	case "/start":
		b.register(ctx, msg)
		return
	case "/constructor":
		b.startConstructor(ctx, msg)
		return
	case "/cancel":
		if err := b.wizard.Cancel(ctx, chatID); err != nil {
			b.log.Error().Err(err).Int64("chat_id", chatID).Msg("cancel failed")
			b.reply(ctx, chatID, errorText)
			return
		}
		b.reply(ctx, chatID, cancelledText)
		return
	}

	if !b.wizard.Active(ctx, chatID) {
		return
	}
	r, err := b.wizard.Feed(ctx, chatID, msg)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("wizard step failed")
		b.reply(ctx, chatID, errorText)
		return
	}
	if r.Done != nil {
		b.save(ctx, chatID, r.Done)
		return
	}
	b.reply(ctx, chatID, r.Text)
}

func (b *bot) register(ctx context.Context, msg *telegram.Message) {
	user, err := b.api.RegisterUser(ctx, msg.From.FullName(), msg.From.ID)
	if err != nil {
		if errors.Is(err, apiclient.ErrAlreadyRegistered) {
			b.reply(ctx, msg.Chat.ID, "You are already registered.")
			return
		}
		b.log.Error().Err(err).Int64("tg_id", msg.From.ID).Msg("registration failed")
		b.reply(ctx, msg.Chat.ID, errorText)
		return
	}
	b.log.Info().Int64("tg_id", user.TgID).Str("role", string(user.Role)).Msg("new user registered")
	b.reply(ctx, msg.Chat.ID, startText)
}

func (b *bot) startConstructor(ctx context.Context, msg *telegram.Message) {
	user, err := b.api.GetUser(ctx, msg.From.ID)
	if err != nil {
		b.log.Error().Err(err).Int64("tg_id", msg.From.ID).Msg("user lookup failed")
		b.reply(ctx, msg.Chat.ID, errorText)
		return
	}
	if user.Role != model.RoleAdmin && user.Role != model.RoleModerator {
		b.reply(ctx, msg.Chat.ID, notAllowed)
		return
	}
	r, err := b.wizard.Start(ctx, msg.Chat.ID, msg.From.ID)
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", msg.Chat.ID).Msg("wizard start failed")
		b.reply(ctx, msg.Chat.ID, errorText)
		return
	}
	b.reply(ctx, msg.Chat.ID, r.Text)
}

func (b *bot) save(ctx context.Context, chatID int64, draft *wizard.Draft) {
	err := b.api.CreateMailing(ctx, apiclient.CreateMailingRequest{
		Name:        draft.Name,
		Message:     draft.Message,
		CreatorTgID: draft.CreatorTgID,
		SendAt:      draft.SendAt,
		Extra:       draft.Extra(),
	})
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("mailing save failed")
		b.reply(ctx, chatID, errorText)
		return
	}
	b.reply(ctx, chatID, savedText)
}

func (b *bot) reply(ctx context.Context, chatID int64, text string) {
	res, err := b.client.Send(ctx, "sendMessage", map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	})
	if err != nil {
		b.log.Error().Err(err).Int64("chat_id", chatID).Msg("reply failed")
		return
	}
	if !res.Delivered() {
		b.log.Error().Int("status", res.StatusCode).Bytes("response", res.Body).Msg("reply rejected")
	}
}
