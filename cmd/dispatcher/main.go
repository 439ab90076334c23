// cmd/dispatcher/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Serenityblood/victory-test/internal/config"
	"github.com/Serenityblood/victory-test/internal/db"
	"github.com/Serenityblood/victory-test/internal/dispatch"
	"github.com/Serenityblood/victory-test/internal/queue"
	"github.com/Serenityblood/victory-test/internal/repository"
	"github.com/Serenityblood/victory-test/internal/telegram"
	"github.com/Serenityblood/victory-test/pkg/logger"
)

// storeAdapter narrows the concrete scan repository to the dispatch engine's
// storage interface.
type storeAdapter struct {
	repo *repository.ScanRepository
}

func (a storeAdapter) BeginScan(ctx context.Context) (dispatch.ScanTx, error) {
	return a.repo.BeginScan(ctx)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.LogLevel)

	conn, err := db.Open(cfg.DatabaseURL())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer conn.Close()

	client := telegram.NewClient(cfg.TelegramAPI, cfg.BotToken, cfg.SendTimeout)

	// The failure audit queue is optional: without a broker the dispatcher
	// still runs, failures are only logged.
	var failures dispatch.FailureSink
	if cfg.FailureQueueURL != "" {
		publisher, err := queue.NewFailurePublisher(cfg.FailureQueueURL)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq connection failed")
		}
		defer publisher.Close()
		failures = publisher
	}

	dispatcher := dispatch.NewDispatcher(
		storeAdapter{repo: &repository.ScanRepository{DB: conn}},
		client,
		failures,
		dispatch.Config{
			Interval:    cfg.ScanInterval,
			MaxInFlight: cfg.MaxInFlight,
			ReportRoles: cfg.ReportRoles,
		},
		log,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Dur("interval", cfg.ScanInterval).Msg("dispatcher running")
	dispatcher.Run(ctx)
	log.Info().Msg("dispatcher stopped")
}
