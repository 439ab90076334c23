// cmd/server/main.go
package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/Serenityblood/victory-test/internal/config"
	"github.com/Serenityblood/victory-test/internal/db"
	"github.com/Serenityblood/victory-test/internal/handler"
	"github.com/Serenityblood/victory-test/internal/repository"
	"github.com/Serenityblood/victory-test/internal/service"
	"github.com/Serenityblood/victory-test/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log := logger.New(cfg.LogLevel)

	if err := db.MigrateUp(cfg.DatabaseURL(), cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("migrations failed")
	}

	conn, err := db.Open(cfg.DatabaseURL())
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer conn.Close()

	mailingRepo := &repository.MailingRepository{DB: conn}
	userRepo := &repository.UserRepository{DB: conn}

	mailingService := &service.MailingService{
		MailingRepo: mailingRepo,
		UserRepo:    userRepo,
	}
	userService := &service.UserService{
		UserRepo: userRepo,
	}

	mailingHandler := &handler.MailingHandler{
		Service: mailingService,
		TZ:      cfg.Timezone,
	}
	userHandler := &handler.UserHandler{
		Service: userService,
		TZ:      cfg.Timezone,
	}

	r := chi.NewRouter()

	// Mailing routes
	r.Get("/mailings", mailingHandler.ListMailings)
	r.Post("/mailings", mailingHandler.CreateMailing)
	r.Get("/mailings/{id}", mailingHandler.GetMailing)
	r.Patch("/mailings/{id}", mailingHandler.UpdateMailing)
	r.Delete("/mailings/{id}", mailingHandler.DeleteMailing)

	// User routes
	r.Get("/users", userHandler.ListUsers)
	r.Post("/users", userHandler.CreateUser)
	r.Get("/users/{tg_id}", userHandler.GetUser)
	r.Patch("/users/{tg_id}", userHandler.UpdateUserRole)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	log.Info().Str("port", cfg.HTTPPort).Msg("server running")
	if err := srv.ListenAndServe(); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
