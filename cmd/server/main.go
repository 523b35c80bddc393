package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gochat/internal/config"
	"gochat/internal/domain"
	"gochat/internal/httpserver"
	"gochat/internal/registry"
	"gochat/internal/service"
	"gochat/internal/store/postgres"
	"gochat/internal/store/sqlite"
	"gochat/internal/ws"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, closeLog := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
	defer closeLog()

	var (
		db       *sql.DB
		userRepo domain.UserRepository
		convRepo domain.ConversationRepository
		msgRepo  domain.MessageRepository
	)
	switch cfg.Driver {
	case "postgres":
		db, err = postgres.Open(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		userRepo = postgres.NewUserRepo(db)
		convRepo = postgres.NewConversationRepo(db)
		msgRepo = postgres.NewMessageRepo(db)
	default:
		db, err = sqlite.Open(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("failed to open database: %v", err)
		}
		if err := sqlite.Migrate(db); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		userRepo = sqlite.NewUserRepo(db)
		convRepo = sqlite.NewConversationRepo(db)
		msgRepo = sqlite.NewMessageRepo(db)
	}
	defer db.Close()

	reg := registry.New(userRepo, logger)

	presenceSvc := service.NewPresenceService(reg, userRepo, logger)
	relaySvc := service.NewRelayService(reg, msgRepo, convRepo, userRepo, logger)
	userSvc := service.NewUserService(userRepo)
	convSvc := service.NewConversationService(convRepo, userRepo)
	msgSvc := service.NewMessageService(msgRepo, convRepo)

	wsHandler := ws.MakeHandler(reg, presenceSvc, relaySvc, cfg.CORSOrigins, logger)
	router := httpserver.NewRouter(cfg, userSvc, convSvc, msgSvc, wsHandler)

	srv := &http.Server{
		Addr:         cfg.HTTPAddr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting gochat server", "addr", cfg.HTTPAddr(), "driver", cfg.Driver)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
