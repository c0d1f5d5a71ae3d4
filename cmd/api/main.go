package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"eventhub/config"
	_ "eventhub/docs"
	"eventhub/internal/adapters/auth"
	delivery "eventhub/internal/delivery/http"
	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
	"eventhub/internal/repository/memory"
	"eventhub/internal/repository/postgres"
	"eventhub/internal/services"
)

// storage bundles the repositories of one driver.
type storage struct {
	transactor    domain.Transactor
	events        domain.EventRepository
	registrations domain.RegistrationRepository
	users         domain.UserRepository
	db            *sql.DB
}

// @title Eventhub API
// @version 1.0
// @description Event registration and ticket capacity API.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the JWT.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	store, err := openStorage(context.Background(), cfg, logger)
	if err != nil {
		logger.Error("storage init failed", "driver", cfg.StorageDriver, "err", err)
		os.Exit(1)
	}
	if store.db != nil {
		defer store.db.Close()
	}

	jwt := auth.NewJWT(cfg.JWTSecret)
	ledger := services.NewCapacityLedger(store.events)
	authSvc := services.NewAuthService(store.users, auth.NewBcryptHasher(cfg.BcryptCost), jwt, cfg.JWTExpiry)
	eventSvc := services.NewEventService(store.events, cfg.RequestTimeout)
	registrationSvc := services.NewRegistrationService(
		store.transactor,
		store.events,
		store.registrations,
		ledger,
		services.RegistrationPolicy{RequireApproval: cfg.RequireApproval},
		cfg.RequestTimeout,
		logger,
	)
	statsSvc := services.NewStatsService(store.events, store.registrations, cfg.RequestTimeout)
	userSvc := services.NewUserService(store.users, cfg.RequestTimeout)

	// A nil *sql.DB must not become a non-nil Pinger.
	var pinger controllers.Pinger
	if store.db != nil {
		pinger = store.db
	}
	mux := delivery.NewRouter(delivery.Controllers{
		Auth:         controllers.NewAuthController(logger, authSvc),
		Event:        controllers.NewEventController(logger, eventSvc),
		Registration: controllers.NewRegistrationController(logger, registrationSvc),
		Stats:        controllers.NewStatsController(logger, statsSvc),
		User:         controllers.NewUserController(logger, userSvc),
		Health:       controllers.NewHealthController(logger, pinger),
	}, jwt, logger)

	handler := middleware.CORS(cfg.AllowedOrigins, middleware.LoggingMiddleware(logger, mux))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment, "storage", cfg.StorageDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
	}
	logger.Info("server stopped")
}

func openStorage(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*storage, error) {
	if cfg.StorageDriver == config.DriverMemory {
		s := memory.NewStore()
		logger.Warn("using in-memory storage; data is lost on restart")
		return &storage{
			transactor:    s,
			events:        memory.NewEventRepository(s),
			registrations: memory.NewRegistrationRepository(s),
			users:         memory.NewUserRepository(s),
		}, nil
	}

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("schema migrated")
	}
	return &storage{
		transactor:    postgres.NewTransactor(db),
		events:        postgres.NewEventRepository(db),
		registrations: postgres.NewRegistrationRepository(db),
		users:         postgres.NewUserRepository(db),
		db:            db,
	}, nil
}
