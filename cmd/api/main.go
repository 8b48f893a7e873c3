package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/support-portal/internal/api/http"
	"github.com/spec-kit/support-portal/internal/api/http/handlers"
	"github.com/spec-kit/support-portal/internal/auth"
	"github.com/spec-kit/support-portal/internal/config"
	"github.com/spec-kit/support-portal/internal/draft"
	"github.com/spec-kit/support-portal/internal/events"
	"github.com/spec-kit/support-portal/internal/observability"
	"github.com/spec-kit/support-portal/internal/persistence"
	"github.com/spec-kit/support-portal/internal/repository"
	"github.com/spec-kit/support-portal/internal/service"
	"github.com/spec-kit/support-portal/internal/store"
	"github.com/spec-kit/support-portal/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	metrics := observability.NewMetrics()

	pg, err := persistence.NewPostgres(ctx, cfg.Backend, logger)
	if err != nil {
		logger.Fatal("failed to connect ticket backend", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Backend.RunMigrations && pg.PoolHandle() != nil {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	draftDB, err := persistence.OpenSQLite(cfg.Draft.Path)
	if err != nil {
		logger.Fatal("failed to open draft cache", zap.Error(err))
	}
	defer draftDB.Close()

	drafts, err := draft.Open(ctx, draftDB)
	if err != nil {
		logger.Fatal("failed to load draft cache", zap.Error(err))
	}

	var ticketRepo repository.TicketRepository
	if pool := pg.PoolHandle(); pool != nil {
		ticketRepo = repository.NewTicketRepository(pool)
	} else {
		ticketRepo = repository.NewDisabledRepository(logger)
	}

	var sessionStore auth.SessionStore
	if redis.Available(ctx) {
		sessionStore = auth.NewRedisSessionStore(redis.Client)
	} else {
		logger.Warn("redis unavailable; sessions held in memory for this process")
		sessionStore = auth.NewMemorySessionStore()
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.SessionTTL())
	sessions := auth.NewSessionManager(sessionStore, tokens, cfg.Auth, logger)
	adminGate := auth.NewAdminGate(cfg.Auth.AdminPassword, cfg.Auth.BcryptCost, logger)
	sessionMiddleware := auth.NewSessionMiddleware(sessions)

	ticketStore := store.New()
	dispatcher := events.NewInMemoryDispatcher()

	ticketService := service.NewTicketService(service.Dependencies{
		TicketRepo: ticketRepo,
		Store:      ticketStore,
		Drafts:     drafts,
		Sessions:   sessions,
		Dispatcher: dispatcher,
		Logger:     logger,
		Metrics:    metrics,
	})

	worker.NewNotificationWorker(ticketService, logger).Start(dispatcher)

	// warm the cache; a degraded backend just leaves it empty
	if err := ticketService.Refresh(ctx); err != nil {
		logger.Warn("initial refresh failed", zap.Error(err))
	}

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:            handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Tickets:           handlers.NewTicketsHandler(ticketService),
		Sessions:          handlers.NewSessionsHandler(sessions),
		Admin:             handlers.NewAdminHandler(ticketService, adminGate, sessions),
		Theme:             handlers.NewThemeHandler(drafts, ticketStore),
		SessionMiddleware: sessionMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
