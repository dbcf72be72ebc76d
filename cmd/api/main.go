package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/cliphub/support-service/internal/api/http"
	"github.com/cliphub/support-service/internal/api/http/handlers"
	"github.com/cliphub/support-service/internal/auth"
	"github.com/cliphub/support-service/internal/config"
	"github.com/cliphub/support-service/internal/docstore"
	"github.com/cliphub/support-service/internal/events"
	"github.com/cliphub/support-service/internal/observability"
	"github.com/cliphub/support-service/internal/persistence"
	"github.com/cliphub/support-service/internal/repository"
	"github.com/cliphub/support-service/internal/service"
	"github.com/cliphub/support-service/internal/worker"
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

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	userRepo := repository.NewUserRepository(pool)
	agentRepo := repository.NewAgentRepository(pool)
	resetRepo := repository.NewPasswordResetRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)
	historyRepo := repository.NewTicketHistoryRepository(pool)

	var dispatcher events.Dispatcher
	if redis.Ping(ctx) == nil {
		dispatcher = events.NewRedisFeed(ctx, redis.Client, logger)
		logger.Info("change feed backed by redis pub/sub")
	} else {
		dispatcher = events.NewInMemoryDispatcher()
		logger.Warn("redis unreachable, change feed is in-process only")
	}

	authService := service.NewAuthService(*cfg, service.AuthDependencies{
		UserRepo:          userRepo,
		AgentRepo:         agentRepo,
		PasswordResetRepo: resetRepo,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		HistoryRepo: historyRepo,
		Dispatcher:  dispatcher,
	})
	adminService := service.NewAdminService(service.AdminDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		HistoryRepo: historyRepo,
		AgentRepo:   agentRepo,
		Dispatcher:  dispatcher,
	})
	templateService := service.NewTemplateService(templateRepo, dispatcher)
	agentService := service.NewAgentService(*cfg, agentRepo)

	notificationService := service.NewNotificationService(dispatcher, logger, cfg.Notification)
	notificationService.RegisterHandlers()

	if cfg.Widget.SyncEnabled {
		store := docstore.NewStore(redis, cfg.Widget, logger)
		syncWorker := worker.NewSyncWorker(worker.SyncDependencies{
			Store:        store,
			TicketRepo:   ticketRepo,
			MessageRepo:  messageRepo,
			TemplateRepo: templateRepo,
			Dispatcher:   dispatcher,
		}, cfg.Widget.PollInterval(), logger)
		syncWorker.RegisterHandlers()
		go syncWorker.Run(ctx)
	}

	authMiddleware := auth.NewAuthMiddleware(authService.TokenManager(), userRepo, agentRepo)
	metrics := observability.NewMetrics()

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Auth:           handlers.NewAuthHandler(authService),
		Tickets:        handlers.NewTicketsHandler(ticketService),
		AdminTickets:   handlers.NewAdminTicketsHandler(adminService),
		Stats:          handlers.NewStatsHandler(adminService),
		Templates:      handlers.NewTemplatesHandler(templateService),
		Agents:         handlers.NewAgentsHandler(agentService),
		AuthMiddleware: authMiddleware,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
