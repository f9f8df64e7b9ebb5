package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/civicseva/civic-complaints/internal/api/http"
	"github.com/civicseva/civic-complaints/internal/api/http/handlers"
	"github.com/civicseva/civic-complaints/internal/assistant"
	"github.com/civicseva/civic-complaints/internal/auth"
	"github.com/civicseva/civic-complaints/internal/cache"
	"github.com/civicseva/civic-complaints/internal/config"
	"github.com/civicseva/civic-complaints/internal/events"
	"github.com/civicseva/civic-complaints/internal/jobs"
	"github.com/civicseva/civic-complaints/internal/messaging"
	"github.com/civicseva/civic-complaints/internal/observability"
	"github.com/civicseva/civic-complaints/internal/persistence"
	"github.com/civicseva/civic-complaints/internal/repository"
	"github.com/civicseva/civic-complaints/internal/service"
	"github.com/civicseva/civic-complaints/internal/storage"
	"github.com/civicseva/civic-complaints/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, cfg.Collaborator.WriteTimeout(), logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	if pg.PoolHandle() == nil {
		logger.Fatal("POSTGRES_DSN is required")
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	redis := persistence.NewRedis(ctx, cfg.Redis, logger)
	defer redis.Close()

	pool := pg.PoolHandle()
	policy := persistence.NewCallPolicy(cfg.Collaborator, logger)
	profileRepo := repository.NewProfileRepository(pool, policy)
	categoryRepo := repository.NewCategoryRepository(pool, policy)
	complaintRepo := repository.NewComplaintRepository(pool, policy)
	voteRepo := repository.NewVoteRepository(pool, policy)
	reviewRepo := repository.NewReviewRepository(pool, policy)
	historyRepo := repository.NewComplaintHistoryRepository(pool, policy)

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal("failed to init object storage", zap.Error(err))
	}
	bucketCtx, bucketCancel := context.WithTimeout(ctx, 5*time.Second)
	if err := objectStore.EnsureBucket(bucketCtx); err != nil {
		logger.Warn("evidence bucket not ready; uploads will be skipped until it is", zap.Error(err))
	}
	bucketCancel()

	metrics := observability.NewMetrics()
	dispatcher := events.NewInMemoryDispatcher()
	service.NewNotificationService(dispatcher, metrics, logger).RegisterHandlers()

	var relay *worker.EventRelay
	if cfg.Messaging.AMQPURL != "" {
		broker, err := messaging.NewRabbitMQ(cfg.Messaging.AMQPURL, cfg.Messaging.Exchange, logger)
		if err != nil {
			logger.Warn("rabbitmq unavailable; events stay in-process", zap.Error(err))
		} else {
			defer broker.Close()
			relay = worker.NewEventRelay(broker, logger, 512)
			relay.Subscribe(dispatcher)
			relay.Start(ctx)
		}
	}

	tokens := auth.NewTokenVerifier(cfg.Auth.JWTSecret, cfg.Auth.JWTIssuer)
	resolver := service.NewRoleResolver(service.RoleResolverDependencies{
		Tokens:      tokens,
		Revocations: cache.NewRevocationStore(redis.Client),
		ProfileRepo: profileRepo,
		Logger:      logger,
	})
	categoryService := service.NewCategoryService(categoryRepo,
		cache.NewCategoryCache(redis.Client, cfg.Complaints.CategoryCacheTTL()), logger)
	complaintService := service.NewComplaintService(service.ComplaintDependencies{
		ComplaintRepo: complaintRepo,
		VoteRepo:      voteRepo,
		ReviewRepo:    reviewRepo,
		HistoryRepo:   historyRepo,
		Dispatcher:    dispatcher,
		Logger:        logger,
	})
	submissionService := service.NewSubmissionService(service.SubmissionDependencies{
		Categories:      categoryService,
		ComplaintRepo:   complaintRepo,
		HistoryRepo:     historyRepo,
		Uploader:        objectStore,
		Voter:           complaintService,
		Idempotency:     cache.NewIdempotencyStore(redis.Client, cfg.Complaints.IdempotencyKeyTTL()),
		Dispatcher:      dispatcher,
		Logger:          logger,
		DuplicateRadius: cfg.Complaints.DuplicateRadiusMeters,
	})
	profileService := service.NewProfileService(profileRepo, cfg.Auth.BcryptCost, logger)
	chatProxy := assistant.NewProxy(
		assistant.NewClient(cfg.Assistant, &http.Client{}),
		assistant.NewRegistry(),
		cfg.Assistant.Timeout(),
		logger,
	)

	scheduler := jobs.NewScheduler(complaintService, categoryService, cfg.Complaints.AutoCloseAfter(), logger)
	if err := scheduler.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	go scheduler.RunCategoryWarm()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    cfg.App.BodyLimitMB << 20,
		ErrorHandler: httptransport.ErrorHandler(logger),
	})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health: handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, map[string]handlers.Pinger{
			"postgres": pg,
			"redis":    redis,
		}, metrics),
		Session:           handlers.NewSessionHandler(resolver),
		Profile:           handlers.NewProfileHandler(profileService, categoryService),
		Complaints:        handlers.NewComplaintsHandler(submissionService, complaintService),
		Authority:         handlers.NewAuthorityHandler(complaintService),
		Chat:              handlers.NewChatHandler(chatProxy),
		SessionMiddleware: auth.NewSessionMiddleware(resolver),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	if relay != nil {
		relay.Stop()
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
