package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/fieldlink/feedback-engine/internal/api/http"
	"github.com/fieldlink/feedback-engine/internal/api/http/handlers"
	"github.com/fieldlink/feedback-engine/internal/classify"
	"github.com/fieldlink/feedback-engine/internal/config"
	"github.com/fieldlink/feedback-engine/internal/events"
	"github.com/fieldlink/feedback-engine/internal/llm"
	"github.com/fieldlink/feedback-engine/internal/locks"
	"github.com/fieldlink/feedback-engine/internal/notify"
	"github.com/fieldlink/feedback-engine/internal/observability"
	"github.com/fieldlink/feedback-engine/internal/persistence"
	"github.com/fieldlink/feedback-engine/internal/pipeline"
	"github.com/fieldlink/feedback-engine/internal/repository"
	"github.com/fieldlink/feedback-engine/internal/service"
	"github.com/fieldlink/feedback-engine/internal/sla"
	"github.com/fieldlink/feedback-engine/internal/taxonomy"
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
	ticketRepo := repository.NewTicketRepository(pool)
	messageRepo := repository.NewTicketMessageRepository(pool)
	queueRepo := repository.NewQueueRepository(pool)
	alertRepo := repository.NewAlertRepository(pool)
	counterRepo := repository.NewCounterRepository(pool)

	taxonomyRepo := taxonomy.NewRepository(repository.NewTaxonomyRepository(pool), logger)
	if err := taxonomyRepo.Load(ctx); err != nil {
		logger.Fatal("failed to load taxonomy", zap.Error(err))
	}
	if err := taxonomyRepo.StartAutoReload(cfg.Business.TaxonomyReloadSpec); err != nil {
		logger.Fatal("failed to schedule taxonomy reload", zap.Error(err))
	}
	defer taxonomyRepo.Stop()

	locker := locks.NewRedisKeyLocker(redis.Client, logger)
	llmClient := llm.NewHTTPClient(cfg.LLM)
	notifier := notify.NewWebhookNotifier(cfg.Notify)
	dispatcher := events.NewInMemoryDispatcher()
	slaCalc := sla.NewCalculator(cfg.Business.SLAWarningFraction)

	notificationService := service.NewNotificationService(dispatcher, logger)
	notificationService.RegisterHandlers()

	aggregationService := service.NewAggregationService(
		ticketRepo, alertRepo, taxonomyRepo, locker, dispatcher, logger, cfg.Business)

	resolutionPipeline := pipeline.New(pipeline.Dependencies{
		TicketRepo:    ticketRepo,
		MessageRepo:   messageRepo,
		QueueRepo:     queueRepo,
		Taxonomy:      taxonomyRepo,
		LLM:           llmClient,
		Notifier:      notifier,
		Dispatcher:    dispatcher,
		Logger:        logger,
		ScriptTimeout: cfg.Business.ScriptTimeout(),
		QueueSize:     cfg.Business.PipelineQueueSize,
	})
	resolutionPipeline.Start(cfg.Business.PipelineWorkers)

	intakeService := service.NewIntakeService(service.IntakeDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		QueueRepo:   queueRepo,
		CounterRepo: counterRepo,
		Taxonomy:    taxonomyRepo,
		Classifier:  classify.New(taxonomyRepo, llmClient, logger),
		SLA:         slaCalc,
		Locker:      locker,
		Aggregator:  aggregationService,
		Dispatcher:  dispatcher,
		Logger:      logger,
		Business:    cfg.Business,
	})

	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		QueueRepo:   queueRepo,
		Taxonomy:    taxonomyRepo,
		SLA:         slaCalc,
		Pipeline:    resolutionPipeline,
		Notifier:    notifier,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	app := fiber.New()
	metrics := observability.NewMetrics()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:   handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis, metrics),
		Feedback: handlers.NewFeedbackHandler(intakeService),
		Tickets:  handlers.NewTicketsHandler(ticketService),
		Queue:    handlers.NewQueueHandler(ticketService),
		Alerts:   handlers.NewAlertsHandler(aggregationService),
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	_ = app.Shutdown()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer drainCancel()
	if err := resolutionPipeline.Shutdown(drainCtx); err != nil {
		logger.Warn("pipeline drain incomplete", zap.Error(err))
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
