package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/candemir/bulkmail/internal/config"
	"github.com/candemir/bulkmail/internal/handler"
	"github.com/candemir/bulkmail/internal/infra/postgresql"
	"github.com/candemir/bulkmail/internal/infra/postgresql/migrations"
	infraredis "github.com/candemir/bulkmail/internal/infra/redis"
	"github.com/candemir/bulkmail/internal/observability"
	"github.com/candemir/bulkmail/internal/provider"
	"github.com/candemir/bulkmail/internal/repository"
	"github.com/candemir/bulkmail/internal/service"
	"github.com/candemir/bulkmail/internal/transport"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("failed to load config", zap.Error(err))
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		log.Fatal("failed to initialize logger", zap.Error(err))
	}
	defer logger.Sync() //nolint:errcheck

	db, err := postgresql.NewPostgres(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("postgres initialization failed", zap.Error(err))
	}

	if err := migrations.Migrate(db); err != nil {
		logger.Fatal("database migrations failed", zap.Error(err))
	}

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("postgres underlying db init failed", zap.Error(err))
	}
	defer sqlDB.Close()

	rdb, err := infraredis.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal("redis initialization failed", zap.Error(err))
	}
	defer rdb.Close()

	progressStore, err := infraredis.NewRedisProgressStore(rdb, time.Duration(cfg.ProgressTTLSec)*time.Second)
	if err != nil {
		logger.Fatal("progress store initialization failed", zap.Error(err))
	}

	metrics := observability.NewMetrics()

	contacts := repository.NewGormContactRepo(db)
	templates := repository.NewGormTemplateRepo(db)
	profiles := repository.NewGormProfileRepo(db)

	dispatcher := provider.NewDispatcher(provider.NewFactory(), logger)

	bulkSender, err := service.NewBulkSendService(
		contacts,
		templates,
		profiles,
		dispatcher,
		progressStore,
		metrics,
		logger,
	)
	if err != nil {
		logger.Fatal("bulk send service initialization failed", zap.Error(err))
	}

	app := fiber.New(fiber.Config{
		ErrorHandler:          transport.ErrorHandler(logger),
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(metrics.HTTPMiddleware())

	handler.RegisterHealthRoutes(app, sqlDB, rdb)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	if err := handler.RegisterSendRoutes(app, dispatcher, logger); err != nil {
		logger.Fatal("send routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterBulkRoutes(app, bulkSender); err != nil {
		logger.Fatal("bulk routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterTemplateRoutes(app, templates); err != nil {
		logger.Fatal("template routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterProfileRoutes(app, profiles); err != nil {
		logger.Fatal("profile routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterContactRoutes(app, contacts); err != nil {
		logger.Fatal("contact routes registration failed", zap.Error(err))
	}
	if err := handler.RegisterTrackRoutes(app, contacts, "contacts", metrics, logger); err != nil {
		logger.Fatal("track routes registration failed", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("bulkmail api started", zap.Int("port", cfg.APIPort))
		return app.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		return app.ShutdownWithTimeout(shutdownTimeout)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", zap.Error(err))
	}
}
