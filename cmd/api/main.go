package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/talent-tree-api/internal/config"
	"github.com/noah-isme/talent-tree-api/internal/database"
	"github.com/noah-isme/talent-tree-api/internal/handler"
	"github.com/noah-isme/talent-tree-api/internal/middleware"
	"github.com/noah-isme/talent-tree-api/internal/observability"
	"github.com/noah-isme/talent-tree-api/internal/repository"
	"github.com/noah-isme/talent-tree-api/internal/router"
	"github.com/noah-isme/talent-tree-api/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	observability.RegisterMetrics()

	db, err := database.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		log.Fatalf("%v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis disabled: profile views are not cached and balance events stay local")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	store := repository.NewStore(db)

	ledgerService := service.NewLedgerService(store, service.LedgerOptions{
		MaxAttempts: cfg.LedgerMaxAttempts,
		RetryDelay:  cfg.LedgerRetryDelay,
		TxTimeout:   cfg.LedgerTxTimeout,
	}, logger)

	// Observers run in registration order: the cached view is dropped before
	// subscribers hear about the change and re-read it.
	profileService := service.NewProfileService(store, ledgerService, redisClient, cfg.ProfileCacheTTL, validate, logger)
	broadcaster := service.NewBalanceBroadcaster(redisClient, cfg.RedisChannel, natsConn, logger)
	ledgerService.Observe(broadcaster)
	submissionService := service.NewActivitySubmissionService(store, ledgerService, validate, logger)
	attendanceService := service.NewAttendanceService(store, ledgerService, validate, cfg.AttendanceWeeklyOnly, logger)
	historyService := service.NewHistoryService(store, cfg.HistoryLayoutCap, logger)
	seedService := service.NewSeedService(store, profileService, submissionService, cfg.SeedEnabled, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	broadcaster.Start(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		SubmissionHandler: handler.NewActivitySubmissionHandler(submissionService, logger),
		AttendanceHandler: handler.NewAttendanceHandler(attendanceService, logger),
		ProfileHandler:    handler.NewProfileHandler(profileService, logger),
		HistoryHandler:    handler.NewHistoryHandler(historyService, logger),
		LedgerHandler:     handler.NewLedgerHandler(ledgerService, logger),
		LiveHandler:       handler.NewLiveHandler(profileService, broadcaster, logger),
		SeedHandler:       handler.NewSeedHandler(seedService, logger),
		JWTMiddleware:     middleware.JWTProtected(cfg.JWTSecret),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(ctx, app)
}

func waitForShutdown(ctx context.Context, app *fiber.App) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
