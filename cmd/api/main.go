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
	"github.com/rs/zerolog"

	"github.com/noah-isme/exeats-api/internal/config"
	"github.com/noah-isme/exeats-api/internal/database"
	"github.com/noah-isme/exeats-api/internal/deploy"
	"github.com/noah-isme/exeats-api/internal/handler"
	"github.com/noah-isme/exeats-api/internal/middleware"
	"github.com/noah-isme/exeats-api/internal/notifier"
	"github.com/noah-isme/exeats-api/internal/observability"
	"github.com/noah-isme/exeats-api/internal/repository"
	"github.com/noah-isme/exeats-api/internal/router"
	"github.com/noah-isme/exeats-api/internal/service"
	"github.com/noah-isme/exeats-api/internal/session"
	"github.com/noah-isme/exeats-api/internal/signuplink"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", cfg.AppName).Logger()
	if !cfg.IsProduction() {
		logger = logger.Level(zerolog.DebugLevel)
	} else {
		logger = logger.Level(zerolog.InfoLevel)
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	if cfg.AutoMigrate {
		migrator, err := database.NewMigrator(db, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare migrations")
		}
		if err := migrator.Up(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("failed to migrate database")
		}
	}

	redisClient, err := database.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	natsConn, err := database.ConnectNATS(cfg.NATSURL, cfg.AppName)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to nats")
	}
	if natsConn != nil {
		defer natsConn.Close()
	}

	mailer, err := notifier.New(notifier.Options{
		Provider:          cfg.MailProvider,
		SendgridAPIKey:    cfg.SendgridAPIKey,
		FromName:          cfg.MailFromName,
		FromAddress:       cfg.MailFromAddress,
		SubjectPrefix:     cfg.MailSubjectPrefix,
		OverrideRecipient: cfg.MailOverrideRecipient,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure mail")
	}

	observability.RegisterMetrics()
	validate := validator.New(validator.WithRequiredStructEnabled())
	codec := signuplink.NewCodec(cfg.SignupSalt)
	sessions := session.NewManager(cfg.SessionSecret, cfg.SessionTTL, cfg.SessionCookieName)

	tutorRepo := repository.NewTutorRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	feedService := service.NewFeedService(redisClient, natsConn, cfg.FeedChannel, logger)
	authService := service.NewAuthService(tutorRepo, validate, activityService, logger)
	slotService := service.NewSlotService(slotRepo, validate, activityService, cfg.Location(), logger)
	studentService := service.NewStudentService(studentRepo, activityService, logger)
	bookingService := service.NewBookingService(
		signuplink.NewResolver(codec, studentRepo),
		slotRepo, tutorRepo, mailer, feedService, activityService,
		service.BookingConfig{BaseURL: cfg.BaseURL, Location: cfg.Location()},
		logger,
	)
	invitationService := service.NewInvitationService(
		studentRepo, slotRepo, codec, mailer, redisClient, validate, activityService,
		service.InvitationConfig{BaseURL: cfg.BaseURL, DedupeTTL: cfg.InvitationDedupeTTL},
		logger,
	)

	pipeline := deploy.NewPipelineFromSettings(deploy.Settings{
		Workdir:        cfg.DeployWorkdir,
		Timeout:        cfg.DeployTimeout,
		PullCommand:    cfg.DeployPullCommand,
		MigrateCommand: cfg.DeployMigrateCommand,
		StaticCommand:  cfg.DeployStaticCommand,
	}, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    1 << 20,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AccessLog: !cfg.IsProduction()})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler: handler.NewAuthHandler(authService, sessions, cfg.IsProduction(),
			middleware.RateLimit("login", cfg.LoginRateLimit, cfg.RateLimitWindow), logger),
		SlotHandler:    handler.NewSlotHandler(slotService, logger),
		StudentHandler: handler.NewStudentHandler(studentService, validate, logger),
		EmailHandler:   handler.NewEmailHandler(invitationService, logger),
		SignupHandler: handler.NewSignupHandler(bookingService,
			middleware.RateLimit("signup", cfg.SignupRateLimit, cfg.RateLimitWindow), logger),
		FeedHandler:     handler.NewFeedHandler(feedService, logger),
		ActivityHandler: handler.NewActivityHandler(activityService, logger),
		AdminHandler:    handler.NewAdminHandler(authService, logger),
		DeployHandler:   handler.NewDeployHandler(cfg.DeploySecret, pipeline, logger),
		HealthProbes:    healthProbes(db, redisClient),
		Session:         middleware.Session(sessions, tutorRepo, logger),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	feedService.Start(ctx)

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddress()).Msg("http server listening")
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(app, cancel, logger)
}

func waitForShutdown(app *fiber.App, stopBackground context.CancelFunc, logger zerolog.Logger) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	stopBackground()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
