package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dosada05/match-score/brackets"
	"github.com/Dosada05/match-score/config"
	"github.com/Dosada05/match-score/db"
	"github.com/Dosada05/match-score/handlers"
	"github.com/Dosada05/match-score/middleware"
	"github.com/Dosada05/match-score/repositories"
	api "github.com/Dosada05/match-score/routes"
	"github.com/Dosada05/match-score/services"
	"github.com/Dosada05/match-score/storage"
	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
)

const rateLimitSweepInterval = time.Minute

// @title Match Score API
// @version 1.0
// @description Player directory, matches and tournaments.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Настройка логгера
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Загрузка конфигурации
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("configuration loaded", slog.Int("port", cfg.ServerPort))

	appCtx, stopApp := context.WithCancel(context.Background())
	defer stopApp()

	// Подключение к базе данных
	dbConn, err := db.Connect(cfg.DatabaseURL, 5*time.Second, logger)
	if err != nil {
		logger.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Error("failed to close database connection", slog.Any("error", err))
		} else {
			logger.Info("database connection closed")
		}
	}()

	migrateCtx, cancelMigrate := context.WithTimeout(appCtx, 30*time.Second)
	err = db.Migrate(migrateCtx, dbConn)
	cancelMigrate()
	if err != nil {
		logger.Error("failed to apply schema", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("database schema is up to date")

	// Загрузка аватаров (Cloudflare R2) необязательна
	var uploader storage.FileUploader
	if cfg.R2Enabled() {
		uploader, err = storage.NewCloudflareR2Uploader(appCtx, storage.CloudflareR2UploaderConfig{
			AccountID:       cfg.R2AccountID,
			AccessKeyID:     cfg.R2AccessKeyID,
			SecretAccessKey: cfg.R2SecretAccessKey,
			BucketName:      cfg.R2BucketName,
			PublicBaseURL:   cfg.R2PublicBaseURL,
		}, logger)
		if err != nil {
			logger.Error("failed to initialize Cloudflare R2 uploader", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("Cloudflare R2 uploader initialized")
	} else {
		logger.Warn("R2 is not configured, avatar uploads are disabled")
	}

	var notifier services.Notifier
	var emailNotifier *services.EmailNotifier
	if cfg.SMTPEnabled() {
		emailNotifier = services.NewEmailNotifier(services.NewEmailService(cfg), logger)
		notifier = emailNotifier
	} else {
		logger.Warn("SMTP is not configured, notifications are only logged")
		notifier = services.NewLogNotifier(logger)
	}

	// Инициализация WebSocket Hub
	wsHub := brackets.NewHub(logger)
	go wsHub.Run(appCtx)

	// Инициализация репозиториев
	userRepo := repositories.NewPostgresUserRepository(dbConn)
	playerRepo := repositories.NewPostgresPlayerProfileRepository(dbConn)
	matchRepo := repositories.NewPostgresMatchRepository(dbConn)
	tournamentRepo := repositories.NewPostgresTournamentRepository(dbConn)
	participantRepo := repositories.NewPostgresTournamentParticipantRepository(dbConn)
	claimRepo := repositories.NewPostgresClaimRequestRepository(dbConn)
	statsRepo := repositories.NewPostgresStatsRepository(dbConn)
	transactor := repositories.NewPostgresTransactor(dbConn, logger)

	// Инициализация сервисов
	authService := services.NewAuthService(userRepo, cfg.AdminEmail, logger)
	playerService := services.NewPlayerService(playerRepo, matchRepo, participantRepo, claimRepo, transactor, uploader, logger)
	matchService := services.NewMatchService(
		matchRepo,
		playerRepo,
		participantRepo,
		tournamentRepo,
		userRepo,
		playerService,
		transactor,
		notifier,
		wsHub,
		logger,
	)
	tournamentService := services.NewTournamentService(
		tournamentRepo,
		matchRepo,
		participantRepo,
		userRepo,
		playerService,
		matchService,
		transactor,
		notifier,
		wsHub,
		logger,
	)
	claimService := services.NewClaimService(claimRepo, playerRepo, userRepo, transactor, notifier, logger)
	dashboardService := services.NewDashboardService(statsRepo)

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute, logger)
	rateLimiter.Start(rateLimitSweepInterval)
	defer rateLimiter.Stop()

	// Настройка маршрутизатора
	router := chi.NewRouter()
	api.SetupRoutes(router, api.Handlers{
		Auth:       handlers.NewAuthHandler(authService, cfg.JWTSecretKey),
		Player:     handlers.NewPlayerHandler(playerService),
		Match:      handlers.NewMatchHandler(matchService),
		Tournament: handlers.NewTournamentHandler(tournamentService),
		Claim:      handlers.NewClaimHandler(claimService),
		Dashboard:  handlers.NewDashboardHandler(dashboardService),
		WebSocket:  handlers.NewWebSocketHandler(wsHub, cfg.CORSAllowedOrigins, logger),
	}, api.Options{
		JWTSecret:      cfg.JWTSecretKey,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:    rateLimiter,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
		ErrorLog:     slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("starting server", slog.String("address", server.Addr))
		serverErrors <- server.ListenAndServe()
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	exitCode := 0
	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", slog.Any("error", err))
			exitCode = 1
		}
	case sig := <-quit:
		logger.Info("shutdown signal received", slog.String("signal", sig.String()))
		shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancelShutdown()

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", slog.Any("error", err))
			if closeErr := server.Close(); closeErr != nil {
				logger.Error("failed to force close server", slog.Any("error", closeErr))
			}
			exitCode = 1
		}

		// Письма уходят асинхронно, даём им закончиться
		if emailNotifier != nil {
			if err := emailNotifier.Wait(shutdownCtx); err != nil {
				logger.Warn("pending notifications were not delivered", slog.Any("error", err))
			}
		}
	}

	stopApp()
	rateLimiter.Stop()
	logger.Info("application exited")
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
