package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"roomkey/internal/config"
	"roomkey/internal/infrastructure/database/postgres"
	"roomkey/internal/logger"
	"roomkey/internal/notify"
	"roomkey/internal/routes"
	"roomkey/internal/usecase/agentsvc"
	"roomkey/internal/usecase/cardqueue"
	"roomkey/internal/usecase/user"
)

// staleAfter is how long an agent may stay silent before it is marked
// offline by the sweeper.
const staleAfter = 5 * time.Minute

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("Failed to load configuration: " + err.Error() + "\n")
		os.Exit(1)
	}

	env := cfg.Server.Environment
	if err := logger.Init(env); err != nil {
		os.Stderr.WriteString("Failed to initialize logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting roomkey server", zap.String("environment", env))

	if cfg.Database.Host == "" || cfg.Database.DBName == "" {
		logger.Fatal("Database configuration is missing. Please set DB_HOST and DB_NAME environment variables.")
	}
	if cfg.JWT.Secret == "" {
		logger.Fatal("JWT secret is missing. Please set JWT_SECRET environment variable.")
	}

	db, err := postgres.NewDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", zap.Error(err))
		}
	}()

	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	if cfg.Bootstrap.AdminEmail != "" && cfg.Bootstrap.AdminPassword != "" {
		userService := user.NewService(postgres.NewUserRepository(db), cfg)
		if err := userService.EnsureBootstrapAdmin(context.Background(), cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword); err != nil {
			logger.Fatal("Failed to bootstrap admin user", zap.Error(err))
		}
	}

	notifier, err := notify.NewMQTTNotifier(cfg.MQTT)
	if err != nil {
		// The broker only accelerates agent pickup; polling covers its
		// absence.
		logger.Warn("Queue notifier disabled", zap.Error(err))
		notifier = nil
	}
	if notifier != nil {
		defer notifier.Close()
	}

	var queueNotifier cardqueue.Notifier
	if notifier != nil {
		queueNotifier = notifier
	}
	router := routes.SetupRouter(db, cfg, queueNotifier)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go runStaleSweeper(sweepCtx, agentsvc.NewService(
		postgres.NewAgentRepository(db),
		postgres.NewDeviceRepository(db),
		postgres.NewDeviceLogRepository(db),
		postgres.NewCardIssueRepository(db),
	))

	addr := net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server starting", zap.String("address", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Failed to shutdown server", zap.Error(err))
	}

	logger.Info("Server exited")
}

// runStaleSweeper periodically marks agents offline when they have not
// reported in. Job callbacks and device logs refresh liveness, so a silent
// agent really is gone.
func runStaleSweeper(ctx context.Context, service *agentsvc.Service) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			marked, err := service.MarkStaleAgents(ctx, staleAfter)
			if err != nil {
				logger.Warn("Stale agent sweep failed", zap.Error(err))
				continue
			}
			if marked > 0 {
				logger.Info("Marked stale agents offline", zap.Int64("count", marked))
			}
		}
	}
}
