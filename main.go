package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/jfarrow/inboxpilot/api"
	"github.com/jfarrow/inboxpilot/config"
	"github.com/jfarrow/inboxpilot/datastore"
	"github.com/jfarrow/inboxpilot/errtracker"
	"github.com/jfarrow/inboxpilot/logging"
	"github.com/jfarrow/inboxpilot/outlook"
	rh "github.com/jfarrow/inboxpilot/route-handlers"
	"github.com/jfarrow/inboxpilot/watch"
	"github.com/jfarrow/inboxpilot/webhooks"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	tracker, flushTracker, err := errtracker.Init(cfg.SentryDSN)
	if err != nil {
		logger.Error("failed to init error tracking", "error", err)
		os.Exit(1)
	}
	defer flushTracker()

	db, err := datastore.Open(cfg.DatabaseURL)
	if err != nil {
		logger.Error("database setup failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := datastore.Migrate(context.Background(), db); err != nil {
		logger.Error("database migration failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection successful")

	accountRepo := datastore.NewAccountRepository(db)
	ruleRepo := datastore.NewRuleRepository(db)
	userRepo := datastore.NewUserRepository(db)

	oauthCfg := outlook.OAuthConfig{
		ClientID:     cfg.MicrosoftClientID,
		ClientSecret: cfg.MicrosoftClientSecret,
		Tenant:       cfg.MicrosoftTenant,
	}
	newClient := func(ctx context.Context, creds outlook.TokenCredentials) (outlook.Client, error) {
		return outlook.NewClientWithRefresh(ctx, creds, oauthCfg)
	}

	watchService := watch.NewService(
		accountRepo,
		newClient,
		tracker,
		logging.Scoped(logger, "outlook/watch"),
		cfg.NotificationURL(),
		cfg.SubscriptionClientState,
	)

	watchHandler := rh.NewWatchHandler(accountRepo, watchService, newClient, logging.Scoped(logger, "api/outlook/watch"))
	assistantHandler := rh.NewAssistantHandler(ruleRepo, accountRepo)
	extensionHandler := rh.NewExtensionHandler(userRepo)
	notificationsHandler := webhooks.NewNotificationsHandler(cfg.SubscriptionClientState, logging.Scoped(logger, "outlook/notifications"))

	router := api.SetupRoutes(
		userRepo,
		watchHandler,
		assistantHandler,
		extensionHandler,
		notificationsHandler,
	)

	startServer(cfg.Port, router, logger)
}

func startServer(port string, router http.Handler, logger *slog.Logger) {
	server := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	shutdownSignal := make(chan os.Signal, 1)
	signal.Notify(shutdownSignal, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", "port", port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-shutdownSignal
	logger.Info("shutdown signal received, initiating graceful shutdown")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}

	logger.Info("server gracefully stopped")
}
