package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"nuclear/internal/config"
	"nuclear/internal/database"
	"nuclear/internal/handlers"
	"nuclear/internal/logging"
	"nuclear/internal/observability"
	"nuclear/internal/repository"
	"nuclear/internal/security"
	"nuclear/internal/service"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.LogLevel, cfg.Env)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	flush, err := observability.InitSentry(cfg.SentryDSN, cfg.Env, version)
	if err != nil {
		log.Warn("sentry disabled", zap.Error(err))
	}
	defer flush()

	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer db.Close()
	log.Info("database connection established", zap.String("type", db.Dialect.Name()))

	if err := db.RunMigrations(ctx, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	store, closeStore, err := rateLimitStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	email, err := service.NewEmailService(ctx, cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL, log)
	if err != nil {
		return fmt.Errorf("email service: %w", err)
	}

	repos := repository.New(db)
	api := handlers.NewAPI(repos, handlers.Services{
		Content: service.NewContentService(db, repos, log),
		Folders: service.NewFolderService(db, repos, log),
		Points:  service.NewPointsService(repos, email, log),
		Backup:  service.NewBackupService(db, log),
		Reports: service.NewReportService(repos, log),
		Health:  service.NewHealthService(db, cfg.Env),
	}, log)

	limiter := security.NewLimiter(store, cfg.RateLimitRequests, cfg.RateLimitWindow)
	verifier := security.NewTokenVerifier(cfg.AuthSecret, cfg.AuthURL)
	if cfg.AuthDisabled {
		log.Warn("authentication disabled: every request runs as admin")
	}
	mw := handlers.NewMiddleware(verifier, limiter, cfg.AuthDisabled, log)

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      api.Routes(mw),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server starting", zap.String("addr", server.Addr), zap.String("api_base_url", cfg.APIBaseURL))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// rateLimitStore picks Redis when REDIS_ADDR is set, else an in-process store
func rateLimitStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (security.Store, func(), error) {
	if cfg.RedisAddr == "" {
		return security.NewMemoryStore(ctx, cfg.RateLimitWindow*2), func() {}, nil
	}
	client, err := security.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	log.Info("rate limiter using redis", zap.String("addr", cfg.RedisAddr))
	return security.NewRedisStore(client, "nuclear:ratelimit:"), func() { client.Close() }, nil
}
