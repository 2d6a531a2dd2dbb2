package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/newsfeed/server/internal/auth"
	"github.com/newsfeed/server/internal/cache"
	"github.com/newsfeed/server/internal/config"
	"github.com/newsfeed/server/internal/db"
	httphandler "github.com/newsfeed/server/internal/http"
	"github.com/newsfeed/server/internal/http/handlers"
	"github.com/newsfeed/server/internal/logging"
	"github.com/newsfeed/server/internal/mail"
	"github.com/newsfeed/server/internal/metrics"
	"github.com/newsfeed/server/internal/repo"
)

func main() {
	// Load .env from CWD or server/ (env vars override)
	_ = godotenv.Load(".env")
	_ = godotenv.Load("server/.env")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.DevMode)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx := context.Background()

	database, err := db.Open(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to open database", zap.Error(err))
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	// Repositories
	userRepo := repo.NewUserRepo(database)
	refreshRepo := repo.NewRefreshRepo(database)

	// Auth
	hasher := auth.NewHasher(cfg.HashCost)
	jwtService := auth.NewJWTService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	authService := auth.NewAuthService(userRepo, refreshRepo, hasher, jwtService, logger)

	codes := cache.New[string, string](cfg.VerificationTTL, cfg.VerificationSweepInterval)
	defer codes.Close()
	verifier := auth.NewEmailVerifier(codes, newMailer(cfg, logger), cfg.VerificationTTL, logger)

	m := metrics.New()
	if err := m.RegisterGauge("verification_codes_pending", "Verification codes in the cache, including expired ones not yet swept.", func() float64 {
		return float64(codes.Len())
	}); err != nil {
		logger.Fatal("failed to register metrics", zap.Error(err))
	}

	// HTTP
	authHandler := handlers.NewAuthHandler(authService, verifier, logger)
	userHandler := handlers.NewUserHandler(authService, logger)
	router := httphandler.NewRouter(authHandler, userHandler, authService, m, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, srv, logger); err != nil {
		stop()
		codes.Close()
		_ = database.Close()
		logger.Fatal("server stopped with error", zap.Error(err))
	}
	logger.Info("server exited")
}

// run serves until ctx is done, then shuts srv down gracefully
func run(ctx context.Context, srv *http.Server, logger *zap.Logger) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// newMailer picks SMTP when a host is configured, the log transport otherwise
func newMailer(cfg *config.Config, logger *zap.Logger) mail.Mailer {
	if cfg.SMTP.Host == "" {
		logger.Warn("SMTP_HOST not set, verification mail is only logged")
		return mail.NewLogMailer(logger)
	}
	return mail.NewSMTPMailer(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password, cfg.SMTP.From)
}
