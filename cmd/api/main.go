// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelamos/personaforge/internal/admin"
	"github.com/angelamos/personaforge/internal/auth"
	"github.com/angelamos/personaforge/internal/config"
	"github.com/angelamos/personaforge/internal/core"
	"github.com/angelamos/personaforge/internal/genai"
	"github.com/angelamos/personaforge/internal/health"
	"github.com/angelamos/personaforge/internal/middleware"
	"github.com/angelamos/personaforge/internal/persona"
	"github.com/angelamos/personaforge/internal/server"
	"github.com/angelamos/personaforge/internal/user"
)

const (
	drainDelay = 5 * time.Second
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

//nolint:funlen // bootstrap code is inherently verbose
func run(configPath string) error {
	ctx, stop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := setupLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting application",
		"name", cfg.App.Name,
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	var telemetry *core.Telemetry
	if cfg.Otel.Enabled {
		tel, telErr := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
		if telErr != nil {
			logger.Warn("failed to initialize telemetry", "error", telErr)
		} else {
			telemetry = tel
			logger.Info("OpenTelemetry tracer initialized",
				"endpoint", cfg.Otel.Endpoint,
			)
		}
	}

	db, err := core.NewDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	logger.Info("database connected",
		"max_open_conns", cfg.Database.MaxOpenConns,
		"max_idle_conns", cfg.Database.MaxIdleConns,
	)

	redis, err := core.NewRedis(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	logger.Info("redis connected",
		"pool_size", cfg.Redis.PoolSize,
	)

	if err := ensureKeyPair(cfg, logger); err != nil {
		return err
	}

	jwtManager, err := auth.NewJWTManager(cfg.JWT)
	if err != nil {
		return err
	}
	logger.Info("JWT manager initialized", "algorithm", "ES256")

	userRepo := user.NewRepository(db.DB)
	userSvc := user.NewService(userRepo)
	userHandler := user.NewHandler(userSvc)

	authRepo := auth.NewRepository(db.DB)
	authSvc := auth.NewService(
		authRepo,
		jwtManager,
		userSvc,
		redis.Client,
		cfg.JWT.AccessTokenExpire,
	)
	authHandler := auth.NewHandler(authSvc)

	genClient := genai.NewClient(cfg.Generation, logger)
	logger.Info("generation client initialized",
		"model", cfg.Generation.Model,
		"timeout", cfg.Generation.Timeout.String(),
	)

	previews := persona.NewPreviewStore()
	personaRepo := persona.NewRepository(db.DB)
	personaSvc := persona.NewService(
		personaRepo,
		previews,
		genClient,
		cfg.Generation.MaxTokens,
		logger,
	)
	entitlementSvc := persona.NewEntitlementService(personaRepo, userSvc, logger)
	personaHandler := persona.NewHandler(
		personaSvc,
		entitlementSvc,
		persona.NewDenyAllDepthGate(),
	)

	healthHandler := health.NewHandler(
		health.Check{Name: "database", Pinger: db},
		health.Check{Name: "redis", Pinger: redis},
	)

	adminHandler := admin.NewHandler(admin.HandlerConfig{
		DBStats:    db.Stats,
		RedisStats: redis.PoolStats,
		Personas:   personaSvc,
		Users:      userSvc,
	})

	srv := server.New(server.Config{
		ServerConfig:  cfg.Server,
		HealthHandler: healthHandler,
		Logger:        logger,
	})

	router := srv.Router()

	router.Use(middleware.RequestID)
	router.Use(middleware.Logger(logger))
	router.Use(
		middleware.NewRateLimiter(redis.Client, middleware.RateLimitConfig{
			Limit: middleware.PerMinute(
				cfg.RateLimit.Requests,
				cfg.RateLimit.Burst,
			),
			FailOpen: true,
		}).Handler,
	)
	router.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	router.Use(middleware.CORS(cfg.CORS))

	healthHandler.RegisterRoutes(router)

	router.Get("/.well-known/jwks.json", jwtManager.GetJWKSHandler())

	// The auth service verifies tokens, not the JWT manager directly, so
	// the revocation blacklist is consulted on every request.
	authenticator := middleware.Authenticator(authSvc)
	optionalAuth := middleware.OptionalAuth(authSvc)
	adminOnly := middleware.RequireAdmin

	// Authenticated traffic gets a per-tier budget on top of the global
	// IP limit. The tier limiter reads claims, so it must run after the
	// authenticator.
	tieredLimit := middleware.TieredRateLimiter(
		redis.Client,
		middleware.DefaultTiers,
	)
	authed := func(next http.Handler) http.Handler {
		return authenticator(tieredLimit(next))
	}

	// Credential endpoints are the brute-force surface and get a strict
	// per-IP budget of their own.
	credentialLimit := middleware.NewRateLimiter(
		redis.Client,
		middleware.RateLimitConfig{
			Limit: middleware.PerSecond(2, 5),
		},
	).Handler

	// Generation is far more expensive than any other endpoint, so it
	// gets its own hourly budget keyed by user (IP for anonymous calls).
	generationLimit := middleware.NewRateLimiter(
		redis.Client,
		middleware.RateLimitConfig{
			Limit: middleware.PerHour(
				cfg.RateLimit.GenerationPerHour,
				cfg.RateLimit.GenerationBurst,
			),
			KeyFunc: middleware.KeyByUserAndEndpoint,
		},
	).Handler

	router.Route("/v1", func(r chi.Router) {
		authHandler.RegisterRoutes(r, authed, credentialLimit)
		userHandler.RegisterRoutes(r, authed)
		r.Mount("/personas", personaHandler.Routes(
			authed,
			optionalAuth,
			generationLimit,
		))
		adminHandler.RegisterRoutes(r, authed, adminOnly)
	})

	startTokenCleanup(ctx, authSvc, logger)

	errChan := make(chan error, 1)
	go func() {
		errChan <- srv.Start()
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			logger.Error("telemetry shutdown error", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		logger.Error("redis close error", "error", err)
	}

	if err := db.Close(); err != nil {
		logger.Error("database close error", "error", err)
	}

	logger.Info("application stopped")
	return nil
}

// ensureKeyPair generates a signing key pair on first boot in
// development. Every other environment must provision keys out of band.
func ensureKeyPair(cfg *config.Config, logger *slog.Logger) error {
	if _, err := os.Stat(cfg.JWT.PrivateKeyPath); err == nil {
		return nil
	}

	if !cfg.IsDevelopment() {
		return os.ErrNotExist
	}

	logger.Info("generating development signing key pair",
		"private_key_path", cfg.JWT.PrivateKeyPath,
	)

	return auth.GenerateKeyPair(cfg.JWT.PrivateKeyPath, cfg.JWT.PublicKeyPath)
}

// startTokenCleanup deletes long-expired refresh tokens on a daily tick
// until the root context is cancelled.
func startTokenCleanup(
	ctx context.Context,
	authSvc *auth.Service,
	logger *slog.Logger,
) {
	go func() {
		ticker := time.NewTicker(24 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := authSvc.CleanupExpiredTokens(ctx)
				if err != nil {
					logger.Error("refresh token cleanup failed", "error", err)
					continue
				}
				if deleted > 0 {
					logger.Info("expired refresh tokens deleted",
						"count", deleted,
					)
				}
			}
		}
	}()
}

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var handler slog.Handler

	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	return slog.New(handler)
}
