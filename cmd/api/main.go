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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpAdapter "github.com/pulseboard/realtime-backend/internal/adapters/primary/http"
	mw "github.com/pulseboard/realtime-backend/internal/adapters/primary/http/middleware"
	"github.com/pulseboard/realtime-backend/internal/adapters/secondary/postgres"
	"github.com/pulseboard/realtime-backend/internal/auth"
	"github.com/pulseboard/realtime-backend/internal/bridge/discord"
	"github.com/pulseboard/realtime-backend/internal/client"
	"github.com/pulseboard/realtime-backend/internal/config"
	"github.com/pulseboard/realtime-backend/internal/core/domain"
	"github.com/pulseboard/realtime-backend/internal/core/services"
	"github.com/pulseboard/realtime-backend/internal/infrastructure/logging"
	"github.com/pulseboard/realtime-backend/internal/observability"
	"github.com/pulseboard/realtime-backend/internal/realtime"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Initialize Structured Logger
	logger := logging.NewLogger(logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      os.Stdout,
		ServiceName: cfg.App.Name,
		Environment: cfg.App.Environment,
	})

	logger.Info("starting service",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
	)

	// 3. Initialize Database Pool
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		logger.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.Database.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	logger.Info("database connection established")

	// 4. Initialize Security & Real-time Components
	tokenManager := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.AccessTokenTTL, cfg.JWT.RefreshTokenTTL)
	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	membershipRepo := postgres.NewMembershipRepository(pool)
	hub := realtime.NewHub(membershipRepo, metrics, logger)
	go hub.Run(ctx)

	// 5. Initialize Rate Limiters
	var generalRateLimiter, authRateLimiter *mw.RateLimiter
	if cfg.RateLimit.Enabled {
		generalRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			BurstSize:         cfg.RateLimit.BurstSize,
			CleanupInterval:   time.Minute,
			TTL:               3 * time.Minute,
		})

		authRateLimiter = mw.NewRateLimiter(mw.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimit.AuthRPS,
			BurstSize:         cfg.RateLimit.AuthBurst,
			CleanupInterval:   time.Minute,
			TTL:               5 * time.Minute,
		})
	}

	// 6. Dependency Injection (Wiring the Hexagon)

	// Error Handler
	errorHandler := httpAdapter.NewErrorHandler(logger)

	// Repositories (Secondary Adapters)
	userRepo := postgres.NewUserRepository(pool)
	notificationRepo := postgres.NewNotificationRepository(pool)

	// Services (Core)
	authService := services.NewAuthService(userRepo)
	notificationService := services.NewNotificationService(notificationRepo, hub)

	// Handlers (Primary Adapters)
	authHandler := httpAdapter.NewAuthHandler(authService, tokenManager, errorHandler, logger)
	notificationHandler := httpAdapter.NewNotificationHandler(notificationService, errorHandler)
	wsHandler := httpAdapter.NewWebSocketHandler(hub, tokenManager, cfg, logger)
	healthHandler := httpAdapter.NewHealthHandler(pool, hub, cfg.App.Version)

	// 7. Setup Router
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger(logger))
	r.Use(mw.RecoveryLogger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.WebSocket.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if generalRateLimiter != nil {
		r.Use(generalRateLimiter.Middleware)
	}

	// Health and metrics endpoints (outside /api/v1 for standard probe paths)
	r.Get("/health", healthHandler.HandleHealth)
	r.Get("/health/live", healthHandler.HandleLiveness)
	r.Get("/health/ready", healthHandler.HandleReadiness)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public auth routes with stricter rate limiting
		r.Group(func(r chi.Router) {
			if authRateLimiter != nil {
				r.Use(authRateLimiter.Middleware)
			}
			r.Route("/auth", authHandler.RegisterRoutes)
		})

		// WebSocket route (Authentication is handled inside the handler)
		r.Get("/ws", wsHandler.ServeHTTP)

		// Protected REST routes
		r.Group(func(r chi.Router) {
			r.Use(mw.JWTMiddleware(tokenManager))
			r.Route("/notifications", notificationHandler.RegisterRoutes)
		})
	})

	// 8. Start Server with Graceful Shutdown
	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// 9. Optional Discord bridge; it consumes our own socket like any client
	var bridge *discord.Bridge
	if cfg.Discord.Token != "" {
		bridge, err = startDiscordBridge(ctx, cfg, tokenManager, logger)
		if err != nil {
			logger.Error("failed to start discord bridge", "error", err)
			os.Exit(1)
		}
	}

	// Wait for interrupt signal
	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if bridge != nil {
		if err := bridge.Stop(); err != nil {
			logger.Warn("discord bridge shutdown error", "error", err)
		}
	}

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
		os.Exit(1)
	}

	logger.Info("server shutdown complete")
}

// startDiscordBridge authenticates a bot identity against our own websocket
// endpoint and mirrors tenant notifications into a Discord channel.
func startDiscordBridge(ctx context.Context, cfg *config.Config, tm *auth.TokenManager, logger *slog.Logger) (*discord.Bridge, error) {
	tenantID, err := uuid.Parse(cfg.Discord.TenantID)
	if err != nil {
		return nil, err
	}
	botIdentity := domain.Identity{
		TenantID: tenantID,
		UserID:   uuid.New(),
		Role:     domain.RoleBot,
	}

	manager := client.NewManager(client.Options{
		URL: "ws://127.0.0.1" + cfg.Server.Port + "/api/v1/ws",
		Credentials: func(context.Context) (string, error) {
			return tm.GenerateAccessToken(botIdentity)
		},
		Backoff: client.BackoffPolicy{
			MaxAttempts: cfg.Reconnect.MaxAttempts,
			BaseDelay:   cfg.Reconnect.BaseDelay,
			Multiplier:  cfg.Reconnect.Multiplier,
			MaxDelay:    cfg.Reconnect.MaxDelay,
		},
		Logger: logger,
	})
	if err := manager.Connect(ctx); err != nil {
		return nil, err
	}

	bridge, err := discord.NewBridge(discord.Config{
		Token:     cfg.Discord.Token,
		ChannelID: cfg.Discord.ChannelID,
		Logger:    logger,
	}, manager)
	if err != nil {
		manager.Close()
		return nil, err
	}
	if err := bridge.Start(ctx); err != nil {
		manager.Close()
		return nil, err
	}
	return bridge, nil
}
