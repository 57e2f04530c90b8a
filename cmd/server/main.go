package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"resume-relay/internal/config"
	"resume-relay/internal/database"
	"resume-relay/internal/handlers"
	"resume-relay/internal/logging"
	"resume-relay/internal/metrics"
	"resume-relay/internal/middleware"
	"resume-relay/internal/relay"
	"resume-relay/internal/router"
	"resume-relay/internal/websocket"
)

func main() {
	// ──── Step 1: Load Environment Variables ────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}

	// ──── Step 2: Initialize Logger ────
	log, err := logging.New(logging.Config{Level: cfg.LogLevel, Development: cfg.LogDev})
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Logger initialization failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	log.Info("🚀 Starting resume relay...", zap.String("env", cfg.Env))

	if err := cfg.Validate(); err != nil {
		if cfg.IsProduction() {
			log.Fatal("✗ Invalid configuration", zap.Error(err))
		}
		log.Warn("configuration incomplete, relay calls will fail until it is fixed", zap.Error(err))
	}
	log.Info("✓ Environment variables loaded")

	m := metrics.New()

	// ──── Step 3: Initialize Rate Limiter ────
	var limiter *middleware.RateLimiter
	if cfg.RateLimitEnabled {
		var store middleware.Store = middleware.NewMemoryStore(cfg.RateLimitRPS, cfg.RateLimitBurst)
		if cfg.RedisURL != "" {
			redisClient, err := database.NewRedisClient(cfg.RedisURL)
			if err != nil {
				log.Fatal("✗ Redis connection failed", zap.Error(err))
			}
			defer redisClient.Close()
			store = middleware.NewRedisStore(redisClient, middleware.RedisLimitPerMinute(cfg.RateLimitRPS, cfg.RateLimitBurst), time.Minute)
			log.Info("✓ Redis connected, rate limits are shared")
		}
		limiter = middleware.NewRateLimiter(store, log.Named("ratelimit"), m)
		log.Info("✓ Rate limiter enabled", zap.Float64("rps", cfg.RateLimitRPS), zap.Int("burst", cfg.RateLimitBurst))
	}

	// ──── Step 4: Initialize Relay ────
	rl := relay.New(relay.Config{
		BaseURL: cfg.APIURL,
		Timeout: cfg.UpstreamTimeout,
		Metrics: m,
		Logger:  log.Named("relay").Sugar(),
	})
	log.Info("✓ Relay configured", zap.String("upstream", cfg.APIURL), zap.Duration("timeout", rl.Timeout()))

	// ──── Initialize Handlers ────
	deps := router.Deps{
		Chat:           handlers.NewChatHandler(rl, log.Named("chat"), m),
		Contact:        handlers.NewContactHandler(rl, log.Named("contact"), m),
		System:         handlers.NewSystemHandler(rl, cfg.PublicAPIURL, log.Named("system"), m),
		Limiter:        limiter,
		Metrics:        m,
		Logger:         log.Named("http"),
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
	}
	if cfg.AdminJWTSecret != "" {
		deps.AdminAuth = middleware.NewAdminAuth(cfg.AdminJWTSecret)
		deps.Debug = handlers.NewDebugHandler(rl, log.Named("debug"), m)
		log.Info("✓ Debug routes enabled")
	}

	// ──── Step 5: Start WebSocket Hub ────
	wsHub := websocket.NewHub(rl, cfg.AllowedOrigins, log.Named("ws"), m)
	deps.WSHub = wsHub
	log.Info("✓ WebSocket hub started")

	// ──── Step 6: Start HTTP Server ────
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router.New(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: rl.Timeout() + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info("Shutting down...")
		wsHub.Shutdown()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
		}
	}()

	log.Info(fmt.Sprintf("✓ Resume relay ready on http://localhost:%s", cfg.Port))
	log.Info(fmt.Sprintf("  API: http://localhost:%s/api", cfg.Port))
	log.Info(fmt.Sprintf("  WS:  ws://localhost:%s/api/chat/ws", cfg.Port))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("Server error", zap.Error(err))
	}
	<-done
}
