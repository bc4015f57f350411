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

	"gearadvisor-backend/internal/advisor"
	"gearadvisor-backend/internal/config"
	"gearadvisor-backend/internal/database"
	"gearadvisor-backend/internal/handlers"
	"gearadvisor-backend/internal/logger"
	"gearadvisor-backend/internal/middleware"
	"gearadvisor-backend/internal/render"
	"gearadvisor-backend/internal/repository"
	"gearadvisor-backend/internal/router"
	"gearadvisor-backend/internal/services"
	"gearadvisor-backend/internal/websocket"
)

func main() {
	// ──── Step 1: Load Configuration ────
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "✗ Configuration failed: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg.LogDebug)
	defer log.Sync()
	log.Info("starting sports equipment advisor", zap.String("env", cfg.Env))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ──── Step 2: Initialize Gemini Client ────
	geminiService, err := services.NewGeminiService(ctx, services.GeminiConfig{
		APIKey:          cfg.GeminiAPIKey,
		Model:           cfg.GeminiModel,
		Temperature:     cfg.GeminiTemperature,
		TopP:            cfg.GeminiTopP,
		TopK:            cfg.GeminiTopK,
		MaxOutputTokens: cfg.GeminiMaxOutputTokens,
		ConcurrentReqs:  cfg.GeminiConcurrentReqs,
	}, log.Named("gemini"))
	if err != nil {
		log.Fatal("gemini client initialization failed", zap.Error(err))
	}
	defer geminiService.Close()
	log.Info("gemini client initialized", zap.String("model", cfg.GeminiModel))

	// ──── Step 3: Event Relay (optional Redis) ────
	var (
		wsHub     *websocket.Hub
		publisher services.Publisher
	)
	if cfg.RedisURL != "" {
		redisClients, err := database.NewRedisClients(cfg.RedisURL)
		if err != nil {
			log.Fatal("redis connection failed", zap.Error(err))
		}
		defer redisClients.Close()

		wsHub = websocket.NewHub(redisClients.PubSub, cfg.FrontendURL, log.Named("ws"))
		publisher = services.NewRedisPublisher(redisClients.Publish)
		log.Info("redis connected, relaying turn events over pub/sub")
	} else {
		wsHub = websocket.NewHub(nil, cfg.FrontendURL, log.Named("ws"))
		publisher = wsHub
	}

	// ──── Step 4: Sessions and Bridge ────
	sessionRepo := repository.NewSessionRepo(cfg.SessionTTL)
	go sessionRepo.Run(ctx, time.Minute, func(removed int) {
		log.Info("expired sessions removed", zap.Int("count", removed))
	})

	markdown := render.NewMarkdown()
	notifier := services.NewTurnNotifier(publisher, markdown, log.Named("notifier"))
	bridge := advisor.NewBridge(geminiService, notifier, log.Named("bridge"))

	// ──── Step 5: HTTP ────
	sessionAuth := middleware.NewSessionAuth(cfg.SessionSecret, cfg.SessionTTL, cfg.Env == "production", sessionRepo, log.Named("session"))
	chatLimiter := middleware.NewRateLimiter(cfg.ChatRequestsPerMin, time.Minute)
	defer chatLimiter.Stop()

	r := router.New(
		sessionAuth,
		chatLimiter,
		handlers.NewPageHandler(bridge, markdown, log.Named("page")),
		handlers.NewChatHandler(bridge, markdown, log.Named("chat")),
		wsHub,
		cfg.FrontendURL,
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		<-ctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("advisor ready", zap.String("url", fmt.Sprintf("http://localhost:%s", cfg.Port)))

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatal("server error", zap.Error(err))
	}
}
