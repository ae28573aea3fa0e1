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

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/zhouzirui/storyforge/backend/internal/config"
	"github.com/zhouzirui/storyforge/backend/internal/handler"
	"github.com/zhouzirui/storyforge/backend/internal/logger"
	"github.com/zhouzirui/storyforge/backend/internal/model/story"
	"github.com/zhouzirui/storyforge/backend/internal/service/ai"
	"github.com/zhouzirui/storyforge/backend/internal/service/ratelimit"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Encoding: cfg.Log.Encoding})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	if envErr != nil {
		log.Info("no .env file loaded, continuing with system environment variables only", zap.Error(envErr))
	}

	limiter, closeLimiter, err := newLimiter(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to initialize rate limiter", zap.Error(err))
	}
	defer closeLimiter()

	aiService := ai.NewService(cfg.LLM, log)
	if aiService.MockMode() {
		log.Warn("no valid LLM API key found, running in demo mode with mock stories")
	} else {
		log.Info("LLM API key configured", zap.String("model", cfg.LLM.Model))
	}

	if cfg.Server.IsProduction() && cfg.Server.FrontendURL == "" {
		log.Warn("FRONTEND_URL is not set, CORS allows any origin")
	}

	router := handler.NewRouter(handler.Dependencies{
		Server:    cfg.Server,
		Scope:     cfg.RateLimit.Scope,
		Catalog:   story.NewMemoryStore(story.Seed()),
		Generator: aiService,
		Limiter:   limiter,
		Logger:    log,
	})

	startServer(ctx, cfg.Server, router, log)
}

// newLimiter builds the configured limiter store. The returned func releases
// its resources.
func newLimiter(ctx context.Context, cfg *config.Config, log *zap.Logger) (*ratelimit.Limiter, func(), error) {
	rl := cfg.RateLimit

	if rl.Backend == config.BackendRedis {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Username: cfg.Redis.Username,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}

		log.Info("rate limiter using redis",
			zap.String("addr", cfg.Redis.Addr),
			zap.Duration("cooldown", rl.Cooldown),
			zap.String("scope", rl.Scope),
		)
		store := ratelimit.NewRedisStore(client, ratelimit.DefaultKeyPrefix)
		return ratelimit.New(store, rl.Cooldown), func() { _ = client.Close() }, nil
	}

	store := ratelimit.NewMemoryStore()
	janitorCtx, cancel := context.WithCancel(ctx)
	done := store.StartJanitor(janitorCtx, rl.SweepInterval, rl.Cooldown)
	log.Info("rate limiter using memory store",
		zap.Duration("cooldown", rl.Cooldown),
		zap.String("scope", rl.Scope),
		zap.Duration("sweep_interval", rl.SweepInterval),
	)
	return ratelimit.New(store, rl.Cooldown), func() { cancel(); <-done }, nil
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler, log *zap.Logger) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info("StoryForge backend listening", zap.String("addr", addr), zap.String("environment", serverCfg.Environment))
	if err := runServer(ctx, srv); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
