package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"petcycle/internal/adapter/api/handler"
	"petcycle/internal/adapter/repository"
	"petcycle/internal/adapter/repository/memory"
	"petcycle/internal/app"
	"petcycle/internal/infrastructure/firebase"
	"petcycle/internal/infrastructure/presence"
	"petcycle/internal/infrastructure/ratelimit"
	"petcycle/internal/infrastructure/relay"
	"petcycle/pkg/config"
	"petcycle/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration: %v", err)
		os.Exit(1)
	}
	logger.Init(cfg.Environment)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps := app.Deps{
		Config:       cfg,
		HealthChecks: map[string]handler.HealthCheck{},
	}

	var clients *firebase.Clients
	if cfg.StorageDriver == "firestore" || cfg.AuthProvider == "firebase" {
		clients, err = firebase.Connect(ctx, cfg)
		if err != nil {
			logger.Error("Failed to initialize Firebase: %v", err)
			os.Exit(1)
		}
		defer clients.Close()
	}

	switch cfg.StorageDriver {
	case "firestore":
		logger.Info("Using Firestore storage")
		deps.Repos = app.Repositories{
			Chat:        repository.NewFirestoreChatRepository(clients.Firestore),
			Product:     repository.NewFirestoreProductRepository(clients.Firestore),
			Transaction: repository.NewFirestoreTransactionRepository(clients.Firestore),
			Like:        repository.NewFirestoreLikeRepository(clients.Firestore),
			User:        repository.NewFirestoreUserRepository(clients.Firestore),
		}
	default:
		logger.Info("Using in-memory storage")
		deps.Repos = app.Repositories{
			Chat:        memory.NewChatRepository(),
			Product:     memory.NewProductRepository(),
			Transaction: memory.NewTransactionRepository(),
			Like:        memory.NewLikeRepository(),
			User:        memory.NewUserRepository(),
		}
	}

	devTokens := firebase.NewDevTokens(cfg.JWTSecret, time.Duration(cfg.JWTExpiry)*time.Second)
	switch cfg.AuthProvider {
	case "firebase":
		deps.Verifier = firebase.NewFirebaseAuthClient(clients.Auth)
	default:
		if !cfg.IsDevelopment() {
			logger.Warn("AUTH_PROVIDER=%s outside development; tokens are signed with JWT_SECRET", cfg.AuthProvider)
		}
		deps.Verifier = devTokens
		if cfg.IsDevelopment() {
			deps.DevTokens = devTokens
		}
	}

	if cfg.NATSURL != "" {
		natsRelay, err := relay.NewNATS(relay.NATSConfig{
			URL:     cfg.NATSURL,
			Subject: cfg.NATSSubject,
			NodeID:  cfg.NodeID,
		})
		if err != nil {
			logger.Error("Failed to connect to NATS: %v", err)
			os.Exit(1)
		}
		defer natsRelay.Close()
		deps.Relay = natsRelay
		deps.HealthChecks["nats"] = natsRelay.Ping
		logger.Info("Relaying deliveries over NATS subject %s", cfg.NATSSubject)
	} else {
		deps.Relay = relay.NewLocal()
	}

	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("Invalid REDIS_URL: %v", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		store := presence.NewRedis(redisClient, cfg.NodeID, cfg.PresenceTTL)
		go store.Heartbeat(ctx)
		deps.Presence = store
		deps.HealthChecks["redis"] = func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}
		logger.Info("Tracking presence in Redis as node %s", cfg.NodeID)
	} else {
		deps.Presence = presence.NewMemory()
	}

	limiter := ratelimit.NewRateLimiter(nil)
	limiter.StartCleanupRoutine(ctx, 10*time.Minute)
	deps.RateLimiter = limiter

	server, err := app.New(ctx, deps)
	if err != nil {
		logger.Error("Failed to assemble server: %v", err)
		os.Exit(1)
	}

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := server.Echo.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")
	if err := server.Shutdown(10 * time.Second); err != nil {
		logger.Error("Shutdown: %v", err)
	}
}
