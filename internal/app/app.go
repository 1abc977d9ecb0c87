// Package app assembles the HTTP and websocket server from its backing services.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"petcycle/internal/adapter/api"
	"petcycle/internal/adapter/api/handler"
	"petcycle/internal/adapter/api/middleware"
	"petcycle/internal/adapter/api/router"
	"petcycle/internal/domain/repository"
	"petcycle/internal/infrastructure/firebase"
	"petcycle/internal/infrastructure/presence"
	"petcycle/internal/infrastructure/ratelimit"
	"petcycle/internal/infrastructure/relay"
	ws "petcycle/internal/infrastructure/websocket"
	"petcycle/internal/usecase"
	"petcycle/pkg/config"
	"petcycle/pkg/logger"
)

type Repositories struct {
	Chat        repository.ChatRepository
	Product     repository.ProductRepository
	Transaction repository.TransactionRepository
	Like        repository.LikeRepository
	User        repository.UserRepository
}

type Deps struct {
	Config   *config.Config
	Repos    Repositories
	Verifier middleware.TokenVerifier
	// DevTokens enables /_dev/token when non-nil and the environment is development.
	DevTokens    *firebase.DevTokens
	Relay        relay.Relay
	Presence     presence.Store
	RateLimiter  *ratelimit.RateLimiter
	HealthChecks map[string]handler.HealthCheck
}

type App struct {
	Echo        *echo.Echo
	Manager     *ws.Manager
	RateLimiter *ratelimit.RateLimiter
}

// New wires use cases, handlers and routes and starts the websocket manager, which runs until ctx ends.
func New(ctx context.Context, deps Deps) (*App, error) {
	cfg := deps.Config
	limiter := deps.RateLimiter
	if limiter == nil {
		limiter = ratelimit.NewRateLimiter(nil)
	}

	manager := ws.NewManager(deps.Relay, deps.Presence)

	chatUseCase := usecase.NewChatUseCase(deps.Repos.Chat, deps.Repos.User, manager, limiter, cfg.MessageMaxLength)
	userUseCase := usecase.NewUserUseCase(deps.Repos.User)
	productUseCase := usecase.NewProductUseCase(deps.Repos.Product, deps.Repos.Transaction, deps.Repos.Like, deps.Repos.User)
	likeUseCase := usecase.NewLikeUseCase(deps.Repos.Like, deps.Repos.Product, limiter)
	transactionUseCase := usecase.NewTransactionUseCase(deps.Repos.Transaction, deps.Repos.Product, deps.Repos.User, limiter)

	manager.SetMessenger(chatUseCase)
	if err := manager.Start(ctx); err != nil {
		return nil, fmt.Errorf("start websocket manager: %w", err)
	}

	handler.Setup(chatUseCase, userUseCase, productUseCase, likeUseCase, transactionUseCase, cfg.HistoryLimit)
	handler.SetupWebSocketHandler(manager, cfg.WSSendBuffer, cfg.AllowedOrigins)
	handler.SetupAdminHandler(manager)
	handler.SetupHealthHandler(cfg.NodeID, deps.HealthChecks)
	if deps.DevTokens != nil {
		handler.SetupDevTokenHandler(deps.DevTokens, userUseCase)
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{AllowOrigins: cfg.AllowedOrigins}))
	e.Use(requestLogger())

	e.Validator = api.NewValidator()

	authMiddleware := middleware.NewAuthMiddleware(deps.Verifier)
	adminMiddleware := middleware.NewAdminMiddleware(deps.Repos.User)

	router.Setup(e, authMiddleware, adminMiddleware, router.Options{
		Environment: cfg.Environment,
		DevTokens:   deps.DevTokens != nil,
		RateLimiter: limiter,
	})

	return &App{Echo: e, Manager: manager, RateLimiter: limiter}, nil
}

func requestLogger() echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:   true,
		LogURIPath:  true,
		LogStatus:   true,
		LogLatency:  true,
		LogRemoteIP: true,
		LogError:    true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("path", v.URIPath),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if uid, ok := c.Get("uid").(string); ok {
				fields = append(fields, zap.String("uid", uid))
			}
			if v.Error != nil {
				logger.L().Warn("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			logger.L().Info("request", fields...)
			return nil
		},
	})
}

// Shutdown stops accepting requests and waits for in-flight ones up to timeout.
func (a *App) Shutdown(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	return a.Echo.Shutdown(ctx)
}
