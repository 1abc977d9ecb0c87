package router

import (
	"github.com/labstack/echo/v4"

	"petcycle/internal/adapter/api/handler"
	"petcycle/internal/adapter/api/middleware"
)

func SetupUserRouter(api *echo.Group, authMiddleware *middleware.AuthMiddleware) {
	userHandler := handler.GetUserHandler()

	api.GET("/chat/users/:userId/nickname", userHandler.GetNickname, authMiddleware.Authenticate)
}
