package router

import (
	"github.com/labstack/echo/v4"

	"petcycle/internal/adapter/api/handler"
	"petcycle/internal/adapter/api/middleware"
)

func SetupAdminRouter(api *echo.Group, authMiddleware *middleware.AuthMiddleware, adminMiddleware *middleware.AdminMiddleware) {
	adminHandler := handler.GetAdminHandler()

	admin := api.Group("/admin")
	admin.Use(authMiddleware.Authenticate)
	admin.Use(adminMiddleware.AdminOnly)

	admin.GET("/online", adminHandler.GetOnlineUsers)
}
