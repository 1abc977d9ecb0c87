package router

import (
	"github.com/labstack/echo/v4"

	"petcycle/internal/adapter/api/handler"
	"petcycle/internal/adapter/api/middleware"
)

// SetupChatRouter sets up the chat REST routes (the live path is /ws)
func SetupChatRouter(api *echo.Group, authMiddleware *middleware.AuthMiddleware) {
	chatHandler := handler.GetChatHandler()

	chatGroup := api.Group("/chat")
	chatGroup.Use(authMiddleware.Authenticate)

	chatGroup.POST("/rooms", chatHandler.OpenRoom)
	chatGroup.GET("/rooms", chatHandler.ListRooms)
	chatGroup.GET("/rooms/:roomId/messages", chatHandler.GetMessages)
	chatGroup.DELETE("/rooms/:roomId", chatHandler.DeleteRoom)
	chatGroup.POST("/messages", chatHandler.SendMessage)
}
