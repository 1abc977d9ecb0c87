package router

import (
	"github.com/labstack/echo/v4"

	"petcycle/internal/adapter/api/handler"
	"petcycle/internal/adapter/api/middleware"
)

func SetupTransactionRouter(api *echo.Group, authMiddleware *middleware.AuthMiddleware) {
	transactionHandler := handler.GetTransactionHandler()

	orders := api.Group("/orders")
	orders.Use(authMiddleware.Authenticate)

	orders.POST("", transactionHandler.RegisterTransaction)
	orders.GET("", transactionHandler.ListMyTransactions)
	orders.GET("/transactions/active/me", transactionHandler.HasActiveTransaction)
	orders.GET("/:id", transactionHandler.GetTransaction)
}
