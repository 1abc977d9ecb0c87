package router

import (
	"github.com/labstack/echo/v4"

	"petcycle/internal/adapter/api/handler"
	"petcycle/internal/adapter/api/middleware"
)

func SetupProductRouter(api *echo.Group, authMiddleware *middleware.AuthMiddleware) {
	productHandler := handler.GetProductHandler()
	likeHandler := handler.GetLikeHandler()

	products := api.Group("/products")

	// Public routes
	products.GET("/:id", productHandler.GetProduct)

	// Protected routes
	protected := products.Group("")
	protected.Use(authMiddleware.Authenticate)
	protected.POST("", productHandler.CreateProduct)
	protected.GET("/purchased", productHandler.ListPurchased)
	protected.POST("/:id/sell", productHandler.MarkSold)
	protected.POST("/:id/purchase/confirm", productHandler.ConfirmPurchase)
	protected.POST("/:id/like", likeHandler.ToggleLike)
	protected.GET("/:id/like", likeHandler.GetLikeStatus)
}
