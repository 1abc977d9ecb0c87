package handler

import (
	"context"

	"github.com/labstack/echo/v4"

	"petcycle/pkg/response"
)

// OnlineLister reports the cluster-wide online set.
type OnlineLister interface {
	Online(ctx context.Context) ([]string, error)
}

type AdminHandler struct {
	presence OnlineLister
}

var adminHandler *AdminHandler

func NewAdminHandler(presence OnlineLister) *AdminHandler {
	return &AdminHandler{
		presence: presence,
	}
}

func SetupAdminHandler(presence OnlineLister) {
	adminHandler = NewAdminHandler(presence)
}

func GetAdminHandler() *AdminHandler {
	return adminHandler
}

func (h *AdminHandler) GetOnlineUsers(c echo.Context) error {
	online, err := h.presence.Online(c.Request().Context())
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"users": online,
		"count": len(online),
	})
}
