package handler

import (
	"github.com/labstack/echo/v4"

	"petcycle/internal/usecase"
	"petcycle/pkg/response"
)

type LikeHandler struct {
	likeUseCase *usecase.LikeUseCase
}

func NewLikeHandler(likeUseCase *usecase.LikeUseCase) *LikeHandler {
	return &LikeHandler{
		likeUseCase: likeUseCase,
	}
}

func (h *LikeHandler) ToggleLike(c echo.Context) error {
	userID := c.Get("uid").(string)

	status, err := h.likeUseCase.Toggle(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, status)
}

func (h *LikeHandler) GetLikeStatus(c echo.Context) error {
	userID := c.Get("uid").(string)

	status, err := h.likeUseCase.Status(c.Request().Context(), userID, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, status)
}
