package handler

import (
	"github.com/labstack/echo/v4"

	"petcycle/internal/usecase"
	"petcycle/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

func (h *UserHandler) GetNickname(c echo.Context) error {
	result, err := h.userUseCase.Nickname(c.Request().Context(), c.Param("userId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, result)
}
