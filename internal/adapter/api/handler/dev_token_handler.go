package handler

import (
	"github.com/labstack/echo/v4"

	"petcycle/internal/infrastructure/firebase"
	"petcycle/internal/usecase"
	"petcycle/pkg/errors"
	"petcycle/pkg/response"
)

type DevTokenHandler struct {
	tokens      *firebase.DevTokens
	userUseCase *usecase.UserUseCase
}

var devTokenHandler *DevTokenHandler

func NewDevTokenHandler(tokens *firebase.DevTokens, userUseCase *usecase.UserUseCase) *DevTokenHandler {
	return &DevTokenHandler{
		tokens:      tokens,
		userUseCase: userUseCase,
	}
}

func SetupDevTokenHandler(tokens *firebase.DevTokens, userUseCase *usecase.UserUseCase) {
	devTokenHandler = NewDevTokenHandler(tokens, userUseCase)
}

func GetDevTokenHandler() *DevTokenHandler {
	return devTokenHandler
}

// GenerateToken upserts the profile described by the query and signs a token for it.
func (h *DevTokenHandler) GenerateToken(c echo.Context) error {
	uid := c.QueryParam("uid")
	if uid == "" {
		return response.Error(c, errors.BadRequest("uid is required", nil))
	}
	nickname := c.QueryParam("nickname")
	role := c.QueryParam("role")

	user, err := h.userUseCase.EnsureProfile(c.Request().Context(), uid, nickname, role)
	if err != nil {
		return response.Error(c, err)
	}

	token, err := h.tokens.GenerateToken(user.ID, user.Nickname, user.Role)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to sign token", err))
	}

	return response.Success(c, map[string]interface{}{
		"token": token,
		"user": map[string]interface{}{
			"id":       user.ID,
			"nickname": user.DisplayName(),
			"role":     user.Role,
		},
	})
}
