package handler

import (
	"github.com/labstack/echo/v4"

	"petcycle/internal/usecase"
	"petcycle/pkg/response"
	"petcycle/pkg/utils"
)

type ChatHandler struct {
	chatUseCase  *usecase.ChatUseCase
	historyLimit int
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase, historyLimit int) *ChatHandler {
	return &ChatHandler{
		chatUseCase:  chatUseCase,
		historyLimit: historyLimit,
	}
}

type openRoomRequest struct {
	PeerID string `json:"peer_id" validate:"required"`
}

type sendMessageRequest struct {
	RoomID  string `json:"room_id" validate:"required"`
	Content string `json:"content" validate:"required"`
}

// OpenRoom gets or creates the 1:1 room with peer_id
func (h *ChatHandler) OpenRoom(c echo.Context) error {
	var req openRoomRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	room, err := h.chatUseCase.GetOrCreateRoom(c.Request().Context(), userID, req.PeerID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, room)
}

func (h *ChatHandler) ListRooms(c echo.Context) error {
	userID := c.Get("uid").(string)

	rooms, err := h.chatUseCase.ListRooms(c.Request().Context(), userID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, rooms)
}

func (h *ChatHandler) GetMessages(c echo.Context) error {
	userID := c.Get("uid").(string)
	roomID := c.Param("roomId")
	params := utils.GetPaginationParams(c, h.historyLimit)

	messages, total, err := h.chatUseCase.GetMessages(c.Request().Context(), userID, roomID, params.PageSize, params.Offset)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, messages, total, params.Page, params.PageSize)
}

func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	userID := c.Get("uid").(string)

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), userID, usecase.SendMessageInput{
		RoomID:  req.RoomID,
		Content: req.Content,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// DeleteRoom hides the room for the caller only
func (h *ChatHandler) DeleteRoom(c echo.Context) error {
	userID := c.Get("uid").(string)

	if err := h.chatUseCase.DeleteRoom(c.Request().Context(), userID, c.Param("roomId")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"room_id": c.Param("roomId"),
		"status":  "deleted",
	})
}
