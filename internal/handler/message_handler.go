package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"lotmarket/internal/usecase"
)

// 買い手と出品者のメッセージ
type MessageHandler struct {
	uc *usecase.MessageUsecase
}

func NewMessageHandler(uc *usecase.MessageUsecase) *MessageHandler {
	return &MessageHandler{uc: uc}
}

func (h *MessageHandler) RegisterRoutes(r Routes) {
	g := r.Group("/messages")
	g.POST("", h.send)
	g.GET("", h.inbox)
	g.GET("/thread/:userId", h.thread)
	g.PUT("/:id/read", h.markRead)
}

func (h *MessageHandler) send(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	var req usecase.SendMessageInput
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}

	msg, err := h.uc.Send(c.Request().Context(), userID, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

func (h *MessageHandler) inbox(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}

	page, limit, err := queryPage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	unread, err := queryBoolPtr(c, "unread")
	if err != nil {
		return badRequest(c, "invalid unread")
	}

	out, err := h.uc.Inbox(c.Request().Context(), userID, unread != nil && *unread, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MessageHandler) thread(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	otherID, ok := pathID(c, "userId")
	if !ok {
		return badRequest(c, "invalid userId")
	}

	page, limit, err := queryPage(c)
	if err != nil {
		return badRequest(c, err.Error())
	}

	out, err := h.uc.Thread(c.Request().Context(), userID, otherID, page, limit)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *MessageHandler) markRead(c echo.Context) error {
	userID, ok := getUserIDFromContext(c)
	if !ok {
		return unauthorized(c)
	}
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid id")
	}

	if err := h.uc.MarkRead(c.Request().Context(), userID, id); err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, SuccessResponse{Message: "read"})
}
