package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/anvesha/vocalis/server/internal/websocket"
	"github.com/anvesha/vocalis/server/usecase"
)

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, service *usecase.ConversationService, logger *zap.Logger) {
	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"service": "vocalis-server",
		})
	})

	// API v1 routes
	v1 := e.Group("/api/v1")

	v1.GET("/conversations", func(c echo.Context) error {
		return listConversations(c, service)
	})
	v1.POST("/conversations", func(c echo.Context) error {
		return createConversation(c, service)
	})
	v1.GET("/conversations/:id", func(c echo.Context) error {
		return getConversation(c, service)
	})
	v1.PATCH("/conversations/:id", func(c echo.Context) error {
		return renameConversation(c, service)
	})
	v1.DELETE("/conversations/:id", func(c echo.Context) error {
		return deleteConversation(c, service)
	})
	v1.GET("/conversations/:id/messages", func(c echo.Context) error {
		return listMessages(c, service)
	})
	v1.POST("/conversations/:id/messages", func(c echo.Context) error {
		return sendMessage(c, service, logger)
	})

	// WebSocket endpoint
	e.GET("/ws", func(c echo.Context) error {
		return websocket.HandleWebSocket(hub, c, logger)
	})
}

func listConversations(c echo.Context, service *usecase.ConversationService) error {
	conversations := service.Store().List()
	summaries := make([]websocket.ConversationSummary, 0, len(conversations))
	for _, conversation := range conversations {
		summaries = append(summaries, websocket.NewConversationSummary(conversation))
	}
	return c.JSON(http.StatusOK, summaries)
}

func createConversation(c echo.Context, service *usecase.ConversationService) error {
	conversation := service.Store().Create(c.Request().Context())
	return c.JSON(http.StatusCreated, conversation)
}

func getConversation(c echo.Context, service *usecase.ConversationService) error {
	conversation, ok := service.Store().Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Conversation not found",
		})
	}
	return c.JSON(http.StatusOK, conversation)
}

func renameConversation(c echo.Context, service *usecase.ConversationService) error {
	var req RenameConversationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	err := service.Store().Rename(c.Request().Context(), c.Param("id"), req.Name)
	switch {
	case errors.Is(err, usecase.ErrConversationNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Conversation not found",
		})
	case err != nil:
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_name",
			Message: err.Error(),
		})
	}

	conversation, _ := service.Store().Get(c.Param("id"))
	return c.JSON(http.StatusOK, conversation)
}

func deleteConversation(c echo.Context, service *usecase.ConversationService) error {
	if err := service.Store().Delete(c.Request().Context(), c.Param("id")); err != nil {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Conversation not found",
		})
	}
	return c.NoContent(http.StatusNoContent)
}

func listMessages(c echo.Context, service *usecase.ConversationService) error {
	conversation, ok := service.Store().Get(c.Param("id"))
	if !ok {
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Conversation not found",
		})
	}
	return c.JSON(http.StatusOK, conversation.Messages)
}

// sendMessage runs one text-only turn. Voice playback is a WebSocket concern;
// REST callers get the transcript pair back.
func sendMessage(c echo.Context, service *usecase.ConversationService, logger *zap.Logger) error {
	var req SendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	userMessage, botMessage, err := service.Send(c.Request().Context(), c.Param("id"), req.Text, nil)
	switch {
	case errors.Is(err, usecase.ErrEmptyMessage):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "empty_message",
			Message: "Message text cannot be empty",
		})
	case errors.Is(err, usecase.ErrConversationNotFound):
		return c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: "Conversation not found",
		})
	case err != nil:
		logger.Error("Send failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to process message",
		})
	}

	return c.JSON(http.StatusOK, SendMessageResponse{
		UserMessage: userMessage,
		BotMessage:  botMessage,
	})
}
