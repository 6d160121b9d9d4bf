package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/proto"
	"github.com/vovakirdan/pairchat/internal/service/messaging"
)

// ChatHandlers provides HTTP handlers for chats and messages.
type ChatHandlers struct {
	gateway *messaging.Service
	log     *zerolog.Logger
}

// NewChatHandlers creates a new chat handlers instance.
func NewChatHandlers(gateway *messaging.Service, logger *zerolog.Logger) *ChatHandlers {
	return &ChatHandlers{
		gateway: gateway,
		log:     logger,
	}
}

// CreateChat opens a chat with another user.
// POST /api/chats
func (h *ChatHandlers) CreateChat(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req proto.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "recipientId is required", Code: messaging.CodeMissingFields})
		return
	}

	summary, created, err := h.gateway.CreateChat(c.Request.Context(), userID, req.RecipientID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, summary)
}

// ListChats lists the caller's chats, most recent first.
// GET /api/chats
func (h *ChatHandlers) ListChats(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	chats, err := h.gateway.ListChats(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, chats)
}

// GetChat returns one chat.
// GET /api/chats/:chatId
func (h *ChatHandlers) GetChat(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	summary, err := h.gateway.GetChat(c.Request.Context(), c.Param("chatId"), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// SendMessage posts a message to a chat.
// POST /api/chats/:chatId/messages
func (h *ChatHandlers) SendMessage(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req proto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: messaging.CodeMissingFields})
		return
	}

	msg, err := h.gateway.SendMessage(c.Request.Context(), messaging.SendInput{
		ChatID:      c.Param("chatId"),
		SenderID:    userID,
		Content:     req.Content,
		TempID:      req.TempID,
		RecipientID: req.RecipientID,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// ListMessages returns a page of a chat's history.
// GET /api/chats/:chatId/messages?limit=50&before=<messageId>
func (h *ChatHandlers) ListMessages(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid limit", Code: messaging.CodeMissingFields})
			return
		}
		limit = n
	}

	msgs, err := h.gateway.ListMessages(c.Request.Context(), c.Param("chatId"), userID, limit, c.Query("before"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, msgs)
}

// writeError maps a gateway error to a status code and error body.
func (h *ChatHandlers) writeError(c *gin.Context, err error) {
	var gwErr *messaging.Error
	if !errors.As(err, &gwErr) {
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("unexpected error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: messaging.CodePersistenceFailed})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, messaging.ErrValidation), errors.Is(err, messaging.ErrSelfChat):
		status = http.StatusBadRequest
	case errors.Is(err, messaging.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, messaging.ErrNotFound):
		status = http.StatusNotFound
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}

	c.JSON(status, ErrorResponse{Error: gwErr.Message, Code: gwErr.Code})
}
