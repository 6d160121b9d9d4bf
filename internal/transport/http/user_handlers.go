package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/pairchat/internal/service/messaging"
)

// UserHandlers provides HTTP handlers for user operations.
type UserHandlers struct {
	gateway *messaging.Service
	log     *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(gateway *messaging.Service, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		gateway: gateway,
		log:     logger,
	}
}

// SearchUsers handles searching for users.
// GET /api/users/search?q=query
func (h *UserHandlers) SearchUsers(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	users, err := h.gateway.SearchUsers(c.Request.Context(), c.Query("q"), userID)
	if err != nil {
		if errors.Is(err, messaging.ErrValidation) {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "search query must be at least 3 characters"})
			return
		}
		h.log.Error().Err(err).Str("query", c.Query("q")).Msg("failed to search users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	c.JSON(http.StatusOK, users)
}
