package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelhub/internal/core"
)

// UserHandlers provides HTTP handlers for user presence.
type UserHandlers struct {
	sessions *core.Sessions
	log      *zerolog.Logger
}

// NewUserHandlers creates a new user handlers instance.
func NewUserHandlers(sessions *core.Sessions, logger *zerolog.Logger) *UserHandlers {
	return &UserHandlers{
		sessions: sessions,
		log:      logger,
	}
}

// PresenceResponse represents an online user in API responses.
type PresenceResponse struct {
	Username string `json:"username"`
	Status   string `json:"status"`
}

// OnlineUsers lists connected users.
// GET /api/users/online
func (h *UserHandlers) OnlineUsers(c *gin.Context) {
	online := h.sessions.Online()

	response := make([]PresenceResponse, 0, len(online))
	for _, p := range online {
		response = append(response, PresenceResponse{Username: p.Username, Status: p.Status})
	}

	c.JSON(http.StatusOK, response)
}
