package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelhub/internal/channels"
	"github.com/vovakirdan/channelhub/internal/store"
)

// ChannelQueries is the read side of the channel service used by REST.
type ChannelQueries interface {
	ListChannels(ctx context.Context, userID int64) ([]*store.UserChannel, error)
	ListMembers(ctx context.Context, userID int64, name string) ([]string, error)
}

// ChannelHandlers provides HTTP handlers for channel queries.
type ChannelHandlers struct {
	svc ChannelQueries
	log *zerolog.Logger
}

// NewChannelHandlers creates a new channel handlers instance.
func NewChannelHandlers(svc ChannelQueries, logger *zerolog.Logger) *ChannelHandlers {
	return &ChannelHandlers{
		svc: svc,
		log: logger,
	}
}

// ChannelResponse represents a channel in API responses.
type ChannelResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
	IsAdmin   bool   `json:"is_admin"`
	CreatedAt string `json:"created_at"`
}

// MembersResponse lists a channel's active members.
type MembersResponse struct {
	Channel string   `json:"channel"`
	Users   []string `json:"users"`
}

// ListChannels handles listing the caller's channels.
// GET /api/channels
func (h *ChannelHandlers) ListChannels(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	list, err := h.svc.ListChannels(c.Request.Context(), uid)
	if err != nil {
		h.log.Error().Err(err).Int64("user_id", uid).Msg("failed to list channels")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ChannelResponse, 0, len(list))
	for _, ch := range list {
		response = append(response, ChannelResponse{
			ID:        ch.ID,
			Name:      ch.Name,
			IsPrivate: ch.IsPrivate,
			IsAdmin:   ch.IsAdmin,
			CreatedAt: ch.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		})
	}

	h.log.Debug().Int64("user_id", uid).Int("channel_count", len(list)).Msg("channels listed successfully")
	c.JSON(http.StatusOK, response)
}

// ListMembers handles listing a channel's active members.
// GET /api/channels/:name/users
func (h *ChannelHandlers) ListMembers(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		h.log.Error().Msg("user_id not found in context")
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	name := c.Param("name")
	users, err := h.svc.ListMembers(c.Request.Context(), uid, name)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("channel", name).Msg("failed to list members")
		}
		c.JSON(status, ErrorResponse{Error: channels.MessageOf(err)})
		return
	}

	c.JSON(http.StatusOK, MembersResponse{Channel: name, Users: users})
}

func statusFor(err error) int {
	switch channels.KindOf(err) {
	case channels.KindNotFound:
		return http.StatusNotFound
	case channels.KindConflict, channels.KindInvalidState:
		return http.StatusConflict
	case channels.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
