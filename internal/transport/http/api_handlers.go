package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/channelhub/internal/auth"
)

// APIHandlers provides HTTP handlers for account endpoints.
type APIHandlers struct {
	authService *auth.Service
	log         *zerolog.Logger
}

// NewAPIHandlers creates a new API handlers instance.
func NewAPIHandlers(authService *auth.Service, logger *zerolog.Logger) *APIHandlers {
	return &APIHandlers{
		authService: authService,
		log:         logger,
	}
}

// Credentials is the body of register and login requests.
type Credentials struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Password string `json:"password" binding:"required,min=6,max=72"`
}

// AuthResponse carries the token the client presents on /ws and /api.
type AuthResponse struct {
	Token    string `json:"token"`
	Username string `json:"username"`
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Register creates an account.
// POST /api/register
func (h *APIHandlers) Register(c *gin.Context) {
	h.issue(c, "register", http.StatusCreated, h.authService.Register)
}

// Login exchanges credentials for a token.
// POST /api/login
func (h *APIHandlers) Login(c *gin.Context) {
	h.issue(c, "login", http.StatusOK, h.authService.Login)
}

type tokenIssuer func(ctx context.Context, username, password string) (string, error)

func (h *APIHandlers) issue(c *gin.Context, op string, okStatus int, fn tokenIssuer) {
	var req Credentials
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Str("op", op).Msg("invalid credentials body")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	username := strings.TrimSpace(req.Username)

	token, err := fn(c.Request.Context(), username, req.Password)
	if err != nil {
		status := authStatus(err)
		if status == http.StatusInternalServerError {
			h.log.Error().Err(err).Str("op", op).Str("username", username).Msg("auth request failed")
			c.JSON(status, ErrorResponse{Error: "internal server error"})
			return
		}
		c.JSON(status, ErrorResponse{Error: err.Error()})
		return
	}

	h.log.Info().Str("op", op).Str("username", username).Msg("token issued")
	c.JSON(okStatus, AuthResponse{Token: token, Username: username})
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidUsername), errors.Is(err, auth.ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}
