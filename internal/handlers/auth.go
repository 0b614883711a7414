package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/ilker/tracker-server/internal/auth"
	"github.com/ilker/tracker-server/internal/middleware"
	"github.com/rs/zerolog"
)

const (
	msgMissingField       = "Log in with username and password"
	msgInvalidCredentials = "Bad username or password"
	msgUnauthorized       = "Unauthorized"
)

type AuthHandler struct {
	authenticator *auth.Authenticator
	logger        zerolog.Logger
}

func NewAuthHandler(authenticator *auth.Authenticator, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		logger:        logger,
	}
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

// POST /api/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, msgMissingField)
		return
	}

	token, err := h.authenticator.Login(req)
	switch {
	case errors.Is(err, auth.ErrMissingField):
		BadRequest(c, msgMissingField)
	case errors.Is(err, auth.ErrInvalidCredentials):
		h.logger.Warn().Str("client_ip", c.ClientIP()).Msg("failed admin login")
		Unauthorized(c, msgInvalidCredentials)
	case err != nil:
		h.logger.Error().Err(err).Msg("failed to issue token")
		InternalError(c, "Failed to generate token")
	default:
		Success(c, LoginResponse{AccessToken: token})
	}
}

// GET /api/is-admin
func (h *AuthHandler) IsAdmin(c *gin.Context) {
	if err := h.authenticator.Authorize(middleware.GetIdentity(c)); err != nil {
		Forbidden(c, msgUnauthorized)
		return
	}
	Success(c, gin.H{"msg": "Authorized"})
}
