package auth

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/gaming-workshop/backend/pkg/response"
	"github.com/gaming-workshop/backend/pkg/utils"
)

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Password string `json:"password" binding:"required"`
}

// TokenResponse carries the issued admin token.
type TokenResponse struct {
	Token string `json:"token"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	passwordHash string
	jwt          *JWTService
	logger       *zap.Logger
}

// NewHandler creates an auth handler. passwordHash is the bcrypt hash of the
// admin password from config.
func NewHandler(passwordHash string, jwt *JWTService, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{passwordHash: passwordHash, jwt: jwt, logger: logger}
}

// Login handles POST /auth/login.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if h.passwordHash == "" {
		response.ServiceUnavailable(c, "admin access is not configured")
		return
	}
	if !utils.CheckPassword(req.Password, h.passwordHash) {
		h.logger.Warn("admin login rejected", zap.String("remote", c.ClientIP()))
		response.Unauthorized(c, "invalid password")
		return
	}

	token, err := h.jwt.Generate()
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}
	response.OK(c, TokenResponse{Token: token})
}
