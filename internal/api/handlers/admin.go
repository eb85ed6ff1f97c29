package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"tariffgate/internal/shipox"

	"github.com/gin-gonic/gin"
)

// TokenAdmin exposes the upstream token lifecycle to operators
type TokenAdmin interface {
	Status() shipox.TokenStatus
	ForceRefresh(ctx context.Context) (shipox.TokenStatus, error)
}

// AdminHandler handles administrative operations on the upstream token
type AdminHandler struct {
	tokens TokenAdmin
	logger *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(tokens TokenAdmin, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		tokens: tokens,
		logger: logger.With("component", "api.admin"),
	}
}

// GetTokenStatus returns the state of the cached upstream token. The token itself is never returned.
// GET /admin/token/status
func (h *AdminHandler) GetTokenStatus(c *gin.Context) {
	c.JSON(http.StatusOK, tokenStatusResponse(h.tokens.Status()))
}

// RefreshToken discards the cached token and performs a new credential exchange
// POST /admin/token/refresh
func (h *AdminHandler) RefreshToken(c *gin.Context) {
	status, err := h.tokens.ForceRefresh(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, "Failed to refresh token", err)
		return
	}

	h.logger.Info("Upstream token refreshed by operator", "expires_at", status.ExpiresAt)
	c.JSON(http.StatusOK, tokenStatusResponse(status))
}

func tokenStatusResponse(status shipox.TokenStatus) gin.H {
	response := gin.H{
		"cached": status.State != shipox.TokenStateNotCached,
		"status": status.State,
	}
	if status.State != shipox.TokenStateNotCached {
		response["expires_at"] = status.ExpiresAt
		response["expires_in_seconds"] = int(status.ExpiresIn.Seconds())
	}
	return response
}
