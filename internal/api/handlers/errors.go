package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"tariffgate/internal/api/middleware"
	"tariffgate/internal/shipox"

	"github.com/gin-gonic/gin"
)

// respondError logs err and writes the 500 envelope {"error": summary, "details": err}
func respondError(c *gin.Context, logger *slog.Logger, summary string, err error) {
	attrs := []any{
		"request_id", c.GetString(middleware.RequestIDKey),
		"error", err,
	}

	var upstreamErr *shipox.UpstreamError
	var authErr *shipox.AuthenticationFailedError
	switch {
	case errors.As(err, &upstreamErr):
		attrs = append(attrs, "upstream_status", upstreamErr.StatusCode, "upstream_body", upstreamErr.Body)
	case errors.As(err, &authErr):
		attrs = append(attrs, "upstream_status", authErr.StatusCode, "upstream_body", authErr.Body)
	}

	logger.Error(summary, attrs...)
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   summary,
		"details": err.Error(),
	})
}
