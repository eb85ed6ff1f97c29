package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

var scannerPaths = []string{
	"/phpmyadmin",
	"/wp-admin",
	"/wp-login",
	"/.env",
	"/.git",
	"/backup",
	"/.aws",
	"/console",
	"/actuator",
	"/cgi-bin",
	"/.well-known",
	"/robots.txt",
	"/favicon.ico",
}

var scannerExtensions = []string{".php", ".asp", ".aspx", ".jsp", ".bak", ".sql", ".zip", ".tar", ".gz"}

// NoiseFilter keeps scanner probes and wrong-method requests out of the access log.
// It must be registered after Logging so it runs first on the way out.
func NoiseFilter(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.GetBool("authenticated") {
			return
		}

		status := c.Writer.Status()
		path := c.Request.URL.Path

		if status == http.StatusMethodNotAllowed || (status >= 400 && isScannerPath(path)) {
			c.Set(skipLoggingKey, true)
			logger.Debug("Scanner request filtered",
				"path", path,
				"method", c.Request.Method,
				"status", status,
				"client_ip", c.ClientIP())
		}
	}
}

// isScannerPath checks if a path is commonly used by scanners
func isScannerPath(path string) bool {
	lowercasePath := strings.ToLower(path)
	for _, scannerPath := range scannerPaths {
		if strings.HasPrefix(lowercasePath, scannerPath) {
			return true
		}
	}
	for _, ext := range scannerExtensions {
		if strings.HasSuffix(lowercasePath, ext) {
			return true
		}
	}
	return false
}
