package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"tariffgate/internal/shipox"

	"github.com/gin-gonic/gin"
)

// ResourcesHandler serves the reference lists used by the calculator form
type ResourcesHandler struct {
	client shipox.ResourceClient
	logger *slog.Logger
}

// NewResourcesHandler creates a new resources handler
func NewResourcesHandler(client shipox.ResourceClient, logger *slog.Logger) *ResourcesHandler {
	return &ResourcesHandler{
		client: client,
		logger: logger.With("component", "api.resources"),
	}
}

// ListCities returns active cities of the configured country
// GET /cities
func (h *ResourcesHandler) ListCities(c *gin.Context) {
	h.list(c, "Failed to fetch cities", h.client.Cities)
}

// ListWarehouses returns post-office pickup points
// GET /warehouses
func (h *ResourcesHandler) ListWarehouses(c *gin.Context) {
	h.list(c, "Failed to fetch warehouses", h.client.Warehouses)
}

// ListLockers returns locker (postamat) pickup points
// GET /lockers
func (h *ResourcesHandler) ListLockers(c *gin.Context) {
	h.list(c, "Failed to fetch lockers", h.client.Lockers)
}

func (h *ResourcesHandler) list(c *gin.Context, failure string, fetch func(context.Context) (*shipox.Collection, error)) {
	collection, err := fetch(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, failure, err)
		return
	}

	c.JSON(http.StatusOK, collection)
}
