package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"tariffgate/internal/shipox"
	"tariffgate/internal/tariff"

	"github.com/gin-gonic/gin"
)

// TariffsHandler handles tariff calculation requests
type TariffsHandler struct {
	client shipox.ResourceClient
	logger *slog.Logger
}

// NewTariffsHandler creates a new tariffs handler
func NewTariffsHandler(client shipox.ResourceClient, logger *slog.Logger) *TariffsHandler {
	return &TariffsHandler{
		client: client,
		logger: logger.With("component", "api.tariffs"),
	}
}

// Calculate prices a parcel between two points and returns the upstream payload unchanged
// POST /tariffs/calculate
func (h *TariffsHandler) Calculate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	query, err := tariff.ParseCalculateRequest(body)
	if err != nil {
		var validationErr *tariff.ValidationError
		if !errors.As(err, &validationErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Invalid request body",
				"details": err.Error(),
			})
			return
		}

		h.logger.Warn("Tariff request rejected",
			"missing", validationErr.Missing,
			"invalid", validationErr.Invalid)

		if len(validationErr.Missing) > 0 {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":    "Missing required fields",
				"required": validationErr.Missing,
			})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid " + validationErr.Invalid,
			"allowed": tariff.AllTariffTypes(),
		})
		return
	}

	result, err := h.client.Prices(c.Request.Context(), query)
	if err != nil {
		respondError(c, h.logger, "Failed to calculate tariff", err)
		return
	}

	c.Data(http.StatusOK, "application/json; charset=utf-8", result)
}

// ListTypes returns the supported courier types
// GET /tariffs/types
func (h *TariffsHandler) ListTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"data": tariff.AllTariffTypes(),
	})
}
