package api

import (
	"log/slog"

	"tariffgate/internal/api/handlers"
	"tariffgate/internal/api/middleware"
	"tariffgate/internal/shipox"

	"github.com/gin-gonic/gin"
)

// RouterConfig holds dependencies for the API router
type RouterConfig struct {
	Client      shipox.ResourceClient
	Tokens      handlers.TokenAdmin // Optional: admin routes need both Tokens and APIKey
	APIKey      string
	CORSOrigins []string
	Logger      *slog.Logger
}

// NewRouter creates and configures the Gin router
func NewRouter(config RouterConfig) *gin.Engine {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(config.Logger))
	router.Use(middleware.Logging(config.Logger))
	router.Use(middleware.NoiseFilter(config.Logger))
	router.Use(middleware.CORS(config.CORSOrigins))
	router.Use(middleware.ContentType())

	// Health check (no auth)
	healthHandler := handlers.NewHealthHandler()
	router.GET("/health", healthHandler.GetHealth)

	// Reference data for the calculator form
	resourcesHandler := handlers.NewResourcesHandler(config.Client, config.Logger)
	router.GET("/cities", resourcesHandler.ListCities)
	router.GET("/warehouses", resourcesHandler.ListWarehouses)
	router.GET("/lockers", resourcesHandler.ListLockers)

	// Tariff calculation
	tariffsHandler := handlers.NewTariffsHandler(config.Client, config.Logger)
	tariffs := router.Group("/tariffs")
	{
		tariffs.POST("/calculate", tariffsHandler.Calculate)
		tariffs.GET("/types", tariffsHandler.ListTypes)
	}

	// Admin endpoints (only register if a token admin and an API key are provided)
	if config.Tokens != nil && config.APIKey != "" {
		adminHandler := handlers.NewAdminHandler(config.Tokens, config.Logger)
		admin := router.Group("/admin")
		admin.Use(middleware.APIKey(config.APIKey))
		{
			admin.GET("/token/status", adminHandler.GetTokenStatus)
			admin.POST("/token/refresh", adminHandler.RefreshToken)
		}
	}

	return router
}
