package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tariffgate/config"
	"tariffgate/internal/api"
	"tariffgate/internal/cache"
	"tariffgate/internal/logging"
	"tariffgate/internal/scheduler"
	"tariffgate/internal/shipox"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-cleanhttp"
)

const (
	shutdownTimeout   = 10 * time.Second
	defaultConfigPath = "config.json"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	// Parse command-line flags
	configPath := flag.String("config", defaultConfigPath, "Path to configuration file")
	useEnv := flag.Bool("env", false, "Load configuration from environment variables")
	flag.Parse()

	// Load configuration
	var cfg *config.Config
	var err error

	if *useEnv {
		cfg, err = config.LoadFromEnv()
	} else {
		cfg, err = config.Load(*configPath)
	}

	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(logging.LoggerConfig{
		Format: cfg.Logging.Format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"auth_url", cfg.Shipox.AuthURL,
		"gateway_url", cfg.Shipox.GatewayURL,
		"token_ttl", cfg.Shipox.TokenTTL.Std(),
		"refresh_margin", cfg.Shipox.RefreshMargin.Std(),
		"reference_cache_ttl", cfg.Cache.ReferenceTTL.Std(),
	)

	// Outbound client shared by the auth exchange and every resource call
	httpClient := cleanhttp.DefaultPooledClient()
	httpClient.Timeout = cfg.Shipox.RequestTimeout.Std()

	// Upstream token lifecycle
	store := shipox.NewTokenStore()
	refresher := shipox.NewRefresher(shipox.RefresherConfig{
		AuthURL: cfg.Shipox.AuthURL,
		Credentials: shipox.Credentials{
			Username: cfg.Shipox.Username,
			Password: cfg.Shipox.Password,
		},
		TokenTTL:       cfg.Shipox.TokenTTL.Std(),
		RefreshMargin:  cfg.Shipox.RefreshMargin.Std(),
		RequestTimeout: cfg.Shipox.RequestTimeout.Std(),
	}, store, httpClient, shipox.RealClock{}, logger)

	executor := shipox.NewExecutor(shipox.ExecutorConfig{
		MarketplaceID: cfg.Shipox.MarketplaceID,
	}, refresher, httpClient, logger)

	var client shipox.ResourceClient = shipox.NewClient(shipox.ClientConfig{
		GatewayURL: cfg.Shipox.GatewayURL,
		CountryID:  cfg.Shipox.CountryID,
		CustomerID: cfg.Shipox.CustomerID,
	}, executor, logger)
	client = logging.NewResourceClientLogger(client, logger)
	client = cache.NewReferenceClient(client, cfg.Cache.ReferenceTTL.Std())

	// Optional token pre-warm
	var keeper *scheduler.TokenKeeper
	if interval := cfg.Shipox.PrewarmInterval.Std(); interval > 0 {
		keeper = scheduler.NewTokenKeeper(refresher, interval, logger)
		go keeper.Start()
	}

	// Initialize REST API
	gin.SetMode(gin.ReleaseMode)
	router := api.NewRouter(api.RouterConfig{
		Client:      client,
		Tokens:      refresher,
		APIKey:      cfg.Security.APIKey,
		CORSOrigins: cfg.Server.CORSOrigins,
		Logger:      logger,
	})
	if cfg.Security.APIKey == "" {
		logger.Warn("No API key configured, admin endpoints are disabled")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 4*cfg.Shipox.RequestTimeout.Std() + 15*time.Second, // two exchanges and two resource calls at worst
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", "addr", server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	// Wait for interrupt signal or server error
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		logger.Info("Starting graceful shutdown", "signal", sig.String())

		if keeper != nil {
			keeper.Stop()
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}

		logger.Info("Graceful shutdown complete")
	}

	return nil
}
