package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Provider defaults, matching the production deployment of the calculator
const (
	DefaultAuthURL        = "https://prodapi.shipox.com/api/v1/authenticate"
	DefaultGatewayURL     = "https://api-gateway.shipox.com"
	DefaultMarketplaceID  = "307345429"
	DefaultCustomerID     = "2484820352"
	DefaultCountryID      = "234"
	DefaultTokenTTL       = 6 * time.Hour
	DefaultRefreshMargin  = 5 * time.Minute
	DefaultRequestTimeout = 30 * time.Second
)

// Config represents the application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Security SecurityConfig `json:"security"`
	Logging  LoggingConfig  `json:"logging"`
	Shipox   ShipoxConfig   `json:"shipox"`
	Cache    CacheConfig    `json:"cache"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	CORSOrigins []string `json:"cors_origins"`
}

// SecurityConfig contains security settings
type SecurityConfig struct {
	APIKey string `json:"api_key"` // Protects admin endpoints; admin routes are disabled when empty
}

// LoggingConfig contains logger settings
type LoggingConfig struct {
	Format string `json:"format"` // "json" or "text"
	Level  string `json:"level"`
}

// ShipoxConfig contains upstream provider settings
type ShipoxConfig struct {
	AuthURL         string   `json:"auth_url"`
	GatewayURL      string   `json:"gateway_url"`
	Username        string   `json:"username"`
	Password        string   `json:"password"`
	MarketplaceID   string   `json:"marketplace_id"`
	CustomerID      string   `json:"customer_id"`
	CountryID       string   `json:"country_id"`
	TokenTTL        Duration `json:"token_ttl"`
	RefreshMargin   Duration `json:"refresh_margin"`
	RequestTimeout  Duration `json:"request_timeout"`
	PrewarmInterval Duration `json:"prewarm_interval"` // 0 disables background token pre-warm
}

// CacheConfig contains reference data cache settings
type CacheConfig struct {
	ReferenceTTL Duration `json:"reference_ttl"` // 0 disables caching of cities/warehouses/lockers
}

// Duration is a time.Duration read from a Go duration string ("5m", "6h")
type Duration time.Duration

// UnmarshalJSON accepts either a duration string or a number of seconds
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var seconds float64
	if err := json.Unmarshal(b, &seconds); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(time.Duration(seconds * float64(time.Second)))
	return nil
}

// MarshalJSON writes the duration as a Go duration string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// applyDefaults fills in values left empty
func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if len(c.Server.CORSOrigins) == 0 {
		c.Server.CORSOrigins = []string{"*"}
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Shipox.AuthURL == "" {
		c.Shipox.AuthURL = DefaultAuthURL
	}
	if c.Shipox.GatewayURL == "" {
		c.Shipox.GatewayURL = DefaultGatewayURL
	}
	if c.Shipox.MarketplaceID == "" {
		c.Shipox.MarketplaceID = DefaultMarketplaceID
	}
	if c.Shipox.CustomerID == "" {
		c.Shipox.CustomerID = DefaultCustomerID
	}
	if c.Shipox.CountryID == "" {
		c.Shipox.CountryID = DefaultCountryID
	}
	if c.Shipox.TokenTTL == 0 {
		c.Shipox.TokenTTL = Duration(DefaultTokenTTL)
	}
	if c.Shipox.RefreshMargin == 0 {
		c.Shipox.RefreshMargin = Duration(DefaultRefreshMargin)
	}
	if c.Shipox.RequestTimeout == 0 {
		c.Shipox.RequestTimeout = Duration(DefaultRequestTimeout)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: invalid server port", ErrInvalidConfig)
	}

	if c.Shipox.Username == "" || c.Shipox.Password == "" {
		return fmt.Errorf("%w: Shipox credentials are required", ErrInvalidConfig)
	}

	if c.Shipox.TokenTTL <= c.Shipox.RefreshMargin {
		return fmt.Errorf("%w: token TTL must be longer than the refresh margin", ErrInvalidConfig)
	}

	if c.Shipox.RefreshMargin < 0 || c.Shipox.RequestTimeout < 0 || c.Shipox.PrewarmInterval < 0 || c.Cache.ReferenceTTL < 0 {
		return fmt.Errorf("%w: durations must not be negative", ErrInvalidConfig)
	}

	switch c.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("%w: unknown log format %q", ErrInvalidConfig, c.Logging.Format)
	}

	return nil
}

// Load loads configuration from a JSON file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigFileNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadFromEnv loads configuration from environment variables.
// A .env file (TARIFFGATE_ENV_FILE, default ".env") is read first when present;
// variables already set in the environment take precedence over it.
func LoadFromEnv() (*Config, error) {
	envFile := getEnv("TARIFFGATE_ENV_FILE", ".env")
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load env file %s: %w", envFile, err)
	}

	config := &Config{
		Server: ServerConfig{
			Host:        getEnv("TARIFFGATE_HOST", "0.0.0.0"),
			Port:        getEnvInt("TARIFFGATE_PORT", 8080),
			CORSOrigins: getEnvList("TARIFFGATE_CORS_ORIGINS"),
		},
		Security: SecurityConfig{
			APIKey: getEnv("TARIFFGATE_API_KEY", ""),
		},
		Logging: LoggingConfig{
			Format: getEnv("TARIFFGATE_LOG_FORMAT", "json"),
			Level:  getEnv("TARIFFGATE_LOG_LEVEL", "info"),
		},
		Shipox: ShipoxConfig{
			AuthURL:         getEnv("TARIFFGATE_SHIPOX_AUTH_URL", DefaultAuthURL),
			GatewayURL:      getEnv("TARIFFGATE_SHIPOX_GATEWAY_URL", DefaultGatewayURL),
			Username:        getEnv("TARIFFGATE_SHIPOX_USERNAME", ""),
			Password:        getEnv("TARIFFGATE_SHIPOX_PASSWORD", ""),
			MarketplaceID:   getEnv("TARIFFGATE_SHIPOX_MARKETPLACE_ID", DefaultMarketplaceID),
			CustomerID:      getEnv("TARIFFGATE_SHIPOX_CUSTOMER_ID", DefaultCustomerID),
			CountryID:       getEnv("TARIFFGATE_SHIPOX_COUNTRY_ID", DefaultCountryID),
			TokenTTL:        getEnvDuration("TARIFFGATE_SHIPOX_TOKEN_TTL", DefaultTokenTTL),
			RefreshMargin:   getEnvDuration("TARIFFGATE_SHIPOX_REFRESH_MARGIN", DefaultRefreshMargin),
			RequestTimeout:  getEnvDuration("TARIFFGATE_SHIPOX_REQUEST_TIMEOUT", DefaultRequestTimeout),
			PrewarmInterval: getEnvDuration("TARIFFGATE_SHIPOX_PREWARM_INTERVAL", 0),
		},
		Cache: CacheConfig{
			ReferenceTTL: getEnvDuration("TARIFFGATE_CACHE_REFERENCE_TTL", 0),
		},
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var intVal int
		fmt.Sscanf(value, "%d", &intVal)
		return intVal
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return Duration(d)
		}
		// Unparsable values become negative so Validate rejects them
		return Duration(-1)
	}
	return Duration(defaultValue)
}

func getEnvList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
