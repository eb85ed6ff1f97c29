package shipox

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"tariffgate/internal/tariff"
)

// Collection is the stable list shape returned to the frontend.
// Pagination fields are copied verbatim from the upstream and omitted when absent.
type Collection struct {
	Data             []json.RawMessage `json:"data"`
	TotalElements    json.RawMessage   `json:"totalElements,omitempty"`
	TotalPages       json.RawMessage   `json:"totalPages,omitempty"`
	Last             json.RawMessage   `json:"last,omitempty"`
	First            json.RawMessage   `json:"first,omitempty"`
	NumberOfElements json.RawMessage   `json:"numberOfElements,omitempty"`
	Size             json.RawMessage   `json:"size,omitempty"`
	Number           json.RawMessage   `json:"number,omitempty"`
}

// ResourceClient is the set of upstream lookups the HTTP layer depends on
type ResourceClient interface {
	Cities(ctx context.Context) (*Collection, error)
	Warehouses(ctx context.Context) (*Collection, error)
	Lockers(ctx context.Context) (*Collection, error)
	Prices(ctx context.Context, query tariff.Query) (json.RawMessage, error)
}

// ClientConfig contains the gateway location and fixed business parameters
type ClientConfig struct {
	GatewayURL string
	CountryID  string
	CustomerID string
}

// Client calls the provider's resource endpoints through an Executor
type Client struct {
	config   ClientConfig
	executor *Executor
	logger   *slog.Logger
}

// NewClient creates a new resource client
func NewClient(config ClientConfig, executor *Executor, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		config:   config,
		executor: executor,
		logger:   logger.With("component", "shipox.client"),
	}
}

// Cities lists active cities of the configured country
func (c *Client) Cities(ctx context.Context) (*Collection, error) {
	params := url.Values{}
	params.Set("size", "200")
	params.Set("country_id", c.config.CountryID)
	params.Set("is_uae", "false")
	params.Set("page", "0")
	params.Set("status", "active")
	return c.collection(ctx, "Cities", "/api/v2/cities", params)
}

// Warehouses lists active post offices
func (c *Client) Warehouses(ctx context.Context) (*Collection, error) {
	return c.collection(ctx, "Warehouses", "/api/v1/admin/warehouses", warehouseParams("100", "POST_OFFICE"))
}

// Lockers lists active parcel lockers
func (c *Client) Lockers(ctx context.Context) (*Collection, error) {
	return c.collection(ctx, "Lockers", "/api/v1/admin/warehouses", warehouseParams("1000", "LOCKER"))
}

func warehouseParams(size, kind string) url.Values {
	params := url.Values{}
	params.Set("size", size)
	params.Set("multi_marketplace", "false")
	params.Set("page", "0")
	params.Set("status", "active")
	params.Set("type", kind)
	params.Set("show_all", "true")
	return params
}

// Prices asks the provider for tariff quotes and returns its payload untouched
func (c *Client) Prices(ctx context.Context, query tariff.Query) (json.RawMessage, error) {
	params := url.Values{}
	params.Set("size", "50")
	params.Set("page", "0")
	params.Set("dimensions.width", "32")
	params.Set("dimensions.length", "45")
	params.Set("dimensions.height", "1")
	params.Set("dimensions.unit", "METRIC")
	params.Set("from_country_id", c.config.CountryID)
	params.Set("to_country_id", c.config.CountryID)
	params.Set("customerId", c.config.CustomerID)
	params.Set("logistic_type", "REGULAR")
	params.Set("courier_type", string(query.CourierType))
	params.Set("from_latitude", query.FromLatitude)
	params.Set("from_longitude", query.FromLongitude)
	params.Set("to_latitude", query.ToLatitude)
	params.Set("to_longitude", query.ToLongitude)
	params.Set("dimensions.weight", query.Weight)

	body, err := c.get(ctx, "Tariff calculation", "/api/v2/admin/packages/prices", params)
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("failed to parse tariff calculation response: invalid JSON")
	}

	c.logger.Debug("Tariff calculation response", "body", string(body))
	return json.RawMessage(body), nil
}

// collection fetches a list endpoint and normalizes its nesting
func (c *Client) collection(ctx context.Context, resource, path string, params url.Values) (*Collection, error) {
	body, err := c.get(ctx, resource, path, params)
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, fmt.Errorf("failed to parse %s response: invalid JSON", strings.ToLower(resource))
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal(body, &top); err != nil {
		// Not an object: nothing to extract, no pagination to carry over
		top = nil
	}

	c.logger.Debug(resource+" API response structure", "keys", sortedKeys(top))

	items, matched := extractItems(body)

	c.logger.Info(fmt.Sprintf("Found %d %s", len(items), strings.ToLower(resource)), "path", matched)

	return &Collection{
		Data:             items,
		TotalElements:    top["totalElements"],
		TotalPages:       top["totalPages"],
		Last:             top["last"],
		First:            top["first"],
		NumberOfElements: top["numberOfElements"],
		Size:             top["size"],
		Number:           top["number"],
	}, nil
}

// get runs an authenticated GET and returns the body of a successful response
func (c *Client) get(ctx context.Context, resource, path string, params url.Values) ([]byte, error) {
	target := strings.TrimRight(c.config.GatewayURL, "/") + path + "?" + params.Encode()
	c.logger.Info("Fetching from upstream", "resource", resource, "url", target)

	resp, err := c.executor.Do(ctx, &Request{Method: http.MethodGet, URL: target})
	if err != nil {
		return nil, err
	}

	if !resp.OK() {
		c.logger.Error(resource+" API failed",
			"status", resp.StatusCode,
			"body", string(resp.Body),
		)
		return nil, &UpstreamError{
			Resource:   resource,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(resp.Body),
		}
	}

	return resp.Body, nil
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
