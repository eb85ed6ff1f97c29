package logging

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"tariffgate/internal/shipox"
	"tariffgate/internal/tariff"
)

// ResourceClientLogger wraps a shipox.ResourceClient and logs all method calls
type ResourceClientLogger struct {
	client shipox.ResourceClient
	logger *slog.Logger
}

// NewResourceClientLogger creates a new logging decorator for the upstream resource client
func NewResourceClientLogger(client shipox.ResourceClient, logger *slog.Logger) shipox.ResourceClient {
	return &ResourceClientLogger{
		client: client,
		logger: logger.With("interface", "ResourceClient"),
	}
}

func (l *ResourceClientLogger) Cities(ctx context.Context) (*shipox.Collection, error) {
	return l.collection(ctx, "Cities", l.client.Cities)
}

func (l *ResourceClientLogger) Warehouses(ctx context.Context) (*shipox.Collection, error) {
	return l.collection(ctx, "Warehouses", l.client.Warehouses)
}

func (l *ResourceClientLogger) Lockers(ctx context.Context) (*shipox.Collection, error) {
	return l.collection(ctx, "Lockers", l.client.Lockers)
}

func (l *ResourceClientLogger) collection(ctx context.Context, method string, call func(context.Context) (*shipox.Collection, error)) (*shipox.Collection, error) {
	start := time.Now()
	l.logger.Debug(method + " called")

	result, err := call(ctx)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error(method+" failed",
			"duration", duration,
			"error", err)
		return nil, err
	}

	l.logger.Info(method+" completed",
		"count", len(result.Data),
		"duration", duration)

	return result, nil
}

func (l *ResourceClientLogger) Prices(ctx context.Context, query tariff.Query) (json.RawMessage, error) {
	start := time.Now()
	l.logger.Info("Prices called",
		"courier_type", query.CourierType,
		"from_latitude", query.FromLatitude,
		"from_longitude", query.FromLongitude,
		"to_latitude", query.ToLatitude,
		"to_longitude", query.ToLongitude,
		"weight", query.Weight)

	body, err := l.client.Prices(ctx, query)
	duration := time.Since(start)

	if err != nil {
		l.logger.Error("Prices failed",
			"courier_type", query.CourierType,
			"duration", duration,
			"error", err)
		return nil, err
	}

	l.logger.Info("Prices completed",
		"courier_type", query.CourierType,
		"bytes", len(body),
		"duration", duration)

	return body, nil
}
