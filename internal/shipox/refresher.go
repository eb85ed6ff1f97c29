package shipox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"
)

const refreshKey = "shipox-token"

// Credentials is the fixed username/password pair exchanged for a bearer token
type Credentials struct {
	Username string
	Password string
}

// RefresherConfig contains token exchange settings
type RefresherConfig struct {
	AuthURL        string
	Credentials    Credentials
	TokenTTL       time.Duration // Assumed lifetime; the auth response carries none
	RefreshMargin  time.Duration // Token is treated as expired this long before TokenTTL runs out
	RequestTimeout time.Duration // Bounds the shared exchange; zero means no bound
}

// Refresher exchanges the configured credentials for a bearer token and keeps
// it in a TokenStore. Concurrent callers share a single in-flight exchange.
type Refresher struct {
	config     RefresherConfig
	store      *TokenStore
	httpClient *http.Client
	clock      Clock
	logger     *slog.Logger
	group      singleflight.Group
}

// NewRefresher creates a new token refresher
func NewRefresher(config RefresherConfig, store *TokenStore, httpClient *http.Client, clock Clock, logger *slog.Logger) *Refresher {
	if clock == nil {
		clock = RealClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Refresher{
		config:     config,
		store:      store,
		httpClient: httpClient,
		clock:      clock,
		logger:     logger.With("component", "shipox.auth"),
	}
}

// Store returns the token store backing this refresher
func (r *Refresher) Store() *TokenStore {
	return r.store
}

// Valid reports whether the cached token is still inside its validity window
func (r *Refresher) Valid() bool {
	return r.store.Snapshot().ValidAt(r.clock.Now(), r.config.RefreshMargin)
}

// Token returns the cached token when it is still valid, otherwise it waits
// for a refresh (starting one if none is in flight)
func (r *Refresher) Token(ctx context.Context) (string, error) {
	if token := r.store.Snapshot(); token.ValidAt(r.clock.Now(), r.config.RefreshMargin) {
		return token.Value, nil
	}
	return r.Refresh(ctx)
}

// Refresh performs a credential exchange, or attaches to the one already in flight.
// Every attached caller observes the same token or the same error.
func (r *Refresher) Refresh(ctx context.Context) (string, error) {
	ch := r.group.DoChan(refreshKey, func() (interface{}, error) {
		// Double-check: a refresh that settled just before this one started may already have stored a token
		if token := r.store.Snapshot(); token.ValidAt(r.clock.Now(), r.config.RefreshMargin) {
			return token.Value, nil
		}

		// The exchange is shared; one caller going away must not cancel it for the rest
		exchangeCtx := context.WithoutCancel(ctx)
		if r.config.RequestTimeout > 0 {
			var cancel context.CancelFunc
			exchangeCtx, cancel = context.WithTimeout(exchangeCtx, r.config.RequestTimeout)
			defer cancel()
		}
		return r.exchange(exchangeCtx)
	})

	select {
	case res := <-ch:
		if res.Shared {
			r.logger.Debug("Joined in-flight token refresh")
		}
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for token refresh: %w", ctx.Err())
	}
}

// exchange calls the auth endpoint and stores the token on success
func (r *Refresher) exchange(ctx context.Context) (string, error) {
	r.logger.Info("Refreshing auth token", "url", r.config.AuthURL)

	reqBody := map[string]interface{}{
		"username":    r.config.Credentials.Username,
		"password":    r.config.Credentials.Password,
		"remember_me": false,
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal auth request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.AuthURL, bytes.NewReader(bodyBytes))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json;charset=utf-8")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		r.logger.Error("Token refresh failed", "error", err)
		return "", &TransportError{URL: r.config.AuthURL, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		r.logger.Error("Token refresh failed", "error", err)
		return "", &TransportError{URL: r.config.AuthURL, Err: fmt.Errorf("failed to read auth response: %w", err)}
	}

	r.logger.Info("Auth response", "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		r.logger.Error("Auth failed",
			"status", resp.StatusCode,
			"body", string(respBody),
		)
		return "", &AuthenticationFailedError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(respBody),
		}
	}

	if !json.Valid(respBody) {
		r.logger.Error("Auth response is not valid JSON", "body", string(respBody))
		return "", fmt.Errorf("%w: auth response is not valid JSON", ErrTokenNotFound)
	}

	token, ok := extractToken(respBody)
	if !ok {
		r.logger.Error("No token found in auth response", "body", string(respBody))
		return "", ErrTokenNotFound
	}

	expiresAt := r.clock.Now().Add(r.config.TokenTTL)
	r.store.Set(token, expiresAt)

	r.logger.Info("Token refreshed successfully", "expires_at", expiresAt)
	return token, nil
}

// TokenState classifies the cached token for operators
type TokenState string

const (
	TokenStateValid     TokenState = "valid"
	TokenStateExpiring  TokenState = "expiring" // inside the refresh margin or past expiry
	TokenStateNotCached TokenState = "not_cached"
)

// TokenStatus describes the cached token without exposing its value
type TokenStatus struct {
	State     TokenState
	ExpiresAt time.Time
	ExpiresIn time.Duration
}

// Status reports the state of the cached token
func (r *Refresher) Status() TokenStatus {
	token := r.store.Snapshot()
	if token.Value == "" {
		return TokenStatus{State: TokenStateNotCached}
	}

	now := r.clock.Now()
	status := TokenStatus{
		State:     TokenStateExpiring,
		ExpiresAt: token.ExpiresAt,
		ExpiresIn: max(token.ExpiresAt.Sub(now), 0),
	}
	if token.ValidAt(now, r.config.RefreshMargin) {
		status.State = TokenStateValid
	}
	return status
}

// ForceRefresh drops the cached token and performs a fresh exchange
func (r *Refresher) ForceRefresh(ctx context.Context) (TokenStatus, error) {
	r.store.Clear()
	r.logger.Info("Cached token cleared, forcing refresh")

	if _, err := r.Refresh(ctx); err != nil {
		return TokenStatus{}, err
	}
	return r.Status(), nil
}
