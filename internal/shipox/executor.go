package shipox

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// sessionExpiredMarkers are the substrings the provider uses in 401/403 bodies
// when the bearer token is no longer accepted
var sessionExpiredMarkers = []string{
	"Unauthorized",
	"session has expired",
	"Full authentication is required",
}

// Request describes an outbound call. It is owned by the caller and never modified.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Response is a fully read upstream response
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports a 2xx status
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// TokenSource hands out bearer tokens
type TokenSource interface {
	Token(ctx context.Context) (string, error)
	Store() *TokenStore
}

// ExecutorConfig contains headers attached to every authenticated call
type ExecutorConfig struct {
	MarketplaceID string
}

// Executor sends requests with the current bearer token and re-authenticates
// once when the upstream rejects it
type Executor struct {
	config     ExecutorConfig
	tokens     TokenSource
	httpClient *http.Client
	logger     *slog.Logger
}

// NewExecutor creates a new authenticated request executor
func NewExecutor(config ExecutorConfig, tokens TokenSource, httpClient *http.Client, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		config:     config,
		tokens:     tokens,
		httpClient: httpClient,
		logger:     logger.With("component", "shipox.executor"),
	}
}

// Do dispatches req with authorization applied. On a 401/403 it drops the token
// it used, obtains a fresh one and dispatches req exactly once more; the second
// response is returned as is.
func (e *Executor) Do(ctx context.Context, req *Request) (*Response, error) {
	token, err := e.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := e.dispatch(ctx, req, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusUnauthorized && resp.StatusCode != http.StatusForbidden {
		return resp, nil
	}

	reason := classifyRejection(resp.Body)
	e.logger.Info("Received 401/403, refreshing token",
		"status", resp.StatusCode,
		"reason", reason,
		"body", string(resp.Body),
		"url", req.URL,
	)

	e.tokens.Store().InvalidateIf(token)

	newToken, err := e.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	return e.dispatch(ctx, req, newToken)
}

// dispatch performs a single HTTP round trip
func (e *Executor) dispatch(ctx context.Context, req *Request, token string) (*Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	for key, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	// Provider expects the header name verbatim, bypass canonicalization
	httpReq.Header["marketplace_id"] = []string{e.config.MarketplaceID}
	httpReq.Header.Set("Accept", "application/json")

	e.logger.Debug("Upstream request", "method", method, "url", req.URL)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{URL: req.URL, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: req.URL, Err: fmt.Errorf("failed to read response: %w", err)}
	}

	e.logger.Debug("Upstream response", "url", req.URL, "status", resp.StatusCode, "bytes", len(respBody))

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// classifyRejection names why a 401/403 body looks like an auth problem.
// Bodies that match nothing are still treated as token rejections.
func classifyRejection(body []byte) string {
	text := string(body)
	for _, marker := range sessionExpiredMarkers {
		if strings.Contains(text, marker) {
			return marker
		}
	}
	return "unrecognized"
}
