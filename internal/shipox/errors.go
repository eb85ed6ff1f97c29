package shipox

import (
	"errors"
	"fmt"
)

var (
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrTokenNotFound         = errors.New("no token received from auth API")
	ErrUpstreamRequestFailed = errors.New("upstream request failed")
	ErrTransport             = errors.New("upstream transport error")
)

// AuthenticationFailedError is returned when the auth endpoint rejects the credentials
type AuthenticationFailedError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *AuthenticationFailedError) Error() string {
	return fmt.Sprintf("auth failed: %s", e.Status)
}

func (e *AuthenticationFailedError) Unwrap() error {
	return ErrAuthenticationFailed
}

// UpstreamError is returned when a resource endpoint answers with a non-success status
type UpstreamError struct {
	Resource   string
	StatusCode int
	Status     string
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s API failed: %s", e.Resource, e.Status)
}

func (e *UpstreamError) Unwrap() error {
	return ErrUpstreamRequestFailed
}

// TransportError wraps network-level failures reaching the upstream
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() []error {
	return []error{ErrTransport, e.Err}
}
