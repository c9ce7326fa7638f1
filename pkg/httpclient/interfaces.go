package httpclient

import (
	"context"
	"net/http"
	"time"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
}

// RequestConfig carries transport options for a single call. It is passed
// through to the transport untouched.
type RequestConfig struct {
	Method  string
	Headers map[string]string
	Query   map[string]string
	Body    any
	Timeout time.Duration

	// ValidateStatus reports whether a status code resolves the call.
	// Nil accepts 2xx only.
	ValidateStatus func(status int) bool
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Do(ctx context.Context, url string, cfg RequestConfig) (Response, error)
}

// DefaultValidateStatus accepts 2xx responses.
func DefaultValidateStatus(status int) bool {
	return status >= 200 && status < 300
}
