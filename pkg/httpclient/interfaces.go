package httpclient

import (
	"context"
	"net/http"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
	// URL is the fully resolved request URL.
	URL() string
}

// Requester abstracts HTTP calls so callers can inject mocks or different transports.
type Requester interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Request describes a single call issued through a Client. Path may be
// relative to the client's base URL or absolute.
type Request struct {
	Method  string
	Path    string
	Headers map[string]string
	Query   map[string]string
	Body    any
}
