package httpclient

import (
	"context"
	"net/http"
)

// Request is a fully resolved outbound request.
// When Form is set, FormFields are sent as multipart/form-data and Body is ignored.
type Request struct {
	Method     string
	URL        string
	Headers    map[string]string
	Body       []byte
	Form       bool
	FormFields map[string]string
}

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
type Client interface {
	Do(ctx context.Context, req Request) (Response, error)
}

// Factory returns a client for a single invocation.
type Factory func() Client
