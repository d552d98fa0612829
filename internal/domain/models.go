package domain

import (
	"errors"
	"time"
)

// Domain contains the request/response shapes exchanged with the front-end.

// ErrInvalidMethod is returned for any method outside the supported set.
var ErrInvalidMethod = errors.New("invalid method")

// Method is an HTTP method the proxy is willing to send.
type Method string

const (
	MethodGet    Method = "GET"
	MethodPost   Method = "POST"
	MethodPut    Method = "PUT"
	MethodPatch  Method = "PATCH"
	MethodDelete Method = "DELETE"
)

// ParseMethod maps a caller-supplied method onto the supported set.
// Matching is exact: "get" is rejected just like "TRACE".
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete:
		return m, nil
	default:
		return "", ErrInvalidMethod
	}
}

func (m Method) String() string { return string(m) }

// RequestPayload describes the outbound request as built by the front-end.
type RequestPayload struct {
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    *string           `json:"body"`
}

// HasBody reports whether the caller supplied a body (an empty string counts).
func (p RequestPayload) HasBody() bool { return p.Body != nil }

// ResponseRecord is the summary of a completed exchange handed back to the caller.
type ResponseRecord struct {
	Output      string            `json:"output"`
	Status      uint16            `json:"status"`
	ContentType string            `json:"contentType"`
	Headers     map[string]string `json:"headers"`
}

// Invocation is the argument object of the fetch_wrapper command.
type Invocation struct {
	URL     string         `json:"url"`
	Payload RequestPayload `json:"payload"`
}

// Exchange is the journal/audit view of one invocation.
type Exchange struct {
	ID          string    `json:"id"`
	URL         string    `json:"url"`
	Method      string    `json:"method"`
	Status      uint16    `json:"status,omitempty"`
	ContentType string    `json:"content_type,omitempty"`
	Title       string    `json:"title,omitempty"`
	OutputBytes int       `json:"output_bytes"`
	DurationMs  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	StartedAt   time.Time `json:"started_at"`
}

// Failed reports whether the invocation ended without a response.
func (e Exchange) Failed() bool { return e.Error != "" }
