package publishers

import (
	"net/url"
	"strconv"
	"time"

	"github.com/recipeui/fetchbridge/internal/domain"
)

// ExchangeEvent is the audit record published for one invocation.
type ExchangeEvent struct {
	InvocationID string    `json:"invocation_id"`
	Method       string    `json:"method"`
	URL          string    `json:"url"`
	Host         string    `json:"host,omitempty"`
	Status       uint16    `json:"status,omitempty"`
	ContentType  string    `json:"content_type,omitempty"`
	Title        string    `json:"title,omitempty"`
	OutputBytes  int       `json:"output_bytes"`
	DurationMs   int64     `json:"duration_ms"`
	Error        string    `json:"error,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at"`
}

// NewExchangeEvent builds the event for a journal entry. Userinfo, query and
// fragment are dropped from the URL since they commonly carry credentials.
func NewExchangeEvent(ex domain.Exchange) ExchangeEvent {
	target, host := redactURL(ex.URL)
	return ExchangeEvent{
		InvocationID: ex.ID,
		Method:       ex.Method,
		URL:          target,
		Host:         host,
		Status:       ex.Status,
		ContentType:  ex.ContentType,
		Title:        ex.Title,
		OutputBytes:  ex.OutputBytes,
		DurationMs:   ex.DurationMs,
		Error:        ex.Error,
		StartedAt:    ex.StartedAt,
		CompletedAt:  ex.StartedAt.Add(time.Duration(ex.DurationMs) * time.Millisecond),
	}
}

func redactURL(raw string) (string, string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ""
	}
	u.User = nil
	u.RawQuery, u.ForceQuery = "", false
	u.Fragment, u.RawFragment = "", ""
	return u.String(), u.Hostname()
}

// Outcome is "ok" when a response came back and "error" otherwise.
func (e ExchangeEvent) Outcome() string {
	if e.Error != "" {
		return OutcomeError
	}
	return OutcomeOK
}

// StatusClass returns "2xx", "4xx" and so on, or "" for failed invocations.
func (e ExchangeEvent) StatusClass() string {
	if e.Status == 0 {
		return ""
	}
	return strconv.Itoa(int(e.Status)/100) + "xx"
}

// attributes are the routing attributes shared by queue and topic sinks.
// Empty values are left out.
func (e ExchangeEvent) attributes() map[string]string {
	attrs := map[string]string{
		"invocation_id": e.InvocationID,
		"method":        e.Method,
		"host":          e.Host,
		"outcome":       e.Outcome(),
		"status_class":  e.StatusClass(),
	}
	for k, v := range attrs {
		if v == "" {
			delete(attrs, k)
		}
	}
	return attrs
}
