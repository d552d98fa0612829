package publishers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/recipeui/fetchbridge/internal/logger"
	"github.com/recipeui/fetchbridge/pkg/httpclient"
)

// InvocationHeader carries the invocation id on webhook deliveries so
// receivers can deduplicate retries.
const InvocationHeader = "X-Invocation-Id"

const webhookErrorSnippet = 256

// httpPublisher posts events as JSON to a webhook.
type httpPublisher struct {
	id     string
	method string
	url    string
	client *resty.Client
	log    logger.Logger
}

func newHTTPPublisher(_ context.Context, cfg SinkConfig, log logger.Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("http block is missing")
	}

	timeout := time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second
	client := httpclient.NewRestyHTTPClient(timeout).
		SetHeaders(cfg.HTTP.Headers).
		SetHeader("Content-Type", "application/json")

	return &httpPublisher{
		id:     cfg.ID,
		method: cfg.HTTP.Method,
		url:    cfg.HTTP.URL,
		client: client,
		log:    logger.Ensure(log),
	}, nil
}

func (h *httpPublisher) ID() string   { return h.id }
func (h *httpPublisher) Type() string { return TypeHTTP }

func (h *httpPublisher) Publish(ctx context.Context, evt ExchangeEvent) error {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader(InvocationHeader, evt.InvocationID).
		SetBody(evt).
		Execute(h.method, h.url)
	if err != nil {
		return fmt.Errorf("webhook request: %w", err)
	}
	if resp.IsError() {
		body := strings.TrimSpace(string(resp.Body()))
		if len(body) > webhookErrorSnippet {
			body = body[:webhookErrorSnippet]
		}
		return fmt.Errorf("webhook answered %d: %s", resp.StatusCode(), body)
	}

	h.log.DebugObj("webhook delivered exchange", "sink_delivery", map[string]any{
		"sink_id":       h.id,
		"invocation_id": evt.InvocationID,
		"status":        resp.StatusCode(),
	})
	return nil
}
