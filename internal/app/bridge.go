package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/recipeui/fetchbridge/internal/config"
	"github.com/recipeui/fetchbridge/internal/domain"
	"github.com/recipeui/fetchbridge/internal/journal"
	"github.com/recipeui/fetchbridge/internal/logger"
	"github.com/recipeui/fetchbridge/internal/proxy"
	"github.com/recipeui/fetchbridge/pkg/httpclient"
	"github.com/recipeui/fetchbridge/pkg/publishers"
)

const publishTimeout = 10 * time.Second

// Fetcher is the proxy surface the bridge drives.
type Fetcher interface {
	Fetch(ctx context.Context, url string, payload domain.RequestPayload) (domain.ResponseRecord, error)
}

// EventPublisher publishes exchange summaries downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.ExchangeEvent) (publishers.Delivery, error)
	Size() int
	Close() error
}

// Bridge is the fetch_wrapper command. It runs the proxy for each invocation,
// then records the exchange in the journal and hands it to the audit sinks.
type Bridge struct {
	proxy   Fetcher
	store   journal.Store
	fanout  EventPublisher
	log     logger.Logger
	newID   func() string
	pending sync.WaitGroup
}

// NewBridge wires a bridge from already-built collaborators.
// store and fanout may be nil.
func NewBridge(p Fetcher, store journal.Store, fanout EventPublisher, log logger.Logger) *Bridge {
	if store == nil {
		store, _ = journal.NewStore(journal.TypeNone, journal.Options{})
	}
	return &Bridge{
		proxy:  p,
		store:  store,
		fanout: fanout,
		log:    logger.Ensure(log),
		newID:  func() string { return uuid.NewString() },
	}
}

// Build assembles the bridge runtime from config.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (*Bridge, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	p := proxy.New(httpclient.NewRestyFactory(cfg.RequestTimeout), proxy.Options{
		UserAgent:     cfg.UserAgent,
		FormMode:      proxy.FormMode(cfg.FormMode),
		RedactHeaders: cfg.RedactHeaders,
		LogBodyBytes:  cfg.LogBodyBytes,
	}, log)
	log.InfoObj("proxy configured", "proxy_config", map[string]any{
		"user_agent":      cfg.UserAgent,
		"form_mode":       cfg.FormMode,
		"request_timeout": cfg.RequestTimeout.String(),
		"redact_headers":  cfg.RedactHeaders,
	})

	store, err := journal.NewStore(cfg.JournalType, journal.Options{
		TTL:             cfg.JournalTTL,
		CleanupInterval: cfg.JournalCleanupInterval,
		BBoltPath:       cfg.BBoltPath,
		RedisAddr:       cfg.RedisAddr,
		RedisDB:         cfg.RedisDB,
		RedisKeyPrefix:  cfg.RedisKeyPrefix,
		Log:             log,
	})
	if err != nil {
		return nil, fmt.Errorf("init journal: %w", err)
	}
	log.InfoObj("journal initialized", "journal_config", map[string]any{
		"type":                     cfg.JournalType,
		"ttl_seconds":              int(cfg.JournalTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.JournalCleanupInterval.Seconds()),
	})

	fanout, err := buildFanout(ctx, cfg.SinksFile, log)
	if err != nil {
		store.Close()
		return nil, err
	}

	return NewBridge(p, store, fanout, log), nil
}

// buildFanout loads audit sinks; an empty path disables them.
func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		return publishers.NewFanout(nil), nil
	}

	cfgs, err := publishers.LoadSinks(path)
	if err != nil {
		return nil, fmt.Errorf("load sinks: %w", err)
	}
	enabled := publishers.EnabledSinks(cfgs)

	routes, err := publishers.BuildRoutes(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}

	summaries := make([]map[string]any, 0, len(enabled))
	for _, cfg := range enabled {
		summaries = append(summaries, map[string]any{
			"id":      cfg.ID,
			"type":    cfg.Type,
			"outcome": cfg.Match.Outcome,
			"status":  cfg.Match.Status,
			"methods": cfg.Match.Methods,
		})
	}
	log.InfoObj("audit sinks loaded", "sinks_meta", map[string]any{
		"configured": len(cfgs),
		"enabled":    len(enabled),
		"sinks":      summaries,
	})
	return publishers.NewFanout(routes), nil
}

// FetchWrapper performs one invocation and returns the id it was journaled
// under, including when the invocation failed. Journal and sink failures are
// logged and never change the result returned to the caller.
func (b *Bridge) FetchWrapper(ctx context.Context, url string, payload domain.RequestPayload) (string, domain.ResponseRecord, error) {
	if b == nil || b.proxy == nil {
		return "", domain.ResponseRecord{}, fmt.Errorf("bridge is not initialized")
	}

	id := b.newID()
	start := time.Now()
	rec, err := b.proxy.Fetch(ctx, url, payload)
	elapsed := time.Since(start)

	inv := domain.Invocation{URL: url, Payload: payload}
	ex := journal.Summarize(id, inv, rec, err, start, elapsed)
	b.record(ctx, ex)
	b.publish(ex)

	if err != nil {
		return id, domain.ResponseRecord{}, err
	}
	return id, rec, nil
}

// Exchange looks up a journaled invocation by the id FetchWrapper returned.
func (b *Bridge) Exchange(ctx context.Context, id string) (domain.Exchange, bool, error) {
	return b.store.Get(ctx, id)
}

func (b *Bridge) record(ctx context.Context, ex domain.Exchange) {
	if err := b.store.Put(ctx, ex); err != nil {
		b.log.ErrorObj("journal write failed", "journal_error", map[string]any{
			"invocation_id": ex.ID,
			"error":         err.Error(),
		})
	}
}

// publish hands the event to the sinks without blocking the caller.
func (b *Bridge) publish(ex domain.Exchange) {
	if b.fanout == nil || b.fanout.Size() == 0 {
		return
	}

	evt := publishers.NewExchangeEvent(ex)
	b.pending.Add(1)
	go func() {
		defer b.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		d, err := b.fanout.Publish(ctx, evt)
		if err != nil {
			b.log.ErrorObj("exchange publish failed", "publish_error", map[string]any{
				"invocation_id": evt.InvocationID,
				"delivered":     d.Delivered,
				"skipped":       d.Skipped,
				"failed":        d.Failed,
				"error":         err.Error(),
			})
			return
		}
		b.log.DebugObj("exchange published", "publish_meta", map[string]any{
			"invocation_id": evt.InvocationID,
			"delivered":     d.Delivered,
			"skipped":       d.Skipped,
		})
	}()
}

// Close waits for in-flight publications, then releases sinks and the journal.
func (b *Bridge) Close() error {
	if b == nil {
		return nil
	}
	b.pending.Wait()

	var firstErr error
	if b.fanout != nil {
		if err := b.fanout.Close(); err != nil {
			b.log.ErrorObj("publisher close failed", "error", err)
			firstErr = err
		}
	}
	if err := b.store.Close(); err != nil {
		b.log.ErrorObj("journal close failed", "error", err)
		if firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
