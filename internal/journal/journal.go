package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/recipeui/fetchbridge/internal/domain"
	"github.com/recipeui/fetchbridge/internal/logger"
)

// Package journal keeps a short-lived record of proxied exchanges.

// Store persists exchange summaries keyed by invocation id.
type Store interface {
	Close() error
	Put(ctx context.Context, ex domain.Exchange) error
	Get(ctx context.Context, id string) (domain.Exchange, bool, error)
}

// Options controls retention and backend addressing for concrete stores.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration

	BBoltPath string

	RedisAddr      string
	RedisDB        int
	RedisKeyPrefix string

	Log logger.Logger
}

const (
	TypeNone  = "none"
	TypeBBolt = "bbolt"
	TypeRedis = "redis"

	defaultTTL             = 24 * time.Hour
	defaultCleanupInterval = time.Hour
	defaultRedisKeyPrefix  = "fetchbridge:exchange:"
)

// NewStore creates the configured journal backend.
func NewStore(typ string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", TypeNone, "disabled":
		return noopStore{}, nil
	case TypeBBolt:
		if strings.TrimSpace(opts.BBoltPath) == "" {
			return nil, fmt.Errorf("bbolt journal requires a path")
		}
		return openBolt(opts.BBoltPath, opts)
	case TypeRedis:
		if strings.TrimSpace(opts.RedisAddr) == "" {
			return nil, fmt.Errorf("redis journal requires an address")
		}
		return openRedis(opts)
	default:
		return nil, fmt.Errorf("unsupported journal type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	if opts.RedisKeyPrefix == "" {
		opts.RedisKeyPrefix = defaultRedisKeyPrefix
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                               { return nil }
func (noopStore) Put(context.Context, domain.Exchange) error { return nil }
func (noopStore) Get(context.Context, string) (domain.Exchange, bool, error) {
	return domain.Exchange{}, false, nil
}
