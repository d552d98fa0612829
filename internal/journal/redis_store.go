package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/recipeui/fetchbridge/internal/domain"
)

// redisStore keeps exchanges as JSON strings and lets redis expire them.
type redisStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func openRedis(opts Options) (Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr: opts.RedisAddr,
		DB:   opts.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.RedisAddr, err)
	}

	return &redisStore{
		client: client,
		prefix: opts.RedisKeyPrefix,
		ttl:    opts.TTL,
	}, nil
}

func (r *redisStore) key(id string) string { return r.prefix + id }

func (r *redisStore) Close() error {
	if r == nil || r.client == nil {
		return nil
	}
	return r.client.Close()
}

func (r *redisStore) Put(ctx context.Context, ex domain.Exchange) error {
	if ex.ID == "" {
		return fmt.Errorf("exchange id is empty")
	}
	raw, err := json.Marshal(ex)
	if err != nil {
		return fmt.Errorf("marshal exchange: %w", err)
	}
	if err := r.client.Set(ctx, r.key(ex.ID), raw, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *redisStore) Get(ctx context.Context, id string) (domain.Exchange, bool, error) {
	raw, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Exchange{}, false, nil
	}
	if err != nil {
		return domain.Exchange{}, false, fmt.Errorf("redis get: %w", err)
	}

	var ex domain.Exchange
	if err := json.Unmarshal(raw, &ex); err != nil {
		return domain.Exchange{}, false, fmt.Errorf("decode exchange %q: %w", id, err)
	}
	return ex, true, nil
}
