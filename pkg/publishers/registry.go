package publishers

import (
	"context"
	"errors"
	"fmt"

	"github.com/recipeui/fetchbridge/internal/logger"
)

// Publisher delivers exchange events to one downstream sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt ExchangeEvent) error
}

// Builder constructs the publisher for a sink entry.
type Builder func(ctx context.Context, cfg SinkConfig, log logger.Logger) (Publisher, error)

// Registry maps sink types to builders.
type Registry map[string]Builder

// DefaultRegistry knows every built-in sink type.
func DefaultRegistry() Registry {
	return Registry{
		TypeHTTP:   newHTTPPublisher,
		TypeSQS:    newSQSPublisher,
		TypeSNS:    newSNSPublisher,
		TypePubSub: newPubSubPublisher,
	}
}

// BuildRoutes builds a route per sink entry. On failure the publishers built
// so far are closed.
func BuildRoutes(ctx context.Context, reg Registry, cfgs []SinkConfig, log logger.Logger) ([]Route, error) {
	log = logger.Ensure(log)
	routes := make([]Route, 0, len(cfgs))
	for _, cfg := range cfgs {
		route, err := reg.route(ctx, cfg, log)
		if err != nil {
			return nil, errors.Join(err, closeRoutes(routes))
		}
		routes = append(routes, route)
	}
	return routes, nil
}

func (r Registry) route(ctx context.Context, cfg SinkConfig, log logger.Logger) (Route, error) {
	build, ok := r[cfg.Type]
	if !ok {
		return Route{}, fmt.Errorf("sink %q: no builder for type %q", cfg.ID, cfg.Type)
	}
	m, err := cfg.Match.compile()
	if err != nil {
		return Route{}, fmt.Errorf("sink %q: %w", cfg.ID, err)
	}
	pub, err := build(ctx, cfg, log)
	if err != nil {
		return Route{}, fmt.Errorf("build %s sink %q: %w", cfg.Type, cfg.ID, err)
	}
	return Route{Publisher: pub, match: m}, nil
}
