package publishers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Route pairs a publisher with the filter deciding which events it receives.
// A Route built without a Match receives every event.
type Route struct {
	Publisher Publisher
	match     matcher
}

// NewRoute compiles m for p.
func NewRoute(p Publisher, m Match) (Route, error) {
	m.normalize()
	compiled, err := m.compile()
	if err != nil {
		return Route{}, err
	}
	return Route{Publisher: p, match: compiled}, nil
}

// Delivery summarizes one Publish across all routes.
type Delivery struct {
	Delivered int
	Skipped   int
	Failed    int
}

// Fanout publishes each event to every route whose filter accepts it.
type Fanout struct {
	routes []Route
}

// NewFanout drops routes without a publisher.
func NewFanout(routes []Route) *Fanout {
	kept := make([]Route, 0, len(routes))
	for _, r := range routes {
		if r.Publisher != nil {
			kept = append(kept, r)
		}
	}
	return &Fanout{routes: kept}
}

// Publish delivers evt to the matching routes concurrently and joins their errors.
func (f *Fanout) Publish(ctx context.Context, evt ExchangeEvent) (Delivery, error) {
	var d Delivery
	if f == nil {
		return d, nil
	}

	errs := make([]error, len(f.routes))
	var wg sync.WaitGroup
	for i, r := range f.routes {
		if !r.match.accepts(evt) {
			d.Skipped++
			continue
		}
		d.Delivered++
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.Publisher.Publish(ctx, evt); err != nil {
				errs[i] = fmt.Errorf("%s sink %q: %w", r.Publisher.Type(), r.Publisher.ID(), err)
			}
		}()
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			d.Delivered--
			d.Failed++
		}
	}
	return d, errors.Join(errs...)
}

// Size returns the number of routes.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.routes)
}

// Close releases publishers that hold connections.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeRoutes(f.routes)
}

func closeRoutes(routes []Route) error {
	var errs []error
	for _, r := range routes {
		if c, ok := r.Publisher.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close sink %q: %w", r.Publisher.ID(), err))
			}
		}
	}
	return errors.Join(errs...)
}
