package report

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/vme-thermal/internal/thermal"
)

// Publisher delivers a completed report batch somewhere.
type Publisher interface {
	Publish(ctx context.Context, batch thermal.Batch) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, batch thermal.Batch) error

// Publish calls f.
func (f PublisherFunc) Publish(ctx context.Context, batch thermal.Batch) error {
	return f(ctx, batch)
}

// Fanout publishes each batch to every registered publisher concurrently.
//
// Thread Safety: safe for concurrent use.
type Fanout struct {
	mu      sync.RWMutex
	targets []target
}

type target struct {
	name string
	pub  Publisher
}

// NewFanout returns an empty Fanout.
func NewFanout() *Fanout {
	return &Fanout{}
}

// Add registers pub under name, which prefixes its errors.
func (f *Fanout) Add(name string, pub Publisher) {
	f.mu.Lock()
	f.targets = append(f.targets, target{name: name, pub: pub})
	f.mu.Unlock()
}

// Len returns the number of registered publishers.
func (f *Fanout) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.targets)
}

// Publish runs every publisher and waits for all of them. A failing
// publisher does not cancel the others; all failures are joined.
func (f *Fanout) Publish(ctx context.Context, batch thermal.Batch) error {
	f.mu.RLock()
	targets := append([]target(nil), f.targets...)
	f.mu.RUnlock()

	errs := make([]error, len(targets))
	var g errgroup.Group
	for i, t := range targets {
		g.Go(func() error {
			if err := t.pub.Publish(ctx, batch); err != nil {
				errs[i] = fmt.Errorf("%s: %w", t.name, err)
			}
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // goroutines record into errs and never fail the group

	return errors.Join(errs...)
}
