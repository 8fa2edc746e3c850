package client

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/pulseboard/realtime-backend/internal/core/domain"
)

// Refetcher reconciles a list-shaped surface by refetching it whenever any of
// a set of events signals staleness. Refetches are trailing-edge debounced so
// a burst caused by one action costs one round trip, and a reconnect gap also
// triggers a refetch.
type Refetcher struct {
	debouncer *Debouncer
	removers  []func()
}

// NewRefetcher subscribes refetch to the given event names on the manager.
// Payload contents only matter for scoping: a non-nil filter decides per
// payload whether the event concerns this surface, so a project view is not
// refetched by personal-scope events and vice versa. Events that pass are
// pure invalidation signals; the refetch returns authoritative state. A
// reconnect always triggers regardless of the filter, because anything may
// have been missed during the gap.
func NewRefetcher(m *Manager, debounce time.Duration, refetch func(), filter func(domain.Payload) bool, names ...domain.EventName) *Refetcher {
	r := &Refetcher{
		debouncer: NewDebouncer(debounce, refetch),
	}

	for _, name := range names {
		r.removers = append(r.removers, m.Subscribe(name, func(p domain.Payload) {
			if filter != nil && !filter(p) {
				return
			}
			r.debouncer.Trigger()
		}))
	}
	r.removers = append(r.removers, m.OnReconnect(func() {
		r.debouncer.Trigger()
	}))

	return r
}

// InProject keeps only events whose payload targets the given project.
func InProject(projectID uuid.UUID) func(domain.Payload) bool {
	return func(p domain.Payload) bool {
		id, ok := domain.ProjectOf(p)
		return ok && id != nil && *id == projectID
	}
}

// PersonalOnly keeps only events without a project, the personal scope.
func PersonalOnly(p domain.Payload) bool {
	id, ok := domain.ProjectOf(p)
	return ok && id == nil
}

// Stop unsubscribes everything and cancels any pending refetch.
func (r *Refetcher) Stop() {
	for _, remove := range r.removers {
		remove()
	}
	r.removers = nil
	r.debouncer.Stop()
}

// Counter is a targeted patch for hot scalar surfaces such as an unread
// badge. Instead of refetching, it applies a delta per event; a reconnect
// falls back to resync because deltas may have been missed.
type Counter struct {
	mu       sync.Mutex
	value    int64
	onChange func(int64)
	removers []func()
}

// NewCounter subscribes a delta function to an event name. delta returns the
// adjustment for a payload, typically +1; returning 0 is a no-op. resync, if
// non-nil, is called after reconnects to restore the true value.
func NewCounter(m *Manager, name domain.EventName, delta func(domain.Payload) int64, resync func(set func(int64)), onChange func(int64)) *Counter {
	c := &Counter{onChange: onChange}

	c.removers = append(c.removers, m.Subscribe(name, func(p domain.Payload) {
		if d := delta(p); d != 0 {
			c.add(d)
		}
	}))
	if resync != nil {
		c.removers = append(c.removers, m.OnReconnect(func() {
			resync(c.Set)
		}))
	}

	return c
}

func (c *Counter) add(d int64) {
	c.mu.Lock()
	c.value += d
	v := c.value
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(v)
	}
}

// Set replaces the counter value, typically from a resync fetch.
func (c *Counter) Set(v int64) {
	c.mu.Lock()
	c.value = v
	c.mu.Unlock()
	if c.onChange != nil {
		c.onChange(v)
	}
}

// Value returns the current count.
func (c *Counter) Value() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value
}

// Stop unsubscribes the counter.
func (c *Counter) Stop() {
	for _, remove := range c.removers {
		remove()
	}
	c.removers = nil
}
