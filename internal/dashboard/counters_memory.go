package dashboard

import (
	"context"
	"sync"
)

// MemoryCounters serves fixed counts for tests and local development.
// Individual counters can be failed to exercise the all-or-nothing join.
type MemoryCounters struct {
	mu     sync.RWMutex
	values map[string]int
	errs   map[string]error
}

func NewMemoryCounters() *MemoryCounters {
	return &MemoryCounters{
		values: make(map[string]int),
		errs:   make(map[string]error),
	}
}

// Set fixes a counter's value.
func (c *MemoryCounters) Set(name string, value int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.values[name] = value
}

// Fail makes a counter return the given error.
func (c *MemoryCounters) Fail(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.errs[name] = err
}

func (c *MemoryCounters) get(ctx context.Context, name string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if err := c.errs[name]; err != nil {
		return 0, err
	}
	return c.values[name], nil
}

func (c *MemoryCounters) CountUsers(ctx context.Context) (int, error) {
	return c.get(ctx, CounterUsers)
}

func (c *MemoryCounters) CountRoles(ctx context.Context) (int, error) {
	return c.get(ctx, CounterRoles)
}

func (c *MemoryCounters) CountClients(ctx context.Context) (int, error) {
	return c.get(ctx, CounterClients)
}

func (c *MemoryCounters) CountAPIResources(ctx context.Context) (int, error) {
	return c.get(ctx, CounterAPIResources)
}

func (c *MemoryCounters) CountAPIScopes(ctx context.Context) (int, error) {
	return c.get(ctx, CounterAPIScopes)
}

func (c *MemoryCounters) CountIdentityResources(ctx context.Context) (int, error) {
	return c.get(ctx, CounterIdentityResources)
}

func (c *MemoryCounters) CountIdentityProviders(ctx context.Context) (int, error) {
	return c.get(ctx, CounterIdentityProviders)
}
