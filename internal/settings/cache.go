package settings

import (
	"context"
	"sync"

	"github.com/clinicbook/clinic-booking/internal/apperr"
)

// Cache serves settings from memory after the first load and keeps the copy
// current through Update. Reads never hit the store again once loaded.
type Cache struct {
	store Store

	mu     sync.RWMutex
	loaded *Settings
}

func NewCache(store Store) *Cache {
	return &Cache{store: store}
}

// Load fetches settings from the store and replaces the cached copy.
func (c *Cache) Load(ctx context.Context) (*Settings, error) {
	s, err := c.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.loaded = s.Clone()
	c.mu.Unlock()
	return s, nil
}

// Get returns a copy of the cached settings, loading them on first use.
func (c *Cache) Get(ctx context.Context) (*Settings, error) {
	c.mu.RLock()
	s := c.loaded
	c.mu.RUnlock()
	if s != nil {
		return s.Clone(), nil
	}
	return c.Load(ctx)
}

// Update applies patch, persists the result and refreshes the cache.
// It returns the saved settings and the changed field names.
func (c *Cache) Update(ctx context.Context, patch Patch) (*Settings, []string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	current, err := c.store.Get(ctx)
	if err != nil {
		return nil, nil, err
	}
	changed, err := patch.Apply(current)
	if err != nil {
		return nil, nil, err
	}
	if err := c.store.Save(ctx, current); err != nil {
		return nil, nil, err
	}
	c.loaded = current.Clone()
	return current, changed, nil
}

// WorkingHours returns the configured hours. A missing map is a configuration error.
func (c *Cache) WorkingHours(ctx context.Context) (WorkingHours, error) {
	s, err := c.Get(ctx)
	if err != nil {
		return nil, err
	}
	if s.WorkingHours == nil {
		return nil, apperr.Configuration("working hours are not configured", nil)
	}
	return s.WorkingHours, nil
}
