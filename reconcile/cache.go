package reconcile

import (
	"sync"

	"lorebook-binder/host"
)

// IdentityCache remembers the last preset observed per channel. The host's
// change event only carries the new selection, so the previous one has to
// be tracked here.
type IdentityCache struct {
	mu    sync.RWMutex
	names map[string]string
}

// NewIdentityCache returns a cache with every channel unknown.
func NewIdentityCache() *IdentityCache {
	return &IdentityCache{names: make(map[string]string)}
}

// Get returns the last observed preset for channel; ok is false while the
// channel is still unknown.
func (c *IdentityCache) Get(channel string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	name, ok := c.names[channel]
	return name, ok
}

// Set records preset as channel's last observed selection.
func (c *IdentityCache) Set(channel, preset string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[channel] = preset
}

// Seed records the current selection of every channel the host exposes.
func (c *IdentityCache) Seed(managers host.PresetManagers) {
	for _, ch := range managers.Channels() {
		pm, ok := managers.PresetManager(ch)
		if !ok {
			continue
		}
		c.Set(ch, pm.CurrentSelectionName())
	}
}

// Snapshot returns a copy of every channel's entry.
func (c *IdentityCache) Snapshot() map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]string, len(c.names))
	for k, v := range c.names {
		out[k] = v
	}
	return out
}
