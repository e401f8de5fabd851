// Package models holds the model catalog types and the client-side cache
// for the server's model listing.
package models

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Info describes one model offered by the server.
type Info struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Capabilities *Capabilities `json:"capabilities,omitempty"`
}

// Capabilities describes what a model supports and its token limits.
type Capabilities struct {
	Supports Supports `json:"supports"`
	Limits   Limits   `json:"limits"`
}

// Supports lists feature flags for a model.
type Supports struct {
	Vision          bool `json:"vision"`
	ReasoningEffort bool `json:"reasoningEffort"`
}

// Limits holds the model's token budgets. The wire uses snake_case here,
// unlike the rest of the protocol.
type Limits struct {
	MaxPromptTokens        *int `json:"max_prompt_tokens,omitempty"`
	MaxContextWindowTokens int  `json:"max_context_window_tokens"`
}

// FetchFunc retrieves the model listing from the server.
type FetchFunc func(ctx context.Context) ([]Info, error)

// Cache memoizes the server's model listing.
//
// The listing is stable for the lifetime of a connection, so the first
// successful fetch is reused until Clear. Concurrent first fetches are
// coalesced into a single call; a failed fetch caches nothing.
type Cache struct {
	mu     sync.RWMutex
	models []Info
	loaded bool

	group singleflight.Group
}

// Get returns the cached listing, fetching it on first use.
func (c *Cache) Get(ctx context.Context, fetch FetchFunc) ([]Info, error) {
	c.mu.RLock()

	if c.loaded {
		models := c.models
		c.mu.RUnlock()

		return models, nil
	}

	c.mu.RUnlock()

	result, err, _ := c.group.Do("models.list", func() (any, error) {
		// Another flight may have filled the cache while we queued.
		c.mu.RLock()

		if c.loaded {
			models := c.models
			c.mu.RUnlock()

			return models, nil
		}

		c.mu.RUnlock()

		models, err := fetch(ctx)
		if err != nil {
			return nil, err
		}

		c.mu.Lock()
		c.models = models
		c.loaded = true
		c.mu.Unlock()

		return models, nil
	})
	if err != nil {
		return nil, err
	}

	models, _ := result.([]Info)

	return models, nil
}

// Clear drops the cached listing. The next Get fetches again.
func (c *Cache) Clear() {
	c.mu.Lock()
	c.models = nil
	c.loaded = false
	c.mu.Unlock()
}
