// Package catalog caches the gateway's model catalog and selects a
// cost-appropriate model under pricing and context-length constraints.
package catalog

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jetaide/backend/internal/adapter/llm"
)

// Catalog caches the gateway's model list. The cache has no automatic
// expiry; callers pass refresh=true to force a re-fetch. Concurrent
// refreshes are serialized and last-fetch-wins.
type Catalog struct {
	client llm.GatewayClient

	mu         sync.Mutex
	models     []llm.Model
	generation uint64
	fetchedAt  time.Time
}

// New creates a catalog backed by the given gateway client.
func New(client llm.GatewayClient) *Catalog {
	return &Catalog{client: client}
}

// Models returns the cached model list, fetching it when the cache is
// empty or refresh is requested. A fetch failure is a hard error: model
// selection cannot proceed without pricing data.
func (c *Catalog) Models(ctx context.Context, refresh bool) ([]llm.Model, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.models) > 0 && !refresh {
		return c.models, nil
	}

	models, err := c.client.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch model catalog: %w", err)
	}

	c.models = models
	c.generation++
	c.fetchedAt = time.Now()
	return c.models, nil
}

// Generation returns how many times the catalog has been (re)fetched.
func (c *Catalog) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation
}

// FetchedAt returns the time of the last successful fetch.
func (c *Catalog) FetchedAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchedAt
}
