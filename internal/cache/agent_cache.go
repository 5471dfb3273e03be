// Package cache provides a pull-through cache for lookups that sit on the
// hot path of inbound provider webhooks.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/passthekeys/outbound-core/internal/domain"
	"github.com/passthekeys/outbound-core/internal/webhook"
	"github.com/passthekeys/outbound-core/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultAgentCacheTTL bounds how stale an Agent lookup can be before the
// next webhook for that provider/external id pair pays for a fresh read.
// Agent config changes (prompt edits, widget toggles) are not latency
// sensitive enough to warrant invalidation on write.
const DefaultAgentCacheTTL = 30 * time.Second

type agentEntry struct {
	agent     *domain.Agent
	expiresAt time.Time
}

// AgentCache memoizes Store.GetAgentByExternalID, which Provider Webhook
// Ingress calls on every single inbound event to resolve the Agent that
// owns a call. A cache miss storm (e.g. a burst of events for a newly
// created agent) collapses to one database read via singleflight.
type AgentCache struct {
	loader webhook.Store
	ttl    time.Duration

	mu      sync.RWMutex
	entries map[string]agentEntry

	group singleflight.Group
}

// NewAgentCache wraps loader's agent lookup with an in-memory TTL cache.
func NewAgentCache(loader webhook.Store, ttl time.Duration) *AgentCache {
	return &AgentCache{
		loader:  loader,
		ttl:     ttl,
		entries: make(map[string]agentEntry),
	}
}

func cacheKey(provider domain.Provider, externalID string) string {
	return string(provider) + ":" + externalID
}

// GetAgentByExternalID returns the cached Agent if fresh, otherwise loads it
// from the wrapped store and caches the result. Errors, including
// not-found, are never cached: a transient lookup failure should not wedge
// the next webhook delivery for the same agent.
func (c *AgentCache) GetAgentByExternalID(ctx context.Context, p domain.Provider, externalID string) (*domain.Agent, error) {
	key := cacheKey(p, externalID)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && time.Now().Before(entry.expiresAt) {
		return entry.agent, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		agent, err := c.loader.GetAgentByExternalID(ctx, p, externalID)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = agentEntry{agent: agent, expiresAt: time.Now().Add(c.ttl)}
		c.mu.Unlock()
		return agent, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Base().Debug("agent cache lookup deduplicated", zap.String("key", key))
	}
	return v.(*domain.Agent), nil
}

// Invalidate evicts a single entry, for callers that know an agent just
// changed provider-relevant configuration.
func (c *AgentCache) Invalidate(p domain.Provider, externalID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, cacheKey(p, externalID))
}

// cachedWebhookStore decorates a webhook.Store, routing
// GetAgentByExternalID through an AgentCache and passing every other method
// straight through to the embedded store.
type cachedWebhookStore struct {
	webhook.Store
	cache *AgentCache
}

// WrapWebhookStore returns a webhook.Store whose agent lookups are cached.
func WrapWebhookStore(inner webhook.Store, ttl time.Duration) webhook.Store {
	return &cachedWebhookStore{Store: inner, cache: NewAgentCache(inner, ttl)}
}

func (c *cachedWebhookStore) GetAgentByExternalID(ctx context.Context, p domain.Provider, externalID string) (*domain.Agent, error) {
	return c.cache.GetAgentByExternalID(ctx, p, externalID)
}
