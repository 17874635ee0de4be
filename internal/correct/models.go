package correct

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// DefaultModelPriority is the preferred Gemini model order.
var DefaultModelPriority = []string{"gemini-2.5-flash", "gemini-2.5-pro", "gemini-2.0-flash"}

// ModelCacheOptions configures a ModelCache.
type ModelCacheOptions struct {
	Priority []string
	Fixed    string // skips discovery when set
	TTL      time.Duration
	Now      func() time.Time
	Log      zerolog.Logger
}

// ModelCache remembers the model picked from the engine's listing for TTL.
type ModelCache struct {
	engine   Engine
	priority []string
	fixed    string
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger

	mu       sync.Mutex
	model    string
	cachedAt time.Time
}

func NewModelCache(engine Engine, opts ModelCacheOptions) *ModelCache {
	if len(opts.Priority) == 0 {
		opts.Priority = DefaultModelPriority
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &ModelCache{
		engine:   engine,
		priority: opts.Priority,
		fixed:    opts.Fixed,
		ttl:      opts.TTL,
		now:      opts.Now,
		log:      opts.Log,
	}
}

// Get returns the cached model, refreshing it when empty or expired. Listing
// failures fall back to the first priority entry without caching it.
func (c *ModelCache) Get(ctx context.Context) string {
	if c.fixed != "" {
		return c.fixed
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.model != "" && now.Sub(c.cachedAt) < c.ttl {
		return c.model
	}

	available, err := c.engine.ListModels(ctx)
	if err != nil {
		c.log.Warn().Err(err).Str("fallback", c.priority[0]).Msg("model listing failed")
		return c.priority[0]
	}
	selected := SelectModel(c.priority, available)
	if selected == "" {
		return c.priority[0]
	}

	if selected != c.model {
		c.log.Info().Str("model", selected).Msg("correction model selected")
	}
	c.model = selected
	c.cachedAt = now
	return selected
}

// Invalidate drops the cached model so the next Get lists again.
func (c *ModelCache) Invalidate() {
	c.mu.Lock()
	c.model = ""
	c.cachedAt = time.Time{}
	c.mu.Unlock()
}

// SelectModel returns the first available id matching the priority list,
// accepting "name", "models/name" and "-001" suffixed forms. With no match it
// returns the first available id, or "" when nothing is listed.
func SelectModel(priority, available []string) string {
	for _, want := range priority {
		for _, id := range available {
			switch id {
			case want, "models/" + want, want + "-001", "models/" + want + "-001":
				return id
			}
		}
	}
	if len(available) > 0 {
		return available[0]
	}
	return ""
}
