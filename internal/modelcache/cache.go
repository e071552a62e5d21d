// Package modelcache caches per-provider model discovery probes.
//
// A successful probe stays fresh for the configured TTL. A failed probe is
// never fresh: the error is displayed alongside the previously known model
// list (stale-but-visible), and the next Fetch re-probes regardless of age.
package modelcache

import (
	"context"
	"sync"
	"time"

	"github.com/classroute/routeconsole/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultTTL is how long a successful probe is considered fresh.
const DefaultTTL = 5 * time.Minute

// Prober issues the probe-models call. The backend client satisfies this.
type Prober interface {
	ProbeModels(ctx context.Context, provider string) ([]string, error)
}

// Entry is the cached discovery state for one provider.
type Entry struct {
	Models    []string  `json:"models"`
	Loading   bool      `json:"loading"`
	Error     string    `json:"error,omitempty"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Cache is a TTL-bounded, on-demand model discovery cache. Handlers call
// it concurrently, so the map is mutex-guarded.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*Entry
	prober  Prober
	ttl     time.Duration
	now     func() time.Time
}

// New creates a cache probing through p. A non-positive ttl uses DefaultTTL.
func New(p Prober, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]*Entry),
		prober:  p,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Fetch probes a provider's available models unless the cached entry is
// still fresh. Freshness requires an empty error and age below the TTL, so
// errored entries always re-probe. A probe already in flight is not
// duplicated.
func (c *Cache) Fetch(ctx context.Context, provider string) {
	c.mu.Lock()
	e := c.entries[provider]
	if e != nil {
		if e.Loading {
			c.mu.Unlock()
			return
		}
		if e.Error == "" && c.now().Sub(e.FetchedAt) < c.ttl {
			c.mu.Unlock()
			return
		}
	} else {
		e = &Entry{}
		c.entries[provider] = e
	}
	// Keep the previously known list visible while the probe runs.
	e.Loading = true
	c.mu.Unlock()

	list, err := c.prober.ProbeModels(ctx, provider)

	c.mu.Lock()
	defer c.mu.Unlock()
	e.Loading = false
	e.FetchedAt = c.now()
	if err != nil {
		e.Error = err.Error()
		log.Warn().Str("provider", provider).Err(err).Msg("Model probe failed")
		return
	}
	e.Models = list
	e.Error = ""
}

// AutoProbe issues one Fetch per distinct provider referenced by the
// draft's channels that is also present in the configured registry.
// Catalog-only providers have no credentials and are skipped upstream by
// not appearing in the registry.
func (c *Cache) AutoProbe(ctx context.Context, draft *models.RoutingConfig, registry []models.RegistryEntry) {
	if draft == nil {
		return
	}

	configured := make(map[string]bool, len(registry))
	for _, entry := range registry {
		configured[entry.Provider] = true
	}

	seen := make(map[string]bool)
	for _, ch := range draft.Channels {
		p := ch.Target.Provider
		if p == "" || seen[p] || !configured[p] {
			continue
		}
		seen[p] = true
		c.Fetch(ctx, p)
	}
}

// Snapshot returns a copy of the entry for a provider, or nil if the
// provider was never probed.
func (c *Cache) Snapshot(provider string) *Entry {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[provider]
	if !ok {
		return nil
	}
	out := *e
	out.Models = append([]string(nil), e.Models...)
	return &out
}
