// Package syncer keeps the local draft reconciled with the authoritative
// routing config. It is the single ingestion point for server state: it
// fetches the overview and the provider registry, decides when a fresh
// authoritative copy may overwrite the draft, and polls in the background.
package syncer

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/classroute/routeconsole/internal/backend"
	"github.com/classroute/routeconsole/internal/draft"
	"github.com/classroute/routeconsole/pkg/models"
	"github.com/rs/zerolog/log"
)

// DefaultPollInterval is the silent background refresh period.
const DefaultPollInterval = 30 * time.Second

// LoadOptions tunes a single Load call.
type LoadOptions struct {
	// Silent suppresses the loading indicator (background polls).
	Silent bool
	// ForceReplaceDraft overwrites the draft even when local edits exist.
	ForceReplaceDraft bool
}

// Controller fetches authoritative state and feeds it to the draft engine.
type Controller struct {
	backend  backend.Backend
	engine   *draft.Engine
	interval time.Duration

	mu            sync.Mutex
	validation    models.Validation
	history       []models.HistoryVersion
	proposals     []models.Proposal
	registry      []models.RegistryEntry
	providerForms map[string]models.RegistryEntry
	loading       bool
	errText       string

	stopCh  chan struct{}
	running bool
}

// New creates a controller. A non-positive interval uses DefaultPollInterval.
func New(b backend.Backend, e *draft.Engine, interval time.Duration) *Controller {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Controller{
		backend:       b,
		engine:        e,
		interval:      interval,
		providerForms: make(map[string]models.RegistryEntry),
		stopCh:        make(chan struct{}),
	}
}

// Load fetches the routing overview and the provider registry as two
// independent calls; failure of one never blocks success-handling of the
// other. The draft is replaced iff ForceReplaceDraft is set or no local
// edits are pending, with the edit flag read when each response resolves.
func (c *Controller) Load(ctx context.Context, opts LoadOptions) error {
	if !opts.Silent {
		c.mu.Lock()
		c.loading = true
		c.mu.Unlock()
		defer func() {
			c.mu.Lock()
			c.loading = false
			c.mu.Unlock()
		}()
	}

	var (
		wg          sync.WaitGroup
		ov          *models.Overview
		ovErr       error
		registry    []models.RegistryEntry
		registryErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		ov, ovErr = c.backend.FetchOverview(ctx)
	}()
	go func() {
		defer wg.Done()
		registry, registryErr = c.backend.FetchRegistry(ctx)
	}()
	wg.Wait()

	if ovErr == nil {
		c.applyOverview(ov, opts.ForceReplaceDraft)
	} else {
		log.Warn().Err(ovErr).Msg("Overview fetch failed")
	}
	if registryErr == nil {
		c.applyRegistry(registry)
	} else {
		log.Warn().Err(registryErr).Msg("Provider registry fetch failed")
	}

	return c.recordErrors(ovErr, registryErr)
}

// applyOverview ingests a successful overview response. The engine reads
// the has-local-edits flag now, not when the request was issued.
func (c *Controller) applyOverview(ov *models.Overview, force bool) {
	if ov.Config != nil {
		replaced := c.engine.Ingest(ov.Config, force)
		log.Debug().
			Int("version", ov.Config.Version).
			Bool("draft_replaced", replaced).
			Msg("Authoritative config ingested")
	}
	c.engine.SetCatalog(ov.Catalog)

	c.mu.Lock()
	c.validation = ov.Validation
	c.history = ov.History
	c.proposals = ov.Proposals
	c.mu.Unlock()
}

// applyRegistry stores the registry and repopulates the per-provider
// edit-form cache.
func (c *Controller) applyRegistry(registry []models.RegistryEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.registry = registry
	c.providerForms = make(map[string]models.RegistryEntry, len(registry))
	for _, entry := range registry {
		c.providerForms[entry.Provider] = entry
	}
}

// recordErrors converts fetch failures into the single user-facing message.
// Both failing concatenates both; either succeeding still rendered its data.
func (c *Controller) recordErrors(ovErr, registryErr error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case ovErr != nil && registryErr != nil:
		c.errText = strings.Join([]string{ovErr.Error(), registryErr.Error()}, "; ")
		return errors.Join(ovErr, registryErr)
	case ovErr != nil:
		c.errText = ovErr.Error()
		return ovErr
	case registryErr != nil:
		c.errText = registryErr.Error()
		return registryErr
	default:
		c.errText = ""
		return nil
	}
}

// Start runs one initial load and then polls silently on the interval.
// Background polls obey the same overwrite rule as manual loads.
func (c *Controller) Start(ctx context.Context) {
	if c.running {
		return
	}
	c.running = true

	if err := c.Load(ctx, LoadOptions{}); err != nil {
		log.Warn().Err(err).Msg("Initial load failed")
	}

	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := c.Load(ctx, LoadOptions{Silent: true}); err != nil {
					log.Warn().Err(err).Msg("Background refresh failed")
				}
			case <-c.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info().Dur("poll_interval", c.interval).Msg("Sync controller started")
}

// Stop halts background polling.
func (c *Controller) Stop() {
	if c.running {
		close(c.stopCh)
		c.running = false
	}
}

// ── Provider Registry Passthrough ────────────────────────────

// CreateProvider adds a registry entry and refreshes the registry.
func (c *Controller) CreateProvider(ctx context.Context, entry *models.RegistryEntry) (*models.RegistryEntry, error) {
	out, err := c.backend.CreateRegistryEntry(ctx, entry)
	if err != nil {
		return nil, err
	}
	c.refreshRegistry(ctx)
	return out, nil
}

// UpdateProvider updates a registry entry and refreshes the registry.
func (c *Controller) UpdateProvider(ctx context.Context, id string, entry *models.RegistryEntry) (*models.RegistryEntry, error) {
	out, err := c.backend.UpdateRegistryEntry(ctx, id, entry)
	if err != nil {
		return nil, err
	}
	c.refreshRegistry(ctx)
	return out, nil
}

// DeleteProvider removes a registry entry and refreshes the registry.
func (c *Controller) DeleteProvider(ctx context.Context, id string) error {
	if err := c.backend.DeleteRegistryEntry(ctx, id); err != nil {
		return err
	}
	c.refreshRegistry(ctx)
	return nil
}

func (c *Controller) refreshRegistry(ctx context.Context) {
	registry, err := c.backend.FetchRegistry(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("Registry refresh after mutation failed")
		return
	}
	c.applyRegistry(registry)
}

// ── Snapshots ────────────────────────────────────────────────

// Validation returns the latest server-reported validation results.
func (c *Controller) Validation() models.Validation {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.validation
}

// History returns the latest retained version list.
func (c *Controller) History() []models.HistoryVersion {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.HistoryVersion(nil), c.history...)
}

// Proposals returns the latest pending-proposal list.
func (c *Controller) Proposals() []models.Proposal {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.Proposal(nil), c.proposals...)
}

// Registry returns the latest configured provider registry.
func (c *Controller) Registry() []models.RegistryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]models.RegistryEntry(nil), c.registry...)
}

// ProviderForm returns the cached edit-form seed for a provider.
func (c *Controller) ProviderForm(provider string) (models.RegistryEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.providerForms[provider]
	return entry, ok
}

// Loading reports whether a non-silent load is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Err returns the user-facing fetch error text, empty when healthy.
func (c *Controller) Err() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errText
}
