// Package draft implements the local draft of the routing configuration.
//
// Every edit operates on a structural clone and swaps it in whole, so a
// failed edit never leaves the draft partially mutated. The has-local-edits
// flag lives in an atomic cell because the sync controller must read its
// value at the moment an async refresh resolves, not a value captured when
// the refresh was issued.
package draft

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/classroute/routeconsole/pkg/models"
	"github.com/google/uuid"
)

var (
	// ErrNoDraft is returned when an edit arrives before any config loaded.
	ErrNoDraft = errors.New("no draft loaded")
	// ErrNoAuthoritative is returned by ResetDraft before the first fetch.
	ErrNoAuthoritative = errors.New("no authoritative config to reset from")
	// ErrEditsPending is returned when an identity switch is not confirmed
	// while local edits exist.
	ErrEditsPending = errors.New("identity switch rejected: local edits pending")
)

// Engine owns the draft copy of the routing configuration for one identity.
type Engine struct {
	mu            sync.Mutex
	identity      string
	draft         *models.RoutingConfig
	authoritative *models.RoutingConfig
	catalog       models.Catalog
	status        string
	errText       string

	dirty atomic.Bool
}

// NewEngine creates an engine for the given teacher identity.
func NewEngine(identity string) *Engine {
	return &Engine{identity: identity}
}

// ── Snapshots ────────────────────────────────────────────────

// Identity returns the active teacher identity.
func (e *Engine) Identity() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.identity
}

// Draft returns a clone of the current draft, or nil before the first load.
func (e *Engine) Draft() *models.RoutingConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.draft.Clone()
}

// Authoritative returns a clone of the last-ingested server config.
func (e *Engine) Authoritative() *models.RoutingConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.authoritative.Clone()
}

// Dirty reports whether unsaved local edits exist. Reads the latest value;
// safe to call from the sync controller when a slow response resolves.
func (e *Engine) Dirty() bool {
	return e.dirty.Load()
}

// Catalog returns the provider catalog snapshot used for channel defaults.
func (e *Engine) Catalog() models.Catalog {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.catalog
}

// SetCatalog stores the catalog delivered with the latest overview.
func (e *Engine) SetCatalog(c models.Catalog) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.catalog = c
}

// Status returns the transient status text.
func (e *Engine) Status() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// SetStatus replaces the transient status text.
func (e *Engine) SetStatus(s string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status = s
}

// ── Ingestion ────────────────────────────────────────────────

// Ingest records a freshly fetched authoritative config and replaces the
// draft with a clone of it iff force is set or no local edits are pending.
// The edit flag is consulted here, at response-resolution time, so a slow
// refresh cannot stomp edits made while it was in flight.
// Returns true when the draft was replaced.
func (e *Engine) Ingest(cfg *models.RoutingConfig, force bool) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.authoritative = cfg.Clone()
	if !force && e.dirty.Load() {
		return false
	}
	e.draft = cfg.Clone()
	e.dirty.Store(false)
	return true
}

// ResetDraft discards local edits, replacing the draft with a fresh clone
// of the authoritative config.
func (e *Engine) ResetDraft() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.authoritative == nil {
		return ErrNoAuthoritative
	}
	e.draft = e.authoritative.Clone()
	e.dirty.Store(false)
	return nil
}

// ChangeIdentity switches the active teacher. If local edits exist the
// caller-supplied confirm callback must approve the switch; otherwise the
// whole call aborts with no side effects. On success the draft is discarded
// (no merge attempt) and transient status/error text is cleared.
func (e *Engine) ChangeIdentity(newID string, confirm func() bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.dirty.Load() {
		if confirm == nil || !confirm() {
			return ErrEditsPending
		}
	}

	e.identity = newID
	e.draft = nil
	e.authoritative = nil
	e.status = ""
	e.errText = ""
	e.dirty.Store(false)
	return nil
}

// ── Channel Edits ────────────────────────────────────────────

// AddChannel appends a new channel with catalog-derived defaults: the
// catalog's default provider (or the first one), that provider's default
// mode (or its first mode), no model, null params, both capabilities on.
func (e *Engine) AddChannel() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.draft == nil {
		return ErrNoDraft
	}

	provider := e.catalog.DefaultProvider
	if provider == "" && len(e.catalog.Providers) > 0 {
		provider = e.catalog.Providers[0].ID
	}
	mode := ""
	if p := e.catalog.Provider(provider); p != nil {
		mode = p.DefaultMode
		if mode == "" && len(p.Modes) > 0 {
			mode = p.Modes[0]
		}
	}

	next := e.draft.Clone()
	next.Channels = append(next.Channels, models.Channel{
		ID:               uuid.New().String(),
		Title:            "New channel",
		Target:           models.Target{Provider: provider, Mode: mode},
		FallbackChannels: []string{},
		Capabilities:     models.Capabilities{Tools: true, JSON: true},
	})
	e.swap(next)
	return nil
}

// RemoveChannel deletes the channel at index. Rules routed to the removed
// channel are re-routed to the new first remaining channel, or to the empty
// string when no channels remain.
func (e *Engine) RemoveChannel(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.draft == nil {
		return ErrNoDraft
	}
	if index < 0 || index >= len(e.draft.Channels) {
		return fmt.Errorf("channel index %d out of range", index)
	}

	next := e.draft.Clone()
	removedID := next.Channels[index].ID
	next.Channels = append(next.Channels[:index], next.Channels[index+1:]...)

	replacement := ""
	if len(next.Channels) > 0 {
		replacement = next.Channels[0].ID
	}
	for i := range next.Rules {
		if next.Rules[i].Route.ChannelID == removedID {
			next.Rules[i].Route.ChannelID = replacement
		}
	}
	e.swap(next)
	return nil
}

// UpdateChannel applies a partial update to the channel at index.
func (e *Engine) UpdateChannel(index int, patch models.ChannelPatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.draft == nil {
		return ErrNoDraft
	}
	if index < 0 || index >= len(e.draft.Channels) {
		return fmt.Errorf("channel index %d out of range", index)
	}

	next := e.draft.Clone()
	ch := &next.Channels[index]
	if patch.Title != nil {
		ch.Title = *patch.Title
	}
	if patch.Target != nil {
		ch.Target = *patch.Target
	}
	if patch.Params != nil {
		ch.Params = *patch.Params
	}
	if patch.FallbackChannels != nil {
		ch.FallbackChannels = append([]string(nil), (*patch.FallbackChannels)...)
	}
	if patch.Capabilities != nil {
		ch.Capabilities = *patch.Capabilities
	}
	e.swap(next)
	return nil
}

// ── Rule Edits ───────────────────────────────────────────────

// AddRule appends a rule with defaults: priority 100, enabled, matching the
// teacher role, routed to the first existing channel.
func (e *Engine) AddRule() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.draft == nil {
		return ErrNoDraft
	}

	next := e.draft.Clone()
	channelID := ""
	if len(next.Channels) > 0 {
		channelID = next.Channels[0].ID
	}
	next.Rules = append(next.Rules, models.Rule{
		ID:       uuid.New().String(),
		Priority: 100,
		Enabled:  true,
		Match:    models.Match{Roles: []string{"teacher"}},
		Route:    models.Route{ChannelID: channelID},
	})
	e.swap(next)
	return nil
}

// RemoveRule deletes the rule at index.
func (e *Engine) RemoveRule(index int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.draft == nil {
		return ErrNoDraft
	}
	if index < 0 || index >= len(e.draft.Rules) {
		return fmt.Errorf("rule index %d out of range", index)
	}

	next := e.draft.Clone()
	next.Rules = append(next.Rules[:index], next.Rules[index+1:]...)
	e.swap(next)
	return nil
}

// UpdateRule applies a partial update to the rule at index.
func (e *Engine) UpdateRule(index int, patch models.RulePatch) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.draft == nil {
		return ErrNoDraft
	}
	if index < 0 || index >= len(e.draft.Rules) {
		return fmt.Errorf("rule index %d out of range", index)
	}

	next := e.draft.Clone()
	r := &next.Rules[index]
	if patch.Priority != nil {
		r.Priority = *patch.Priority
	}
	if patch.Enabled != nil {
		r.Enabled = *patch.Enabled
	}
	if patch.Match != nil {
		r.Match = *patch.Match
	}
	if patch.Route != nil {
		r.Route = *patch.Route
	}
	e.swap(next)
	return nil
}

// swap installs the edited clone and marks local edits pending.
// Callers hold e.mu.
func (e *Engine) swap(next *models.RoutingConfig) {
	e.draft = next
	e.dirty.Store(true)
}
