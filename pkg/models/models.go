// Package models defines the shared data types for the RouteConsole engine:
// the routing configuration (channels + rules), the proposal workflow,
// version history, the provider catalog, and the overview payload returned
// by the routing backend.
package models

// ── Routing Configuration ────────────────────────────────────

// RoutingConfig is a complete per-teacher routing configuration.
//
// The authoritative copy is owned by the sync controller; the draft copy is
// a structural clone owned by the mutation engine. Version is assigned by
// the server and only ever increases; client-side edits never bump it.
type RoutingConfig struct {
	SchemaVersion int       `json:"schema_version"`
	Enabled       bool      `json:"enabled"`
	Version       int       `json:"version"`
	UpdatedAt     string    `json:"updated_at,omitempty"`
	UpdatedBy     string    `json:"updated_by,omitempty"`
	Channels      []Channel `json:"channels"`
	Rules         []Rule    `json:"rules"`
}

// Target identifies the provider/mode/model triple a channel sends to.
type Target struct {
	Provider string `json:"provider"`
	Mode     string `json:"mode"`
	Model    string `json:"model"`
}

// Params are optional sampling parameters. Nil means "provider default".
type Params struct {
	Temperature *float64 `json:"temperature"`
	MaxTokens   *int     `json:"max_tokens"`
}

// Capabilities flags what a channel's target is expected to support.
type Capabilities struct {
	Tools bool `json:"tools"`
	JSON  bool `json:"json"`
}

// Channel is a named outbound target.
type Channel struct {
	ID               string       `json:"id"`
	Title            string       `json:"title"`
	Target           Target       `json:"target"`
	Params           Params       `json:"params"`
	FallbackChannels []string     `json:"fallback_channels"`
	Capabilities     Capabilities `json:"capabilities"`
}

// Match describes which incoming tasks a rule applies to.
// Nil boolean filters mean "any".
type Match struct {
	Roles      []string `json:"roles"`
	Skills     []string `json:"skills"`
	Kinds      []string `json:"kinds"`
	NeedsTools *bool    `json:"needs_tools"`
	NeedsJSON  *bool    `json:"needs_json"`
}

// Route names the channel a matching rule sends to. An empty ChannelID is
// a valid "unrouted" state (e.g. after the last channel was removed).
type Route struct {
	ChannelID string `json:"channel_id"`
}

// Rule is a prioritized match-and-route directive. Higher priority wins.
type Rule struct {
	ID       string `json:"id"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
	Match    Match  `json:"match"`
	Route    Route  `json:"route"`
}

// Clone returns a deep structural copy of the config.
func (c *RoutingConfig) Clone() *RoutingConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.Channels = make([]Channel, len(c.Channels))
	for i, ch := range c.Channels {
		out.Channels[i] = ch.Clone()
	}
	out.Rules = make([]Rule, len(c.Rules))
	for i, r := range c.Rules {
		out.Rules[i] = r.Clone()
	}
	return &out
}

// Clone returns a deep copy of the channel.
func (ch Channel) Clone() Channel {
	out := ch
	out.FallbackChannels = append([]string(nil), ch.FallbackChannels...)
	if ch.Params.Temperature != nil {
		t := *ch.Params.Temperature
		out.Params.Temperature = &t
	}
	if ch.Params.MaxTokens != nil {
		m := *ch.Params.MaxTokens
		out.Params.MaxTokens = &m
	}
	return out
}

// Clone returns a deep copy of the rule.
func (r Rule) Clone() Rule {
	out := r
	out.Match.Roles = append([]string(nil), r.Match.Roles...)
	out.Match.Skills = append([]string(nil), r.Match.Skills...)
	out.Match.Kinds = append([]string(nil), r.Match.Kinds...)
	if r.Match.NeedsTools != nil {
		b := *r.Match.NeedsTools
		out.Match.NeedsTools = &b
	}
	if r.Match.NeedsJSON != nil {
		b := *r.Match.NeedsJSON
		out.Match.NeedsJSON = &b
	}
	return out
}

// ── Patches ──────────────────────────────────────────────────

// ChannelPatch is a partial channel update. Nil fields are left untouched.
type ChannelPatch struct {
	Title            *string       `json:"title,omitempty"`
	Target           *Target       `json:"target,omitempty"`
	Params           *Params       `json:"params,omitempty"`
	FallbackChannels *[]string     `json:"fallback_channels,omitempty"`
	Capabilities     *Capabilities `json:"capabilities,omitempty"`
}

// RulePatch is a partial rule update. Nil fields are left untouched.
type RulePatch struct {
	Priority *int    `json:"priority,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
	Match    *Match  `json:"match,omitempty"`
	Route    *Route  `json:"route,omitempty"`
}

// ── Proposals ────────────────────────────────────────────────

type ProposalStatus string

const (
	ProposalPending  ProposalStatus = "pending"
	ProposalApproved ProposalStatus = "approved"
	ProposalRejected ProposalStatus = "rejected"
)

// Validation carries server-reported configuration validation results.
// Errors and warnings are displayed as-is and never block other panels.
type Validation struct {
	Errors   []string `json:"errors"`
	Warnings []string `json:"warnings"`
}

// Proposal is a submitted candidate configuration awaiting review.
// Status transitions pending → approved or pending → rejected, both terminal.
type Proposal struct {
	ID         string         `json:"id"`
	CreatedAt  string         `json:"created_at"`
	CreatedBy  string         `json:"created_by"`
	Status     ProposalStatus `json:"status"`
	Note       string         `json:"note,omitempty"`
	Candidate  *RoutingConfig `json:"candidate,omitempty"`
	Validation Validation     `json:"validation"`
}

// ProposalRequest is the create-proposal payload.
type ProposalRequest struct {
	Candidate *RoutingConfig `json:"candidate"`
	Note      string         `json:"note,omitempty"`
}

// ── History ──────────────────────────────────────────────────

// HistorySummary is a structural digest of a saved configuration version.
type HistorySummary struct {
	Enabled             bool   `json:"enabled"`
	ChannelCount        int    `json:"channel_count"`
	RuleCount           int    `json:"rule_count"`
	PrimaryChannelID    string `json:"primary_channel_id"`
	PrimaryChannelTitle string `json:"primary_channel_title"`
	PrimaryProvider     string `json:"primary_provider"`
	PrimaryMode         string `json:"primary_mode"`
	PrimaryModel        string `json:"primary_model"`
	TopRuleID           string `json:"top_rule_id"`
}

// HistoryVersion is one retained configuration version. Older versions may
// carry only a precomputed summary; recent ones embed the full config.
type HistoryVersion struct {
	Version int             `json:"version"`
	SavedAt string          `json:"saved_at"`
	SavedBy string          `json:"saved_by"`
	Source  string          `json:"source,omitempty"`
	Note    string          `json:"note,omitempty"`
	Summary *HistorySummary `json:"summary,omitempty"`
	Config  *RoutingConfig  `json:"config,omitempty"`
}

// ── Provider Catalog & Registry ──────────────────────────────

// CatalogProvider is one known provider in the static catalog.
type CatalogProvider struct {
	ID          string   `json:"id"`
	Label       string   `json:"label"`
	Modes       []string `json:"modes"`
	DefaultMode string   `json:"default_mode,omitempty"`
	// CatalogOnly providers are selectable but have no configured
	// credentials, so they are never probed for live models.
	CatalogOnly bool `json:"catalog_only"`
}

// Catalog is the set of providers/modes available to choose from.
type Catalog struct {
	Providers       []CatalogProvider `json:"providers"`
	DefaultProvider string            `json:"default_provider,omitempty"`
}

// Provider returns the catalog entry for an id, or nil.
func (c Catalog) Provider(id string) *CatalogProvider {
	for i := range c.Providers {
		if c.Providers[i].ID == id {
			return &c.Providers[i]
		}
	}
	return nil
}

// RegistryEntry is a configured (credentialed) provider in the registry.
type RegistryEntry struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
	Label    string `json:"label,omitempty"`
	BaseURL  string `json:"base_url,omitempty"`
	Enabled  bool   `json:"enabled"`
}

// ── Simulation ───────────────────────────────────────────────

// TaskContext describes an incoming task for decision preview.
type TaskContext struct {
	Role       string `json:"role"`
	Skill      string `json:"skill,omitempty"`
	Kind       string `json:"kind,omitempty"`
	NeedsTools *bool  `json:"needs_tools,omitempty"`
	NeedsJSON  *bool  `json:"needs_json,omitempty"`
}

// SimulateRequest previews a routing decision. Draft, when set, overrides
// the authoritative config server-side without persisting anything.
type SimulateRequest struct {
	Task  TaskContext    `json:"task"`
	Draft *RoutingConfig `json:"draft,omitempty"`
}

// Decision is the server's channel-selection result. Rule matching runs
// server-side only; the client displays the outcome.
type Decision struct {
	ChannelID string   `json:"channel_id"`
	RuleID    string   `json:"rule_id,omitempty"`
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	Reasons   []string `json:"reasons,omitempty"`
}

// ── Overview ─────────────────────────────────────────────────

// Overview is the combined read payload for one teacher identity.
type Overview struct {
	Config     *RoutingConfig   `json:"config"`
	Validation Validation       `json:"validation"`
	History    []HistoryVersion `json:"history"`
	Proposals  []Proposal       `json:"proposals"`
	Catalog    Catalog          `json:"catalog"`
}
