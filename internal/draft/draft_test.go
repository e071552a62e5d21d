package draft_test

import (
	"errors"
	"testing"

	"github.com/classroute/routeconsole/internal/draft"
	"github.com/classroute/routeconsole/pkg/models"
)

func testConfig() *models.RoutingConfig {
	return &models.RoutingConfig{
		SchemaVersion: 1,
		Enabled:       true,
		Version:       7,
		Channels: []models.Channel{
			{ID: "primary", Title: "Primary", Target: models.Target{Provider: "openai", Mode: "chat", Model: "gpt-4o"}},
			{ID: "backup", Title: "Backup", Target: models.Target{Provider: "anthropic", Mode: "chat", Model: "claude-3-5-haiku-20241022"}},
		},
		Rules: []models.Rule{
			{ID: "r1", Priority: 100, Enabled: true, Route: models.Route{ChannelID: "primary"}},
		},
	}
}

func newLoadedEngine(t *testing.T) *draft.Engine {
	t.Helper()
	e := draft.NewEngine("teacher-1")
	e.Ingest(testConfig(), false)
	return e
}

func TestIngest_ReplacesCleanDraft(t *testing.T) {
	e := draft.NewEngine("teacher-1")

	if replaced := e.Ingest(testConfig(), false); !replaced {
		t.Fatal("Ingest() should replace a draft with no local edits")
	}
	if e.Dirty() {
		t.Error("Dirty() = true after clean ingest")
	}
	if got := e.Draft().Version; got != 7 {
		t.Errorf("Draft().Version = %d, want 7", got)
	}
}

func TestIngest_PreservesEditedDraft(t *testing.T) {
	e := newLoadedEngine(t)
	if err := e.AddChannel(); err != nil {
		t.Fatalf("AddChannel() error = %v", err)
	}

	newer := testConfig()
	newer.Version = 8
	if replaced := e.Ingest(newer, false); replaced {
		t.Error("Ingest() must not overwrite a draft with pending edits")
	}
	if got := len(e.Draft().Channels); got != 3 {
		t.Errorf("draft channels = %d, want 3 (edit preserved)", got)
	}
	if got := e.Authoritative().Version; got != 8 {
		t.Errorf("Authoritative().Version = %d, want 8", got)
	}
}

func TestIngest_ForceOverwritesEdits(t *testing.T) {
	e := newLoadedEngine(t)
	if err := e.AddChannel(); err != nil {
		t.Fatalf("AddChannel() error = %v", err)
	}

	newer := testConfig()
	newer.Version = 9
	if replaced := e.Ingest(newer, true); !replaced {
		t.Fatal("Ingest(force) should always replace")
	}
	if e.Dirty() {
		t.Error("Dirty() = true after forced ingest")
	}
	if got := e.Draft().Version; got != 9 {
		t.Errorf("Draft().Version = %d, want 9", got)
	}
}

func TestIngest_DraftKeepsSourceVersion(t *testing.T) {
	e := newLoadedEngine(t)
	if err := e.AddRule(); err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}
	// Edits never bump the version client-side.
	if got := e.Draft().Version; got != 7 {
		t.Errorf("Draft().Version = %d after edit, want 7", got)
	}
}

func TestAddChannel_CatalogDefaults(t *testing.T) {
	e := newLoadedEngine(t)
	e.SetCatalog(models.Catalog{
		DefaultProvider: "anthropic",
		Providers: []models.CatalogProvider{
			{ID: "openai", Modes: []string{"chat", "responses"}},
			{ID: "anthropic", Modes: []string{"messages"}, DefaultMode: "messages"},
		},
	})

	if err := e.AddChannel(); err != nil {
		t.Fatalf("AddChannel() error = %v", err)
	}

	d := e.Draft()
	ch := d.Channels[len(d.Channels)-1]
	if ch.ID == "" {
		t.Error("new channel has empty id")
	}
	if ch.Target.Provider != "anthropic" {
		t.Errorf("Target.Provider = %q, want %q", ch.Target.Provider, "anthropic")
	}
	if ch.Target.Mode != "messages" {
		t.Errorf("Target.Mode = %q, want %q", ch.Target.Mode, "messages")
	}
	if ch.Target.Model != "" {
		t.Errorf("Target.Model = %q, want empty", ch.Target.Model)
	}
	if ch.Params.Temperature != nil || ch.Params.MaxTokens != nil {
		t.Error("new channel params should be null")
	}
	if !ch.Capabilities.Tools || !ch.Capabilities.JSON {
		t.Error("new channel capabilities should both be true")
	}
	if !e.Dirty() {
		t.Error("AddChannel() should set the edit flag")
	}
}

func TestAddChannel_FirstProviderFallback(t *testing.T) {
	e := newLoadedEngine(t)
	e.SetCatalog(models.Catalog{
		Providers: []models.CatalogProvider{
			{ID: "ollama", Modes: []string{"chat"}},
		},
	})

	if err := e.AddChannel(); err != nil {
		t.Fatalf("AddChannel() error = %v", err)
	}

	d := e.Draft()
	ch := d.Channels[len(d.Channels)-1]
	if ch.Target.Provider != "ollama" {
		t.Errorf("Target.Provider = %q, want first catalog provider", ch.Target.Provider)
	}
	if ch.Target.Mode != "chat" {
		t.Errorf("Target.Mode = %q, want provider's first mode", ch.Target.Mode)
	}
}

func TestRemoveChannel_ReroutesRules(t *testing.T) {
	// Scenario: channels [primary, backup], one rule routed to primary.
	e := newLoadedEngine(t)

	if err := e.RemoveChannel(0); err != nil {
		t.Fatalf("RemoveChannel() error = %v", err)
	}

	d := e.Draft()
	if len(d.Channels) != 1 || d.Channels[0].ID != "backup" {
		t.Fatalf("channels after removal = %+v, want [backup]", d.Channels)
	}
	if got := d.Rules[0].Route.ChannelID; got != "backup" {
		t.Errorf("rule re-routed to %q, want %q", got, "backup")
	}
}

func TestRemoveChannel_LastChannelEmptiesRoutes(t *testing.T) {
	cfg := &models.RoutingConfig{
		Channels: []models.Channel{{ID: "only"}},
		Rules: []models.Rule{
			{ID: "r1", Route: models.Route{ChannelID: "only"}},
			{ID: "r2", Route: models.Route{ChannelID: "only"}},
		},
	}
	e := draft.NewEngine("teacher-1")
	e.Ingest(cfg, false)

	if err := e.RemoveChannel(0); err != nil {
		t.Fatalf("RemoveChannel() error = %v", err)
	}

	d := e.Draft()
	if len(d.Channels) != 0 {
		t.Fatalf("channels = %d, want 0", len(d.Channels))
	}
	for _, r := range d.Rules {
		if r.Route.ChannelID != "" {
			t.Errorf("rule %s routed to %q, want empty", r.ID, r.Route.ChannelID)
		}
	}
}

func TestRemoveChannel_IndexOutOfRange(t *testing.T) {
	e := newLoadedEngine(t)
	if err := e.RemoveChannel(5); err == nil {
		t.Fatal("RemoveChannel(5) should fail")
	}
	if e.Dirty() {
		t.Error("failed edit must not set the edit flag")
	}
}

func TestAddRule_Defaults(t *testing.T) {
	e := newLoadedEngine(t)
	if err := e.AddRule(); err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}

	d := e.Draft()
	r := d.Rules[len(d.Rules)-1]
	if r.Priority != 100 {
		t.Errorf("Priority = %d, want 100", r.Priority)
	}
	if !r.Enabled {
		t.Error("new rule should be enabled")
	}
	if len(r.Match.Roles) != 1 || r.Match.Roles[0] != "teacher" {
		t.Errorf("Match.Roles = %v, want [teacher]", r.Match.Roles)
	}
	if r.Route.ChannelID != "primary" {
		t.Errorf("Route.ChannelID = %q, want first channel", r.Route.ChannelID)
	}
}

func TestUpdateRule_PartialPatch(t *testing.T) {
	e := newLoadedEngine(t)

	priority := 250
	enabled := false
	if err := e.UpdateRule(0, models.RulePatch{Priority: &priority, Enabled: &enabled}); err != nil {
		t.Fatalf("UpdateRule() error = %v", err)
	}

	r := e.Draft().Rules[0]
	if r.Priority != 250 {
		t.Errorf("Priority = %d, want 250", r.Priority)
	}
	if r.Enabled {
		t.Error("Enabled should be patched to false")
	}
	if r.Route.ChannelID != "primary" {
		t.Errorf("unpatched Route.ChannelID = %q, want untouched %q", r.Route.ChannelID, "primary")
	}
}

func TestUpdateChannel_PartialPatch(t *testing.T) {
	e := newLoadedEngine(t)

	title := "Renamed"
	if err := e.UpdateChannel(1, models.ChannelPatch{Title: &title}); err != nil {
		t.Fatalf("UpdateChannel() error = %v", err)
	}

	ch := e.Draft().Channels[1]
	if ch.Title != "Renamed" {
		t.Errorf("Title = %q, want %q", ch.Title, "Renamed")
	}
	if ch.Target.Provider != "anthropic" {
		t.Errorf("unpatched Target.Provider = %q, want untouched", ch.Target.Provider)
	}
}

func TestResetDraft(t *testing.T) {
	e := newLoadedEngine(t)
	if err := e.AddChannel(); err != nil {
		t.Fatalf("AddChannel() error = %v", err)
	}

	if err := e.ResetDraft(); err != nil {
		t.Fatalf("ResetDraft() error = %v", err)
	}
	if e.Dirty() {
		t.Error("ResetDraft() should clear the edit flag")
	}
	if got := len(e.Draft().Channels); got != 2 {
		t.Errorf("channels after reset = %d, want 2", got)
	}
}

func TestResetDraft_RequiresAuthoritative(t *testing.T) {
	e := draft.NewEngine("teacher-1")
	if err := e.ResetDraft(); !errors.Is(err, draft.ErrNoAuthoritative) {
		t.Errorf("ResetDraft() error = %v, want ErrNoAuthoritative", err)
	}
}

func TestChangeIdentity_RejectedConfirmAborts(t *testing.T) {
	e := newLoadedEngine(t)
	if err := e.AddRule(); err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}

	err := e.ChangeIdentity("teacher-2", func() bool { return false })
	if !errors.Is(err, draft.ErrEditsPending) {
		t.Fatalf("ChangeIdentity() error = %v, want ErrEditsPending", err)
	}
	// Entire call aborts without side effects.
	if e.Identity() != "teacher-1" {
		t.Errorf("Identity() = %q, want unchanged", e.Identity())
	}
	if e.Draft() == nil {
		t.Error("draft discarded despite rejected confirmation")
	}
	if !e.Dirty() {
		t.Error("edit flag cleared despite rejected confirmation")
	}
}

func TestChangeIdentity_ConfirmedDiscardsDraft(t *testing.T) {
	e := newLoadedEngine(t)
	e.SetStatus("saved")
	if err := e.AddRule(); err != nil {
		t.Fatalf("AddRule() error = %v", err)
	}

	if err := e.ChangeIdentity("teacher-2", func() bool { return true }); err != nil {
		t.Fatalf("ChangeIdentity() error = %v", err)
	}
	if e.Identity() != "teacher-2" {
		t.Errorf("Identity() = %q, want %q", e.Identity(), "teacher-2")
	}
	if e.Draft() != nil {
		t.Error("draft should be discarded, not merged")
	}
	if e.Dirty() {
		t.Error("edit flag should be cleared")
	}
	if e.Status() != "" {
		t.Error("transient status text should be cleared")
	}
}

func TestChangeIdentity_CleanNeedsNoConfirm(t *testing.T) {
	e := newLoadedEngine(t)
	if err := e.ChangeIdentity("teacher-3", nil); err != nil {
		t.Fatalf("ChangeIdentity() with clean draft error = %v", err)
	}
	if e.Identity() != "teacher-3" {
		t.Errorf("Identity() = %q, want %q", e.Identity(), "teacher-3")
	}
}

func TestEditBeforeLoadFails(t *testing.T) {
	e := draft.NewEngine("teacher-1")
	if err := e.AddChannel(); !errors.Is(err, draft.ErrNoDraft) {
		t.Errorf("AddChannel() error = %v, want ErrNoDraft", err)
	}
}

func TestDraftIsIsolatedClone(t *testing.T) {
	e := newLoadedEngine(t)
	d := e.Draft()
	d.Channels[0].Title = "mutated"

	if got := e.Draft().Channels[0].Title; got != "Primary" {
		t.Errorf("engine draft mutated through snapshot: Title = %q", got)
	}
}
