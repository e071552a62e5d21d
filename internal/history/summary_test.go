package history_test

import (
	"testing"

	"github.com/classroute/routeconsole/internal/history"
	"github.com/classroute/routeconsole/pkg/models"
)

func sampleConfig() *models.RoutingConfig {
	return &models.RoutingConfig{
		Enabled: true,
		Version: 4,
		Channels: []models.Channel{
			{ID: "primary", Title: "Primary", Target: models.Target{Provider: "openai", Mode: "chat", Model: "gpt-4o"}},
			{ID: "backup", Title: "Backup", Target: models.Target{Provider: "anthropic", Mode: "messages", Model: "claude-sonnet-4-20250514"}},
		},
		Rules: []models.Rule{
			{ID: "low", Priority: 10},
			{ID: "high", Priority: 200},
			{ID: "mid", Priority: 100},
		},
	}
}

func TestDeriveSummary_FromConfig(t *testing.T) {
	s := history.DeriveSummary(models.HistoryVersion{Version: 4, Config: sampleConfig()})
	if s == nil {
		t.Fatal("DeriveSummary() = nil, want summary")
	}
	if s.ChannelCount != 2 || s.RuleCount != 3 {
		t.Errorf("counts = (%d, %d), want (2, 3)", s.ChannelCount, s.RuleCount)
	}
	if s.PrimaryChannelID != "primary" || s.PrimaryChannelTitle != "Primary" {
		t.Errorf("primary channel = (%q, %q), want first channel", s.PrimaryChannelID, s.PrimaryChannelTitle)
	}
	if s.PrimaryProvider != "openai" || s.PrimaryMode != "chat" || s.PrimaryModel != "gpt-4o" {
		t.Errorf("primary target = (%q, %q, %q)", s.PrimaryProvider, s.PrimaryMode, s.PrimaryModel)
	}
	if s.TopRuleID != "high" {
		t.Errorf("TopRuleID = %q, want highest priority rule", s.TopRuleID)
	}
	if !s.Enabled {
		t.Error("Enabled not carried over")
	}
}

func TestDeriveSummary_PrecomputedWins(t *testing.T) {
	pre := &models.HistorySummary{TopRuleID: "precomputed"}
	s := history.DeriveSummary(models.HistoryVersion{Summary: pre, Config: sampleConfig()})
	if s != pre {
		t.Error("DeriveSummary() must return a precomputed summary unchanged")
	}
}

func TestDeriveSummary_NoData(t *testing.T) {
	if s := history.DeriveSummary(models.HistoryVersion{Version: 2}); s != nil {
		t.Errorf("DeriveSummary() = %+v, want nil without config or summary", s)
	}
}

func TestDeriveSummary_TopRuleTieBreak(t *testing.T) {
	cfg := &models.RoutingConfig{
		Rules: []models.Rule{
			{ID: "first", Priority: 100},
			{ID: "second", Priority: 100},
		},
	}
	s := history.DeriveSummary(models.HistoryVersion{Config: cfg})
	if s.TopRuleID != "first" {
		t.Errorf("TopRuleID = %q, want earliest rule on equal priority", s.TopRuleID)
	}
}

func TestDiffSummaries_IdenticalIsNoChange(t *testing.T) {
	// Property: deriving the same config twice always diffs to "no change".
	a := history.DeriveSummary(models.HistoryVersion{Config: sampleConfig()})
	b := history.DeriveSummary(models.HistoryVersion{Config: sampleConfig()})

	msgs := history.DiffSummaries(a, b)
	if len(msgs) != 1 || msgs[0] != history.MsgNoChange {
		t.Errorf("DiffSummaries(same, same) = %v, want [%q]", msgs, history.MsgNoChange)
	}
}

func TestDiffSummaries_NilCurrent(t *testing.T) {
	msgs := history.DiffSummaries(nil, &models.HistorySummary{})
	if len(msgs) != 1 || msgs[0] != history.MsgNoData {
		t.Errorf("DiffSummaries(nil, prev) = %v, want [%q]", msgs, history.MsgNoData)
	}
}

func TestDiffSummaries_NilPrevious(t *testing.T) {
	msgs := history.DiffSummaries(&models.HistorySummary{}, nil)
	if len(msgs) != 1 || msgs[0] != history.MsgNoBaseline {
		t.Errorf("DiffSummaries(cur, nil) = %v, want [%q]", msgs, history.MsgNoBaseline)
	}
}

func TestDiffSummaries_FixedDimensionOrder(t *testing.T) {
	previous := &models.HistorySummary{
		Enabled:          true,
		ChannelCount:     2,
		RuleCount:        3,
		PrimaryChannelID: "primary",
		PrimaryModel:     "gpt-4o",
		TopRuleID:        "high",
	}
	current := &models.HistorySummary{
		Enabled:          false,
		ChannelCount:     1,
		RuleCount:        4,
		PrimaryChannelID: "backup",
		PrimaryModel:     "gpt-4o-mini",
		TopRuleID:        "mid",
	}

	msgs := history.DiffSummaries(current, previous)
	if len(msgs) != 6 {
		t.Fatalf("DiffSummaries() returned %d messages, want 6: %v", len(msgs), msgs)
	}

	wantOrder := []string{
		`primary model changed from "gpt-4o" to "gpt-4o-mini"`,
		`primary channel changed from "primary" to "backup"`,
		`top rule changed from "high" to "mid"`,
		"rule count changed from 3 to 4",
		"channel count changed from 2 to 1",
		"routing enabled changed from true to false",
	}
	for i, want := range wantOrder {
		if msgs[i] != want {
			t.Errorf("msgs[%d] = %q, want %q", i, msgs[i], want)
		}
	}
}

func TestDiffSummaries_SingleDimension(t *testing.T) {
	previous := &models.HistorySummary{RuleCount: 3}
	current := &models.HistorySummary{RuleCount: 5}

	msgs := history.DiffSummaries(current, previous)
	if len(msgs) != 1 {
		t.Fatalf("DiffSummaries() returned %d messages, want 1: %v", len(msgs), msgs)
	}
	if msgs[0] != "rule count changed from 3 to 5" {
		t.Errorf("msgs[0] = %q", msgs[0])
	}
}
