// Package history derives and compares structural summaries of saved
// routing-configuration versions.
package history

import (
	"fmt"

	"github.com/classroute/routeconsole/pkg/models"
)

// Sentinel messages emitted by DiffSummaries.
const (
	MsgNoData     = "no structured data for this version"
	MsgNoBaseline = "first retained version, no baseline to compare"
	MsgNoChange   = "no structural change"
)

// DeriveSummary returns the structural summary for a history item. A
// precomputed summary is returned unchanged; otherwise the summary is
// reconstructed from the raw stored config. Returns nil when the item
// carries neither.
func DeriveSummary(item models.HistoryVersion) *models.HistorySummary {
	if item.Summary != nil {
		return item.Summary
	}
	cfg := item.Config
	if cfg == nil {
		return nil
	}

	s := &models.HistorySummary{
		Enabled:      cfg.Enabled,
		ChannelCount: len(cfg.Channels),
		RuleCount:    len(cfg.Rules),
	}
	if len(cfg.Channels) > 0 {
		primary := cfg.Channels[0]
		s.PrimaryChannelID = primary.ID
		s.PrimaryChannelTitle = primary.Title
		s.PrimaryProvider = primary.Target.Provider
		s.PrimaryMode = primary.Target.Mode
		s.PrimaryModel = primary.Target.Model
	}
	if top := topRule(cfg.Rules); top != nil {
		s.TopRuleID = top.ID
	}
	return s
}

// topRule returns the rule with the numerically highest priority.
// Equal priorities resolve to the earliest rule in the stored order.
func topRule(rules []models.Rule) *models.Rule {
	var top *models.Rule
	for i := range rules {
		if top == nil || rules[i].Priority > top.Priority {
			top = &rules[i]
		}
	}
	return top
}

// DiffSummaries reports the structural differences between two version
// summaries as display messages. Exactly six dimensions are compared, each
// independently and in a fixed order: primary model, primary channel id,
// top rule id, rule count, channel count, enabled flag.
func DiffSummaries(current, previous *models.HistorySummary) []string {
	if current == nil {
		return []string{MsgNoData}
	}
	if previous == nil {
		return []string{MsgNoBaseline}
	}

	var msgs []string
	if current.PrimaryModel != previous.PrimaryModel {
		msgs = append(msgs, fmt.Sprintf("primary model changed from %q to %q",
			previous.PrimaryModel, current.PrimaryModel))
	}
	if current.PrimaryChannelID != previous.PrimaryChannelID {
		msgs = append(msgs, fmt.Sprintf("primary channel changed from %q to %q",
			previous.PrimaryChannelID, current.PrimaryChannelID))
	}
	if current.TopRuleID != previous.TopRuleID {
		msgs = append(msgs, fmt.Sprintf("top rule changed from %q to %q",
			previous.TopRuleID, current.TopRuleID))
	}
	if current.RuleCount != previous.RuleCount {
		msgs = append(msgs, fmt.Sprintf("rule count changed from %d to %d",
			previous.RuleCount, current.RuleCount))
	}
	if current.ChannelCount != previous.ChannelCount {
		msgs = append(msgs, fmt.Sprintf("channel count changed from %d to %d",
			previous.ChannelCount, current.ChannelCount))
	}
	if current.Enabled != previous.Enabled {
		msgs = append(msgs, fmt.Sprintf("routing enabled changed from %t to %t",
			previous.Enabled, current.Enabled))
	}

	if len(msgs) == 0 {
		return []string{MsgNoChange}
	}
	return msgs
}
