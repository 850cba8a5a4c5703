// Package audit is the append-only JSON Lines audit trail: one entry per
// processed event, plus the read-side query engine, size-based rotation and
// the SQLite archive store.
package audit

import (
	"encoding/json"
	"time"

	"gatehouse-hq/gatehouse/pkg/config"
	"gatehouse-hq/gatehouse/pkg/hook"
)

// Outcome is the recorded effect of an event evaluation.
type Outcome string

const (
	OutcomeAllow  Outcome = "allow"
	OutcomeBlock  Outcome = "block"
	OutcomeInject Outcome = "inject"
)

// Decision is the governance classification of an evaluation, derived from
// the response and the primary matched rule's mode.
type Decision string

const (
	DecisionAllowed Decision = "allowed"
	DecisionBlocked Decision = "blocked"
	DecisionWarned  Decision = "warned"
	DecisionAudited Decision = "audited"
)

// EntryTiming records how long the evaluation took and how many rules it
// walked.
type EntryTiming struct {
	ProcessingMS   int64 `json:"processing_ms"`
	RulesEvaluated int   `json:"rules_evaluated"`
}

// EntryMetadata carries secondary evaluation facts.
type EntryMetadata struct {
	InjectedFiles   []string `json:"injected_files,omitempty"`
	ValidatorOutput string   `json:"validator_output,omitempty"`
}

// MatcherResults is the per-criterion trace of one rule match attempt.
// A nil field means the criterion was absent from the rule.
type MatcherResults struct {
	Tools        *bool `json:"tools_matched,omitempty"`
	CommandMatch *bool `json:"command_match_matched,omitempty"`
	Extensions   *bool `json:"extensions_matched,omitempty"`
	Directories  *bool `json:"directories_matched,omitempty"`
	Operations   *bool `json:"operations_matched,omitempty"`
}

// RuleEvaluation records the match verdict for one rule, with the
// per-criterion trace when debug logging is on.
type RuleEvaluation struct {
	RuleName string          `json:"rule_name"`
	Matched  bool            `json:"matched"`
	Matchers *MatcherResults `json:"matcher_results,omitempty"`
}

// Entry is one audit-trail record. Exactly one entry is written per
// processed event, regardless of outcome.
type Entry struct {
	// ID uniquely identifies the entry. Assigned on append when empty.
	ID string `json:"id"`

	Timestamp    time.Time   `json:"timestamp"`
	EventType    string      `json:"event_type"`
	SessionID    string      `json:"session_id"`
	ToolName     string      `json:"tool_name,omitempty"`
	RulesMatched []string    `json:"rules_matched"`
	Outcome      Outcome     `json:"outcome"`
	Timing       EntryTiming `json:"timing"`

	Metadata     *EntryMetadata        `json:"metadata,omitempty"`
	EventDetails *hook.Details         `json:"event_details,omitempty"`
	Response     *hook.ResponseSummary `json:"response,omitempty"`

	// Debug-only fields: the raw event payload and the full per-rule
	// evaluation trace. Omitted unless debug logging is enabled.
	RawEvent        json.RawMessage  `json:"raw_event,omitempty"`
	RuleEvaluations []RuleEvaluation `json:"rule_evaluations,omitempty"`

	// Governance fields from the primary (highest priority) matched rule.
	Mode       config.Mode        `json:"mode,omitempty"`
	Priority   *int               `json:"priority,omitempty"`
	Decision   Decision           `json:"decision,omitempty"`
	Governance *config.Governance `json:"governance,omitempty"`
	TrustLevel config.TrustLevel  `json:"trust_level,omitempty"`
}

// QueryFilters narrows a log query. Zero values mean "no filter".
type QueryFilters struct {
	// Limit caps the number of returned entries, applied after sorting
	// newest first. Zero means unlimited.
	Limit int

	SessionID string
	ToolName  string
	RuleName  string
	Outcome   Outcome
	Mode      config.Mode
	Decision  Decision

	Since *time.Time
	Until *time.Time
}

func (f *QueryFilters) matches(e *Entry) bool {
	if f.SessionID != "" && e.SessionID != f.SessionID {
		return false
	}
	if f.ToolName != "" && e.ToolName != f.ToolName {
		return false
	}
	if f.RuleName != "" && !contains(e.RulesMatched, f.RuleName) {
		return false
	}
	if f.Outcome != "" && e.Outcome != f.Outcome {
		return false
	}
	if f.Mode != "" && e.Mode != f.Mode {
		return false
	}
	if f.Decision != "" && e.Decision != f.Decision {
		return false
	}
	if f.Since != nil && e.Timestamp.Before(*f.Since) {
		return false
	}
	if f.Until != nil && e.Timestamp.After(*f.Until) {
		return false
	}
	return true
}

func contains(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
