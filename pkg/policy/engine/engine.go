// Package engine is the policy decision pipeline: load the configuration
// for the event's project, walk enabled rules in priority order, execute
// matching rules under their governance mode, fold the responses and record
// one audit entry.
package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"gatehouse-hq/gatehouse/pkg/audit"
	"gatehouse-hq/gatehouse/pkg/config"
	"gatehouse-hq/gatehouse/pkg/hook"
	"gatehouse-hq/gatehouse/pkg/telemetry/metrics"
)

// Engine processes hook events. The configuration is loaded fresh per
// event so rule edits take effect immediately; only the audit writer and
// metrics are long-lived.
type Engine struct {
	auditLog *audit.Logger
	metrics  *metrics.PolicyMetrics
	debug    bool
	log      *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithDebug forces debug audit entries (raw event and per-rule trace)
// regardless of the configuration's debug_logs setting.
func WithDebug(debug bool) Option {
	return func(e *Engine) { e.debug = debug }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(pm *metrics.PolicyMetrics) Option {
	return func(e *Engine) { e.metrics = pm }
}

// New builds an engine writing audit entries to auditLog. auditLog may be
// nil; evaluation then proceeds without a trail.
func New(auditLog *audit.Logger, opts ...Option) *Engine {
	e := &Engine{
		auditLog: auditLog,
		log:      slog.Default().With("component", "engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ProcessEvent evaluates one event and returns the response to emit. The
// audit append is best-effort: a failed write is logged, never surfaced as
// a decision failure. A configuration error or a validator failure under
// fail_open=false is fatal and returned as an error.
func (g *Engine) ProcessEvent(ctx context.Context, e *hook.Event) (hook.Response, error) {
	start := time.Now()

	cfg, err := config.Load(e.Cwd)
	if err != nil {
		return hook.Response{}, err
	}
	debug := g.debug || cfg.Settings.DebugLogs

	executor := NewExecutor(cfg, g.metrics)
	rules := cfg.EnabledRules()

	var matched []*config.Rule
	evaluations := make([]audit.RuleEvaluation, 0, len(rules))
	resp := hook.Allow()

	for _, r := range rules {
		var ok bool
		var trace *audit.MatcherResults
		if debug {
			ok, trace = MatchesDebug(e, r)
		} else {
			ok = Matches(e, r)
		}
		evaluations = append(evaluations, audit.RuleEvaluation{
			RuleName: r.Name,
			Matched:  ok,
			Matchers: trace,
		})
		if !ok {
			continue
		}

		matched = append(matched, r)
		g.metrics.RecordRuleHit(r.Name)

		ruleResp, err := executor.Execute(ctx, e, r)
		if err != nil {
			return hook.Response{}, err
		}
		resp = Merge(resp, ruleResp)
	}

	elapsed := time.Since(start)
	entry := g.buildEntry(e, cfg, resp, matched, evaluations, elapsed, debug)

	if g.auditLog != nil {
		if err := g.auditLog.Append(entry); err != nil {
			g.log.Warn("failed to append audit entry", "error", err)
		}
	}
	g.metrics.RecordEvent(string(entry.Outcome), string(entry.Decision), elapsed)

	resp.Timing = &hook.Timing{
		ProcessingMS:   elapsed.Milliseconds(),
		RulesEvaluated: len(rules),
	}
	return resp, nil
}

func (g *Engine) buildEntry(
	e *hook.Event,
	cfg *config.Config,
	resp hook.Response,
	matched []*config.Rule,
	evaluations []audit.RuleEvaluation,
	elapsed time.Duration,
	debug bool,
) audit.Entry {
	timestamp := e.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now().UTC()
	}

	names := make([]string, len(matched))
	for i, r := range matched {
		names[i] = r.Name
	}

	details := hook.ExtractDetails(e)
	summary := hook.Summarize(resp)

	entry := audit.Entry{
		Timestamp:    timestamp,
		EventType:    string(e.EventType),
		SessionID:    e.SessionID,
		ToolName:     e.ToolName,
		RulesMatched: names,
		Outcome:      outcomeOf(resp),
		Timing: audit.EntryTiming{
			ProcessingMS:   elapsed.Milliseconds(),
			RulesEvaluated: len(cfg.EnabledRules()),
		},
		EventDetails: &details,
		Response:     &summary,
	}
	if resp.Context != "" {
		entry.Metadata = &audit.EntryMetadata{InjectedFiles: []string{"injected"}}
	}

	// Governance fields come from the primary matched rule, which is the
	// highest-priority match since the walk is priority ordered.
	if len(matched) > 0 {
		primary := matched[0]
		entry.Mode = primary.EffectiveMode()
		priority := primary.EffectivePriority()
		entry.Priority = &priority
		entry.Decision = DeriveDecision(resp, primary.EffectiveMode())
		entry.Governance = primary.Governance
		if trust, ok := primary.Actions.Trust(); ok {
			entry.TrustLevel = trust
		}
	}

	if debug {
		if raw, err := json.Marshal(e); err == nil {
			entry.RawEvent = raw
		}
		entry.RuleEvaluations = evaluations
	}
	return entry
}

func outcomeOf(resp hook.Response) audit.Outcome {
	switch {
	case !resp.Continue:
		return audit.OutcomeBlock
	case resp.Context != "":
		return audit.OutcomeInject
	default:
		return audit.OutcomeAllow
	}
}
