package engine

import (
	"testing"

	"gatehouse-hq/gatehouse/pkg/audit"
	"gatehouse-hq/gatehouse/pkg/config"
	"gatehouse-hq/gatehouse/pkg/hook"
)

func TestMerge(t *testing.T) {
	t.Run("block replaces accumulator", func(t *testing.T) {
		acc := hook.Inject("earlier context")
		got := Merge(acc, hook.Block("stop"))
		if got.Continue || got.Reason != "stop" {
			t.Errorf("Merge() = %+v, want the block", got)
		}
		if got.Context != "" {
			t.Error("block response must not carry the accumulated context")
		}
	})

	t.Run("contexts accumulate in order", func(t *testing.T) {
		acc := hook.Allow()
		acc = Merge(acc, hook.Inject("first"))
		acc = Merge(acc, hook.Inject("second"))
		if acc.Context != "first\n\nsecond" {
			t.Errorf("Context = %q", acc.Context)
		}
	})

	t.Run("allow leaves accumulator untouched", func(t *testing.T) {
		acc := hook.Inject("kept")
		got := Merge(acc, hook.Allow())
		if got.Context != "kept" || !got.Continue {
			t.Errorf("Merge() = %+v", got)
		}
	})

	t.Run("first block is final", func(t *testing.T) {
		got := Merge(hook.Block("first"), hook.Block("second"))
		if got.Continue || got.Reason != "first" {
			t.Errorf("Merge() = %+v, want the first block kept", got)
		}
	})

	t.Run("injection after block is dropped", func(t *testing.T) {
		got := Merge(hook.Block("stop"), hook.Inject("late context"))
		if got.Continue || got.Reason != "stop" {
			t.Errorf("Merge() = %+v, want the block kept", got)
		}
		if got.Context != "" {
			t.Errorf("Context = %q, want none on a blocked response", got.Context)
		}
	})
}

func TestResolveConflicts(t *testing.T) {
	enforceRule := func(name string, prio int) *config.Rule {
		return &config.Rule{Name: name, Mode: config.ModeEnforce, Priority: &prio}
	}
	warnRule := func(name string, prio int) *config.Rule {
		return &config.Rule{Name: name, Mode: config.ModeWarn, Priority: &prio}
	}

	t.Run("empty is allow", func(t *testing.T) {
		got := ResolveConflicts(nil)
		if !got.Continue || got.Context != "" {
			t.Errorf("ResolveConflicts(nil) = %+v", got)
		}
	})

	t.Run("enforce block beats higher priority warn", func(t *testing.T) {
		entries := []ConflictEntry{
			{Rule: warnRule("w", 100), Response: hook.Inject("[WARNING] would block")},
			{Rule: enforceRule("e", 1), Response: hook.Block("blocked")},
		}
		got := ResolveConflicts(entries)
		if got.Continue || got.Reason != "blocked" {
			t.Errorf("ResolveConflicts() = %+v, want the enforce block", got)
		}
	})

	t.Run("first enforce block wins among blocks", func(t *testing.T) {
		entries := []ConflictEntry{
			{Rule: enforceRule("high", 10), Response: hook.Block("high wins")},
			{Rule: enforceRule("low", 1), Response: hook.Block("low loses")},
		}
		got := ResolveConflicts(entries)
		if got.Reason != "high wins" {
			t.Errorf("Reason = %q", got.Reason)
		}
	})

	t.Run("enforce injections precede warn injections", func(t *testing.T) {
		entries := []ConflictEntry{
			{Rule: warnRule("w", 100), Response: hook.Inject("warn text")},
			{Rule: enforceRule("e", 1), Response: hook.Inject("enforce text")},
		}
		got := ResolveConflicts(entries)
		if got.Context != "enforce text\n\nwarn text" {
			t.Errorf("Context = %q", got.Context)
		}
	})

	t.Run("no blocks or injections is allow", func(t *testing.T) {
		entries := []ConflictEntry{
			{Rule: enforceRule("e", 1), Response: hook.Allow()},
		}
		got := ResolveConflicts(entries)
		if !got.Continue || got.Context != "" {
			t.Errorf("ResolveConflicts() = %+v", got)
		}
	})
}

func TestRuleTakesPrecedence(t *testing.T) {
	prio := func(p int) *int { return &p }

	tests := []struct {
		name string
		a, b *config.Rule
		want bool
	}{
		{
			name: "enforce beats warn regardless of priority",
			a:    &config.Rule{Mode: config.ModeEnforce, Priority: prio(1)},
			b:    &config.Rule{Mode: config.ModeWarn, Priority: prio(100)},
			want: true,
		},
		{
			name: "warn beats audit",
			a:    &config.Rule{Mode: config.ModeWarn},
			b:    &config.Rule{Mode: config.ModeAudit},
			want: true,
		},
		{
			name: "same mode compares priority",
			a:    &config.Rule{Mode: config.ModeEnforce, Priority: prio(5)},
			b:    &config.Rule{Mode: config.ModeEnforce, Priority: prio(10)},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RuleTakesPrecedence(tt.a, tt.b); got != tt.want {
				t.Errorf("RuleTakesPrecedence() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeriveDecision(t *testing.T) {
	tests := []struct {
		name string
		resp hook.Response
		mode config.Mode
		want audit.Decision
	}{
		{name: "enforce block", resp: hook.Block("x"), mode: config.ModeEnforce, want: audit.DecisionBlocked},
		{name: "enforce allow", resp: hook.Allow(), mode: config.ModeEnforce, want: audit.DecisionAllowed},
		{name: "enforce inject counts as allowed", resp: hook.Inject("ctx"), mode: config.ModeEnforce, want: audit.DecisionAllowed},
		{name: "warn with context", resp: hook.Inject("warning"), mode: config.ModeWarn, want: audit.DecisionWarned},
		{name: "warn without context", resp: hook.Allow(), mode: config.ModeWarn, want: audit.DecisionAllowed},
		{name: "audit always audited", resp: hook.Block("x"), mode: config.ModeAudit, want: audit.DecisionAudited},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeriveDecision(tt.resp, tt.mode); got != tt.want {
				t.Errorf("DeriveDecision() = %q, want %q", got, tt.want)
			}
		})
	}
}
