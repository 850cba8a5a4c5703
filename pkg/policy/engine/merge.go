package engine

import (
	"gatehouse-hq/gatehouse/pkg/audit"
	"gatehouse-hq/gatehouse/pkg/config"
	"gatehouse-hq/gatehouse/pkg/hook"
)

// Merge folds next into acc. Once the accumulator blocks it is final: with
// rules walked in descending priority the first block wins and later
// responses, blocking or injecting, are discarded. Until then injected
// contexts accumulate in walk order, joined by a blank line.
func Merge(acc, next hook.Response) hook.Response {
	if !acc.Continue {
		return acc
	}
	if !next.Continue {
		return next
	}
	if next.Context != "" {
		if acc.Context != "" {
			acc.Context = acc.Context + "\n\n" + next.Context
		} else {
			acc.Context = next.Context
		}
	}
	return acc
}

// ConflictEntry pairs a matched rule with the response its actions
// produced, for explicit cross-mode resolution.
type ConflictEntry struct {
	Rule     *config.Rule
	Response hook.Response
}

// ResolveConflicts combines per-rule responses across modes. Entries must
// be ordered by descending priority. An enforce-mode block wins over
// everything regardless of priority; otherwise injections accumulate with
// enforce-mode contexts ahead of warn-mode contexts.
func ResolveConflicts(entries []ConflictEntry) hook.Response {
	if len(entries) == 0 {
		return hook.Allow()
	}

	for _, e := range entries {
		if e.Rule.EffectiveMode() == config.ModeEnforce && !e.Response.Continue {
			return e.Response
		}
	}

	var context string
	appendContext := func(ctx string) {
		if ctx == "" {
			return
		}
		if context != "" {
			context += "\n\n"
		}
		context += ctx
	}
	for _, e := range entries {
		if e.Rule.EffectiveMode() == config.ModeEnforce {
			appendContext(e.Response.Context)
		}
	}
	for _, e := range entries {
		if e.Rule.EffectiveMode() == config.ModeWarn {
			appendContext(e.Response.Context)
		}
	}

	if context != "" {
		return hook.Inject(context)
	}
	return hook.Allow()
}

// RuleTakesPrecedence reports whether a should win a conflict with b: mode
// precedence first, then effective priority.
func RuleTakesPrecedence(a, b *config.Rule) bool {
	pa, pb := a.EffectiveMode().Precedence(), b.EffectiveMode().Precedence()
	if pa != pb {
		return pa > pb
	}
	return a.EffectivePriority() > b.EffectivePriority()
}

// DeriveDecision classifies the final response under the primary rule's
// mode. Audit mode always audits; warn mode warns only when a context was
// injected; enforce distinguishes blocked from allowed, with injection
// counting as allowed.
func DeriveDecision(r hook.Response, mode config.Mode) audit.Decision {
	switch mode {
	case config.ModeAudit:
		return audit.DecisionAudited
	case config.ModeWarn:
		if r.Context != "" {
			return audit.DecisionWarned
		}
		return audit.DecisionAllowed
	default:
		if !r.Continue {
			return audit.DecisionBlocked
		}
		return audit.DecisionAllowed
	}
}
