package engine

import (
	"path/filepath"
	"regexp"
	"strings"

	"gatehouse-hq/gatehouse/pkg/audit"
	"gatehouse-hq/gatehouse/pkg/config"
	"gatehouse-hq/gatehouse/pkg/hook"
)

// Matches reports whether every criterion present on the rule matches the
// event. An absent criterion passes unconditionally. A present criterion
// whose event field is missing fails: absent data never satisfies an active
// constraint.
func Matches(e *hook.Event, r *config.Rule) bool {
	ok, _ := evalMatchers(e, r, false)
	return ok
}

// MatchesDebug is Matches with a per-criterion trace for debug audit
// entries. A nil field in the trace means the criterion was absent.
func MatchesDebug(e *hook.Event, r *config.Rule) (bool, *audit.MatcherResults) {
	return evalMatchers(e, r, true)
}

func evalMatchers(e *hook.Event, r *config.Rule, trace bool) (bool, *audit.MatcherResults) {
	m := &r.Matchers
	results := &audit.MatcherResults{}
	overall := true

	record := func(dst **bool, matched bool) {
		v := matched
		*dst = &v
		if !matched {
			overall = false
		}
	}

	if len(m.Tools) > 0 {
		record(&results.Tools, e.ToolName != "" && containsString(m.Tools, e.ToolName))
	}

	if m.CommandMatch != "" {
		text, ok := e.PrimaryText()
		record(&results.CommandMatch, ok && regexMatches(m.CommandMatch, text))
	}

	if len(m.Extensions) > 0 {
		path, ok := e.FilePath()
		record(&results.Extensions, ok && containsString(m.Extensions, extensionOf(path)))
	}

	if len(m.Directories) > 0 {
		path, ok := e.FilePath()
		record(&results.Directories, ok && anyDirectoryMatches(m.Directories, path))
	}

	if len(m.Operations) > 0 {
		record(&results.Operations, containsString(m.Operations, string(e.EventType)))
	}

	if !trace {
		return overall, nil
	}
	return overall, results
}

// regexMatches compiles and tests pattern. A malformed pattern never
// matches; it is not an evaluation error.
func regexMatches(pattern, text string) bool {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false
	}
	return re.MatchString(text)
}

// extensionOf returns the path's extension with its leading dot, matching
// the criterion format. A path with no extension yields ".".
func extensionOf(path string) string {
	ext := filepath.Ext(path)
	if ext == "" {
		return "."
	}
	return ext
}

// anyDirectoryMatches tests substring containment of each pattern with its
// trailing /** or /* suffix stripped. Not glob matching: "src" also matches
// "other-src/x".
func anyDirectoryMatches(patterns []string, path string) bool {
	for _, p := range patterns {
		if strings.Contains(path, strings.TrimSuffix(p, "/**")) ||
			strings.Contains(path, strings.TrimSuffix(p, "/*")) {
			return true
		}
	}
	return false
}

func containsString(xs []string, want string) bool {
	for _, x := range xs {
		if x == want {
			return true
		}
	}
	return false
}
