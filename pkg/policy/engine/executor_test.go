package engine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gatehouse-hq/gatehouse/pkg/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	return cfg
}

func boolPtr(v bool) *bool { return &v }

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "validator.sh")
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecuteBlock(t *testing.T) {
	x := NewExecutor(testConfig(), nil)
	rule := &config.Rule{
		Name:        "no-force-push",
		Description: "Force pushes are forbidden",
		Actions:     config.Actions{Block: boolPtr(true)},
	}

	resp, err := x.Execute(context.Background(), bashEvent("git push --force"), rule)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if resp.Continue {
		t.Error("Execute() allowed, want block")
	}
	want := "Blocked by rule 'no-force-push': Force pushes are forbidden"
	if resp.Reason != want {
		t.Errorf("Reason = %q, want %q", resp.Reason, want)
	}
}

func TestExecuteBlockWithoutDescription(t *testing.T) {
	x := NewExecutor(testConfig(), nil)
	rule := &config.Rule{
		Name:    "bare",
		Actions: config.Actions{Block: boolPtr(true)},
	}

	resp, err := x.Execute(context.Background(), bashEvent("ls"), rule)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Reason != "Blocked by rule 'bare': No description" {
		t.Errorf("Reason = %q", resp.Reason)
	}
}

func TestExecuteBlockIfMatch(t *testing.T) {
	x := NewExecutor(testConfig(), nil)
	rule := &config.Rule{
		Name:    "no-secrets",
		Actions: config.Actions{BlockIfMatch: `API_KEY`},
	}

	t.Run("content matches", func(t *testing.T) {
		resp, err := x.Execute(context.Background(), writeEvent("/tmp/x.env", "API_KEY=123"), rule)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Continue {
			t.Error("matching content was not blocked")
		}
		want := "Content blocked by rule 'no-secrets': matches pattern 'API_KEY'"
		if resp.Reason != want {
			t.Errorf("Reason = %q, want %q", resp.Reason, want)
		}
	})

	t.Run("content does not match", func(t *testing.T) {
		resp, err := x.Execute(context.Background(), writeEvent("/tmp/x.env", "DEBUG=1"), rule)
		if err != nil {
			t.Fatal(err)
		}
		if !resp.Continue {
			t.Error("non-matching content was blocked")
		}
	})

	t.Run("no content falls through to allow", func(t *testing.T) {
		resp, err := x.Execute(context.Background(), bashEvent("ls"), rule)
		if err != nil {
			t.Fatal(err)
		}
		if !resp.Continue {
			t.Error("event without content was blocked")
		}
	})
}

func TestExecuteInject(t *testing.T) {
	contextFile := filepath.Join(t.TempDir(), "guidance.md")
	if err := os.WriteFile(contextFile, []byte("Always run the linter first."), 0o644); err != nil {
		t.Fatal(err)
	}

	x := NewExecutor(testConfig(), nil)
	rule := &config.Rule{
		Name:    "lint-reminder",
		Actions: config.Actions{Inject: contextFile},
	}

	resp, err := x.Execute(context.Background(), bashEvent("go build"), rule)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Continue || resp.Context != "Always run the linter first." {
		t.Errorf("Execute() = %+v, want injection", resp)
	}
}

func TestExecuteInjectMissingFileAllows(t *testing.T) {
	x := NewExecutor(testConfig(), nil)
	rule := &config.Rule{
		Name:    "broken-inject",
		Actions: config.Actions{Inject: "/nonexistent/context.md"},
	}

	resp, err := x.Execute(context.Background(), bashEvent("ls"), rule)
	if err != nil {
		t.Fatalf("Execute() error = %v, want graceful allow", err)
	}
	if !resp.Continue || resp.Context != "" {
		t.Errorf("Execute() = %+v, want plain allow", resp)
	}
}

func TestExecuteInjectTruncatesOversizedContext(t *testing.T) {
	contextFile := filepath.Join(t.TempDir(), "big.md")
	if err := os.WriteFile(contextFile, []byte(strings.Repeat("x", 100)), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig()
	cfg.Settings.MaxContextSize = 10
	x := NewExecutor(cfg, nil)
	rule := &config.Rule{Name: "big", Actions: config.Actions{Inject: contextFile}}

	resp, err := x.Execute(context.Background(), bashEvent("ls"), rule)
	if err != nil {
		t.Fatal(err)
	}
	if len(resp.Context) != 10 {
		t.Errorf("context length = %d, want 10", len(resp.Context))
	}
}

func TestExecuteAuditMode(t *testing.T) {
	x := NewExecutor(testConfig(), nil)
	rule := &config.Rule{
		Name:    "observe-only",
		Mode:    config.ModeAudit,
		Actions: config.Actions{Block: boolPtr(true)},
	}

	resp, err := x.Execute(context.Background(), bashEvent("rm -rf /"), rule)
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Continue || resp.Context != "" || resp.Reason != "" {
		t.Errorf("audit mode produced %+v, want plain allow", resp)
	}
}

func TestExecuteWarnMode(t *testing.T) {
	x := NewExecutor(testConfig(), nil)

	t.Run("block becomes warning", func(t *testing.T) {
		rule := &config.Rule{
			Name:        "risky",
			Description: "Risky operation",
			Mode:        config.ModeWarn,
			Actions:     config.Actions{Block: boolPtr(true)},
		}
		resp, err := x.Execute(context.Background(), bashEvent("ls"), rule)
		if err != nil {
			t.Fatal(err)
		}
		if !resp.Continue {
			t.Fatal("warn mode blocked the operation")
		}
		want := "[WARNING] Rule 'risky' would block this operation: Risky operation\nThis rule is in 'warn' mode - operation will proceed."
		if resp.Context != want {
			t.Errorf("Context = %q, want %q", resp.Context, want)
		}
	})

	t.Run("conditional block becomes warning", func(t *testing.T) {
		rule := &config.Rule{
			Name:    "warn-secrets",
			Mode:    config.ModeWarn,
			Actions: config.Actions{BlockIfMatch: `TOKEN`},
		}
		resp, err := x.Execute(context.Background(), writeEvent("/tmp/x", "TOKEN=1"), rule)
		if err != nil {
			t.Fatal(err)
		}
		if !resp.Continue {
			t.Fatal("warn mode blocked the operation")
		}
		want := "[WARNING] Rule 'warn-secrets' would block this content (matches pattern 'TOKEN').\nThis rule is in 'warn' mode - operation will proceed."
		if resp.Context != want {
			t.Errorf("Context = %q, want %q", resp.Context, want)
		}
	})

	t.Run("injection passes through", func(t *testing.T) {
		contextFile := filepath.Join(t.TempDir(), "note.md")
		if err := os.WriteFile(contextFile, []byte("note"), 0o644); err != nil {
			t.Fatal(err)
		}
		rule := &config.Rule{
			Name:    "warn-inject",
			Mode:    config.ModeWarn,
			Actions: config.Actions{Inject: contextFile},
		}
		resp, err := x.Execute(context.Background(), bashEvent("ls"), rule)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Context != "note" {
			t.Errorf("Context = %q, want note", resp.Context)
		}
	})
}

func TestRunValidatorExitProtocol(t *testing.T) {
	x := NewExecutor(testConfig(), nil)
	event := bashEvent("ls")

	t.Run("exit zero without output allows", func(t *testing.T) {
		rule := &config.Rule{
			Name:    "v",
			Actions: config.Actions{Run: &config.RunAction{Script: writeScript(t, "exit 0")}},
		}
		resp, err := x.Execute(context.Background(), event, rule)
		if err != nil {
			t.Fatal(err)
		}
		if !resp.Continue || resp.Context != "" {
			t.Errorf("got %+v, want plain allow", resp)
		}
	})

	t.Run("exit zero with output injects trimmed stdout", func(t *testing.T) {
		rule := &config.Rule{
			Name:    "v",
			Actions: config.Actions{Run: &config.RunAction{Script: writeScript(t, `echo "  some advice  "`)}},
		}
		resp, err := x.Execute(context.Background(), event, rule)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Context != "some advice" {
			t.Errorf("Context = %q, want trimmed stdout", resp.Context)
		}
	})

	t.Run("nonzero exit with stderr blocks with message", func(t *testing.T) {
		script := writeScript(t, "echo 'policy violated' >&2; exit 1")
		rule := &config.Rule{
			Name:    "v",
			Actions: config.Actions{Run: &config.RunAction{Script: script}},
		}
		resp, err := x.Execute(context.Background(), event, rule)
		if err != nil {
			t.Fatal(err)
		}
		if resp.Continue {
			t.Fatal("nonzero exit did not block")
		}
		if resp.Reason != "Blocked by validator script: policy violated" {
			t.Errorf("Reason = %q", resp.Reason)
		}
	})

	t.Run("nonzero exit without stderr blocks with generic message", func(t *testing.T) {
		script := writeScript(t, "exit 3")
		rule := &config.Rule{
			Name:    "v",
			Actions: config.Actions{Run: &config.RunAction{Script: script}},
		}
		resp, err := x.Execute(context.Background(), event, rule)
		if err != nil {
			t.Fatal(err)
		}
		want := "Blocked by validator script '" + script + "'"
		if resp.Reason != want {
			t.Errorf("Reason = %q, want %q", resp.Reason, want)
		}
	})

	t.Run("validator receives event on stdin", func(t *testing.T) {
		script := writeScript(t, `grep -q '"tool_name":"Bash"' && exit 0 || { echo "missing event" >&2; exit 1; }`)
		rule := &config.Rule{
			Name:    "v",
			Actions: config.Actions{Run: &config.RunAction{Script: script}},
		}
		resp, err := x.Execute(context.Background(), event, rule)
		if err != nil {
			t.Fatal(err)
		}
		if !resp.Continue {
			t.Errorf("validator did not see event payload: %q", resp.Reason)
		}
	})
}

func TestRunValidatorFailures(t *testing.T) {
	event := bashEvent("ls")

	t.Run("spawn failure fails open by default", func(t *testing.T) {
		x := NewExecutor(testConfig(), nil)
		rule := &config.Rule{
			Name:    "v",
			Actions: config.Actions{Run: &config.RunAction{Script: "/nonexistent/validator.sh"}},
		}
		resp, err := x.Execute(context.Background(), event, rule)
		if err != nil {
			t.Fatalf("fail-open spawn failure returned error %v", err)
		}
		if !resp.Continue {
			t.Error("fail-open spawn failure blocked")
		}
	})

	t.Run("spawn failure is fatal when fail_open is off", func(t *testing.T) {
		cfg := testConfig()
		cfg.Settings.FailOpen = false
		x := NewExecutor(cfg, nil)
		rule := &config.Rule{
			Name:    "v",
			Actions: config.Actions{Run: &config.RunAction{Script: "/nonexistent/validator.sh"}},
		}
		_, err := x.Execute(context.Background(), event, rule)
		var verr *ValidatorError
		if !errors.As(err, &verr) {
			t.Fatalf("error = %v, want ValidatorError", err)
		}
		if verr.State != ValidatorSpawnFailed {
			t.Errorf("State = %q, want spawn_failed", verr.State)
		}
	})

	t.Run("timeout fails open by default", func(t *testing.T) {
		x := NewExecutor(testConfig(), nil)
		rule := &config.Rule{
			Name:     "v",
			Metadata: &config.RuleMetadata{Timeout: 1},
			Actions:  config.Actions{Run: &config.RunAction{Script: writeScript(t, "sleep 5")}},
		}
		resp, err := x.Execute(context.Background(), event, rule)
		if err != nil {
			t.Fatalf("fail-open timeout returned error %v", err)
		}
		if !resp.Continue {
			t.Error("fail-open timeout blocked")
		}
	})

	t.Run("timeout is fatal when fail_open is off", func(t *testing.T) {
		cfg := testConfig()
		cfg.Settings.FailOpen = false
		x := NewExecutor(cfg, nil)
		rule := &config.Rule{
			Name:     "v",
			Metadata: &config.RuleMetadata{Timeout: 1},
			Actions:  config.Actions{Run: &config.RunAction{Script: writeScript(t, "sleep 5")}},
		}
		_, err := x.Execute(context.Background(), event, rule)
		if !errors.Is(err, ErrValidatorTimeout) {
			t.Errorf("error = %v, want ErrValidatorTimeout", err)
		}
	})

	t.Run("warn mode converts validator block to warning", func(t *testing.T) {
		x := NewExecutor(testConfig(), nil)
		script := writeScript(t, "echo 'not allowed' >&2; exit 1")
		rule := &config.Rule{
			Name:    "v",
			Mode:    config.ModeWarn,
			Actions: config.Actions{Run: &config.RunAction{Script: script}},
		}
		resp, err := x.Execute(context.Background(), event, rule)
		if err != nil {
			t.Fatal(err)
		}
		if !resp.Continue {
			t.Fatal("warn mode blocked")
		}
		want := "[WARNING] Validator script '" + script + "' would block this operation: Blocked by validator script: not allowed\nThis rule is in 'warn' mode - operation will proceed."
		if resp.Context != want {
			t.Errorf("Context = %q, want %q", resp.Context, want)
		}
	})
}

func TestActionPrecedence(t *testing.T) {
	contextFile := filepath.Join(t.TempDir(), "ctx.md")
	if err := os.WriteFile(contextFile, []byte("ctx"), 0o644); err != nil {
		t.Fatal(err)
	}

	x := NewExecutor(testConfig(), nil)
	rule := &config.Rule{
		Name: "all-actions",
		Actions: config.Actions{
			Block:        boolPtr(true),
			BlockIfMatch: `.*`,
			Inject:       contextFile,
			Run:          &config.RunAction{Script: "/nonexistent.sh"},
		},
	}

	resp, err := x.Execute(context.Background(), bashEvent("ls"), rule)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Continue {
		t.Fatal("unconditional block did not take precedence")
	}
	if !strings.HasPrefix(resp.Reason, "Blocked by rule 'all-actions'") {
		t.Errorf("Reason = %q, want the unconditional block message", resp.Reason)
	}
}
