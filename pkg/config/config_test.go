package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte("version: \"1.0\"\n"))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Version != "1.0" {
		t.Errorf("Version = %q, want 1.0", cfg.Version)
	}
	s := cfg.Settings
	if s.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", s.LogLevel)
	}
	if s.MaxContextSize != 1024*1024 {
		t.Errorf("MaxContextSize = %d, want 1048576", s.MaxContextSize)
	}
	if s.ScriptTimeout != 5 {
		t.Errorf("ScriptTimeout = %d, want 5", s.ScriptTimeout)
	}
	if !s.FailOpen {
		t.Error("FailOpen = false, want true")
	}
	if s.DebugLogs {
		t.Error("DebugLogs = true, want false")
	}
}

func TestParsePartialSettings(t *testing.T) {
	doc := `
version: "1.0"
settings:
  script_timeout: 30
  fail_open: false
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if cfg.Settings.ScriptTimeout != 30 {
		t.Errorf("ScriptTimeout = %d, want 30", cfg.Settings.ScriptTimeout)
	}
	if cfg.Settings.FailOpen {
		t.Error("FailOpen = true, want false")
	}
	// Unset fields keep their defaults.
	if cfg.Settings.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want info", cfg.Settings.LogLevel)
	}
}

func TestParseRunActionShapes(t *testing.T) {
	doc := `
version: "1.0"
rules:
  - name: short-form
    actions:
      run: ./check.sh
  - name: long-form
    actions:
      run:
        script: ./verify.sh
        trust: verified
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	short := cfg.Rules[0].Actions.Run
	if short == nil || short.Script != "./check.sh" {
		t.Fatalf("short form run = %+v, want script ./check.sh", short)
	}
	if short.Trust != TrustLocal {
		t.Errorf("short form trust = %q, want local", short.Trust)
	}

	long := cfg.Rules[1].Actions.Run
	if long == nil || long.Script != "./verify.sh" {
		t.Fatalf("long form run = %+v, want script ./verify.sh", long)
	}
	if long.Trust != TrustVerified {
		t.Errorf("long form trust = %q, want verified", long.Trust)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{
			name: "valid",
			doc: `
version: "1.0"
rules:
  - name: rule_one
  - name: rule-two
`,
		},
		{
			name:    "bad version",
			doc:     "version: \"one.zero\"\n",
			wantErr: true,
		},
		{
			name: "duplicate rule names",
			doc: `
version: "1.0"
rules:
  - name: dup
  - name: dup
`,
			wantErr: true,
		},
		{
			name: "rule name with spaces",
			doc: `
version: "1.0"
rules:
  - name: "bad name"
`,
			wantErr: true,
		},
		{
			name: "unnamed rule",
			doc: `
version: "1.0"
rules:
  - description: no name here
`,
			wantErr: true,
		},
		{
			name: "invalid mode",
			doc: `
version: "1.0"
rules:
  - name: ok
    mode: lenient
`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			if (err != nil) != tt.wantErr {
				t.Errorf("Parse() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEffectivePriority(t *testing.T) {
	five := 5

	tests := []struct {
		name string
		rule Rule
		want int
	}{
		{name: "explicit field", rule: Rule{Priority: &five}, want: 5},
		{name: "legacy metadata", rule: Rule{Metadata: &RuleMetadata{Priority: 7}}, want: 7},
		{
			name: "field wins over metadata",
			rule: Rule{Priority: &five, Metadata: &RuleMetadata{Priority: 9}},
			want: 5,
		},
		{name: "unset", rule: Rule{}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.rule.EffectivePriority(); got != tt.want {
				t.Errorf("EffectivePriority() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestEffectiveMode(t *testing.T) {
	r := Rule{}
	if got := r.EffectiveMode(); got != ModeEnforce {
		t.Errorf("EffectiveMode() = %q, want enforce", got)
	}
	r.Mode = ModeWarn
	if got := r.EffectiveMode(); got != ModeWarn {
		t.Errorf("EffectiveMode() = %q, want warn", got)
	}
}

func TestEnabledRulesStableSort(t *testing.T) {
	doc := `
version: "1.0"
rules:
  - name: low
    priority: 1
  - name: first-of-equal
    priority: 10
  - name: second-of-equal
    priority: 10
  - name: disabled
    priority: 99
    metadata:
      enabled: false
`
	cfg, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}

	rules := cfg.EnabledRules()
	got := make([]string, len(rules))
	for i, r := range rules {
		got[i] = r.Name
	}
	want := []string{"first-of-equal", "second-of-equal", "low"}
	if len(got) != len(want) {
		t.Fatalf("EnabledRules() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("EnabledRules()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestRuleTimeoutSeconds(t *testing.T) {
	r := Rule{Metadata: &RuleMetadata{Timeout: 12}}
	if got := r.TimeoutSeconds(5); got != 12 {
		t.Errorf("TimeoutSeconds() = %d, want 12", got)
	}
	r = Rule{}
	if got := r.TimeoutSeconds(5); got != 5 {
		t.Errorf("TimeoutSeconds() = %d, want 5", got)
	}
}

func TestLoadResolutionChain(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	project := t.TempDir()

	writeConfig := func(t *testing.T, root, name string) {
		t.Helper()
		dir := filepath.Join(root, ".claude")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		doc := "version: \"1.0\"\nrules:\n  - name: " + name + "\n"
		if err := os.WriteFile(filepath.Join(dir, "hooks.yaml"), []byte(doc), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("no file anywhere yields empty default", func(t *testing.T) {
		cfg, err := Load(project)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(cfg.Rules) != 0 {
			t.Errorf("Rules = %d, want 0", len(cfg.Rules))
		}
		if !cfg.Settings.FailOpen {
			t.Error("default config FailOpen = false, want true")
		}
	})

	t.Run("falls back to user config", func(t *testing.T) {
		writeConfig(t, home, "user_rule")
		cfg, err := Load(project)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(cfg.Rules) != 1 || cfg.Rules[0].Name != "user_rule" {
			t.Errorf("rules = %+v, want one user_rule", cfg.Rules)
		}
	})

	t.Run("project config wins", func(t *testing.T) {
		writeConfig(t, project, "project_rule")
		cfg, err := Load(project)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if len(cfg.Rules) != 1 || cfg.Rules[0].Name != "project_rule" {
			t.Errorf("rules = %+v, want one project_rule", cfg.Rules)
		}
	})

	t.Run("broken project config is an error, not a fallthrough", func(t *testing.T) {
		broken := t.TempDir()
		dir := filepath.Join(broken, ".claude")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "hooks.yaml"), []byte("version: [broken"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(broken); err == nil {
			t.Error("Load() with malformed project config succeeded, want error")
		}
	})
}

func TestLoadEmptyCwdUsesProcessDirectory(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	project := t.TempDir()
	dir := filepath.Join(project, ".claude")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	doc := "version: \"1.0\"\nrules:\n  - name: local_rule\n"
	if err := os.WriteFile(filepath.Join(dir, "hooks.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}

	oldWd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(project); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(oldWd); err != nil {
			t.Fatal(err)
		}
	})
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Rules) != 1 || cfg.Rules[0].Name != "local_rule" {
		t.Errorf("rules = %+v, want the process directory's rule", cfg.Rules)
	}
}

func TestActionsRunAccessors(t *testing.T) {
	t.Run("no run action", func(t *testing.T) {
		var a Actions
		if _, ok := a.ScriptPath(); ok {
			t.Error("ScriptPath() ok = true without a run action")
		}
		if _, ok := a.Trust(); ok {
			t.Error("Trust() ok = true without a run action")
		}
	})

	t.Run("run action set", func(t *testing.T) {
		a := Actions{Run: &RunAction{Script: "./check.sh", Trust: TrustVerified}}
		script, ok := a.ScriptPath()
		if !ok || script != "./check.sh" {
			t.Errorf("ScriptPath() = %q, %v", script, ok)
		}
		trust, ok := a.Trust()
		if !ok || trust != TrustVerified {
			t.Errorf("Trust() = %q, %v", trust, ok)
		}
	})

	t.Run("empty script is not a validator", func(t *testing.T) {
		a := Actions{Run: &RunAction{}}
		if _, ok := a.ScriptPath(); ok {
			t.Error("ScriptPath() ok = true for an empty script path")
		}
	})
}
