// Package config defines the typed rule-set model for gatehouse and the
// ordered fallback loader that resolves the effective configuration for an
// event. Configurations are loaded fresh per event and never mutated after
// load, so they need no synchronization.
package config

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// Mode is the governance mode of a rule.
type Mode string

const (
	// ModeEnforce applies the rule's action literally. Default.
	ModeEnforce Mode = "enforce"

	// ModeWarn never blocks; would-block outcomes become injected warnings.
	ModeWarn Mode = "warn"

	// ModeAudit records the match and changes nothing.
	ModeAudit Mode = "audit"
)

// Valid reports whether m is a recognized mode.
func (m Mode) Valid() bool {
	return m == ModeEnforce || m == ModeWarn || m == ModeAudit
}

// Precedence returns the conflict-resolution weight of m; higher wins.
func (m Mode) Precedence() int {
	switch m {
	case ModeEnforce:
		return 3
	case ModeWarn:
		return 2
	case ModeAudit:
		return 1
	}
	return 0
}

// TrustLevel annotates the provenance of a validator script. Recorded for
// audit; not yet enforced.
type TrustLevel string

const (
	TrustLocal     TrustLevel = "local"
	TrustVerified  TrustLevel = "verified"
	TrustUntrusted TrustLevel = "untrusted"
)

// Confidence grades how certain the rule author is about a rule.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Governance is provenance metadata attached to a rule. It flows into the
// audit log unchanged.
type Governance struct {
	Author       string     `yaml:"author,omitempty" json:"author,omitempty"`
	CreatedBy    string     `yaml:"created_by,omitempty" json:"created_by,omitempty"`
	Reason       string     `yaml:"reason,omitempty" json:"reason,omitempty"`
	Confidence   Confidence `yaml:"confidence,omitempty" json:"confidence,omitempty"`
	LastReviewed string     `yaml:"last_reviewed,omitempty" json:"last_reviewed,omitempty"`
	Ticket       string     `yaml:"ticket,omitempty" json:"ticket,omitempty"`
	Tags         []string   `yaml:"tags,omitempty" json:"tags,omitempty"`
}

// RunAction is the normalized form of a validator invocation. The document
// accepts either a bare script path or a {script, trust} mapping; both
// decode into this one shape at the parse boundary.
type RunAction struct {
	Script string     `yaml:"script" json:"script"`
	Trust  TrustLevel `yaml:"trust,omitempty" json:"trust,omitempty"`
}

// UnmarshalYAML decodes both accepted shapes of a run action.
func (r *RunAction) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		var script string
		if err := value.Decode(&script); err != nil {
			return err
		}
		*r = RunAction{Script: script, Trust: TrustLocal}
		return nil
	}

	type rawRun struct {
		Script string     `yaml:"script"`
		Trust  TrustLevel `yaml:"trust"`
	}
	var raw rawRun
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw.Trust == "" {
		raw.Trust = TrustLocal
	}
	*r = RunAction{Script: raw.Script, Trust: raw.Trust}
	return nil
}

// Matchers is the conjunction of a rule's optional criteria. An absent
// criterion always passes; a present criterion whose event field is absent
// fails the rule.
type Matchers struct {
	// Tools matches the event's tool name against a set (e.g. Bash, Edit).
	Tools []string `yaml:"tools,omitempty" json:"tools,omitempty"`

	// Extensions matches the event file's extension, leading dot included.
	Extensions []string `yaml:"extensions,omitempty" json:"extensions,omitempty"`

	// Directories matches by substring containment after stripping trailing
	// /** and /* suffixes. Deliberately not glob semantics.
	Directories []string `yaml:"directories,omitempty" json:"directories,omitempty"`

	// Operations matches the event type name.
	Operations []string `yaml:"operations,omitempty" json:"operations,omitempty"`

	// CommandMatch is a regex tested against the event's primary text
	// payload: the command string, or the new content for edits.
	CommandMatch string `yaml:"command_match,omitempty" json:"command_match,omitempty"`
}

// Actions holds a rule's independently optional actions. At most one
// governs a single event: block > block_if_match > inject > run.
type Actions struct {
	// Block unconditionally blocks the operation when true.
	Block *bool `yaml:"block,omitempty" json:"block,omitempty"`

	// BlockIfMatch blocks when this regex matches the new/edited content.
	BlockIfMatch string `yaml:"block_if_match,omitempty" json:"block_if_match,omitempty"`

	// Inject is a path to a context file whose contents are injected.
	Inject string `yaml:"inject,omitempty" json:"inject,omitempty"`

	// Run invokes an external validator script.
	Run *RunAction `yaml:"run,omitempty" json:"run,omitempty"`
}

// ShouldBlock reports whether the unconditional block action is set.
func (a *Actions) ShouldBlock() bool {
	return a.Block != nil && *a.Block
}

// ScriptPath returns the validator script path and whether a run action is
// configured.
func (a *Actions) ScriptPath() (string, bool) {
	if a.Run == nil || a.Run.Script == "" {
		return "", false
	}
	return a.Run.Script, true
}

// Trust returns the run action's trust level and whether a run action is
// configured.
func (a *Actions) Trust() (TrustLevel, bool) {
	if a.Run == nil {
		return "", false
	}
	return a.Run.Trust, true
}

// RuleMetadata is the legacy metadata block kept for configurations written
// before the top-level priority and mode fields existed.
type RuleMetadata struct {
	Priority int   `yaml:"priority,omitempty" json:"priority,omitempty"`
	Timeout  int   `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Enabled  *bool `yaml:"enabled,omitempty" json:"enabled,omitempty"`
}

// Rule is one declarative matcher + action + governance tuple.
type Rule struct {
	Name        string        `yaml:"name" json:"name"`
	Description string        `yaml:"description,omitempty" json:"description,omitempty"`
	Matchers    Matchers      `yaml:"matchers" json:"matchers"`
	Actions     Actions       `yaml:"actions" json:"actions"`
	Mode        Mode          `yaml:"mode,omitempty" json:"mode,omitempty"`
	Priority    *int          `yaml:"priority,omitempty" json:"priority,omitempty"`
	Governance  *Governance   `yaml:"governance,omitempty" json:"governance,omitempty"`
	Metadata    *RuleMetadata `yaml:"metadata,omitempty" json:"metadata,omitempty"`

	// Resolved once by normalize so the legacy fallbacks are never
	// re-derived at use sites.
	effMode     Mode
	effPriority int
	normalized  bool
}

// EffectiveMode returns the rule's governance mode, defaulting to enforce.
func (r *Rule) EffectiveMode() Mode {
	if r.normalized {
		return r.effMode
	}
	if r.Mode != "" {
		return r.Mode
	}
	return ModeEnforce
}

// EffectivePriority returns the rule's priority: the explicit field, else
// the legacy metadata priority, else zero.
func (r *Rule) EffectivePriority() int {
	if r.normalized {
		return r.effPriority
	}
	if r.Priority != nil {
		return *r.Priority
	}
	if r.Metadata != nil {
		return r.Metadata.Priority
	}
	return 0
}

// IsEnabled reports whether the rule participates in evaluation. Driven by
// the legacy metadata flag; defaults to true.
func (r *Rule) IsEnabled() bool {
	if r.Metadata == nil || r.Metadata.Enabled == nil {
		return true
	}
	return *r.Metadata.Enabled
}

// TimeoutSeconds returns the validator timeout for this rule: the legacy
// per-rule override when set, else the supplied global default.
func (r *Rule) TimeoutSeconds(globalDefault int) int {
	if r.Metadata != nil && r.Metadata.Timeout > 0 {
		return r.Metadata.Timeout
	}
	return globalDefault
}

// Settings are the global engine settings of a configuration.
type Settings struct {
	// LogLevel controls diagnostic logging verbosity.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// MaxContextSize caps injected context, in bytes.
	MaxContextSize int `yaml:"max_context_size" json:"max_context_size"`

	// ScriptTimeout is the default validator timeout in seconds.
	ScriptTimeout int `yaml:"script_timeout" json:"script_timeout"`

	// FailOpen resolves validator infrastructure failures to allow (true)
	// or escalates them as fatal (false).
	FailOpen bool `yaml:"fail_open" json:"fail_open"`

	// DebugLogs records the raw event and per-rule evaluation trace in
	// audit entries.
	DebugLogs bool `yaml:"debug_logs" json:"debug_logs"`
}

// UnmarshalYAML decodes settings, applying defaults for omitted fields.
func (s *Settings) UnmarshalYAML(value *yaml.Node) error {
	type rawSettings struct {
		LogLevel       *string `yaml:"log_level"`
		MaxContextSize *int    `yaml:"max_context_size"`
		ScriptTimeout  *int    `yaml:"script_timeout"`
		FailOpen       *bool   `yaml:"fail_open"`
		DebugLogs      *bool   `yaml:"debug_logs"`
	}
	var raw rawSettings
	if err := value.Decode(&raw); err != nil {
		return err
	}

	*s = DefaultSettings()
	if raw.LogLevel != nil {
		s.LogLevel = *raw.LogLevel
	}
	if raw.MaxContextSize != nil {
		s.MaxContextSize = *raw.MaxContextSize
	}
	if raw.ScriptTimeout != nil {
		s.ScriptTimeout = *raw.ScriptTimeout
	}
	if raw.FailOpen != nil {
		s.FailOpen = *raw.FailOpen
	}
	if raw.DebugLogs != nil {
		s.DebugLogs = *raw.DebugLogs
	}
	return nil
}

// DefaultSettings returns the settings used when a configuration omits the
// settings block entirely.
func DefaultSettings() Settings {
	return Settings{
		LogLevel:       "info",
		MaxContextSize: 1024 * 1024,
		ScriptTimeout:  5,
		FailOpen:       true,
		DebugLogs:      false,
	}
}

// Config is a complete gatehouse configuration document.
type Config struct {
	// Version is the configuration format version ("major.minor").
	Version string `yaml:"version" json:"version"`

	// Rules are the declarative policy rules, in declaration order.
	Rules []Rule `yaml:"rules" json:"rules"`

	// Settings are the global engine settings.
	Settings Settings `yaml:"settings" json:"settings"`
}

// Default returns the configuration used when no file exists anywhere in
// the resolution chain: zero rules, default settings. The engine is
// fail-open in this state.
func Default() *Config {
	return &Config{
		Version:  "1.0",
		Settings: DefaultSettings(),
	}
}

// Parse decodes, validates and normalizes a configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := Config{Settings: DefaultSettings()}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}
	if cfg.Version == "" {
		cfg.Version = "1.0"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.normalize()
	return &cfg, nil
}

// normalize resolves each rule's effective mode and priority once.
func (c *Config) normalize() {
	for i := range c.Rules {
		r := &c.Rules[i]
		r.effMode = r.EffectiveMode()
		r.effPriority = r.EffectivePriority()
		r.normalized = true
	}
}

// EnabledRules returns the enabled rules sorted descending by effective
// priority. The sort is stable: rules with equal priority keep declaration
// order, which conflict resolution depends on.
func (c *Config) EnabledRules() []*Rule {
	rules := make([]*Rule, 0, len(c.Rules))
	for i := range c.Rules {
		if c.Rules[i].IsEnabled() {
			rules = append(rules, &c.Rules[i])
		}
	}
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].EffectivePriority() > rules[j].EffectivePriority()
	})
	return rules
}
