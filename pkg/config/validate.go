package config

import (
	"fmt"
	"regexp"
)

var (
	versionPattern  = regexp.MustCompile(`^\d+\.\d+$`)
	ruleNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
)

// Validate checks structural invariants of the configuration: a well-formed
// version string, rule names restricted to a safe character set, and no
// duplicate rule names. Matcher regexes are deliberately not validated
// here; a malformed pattern simply never matches at evaluation time.
func (c *Config) Validate() error {
	if !versionPattern.MatchString(c.Version) {
		return fmt.Errorf("invalid config version %q: expected major.minor", c.Version)
	}

	seen := make(map[string]struct{}, len(c.Rules))
	for i := range c.Rules {
		r := &c.Rules[i]
		if r.Name == "" {
			return fmt.Errorf("rule at index %d has no name", i)
		}
		if !ruleNamePattern.MatchString(r.Name) {
			return fmt.Errorf("invalid rule name %q: only letters, digits, underscore and hyphen are allowed", r.Name)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("duplicate rule name %q", r.Name)
		}
		seen[r.Name] = struct{}{}

		if r.Mode != "" && !r.Mode.Valid() {
			return fmt.Errorf("rule %q has invalid mode %q", r.Name, r.Mode)
		}
	}
	return nil
}
