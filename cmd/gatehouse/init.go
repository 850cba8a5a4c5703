package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

const defaultHooksYAML = `# Gatehouse Configuration
# Location: .claude/hooks.yaml

version: "1.0"

# Global settings
settings:
  debug_logs: false
  log_level: info
  fail_open: true
  script_timeout: 5

# Policy rules
rules:
  # ============================================================
  # SECURITY RULES - Protect against dangerous operations
  # ============================================================

  # Block force push to protected branches
  - name: block-force-push
    description: Prevent force push to main/master
    matchers:
      tools: [Bash]
      command_match: "git push.*(--force|-f).*(main|master)"
    actions:
      block: true
    metadata:
      priority: 100
      enabled: true

  # Block hard reset on protected branches
  - name: block-hard-reset
    description: Prevent destructive git reset operations
    matchers:
      tools: [Bash]
      command_match: "git reset --hard"
    actions:
      block: true
    metadata:
      priority: 90
      enabled: true

  # ============================================================
  # CODE QUALITY RULES - Inject coding standards
  # ============================================================

  # Inject Go coding standards when editing .go files
  # - name: go-standards
  #   description: Inject Go coding standards for .go files
  #   matchers:
  #     tools: [Write, Edit]
  #     extensions: [.go]
  #   actions:
  #     inject: .claude/context/go-standards.md
  #   metadata:
  #     priority: 50
  #     enabled: true

  # ============================================================
  # VALIDATION RULES - Run custom validators
  # ============================================================

  # Run secret scanner before commits
  # - name: pre-commit-secrets
  #   description: Check for secrets before git commit
  #   matchers:
  #     tools: [Bash]
  #     command_match: "git commit"
  #   actions:
  #     run: .claude/validators/check-secrets.sh
  #   metadata:
  #     priority: 80
  #     timeout: 30
  #     enabled: true
`

const goStandardsExample = `# Go Coding Standards

## Style Guide
- Run gofmt before committing
- Accept interfaces, return structs
- Keep package names short and lowercase

## Errors
- Wrap errors with fmt.Errorf and %w
- Return errors, do not panic in library code

## Testing
- Table-driven tests with t.Run subtests
- Use t.TempDir for filesystem fixtures
`

const secretCheckerExample = `#!/bin/bash
# Check for common secret patterns in staged files
# Returns non-zero if secrets are detected

set -e

PATTERNS=(
    "AKIA[0-9A-Z]{16}"                  # AWS Access Key
    "sk-[a-zA-Z0-9]{48}"                # OpenAI API Key
    "ghp_[a-zA-Z0-9]{36}"               # GitHub Personal Access Token
    "password\s*=\s*['\"][^'\"]+['\"]"  # Hardcoded passwords
)

for pattern in "${PATTERNS[@]}"; do
    if git diff --cached --name-only | xargs grep -lE "$pattern" 2>/dev/null; then
        echo "ERROR: Potential secret detected matching pattern: $pattern"
        exit 1
    fi
done

echo "No secrets detected"
exit 0
`

var (
	initForce        bool
	initWithExamples bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a hooks configuration in the current project",
	Args:  cobra.NoArgs,
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing configuration")
	initCmd.Flags().BoolVar(&initWithExamples, "with-examples", false, "also create example context and validator files")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	hooksDir := ".claude"
	hooksFile := filepath.Join(hooksDir, "hooks.yaml")

	if _, err := os.Stat(hooksFile); err == nil && !initForce {
		fmt.Printf("Configuration already exists at: %s\n", hooksFile)
		fmt.Println("Use --force to overwrite existing configuration")
		return nil
	}

	fmt.Println("Initializing gatehouse configuration...")
	fmt.Println()

	if _, err := os.Stat(hooksDir); os.IsNotExist(err) {
		if err := os.MkdirAll(hooksDir, 0o755); err != nil {
			return fmt.Errorf("failed to create .claude directory: %w", err)
		}
		fmt.Println("✓ Created directory: .claude/")
	}

	if err := os.WriteFile(hooksFile, []byte(defaultHooksYAML), 0o644); err != nil {
		return fmt.Errorf("failed to write hooks.yaml: %w", err)
	}
	fmt.Println("✓ Created configuration: .claude/hooks.yaml")

	if initWithExamples {
		if err := createExampleFiles(hooksDir); err != nil {
			return err
		}
	}

	fmt.Println()
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println("Gatehouse initialized successfully!")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Review and customize .claude/hooks.yaml")
	fmt.Println("  2. Run 'gatehouse validate' to check configuration")
	fmt.Println("  3. Run 'gatehouse install' to register with your assistant")
	return nil
}

func createExampleFiles(hooksDir string) error {
	contextDir := filepath.Join(hooksDir, "context")
	if err := os.MkdirAll(contextDir, 0o755); err != nil {
		return fmt.Errorf("failed to create context directory: %w", err)
	}
	fmt.Println("✓ Created directory: .claude/context/")

	standards := filepath.Join(contextDir, "go-standards.md")
	if err := os.WriteFile(standards, []byte(goStandardsExample), 0o644); err != nil {
		return fmt.Errorf("failed to write go-standards.md: %w", err)
	}
	fmt.Println("✓ Created example: .claude/context/go-standards.md")

	validatorsDir := filepath.Join(hooksDir, "validators")
	if err := os.MkdirAll(validatorsDir, 0o755); err != nil {
		return fmt.Errorf("failed to create validators directory: %w", err)
	}
	fmt.Println("✓ Created directory: .claude/validators/")

	checker := filepath.Join(validatorsDir, "check-secrets.sh")
	if err := os.WriteFile(checker, []byte(secretCheckerExample), 0o755); err != nil {
		return fmt.Errorf("failed to write check-secrets.sh: %w", err)
	}
	fmt.Println("✓ Created example: .claude/validators/check-secrets.sh")
	return nil
}
