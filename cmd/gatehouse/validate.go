package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"gatehouse-hq/gatehouse/pkg/config"
)

var validateConfigPath string

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate parses and checks a hooks.yaml configuration. A missing file is
replaced with a freshly written default configuration.`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVarP(&validateConfigPath, "config", "c",
		".claude/hooks.yaml", "configuration file to validate")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	fmt.Printf("Validating configuration file: %s\n", validateConfigPath)

	if _, err := os.Stat(validateConfigPath); os.IsNotExist(err) {
		fmt.Printf("Configuration file does not exist: %s\n", validateConfigPath)
		fmt.Println("Creating default configuration...")

		data, err := yaml.Marshal(config.Default())
		if err != nil {
			return fmt.Errorf("failed to serialize default config: %w", err)
		}
		if err := os.MkdirAll(filepath.Dir(validateConfigPath), 0o755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := os.WriteFile(validateConfigPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write default config: %w", err)
		}
		fmt.Printf("Created default configuration at: %s\n", validateConfigPath)
		return nil
	}

	cfg, err := config.LoadFile(validateConfigPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	fmt.Println("✓ Configuration syntax is valid")
	fmt.Printf("✓ Version: %s\n", cfg.Version)
	fmt.Printf("✓ Rules loaded: %d\n", len(cfg.Rules))

	enabled := cfg.EnabledRules()
	fmt.Printf("✓ Enabled rules: %d\n", len(enabled))

	if len(enabled) == 0 {
		fmt.Println("⚠️  No enabled rules found - all operations will be allowed")
		return nil
	}

	fmt.Println("✓ Rules validated successfully")
	for _, r := range enabled {
		desc := r.Description
		if desc == "" {
			desc = "No description"
		}
		fmt.Printf("  - %s: %s\n", r.Name, desc)
	}
	return nil
}
