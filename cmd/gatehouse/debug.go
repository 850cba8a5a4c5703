package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gatehouse-hq/gatehouse/pkg/config"
	"gatehouse-hq/gatehouse/pkg/hook"
	"gatehouse-hq/gatehouse/pkg/policy/engine"
)

var (
	debugEventType string
	debugTool      string
	debugCommand   string
	debugPath      string
	debugVerbose   bool
)

var debugCmd = &cobra.Command{
	Use:   "debug",
	Short: "Simulate a hook event against the current rules",
	Long: `Debug builds a synthetic hook event, evaluates it with debug tracing and
prints the event, the response and a summary. Nothing is appended to the
audit trail.`,
	Args: cobra.NoArgs,
	RunE: runDebug,
}

func init() {
	debugCmd.Flags().StringVarP(&debugEventType, "event", "e", "PreToolUse",
		"event type (PreToolUse, PostToolUse, SessionStart, PermissionRequest)")
	debugCmd.Flags().StringVarP(&debugTool, "tool", "t", "", "tool name (e.g. Bash, Edit)")
	debugCmd.Flags().StringVar(&debugCommand, "command", "", "command payload for Bash events")
	debugCmd.Flags().StringVar(&debugPath, "path", "", "file path payload for file events")
	debugCmd.Flags().BoolVarP(&debugVerbose, "verbose", "v", false, "show the loaded rule set")
	rootCmd.AddCommand(debugCmd)
}

func parseSimEventType(s string) (hook.EventType, error) {
	switch strings.ToLower(s) {
	case "pretooluse", "pre", "pre-tool-use":
		return hook.PreToolUse, nil
	case "posttooluse", "post", "post-tool-use":
		return hook.PostToolUse, nil
	case "sessionstart", "session", "start":
		return hook.SessionStart, nil
	case "permissionrequest", "permission", "perm":
		return hook.PermissionRequest, nil
	}
	return "", fmt.Errorf(
		"unknown event type %q\nValid types: PreToolUse, PostToolUse, SessionStart, PermissionRequest", s)
}

func runDebug(cmd *cobra.Command, args []string) error {
	eventType, err := parseSimEventType(debugEventType)
	if err != nil {
		return err
	}

	fmt.Println("Gatehouse Debug Mode")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Println()

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return err
	}
	fmt.Printf("Loaded %d rules from configuration\n\n", len(cfg.Rules))

	event := buildSimEvent(eventType, cwd)
	eventJSON, err := json.MarshalIndent(event, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println("Simulated Event:")
	fmt.Println(strings.Repeat("-", 40))
	fmt.Println(string(eventJSON))
	fmt.Println()

	// No audit logger: simulations must not pollute the trail.
	eng := engine.New(nil, engine.WithDebug(true))
	resp, err := eng.ProcessEvent(cmd.Context(), event)
	if err != nil {
		return err
	}
	respJSON, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println("Response:")
	fmt.Println(strings.Repeat("-", 40))
	fmt.Println(string(respJSON))
	fmt.Println()

	if debugVerbose {
		printRuleSummary(cfg)
	}

	fmt.Println("Summary:")
	fmt.Println(strings.Repeat("-", 40))
	switch {
	case !resp.Continue:
		fmt.Printf("✗ Blocked: %s\n", resp.Reason)
	case resp.Context != "":
		fmt.Printf("✓ Allowed with injected context (%d chars)\n", len(resp.Context))
	default:
		fmt.Println("✓ Allowed (no matching rules)")
	}
	return nil
}

func buildSimEvent(eventType hook.EventType, cwd string) *hook.Event {
	input := map[string]any{}
	if debugCommand != "" {
		input["command"] = debugCommand
	}
	if debugPath != "" {
		input["file_path"] = debugPath
	}
	return &hook.Event{
		EventType: eventType,
		ToolName:  debugTool,
		ToolInput: input,
		SessionID: "debug-session",
		Timestamp: time.Now().UTC(),
		Cwd:       cwd,
	}
}

func printRuleSummary(cfg *config.Config) {
	fmt.Println("Enabled Rules (priority order):")
	fmt.Println(strings.Repeat("-", 40))
	for _, r := range cfg.EnabledRules() {
		fmt.Printf("  %4d  %-10s %s\n", r.EffectivePriority(), r.EffectiveMode(), r.Name)
	}
	fmt.Println()
}
