package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gatehouse-hq/gatehouse/pkg/audit"
)

var explainCmd = &cobra.Command{
	Use:   "explain <session-id>",
	Short: "Explain why rules fired for a session's events",
	Args:  cobra.ExactArgs(1),
	RunE:  runExplain,
}

func init() {
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	sessionID := args[0]

	path, err := audit.DefaultPath()
	if err != nil {
		return err
	}
	entries, err := audit.Query(path, audit.QueryFilters{
		SessionID: sessionID,
		Limit:     50,
	})
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Printf("No log entries found for session: %s\n", sessionID)
		fmt.Println("Make sure the event has been processed and logged.")
		return nil
	}

	fmt.Printf("Explanation for session: %s\n", sessionID)
	fmt.Printf("Found %d related log entries\n\n", len(entries))

	var blocked, injected, allowed int
	for i, e := range entries {
		fmt.Printf("Entry %d: %s\n", i+1, e.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Event Type: %s\n", e.EventType)
		tool := e.ToolName
		if tool == "" {
			tool = "N/A"
		}
		fmt.Printf("  Tool: %s\n", tool)
		fmt.Printf("  Outcome: %s\n", e.Outcome)
		fmt.Printf("  Processing Time: %dms\n", e.Timing.ProcessingMS)
		fmt.Printf("  Rules Evaluated: %d\n", e.Timing.RulesEvaluated)

		if len(e.RulesMatched) > 0 {
			fmt.Println("  Rules That Matched:")
			for _, rule := range e.RulesMatched {
				fmt.Printf("    - %s\n", rule)
			}
		} else {
			fmt.Println("  Rules That Matched: None")
		}

		if e.Mode != "" {
			fmt.Printf("  Mode: %s\n", e.Mode)
		}
		if e.Decision != "" {
			fmt.Printf("  Decision: %s\n", e.Decision)
		}
		if e.Metadata != nil {
			if len(e.Metadata.InjectedFiles) > 0 {
				fmt.Printf("  Injected Files: %v\n", e.Metadata.InjectedFiles)
			}
			if e.Metadata.ValidatorOutput != "" {
				fmt.Printf("  Validator Output: %s\n", e.Metadata.ValidatorOutput)
			}
		}
		fmt.Println()

		switch e.Outcome {
		case audit.OutcomeBlock:
			blocked++
		case audit.OutcomeInject:
			injected++
		default:
			allowed++
		}
	}

	fmt.Println("Summary:")
	fmt.Printf("  Blocked: %d\n", blocked)
	fmt.Printf("  Injected: %d\n", injected)
	fmt.Printf("  Allowed: %d\n", allowed)
	return nil
}
