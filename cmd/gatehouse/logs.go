package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gatehouse-hq/gatehouse/pkg/audit"
	"gatehouse-hq/gatehouse/pkg/audit/store"
	"gatehouse-hq/gatehouse/pkg/config"
)

var (
	logsLimit    int
	logsSince    string
	logsSession  string
	logsTool     string
	logsRule     string
	logsOutcome  string
	logsMode     string
	logsDecision string

	logsDBPath string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query and display the audit trail",
	Args:  cobra.NoArgs,
	RunE:  runLogs,
}

var logsArchiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Import the audit trail into the SQLite archive",
	Args:  cobra.NoArgs,
	RunE:  runLogsArchive,
}

var logsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate statistics from the archive",
	Args:  cobra.NoArgs,
	RunE:  runLogsStats,
}

func init() {
	logsCmd.Flags().IntVarP(&logsLimit, "limit", "l", 10, "number of recent entries to show")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "only entries since this RFC3339 timestamp")
	logsCmd.Flags().StringVar(&logsSession, "session", "", "filter by session id")
	logsCmd.Flags().StringVar(&logsTool, "tool", "", "filter by tool name")
	logsCmd.Flags().StringVar(&logsRule, "rule", "", "filter by matched rule name")
	logsCmd.Flags().StringVar(&logsOutcome, "outcome", "", "filter by outcome (allow, block, inject)")
	logsCmd.Flags().StringVar(&logsMode, "mode", "", "filter by governance mode (enforce, warn, audit)")
	logsCmd.Flags().StringVar(&logsDecision, "decision", "", "filter by decision (allowed, blocked, warned, audited)")

	logsArchiveCmd.Flags().StringVar(&logsDBPath, "db", "", "archive database path (default: next to the audit log)")
	logsStatsCmd.Flags().StringVar(&logsDBPath, "db", "", "archive database path (default: next to the audit log)")

	logsCmd.AddCommand(logsArchiveCmd)
	logsCmd.AddCommand(logsStatsCmd)
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, args []string) error {
	filters := audit.QueryFilters{
		Limit:     logsLimit,
		SessionID: logsSession,
		ToolName:  logsTool,
		RuleName:  logsRule,
		Outcome:   audit.Outcome(logsOutcome),
		Mode:      config.Mode(logsMode),
		Decision:  audit.Decision(logsDecision),
	}

	if logsSince != "" {
		since, err := time.Parse(time.RFC3339, logsSince)
		if err != nil {
			fmt.Println("Warning: Invalid since timestamp format. Use RFC3339 format (e.g., 2024-01-01T00:00:00Z)")
		} else {
			filters.Since = &since
		}
	}

	path, err := audit.DefaultPath()
	if err != nil {
		return err
	}
	entries, err := audit.Query(path, filters)
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		fmt.Println("No log entries found.")
		return nil
	}

	fmt.Printf("Found %d log entries:\n", len(entries))
	fmt.Printf("%-25s %-15s %-12s %-10s %-8s %-6s\n",
		"Timestamp", "Event", "Tool", "Rules", "Outcome", "Time")

	for _, e := range entries {
		tool := e.ToolName
		if tool == "" {
			tool = "-"
		}
		fmt.Printf("%-25s %-15s %-12s %-10d %-8s %5dms\n",
			e.Timestamp.Format("2006-01-02 15:04:05"),
			e.EventType,
			tool,
			len(e.RulesMatched),
			strings.ToUpper(string(e.Outcome)),
			e.Timing.ProcessingMS,
		)
	}
	return nil
}

func archivePath() (string, error) {
	if logsDBPath != "" {
		return logsDBPath, nil
	}
	logPath, err := audit.DefaultPath()
	if err != nil {
		return "", err
	}
	return strings.TrimSuffix(logPath, ".log") + ".db", nil
}

func runLogsArchive(cmd *cobra.Command, args []string) error {
	dbPath, err := archivePath()
	if err != nil {
		return err
	}
	logPath, err := audit.DefaultPath()
	if err != nil {
		return err
	}

	archive, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer archive.Close()

	n, err := archive.ArchiveLog(cmd.Context(), logPath)
	if err != nil {
		return err
	}
	fmt.Printf("Archived %d entries into %s\n", n, dbPath)
	return nil
}

func runLogsStats(cmd *cobra.Command, args []string) error {
	dbPath, err := archivePath()
	if err != nil {
		return err
	}

	archive, err := store.Open(dbPath)
	if err != nil {
		return err
	}
	defer archive.Close()

	stats, err := archive.Stats(cmd.Context())
	if err != nil {
		return err
	}

	fmt.Printf("Archive: %s\n", dbPath)
	fmt.Printf("  Entries:  %d\n", stats.Total)
	fmt.Printf("  Sessions: %d\n", stats.Sessions)
	fmt.Println("  By outcome:")
	for outcome, count := range stats.ByOutcome {
		fmt.Printf("    %-8s %d\n", outcome, count)
	}
	if len(stats.ByDecision) > 0 {
		fmt.Println("  By decision:")
		for decision, count := range stats.ByDecision {
			fmt.Printf("    %-8s %d\n", decision, count)
		}
	}
	return nil
}
