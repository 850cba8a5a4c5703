package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"gatehouse-hq/gatehouse/pkg/audit"
	"gatehouse-hq/gatehouse/pkg/hook"
	"gatehouse-hq/gatehouse/pkg/policy/engine"
	"gatehouse-hq/gatehouse/pkg/telemetry/logging"
)

var (
	// Global flags
	debugFlag bool
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "gatehouse",
	Short: "Gatehouse - policy decision engine for assistant tool use",
	Long: `Gatehouse evaluates AI coding assistant hook events against declarative
policy rules and answers with a deterministic decision: allow, block, or
allow with injected context. Every decision is appended to an audit trail.

Without a subcommand it runs in hook mode: one JSON event on stdin, one
JSON response on stdout.`,
	Version:      Version,
	Args:         cobra.NoArgs,
	RunE:         runHook,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(func() {
		logging.Setup(logLevel, logFormat)
	})

	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false,
		"record raw events and per-rule traces in the audit log")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info",
		"diagnostic log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text",
		"diagnostic log format (text, json)")
}

// debugEnabled combines the CLI flag with the environment toggle. The
// config setting is applied per event inside the engine.
func debugEnabled() bool {
	if debugFlag {
		return true
	}
	v := os.Getenv("GATEHOUSE_DEBUG_LOGS")
	return v == "1" || strings.EqualFold(v, "true")
}

// runHook is the default mode: read one event from stdin, evaluate, write
// the response to stdout. Diagnostics go to stderr only.
func runHook(cmd *cobra.Command, args []string) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	if strings.TrimSpace(string(data)) == "" {
		return fmt.Errorf("no input received on stdin")
	}

	var event hook.Event
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("failed to parse hook event: %w", err)
	}

	log := slog.Default().With("component", "cli")
	log.Info("processing event",
		"event_type", event.EventType, "session_id", event.SessionID)

	auditLog, err := audit.Default()
	if err != nil {
		// The decision must still be produced when the trail is unavailable.
		log.Warn("audit log unavailable", "error", err)
		auditLog = nil
	}

	eng := engine.New(auditLog, engine.WithDebug(debugEnabled()))
	resp, err := eng.ProcessEvent(cmd.Context(), &event)
	if err != nil {
		return err
	}

	out, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
