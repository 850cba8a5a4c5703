// Gatehouse is a policy decision engine for AI coding assistant hooks.
//
// Invoked without a subcommand it reads one hook event as JSON from stdin,
// evaluates the declarative rules in .claude/hooks.yaml, writes the
// decision as JSON to stdout and appends an entry to the audit trail.
//
// Usage:
//
//	# Process a hook event (how the assistant invokes it)
//	echo '{"event_type":"PreToolUse",...}' | gatehouse
//
//	# Scaffold a configuration
//	gatehouse init --with-examples
//
//	# Register the hook with the assistant's settings
//	gatehouse install --global
//
//	# Check a configuration file
//	gatehouse validate
//
//	# Inspect the audit trail
//	gatehouse logs --limit 20
//	gatehouse explain <session-id>
//
//	# Simulate an event against the current rules
//	gatehouse debug --event PreToolUse --tool Bash --command "git push --force"
//
//	# Long-running mode with config watching, scheduled rotation and metrics
//	gatehouse watch --metrics-addr :9310
package main

func main() {
	Execute()
}
