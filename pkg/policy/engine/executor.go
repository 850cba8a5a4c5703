package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"gatehouse-hq/gatehouse/pkg/config"
	"gatehouse-hq/gatehouse/pkg/hook"
	"gatehouse-hq/gatehouse/pkg/telemetry/metrics"
)

// ValidatorState is the lifecycle state of a validator script run.
type ValidatorState string

const (
	ValidatorSpawned     ValidatorState = "spawned"
	ValidatorRunning     ValidatorState = "running"
	ValidatorCompleted   ValidatorState = "completed"
	ValidatorTimedOut    ValidatorState = "timed_out"
	ValidatorSpawnFailed ValidatorState = "spawn_failed"
	ValidatorFailed      ValidatorState = "failed"
)

// Executor turns one matched rule into a response, honoring the rule's
// governance mode. Action precedence within a rule is fixed: block, then
// block_if_match, then inject, then run; the first action that produces a
// response wins.
type Executor struct {
	cfg     *config.Config
	metrics *metrics.PolicyMetrics
	log     *slog.Logger
}

// NewExecutor builds an executor for one loaded configuration. pm may be
// nil.
func NewExecutor(cfg *config.Config, pm *metrics.PolicyMetrics) *Executor {
	return &Executor{
		cfg:     cfg,
		metrics: pm,
		log:     slog.Default().With("component", "executor"),
	}
}

// Execute runs the rule's actions under its effective mode.
func (x *Executor) Execute(ctx context.Context, e *hook.Event, r *config.Rule) (hook.Response, error) {
	switch r.EffectiveMode() {
	case config.ModeAudit:
		// Audit mode records the match and nothing else.
		return hook.Allow(), nil
	case config.ModeWarn:
		return x.executeWarn(ctx, e, r)
	default:
		return x.executeEnforce(ctx, e, r)
	}
}

func (x *Executor) executeEnforce(ctx context.Context, e *hook.Event, r *config.Rule) (hook.Response, error) {
	actions := &r.Actions

	if actions.ShouldBlock() {
		return hook.Block(fmt.Sprintf("Blocked by rule '%s': %s", r.Name, descriptionOf(r))), nil
	}

	if actions.BlockIfMatch != "" {
		if content, ok := e.NewContent(); ok && regexMatches(actions.BlockIfMatch, content) {
			return hook.Block(fmt.Sprintf(
				"Content blocked by rule '%s': matches pattern '%s'",
				r.Name, actions.BlockIfMatch)), nil
		}
	}

	if actions.Inject != "" {
		text, err := x.readContextFile(actions.Inject)
		if err != nil {
			x.log.Warn("failed to read context file",
				"rule", r.Name, "path", actions.Inject, "error", err)
			return hook.Allow(), nil
		}
		return hook.Inject(text), nil
	}

	if script, ok := actions.ScriptPath(); ok {
		resp, err := x.runValidator(ctx, e, r, script)
		if err != nil {
			x.log.Warn("validator execution failed", "rule", r.Name, "error", err)
			if !x.cfg.Settings.FailOpen {
				return hook.Response{}, err
			}
			return hook.Allow(), nil
		}
		return resp, nil
	}

	return hook.Allow(), nil
}

// executeWarn runs the same actions but converts every would-block outcome
// into an injected warning; warn-mode rules never stop an operation.
func (x *Executor) executeWarn(ctx context.Context, e *hook.Event, r *config.Rule) (hook.Response, error) {
	actions := &r.Actions

	if actions.ShouldBlock() {
		return hook.Inject(fmt.Sprintf(
			"[WARNING] Rule '%s' would block this operation: %s\nThis rule is in 'warn' mode - operation will proceed.",
			r.Name, descriptionOf(r))), nil
	}

	if actions.BlockIfMatch != "" {
		if content, ok := e.NewContent(); ok && regexMatches(actions.BlockIfMatch, content) {
			return hook.Inject(fmt.Sprintf(
				"[WARNING] Rule '%s' would block this content (matches pattern '%s').\nThis rule is in 'warn' mode - operation will proceed.",
				r.Name, actions.BlockIfMatch)), nil
		}
	}

	if actions.Inject != "" {
		text, err := x.readContextFile(actions.Inject)
		if err != nil {
			x.log.Warn("failed to read context file",
				"rule", r.Name, "path", actions.Inject, "error", err)
			return hook.Allow(), nil
		}
		return hook.Inject(text), nil
	}

	if script, ok := actions.ScriptPath(); ok {
		resp, err := x.runValidator(ctx, e, r, script)
		if err != nil {
			x.log.Warn("validator execution failed", "rule", r.Name, "error", err)
			if !x.cfg.Settings.FailOpen {
				return hook.Response{}, err
			}
			return hook.Allow(), nil
		}
		if !resp.Continue {
			reason := resp.Reason
			if reason == "" {
				reason = "No reason"
			}
			return hook.Inject(fmt.Sprintf(
				"[WARNING] Validator script '%s' would block this operation: %s\nThis rule is in 'warn' mode - operation will proceed.",
				script, reason)), nil
		}
		return resp, nil
	}

	return hook.Allow(), nil
}

// readContextFile loads an injection source, truncated to the configured
// context size cap.
func (x *Executor) readContextFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if max := x.cfg.Settings.MaxContextSize; max > 0 && len(data) > max {
		x.log.Warn("context file exceeds max_context_size, truncating",
			"path", path, "size", len(data), "max", max)
		data = data[:max]
	}
	return string(data), nil
}

// runValidator executes the script with the event JSON on stdin and maps
// its exit protocol to a response: exit 0 with output injects, exit 0
// without output allows, nonzero blocks. Infrastructure failures return a
// ValidatorError; the caller applies the fail-open policy.
func (x *Executor) runValidator(ctx context.Context, e *hook.Event, r *config.Rule, script string) (hook.Response, error) {
	timeout := time.Duration(r.TimeoutSeconds(x.cfg.Settings.ScriptTimeout)) * time.Second
	state := ValidatorSpawned
	defer func() {
		x.metrics.RecordValidatorRun(string(state))
	}()

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, script)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	payload, err := json.Marshal(e)
	if err != nil {
		state = ValidatorSpawnFailed
		return hook.Response{}, &ValidatorError{Script: script, State: state, Err: err}
	}
	cmd.Stdin = bytes.NewReader(payload)

	if err := cmd.Start(); err != nil {
		state = ValidatorSpawnFailed
		return hook.Response{}, &ValidatorError{Script: script, State: state, Err: err}
	}
	state = ValidatorRunning

	err = cmd.Wait()
	if runCtx.Err() == context.DeadlineExceeded {
		state = ValidatorTimedOut
		return hook.Response{}, &ValidatorError{
			Script: script,
			State:  state,
			Err:    fmt.Errorf("%w after %s", ErrValidatorTimeout, timeout),
		}
	}
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			state = ValidatorFailed
			return hook.Response{}, &ValidatorError{Script: script, State: state, Err: err}
		}
		state = ValidatorCompleted
		reason := strings.TrimSpace(stderr.String())
		if reason == "" {
			return hook.Block(fmt.Sprintf("Blocked by validator script '%s'", script)), nil
		}
		return hook.Block(fmt.Sprintf("Blocked by validator script: %s", reason)), nil
	}

	state = ValidatorCompleted
	out := strings.TrimSpace(stdout.String())
	if out == "" {
		return hook.Allow(), nil
	}
	return hook.Inject(out), nil
}

func descriptionOf(r *config.Rule) string {
	if r.Description == "" {
		return "No description"
	}
	return r.Description
}
