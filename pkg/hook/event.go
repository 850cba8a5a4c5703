package hook

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies the lifecycle point at which the assistant emitted
// the hook event.
type EventType string

const (
	PreToolUse        EventType = "PreToolUse"
	PostToolUse       EventType = "PostToolUse"
	PermissionRequest EventType = "PermissionRequest"
	UserPromptSubmit  EventType = "UserPromptSubmit"
	SessionStart      EventType = "SessionStart"
	SessionEnd        EventType = "SessionEnd"
	PreCompact        EventType = "PreCompact"
)

// Valid reports whether t is one of the supported event types.
func (t EventType) Valid() bool {
	switch t {
	case PreToolUse, PostToolUse, PermissionRequest, UserPromptSubmit,
		SessionStart, SessionEnd, PreCompact:
		return true
	}
	return false
}

// Event is a single tool-use event as delivered by the assistant's hook
// protocol. It is immutable once decoded; its lifetime is one evaluation.
type Event struct {
	// EventType is the hook lifecycle point. The wire protocol sends it as
	// either "event_type" or the host alias "hook_event_name".
	EventType EventType `json:"event_type"`

	// ToolName is the tool being invoked, when the event concerns a tool.
	ToolName string `json:"tool_name,omitempty"`

	// ToolInput is the untyped tool parameter payload.
	ToolInput map[string]any `json:"tool_input,omitempty"`

	// SessionID identifies the assistant session that produced the event.
	SessionID string `json:"session_id"`

	// Timestamp is when the assistant emitted the event.
	Timestamp time.Time `json:"timestamp"`

	// Cwd is the project working directory the assistant is operating in.
	// It anchors project-level configuration resolution.
	Cwd string `json:"cwd,omitempty"`

	// Assistant-protocol metadata, carried through unchanged.
	TranscriptPath string `json:"transcript_path,omitempty"`
	PermissionMode string `json:"permission_mode,omitempty"`
	ToolUseID      string `json:"tool_use_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// eventAlias mirrors Event with the host protocol's alternate field names.
type eventAlias struct {
	EventType      EventType      `json:"event_type"`
	HookEventName  EventType      `json:"hook_event_name"`
	ToolName       string         `json:"tool_name"`
	ToolInput      map[string]any `json:"tool_input"`
	SessionID      string         `json:"session_id"`
	Timestamp      time.Time      `json:"timestamp"`
	Cwd            string         `json:"cwd"`
	TranscriptPath string         `json:"transcript_path"`
	PermissionMode string         `json:"permission_mode"`
	ToolUseID      string         `json:"tool_use_id"`
	UserID         string         `json:"user_id"`
}

// UnmarshalJSON decodes an event accepting either "event_type" or the host
// protocol's "hook_event_name" for the event type field.
func (e *Event) UnmarshalJSON(data []byte) error {
	var alias eventAlias
	if err := json.Unmarshal(data, &alias); err != nil {
		return err
	}

	typ := alias.EventType
	if typ == "" {
		typ = alias.HookEventName
	}
	if typ == "" {
		return fmt.Errorf("event is missing event_type")
	}

	*e = Event{
		EventType:      typ,
		ToolName:       alias.ToolName,
		ToolInput:      alias.ToolInput,
		SessionID:      alias.SessionID,
		Timestamp:      alias.Timestamp,
		Cwd:            alias.Cwd,
		TranscriptPath: alias.TranscriptPath,
		PermissionMode: alias.PermissionMode,
		ToolUseID:      alias.ToolUseID,
		UserID:         alias.UserID,
	}
	return nil
}

// InputString returns the string value of the first key in keys present in
// the tool input, and whether any was found.
func (e *Event) InputString(keys ...string) (string, bool) {
	if e.ToolInput == nil {
		return "", false
	}
	for _, key := range keys {
		if v, ok := e.ToolInput[key]; ok {
			if s, ok := v.(string); ok {
				return s, true
			}
		}
	}
	return "", false
}

// Command returns the command string for shell-style tool invocations.
func (e *Event) Command() (string, bool) {
	return e.InputString("command")
}

// FilePath returns the file path the event operates on, accepting both
// snake_case and camelCase spellings used by the host protocol.
func (e *Event) FilePath() (string, bool) {
	return e.InputString("file_path", "filePath")
}

// NewContent returns the new or edited content carried by the event.
func (e *Event) NewContent() (string, bool) {
	return e.InputString("new_string", "newString", "content")
}

// PrimaryText returns the event's primary text payload: the command string
// for shell invocations, otherwise the new/edited content for file edits.
func (e *Event) PrimaryText() (string, bool) {
	if cmd, ok := e.Command(); ok {
		return cmd, true
	}
	return e.NewContent()
}
