package hook

// Details is the typed extraction of an event's tool input for known tools.
// It gives the audit log a stable, queryable shape without retaining the
// full raw payload outside debug mode.
type Details struct {
	// ToolType discriminates the variant: "bash", "write", "edit", "read",
	// "glob", "grep", "session", or "unknown".
	ToolType string `json:"tool_type"`

	Command        string `json:"command,omitempty"`
	FilePath       string `json:"file_path,omitempty"`
	Pattern        string `json:"pattern,omitempty"`
	Path           string `json:"path,omitempty"`
	Source         string `json:"source,omitempty"`
	Reason         string `json:"reason,omitempty"`
	TranscriptPath string `json:"transcript_path,omitempty"`
	Cwd            string `json:"cwd,omitempty"`
	ToolName       string `json:"tool_name,omitempty"`
}

// ExtractDetails builds the typed detail record for an event.
func ExtractDetails(e *Event) Details {
	switch e.ToolName {
	case "Bash":
		cmd, _ := e.Command()
		return Details{ToolType: "bash", Command: cmd}
	case "Write":
		p, _ := e.FilePath()
		return Details{ToolType: "write", FilePath: p}
	case "Edit":
		p, _ := e.FilePath()
		return Details{ToolType: "edit", FilePath: p}
	case "Read":
		p, _ := e.FilePath()
		return Details{ToolType: "read", FilePath: p}
	case "Glob":
		pattern, _ := e.InputString("pattern")
		path, _ := e.InputString("path")
		return Details{ToolType: "glob", Pattern: pattern, Path: path}
	case "Grep":
		pattern, _ := e.InputString("pattern")
		path, _ := e.InputString("path")
		return Details{ToolType: "grep", Pattern: pattern, Path: path}
	}

	if e.ToolName == "" && (e.EventType == SessionStart || e.EventType == SessionEnd) {
		source, _ := e.InputString("source")
		reason, _ := e.InputString("reason")
		transcript, _ := e.InputString("transcript_path")
		cwd, _ := e.InputString("cwd")
		return Details{
			ToolType:       "session",
			Source:         source,
			Reason:         reason,
			TranscriptPath: transcript,
			Cwd:            cwd,
		}
	}

	return Details{ToolType: "unknown", ToolName: e.ToolName}
}
