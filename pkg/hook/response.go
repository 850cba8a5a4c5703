package hook

// Response is the decision returned to the assistant for one event.
// Continue=false blocks the operation; Context with Continue=true injects
// guidance text; neither is a plain allow.
type Response struct {
	// Continue reports whether the operation may proceed.
	Continue bool `json:"continue"`

	// Context is additional text injected into the assistant's context.
	Context string `json:"context,omitempty"`

	// Reason explains a block or an injection.
	Reason string `json:"reason,omitempty"`

	// Timing carries evaluation performance metadata.
	Timing *Timing `json:"timing,omitempty"`
}

// Timing records how the decision was produced.
type Timing struct {
	// ProcessingMS is the total wall-clock evaluation time in milliseconds.
	ProcessingMS int64 `json:"processing_ms"`

	// RulesEvaluated is the number of enabled rules walked.
	RulesEvaluated int `json:"rules_evaluated"`
}

// Allow returns a plain allow response.
func Allow() Response {
	return Response{Continue: true}
}

// Block returns a blocking response with the given reason.
func Block(reason string) Response {
	return Response{Continue: false, Reason: reason}
}

// Inject returns an allowing response that injects context text.
func Inject(context string) Response {
	return Response{Continue: true, Context: context}
}

// ResponseSummary is the compact form of a Response recorded in the audit
// log; the injected context is summarized by length only.
type ResponseSummary struct {
	Continue      bool   `json:"continue"`
	Reason        string `json:"reason,omitempty"`
	ContextLength int    `json:"context_length,omitempty"`
}

// Summarize builds the audit-log summary of r.
func Summarize(r Response) ResponseSummary {
	return ResponseSummary{
		Continue:      r.Continue,
		Reason:        r.Reason,
		ContextLength: len(r.Context),
	}
}
