// Package hook defines the session hook points and their handler bundle.
//
// Hooks let the application observe and influence the session lifecycle:
// the server calls back into the client at well-known points (before and
// after tool use, on prompt submission, on session start/end, on errors)
// with a JSON input, and the handler may return an output object the server
// folds back into its processing.
package hook

import (
	"context"
	"encoding/json"
)

// Type identifies a hook point in the session lifecycle.
type Type string

const (
	// TypePreToolUse runs before a tool is executed.
	TypePreToolUse Type = "preToolUse"
	// TypePostToolUse runs after a tool has executed.
	TypePostToolUse Type = "postToolUse"
	// TypeUserPromptSubmitted runs when the user submits a prompt.
	TypeUserPromptSubmitted Type = "userPromptSubmitted"
	// TypeSessionStart runs when the session starts.
	TypeSessionStart Type = "sessionStart"
	// TypeSessionEnd runs when the session ends.
	TypeSessionEnd Type = "sessionEnd"
	// TypeErrorOccurred runs when the server reports an error.
	TypeErrorOccurred Type = "errorOccurred"
)

// Handler processes one hook invocation for a session.
//
// A nil output (with nil error) means the hook has nothing to add; the
// response then carries no output field at all rather than an explicit null.
type Handler func(ctx context.Context, input json.RawMessage, sessionID string) (map[string]any, error)

// SessionHooks bundles the per-session hook handlers. Any subset may be set.
type SessionHooks struct {
	OnPreToolUse          Handler
	OnPostToolUse         Handler
	OnUserPromptSubmitted Handler
	OnSessionStart        Handler
	OnSessionEnd          Handler
	OnErrorOccurred       Handler
}

// HandlerFor returns the handler registered for the given hook type, or nil.
func (h *SessionHooks) HandlerFor(t Type) Handler {
	if h == nil {
		return nil
	}

	switch t {
	case TypePreToolUse:
		return h.OnPreToolUse
	case TypePostToolUse:
		return h.OnPostToolUse
	case TypeUserPromptSubmitted:
		return h.OnUserPromptSubmitted
	case TypeSessionStart:
		return h.OnSessionStart
	case TypeSessionEnd:
		return h.OnSessionEnd
	case TypeErrorOccurred:
		return h.OnErrorOccurred
	default:
		return nil
	}
}

// HasAny reports whether at least one handler is set. Sessions without any
// hooks skip hook registration on the server entirely.
func (h *SessionHooks) HasAny() bool {
	if h == nil {
		return false
	}

	return h.OnPreToolUse != nil ||
		h.OnPostToolUse != nil ||
		h.OnUserPromptSubmitted != nil ||
		h.OnSessionStart != nil ||
		h.OnSessionEnd != nil ||
		h.OnErrorOccurred != nil
}
