// Package permission defines the permission prompt contract between the
// server and the application.
//
// When the server needs approval for an action it calls back into the
// client. A missing or failing handler never becomes a protocol error:
// the outcome degrades to a denial stating that no approval rule matched
// and the user could not be asked.
package permission

import "context"

// Result kinds.
const (
	// KindApproved grants the request.
	KindApproved = "approved"

	// KindDeniedNoApprovalRule is the safe default when no handler is
	// registered or the handler itself fails.
	KindDeniedNoApprovalRule = "denied-no-approval-rule-and-could-not-request-from-user"
)

// Request is a permission confirmation forwarded from the server.
// Kind names the category of action; ToolCallID is set when the request
// concerns a specific tool invocation.
type Request struct {
	Kind       string `json:"kind"`
	ToolCallID string `json:"toolCallId,omitempty"`
}

// Result is the application's decision on a Request.
type Result struct {
	Kind  string `json:"kind"`
	Rules []any  `json:"rules,omitempty"`
}

// Handler decides one permission request for a session.
type Handler func(ctx context.Context, req *Request, sessionID string) (*Result, error)

// Denied returns the safe default denial result.
func Denied() *Result {
	return &Result{Kind: KindDeniedNoApprovalRule}
}
