package copilotsdk

import (
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/client"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/hook"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/models"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/permission"
)

// Re-export the session and tool types from the internal client package.

// Session is one conversational context tracked by the server.
type Session = client.Session

// SessionConfig configures session creation and resumption.
type SessionConfig = client.SessionConfig

// MessageOptions carries one message to a session.
type MessageOptions = client.MessageOptions

// SessionEvent is one event dispatched to a session.
type SessionEvent = client.SessionEvent

// EventHandler observes session events.
type EventHandler = client.EventHandler

// SessionLifecycleEvent is a process-wide notification about session
// creation, deletion, or state changes.
type SessionLifecycleEvent = client.SessionLifecycleEvent

// LifecycleHandler observes session lifecycle events.
type LifecycleHandler = client.LifecycleHandler

// Session lifecycle event types.
const (
	LifecycleSessionCreated    = client.LifecycleSessionCreated
	LifecycleSessionDeleted    = client.LifecycleSessionDeleted
	LifecycleSessionUpdated    = client.LifecycleSessionUpdated
	LifecycleSessionForeground = client.LifecycleSessionForeground
	LifecycleSessionBackground = client.LifecycleSessionBackground
)

// Tool is a named, schema-described capability the server may invoke on the
// client's behalf during a session.
type Tool = client.Tool

// ToolHandler executes one tool call.
type ToolHandler = client.ToolHandler

// ToolInvocation identifies one tool call within a session.
type ToolInvocation = client.ToolInvocation

// ToolResult is the structured result of a tool execution.
type ToolResult = client.ToolResult

// ToolResultType classifies the outcome of a tool execution.
type ToolResultType = client.ToolResultType

// Tool result types.
const (
	ToolResultSuccess  = client.ToolResultSuccess
	ToolResultFailure  = client.ToolResultFailure
	ToolResultRejected = client.ToolResultRejected
	ToolResultDenied   = client.ToolResultDenied
)

// BinaryResult is a binary payload attached to a tool result.
type BinaryResult = client.BinaryResult

// SystemMessageConfig customizes the session's system message.
type SystemMessageConfig = client.SystemMessageConfig

// ProviderConfig points a session at a custom model provider (BYOK).
type ProviderConfig = client.ProviderConfig

// MCPServerConfig describes an MCP server the CLI should launch or reach.
type MCPServerConfig = client.MCPServerConfig

// CustomAgentConfig defines a custom agent available to the session.
type CustomAgentConfig = client.CustomAgentConfig

// InfiniteSessionConfig tunes automatic history compaction.
type InfiniteSessionConfig = client.InfiniteSessionConfig

// PingResponse is the server's answer to a ping.
type PingResponse = client.PingResponse

// GetStatusResponse reports the server's version information.
type GetStatusResponse = client.GetStatusResponse

// GetAuthStatusResponse reports the CLI's authentication state.
type GetAuthStatusResponse = client.GetAuthStatusResponse

// SessionMetadata summarizes one server-side session.
type SessionMetadata = client.SessionMetadata

// ModelInfo describes one model offered by the server.
type ModelInfo = models.Info

// ModelCapabilities describes what a model supports and its limits.
type ModelCapabilities = models.Capabilities

// Permission handling.

// PermissionRequest is a server-side request to perform a guarded action.
type PermissionRequest = permission.Request

// PermissionResult is the client's decision on a permission request.
type PermissionResult = permission.Result

// PermissionHandler decides permission requests for a session.
type PermissionHandler = permission.Handler

// Permission decision kinds.
const (
	PermissionApproved = permission.KindApproved
	PermissionDenied   = permission.KindDeniedNoApprovalRule
)

// User input handling.

// UserInputRequest is a free-text or multiple-choice question from the agent.
type UserInputRequest = client.UserInputRequest

// UserInputResponse is the user's answer to a UserInputRequest.
type UserInputResponse = client.UserInputResponse

// UserInputHandler answers user input requests for a session.
type UserInputHandler = client.UserInputHandler

// Hooks.

// SessionHooks bundles the per-session hook handlers.
type SessionHooks = hook.SessionHooks

// HookHandler processes one hook invocation for a session.
type HookHandler = hook.Handler

// HookType identifies a hook point in the session lifecycle.
type HookType = hook.Type

// Hook types.
const (
	HookPreToolUse          = hook.TypePreToolUse
	HookPostToolUse         = hook.TypePostToolUse
	HookUserPromptSubmitted = hook.TypeUserPromptSubmitted
	HookSessionStart        = hook.TypeSessionStart
	HookSessionEnd          = hook.TypeSessionEnd
	HookErrorOccurred       = hook.TypeErrorOccurred
)
