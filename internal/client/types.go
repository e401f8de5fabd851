package client

import (
	"context"
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/hook"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/permission"
)

// ExpectedProtocolVersion is the protocol version this SDK speaks. The
// server must report the same version in its ping response or Start fails.
const ExpectedProtocolVersion = 1

// ToolResultType classifies the outcome of a tool execution.
type ToolResultType string

const (
	ToolResultSuccess  ToolResultType = "success"
	ToolResultFailure  ToolResultType = "failure"
	ToolResultRejected ToolResultType = "rejected"
	ToolResultDenied   ToolResultType = "denied"
)

// ToolResult is the structured result of a tool execution.
//
// TextResultForLLM is what the model sees; Error carries internal detail
// that is never shown to the model.
type ToolResult struct {
	TextResultForLLM    string         `json:"textResultForLlm"`
	BinaryResultsForLLM []BinaryResult `json:"binaryResultsForLlm,omitempty"`
	ResultType          ToolResultType `json:"resultType"`
	Error               string         `json:"error,omitempty"`
	SessionLog          string         `json:"sessionLog,omitempty"`
	ToolTelemetry       map[string]any `json:"toolTelemetry"`
}

// BinaryResult is a binary payload attached to a tool result.
type BinaryResult struct {
	Type     string `json:"type"`
	Data     string `json:"data"` // base64
	MimeType string `json:"mimeType,omitempty"`
}

// ToolInvocation identifies one tool call within a session.
type ToolInvocation struct {
	SessionID  string          `json:"sessionId"`
	ToolCallID string          `json:"toolCallId"`
	ToolName   string          `json:"toolName"`
	Arguments  json.RawMessage `json:"arguments"`
}

// ToolHandler executes one tool call.
//
// The returned value may be a *ToolResult, or any plain value: plain values
// are normalized into a success result whose text is the value rendered as
// a string. A returned error becomes a structured failure result, never a
// protocol error.
type ToolHandler func(ctx context.Context, args json.RawMessage, inv *ToolInvocation) (any, error)

// Tool is a named, schema-described capability the server may invoke on the
// client's behalf during a session. Immutable once registered on a session.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	Handler     ToolHandler
}

// UserInputRequest is a free-text or multiple-choice question from the agent.
type UserInputRequest struct {
	Question      string   `json:"question"`
	Choices       []string `json:"choices,omitempty"`
	AllowFreeform bool     `json:"allowFreeform,omitempty"`
}

// UserInputResponse is the user's answer to a UserInputRequest.
type UserInputResponse struct {
	Answer      string `json:"answer"`
	WasFreeform bool   `json:"wasFreeform"`
}

// UserInputHandler answers one user input request for a session.
// Unlike the permission path, a missing or failing handler surfaces as a
// protocol-level internal error.
type UserInputHandler func(ctx context.Context, req *UserInputRequest, sessionID string) (*UserInputResponse, error)

// SessionEvent is one event dispatched to a session.
type SessionEvent struct {
	Type string         `json:"type"`
	Data map[string]any `json:"data"`
}

// EventHandler observes session events.
type EventHandler func(event *SessionEvent)

// Session lifecycle event types.
const (
	LifecycleSessionCreated    = "session.created"
	LifecycleSessionDeleted    = "session.deleted"
	LifecycleSessionUpdated    = "session.updated"
	LifecycleSessionForeground = "session.foreground"
	LifecycleSessionBackground = "session.background"
)

// SessionLifecycleEvent is a process-wide notification about session
// creation, deletion, or state changes.
type SessionLifecycleEvent struct {
	Type      string         `json:"type"`
	SessionID string         `json:"sessionId"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// LifecycleHandler observes session lifecycle events.
type LifecycleHandler func(event *SessionLifecycleEvent)

// SystemMessageConfig customizes the session's system message.
// Mode is "append" or "replace".
type SystemMessageConfig struct {
	Mode    string `json:"mode"`
	Content string `json:"content"`
}

// ProviderConfig points a session at a custom model provider (BYOK).
type ProviderConfig struct {
	Type        string `json:"type,omitempty"`
	BaseURL     string `json:"baseUrl,omitempty"`
	APIKey      string `json:"apiKey,omitempty"`
	BearerToken string `json:"bearerToken,omitempty"`
	WireAPI     string `json:"wireApi,omitempty"`
}

// MCPServerConfig describes an MCP server the CLI should launch or reach.
// It is forwarded opaquely; the SDK never speaks MCP itself.
type MCPServerConfig struct {
	Tools   []string          `json:"tools,omitempty"`
	Type    string            `json:"type,omitempty"`
	Timeout *int              `json:"timeout,omitempty"`
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	CWD     string            `json:"cwd,omitempty"`
	URL     string            `json:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// CustomAgentConfig defines a custom agent available to the session.
type CustomAgentConfig struct {
	Name        string                      `json:"name"`
	DisplayName string                      `json:"displayName,omitempty"`
	Description string                      `json:"description,omitempty"`
	Tools       []string                    `json:"tools,omitempty"`
	Prompt      string                      `json:"prompt,omitempty"`
	MCPServers  map[string]*MCPServerConfig `json:"mcpServers,omitempty"`
	Infer       *bool                       `json:"infer,omitempty"`
}

// InfiniteSessionConfig tunes automatic history compaction.
type InfiniteSessionConfig struct {
	Enabled                       *bool    `json:"enabled,omitempty"`
	BackgroundCompactionThreshold *float64 `json:"backgroundCompactionThreshold,omitempty"`
	BufferExhaustionThreshold     *float64 `json:"bufferExhaustionThreshold,omitempty"`
}

// SessionConfig configures session creation and resumption.
// Only set fields are serialized into the request payload.
type SessionConfig struct {
	Model           string
	SessionID       string
	ReasoningEffort string
	ConfigDir       string

	// Tools are registered on the session before it is published; the
	// server receives only their name, description, and schema.
	Tools []*Tool

	SystemMessage  *SystemMessageConfig
	AvailableTools []string
	ExcludedTools  []string
	Provider       *ProviderConfig

	OnPermissionRequest permission.Handler
	OnUserInputRequest  UserInputHandler
	Hooks               *hook.SessionHooks

	WorkingDirectory string
	Streaming        *bool
	MCPServers       map[string]*MCPServerConfig
	CustomAgents     []*CustomAgentConfig
	SkillDirectories []string
	DisabledSkills   []string
	InfiniteSessions *InfiniteSessionConfig
}

// MessageOptions carries one message to a session.
type MessageOptions struct {
	Prompt      string   `json:"prompt"`
	Attachments []string `json:"attachments,omitempty"`
	Mode        string   `json:"mode,omitempty"`
}

// PingResponse is the server's answer to a ping.
// ProtocolVersion is nil when the server predates version reporting.
type PingResponse struct {
	Message         string `json:"message"`
	Timestamp       int64  `json:"timestamp"`
	ProtocolVersion *int   `json:"protocolVersion,omitempty"`
}

// GetStatusResponse reports the server's version information.
type GetStatusResponse struct {
	Version         string `json:"version"`
	ProtocolVersion int    `json:"protocolVersion"`
}

// GetAuthStatusResponse reports the CLI's authentication state.
type GetAuthStatusResponse struct {
	IsAuthenticated bool   `json:"isAuthenticated"`
	AuthType        string `json:"authType,omitempty"`
	Host            string `json:"host,omitempty"`
	Login           string `json:"login,omitempty"`
	StatusMessage   string `json:"statusMessage,omitempty"`
}

// SessionMetadata summarizes one server-side session.
type SessionMetadata struct {
	SessionID    string `json:"sessionId"`
	StartTime    string `json:"startTime"`
	ModifiedTime string `json:"modifiedTime"`
	Summary      string `json:"summary,omitempty"`
	IsRemote     bool   `json:"isRemote"`
}
