package copilotsdk

import "github.com/jeremiahjordanisaacson/copilot-sdk/internal/errors"

// Re-export error types from internal package

// CopilotSDKError is the base interface for all SDK errors.
type CopilotSDKError = errors.CopilotSDKError

// CLINotFoundError indicates the Copilot CLI binary was not found.
type CLINotFoundError = errors.CLINotFoundError

// ProcessSpawnError indicates the CLI process could not be started.
type ProcessSpawnError = errors.ProcessSpawnError

// ProcessError indicates the CLI process exited unexpectedly.
type ProcessError = errors.ProcessError

// ConnectionError indicates failure to reach the server.
type ConnectionError = errors.ConnectionError

// ProtocolVersionError indicates the server speaks a different protocol
// version than this SDK.
type ProtocolVersionError = errors.ProtocolVersionError

// RPCError is a JSON-RPC error returned by the server.
type RPCError = errors.RPCError

// Re-export sentinel errors from internal package.
var (
	// ErrNotConnected indicates the client is not connected.
	ErrNotConnected = errors.ErrNotConnected

	// ErrConnectionClosed indicates the connection ended while requests
	// were outstanding.
	ErrConnectionClosed = errors.ErrConnectionClosed

	// ErrRequestTimeout indicates a request timed out.
	ErrRequestTimeout = errors.ErrRequestTimeout
)
