package errors

import (
	"errors"
	"fmt"
)

// CopilotSDKError is the base interface for all SDK errors.
type CopilotSDKError interface {
	error
	IsCopilotSDKError() bool
}

// Compile-time verification that all error types implement CopilotSDKError.
var (
	_ CopilotSDKError = (*CLINotFoundError)(nil)
	_ CopilotSDKError = (*ProcessSpawnError)(nil)
	_ CopilotSDKError = (*ProcessError)(nil)
	_ CopilotSDKError = (*ConnectionError)(nil)
	_ CopilotSDKError = (*ProtocolVersionError)(nil)
	_ CopilotSDKError = (*RPCError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrNotConnected indicates the client is not connected.
	ErrNotConnected = errors.New("client not connected: call Start() first")

	// ErrConnectionClosed indicates the transport ended while requests were
	// outstanding. Every pending call observes this error exactly once.
	ErrConnectionClosed = errors.New("connection closed")

	// ErrConnStopped indicates the RPC connection was stopped locally.
	ErrConnStopped = errors.New("rpc connection stopped")

	// ErrRequestTimeout indicates a request timed out waiting for its response.
	// The request is abandoned locally; the server is not notified.
	ErrRequestTimeout = errors.New("request timeout")

	// ErrStdinClosed indicates the process stdin was already closed.
	ErrStdinClosed = errors.New("stdin closed")
)

// CLINotFoundError indicates the Copilot CLI binary was not found.
type CLINotFoundError struct {
	SearchedPaths []string
}

func (e *CLINotFoundError) Error() string {
	return fmt.Sprintf("copilot CLI not found in: %v", e.SearchedPaths)
}

// IsCopilotSDKError implements CopilotSDKError.
func (e *CLINotFoundError) IsCopilotSDKError() bool { return true }

// ProcessSpawnError indicates the CLI server process could not be started.
// Fatal to Start().
type ProcessSpawnError struct {
	Path string
	Err  error
}

func (e *ProcessSpawnError) Error() string {
	return fmt.Sprintf("failed to spawn CLI server %q: %v", e.Path, e.Err)
}

func (e *ProcessSpawnError) Unwrap() error {
	return e.Err
}

// IsCopilotSDKError implements CopilotSDKError.
func (e *ProcessSpawnError) IsCopilotSDKError() bool { return true }

// ProcessError indicates the CLI server process exited unexpectedly.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("CLI server exited (code %d): %s", e.ExitCode, e.Stderr)
	}

	return fmt.Sprintf("CLI server exited (code %d): %v", e.ExitCode, e.Err)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsCopilotSDKError implements CopilotSDKError.
func (e *ProcessError) IsCopilotSDKError() bool { return true }

// ConnectionError indicates failure to establish a connection to the CLI server.
type ConnectionError struct {
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to CLI server: %v", e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IsCopilotSDKError implements CopilotSDKError.
func (e *ConnectionError) IsCopilotSDKError() bool { return true }

// ProtocolVersionError indicates the server's protocol version does not match
// the version this SDK was built against. Fatal to Start().
//
// Actual is nil when the server did not report a protocol version at all.
type ProtocolVersionError struct {
	Expected int
	Actual   *int
}

func (e *ProtocolVersionError) Error() string {
	if e.Actual == nil {
		return fmt.Sprintf(
			"SDK protocol version mismatch: SDK expects version %d, but server does not report a protocol version",
			e.Expected,
		)
	}

	return fmt.Sprintf(
		"SDK protocol version mismatch: SDK expects version %d, but server reports version %d",
		e.Expected, *e.Actual,
	)
}

// IsCopilotSDKError implements CopilotSDKError.
func (e *ProtocolVersionError) IsCopilotSDKError() bool { return true }

// RPCError is a JSON-RPC error returned by the remote peer, or produced
// locally by an inbound handler to control the error response code.
type RPCError struct {
	Code    int
	Message string
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("JSON-RPC error %d: %s", e.Code, e.Message)
}

// IsCopilotSDKError implements CopilotSDKError.
func (e *RPCError) IsCopilotSDKError() bool { return true }
