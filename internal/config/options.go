// Package config provides configuration types for the Copilot SDK.
package config

import (
	"log/slog"
	"time"
)

// DefaultLogLevel is the CLI log level used when none is configured.
const DefaultLogLevel = "info"

// Options is the resolved client configuration consumed by the internal
// packages. The root package builds it from functional options and
// validates cross-field constraints before anything is launched.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// CLIPath is the explicit path to the copilot CLI binary.
	// If empty, COPILOT_CLI_PATH and then PATH are consulted.
	// A path ending in .js is executed via node.
	CLIPath string

	// CLIArgs are extra arguments placed before the fixed launch flags.
	CLIArgs []string

	// CWD sets the working directory for the CLI process.
	CWD string

	// Port makes the spawned server listen on TCP instead of stdio.
	// Zero means an ephemeral port; the server announces the actual
	// port on stdout. Ignored when UseStdio is set.
	Port *int

	// UseStdio selects stdio framing for the spawned server.
	// This is the default when neither Port nor CLIURL is set.
	UseStdio bool

	// CLIURL connects to an externally managed server ("host:port" or a
	// full URL) instead of spawning one. Mutually exclusive with CLIPath,
	// UseStdio and the auth options; the external server's lifetime is
	// never managed by the client.
	CLIURL string

	// LogLevel is passed to the CLI via --log-level.
	// Defaults to "info".
	LogLevel string

	// AutoStart makes session creation start the client implicitly.
	// Defaults to true.
	AutoStart bool

	// Env replaces the inherited environment for the CLI process.
	// If nil, the process inherits os.Environ().
	Env map[string]string

	// GithubToken authenticates the CLI without the logged-in user.
	// Delivered via the auth token environment variable, never argv.
	GithubToken string

	// UseLoggedInUser lets the CLI use its own stored credentials.
	// When false and no token is set, auto-login is suppressed.
	UseLoggedInUser bool

	// RequestTimeout bounds each outbound call. Zero selects the
	// 30 second default.
	RequestTimeout time.Duration

	// Stderr is a callback invoked with each line of CLI stderr output.
	Stderr func(string)

	// Transport allows injecting a custom transport implementation.
	// If nil, one is created from the options above.
	// This field is not serialized to JSON.
	Transport Transport `json:"-"`
}
