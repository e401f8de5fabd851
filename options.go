package copilotsdk

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/config"
)

// cliPathEnvVar names the environment variable consulted for the CLI path
// when no explicit path is configured. Read once, at client construction.
const cliPathEnvVar = "COPILOT_CLI_PATH"

// clientOptions accumulates functional options before validation.
//
// The set flags distinguish an explicit choice from the default so that the
// auth cross-field rules only fire on options the caller actually touched.
type clientOptions struct {
	cfg config.Options

	githubTokenSet     bool
	useLoggedInUserSet bool
}

// Option configures a Client using the functional options pattern.
type Option func(*clientOptions)

// resolveOptions applies the options over the defaults and validates the
// cross-field constraints.
func resolveOptions(opts []Option) (*config.Options, error) {
	o := &clientOptions{
		cfg: config.Options{
			LogLevel:        config.DefaultLogLevel,
			AutoStart:       true,
			UseLoggedInUser: true,
		},
	}

	for _, opt := range opts {
		opt(o)
	}

	if o.cfg.CLIPath == "" {
		o.cfg.CLIPath = os.Getenv(cliPathEnvVar)
	}

	// A token implies the CLI must not fall back to the logged-in user,
	// unless the caller decided that explicitly.
	if o.githubTokenSet && !o.useLoggedInUserSet {
		o.cfg.UseLoggedInUser = false
	}

	if o.cfg.CLIURL != "" {
		if o.cfg.CLIPath != "" || o.cfg.UseStdio || o.cfg.Port != nil {
			return nil, fmt.Errorf("cliUrl cannot be combined with cliPath, useStdio, or port")
		}

		if o.githubTokenSet || o.useLoggedInUserSet {
			return nil, fmt.Errorf("cliUrl cannot be combined with githubToken or useLoggedInUser")
		}
	}

	return &o.cfg, nil
}

// ===== Basic Configuration =====

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *clientOptions) {
		o.cfg.Logger = logger
	}
}

// WithCLIPath sets the explicit path to the copilot CLI binary.
// If not set, the COPILOT_CLI_PATH environment variable and then PATH are
// consulted. A path ending in .js is executed via node.
func WithCLIPath(path string) Option {
	return func(o *clientOptions) {
		o.cfg.CLIPath = path
	}
}

// WithCLIArgs provides extra arguments for the CLI process. They are placed
// before the SDK's own launch flags.
func WithCLIArgs(args ...string) Option {
	return func(o *clientOptions) {
		o.cfg.CLIArgs = args
	}
}

// WithCWD sets the working directory for the CLI process.
func WithCWD(cwd string) Option {
	return func(o *clientOptions) {
		o.cfg.CWD = cwd
	}
}

// WithLogLevel sets the CLI log level ("none", "error", "warning", "info",
// "debug", "all"). Defaults to "info".
func WithLogLevel(level string) Option {
	return func(o *clientOptions) {
		o.cfg.LogLevel = level
	}
}

// WithAutoStart controls whether session creation starts the client
// implicitly. Defaults to true.
func WithAutoStart(autoStart bool) Option {
	return func(o *clientOptions) {
		o.cfg.AutoStart = autoStart
	}
}

// WithEnv replaces the environment for the CLI process. The process
// inherits nothing beyond the given variables and the SDK's own additions.
func WithEnv(env map[string]string) Option {
	return func(o *clientOptions) {
		o.cfg.Env = env
	}
}

// WithRequestTimeout bounds each outbound request. Zero selects the
// 30 second default.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(o *clientOptions) {
		o.cfg.RequestTimeout = timeout
	}
}

// WithStderr sets a callback invoked with each line of CLI stderr output.
func WithStderr(handler func(string)) Option {
	return func(o *clientOptions) {
		o.cfg.Stderr = handler
	}
}

// ===== Transport Selection =====

// WithStdio makes the spawned server communicate over stdin/stdout.
// This is the default when no port or URL is configured.
func WithStdio(useStdio bool) Option {
	return func(o *clientOptions) {
		o.cfg.UseStdio = useStdio
	}
}

// WithPort makes the spawned server listen on the given TCP port instead of
// stdio. Zero selects an ephemeral port; the server announces the actual
// port on stdout before the SDK connects.
func WithPort(port int) Option {
	return func(o *clientOptions) {
		o.cfg.Port = &port
	}
}

// WithCLIURL connects to an externally managed server instead of spawning
// one. Accepts "host:port", a bare port, or a full http(s) URL. Mutually
// exclusive with WithCLIPath, WithStdio, WithPort, and the auth options;
// the external server is never terminated by the SDK.
func WithCLIURL(url string) Option {
	return func(o *clientOptions) {
		o.cfg.CLIURL = url
	}
}

// WithTransport injects a custom transport implementation, bypassing
// process management entirely. Intended for tests and embedding.
func WithTransport(transport config.Transport) Option {
	return func(o *clientOptions) {
		o.cfg.Transport = transport
	}
}

// ===== Authentication =====

// WithGithubToken authenticates the CLI with an explicit token. The token
// is delivered through the process environment, never on the command line.
// Unless WithUseLoggedInUser is also given, this disables the CLI's own
// stored credentials.
func WithGithubToken(token string) Option {
	return func(o *clientOptions) {
		o.cfg.GithubToken = token
		o.githubTokenSet = true
	}
}

// WithUseLoggedInUser controls whether the CLI may use its own stored
// credentials. Defaults to true. When false and no token is configured,
// auto-login is suppressed.
func WithUseLoggedInUser(use bool) Option {
	return func(o *clientOptions) {
		o.cfg.UseLoggedInUser = use
		o.useLoggedInUserSet = true
	}
}
