package cli

import (
	"os"
	"strconv"
	"strings"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/config"
)

// AuthTokenEnvVar is the environment variable the CLI reads the auth token
// from. The token itself never appears in argv; only this variable name does.
const AuthTokenEnvVar = "COPILOT_SDK_AUTH_TOKEN"

// Invocation is the resolved command line for launching the CLI server.
type Invocation struct {
	// Binary is the executable to run ("node" for .js CLI paths).
	Binary string

	// Args are the command line arguments.
	Args []string

	// Env are the environment variables.
	Env []string
}

// BuildInvocation combines the discovered CLI path with the built arguments
// and environment. A path ending in .js is run through node with the path
// as its first argument.
func BuildInvocation(cliPath string, options *config.Options) Invocation {
	args := BuildArgs(options)
	binary := cliPath

	if strings.HasSuffix(cliPath, ".js") {
		binary = "node"
		args = append([]string{cliPath}, args...)
	}

	return Invocation{
		Binary: binary,
		Args:   args,
		Env:    BuildEnvironment(options),
	}
}

// BuildArgs constructs the CLI server arguments.
//
// User-supplied CLIArgs come first so the fixed server flags always win on
// conflict. The transport flag is --stdio unless a TCP port is requested;
// port zero asks the server to pick an ephemeral port and announce it on
// stdout. An explicit UseStdio takes precedence over a configured port.
func BuildArgs(options *config.Options) []string {
	args := make([]string, 0, len(options.CLIArgs)+8)
	args = append(args, options.CLIArgs...)

	logLevel := options.LogLevel
	if logLevel == "" {
		logLevel = config.DefaultLogLevel
	}

	args = append(args,
		"--headless",
		"--no-auto-update",
		"--log-level", logLevel,
	)

	if options.Port != nil && !options.UseStdio {
		args = append(args, "--port", strconv.Itoa(*options.Port))
	} else {
		args = append(args, "--stdio")
	}

	if options.GithubToken != "" {
		// The variable name only; the value travels via the environment.
		args = append(args, "--auth-token-env", AuthTokenEnvVar)
	}

	if !options.UseLoggedInUser {
		args = append(args, "--no-auto-login")
	}

	return args
}

// BuildEnvironment constructs the environment for the CLI process.
//
// An explicit Env map replaces the inherited environment entirely; otherwise
// the process inherits os.Environ(). A configured token is appended under
// AuthTokenEnvVar either way.
func BuildEnvironment(options *config.Options) []string {
	var env []string

	if options.Env != nil {
		env = make([]string, 0, len(options.Env)+1)
		for key, value := range options.Env {
			env = append(env, key+"="+value)
		}
	} else {
		env = os.Environ()
	}

	if options.GithubToken != "" {
		env = append(env, AuthTokenEnvVar+"="+options.GithubToken)
	}

	return env
}
