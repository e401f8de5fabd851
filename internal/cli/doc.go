// Package cli provides discovery and command building for the Copilot CLI
// binary.
//
// # CLI Discovery
//
// The Discoverer interface locates the Copilot CLI binary:
//
//	discoverer := cli.NewDiscoverer(&cli.Config{
//	    CLIPath: "",           // Optional explicit path
//	    Logger:  slog.Default(),
//	})
//	cliPath, err := discoverer.Discover(ctx)
//
// Discovery searches in the following order:
//  1. Explicit path in Config.CLIPath (if provided)
//  2. System PATH
//  3. Common installation directories (/usr/local/bin, /usr/bin, ~/.local/bin)
//
// There is no version probe: compatibility is established over the wire by
// the protocol version handshake after the server starts.
//
// # Command Building
//
// The package builds the full launch invocation from resolved options:
//
//	inv := cli.BuildInvocation(cliPath, options)
//	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)
//	cmd.Env = inv.Env
//
// Custom arguments always precede the fixed server flags, and a .js path is
// executed through node.
package cli
