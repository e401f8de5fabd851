package config

import (
	"context"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/rpc"
)

// Transport defines the interface for Copilot CLI communication.
// Implement this to provide custom transports for testing, mocking,
// or alternative communication methods.
//
// The default implementations spawn a subprocess (stdio or TCP) or dial
// an externally managed server. Custom transports can be injected via
// Options.Transport.
type Transport interface {
	// Start launches or connects the underlying channel.
	// This is called before any frames are sent or received.
	Start(ctx context.Context) error

	// ReadFrames returns channels for receiving frames and errors.
	// The frame channel yields parsed JSON-RPC frames from the server
	// and is closed when reading completes or an error occurs.
	ReadFrames(ctx context.Context) (<-chan *rpc.Frame, <-chan error)

	// WriteFrame sends one frame to the server.
	// This method must be safe for concurrent use.
	WriteFrame(ctx context.Context, f *rpc.Frame) error

	// Close terminates the transport gracefully and releases resources.
	// It's safe to call Close multiple times. Transports that did not
	// spawn their process only close the connection.
	Close() error

	// Kill terminates the transport immediately without waiting.
	// It never fails and never blocks.
	Kill()
}
