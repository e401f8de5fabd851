package subprocess

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/config"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/errors"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/rpc"
)

// TCPTransport connects to an externally managed Copilot CLI server.
//
// The server's lifetime belongs to whoever started it: shutdown closes the
// socket and nothing else.
type TCPTransport struct {
	log  *slog.Logger
	addr string

	mu      sync.Mutex // Protects writes and lifecycle flags
	conn    net.Conn
	reader  *bufio.Reader
	closing bool

	// done unblocks the frame-delivery goroutine when the consumer is gone.
	done chan struct{}
}

// Compile-time verification that TCPTransport implements the Transport interface.
var _ config.Transport = (*TCPTransport)(nil)

// NewTCPTransport creates a transport that dials addr ("host:port").
func NewTCPTransport(log *slog.Logger, addr string) *TCPTransport {
	return &TCPTransport{
		log:  log.With("component", "tcp_transport"),
		addr: addr,
		done: make(chan struct{}),
	}
}

// Start dials the server. Returns ConnectionError on failure.
func (t *TCPTransport) Start(ctx context.Context) error {
	t.log.Info("Connecting to external Copilot server", "addr", t.addr)

	var dialer net.Dialer

	conn, err := dialer.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		t.log.Error("Failed to connect to server", "addr", t.addr, "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("dial %s: %w", t.addr, err)}
	}

	t.mu.Lock()
	t.conn = conn
	t.reader = bufio.NewReader(conn)
	t.mu.Unlock()

	return nil
}

// ReadFrames reads framed JSON-RPC messages from the socket.
// The frames channel is closed on end-of-stream.
func (t *TCPTransport) ReadFrames(_ context.Context) (<-chan *rpc.Frame, <-chan error) {
	frames := make(chan *rpc.Frame)
	errs := make(chan error, 1)

	go func() {
		defer close(frames)
		defer close(errs)
		defer t.log.Debug("ReadFrames goroutine stopped")

		for {
			frame, err := readFrame(t.reader)
			if err != nil {
				if err != io.EOF && !t.isClosing() {
					t.log.Debug("Frame read failed", "error", err)

					errs <- err
				}

				return
			}

			// The consumer may stop before taking this frame; never
			// stay blocked on the send past shutdown.
			select {
			case frames <- frame:
			case <-t.done:
				return
			}
		}
	}()

	return frames, errs
}

func (t *TCPTransport) isClosing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closing
}

// WriteFrame sends one frame to the server. Safe for concurrent use.
func (t *TCPTransport) WriteFrame(ctx context.Context, f *rpc.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn == nil {
		return errors.ErrNotConnected
	}

	if t.closing {
		return errors.ErrConnectionClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return writeFrame(t.conn, f)
}

// Close closes the socket. The external server is left running.
// Safe to call multiple times.
func (t *TCPTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closing {
		return nil
	}

	t.closing = true
	close(t.done)

	if t.conn != nil {
		t.log.Debug("Closing connection to external server", "addr", t.addr)

		return t.conn.Close()
	}

	return nil
}

// Kill closes the socket immediately. The external server is never signaled.
func (t *TCPTransport) Kill() {
	_ = t.Close()
}
