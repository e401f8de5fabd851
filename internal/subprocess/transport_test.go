package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/config"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/errors"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/rpc"
)

// fakeCLI writes a shell script that echoes framed stdin back to stdout.
// The launch flags are ignored, which is all these tests need.
func fakeCLI(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "copilot")
	err := os.WriteFile(path, []byte("#!/bin/sh\nexec cat\n"), 0o755)
	require.NoError(t, err)

	return path
}

func TestCLITransport_StartFailsWhenCLIMissing(t *testing.T) {
	transport := NewCLITransport(slog.Default(), &config.Options{
		CLIPath: "/nonexistent/copilot",
	})

	err := transport.Start(context.Background())

	var notFound *errors.CLINotFoundError
	require.ErrorAs(t, err, &notFound)
}

func TestCLITransport_StartFailsOnSpawnError(t *testing.T) {
	// Exists but is not executable, so discovery succeeds and spawn fails.
	path := filepath.Join(t.TempDir(), "copilot")
	require.NoError(t, os.WriteFile(path, []byte("not a program"), 0o644))

	transport := NewCLITransport(slog.Default(), &config.Options{CLIPath: path})

	err := transport.Start(context.Background())

	var spawnErr *errors.ProcessSpawnError
	require.ErrorAs(t, err, &spawnErr)
	require.Equal(t, path, spawnErr.Path)
}

func TestCLITransport_FrameRoundtrip(t *testing.T) {
	transport := NewCLITransport(slog.Default(), &config.Options{
		CLIPath: fakeCLI(t),
	})

	require.NoError(t, transport.Start(context.Background()))

	t.Cleanup(transport.Kill)

	frames, errs := transport.ReadFrames(context.Background())

	sent, err := rpc.NewCall("req-1", "ping", map[string]any{"message": "hi"})
	require.NoError(t, err)
	require.NoError(t, transport.WriteFrame(context.Background(), sent))

	select {
	case got := <-frames:
		require.Equal(t, "ping", got.Method)
		require.Equal(t, "req-1", got.IDKey())
	case err := <-errs:
		t.Fatalf("unexpected transport error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for echoed frame")
	}
}

func TestCLITransport_CloseEndsStreamWithoutProcessError(t *testing.T) {
	transport := NewCLITransport(slog.Default(), &config.Options{
		CLIPath: fakeCLI(t),
	})

	require.NoError(t, transport.Start(context.Background()))

	frames, errs := transport.ReadFrames(context.Background())

	require.NoError(t, transport.Close())

	// Graceful shutdown: stream ends, no ProcessError surfaces.
	for range frames {
	}

	for err := range errs {
		var procErr *errors.ProcessError
		require.False(t, stderrors.As(err, &procErr), "unexpected process error: %v", err)
	}

	// Idempotent.
	require.NoError(t, transport.Close())
}

func TestCLITransport_CloseReleasesUnconsumedFrameDelivery(t *testing.T) {
	// A frame may be in flight when the consumer stops. Close must still
	// end the delivery goroutine rather than leaving it blocked on the
	// unbuffered frames channel.
	transport := NewCLITransport(slog.Default(), &config.Options{
		CLIPath: fakeCLI(t),
	})

	require.NoError(t, transport.Start(context.Background()))

	frames, _ := transport.ReadFrames(context.Background())

	sent, err := rpc.NewNotification("session.event", map[string]any{"seq": 1})
	require.NoError(t, err)
	require.NoError(t, transport.WriteFrame(context.Background(), sent))

	// Let the echoed frame reach the blocked send before closing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, transport.Close())

	deadline := time.After(5 * time.Second)

	for {
		select {
		case _, ok := <-frames:
			if !ok {
				return
			}

		case <-deadline:
			t.Fatal("frames channel not closed after Close")
		}
	}
}

func TestCLITransport_WriteAfterCloseFails(t *testing.T) {
	transport := NewCLITransport(slog.Default(), &config.Options{
		CLIPath: fakeCLI(t),
	})

	require.NoError(t, transport.Start(context.Background()))
	require.NoError(t, transport.Close())

	frame, err := rpc.NewNotification("ping", nil)
	require.NoError(t, err)

	err = transport.WriteFrame(context.Background(), frame)
	require.ErrorIs(t, err, errors.ErrStdinClosed)
}

func TestCLITransport_WriteBeforeStartFails(t *testing.T) {
	transport := NewCLITransport(slog.Default(), &config.Options{})

	frame, err := rpc.NewNotification("ping", nil)
	require.NoError(t, err)

	err = transport.WriteFrame(context.Background(), frame)
	require.ErrorIs(t, err, errors.ErrNotConnected)
}

// echoServer accepts one connection and echoes frames back.
func echoServer(t *testing.T) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)

		for {
			frame, err := readFrame(reader)
			if err != nil {
				return
			}

			if err := writeFrame(conn, frame); err != nil {
				return
			}
		}
	}()

	return listener.Addr().String()
}

func TestTCPTransport_FrameRoundtrip(t *testing.T) {
	transport := NewTCPTransport(slog.Default(), echoServer(t))

	require.NoError(t, transport.Start(context.Background()))

	t.Cleanup(transport.Kill)

	frames, errs := transport.ReadFrames(context.Background())

	sent, err := rpc.NewCall("req-9", "status.get", nil)
	require.NoError(t, err)
	require.NoError(t, transport.WriteFrame(context.Background(), sent))

	select {
	case got := <-frames:
		require.Equal(t, "status.get", got.Method)
	case err := <-errs:
		t.Fatalf("unexpected transport error: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for echoed frame")
	}
}

func TestTCPTransport_DialFailure(t *testing.T) {
	// A listener that is immediately closed yields a refused port.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	transport := NewTCPTransport(slog.Default(), addr)

	err = transport.Start(context.Background())

	var connErr *errors.ConnectionError
	require.ErrorAs(t, err, &connErr)
}

func TestTCPTransport_CloseReleasesUnconsumedFrameDelivery(t *testing.T) {
	transport := NewTCPTransport(slog.Default(), echoServer(t))

	require.NoError(t, transport.Start(context.Background()))

	frames, _ := transport.ReadFrames(context.Background())

	sent, err := rpc.NewNotification("session.event", map[string]any{"seq": 1})
	require.NoError(t, err)
	require.NoError(t, transport.WriteFrame(context.Background(), sent))

	// Let the echoed frame reach the blocked send before closing.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, transport.Close())

	deadline := time.After(5 * time.Second)

	for {
		select {
		case _, ok := <-frames:
			if !ok {
				return
			}

		case <-deadline:
			t.Fatal("frames channel not closed after Close")
		}
	}
}

func TestTCPTransport_CloseIsIdempotent(t *testing.T) {
	transport := NewTCPTransport(slog.Default(), echoServer(t))

	require.NoError(t, transport.Start(context.Background()))

	frames, _ := transport.ReadFrames(context.Background())

	require.NoError(t, transport.Close())
	require.NoError(t, transport.Close())

	for range frames {
	}
}
