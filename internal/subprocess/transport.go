package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/cli"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/config"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/errors"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/rpc"
)

const (
	// maxStderrBufferSize is the maximum size for the stderr buffer.
	// Stderr reading continues indefinitely (callback receives all lines),
	// but the buffer stops growing after this limit.
	maxStderrBufferSize = 10 * 1024 * 1024 // 10MB

	// terminateGrace is how long Close waits after SIGTERM before
	// escalating to SIGKILL.
	terminateGrace = 5 * time.Second

	// portAnnounceTimeout bounds the wait for the TCP port announcement
	// on the spawned server's stdout.
	portAnnounceTimeout = 30 * time.Second
)

// portAnnouncePattern matches the line a TCP-mode server prints once it is
// accepting connections.
var portAnnouncePattern = regexp.MustCompile(`listening on port (\d+)`)

// CLITransport spawns the Copilot CLI server and exchanges frames with it
// over stdio, or over TCP when a port is configured.
type CLITransport struct {
	log     *slog.Logger
	options *config.Options

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser

	// Frame channel endpoints: stdin/stdout in stdio mode, conn in TCP mode.
	conn   net.Conn
	reader *bufio.Reader
	writer io.Writer

	stderrCallback func(string)
	stderrBuf      strings.Builder
	stderrMu       sync.Mutex
	stderrWg       sync.WaitGroup

	mu          sync.Mutex // Protects writes and lifecycle flags
	closing     bool       // Whether Close/Kill has been called (intentional shutdown)
	stdinClosed bool

	// done unblocks the frame-delivery goroutine when the consumer is gone.
	done     chan struct{}
	doneOnce sync.Once

	waitOnce sync.Once
	waitErr  error
	exited   chan struct{}
}

// Compile-time verification that CLITransport implements the Transport interface.
var _ config.Transport = (*CLITransport)(nil)

// NewCLITransport creates a transport that will spawn the Copilot CLI.
//
// CLI discovery is deferred to Start(), which searches for the binary in the
// following order:
//  1. The explicit path in options.CLIPath (if provided)
//  2. The system PATH
//  3. Common installation directories (/usr/local/bin, /usr/bin, ~/.local/bin)
//
// Start() returns CLINotFoundError if the CLI binary cannot be located.
func NewCLITransport(log *slog.Logger, options *config.Options) *CLITransport {
	return &CLITransport{
		log:            log.With("component", "cli_transport"),
		options:        options,
		stderrCallback: options.Stderr,
		done:           make(chan struct{}),
		exited:         make(chan struct{}),
	}
}

// Start spawns the CLI server process.
//
// In stdio mode frames flow over the child's stdin/stdout. In TCP mode the
// child announces its listening port on stdout and the transport dials it.
//
// Returns CLINotFoundError if the CLI binary cannot be located,
// ProcessSpawnError if the process fails to start, or ConnectionError for
// pipe and dial failures.
func (t *CLITransport) Start(ctx context.Context) error {
	t.log.Info("Starting Copilot CLI subprocess")

	discoverer := cli.NewDiscoverer(&cli.Config{
		CLIPath: t.options.CLIPath,
		Logger:  t.log,
	})

	cliPath, err := discoverer.Discover(ctx)
	if err != nil {
		return fmt.Errorf("discover CLI: %w", err)
	}

	inv := cli.BuildInvocation(cliPath, t.options)
	t.log.Debug("Built command invocation", "binary", inv.Binary, "args", inv.Args)

	cwd := t.options.CWD
	if cwd == "" {
		cwd, err = os.Getwd()
		if err != nil {
			return fmt.Errorf("get working directory: %w", err)
		}
	}

	//nolint:gosec // G204: Subprocess launching with dynamic args is expected for CLI invocation
	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)
	cmd.Dir = cwd
	cmd.Env = inv.Env

	stdin, err := cmd.StdinPipe()
	if err != nil {
		t.log.Error("Failed to create stdin pipe", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("stdin pipe: %w", err)}
	}

	t.stdin = stdin

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		t.log.Error("Failed to create stdout pipe", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	t.stdout = stdout

	stderr, err := cmd.StderrPipe()
	if err != nil {
		t.log.Error("Failed to create stderr pipe", "error", err)

		return &errors.ConnectionError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	t.stderr = stderr

	if err := cmd.Start(); err != nil {
		t.log.Error("Failed to start CLI process", "error", err)

		return &errors.ProcessSpawnError{Path: inv.Binary, Err: err}
	}

	t.cmd = cmd
	t.log.Info("Copilot CLI subprocess started", "pid", cmd.Process.Pid)

	t.drainStderr()

	if t.options.Port != nil && !t.options.UseStdio {
		if err := t.dialAnnouncedPort(ctx); err != nil {
			t.Kill()

			return err
		}

		return nil
	}

	t.reader = bufio.NewReader(t.stdout)
	t.writer = t.stdin

	return nil
}

// drainStderr consumes the child's stderr on its own goroutine, buffering it
// for error reporting (capped) and feeding the optional callback.
func (t *CLITransport) drainStderr() {
	t.stderrWg.Go(func() {
		scanner := bufio.NewScanner(t.stderr)
		for scanner.Scan() {
			line := scanner.Text()

			t.stderrMu.Lock()

			if t.stderrBuf.Len() < maxStderrBufferSize {
				if t.stderrBuf.Len() > 0 {
					t.stderrBuf.WriteString("\n")
				}

				t.stderrBuf.WriteString(line)
			}

			t.stderrMu.Unlock()

			if t.stderrCallback != nil {
				t.stderrCallback(line)
			}
		}

		if err := scanner.Err(); err != nil {
			t.log.Debug("Stderr scanner error", "error", err)
		}
	})
}

// dialAnnouncedPort scans the child's stdout for the port announcement and
// dials the server. The rest of stdout is discarded in the background.
func (t *CLITransport) dialAnnouncedPort(ctx context.Context) error {
	t.log.Debug("Waiting for TCP port announcement")

	ctx, cancel := context.WithTimeout(ctx, portAnnounceTimeout)
	defer cancel()

	type announce struct {
		port string
		err  error
	}

	found := make(chan announce, 1)

	go func() {
		scanner := bufio.NewScanner(t.stdout)
		for scanner.Scan() {
			if match := portAnnouncePattern.FindStringSubmatch(scanner.Text()); match != nil {
				found <- announce{port: match[1]}

				// Keep draining stdout so the child never blocks on it.
				for scanner.Scan() {
				}

				return
			}
		}

		found <- announce{err: fmt.Errorf("server exited before announcing a port")}
	}()

	select {
	case a := <-found:
		if a.err != nil {
			return &errors.ConnectionError{Err: a.err}
		}

		t.log.Debug("Server announced port", "port", a.port)

		conn, err := net.Dial("tcp", net.JoinHostPort("127.0.0.1", a.port))
		if err != nil {
			return &errors.ConnectionError{Err: fmt.Errorf("dial server: %w", err)}
		}

		t.conn = conn
		t.reader = bufio.NewReader(conn)
		t.writer = conn

		return nil

	case <-ctx.Done():
		return &errors.ConnectionError{Err: fmt.Errorf("wait for port announcement: %w", ctx.Err())}
	}
}

// ReadFrames reads framed JSON-RPC messages from the server.
//
// The goroutine closes the frames channel on end-of-stream. A process exit
// with non-zero status outside an intentional shutdown is reported on the
// error channel as a ProcessError carrying the exit code and captured stderr.
func (t *CLITransport) ReadFrames(_ context.Context) (<-chan *rpc.Frame, <-chan error) {
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

				break
			}

			// The consumer may stop before taking this frame; never
			// stay blocked on the send past shutdown.
			select {
			case frames <- frame:
			case <-t.done:
				return
			}
		}

		if procErr := t.reapProcess(); procErr != nil {
			errs <- procErr
		}
	}()

	return frames, errs
}

// reapProcess waits for the child to exit and converts an unexpected
// non-zero exit into a ProcessError.
func (t *CLITransport) reapProcess() error {
	if t.cmd == nil {
		return nil
	}

	t.log.Debug("Waiting for CLI process to exit")

	err := t.waitProcess()
	if err == nil {
		t.log.Info("CLI process exited cleanly")

		return nil
	}

	if t.isClosing() {
		t.log.Debug("CLI process terminated during shutdown")

		return nil
	}

	t.stderrMu.Lock()
	stderrOutput := t.stderrBuf.String()
	t.stderrMu.Unlock()

	exitCode := 0
	if exitErr, ok := stderrors.AsType[*exec.ExitError](err); ok {
		exitCode = exitErr.ExitCode()
	}

	t.log.Error("CLI process exited with error", "exit_code", exitCode, "stderr", stderrOutput)

	return &errors.ProcessError{
		ExitCode: exitCode,
		Stderr:   stderrOutput,
		Err:      err,
	}
}

// waitProcess calls cmd.Wait exactly once and broadcasts the exit.
func (t *CLITransport) waitProcess() error {
	t.waitOnce.Do(func() {
		t.stderrWg.Wait()
		t.waitErr = t.cmd.Wait()
		close(t.exited)
	})

	return t.waitErr
}

func (t *CLITransport) isClosing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.closing
}

// WriteFrame sends one frame to the server. Safe for concurrent use.
func (t *CLITransport) WriteFrame(ctx context.Context, f *rpc.Frame) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.writer == nil {
		return errors.ErrNotConnected
	}

	if t.stdinClosed {
		return errors.ErrStdinClosed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	return writeFrame(t.writer, f)
}

// Close terminates the transport gracefully.
//
// Stdin (or the socket) is closed first so the server can finish in-flight
// work, then the process gets SIGTERM and, after a bounded wait, SIGKILL.
// Safe to call multiple times or on an already-terminated process.
func (t *CLITransport) Close() error {
	t.mu.Lock()

	if t.closing {
		t.mu.Unlock()

		return nil
	}

	t.closing = true
	t.closeChannelLocked()
	t.mu.Unlock()

	if t.cmd == nil || t.cmd.Process == nil {
		return nil
	}

	t.log.Debug("Terminating CLI process", "pid", t.cmd.Process.Pid)

	if err := t.cmd.Process.Signal(syscall.SIGTERM); err != nil {
		t.log.Debug("SIGTERM failed, process may have exited", "error", err)
	}

	go func() { _ = t.waitProcess() }()

	select {
	case <-t.exited:
		return nil
	case <-time.After(terminateGrace):
	}

	t.log.Warn("CLI process did not exit after SIGTERM, killing", "pid", t.cmd.Process.Pid)

	if err := t.cmd.Process.Kill(); err != nil {
		return fmt.Errorf("kill CLI process (pid %d): %w", t.cmd.Process.Pid, err)
	}

	<-t.exited

	return nil
}

// Kill terminates the transport immediately. Never fails and never blocks.
func (t *CLITransport) Kill() {
	t.mu.Lock()
	t.closing = true
	t.closeChannelLocked()
	t.mu.Unlock()

	if t.cmd != nil && t.cmd.Process != nil {
		t.log.Debug("Killing CLI process", "pid", t.cmd.Process.Pid)

		_ = t.cmd.Process.Kill()

		// Reap in the background so the kill never blocks the caller.
		go func() { _ = t.waitProcess() }()
	}
}

// closeChannelLocked closes stdin and the TCP connection, unblocking any
// in-progress reads and writes, and releases a frame delivery stuck on a
// departed consumer. Caller holds t.mu.
func (t *CLITransport) closeChannelLocked() {
	t.doneOnce.Do(func() {
		close(t.done)
	})

	if t.stdin != nil && !t.stdinClosed {
		_ = t.stdin.Close()
	}

	t.stdinClosed = true

	if t.conn != nil {
		_ = t.conn.Close()
	}
}
