package rpc

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/errors"
)

// defaultCallTimeout is the per-call timeout used when none is configured.
const defaultCallTimeout = 30 * time.Second

// Transport is the minimal byte-stream interface a Conn multiplexes.
//
// ReadFrames must deliver frames on a dedicated goroutine and close the
// frames channel on end-of-stream. WriteFrame must be safe for concurrent
// use. Satisfied by the subprocess transport and by mock transports in tests.
type Transport interface {
	ReadFrames(ctx context.Context) (<-chan *Frame, <-chan error)
	WriteFrame(ctx context.Context, f *Frame) error
}

// HandlerFunc handles one inbound call or notification.
//
// For calls, the returned value is sent back as the response result, and a
// returned error becomes an error response (use *errors.RPCError to control
// the code; anything else maps to an internal error). For notifications both
// return values are discarded.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (any, error)

// Conn is a bidirectional JSON-RPC connection over a single transport.
//
// Outbound calls are assigned monotonically increasing ULID ids and tracked
// in a pending table until their response arrives, the per-call timeout
// elapses, or the connection goes down. Inbound calls are dispatched to
// handlers registered by method name, each on its own goroutine so the read
// loop never waits on a response-producing handler; notifications are
// dispatched inline on the read loop, preserving their arrival order.
type Conn struct {
	log       *slog.Logger
	transport Transport
	timeout   time.Duration

	// Outstanding outbound calls keyed by id.
	pendingMu sync.Mutex
	pending   map[string]*pendingCall

	// Inbound method handlers.
	handlersMu sync.RWMutex
	handlers   map[string]HandlerFunc

	// Fatal error handling - stores first error and broadcasts via done.
	errMu    sync.RWMutex
	fatalErr error

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// pendingCall tracks an outbound call awaiting its response.
type pendingCall struct {
	method   string
	response chan *Frame
}

// NewConn creates a connection over the given transport.
//
// timeout is the per-call response timeout; zero or negative selects the
// 30 second default. The connection does nothing until Start is called.
func NewConn(log *slog.Logger, transport Transport, timeout time.Duration) *Conn {
	if timeout <= 0 {
		timeout = defaultCallTimeout
	}

	return &Conn{
		log:       log.With("component", "rpc"),
		transport: transport,
		timeout:   timeout,
		pending:   make(map[string]*pendingCall, 10),
		handlers:  make(map[string]HandlerFunc, 10),
		done:      make(chan struct{}),
	}
}

// Start begins reading frames from the transport and routing them.
//
// Responses are matched to pending calls; calls and notifications go to
// registered handlers. The read loop stops when the context is cancelled,
// the transport ends, or Stop is called.
func (c *Conn) Start(ctx context.Context) error {
	c.log.Debug("Starting RPC connection")

	frames, errs := c.transport.ReadFrames(ctx)

	c.wg.Add(1)

	go c.readLoop(ctx, frames, errs)

	return nil
}

// Stop shuts the connection down.
//
// All pending calls are fulfilled with a connection-stopped error via the
// done broadcast. Safe to call multiple times. Blocks until in-flight
// handler goroutines finish.
func (c *Conn) Stop() {
	c.log.Debug("Stopping RPC connection")

	c.closeDone()
	c.wg.Wait()
}

// Done returns a channel closed when the connection stops.
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// FatalError returns the error that terminated the connection, if any.
func (c *Conn) FatalError() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()

	return c.fatalErr
}

// closeDone safely closes the done channel exactly once.
func (c *Conn) closeDone() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// setFatal stores a fatal error and broadcasts to all waiters.
func (c *Conn) setFatal(err error) {
	c.errMu.Lock()

	if c.fatalErr == nil {
		c.fatalErr = err
	}

	c.errMu.Unlock()

	c.closeDone()
}

// Call sends a request and waits for its response.
//
// The id is allocated atomically and is unique among outstanding calls.
// The wait ends when the matching response arrives, the per-call timeout
// elapses (the request is abandoned locally, not cancelled on the wire),
// the context is cancelled, or the connection goes down. Safe for
// concurrent use from any number of goroutines.
func (c *Conn) Call(ctx context.Context, method string, params any) (json.RawMessage, error) {
	id := ulid.Make().String()

	frame, err := NewCall(id, method, params)
	if err != nil {
		return nil, err
	}

	pending := &pendingCall{
		method:   method,
		response: make(chan *Frame, 1),
	}

	c.pendingMu.Lock()
	c.pending[id] = pending
	c.pendingMu.Unlock()

	c.log.Debug("Sending call", "method", method, "id", id)

	if err := c.transport.WriteFrame(ctx, frame); err != nil {
		c.removePending(id)

		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp := <-pending.response:
		if resp.Error != nil {
			c.log.Debug("Call returned error", "method", method, "id", id, "code", resp.Error.Code)

			return nil, &errors.RPCError{Code: resp.Error.Code, Message: resp.Error.Message}
		}

		return resp.Result, nil

	case <-time.After(c.timeout):
		c.removePending(id)

		c.log.Warn("Call timed out", "method", method, "id", id, "timeout", c.timeout)

		return nil, fmt.Errorf("%s: %w after %s", method, errors.ErrRequestTimeout, c.timeout)

	case <-c.done:
		c.removePending(id)

		if err := c.FatalError(); err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}

		return nil, fmt.Errorf("%s: %w", method, errors.ErrConnStopped)

	case <-ctx.Done():
		c.removePending(id)

		return nil, ctx.Err()
	}
}

// Notify sends a notification; no response is expected or tracked.
func (c *Conn) Notify(ctx context.Context, method string, params any) error {
	frame, err := NewNotification(method, params)
	if err != nil {
		return err
	}

	c.log.Debug("Sending notification", "method", method)

	return c.transport.WriteFrame(ctx, frame)
}

// Handle registers a handler for inbound calls and notifications with the
// given method name, replacing any previous registration.
func (c *Conn) Handle(method string, h HandlerFunc) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	c.handlers[method] = h
}

// Unhandle removes the handler for method. Safe to call from within the
// handler itself.
func (c *Conn) Unhandle(method string) {
	c.handlersMu.Lock()
	defer c.handlersMu.Unlock()

	delete(c.handlers, method)
}

func (c *Conn) removePending(id string) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

// readLoop routes frames until the transport ends or the connection stops.
func (c *Conn) readLoop(ctx context.Context, frames <-chan *Frame, errs <-chan error) {
	defer c.wg.Done()
	defer c.log.Debug("RPC read loop stopped")

	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				// End-of-stream: every outstanding call observes
				// a connection-closed error via the done broadcast.
				c.setFatal(errors.ErrConnectionClosed)

				return
			}

			c.route(ctx, frame)

		case err, ok := <-errs:
			if !ok {
				c.setFatal(errors.ErrConnectionClosed)

				return
			}

			if err != nil {
				c.log.Debug("Transport error", "error", err)
				c.setFatal(err)

				return
			}

		case <-c.done:
			return

		case <-ctx.Done():
			c.setFatal(ctx.Err())

			return
		}
	}
}

// route classifies a frame and dispatches it.
func (c *Conn) route(ctx context.Context, frame *Frame) {
	switch {
	case frame.IsResponse():
		c.handleResponse(frame)

	case frame.IsCall(), frame.IsNotification():
		c.handleInbound(ctx, frame)

	default:
		c.log.Warn("Discarding unclassifiable frame")
	}
}

// handleResponse fulfills the pending call matching the response id.
//
// The entry is claimed and deleted under the lock before delivery, so a call
// is fulfilled at most once; a response for an unknown or already-fulfilled
// id is silently discarded.
func (c *Conn) handleResponse(frame *Frame) {
	key := frame.IDKey()

	c.pendingMu.Lock()

	pending, exists := c.pending[key]
	if exists {
		delete(c.pending, key)
	}

	c.pendingMu.Unlock()

	if !exists {
		c.log.Debug("Discarding response with no pending call", "id", key)

		return
	}

	c.log.Debug("Received response", "method", pending.method, "id", key)

	// Channel is buffered; we own the entry, so this never blocks.
	pending.response <- frame
}

// handleInbound invokes the registered handler for a server-initiated call
// or notification.
//
// Call handlers run on their own goroutine so that slow, user-facing
// callbacks (permission prompts, free-text input) never block the read
// loop. Notification handlers run inline on the read loop: notifications
// carry ordered session events, and handing them to goroutines would let
// the scheduler reorder a session's event log.
func (c *Conn) handleInbound(ctx context.Context, frame *Frame) {
	isCall := frame.IsCall()

	c.handlersMu.RLock()
	handler, exists := c.handlers[frame.Method]
	c.handlersMu.RUnlock()

	if !exists {
		if !isCall {
			c.log.Debug("Dropping notification with no handler", "method", frame.Method)

			return
		}

		c.log.Warn("No handler for inbound call", "method", frame.Method)

		c.wg.Go(func() {
			c.respond(ctx, NewErrorResponse(
				frame.ID, CodeMethodNotFound, "method not found: "+frame.Method,
			))
		})

		return
	}

	if !isCall {
		if _, err := c.invokeHandler(ctx, handler, frame.Params); err != nil {
			c.log.Debug("Notification handler failed", "method", frame.Method, "error", err)
		}

		return
	}

	c.wg.Go(func() {
		result, err := c.invokeHandler(ctx, handler, frame.Params)
		if err != nil {
			c.respond(ctx, errorResponseFor(frame.ID, err))

			return
		}

		resp, err := NewResponse(frame.ID, result)
		if err != nil {
			c.log.Error("Failed to marshal response", "method", frame.Method, "error", err)
			c.respond(ctx, NewErrorResponse(frame.ID, CodeInternalError, "marshal response: "+err.Error()))

			return
		}

		c.respond(ctx, resp)
	})
}

// invokeHandler runs a handler, converting a panic into an error so a
// misbehaving handler can never take down the engine.
func (c *Conn) invokeHandler(
	ctx context.Context,
	h HandlerFunc,
	params json.RawMessage,
) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Handler panicked", "panic", r)

			err = fmt.Errorf("handler panic: %v", r)
		}
	}()

	return h(ctx, params)
}

// respond writes a response frame, logging (not propagating) failures.
func (c *Conn) respond(ctx context.Context, frame *Frame) {
	if err := c.transport.WriteFrame(ctx, frame); err != nil {
		if ctx.Err() != nil {
			c.log.Debug("Could not send response during shutdown", "error", err)

			return
		}

		c.log.Error("Failed to send response", "error", err)
	}
}

// errorResponseFor maps a handler error to an error response frame.
// An *errors.RPCError chooses its own code; anything else is internal.
func errorResponseFor(id json.RawMessage, err error) *Frame {
	if rpcErr, ok := stderrors.AsType[*errors.RPCError](err); ok {
		return NewErrorResponse(id, rpcErr.Code, rpcErr.Message)
	}

	return NewErrorResponse(id, CodeInternalError, err.Error())
}
