package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/config"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/errors"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/hook"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/models"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/permission"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/rpc"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/subprocess"
)

// State is the connection state of a Client.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateError
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// lifecycleSub is one process-wide lifecycle subscription.
// An empty eventType matches every lifecycle event.
type lifecycleSub struct {
	id        int
	eventType string
	handler   LifecycleHandler
}

// Client manages the connection to the Copilot CLI server and the sessions
// created over it.
type Client struct {
	log      *slog.Logger
	options  *config.Options
	external bool
	addr     string // external server address, when CLIURL is set

	mu        sync.Mutex // guards state, transport, conn
	state     State
	transport config.Transport
	conn      *rpc.Conn

	sessionsMu sync.RWMutex
	sessions   map[string]*Session

	lifecycleMu   sync.RWMutex
	lifecycleSubs []*lifecycleSub
	nextSubID     int

	models models.Cache
}

// cliURLPattern strips an optional scheme prefix from a CLI URL.
var cliURLPattern = regexp.MustCompile(`^https?://`)

// New creates a client from resolved options. The CLI URL, when set, is
// parsed eagerly so a malformed endpoint fails at construction.
func New(options *config.Options) (*Client, error) {
	log := options.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	c := &Client{
		log:      log.With("component", "client"),
		options:  options,
		sessions: make(map[string]*Session, 4),
	}

	if options.CLIURL != "" {
		addr, err := parseCLIURL(options.CLIURL)
		if err != nil {
			return nil, err
		}

		c.external = true
		c.addr = addr
	}

	return c, nil
}

// parseCLIURL normalizes a CLI URL to "host:port". Accepted forms: a bare
// port, "host:port", or either with an http(s):// prefix.
func parseCLIURL(url string) (string, error) {
	clean := cliURLPattern.ReplaceAllString(url, "")
	clean = strings.TrimSuffix(clean, "/")

	host := "localhost"
	portStr := clean

	if strings.Contains(clean, ":") {
		var found bool

		host, portStr, found = strings.Cut(clean, ":")
		if !found || strings.Contains(portStr, ":") {
			return "", fmt.Errorf("invalid cliUrl format: %s", url)
		}

		if host == "" {
			host = "localhost"
		}
	}

	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 || port > 65535 {
		return "", fmt.Errorf("invalid port in cliUrl: %s", url)
	}

	return net.JoinHostPort(host, strconv.Itoa(port)), nil
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

// Start launches (or dials) the server and establishes the connection.
//
// No-op when already connected. The transition ends Connected only after
// the protocol version handshake succeeds; any failure leaves the client
// in the Error state with the transport torn down.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateConnected {
		return nil
	}

	c.state = StateConnecting
	c.log.Info("Starting client", "external", c.external)

	if err := c.startLocked(ctx); err != nil {
		c.state = StateError
		c.teardownLocked()

		return err
	}

	c.state = StateConnected
	c.log.Info("Client connected")

	return nil
}

func (c *Client) startLocked(ctx context.Context) error {
	transport := c.options.Transport
	if transport == nil {
		if c.external {
			transport = subprocess.NewTCPTransport(c.log, c.addr)
		} else {
			transport = subprocess.NewCLITransport(c.log, c.options)
		}
	}

	if err := transport.Start(ctx); err != nil {
		return err
	}

	c.transport = transport

	conn := rpc.NewConn(c.log, transport, c.options.RequestTimeout)
	c.registerHandlers(conn)

	if err := conn.Start(ctx); err != nil {
		return err
	}

	c.conn = conn

	return c.verifyProtocolVersion(ctx)
}

// verifyProtocolVersion performs the ping handshake. An absent protocol
// version field counts as a mismatch.
func (c *Client) verifyProtocolVersion(ctx context.Context) error {
	ping, err := c.pingConn(ctx, c.conn, "")
	if err != nil {
		return fmt.Errorf("handshake ping: %w", err)
	}

	if ping.ProtocolVersion == nil || *ping.ProtocolVersion != ExpectedProtocolVersion {
		return &errors.ProtocolVersionError{
			Expected: ExpectedProtocolVersion,
			Actual:   ping.ProtocolVersion,
		}
	}

	return nil
}

// teardownLocked releases the connection and transport without touching
// sessions. Caller holds c.mu.
func (c *Client) teardownLocked() {
	if c.conn != nil {
		c.conn.Stop()
		c.conn = nil
	}

	if c.transport != nil {
		c.transport.Kill()
		c.transport = nil
	}
}

// Stop shuts the client down gracefully.
//
// Every tracked session is destroyed (collecting, not halting on, failures),
// the connection is stopped, the models cache is cleared, and a spawned
// server gets a graceful terminate and wait. Returns the non-fatal errors
// encountered; the final state is Disconnected regardless.
func (c *Client) Stop(ctx context.Context) []error {
	c.log.Info("Stopping client")

	var errs []error

	for _, session := range c.drainSessions() {
		if err := session.Destroy(ctx); err != nil {
			errs = append(errs, fmt.Errorf("destroy session %s: %w", session.ID(), err))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Stop()
		c.conn = nil
	}

	c.models.Clear()

	if c.transport != nil {
		if err := c.transport.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close transport: %w", err))
		}

		c.transport = nil
	}

	c.state = StateDisconnected

	return errs
}

// ForceStop tears the client down immediately.
//
// Sessions are dropped without server-side destruction and a spawned server
// is killed rather than terminated. Never fails and never blocks; intended
// for teardown paths.
func (c *Client) ForceStop() {
	c.log.Info("Force-stopping client")

	c.drainSessions()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil {
		c.conn.Stop()
		c.conn = nil
	}

	c.models.Clear()

	if c.transport != nil {
		c.transport.Kill()
		c.transport = nil
	}

	c.state = StateDisconnected
}

// drainSessions empties the registry and returns the removed sessions.
func (c *Client) drainSessions() []*Session {
	c.sessionsMu.Lock()
	defer c.sessionsMu.Unlock()

	drained := make([]*Session, 0, len(c.sessions))
	for _, session := range c.sessions {
		drained = append(drained, session)
	}

	c.sessions = make(map[string]*Session)

	return drained
}

// SessionCount returns the number of tracked sessions.
func (c *Client) SessionCount() int {
	c.sessionsMu.RLock()
	defer c.sessionsMu.RUnlock()

	return len(c.sessions)
}

func (c *Client) lookupSession(id string) *Session {
	c.sessionsMu.RLock()
	defer c.sessionsMu.RUnlock()

	return c.sessions[id]
}

func (c *Client) registerSession(session *Session) {
	c.sessionsMu.Lock()
	c.sessions[session.id] = session
	c.sessionsMu.Unlock()
}

func (c *Client) removeSession(id string) {
	c.sessionsMu.Lock()
	delete(c.sessions, id)
	c.sessionsMu.Unlock()
}

// OnLifecycle subscribes to every session lifecycle event.
// The returned function unsubscribes; safe to call from within the handler.
func (c *Client) OnLifecycle(handler LifecycleHandler) func() {
	return c.subscribeLifecycle("", handler)
}

// OnLifecycleType subscribes to lifecycle events of one type
// (e.g. "session.created").
func (c *Client) OnLifecycleType(eventType string, handler LifecycleHandler) func() {
	return c.subscribeLifecycle(eventType, handler)
}

func (c *Client) subscribeLifecycle(eventType string, handler LifecycleHandler) func() {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	c.nextSubID++
	id := c.nextSubID
	c.lifecycleSubs = append(c.lifecycleSubs, &lifecycleSub{
		id:        id,
		eventType: eventType,
		handler:   handler,
	})

	return func() {
		c.lifecycleMu.Lock()
		defer c.lifecycleMu.Unlock()

		for i, sub := range c.lifecycleSubs {
			if sub.id == id {
				c.lifecycleSubs = append(c.lifecycleSubs[:i], c.lifecycleSubs[i+1:]...)

				return
			}
		}
	}
}

// dispatchLifecycle delivers a lifecycle event, typed subscribers first,
// then unfiltered ones. Panics in one subscriber do not stop the rest.
func (c *Client) dispatchLifecycle(event *SessionLifecycleEvent) {
	c.lifecycleMu.RLock()

	typed := make([]*lifecycleSub, 0, len(c.lifecycleSubs))
	wildcard := make([]*lifecycleSub, 0, len(c.lifecycleSubs))

	for _, sub := range c.lifecycleSubs {
		switch sub.eventType {
		case event.Type:
			typed = append(typed, sub)
		case "":
			wildcard = append(wildcard, sub)
		}
	}

	c.lifecycleMu.RUnlock()

	for _, sub := range typed {
		c.invokeLifecycle(sub, event)
	}

	for _, sub := range wildcard {
		c.invokeLifecycle(sub, event)
	}
}

func (c *Client) invokeLifecycle(sub *lifecycleSub, event *SessionLifecycleEvent) {
	defer func() {
		if r := recover(); r != nil {
			c.log.Error("Lifecycle subscriber panicked", "event_type", event.Type, "panic", r)
		}
	}()

	sub.handler(event)
}

// --- Inbound routing ---

func (c *Client) registerHandlers(conn *rpc.Conn) {
	conn.Handle("session.event", c.handleSessionEvent)
	conn.Handle("session.lifecycle", c.handleSessionLifecycle)
	conn.Handle("tool.call", c.handleToolCall)
	conn.Handle("permission.request", c.handlePermissionRequest)
	conn.Handle("userInput.request", c.handleUserInputRequest)
	conn.Handle("hooks.invoke", c.handleHooksInvoke)
}

// handleSessionEvent routes a session-scoped event. Events for sessions the
// client no longer tracks are dropped: the server may still emit for a
// session the client already forgot.
func (c *Client) handleSessionEvent(_ context.Context, params json.RawMessage) (any, error) {
	var notification struct {
		SessionID string        `json:"sessionId"`
		Event     *SessionEvent `json:"event"`
	}

	if err := json.Unmarshal(params, &notification); err != nil {
		return nil, fmt.Errorf("decode session.event: %w", err)
	}

	session := c.lookupSession(notification.SessionID)
	if session == nil || notification.Event == nil {
		c.log.Debug("Dropping event for unknown session", "session_id", notification.SessionID)

		return nil, nil
	}

	if notification.Event.Data == nil {
		notification.Event.Data = map[string]any{}
	}

	session.dispatchEvent(notification.Event)

	return nil, nil
}

func (c *Client) handleSessionLifecycle(_ context.Context, params json.RawMessage) (any, error) {
	var event SessionLifecycleEvent
	if err := json.Unmarshal(params, &event); err != nil {
		return nil, fmt.Errorf("decode session.lifecycle: %w", err)
	}

	c.dispatchLifecycle(&event)

	return nil, nil
}

// handleToolCall executes a tool on the owning session.
//
// Missing identifiers are an invalid-params protocol error and an unknown
// session an internal one, but everything past that boundary degrades to a
// structured failure result so a misbehaving tool never breaks the protocol.
func (c *Client) handleToolCall(ctx context.Context, params json.RawMessage) (any, error) {
	var invocation ToolInvocation
	if err := json.Unmarshal(params, &invocation); err != nil {
		return nil, &errors.RPCError{Code: rpc.CodeInvalidParams, Message: "malformed tool.call params"}
	}

	if invocation.SessionID == "" || invocation.ToolCallID == "" || invocation.ToolName == "" {
		return nil, &errors.RPCError{
			Code:    rpc.CodeInvalidParams,
			Message: "tool.call requires sessionId, toolCallId, and toolName",
		}
	}

	session := c.lookupSession(invocation.SessionID)
	if session == nil {
		return nil, fmt.Errorf("unknown session %s", invocation.SessionID)
	}

	tool := session.toolHandler(invocation.ToolName)
	if tool == nil {
		return map[string]any{"result": &ToolResult{
			TextResultForLLM: fmt.Sprintf(
				"Tool '%s' is not supported by this client instance.", invocation.ToolName),
			ResultType:    ToolResultFailure,
			Error:         fmt.Sprintf("tool '%s' not supported", invocation.ToolName),
			ToolTelemetry: map[string]any{},
		}}, nil
	}

	result := c.runTool(ctx, tool, &invocation)

	return map[string]any{"result": result}, nil
}

// runTool invokes the handler, normalizing its return and converting errors
// and panics into structured failures with generic model-facing text.
func (c *Client) runTool(ctx context.Context, tool *Tool, invocation *ToolInvocation) *ToolResult {
	value, err := func() (value any, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("tool handler panic: %v", r)
			}
		}()

		return tool.Handler(ctx, invocation.Arguments, invocation)
	}()
	if err != nil {
		c.log.Debug("Tool handler failed", "tool", invocation.ToolName, "error", err)

		return &ToolResult{
			TextResultForLLM: "Invoking this tool produced an error. Detailed information is not available.",
			ResultType:       ToolResultFailure,
			Error:            err.Error(),
			ToolTelemetry:    map[string]any{},
		}
	}

	return normalizeToolResult(value)
}

// normalizeToolResult maps a handler's return value to a ToolResult. A
// *ToolResult passes through; nil is a failure; anything else becomes a
// success whose text is the value rendered as a string.
func normalizeToolResult(value any) *ToolResult {
	switch v := value.(type) {
	case nil:
		return &ToolResult{
			TextResultForLLM: "Tool returned no result",
			ResultType:       ToolResultFailure,
			Error:            "tool returned no result",
			ToolTelemetry:    map[string]any{},
		}

	case *ToolResult:
		if v.ToolTelemetry == nil {
			v.ToolTelemetry = map[string]any{}
		}

		return v

	case string:
		return &ToolResult{
			TextResultForLLM: v,
			ResultType:       ToolResultSuccess,
			ToolTelemetry:    map[string]any{},
		}

	default:
		return &ToolResult{
			TextResultForLLM: fmt.Sprintf("%v", v),
			ResultType:       ToolResultSuccess,
			ToolTelemetry:    map[string]any{},
		}
	}
}

func (c *Client) handlePermissionRequest(ctx context.Context, params json.RawMessage) (any, error) {
	var request struct {
		SessionID         string              `json:"sessionId"`
		PermissionRequest *permission.Request `json:"permissionRequest"`
	}

	if err := json.Unmarshal(params, &request); err != nil {
		return nil, fmt.Errorf("decode permission.request: %w", err)
	}

	session := c.lookupSession(request.SessionID)
	if session == nil {
		return nil, fmt.Errorf("unknown session %s", request.SessionID)
	}

	req := request.PermissionRequest
	if req == nil {
		req = &permission.Request{}
	}

	result := session.handlePermission(ctx, req)

	return map[string]any{"result": result}, nil
}

func (c *Client) handleUserInputRequest(ctx context.Context, params json.RawMessage) (any, error) {
	var request struct {
		SessionID string `json:"sessionId"`
		UserInputRequest
	}

	if err := json.Unmarshal(params, &request); err != nil {
		return nil, fmt.Errorf("decode userInput.request: %w", err)
	}

	session := c.lookupSession(request.SessionID)
	if session == nil {
		return nil, fmt.Errorf("unknown session %s", request.SessionID)
	}

	response, err := session.handleUserInput(ctx, &request.UserInputRequest)
	if err != nil {
		return nil, err
	}

	return response, nil
}

func (c *Client) handleHooksInvoke(ctx context.Context, params json.RawMessage) (any, error) {
	var request struct {
		SessionID string          `json:"sessionId"`
		HookType  hook.Type       `json:"hookType"`
		Input     json.RawMessage `json:"input"`
	}

	if err := json.Unmarshal(params, &request); err != nil {
		return nil, fmt.Errorf("decode hooks.invoke: %w", err)
	}

	session := c.lookupSession(request.SessionID)
	if session == nil {
		return nil, fmt.Errorf("unknown session %s", request.SessionID)
	}

	output, err := session.handleHook(ctx, request.HookType, request.Input)
	if err != nil {
		return nil, err
	}

	// Absent output means no output field at all, not an explicit null.
	result := map[string]any{}
	if output != nil {
		result["output"] = output
	}

	return result, nil
}

// --- Outbound surface ---

// activeConn returns the connection or ErrNotConnected.
func (c *Client) activeConn() (*rpc.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil, errors.ErrNotConnected
	}

	return c.conn, nil
}

// ensureConnected starts the client implicitly when auto-start is enabled.
func (c *Client) ensureConnected(ctx context.Context) (*rpc.Conn, error) {
	if conn, err := c.activeConn(); err == nil {
		return conn, nil
	}

	if !c.options.AutoStart {
		return nil, errors.ErrNotConnected
	}

	if err := c.Start(ctx); err != nil {
		return nil, err
	}

	return c.activeConn()
}

// Ping checks server liveness and returns its response.
func (c *Client) Ping(ctx context.Context, message string) (*PingResponse, error) {
	conn, err := c.activeConn()
	if err != nil {
		return nil, err
	}

	return c.pingConn(ctx, conn, message)
}

func (c *Client) pingConn(ctx context.Context, conn *rpc.Conn, message string) (*PingResponse, error) {
	raw, err := conn.Call(ctx, "ping", map[string]any{"message": message})
	if err != nil {
		return nil, err
	}

	var response PingResponse
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("decode ping response: %w", err)
	}

	return &response, nil
}

// GetStatus returns the server's version information.
func (c *Client) GetStatus(ctx context.Context) (*GetStatusResponse, error) {
	return callDecoded[GetStatusResponse](ctx, c, "status.get", map[string]any{})
}

// GetAuthStatus returns the CLI's authentication state.
func (c *Client) GetAuthStatus(ctx context.Context) (*GetAuthStatusResponse, error) {
	return callDecoded[GetAuthStatusResponse](ctx, c, "auth.getStatus", map[string]any{})
}

// callDecoded issues a call and decodes the result object into T.
func callDecoded[T any](ctx context.Context, c *Client, method string, params any) (*T, error) {
	conn, err := c.activeConn()
	if err != nil {
		return nil, err
	}

	raw, err := conn.Call(ctx, method, params)
	if err != nil {
		return nil, err
	}

	var response T
	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}

	return &response, nil
}

// ListModels returns the models offered by the server. The listing is
// fetched once and cached until the client stops.
func (c *Client) ListModels(ctx context.Context) ([]models.Info, error) {
	conn, err := c.activeConn()
	if err != nil {
		return nil, err
	}

	return c.models.Get(ctx, func(ctx context.Context) ([]models.Info, error) {
		raw, err := conn.Call(ctx, "models.list", map[string]any{})
		if err != nil {
			return nil, err
		}

		var response struct {
			Models []models.Info `json:"models"`
		}

		if err := json.Unmarshal(raw, &response); err != nil {
			return nil, fmt.Errorf("decode models.list response: %w", err)
		}

		return response.Models, nil
	})
}

// ListSessions lists the sessions known to the server.
func (c *Client) ListSessions(ctx context.Context) ([]SessionMetadata, error) {
	conn, err := c.activeConn()
	if err != nil {
		return nil, err
	}

	raw, err := conn.Call(ctx, "session.list", map[string]any{})
	if err != nil {
		return nil, err
	}

	var response struct {
		Sessions []SessionMetadata `json:"sessions"`
	}

	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("decode session.list response: %w", err)
	}

	return response.Sessions, nil
}

// GetLastSessionID returns the id of the most recent session, or an empty
// string when the server has none.
func (c *Client) GetLastSessionID(ctx context.Context) (string, error) {
	return c.sessionIDCall(ctx, "session.getLastId")
}

// GetForegroundSessionID returns the session currently in the foreground.
func (c *Client) GetForegroundSessionID(ctx context.Context) (string, error) {
	return c.sessionIDCall(ctx, "session.getForeground")
}

func (c *Client) sessionIDCall(ctx context.Context, method string) (string, error) {
	conn, err := c.activeConn()
	if err != nil {
		return "", err
	}

	raw, err := conn.Call(ctx, method, map[string]any{})
	if err != nil {
		return "", err
	}

	var response struct {
		SessionID string `json:"sessionId"`
	}

	if err := json.Unmarshal(raw, &response); err != nil {
		return "", fmt.Errorf("decode %s response: %w", method, err)
	}

	return response.SessionID, nil
}

// SetForegroundSessionID brings a session to the foreground.
func (c *Client) SetForegroundSessionID(ctx context.Context, sessionID string) error {
	conn, err := c.activeConn()
	if err != nil {
		return err
	}

	raw, err := conn.Call(ctx, "session.setForeground", map[string]any{"sessionId": sessionID})
	if err != nil {
		return err
	}

	return checkSuccess(raw, "set foreground session")
}

// DeleteSession deletes a session on the server and forgets it locally.
func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	conn, err := c.activeConn()
	if err != nil {
		return err
	}

	raw, err := conn.Call(ctx, "session.delete", map[string]any{"sessionId": sessionID})
	if err != nil {
		return err
	}

	if err := checkSuccess(raw, "delete session "+sessionID); err != nil {
		return err
	}

	c.removeSession(sessionID)

	return nil
}

// checkSuccess decodes a {success, error?} result.
func checkSuccess(raw json.RawMessage, action string) error {
	var response struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}

	if err := json.Unmarshal(raw, &response); err != nil {
		return fmt.Errorf("decode %s response: %w", action, err)
	}

	if !response.Success {
		message := response.Error
		if message == "" {
			message = "unknown error"
		}

		return fmt.Errorf("%s: %s", action, message)
	}

	return nil
}

// CreateSession creates a new conversation session.
//
// The config's tools, permission handler, user input handler, and hooks are
// registered on the session before it becomes reachable through the
// registry, so the very first inbound callback already finds them.
func (c *Client) CreateSession(ctx context.Context, cfg *SessionConfig) (*Session, error) {
	return c.establishSession(ctx, "session.create", "", cfg)
}

// ResumeSession resumes an existing session by id.
func (c *Client) ResumeSession(ctx context.Context, sessionID string, cfg *SessionConfig) (*Session, error) {
	return c.establishSession(ctx, "session.resume", sessionID, cfg)
}

func (c *Client) establishSession(
	ctx context.Context,
	method string,
	resumeID string,
	cfg *SessionConfig,
) (*Session, error) {
	conn, err := c.ensureConnected(ctx)
	if err != nil {
		return nil, err
	}

	if cfg == nil {
		cfg = &SessionConfig{}
	}

	payload := buildSessionPayload(cfg)
	if resumeID != "" {
		payload["sessionId"] = resumeID
	}

	raw, err := conn.Call(ctx, method, payload)
	if err != nil {
		return nil, err
	}

	var response struct {
		SessionID     string `json:"sessionId"`
		WorkspacePath string `json:"workspacePath"`
	}

	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("decode %s response: %w", method, err)
	}

	session := newSession(response.SessionID, response.WorkspacePath, conn, c.log)
	session.registerHandlers(cfg)
	session.detach = func() { c.removeSession(session.id) }

	c.registerSession(session)

	return session, nil
}

// buildSessionPayload serializes a SessionConfig with only present fields.
func buildSessionPayload(cfg *SessionConfig) map[string]any {
	payload := map[string]any{}

	if cfg.Model != "" {
		payload["model"] = cfg.Model
	}

	if cfg.SessionID != "" {
		payload["sessionId"] = cfg.SessionID
	}

	if cfg.ReasoningEffort != "" {
		payload["reasoningEffort"] = cfg.ReasoningEffort
	}

	if cfg.ConfigDir != "" {
		payload["configDir"] = cfg.ConfigDir
	}

	if cfg.Tools != nil {
		defs := make([]map[string]any, 0, len(cfg.Tools))

		for _, tool := range cfg.Tools {
			def := map[string]any{"name": tool.Name}
			if tool.Description != "" {
				def["description"] = tool.Description
			}

			if tool.Parameters != nil {
				def["parameters"] = tool.Parameters
			}

			defs = append(defs, def)
		}

		payload["tools"] = defs
	}

	if cfg.SystemMessage != nil {
		payload["systemMessage"] = cfg.SystemMessage
	}

	if cfg.AvailableTools != nil {
		payload["availableTools"] = cfg.AvailableTools
	}

	if cfg.ExcludedTools != nil {
		payload["excludedTools"] = cfg.ExcludedTools
	}

	if cfg.Provider != nil {
		payload["provider"] = cfg.Provider
	}

	if cfg.OnPermissionRequest != nil {
		payload["requestPermission"] = true
	}

	if cfg.OnUserInputRequest != nil {
		payload["requestUserInput"] = true
	}

	if cfg.Hooks.HasAny() {
		payload["hooks"] = true
	}

	if cfg.WorkingDirectory != "" {
		payload["workingDirectory"] = cfg.WorkingDirectory
	}

	if cfg.Streaming != nil {
		payload["streaming"] = *cfg.Streaming
	}

	if cfg.MCPServers != nil {
		payload["mcpServers"] = cfg.MCPServers
	}

	if cfg.CustomAgents != nil {
		payload["customAgents"] = cfg.CustomAgents
	}

	if cfg.SkillDirectories != nil {
		payload["skillDirectories"] = cfg.SkillDirectories
	}

	if cfg.DisabledSkills != nil {
		payload["disabledSkills"] = cfg.DisabledSkills
	}

	if cfg.InfiniteSessions != nil {
		payload["infiniteSessions"] = cfg.InfiniteSessions
	}

	return payload
}
