package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/hook"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/permission"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/rpc"
)

// defaultSendAndWaitTimeout bounds SendAndWait when no timeout is given.
const defaultSendAndWaitTimeout = 60 * time.Second

// Session is one conversational context tracked by the server.
//
// A Session owns its handler table (tools, permission callback, user input
// callback, hooks) and an ordered log of every event dispatched to it. It is
// created by Client.CreateSession or Client.ResumeSession and owned by the
// client's registry; external holders only reference it.
type Session struct {
	id            string
	workspacePath string
	conn          *rpc.Conn
	log           *slog.Logger

	// detach removes the session from the owning registry on destroy.
	detach func()

	mu         sync.RWMutex
	eventLog   []*SessionEvent
	subs       []*eventSub
	nextSubID  int
	tools      map[string]*Tool
	permission permission.Handler
	userInput  UserInputHandler
	hooks      *hook.SessionHooks
}

// eventSub is one event subscription. An empty eventType matches every event.
type eventSub struct {
	id        int
	eventType string
	handler   EventHandler
}

func newSession(id, workspacePath string, conn *rpc.Conn, log *slog.Logger) *Session {
	return &Session{
		id:            id,
		workspacePath: workspacePath,
		conn:          conn,
		log:           log.With("component", "session", "session_id", id),
		tools:         make(map[string]*Tool, 4),
	}
}

// ID returns the unique session identifier.
func (s *Session) ID() string {
	return s.id
}

// WorkspacePath returns the session's workspace path (for infinite sessions).
func (s *Session) WorkspacePath() string {
	return s.workspacePath
}

// Send sends a message to this session and returns the message id.
// The reply arrives asynchronously as session events.
func (s *Session) Send(ctx context.Context, options *MessageOptions) (string, error) {
	params := map[string]any{
		"sessionId": s.id,
		"prompt":    options.Prompt,
	}
	if options.Attachments != nil {
		params["attachments"] = options.Attachments
	}

	if options.Mode != "" {
		params["mode"] = options.Mode
	}

	raw, err := s.conn.Call(ctx, "session.send", params)
	if err != nil {
		return "", err
	}

	var response struct {
		MessageID string `json:"messageId"`
	}

	if err := json.Unmarshal(raw, &response); err != nil {
		return "", fmt.Errorf("decode session.send response: %w", err)
	}

	return response.MessageID, nil
}

// SendAndWait sends a message and blocks until the session becomes idle.
//
// Returns the last assistant message event observed before idle, or nil when
// the turn produced none. A session.error event or an elapsed timeout (zero
// selects the 60 second default) ends the wait with an error.
func (s *Session) SendAndWait(
	ctx context.Context,
	options *MessageOptions,
	timeout time.Duration,
) (*SessionEvent, error) {
	if timeout <= 0 {
		timeout = defaultSendAndWaitTimeout
	}

	done := make(chan error, 1)

	var lastMu sync.Mutex

	var lastAssistant *SessionEvent

	unsubscribe := s.On(func(event *SessionEvent) {
		switch event.Type {
		case "assistant.message":
			lastMu.Lock()
			lastAssistant = event
			lastMu.Unlock()

		case "session.idle":
			select {
			case done <- nil:
			default:
			}

		case "session.error":
			message := "unknown error"
			if m, ok := event.Data["message"].(string); ok {
				message = m
			}

			select {
			case done <- fmt.Errorf("session error: %s", message):
			default:
			}
		}
	})
	defer unsubscribe()

	if _, err := s.Send(ctx, options); err != nil {
		return nil, err
	}

	select {
	case err := <-done:
		if err != nil {
			return nil, err
		}

		lastMu.Lock()
		defer lastMu.Unlock()

		return lastAssistant, nil

	case <-time.After(timeout):
		return nil, fmt.Errorf("timeout after %s waiting for session.idle", timeout)

	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// On subscribes to every event from this session.
// The returned function unsubscribes; it is safe to call from within the
// handler itself.
func (s *Session) On(handler EventHandler) func() {
	return s.subscribe("", handler)
}

// OnEventType subscribes to events of one type (e.g. "assistant.message").
func (s *Session) OnEventType(eventType string, handler EventHandler) func() {
	return s.subscribe(eventType, handler)
}

func (s *Session) subscribe(eventType string, handler EventHandler) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSubID++
	id := s.nextSubID
	s.subs = append(s.subs, &eventSub{id: id, eventType: eventType, handler: handler})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		for i, sub := range s.subs {
			if sub.id == id {
				s.subs = append(s.subs[:i], s.subs[i+1:]...)

				return
			}
		}
	}
}

// GetMessages retrieves the session's full event history from the server.
func (s *Session) GetMessages(ctx context.Context) ([]*SessionEvent, error) {
	raw, err := s.conn.Call(ctx, "session.getMessages", map[string]any{"sessionId": s.id})
	if err != nil {
		return nil, err
	}

	var response struct {
		Events []map[string]any `json:"events"`
	}

	if err := json.Unmarshal(raw, &response); err != nil {
		return nil, fmt.Errorf("decode session.getMessages response: %w", err)
	}

	events := make([]*SessionEvent, 0, len(response.Events))

	for _, e := range response.Events {
		eventType, _ := e["type"].(string)
		events = append(events, &SessionEvent{Type: eventType, Data: e})
	}

	return events, nil
}

// Abort cancels the message the session is currently processing.
func (s *Session) Abort(ctx context.Context) error {
	_, err := s.conn.Call(ctx, "session.abort", map[string]any{"sessionId": s.id})

	return err
}

// Destroy destroys this session on the server and releases its handlers.
// The session is removed from the owning client's registry.
func (s *Session) Destroy(ctx context.Context) error {
	_, err := s.conn.Call(ctx, "session.destroy", map[string]any{"sessionId": s.id})

	s.mu.Lock()
	s.subs = nil
	s.tools = make(map[string]*Tool)
	s.permission = nil
	s.userInput = nil
	s.hooks = nil
	s.mu.Unlock()

	if s.detach != nil {
		s.detach()
	}

	return err
}

// EventLog returns a snapshot of every event dispatched to this session, in
// dispatch order.
func (s *Session) EventLog() []*SessionEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log := make([]*SessionEvent, len(s.eventLog))
	copy(log, s.eventLog)

	return log
}

// registerHandlers installs the config's tools and callbacks. Called once,
// before the session is published into the registry.
func (s *Session) registerHandlers(cfg *SessionConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tool := range cfg.Tools {
		s.tools[tool.Name] = tool
	}

	s.permission = cfg.OnPermissionRequest
	s.userInput = cfg.OnUserInputRequest
	s.hooks = cfg.Hooks
}

func (s *Session) toolHandler(name string) *Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.tools[name]
}

// dispatchEvent appends the event to the log and invokes subscribers whose
// filter matches, typed subscribers first, then wildcards.
//
// Subscribers run outside the lock on a snapshot, so a subscriber removing
// itself (or any other) mid-dispatch is safe. A panicking subscriber does
// not stop delivery to the rest.
func (s *Session) dispatchEvent(event *SessionEvent) {
	s.mu.Lock()
	s.eventLog = append(s.eventLog, event)

	typed := make([]*eventSub, 0, len(s.subs))
	wildcard := make([]*eventSub, 0, len(s.subs))

	for _, sub := range s.subs {
		switch sub.eventType {
		case event.Type:
			typed = append(typed, sub)
		case "":
			wildcard = append(wildcard, sub)
		}
	}

	s.mu.Unlock()

	for _, sub := range typed {
		s.invokeSubscriber(sub, event)
	}

	for _, sub := range wildcard {
		s.invokeSubscriber(sub, event)
	}
}

func (s *Session) invokeSubscriber(sub *eventSub, event *SessionEvent) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("Event subscriber panicked", "event_type", event.Type, "panic", r)
		}
	}()

	sub.handler(event)
}

// handlePermission decides a permission request. A missing or failing
// callback degrades to the safe denial, never an error.
func (s *Session) handlePermission(ctx context.Context, req *permission.Request) *permission.Result {
	s.mu.RLock()
	handler := s.permission
	s.mu.RUnlock()

	if handler == nil {
		return permission.Denied()
	}

	result, err := func() (result *permission.Result, err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("permission handler panic: %v", r)
			}
		}()

		return handler(ctx, req, s.id)
	}()
	if err != nil || result == nil {
		s.log.Debug("Permission handler failed, denying", "error", err)

		return permission.Denied()
	}

	return result
}

// handleUserInput answers a user input request. Missing handler or handler
// failure is an error here; the caller surfaces it as a protocol error.
func (s *Session) handleUserInput(ctx context.Context, req *UserInputRequest) (*UserInputResponse, error) {
	s.mu.RLock()
	handler := s.userInput
	s.mu.RUnlock()

	if handler == nil {
		return nil, fmt.Errorf("user input requested but no handler registered")
	}

	return handler(ctx, req, s.id)
}

// handleHook runs the hook handler for hookType. A nil output means the
// response carries no output field.
func (s *Session) handleHook(
	ctx context.Context,
	hookType hook.Type,
	input json.RawMessage,
) (map[string]any, error) {
	s.mu.RLock()
	hooks := s.hooks
	s.mu.RUnlock()

	handler := hooks.HandlerFor(hookType)
	if handler == nil {
		return nil, nil
	}

	return handler(ctx, input, s.id)
}
