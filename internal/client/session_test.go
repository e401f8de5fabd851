package client

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/hook"
	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/rpc"
)

func createTestSession(t *testing.T, fs *fakeServer, c *Client, cfg *SessionConfig) *Session {
	t.Helper()

	session, err := c.CreateSession(context.Background(), cfg)
	require.NoError(t, err)

	return session
}

func TestSession_Send(t *testing.T) {
	fs := newFakeServer(t)
	fs.respondTo("session.send", func(f *rpc.Frame) (any, *rpc.ErrorObject) {
		var payload struct {
			SessionID string `json:"sessionId"`
			Prompt    string `json:"prompt"`
			Mode      string `json:"mode"`
		}

		require.NoError(t, json.Unmarshal(f.Params, &payload))
		require.Equal(t, "What is the weather?", payload.Prompt)
		require.Equal(t, "chat", payload.Mode)

		return map[string]any{"messageId": "msg-1"}, nil
	})

	c := newStartedClient(t, fs)
	session := createTestSession(t, fs, c, nil)

	messageID, err := session.Send(context.Background(), &MessageOptions{
		Prompt: "What is the weather?",
		Mode:   "chat",
	})
	require.NoError(t, err)
	require.Equal(t, "msg-1", messageID)
}

func TestSession_SendAndWaitReturnsLastAssistantMessage(t *testing.T) {
	fs := newFakeServer(t)
	c := newStartedClient(t, fs)
	session := createTestSession(t, fs, c, nil)

	// The server answers the send, then streams two assistant messages
	// followed by idle. Dispatch preserves arrival order, so the wait
	// must observe both messages before the idle signal ends it.
	fs.respondTo("session.send", func(*rpc.Frame) (any, *rpc.ErrorObject) {
		go func() {
			fs.pushEvent(session.ID(), "assistant.message", map[string]any{"text": "thinking"})
			fs.pushEvent(session.ID(), "assistant.message", map[string]any{"text": "Sunny, 24C"})
			fs.pushEvent(session.ID(), "session.idle", nil)
		}()

		return map[string]any{"messageId": "msg-1"}, nil
	})

	event, err := session.SendAndWait(context.Background(), &MessageOptions{Prompt: "weather?"}, 2*time.Second)
	require.NoError(t, err)
	require.NotNil(t, event)
	require.Equal(t, "Sunny, 24C", event.Data["text"])
}

func TestSession_SendAndWaitSessionError(t *testing.T) {
	fs := newFakeServer(t)
	c := newStartedClient(t, fs)
	session := createTestSession(t, fs, c, nil)

	fs.respondTo("session.send", func(*rpc.Frame) (any, *rpc.ErrorObject) {
		go fs.pushEvent(session.ID(), "session.error", map[string]any{"message": "model overloaded"})

		return map[string]any{"messageId": "msg-1"}, nil
	})

	_, err := session.SendAndWait(context.Background(), &MessageOptions{Prompt: "weather?"}, 2*time.Second)
	require.Error(t, err)
	require.Contains(t, err.Error(), "model overloaded")
}

func TestSession_SendAndWaitTimeout(t *testing.T) {
	fs := newFakeServer(t)
	c := newStartedClient(t, fs)
	session := createTestSession(t, fs, c, nil)

	// No idle event ever arrives.
	_, err := session.SendAndWait(context.Background(), &MessageOptions{Prompt: "weather?"}, 50*time.Millisecond)
	require.Error(t, err)
	require.Contains(t, err.Error(), "timeout")
}

func TestSession_TypedSubscription(t *testing.T) {
	fs := newFakeServer(t)
	c := newStartedClient(t, fs)
	session := createTestSession(t, fs, c, nil)

	var typed atomic.Int32

	var all atomic.Int32

	session.OnEventType("assistant.message", func(*SessionEvent) {
		typed.Add(1)
	})
	session.On(func(*SessionEvent) {
		all.Add(1)
	})

	fs.pushEvent(session.ID(), "assistant.message", map[string]any{"text": "hi"})

	require.Eventually(t, func() bool {
		return all.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	fs.pushEvent(session.ID(), "tool.progress", map[string]any{"pct": 50})

	require.Eventually(t, func() bool {
		return all.Load() == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, int32(1), typed.Load())
	require.Len(t, session.EventLog(), 2)
}

func TestSession_SubscriberSelfRemoval(t *testing.T) {
	fs := newFakeServer(t)
	c := newStartedClient(t, fs)
	session := createTestSession(t, fs, c, nil)

	var calls atomic.Int32

	var unsubscribe func()

	unsubscribe = session.On(func(*SessionEvent) {
		calls.Add(1)
		unsubscribe()
	})

	fs.pushEvent(session.ID(), "assistant.message", nil)

	require.Eventually(t, func() bool {
		return calls.Load() == 1
	}, 2*time.Second, 10*time.Millisecond)

	fs.pushEvent(session.ID(), "assistant.message", nil)

	require.Eventually(t, func() bool {
		return len(session.EventLog()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	require.Equal(t, int32(1), calls.Load())
}

func TestSession_GetMessages(t *testing.T) {
	fs := newFakeServer(t)
	fs.respondTo("session.getMessages", func(f *rpc.Frame) (any, *rpc.ErrorObject) {
		return map[string]any{"events": []map[string]any{
			{"type": "user.message", "text": "hello"},
			{"type": "assistant.message", "text": "hi there"},
		}}, nil
	})

	c := newStartedClient(t, fs)
	session := createTestSession(t, fs, c, nil)

	events, err := session.GetMessages(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, "user.message", events[0].Type)
	require.Equal(t, "hi there", events[1].Data["text"])
}

func TestSession_Abort(t *testing.T) {
	fs := newFakeServer(t)
	c := newStartedClient(t, fs)
	session := createTestSession(t, fs, c, nil)

	require.NoError(t, session.Abort(context.Background()))
	require.Len(t, fs.callsFor("session.abort"), 1)
}

func TestSession_DestroyDetachesFromClient(t *testing.T) {
	fs := newFakeServer(t)
	c := newStartedClient(t, fs)
	session := createTestSession(t, fs, c, nil)
	require.Equal(t, 1, c.SessionCount())

	require.NoError(t, session.Destroy(context.Background()))
	require.Equal(t, 0, c.SessionCount())
	require.Len(t, fs.callsFor("session.destroy"), 1)
}

func TestSession_HookInvocation(t *testing.T) {
	fs := newFakeServer(t)
	c := newStartedClient(t, fs)

	session := createTestSession(t, fs, c, &SessionConfig{
		Hooks: &hook.SessionHooks{
			OnPreToolUse: func(_ context.Context, input json.RawMessage, _ string) (map[string]any, error) {
				var payload struct {
					ToolName string `json:"toolName"`
				}

				require.NoError(t, json.Unmarshal(input, &payload))

				return map[string]any{"permissionDecision": "allow", "tool": payload.ToolName}, nil
			},
		},
	})

	// The session advertised its hooks to the server.
	creates := fs.callsFor("session.create")
	require.Len(t, creates, 1)
	require.Contains(t, string(creates[0].Params), `"hooks":true`)

	id := fs.serverCall("hooks.invoke", map[string]any{
		"sessionId": session.ID(),
		"hookType":  string(hook.TypePreToolUse),
		"input":     map[string]any{"toolName": "get_weather"},
	})

	resp := fs.awaitResponse(id)
	require.Nil(t, resp.Error)

	var envelope struct {
		Output map[string]any `json:"output"`
	}

	require.NoError(t, json.Unmarshal(resp.Result, &envelope))
	require.Equal(t, "allow", envelope.Output["permissionDecision"])
	require.Equal(t, "get_weather", envelope.Output["tool"])
}

func TestSession_HookWithoutHandlerOmitsOutput(t *testing.T) {
	fs := newFakeServer(t)
	c := newStartedClient(t, fs)

	session := createTestSession(t, fs, c, &SessionConfig{
		Hooks: &hook.SessionHooks{
			OnSessionStart: func(context.Context, json.RawMessage, string) (map[string]any, error) {
				return nil, nil
			},
		},
	})

	// No handler for this hook type at all.
	id := fs.serverCall("hooks.invoke", map[string]any{
		"sessionId": session.ID(),
		"hookType":  string(hook.TypePostToolUse),
		"input":     map[string]any{},
	})

	resp := fs.awaitResponse(id)
	require.Nil(t, resp.Error)
	require.JSONEq(t, `{}`, string(resp.Result))

	// A handler that returns nil output also omits the field.
	id = fs.serverCall("hooks.invoke", map[string]any{
		"sessionId": session.ID(),
		"hookType":  string(hook.TypeSessionStart),
		"input":     map[string]any{},
	})

	resp = fs.awaitResponse(id)
	require.Nil(t, resp.Error)
	require.JSONEq(t, `{}`, string(resp.Result))
}
