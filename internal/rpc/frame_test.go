package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrame_Classification(t *testing.T) {
	tests := []struct {
		name           string
		raw            string
		isCall         bool
		isNotification bool
		isResponse     bool
	}{
		{
			name:   "call",
			raw:    `{"jsonrpc":"2.0","id":"1","method":"tool.call","params":{}}`,
			isCall: true,
		},
		{
			name:           "notification",
			raw:            `{"jsonrpc":"2.0","method":"session.event","params":{}}`,
			isNotification: true,
		},
		{
			name:       "success response",
			raw:        `{"jsonrpc":"2.0","id":"1","result":{}}`,
			isResponse: true,
		},
		{
			name:       "error response",
			raw:        `{"jsonrpc":"2.0","id":"1","error":{"code":-32601,"message":"nope"}}`,
			isResponse: true,
		},
		{
			name: "invalid",
			raw:  `{"jsonrpc":"2.0"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var frame Frame
			require.NoError(t, json.Unmarshal([]byte(tt.raw), &frame))

			require.Equal(t, tt.isCall, frame.IsCall())
			require.Equal(t, tt.isNotification, frame.IsNotification())
			require.Equal(t, tt.isResponse, frame.IsResponse())
		})
	}
}

func TestFrame_IDKey_NormalizesStringAndNumber(t *testing.T) {
	stringID := &Frame{ID: json.RawMessage(`"abc-123"`)}
	require.Equal(t, "abc-123", stringID.IDKey())

	numberID := &Frame{ID: json.RawMessage(`42`)}
	require.Equal(t, "42", numberID.IDKey())
}

func TestNewCall_NilParamsBecomeEmptyObject(t *testing.T) {
	frame, err := NewCall("id-1", "ping", nil)
	require.NoError(t, err)

	require.Equal(t, Version, frame.JSONRPC)
	require.JSONEq(t, `{}`, string(frame.Params))
	require.Equal(t, "id-1", frame.IDKey())
}

func TestNewErrorResponse_EchoesRawID(t *testing.T) {
	// The server may use numeric ids for its own calls; the raw id must be
	// echoed untouched.
	frame := NewErrorResponse(json.RawMessage(`7`), CodeMethodNotFound, "method not found: x")

	data, err := json.Marshal(frame)
	require.NoError(t, err)
	require.JSONEq(t,
		`{"jsonrpc":"2.0","id":7,"error":{"code":-32601,"message":"method not found: x"}}`,
		string(data))
}
