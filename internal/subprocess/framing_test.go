package subprocess

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jeremiahjordanisaacson/copilot-sdk/internal/rpc"
)

func TestFraming_Roundtrip(t *testing.T) {
	var buf bytes.Buffer

	first, err := rpc.NewCall("req-1", "ping", map[string]any{"message": "hello"})
	require.NoError(t, err)
	second, err := rpc.NewNotification("session.event", map[string]any{"sessionId": "s1"})
	require.NoError(t, err)

	require.NoError(t, writeFrame(&buf, first))
	require.NoError(t, writeFrame(&buf, second))

	reader := bufio.NewReader(&buf)

	got, err := readFrame(reader)
	require.NoError(t, err)
	require.Equal(t, "ping", got.Method)
	require.JSONEq(t, `{"message":"hello"}`, string(got.Params))

	got, err = readFrame(reader)
	require.NoError(t, err)
	require.True(t, got.IsNotification())
	require.Equal(t, "session.event", got.Method)

	_, err = readFrame(reader)
	require.Equal(t, io.EOF, err)
}

func TestFraming_WriteProducesContentLengthHeader(t *testing.T) {
	var buf bytes.Buffer

	frame, err := rpc.NewNotification("ping", nil)
	require.NoError(t, err)
	require.NoError(t, writeFrame(&buf, frame))

	raw := buf.String()
	header, payload, found := strings.Cut(raw, "\r\n\r\n")
	require.True(t, found)
	require.True(t, strings.HasPrefix(header, "Content-Length: "))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(payload), &decoded))
	require.Equal(t, "2.0", decoded["jsonrpc"])
}

func TestFraming_ReadHeaderVariants(t *testing.T) {
	payload := `{"jsonrpc":"2.0","method":"ping","params":{}}`

	tests := []struct {
		name    string
		raw     string
		wantErr string
	}{
		{
			name: "lowercase header",
			raw:  "content-length: 45\r\n\r\n" + payload,
		},
		{
			name: "extra headers ignored",
			raw:  "Content-Type: application/json\r\nContent-Length: 45\r\n\r\n" + payload,
		},
		{
			name:    "missing content length",
			raw:     "Content-Type: application/json\r\n\r\n" + payload,
			wantErr: "missing Content-Length",
		},
		{
			name:    "unparsable length",
			raw:     "Content-Length: many\r\n\r\n" + payload,
			wantErr: "parse Content-Length",
		},
		{
			name:    "malformed header line",
			raw:     "not a header\r\n\r\n" + payload,
			wantErr: "malformed frame header",
		},
		{
			name:    "length beyond limit",
			raw:     "Content-Length: 99999999999\r\n\r\n",
			wantErr: "exceeds limit",
		},
		{
			name:    "truncated payload",
			raw:     "Content-Length: 500\r\n\r\n" + payload,
			wantErr: "read frame payload",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := readFrame(bufio.NewReader(strings.NewReader(tt.raw)))
			if tt.wantErr != "" {
				require.Error(t, err)
				require.Contains(t, err.Error(), tt.wantErr)

				return
			}

			require.NoError(t, err)
			require.Equal(t, "ping", frame.Method)
		})
	}
}
