package rpc

import (
	"encoding/json"
	"fmt"
)

// Version is the JSON-RPC protocol version sent on every frame.
const Version = "2.0"

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Frame is one logical JSON-RPC message: a call (method + id), a response
// (id + result or error), or a notification (method, no id).
type Frame struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the error member of a JSON-RPC response.
type ErrorObject struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// IsCall reports whether the frame is a request that expects a response.
func (f *Frame) IsCall() bool {
	return f.Method != "" && len(f.ID) > 0
}

// IsNotification reports whether the frame is a fire-and-forget notification.
func (f *Frame) IsNotification() bool {
	return f.Method != "" && len(f.ID) == 0
}

// IsResponse reports whether the frame is a response to an earlier call.
func (f *Frame) IsResponse() bool {
	return f.Method == "" && len(f.ID) > 0 && (len(f.Result) > 0 || f.Error != nil)
}

// IDKey normalizes the frame id to a string key for correlation.
//
// The SDK's own ids are strings, but the server is free to use numbers for
// its ids; both map onto a stable key. Responses echo the raw id untouched.
func (f *Frame) IDKey() string {
	return idKey(f.ID)
}

func idKey(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	return string(raw)
}

// NewCall builds a call frame with the given string id.
func NewCall(id, method string, params any) (*Frame, error) {
	rawID, err := json.Marshal(id)
	if err != nil {
		return nil, fmt.Errorf("marshal id: %w", err)
	}

	rawParams, err := marshalObject(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params for %s: %w", method, err)
	}

	return &Frame{
		JSONRPC: Version,
		ID:      rawID,
		Method:  method,
		Params:  rawParams,
	}, nil
}

// NewNotification builds a notification frame (no id, no expected response).
func NewNotification(method string, params any) (*Frame, error) {
	rawParams, err := marshalObject(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params for %s: %w", method, err)
	}

	return &Frame{
		JSONRPC: Version,
		Method:  method,
		Params:  rawParams,
	}, nil
}

// NewResponse builds a success response echoing the raw id of the call.
func NewResponse(id json.RawMessage, result any) (*Frame, error) {
	rawResult, err := marshalObject(result)
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}

	return &Frame{
		JSONRPC: Version,
		ID:      id,
		Result:  rawResult,
	}, nil
}

// NewErrorResponse builds an error response echoing the raw id of the call.
func NewErrorResponse(id json.RawMessage, code int, message string) *Frame {
	return &Frame{
		JSONRPC: Version,
		ID:      id,
		Error:   &ErrorObject{Code: code, Message: message},
	}
}

// marshalObject marshals v, substituting an empty object for nil so that
// params and result members are always present JSON objects on the wire.
func marshalObject(v any) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage(`{}`), nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}

	return raw, nil
}
