// Package rpc implements the bidirectional JSON-RPC 2.0 engine used to talk
// to the Copilot CLI server.
//
// A Conn multiplexes one byte-stream transport: outbound calls are correlated
// to their responses by id, and inbound server-initiated calls and
// notifications are dispatched to registered per-method handlers. The read
// loop runs on a dedicated goroutine and never executes handler bodies or
// blocks on a caller, so one slow handler cannot stall unrelated traffic.
package rpc
