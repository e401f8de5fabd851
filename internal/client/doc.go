// Package client implements the session registry, inbound routing, and the
// client facade over the JSON-RPC engine.
//
// A Client owns one connection to the Copilot CLI server plus the set of
// sessions created over it. Inbound server-initiated traffic (session
// events, lifecycle notifications, tool calls, permission prompts, user
// input prompts, hook invocations) is routed to the owning session's
// registered handlers; outbound operations go through the correlation
// engine in internal/rpc.
package client
