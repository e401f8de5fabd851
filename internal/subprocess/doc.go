// Package subprocess implements the transports that carry JSON-RPC frames to
// the Copilot CLI server.
//
// Frames are exchanged with Content-Length header framing: each logical
// message is "Content-Length: N\r\n\r\n" followed by exactly N bytes of JSON.
//
// CLITransport spawns the CLI as a child process and talks to it over stdio,
// or over TCP when a port is configured (the server announces its listening
// port on stdout before the connection is dialed). TCPTransport dials an
// externally managed server; it closes its socket on shutdown but never
// signals a process it did not spawn.
package subprocess
